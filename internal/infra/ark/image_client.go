package ark

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/volcengine/volcengine-go-sdk/service/arkruntime"
	"github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"
	"github.com/volcengine/volcengine-go-sdk/volcengine"

	"github.com/jinford/logo-relay/internal/core/apperror"
	"github.com/jinford/logo-relay/internal/core/logo"
	"github.com/jinford/logo-relay/internal/platform/ratelimit"
)

// minImagePixels は Seedream が受け付ける最小の総画素数（1280x720）
const minImagePixels = 1280 * 720

// ImageClient は Seedream による同期的なロゴ生成クライアント
type ImageClient struct {
	client  *arkruntime.Client
	model   string
	limiter *ratelimit.RateLimiter
}

type imageOptions struct {
	baseURL string
	model   string
	timeout time.Duration
	limiter *ratelimit.RateLimiter
}

// ImageOption は ImageClient のオプション設定
type ImageOption func(*imageOptions)

// WithImageBaseURL はベースURLを上書きする
func WithImageBaseURL(baseURL string) ImageOption {
	return func(o *imageOptions) {
		o.baseURL = baseURL
	}
}

// WithImageModel はモデルを上書きする
func WithImageModel(model string) ImageOption {
	return func(o *imageOptions) {
		if model != "" {
			o.model = model
		}
	}
}

// WithImageTimeout はタイムアウトを上書きする
func WithImageTimeout(timeout time.Duration) ImageOption {
	return func(o *imageOptions) {
		o.timeout = timeout
	}
}

// WithImageRateLimiter は生成呼び出しに適用するレート制限を設定する
func WithImageRateLimiter(limiter *ratelimit.RateLimiter) ImageOption {
	return func(o *imageOptions) {
		o.limiter = limiter
	}
}

// NewImageClient は新しい ImageClient を作成する
func NewImageClient(apiKey string, opts ...ImageOption) (*ImageClient, error) {
	options := imageOptions{
		baseURL: DefaultBaseURL,
		model:   DefaultImageModel,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&options)
	}

	client, err := newRuntimeClient(apiKey, options.baseURL, options.timeout)
	if err != nil {
		return nil, err
	}

	return &ImageClient{
		client:  client,
		model:   options.model,
		limiter: options.limiter,
	}, nil
}

// GenerateLogo は画像を1枚生成し、そのURLを返す
func (c *ImageClient) GenerateLogo(ctx context.Context, req logo.GenerationRequest) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter wait failed: %w", err)
		}
		defer c.limiter.Release()
	}

	resp, err := c.client.GenerateImages(ctx, model.GenerateImagesRequest{
		Model:          c.model,
		Prompt:         req.Prompt,
		Size:           volcengine.String(imageSize(req.Width, req.Height)),
		ResponseFormat: volcengine.String(model.GenerateImagesResponseFormatURL),
		Watermark:      volcengine.Bool(false),
	})
	if err != nil {
		return "", fmt.Errorf("%w: ark image generation failed: %w", apperror.ErrTransport, err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("%w: ark returned error: %s - %s", apperror.ErrUpstreamContract, resp.Error.Code, resp.Error.Message)
	}

	for _, image := range resp.Data {
		if image.Url != nil && *image.Url != "" {
			return *image.Url, nil
		}
	}
	return "", fmt.Errorf("%w: no image url returned", apperror.ErrUpstreamContract)
}

// imageSize は縦横比を保ったまま最小画素数を満たす "WxH" を返す
func imageSize(width, height int) string {
	if width <= 0 || height <= 0 {
		width, height = logo.DefaultWidth, logo.DefaultHeight
	}

	// 大きな値でも桁あふれしないよう float64 で比較する
	if pixels := float64(width) * float64(height); pixels < minImagePixels {
		scale := math.Sqrt(minImagePixels / pixels)
		width = int(math.Ceil(float64(width) * scale))
		height = int(math.Ceil(float64(height) * scale))
	}
	return fmt.Sprintf("%dx%d", width, height)
}

// インターフェース実装の確認
var _ logo.SyncImageAPI = (*ImageClient)(nil)
