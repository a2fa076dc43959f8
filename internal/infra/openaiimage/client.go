package openaiimage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/jinford/logo-relay/internal/core/apperror"
	"github.com/jinford/logo-relay/internal/core/logo"
	"github.com/jinford/logo-relay/internal/platform/ratelimit"
)

const (
	// DefaultModel はデフォルトで使用する画像生成モデル
	DefaultModel = "dall-e-3"

	// DefaultTimeout はAPI呼び出しのデフォルトタイムアウト
	DefaultTimeout = 60 * time.Second
)

// ErrAPIKeyNotSet はAPIキーが設定されていない場合のエラー
var ErrAPIKeyNotSet = errors.New("OpenAI API key not set")

// Client は OpenAI Images API を使用したロゴ生成クライアント
// 1回の呼び出しで画像URLが返るため logo.SyncImageAPI として扱う
type Client struct {
	client  openai.Client
	model   string
	timeout time.Duration
	limiter *ratelimit.RateLimiter
}

type clientOptions struct {
	model      string
	timeout    time.Duration
	limiter    *ratelimit.RateLimiter
	requestOps []option.RequestOption
}

// ClientOption は Client のオプション設定
type ClientOption func(*clientOptions)

// WithModel はモデル名を上書きする
func WithModel(model string) ClientOption {
	return func(o *clientOptions) {
		if model != "" {
			o.model = model
		}
	}
}

// WithTimeout はAPIコールのタイムアウトを上書きする
func WithTimeout(timeout time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.timeout = timeout
	}
}

// WithRateLimiter は生成呼び出しに適用するレート制限を設定する
func WithRateLimiter(limiter *ratelimit.RateLimiter) ClientOption {
	return func(o *clientOptions) {
		o.limiter = limiter
	}
}

// WithRequestOptions は SDK のリクエストオプションを追加する（ベースURLの差し替え等）
func WithRequestOptions(opts ...option.RequestOption) ClientOption {
	return func(o *clientOptions) {
		o.requestOps = append(o.requestOps, opts...)
	}
}

// NewClient は新しい Client を作成する
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	options := clientOptions{
		model:   DefaultModel,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&options)
	}

	// リトライはバッチ側の試行回数で賄うため SDK の自動リトライは無効にする
	requestOps := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, options.requestOps...)

	return &Client{
		client:  openai.NewClient(requestOps...),
		model:   options.model,
		timeout: options.timeout,
		limiter: options.limiter,
	}, nil
}

// ModelName はモデル名を返す
func (c *Client) ModelName() string {
	return c.model
}

// GenerateLogo は画像を1枚生成し、そのURLを返す
func (c *Client) GenerateLogo(ctx context.Context, req logo.GenerationRequest) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter wait failed: %w", err)
		}
		defer c.limiter.Release()
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := openai.ImageGenerateParams{
		Prompt: req.Prompt,
		Model:  openai.ImageModel(c.model),
		N:      openai.Int(1),
		Size:   imageSize(c.model, req.Width, req.Height),
	}
	if isDallE(c.model) {
		params.ResponseFormat = openai.ImageGenerateParamsResponseFormatURL
	}

	resp, err := c.client.Images.Generate(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: OpenAI image generation failed: %w", apperror.ErrTransport, err)
	}

	if len(resp.Data) == 0 {
		return "", fmt.Errorf("%w: no images returned", apperror.ErrUpstreamContract)
	}

	image := resp.Data[0]
	switch {
	case image.URL != "":
		return image.URL, nil
	case image.B64JSON != "":
		// gpt-image 系はURLを返さないため data URL として渡す
		return "data:image/png;base64," + image.B64JSON, nil
	default:
		return "", fmt.Errorf("%w: image has neither url nor b64_json", apperror.ErrUpstreamContract)
	}
}

func isDallE(model string) bool {
	return strings.HasPrefix(model, "dall-e")
}

// imageSize は要求サイズの縦横比に最も近い、モデルが対応するサイズを返す
func imageSize(model string, width, height int) openai.ImageGenerateParamsSize {
	if model == "dall-e-2" {
		switch longest := max(width, height); {
		case longest <= 256:
			return openai.ImageGenerateParamsSize256x256
		case longest <= 512:
			return openai.ImageGenerateParamsSize512x512
		default:
			return openai.ImageGenerateParamsSize1024x1024
		}
	}

	landscape, portrait := false, false
	if width > 0 && height > 0 {
		ratio := float64(width) / float64(height)
		landscape = ratio > 1.2
		portrait = ratio < 1/1.2
	}

	switch {
	case landscape && model == "dall-e-3":
		return openai.ImageGenerateParamsSize1792x1024
	case portrait && model == "dall-e-3":
		return openai.ImageGenerateParamsSize1024x1792
	case landscape:
		return openai.ImageGenerateParamsSize1536x1024
	case portrait:
		return openai.ImageGenerateParamsSize1024x1536
	default:
		return openai.ImageGenerateParamsSize1024x1024
	}
}

// インターフェース実装の確認
var _ logo.SyncImageAPI = (*Client)(nil)
