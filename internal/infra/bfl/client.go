package bfl

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jinford/logo-relay/internal/core/logo"
	"github.com/jinford/logo-relay/internal/infra/httpjson"
	"github.com/jinford/logo-relay/internal/platform/ratelimit"
)

const (
	// DefaultBaseURL は Black Forest Labs API のベースURL
	DefaultBaseURL = "https://api.bfl.ml"
	// DefaultModel は生成に使うモデルのエンドポイント名
	DefaultModel = "flux-pro-1.1"
	// DefaultTimeout は1リクエストあたりのタイムアウト
	DefaultTimeout = 30 * time.Second
)

// ErrAPIKeyNotSet はAPIキーが設定されていない場合のエラー
var ErrAPIKeyNotSet = errors.New("BFL API key not set")

// Client は Black Forest Labs の画像生成API クライアント
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	limiter    *ratelimit.RateLimiter
}

// Option は Client のオプション設定
type Option func(*Client)

// WithBaseURL はベースURLを上書きする
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithModel はモデルを上書きする
func WithModel(model string) Option {
	return func(c *Client) {
		c.model = model
	}
}

// WithHTTPClient は http.Client を差し替える
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithRateLimiter はジョブ投入に適用するレート制限を設定する
func WithRateLimiter(limiter *ratelimit.RateLimiter) Option {
	return func(c *Client) {
		c.limiter = limiter
	}
}

// NewClient は新しい Client を作成する
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		model:      DefaultModel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type createRequest struct {
	Prompt string `json:"prompt"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type createResponse struct {
	ID string `json:"id"`
}

type resultResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Result *struct {
		Sample string `json:"sample"`
	} `json:"result"`
}

// CreateLogo は生成ジョブを投入し、リクエストIDを返す
func (c *Client) CreateLogo(ctx context.Context, req logo.GenerationRequest) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter wait failed: %w", err)
		}
		defer c.limiter.Release()
	}

	httpReq, err := httpjson.NewRequest(ctx, http.MethodPost, c.baseURL+"/v1/"+c.model, createRequest{
		Prompt: req.Prompt,
		Width:  req.Width,
		Height: req.Height,
	})
	if err != nil {
		return "", err
	}
	c.authorize(httpReq)

	var resp createResponse
	if err := httpjson.Do(c.httpClient, httpReq, &resp); err != nil {
		return "", fmt.Errorf("failed to create logo request: %w", err)
	}
	return resp.ID, nil
}

// GetResult はジョブの状態を1回取得する
func (c *Client) GetResult(ctx context.Context, requestID string) (*logo.LogoResult, error) {
	endpoint := c.baseURL + "/v1/get_result?" + url.Values{"id": {requestID}}.Encode()

	httpReq, err := httpjson.NewRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(httpReq)

	var resp resultResponse
	if err := httpjson.Do(c.httpClient, httpReq, &resp); err != nil {
		return nil, fmt.Errorf("failed to get logo result: %w", err)
	}

	result := &logo.LogoResult{
		RequestID: requestID,
		Status:    logo.ResultStatus(resp.Status),
	}
	if resp.Result != nil {
		result.ImageURL = resp.Result.Sample
	}
	return result, nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("x-key", c.apiKey)
}

// インターフェース実装の確認
var _ logo.ImageAPI = (*Client)(nil)
