package videoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jinford/logo-relay/internal/core/video"
	"github.com/jinford/logo-relay/internal/infra/httpjson"
)

// DefaultTimeout は1リクエストあたりのタイムアウト
const DefaultTimeout = 30 * time.Second

var (
	// ErrAPIKeyNotSet はAPIキーが設定されていない場合のエラー
	ErrAPIKeyNotSet = errors.New("video API key not set")

	// ErrBaseURLNotSet はベースURLが設定されていない場合のエラー
	ErrBaseURLNotSet = errors.New("video API base URL not set")
)

// Client は画像から動画を生成する汎用HTTP APIのクライアント
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Option は Client のオプション設定
type Option func(*Client)

// WithHTTPClient は http.Client を差し替える
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient は新しい Client を作成する
func NewClient(baseURL, apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}
	if baseURL == "" {
		return nil, ErrBaseURLNotSet
	}

	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type submitRequest struct {
	Model    string `json:"model,omitempty"`
	ImageURL string `json:"image_url"`
	Motion   int    `json:"motion"`
	Duration int    `json:"duration"`
	Flip     bool   `json:"flip"`
}

type submitResponse struct {
	Status   string     `json:"status"`
	UUID     string     `json:"uuid"`
	ID       flexString `json:"id"`
	VideoURL string     `json:"video_url"`
	GifURL   string     `json:"gif_url"`
}

type statusResponse struct {
	Status    string          `json:"status"`
	URL       string          `json:"url"`
	VideoURL  string          `json:"video_url"`
	GifURL    string          `json:"gif_url"`
	Error     flexString      `json:"error"`
	ErrorCode json.RawMessage `json:"error_code"`
}

// Submit は動画生成ジョブを投入する
func (c *Client) Submit(ctx context.Context, params video.SubmitParams) (*video.SubmitReply, error) {
	req, err := httpjson.NewRequest(ctx, http.MethodPost, c.baseURL+"/image-to-video", submitRequest{
		Model:    params.Model,
		ImageURL: params.ImageURL,
		Motion:   params.Motion,
		Duration: params.Duration,
		Flip:     params.Flip,
	})
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	var resp submitResponse
	if err := httpjson.Do(c.httpClient, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to submit video job: %w", err)
	}

	return &video.SubmitReply{
		Status:   resp.Status,
		UUID:     resp.UUID,
		ID:       string(resp.ID),
		VideoURL: resp.VideoURL,
		GifURL:   resp.GifURL,
	}, nil
}

// Status はジョブの状態を問い合わせる
func (c *Client) Status(ctx context.Context, jobID string) (*video.StatusReply, error) {
	req, err := httpjson.NewRequest(ctx, http.MethodGet, c.baseURL+"/status/"+url.PathEscape(jobID), nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	var resp statusResponse
	if err := httpjson.Do(c.httpClient, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to get video job status: %w", err)
	}

	reply := &video.StatusReply{
		Status:   resp.Status,
		URL:      resp.URL,
		VideoURL: resp.VideoURL,
		GifURL:   resp.GifURL,
		Error:    string(resp.Error),
	}
	if len(resp.ErrorCode) > 0 && !bytes.Equal(resp.ErrorCode, []byte("null")) {
		reply.ErrorCode = resp.ErrorCode
	}
	return reply, nil
}

// Vocabulary はこのAPIの状態語彙を返す
func (c *Client) Vocabulary() video.Vocabulary {
	return video.DefaultVocabulary()
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}

// flexString は文字列以外（数値やオブジェクト）もJSONテキストのまま受け取る
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}

	*f = flexString(bytes.TrimSpace(data))
	return nil
}

// インターフェース実装の確認
var _ video.VideoAPI = (*Client)(nil)
