package webresource

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jinford/logo-relay/internal/core/video"
)

// DefaultTimeout はHEADリクエストのタイムアウト
const DefaultTimeout = 5 * time.Second

// Inspector はHEADリクエストでリソースのメタデータを取得する
type Inspector struct {
	httpClient *http.Client
}

// NewInspector は新しい Inspector を作成する。httpClient が nil の場合はデフォルトを使う
func NewInspector(httpClient *http.Client) *Inspector {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Inspector{httpClient: httpClient}
}

// Inspect はリソースの Content-Type とサイズを返す
func (i *Inspector) Inspect(ctx context.Context, url string) (*video.ResourceInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("inspect %s returned status %d", url, resp.StatusCode)
	}

	return &video.ResourceInfo{
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
	}, nil
}

var _ video.ResourceInspector = (*Inspector)(nil)
