package ark

import (
	"errors"
	"time"

	"github.com/volcengine/volcengine-go-sdk/service/arkruntime"
)

const (
	// DefaultBaseURL は Ark ランタイムAPIのベースURL
	DefaultBaseURL = "https://ark.cn-beijing.volces.com/api/v3"
	// DefaultImageModel は Seedream の画像生成モデル
	DefaultImageModel = "doubao-seedream-4-0-250828"
	// DefaultVideoModel は Seedance の画像→動画モデル
	DefaultVideoModel = "doubao-seedance-1-0-pro-250528"
	// DefaultTimeout はAPI呼び出しのタイムアウト
	DefaultTimeout = 60 * time.Second
)

// ErrAPIKeyNotSet はAPIキーが設定されていない場合のエラー
var ErrAPIKeyNotSet = errors.New("ARK API key not set")

func newRuntimeClient(apiKey, baseURL string, timeout time.Duration) (*arkruntime.Client, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return arkruntime.NewClientWithApiKey(
		apiKey,
		arkruntime.WithBaseUrl(baseURL),
		arkruntime.WithTimeout(timeout),
		arkruntime.WithRetryTimes(0),
	), nil
}
