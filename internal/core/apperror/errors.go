package apperror

import "errors"

var (
	// ErrInvalidInput は必須フィールドの欠落など、リクエスト側の誤りを表すエラー
	ErrInvalidInput = errors.New("invalid input")

	// ErrUpstreamTimeout はポーリング上限までに結果が得られなかった場合のエラー
	ErrUpstreamTimeout = errors.New("upstream timed out")

	// ErrUpstreamContract は外部APIのレスポンス形式が想定外の場合のエラー
	ErrUpstreamContract = errors.New("unrecognized upstream response")

	// ErrTransport は外部APIとの通信やレスポンス解析に失敗した場合のエラー
	ErrTransport = errors.New("upstream request failed")
)

// IsClientError はエラーが呼び出し側の誤りに起因するかを判定する
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
