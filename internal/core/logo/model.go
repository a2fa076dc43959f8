package logo

import "time"

const (
	// DefaultWidth はwidth未指定時の画像幅
	DefaultWidth = 1024
	// DefaultHeight はheight未指定時の画像高さ
	DefaultHeight = 768
	// MaxDimension は width / height の上限
	MaxDimension = 4096
)

// GenerationRequest はロゴ生成リクエストを表す
type GenerationRequest struct {
	Prompt string
	Width  int
	Height int
}

// ResultStatus は画像生成APIが返すジョブ状態
type ResultStatus string

const (
	StatusReady            ResultStatus = "Ready"
	StatusPending          ResultStatus = "Pending"
	StatusError            ResultStatus = "Error"
	StatusContentModerated ResultStatus = "Content Moderated"
	StatusRequestModerated ResultStatus = "Request Moderated"
	StatusTaskNotFound     ResultStatus = "Task not found"
)

// IsFailure は待機を続けても Ready にならない状態かを判定する
func (s ResultStatus) IsFailure() bool {
	switch s {
	case StatusError, StatusContentModerated, StatusRequestModerated, StatusTaskNotFound:
		return true
	default:
		return false
	}
}

// LogoResult は get result エンドポイントの1回分の応答
type LogoResult struct {
	RequestID string
	Status    ResultStatus
	ImageURL  string
}

// BatchResult はバッチ生成の結果
type BatchResult struct {
	// Logos は成功した画像URL（試行順）
	Logos    []string
	Attempts int
	Failed   int
	Duration time.Duration
}
