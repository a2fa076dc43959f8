package video

import (
	"encoding/json"
	"fmt"
	"strings"
)

// State は正規化された動画ジョブの状態
type State string

const (
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
	StateUnknown    State = "unknown"
)

const (
	// DefaultMotion は動きの強さ
	DefaultMotion = 5
	// DefaultDuration は動画の長さ（秒）
	DefaultDuration = 5
)

// SubmitParams は動画生成APIへの投入パラメータ
type SubmitParams struct {
	ImageURL string
	Model    string
	Motion   int
	Duration int
	// Flip は終了フレームを反転させるか
	Flip bool
}

// SubmitReply は投入時の外部APIレスポンス。フィールドの有無は一定しない
type SubmitReply struct {
	Status   string
	UUID     string
	ID       string
	VideoURL string
	GifURL   string
}

// StatusReply は状態問い合わせの外部APIレスポンス
type StatusReply struct {
	Status   string
	URL      string
	VideoURL string
	GifURL   string
	Error    string
	// ErrorCode は外部APIの値をそのまま保持する（数値・文字列のどちらもありうる）
	ErrorCode json.RawMessage
}

// SubmitResult は投入結果
type SubmitResult struct {
	State    State
	JobID    string
	VideoURL string
	GifURL   string
}

// StatusResult は状態問い合わせの結果
type StatusResult struct {
	State     State
	VideoURL  string
	GifURL    string
	Error     string
	ErrorCode json.RawMessage

	// Message と UpstreamStatus は StateUnknown のときだけ設定される
	Message        string
	UpstreamStatus string
}

// ResourceInfo は生成済み動画リソースのメタデータ
type ResourceInfo struct {
	ContentType string
	Size        int64
}

// Vocabulary は外部APIの状態語彙と正規化後の状態の対応表
// Completed / Failed は完全一致、Processing は部分一致で判定する（大文字小文字は区別しない）
type Vocabulary struct {
	Completed  []string
	Processing []string
	Failed     []string
}

// DefaultVocabulary は汎用動画生成APIの状態語彙
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Completed:  []string{"success"},
		Processing: []string{"in queue", "submitted"},
		Failed:     []string{"failed"},
	}
}

// Classify は外部APIの状態文字列を正規化する
func (v Vocabulary) Classify(status string) State {
	s := strings.ToLower(strings.TrimSpace(status))
	if s == "" {
		return StateUnknown
	}

	for _, c := range v.Completed {
		if s == strings.ToLower(c) {
			return StateCompleted
		}
	}
	for _, f := range v.Failed {
		if s == strings.ToLower(f) {
			return StateFailed
		}
	}
	for _, p := range v.Processing {
		if strings.Contains(s, strings.ToLower(p)) {
			return StateProcessing
		}
	}
	return StateUnknown
}

// Normalize は状態レスポンスを StatusResult に変換する
func (v Vocabulary) Normalize(reply *StatusReply) *StatusResult {
	state := v.Classify(reply.Status)

	switch state {
	case StateCompleted:
		videoURL := reply.URL
		if videoURL == "" {
			videoURL = reply.VideoURL
		}
		return &StatusResult{State: StateCompleted, VideoURL: videoURL, GifURL: reply.GifURL}

	case StateProcessing:
		return &StatusResult{State: StateProcessing}

	case StateFailed:
		msg := reply.Error
		if msg == "" {
			msg = "video generation failed"
		}
		return &StatusResult{State: StateFailed, Error: msg, ErrorCode: reply.ErrorCode}

	default:
		return &StatusResult{
			State:          StateUnknown,
			Message:        fmt.Sprintf("unrecognized upstream status %q", reply.Status),
			UpstreamStatus: reply.Status,
		}
	}
}
