package ark

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/volcengine/volcengine-go-sdk/service/arkruntime"
	"github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"
	"github.com/volcengine/volcengine-go-sdk/volcengine"

	"github.com/jinford/logo-relay/internal/core/apperror"
	"github.com/jinford/logo-relay/internal/core/video"
)

// 投入時のプロンプト。Seedance は画像のみだと動きが乏しいため固定文を添える
const videoPrompt = "Animate this logo with smooth, subtle motion"

// VideoClient は Seedance のコンテンツ生成タスクによる画像→動画クライアント
type VideoClient struct {
	client *arkruntime.Client
	model  string
}

type videoOptions struct {
	baseURL string
	model   string
	timeout time.Duration
}

// VideoOption は VideoClient のオプション設定
type VideoOption func(*videoOptions)

// WithVideoBaseURL はベースURLを上書きする
func WithVideoBaseURL(baseURL string) VideoOption {
	return func(o *videoOptions) {
		o.baseURL = baseURL
	}
}

// WithVideoModel はモデルを上書きする
func WithVideoModel(model string) VideoOption {
	return func(o *videoOptions) {
		if model != "" {
			o.model = model
		}
	}
}

// WithVideoTimeout はタイムアウトを上書きする
func WithVideoTimeout(timeout time.Duration) VideoOption {
	return func(o *videoOptions) {
		o.timeout = timeout
	}
}

// NewVideoClient は新しい VideoClient を作成する
func NewVideoClient(apiKey string, opts ...VideoOption) (*VideoClient, error) {
	options := videoOptions{
		baseURL: DefaultBaseURL,
		model:   DefaultVideoModel,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&options)
	}

	client, err := newRuntimeClient(apiKey, options.baseURL, options.timeout)
	if err != nil {
		return nil, err
	}

	return &VideoClient{client: client, model: options.model}, nil
}

// Submit はコンテンツ生成タスクを作成する。結果は常にタスクIDとして返る
func (c *VideoClient) Submit(ctx context.Context, params video.SubmitParams) (*video.SubmitReply, error) {
	modelName := params.Model
	if modelName == "" {
		modelName = c.model
	}

	resp, err := c.client.CreateContentGenerationTask(ctx, model.CreateContentGenerationTaskRequest{
		Model: modelName,
		Content: []*model.CreateContentGenerationContentItem{
			{
				Type: model.ContentGenerationContentItemTypeText,
				Text: volcengine.String(taskText(params)),
			},
			{
				Type: model.ContentGenerationContentItemTypeImage,
				ImageURL: &model.ImageURL{
					URL: params.ImageURL,
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create content generation task failed: %w", apperror.ErrTransport, err)
	}

	return &video.SubmitReply{ID: resp.ID}, nil
}

// Status はタスクの状態を1回取得する
func (c *VideoClient) Status(ctx context.Context, jobID string) (*video.StatusReply, error) {
	resp, err := c.client.GetContentGenerationTask(ctx, model.GetContentGenerationTaskRequest{ID: jobID})
	if err != nil {
		return nil, fmt.Errorf("%w: get content generation task failed: %w", apperror.ErrTransport, err)
	}

	return statusReply(resp.Status, resp.Content.VideoURL, resp.Error), nil
}

// Vocabulary は Seedance タスクの状態語彙を返す
func (c *VideoClient) Vocabulary() video.Vocabulary {
	return Vocabulary()
}

// Vocabulary は Seedance タスクの状態語彙
func Vocabulary() video.Vocabulary {
	return video.Vocabulary{
		Completed:  []string{"succeeded"},
		Processing: []string{"queued", "running"},
		Failed:     []string{"failed", "cancelled"},
	}
}

func statusReply(status, videoURL string, taskErr *model.ContentGenerationError) *video.StatusReply {
	reply := &video.StatusReply{Status: status}
	if status == "succeeded" {
		reply.VideoURL = videoURL
	}
	if taskErr != nil {
		reply.Error = taskErr.Message
		if taskErr.Code != "" {
			// 文字列コードは JSON 文字列としてそのまま返す
			if code, err := json.Marshal(taskErr.Code); err == nil {
				reply.ErrorCode = code
			}
		}
	}
	return reply
}

// taskText はテキスト項目に載せるプロンプトと生成パラメータ
// Seedance には motion / flip に相当するパラメータがないため duration のみ渡す
func taskText(params video.SubmitParams) string {
	duration := params.Duration
	if duration <= 0 {
		duration = video.DefaultDuration
	}
	return fmt.Sprintf("%s --duration %d --watermark false", videoPrompt, duration)
}

// インターフェース実装の確認
var _ video.VideoAPI = (*VideoClient)(nil)
