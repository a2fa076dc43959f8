package video

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jinford/logo-relay/internal/core/apperror"
)

// DefaultInspectTimeout は動画リソースのメタデータ取得のタイムアウト
const DefaultInspectTimeout = 5 * time.Second

// VideoAPI は画像から動画を生成する外部API
type VideoAPI interface {
	// Submit は動画生成ジョブを投入する
	Submit(ctx context.Context, params SubmitParams) (*SubmitReply, error)

	// Status はジョブの状態を1回だけ問い合わせる
	Status(ctx context.Context, jobID string) (*StatusReply, error)

	// Vocabulary はこのAPIの状態語彙を返す
	Vocabulary() Vocabulary
}

// ResourceInspector は生成済みリソースのメタデータを取得する
type ResourceInspector interface {
	Inspect(ctx context.Context, url string) (*ResourceInfo, error)
}

// Service は動画変換の投入と状態確認を行う
type Service struct {
	api            VideoAPI
	inspector      ResourceInspector
	logger         *slog.Logger
	model          string
	inspectTimeout time.Duration
}

// Option は Service 構築時のオプション
type Option func(*Service)

// WithLogger はロガーを差し替える
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithInspector は完了時に動画リソースを確認する ResourceInspector を設定する
func WithInspector(inspector ResourceInspector) Option {
	return func(s *Service) {
		s.inspector = inspector
	}
}

// WithModel は投入時のモデル識別子を設定する
func WithModel(model string) Option {
	return func(s *Service) {
		s.model = model
	}
}

// NewService は新しい Service を作成する
func NewService(api VideoAPI, opts ...Option) *Service {
	s := &Service{
		api:            api,
		logger:         slog.Default(),
		inspectTimeout: DefaultInspectTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Convert は画像URLから動画生成ジョブを投入する
func (s *Service) Convert(ctx context.Context, imageURL string) (*SubmitResult, error) {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return nil, fmt.Errorf("%w: imageUrl is required", apperror.ErrInvalidInput)
	}

	params := SubmitParams{
		ImageURL: imageURL,
		Model:    s.model,
		Motion:   DefaultMotion,
		Duration: DefaultDuration,
		Flip:     false,
	}

	reply, err := s.api.Submit(ctx, params)
	if err != nil {
		s.logger.Error("動画生成ジョブの投入に失敗しました", "imageURL", imageURL, "error", err)
		return nil, asTransportError(err)
	}

	result, err := interpretSubmit(reply)
	if err != nil {
		s.logger.Error("動画生成APIのレスポンスを解釈できません", "reply", reply, "error", err)
		return nil, err
	}

	s.logger.Info("動画生成ジョブを投入しました",
		"state", result.State,
		"jobID", result.JobID,
	)
	return result, nil
}

// interpretSubmit は優先順位に従って投入レスポンスの形状を判別する
func interpretSubmit(reply *SubmitReply) (*SubmitResult, error) {
	if reply == nil {
		return nil, fmt.Errorf("%w: empty submit response", apperror.ErrUpstreamContract)
	}

	switch {
	case reply.UUID != "" && strings.Contains(strings.ToLower(reply.Status), "queue"):
		return &SubmitResult{State: StateProcessing, JobID: reply.UUID}, nil
	case reply.ID != "":
		return &SubmitResult{State: StateProcessing, JobID: reply.ID}, nil
	case reply.VideoURL != "":
		return &SubmitResult{State: StateCompleted, VideoURL: reply.VideoURL}, nil
	case reply.GifURL != "":
		return &SubmitResult{State: StateCompleted, GifURL: reply.GifURL}, nil
	default:
		return nil, fmt.Errorf("%w: submit response has neither a job id nor a result url", apperror.ErrUpstreamContract)
	}
}

// CheckStatus はジョブの状態を1回だけ問い合わせて正規化する
// ポーリング間隔の制御は呼び出し側の責務とする
func (s *Service) CheckStatus(ctx context.Context, jobID string) (*StatusResult, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, fmt.Errorf("%w: jobId is required", apperror.ErrInvalidInput)
	}

	reply, err := s.api.Status(ctx, jobID)
	if err != nil {
		s.logger.Error("動画ジョブの状態確認に失敗しました", "jobID", jobID, "error", err)
		return nil, asTransportError(err)
	}
	if reply == nil {
		return nil, fmt.Errorf("%w: empty status response", apperror.ErrUpstreamContract)
	}

	result := s.api.Vocabulary().Normalize(reply)

	switch result.State {
	case StateCompleted:
		if result.VideoURL != "" && s.inspector != nil {
			s.inspect(ctx, jobID, result.VideoURL)
		}
	case StateUnknown:
		s.logger.Warn("動画ジョブの状態が想定外です", "jobID", jobID, "upstreamStatus", reply.Status)
	}

	s.logger.Info("動画ジョブの状態を確認しました", "jobID", jobID, "state", result.State)
	return result, nil
}

// inspect は動画リソースのメタデータをログに残す。結果は判定に影響しない
func (s *Service) inspect(ctx context.Context, jobID, url string) {
	ctx, cancel := context.WithTimeout(ctx, s.inspectTimeout)
	defer cancel()

	info, err := s.inspector.Inspect(ctx, url)
	if err != nil {
		s.logger.Warn("動画リソースのメタデータ取得に失敗しました", "jobID", jobID, "url", url, "error", err)
		return
	}

	s.logger.Info("動画リソースを確認しました",
		"jobID", jobID,
		"contentType", info.ContentType,
		"size", info.Size,
	)
}

func asTransportError(err error) error {
	if errors.Is(err, apperror.ErrTransport) || errors.Is(err, apperror.ErrUpstreamContract) {
		return err
	}
	return fmt.Errorf("%w: %w", apperror.ErrTransport, err)
}
