package logo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jinford/logo-relay/internal/core/apperror"
)

const (
	// DefaultBatchSize は1リクエストあたりの生成試行回数
	DefaultBatchSize = 5
	// DefaultMaxConcurrency は同時に実行する試行数の上限
	DefaultMaxConcurrency = 5
	// DefaultPollInterval は get result のポーリング間隔
	DefaultPollInterval = 500 * time.Millisecond
	// DefaultPollMaxAttempts はポーリング回数の上限（約30秒）
	DefaultPollMaxAttempts = 60
)

var (
	// ErrAllAttemptsFailed はバッチ内の全試行が失敗した場合のエラー
	ErrAllAttemptsFailed = errors.New("all logo generation attempts failed")

	// ErrDuplicateRequestID は同一バッチ内で同じリクエストIDが返された場合のエラー
	ErrDuplicateRequestID = errors.New("duplicate logo request id")

	// ErrGenerationRejected は画像生成APIがジョブを終端の失敗状態にした場合のエラー
	ErrGenerationRejected = errors.New("logo generation rejected by upstream")
)

// ImageAPI はジョブ投入とポーリングで結果を得る画像生成API
type ImageAPI interface {
	// CreateLogo は生成ジョブを投入し、リクエストIDを返す
	CreateLogo(ctx context.Context, req GenerationRequest) (string, error)

	// GetResult はジョブの現在の状態を1回だけ取得する
	GetResult(ctx context.Context, requestID string) (*LogoResult, error)
}

// SyncImageAPI は1回の呼び出しで画像URLを返す画像生成API
type SyncImageAPI interface {
	GenerateLogo(ctx context.Context, req GenerationRequest) (string, error)
}

// attemptFunc は1回分の生成試行。claim はリクエストIDの重複を検出する
type attemptFunc func(ctx context.Context, req GenerationRequest, claim func(requestID string) bool) (string, error)

// Service はロゴのバッチ生成を行う
type Service struct {
	attempt         attemptFunc
	logger          *slog.Logger
	batchSize       int
	maxConcurrency  int
	pollInterval    time.Duration
	pollMaxAttempts int
}

// Option は Service 構築時のオプション
type Option func(*Service)

// WithLogger はロガーを差し替える
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithBatchSize は試行回数を上書きする
func WithBatchSize(n int) Option {
	return func(s *Service) {
		s.batchSize = n
	}
}

// WithMaxConcurrency は同時実行数を上書きする。1で逐次実行になる
func WithMaxConcurrency(n int) Option {
	return func(s *Service) {
		s.maxConcurrency = n
	}
}

// WithPollInterval はポーリング間隔を上書きする
func WithPollInterval(d time.Duration) Option {
	return func(s *Service) {
		s.pollInterval = d
	}
}

// WithPollMaxAttempts はポーリング回数の上限を上書きする
func WithPollMaxAttempts(n int) Option {
	return func(s *Service) {
		s.pollMaxAttempts = n
	}
}

// NewService はポーリング型の画像生成APIを使う Service を作成する
func NewService(api ImageAPI, opts ...Option) *Service {
	s := newService(opts...)
	s.attempt = func(ctx context.Context, req GenerationRequest, claim func(string) bool) (string, error) {
		requestID, err := api.CreateLogo(ctx, req)
		if err != nil {
			return "", err
		}
		if requestID == "" {
			return "", fmt.Errorf("%w: create response has no request id", apperror.ErrUpstreamContract)
		}
		if !claim(requestID) {
			return "", fmt.Errorf("%w: %s", ErrDuplicateRequestID, requestID)
		}
		return s.waitForResult(ctx, api, requestID)
	}
	return s
}

// NewSyncService は同期型の画像生成APIを使う Service を作成する
func NewSyncService(api SyncImageAPI, opts ...Option) *Service {
	s := newService(opts...)
	s.attempt = func(ctx context.Context, req GenerationRequest, _ func(string) bool) (string, error) {
		return api.GenerateLogo(ctx, req)
	}
	return s
}

func newService(opts ...Option) *Service {
	s := &Service{
		logger:          slog.Default(),
		batchSize:       DefaultBatchSize,
		maxConcurrency:  DefaultMaxConcurrency,
		pollInterval:    DefaultPollInterval,
		pollMaxAttempts: DefaultPollMaxAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.batchSize <= 0 {
		s.batchSize = DefaultBatchSize
	}
	if s.maxConcurrency <= 0 {
		s.maxConcurrency = DefaultMaxConcurrency
	}
	if s.pollInterval <= 0 {
		s.pollInterval = DefaultPollInterval
	}
	if s.pollMaxAttempts <= 0 {
		s.pollMaxAttempts = DefaultPollMaxAttempts
	}
	return s
}

// BatchSize は1バッチあたりの試行回数を返す
func (s *Service) BatchSize() int {
	return s.batchSize
}

// GenerateBatch は独立した生成試行を BatchSize 回行い、成功した画像URLを返す
// 一部の試行が失敗しても成功扱いとし、全試行が失敗した場合のみエラーを返す
func (s *Service) GenerateBatch(ctx context.Context, req GenerationRequest) (*BatchResult, error) {
	req, err := normalizeRequest(req)
	if err != nil {
		return nil, err
	}

	startTime := time.Now()
	total := s.batchSize

	// 試行順を保持するため index 単位で格納する
	urls := make([]string, total)
	errs := make([]error, total)

	var mu sync.Mutex
	seen := make(map[string]struct{}, total)
	claim := func(requestID string) bool {
		mu.Lock()
		defer mu.Unlock()
		if _, ok := seen[requestID]; ok {
			return false
		}
		seen[requestID] = struct{}{}
		return true
	}

	semaphore := make(chan struct{}, s.maxConcurrency)
	var wg sync.WaitGroup

	for i := 0; i < total; i++ {
		wg.Add(1)

		go func(index int) {
			defer wg.Done()

			select {
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()
			case <-ctx.Done():
				errs[index] = ctx.Err()
				return
			}

			attemptStart := time.Now()
			url, err := s.attempt(ctx, req, claim)
			if err != nil {
				errs[index] = err
				s.logger.Warn("ロゴ生成の試行に失敗しました",
					"attempt", index+1,
					"duration", time.Since(attemptStart),
					"error", err,
				)
				return
			}

			urls[index] = url
			s.logger.Debug("ロゴ生成の試行が完了しました",
				"attempt", index+1,
				"duration", time.Since(attemptStart),
			)
		}(i)
	}

	wg.Wait()

	result := &BatchResult{
		Logos:    make([]string, 0, total),
		Attempts: total,
		Duration: time.Since(startTime),
	}

	var lastErr error
	for i := 0; i < total; i++ {
		if errs[i] != nil {
			result.Failed++
			lastErr = errs[i]
			continue
		}
		result.Logos = append(result.Logos, urls[i])
	}

	if len(result.Logos) == 0 {
		s.logger.Error("ロゴ生成の全試行が失敗しました", "attempts", total, "error", lastErr)
		return nil, fmt.Errorf("%w: %w", ErrAllAttemptsFailed, lastErr)
	}

	s.logger.Info("ロゴのバッチ生成が完了しました",
		"succeeded", len(result.Logos),
		"failed", result.Failed,
		"duration", result.Duration,
	)

	return result, nil
}

// waitForResult は Ready になるまで一定間隔で get result を呼び出す
func (s *Service) waitForResult(ctx context.Context, api ImageAPI, requestID string) (string, error) {
	timer := time.NewTimer(s.pollInterval)
	defer timer.Stop()

	for check := 1; check <= s.pollMaxAttempts; check++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}

		res, err := api.GetResult(ctx, requestID)
		if err != nil {
			return "", err
		}

		if res.Status == StatusReady {
			if res.ImageURL == "" {
				return "", fmt.Errorf("%w: request %s is ready without an image url", apperror.ErrUpstreamContract, requestID)
			}
			return res.ImageURL, nil
		}
		if res.Status.IsFailure() {
			return "", fmt.Errorf("%w: request %s ended with status %q", ErrGenerationRejected, requestID, res.Status)
		}

		timer.Reset(s.pollInterval)
	}

	return "", fmt.Errorf("%w: logo request %s not ready after %d checks", apperror.ErrUpstreamTimeout, requestID, s.pollMaxAttempts)
}

func normalizeRequest(req GenerationRequest) (GenerationRequest, error) {
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		return req, fmt.Errorf("%w: prompt is required", apperror.ErrInvalidInput)
	}
	if req.Width == 0 {
		req.Width = DefaultWidth
	}
	if req.Height == 0 {
		req.Height = DefaultHeight
	}
	if req.Width < 0 || req.Height < 0 {
		return req, fmt.Errorf("%w: width and height must be positive", apperror.ErrInvalidInput)
	}
	if req.Width > MaxDimension || req.Height > MaxDimension {
		return req, fmt.Errorf("%w: width and height must be at most %d", apperror.ErrInvalidInput, MaxDimension)
	}
	return req, nil
}
