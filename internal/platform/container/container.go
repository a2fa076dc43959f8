package container

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/openai/openai-go/v3/option"

	"github.com/jinford/logo-relay/internal/core/logo"
	"github.com/jinford/logo-relay/internal/core/video"
	"github.com/jinford/logo-relay/internal/infra/ark"
	"github.com/jinford/logo-relay/internal/infra/bfl"
	"github.com/jinford/logo-relay/internal/infra/openaiimage"
	"github.com/jinford/logo-relay/internal/infra/videoapi"
	"github.com/jinford/logo-relay/internal/infra/webresource"
	"github.com/jinford/logo-relay/internal/platform/config"
	"github.com/jinford/logo-relay/internal/platform/ratelimit"
)

// ServiceContainer はアプリケーションのサービス群と依存関係を保持する。
type ServiceContainer struct {
	LogoService  *logo.Service
	VideoService *video.Service

	logger *slog.Logger
}

// NewContainer は設定とロガーからコンテナを生成する。
// 選択されたプロバイダのクライアントだけを初期化する。
func NewContainer(logger *slog.Logger, cfg *config.Config) (*ServiceContainer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.UpstreamTimeout}

	logoService, err := newLogoService(logger, cfg, httpClient)
	if err != nil {
		return nil, fmt.Errorf("ロゴ生成サービスの初期化に失敗しました: %w", err)
	}

	videoService, err := newVideoService(logger, cfg, httpClient)
	if err != nil {
		return nil, fmt.Errorf("動画変換サービスの初期化に失敗しました: %w", err)
	}

	return &ServiceContainer{
		LogoService:  logoService,
		VideoService: videoService,
		logger:       logger,
	}, nil
}

// Logger はロガーを返す。
func (c *ServiceContainer) Logger() *slog.Logger {
	if c == nil || c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

func newLogoService(logger *slog.Logger, cfg *config.Config, httpClient *http.Client) (*logo.Service, error) {
	limiter := ratelimit.NewRateLimiter(cfg.Image.CreateRPM, cfg.Logo.MaxConcurrency)
	opts := []logo.Option{
		logo.WithLogger(logger.With("component", "logo", "provider", cfg.Image.Provider)),
		logo.WithBatchSize(cfg.Logo.BatchSize),
		logo.WithMaxConcurrency(cfg.Logo.MaxConcurrency),
		logo.WithPollInterval(cfg.Logo.PollInterval),
		logo.WithPollMaxAttempts(cfg.Logo.PollMaxAttempts),
	}

	switch cfg.Image.Provider {
	case config.ImageProviderOpenAI:
		client, err := openaiimage.NewClient(cfg.OpenAI.APIKey,
			openaiimage.WithModel(cfg.OpenAI.ImageModel),
			openaiimage.WithTimeout(cfg.UpstreamTimeout),
			openaiimage.WithRateLimiter(limiter),
			openaiimage.WithRequestOptions(option.WithHTTPClient(httpClient)),
		)
		if err != nil {
			return nil, err
		}
		return logo.NewSyncService(client, opts...), nil

	case config.ImageProviderArk:
		client, err := ark.NewImageClient(cfg.Ark.APIKey,
			ark.WithImageBaseURL(cfg.Ark.BaseURL),
			ark.WithImageModel(cfg.Ark.ImageModel),
			ark.WithImageTimeout(cfg.UpstreamTimeout),
			ark.WithImageRateLimiter(limiter),
		)
		if err != nil {
			return nil, err
		}
		return logo.NewSyncService(client, opts...), nil

	default:
		client, err := bfl.NewClient(cfg.BFL.APIKey,
			bfl.WithBaseURL(cfg.BFL.BaseURL),
			bfl.WithModel(cfg.BFL.Model),
			bfl.WithHTTPClient(httpClient),
			bfl.WithRateLimiter(limiter),
		)
		if err != nil {
			return nil, err
		}
		return logo.NewService(client, opts...), nil
	}
}

func newVideoService(logger *slog.Logger, cfg *config.Config, httpClient *http.Client) (*video.Service, error) {
	opts := []video.Option{
		video.WithLogger(logger.With("component", "video", "provider", cfg.Video.Provider)),
		video.WithInspector(webresource.NewInspector(nil)),
	}

	switch cfg.Video.Provider {
	case config.VideoProviderArk:
		client, err := ark.NewVideoClient(cfg.Ark.APIKey,
			ark.WithVideoBaseURL(cfg.Ark.BaseURL),
			ark.WithVideoModel(cfg.Ark.VideoModel),
			ark.WithVideoTimeout(cfg.UpstreamTimeout),
		)
		if err != nil {
			return nil, err
		}
		return video.NewService(client, append(opts, video.WithModel(cfg.Ark.VideoModel))...), nil

	default:
		client, err := videoapi.NewClient(cfg.Video.BaseURL, cfg.Video.APIKey,
			videoapi.WithHTTPClient(httpClient),
		)
		if err != nil {
			return nil, err
		}
		return video.NewService(client, append(opts, video.WithModel(cfg.Video.Model))...), nil
	}
}
