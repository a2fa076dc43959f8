package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/jinford/logo-relay/internal/core/logo"
	"github.com/jinford/logo-relay/internal/core/video"
)

// DefaultShutdownTimeout はグレースフルシャットダウンの待ち時間
const DefaultShutdownTimeout = 10 * time.Second

// LogoGenerator はロゴの一括生成を行う
type LogoGenerator interface {
	GenerateBatch(ctx context.Context, req logo.GenerationRequest) (*logo.BatchResult, error)
}

// VideoRelay は動画変換ジョブの投入と状態確認を行う
type VideoRelay interface {
	Convert(ctx context.Context, imageURL string) (*video.SubmitResult, error)
	CheckStatus(ctx context.Context, jobID string) (*video.StatusResult, error)
}

// Config はHTTPサーバー設定
type Config struct {
	Addr           string
	BasePath       string
	AllowedOrigins []string
}

// Server はフロントエンド向けのHTTP API サーバー
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	logger     *slog.Logger
}

// Option は Server のオプション設定
type Option func(*Server)

// WithLogger はロガーを差し替える
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer はルーティングとミドルウェアを設定した Server を作成する
func NewServer(cfg Config, logos LogoGenerator, videos VideoRelay, opts ...Option) *Server {
	s := &Server{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	useFormTagNames()

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.Use(
		requestID(),
		accessLog(s.logger),
		recovery(s.logger),
		cors.New(corsConfig(cfg.AllowedOrigins)),
	)

	h := &handler{logos: logos, videos: videos, logger: s.logger}

	engine.GET("/healthz", h.healthz)

	api := engine.Group(cfg.BasePath)
	{
		api.POST("/generate-logos/", h.generateLogos)
		api.POST("/convert-to-video/", h.convertToVideo)
		api.GET("/check-video-status/", h.checkVideoStatus)
	}

	engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid request method"})
	})
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorResponse{Error: "not found"})
	})

	s.engine = engine
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler はルーティング済みの http.Handler を返す
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run はサーバーを起動し、ctx がキャンセルされるとグレースフルシャットダウンする
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTPサーバーを起動します", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("HTTPサーバーの起動に失敗しました: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("HTTPサーバーを停止します")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTPサーバーの停止に失敗しました: %w", err)
	}
	return nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", requestIDHeader},
		ExposeHeaders:    []string{"Content-Length", requestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowOrigins = []string{"http://localhost:3000"}
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
