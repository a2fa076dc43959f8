package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// 画像生成プロバイダ
const (
	ImageProviderBFL    = "bfl"
	ImageProviderOpenAI = "openai"
	ImageProviderArk    = "ark"
)

// 動画生成プロバイダ
const (
	VideoProviderHTTP = "http"
	VideoProviderArk  = "ark"
)

// ErrInvalidConfig は設定値が不正な場合のエラー
var ErrInvalidConfig = errors.New("invalid config")

// Config はアプリケーション全体の設定を保持します
type Config struct {
	HTTP HTTPConfig
	Log  LogConfig

	// 画像生成API
	Image  ImageConfig
	BFL    BFLConfig
	OpenAI OpenAIConfig
	Ark    ArkConfig

	// 動画生成API
	Video VideoConfig

	// ロゴ一括生成
	Logo LogoConfig

	// UpstreamTimeout は外部API呼び出し1回あたりのタイムアウト
	UpstreamTimeout time.Duration
}

// HTTPConfig はHTTPサーバー設定
type HTTPConfig struct {
	Addr           string
	BasePath       string // フロントエンドからは "/api" で呼ばれる
	AllowedOrigins []string
}

// LogConfig はログ設定
type LogConfig struct {
	Level  string
	Format string // "json" or "text"
}

// ImageConfig は画像生成プロバイダの選択とレート制限
type ImageConfig struct {
	Provider  string
	CreateRPM int
}

// BFLConfig は Black Forest Labs API 設定
type BFLConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// OpenAIConfig は OpenAI Images API 設定
type OpenAIConfig struct {
	APIKey     string
	ImageModel string
}

// ArkConfig は Volcengine Ark 設定（画像・動画で共用）
type ArkConfig struct {
	APIKey     string
	BaseURL    string
	ImageModel string
	VideoModel string
}

// VideoConfig は汎用動画生成API設定
type VideoConfig struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
}

// LogoConfig はロゴ一括生成の設定
type LogoConfig struct {
	BatchSize       int
	MaxConcurrency  int
	PollInterval    time.Duration
	PollMaxAttempts int
}

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		HTTP: HTTPConfig{
			Addr:           getEnv("HTTP_ADDR", ":8000"),
			BasePath:       normalizeBasePath(getEnv("HTTP_BASE_PATH", "")),
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Image: ImageConfig{
			Provider:  strings.ToLower(getEnv("IMAGE_PROVIDER", ImageProviderBFL)),
			CreateRPM: getEnvAsInt("IMAGE_CREATE_RPM", 60),
		},
		BFL: BFLConfig{
			APIKey:  getEnv("BFL_API_KEY", ""),
			BaseURL: getEnv("BFL_BASE_URL", "https://api.bfl.ml"),
			Model:   getEnv("BFL_MODEL", "flux-pro-1.1"),
		},
		OpenAI: OpenAIConfig{
			APIKey:     getEnv("OPENAI_API_KEY", ""),
			ImageModel: getEnv("OPENAI_IMAGE_MODEL", "dall-e-3"),
		},
		Ark: ArkConfig{
			APIKey:     getEnv("ARK_API_KEY", ""),
			BaseURL:    getEnv("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
			ImageModel: getEnv("ARK_IMAGE_MODEL", "doubao-seedream-4-0-250828"),
			VideoModel: getEnv("ARK_VIDEO_MODEL", "doubao-seedance-1-0-pro-250528"),
		},
		Video: VideoConfig{
			Provider: strings.ToLower(getEnv("VIDEO_PROVIDER", VideoProviderHTTP)),
			APIKey:   getEnv("VIDEO_API_KEY", ""),
			BaseURL:  getEnv("VIDEO_API_BASE_URL", ""),
			Model:    getEnv("VIDEO_MODEL", "gen-2"),
		},
		Logo: LogoConfig{
			BatchSize:       getEnvAsInt("LOGO_BATCH_SIZE", 5),
			MaxConcurrency:  getEnvAsInt("LOGO_MAX_CONCURRENCY", 5),
			PollInterval:    getEnvAsDuration("LOGO_POLL_INTERVAL", 500*time.Millisecond),
			PollMaxAttempts: getEnvAsInt("LOGO_POLL_MAX_ATTEMPTS", 60),
		},
		UpstreamTimeout: getEnvAsDuration("UPSTREAM_TIMEOUT", 30*time.Second),
	}

	return cfg, nil
}

// Validate は選択されたプロバイダに必要な認証情報が揃っているか確認します
func (c *Config) Validate() error {
	var errs []error

	switch c.Image.Provider {
	case ImageProviderBFL:
		if c.BFL.APIKey == "" {
			errs = append(errs, errors.New("BFL_API_KEY is required when IMAGE_PROVIDER=bfl"))
		}
	case ImageProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required when IMAGE_PROVIDER=openai"))
		}
	case ImageProviderArk:
		if c.Ark.APIKey == "" {
			errs = append(errs, errors.New("ARK_API_KEY is required when IMAGE_PROVIDER=ark"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported IMAGE_PROVIDER %q", c.Image.Provider))
	}

	switch c.Video.Provider {
	case VideoProviderHTTP:
		if c.Video.APIKey == "" {
			errs = append(errs, errors.New("VIDEO_API_KEY is required when VIDEO_PROVIDER=http"))
		}
		if c.Video.BaseURL == "" {
			errs = append(errs, errors.New("VIDEO_API_BASE_URL is required when VIDEO_PROVIDER=http"))
		}
	case VideoProviderArk:
		if c.Ark.APIKey == "" {
			errs = append(errs, errors.New("ARK_API_KEY is required when VIDEO_PROVIDER=ark"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported VIDEO_PROVIDER %q", c.Video.Provider))
	}

	if c.Logo.BatchSize <= 0 {
		errs = append(errs, errors.New("LOGO_BATCH_SIZE must be positive"))
	}
	if c.Logo.PollMaxAttempts <= 0 {
		errs = append(errs, errors.New("LOGO_POLL_MAX_ATTEMPTS must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// normalizeBasePath は "/api/" や "api" を "/api" に揃える。空ならルート直下
func normalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	return "/" + p
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration は環境変数を time.Duration として取得します（例: "500ms", "30s"）
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList はカンマ区切りの環境変数をスライスとして取得します
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var values []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}
