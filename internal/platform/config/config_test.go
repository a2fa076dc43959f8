package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"HTTP_ADDR", "HTTP_BASE_PATH", "CORS_ALLOWED_ORIGINS", "LOG_LEVEL", "LOG_FORMAT",
	"IMAGE_PROVIDER", "IMAGE_CREATE_RPM", "BFL_API_KEY", "BFL_BASE_URL", "BFL_MODEL",
	"OPENAI_API_KEY", "OPENAI_IMAGE_MODEL",
	"ARK_API_KEY", "ARK_BASE_URL", "ARK_IMAGE_MODEL", "ARK_VIDEO_MODEL",
	"VIDEO_PROVIDER", "VIDEO_API_KEY", "VIDEO_API_BASE_URL", "VIDEO_MODEL",
	"LOGO_BATCH_SIZE", "LOGO_MAX_CONCURRENCY", "LOGO_POLL_INTERVAL", "LOGO_POLL_MAX_ATTEMPTS",
	"UPSTREAM_TIMEOUT",
}

// clearEnv は設定キーを未設定にする。t.Setenv で登録した復元処理によりテスト終了時に元へ戻る
// godotenv は既存の環境変数を上書きしないため、空文字ではなく Unsetenv する
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.HTTP.Addr)
	assert.Equal(t, "", cfg.HTTP.BasePath)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, ImageProviderBFL, cfg.Image.Provider)
	assert.Equal(t, 60, cfg.Image.CreateRPM)
	assert.Equal(t, "flux-pro-1.1", cfg.BFL.Model)
	assert.Equal(t, "dall-e-3", cfg.OpenAI.ImageModel)
	assert.Equal(t, VideoProviderHTTP, cfg.Video.Provider)
	assert.Equal(t, 5, cfg.Logo.BatchSize)
	assert.Equal(t, 5, cfg.Logo.MaxConcurrency)
	assert.Equal(t, 500*time.Millisecond, cfg.Logo.PollInterval)
	assert.Equal(t, 60, cfg.Logo.PollMaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.UpstreamTimeout)
}

func TestLoad_FromEnvFile(t *testing.T) {
	clearEnv(t)

	envFile := filepath.Join(t.TempDir(), ".env")
	content := "HTTP_BASE_PATH=/api/\n" +
		"CORS_ALLOWED_ORIGINS=http://a.example, http://b.example ,\n" +
		"IMAGE_PROVIDER=OpenAI\n" +
		"LOGO_POLL_INTERVAL=1s\n" +
		"LOGO_BATCH_SIZE=3\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, "/api", cfg.HTTP.BasePath)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, ImageProviderOpenAI, cfg.Image.Provider)
	assert.Equal(t, time.Second, cfg.Logo.PollInterval)
	assert.Equal(t, 3, cfg.Logo.BatchSize)
}

func TestLoad_InvalidNumbersFallBackToDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOGO_BATCH_SIZE", "five")
	t.Setenv("UPSTREAM_TIMEOUT", "soon")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Logo.BatchSize)
	assert.Equal(t, 30*time.Second, cfg.UpstreamTimeout)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Image: ImageConfig{Provider: ImageProviderBFL},
			BFL:   BFLConfig{APIKey: "bfl"},
			Video: VideoConfig{Provider: VideoProviderHTTP, APIKey: "video", BaseURL: "https://video.example"},
			Logo:  LogoConfig{BatchSize: 5, PollMaxAttempts: 60},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing bfl key", mutate: func(c *Config) { c.BFL.APIKey = "" }, wantErr: "BFL_API_KEY"},
		{name: "openai without key", mutate: func(c *Config) { c.Image.Provider = ImageProviderOpenAI }, wantErr: "OPENAI_API_KEY"},
		{name: "unsupported image provider", mutate: func(c *Config) { c.Image.Provider = "midjourney" }, wantErr: "IMAGE_PROVIDER"},
		{name: "missing video base url", mutate: func(c *Config) { c.Video.BaseURL = "" }, wantErr: "VIDEO_API_BASE_URL"},
		{name: "ark video without key", mutate: func(c *Config) { c.Video.Provider = VideoProviderArk }, wantErr: "ARK_API_KEY"},
		{name: "ark both with key", mutate: func(c *Config) {
			c.Image.Provider = ImageProviderArk
			c.Video.Provider = VideoProviderArk
			c.Ark.APIKey = "ark"
		}},
		{name: "zero batch size", mutate: func(c *Config) { c.Logo.BatchSize = 0 }, wantErr: "LOGO_BATCH_SIZE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNormalizeBasePath(t *testing.T) {
	assert.Equal(t, "", normalizeBasePath(""))
	assert.Equal(t, "", normalizeBasePath("/"))
	assert.Equal(t, "/api", normalizeBasePath("api"))
	assert.Equal(t, "/api", normalizeBasePath("/api/"))
	assert.Equal(t, "/v1/api", normalizeBasePath(" /v1/api "))
}
