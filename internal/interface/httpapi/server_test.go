package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/logo-relay/internal/core/apperror"
	"github.com/jinford/logo-relay/internal/core/logo"
	"github.com/jinford/logo-relay/internal/core/video"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// stubLogoGenerator は LogoGenerator のテスト用実装
type stubLogoGenerator struct {
	calls   int
	lastReq logo.GenerationRequest
	result  *logo.BatchResult
	err     error
}

func (s *stubLogoGenerator) GenerateBatch(ctx context.Context, req logo.GenerationRequest) (*logo.BatchResult, error) {
	s.calls++
	s.lastReq = req
	return s.result, s.err
}

// stubVideoAPI は video.VideoAPI のテスト用実装
type stubVideoAPI struct {
	submitCalls int
	statusCalls int
	submitReply *video.SubmitReply
	statusReply *video.StatusReply
	err         error
}

func (s *stubVideoAPI) Submit(ctx context.Context, params video.SubmitParams) (*video.SubmitReply, error) {
	s.submitCalls++
	return s.submitReply, s.err
}

func (s *stubVideoAPI) Status(ctx context.Context, jobID string) (*video.StatusReply, error) {
	s.statusCalls++
	return s.statusReply, s.err
}

func (s *stubVideoAPI) Vocabulary() video.Vocabulary {
	return video.DefaultVocabulary()
}

func newTestServer(t *testing.T, logos LogoGenerator, api video.VideoAPI) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	videos := video.NewService(api, video.WithLogger(logger))
	srv := NewServer(Config{BasePath: "/api", AllowedOrigins: []string{"http://localhost:3000"}}, logos, videos, WithLogger(logger))
	return srv.Handler()
}

func postForm(t *testing.T, h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestHealthz(t *testing.T) {
	h := newTestServer(t, &stubLogoGenerator{}, &stubVideoAPI{})

	rec := get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestRequestID_Propagated(t *testing.T) {
	h := newTestServer(t, &stubLogoGenerator{}, &stubVideoAPI{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(requestIDHeader))
}

func TestRequestID_RejectsUnsafeValues(t *testing.T) {
	h := newTestServer(t, &stubLogoGenerator{}, &stubVideoAPI{})

	tests := []struct {
		name string
		id   string
	}{
		{"長すぎる", strings.Repeat("a", maxRequestIDLength+1)},
		{"空白を含む", "req 123"},
		{"区切り文字を含む", "req=1;forged"},
		{"記号を含む", "<script>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			req.Header.Set(requestIDHeader, tt.id)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			got := rec.Header().Get(requestIDHeader)
			assert.NotEqual(t, tt.id, got)
			_, err := uuid.Parse(got)
			assert.NoError(t, err)
		})
	}
}

func TestValidRequestID(t *testing.T) {
	assert.True(t, validRequestID("req-1.a_B"))
	assert.True(t, validRequestID(strings.Repeat("a", maxRequestIDLength)))
	assert.False(t, validRequestID(""))
	assert.False(t, validRequestID("a/b"))
}

func TestGenerateLogos(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		logos := &stubLogoGenerator{result: &logo.BatchResult{Logos: []string{"https://img/1.png", "https://img/2.png"}}}
		h := newTestServer(t, logos, &stubVideoAPI{})

		rec := postForm(t, h, "/api/generate-logos/", url.Values{"prompt": {"fox"}, "width": {"512"}, "height": {"512"}})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"logos":["https://img/1.png","https://img/2.png"]}`, rec.Body.String())
		assert.Equal(t, logo.GenerationRequest{Prompt: "fox", Width: 512, Height: 512}, logos.lastReq)
	})

	t.Run("dimensions omitted are left for defaults", func(t *testing.T) {
		logos := &stubLogoGenerator{result: &logo.BatchResult{Logos: []string{"u"}}}
		h := newTestServer(t, logos, &stubVideoAPI{})

		rec := postForm(t, h, "/api/generate-logos/", url.Values{"prompt": {"fox"}})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 0, logos.lastReq.Width)
		assert.Equal(t, 0, logos.lastReq.Height)
	})

	t.Run("json body", func(t *testing.T) {
		logos := &stubLogoGenerator{result: &logo.BatchResult{Logos: []string{"u"}}}
		h := newTestServer(t, logos, &stubVideoAPI{})

		req := httptest.NewRequest(http.MethodPost, "/api/generate-logos/", strings.NewReader(`{"prompt":"fox","width":800}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 800, logos.lastReq.Width)
	})

	t.Run("missing prompt", func(t *testing.T) {
		logos := &stubLogoGenerator{}
		h := newTestServer(t, logos, &stubVideoAPI{})

		rec := postForm(t, h, "/api/generate-logos/", url.Values{"width": {"1024"}})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "prompt is required", decodeBody(t, rec)["error"])
		assert.Equal(t, 0, logos.calls)
	})

	t.Run("non numeric width", func(t *testing.T) {
		logos := &stubLogoGenerator{}
		h := newTestServer(t, logos, &stubVideoAPI{})

		rec := postForm(t, h, "/api/generate-logos/", url.Values{"prompt": {"fox"}, "width": {"wide"}})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, 0, logos.calls)
	})

	t.Run("negative height", func(t *testing.T) {
		logos := &stubLogoGenerator{}
		h := newTestServer(t, logos, &stubVideoAPI{})

		rec := postForm(t, h, "/api/generate-logos/", url.Values{"prompt": {"fox"}, "height": {"-1"}})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "height must be at least 0", decodeBody(t, rec)["error"])
	})

	t.Run("oversized width", func(t *testing.T) {
		logos := &stubLogoGenerator{}
		h := newTestServer(t, logos, &stubVideoAPI{})

		rec := postForm(t, h, "/api/generate-logos/", url.Values{"prompt": {"fox"}, "width": {"5000"}})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "width must be at most 4096", decodeBody(t, rec)["error"])
		assert.Equal(t, 0, logos.calls)
	})

	t.Run("all attempts failed", func(t *testing.T) {
		logos := &stubLogoGenerator{err: fmt.Errorf("%w: %w", logo.ErrAllAttemptsFailed, apperror.ErrTransport)}
		h := newTestServer(t, logos, &stubVideoAPI{})

		rec := postForm(t, h, "/api/generate-logos/", url.Values{"prompt": {"fox"}})

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decodeBody(t, rec)
		assert.Contains(t, body["error"], "all logo generation attempts failed")
		assert.NotContains(t, body, "logos")
	})

	t.Run("wrong method", func(t *testing.T) {
		h := newTestServer(t, &stubLogoGenerator{}, &stubVideoAPI{})

		rec := get(t, h, "/api/generate-logos/")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"Invalid request method"}`, rec.Body.String())
	})
}

func TestConvertToVideo(t *testing.T) {
	tests := []struct {
		name  string
		reply *video.SubmitReply
		want  string
	}{
		{
			name:  "queued",
			reply: &video.SubmitReply{Status: "In queue", UUID: "job-1"},
			want:  `{"status":"processing","jobId":"job-1"}`,
		},
		{
			name:  "direct video",
			reply: &video.SubmitReply{VideoURL: "https://v/1.mp4"},
			want:  `{"status":"completed","videoUrl":"https://v/1.mp4"}`,
		},
		{
			name:  "direct gif",
			reply: &video.SubmitReply{GifURL: "https://v/1.gif"},
			want:  `{"status":"completed","gifUrl":"https://v/1.gif"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &stubVideoAPI{submitReply: tt.reply}
			h := newTestServer(t, &stubLogoGenerator{}, api)

			rec := postForm(t, h, "/api/convert-to-video/", url.Values{"imageUrl": {"https://img/1.png"}})

			require.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, tt.want, rec.Body.String())
			assert.Equal(t, 1, api.submitCalls)
		})
	}

	t.Run("missing imageUrl makes no upstream call", func(t *testing.T) {
		api := &stubVideoAPI{}
		h := newTestServer(t, &stubLogoGenerator{}, api)

		rec := postForm(t, h, "/api/convert-to-video/", url.Values{})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "imageUrl is required", decodeBody(t, rec)["error"])
		assert.Equal(t, 0, api.submitCalls)
	})

	t.Run("unrecognized response", func(t *testing.T) {
		api := &stubVideoAPI{submitReply: &video.SubmitReply{Status: "ok"}}
		h := newTestServer(t, &stubLogoGenerator{}, api)

		rec := postForm(t, h, "/api/convert-to-video/", url.Values{"imageUrl": {"https://img/1.png"}})

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotEmpty(t, decodeBody(t, rec)["error"])
	})

	t.Run("transport error", func(t *testing.T) {
		api := &stubVideoAPI{err: fmt.Errorf("%w: connection refused", apperror.ErrTransport)}
		h := newTestServer(t, &stubLogoGenerator{}, api)

		rec := postForm(t, h, "/api/convert-to-video/", url.Values{"imageUrl": {"https://img/1.png"}})

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		h := newTestServer(t, &stubLogoGenerator{}, &stubVideoAPI{})

		rec := get(t, h, "/api/convert-to-video/")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid request method", decodeBody(t, rec)["error"])
	})
}

func TestCheckVideoStatus(t *testing.T) {
	tests := []struct {
		name  string
		reply *video.StatusReply
		want  string
	}{
		{
			name:  "completed",
			reply: &video.StatusReply{Status: "success", URL: "http://v", GifURL: "http://g"},
			want:  `{"status":"completed","videoUrl":"http://v","gifUrl":"http://g"}`,
		},
		{
			name:  "processing",
			reply: &video.StatusReply{Status: "In queue"},
			want:  `{"status":"processing"}`,
		},
		{
			name:  "failed with error code",
			reply: &video.StatusReply{Status: "failed", Error: "bad frame", ErrorCode: json.RawMessage(`7`)},
			want:  `{"status":"failed","error":"bad frame","errorCode":7}`,
		},
		{
			name:  "unknown",
			reply: &video.StatusReply{Status: "paused"},
			want:  `{"status":"unknown","message":"unrecognized upstream status \"paused\"","upstreamStatus":"paused"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &stubVideoAPI{statusReply: tt.reply}
			h := newTestServer(t, &stubLogoGenerator{}, api)

			rec := get(t, h, "/api/check-video-status/?jobId=job-1")

			require.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, tt.want, rec.Body.String())
			assert.Equal(t, 1, api.statusCalls)
		})
	}

	t.Run("missing jobId", func(t *testing.T) {
		api := &stubVideoAPI{}
		h := newTestServer(t, &stubLogoGenerator{}, api)

		rec := get(t, h, "/api/check-video-status/")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "jobId is required", decodeBody(t, rec)["error"])
		assert.Equal(t, 0, api.statusCalls)
	})

	t.Run("transport error", func(t *testing.T) {
		api := &stubVideoAPI{err: fmt.Errorf("%w: timeout", apperror.ErrTransport)}
		h := newTestServer(t, &stubLogoGenerator{}, api)

		rec := get(t, h, "/api/check-video-status/?jobId=job-1")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		h := newTestServer(t, &stubLogoGenerator{}, &stubVideoAPI{})

		rec := postForm(t, h, "/api/check-video-status/", url.Values{"jobId": {"job-1"}})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t, &stubLogoGenerator{}, &stubVideoAPI{})

	req := httptest.NewRequest(http.MethodOptions, "/api/generate-logos/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecovery(t *testing.T) {
	h := newTestServer(t, panicLogoGenerator{}, &stubVideoAPI{})

	rec := postForm(t, h, "/api/generate-logos/", url.Values{"prompt": {"fox"}})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decodeBody(t, rec)["error"])
}

type panicLogoGenerator struct{}

func (panicLogoGenerator) GenerateBatch(ctx context.Context, req logo.GenerationRequest) (*logo.BatchResult, error) {
	panic("boom")
}

func TestBindErrorMessage(t *testing.T) {
	assert.Equal(t, "invalid request parameters", bindErrorMessage(assert.AnError))
}
