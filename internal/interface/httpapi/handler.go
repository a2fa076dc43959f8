package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jinford/logo-relay/internal/core/logo"
	"github.com/jinford/logo-relay/internal/core/video"
)

type handler struct {
	logos  LogoGenerator
	videos VideoRelay
	logger *slog.Logger
}

type generateLogosRequest struct {
	Prompt string `form:"prompt" json:"prompt" binding:"required"`
	Width  int    `form:"width" json:"width" binding:"gte=0,lte=4096"`
	Height int    `form:"height" json:"height" binding:"gte=0,lte=4096"`
}

type generateLogosResponse struct {
	Logos []string `json:"logos"`
}

type convertToVideoRequest struct {
	ImageURL string `form:"imageUrl" json:"imageUrl" binding:"required"`
}

type checkVideoStatusRequest struct {
	JobID string `form:"jobId" binding:"required"`
}

type convertToVideoResponse struct {
	Status   video.State `json:"status"`
	JobID    string      `json:"jobId,omitempty"`
	VideoURL string      `json:"videoUrl,omitempty"`
	GifURL   string      `json:"gifUrl,omitempty"`
}

type videoStatusResponse struct {
	Status         video.State     `json:"status"`
	VideoURL       string          `json:"videoUrl,omitempty"`
	GifURL         string          `json:"gifUrl,omitempty"`
	Error          string          `json:"error,omitempty"`
	ErrorCode      json.RawMessage `json:"errorCode,omitempty"`
	Message        string          `json:"message,omitempty"`
	UpstreamStatus string          `json:"upstreamStatus,omitempty"`
}

func (h *handler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handler) generateLogos(c *gin.Context) {
	var req generateLogosRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.logos.GenerateBatch(c.Request.Context(), logo.GenerationRequest{
		Prompt: req.Prompt,
		Width:  req.Width,
		Height: req.Height,
	})
	if err != nil {
		h.logger.Error("ロゴ生成に失敗しました", "request_id", c.GetString(requestIDKey), "error", err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, generateLogosResponse{Logos: result.Logos})
}

func (h *handler) convertToVideo(c *gin.Context) {
	var req convertToVideoRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.videos.Convert(c.Request.Context(), req.ImageURL)
	if err != nil {
		h.logger.Error("動画変換の投入に失敗しました", "request_id", c.GetString(requestIDKey), "error", err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, convertToVideoResponse{
		Status:   result.State,
		JobID:    result.JobID,
		VideoURL: result.VideoURL,
		GifURL:   result.GifURL,
	})
}

func (h *handler) checkVideoStatus(c *gin.Context) {
	var req checkVideoStatusRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.videos.CheckStatus(c.Request.Context(), req.JobID)
	if err != nil {
		h.logger.Error("動画ステータスの取得に失敗しました", "request_id", c.GetString(requestIDKey), "job_id", req.JobID, "error", err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, videoStatusResponse{
		Status:         result.State,
		VideoURL:       result.VideoURL,
		GifURL:         result.GifURL,
		Error:          result.Error,
		ErrorCode:      result.ErrorCode,
		Message:        result.Message,
		UpstreamStatus: result.UpstreamStatus,
	})
}
