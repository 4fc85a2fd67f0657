package handlers

import (
	"io"
	"net/http"
	"ytbridge/services"
	"ytbridge/types"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// DownloadHandler handles the streaming, custom, sync and help endpoints
type DownloadHandler struct {
	downloader services.Downloader
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(downloader services.Downloader) *DownloadHandler {
	return &DownloadHandler{
		downloader: downloader,
	}
}

// Download streams the relay for a friendly request (GET or POST, query parameters)
func (h *DownloadHandler) Download(c *gin.Context) {
	var req types.DownloadRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, &services.ValidationError{Reason: err.Error()})
		return
	}
	log.WithField("module", "handlers").Infof(
		"Generic download request: URL=%s, format=%s, quality=%s, audio_only=%t",
		req.URL, req.Format, req.Quality, req.AudioOnly,
	)

	h.relay(c, services.BuildCommand(req))
}

// DownloadCustom streams the relay for raw yt-dlp parameters (JSON body)
func (h *DownloadHandler) DownloadCustom(c *gin.Context) {
	var req types.CustomDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, &services.ValidationError{Reason: err.Error()})
		return
	}
	log.WithField("module", "handlers").Infof("Custom download request: URL=%s, params=%v", req.URL, req.Params)

	h.relay(c, services.BuildCustomCommand(req.URL, req.Params))
}

// DownloadSync waits for the download to finish and returns the final result
func (h *DownloadHandler) DownloadSync(c *gin.Context) {
	var req types.DownloadRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, &services.ValidationError{Reason: err.Error()})
		return
	}
	logger := log.WithField("module", "handlers")
	logger.Infof("Sync download request: URL=%s, format=%s, quality=%s", req.URL, req.Format, req.Quality)

	result, err := h.downloader.DownloadSync(c.Request.Context(), services.BuildCommand(req))
	if err != nil {
		serverError(c, "download failed", err)
		return
	}

	logger.Infof("Sync download completed: status=%s", result.Status)
	c.JSON(http.StatusOK, result)
}

// Help returns the yt-dlp help text from the remote service
func (h *DownloadHandler) Help(c *gin.Context) {
	help, err := h.downloader.Help(c.Request.Context())
	if err != nil {
		serverError(c, "failed to fetch help", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"command": services.HelpCommand,
		"help":    help,
	})
}

// relay forwards every relayed line to the caller as an event stream
func (h *DownloadHandler) relay(c *gin.Context, command string) {
	stream, err := h.downloader.Stream(c.Request.Context(), command)
	if err != nil {
		serverError(c, "download failed", err)
		return
	}
	defer stream.Close()

	logger := log.WithFields(log.Fields{"module": "handlers", "session": stream.ID()})

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	count := 0
	for stream.Next() {
		if _, err := io.WriteString(c.Writer, stream.Event().Line()+"\n"); err != nil {
			logger.Warnf("Client write failed after %d events: %v", count, err)
			stream.Abort()
			return
		}
		c.Writer.Flush()
		count++
	}

	if err := stream.Err(); err != nil {
		logger.Errorf("SSE stream error after %d events: %v", count, err)
		stream.Abort()
		return
	}
	logger.Infof("SSE stream completed successfully with %d events", count)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "invalid request",
		"details": err.Error(),
	})
}

func serverError(c *gin.Context, message string, err error) {
	log.WithField("module", "handlers").Errorf("%s: %v", message, err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}
