package handlers

import (
	"net/http"
	"runtime"
	"time"
	"ytbridge/config"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/mem"
	log "github.com/sirupsen/logrus"
)

const serviceName = "ytdlp-online-api"

// HealthHandler handles health check and service info endpoints
type HealthHandler struct {
	cfg *config.Config
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(cfg *config.Config) *HealthHandler {
	return &HealthHandler{cfg: cfg}
}

// HealthCheck returns the health status of the service
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   serviceName,
		"version":   h.cfg.APIVersion,
		"timestamp": time.Now().Unix(),
	})
}

// APIStatus reports the effective remote configuration and host load
func (h *HealthHandler) APIStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":           h.cfg.APITitle + " is running",
		"remote_url":        h.cfg.RemoteBase(),
		"download_base_url": h.cfg.EffectiveDownloadBaseURL(),
		"timeout_seconds":   h.cfg.DownloadTimeout,
		"system":            systemInfo(),
	})
}

// systemInfo is best effort; memory fields are omitted when the host cannot report them
func systemInfo() gin.H {
	info := gin.H{
		"os":         runtime.GOOS,
		"cpus":       runtime.NumCPU(),
		"goroutines": runtime.NumGoroutine(),
	}

	vmStat, err := mem.VirtualMemory()
	if err != nil {
		log.WithField("module", "handlers").Debugf("Error fetching memory info: %v", err)
		return info
	}
	info["memory_total"] = humanize.IBytes(vmStat.Total)
	info["memory_available"] = humanize.IBytes(vmStat.Available)
	info["memory_used_percent"] = vmStat.UsedPercent
	return info
}

// Root lists the available endpoints
func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":    h.cfg.APITitle,
		"version": h.cfg.APIVersion,
		"endpoints": gin.H{
			"health":             "/api/health",
			"status":             "/api/status",
			"download_streaming": "/api/download",
			"download_custom":    "/api/download/custom",
			"download_sync":      "/api/download/sync",
			"help":               "/api/help",
			"sessions":           "/api/sessions",
			"sessions_live":      "/api/ws/sessions",
		},
	})
}
