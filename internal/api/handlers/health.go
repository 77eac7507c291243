package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ppe-monitor-go/internal/pipeline"
)

// StatsProvider exposes the counters of the running session.
type StatsProvider interface {
	Stats() pipeline.Stats
}

type HealthHandler struct {
	MonitorID string
	Version   string
	stats     StatsProvider
}

func NewHealthHandler(monitorID, version string, stats StatsProvider) *HealthHandler {
	return &HealthHandler{MonitorID: monitorID, Version: version, stats: stats}
}

type HealthResponse struct {
	Status    string `json:"status" example:"healthy"`
	MonitorID string `json:"monitor_id" example:"monitor-1"`
}

type MonitorInfoResponse struct {
	MonitorID    string         `json:"monitor_id" example:"monitor-1"`
	Status       string         `json:"status" example:"running"`
	Version      string         `json:"version" example:"1.0.0"`
	Capabilities []string       `json:"capabilities"`
	Session      pipeline.Stats `json:"session"`
}

// @Summary Health check
// @Description Check if the monitor is healthy and responsive
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		MonitorID: h.MonitorID,
	})
}

// @Summary Monitor information
// @Description Get monitor information and the counters of the current session
// @Tags health
// @Produce json
// @Success 200 {object} MonitorInfoResponse
// @Router / [get]
func (h *HealthHandler) MonitorInfo(c *gin.Context) {
	resp := MonitorInfoResponse{
		MonitorID: h.MonitorID,
		Status:    "idle",
		Version:   h.Version,
		Capabilities: []string{
			"ppe_detection",
			"violation_gallery",
			"mjpeg_streaming",
			"violation_events",
		},
	}
	if h.stats != nil {
		resp.Session = h.stats.Stats()
		if resp.Session.Running {
			resp.Status = "running"
		}
	}
	c.JSON(http.StatusOK, resp)
}
