package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// SystemHandler handles system-related endpoints
type SystemHandler struct {
	MonitorID string
	startedAt time.Time
	session   StatsProvider
	endpoints func() []string
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(monitorID string, session StatsProvider, endpoints func() []string) *SystemHandler {
	return &SystemHandler{
		MonitorID: monitorID,
		startedAt: time.Now(),
		session:   session,
		endpoints: endpoints,
	}
}

type SystemStats struct {
	MonitorID     string  `json:"monitor_id" example:"monitor-1"`
	UptimeSeconds float64 `json:"uptime_seconds" example:"3600"`
	MemoryMB      uint64  `json:"memory_mb" example:"48"`
	CPUCores      int     `json:"cpu_cores" example:"8"`
	Goroutines    int     `json:"goroutines" example:"14"`
	GoVersion     string  `json:"go_version" example:"go1.24.0"`

	// Performance of the current or last session
	Frames         int64   `json:"frames" example:"1200"`
	FPS            float64 `json:"fps" example:"24.5"`
	SessionSeconds float64 `json:"session_seconds" example:"49"`
}

// @Summary Get system stats
// @Description Process statistics of the monitor
// @Tags system
// @Produce json
// @Success 200 {object} SystemStats
// @Router /system/stats [get]
func (h *SystemHandler) GetStats(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := SystemStats{
		MonitorID:     h.MonitorID,
		UptimeSeconds: time.Since(h.startedAt).Seconds(),
		MemoryMB:      m.Alloc / 1024 / 1024,
		CPUCores:      runtime.NumCPU(),
		Goroutines:    runtime.NumGoroutine(),
		GoVersion:     runtime.Version(),
	}
	if h.session != nil {
		st := h.session.Stats()
		stats.Frames = st.Frames
		stats.FPS = st.FPS
		stats.SessionSeconds = st.ElapsedSeconds
	}

	c.JSON(http.StatusOK, stats)
}

// @Summary Get debug info
// @Description Registered routes, for troubleshooting
// @Tags system
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /system/debug [get]
func (h *SystemHandler) GetDebugInfo(c *gin.Context) {
	var endpoints []string
	if h.endpoints != nil {
		endpoints = h.endpoints()
	}
	c.JSON(http.StatusOK, gin.H{
		"monitor_id": h.MonitorID,
		"endpoints":  endpoints,
		"timestamp":  time.Now().Unix(),
	})
}
