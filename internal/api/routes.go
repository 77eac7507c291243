package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) setupRoutes() {
	s.router.GET("/", s.healthHandler.MonitorInfo)
	s.router.GET("/health", s.healthHandler.HealthCheck)

	gallery := s.router.Group("/gallery")
	{
		gallery.GET("", s.galleryHandler.ListGallery)
		gallery.GET("/:index/image", s.galleryHandler.GetImage)
	}

	violations := s.router.Group("/violations")
	{
		violations.GET("", s.violationHandler.ListViolations)
		violations.GET("/stats", s.violationHandler.GetStats)
	}

	system := s.router.Group("/system")
	{
		system.GET("/stats", s.systemHandler.GetStats)
		system.GET("/debug", s.systemHandler.GetDebugInfo)
	}

	s.router.GET("/stream", optional(s.deps.Stream, "live stream is disabled"))
	s.router.GET("/ws", optional(s.deps.Events, "event push is disabled"))
}

// optional wraps h, answering 503 when the backing service is not running.
func optional(h http.Handler, reason string) gin.HandlerFunc {
	if h == nil {
		return func(c *gin.Context) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": reason})
		}
	}
	return gin.WrapH(h)
}
