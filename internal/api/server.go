package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"ppe-monitor-go/internal/api/handlers"
	"ppe-monitor-go/internal/api/middleware"
	"ppe-monitor-go/internal/config"
)

// Dependencies are the services the API reads from. Journal, Stream and Events are optional.
type Dependencies struct {
	Session interface {
		handlers.StatsProvider
		handlers.GalleryProvider
	}
	Journal handlers.ViolationQuerier
	Stream  http.Handler
	Events  http.Handler
}

type Server struct {
	config *config.Config
	router *gin.Engine
	server *http.Server
	deps   Dependencies

	healthHandler    *handlers.HealthHandler
	galleryHandler   *handlers.GalleryHandler
	violationHandler *handlers.ViolationHandler
	systemHandler    *handlers.SystemHandler
}

func NewServer(cfg *config.Config, deps Dependencies) (*Server, error) {
	if deps.Session == nil {
		return nil, fmt.Errorf("session is required")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	s := &Server{
		config:           cfg,
		router:           router,
		deps:             deps,
		healthHandler:    handlers.NewHealthHandler(cfg.MonitorID, cfg.Version, deps.Session),
		galleryHandler:   handlers.NewGalleryHandler(deps.Session, cfg.ImageQuality),
		violationHandler: handlers.NewViolationHandler(deps.Journal),
	}
	s.systemHandler = handlers.NewSystemHandler(cfg.MonitorID, deps.Session, s.routePaths)

	s.setupMiddleware()
	s.setupRoutes()
	s.setupSwagger()

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.RequestContext())
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.Logger())
	s.router.Use(middleware.CORS())
}

// routePaths lists the registered paths, sorted and without duplicates.
func (s *Server) routePaths() []string {
	paths := lo.Uniq(lo.Map(s.router.Routes(), func(r gin.RouteInfo, _ int) string { return r.Path }))
	sort.Strings(paths)
	return paths
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	log.Info().Int("port", s.config.Port).Msg("Starting PPE monitor API")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Stopping PPE monitor API")
	return s.server.Shutdown(ctx)
}
