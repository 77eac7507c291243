package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"ppe-monitor-go/internal/api"
	"ppe-monitor-go/internal/config"
	"ppe-monitor-go/internal/logging"
	"ppe-monitor-go/internal/models"
	"ppe-monitor-go/internal/pipeline"
	"ppe-monitor-go/internal/repository/sqlite"
	"ppe-monitor-go/internal/services/annotate"
	"ppe-monitor-go/internal/services/capture"
	"ppe-monitor-go/internal/services/detection"
	"ppe-monitor-go/internal/services/display"
	"ppe-monitor-go/internal/services/messaging"
	"ppe-monitor-go/internal/services/postprocessing"
	"ppe-monitor-go/internal/services/publisher/mjpeg"
	"ppe-monitor-go/internal/services/storage"
	"ppe-monitor-go/internal/services/violation"
	"ppe-monitor-go/internal/services/websocket"
)

// closer is run in reverse order during shutdown.
type closer func(ctx context.Context) error

func main() {
	source := flag.String("source", "", "Video source: camera index or file/stream location (overrides VIDEO_SOURCE)")
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *source != "" {
		cfg.VideoSource = *source
	}

	logging.Setup(cfg)

	log.Info().
		Str("monitor_id", cfg.MonitorID).
		Str("version", cfg.Version).
		Str("environment", cfg.Environment).
		Str("source", cfg.VideoSource).
		Str("detector", cfg.DetectorBackend).
		Bool("docker", config.IsRunningInDocker()).
		Msg("Starting PPE monitor")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("PPE monitor failed")
	}
	log.Info().Msg("PPE monitor stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	var closers []closer
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		for i := len(closers) - 1; i >= 0; i-- {
			if cerr := closers[i](shutdownCtx); cerr != nil {
				log.Warn().Err(cerr).Msg("Shutdown step failed")
			}
		}
	}()

	classes, err := config.LoadClasses(cfg)
	if err != nil {
		return err
	}
	log.Info().
		Int("classes", classes.Len()).
		Strs("violations", classes.ViolationLabels()).
		Msg("Class vocabulary loaded")

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}

	violations, err := violation.NewService(classes, store,
		violation.WithCapacity(cfg.GalleryCapacity),
		violation.WithUniqueNames(cfg.SnapshotUniqueNames),
		violation.WithLogger(logging.NewServiceLogger(cfg, "violation")),
	)
	if err != nil {
		return err
	}

	detector, closeDetector, err := buildDetector(cfg, classes)
	if err != nil {
		return err
	}
	closers = append(closers, func(context.Context) error { return closeDetector() })

	spec, err := capture.ParseSource(cfg.VideoSource)
	if err != nil {
		return err
	}
	src, err := capture.OpenVideoSource(spec, cfg.MaxConsecutiveErrors)
	if err != nil {
		return err
	}
	closers = append(closers, func(context.Context) error { return src.Close() })

	opts := []pipeline.Option{pipeline.WithLogger(logging.NewServiceLogger(cfg, "pipeline"))}

	var journal *sqlite.ViolationRepository
	if cfg.JournalPath != "" {
		db, err := sqlite.New(cfg.JournalPath)
		if err != nil {
			return err
		}
		closers = append(closers, func(context.Context) error { return db.Close() })
		journal = sqlite.NewViolationRepository(db)
		opts = append(opts, pipeline.WithJournal(journal))
	}

	var hub *websocket.Hub
	if cfg.APIEnabled {
		hub = websocket.NewHub()
		go hub.Run(ctx)
	}

	publishers, shutdownEvents, err := buildPublishers(cfg)
	if err != nil {
		return err
	}
	closers = append(closers, shutdownEvents...)
	if hub != nil {
		publishers = append(publishers, hub)
	}
	if len(publishers) > 0 {
		events, err := postprocessing.NewService(cfg, nil, publishers...)
		if err != nil {
			return err
		}
		closers = append(closers, events.Shutdown)
		opts = append(opts, pipeline.WithEvents(events))
	}

	var (
		viewer annotate.Viewer
		frames annotate.FramePublisher
		stream *mjpeg.Publisher
	)
	if cfg.DisplayEnabled {
		window := display.NewWindow(cfg.WindowTitle)
		closers = append(closers, func(context.Context) error { return window.Close() })
		viewer = window
	}
	if cfg.APIEnabled {
		stream = mjpeg.NewPublisher(cfg.StreamQuality)
		closers = append(closers, func(context.Context) error { stream.Shutdown(); return nil })
		frames = stream
	}
	if viewer != nil || frames != nil {
		opts = append(opts, pipeline.WithSinks(annotate.NewRenderer(annotate.NewAnnotator(classes), viewer, frames)))
	}

	session, err := pipeline.NewSession(src, detector, violations, opts...)
	if err != nil {
		return err
	}

	if cfg.APIEnabled {
		deps := api.Dependencies{Session: session, Stream: httpHandler(stream), Events: hub}
		if journal != nil {
			deps.Journal = journal
		}
		server, err := api.NewServer(cfg, deps)
		if err != nil {
			return err
		}
		go func() {
			if err := server.Start(); err != nil {
				log.Error().Err(err).Msg("API server failed")
			}
		}()
		closers = append(closers, server.Shutdown)
	}

	return session.Run(ctx)
}

// buildStore returns the local snapshot directory, mirrored to the object store when enabled.
func buildStore(ctx context.Context, cfg *config.Config) (storage.SnapshotStore, error) {
	local := storage.NewLocalStore(cfg.ViolationsDir, cfg.ImageQuality)
	if !cfg.ObjectStoreEnabled {
		return local, nil
	}

	remote, err := storage.NewObjectStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize object store: %w", err)
	}
	return storage.NewMirror(local, remote), nil
}

func buildDetector(cfg *config.Config, classes *models.ClassSet) (detection.Detector, func() error, error) {
	var (
		base    detection.Detector
		closeFn func() error
	)

	switch cfg.DetectorBackend {
	case "grpc":
		d, err := detection.NewRemoteDetector(cfg.AIGRPCURL, classes, cfg.AITimeout, cfg.ConfidenceThreshold)
		if err != nil {
			return nil, nil, err
		}
		base, closeFn = d, d.Close
	default:
		d, err := detection.NewONNXDetector(cfg.ModelPath, classes, cfg.ModelInputSize, cfg.ConfidenceThreshold, cfg.NMSThreshold)
		if err != nil {
			return nil, nil, err
		}
		base, closeFn = d, d.Close
	}

	det, err := detection.Build(base,
		detection.NewLabelFilter(classes),
		detection.NewScoreFilter(cfg.ConfidenceThreshold),
	)
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	return det, closeFn, nil
}

func buildPublishers(cfg *config.Config) ([]models.MessagePublisher, []closer, error) {
	switch cfg.EventsBackend {
	case "nats":
		svc, err := messaging.NewService(cfg)
		if err != nil {
			return nil, nil, err
		}
		return []models.MessagePublisher{svc}, []closer{svc.Shutdown}, nil
	case "kafka":
		svc, err := messaging.NewKafkaService(cfg)
		if err != nil {
			return nil, nil, err
		}
		return []models.MessagePublisher{svc}, []closer{svc.Shutdown}, nil
	default:
		return nil, nil, nil
	}
}

func httpHandler(p *mjpeg.Publisher) http.Handler {
	if p == nil {
		return nil
	}
	return http.HandlerFunc(p.StreamMJPEGHTTP)
}
