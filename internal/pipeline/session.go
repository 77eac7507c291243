package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"ppe-monitor-go/internal/models"
	"ppe-monitor-go/internal/services/capture"
	"ppe-monitor-go/internal/services/detection"
	"ppe-monitor-go/internal/services/violation"
)

// FrameSink receives every processed frame. Render reports quit=true when the
// viewer asked to stop.
type FrameSink interface {
	Render(ctx context.Context, frame models.Frame, detections []models.Detection, gallery []models.GalleryItem) (quit bool, err error)
}

// FrameSinkFunc adapts a function to FrameSink.
type FrameSinkFunc func(ctx context.Context, frame models.Frame, detections []models.Detection, gallery []models.GalleryItem) (bool, error)

func (f FrameSinkFunc) Render(ctx context.Context, frame models.Frame, detections []models.Detection, gallery []models.GalleryItem) (bool, error) {
	return f(ctx, frame, detections, gallery)
}

// Journal indexes persisted violations.
type Journal interface {
	Insert(ctx context.Context, sessionID string, rec models.ViolationRecord) (int64, error)
}

// EventProcessor publishes violation records to subscribers.
type EventProcessor interface {
	ProcessRecords(meta models.FrameMetadata, records []models.ViolationRecord) models.ProcessedViolations
}

// Stats are the running counters of a session.
type Stats struct {
	SessionID       string    `json:"session_id"`
	Running         bool      `json:"running"`
	StartedAt       time.Time `json:"started_at"`
	Frames          int64     `json:"frames"`
	Detections      int64     `json:"detections"`
	Violations      int64     `json:"violations"`
	StorageFailures int64     `json:"storage_failures"`
	DetectorErrors  int64     `json:"detector_errors"`
	EventsPublished int64     `json:"events_published"`

	// Derived from the session clock when Stats is called.
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	FPS            float64 `json:"fps"`
}

// Session runs the frame loop: acquire, detect, record, publish, render.
type Session struct {
	source     capture.FrameSource
	detector   detection.Detector
	violations *violation.Service
	events     EventProcessor
	journal    Journal
	sinks      []FrameSink
	clock      clock.Clock
	logger     zerolog.Logger

	mu         sync.RWMutex
	stats      Stats
	finishedAt time.Time
}

type Option func(*Session)

func WithEvents(e EventProcessor) Option {
	return func(s *Session) { s.events = e }
}

func WithJournal(j Journal) Option {
	return func(s *Session) { s.journal = j }
}

func WithSinks(sinks ...FrameSink) Option {
	return func(s *Session) { s.sinks = append(s.sinks, sinks...) }
}

func WithClock(c clock.Clock) Option {
	return func(s *Session) { s.clock = c }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

func NewSession(source capture.FrameSource, detector detection.Detector, violations *violation.Service, opts ...Option) (*Session, error) {
	if source == nil {
		return nil, fmt.Errorf("frame source is required")
	}
	if detector == nil {
		return nil, fmt.Errorf("detector is required")
	}
	if violations == nil {
		return nil, fmt.Errorf("violation service is required")
	}

	s := &Session{
		source:     source,
		detector:   detector,
		violations: violations,
		clock:      clock.New(),
		logger:     log.With().Str("service", "pipeline").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run processes frames until the source is exhausted, ctx is cancelled or a sink
// asks to quit. The gallery is emptied before the first frame.
func (s *Session) Run(ctx context.Context) error {
	sessionID := uuid.NewString()
	logger := s.logger.With().Str("session_id", sessionID).Logger()

	s.violations.Reset()
	s.mu.Lock()
	s.stats = Stats{SessionID: sessionID, Running: true, StartedAt: s.clock.Now()}
	s.finishedAt = time.Time{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.stats.Running = false
		s.finishedAt = s.clock.Now()
		s.mu.Unlock()
		st := s.Stats()

		logger.Info().
			Int64("frames", st.Frames).
			Int64("detections", st.Detections).
			Int64("violations", st.Violations).
			Int64("storage_failures", st.StorageFailures).
			Int64("detector_errors", st.DetectorErrors).
			Int64("events_published", st.EventsPublished).
			Float64("fps", st.FPS).
			Dur("elapsed", time.Duration(st.ElapsedSeconds*float64(time.Second))).
			Msg("Session finished")
	}()

	logger.Info().Msg("Session started")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Session cancelled")
			return nil
		default:
		}

		frame, err := s.source.NextFrame(ctx)
		if err != nil {
			if errors.Is(err, capture.ErrSourceExhausted) {
				logger.Info().Msg("Frame source exhausted")
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to read frame: %w", err)
		}

		if quit := s.processFrame(ctx, logger, sessionID, frame); quit {
			logger.Info().Int64("frame_id", frame.ID).Msg("Quit requested")
			return nil
		}
	}
}

// processFrame handles one frame. Failures stay inside the frame.
func (s *Session) processFrame(ctx context.Context, logger zerolog.Logger, sessionID string, frame models.Frame) (quit bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Int64("frame_id", frame.ID).
				Interface("panic", r).
				Msg("Process frame panic recovered")
		}
	}()

	s.addStats(func(st *Stats) { st.Frames++ })

	detections, err := s.detector.Detect(ctx, frame.Image)
	if err != nil {
		logger.Warn().Err(err).Int64("frame_id", frame.ID).Msg("Detection failed, rendering raw frame")
		s.addStats(func(st *Stats) { st.DetectorErrors++ })
		detections = nil
	}

	records, err := s.violations.RecordFrame(ctx, frame.Image, detections)
	if err != nil {
		var werr *violation.StorageWriteError
		if errors.As(err, &werr) {
			logger.Error().Err(err).Int64("frame_id", frame.ID).Msg("Failed to persist violation snapshot")
		} else {
			logger.Warn().Err(err).Int64("frame_id", frame.ID).Msg("Violation recording had errors")
		}
	}

	failures := 0
	for _, rec := range records {
		if !rec.Persisted {
			failures++
		}
	}
	s.addStats(func(st *Stats) {
		st.Detections += int64(len(detections))
		st.Violations += int64(len(records))
		st.StorageFailures += int64(failures)
	})

	if len(records) > 0 {
		s.journalRecords(ctx, logger, sessionID, records)
		s.publishRecords(logger, sessionID, frame, detections, records)
	}

	gallery := s.violations.CurrentGallery()
	for _, sink := range s.sinks {
		stop, err := sink.Render(ctx, frame, detections, gallery)
		if err != nil {
			logger.Warn().Err(err).Int64("frame_id", frame.ID).Msg("Frame sink failed")
		}
		quit = quit || stop
	}
	return quit
}

func (s *Session) journalRecords(ctx context.Context, logger zerolog.Logger, sessionID string, records []models.ViolationRecord) {
	if s.journal == nil {
		return
	}
	for _, rec := range records {
		if _, err := s.journal.Insert(ctx, sessionID, rec); err != nil {
			logger.Warn().Err(err).Str("label", rec.Label).Msg("Failed to journal violation")
		}
	}
}

func (s *Session) publishRecords(logger zerolog.Logger, sessionID string, frame models.Frame, detections []models.Detection, records []models.ViolationRecord) {
	if s.events == nil {
		return
	}

	bounds := frame.Image.Bounds()
	meta := models.FrameMetadata{
		SessionID:   sessionID,
		FrameID:     frame.ID,
		Timestamp:   frame.Timestamp,
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		AllDetCount: len(detections),
	}

	result := s.events.ProcessRecords(meta, records)
	if len(result.Errors) > 0 {
		logger.Warn().
			Int64("frame_id", frame.ID).
			Strs("errors", result.Errors).
			Msg("Violation event publishing had errors")
	}
	s.addStats(func(st *Stats) { st.EventsPublished += int64(result.EventsPublished) })
}

func (s *Session) addStats(fn func(*Stats)) {
	s.mu.Lock()
	fn(&s.stats)
	s.mu.Unlock()
}

// Stats returns a snapshot of the current or last session's counters.
func (s *Session) Stats() Stats {
	s.mu.RLock()
	st, end := s.stats, s.finishedAt
	s.mu.RUnlock()

	if st.StartedAt.IsZero() {
		return st
	}
	if st.Running || end.IsZero() {
		end = s.clock.Now()
	}
	elapsed := end.Sub(st.StartedAt).Seconds()
	st.ElapsedSeconds = elapsed
	if elapsed > 0 {
		st.FPS = float64(st.Frames) / elapsed
	}
	return st
}

// Gallery returns the violation gallery, oldest first.
func (s *Session) Gallery() []models.GalleryItem {
	return s.violations.CurrentGallery()
}
