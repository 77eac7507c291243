package postprocessing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"ppe-monitor-go/internal/config"
	"ppe-monitor-go/internal/models"
)

// CooldownKey identifies a stream of events throttled together
type CooldownKey struct {
	SessionID string
	Label     string
}

// String returns a string representation of the cooldown key
func (k CooldownKey) String() string {
	return k.SessionID + "|" + k.Label
}

// Service turns violation records into events and publishes them
type Service struct {
	cfg        *config.Config
	publishers []models.MessagePublisher
	subject    string
	clock      clock.Clock

	cooldownMu sync.RWMutex
	lastSent   map[string]time.Time
	cooldown   time.Duration
}

// NewService creates a new postprocessing service
func NewService(cfg *config.Config, clk clock.Clock, publishers ...models.MessagePublisher) (*Service, error) {
	publishers = lo.Filter(publishers, func(p models.MessagePublisher, _ int) bool { return p != nil })
	if len(publishers) == 0 {
		return nil, fmt.Errorf("at least one message publisher is required")
	}
	if clk == nil {
		clk = clock.New()
	}

	s := &Service{
		cfg:        cfg,
		publishers: publishers,
		subject:    cfg.EventsSubject,
		clock:      clk,
		lastSent:   make(map[string]time.Time),
		cooldown:   cfg.EventsCooldown,
	}

	log.Info().
		Str("subject", s.subject).
		Int("publishers", len(publishers)).
		Dur("cooldown", s.cooldown).
		Msg("Post-processing service initialized")

	return s, nil
}

// Shutdown stops the service gracefully
func (s *Service) Shutdown(ctx context.Context) error {
	log.Info().Msg("Post-processing service shutdown")
	return nil
}

// ProcessRecords publishes one event per record that is not held back by the cooldown
func (s *Service) ProcessRecords(meta models.FrameMetadata, records []models.ViolationRecord) models.ProcessedViolations {
	result := models.ProcessedViolations{
		TotalRecords: len(records),
		Errors:       make([]string, 0),
	}

	for _, rec := range records {
		key := CooldownKey{SessionID: meta.SessionID, Label: rec.Label}
		if !s.CheckCooldown(key) {
			result.Throttled++
			log.Debug().
				Str("session_id", meta.SessionID).
				Str("label", rec.Label).
				Msg("Violation event blocked by cooldown")
			continue
		}

		event := s.BuildEvent(meta, rec)
		published := false
		for _, p := range s.publishers {
			if err := p.Publish(s.subject, event); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("publish %s: %v", rec.Label, err))
				continue
			}
			published = true
		}

		if published {
			s.UpdateCooldown(key)
			result.EventsPublished++
		}
	}

	if len(records) > 0 {
		log.Debug().
			Str("session_id", meta.SessionID).
			Int64("frame_id", meta.FrameID).
			Int("events_published", result.EventsPublished).
			Int("throttled", result.Throttled).
			Msg("Violation events processed")
	}

	return result
}

// BuildEvent creates the event payload for a record
func (s *Service) BuildEvent(meta models.FrameMetadata, rec models.ViolationRecord) models.ViolationEvent {
	return models.ViolationEvent{
		ID:           uuid.NewString(),
		Type:         models.ViolationEventDetected,
		MonitorID:    s.cfg.MonitorID,
		SessionID:    meta.SessionID,
		FrameID:      meta.FrameID,
		Label:        rec.Label,
		Confidence:   rec.Score,
		BBox:         rec.BBox,
		SnapshotPath: rec.SnapshotPath,
		Persisted:    rec.Persisted,
		Timestamp:    rec.Timestamp,
	}
}

// CheckCooldown checks if enough time has passed since the last event for key
func (s *Service) CheckCooldown(key CooldownKey) bool {
	if s.cooldown <= 0 {
		return true
	}

	s.cooldownMu.RLock()
	defer s.cooldownMu.RUnlock()

	lastSent, exists := s.lastSent[key.String()]
	if !exists {
		return true
	}

	return s.clock.Since(lastSent) >= s.cooldown
}

// UpdateCooldown updates the last sent time for a cooldown key
func (s *Service) UpdateCooldown(key CooldownKey) {
	s.cooldownMu.Lock()
	defer s.cooldownMu.Unlock()

	s.lastSent[key.String()] = s.clock.Now()
}
