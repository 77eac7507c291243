package violation

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"ppe-monitor-go/internal/helpers"
	"ppe-monitor-go/internal/models"
	"ppe-monitor-go/internal/services/gallery"
	"ppe-monitor-go/internal/services/storage"
)

// ErrEmptyCrop marks a violation box with no area inside the frame.
var ErrEmptyCrop = helpers.ErrEmptyCrop

// StorageWriteError is returned (joined) by RecordFrame when a snapshot could not be persisted.
type StorageWriteError = storage.WriteError

// Service turns a frame's detections into persisted violation snapshots and keeps
// the most recent ones in a bounded gallery.
type Service struct {
	classes  *models.ClassSet
	store    storage.SnapshotStore
	gallery  *gallery.Buffer[models.GalleryItem]
	capacity int
	clock    clock.Clock
	logger   zerolog.Logger

	uniqueNames bool
	seq         atomic.Uint64
}

type Option func(*Service)

func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithCapacity shrinks the gallery. It must be within [1, gallery.DefaultCapacity].
func WithCapacity(n int) Option {
	return func(s *Service) { s.capacity = n }
}

// WithUniqueNames appends a process-wide sequence number to snapshot names so two
// violations of one class within the same second do not overwrite each other.
func WithUniqueNames(enabled bool) Option {
	return func(s *Service) { s.uniqueNames = enabled }
}

func NewService(classes *models.ClassSet, store storage.SnapshotStore, opts ...Option) (*Service, error) {
	if classes == nil {
		return nil, fmt.Errorf("class set is required")
	}
	if store == nil {
		return nil, fmt.Errorf("snapshot store is required")
	}

	s := &Service{
		classes:  classes,
		store:    store,
		capacity: gallery.DefaultCapacity,
		clock:    clock.New(),
		logger:   log.With().Str("service", "violation").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.capacity < 1 || s.capacity > gallery.DefaultCapacity {
		return nil, fmt.Errorf("gallery capacity must be within [1,%d], got %d", gallery.DefaultCapacity, s.capacity)
	}
	s.gallery = gallery.NewBuffer[models.GalleryItem](s.capacity)
	return s, nil
}

// RecordFrame crops, persists and enqueues every violation in detections. It returns
// the records produced for this frame. Storage failures are joined into the returned
// error but never stop the frame; the gallery still receives the in-memory crop.
func (s *Service) RecordFrame(ctx context.Context, frame image.Image, detections []models.Detection) ([]models.ViolationRecord, error) {
	if frame == nil {
		return nil, fmt.Errorf("nil frame")
	}

	var (
		records []models.ViolationRecord
		errs    []error
	)

	for _, det := range detections {
		if !s.classes.IsViolation(det.Label) {
			continue
		}

		crop, clipped, err := helpers.CropImage(frame, det.BBox)
		if err != nil {
			if errors.Is(err, ErrEmptyCrop) {
				s.logger.Debug().
					Str("label", det.Label).
					Interface("bbox", det.BBox).
					Msg("Skipping violation with empty crop")
				continue
			}
			errs = append(errs, err)
			continue
		}

		ts := s.clock.Now()
		var seq uint64
		if s.uniqueNames {
			seq = s.seq.Add(1)
		}
		name := helpers.SnapshotName(det.Label, ts, seq)

		path, err := s.store.Save(ctx, name, crop)
		persisted := err == nil
		if err != nil {
			var werr *StorageWriteError
			if !errors.As(err, &werr) {
				err = &StorageWriteError{Path: path, Err: err}
			}
			errs = append(errs, err)
		}

		rec := models.ViolationRecord{
			Label:        det.Label,
			Score:        det.Score,
			BBox:         models.BoundsFromRect(clipped),
			Timestamp:    ts,
			SnapshotPath: path,
			Persisted:    persisted,
			Image:        crop,
		}
		records = append(records, rec)

		if old, evicted := s.gallery.Push(models.GalleryItem{Image: crop, Label: det.Label, Timestamp: ts}); evicted {
			s.logger.Debug().Str("label", old.Label).Time("captured_at", old.Timestamp).Msg("Gallery entry evicted")
		}

		s.logger.Debug().
			Str("label", det.Label).
			Float32("score", det.Score).
			Str("path", path).
			Bool("persisted", persisted).
			Msg("Violation recorded")
	}

	return records, errors.Join(errs...)
}

// CurrentGallery returns the recent violations, oldest first.
func (s *Service) CurrentGallery() []models.GalleryItem {
	return s.gallery.Items()
}

// Reset empties the gallery at the start of a session.
func (s *Service) Reset() {
	s.gallery.Reset()
}

func (s *Service) Classes() *models.ClassSet { return s.classes }
