package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"ppe-monitor-go/internal/models"
)

// ErrSourceExhausted signals the normal end of a stream.
var ErrSourceExhausted = errors.New("frame source exhausted")

// ErrSourceNotFound is returned when a local video file does not exist.
var ErrSourceNotFound = errors.New("video source not found")

// FrameSource yields frames one at a time. NextFrame blocks until a frame is
// available and returns ErrSourceExhausted at end of stream.
type FrameSource interface {
	NextFrame(ctx context.Context) (models.Frame, error)
	Close() error
}

// SourceSpec describes where frames come from: a camera index or a file/stream location.
type SourceSpec struct {
	CameraIndex int
	Location    string
	IsCamera    bool
}

func (s SourceSpec) String() string {
	if s.IsCamera {
		return fmt.Sprintf("camera:%d", s.CameraIndex)
	}
	return s.Location
}

// IsStream reports whether the location is a network URL rather than a local file.
func (s SourceSpec) IsStream() bool {
	return !s.IsCamera && strings.Contains(s.Location, "://")
}

// ParseSource interprets a non-negative integer as a camera index and anything else as a location.
func ParseSource(raw string) (SourceSpec, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return SourceSpec{}, fmt.Errorf("empty video source")
	}
	if idx, err := strconv.Atoi(raw); err == nil {
		if idx < 0 {
			return SourceSpec{}, fmt.Errorf("invalid camera index %d", idx)
		}
		return SourceSpec{CameraIndex: idx, IsCamera: true}, nil
	}
	return SourceSpec{Location: raw}, nil
}

// Validate checks that a local video file exists before it is opened.
func (s SourceSpec) Validate() error {
	if s.IsCamera || s.IsStream() {
		return nil
	}
	info, err := os.Stat(s.Location)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrSourceNotFound, s.Location)
		}
		return fmt.Errorf("failed to stat video source: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("video source %s is a directory", s.Location)
	}
	return nil
}
