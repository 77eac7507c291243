package capture

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"ppe-monitor-go/internal/models"
)

// VideoSource reads frames from a camera, file or stream through OpenCV.
type VideoSource struct {
	spec    SourceSpec
	cap     *gocv.VideoCapture
	mat     gocv.Mat
	frameID int64
	logger  zerolog.Logger

	// grab reads one frame. ok is false when the device returned nothing.
	grab func() (img image.Image, ok bool, err error)

	maxConsecutiveErrors int
}

// OpenVideoSource validates and opens spec. A missing file or an unopenable device
// is reported here, before any frame is read.
func OpenVideoSource(spec SourceSpec, maxConsecutiveErrors int) (*VideoSource, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	var device interface{} = spec.Location
	if spec.IsCamera {
		device = spec.CameraIndex
	}

	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("failed to open video source %s: %w", spec, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("video source %s could not be opened", spec)
	}

	if maxConsecutiveErrors <= 0 {
		maxConsecutiveErrors = 10
	}

	l := log.With().Str("service", "capture").Str("source", spec.String()).Logger()
	l.Info().
		Float64("fps", vc.Get(gocv.VideoCaptureFPS)).
		Float64("width", vc.Get(gocv.VideoCaptureFrameWidth)).
		Float64("height", vc.Get(gocv.VideoCaptureFrameHeight)).
		Msg("Video source opened")

	vs := &VideoSource{
		spec:                 spec,
		cap:                  vc,
		mat:                  gocv.NewMat(),
		logger:               l,
		maxConsecutiveErrors: maxConsecutiveErrors,
	}
	vs.grab = vs.readMat
	return vs, nil
}

func (s *VideoSource) readMat() (image.Image, bool, error) {
	if ok := s.cap.Read(&s.mat); !ok || s.mat.Empty() {
		return nil, false, nil
	}
	img, err := s.mat.ToImage()
	return img, true, err
}

func (s *VideoSource) NextFrame(ctx context.Context) (models.Frame, error) {
	consecutiveErrors := 0

	for {
		if err := ctx.Err(); err != nil {
			return models.Frame{}, err
		}

		img, ok, err := s.grab()
		if !ok {
			// Files end with a failed read; live devices get a retry budget.
			if !s.spec.IsCamera && !s.spec.IsStream() {
				return models.Frame{}, ErrSourceExhausted
			}

			consecutiveErrors++
			s.logger.Warn().
				Int("consecutive_errors", consecutiveErrors).
				Msg("Failed to read frame from VideoCapture")

			if consecutiveErrors >= s.maxConsecutiveErrors {
				return models.Frame{}, fmt.Errorf("too many consecutive frame read errors (%d)", consecutiveErrors)
			}

			select {
			case <-ctx.Done():
				return models.Frame{}, ctx.Err()
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}

		if err != nil {
			// Unconvertible frames are dropped and count toward the error budget.
			consecutiveErrors++
			s.logger.Warn().Err(err).
				Int("consecutive_errors", consecutiveErrors).
				Msg("Failed to convert frame")

			if consecutiveErrors >= s.maxConsecutiveErrors {
				return models.Frame{}, fmt.Errorf("too many consecutive frame read errors (%d): %w", consecutiveErrors, err)
			}
			continue
		}

		s.frameID++
		return models.Frame{ID: s.frameID, Image: img, Timestamp: time.Now()}, nil
	}
}

func (s *VideoSource) Close() error {
	s.mat.Close()
	return s.cap.Close()
}
