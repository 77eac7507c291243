package annotate

import (
	"context"
	"errors"

	"gocv.io/x/gocv"

	"ppe-monitor-go/internal/models"
)

// Viewer shows an annotated frame and reports whether the user asked to quit.
type Viewer interface {
	Show(mat gocv.Mat) bool
}

// FramePublisher forwards an annotated frame to remote viewers.
type FramePublisher interface {
	PublishFrame(mat gocv.Mat) error
}

// Renderer annotates each frame once and hands it to the window and the stream.
type Renderer struct {
	annotator *Annotator
	viewer    Viewer
	stream    FramePublisher
}

// NewRenderer builds a renderer. viewer and stream are optional.
func NewRenderer(annotator *Annotator, viewer Viewer, stream FramePublisher) *Renderer {
	return &Renderer{annotator: annotator, viewer: viewer, stream: stream}
}

func (r *Renderer) Render(_ context.Context, frame models.Frame, detections []models.Detection, gallery []models.GalleryItem) (bool, error) {
	if r.viewer == nil && r.stream == nil {
		return false, nil
	}

	mat, err := r.annotator.Annotate(frame.Image, detections, gallery)
	if err != nil {
		return false, err
	}
	defer mat.Close()

	var errs []error
	if r.stream != nil {
		if err := r.stream.PublishFrame(mat); err != nil {
			errs = append(errs, err)
		}
	}

	quit := false
	if r.viewer != nil {
		quit = r.viewer.Show(mat)
	}
	return quit, errors.Join(errs...)
}
