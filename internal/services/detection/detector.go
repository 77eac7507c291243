package detection

import (
	"context"
	"errors"
	"image"

	"ppe-monitor-go/internal/models"
)

// Detector returns the labelled boxes found in one frame.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]models.Detection, error)
}

// Postprocessor filters or modifies the detections of a frame.
type Postprocessor func([]models.Detection) []models.Detection

// NewScoreFilter drops detections below a confidence threshold.
func NewScoreFilter(conf float64) Postprocessor {
	return func(in []models.Detection) []models.Detection {
		out := make([]models.Detection, 0, len(in))
		for _, d := range in {
			if float64(d.Score) >= conf {
				out = append(out, d)
			}
		}
		return out
	}
}

// NewLabelFilter drops detections whose label is not in the vocabulary.
func NewLabelFilter(classes *models.ClassSet) Postprocessor {
	known := make(map[string]struct{}, classes.Len())
	for _, n := range classes.Names() {
		known[n] = struct{}{}
	}
	return func(in []models.Detection) []models.Detection {
		out := make([]models.Detection, 0, len(in))
		for _, d := range in {
			if _, ok := known[d.Label]; ok {
				out = append(out, d)
			}
		}
		return out
	}
}

type pipeline struct {
	detector Detector
	post     []Postprocessor
}

// Build chains a detector with postprocessors applied in order.
func Build(det Detector, post ...Postprocessor) (Detector, error) {
	if det == nil {
		return nil, errors.New("must have a Detector")
	}
	return &pipeline{detector: det, post: post}, nil
}

func (p *pipeline) Detect(ctx context.Context, img image.Image) ([]models.Detection, error) {
	dets, err := p.detector.Detect(ctx, img)
	if err != nil {
		return nil, err
	}
	for _, f := range p.post {
		if f != nil {
			dets = f(dets)
		}
	}
	return dets, nil
}

// DetectorFunc adapts a function to the Detector interface.
type DetectorFunc func(ctx context.Context, img image.Image) ([]models.Detection, error)

func (f DetectorFunc) Detect(ctx context.Context, img image.Image) ([]models.Detection, error) {
	return f(ctx, img)
}
