package helpers

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"
	"unicode"

	"github.com/disintegration/imaging"

	"ppe-monitor-go/internal/models"
)

const (
	// JPEG quality settings
	HighQuality   = 95
	MediumQuality = 75

	// Gallery thumbnails are square
	ThumbnailSize = 100
)

// ErrEmptyCrop is returned when a box has no area left after clipping to the frame.
var ErrEmptyCrop = errors.New("crop region is empty after clipping")

// ClipBounds intersects the detection box with the frame extent. Inverted or
// out-of-frame boxes yield ErrEmptyCrop.
func ClipBounds(b models.Bounds, frame image.Rectangle) (image.Rectangle, error) {
	r := b.Rect()
	if r.Empty() {
		return image.Rectangle{}, ErrEmptyCrop
	}
	clipped := r.Intersect(frame)
	if clipped.Empty() {
		return image.Rectangle{}, ErrEmptyCrop
	}
	return clipped, nil
}

// CropImage copies the clipped region of img into a new image anchored at (0,0).
func CropImage(img image.Image, b models.Bounds) (*image.NRGBA, image.Rectangle, error) {
	if img == nil {
		return nil, image.Rectangle{}, fmt.Errorf("nil frame")
	}
	clipped, err := ClipBounds(b, img.Bounds())
	if err != nil {
		return nil, image.Rectangle{}, err
	}
	return imaging.Crop(img, clipped), clipped, nil
}

// EncodeJPEG encodes img as JPEG at the given quality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// Thumbnail scales and centre-crops img to a size x size square.
func Thumbnail(img image.Image, size int) *image.NRGBA {
	return imaging.Fill(img, size, size, imaging.Center, imaging.Linear)
}

// SnapshotName is the file name for a violation captured at ts:
// "{label}_{unixSeconds}.jpg", or "{label}_{unixSeconds}_{seq}.jpg" when seq > 0.
// Path separators and control characters in the label are replaced with '-'.
func SnapshotName(label string, ts time.Time, seq uint64) string {
	label = safeFileLabel(label)
	if seq > 0 {
		return fmt.Sprintf("%s_%d_%d.jpg", label, ts.Unix(), seq)
	}
	return fmt.Sprintf("%s_%d.jpg", label, ts.Unix())
}

func safeFileLabel(label string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '/', r == '\\', r == ':', unicode.IsControl(r):
			return '-'
		}
		return r
	}, label)
}
