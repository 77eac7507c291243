package annotate

import (
	"fmt"
	"image"
	"image/color"
)

const (
	thumbSize    = 100
	thumbMargin  = 10  // gap between the thumbnail column and the right edge
	thumbTop     = 50  // y of the first thumbnail
	thumbStride  = 140 // vertical distance between thumbnails
	thumbLabelDy = 120 // label baseline below the thumbnail top

	cornerLen       = 30
	cornerThickness = 5
	labelOffset     = 10
)

// Slot is where one gallery thumbnail and its caption are drawn.
type Slot struct {
	Thumb   image.Rectangle
	LabelAt image.Point
}

// ThumbnailSlots lays out up to n thumbnails in a column along the right edge of a
// w x h frame, oldest at the top. Slots that would cross the bottom edge are dropped.
func ThumbnailSlots(w, h, n int) []Slot {
	x := w - thumbSize - thumbMargin
	if x < 0 || n <= 0 {
		return nil
	}

	slots := make([]Slot, 0, n)
	for i, y := 0, thumbTop; i < n; i, y = i+1, y+thumbStride {
		if y+thumbSize > h {
			break
		}
		slots = append(slots, Slot{
			Thumb:   image.Rect(x, y, x+thumbSize, y+thumbSize),
			LabelAt: image.Pt(x, y+thumbLabelDy),
		})
	}
	return slots
}

// LabelText is the caption drawn above a detection box.
func LabelText(label string, score float32) string {
	return fmt.Sprintf("%s %.2f", label, score)
}

// labelOrigin places the caption baseline just above the box, kept inside the frame.
func labelOrigin(box image.Rectangle, textH int) image.Point {
	x := box.Min.X
	if x < 0 {
		x = 0
	}
	y := box.Min.Y - labelOffset
	if y < textH+labelOffset {
		y = textH + labelOffset
	}
	return image.Pt(x, y)
}

// cornerLength shortens the corner marks for boxes smaller than two corner lengths.
func cornerLength(box image.Rectangle) int {
	l := cornerLen
	if half := box.Dx() / 2; half < l {
		l = half
	}
	if half := box.Dy() / 2; half < l {
		l = half
	}
	return l
}

// textColorFor picks black or white text for a background colour by perceived luminance.
func textColorFor(bg color.RGBA) color.RGBA {
	luminance := 0.2126*float64(bg.R) + 0.7152*float64(bg.G) + 0.0722*float64(bg.B)
	if luminance < 128 {
		return color.RGBA{R: 255, G: 255, B: 255, A: 255}
	}
	return color.RGBA{A: 255}
}
