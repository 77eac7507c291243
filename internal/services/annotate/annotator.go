package annotate

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"ppe-monitor-go/internal/helpers"
	"ppe-monitor-go/internal/models"
)

// Annotator draws detections and the violation gallery onto frames.
type Annotator struct {
	classes *models.ClassSet

	fontFace  gocv.HersheyFont
	fontScale float64
	thickness int
}

func NewAnnotator(classes *models.ClassSet) *Annotator {
	return &Annotator{
		classes:   classes,
		fontFace:  gocv.FontHersheySimplex,
		fontScale: 0.6,
		thickness: 1,
	}
}

// Annotate returns a new BGR Mat with boxes, captions and gallery thumbnails drawn.
// The caller owns the returned Mat.
func (a *Annotator) Annotate(img image.Image, detections []models.Detection, gallery []models.GalleryItem) (gocv.Mat, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to convert frame: %w", err)
	}

	for _, det := range detections {
		a.drawDetection(&mat, det)
	}
	a.drawGallery(&mat, gallery)

	return mat, nil
}

func (a *Annotator) drawDetection(mat *gocv.Mat, det models.Detection) {
	box := det.BBox.Rect().Canon()
	if box.Empty() {
		return
	}
	c := a.classes.Color(det.Label)

	gocv.Rectangle(mat, box, c, 1)
	drawCorners(mat, box, c)

	text := LabelText(det.Label, det.Score)
	size := gocv.GetTextSize(text, a.fontFace, a.fontScale, a.thickness)
	origin := labelOrigin(box, size.Y)

	padding := 5
	bg := image.Rect(origin.X, origin.Y-size.Y-padding, origin.X+size.X+2*padding, origin.Y+padding)
	gocv.Rectangle(mat, bg, c, -1)
	gocv.PutText(mat, text, image.Pt(origin.X+padding, origin.Y), a.fontFace, a.fontScale, textColorFor(c), a.thickness)
}

func drawCorners(mat *gocv.Mat, box image.Rectangle, c color.RGBA) {
	l := cornerLength(box)
	if l <= 0 {
		return
	}
	x1, y1, x2, y2 := box.Min.X, box.Min.Y, box.Max.X, box.Max.Y

	// Top-left corner
	gocv.Line(mat, image.Pt(x1, y1), image.Pt(x1+l, y1), c, cornerThickness)
	gocv.Line(mat, image.Pt(x1, y1), image.Pt(x1, y1+l), c, cornerThickness)

	// Top-right corner
	gocv.Line(mat, image.Pt(x2, y1), image.Pt(x2-l, y1), c, cornerThickness)
	gocv.Line(mat, image.Pt(x2, y1), image.Pt(x2, y1+l), c, cornerThickness)

	// Bottom-left corner
	gocv.Line(mat, image.Pt(x1, y2), image.Pt(x1+l, y2), c, cornerThickness)
	gocv.Line(mat, image.Pt(x1, y2), image.Pt(x1, y2-l), c, cornerThickness)

	// Bottom-right corner
	gocv.Line(mat, image.Pt(x2, y2), image.Pt(x2-l, y2), c, cornerThickness)
	gocv.Line(mat, image.Pt(x2, y2), image.Pt(x2, y2-l), c, cornerThickness)
}

func (a *Annotator) drawGallery(mat *gocv.Mat, gallery []models.GalleryItem) {
	slots := ThumbnailSlots(mat.Cols(), mat.Rows(), len(gallery))
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}

	for i, slot := range slots {
		item := gallery[i]
		if item.Image == nil || item.Image.Bounds().Empty() {
			continue
		}

		thumb, err := gocv.ImageToMatRGB(helpers.Thumbnail(item.Image, thumbSize))
		if err != nil {
			continue
		}
		region := mat.Region(slot.Thumb)
		thumb.CopyTo(&region)
		region.Close()
		thumb.Close()

		gocv.PutText(mat, item.Label, slot.LabelAt, gocv.FontHersheySimplex, 0.5, white, 1)
	}
}
