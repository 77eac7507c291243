package detection

import (
	"fmt"
	"image"
	"math"
	"sort"
	"time"

	"ppe-monitor-go/internal/models"
)

// candidate is a decoded box before non-maximum suppression, in original frame pixels.
type candidate struct {
	classID int
	score   float32
	box     image.Rectangle
}

// letterbox describes how the frame was scaled and padded into the square model input.
type letterbox struct {
	scale  float64
	newW   int
	newH   int
	left   int
	top    int
	right  int
	bottom int
}

func newLetterbox(frameW, frameH, inputSize int) letterbox {
	scale := math.Min(float64(inputSize)/float64(frameW), float64(inputSize)/float64(frameH))
	newW := int(math.Round(float64(frameW) * scale))
	newH := int(math.Round(float64(frameH) * scale))
	left := (inputSize - newW) / 2
	top := (inputSize - newH) / 2
	return letterbox{
		scale:  scale,
		newW:   newW,
		newH:   newH,
		left:   left,
		top:    top,
		right:  inputSize - newW - left,
		bottom: inputSize - newH - top,
	}
}

func (l letterbox) toFrame(cx, cy, w, h float64) image.Rectangle {
	padX, padY := float64(l.left), float64(l.top)
	x1 := (cx - w/2 - padX) / l.scale
	y1 := (cy - h/2 - padY) / l.scale
	x2 := (cx + w/2 - padX) / l.scale
	y2 := (cy + h/2 - padY) / l.scale
	return image.Rect(int(math.Round(x1)), int(math.Round(y1)), int(math.Round(x2)), int(math.Round(y2)))
}

// decodeYOLOv8 reads a [4+numClasses, anchors] output tensor (row-major) and returns
// the best class per anchor whose score reaches minScore.
func decodeYOLOv8(out []float32, numClasses, anchors int, lb letterbox, minScore float32) ([]candidate, error) {
	rows := 4 + numClasses
	if len(out) != rows*anchors {
		return nil, fmt.Errorf("unexpected output size %d, want %d x %d", len(out), rows, anchors)
	}

	at := func(row, col int) float32 { return out[row*anchors+col] }

	var cands []candidate
	for a := 0; a < anchors; a++ {
		best, bestScore := -1, float32(0)
		for c := 0; c < numClasses; c++ {
			if s := at(4+c, a); s > bestScore {
				best, bestScore = c, s
			}
		}
		if best < 0 || bestScore < minScore {
			continue
		}
		box := lb.toFrame(float64(at(0, a)), float64(at(1, a)), float64(at(2, a)), float64(at(3, a)))
		cands = append(cands, candidate{classID: best, score: bestScore, box: box})
	}
	return cands, nil
}

// toDetections converts the kept candidates to detections labelled through the class
// vocabulary. Unknown class ids are dropped. Boxes are left unclipped.
func toDetections(cands []candidate, keep []int, classes *models.ClassSet, ts time.Time) []models.Detection {
	sort.Ints(keep)

	dets := make([]models.Detection, 0, len(keep))
	for _, i := range keep {
		c := cands[i]
		label, ok := classes.Label(c.classID)
		if !ok {
			continue
		}
		dets = append(dets, models.Detection{
			ClassID:   c.classID,
			Label:     label,
			Score:     c.score,
			BBox:      models.BoundsFromRect(c.box),
			Timestamp: ts,
		})
	}
	return dets
}
