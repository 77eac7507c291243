package models

import (
	"image"
	"time"
)

// Bounds is an axis-aligned box in frame pixel coordinates.
type Bounds struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Rect converts the bounds without canonicalizing, so inverted bounds stay empty.
func (b Bounds) Rect() image.Rectangle {
	return image.Rectangle{Min: image.Pt(b.X1, b.Y1), Max: image.Pt(b.X2, b.Y2)}
}

func (b Bounds) Width() int  { return b.X2 - b.X1 }
func (b Bounds) Height() int { return b.Y2 - b.Y1 }

func BoundsFromRect(r image.Rectangle) Bounds {
	return Bounds{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y}
}

// Detection is a single labelled box produced by the detector for one frame.
type Detection struct {
	ClassID   int       `json:"class_id"`
	Label     string    `json:"label"`
	Score     float32   `json:"score"`
	BBox      Bounds    `json:"bbox"`
	Timestamp time.Time `json:"timestamp"`
}

// Frame is one image pulled from a frame source.
type Frame struct {
	ID        int64
	Image     image.Image
	Timestamp time.Time
}

// FrameMetadata contains frame-level information
type FrameMetadata struct {
	SessionID   string    `json:"session_id"`
	FrameID     int64     `json:"frame_id"`
	Timestamp   time.Time `json:"timestamp"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	AllDetCount int       `json:"all_detections_count"`
}

// MessagePublisher interface for publishing violation events
type MessagePublisher interface {
	Publish(subject string, data interface{}) error
}
