package models

import (
	"image"
	"time"
)

// ViolationRecord is a persisted crop of a detection whose label is a violation class.
type ViolationRecord struct {
	Label        string      `json:"label"`
	Score        float32     `json:"score"`
	BBox         Bounds      `json:"bbox"`
	Timestamp    time.Time   `json:"timestamp"`
	SnapshotPath string      `json:"snapshot_path"`
	Persisted    bool        `json:"persisted"`
	Image        image.Image `json:"-"`
}

// GalleryItem is one entry of the on-screen gallery, oldest first.
type GalleryItem struct {
	Image     image.Image
	Label     string
	Timestamp time.Time
}

// ViolationEventType identifies the kind of event sent to subscribers
type ViolationEventType string

const (
	ViolationEventDetected ViolationEventType = "PPE_VIOLATION"
)

// ViolationEvent is the payload published to NATS, Kafka and websocket clients
type ViolationEvent struct {
	ID           string             `json:"id"`
	Type         ViolationEventType `json:"type"`
	MonitorID    string             `json:"monitor_id"`
	SessionID    string             `json:"session_id"`
	FrameID      int64              `json:"frame_id"`
	Label        string             `json:"label"`
	Confidence   float32            `json:"confidence"`
	BBox         Bounds             `json:"bbox"`
	SnapshotPath string             `json:"snapshot_path,omitempty"`
	Persisted    bool               `json:"persisted"`
	Timestamp    time.Time          `json:"timestamp"`
}

// ViolationEntry is a row of the violation journal
type ViolationEntry struct {
	ID           int64     `json:"id"`
	SessionID    string    `json:"session_id"`
	Label        string    `json:"label"`
	Confidence   float32   `json:"confidence"`
	BBox         Bounds    `json:"bbox"`
	SnapshotPath string    `json:"snapshot_path"`
	Persisted    bool      `json:"persisted"`
	CapturedAt   time.Time `json:"captured_at"`
}

// ProcessedViolations summarises event publishing for one frame
type ProcessedViolations struct {
	TotalRecords    int
	EventsPublished int
	Throttled       int
	Errors          []string
}
