package storage

import (
	"context"
	"fmt"
	"image"
)

// SnapshotStore persists violation crops under a file name and returns where they landed.
type SnapshotStore interface {
	Save(ctx context.Context, name string, img image.Image) (string, error)
}

// WriteError reports a failed snapshot write. Callers treat it as non-fatal.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write snapshot %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
