package storage

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"
)

// LocalStore writes JPEG snapshots into a directory that is created on first use.
type LocalStore struct {
	dir     string
	quality int

	mu    sync.Mutex
	ready bool
}

func NewLocalStore(dir string, quality int) *LocalStore {
	return &LocalStore{dir: dir, quality: quality}
}

func (s *LocalStore) Dir() string { return s.dir }

func (s *LocalStore) Save(ctx context.Context, name string, img image.Image) (string, error) {
	path := filepath.Join(s.dir, name)

	if err := ctx.Err(); err != nil {
		return path, &WriteError{Path: path, Err: err}
	}
	if filepath.Base(name) != name || name == "." || name == ".." {
		return path, &WriteError{Path: path, Err: fmt.Errorf("snapshot name %q is not a plain file name", name)}
	}
	if err := s.ensureDir(); err != nil {
		return path, &WriteError{Path: path, Err: err}
	}

	if err := imaging.Save(img, path, imaging.JPEGQuality(s.quality)); err != nil {
		return path, &WriteError{Path: path, Err: err}
	}

	log.Debug().Str("path", path).Msg("Snapshot written")
	return path, nil
}

// ensureDir creates the output directory. A failure is retried on the next save.
func (s *LocalStore) ensureDir() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	s.ready = true
	log.Info().Str("dir", s.dir).Msg("Snapshot directory ready")
	return nil
}
