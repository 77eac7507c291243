package storage

import (
	"context"
	"image"

	"github.com/rs/zerolog/log"
)

// Mirror saves to a primary store and copies each snapshot to replicas.
// Only the primary result is reported; replica failures are logged.
type Mirror struct {
	primary  SnapshotStore
	replicas []SnapshotStore
}

func NewMirror(primary SnapshotStore, replicas ...SnapshotStore) *Mirror {
	return &Mirror{primary: primary, replicas: replicas}
}

func (m *Mirror) Save(ctx context.Context, name string, img image.Image) (string, error) {
	path, err := m.primary.Save(ctx, name, img)

	for _, r := range m.replicas {
		if loc, rerr := r.Save(ctx, name, img); rerr != nil {
			log.Warn().Err(rerr).Str("location", loc).Msg("Snapshot replica write failed")
		}
	}

	return path, err
}
