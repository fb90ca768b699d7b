package driven

import (
	"context"

	"monarchwatch/internal/domain/model"
)

// SnapshotStore persists published snapshots so the latest one survives
// restarts and recent poll cycles can be listed.
type SnapshotStore interface {
	// Save records a published snapshot and its derived summary.
	Save(ctx context.Context, snap model.Snapshot) error
	// Latest returns the most recently saved snapshot, or nil when the
	// store is empty.
	Latest(ctx context.Context) (*model.Snapshot, error)
	// History returns summaries of the most recent poll cycles, newest
	// first, at most limit entries.
	History(ctx context.Context, limit int) ([]model.SnapshotRecord, error)
}
