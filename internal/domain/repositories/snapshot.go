package repositories

import "context"

// SnapshotStore persists the serialized workspace tree under a single
// fixed key. Implementations exist for Postgres, Badger and memory.
type SnapshotStore interface {
	// Save overwrites the stored snapshot.
	Save(ctx context.Context, data []byte) error

	// Load returns the stored snapshot, or domain.ErrNotFound when
	// nothing has been persisted yet.
	Load(ctx context.Context) ([]byte, error)

	Close() error
}
