package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"canopy/internal/domain"
)

// snapshotKey is the single fixed key the whole tree is stored under.
const snapshotKey = "workspace"

// SnapshotRepository stores the serialized workspace tree in a
// single-row Postgres table keyed by snapshotKey.
type SnapshotRepository struct {
	pool   *pgxpool.Pool
	table  string
	logger *slog.Logger
}

// NewSnapshotRepository creates a snapshot repository using the given
// table name (environment-prefixed by the caller).
func NewSnapshotRepository(pool *pgxpool.Pool, table string, logger *slog.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		pool:   pool,
		table:  table,
		logger: logger,
	}
}

// EnsureSchema creates the snapshot table when it does not exist.
func (r *SnapshotRepository) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key        TEXT PRIMARY KEY,
			data       JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`, r.table)

	if _, err := r.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("ensure snapshot schema: %w", err)
	}
	return nil
}

// Save overwrites the stored snapshot.
func (r *SnapshotRepository) Save(ctx context.Context, data []byte) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (key, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = now()
	`, r.table)

	if _, err := r.pool.Exec(ctx, query, snapshotKey, data); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	r.logger.Debug("snapshot saved", "table", r.table, "bytes", len(data))
	return nil
}

// Load returns the stored snapshot, or domain.ErrNotFound when no
// snapshot has been written yet.
func (r *SnapshotRepository) Load(ctx context.Context) ([]byte, error) {
	query := fmt.Sprintf(`SELECT data FROM %s WHERE key = $1`, r.table)

	var data []byte
	err := r.pool.QueryRow(ctx, query, snapshotKey).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("snapshot: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	return data, nil
}

// Close releases the connection pool.
func (r *SnapshotRepository) Close() error {
	r.pool.Close()
	return nil
}
