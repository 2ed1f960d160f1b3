package persist

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"canopy/internal/domain/repositories"
	"canopy/internal/workspace"
)

// Status reflects the outcome of the most recent snapshot write. It
// exists for observability only; the in-memory tree stays
// authoritative whatever the status says.
type Status string

const (
	StatusIdle   Status = "idle"
	StatusSaving Status = "saving"
	StatusSaved  Status = "saved"
	StatusError  Status = "error"
)

// Gateway persists the workspace tree with a debounce: each
// ScheduleSave restarts a fixed-duration timer and only the tree
// present when the timer fires is written. Trees superseded inside
// the window are never persisted. A pending save is either completed
// or cleanly superseded, never silently lost: Close flushes whatever
// is still pending.
type Gateway struct {
	store    repositories.SnapshotStore
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	pending workspace.Tree
	status  Status
	closed  bool
}

// NewGateway creates a persistence gateway writing through store
// after the given quiet period.
func NewGateway(store repositories.SnapshotStore, interval time.Duration, logger *slog.Logger) *Gateway {
	return &Gateway{
		store:    store,
		interval: interval,
		logger:   logger,
		status:   StatusIdle,
	}
}

// ScheduleSave records tree as the next snapshot and restarts the
// debounce timer. Calling it again before the timer fires replaces
// the pending tree; only the last one is written.
func (g *Gateway) ScheduleSave(tree workspace.Tree) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return
	}
	g.pending = tree
	if g.timer != nil {
		g.timer.Stop()
	}
	g.timer = time.AfterFunc(g.interval, g.flush)
}

// flush writes the pending tree, if any. Runs on the timer goroutine.
func (g *Gateway) flush() {
	g.mu.Lock()
	tree := g.pending
	g.pending = nil
	g.timer = nil
	if tree == nil {
		g.mu.Unlock()
		return
	}
	g.status = StatusSaving
	g.mu.Unlock()

	g.write(tree)
}

func (g *Gateway) write(tree workspace.Tree) {
	data, err := workspace.Encode(tree)
	if err == nil {
		err = g.store.Save(context.Background(), data)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil {
		g.status = StatusError
		g.logger.Error("snapshot write failed", "error", err)
		return
	}
	g.status = StatusSaved
	g.logger.Debug("snapshot written", "bytes", len(data))
}

// LoadOrDefault restores the persisted tree. An absent or malformed
// snapshot falls back silently to the seed workspace; no partial
// recovery is attempted.
func (g *Gateway) LoadOrDefault(ctx context.Context) workspace.Tree {
	data, err := g.store.Load(ctx)
	if err != nil {
		g.logger.Info("no usable snapshot, starting from seed", "reason", err)
		return workspace.Seed()
	}

	tree, err := workspace.Decode(data)
	if err != nil {
		g.logger.Warn("snapshot malformed, starting from seed", "error", err)
		return workspace.Seed()
	}
	return tree
}

// Status returns the latest snapshot write status.
func (g *Gateway) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// Close stops the debounce timer and synchronously writes any pending
// tree so a scheduled save is never dropped on teardown. The gateway
// accepts no further saves afterwards.
func (g *Gateway) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	tree := g.pending
	g.pending = nil
	if tree != nil {
		g.status = StatusSaving
	}
	g.mu.Unlock()

	if tree != nil {
		g.write(tree)
	}
	return nil
}
