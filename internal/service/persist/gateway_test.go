package persist

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"canopy/internal/domain"
	"canopy/internal/workspace"
)

// recordingStore counts writes and keeps the last payload.
type recordingStore struct {
	mu     sync.Mutex
	writes int
	last   []byte
	data   []byte
	fail   error
}

func (s *recordingStore) Save(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.writes++
	s.last = data
	return nil
}

func (s *recordingStore) Load(context.Context) ([]byte, error) {
	if s.data == nil {
		return nil, domain.ErrNotFound
	}
	return s.data, nil
}

func (s *recordingStore) Close() error { return nil }

func (s *recordingStore) snapshot() (int, []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes, s.last
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func namedTree(name string) workspace.Tree {
	return workspace.Tree{workspace.NewFile(name, "/"+name, "text/plain", nil)}
}

func TestScheduleSaveDebounces(t *testing.T) {
	store := &recordingStore{}
	g := NewGateway(store, 30*time.Millisecond, discardLogger())
	defer g.Close()

	// Rapid calls inside the window must coalesce into one write of
	// the last tree.
	g.ScheduleSave(namedTree("first"))
	g.ScheduleSave(namedTree("second"))
	last := namedTree("last")
	g.ScheduleSave(last)

	deadline := time.After(2 * time.Second)
	for {
		writes, _ := store.snapshot()
		if writes > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("debounced write never fired")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// Give a superseded timer a chance to misfire.
	time.Sleep(60 * time.Millisecond)

	writes, data := store.snapshot()
	if writes != 1 {
		t.Fatalf("writes = %d, want 1", writes)
	}
	tree, err := workspace.Decode(data)
	if err != nil {
		t.Fatalf("persisted data malformed: %v", err)
	}
	if tree[0].Name != "last" {
		t.Errorf("persisted tree = %q, want the last scheduled tree", tree[0].Name)
	}
	if g.Status() != StatusSaved {
		t.Errorf("status = %q, want %q", g.Status(), StatusSaved)
	}
}

func TestCloseFlushesPendingSave(t *testing.T) {
	store := &recordingStore{}
	g := NewGateway(store, time.Hour, discardLogger())

	g.ScheduleSave(namedTree("pending"))
	if err := g.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	writes, data := store.snapshot()
	if writes != 1 {
		t.Fatalf("writes after close = %d, want 1", writes)
	}
	tree, err := workspace.Decode(data)
	if err != nil {
		t.Fatalf("persisted data malformed: %v", err)
	}
	if tree[0].Name != "pending" {
		t.Error("Close wrote the wrong tree")
	}

	// Saves after close are ignored.
	g.ScheduleSave(namedTree("late"))
	time.Sleep(20 * time.Millisecond)
	if writes, _ := store.snapshot(); writes != 1 {
		t.Errorf("writes after late schedule = %d, want 1", writes)
	}
}

func TestWriteFailureSetsErrorStatus(t *testing.T) {
	store := &recordingStore{fail: errors.New("disk full")}
	g := NewGateway(store, time.Millisecond, discardLogger())
	defer g.Close()

	g.ScheduleSave(namedTree("doomed"))

	deadline := time.After(2 * time.Second)
	for g.Status() != StatusError {
		select {
		case <-deadline:
			t.Fatalf("status = %q, want %q", g.Status(), StatusError)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestLoadOrDefault(t *testing.T) {
	t.Run("absent snapshot falls back to seed", func(t *testing.T) {
		g := NewGateway(&recordingStore{}, time.Minute, discardLogger())
		tree := g.LoadOrDefault(context.Background())
		if len(tree) == 0 {
			t.Fatal("seed tree is empty")
		}
	})

	t.Run("malformed snapshot falls back to seed", func(t *testing.T) {
		g := NewGateway(&recordingStore{data: []byte("{not json")}, time.Minute, discardLogger())
		tree := g.LoadOrDefault(context.Background())
		if len(tree) == 0 {
			t.Fatal("seed tree is empty")
		}
	})

	t.Run("valid snapshot is restored", func(t *testing.T) {
		data, err := workspace.Encode(namedTree("restored"))
		if err != nil {
			t.Fatal(err)
		}
		g := NewGateway(&recordingStore{data: data}, time.Minute, discardLogger())
		tree := g.LoadOrDefault(context.Background())
		if len(tree) != 1 || tree[0].Name != "restored" {
			t.Errorf("restored tree = %+v", tree)
		}
	})
}
