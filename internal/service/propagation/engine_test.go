package propagation

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"testing"

	"canopy/internal/domain"
	"canopy/internal/workspace"
)

type comparatorFunc func(ctx context.Context, a, b *workspace.Node) (bool, error)

func (f comparatorFunc) CompareImages(ctx context.Context, a, b *workspace.Node) (bool, error) {
	return f(ctx, a, b)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// imageTree builds a folder of image files plus one text file and
// returns the tree with the named nodes.
func imageTree() (workspace.Tree, map[string]*workspace.Node) {
	src := workspace.NewFile("source.png", "/Images/source.png", "image/png", []byte{1})
	b := workspace.NewFile("b.png", "/Images/b.png", "image/png", []byte{2})
	c := workspace.NewFile("c.jpg", "/Images/c.jpg", "image/jpeg", []byte{3})
	d := workspace.NewFile("d.png", "/Images/d.png", "image/png", []byte{4})
	notes := workspace.NewFile("notes.md", "/notes.md", "text/markdown", []byte("x"))
	folder := workspace.NewFolder("Images", "/Images", src, b, c, d)

	tree := workspace.Tree{folder, notes}
	return tree, map[string]*workspace.Node{"src": src, "b": b, "c": c, "d": d, "notes": notes}
}

func taggedIDs(tree workspace.Tree, tag string) []string {
	var out []string
	for n := range workspace.Collect(tree, func(n *workspace.Node) bool { return n.HasTag(tag) }) {
		out = append(out, n.ID)
	}
	return out
}

func TestPropagateTagSubsetMatch(t *testing.T) {
	tree, nodes := imageTree()
	matchSet := map[string]bool{nodes["b"].ID: true, nodes["d"].ID: true}

	engine := NewEngine(comparatorFunc(func(_ context.Context, _, candidate *workspace.Node) (bool, error) {
		return matchSet[candidate.ID], nil
	}), discardLogger())

	got, result, err := engine.PropagateTag(context.Background(), tree, nodes["src"].ID, "cat")
	if err != nil {
		t.Fatalf("PropagateTag: %v", err)
	}

	// Exactly source + matched carry the tag, in pre-order.
	want := []string{nodes["src"].ID, nodes["b"].ID, nodes["d"].ID}
	if !slices.Equal(taggedIDs(got, "cat"), want) {
		t.Errorf("tagged = %v, want %v", taggedIDs(got, "cat"), want)
	}
	if len(result.Matched) != 2 {
		t.Errorf("matched = %d, want 2", len(result.Matched))
	}
	if result.Compared != 3 {
		t.Errorf("compared = %d, want 3", result.Compared)
	}
	// Input tree untouched.
	if got := taggedIDs(tree, "cat"); got != nil {
		t.Errorf("input tree mutated: %v", got)
	}
}

func TestPropagateTagNoMatches(t *testing.T) {
	tree, nodes := imageTree()

	engine := NewEngine(comparatorFunc(func(context.Context, *workspace.Node, *workspace.Node) (bool, error) {
		return false, nil
	}), discardLogger())

	got, result, err := engine.PropagateTag(context.Background(), tree, nodes["src"].ID, "cat")
	if err != nil {
		t.Fatalf("PropagateTag: %v", err)
	}
	if len(result.Matched) != 0 {
		t.Errorf("matched = %d, want 0", len(result.Matched))
	}
	if want := []string{nodes["src"].ID}; !slices.Equal(taggedIDs(got, "cat"), want) {
		t.Errorf("tagged = %v, want only source", taggedIDs(got, "cat"))
	}
}

func TestPropagateTagComparatorFailureIsLocal(t *testing.T) {
	tree, nodes := imageTree()

	// b errors, c matches, d does not: the failure must not abort the
	// scan or affect other candidates.
	engine := NewEngine(comparatorFunc(func(_ context.Context, _, candidate *workspace.Node) (bool, error) {
		switch candidate.ID {
		case nodes["b"].ID:
			return false, errors.New("comparator exploded")
		case nodes["c"].ID:
			return true, nil
		}
		return false, nil
	}), discardLogger())

	got, result, err := engine.PropagateTag(context.Background(), tree, nodes["src"].ID, "cat")
	if err != nil {
		t.Fatalf("PropagateTag: %v", err)
	}
	if want := []string{nodes["c"].ID}; !slices.Equal(result.Matched, want) {
		t.Errorf("matched = %v, want %v", result.Matched, want)
	}
	if want := []string{nodes["src"].ID, nodes["c"].ID}; !slices.Equal(taggedIDs(got, "cat"), want) {
		t.Errorf("tagged = %v, want %v", taggedIDs(got, "cat"), want)
	}
}

func TestPropagateTagSkipsAlreadyTagged(t *testing.T) {
	tree, nodes := imageTree()
	tree = workspace.Update(tree, nodes["b"].ID, func(n *workspace.Node) *workspace.Node {
		n.Analysis = &workspace.Analysis{Tags: workspace.TagSet{"cat"}}
		return n
	})

	var compared []string
	engine := NewEngine(comparatorFunc(func(_ context.Context, _, candidate *workspace.Node) (bool, error) {
		compared = append(compared, candidate.ID)
		return false, nil
	}), discardLogger())

	_, _, err := engine.PropagateTag(context.Background(), tree, nodes["src"].ID, "cat")
	if err != nil {
		t.Fatalf("PropagateTag: %v", err)
	}
	if slices.Contains(compared, nodes["b"].ID) {
		t.Error("already-tagged candidate was compared again")
	}
	if want := []string{nodes["c"].ID, nodes["d"].ID}; !slices.Equal(compared, want) {
		t.Errorf("compared = %v, want %v", compared, want)
	}
}

func TestPropagateTagNoCandidates(t *testing.T) {
	src := workspace.NewFile("only.png", "/only.png", "image/png", []byte{1})
	tree := workspace.Tree{src}

	engine := NewEngine(comparatorFunc(func(context.Context, *workspace.Node, *workspace.Node) (bool, error) {
		t.Error("comparator invoked with no candidates")
		return false, nil
	}), discardLogger())

	got, result, err := engine.PropagateTag(context.Background(), tree, src.ID, "cat")
	if err != nil {
		t.Fatalf("PropagateTag: %v", err)
	}
	if result.Compared != 0 || len(result.Matched) != 0 {
		t.Errorf("result = %+v, want empty", result)
	}
	// Source still gets the tag.
	if !workspace.Find(got, src.ID).HasTag("cat") {
		t.Error("source not tagged")
	}
}

func TestPropagateTagSourceErrors(t *testing.T) {
	tree, nodes := imageTree()
	engine := NewEngine(comparatorFunc(func(context.Context, *workspace.Node, *workspace.Node) (bool, error) {
		return false, nil
	}), discardLogger())

	if _, _, err := engine.PropagateTag(context.Background(), tree, "missing", "cat"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing source: err = %v, want ErrNotFound", err)
	}
	if _, _, err := engine.PropagateTag(context.Background(), tree, nodes["notes"].ID, "cat"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("non-image source: err = %v, want ErrValidation", err)
	}
}

func TestPropagateTagRejectsOverlappingRun(t *testing.T) {
	tree, nodes := imageTree()

	started := make(chan struct{})
	release := make(chan struct{})
	engine := NewEngine(comparatorFunc(func(context.Context, *workspace.Node, *workspace.Node) (bool, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return false, nil
	}), discardLogger())

	done := make(chan error, 1)
	go func() {
		_, _, err := engine.PropagateTag(context.Background(), tree, nodes["src"].ID, "cat")
		done <- err
	}()

	<-started
	if _, _, err := engine.PropagateTag(context.Background(), tree, nodes["src"].ID, "dog"); !errors.Is(err, domain.ErrRunActive) {
		t.Errorf("overlapping run: err = %v, want ErrRunActive", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if engine.Running() {
		t.Error("engine still marked running after run completed")
	}
}

func TestPropagateTagPublishesProgress(t *testing.T) {
	tree, nodes := imageTree()

	engine := NewEngine(comparatorFunc(func(context.Context, *workspace.Node, *workspace.Node) (bool, error) {
		return true, nil
	}), discardLogger())

	statuses, cancel := engine.Subscribe()
	defer cancel()

	_, _, err := engine.PropagateTag(context.Background(), tree, nodes["src"].ID, "cat")
	if err != nil {
		t.Fatalf("PropagateTag: %v", err)
	}

	var phases []Phase
	for {
		select {
		case st := <-statuses:
			phases = append(phases, st.Phase)
			if len(phases) > 2 && st.Phase == PhaseIdle {
				// Final idle published after the run.
				if !slices.Contains(phases, PhaseComparing) {
					t.Errorf("no comparing phase observed: %v", phases)
				}
				return
			}
		default:
			t.Fatalf("status feed ended early: %v", phases)
		}
	}
}
