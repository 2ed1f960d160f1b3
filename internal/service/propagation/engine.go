package propagation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"canopy/internal/domain"
	"canopy/internal/domain/services"
	"canopy/internal/workspace"
)

// Engine runs the smart tag propagation workflow: tag a source image,
// compare it against every other image in the workspace one pair at a
// time, and apply the tag to all matches in a single batch commit.
//
// At most one run may be active at a time; overlapping runs are
// rejected with domain.ErrRunActive rather than queued.
type Engine struct {
	comparator services.ImageComparator
	logger     *slog.Logger

	running atomic.Bool

	mu     sync.Mutex
	status Status
	subs   map[chan Status]struct{}
}

// Result reports the outcome of one propagation run.
type Result struct {
	// Matched holds the ids of candidates the comparator confirmed,
	// in scan order.
	Matched []string
	// Compared is the number of candidates scanned.
	Compared int
}

// NewEngine creates a propagation engine.
func NewEngine(comparator services.ImageComparator, logger *slog.Logger) *Engine {
	return &Engine{
		comparator: comparator,
		logger:     logger,
		status:     idleStatus(),
		subs:       make(map[chan Status]struct{}),
	}
}

// PropagateTag applies tag to the source file, scans all other images
// for the same subject and returns a tree where exactly the source
// plus the matched candidates carry the tag.
//
// The scan is sequential: one comparison at a time, with progress
// published before each pair. A comparator failure counts as a
// non-match for that candidate only and never aborts the run.
// Matches are accumulated and committed in one batch at the end, so
// given a fixed tree, source, tag and comparator the resulting tree
// and match count are deterministic regardless of timing.
func (e *Engine) PropagateTag(ctx context.Context, tree workspace.Tree, sourceID, tag string) (workspace.Tree, *Result, error) {
	if !e.running.CompareAndSwap(false, true) {
		return tree, nil, domain.ErrRunActive
	}
	defer e.running.Store(false)
	defer e.publish(idleStatus())

	source := workspace.Find(tree, sourceID)
	if source == nil {
		return tree, nil, fmt.Errorf("source file %s: %w", sourceID, domain.ErrNotFound)
	}
	if !source.IsImage() {
		return tree, nil, fmt.Errorf("%w: smart tags can only be propagated from image files", domain.ErrValidation)
	}
	if e.comparator == nil {
		return tree, nil, &domain.AnalysisError{Reason: domain.ReasonNetwork, Err: errors.New("no image comparator configured")}
	}

	// Step 1: tag the source. This commits synchronously; every later
	// step reads the returned tree, never a delayed re-fetch of the
	// pre-tag state.
	tree = workspace.Update(tree, sourceID, addTag(tag))
	source = workspace.Find(tree, sourceID)

	// Step 2: gather candidates. Images already carrying the tag are
	// skipped, which makes propagation idempotent per target.
	e.publish(Status{Phase: PhaseScanning, Tag: tag})
	candidates := slices.Collect(workspace.Collect(tree, func(n *workspace.Node) bool {
		return n.IsImage() && n.ID != sourceID && !n.HasTag(tag)
	}))

	// Step 3: nothing to compare against; the tree already reflects
	// the tagged source.
	if len(candidates) == 0 {
		e.logger.Info("propagation finished early", "tag", tag, "source", sourceID)
		e.publish(Status{Phase: PhaseFinalizing, Tag: tag, Message: "no other images to compare"})
		return tree, &Result{}, nil
	}

	// Step 4: sequential comparison scan. Exactly one comparison is
	// in flight at any moment, which keeps external service load
	// bounded and lets progress be reported pair by pair.
	total := len(candidates)
	var matched []string
	for i, candidate := range candidates {
		e.publish(comparingStatus(tag, i+1, total))

		same, err := e.comparator.CompareImages(ctx, source, candidate)
		if err != nil {
			// Localized failure: this candidate is a non-match, the
			// scan continues.
			e.logger.Warn("comparison failed, treating as non-match",
				"source", sourceID,
				"candidate", candidate.ID,
				"error", err,
			)
			continue
		}
		if same {
			matched = append(matched, candidate.ID)
		}
	}

	// Step 5: batch apply. One logical commit for all matches; no
	// intermediate tree is ever handed to a caller.
	e.publish(Status{
		Phase:   PhaseFinalizing,
		Tag:     tag,
		Total:   total,
		Message: fmt.Sprintf("tagged %d of %d images", len(matched), total),
	})
	for _, id := range matched {
		tree = workspace.Update(tree, id, addTag(tag))
	}

	e.logger.Info("propagation complete",
		"tag", tag,
		"source", sourceID,
		"compared", total,
		"matched", len(matched),
	)

	return tree, &Result{Matched: matched, Compared: total}, nil
}

// addTag returns a transform that adds tag to a node's analysis,
// creating an empty analysis shell when the node has none yet.
func addTag(tag string) func(*workspace.Node) *workspace.Node {
	return func(n *workspace.Node) *workspace.Node {
		if n.Analysis == nil {
			n.Analysis = &workspace.Analysis{Tags: workspace.TagSet{}}
		}
		n.Analysis.Tags = n.Analysis.Tags.Add(tag)
		return n
	}
}

// Running reports whether a propagation run is currently active.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Status returns the latest published status snapshot.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Subscribe registers a progress listener. The returned channel
// receives every published status; slow listeners miss intermediate
// updates rather than blocking the scan. Call the returned cancel
// function when done.
func (e *Engine) Subscribe() (<-chan Status, func()) {
	ch := make(chan Status, 16)

	e.mu.Lock()
	e.subs[ch] = struct{}{}
	ch <- e.status
	e.mu.Unlock()

	cancel := func() {
		e.mu.Lock()
		if _, ok := e.subs[ch]; ok {
			delete(e.subs, ch)
			close(ch)
		}
		e.mu.Unlock()
	}
	return ch, cancel
}

func (e *Engine) publish(status Status) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status = status
	for ch := range e.subs {
		select {
		case ch <- status:
		default:
		}
	}
}
