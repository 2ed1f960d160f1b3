package session

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"canopy/internal/config"
	"canopy/internal/domain"
	"canopy/internal/service/analysis"
	"canopy/internal/service/persist"
	"canopy/internal/service/propagation"
	"canopy/internal/workspace"
)

// Service owns the authoritative workspace tree. All reads and
// mutations go through it, so every observer sees a consistent tree
// after each logical step: mutations replace the whole tree value
// under a single lock and there is no ambient or global tree state.
//
// The suspension points (analysis, image comparison) run outside the
// lock against a snapshot; their results are merged back through the
// same tree algebra, so independent requests for different files can
// be outstanding concurrently.
type Service struct {
	orchestrator *analysis.Orchestrator
	engine       *propagation.Engine
	gateway      *persist.Gateway
	logger       *slog.Logger

	mu   sync.RWMutex
	tree workspace.Tree
}

// New creates the session service, restoring the tree from persisted
// storage or the fixed seed.
func New(ctx context.Context, orchestrator *analysis.Orchestrator, engine *propagation.Engine, gateway *persist.Gateway, logger *slog.Logger) *Service {
	tree := gateway.LoadOrDefault(ctx)
	logger.Info("workspace restored", "root_nodes", len(tree))

	return &Service{
		orchestrator: orchestrator,
		engine:       engine,
		gateway:      gateway,
		logger:       logger,
		tree:         tree,
	}
}

// Tree returns the current tree value. Nodes are shared and must be
// treated as immutable by callers.
func (s *Service) Tree() workspace.Tree {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree
}

// commit replaces the tree and schedules a debounced snapshot.
func (s *Service) commit(tree workspace.Tree) {
	s.tree = tree
	s.gateway.ScheduleSave(tree)
}

// Upload adds a file at the root of the workspace.
func (s *Service) Upload(name, mimeType string, content []byte) (*workspace.Node, error) {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	if mimeType == "" {
		return nil, fmt.Errorf("%w: mime type is required", domain.ErrValidation)
	}
	if len(content) > config.MaxUploadBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", domain.ErrValidation, config.MaxUploadBytes)
	}

	node := workspace.NewFile(name, "/"+name, mimeType, content)

	s.mu.Lock()
	s.commit(workspace.InsertAtRoot(s.tree, node))
	s.mu.Unlock()

	s.logger.Info("file uploaded",
		"id", node.ID,
		"name", name,
		"mime_type", mimeType,
		"bytes", len(content),
	)
	return node, nil
}

// Rename changes a node's display name.
func (s *Service) Rename(id, name string) (*workspace.Node, error) {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if workspace.Find(s.tree, id) == nil {
		return nil, fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
	}
	s.commit(workspace.Update(s.tree, id, func(n *workspace.Node) *workspace.Node {
		n.Name = name
		return n
	}))

	s.logger.Info("node renamed", "id", id, "name", name)
	return workspace.Find(s.tree, id), nil
}

// Delete removes a node. Deleting a folder removes its entire
// subtree.
func (s *Service) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if workspace.Find(s.tree, id) == nil {
		return fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
	}
	s.commit(workspace.Remove(s.tree, id))

	s.logger.Info("node deleted", "id", id)
	return nil
}

// Reset replaces the workspace with the fixed seed tree.
func (s *Service) Reset() workspace.Tree {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.commit(workspace.Seed())
	s.logger.Info("workspace reset")
	return s.tree
}

// Analyze fetches (or returns the cached) analysis for a file. The
// analyzer call runs against a snapshot outside the lock; the result
// is attached to the live tree afterwards, so a failure leaves the
// tree untouched.
func (s *Service) Analyze(ctx context.Context, id string) (*workspace.Analysis, error) {
	snapshot := s.Tree()

	_, result, err := s.orchestrator.RequestAnalysis(ctx, snapshot, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.commit(workspace.Update(s.tree, id, func(n *workspace.Node) *workspace.Node {
		if n.Analysis == nil {
			n.Analysis = result.Clone()
		}
		return n
	}))
	s.mu.Unlock()

	return result, nil
}

// PropagateTag applies a smart tag to the source image and extends it
// to every other image the comparator judges to share the same
// subject. Returns the number of newly tagged images. Only one run
// may be active at a time; an overlapping request fails with
// domain.ErrRunActive.
//
// The scan runs against a snapshot outside the lock; its matches are
// merged into the live tree as one batch, so mutations made while the
// scan was in flight are preserved.
func (s *Service) PropagateTag(ctx context.Context, id, tag string) (int, error) {
	tag = strings.TrimSpace(tag)
	if err := validateTag(tag); err != nil {
		return 0, err
	}

	snapshot := s.Tree()

	_, result, err := s.engine.PropagateTag(ctx, snapshot, id, tag)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	tree := s.tree
	for _, nodeID := range append([]string{id}, result.Matched...) {
		tree = workspace.Update(tree, nodeID, func(n *workspace.Node) *workspace.Node {
			if n.Analysis == nil {
				n.Analysis = &workspace.Analysis{Tags: workspace.TagSet{}}
			}
			n.Analysis.Tags = n.Analysis.Tags.Add(tag)
			return n
		})
	}
	s.commit(tree)
	s.mu.Unlock()

	return len(result.Matched), nil
}

// PropagationStatus returns the engine's latest progress snapshot.
func (s *Service) PropagationStatus() propagation.Status {
	return s.engine.Status()
}

// SubscribePropagation registers a propagation progress listener.
func (s *Service) SubscribePropagation() (<-chan propagation.Status, func()) {
	return s.engine.Subscribe()
}

// AnalysisBusy reports whether an analysis request is in flight.
func (s *Service) AnalysisBusy() bool {
	return s.orchestrator.Busy()
}

// PersistenceStatus returns the snapshot gateway status.
func (s *Service) PersistenceStatus() persist.Status {
	return s.gateway.Status()
}

var namePattern = regexp.MustCompile(`^[^/\x00]+$`)

func validateName(name string) error {
	err := validation.Validate(name,
		validation.Required.Error("name is required"),
		validation.Length(1, config.MaxNodeNameLength),
		validation.Match(namePattern).Error("name cannot contain slashes"),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

func validateTag(tag string) error {
	err := validation.Validate(tag,
		validation.Required.Error("tag is required"),
		validation.Length(1, config.MaxTagLength),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}
