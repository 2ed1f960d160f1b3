package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"canopy/internal/domain"
	"canopy/internal/domain/services"
	"canopy/internal/workspace"
)

// Orchestrator fetches and caches the per-node AI analysis. A node is
// analyzed at most once: repeat requests return the cached result
// from the tree without invoking the analyzer again.
type Orchestrator struct {
	analyzer services.DocumentAnalyzer
	inFlight atomic.Int32
	logger   *slog.Logger
}

// NewOrchestrator creates a new analysis orchestrator. The analyzer
// may be nil when no provider is configured; requests then fail with
// a network-class analysis error and the tree stays unchanged.
func NewOrchestrator(analyzer services.DocumentAnalyzer, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		analyzer: analyzer,
		logger:   logger,
	}
}

// RequestAnalysis returns the tree with the analysis attached to the
// file node, plus the analysis itself. On a cache hit the input tree
// is returned unchanged and no analyzer call is made. On failure the
// input tree is returned unchanged and the error is retryable.
func (o *Orchestrator) RequestAnalysis(ctx context.Context, tree workspace.Tree, fileID string) (workspace.Tree, *workspace.Analysis, error) {
	node := workspace.Find(tree, fileID)
	if node == nil {
		return tree, nil, fmt.Errorf("file %s: %w", fileID, domain.ErrNotFound)
	}
	if !node.IsFile() {
		return tree, nil, fmt.Errorf("%w: node %s is a folder, only files can be analyzed", domain.ErrValidation, fileID)
	}
	if node.Analysis != nil {
		o.logger.Debug("analysis cache hit", "id", fileID)
		return tree, node.Analysis.Clone(), nil
	}

	if o.analyzer == nil {
		return tree, nil, &domain.AnalysisError{
			Reason: domain.ReasonNetwork,
			Err:    fmt.Errorf("no analyzer provider configured"),
		}
	}

	o.inFlight.Add(1)
	defer o.inFlight.Add(-1)

	result, err := o.analyzer.AnalyzeDocument(ctx, node.Name, node.Content, node.MimeType)
	if err != nil {
		o.logger.Warn("analysis failed", "id", fileID, "error", err)
		return tree, nil, err
	}

	// Normalize before attaching; the dedup invariant must hold no
	// matter what the provider returned.
	result.Tags = workspace.TagSet{}.Add(result.Tags...)

	newTree := workspace.Update(tree, fileID, func(n *workspace.Node) *workspace.Node {
		n.Analysis = result.Clone()
		return n
	})

	o.logger.Info("analysis attached",
		"id", fileID,
		"name", node.Name,
		"document_type", result.DocumentType,
	)

	return newTree, result, nil
}

// Busy reports whether any analysis request is currently in flight.
// It is set for the duration of every analyzer call and cleared on
// success and failure alike.
func (o *Orchestrator) Busy() bool {
	return o.inFlight.Load() > 0
}
