package services

import (
	"context"

	"canopy/internal/workspace"
)

// DocumentAnalyzer is the external analysis capability. Failures are
// reported as *domain.AnalysisError; the caller never stores a
// partial result.
type DocumentAnalyzer interface {
	AnalyzeDocument(ctx context.Context, name string, content []byte, mimeType string) (*workspace.Analysis, error)
}

// ImageComparator is the external pairwise comparison capability used
// by smart tag propagation. It reports whether the two images share
// the same visual subject. A returned error counts as a non-match for
// that pair only; it never aborts a propagation run.
type ImageComparator interface {
	CompareImages(ctx context.Context, a, b *workspace.Node) (bool, error)
}
