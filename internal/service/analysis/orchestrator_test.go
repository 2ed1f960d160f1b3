package analysis

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"testing"

	"canopy/internal/domain"
	"canopy/internal/workspace"
)

type analyzerFunc func(ctx context.Context, name string, content []byte, mimeType string) (*workspace.Analysis, error)

func (f analyzerFunc) AnalyzeDocument(ctx context.Context, name string, content []byte, mimeType string) (*workspace.Analysis, error) {
	return f(ctx, name, content, mimeType)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func singleFileTree() (workspace.Tree, *workspace.Node) {
	file := workspace.NewFile("report.pdf", "/report.pdf", "application/pdf", []byte("pdf"))
	return workspace.Tree{workspace.NewFolder("Documents", "/Documents", file)}, file
}

func TestRequestAnalysisAttachesResult(t *testing.T) {
	tree, file := singleFileTree()
	want := &workspace.Analysis{
		Summary:       "A quarterly report.",
		SuggestedName: "q3-report.pdf",
		Tags:          workspace.TagSet{"report", "finance"},
		DocumentType:  "report",
	}

	calls := 0
	o := NewOrchestrator(analyzerFunc(func(_ context.Context, name string, _ []byte, _ string) (*workspace.Analysis, error) {
		calls++
		if name != "report.pdf" {
			t.Errorf("analyzer got name %q", name)
		}
		return want.Clone(), nil
	}), discardLogger())

	newTree, result, err := o.RequestAnalysis(context.Background(), tree, file.ID)
	if err != nil {
		t.Fatalf("RequestAnalysis: %v", err)
	}
	if !reflect.DeepEqual(result, want) {
		t.Errorf("result = %+v, want %+v", result, want)
	}
	if got := workspace.Find(newTree, file.ID).Analysis; !reflect.DeepEqual(got, want) {
		t.Errorf("attached analysis = %+v, want %+v", got, want)
	}
	// Input tree untouched.
	if workspace.Find(tree, file.ID).Analysis != nil {
		t.Error("input tree mutated")
	}
	if calls != 1 {
		t.Errorf("analyzer calls = %d, want 1", calls)
	}
}

func TestRequestAnalysisCacheHit(t *testing.T) {
	tree, file := singleFileTree()

	calls := 0
	o := NewOrchestrator(analyzerFunc(func(context.Context, string, []byte, string) (*workspace.Analysis, error) {
		calls++
		return &workspace.Analysis{Summary: "s", SuggestedName: "n"}, nil
	}), discardLogger())

	tree1, first, err := o.RequestAnalysis(context.Background(), tree, file.ID)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	tree2, second, err := o.RequestAnalysis(context.Background(), tree1, file.ID)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if calls != 1 {
		t.Errorf("analyzer calls = %d, want 1 (second call must hit the cache)", calls)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("cached result differs from original")
	}
	// Cache hit returns the tree unchanged.
	if !reflect.DeepEqual(tree2, tree1) {
		t.Error("cache hit changed the tree")
	}
}

func TestRequestAnalysisFailureLeavesTreeUnchanged(t *testing.T) {
	tree, file := singleFileTree()
	failure := &domain.AnalysisError{Reason: domain.ReasonQuotaExceeded, Err: errors.New("quota")}

	calls := 0
	o := NewOrchestrator(analyzerFunc(func(context.Context, string, []byte, string) (*workspace.Analysis, error) {
		calls++
		if calls == 1 {
			return nil, failure
		}
		return &workspace.Analysis{Summary: "s", SuggestedName: "n"}, nil
	}), discardLogger())

	newTree, _, err := o.RequestAnalysis(context.Background(), tree, file.ID)

	var analysisErr *domain.AnalysisError
	if !errors.As(err, &analysisErr) || analysisErr.Reason != domain.ReasonQuotaExceeded {
		t.Fatalf("err = %v, want quota AnalysisError", err)
	}
	if !reflect.DeepEqual(newTree, tree) {
		t.Error("failed analysis changed the tree")
	}
	if o.Busy() {
		t.Error("busy flag not cleared after failure")
	}

	// The failure is retryable.
	if _, _, err := o.RequestAnalysis(context.Background(), tree, file.ID); err != nil {
		t.Errorf("retry failed: %v", err)
	}
}

func TestRequestAnalysisPreconditions(t *testing.T) {
	tree, _ := singleFileTree()
	folderID := tree[0].ID

	o := NewOrchestrator(nil, discardLogger())

	if _, _, err := o.RequestAnalysis(context.Background(), tree, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing id: err = %v, want ErrNotFound", err)
	}
	if _, _, err := o.RequestAnalysis(context.Background(), tree, folderID); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("folder id: err = %v, want ErrValidation", err)
	}
}

func TestRequestAnalysisDeduplicatesTags(t *testing.T) {
	tree, file := singleFileTree()

	o := NewOrchestrator(analyzerFunc(func(context.Context, string, []byte, string) (*workspace.Analysis, error) {
		return &workspace.Analysis{
			Summary:       "s",
			SuggestedName: "n",
			Tags:          workspace.TagSet{"cat", "cat", "dog"},
		}, nil
	}), discardLogger())

	_, result, err := o.RequestAnalysis(context.Background(), tree, file.ID)
	if err != nil {
		t.Fatalf("RequestAnalysis: %v", err)
	}
	if want := (workspace.TagSet{"cat", "dog"}); !reflect.DeepEqual(result.Tags, want) {
		t.Errorf("tags = %v, want %v", result.Tags, want)
	}
}
