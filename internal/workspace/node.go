package workspace

import (
	"strings"

	"github.com/google/uuid"
)

// Kind discriminates the two node variants in the workspace tree.
type Kind string

const (
	KindFile   Kind = "file"
	KindFolder Kind = "folder"
)

// Analysis holds the AI-generated analysis for a file node.
// An analysis is either absent (nil) or fully populated; partial
// analyses are never attached to the tree. The one exception is the
// empty shell created when a tag is applied to a file that has not
// been analyzed yet.
type Analysis struct {
	Summary       string `json:"summary"`
	SuggestedName string `json:"suggested_name"`
	Tags          TagSet `json:"tags"`
	DocumentType  string `json:"document_type"`
}

// Clone returns an independent copy of the analysis.
func (a *Analysis) Clone() *Analysis {
	if a == nil {
		return nil
	}
	out := *a
	out.Tags = a.Tags.Clone()
	return &out
}

// Node is the tagged union forming the workspace hierarchy.
// File nodes carry content, mime type and an optional analysis.
// Folder nodes carry an ordered child sequence; child order is
// display order and is preserved across all tree operations.
type Node struct {
	ID       string    `json:"id"`
	Kind     Kind      `json:"kind"`
	Name     string    `json:"name"`
	Path     string    `json:"path,omitempty"`
	MimeType string    `json:"mime_type,omitempty"`
	Content  []byte    `json:"content,omitempty"`
	Analysis *Analysis `json:"analysis,omitempty"`
	Children []*Node   `json:"children,omitempty"`
}

// NewFile creates a file node with a freshly assigned id.
// Content and mime type are immutable after creation.
func NewFile(name, path, mimeType string, content []byte) *Node {
	return &Node{
		ID:       uuid.New().String(),
		Kind:     KindFile,
		Name:     name,
		Path:     path,
		MimeType: mimeType,
		Content:  content,
	}
}

// NewFolder creates a folder node with a freshly assigned id.
func NewFolder(name, path string, children ...*Node) *Node {
	if children == nil {
		children = []*Node{}
	}
	return &Node{
		ID:       uuid.New().String(),
		Kind:     KindFolder,
		Name:     name,
		Path:     path,
		Children: children,
	}
}

// IsFile reports whether the node is a file.
func (n *Node) IsFile() bool {
	return n.Kind == KindFile
}

// IsImage reports whether the node is a file with an image mime type.
func (n *Node) IsImage() bool {
	return n.Kind == KindFile && strings.HasPrefix(n.MimeType, "image/")
}

// HasTag reports whether the node carries the tag in its analysis.
// Nodes without an analysis carry no tags.
func (n *Node) HasTag(tag string) bool {
	return n.Analysis != nil && n.Analysis.Tags.Contains(tag)
}

// Clone returns a copy of the node that is safe to modify without
// affecting the original. Content bytes are shared (immutable after
// creation); the analysis is deep-copied and the child slice is
// copied one level deep.
func (n *Node) Clone() *Node {
	out := *n
	out.Analysis = n.Analysis.Clone()
	if n.Children != nil {
		out.Children = make([]*Node, len(n.Children))
		copy(out.Children, n.Children)
	}
	return &out
}
