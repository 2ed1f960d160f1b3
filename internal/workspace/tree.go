package workspace

import (
	"encoding/json"
	"fmt"
	"iter"
)

// Tree is the ordered sequence of root nodes. All operations on a
// tree are pure functions: they never modify their input and return
// either the input value unchanged or a new tree that shares every
// unaffected subtree with the original. This is what allows them to
// be composed safely across asynchronous steps.
type Tree []*Node

// Find returns the node with the given id, searching depth-first in
// pre-order, or nil when no node matches. Ids are unique across the
// tree, so the first match is the only one.
func Find(tree Tree, id string) *Node {
	for _, n := range tree {
		if n.ID == id {
			return n
		}
		if n.Kind == KindFolder {
			if found := Find(n.Children, id); found != nil {
				return found
			}
		}
	}
	return nil
}

// Update returns a tree where the node matching id is replaced by
// transform(node). The transform receives a clone it may modify
// freely. When id is absent the input tree is returned unchanged;
// absence is a no-op, not a failure.
func Update(tree Tree, id string, transform func(*Node) *Node) Tree {
	nodes, changed := updateNodes(tree, id, transform)
	if !changed {
		return tree
	}
	return nodes
}

func updateNodes(nodes []*Node, id string, transform func(*Node) *Node) ([]*Node, bool) {
	for i, n := range nodes {
		if n.ID == id {
			out := make([]*Node, len(nodes))
			copy(out, nodes)
			out[i] = transform(n.Clone())
			return out, true
		}
		if n.Kind == KindFolder {
			children, changed := updateNodes(n.Children, id, transform)
			if changed {
				out := make([]*Node, len(nodes))
				copy(out, nodes)
				folder := n.Clone()
				folder.Children = children
				out[i] = folder
				return out, true
			}
		}
	}
	return nodes, false
}

// Remove returns a tree without the node matching id. Removing a
// folder removes its entire subtree. Siblings keep their relative
// order. When id is absent the input tree is returned unchanged.
func Remove(tree Tree, id string) Tree {
	nodes, changed := removeNodes(tree, id)
	if !changed {
		return tree
	}
	return nodes
}

func removeNodes(nodes []*Node, id string) ([]*Node, bool) {
	for i, n := range nodes {
		if n.ID == id {
			out := make([]*Node, 0, len(nodes)-1)
			out = append(out, nodes[:i]...)
			out = append(out, nodes[i+1:]...)
			return out, true
		}
		if n.Kind == KindFolder {
			children, changed := removeNodes(n.Children, id)
			if changed {
				out := make([]*Node, len(nodes))
				copy(out, nodes)
				folder := n.Clone()
				folder.Children = children
				out[i] = folder
				return out, true
			}
		}
	}
	return nodes, false
}

// Collect yields every file node satisfying pred, in pre-order.
// Folders are traversed but never yielded.
func Collect(tree Tree, pred func(*Node) bool) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		collectNodes(tree, pred, yield)
	}
}

func collectNodes(nodes []*Node, pred func(*Node) bool, yield func(*Node) bool) bool {
	for _, n := range nodes {
		if n.Kind == KindFile && pred(n) {
			if !yield(n) {
				return false
			}
		}
		if n.Kind == KindFolder {
			if !collectNodes(n.Children, pred, yield) {
				return false
			}
		}
	}
	return true
}

// InsertAtRoot returns a tree with node appended to the root sequence.
func InsertAtRoot(tree Tree, node *Node) Tree {
	out := make(Tree, 0, len(tree)+1)
	out = append(out, tree...)
	out = append(out, node)
	return out
}

// Encode serializes the tree to its persisted JSON form: the tagged
// union shape with a "kind" discriminator per node.
func Encode(tree Tree) ([]byte, error) {
	data, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("encode tree: %w", err)
	}
	return data, nil
}

// Decode parses a persisted tree. Nodes with a missing id or an
// unknown kind make the snapshot malformed; callers are expected to
// fall back to the seed tree rather than attempt partial recovery.
func Decode(data []byte) (Tree, error) {
	var tree Tree
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("decode tree: %w", err)
	}
	if err := validateNodes(tree, map[string]struct{}{}); err != nil {
		return nil, fmt.Errorf("decode tree: %w", err)
	}
	return tree, nil
}

func validateNodes(nodes []*Node, seen map[string]struct{}) error {
	for _, n := range nodes {
		if n == nil || n.ID == "" {
			return fmt.Errorf("node without id")
		}
		if n.Kind != KindFile && n.Kind != KindFolder {
			return fmt.Errorf("node %s: unknown kind %q", n.ID, n.Kind)
		}
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("duplicate node id %s", n.ID)
		}
		seen[n.ID] = struct{}{}
		if n.Kind == KindFolder {
			if err := validateNodes(n.Children, seen); err != nil {
				return err
			}
		}
	}
	return nil
}
