package treeconf

import (
	"time"

	"gopkg.in/yaml.v3"
)

// Tree is the answer a source gives when asked for a subtree.
//
// Path is the absolute path the returned value is rooted at. It must be the
// requested path or an ancestor of it; callers descend the rest themselves.
// A nil Value means the source has nothing for the requested path, which is
// an expected, common case and not an error.
type Tree struct {
	Path  string
	Value any
	MTime time.Time
}

// TreeSource is the interface the merge engine consumes from every
// configuration source. How a source obtains its tree (file, directory walk,
// environment, process arguments) is its own business.
type TreeSource interface {
	// ID identifies the source within a composition, it becomes part of the
	// compositor's cache key.
	ID() string
	// GetTreeFor returns a tree rooted at wanted or at one of its ancestors.
	GetTreeFor(wanted string) (Tree, error)
}

// MutableSource is implemented by sources that support writes. Composed
// views are never mutable, mutation must target one individual source.
type MutableSource interface {
	TreeSource

	// Set stores value at path, creating intermediate mappings as needed,
	// and returns the previous value at that leaf, if any.
	Set(path string, value any) (any, error)
	// Unset removes the leaf at path and returns its previous value.
	// Removing a missing leaf is a no-op.
	Unset(path string) (any, error)
	// Save persists pending modifications. It returns ErrNotModified when
	// there is nothing to do.
	Save() error
}

// copyTree clones a tree's value so the recipient cannot reach into the
// original.
func copyTree(t Tree) Tree {
	return Tree{Path: t.Path, Value: deepCopy(t.Value), MTime: t.MTime}
}

// storeAt walks root along segs, creating intermediate mappings as needed,
// and stores value at the leaf. An intermediate that is missing or not a
// mapping is replaced with a fresh mapping, discarding whatever was there.
// It returns the previous leaf value.
func storeAt(root map[string]any, segs []string, value any, r KeyResolver) any {
	cur := root
	for _, seg := range segs[:len(segs)-1] {
		stored, present := r.StoredKey(cur, seg)
		if present {
			if next, isMap := cur[stored].(map[string]any); isMap {
				cur = next

				continue
			}
			delete(cur, stored)
		}
		next := make(map[string]any)
		cur[seg] = next
		cur = next
	}

	leaf := segs[len(segs)-1]
	stored, present := r.StoredKey(cur, leaf)
	if !present {
		stored = leaf
	}
	old := cur[stored]
	cur[stored] = value

	return old
}

// removeAt deletes the leaf at segs and returns its previous value. Missing
// intermediates or a missing leaf make this a no-op.
func removeAt(root map[string]any, segs []string, r KeyResolver) (any, bool) {
	cur := root
	for _, seg := range segs[:len(segs)-1] {
		next, present := r.ResolveBranch(cur, seg)
		if !present {
			return nil, false
		}
		nm, isMap := next.(map[string]any)
		if !isMap {
			return nil, false
		}
		cur = nm
	}

	stored, present := r.StoredKey(cur, segs[len(segs)-1])
	if !present {
		return nil, false
	}
	old := cur[stored]
	delete(cur, stored)

	return old, true
}

// parseScalar decodes a single YAML value so environment and command line
// overrides carry typed values: "5" becomes an int, "true" a bool. Values
// that fail to parse are kept as raw strings.
func parseScalar(s string) any {
	if s == "" {
		return ""
	}

	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil {
		return s
	}

	return v
}
