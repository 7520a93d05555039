// Package tree implements the polymorphic tree abstraction from spec.md §4.1:
// find/children/ancestors/existence/mutation over a composable set of
// implementations (HashTree, Staged, Lazy).
//
// Grounded on dittofs's pkg/metadata/store.Files interface (id-indexed CRUD
// plus a parent->children secondary index) for the base case, generalized
// here into an interface callers program against regardless of backing.
package tree

import "github.com/lockbook/lockbook/pkg/model"

// Tree is the read/write abstraction every layer (HashTree, Staged, Lazy)
// implements. Lookups are read-only; iteration order is unspecified but
// stable within a single instance for a given id set, per spec.md §4.1.
type Tree interface {
	// IDs returns every file id present in this tree.
	IDs() []model.FileID
	// Find returns the file for id, or (nil, false) if absent.
	Find(id model.FileID) (*model.File, bool)
	// Parent returns the parent id of id. Roots return their own id.
	Parent(id model.FileID) (model.FileID, bool)
	// Children returns the ids of id's direct children (empty for non-folders).
	Children(id model.FileID) []model.FileID
	// Ancestors returns id's ancestor chain, nearest first, stopping at (and
	// including) the root. Empty if id is absent.
	Ancestors(id model.FileID) []model.FileID
	// Insert adds or replaces a file.
	Insert(f *model.File)
	// Remove deletes id from this tree (a tombstone in an overlay).
	Remove(id model.FileID)
}

// Exists reports whether id is present in t.
func Exists(t Tree, id model.FileID) bool {
	_, ok := t.Find(id)
	return ok
}

// IsDeleted reports whether id is deleted, considering both its own
// Deleted flag and that of every ancestor: spec.md §3 invariant 8 says
// "a parent's deletion propagates logically to descendants for
// visibility purposes", so a document under a deleted folder is
// invisible even though its own Deleted bit was never set. Callers that
// list or path-resolve files (rather than directly mutating one) should
// filter through this rather than checking File.Deleted alone.
func IsDeleted(t Tree, id model.FileID) bool {
	for _, ancestorID := range WalkAncestors(t, id) {
		f, ok := t.Find(ancestorID)
		if !ok {
			continue
		}
		if f.Deleted {
			return true
		}
	}
	return false
}

// WalkAncestors returns the chain from id up to (and including) its root,
// by repeatedly asking t for id's parent. It stops if a cycle is detected
// (a defensive bound — the validator is what actually rejects cycles) or
// the chain runs off the tree.
func WalkAncestors(t Tree, id model.FileID) []model.FileID {
	var chain []model.FileID
	seen := make(map[model.FileID]bool)
	cur := id
	for {
		f, ok := t.Find(cur)
		if !ok {
			return chain
		}
		if seen[cur] {
			return chain // cycle; validator's job to flag it
		}
		seen[cur] = true
		chain = append(chain, cur)
		if f.IsRoot() {
			return chain
		}
		cur = f.ParentID
	}
}
