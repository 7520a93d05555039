package tree

import "github.com/lockbook/lockbook/pkg/model"

// tombstone marks an id as removed in an overlay without mutating base.
type tombstone struct{}

// Staged composes a base tree with an overlay: find(id) returns the overlay
// value if present, else base; ids() is the union; inserts go to the
// overlay; removes record a tombstone in the overlay. Staged(Staged(a,b),c)
// is legal, and composition is associative in effect — each layer only
// ever consults the one beneath it.
//
// This is the base ⊕ local combinator from spec.md §2/§4.1: most reads run
// against Staged(base, local); sync promotes local into base by replacing
// base's HashTree wholesale and resetting the overlay.
type Staged struct {
	base    Tree
	overlay map[model.FileID]any // *model.File, or tombstone
}

// NewStaged composes base with a fresh, empty overlay.
func NewStaged(base Tree) *Staged {
	return &Staged{base: base, overlay: make(map[model.FileID]any)}
}

func (s *Staged) IDs() []model.FileID {
	seen := make(map[model.FileID]struct{})
	var ids []model.FileID
	for _, id := range s.base.IDs() {
		if _, tomb := s.overlay[id].(tombstone); tomb {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for id, v := range s.overlay {
		if _, tomb := v.(tombstone); tomb {
			continue
		}
		if _, ok := seen[id]; !ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func (s *Staged) Find(id model.FileID) (*model.File, bool) {
	if v, ok := s.overlay[id]; ok {
		if _, tomb := v.(tombstone); tomb {
			return nil, false
		}
		return v.(*model.File), true
	}
	return s.base.Find(id)
}

func (s *Staged) Parent(id model.FileID) (model.FileID, bool) {
	f, ok := s.Find(id)
	if !ok {
		return model.NilFileID, false
	}
	return f.ParentID, true
}

func (s *Staged) Children(id model.FileID) []model.FileID {
	var out []model.FileID
	for _, candidate := range s.IDs() {
		f, ok := s.Find(candidate)
		if !ok || f.IsRoot() {
			continue
		}
		if f.ParentID == id {
			out = append(out, candidate)
		}
	}
	return out
}

func (s *Staged) Ancestors(id model.FileID) []model.FileID {
	return WalkAncestors(s, id)
}

func (s *Staged) Insert(f *model.File) {
	s.overlay[f.ID] = f
}

func (s *Staged) Remove(id model.FileID) {
	s.overlay[id] = tombstone{}
}

// Overlay returns the raw overlay entries: files for inserts, nil for
// tombstoned ids. Used by pkg/core's commit to persist the local overlay,
// which the sync engine later loads (repo.Store.LoadLocalOverlay) as the
// local diff to merge and push.
func (s *Staged) Overlay() map[model.FileID]*model.File {
	out := make(map[model.FileID]*model.File, len(s.overlay))
	for id, v := range s.overlay {
		if _, tomb := v.(tombstone); tomb {
			out[id] = nil
			continue
		}
		out[id] = v.(*model.File)
	}
	return out
}

// IsTombstoned reports whether id is recorded as removed in the overlay
// (as opposed to merely absent from it).
func (s *Staged) IsTombstoned(id model.FileID) bool {
	_, tomb := s.overlay[id].(tombstone)
	return tomb
}

// Base returns the underlying base tree this overlay composes over.
func (s *Staged) Base() Tree {
	return s.base
}

// Reset clears the overlay, e.g. after sync promotes it into base.
func (s *Staged) Reset() {
	s.overlay = make(map[model.FileID]any)
}
