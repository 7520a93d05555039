package tree

import (
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/lockbook/lockbook/pkg/model"
)

// Lazy wraps a Tree with a ristretto-backed memoization cache for the
// per-file values callers derive repeatedly from the same tree instance:
// a decrypted name, a deletion status, or an effective access mode are
// all pure functions of (tree snapshot, file id) but expensive to recompute
// on every lookup. This is grounded on the DOMAIN STACK wiring in
// SPEC_FULL.md, which earmarks ristretto/v2 for exactly this kind of
// in-process memoization (the pack's cache package solves a different,
// block-buffering problem and isn't a fit here).
//
// Lazy itself only memoizes Find; pkg/core keeps its decrypted-name,
// deletion-status and access-mode values in the same ristretto.Cache via
// Derived, keyed by a type-tagged string so one instance can back several
// derived values without collision. Decrypted file keys are not kept here:
// pkg/crypto.Keychain caches them in its own map.
type Lazy struct {
	Tree
	cache *ristretto.Cache[string, any]
}

// NewLazy wraps t with a cache sized for roughly maxItems entries. A zero
// maxItems falls back to a modest default (4096) rather than disabling
// caching outright.
func NewLazy(t Tree, maxItems int64) (*Lazy, error) {
	if maxItems <= 0 {
		maxItems = 4096
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, any]{
		NumCounters: maxItems * 10,
		MaxCost:     maxItems,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("tree: new lazy cache: %w", err)
	}
	return &Lazy{Tree: t, cache: c}, nil
}

func findKey(id model.FileID) string {
	return "find:" + id.String()
}

// Find memoizes the underlying Tree.Find for this instance's lifetime.
// Invalidated per-id on Insert/Remove since both go through this wrapper.
func (l *Lazy) Find(id model.FileID) (*model.File, bool) {
	if v, ok := l.cache.Get(findKey(id)); ok {
		if v == nil {
			return nil, false
		}
		return v.(*model.File), true
	}
	f, ok := l.Tree.Find(id)
	if !ok {
		l.cache.Set(findKey(id), nil, 1)
		return nil, false
	}
	l.cache.Set(findKey(id), f, 1)
	return f, true
}

func (l *Lazy) Insert(f *model.File) {
	l.Tree.Insert(f)
	l.cache.Del(findKey(f.ID))
}

func (l *Lazy) Remove(id model.FileID) {
	l.Tree.Remove(id)
	l.cache.Del(findKey(id))
}

// Derived fetches a memoized derived value for (kind, id), computing it via
// compute on a miss. Callers (pkg/core, for decrypted names, deletion
// status and effective access mode) supply a distinct kind so their
// entries don't collide in the shared keyspace.
func (l *Lazy) Derived(kind string, id model.FileID, compute func() (any, error)) (any, error) {
	key := kind + ":" + id.String()
	if v, ok := l.cache.Get(key); ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		return nil, err
	}
	l.cache.Set(key, v, 1)
	return v, nil
}

// InvalidateDerived drops a memoized derived value, e.g. after a file's
// sealed key material changes underneath an otherwise-stable id.
func (l *Lazy) InvalidateDerived(kind string, id model.FileID) {
	l.cache.Del(kind + ":" + id.String())
}

// Close releases the underlying ristretto cache's background goroutines.
func (l *Lazy) Close() {
	l.cache.Close()
}
