package tree

import (
	"testing"

	"github.com/lockbook/lockbook/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExists(t *testing.T) {
	t.Parallel()

	root := model.NewFileID()
	h := NewHashTree()
	r := newFile(root, root)
	r.Type = model.Folder
	h.Insert(r)

	assert.True(t, Exists(h, root))
	assert.False(t, Exists(h, model.NewFileID()))
}

func TestWalkAncestorsNearestFirstIncludingRoot(t *testing.T) {
	t.Parallel()

	root := model.NewFileID()
	folder := model.NewFileID()
	doc := model.NewFileID()

	h := NewHashTree()
	r := newFile(root, root)
	r.Type = model.Folder
	h.Insert(r)
	f := newFile(folder, root)
	f.Type = model.Folder
	h.Insert(f)
	h.Insert(newFile(doc, folder))

	assert.Equal(t, []model.FileID{doc, folder, root}, WalkAncestors(h, doc))
	assert.Equal(t, []model.FileID{root}, WalkAncestors(h, root))
	assert.Empty(t, WalkAncestors(h, model.NewFileID()))
}

func TestIsDeletedOwnFlag(t *testing.T) {
	t.Parallel()

	root := model.NewFileID()
	doc := model.NewFileID()

	h := NewHashTree()
	r := newFile(root, root)
	r.Type = model.Folder
	h.Insert(r)
	d := newFile(doc, root)
	d.Deleted = true
	h.Insert(d)

	assert.True(t, IsDeleted(h, doc))
}

func TestIsDeletedPropagatesFromAncestor(t *testing.T) {
	t.Parallel()

	// spec.md §3 invariant 8: a folder's deletion propagates to descendants
	// for visibility purposes even though their own Deleted bit stays unset.
	root := model.NewFileID()
	folder := model.NewFileID()
	doc := model.NewFileID()

	h := NewHashTree()
	r := newFile(root, root)
	r.Type = model.Folder
	h.Insert(r)
	f := newFile(folder, root)
	f.Type = model.Folder
	f.Deleted = true
	h.Insert(f)
	h.Insert(newFile(doc, folder))

	got, ok := h.Find(doc)
	require.True(t, ok)
	assert.False(t, got.Deleted, "doc's own flag stays unset")
	assert.True(t, IsDeleted(h, doc), "but it's invisible via ancestor propagation")
}

func TestIsDeletedFalseWhenNoAncestorDeleted(t *testing.T) {
	t.Parallel()

	root := model.NewFileID()
	folder := model.NewFileID()
	doc := model.NewFileID()

	h := NewHashTree()
	r := newFile(root, root)
	r.Type = model.Folder
	h.Insert(r)
	f := newFile(folder, root)
	f.Type = model.Folder
	h.Insert(f)
	h.Insert(newFile(doc, folder))

	assert.False(t, IsDeleted(h, doc))
}
