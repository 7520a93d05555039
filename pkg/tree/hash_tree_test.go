package tree

import (
	"testing"

	"github.com/lockbook/lockbook/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFile(id, parent model.FileID) *model.File {
	return &model.File{ID: id, ParentID: parent, Type: model.Document}
}

func TestHashTreeInsertFind(t *testing.T) {
	t.Parallel()

	root := model.NewFileID()
	h := NewHashTree()
	r := newFile(root, root)
	r.Type = model.Folder
	h.Insert(r)

	got, ok := h.Find(root)
	require.True(t, ok)
	assert.Equal(t, root, got.ID)
	assert.True(t, got.IsRoot())
}

func TestHashTreeChildrenReindexOnMove(t *testing.T) {
	t.Parallel()

	root := model.NewFileID()
	folderA := model.NewFileID()
	folderB := model.NewFileID()
	child := model.NewFileID()

	h := NewHashTree()
	h.Insert(&model.File{ID: root, ParentID: root, Type: model.Folder})
	h.Insert(&model.File{ID: folderA, ParentID: root, Type: model.Folder})
	h.Insert(&model.File{ID: folderB, ParentID: root, Type: model.Folder})
	h.Insert(newFile(child, folderA))

	assert.ElementsMatch(t, []model.FileID{child}, h.Children(folderA))
	assert.Empty(t, h.Children(folderB))

	// Move child from folderA to folderB by re-inserting with a new parent.
	h.Insert(newFile(child, folderB))

	assert.Empty(t, h.Children(folderA))
	assert.ElementsMatch(t, []model.FileID{child}, h.Children(folderB))
}

func TestHashTreeRemove(t *testing.T) {
	t.Parallel()

	root := model.NewFileID()
	child := model.NewFileID()
	h := NewHashTree()
	h.Insert(&model.File{ID: root, ParentID: root, Type: model.Folder})
	h.Insert(newFile(child, root))

	h.Remove(child)

	_, ok := h.Find(child)
	assert.False(t, ok)
	assert.Empty(t, h.Children(root))
}

func TestHashTreeAncestors(t *testing.T) {
	t.Parallel()

	root := model.NewFileID()
	mid := model.NewFileID()
	leaf := model.NewFileID()

	h := NewHashTree()
	h.Insert(&model.File{ID: root, ParentID: root, Type: model.Folder})
	h.Insert(&model.File{ID: mid, ParentID: root, Type: model.Folder})
	h.Insert(newFile(leaf, mid))

	assert.Equal(t, []model.FileID{leaf, mid, root}, h.Ancestors(leaf))
}

func TestHashTreeInsertAll(t *testing.T) {
	t.Parallel()

	root := model.NewFileID()
	child := model.NewFileID()
	h := NewHashTree()
	h.InsertAll([]*model.File{
		{ID: root, ParentID: root, Type: model.Folder},
		newFile(child, root),
	})

	assert.Len(t, h.IDs(), 2)
	assert.ElementsMatch(t, []model.FileID{child}, h.Children(root))
}
