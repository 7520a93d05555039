package tree

import (
	"testing"

	"github.com/lockbook/lockbook/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseWithRootAndChild(root, child model.FileID) *HashTree {
	h := NewHashTree()
	h.Insert(&model.File{ID: root, ParentID: root, Type: model.Folder})
	h.Insert(newFile(child, root))
	return h
}

func TestStagedFindFallsThroughToBase(t *testing.T) {
	t.Parallel()

	root, child := model.NewFileID(), model.NewFileID()
	base := baseWithRootAndChild(root, child)
	s := NewStaged(base)

	got, ok := s.Find(child)
	require.True(t, ok)
	assert.Equal(t, child, got.ID)
}

func TestStagedInsertShadowsBase(t *testing.T) {
	t.Parallel()

	root, child := model.NewFileID(), model.NewFileID()
	base := baseWithRootAndChild(root, child)
	s := NewStaged(base)

	renamed := base.files[child].Clone()
	renamed.EncryptedName = []byte("renamed")
	s.Insert(renamed)

	got, ok := s.Find(child)
	require.True(t, ok)
	assert.Equal(t, []byte("renamed"), got.EncryptedName)

	// base is untouched
	baseGot, _ := base.Find(child)
	assert.Nil(t, baseGot.EncryptedName)
}

func TestStagedRemoveHidesBaseEntry(t *testing.T) {
	t.Parallel()

	root, child := model.NewFileID(), model.NewFileID()
	base := baseWithRootAndChild(root, child)
	s := NewStaged(base)

	s.Remove(child)

	_, ok := s.Find(child)
	assert.False(t, ok)
	assert.True(t, s.IsTombstoned(child))

	// base still has it
	_, ok = base.Find(child)
	assert.True(t, ok)
}

func TestStagedIDsUnion(t *testing.T) {
	t.Parallel()

	root, child := model.NewFileID(), model.NewFileID()
	base := baseWithRootAndChild(root, child)
	s := NewStaged(base)

	newChild := model.NewFileID()
	s.Insert(newFile(newChild, root))

	assert.ElementsMatch(t, []model.FileID{root, child, newChild}, s.IDs())

	s.Remove(child)
	assert.ElementsMatch(t, []model.FileID{root, newChild}, s.IDs())
}

func TestStagedComposesOverAnotherStaged(t *testing.T) {
	t.Parallel()

	root, child := model.NewFileID(), model.NewFileID()
	base := baseWithRootAndChild(root, child)
	inner := NewStaged(base)
	grandchild := model.NewFileID()
	inner.Insert(newFile(grandchild, child))

	outer := NewStaged(inner)
	outer.Remove(child)

	// outer no longer sees child, but still sees grandchild via inner.
	_, ok := outer.Find(child)
	assert.False(t, ok)
	got, ok := outer.Find(grandchild)
	require.True(t, ok)
	assert.Equal(t, grandchild, got.ID)
}

func TestStagedResetClearsOverlay(t *testing.T) {
	t.Parallel()

	root, child := model.NewFileID(), model.NewFileID()
	base := baseWithRootAndChild(root, child)
	s := NewStaged(base)
	s.Remove(child)
	s.Reset()

	_, ok := s.Find(child)
	assert.True(t, ok)
	assert.Empty(t, s.Overlay())
}
