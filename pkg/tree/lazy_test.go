package tree

import (
	"testing"

	"github.com/lockbook/lockbook/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLazyFindMemoizesAndInvalidatesOnWrite(t *testing.T) {
	t.Parallel()

	root, child := model.NewFileID(), model.NewFileID()
	base := baseWithRootAndChild(root, child)
	l, err := NewLazy(base, 1024)
	require.NoError(t, err)
	defer l.Close()

	got, ok := l.Find(child)
	require.True(t, ok)
	assert.Equal(t, child, got.ID)
	l.cache.Wait() // ristretto applies Set asynchronously

	// Mutate the underlying tree directly; a stale cache entry would still
	// report found until Insert/Remove goes through the wrapper.
	base.Remove(child)
	stillCached, ok := l.Find(child)
	assert.True(t, ok)
	assert.Equal(t, child, stillCached.ID)

	// Going through the wrapper invalidates the entry.
	l.Remove(child)
	_, ok = l.Find(child)
	assert.False(t, ok)
}

func TestLazyDerivedComputesOnceAndIsInvalidated(t *testing.T) {
	t.Parallel()

	root := model.NewFileID()
	base := NewHashTree()
	base.Insert(&model.File{ID: root, ParentID: root, Type: model.Folder})
	l, err := NewLazy(base, 1024)
	require.NoError(t, err)
	defer l.Close()

	calls := 0
	compute := func() (any, error) {
		calls++
		return "decrypted-name", nil
	}

	v1, err := l.Derived("name", root, compute)
	require.NoError(t, err)
	assert.Equal(t, "decrypted-name", v1)
	l.cache.Wait() // ristretto applies Set asynchronously

	v2, err := l.Derived("name", root, compute)
	require.NoError(t, err)
	assert.Equal(t, "decrypted-name", v2)
	assert.Equal(t, 1, calls, "second call should hit the cache")

	l.InvalidateDerived("name", root)
	l.cache.Wait()

	_, err = l.Derived("name", root, compute)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "invalidation should force a recompute")
}
