package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTwoDeviceIdenticalRename is spec.md §8 scenario 1: two devices
// independently rename the same file to the same new name.
func TestTwoDeviceIdenticalRename(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	a := newPrimaryDevice(t, ts.URL, "alice")
	_, err := a.CreateAtPath(ctx, "document")
	require.NoError(t, err)
	mustSync(t, a)

	b := addDevice(t, ts.URL, a)

	docA := findByPath(t, a, "document")
	require.NoError(t, a.RenameFile(ctx, docA.ID, "document2"))

	docB := findByPath(t, b, "document")
	require.NoError(t, b.RenameFile(ctx, docB.ID, "document2"))

	mustSync(t, a)
	mustSync(t, b)
	mustSync(t, a)
	mustSync(t, b)

	want := []string{"alice/", "alice/document2"}
	assert.Equal(t, want, allPaths(t, a))
	assert.Equal(t, want, allPaths(t, b))
	requireNoWork(t, a)
	requireNoWork(t, b)
}

// TestDivergentRename is spec.md §8 scenario 2: the two devices rename
// the same file to two different names. Device A syncs first, so its
// rename is the one committed to remote; B's conflicting rename is
// dropped by Phase P2's "remote wins" rule (pkg/sync/merge.go).
func TestDivergentRename(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	a := newPrimaryDevice(t, ts.URL, "alice")
	_, err := a.CreateAtPath(ctx, "document")
	require.NoError(t, err)
	mustSync(t, a)

	b := addDevice(t, ts.URL, a)

	docA := findByPath(t, a, "document")
	require.NoError(t, a.RenameFile(ctx, docA.ID, "document2"))

	docB := findByPath(t, b, "document")
	require.NoError(t, b.RenameFile(ctx, docB.ID, "document3"))

	mustSync(t, a)
	mustSync(t, b)
	mustSync(t, a)
	mustSync(t, b)

	want := []string{"alice/", "alice/document2"}
	assert.Equal(t, want, allPaths(t, a))
	assert.Equal(t, want, allPaths(t, b))
	requireNoWork(t, a)
	requireNoWork(t, b)
}

// TestMoveThenDeleteParent is spec.md §8 scenario 3: delete dominates a
// concurrent move into the deleted subtree.
func TestMoveThenDeleteParent(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	a := newPrimaryDevice(t, ts.URL, "alice")
	_, err := a.CreateAtPath(ctx, "parent/")
	require.NoError(t, err)
	_, err = a.CreateAtPath(ctx, "document")
	require.NoError(t, err)
	mustSync(t, a)

	b := addDevice(t, ts.URL, a)

	docA := findByPath(t, a, "document")
	parentA := findByPath(t, a, "parent")
	require.NoError(t, a.MoveFile(ctx, docA.ID, parentA.ID))

	parentB := findByPath(t, b, "parent")
	require.NoError(t, b.Delete(ctx, parentB.ID))

	mustSync(t, a)
	mustSync(t, b)
	mustSync(t, a)
	mustSync(t, b)

	want := []string{"alice/"}
	assert.Equal(t, want, allPaths(t, a))
	assert.Equal(t, want, allPaths(t, b))
	assert.Empty(t, docPaths(t, a))
	assert.Empty(t, docPaths(t, b))
	requireNoWork(t, a)
	requireNoWork(t, b)
}

// TestSyncWithNothingPendingIsNoOp is spec.md §8's idempotence law:
// sync(); sync() with nothing changed leaves the watermark and work
// queues unchanged.
func TestSyncWithNothingPendingIsNoOp(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	a := newPrimaryDevice(t, ts.URL, "alice")
	_, err := a.CreateAtPath(ctx, "document")
	require.NoError(t, err)
	mustSync(t, a)
	requireNoWork(t, a)

	before := a.GetLastSynced()
	result := mustSync(t, a)
	assert.Equal(t, 0, result.PulledFiles)
	assert.Equal(t, 0, result.PushedFiles)
	assert.GreaterOrEqual(t, a.GetLastSynced(), before)
	requireNoWork(t, a)
}

// TestReturnToOriginCollapsesLocalChange is spec.md §8's "return to
// origin collapses changes" law: renaming A->B then B->A leaves no
// pending local change, so a sync afterward does no push work at all.
func TestReturnToOriginCollapsesLocalChange(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	a := newPrimaryDevice(t, ts.URL, "alice")
	doc, err := a.CreateAtPath(ctx, "document")
	require.NoError(t, err)
	mustSync(t, a)

	require.NoError(t, a.RenameFile(ctx, doc.ID, "document2"))
	require.NoError(t, a.RenameFile(ctx, doc.ID, "document"))

	changes, err := a.LocalChanges()
	require.NoError(t, err)
	assert.Empty(t, changes)

	result := mustSync(t, a)
	assert.Equal(t, 0, result.PushedFiles)
}
