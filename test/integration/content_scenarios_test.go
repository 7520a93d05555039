package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockbook/lockbook/pkg/core"
)

// TestConcurrentMergeableContentEdit is spec.md §8 scenario 4: both
// devices edit disjoint lines of a markdown document; Phase P2's
// three-way textual merge (pkg/sync/mergetext.go) combines them without
// forking a sibling.
func TestConcurrentMergeableContentEdit(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	a := newPrimaryDevice(t, ts.URL, "alice")
	doc, err := a.CreateAtPath(ctx, "document.md")
	require.NoError(t, err)
	require.NoError(t, a.WriteDocument(ctx, doc.ID, []byte("document\n\ncontent\n")))
	mustSync(t, a)

	b := addDevice(t, ts.URL, a)

	require.NoError(t, a.WriteDocument(ctx, doc.ID, []byte("document 2\n\ncontent\n")))
	require.NoError(t, b.WriteDocument(ctx, doc.ID, []byte("document\n\ncontent 2\n")))

	mustSync(t, a)
	mustSync(t, b)
	mustSync(t, a)
	mustSync(t, b)

	want := []string{"alice/document.md"}
	assert.Equal(t, want, docPaths(t, a))
	assert.Equal(t, want, docPaths(t, b))

	contentA, err := a.ReadDocument(ctx, doc.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "document 2\n\ncontent 2\n", string(contentA))

	contentB, err := b.ReadDocument(ctx, doc.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "document 2\n\ncontent 2\n", string(contentB))

	requireNoWork(t, a)
	requireNoWork(t, b)
}

// TestConcurrentNonMergeableContentEdit is spec.md §8 scenario 5: both
// devices write the same new content to a non-mergeable (.draw)
// document. Phase P2 keeps remote's content on the original id and forks
// the local edit onto a disambiguated sibling (pkg/sync/merge.go's
// resolveContentConflict).
func TestConcurrentNonMergeableContentEdit(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	a := newPrimaryDevice(t, ts.URL, "alice")
	doc, err := a.CreateAtPath(ctx, "document.draw")
	require.NoError(t, err)
	require.NoError(t, a.WriteDocument(ctx, doc.ID, []byte("document content")))
	mustSync(t, a)

	b := addDevice(t, ts.URL, a)

	require.NoError(t, a.WriteDocument(ctx, doc.ID, []byte("document content 2")))
	require.NoError(t, b.WriteDocument(ctx, doc.ID, []byte("document content 2")))

	mustSync(t, a)
	mustSync(t, b)
	mustSync(t, a)
	mustSync(t, b)

	want := []string{"alice/document-1.draw", "alice/document.draw"}
	assert.Equal(t, want, docPaths(t, a))
	assert.Equal(t, want, docPaths(t, b))

	for _, device := range []*core.Lb{a, b} {
		for _, p := range []string{"document.draw", "document-1.draw"} {
			md := findByPath(t, device, p)
			content, err := device.ReadDocument(ctx, md.ID, false)
			require.NoError(t, err)
			assert.Equal(t, "document content 2", string(content))
		}
	}

	requireNoWork(t, a)
	requireNoWork(t, b)
}
