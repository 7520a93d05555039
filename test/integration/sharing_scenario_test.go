package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockbook/lockbook/pkg/core"
	"github.com/lockbook/lockbook/pkg/model"
)

// TestShareAcceptance is spec.md §8 scenario 6: alice shares a folder
// with bob at Write, bob accepts by linking it into his own tree, and a
// write bob makes under the shared subtree is visible to alice under her
// own path for it.
func TestShareAcceptance(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	alice := newPrimaryDevice(t, ts.URL, "alice")
	bob := newPrimaryDevice(t, ts.URL, "bob")

	folder, err := alice.CreateAtPath(ctx, "folder/")
	require.NoError(t, err)
	require.NoError(t, alice.ShareFile(ctx, folder.ID, "bob", model.Write))
	mustSync(t, alice)
	mustSync(t, bob)

	pending, err := bob.GetPendingShares(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, folder.ID, pending[0].ID)
	assert.Equal(t, "alice", pending[0].SharedBy)
	assert.Equal(t, model.Write, pending[0].Mode)

	link, err := bob.CreateLinkAtPath(ctx, "link", folder.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Link, link.Type)
	mustSync(t, bob)

	doc, err := bob.CreateFile(ctx, "document", folder.ID, model.Document)
	require.NoError(t, err)
	require.NoError(t, bob.WriteDocument(ctx, doc.ID, []byte("shared content")))
	mustSync(t, bob)

	mustSync(t, alice)

	// Both trees are internally consistent: every visible file resolves to
	// a readable path on its own account.
	_, err = alice.ListPaths(core.FilterAll)
	require.NoError(t, err)
	_, err = bob.ListPaths(core.FilterAll)
	require.NoError(t, err)

	aliceDoc := findByPath(t, alice, "folder/document")
	assert.Equal(t, doc.ID, aliceDoc.ID)
	content, err := alice.ReadDocument(ctx, aliceDoc.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "shared content", string(content))

	pendingAfter, err := bob.GetPendingShares(ctx)
	require.NoError(t, err)
	assert.Empty(t, pendingAfter)
}
