package sync

import (
	"context"
	"testing"

	"github.com/lockbook/lockbook/pkg/crypto"
	"github.com/lockbook/lockbook/pkg/docs"
	"github.com/lockbook/lockbook/pkg/model"
	"github.com/lockbook/lockbook/pkg/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mergeFixture bundles the collaborators merge() needs so each test only
// has to describe the files it cares about.
type mergeFixture struct {
	t        *testing.T
	account  *crypto.AccountKey
	keychain *crypto.Keychain
	docs     *docs.Store
}

func newMergeFixture(t *testing.T) *mergeFixture {
	t.Helper()
	account, err := crypto.GenerateAccountKey()
	require.NoError(t, err)
	kc := crypto.NewKeychain(account)

	baseBlobs, err := docs.NewFSBlobs(t.TempDir())
	require.NoError(t, err)
	localBlobs, err := docs.NewFSBlobs(t.TempDir())
	require.NoError(t, err)

	return &mergeFixture{t: t, account: account, keychain: kc, docs: docs.New(baseBlobs, localBlobs)}
}

// newFile builds a file owned by the fixture's account with a fresh
// symmetric key sealed for the owner, and the given plaintext name sealed
// under that same key (matching this repo's convention, used uniformly by
// pkg/core and pkg/crypto, of sealing a file's name under its own key
// rather than walking to the parent for every name decryption).
func (f *mergeFixture) newFile(parent model.FileID, name string, fileType model.FileType) *model.File {
	f.t.Helper()
	key, err := crypto.GenerateSymmetricKey()
	require.NoError(f.t, err)
	sealedKey, err := f.keychain.SealForOwner(key)
	require.NoError(f.t, err)
	sealedName, err := crypto.SealBytes(key, []byte(name))
	require.NoError(f.t, err)
	return &model.File{
		ID: model.NewFileID(), ParentID: parent, Type: fileType, Owner: f.account.Fingerprint(),
		EncryptedKey:  map[model.PublicKey][]byte{f.account.Fingerprint(): sealedKey},
		EncryptedName: sealedName,
	}
}

func (f *mergeFixture) writeContent(file *model.File, plaintext []byte) {
	f.t.Helper()
	symKey := f.fileKey(file)
	newHMAC, err := f.docs.SafeWrite(context.Background(), file.ID, [32]byte{}, plaintext, symKey)
	require.NoError(f.t, err)
	file.DocumentHMAC = newHMAC[:]
	// Writes happen in the local namespace; promote into base so merge's
	// oldBase plaintext reads (of the common ancestor) succeed too.
	require.NoError(f.t, f.docs.Promote(context.Background(), docs.ContentKey{ID: file.ID, HMAC: newHMAC}))
}

func (f *mergeFixture) writeLocalOnly(file *model.File, plaintext []byte, symKey [32]byte) [32]byte {
	f.t.Helper()
	newHMAC, err := f.docs.SafeWrite(context.Background(), file.ID, [32]byte{}, plaintext, symKey)
	require.NoError(f.t, err)
	return newHMAC
}

func (f *mergeFixture) fileKey(file *model.File) [32]byte {
	f.t.Helper()
	sealed, ok := file.EncryptedKey[f.account.Fingerprint()]
	require.True(f.t, ok)
	key, err := crypto.OpenSealed(f.account.BoxPriv, f.account.BoxPub, sealed)
	require.NoError(f.t, err)
	return key
}

func newBaseWithRoot(owner model.PublicKey) (*tree.HashTree, model.FileID) {
	id := model.NewFileID()
	h := tree.NewHashTree()
	h.Insert(&model.File{ID: id, ParentID: id, Type: model.Folder, Owner: owner})
	return h, id
}

func TestMergeRenameConflictRemoteWins(t *testing.T) {
	t.Parallel()
	f := newMergeFixture(t)
	base, rootID := newBaseWithRoot(f.account.Fingerprint())

	doc := f.newFile(rootID, "document", model.Document)
	base.Insert(doc)

	local := doc.Clone()
	local.EncryptedName, _ = crypto.SealBytes(f.fileKey(doc), []byte("document3"))
	localOverlay := map[model.FileID]*model.File{doc.ID: local}

	remote := doc.Clone()
	remote.EncryptedName, _ = crypto.SealBytes(f.fileKey(doc), []byte("document2"))
	remote.Version = 2

	mr, err := merge(context.Background(), base, localOverlay, []*model.File{remote}, f.keychain, f.docs)
	require.NoError(t, err)

	got, ok := mr.mergedOverlay[doc.ID]
	// Remote's rename equals remote-base exactly once local's is dropped,
	// so the merged overlay entry is nil (nothing left to push).
	if ok {
		assert.Nil(t, got)
	}
	merged, found := mr.remoteBase.Find(doc.ID)
	require.True(t, found)
	name, err := crypto.OpenBytes(f.fileKey(doc), merged.EncryptedName)
	require.NoError(t, err)
	assert.Equal(t, "document2", string(name))
}

func TestMergeMoveConflictRemoteWins(t *testing.T) {
	t.Parallel()
	f := newMergeFixture(t)
	base, rootID := newBaseWithRoot(f.account.Fingerprint())
	folderA := f.newFile(rootID, "a", model.Folder)
	folderB := f.newFile(rootID, "b", model.Folder)
	base.Insert(folderA)
	base.Insert(folderB)

	doc := f.newFile(rootID, "document", model.Document)
	base.Insert(doc)

	local := doc.Clone()
	local.ParentID = folderA.ID
	localOverlay := map[model.FileID]*model.File{doc.ID: local}

	remote := doc.Clone()
	remote.ParentID = folderB.ID
	remote.Version = 2

	mr, err := merge(context.Background(), base, localOverlay, []*model.File{remote}, f.keychain, f.docs)
	require.NoError(t, err)

	merged, found := mr.remoteBase.Find(doc.ID)
	require.True(t, found)
	assert.Equal(t, folderB.ID, merged.ParentID)
}

func TestMergeDeleteDominatesOverRename(t *testing.T) {
	t.Parallel()
	f := newMergeFixture(t)
	base, rootID := newBaseWithRoot(f.account.Fingerprint())
	doc := f.newFile(rootID, "document", model.Document)
	base.Insert(doc)

	local := doc.Clone()
	local.Deleted = true
	localOverlay := map[model.FileID]*model.File{doc.ID: local}

	remote := doc.Clone()
	remote.EncryptedName, _ = crypto.SealBytes(f.fileKey(doc), []byte("document-renamed"))
	remote.Version = 2

	mr, err := merge(context.Background(), base, localOverlay, []*model.File{remote}, f.keychain, f.docs)
	require.NoError(t, err)

	merged, ok := mr.mergedOverlay[doc.ID]
	require.True(t, ok)
	require.NotNil(t, merged)
	assert.True(t, merged.Deleted)
}

func TestMergeDeleteDominatesOverMove(t *testing.T) {
	t.Parallel()
	f := newMergeFixture(t)
	base, rootID := newBaseWithRoot(f.account.Fingerprint())
	parent := f.newFile(rootID, "parent", model.Folder)
	base.Insert(parent)
	doc := f.newFile(rootID, "document", model.Document)
	base.Insert(doc)

	local := doc.Clone()
	local.ParentID = parent.ID
	localOverlay := map[model.FileID]*model.File{doc.ID: local}

	remoteParent := parent.Clone()
	remoteParent.Deleted = true
	remoteParent.Version = 2

	mr, err := merge(context.Background(), base, localOverlay, []*model.File{remoteParent}, f.keychain, f.docs)
	require.NoError(t, err)

	mergedParent, found := mr.remoteBase.Find(parent.ID)
	require.True(t, found)
	assert.True(t, mergedParent.Deleted)
	// doc itself wasn't in remoteUpdates, so its local move survives the
	// merge unchanged; spec.md leaves descendant-visibility propagation to
	// the validator/viewer layer, not to the merge step.
	moved, ok := mr.mergedOverlay[doc.ID]
	require.True(t, ok)
	require.NotNil(t, moved)
	assert.Equal(t, parent.ID, moved.ParentID)
}

func TestMergeShareGrantsRemoteWinsSameGrant(t *testing.T) {
	t.Parallel()
	f := newMergeFixture(t)
	base, rootID := newBaseWithRoot(f.account.Fingerprint())
	doc := f.newFile(rootID, "document", model.Document)
	base.Insert(doc)

	const carol model.PublicKey = "carol"
	local := doc.Clone()
	local.UserAccessKeys = []model.ShareGrant{{EncryptedBy: f.account.Fingerprint(), EncryptedFor: carol, Mode: model.Write}}
	localOverlay := map[model.FileID]*model.File{doc.ID: local}

	remote := doc.Clone()
	remote.UserAccessKeys = []model.ShareGrant{{EncryptedBy: f.account.Fingerprint(), EncryptedFor: carol, Mode: model.Read}}
	remote.Version = 2

	mr, err := merge(context.Background(), base, localOverlay, []*model.File{remote}, f.keychain, f.docs)
	require.NoError(t, err)

	// Remote's grant wins, so the merged file equals remote-base exactly and
	// nothing is left to push for it.
	assert.Nil(t, mr.mergedOverlay[doc.ID])
	merged, found := mr.remoteBase.Find(doc.ID)
	require.True(t, found)
	require.Len(t, merged.UserAccessKeys, 1)
	assert.Equal(t, model.Read, merged.UserAccessKeys[0].Mode)
}

func TestMergeShareGrantsDisjointGrantsKept(t *testing.T) {
	t.Parallel()
	f := newMergeFixture(t)
	base, rootID := newBaseWithRoot(f.account.Fingerprint())
	doc := f.newFile(rootID, "document", model.Document)
	base.Insert(doc)

	const carol model.PublicKey = "carol"
	const dave model.PublicKey = "dave"
	local := doc.Clone()
	local.UserAccessKeys = []model.ShareGrant{{EncryptedBy: f.account.Fingerprint(), EncryptedFor: carol, Mode: model.Write}}
	localOverlay := map[model.FileID]*model.File{doc.ID: local}

	remote := doc.Clone()
	remote.UserAccessKeys = []model.ShareGrant{{EncryptedBy: f.account.Fingerprint(), EncryptedFor: dave, Mode: model.Read}}
	remote.Version = 2

	mr, err := merge(context.Background(), base, localOverlay, []*model.File{remote}, f.keychain, f.docs)
	require.NoError(t, err)

	merged, ok := mr.mergedOverlay[doc.ID]
	require.True(t, ok)
	require.NotNil(t, merged)
	assert.Len(t, merged.UserAccessKeys, 2)
}

// TestMergeShareGrantsLocalOnlyChangeSurvivesUntouchedRemoteGrant covers the
// case where remote's snapshot still carries a grant unchanged from
// oldBase while local revoked that same grant: since remoteFile's grant
// list is a full snapshot rather than a diff, naively preferring remote
// whenever the key exists on both sides would silently resurrect the
// revoked grant. Remote's unrelated rename must not clobber local's
// untouched-by-remote revoke.
func TestMergeShareGrantsLocalOnlyChangeSurvivesUntouchedRemoteGrant(t *testing.T) {
	t.Parallel()
	f := newMergeFixture(t)
	base, rootID := newBaseWithRoot(f.account.Fingerprint())
	doc := f.newFile(rootID, "document", model.Document)
	const carol model.PublicKey = "carol"
	doc.UserAccessKeys = []model.ShareGrant{{EncryptedBy: f.account.Fingerprint(), EncryptedFor: carol, Mode: model.Read}}
	base.Insert(doc)

	local := doc.Clone()
	local.UserAccessKeys = []model.ShareGrant{{EncryptedBy: f.account.Fingerprint(), EncryptedFor: carol, Mode: model.Read, Deleted: true}}
	localOverlay := map[model.FileID]*model.File{doc.ID: local}

	// remote only renamed the file; its grant list is an untouched copy of
	// oldBase's, not a diff.
	remoteKey := f.fileKey(doc)
	sealedName, err := crypto.SealBytes(remoteKey, []byte("document-renamed"))
	require.NoError(t, err)
	remote := doc.Clone()
	remote.EncryptedName = sealedName
	remote.Version = 2

	mr, err := merge(context.Background(), base, localOverlay, []*model.File{remote}, f.keychain, f.docs)
	require.NoError(t, err)

	merged, ok := mr.mergedOverlay[doc.ID]
	require.True(t, ok)
	require.NotNil(t, merged)
	require.Len(t, merged.UserAccessKeys, 1)
	assert.True(t, merged.UserAccessKeys[0].Deleted, "local's revoke must survive a remote edit that never touched the grant")
}

func TestMergeMergeableContentConflictThreeWayMerges(t *testing.T) {
	t.Parallel()
	f := newMergeFixture(t)
	base, rootID := newBaseWithRoot(f.account.Fingerprint())
	doc := f.newFile(rootID, "document.md", model.Document)
	f.writeContent(doc, []byte("document\n\ncontent\n"))
	base.Insert(doc)

	symKey := f.fileKey(doc)

	local := doc.Clone()
	localHMAC := f.writeLocalOnly(local, []byte("document 2\n\ncontent\n"), symKey)
	local.DocumentHMAC = localHMAC[:]
	localOverlay := map[model.FileID]*model.File{doc.ID: local}

	remote := doc.Clone()
	remoteHMAC, err := f.docs.SafeWrite(context.Background(), doc.ID, [32]byte{}, []byte("document\n\ncontent 2\n"), symKey)
	require.NoError(t, err)
	remote.DocumentHMAC = remoteHMAC[:]
	remote.Version = 2
	// Seed the remote's content into base directly, mimicking Phase P4's
	// pull: merge's three-way attempt reads both sides' plaintext from the
	// document store, which is the sync engine's job normally.
	require.NoError(t, f.docs.Promote(context.Background(), docs.ContentKey{ID: doc.ID, HMAC: remoteHMAC}))

	mr, err := merge(context.Background(), base, localOverlay, []*model.File{remote}, f.keychain, f.docs)
	require.NoError(t, err)

	require.Len(t, mr.contentWrites, 1)
	assert.Equal(t, "document 2\n\ncontent 2\n", string(mr.contentWrites[0].plaintext))
	// No sibling fork for a clean three-way merge.
	assert.Len(t, mr.mergedOverlay, 1)
}

func TestMergeNonMergeableContentConflictForksSibling(t *testing.T) {
	t.Parallel()
	f := newMergeFixture(t)
	base, rootID := newBaseWithRoot(f.account.Fingerprint())
	doc := f.newFile(rootID, "drawing.draw", model.Document)
	f.writeContent(doc, []byte("document content"))
	base.Insert(doc)

	symKey := f.fileKey(doc)

	local := doc.Clone()
	localHMAC := f.writeLocalOnly(local, []byte("document content 2 (local)"), symKey)
	local.DocumentHMAC = localHMAC[:]
	localOverlay := map[model.FileID]*model.File{doc.ID: local}

	remote := doc.Clone()
	remoteHMAC, err := f.docs.SafeWrite(context.Background(), doc.ID, [32]byte{}, []byte("document content 2 (remote)"), symKey)
	require.NoError(t, err)
	remote.DocumentHMAC = remoteHMAC[:]
	remote.Version = 2
	require.NoError(t, f.docs.Promote(context.Background(), docs.ContentKey{ID: doc.ID, HMAC: remoteHMAC}))

	mr, err := merge(context.Background(), base, localOverlay, []*model.File{remote}, f.keychain, f.docs)
	require.NoError(t, err)

	// The original id keeps remote's content; nothing further to push for it.
	if entry, ok := mr.mergedOverlay[doc.ID]; ok {
		assert.Nil(t, entry)
	}

	// Exactly one forked sibling, carrying the local edit under a fresh id.
	var forkID model.FileID
	forkCount := 0
	for id, entry := range mr.mergedOverlay {
		if id != doc.ID && entry != nil {
			forkID = id
			forkCount++
		}
	}
	require.Equal(t, 1, forkCount)
	fork := mr.mergedOverlay[forkID]
	assert.Equal(t, doc.ParentID, fork.ParentID)
	assert.NotEqual(t, doc.ID, fork.ID)
	require.Len(t, mr.contentWrites, 1)
	assert.Equal(t, "document content 2 (local)", string(mr.contentWrites[0].plaintext))

	name, err := crypto.OpenBytes(symKey, fork.EncryptedName)
	require.NoError(t, err)
	assert.Equal(t, "drawing-1.draw", string(name))
}

func TestMergeResolvesPathConflictOnIndependentlyCreatedSiblings(t *testing.T) {
	t.Parallel()
	f := newMergeFixture(t)
	base, rootID := newBaseWithRoot(f.account.Fingerprint())

	localNew := f.newFile(rootID, "notes.md", model.Document)
	localOverlay := map[model.FileID]*model.File{localNew.ID: localNew}

	remoteNew := f.newFile(rootID, "notes.md", model.Document)
	remoteNew.Version = 1

	mr, err := merge(context.Background(), base, localOverlay, []*model.File{remoteNew}, f.keychain, f.docs)
	require.NoError(t, err)

	// The local file (not present in the common ancestor, so the per-id
	// conflict loop never touches it) is the one renamed to disambiguate.
	renamed, ok := mr.mergedOverlay[localNew.ID]
	require.True(t, ok)
	require.NotNil(t, renamed)
	key := f.fileKey(localNew)
	name, err := crypto.OpenBytes(key, renamed.EncryptedName)
	require.NoError(t, err)
	assert.Equal(t, "notes-1.md", string(name))
}
