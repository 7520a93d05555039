package validate

import (
	"testing"

	"github.com/lockbook/lockbook/pkg/model"
	"github.com/lockbook/lockbook/pkg/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const alice model.PublicKey = "alice"
const bob model.PublicKey = "bob"

func newRoot(owner model.PublicKey) (*tree.HashTree, model.FileID) {
	id := model.NewFileID()
	h := tree.NewHashTree()
	h.Insert(&model.File{ID: id, ParentID: id, Type: model.Folder, Owner: owner})
	return h, id
}

func TestValidatePassesOnEmptyDiff(t *testing.T) {
	t.Parallel()
	base, _ := newRoot(alice)
	staged := tree.NewStaged(base)

	err := Validate(staged, base, alice, DefaultOptions())
	assert.NoError(t, err)
}

func TestValidateRejectsNonFolderWithChildren(t *testing.T) {
	t.Parallel()
	base, rootID := newRoot(alice)
	staged := tree.NewStaged(base)

	doc := model.NewFileID()
	staged.Insert(&model.File{ID: doc, ParentID: rootID, Type: model.Document, Owner: alice})
	bogusChild := model.NewFileID()
	staged.Insert(&model.File{ID: bogusChild, ParentID: doc, Type: model.Document, Owner: alice})

	err := Validate(staged, base, alice, DefaultOptions())
	require.Error(t, err)
	assert.True(t, As(err, NonFolderWithChildren))
}

func TestValidateRejectsOwnerMismatch(t *testing.T) {
	t.Parallel()
	base, rootID := newRoot(alice)
	staged := tree.NewStaged(base)

	doc := model.NewFileID()
	staged.Insert(&model.File{
		ID: doc, ParentID: rootID, Type: model.Document, Owner: bob,
		EncryptedKey: map[model.PublicKey][]byte{alice: []byte("sealed-for-alice")},
	})

	err := Validate(staged, base, alice, DefaultOptions())
	require.Error(t, err)
	assert.True(t, As(err, FileWithDifferentOwnerParent))
}

func TestValidateRejectsUpdateToDeletedFile(t *testing.T) {
	t.Parallel()
	base, rootID := newRoot(alice)
	doc := model.NewFileID()
	base.Insert(&model.File{ID: doc, ParentID: rootID, Type: model.Document, Owner: alice, Deleted: true})

	staged := tree.NewStaged(base)
	original, _ := base.Find(doc)
	renamed := original.Clone()
	renamed.EncryptedName = []byte("new-name")
	staged.Insert(renamed)

	err := Validate(staged, base, alice, DefaultOptions())
	require.Error(t, err)
	assert.True(t, As(err, DeletedFileUpdated))
}

func TestValidateRejectsCreateWithoutWriteAccess(t *testing.T) {
	t.Parallel()
	base, rootID := newRoot(alice)
	root, _ := base.Find(rootID)
	root.EncryptedKey = map[model.PublicKey][]byte{bob: []byte("sealed-root-key-for-bob")}
	base.Insert(root)
	staged := tree.NewStaged(base)

	doc := model.NewFileID()
	staged.Insert(&model.File{
		ID: doc, ParentID: rootID, Type: model.Document, Owner: alice,
		EncryptedKey: map[model.PublicKey][]byte{bob: []byte("sealed-for-bob")},
	})

	// bob holds sealed keys but no grant anywhere in base, so creating under
	// alice's root is denied.
	err := Validate(staged, base, bob, DefaultOptions())
	require.Error(t, err)
	assert.True(t, As(err, InsufficientPermission))
}

func TestValidateAllowsCreateWithWriteGrant(t *testing.T) {
	t.Parallel()
	base, rootID := newRoot(alice)
	root, _ := base.Find(rootID)
	root.UserAccessKeys = append(root.UserAccessKeys, model.ShareGrant{
		EncryptedBy: alice, EncryptedFor: bob, Mode: model.Write,
	})
	root.EncryptedKey = map[model.PublicKey][]byte{bob: []byte("sealed-root-key-for-bob")}
	base.Insert(root)

	staged := tree.NewStaged(base)
	doc := model.NewFileID()
	staged.Insert(&model.File{
		ID: doc, ParentID: rootID, Type: model.Document, Owner: alice,
		EncryptedKey: map[model.PublicKey][]byte{bob: []byte("sealed-for-bob")},
	})

	err := Validate(staged, base, bob, DefaultOptions())
	assert.NoError(t, err)
}

func TestValidateRejectsBrokenLink(t *testing.T) {
	t.Parallel()
	base, rootID := newRoot(alice)
	staged := tree.NewStaged(base)

	link := model.NewFileID()
	missingTarget := model.NewFileID()
	staged.Insert(&model.File{
		ID: link, ParentID: rootID, Type: model.Link, Owner: alice,
		LinkTarget: &model.LinkTarget{TargetID: missingTarget},
	})

	err := Validate(staged, base, alice, DefaultOptions())
	require.Error(t, err)
	assert.True(t, As(err, BrokenLink))
}

func TestValidateRejectsOwnedLink(t *testing.T) {
	t.Parallel()
	base, rootID := newRoot(alice)
	target := model.NewFileID()
	base.Insert(&model.File{ID: target, ParentID: rootID, Type: model.Document, Owner: alice})

	staged := tree.NewStaged(base)
	link := model.NewFileID()
	staged.Insert(&model.File{
		ID: link, ParentID: rootID, Type: model.Link, Owner: alice,
		LinkTarget: &model.LinkTarget{TargetID: target},
	})

	err := Validate(staged, base, alice, DefaultOptions())
	require.Error(t, err)
	assert.True(t, As(err, OwnedLink))
}
