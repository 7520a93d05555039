package crypto

import (
	"testing"

	"github.com/lockbook/lockbook/pkg/model"
	"github.com/lockbook/lockbook/pkg/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeychainDecryptsOwnRootKey(t *testing.T) {
	t.Parallel()
	account, err := GenerateAccountKey()
	require.NoError(t, err)
	kc := NewKeychain(account)

	rootKey, err := GenerateSymmetricKey()
	require.NoError(t, err)
	sealed, err := kc.SealForOwner(rootKey)
	require.NoError(t, err)

	rootID := model.NewFileID()
	h := tree.NewHashTree()
	h.Insert(&model.File{
		ID: rootID, ParentID: rootID, Type: model.Folder, Owner: account.Fingerprint(),
		EncryptedKey: map[model.PublicKey][]byte{account.Fingerprint(): sealed},
	})

	got, err := kc.DecryptFileKey(h, rootID)
	require.NoError(t, err)
	assert.Equal(t, rootKey, got)
}

func TestKeychainDerivesDescendantKeyFromAncestor(t *testing.T) {
	t.Parallel()
	account, err := GenerateAccountKey()
	require.NoError(t, err)
	kc := NewKeychain(account)

	rootKey, err := GenerateSymmetricKey()
	require.NoError(t, err)
	sealed, err := kc.SealForOwner(rootKey)
	require.NoError(t, err)

	rootID := model.NewFileID()
	childID := model.NewFileID()
	h := tree.NewHashTree()
	h.Insert(&model.File{
		ID: rootID, ParentID: rootID, Type: model.Folder, Owner: account.Fingerprint(),
		EncryptedKey: map[model.PublicKey][]byte{account.Fingerprint(): sealed},
	})
	// The child carries no direct seal for the viewer; its key must be
	// derived from the root's.
	h.Insert(&model.File{ID: childID, ParentID: rootID, Type: model.Document, Owner: account.Fingerprint()})

	childKey, err := kc.DecryptFileKey(h, childID)
	require.NoError(t, err)

	expected, err := deriveChildKey(rootKey, childID)
	require.NoError(t, err)
	assert.Equal(t, expected, childKey)

	// A second call hits the cache and returns the same value.
	again, err := kc.DecryptFileKey(h, childID)
	require.NoError(t, err)
	assert.Equal(t, childKey, again)
}

func TestKeychainDecryptFileKeyNotFound(t *testing.T) {
	t.Parallel()
	account, err := GenerateAccountKey()
	require.NoError(t, err)
	kc := NewKeychain(account)
	h := tree.NewHashTree()

	_, err = kc.DecryptFileKey(h, model.NewFileID())
	assert.Error(t, err)
}

func TestKeychainCanDecryptAndName(t *testing.T) {
	t.Parallel()
	account, err := GenerateAccountKey()
	require.NoError(t, err)
	kc := NewKeychain(account)

	rootKey, err := GenerateSymmetricKey()
	require.NoError(t, err)
	sealed, err := kc.SealForOwner(rootKey)
	require.NoError(t, err)
	encName, err := SealBytes(rootKey, []byte("root"))
	require.NoError(t, err)

	rootID := model.NewFileID()
	f := &model.File{
		ID: rootID, ParentID: rootID, Type: model.Folder, Owner: account.Fingerprint(),
		EncryptedKey:  map[model.PublicKey][]byte{account.Fingerprint(): sealed},
		EncryptedName: encName,
	}
	h := tree.NewHashTree()
	h.Insert(f)

	assert.True(t, kc.CanDecrypt(account.Fingerprint(), f))

	_, err = kc.DecryptFileKey(h, rootID)
	require.NoError(t, err)

	name, ok := kc.Name(account.Fingerprint(), f)
	require.True(t, ok)
	assert.Equal(t, "root", name)
}
