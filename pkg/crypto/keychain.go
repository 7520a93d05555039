package crypto

import (
	"fmt"
	"sync"

	"github.com/lockbook/lockbook/pkg/model"
	"github.com/lockbook/lockbook/pkg/tree"
)

// Keychain holds the account keypair and a process-wide cache mapping
// file id to decrypted symmetric key, per spec.md §4.5. It is the single
// authority for decryption: every higher layer (tree, validate, docs)
// requests keys through it rather than unsealing directly.
//
// Decrypted keys are derived by first checking the file's own EncryptedKey
// entry for the viewer (the owner's root, or a file shared directly to the
// viewer), and falling back to walking up the ancestor chain for the
// nearest decryptable entry, then deriving each descendant's key from its
// parent's via HKDF keyed by file id — the "owned ancestor down through
// parent-key-sealed children" scheme spec.md §4.5 describes. Files created
// by pkg/core carry no EncryptedKey entry of their own, so this fallback is
// how every non-root file's key is obtained unless it was shared directly.
type Keychain struct {
	mu       sync.RWMutex
	account  *AccountKey
	known    map[model.PublicKey]PublicKeySet
	fileKeys map[model.FileID][32]byte
}

// NewKeychain wraps an account's keypair with empty caches.
func NewKeychain(account *AccountKey) *Keychain {
	return &Keychain{
		account:  account,
		known:    make(map[model.PublicKey]PublicKeySet),
		fileKeys: make(map[model.FileID][32]byte),
	}
}

// Account returns the underlying account key, for signing wire requests.
func (k *Keychain) Account() *AccountKey {
	return k.account
}

// LearnKey records another account's public key set, as returned by
// wire.Client.GetPublicKey. Required before sealing a file key to them.
func (k *Keychain) LearnKey(id model.PublicKey, ks PublicKeySet) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.known[id] = ks
}

// SealForOwner seals key to the account's own box key, the form used for
// the account root's EncryptedKey entry at account creation.
func (k *Keychain) SealForOwner(key [32]byte) ([]byte, error) {
	return SealTo(k.account.BoxPub, key)
}

// SealForRecipient seals key to a previously learned account.
func (k *Keychain) SealForRecipient(recipient model.PublicKey, key [32]byte) ([]byte, error) {
	k.mu.RLock()
	ks, ok := k.known[recipient]
	k.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("crypto: no known public key for %q", recipient)
	}
	return SealTo(ks.Box, key)
}

// DecryptFileKey returns the decrypted symmetric key for id, viewed from
// this account, using view to resolve ancestors and each file's sealed
// key material.
func (k *Keychain) DecryptFileKey(view tree.Tree, id model.FileID) ([32]byte, error) {
	k.mu.RLock()
	if key, ok := k.fileKeys[id]; ok {
		k.mu.RUnlock()
		return key, nil
	}
	k.mu.RUnlock()

	f, ok := view.Find(id)
	if !ok {
		return [32]byte{}, fmt.Errorf("crypto: file %s not found", id)
	}

	viewer := k.account.Fingerprint()
	if sealed, ok := f.EncryptedKey[viewer]; ok {
		key, err := OpenSealed(k.account.BoxPriv, k.account.BoxPub, sealed)
		if err != nil {
			return key, err
		}
		k.cache(id, key)
		return key, nil
	}

	return k.deriveFromAncestor(view, id)
}

func (k *Keychain) deriveFromAncestor(view tree.Tree, id model.FileID) ([32]byte, error) {
	chain := view.Ancestors(id)
	viewer := k.account.Fingerprint()

	for i, ancestorID := range chain {
		if ancestorID == id {
			continue
		}
		f, ok := view.Find(ancestorID)
		if !ok {
			continue
		}
		sealed, ok := f.EncryptedKey[viewer]
		if !ok {
			continue
		}
		ancestorKey, err := OpenSealed(k.account.BoxPriv, k.account.BoxPub, sealed)
		if err != nil {
			return ancestorKey, err
		}
		// Derive each step back down from ancestorID to id.
		derived := ancestorKey
		for j := i - 1; j >= 0; j-- {
			var err error
			derived, err = deriveChildKey(derived, chain[j])
			if err != nil {
				return derived, err
			}
		}
		k.cache(id, derived)
		return derived, nil
	}
	return [32]byte{}, fmt.Errorf("crypto: no decryptable key found for file %s", id)
}

func (k *Keychain) cache(id model.FileID, key [32]byte) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.fileKeys[id] = key
}

// Forget evicts a cached file key, e.g. after a share revocation changes
// which seal is authoritative for id.
func (k *Keychain) Forget(id model.FileID) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.fileKeys, id)
}

// CanDecrypt implements validate.Decryptor: it reports whether f carries a
// sealed key entry for viewer, without actually unsealing it (cheap,
// since validate runs this check for every id in the proposed tree).
func (k *Keychain) CanDecrypt(viewer model.PublicKey, f *model.File) bool {
	_, ok := f.EncryptedKey[viewer]
	return ok
}

// Name implements validate.NameResolver, decrypting f's name for sibling
// path-uniqueness comparisons. It only consults the file-key cache (it
// cannot walk ancestors without a tree view), so callers should warm the
// cache via DecryptFileKey first; an uncached or undecryptable entry is
// reported as "not comparable" rather than an error, per the NameResolver
// contract.
func (k *Keychain) Name(viewer model.PublicKey, f *model.File) (string, bool) {
	if viewer != k.account.Fingerprint() {
		return "", false // Keychain only decrypts for its own account
	}
	k.mu.RLock()
	key, ok := k.fileKeys[f.ID]
	k.mu.RUnlock()
	if !ok {
		return "", false
	}
	plain, err := OpenBytes(key, f.EncryptedName)
	if err != nil {
		return "", false
	}
	return string(plain), true
}

func deriveChildKey(parentKey [32]byte, childID model.FileID) ([32]byte, error) {
	return deriveAEADKey(parentKey[:], childID[:], nil)
}
