package repo

import (
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"
)

var (
	keySalt     = []byte("account:salt")
	keySealed   = []byte("account:sealed")
	keyUsername = []byte("account:username")
	keyAPIURL   = []byte("account:api_url")
)

// SaveAccountSecret persists the passphrase salt and sealed account key
// material produced by pkg/crypto.SealAccountKey, written only at account
// creation or import, per spec.md §5's "keychain is written only when new
// shares appear or when the owner's root is loaded" (account bootstrap is
// the one-time exception).
func (s *Store) SaveAccountSecret(salt, sealed []byte) error {
	s.muKeychain.Lock()
	defer s.muKeychain.Unlock()
	return s.keychain.Update(func(txn *badgerdb.Txn) error {
		if err := txn.Set(keySalt, salt); err != nil {
			return fmt.Errorf("repo: write account salt: %w", err)
		}
		if err := txn.Set(keySealed, sealed); err != nil {
			return fmt.Errorf("repo: write sealed account key: %w", err)
		}
		return nil
	})
}

// LoadAccountSecret returns the persisted salt and sealed account key, or
// ok=false if no account has been created/imported in this store yet.
func (s *Store) LoadAccountSecret() (salt, sealed []byte, ok bool, err error) {
	s.muKeychain.RLock()
	defer s.muKeychain.RUnlock()

	err = s.keychain.View(func(txn *badgerdb.Txn) error {
		saltItem, e := txn.Get(keySalt)
		if e == badgerdb.ErrKeyNotFound {
			return nil
		}
		if e != nil {
			return e
		}
		sealedItem, e := txn.Get(keySealed)
		if e != nil {
			return e
		}
		salt, e = saltItem.ValueCopy(nil)
		if e != nil {
			return e
		}
		sealed, e = sealedItem.ValueCopy(nil)
		if e != nil {
			return e
		}
		ok = true
		return nil
	})
	if err != nil {
		return nil, nil, false, fmt.Errorf("repo: load account secret: %w", err)
	}
	return salt, sealed, ok, nil
}

// SaveAccountMeta persists the username and api url chosen at account
// creation or import, alongside the sealed key material.
func (s *Store) SaveAccountMeta(username, apiURL string) error {
	s.muKeychain.Lock()
	defer s.muKeychain.Unlock()
	return s.keychain.Update(func(txn *badgerdb.Txn) error {
		if err := txn.Set(keyUsername, []byte(username)); err != nil {
			return fmt.Errorf("repo: write account username: %w", err)
		}
		if err := txn.Set(keyAPIURL, []byte(apiURL)); err != nil {
			return fmt.Errorf("repo: write account api url: %w", err)
		}
		return nil
	})
}

// LoadAccountMeta returns the persisted username and api url, or ok=false
// if no account has been created/imported in this store yet.
func (s *Store) LoadAccountMeta() (username, apiURL string, ok bool, err error) {
	s.muKeychain.RLock()
	defer s.muKeychain.RUnlock()

	err = s.keychain.View(func(txn *badgerdb.Txn) error {
		uItem, e := txn.Get(keyUsername)
		if e == badgerdb.ErrKeyNotFound {
			return nil
		}
		if e != nil {
			return e
		}
		aItem, e := txn.Get(keyAPIURL)
		if e != nil {
			return e
		}
		uBytes, e := uItem.ValueCopy(nil)
		if e != nil {
			return e
		}
		aBytes, e := aItem.ValueCopy(nil)
		if e != nil {
			return e
		}
		username, apiURL, ok = string(uBytes), string(aBytes), true
		return nil
	})
	if err != nil {
		return "", "", false, fmt.Errorf("repo: load account meta: %w", err)
	}
	return username, apiURL, ok, nil
}
