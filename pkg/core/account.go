package core

import (
	"context"
	"crypto/ed25519"
	"encoding/base32"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/lockbook/lockbook/pkg/crypto"
	"github.com/lockbook/lockbook/pkg/lberrors"
	"github.com/lockbook/lockbook/pkg/model"
	lbsync "github.com/lockbook/lockbook/pkg/sync"
	"github.com/lockbook/lockbook/pkg/tree"
	"github.com/lockbook/lockbook/pkg/wire"
)

// AccountInfo is the public summary of the loaded account, per spec.md §6's
// get_account operation.
type AccountInfo struct {
	Username string
	APIURL   string
}

// exportedKey is the JSON shape serialized by ExportAccountPrivateKey and
// parsed by ImportAccount: only the private halves travel, since the
// public keys and the account's sealed root are always re-derivable.
type exportedKey struct {
	Username string `json:"username"`
	APIURL   string `json:"api_url"`
	SignPriv []byte `json:"sign_priv"`
	BoxPriv  [32]byte `json:"box_priv"`
}

// CreateAccount registers a new username with apiURL, generating a fresh
// account keypair and a self-loop root folder, per spec.md §6's account
// bootstrap: the root's name and symmetric key are sealed under
// themselves, since no parent exists yet to derive from.
func (lb *Lb) CreateAccount(ctx context.Context, username string, apiURL string) error {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if lb.keychain != nil {
		return lberrors.New(lberrors.KindConflict, "core: account already exists")
	}
	if strings.TrimSpace(username) == "" {
		return lberrors.New(lberrors.KindValidation, "core: username must not be empty")
	}

	account, err := crypto.GenerateAccountKey()
	if err != nil {
		return lberrors.Wrap(lberrors.KindUnexpected, "core: generate account key", err)
	}
	keychain := crypto.NewKeychain(account)

	rootKey, err := crypto.GenerateSymmetricKey()
	if err != nil {
		return lberrors.Wrap(lberrors.KindUnexpected, "core: generate root key", err)
	}
	sealedRootKey, err := keychain.SealForOwner(rootKey)
	if err != nil {
		return lberrors.Wrap(lberrors.KindUnexpected, "core: seal root key", err)
	}
	sealedName, err := crypto.SealBytes(rootKey, []byte(username))
	if err != nil {
		return lberrors.Wrap(lberrors.KindUnexpected, "core: seal root name", err)
	}

	rootID := model.NewFileID()
	root := &model.File{
		ID:            rootID,
		ParentID:      rootID,
		Type:          model.Folder,
		Owner:         account.Fingerprint(),
		EncryptedName: sealedName,
		EncryptedKey:  map[model.PublicKey][]byte{account.Fingerprint(): sealedRootKey},
	}

	wireClient := wire.New(apiURL, account)
	reqCtx, cancel := withContext(ctx)
	defer cancel()
	if _, err := wireClient.NewAccount(reqCtx, username, root); err != nil {
		return translateWireErr(err)
	}

	salt, sealed, err := crypto.SealAccountKey(account, "")
	if err != nil {
		return lberrors.Wrap(lberrors.KindUnexpected, "core: seal account key", err)
	}
	if err := lb.store.SaveAccountSecret(salt, sealed); err != nil {
		return err
	}
	if err := lb.store.SaveAccountMeta(username, apiURL); err != nil {
		return err
	}

	base := tree.NewHashTree()
	base.Insert(root)
	if err := lb.store.SaveBaseTree(base); err != nil {
		return lberrors.Wrap(lberrors.KindUnexpected, "core: persist root", err)
	}

	lb.username = username
	lb.keychain = keychain
	lb.wire = wireClient
	lb.engine = lbsync.New(lb.store, lb.docs, lb.wire, lb.keychain)
	return lb.reloadLocked()
}

// ImportAccount loads an account from a key string previously produced by
// ExportAccountPrivateKey. It fails with a Conflict if this store already
// has an account loaded. apiURL overrides the exported one when non-empty, for moving an
// account to a different server.
func (lb *Lb) ImportAccount(ctx context.Context, serializedKey string, apiURL string) error {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if lb.keychain != nil {
		return lberrors.New(lberrors.KindConflict, "core: account already exists")
	}

	raw, err := base64.StdEncoding.DecodeString(serializedKey)
	if err != nil {
		return lberrors.Wrap(lberrors.KindValidation, "core: malformed account key", err)
	}
	var exported exportedKey
	if err := json.Unmarshal(raw, &exported); err != nil {
		return lberrors.Wrap(lberrors.KindValidation, "core: malformed account key", err)
	}
	if apiURL == "" {
		apiURL = exported.APIURL
	}

	account, err := crypto.AccountKeyFromPrivate(ed25519.PrivateKey(exported.SignPriv), exported.BoxPriv)
	if err != nil {
		return lberrors.Wrap(lberrors.KindValidation, "core: rebuild account key", err)
	}

	wireClient := wire.New(apiURL, account)
	reqCtx, cancel := withContext(ctx)
	defer cancel()
	if _, err := wireClient.GetPublicKey(reqCtx, exported.Username); err != nil {
		return translateWireErr(err)
	}

	salt, sealed, err := crypto.SealAccountKey(account, "")
	if err != nil {
		return lberrors.Wrap(lberrors.KindUnexpected, "core: seal account key", err)
	}
	if err := lb.store.SaveAccountSecret(salt, sealed); err != nil {
		return err
	}
	if err := lb.store.SaveAccountMeta(exported.Username, apiURL); err != nil {
		return err
	}

	lb.username = exported.Username
	lb.cfg.APIURL = apiURL
	lb.keychain = crypto.NewKeychain(account)
	lb.wire = wireClient
	lb.engine = lbsync.New(lb.store, lb.docs, lb.wire, lb.keychain)

	if err := lb.reloadLocked(); err != nil {
		return err
	}
	_, err = lb.runSyncLocked(ctx, nil)
	return err
}

// ExportAccountPrivateKey serializes the loaded account's private key
// material plus username/api url as a base64 string, the form ImportAccount
// consumes on another device.
func (lb *Lb) ExportAccountPrivateKey() (string, error) {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	if err := lb.requireAccount(); err != nil {
		return "", err
	}
	account := lb.keychain.Account()
	exported := exportedKey{
		Username: lb.username,
		APIURL:   lb.cfg.APIURL,
		SignPriv: account.SignPriv,
		BoxPriv:  account.BoxPriv,
	}
	raw, err := json.Marshal(exported)
	if err != nil {
		return "", lberrors.Wrap(lberrors.KindUnexpected, "core: marshal account key", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// phraseEncoding is a base32 grouped encoding used only for presenting the
// exported key as a phrase a user can read aloud or copy by hand; it is not
// a BIP39 mnemonic, since no wordlist library is part of this stack.
var phraseEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// ExportAccountPhrase renders the exported account key as space-grouped
// base32, a denser-than-hex but still typeable alternative to
// ExportAccountPrivateKey's base64 form.
func (lb *Lb) ExportAccountPhrase() (string, error) {
	key, err := lb.ExportAccountPrivateKey()
	if err != nil {
		return "", err
	}
	encoded := phraseEncoding.EncodeToString([]byte(key))
	var groups []string
	for i := 0; i < len(encoded); i += 4 {
		end := i + 4
		if end > len(encoded) {
			end = len(encoded)
		}
		groups = append(groups, encoded[i:end])
	}
	return strings.Join(groups, " "), nil
}

// ExportAccountQR returns the raw bytes an outer layer (CLI, UI shell)
// renders into a scannable code; rendering a QR image is outside this
// package's scope.
func (lb *Lb) ExportAccountQR() ([]byte, error) {
	key, err := lb.ExportAccountPrivateKey()
	if err != nil {
		return nil, err
	}
	return []byte(key), nil
}

// GetAccount returns the loaded account's username and server.
func (lb *Lb) GetAccount() (*AccountInfo, error) {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	if err := lb.requireAccount(); err != nil {
		return nil, err
	}
	return &AccountInfo{Username: lb.username, APIURL: lb.cfg.APIURL}, nil
}

// DeleteAccount drops the four locally persisted sections (metadata base
// and local, keychain, watermark) via repo.Store.WipeAccount; document
// blobs are not deleted and stay on disk. It does not reach out to the server: the
// account remains registered there and can be re-imported elsewhere.
func (lb *Lb) DeleteAccount() error {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	if err := lb.requireAccount(); err != nil {
		return err
	}
	if err := lb.store.WipeAccount(); err != nil {
		return lberrors.Wrap(lberrors.KindDisk, "core: wipe account", err)
	}
	lb.username = ""
	lb.keychain = nil
	lb.wire = nil
	lb.engine = nil
	return lb.reloadLocked()
}

func translateWireErr(err error) error {
	if apiErr, ok := err.(*wire.APIError); ok {
		switch {
		case apiErr.Kind == wire.ErrorServerUnreachable:
			return lberrors.Network("ServerUnreachable", apiErr.Message)
		case apiErr.IsAuthError():
			return lberrors.Network("ExpiredAuth", apiErr.Message)
		case apiErr.IsClientUpdateRequired():
			return lberrors.Network("ClientUpdateRequired", apiErr.Message)
		case apiErr.IsConflict():
			return lberrors.Conflict(apiErr.Message, apiErr.Endpoint)
		default:
			return lberrors.Network("InternalError", apiErr.Message)
		}
	}
	return lberrors.Wrap(lberrors.KindNetwork, "core: wire request failed", err)
}
