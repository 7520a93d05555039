package core

import (
	"context"
	"encoding/hex"

	"github.com/lockbook/lockbook/pkg/crypto"
	"github.com/lockbook/lockbook/pkg/lberrors"
	"github.com/lockbook/lockbook/pkg/model"
)

// PendingShare describes an incoming share grant this account hasn't yet
// linked into its own tree, per spec.md §6's get_pending_shares.
type PendingShare struct {
	ID            model.FileID
	Name          string
	SharedBy      string
	Mode          model.AccessMode
	OriginalOwner model.PublicKey
}

// usernameForLocked resolves pub to a username, preferring this account's
// own cached value, falling back to a reverse wire lookup cached for
// later calls.
func (lb *Lb) usernameForLocked(ctx context.Context, pub model.PublicKey) (string, error) {
	if pub == lb.viewer() {
		return lb.username, nil
	}
	if name, ok := lb.usernames[pub]; ok {
		return name, nil
	}
	reqCtx, cancel := withContext(ctx)
	defer cancel()
	resp, err := lb.wire.GetUsername(reqCtx, pub)
	if err != nil {
		return "", translateWireErr(err)
	}
	lb.usernames[pub] = resp.Username
	return resp.Username, nil
}

// ShareFile grants username access to id at mode, per spec.md §6's
// share_file. The recipient's public key is learned (and cached) from
// the server, then the file's symmetric key is sealed directly to them:
// both a ShareGrant (authorization) and an EncryptedKey entry (key
// material) are required, per pkg/validate's authorization checks and
// pkg/crypto.Keychain's decryption checks respectively.
func (lb *Lb) ShareFile(ctx context.Context, id model.FileID, username string, mode model.AccessMode) error {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	if err := lb.requireAccount(); err != nil {
		return err
	}

	f, ok := lb.lazy.Find(id)
	if !ok {
		return lberrors.NotFound("file", id.String())
	}

	reqCtx, cancel := withContext(ctx)
	pkResp, err := lb.wire.GetPublicKey(reqCtx, username)
	cancel()
	if err != nil {
		return translateWireErr(err)
	}
	recipient := model.PublicKey(hex.EncodeToString(pkResp.SignPublicKey))
	lb.usernames[recipient] = username

	var boxPub [32]byte
	copy(boxPub[:], pkResp.BoxPublicKey)
	lb.keychain.LearnKey(recipient, crypto.PublicKeySet{Sign: pkResp.SignPublicKey, Box: boxPub})

	fileKey, err := lb.keychain.DecryptFileKey(lb.lazy, id)
	if err != nil {
		return lberrors.Wrap(lberrors.KindUnexpected, "core: resolve file key", err)
	}
	sealed, err := lb.keychain.SealForRecipient(recipient, fileKey)
	if err != nil {
		return lberrors.Wrap(lberrors.KindUnexpected, "core: seal file key for recipient", err)
	}

	clone := f.Clone()
	if clone.EncryptedKey == nil {
		clone.EncryptedKey = make(map[model.PublicKey][]byte)
	}
	clone.EncryptedKey[recipient] = sealed
	clone.UserAccessKeys = upsertGrant(clone.UserAccessKeys, model.ShareGrant{
		EncryptedBy:   lb.viewer(),
		EncryptedFor:  recipient,
		Mode:          mode,
		SealedFileKey: sealed,
	})

	if err := lb.applyAndValidate(clone); err != nil {
		return err
	}
	return lb.commit()
}

// upsertGrant replaces the grant for the same (by, for) pair if present,
// else appends it.
func upsertGrant(grants []model.ShareGrant, g model.ShareGrant) []model.ShareGrant {
	for i, existing := range grants {
		if existing.EncryptedBy == g.EncryptedBy && existing.EncryptedFor == g.EncryptedFor {
			grants[i] = g
			return grants
		}
	}
	return append(grants, g)
}

// GetPendingShares lists every file shared to this account that hasn't
// yet been linked into its own tree, per spec.md §6's get_pending_shares.
func (lb *Lb) GetPendingShares(ctx context.Context) ([]*PendingShare, error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	if err := lb.requireAccount(); err != nil {
		return nil, err
	}

	viewer := lb.viewer()
	linked := make(map[model.FileID]bool)
	for _, id := range lb.lazy.IDs() {
		f, ok := lb.lazy.Find(id)
		if !ok || f.Type != model.Link || f.LinkTarget == nil {
			continue
		}
		linked[f.LinkTarget.TargetID] = true
	}

	var out []*PendingShare
	for _, id := range lb.lazy.IDs() {
		f, ok := lb.lazy.Find(id)
		if !ok || f.Owner == viewer || f.Deleted || linked[id] {
			continue
		}
		var grant *model.ShareGrant
		for i := range f.UserAccessKeys {
			g := f.UserAccessKeys[i]
			if g.EncryptedFor == viewer && !g.Deleted {
				grant = &f.UserAccessKeys[i]
				break
			}
		}
		if grant == nil {
			continue
		}
		name, err := lb.decryptName(f)
		if err != nil {
			name = id.String()[:8]
		}
		sharedBy, err := lb.usernameForLocked(ctx, f.Owner)
		if err != nil {
			sharedBy = string(f.Owner)
		}
		out = append(out, &PendingShare{
			ID:            id,
			Name:          name,
			SharedBy:      sharedBy,
			Mode:          grant.Mode,
			OriginalOwner: f.Owner,
		})
	}
	return out, nil
}

// RejectShare revokes this account's own grant on id, per spec.md §6's
// reject_share. Self-revocation is always authorized regardless of the
// viewer's access level on the file's parent.
func (lb *Lb) RejectShare(id model.FileID) error {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	if err := lb.requireAccount(); err != nil {
		return err
	}

	f, ok := lb.lazy.Find(id)
	if !ok {
		return lberrors.NotFound("file", id.String())
	}
	viewer := lb.viewer()

	clone := f.Clone()
	found := false
	for i := range clone.UserAccessKeys {
		if clone.UserAccessKeys[i].EncryptedFor == viewer {
			clone.UserAccessKeys[i].Deleted = true
			found = true
		}
	}
	if !found {
		return lberrors.NotFound("pending share", id.String())
	}
	delete(clone.EncryptedKey, viewer)

	if err := lb.applyAndValidate(clone); err != nil {
		return err
	}
	return lb.commit()
}
