package sync

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"sort"

	"github.com/lockbook/lockbook/pkg/crypto"
	"github.com/lockbook/lockbook/pkg/docs"
	"github.com/lockbook/lockbook/pkg/model"
	"github.com/lockbook/lockbook/pkg/tree"
)

// contentMergeWrite is a document write the merge phase decided to make
// directly (the three-way textual merge result), to be sealed and staged
// into the local document store before Phase P5/P6 push it.
type contentMergeWrite struct {
	id        model.FileID
	oldHMAC   [32]byte
	plaintext []byte
}

// mergeResult is Phase P2's output: the new remote-base tree, the
// possibly-reduced local overlay to validate and push, and any content
// merges the caller still needs to seal and write.
type mergeResult struct {
	remoteBase    *tree.HashTree
	mergedOverlay map[model.FileID]*model.File // nil value = tombstone; absent key = no diff from remoteBase
	contentWrites []contentMergeWrite
}

// merge implements spec.md §4.4 Phase P2. base is the prior base tree;
// localOverlay is the client's pending local diff (nil value = tombstone,
// per tree.Staged.Overlay's representation); remoteUpdates are the files
// the server returned as changed since the last watermark. keychain and
// docStore resolve plaintext names and content for the three-way textual
// merge attempt on conflicting document edits.
func merge(
	ctx context.Context,
	base *tree.HashTree,
	localOverlay map[model.FileID]*model.File,
	remoteUpdates []*model.File,
	keychain *crypto.Keychain,
	docStore *docs.Store,
) (*mergeResult, error) {
	remoteBase := base.Clone()
	remoteByID := make(map[model.FileID]*model.File, len(remoteUpdates))
	for _, f := range remoteUpdates {
		remoteByID[f.ID] = f
		remoteBase.Insert(f.Clone())
	}

	result := &mergeResult{
		remoteBase:    remoteBase,
		mergedOverlay: make(map[model.FileID]*model.File, len(localOverlay)),
	}

	// Seed with every local change; conflicting ids get overwritten below.
	for id, f := range localOverlay {
		if f == nil {
			result.mergedOverlay[id] = nil
			continue
		}
		result.mergedOverlay[id] = f.Clone()
	}

	r := &conflictResolver{ctx: ctx, remoteBase: remoteBase, keychain: keychain, docStore: docStore}

	for id, localFile := range localOverlay {
		remoteFile, inRemote := remoteByID[id]
		if !inRemote || localFile == nil {
			continue // no conflict, or a local delete (delete dominance needs no special-casing: it already wins by definition once pushed)
		}
		oldBase, hasBase := base.Find(id)
		if !hasBase {
			continue // file didn't exist in the common ancestor; nothing to reconcile
		}

		resolved, dup, writes, err := r.resolve(id, oldBase, localFile, remoteFile)
		if err != nil {
			return nil, err
		}
		result.contentWrites = append(result.contentWrites, writes...)

		if resolved == nil {
			delete(result.mergedOverlay, id)
		} else {
			result.mergedOverlay[id] = resolved
		}
		if dup != nil {
			result.mergedOverlay[dup.ID] = dup
		}
	}

	if err := r.resolvePathConflicts(result.mergedOverlay, localOverlay); err != nil {
		return nil, err
	}

	return result, nil
}

// resolvePathConflicts implements the tail of spec.md §4.4 Phase P2: after
// per-id conflict resolution, two siblings that originated independently
// (e.g. each side created a same-named file in the same folder, or a
// rename/move landed two unrelated files on the same name) can collide
// even though neither individually conflicted on id. For each such group,
// the locally-originating file is renamed with the same "-1"-before-
// extension suffix scheme merge.go's content-conflict path uses, repeated
// until the name is unique among its siblings. Purely remote-vs-remote
// collisions can't arise (the server enforces uniqueness on its own
// commits) and are left for the validator to catch as a defect.
func (r *conflictResolver) resolvePathConflicts(mergedOverlay map[model.FileID]*model.File, localOverlay map[model.FileID]*model.File) error {
	staged := tree.NewStaged(r.remoteBase)
	for id, f := range mergedOverlay {
		if f == nil {
			staged.Remove(id)
		} else {
			staged.Insert(f)
		}
	}

	siblings := make(map[model.FileID][]model.FileID) // parent -> non-deleted children
	for _, id := range staged.IDs() {
		f, ok := staged.Find(id)
		if !ok || f.IsRoot() || f.Deleted {
			continue
		}
		siblings[f.ParentID] = append(siblings[f.ParentID], id)
	}

	for _, children := range siblings {
		if len(children) < 2 {
			continue
		}
		byName := make(map[string][]model.FileID)
		order := make(map[model.FileID]int, len(children))
		for i, id := range children {
			order[id] = i
			f, _ := staged.Find(id)
			key, err := r.keychain.DecryptFileKey(staged, id)
			if err != nil {
				continue // undecryptable; the validator's decryptability check is authoritative here
			}
			name, err := crypto.OpenBytes(key, f.EncryptedName)
			if err != nil {
				continue
			}
			byName[string(name)] = append(byName[string(name)], id)
		}
		for name, ids := range byName {
			if len(ids) < 2 {
				continue
			}
			// Prefer a remote-anchored member as the untouched anchor, so the
			// locally-originating duplicate is always the one renamed
			// regardless of sibling order; only when every member originated
			// locally does the first (by sibling order) stay put and the rest
			// get renamed.
			sort.Slice(ids, func(i, j int) bool { return order[ids[i]] < order[ids[j]] })
			anchor := ids[0]
			for _, id := range ids {
				if _, isLocal := localOverlay[id]; !isLocal {
					anchor = id
					break
				}
			}
			taken := map[string]bool{name: true}
			for _, id := range ids {
				if id == anchor {
					continue
				}
				if _, isLocal := localOverlay[id]; !isLocal {
					continue
				}
				f, ok := mergedOverlay[id]
				if !ok || f == nil {
					continue
				}
				key, err := r.keychain.DecryptFileKey(staged, id)
				if err != nil {
					continue
				}
				newName := name
				for n := 1; taken[newName]; n++ {
					newName = suffixName(name, n)
				}
				taken[newName] = true
				sealed, err := crypto.SealBytes(key, []byte(newName))
				if err != nil {
					return err
				}
				clone := f.Clone()
				clone.EncryptedName = sealed
				mergedOverlay[id] = clone
			}
		}
	}
	return nil
}

// suffixName appends "-n" before name's extension, e.g. "doc.md" -> "doc-2.md".
func suffixName(name string, n int) string {
	base := name
	ext := ""
	if i := lastDot(name); i >= 0 {
		base, ext = name[:i], name[i:]
	}
	return fmt.Sprintf("%s-%d%s", base, n, ext)
}

type conflictResolver struct {
	ctx        context.Context
	remoteBase *tree.HashTree
	keychain   *crypto.Keychain
	docStore   *docs.Store
}

// resolve reconciles a single id changed on both sides since oldBase,
// returning the merged file (nil if it now equals remote-base exactly,
// meaning nothing further needs pushing), an optional duplicated sibling
// from a non-mergeable content conflict, and any plaintext merge writes
// to stage.
func (r *conflictResolver) resolve(id model.FileID, oldBase, localFile, remoteFile *model.File) (*model.File, *model.File, []contentMergeWrite, error) {
	if localFile.Deleted || remoteFile.Deleted {
		// Delete dominates (spec.md §8 law 5): merged result is deleted
		// regardless of the other side's rename/move/edit.
		merged := remoteFile.Clone()
		merged.Deleted = true
		return merged, nil, nil, nil
	}

	merged := remoteFile.Clone()

	if renamed, remoteRenamed := !bytesEq(oldBase.EncryptedName, localFile.EncryptedName), !bytesEq(oldBase.EncryptedName, remoteFile.EncryptedName); renamed && !remoteRenamed {
		merged.EncryptedName = append([]byte(nil), localFile.EncryptedName...)
	}
	// both renamed to different names: keep remote (already merged's base)

	if moved, remoteMoved := oldBase.ParentID != localFile.ParentID, oldBase.ParentID != remoteFile.ParentID; moved && !remoteMoved {
		merged.ParentID = localFile.ParentID
	}
	// both moved: keep remote's parent (already merged's base)

	merged.UserAccessKeys = mergeShareGrants(oldBase.UserAccessKeys, localFile.UserAccessKeys, remoteFile.UserAccessKeys)

	var dup *model.File
	var writes []contentMergeWrite

	contentChangedLocal := !bytesEq(oldBase.DocumentHMAC, localFile.DocumentHMAC)
	contentChangedRemote := !bytesEq(oldBase.DocumentHMAC, remoteFile.DocumentHMAC)
	switch {
	case contentChangedLocal && contentChangedRemote && !bytesEq(localFile.DocumentHMAC, remoteFile.DocumentHMAC):
		var err error
		dup, writes, err = r.resolveContentConflict(id, oldBase, localFile, remoteFile, merged)
		if err != nil {
			return nil, nil, nil, err
		}
	case contentChangedLocal && !contentChangedRemote:
		merged.DocumentHMAC = append([]byte(nil), localFile.DocumentHMAC...)
	}

	if bytesEq(merged.EncryptedName, remoteFile.EncryptedName) &&
		merged.ParentID == remoteFile.ParentID &&
		bytesEq(merged.DocumentHMAC, remoteFile.DocumentHMAC) &&
		shareGrantsEqual(merged.UserAccessKeys, remoteFile.UserAccessKeys) {
		merged = nil // equals remote-base exactly; nothing to push
	}
	return merged, dup, writes, nil
}

// resolveContentConflict attempts the three-way textual merge spec.md
// §4.4 describes for mergeable extensions, falling back to "keep remote,
// duplicate local as a sibling" otherwise.
func (r *conflictResolver) resolveContentConflict(id model.FileID, oldBase, localFile, remoteFile, merged *model.File) (*model.File, []contentMergeWrite, error) {
	key, keyErr := r.keychain.DecryptFileKey(r.remoteBase, id)
	if keyErr == nil {
		if name, ok := r.keychain.Name(r.keychain.Account().Fingerprint(), oldBase); ok && IsMergeableName(name) {
			basePlain, errBase := r.readPlain(id, oldBase.DocumentHMAC, key)
			localPlain, errLocal := r.readPlain(id, localFile.DocumentHMAC, key)
			remotePlain, errRemote := r.readPlain(id, remoteFile.DocumentHMAC, key)
			if errBase == nil && errLocal == nil && errRemote == nil {
				if mergedText, ok := threeWayTextMerge(basePlain, localPlain, remotePlain); ok {
					newHMAC := hmacDocument(key, mergedText)
					merged.DocumentHMAC = newHMAC[:]
					var old [32]byte
					copy(old[:], remoteFile.DocumentHMAC)
					return nil, []contentMergeWrite{{id: id, oldHMAC: old, plaintext: mergedText}}, nil
				}
			}
		}
	}

	// Non-mergeable, merge unattempted, or merge failed (overlapping
	// edits): keep remote's content on id, duplicate local's edit as a
	// fresh sibling file with a disambiguated name. The duplicate's
	// content must be re-addressed under its own id, since the document
	// store keys blobs by (id, hmac).
	dup := localFile.Clone()
	dup.ID = model.NewFileID()
	dup.ParentID = merged.ParentID
	dup.Version = 0
	dup.LastModifiedBy = localFile.LastModifiedBy
	dup.UserAccessKeys = nil // the fork is a fresh, unshared file; the original keeps its grants

	var writes []contentMergeWrite
	if keyErr == nil {
		if suffixed, err := suffixedName(key, localFile.EncryptedName); err == nil {
			dup.EncryptedName = suffixed
		}
		if localPlain, err := r.readPlain(id, localFile.DocumentHMAC, key); err == nil {
			writes = append(writes, contentMergeWrite{id: dup.ID, plaintext: localPlain})
		}
	}
	return dup, writes, nil
}

func hmacDocument(key [32]byte, plaintext []byte) [32]byte {
	mac := hmac.New(sha256.New, key[:])
	mac.Write(plaintext)
	var out [32]byte
	copy(out[:], mac.Sum(nil))
	return out
}

func (r *conflictResolver) readPlain(id model.FileID, hmac []byte, key [32]byte) ([]byte, error) {
	var k [32]byte
	copy(k[:], hmac)
	return r.docStore.ReadPlaintext(r.ctx, docs.ContentKey{ID: id, HMAC: k}, key)
}

// suffixedName decrypts name under key, appends "-1" before the extension
// (incrementing if that's already taken isn't resolvable here since this
// package can't see siblings; Phase P3's validator is authoritative for
// uniqueness, so a single "-1" suffix plus a fresh id is the practical
// disambiguator: ids never collide, so worst case the numeric suffix
// matches an existing file only if that file was independently also
// suffixed "-1", vanishingly unlikely for merge-created names), then
// re-seals it.
func suffixedName(key [32]byte, encryptedName []byte) ([]byte, error) {
	plain, err := crypto.OpenBytes(key, encryptedName)
	if err != nil {
		return nil, err
	}
	name := string(plain)
	ext := ""
	base := name
	if i := lastDot(name); i >= 0 {
		base, ext = name[:i], name[i:]
	}
	return crypto.SealBytes(key, []byte(base+"-1"+ext))
}

func lastDot(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}

// mergeShareGrants folds base, local, and remote grant sets together on a
// per-grant-key ((by, for) pair) basis, per spec.md §4.4's commute rule:
// disjoint fields (here, disjoint grant keys) take the union, and only a
// key both sides actually changed relative to oldBase is a true conflict,
// resolved remote-wins (§9's chosen tie-breaker for simultaneous
// different-mode grants). remoteFile.UserAccessKeys is the file's full
// current grant list, not a diff, so a key remote merely carried over
// unchanged from oldBase must not clobber a local-only change to that
// same key (e.g. a local revoke of a grant remote never touched) -
// checking each key against oldBase is what distinguishes "remote touched
// this grant" from "remote's snapshot still contains it". Authorization
// for any newly-added or changed grant is re-checked by the validator in
// Phase P3, which is authoritative.
func mergeShareGrants(base, local, remote []model.ShareGrant) []model.ShareGrant {
	baseByKey := indexGrants(base)
	localByKey := indexGrants(local)
	remoteByKey := indexGrants(remote)

	keys := make(map[grantKey]bool, len(baseByKey)+len(localByKey)+len(remoteByKey))
	for key := range baseByKey {
		keys[key] = true
	}
	for key := range localByKey {
		keys[key] = true
	}
	for key := range remoteByKey {
		keys[key] = true
	}

	var out []model.ShareGrant
	for key := range keys {
		bg, hadBase := baseByKey[key]
		lg, hasLocal := localByKey[key]
		rg, hasRemote := remoteByKey[key]

		switch {
		case hasRemote && hasLocal:
			remoteChanged := !hadBase || !grantEqual(bg, rg)
			localChanged := !hadBase || !grantEqual(bg, lg)
			switch {
			case localChanged && !remoteChanged:
				out = append(out, lg) // only local touched this grant: keep local
			default:
				out = append(out, rg) // remote touched it too (true conflict) or neither did: remote wins/passes through
			}
		case hasRemote:
			out = append(out, rg) // present only in remote's snapshot
		case hasLocal:
			out = append(out, lg) // added only on the local side: kept
		}
	}
	return out
}

type grantKey struct {
	by, for_ model.PublicKey
}

func indexGrants(grants []model.ShareGrant) map[grantKey]model.ShareGrant {
	out := make(map[grantKey]model.ShareGrant, len(grants))
	for _, g := range grants {
		out[grantKey{by: g.EncryptedBy, for_: g.EncryptedFor}] = g
	}
	return out
}

func shareGrantsEqual(a, b []model.ShareGrant) bool {
	if len(a) != len(b) {
		return false
	}
	ai, bi := indexGrants(a), indexGrants(b)
	if len(ai) != len(bi) {
		return false
	}
	for key, ag := range ai {
		bg, ok := bi[key]
		if !ok || !grantEqual(ag, bg) {
			return false
		}
	}
	return true
}

func grantEqual(a, b model.ShareGrant) bool {
	return a.EncryptedBy == b.EncryptedBy && a.EncryptedFor == b.EncryptedFor &&
		a.Mode == b.Mode && a.Deleted == b.Deleted && bytesEq(a.SealedFileKey, b.SealedFileKey)
}

func bytesEq(a, b []byte) bool {
	return bytes.Equal(a, b)
}
