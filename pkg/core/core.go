// Package core implements the public API surface from spec.md §6: a
// single `Lb` handle composing the tree, validator, document store,
// keychain, wire client, and sync engine into the operations a consumer
// (CLI, FFI binding, UI shell) actually calls.
//
// Grounded on dittofs's top-level Server/Filesystem handle (one struct
// wiring every subsystem together, constructed once by an explicit Init
// and threaded through every request) for the overall shape, generalized
// from a long-lived NFS server process into a client library handle whose
// callers drive one request at a time.
package core

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/lockbook/lockbook/internal/logger"
	"github.com/lockbook/lockbook/pkg/changes"
	"github.com/lockbook/lockbook/pkg/config"
	"github.com/lockbook/lockbook/pkg/crypto"
	"github.com/lockbook/lockbook/pkg/docs"
	"github.com/lockbook/lockbook/pkg/lberrors"
	"github.com/lockbook/lockbook/pkg/model"
	"github.com/lockbook/lockbook/pkg/repo"
	lbsync "github.com/lockbook/lockbook/pkg/sync"
	"github.com/lockbook/lockbook/pkg/tree"
	"github.com/lockbook/lockbook/pkg/wire"
)

// Lb is the core handle: one per account, bound to one writeable
// directory and one server, per spec.md §6's "Environment" section.
type Lb struct {
	cfg      *config.Config
	store    *repo.Store
	docs     *docs.Store
	keychain *crypto.Keychain
	wire     *wire.Client
	engine   *lbsync.Engine
	tracker  *changes.Tracker
	events   *eventBus

	mu        sync.RWMutex
	base      *tree.HashTree
	local     *tree.Staged
	lazy      *tree.Lazy
	username  string
	usernames map[model.PublicKey]string

	lastSyncMu   sync.RWMutex
	lastSyncedAt time.Time
}

// Init opens (or creates) the on-disk store at cfg.WriteablePath and
// returns a handle ready to load or create an account. Callers that
// haven't created/imported an account yet may still call CreateAccount
// or ImportAccount on the returned handle.
func Init(cfg *config.Config) (*Lb, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, lberrors.Wrap(lberrors.KindUnexpected, "core: invalid config", err)
	}
	if err := logger.Init(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: cfg.Logging.Output}); err != nil {
		return nil, lberrors.Wrap(lberrors.KindUnexpected, "core: init logger", err)
	}

	store, err := repo.Open(cfg.WriteablePath)
	if err != nil {
		return nil, lberrors.Wrap(lberrors.KindDisk, "core: open store", err)
	}

	baseBlobs, err := docs.NewFSBlobs(filepath.Join(cfg.WriteablePath, "documents", "base"))
	if err != nil {
		_ = store.Close()
		return nil, lberrors.Wrap(lberrors.KindDisk, "core: open document base store", err)
	}
	localBlobs, err := docs.NewFSBlobs(filepath.Join(cfg.WriteablePath, "documents", "local"))
	if err != nil {
		_ = store.Close()
		return nil, lberrors.Wrap(lberrors.KindDisk, "core: open document local store", err)
	}
	docStore := docs.New(baseBlobs, localBlobs)

	lb := &Lb{
		cfg:       cfg,
		store:     store,
		docs:      docStore,
		tracker:   changes.NewTracker(func() int64 { return time.Now().UnixMilli() }),
		events:    newEventBus(),
		usernames: make(map[model.PublicKey]string),
	}

	salt, sealed, hasAccount, err := store.LoadAccountSecret()
	if err != nil {
		_ = store.Close()
		return nil, lberrors.Wrap(lberrors.KindUnexpected, "core: load account secret", err)
	}
	if hasAccount {
		if err := lb.loadAccount(salt, sealed); err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	if err := lb.reload(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return lb, nil
}

func (lb *Lb) loadAccount(salt, sealed []byte) error {
	account, err := crypto.OpenAccountKey("", salt, sealed)
	if err != nil {
		return lberrors.Wrap(lberrors.KindUnexpected, "core: open account key", err)
	}
	username, apiURL, ok, err := lb.store.LoadAccountMeta()
	if err != nil {
		return lberrors.Wrap(lberrors.KindUnexpected, "core: load account meta", err)
	}
	if !ok {
		return lberrors.New(lberrors.KindUnexpected, "core: account secret present without metadata")
	}
	lb.username = username
	lb.keychain = crypto.NewKeychain(account)
	lb.wire = wire.New(apiURL, account)
	lb.engine = lbsync.New(lb.store, lb.docs, lb.wire, lb.keychain)
	return nil
}

// reload rebuilds the in-memory base/local/lazy trio from durable storage,
// e.g. after Init or after a sync commits a new base.
func (lb *Lb) reload() error {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.reloadLocked()
}

// reloadLocked is reload's body, for callers that already hold lb.mu.
func (lb *Lb) reloadLocked() error {
	base, err := lb.store.LoadBaseTree()
	if err != nil {
		return lberrors.Wrap(lberrors.KindUnexpected, "core: load base tree", err)
	}
	overlay, err := lb.store.LoadLocalOverlay()
	if err != nil {
		return lberrors.Wrap(lberrors.KindUnexpected, "core: load local overlay", err)
	}
	local := tree.NewStaged(base)
	for id, f := range overlay {
		if f == nil {
			local.Remove(id)
		} else {
			local.Insert(f)
		}
	}
	lazy, err := tree.NewLazy(local, 4096)
	if err != nil {
		return lberrors.Wrap(lberrors.KindUnexpected, "core: build lazy tree", err)
	}
	if lb.lazy != nil {
		lb.lazy.Close()
	}
	lb.base = base
	lb.local = local
	lb.lazy = lazy
	return nil
}

// commit persists the current overlay to the local-overlay section and
// notifies subscribers, the write path every mutating operation ends in.
func (lb *Lb) commit() error {
	if err := lb.store.SaveLocalOverlay(lb.local.Overlay()); err != nil {
		return lberrors.Wrap(lberrors.KindUnexpected, "core: persist local overlay", err)
	}
	lb.events.publish(Event{Kind: MetadataChanged})
	return nil
}

// requireAccount fails fast on every operation that needs a loaded
// keychain, rather than nil-panicking deep in a collaborator.
func (lb *Lb) requireAccount() error {
	if lb.keychain == nil {
		return lberrors.New(lberrors.KindUnexpected, "core: no account loaded")
	}
	return nil
}

func (lb *Lb) viewer() model.PublicKey {
	return lb.keychain.Account().Fingerprint()
}

// Close releases the underlying store handles. Safe to call once.
func (lb *Lb) Close() error {
	lb.mu.Lock()
	if lb.lazy != nil {
		lb.lazy.Close()
	}
	lb.mu.Unlock()
	lb.events.close()
	return lb.store.Close()
}

// withContext applies the configured request timeout when ctx carries
// none of its own, matching spec.md §5's "the wire client accepts a
// timeout per request".
func withContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, wire.RequestTimeout)
}
