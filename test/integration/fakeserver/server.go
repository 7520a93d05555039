// Package fakeserver is an in-process double for the Lockbook wire
// protocol (spec.md §4.6/§6): just enough of a real server — account
// registration, metadata upsert/versioning, document content-addressed
// storage — to drive test/integration's multi-device scenarios against a
// real net/http round trip instead of a mocked wire.Client.
//
// Grounded on the same chi-routed-server-double shape SPEC_FULL.md's
// DOMAIN STACK section names for this package, matching the route table
// pkg/wire/client.go's Client.do calls against.
package fakeserver

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/lockbook/lockbook/pkg/model"
	"github.com/lockbook/lockbook/pkg/wire"
)

// Server is an in-memory Lockbook server: one flat file-version table and
// one content-addressed document blob table, shared by every account that
// talks to it — exactly the single-server topology spec.md §2 describes.
type Server struct {
	mu sync.Mutex

	usernameToKeys map[string]keySet
	pubkeyToUser   map[model.PublicKey]string

	files        map[model.FileID]wire.FileUpsert
	nextVersion  uint64
	documents    map[docKey][]byte
}

type keySet struct {
	sign []byte
	box  []byte
}

type docKey struct {
	id   model.FileID
	hmac string
}

// New builds an empty Server.
func New() *Server {
	return &Server{
		usernameToKeys: make(map[string]keySet),
		pubkeyToUser:   make(map[model.PublicKey]string),
		files:          make(map[model.FileID]wire.FileUpsert),
		documents:      make(map[docKey][]byte),
	}
}

// Router builds the chi.Mux exposing every route pkg/wire.Client issues
// requests against. Callers wrap it in an httptest.Server.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Post("/new-account", s.handleNewAccount)
	r.Post("/get-public-key", s.handleGetPublicKey)
	r.Post("/get-username", s.handleGetUsername)
	r.Post("/get-updates", s.handleGetUpdates)
	r.Post("/upsert-file-metadata", s.handleUpsert)
	r.Post("/get-document", s.handleGetDocument)
	r.Post("/change-document-content", s.handleChangeDocumentContent)
	r.Post("/get-file-ids", s.handleGetFileIds)
	r.Post("/get-usage", s.handleGetUsage)
	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, kind wire.ErrorKind, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(wire.APIError{Kind: kind, Code: code, Message: msg})
}

func decodeBody[T any](r *http.Request) (wire.RequestWrapper[T], error) {
	var wrapper wire.RequestWrapper[T]
	err := json.NewDecoder(r.Body).Decode(&wrapper)
	return wrapper, err
}

func (s *Server) handleNewAccount(w http.ResponseWriter, r *http.Request) {
	wrapper, err := decodeBody[wire.NewAccountRequest](r)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, wire.ErrorBadRequest, "", err.Error())
		return
	}
	req := wrapper.SignedRequest.TimestampedValue.Value

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.usernameToKeys[req.Username]; taken {
		writeAPIError(w, http.StatusConflict, wire.ErrorEndpoint, "CONFLICT", "username taken")
		return
	}
	s.usernameToKeys[req.Username] = keySet{sign: signBytes(req.PublicKey), box: req.BoxPublicKey}
	s.pubkeyToUser[req.PublicKey] = req.Username

	root := req.RootFolder
	s.nextVersion++
	root.Version = s.nextVersion
	root.LastModifiedBy = req.PublicKey
	s.files[root.ID] = root

	writeJSON(w, wire.NewAccountResponse{})
}

// signBytes recovers the raw Ed25519 public key bytes from a
// model.PublicKey fingerprint, which is just its hex encoding
// (crypto.AccountKey.Fingerprint). The fake server never needs anything
// beyond this to answer GetPublicKey; it never verifies signatures
// itself, since that's pkg/wire.Client's own job under test elsewhere.
func signBytes(pub model.PublicKey) []byte {
	raw, err := hex.DecodeString(string(pub))
	if err != nil {
		return nil
	}
	return raw
}

func (s *Server) handleGetPublicKey(w http.ResponseWriter, r *http.Request) {
	wrapper, err := decodeBody[wire.GetPublicKeyRequest](r)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, wire.ErrorBadRequest, "", err.Error())
		return
	}
	req := wrapper.SignedRequest.TimestampedValue.Value

	s.mu.Lock()
	keys, ok := s.usernameToKeys[req.Username]
	s.mu.Unlock()
	if !ok {
		writeAPIError(w, http.StatusNotFound, wire.ErrorEndpoint, "NOT_FOUND", "no such user")
		return
	}
	writeJSON(w, wire.GetPublicKeyResponse{SignPublicKey: keys.sign, BoxPublicKey: keys.box})
}

func (s *Server) handleGetUsername(w http.ResponseWriter, r *http.Request) {
	wrapper, err := decodeBody[wire.GetUsernameRequest](r)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, wire.ErrorBadRequest, "", err.Error())
		return
	}
	req := wrapper.SignedRequest.TimestampedValue.Value

	s.mu.Lock()
	username, ok := s.pubkeyToUser[req.PublicKey]
	s.mu.Unlock()
	if !ok {
		writeAPIError(w, http.StatusNotFound, wire.ErrorEndpoint, "NOT_FOUND", "no such public key")
		return
	}
	writeJSON(w, wire.GetUsernameResponse{Username: username})
}

func (s *Server) handleGetUpdates(w http.ResponseWriter, r *http.Request) {
	wrapper, err := decodeBody[wire.GetUpdatesRequest](r)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, wire.ErrorBadRequest, "", err.Error())
		return
	}
	req := wrapper.SignedRequest.TimestampedValue.Value

	s.mu.Lock()
	var out []wire.FileUpsert
	for _, f := range s.files {
		if f.Version > req.Since {
			out = append(out, f)
		}
	}
	s.mu.Unlock()
	writeJSON(w, wire.GetUpdatesResponse{Files: out})
}

// handleUpsert assigns every incoming update a fresh, strictly increasing
// server version, per spec.md §5's "server assigns a monotonically
// increasing version number per file". This fake never rejects an
// upsert with a conflict; the test suite's devices always pull
// immediately before they push, so no scenario here depends on exercising
// Phase P5's one-retry path, and no test in this repository exercises it.
func (s *Server) handleUpsert(w http.ResponseWriter, r *http.Request) {
	wrapper, err := decodeBody[wire.UpsertRequest](r)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, wire.ErrorBadRequest, "", err.Error())
		return
	}
	req := wrapper.SignedRequest.TimestampedValue.Value

	s.mu.Lock()
	defer s.mu.Unlock()
	newVersions := make(map[model.FileID]uint64, len(req.Updates))
	for _, u := range req.Updates {
		s.nextVersion++
		u.Version = s.nextVersion
		u.LastModifiedBy = wrapper.SignedRequest.PublicKey
		s.files[u.ID] = u
		newVersions[u.ID] = u.Version
	}
	writeJSON(w, wire.UpsertResponse{NewVersions: newVersions})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	wrapper, err := decodeBody[wire.GetDocumentRequest](r)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, wire.ErrorBadRequest, "", err.Error())
		return
	}
	req := wrapper.SignedRequest.TimestampedValue.Value

	s.mu.Lock()
	content, ok := s.documents[docKey{id: req.ID, hmac: hex.EncodeToString(req.HMAC)}]
	s.mu.Unlock()
	if !ok {
		writeAPIError(w, http.StatusNotFound, wire.ErrorEndpoint, "NOT_FOUND", "no such document")
		return
	}
	writeJSON(w, wire.GetDocumentResponse{Ciphertext: content})
}

func (s *Server) handleChangeDocumentContent(w http.ResponseWriter, r *http.Request) {
	wrapper, err := decodeBody[wire.ChangeDocumentContentRequest](r)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, wire.ErrorBadRequest, "", err.Error())
		return
	}
	req := wrapper.SignedRequest.TimestampedValue.Value

	s.mu.Lock()
	s.documents[docKey{id: req.ID, hmac: hex.EncodeToString(req.NewHMAC)}] = req.Ciphertext
	s.mu.Unlock()
	writeJSON(w, wire.ChangeDocumentContentResponse{})
}

func (s *Server) handleGetFileIds(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	ids := make([]model.FileID, 0, len(s.files))
	for id := range s.files {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	writeJSON(w, wire.GetFileIdsResponse{IDs: ids})
}

func (s *Server) handleGetUsage(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	var used uint64
	for _, f := range s.files {
		used += uint64(len(f.EncryptedName))
	}
	s.mu.Unlock()
	writeJSON(w, wire.GetUsageResponse{UsedBytes: used, CapBytes: 1 << 34})
}
