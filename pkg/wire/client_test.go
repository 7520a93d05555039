package wire_test

import (
	"crypto/ed25519"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lockbook/lockbook/pkg/crypto"
	"github.com/lockbook/lockbook/pkg/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer stands up a minimal chi router exercising the same routes
// Client.do hits, so the signing/envelope/error-decoding plumbing in
// pkg/wire/client.go is tested against a real net/http round trip rather
// than asserted on in isolation.
func fakeServer(t *testing.T, account *crypto.AccountKey) (*httptest.Server, *chi.Mux) {
	t.Helper()
	r := chi.NewRouter()

	r.Post("/get-username", func(w http.ResponseWriter, req *http.Request) {
		var wrapper wire.RequestWrapper[wire.GetUsernameRequest]
		require.NoError(t, json.NewDecoder(req.Body).Decode(&wrapper))

		canonical, err := json.Marshal(wrapper.SignedRequest.TimestampedValue)
		require.NoError(t, err)
		assert.True(t, ed25519.Verify(account.SignPub, canonical, wrapper.SignedRequest.Signature))
		assert.Equal(t, account.Fingerprint(), wrapper.SignedRequest.PublicKey)
		assert.Equal(t, wire.ClientVersion, wrapper.ClientVersion)
		assert.WithinDuration(t, time.Now(), time.UnixMilli(wrapper.SignedRequest.TimestampedValue.TimestampMillis), wire.MaxSignatureSkew)

		_ = json.NewEncoder(w).Encode(wire.GetUsernameResponse{Username: "alice"})
	})

	r.Post("/get-usage", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(wire.APIError{
			Kind:    wire.ErrorExpiredAuth,
			Message: "signature too old",
		})
	})

	return httptest.NewServer(r), r
}

func TestClientGetUsernameSignsAndDecodes(t *testing.T) {
	account, err := crypto.GenerateAccountKey()
	require.NoError(t, err)

	srv, _ := fakeServer(t, account)
	defer srv.Close()

	client := wire.New(srv.URL, account)
	resp, err := client.GetUsername(t.Context(), account.Fingerprint())
	require.NoError(t, err)
	assert.Equal(t, "alice", resp.Username)
}

func TestClientSurfacesStructuredAPIError(t *testing.T) {
	account, err := crypto.GenerateAccountKey()
	require.NoError(t, err)

	srv, _ := fakeServer(t, account)
	defer srv.Close()

	client := wire.New(srv.URL, account)
	_, err = client.GetUsage(t.Context())
	require.Error(t, err)

	var apiErr *wire.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsAuthError())
	assert.Equal(t, http.StatusForbidden, apiErr.HTTPCode)
}

func TestClientServerUnreachable(t *testing.T) {
	account, err := crypto.GenerateAccountKey()
	require.NoError(t, err)

	client := wire.New("http://127.0.0.1:1", account).WithTimeout(200 * time.Millisecond)
	_, err = client.GetUsername(t.Context(), account.Fingerprint())
	require.Error(t, err)

	var apiErr *wire.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, wire.ErrorServerUnreachable, apiErr.Kind)
}

func TestClientRejectsInvalidRequestBeforeSending(t *testing.T) {
	account, err := crypto.GenerateAccountKey()
	require.NoError(t, err)

	var called bool
	r := chi.NewRouter()
	r.Post("/get-public-key", func(w http.ResponseWriter, req *http.Request) { called = true })
	srv := httptest.NewServer(r)
	defer srv.Close()

	client := wire.New(srv.URL, account)
	_, err = client.GetPublicKey(t.Context(), "")
	require.Error(t, err)

	var apiErr *wire.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, wire.ErrorBadRequest, apiErr.Kind)
	assert.False(t, called, "validation failure must not reach the network")
}
