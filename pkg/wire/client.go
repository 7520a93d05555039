package wire

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lockbook/lockbook/pkg/crypto"
	"github.com/lockbook/lockbook/pkg/model"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ClientVersion is embedded in every RequestWrapper; the server may refuse
// to serve a stale one with ErrorClientUpdateRequired.
const ClientVersion = "lockbook-go/0.1.0"

// Client issues signed RPCs against a Lockbook server, per spec.md §4.6.
// Every request is wrapped in a RequestWrapper whose SignedRequest is
// signed by the account's Ed25519 key with an embedded timestamp.
//
// Grounded on dittofs/pkg/apiclient.Client for the do/get/post transport
// shape; generalized here from bearer-token auth to per-request Ed25519
// signing, since Lockbook accounts have no server-issued session token.
type Client struct {
	baseURL    string
	httpClient *http.Client
	account    *crypto.AccountKey
}

// New builds a Client against baseURL, signing every request with
// account's key. account must be non-nil: every call, NewAccount included,
// signs with it.
func New(baseURL string, account *crypto.AccountKey) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: RequestTimeout},
		account:    account,
	}
}

// WithTimeout returns a shallow copy of c using the given per-request
// timeout, per spec.md §5's "the wire client accepts a timeout per
// request".
func (c *Client) WithTimeout(d time.Duration) *Client {
	return &Client{
		baseURL:    c.baseURL,
		httpClient: &http.Client{Timeout: d},
		account:    c.account,
	}
}

func sign[T any](account *crypto.AccountKey, value T) (SignedRequest[T], error) {
	tv := TimestampedValue[T]{Value: value, TimestampMillis: time.Now().UnixMilli()}
	canonical, err := json.Marshal(tv)
	if err != nil {
		return SignedRequest[T]{}, fmt.Errorf("wire: marshal timestamped value: %w", err)
	}
	return SignedRequest[T]{
		TimestampedValue: tv,
		Signature:        account.Sign(canonical),
		PublicKey:        account.Fingerprint(),
	}, nil
}

func do[Req, Resp any](ctx context.Context, c *Client, path string, req Req) (Resp, error) {
	var resp Resp
	if err := validate.Struct(req); err != nil {
		return resp, &APIError{Kind: ErrorBadRequest, Message: err.Error()}
	}

	signed, err := sign(c.account, req)
	if err != nil {
		return resp, err
	}
	wrapper := RequestWrapper[Req]{SignedRequest: signed, ClientVersion: ClientVersion}

	body, err := json.Marshal(wrapper)
	if err != nil {
		return resp, fmt.Errorf("wire: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return resp, fmt.Errorf("wire: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return resp, ServerUnreachable(err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return resp, ServerUnreachable(err)
	}

	if httpResp.StatusCode >= 400 {
		var apiErr APIError
		if json.Unmarshal(respBody, &apiErr) != nil || apiErr.Message == "" {
			apiErr = APIError{Kind: ErrorInternal, Message: string(respBody)}
		}
		apiErr.HTTPCode = httpResp.StatusCode
		if apiErr.Endpoint == "" {
			apiErr.Endpoint = path
		}
		return resp, &apiErr
	}

	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return resp, fmt.Errorf("wire: decode response: %w", err)
		}
	}
	return resp, nil
}

// NewAccount registers username and its root folder, per spec.md §6.
func (c *Client) NewAccount(ctx context.Context, username string, root *model.File) (*NewAccountResponse, error) {
	boxPub := c.account.PublicKeySet().Box
	resp, err := do[NewAccountRequest, NewAccountResponse](ctx, c, "/new-account", NewAccountRequest{
		Username:     username,
		PublicKey:    c.account.Fingerprint(),
		BoxPublicKey: boxPub[:],
		RootFolder:   FileUpsertFromFile(root),
	})
	return &resp, err
}

// GetPublicKey resolves a username to its published Sign/Box keys.
func (c *Client) GetPublicKey(ctx context.Context, username string) (*GetPublicKeyResponse, error) {
	resp, err := do[GetPublicKeyRequest, GetPublicKeyResponse](ctx, c, "/get-public-key", GetPublicKeyRequest{Username: username})
	return &resp, err
}

// GetUsername reverse-resolves a public key to its username.
func (c *Client) GetUsername(ctx context.Context, pub model.PublicKey) (*GetUsernameResponse, error) {
	resp, err := do[GetUsernameRequest, GetUsernameResponse](ctx, c, "/get-username", GetUsernameRequest{PublicKey: pub})
	return &resp, err
}

// GetUpdates pulls every file version strictly newer than since, per
// spec.md §4.4 Phase P1.
func (c *Client) GetUpdates(ctx context.Context, since uint64) ([]FileUpsert, error) {
	resp, err := do[GetUpdatesRequest, GetUpdatesResponse](ctx, c, "/get-updates", GetUpdatesRequest{Since: since})
	if err != nil {
		return nil, err
	}
	return resp.Files, nil
}

// Upsert pushes the reduced local diff, per spec.md §4.4 Phase P5.
func (c *Client) Upsert(ctx context.Context, updates []FileUpsert) (map[model.FileID]uint64, error) {
	resp, err := do[UpsertRequest, UpsertResponse](ctx, c, "/upsert-file-metadata", UpsertRequest{Updates: updates})
	if err != nil {
		return nil, err
	}
	return resp.NewVersions, nil
}

// GetDocument fetches ciphertext by content address.
func (c *Client) GetDocument(ctx context.Context, id model.FileID, hmac []byte) ([]byte, error) {
	resp, err := do[GetDocumentRequest, GetDocumentResponse](ctx, c, "/get-document", GetDocumentRequest{ID: id, HMAC: hmac})
	if err != nil {
		return nil, err
	}
	return resp.Ciphertext, nil
}

// ChangeDocumentContent uploads a document write, per spec.md §4.4 Phase P6.
func (c *Client) ChangeDocumentContent(ctx context.Context, id model.FileID, oldHMAC, newHMAC, ciphertext []byte) error {
	_, err := do[ChangeDocumentContentRequest, ChangeDocumentContentResponse](ctx, c, "/change-document-content", ChangeDocumentContentRequest{
		ID:         id,
		OldHMAC:    oldHMAC,
		NewHMAC:    newHMAC,
		Ciphertext: ciphertext,
	})
	return err
}

// GetFileIds lists every file id the account can see.
func (c *Client) GetFileIds(ctx context.Context) ([]model.FileID, error) {
	resp, err := do[GetFileIdsRequest, GetFileIdsResponse](ctx, c, "/get-file-ids", GetFileIdsRequest{})
	if err != nil {
		return nil, err
	}
	return resp.IDs, nil
}

// GetUsage reports storage consumption against the account's tier cap.
func (c *Client) GetUsage(ctx context.Context) (*GetUsageResponse, error) {
	resp, err := do[GetUsageRequest, GetUsageResponse](ctx, c, "/get-usage", GetUsageRequest{})
	return &resp, err
}
