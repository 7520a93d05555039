// Package crypto implements the keychain from spec.md §4.5: the account
// keypair, the decrypted-file-key cache, and the sealing/unsealing
// primitives the tree and document store build on.
//
// Grounded on dittofs's pkg/identity/credential.go for the
// constants-plus-small-pure-functions shape (MinPasswordLength-style
// bounds, Validate-then-operate flow) and on the x/crypto stack named in
// SPEC_FULL.md's DOMAIN STACK: chacha20poly1305 for AEAD sealing, hkdf for
// key derivation, curve25519 for key agreement, and the standard library's
// crypto/ed25519 (the idiomatic choice for request signing — x/crypto
// carries no separate ed25519 implementation of its own) for account
// identity and request signatures.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/lockbook/lockbook/pkg/model"
	"golang.org/x/crypto/curve25519"
)

// PublicKeySet is the pair of public keys an account publishes: Sign
// verifies request signatures, Box is the X25519 point used to seal file
// keys to this account. The server and other clients learn these via
// get_public_key (spec.md §4.6) and cache them through Keychain.LearnKey.
type PublicKeySet struct {
	Sign ed25519.PublicKey
	Box  [32]byte
}

// AccountKey is the private half of an account: an Ed25519 signing key for
// wire requests and an X25519 key-agreement key for sealing/unsealing file
// keys. Both are generated together at account creation and never leave
// the device unencrypted.
type AccountKey struct {
	SignPub  ed25519.PublicKey
	SignPriv ed25519.PrivateKey
	BoxPub   [32]byte
	BoxPriv  [32]byte
}

// GenerateAccountKey creates a fresh account keypair.
func GenerateAccountKey() (*AccountKey, error) {
	signPub, signPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("crypto: generate signing key: %w", err)
	}

	var boxPriv [32]byte
	if _, err := rand.Read(boxPriv[:]); err != nil {
		return nil, fmt.Errorf("crypto: generate box key: %w", err)
	}
	boxPub, err := curve25519.X25519(boxPriv[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("crypto: derive box public key: %w", err)
	}

	ak := &AccountKey{SignPub: signPub, SignPriv: signPriv, BoxPriv: boxPriv}
	copy(ak.BoxPub[:], boxPub)
	return ak, nil
}

// AccountKeyFromPrivate reconstructs an AccountKey from its two private
// halves, deriving both public keys. Used by account import/export, where
// only the private material travels in the serialized key.
func AccountKeyFromPrivate(signPriv ed25519.PrivateKey, boxPriv [32]byte) (*AccountKey, error) {
	if len(signPriv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("crypto: signing private key has wrong length")
	}
	boxPub, err := derivedBoxPub(boxPriv)
	if err != nil {
		return nil, err
	}
	return &AccountKey{
		SignPub:  append(ed25519.PublicKey(nil), signPriv.Public().(ed25519.PublicKey)...),
		SignPriv: append(ed25519.PrivateKey(nil), signPriv...),
		BoxPub:   boxPub,
		BoxPriv:  boxPriv,
	}, nil
}

// Fingerprint is the account's stable public identifier: the hex encoding
// of its signing public key. This is what model.PublicKey values hold
// throughout the tree/validate layers; the actual key material lives in
// PublicKeySet, looked up through Keychain.
func (a *AccountKey) Fingerprint() model.PublicKey {
	return model.PublicKey(hex.EncodeToString(a.SignPub))
}

// PublicKeySet returns the public half of this account's keys, the form
// published to other users and the server.
func (a *AccountKey) PublicKeySet() PublicKeySet {
	return PublicKeySet{Sign: a.SignPub, Box: a.BoxPub}
}

// Sign signs data with the account's Ed25519 key, for use in
// RequestWrapper.signed_request (spec.md §4.6).
func (a *AccountKey) Sign(data []byte) []byte {
	return ed25519.Sign(a.SignPriv, data)
}

// Verify checks a signature against a known public key.
func Verify(pub ed25519.PublicKey, data, sig []byte) bool {
	return ed25519.Verify(pub, data, sig)
}
