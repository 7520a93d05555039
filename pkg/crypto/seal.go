package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// GenerateSymmetricKey returns a fresh random 32-byte file key.
func GenerateSymmetricKey() ([32]byte, error) {
	var key [32]byte
	if _, err := rand.Read(key[:]); err != nil {
		return key, fmt.Errorf("crypto: generate symmetric key: %w", err)
	}
	return key, nil
}

// SealBytes seals plaintext under key with a fresh random nonce, which is
// prepended to the returned ciphertext. Used for document content,
// encrypted names, and anywhere else a symmetric file key protects data.
func SealBytes(key [32]byte, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, fmt.Errorf("crypto: build aead: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("crypto: generate nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, plaintext, nil)
	return sealed, nil
}

// OpenBytes reverses SealBytes.
func OpenBytes(key [32]byte, sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, fmt.Errorf("crypto: build aead: %w", err)
	}
	if len(sealed) < aead.NonceSize() {
		return nil, fmt.Errorf("crypto: sealed value shorter than nonce")
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("crypto: open sealed value: %w", err)
	}
	return plaintext, nil
}

// SealTo seals a file key to a recipient's box public key using an
// anonymous sealed-box construction: an ephemeral X25519 keypair performs
// key agreement with the recipient, HKDF derives a one-time AEAD key from
// the shared secret, and the ephemeral public key travels alongside the
// ciphertext so the recipient can redo the agreement with their private
// key. Sealing to your own box public key (self-seal) works the same way
// and is how an owner's root file key is protected.
func SealTo(recipientBox [32]byte, key [32]byte) ([]byte, error) {
	var ephPriv [32]byte
	if _, err := rand.Read(ephPriv[:]); err != nil {
		return nil, fmt.Errorf("crypto: generate ephemeral key: %w", err)
	}
	ephPub, err := curve25519.X25519(ephPriv[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("crypto: derive ephemeral public key: %w", err)
	}

	shared, err := curve25519.X25519(ephPriv[:], recipientBox[:])
	if err != nil {
		return nil, fmt.Errorf("crypto: key agreement: %w", err)
	}
	aeadKey, err := deriveAEADKey(shared, ephPub, recipientBox[:])
	if err != nil {
		return nil, err
	}

	sealed, err := SealBytes(aeadKey, key[:])
	if err != nil {
		return nil, err
	}
	return append(ephPub, sealed...), nil
}

// OpenSealed reverses SealTo using the recipient's box private key.
func OpenSealed(recipientBoxPriv [32]byte, recipientBoxPub [32]byte, sealed []byte) ([32]byte, error) {
	var key [32]byte
	if len(sealed) < 32 {
		return key, fmt.Errorf("crypto: sealed value missing ephemeral public key")
	}
	ephPub, rest := sealed[:32], sealed[32:]

	shared, err := curve25519.X25519(recipientBoxPriv[:], ephPub)
	if err != nil {
		return key, fmt.Errorf("crypto: key agreement: %w", err)
	}
	aeadKey, err := deriveAEADKey(shared, ephPub, recipientBoxPub[:])
	if err != nil {
		return key, err
	}

	plain, err := OpenBytes(aeadKey, rest)
	if err != nil {
		return key, err
	}
	if len(plain) != 32 {
		return key, fmt.Errorf("crypto: unsealed key has wrong length")
	}
	copy(key[:], plain)
	return key, nil
}

func deriveAEADKey(shared, ephPub, recipientPub []byte) ([32]byte, error) {
	var out [32]byte
	info := append(append([]byte{}, ephPub...), recipientPub...)
	r := hkdf.New(sha256.New, shared, nil, info)
	if _, err := io.ReadFull(r, out[:]); err != nil {
		return out, fmt.Errorf("crypto: derive aead key: %w", err)
	}
	return out, nil
}
