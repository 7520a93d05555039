package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2Iterations follows current OWASP guidance for PBKDF2-HMAC-SHA256.
const PBKDF2Iterations = 600_000

const saltSize = 16

// DeriveKeyFromPassphrase stretches a low-entropy user passphrase into a
// 32-byte key via PBKDF2-HMAC-SHA256, for encrypting the account keypair
// at rest in pkg/repo. A fresh salt is generated when salt is nil.
func DeriveKeyFromPassphrase(passphrase string, salt []byte) (key [32]byte, usedSalt []byte, err error) {
	if salt == nil {
		salt = make([]byte, saltSize)
		if _, err := rand.Read(salt); err != nil {
			return key, nil, fmt.Errorf("crypto: generate salt: %w", err)
		}
	}
	derived := pbkdf2.Key([]byte(passphrase), salt, PBKDF2Iterations, 32, sha256.New)
	copy(key[:], derived)
	return key, salt, nil
}

// SealAccountKey encrypts an account's private key material at rest under
// a passphrase-derived key, returning the salt and sealed bytes pkg/repo
// persists to the keychain section.
func SealAccountKey(a *AccountKey, passphrase string) (salt, sealed []byte, err error) {
	key, salt, err := DeriveKeyFromPassphrase(passphrase, nil)
	if err != nil {
		return nil, nil, err
	}
	plain := make([]byte, 0, ed25519PrivateKeySize+32)
	plain = append(plain, a.SignPriv...)
	plain = append(plain, a.BoxPriv[:]...)
	sealed, err = SealBytes(key, plain)
	if err != nil {
		return nil, nil, err
	}
	return salt, sealed, nil
}

// OpenAccountKey reverses SealAccountKey given the same passphrase and the
// salt persisted alongside the sealed bytes.
func OpenAccountKey(passphrase string, salt, sealed []byte) (*AccountKey, error) {
	key, _, err := DeriveKeyFromPassphrase(passphrase, salt)
	if err != nil {
		return nil, err
	}
	plain, err := OpenBytes(key, sealed)
	if err != nil {
		return nil, fmt.Errorf("crypto: wrong passphrase or corrupted keychain: %w", err)
	}
	if len(plain) != ed25519PrivateKeySize+32 {
		return nil, fmt.Errorf("crypto: unexpected account key length")
	}

	a := &AccountKey{
		SignPriv: append([]byte(nil), plain[:ed25519PrivateKeySize]...),
	}
	a.SignPub = append([]byte(nil), a.SignPriv[32:]...)
	copy(a.BoxPriv[:], plain[ed25519PrivateKeySize:])
	boxPub, err := derivedBoxPub(a.BoxPriv)
	if err != nil {
		return nil, err
	}
	a.BoxPub = boxPub
	return a, nil
}

const ed25519PrivateKeySize = 64

func derivedBoxPub(priv [32]byte) ([32]byte, error) {
	var pub [32]byte
	pk, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return pub, fmt.Errorf("crypto: derive box public key: %w", err)
	}
	copy(pub[:], pk)
	return pub, nil
}
