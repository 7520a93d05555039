package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealBytesRoundTrip(t *testing.T) {
	t.Parallel()
	key, err := GenerateSymmetricKey()
	require.NoError(t, err)

	sealed, err := SealBytes(key, []byte("hello lockbook"))
	require.NoError(t, err)

	plain, err := OpenBytes(key, sealed)
	require.NoError(t, err)
	assert.Equal(t, "hello lockbook", string(plain))
}

func TestOpenBytesRejectsWrongKey(t *testing.T) {
	t.Parallel()
	key1, err := GenerateSymmetricKey()
	require.NoError(t, err)
	key2, err := GenerateSymmetricKey()
	require.NoError(t, err)

	sealed, err := SealBytes(key1, []byte("secret"))
	require.NoError(t, err)

	_, err = OpenBytes(key2, sealed)
	assert.Error(t, err)
}

func TestSealToRoundTrip(t *testing.T) {
	t.Parallel()
	recipient, err := GenerateAccountKey()
	require.NoError(t, err)
	fileKey, err := GenerateSymmetricKey()
	require.NoError(t, err)

	sealed, err := SealTo(recipient.BoxPub, fileKey)
	require.NoError(t, err)

	opened, err := OpenSealed(recipient.BoxPriv, recipient.BoxPub, sealed)
	require.NoError(t, err)
	assert.Equal(t, fileKey, opened)
}

func TestOpenSealedRejectsWrongRecipient(t *testing.T) {
	t.Parallel()
	recipient, err := GenerateAccountKey()
	require.NoError(t, err)
	other, err := GenerateAccountKey()
	require.NoError(t, err)
	fileKey, err := GenerateSymmetricKey()
	require.NoError(t, err)

	sealed, err := SealTo(recipient.BoxPub, fileKey)
	require.NoError(t, err)

	_, err = OpenSealed(other.BoxPriv, other.BoxPub, sealed)
	assert.Error(t, err)
}

func TestAccountKeySignAndVerify(t *testing.T) {
	t.Parallel()
	a, err := GenerateAccountKey()
	require.NoError(t, err)

	msg := []byte("request payload")
	sig := a.Sign(msg)
	assert.True(t, Verify(a.SignPub, msg, sig))
	assert.False(t, Verify(a.SignPub, []byte("tampered"), sig))
}

func TestSealAndOpenAccountKey(t *testing.T) {
	t.Parallel()
	a, err := GenerateAccountKey()
	require.NoError(t, err)

	salt, sealed, err := SealAccountKey(a, "correct horse battery staple")
	require.NoError(t, err)

	recovered, err := OpenAccountKey("correct horse battery staple", salt, sealed)
	require.NoError(t, err)
	assert.Equal(t, a.SignPub, recovered.SignPub)
	assert.Equal(t, a.BoxPub, recovered.BoxPub)

	_, err = OpenAccountKey("wrong passphrase", salt, sealed)
	assert.Error(t, err)
}
