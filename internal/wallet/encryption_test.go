// internal/wallet/encryption_test.go
package wallet

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uracles/mini-wallet-application/internal/apperr"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestKeyboxRoundTrip(t *testing.T) {
	kb, err := NewKeybox(testSecret)
	require.NoError(t, err)

	plaintext := "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

	token, err := kb.Encrypt(plaintext)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotContains(t, token, plaintext)

	decrypted, err := kb.Decrypt(token)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestKeyboxFreshSaltAndNonce(t *testing.T) {
	kb, err := NewKeybox(testSecret)
	require.NoError(t, err)

	token1, err := kb.Encrypt("same plaintext")
	require.NoError(t, err)
	token2, err := kb.Encrypt("same plaintext")
	require.NoError(t, err)

	assert.NotEqual(t, token1, token2)
}

func TestKeyboxRejectsTamperedToken(t *testing.T) {
	kb, err := NewKeybox(testSecret)
	require.NoError(t, err)

	token, err := kb.Encrypt("secret key material")
	require.NoError(t, err)

	raw, err := hex.DecodeString(token)
	require.NoError(t, err)
	// Flip one bit in the ciphertext.
	raw[len(raw)-1] ^= 0x01
	tampered := hex.EncodeToString(raw)

	_, err = kb.Decrypt(tampered)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeDecryption, apperr.CodeOf(err))
}

func TestKeyboxRejectsMalformedToken(t *testing.T) {
	kb, err := NewKeybox(testSecret)
	require.NoError(t, err)

	for _, token := range []string{"", "not-hex!", "abcd", strings.Repeat("00", 10)} {
		_, err := kb.Decrypt(token)
		require.Error(t, err, "token %q", token)
		assert.Equal(t, apperr.CodeDecryption, apperr.CodeOf(err))
	}
}

func TestKeyboxRejectsWrongSecret(t *testing.T) {
	kb1, err := NewKeybox(testSecret)
	require.NoError(t, err)
	kb2, err := NewKeybox("ffffffffffffffffffffffffffffffff")
	require.NoError(t, err)

	token, err := kb1.Encrypt("secret key material")
	require.NoError(t, err)

	_, err = kb2.Decrypt(token)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeDecryption, apperr.CodeOf(err))
}

func TestKeyboxRejectsShortSecret(t *testing.T) {
	_, err := NewKeybox("too short")
	require.Error(t, err)
}
