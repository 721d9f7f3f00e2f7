package crypto

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSigningSecret(t *testing.T) {
	secret, err := GenerateSigningSecret()
	require.NoError(t, err)
	assert.Len(t, secret, SigningSecretSize*2)

	raw, err := hex.DecodeString(secret)
	require.NoError(t, err)
	assert.Len(t, raw, SigningSecretSize)

	other, err := GenerateSigningSecret()
	require.NoError(t, err)
	assert.NotEqual(t, secret, other)
}

func TestGeneratePassword(t *testing.T) {
	for _, length := range []int{1, 8, 24, 100} {
		pw, err := GeneratePassword(length)
		require.NoError(t, err)
		assert.Len(t, pw, length)
		for _, c := range pw {
			assert.True(t, strings.ContainsRune(passwordChars, c), "unexpected character %q", c)
		}
	}
}

func TestInvalidLength(t *testing.T) {
	_, err := GeneratePassword(0)
	assert.ErrorIs(t, err, ErrInvalidLength)

	_, err = RandomHex(-1)
	assert.ErrorIs(t, err, ErrInvalidLength)
}
