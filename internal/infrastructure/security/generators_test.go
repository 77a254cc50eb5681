package security

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecureKeyLengthAndEncoding(t *testing.T) {
	key, err := GenerateSecureKey(64)
	require.NoError(t, err)
	assert.Len(t, key, 64)

	_, err = hex.DecodeString(key)
	assert.NoError(t, err, "key is hex encoded")

	other, err := GenerateSecureKey(64)
	require.NoError(t, err)
	assert.NotEqual(t, key, other)
}

func TestGeneratedKeySignsValidatableTokens(t *testing.T) {
	// A key minted at startup must work as a JWT signing secret.
	secret, err := GenerateSecureKey(64)
	require.NoError(t, err)

	tokenString, tokenID, err := GenerateAdminToken(secret, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, tokenID)

	claims, err := ValidateJWT(tokenString, secret)
	require.NoError(t, err)
	assert.Equal(t, tokenID, TokenIDFromClaims(claims))

	_, err = ValidateJWT(tokenString, "some-other-secret")
	assert.Error(t, err)
}
