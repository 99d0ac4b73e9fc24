package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSigner_RejectsEmptySecret(t *testing.T) {
	_, err := NewSigner(nil, "sentinel")
	assert.Error(t, err)
}

func TestGenerateAndValidateToken(t *testing.T) {
	signer, err := NewSigner([]byte("test-secret"), "sentinel")
	require.NoError(t, err)

	token, err := signer.GenerateToken("42", "moderator", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := signer.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "moderator", claims.Role)
	assert.Equal(t, "sentinel", claims.Issuer)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	signer, err := NewSigner([]byte("test-secret"), "sentinel")
	require.NoError(t, err)
	other, err := NewSigner([]byte("other-secret"), "sentinel")
	require.NoError(t, err)

	token, err := signer.GenerateToken("42", "moderator", time.Hour)
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_Expired(t *testing.T) {
	signer, err := NewSigner([]byte("test-secret"), "sentinel")
	require.NoError(t, err)

	token, err := signer.GenerateToken("42", "moderator", -time.Minute)
	require.NoError(t, err)

	_, err = signer.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_WrongIssuer(t *testing.T) {
	signer, err := NewSigner([]byte("test-secret"), "sentinel")
	require.NoError(t, err)
	other, err := NewSigner([]byte("test-secret"), "someone-else")
	require.NoError(t, err)

	token, err := other.GenerateToken("42", "moderator", time.Hour)
	require.NoError(t, err)

	_, err = signer.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_Garbage(t *testing.T) {
	signer, err := NewSigner([]byte("test-secret"), "sentinel")
	require.NoError(t, err)

	_, err = signer.ValidateToken("not.a.token")
	assert.Error(t, err)
}
