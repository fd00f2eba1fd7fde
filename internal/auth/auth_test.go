package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 60)

	token, expiresAt, err := tm.GenerateToken("agt_1", "agent@corp.test", "Agent One")
	require.NoError(t, err)
	assert.False(t, expiresAt.IsZero())

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "agt_1", claims.Subject)
	assert.Equal(t, "agent@corp.test", claims.Email)
	assert.Equal(t, "Agent One", claims.Name)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, _, err := NewTokenManager("secret-a", 60).GenerateToken("agt_1", "agent@corp.test", "")
	require.NoError(t, err)

	_, err = NewTokenManager("secret-b", 60).ParseToken(token)

	assert.Error(t, err)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hashed, err := HashPassword("hunter2", 4)
	require.NoError(t, err)

	assert.NoError(t, ComparePassword(hashed, "hunter2"))
	assert.Error(t, ComparePassword(hashed, "hunter3"))
}

func TestIsAdmin(t *testing.T) {
	assert.True(t, IsAdmin("boss@corp.test", "corp.test"))
	assert.True(t, IsAdmin("BOSS@CORP.TEST", "corp.test"))
	assert.False(t, IsAdmin("jane@customer.test", "corp.test"))
	assert.False(t, IsAdmin("boss@notcorp.test", "corp.test"))
	// empty admin domain disables the gate rather than admitting everyone
	assert.False(t, IsAdmin("anyone@corp.test", ""))
}
