package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(42, "chef")
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "chef", claims.Role)

	_, err = ParseToken(token + "x")
	assert.Error(t, err)
}

func TestBlacklist(t *testing.T) {
	token, err := GenerateToken(7, "cashier")
	require.NoError(t, err)

	assert.False(t, IsTokenBlacklisted(token))
	BlacklistToken(token)
	assert.True(t, IsTokenBlacklisted(token))
	assert.Equal(t, 0, PruneBlacklist(), "unexpired entries stay")
}
