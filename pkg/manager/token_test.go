package manager

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenGenerateAndValidate(t *testing.T) {
	tm := NewTokenManager()

	jt, err := tm.GenerateToken("rack", time.Hour)
	require.NoError(t, err)
	assert.Len(t, jt.Token, 64)

	role, err := tm.ValidateToken(jt.Token)
	require.NoError(t, err)
	assert.Equal(t, "rack", role)
}

func TestTokenValidate_Unknown(t *testing.T) {
	tm := NewTokenManager()

	_, err := tm.ValidateToken("deadbeef")
	assert.Error(t, err)
}

func TestTokenValidate_Expired(t *testing.T) {
	tm := NewTokenManager()

	jt, err := tm.GenerateToken("rack", -time.Minute)
	require.NoError(t, err)

	_, err = tm.ValidateToken(jt.Token)
	assert.ErrorContains(t, err, "expired")
}

func TestTokenRevoke(t *testing.T) {
	tm := NewTokenManager()

	jt, err := tm.GenerateToken("region", time.Hour)
	require.NoError(t, err)

	tm.RevokeToken(jt.Token)

	_, err = tm.ValidateToken(jt.Token)
	assert.Error(t, err)
}

func TestCleanupExpiredTokens(t *testing.T) {
	tm := NewTokenManager()

	expired, err := tm.GenerateToken("rack", -time.Minute)
	require.NoError(t, err)
	live, err := tm.GenerateToken("rack", time.Hour)
	require.NoError(t, err)

	tm.CleanupExpiredTokens()

	_, err = tm.ValidateToken(expired.Token)
	assert.Error(t, err)
	_, err = tm.ValidateToken(live.Token)
	assert.NoError(t, err)
}
