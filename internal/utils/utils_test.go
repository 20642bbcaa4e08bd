package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	tok, err := SignJWT("s3cret", "user-1", "weaver", 5)
	require.NoError(t, err)

	parsed, err := ParseJWT("s3cret", tok)
	require.NoError(t, err)
	claims := parsed.Claims.(*Claims)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "weaver", claims.Role)

	_, err = ParseJWT("other", tok)
	assert.Error(t, err)

	expired, err := SignJWT("s3cret", "user-1", "weaver", -1)
	require.NoError(t, err)
	_, err = ParseJWT("s3cret", expired)
	assert.Error(t, err)
}

func TestPassword(t *testing.T) {
	h, err := HashPassword("handloom")
	require.NoError(t, err)
	assert.True(t, CheckPassword(h, "handloom"))
	assert.False(t, CheckPassword(h, "powerloom"))
}

func TestSeal(t *testing.T) {
	s, err := Seal("k", "/orders?tab=recent")
	require.NoError(t, err)

	got, err := Open("k", s)
	require.NoError(t, err)
	assert.Equal(t, "/orders?tab=recent", got)

	_, err = Open("other", s)
	assert.ErrorIs(t, err, ErrSealBroken)
	flip := byte('A')
	if s[0] == 'A' {
		flip = 'B'
	}
	_, err = Open("k", string(flip)+s[1:])
	assert.ErrorIs(t, err, ErrSealBroken)
	_, err = Open("k", "!!")
	assert.ErrorIs(t, err, ErrSealBroken)
}
