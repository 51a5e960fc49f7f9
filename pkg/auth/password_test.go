package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-password")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-password", hash)

	assert.True(t, CheckPasswordHash("s3cret-password", hash))
	assert.False(t, CheckPasswordHash("wrong-password", hash))
}

func TestHashPasswordProducesDistinctHashes(t *testing.T) {
	first, err := HashPassword("s3cret-password")
	require.NoError(t, err)
	second, err := HashPassword("s3cret-password")
	require.NoError(t, err)

	// bcrypt salts every hash.
	assert.NotEqual(t, first, second)
}
