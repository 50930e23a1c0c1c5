package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash(t *testing.T) {
	hash, err := Hash("securePassword123")
	require.NoError(t, err)

	assert.NotEmpty(t, hash)
	assert.NotEqual(t, "securePassword123", string(hash))
}

func TestHash_DifferentSalts(t *testing.T) {
	hash1, err := Hash("securePassword123")
	require.NoError(t, err)

	hash2, err := Hash("securePassword123")
	require.NoError(t, err)

	assert.NotEqual(t, hash1, hash2)
}

func TestCheck(t *testing.T) {
	hash, err := Hash("securePassword123")
	require.NoError(t, err)

	assert.NoError(t, Check(hash, "securePassword123"))
	assert.Error(t, Check(hash, "wrongPassword"))
	assert.Error(t, Check(hash, ""))
}
