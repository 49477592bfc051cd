package account

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHMACKeyGenerator_Generate(t *testing.T) {
	g, err := NewHMACKeyGenerator("server-secret")
	require.NoError(t, err)

	a, err := g.Generate("alice")
	require.NoError(t, err)
	b, err := g.Generate("alice")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a, accessKeyPrefix))
	assert.Len(t, a, len(accessKeyPrefix)+64)
	assert.NotContains(t, a, "alice")
	assert.NotEqual(t, a, b, "same seed must not give the same key")
}

func TestHMACKeyGenerator_RandomSecret(t *testing.T) {
	g1, err := NewHMACKeyGenerator("")
	require.NoError(t, err)
	g2, err := NewHMACKeyGenerator("")
	require.NoError(t, err)

	assert.Len(t, g1.secret, 32)
	assert.NotEqual(t, g1.secret, g2.secret)
}

func TestHMACKeyGenerator_Unique(t *testing.T) {
	g, err := NewHMACKeyGenerator("")
	require.NoError(t, err)

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		k, err := g.Generate("same-user")
		require.NoError(t, err)
		_, dup := seen[k]
		require.False(t, dup)
		seen[k] = struct{}{}
	}
}
