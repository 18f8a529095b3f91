package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashRoundTrip(t *testing.T) {
	hash, err := Hash("secret123")
	require.NoError(t, err)

	assert.True(t, Verify("secret123", hash))
	assert.False(t, Verify("secret124", hash))
	assert.False(t, Verify("", hash))
}

func TestHashFormat(t *testing.T) {
	hash, err := Hash("secret123")
	require.NoError(t, err)

	parts := strings.SplitN(hash, ":", 2)
	require.Len(t, parts, 2)
	assert.Len(t, parts[0], saltLength*2)
	assert.Len(t, parts[1], keyLength*2)
}

func TestHashUniqueSalt(t *testing.T) {
	first, err := Hash("secret123")
	require.NoError(t, err)
	second, err := Hash("secret123")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, Verify("secret123", first))
	assert.True(t, Verify("secret123", second))
}

func TestVerifyMalformedStoredHash(t *testing.T) {
	assert.False(t, Verify("secret123", ""))
	assert.False(t, Verify("secret123", "nocolon"))
	assert.False(t, Verify("secret123", "zz:zz"))
	assert.False(t, Verify("secret123", "abcd:"))
}
