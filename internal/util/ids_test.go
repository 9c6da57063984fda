package util //nolint:revive // package name util hosts small shared helpers

import (
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID_SortableAndUnique(t *testing.T) {
	seen := make(map[string]struct{})
	prev := ""
	for i := 0; i < 200; i++ {
		id := NewID()
		_, err := ulid.ParseStrict(id)
		require.NoError(t, err)
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
		assert.Greater(t, id, prev)
		prev = id
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a.b@example.com", NormalizeEmail("  A.B@Example.COM "))
	assert.Equal(t, "", NormalizeEmail("   "))
}
