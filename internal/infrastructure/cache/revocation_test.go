package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRevocationList(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewMemoryRevocationList()
	l.now = func() time.Time { return now }

	revoked, err := l.IsRevoked(ctx, "a")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, l.Revoke(ctx, "a", time.Minute))
	revoked, _ = l.IsRevoked(ctx, "a")
	assert.True(t, revoked)

	now = now.Add(2 * time.Minute)
	revoked, _ = l.IsRevoked(ctx, "a")
	assert.False(t, revoked, "entry expires with the token")
}

func TestMemoryRevocationListIgnoresExpiredTokens(t *testing.T) {
	l := NewMemoryRevocationList()
	require.NoError(t, l.Revoke(context.Background(), "gone", 0))
	assert.Empty(t, l.entries)
}
