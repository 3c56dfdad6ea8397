package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenDenylistInMemory(t *testing.T) {
	list := NewTokenDenylist(nil)
	now := time.Now()
	list.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, list.Revoke(ctx, "jti-1", time.Minute))

	revoked, err := list.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = list.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)

	now = now.Add(2 * time.Minute)
	revoked, err = list.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestTokenDenylistIgnoresEmptyIDs(t *testing.T) {
	list := NewTokenDenylist(nil)
	require.NoError(t, list.Revoke(context.Background(), "", time.Minute))
	revoked, err := list.IsRevoked(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestCacheRepositoryWithoutClientMisses(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	var dest []string
	err := repo.Get(context.Background(), "homeworks:feed", &dest)
	assert.Error(t, err)
	assert.NoError(t, repo.Set(context.Background(), "k", []string{"a"}, time.Minute))
	assert.NoError(t, repo.Delete(context.Background(), "k"))
}
