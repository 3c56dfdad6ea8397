package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedTokenPrefix = "auth:revoked:"

// TokenDenylist remembers revoked access tokens until they expire. Without a
// Redis client it keeps entries in process memory.
type TokenDenylist struct {
	client *redis.Client

	mu    sync.Mutex
	local map[string]time.Time
	now   func() time.Time
}

// NewTokenDenylist constructs a denylist backed by client when non-nil.
func NewTokenDenylist(client *redis.Client) *TokenDenylist {
	return &TokenDenylist{client: client, local: make(map[string]time.Time), now: time.Now}
}

// Revoke marks the token ID as revoked for ttl.
func (r *TokenDenylist) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" || ttl <= 0 {
		return nil
	}
	if r.client != nil {
		if err := r.client.Set(ctx, revokedTokenPrefix+tokenID, "1", ttl).Err(); err != nil {
			return fmt.Errorf("redis revoke token: %w", err)
		}
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.local[tokenID] = r.now().Add(ttl)
	return nil
}

// IsRevoked reports whether the token ID was revoked and has not expired.
func (r *TokenDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	if r.client != nil {
		n, err := r.client.Exists(ctx, revokedTokenPrefix+tokenID).Result()
		if err != nil {
			return false, fmt.Errorf("redis check token: %w", err)
		}
		return n > 0, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	exp, ok := r.local[tokenID]
	if !ok {
		return false, nil
	}
	if r.now().After(exp) {
		delete(r.local, tokenID)
		return false, nil
	}
	return true, nil
}
