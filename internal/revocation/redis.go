package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps revocation markers in Redis with a native key expiry.
type RedisStore struct {
	client redis.Cmdable
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

// Revoke marks token as revoked for ttl. A non-positive ttl stores nothing
// because the token can no longer pass verification anyway.
func (s *RedisStore) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, Key(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revocation: set: %w", err)
	}
	return nil
}

// IsRevoked reports whether a live marker exists for token.
func (s *RedisStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := s.client.Exists(ctx, Key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("revocation: exists: %w", err)
	}
	return n > 0, nil
}

var _ Store = (*RedisStore)(nil)
