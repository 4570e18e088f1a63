// Package revocation records session tokens that must be rejected before
// their natural expiry.
package revocation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// KeyPrefix namespaces revocation entries in shared key spaces.
const KeyPrefix = "auth:revoked:"

// Store tracks revoked tokens. Entries expire on their own after the ttl
// passed to Revoke.
type Store interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// Key derives the storage key for token. Raw tokens are never stored.
func Key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return KeyPrefix + hex.EncodeToString(sum[:])
}
