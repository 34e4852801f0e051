// Package session tracks revoked tokens so that logout and password changes
// invalidate outstanding JWTs before they expire.
package session

import (
	"context"
	"time"
)

// Store defines the interface for token revocation storage. Keys are the
// token's jti claim; entries only need to live as long as the token itself,
// so every write carries a TTL.
type Store interface {
	// Revoke marks a token id as revoked for the given duration.
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error

	// IsRevoked reports whether a token id has been revoked.
	IsRevoked(ctx context.Context, tokenID string) (bool, error)

	// Close releases any underlying resources.
	Close() error
}
