package blacklist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable is returned when the Redis tier cannot be reached. Callers
// must not interpret it as "not revoked".
var ErrUnavailable = errors.New("blacklist redis unavailable")

const revokedMarker = "revoked"

// Store is the revocation list for access credentials. Entries carry a TTL
// equal to the credential's remaining validity at revocation time, so the
// list never outgrows the set of still-live revoked credentials.
type Store struct {
	redis  *redis.Client
	prefix string
}

// NewStore creates a Store. The prefix is prepended to the raw credential
// string when building keys; empty means the credential string is the key.
func NewStore(client *redis.Client, prefix string) *Store {
	return &Store{
		redis:  client,
		prefix: prefix,
	}
}

func (s *Store) key(credential string) string {
	return s.prefix + credential
}

// Revoke inserts a revocation entry for credential that lives for ttl.
// A non-positive ttl is a no-op: an already-expired credential fails
// verification on its own and needs no entry.
func (s *Store) Revoke(ctx context.Context, credential string, ttl time.Duration) error {
	if credential == "" {
		return errors.New("empty credential")
	}
	if ttl <= 0 {
		return nil
	}

	if err := s.redis.Set(ctx, s.key(credential), revokedMarker, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return nil
}

// IsRevoked reports whether credential has a live revocation entry.
func (s *Store) IsRevoked(ctx context.Context, credential string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.key(credential)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}
