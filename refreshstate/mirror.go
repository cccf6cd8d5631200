package refreshstate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const mirrorKeyPrefix = "refresh_token:"

// ErrMirrorUnavailable is returned when the cache tier cannot be reached.
// The tiered store absorbs it; only direct Mirror users see it.
var ErrMirrorUnavailable = errors.New("refresh mirror redis unavailable")

// Mirror is the disposable Redis shadow of the durable refresh store. It
// maps a refresh identifier to the owning subject. Its absence never means
// "invalid"; a miss downgrades the caller to the authoritative check.
type Mirror struct {
	redis *redis.Client
}

// NewMirror creates a Mirror on client.
func NewMirror(client *redis.Client) *Mirror {
	return &Mirror{redis: client}
}

func (m *Mirror) key(refreshID string) string {
	return mirrorKeyPrefix + refreshID
}

// Put writes the identifier-to-subject entry with the given ttl.
func (m *Mirror) Put(ctx context.Context, refreshID, subject string, ttl time.Duration) error {
	if err := m.redis.Set(ctx, m.key(refreshID), subject, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrMirrorUnavailable, err)
	}
	return nil
}

// Get returns the cached subject for refreshID. The boolean distinguishes a
// cache miss from a hit; misses are not errors.
func (m *Mirror) Get(ctx context.Context, refreshID string) (string, bool, error) {
	subject, err := m.redis.Get(ctx, m.key(refreshID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrMirrorUnavailable, err)
	}
	return subject, true, nil
}

// Delete evicts the entry for refreshID.
func (m *Mirror) Delete(ctx context.Context, refreshID string) error {
	if err := m.redis.Del(ctx, m.key(refreshID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrMirrorUnavailable, err)
	}
	return nil
}
