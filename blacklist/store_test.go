package blacklist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewStore(client, "bl:"), mr
}

func TestRevokeAndIsRevoked(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	revoked, err := store.IsRevoked(ctx, "cred-a")
	if err != nil {
		t.Fatalf("IsRevoked failed: %v", err)
	}
	if revoked {
		t.Fatal("unknown credential reported revoked")
	}

	if err := store.Revoke(ctx, "cred-a", time.Minute); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	revoked, err = store.IsRevoked(ctx, "cred-a")
	if err != nil {
		t.Fatalf("IsRevoked failed: %v", err)
	}
	if !revoked {
		t.Fatal("revoked credential not reported revoked")
	}

	revoked, err = store.IsRevoked(ctx, "cred-b")
	if err != nil {
		t.Fatalf("IsRevoked failed: %v", err)
	}
	if revoked {
		t.Fatal("unrelated credential reported revoked")
	}
}

func TestRevokeEntryExpiresWithTTL(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.Revoke(ctx, "cred-a", 10*time.Minute); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if got := mr.TTL("bl:cred-a"); got != 10*time.Minute {
		t.Fatalf("entry ttl: got %v, want %v", got, 10*time.Minute)
	}

	mr.FastForward(10*time.Minute + time.Second)

	revoked, err := store.IsRevoked(ctx, "cred-a")
	if err != nil {
		t.Fatalf("IsRevoked failed: %v", err)
	}
	if revoked {
		t.Fatal("entry survived past its ttl")
	}
}

func TestRevokeNonPositiveTTLIsNoop(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.Revoke(ctx, "cred-a", 0); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if err := store.Revoke(ctx, "cred-a", -time.Minute); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if mr.Exists("bl:cred-a") {
		t.Fatal("no-op revoke wrote an entry")
	}
}

func TestUnavailableRedisSurfacesError(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	mr.Close()

	if err := store.Revoke(ctx, "cred-a", time.Minute); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Revoke on closed redis: got %v, want ErrUnavailable", err)
	}
	if _, err := store.IsRevoked(ctx, "cred-a"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("IsRevoked on closed redis: got %v, want ErrUnavailable", err)
	}
}
