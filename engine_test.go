package crewauth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/DEPthes/crewauth/refreshstate"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func testConfig() Config {
	cfg := defaultConfig()
	cfg.JWT.Secret = testSecret
	return cfg
}

func testResolver(subjects map[string]Subject) SubjectResolver {
	return SubjectResolverFunc(func(_ context.Context, subjectID string) (*Subject, error) {
		s, ok := subjects[subjectID]
		if !ok {
			return nil, ErrSubjectNotFound
		}
		return &s, nil
	})
}

func newTestEngine(t *testing.T, cfg Config) (*Engine, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	engine, err := New().
		WithConfig(cfg).
		WithRedis(client).
		WithRefreshStore(refreshstate.NewMemoryStore()).
		WithSubjectResolver(testResolver(map[string]Subject{
			"42": {ID: "42", Identifier: "alice"},
			"7":  {ID: "7", Identifier: "bob"},
		})).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return engine, mr
}

func TestIssueAndAuthenticate(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig())
	ctx := context.Background()

	pair, err := engine.IssueInitial(ctx, "42")
	if err != nil {
		t.Fatalf("IssueInitial failed: %v", err)
	}
	if pair.AccessCredential == "" || pair.RefreshCredential == "" {
		t.Fatal("empty credential in issued pair")
	}
	if pair.RefreshID == "" {
		t.Fatal("pair missing refresh identifier")
	}
	if !pair.RefreshExpiresAt.After(pair.AccessExpiresAt) {
		t.Fatal("refresh expiry not beyond access expiry")
	}

	principal, err := engine.Authenticate(ctx, pair.AccessCredential)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if principal.Subject.ID != "42" || principal.Subject.Identifier != "alice" {
		t.Fatalf("unexpected principal %+v", principal.Subject)
	}
}

func TestAuthenticateRejections(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig())
	ctx := context.Background()

	if _, err := engine.Authenticate(ctx, ""); !errors.Is(err, ErrTokenMissing) {
		t.Fatalf("empty credential: got %v, want ErrTokenMissing", err)
	}
	if _, err := engine.Authenticate(ctx, "not-a-credential"); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("garbage credential: got %v, want ErrTokenMalformed", err)
	}

	pair, err := engine.IssueInitial(ctx, "42")
	if err != nil {
		t.Fatalf("IssueInitial failed: %v", err)
	}
	// A refresh credential never passes the access gate.
	if _, err := engine.Authenticate(ctx, pair.RefreshCredential); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("refresh credential: got %v, want ErrTokenInvalid", err)
	}
}

func TestAuthenticateExpired(t *testing.T) {
	cfg := testConfig()
	cfg.JWT.AccessTTL = 50 * time.Millisecond
	cfg.JWT.RefreshTTL = time.Hour
	engine, _ := newTestEngine(t, cfg)
	ctx := context.Background()

	pair, err := engine.IssueInitial(ctx, "42")
	if err != nil {
		t.Fatalf("IssueInitial failed: %v", err)
	}
	if _, err := engine.Authenticate(ctx, pair.AccessCredential); err != nil {
		t.Fatalf("Authenticate before expiry failed: %v", err)
	}

	time.Sleep(120 * time.Millisecond)

	if _, err := engine.Authenticate(ctx, pair.AccessCredential); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("after expiry: got %v, want ErrTokenExpired", err)
	}
}

func TestRevokeBlacklistsUntilNaturalExpiry(t *testing.T) {
	engine, mr := newTestEngine(t, testConfig())
	ctx := context.Background()

	pair, err := engine.IssueInitial(ctx, "42")
	if err != nil {
		t.Fatalf("IssueInitial failed: %v", err)
	}
	if err := engine.Revoke(ctx, pair.AccessCredential, pair.RefreshID); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	// Revocation wins over every later check on a still-valid credential.
	if _, err := engine.Authenticate(ctx, pair.AccessCredential); !errors.Is(err, ErrTokenBlacklisted) {
		t.Fatalf("revoked credential: got %v, want ErrTokenBlacklisted", err)
	}

	ttl := mr.TTL(pair.AccessCredential)
	if ttl <= 0 || ttl > engine.AccessTTL() {
		t.Fatalf("blacklist entry ttl %v outside (0, %v]", ttl, engine.AccessTTL())
	}

	// The refresh record is gone from both tiers.
	if _, err := engine.Rotate(ctx, "", pair.RefreshCredential); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("rotate after revoke: got %v, want ErrTokenInvalid", err)
	}
}

func TestRevokeExpiredCredentialWritesNoEntry(t *testing.T) {
	cfg := testConfig()
	cfg.JWT.AccessTTL = 50 * time.Millisecond
	cfg.JWT.RefreshTTL = time.Hour
	engine, mr := newTestEngine(t, cfg)
	ctx := context.Background()

	pair, err := engine.IssueInitial(ctx, "42")
	if err != nil {
		t.Fatalf("IssueInitial failed: %v", err)
	}

	time.Sleep(120 * time.Millisecond)

	if err := engine.Revoke(ctx, pair.AccessCredential, ""); err != nil {
		t.Fatalf("Revoke of expired credential failed: %v", err)
	}
	if mr.Exists(pair.AccessCredential) {
		t.Fatal("expired credential got a blacklist entry")
	}
}

func TestRotateIssuesFreshPair(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig())
	ctx := context.Background()

	pair, err := engine.IssueInitial(ctx, "42")
	if err != nil {
		t.Fatalf("IssueInitial failed: %v", err)
	}

	rotated, err := engine.Rotate(ctx, "42", pair.RefreshCredential)
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	if rotated.RefreshID == pair.RefreshID {
		t.Fatal("rotation reused the refresh identifier")
	}
	if _, err := engine.Authenticate(ctx, rotated.AccessCredential); err != nil {
		t.Fatalf("Authenticate of rotated access credential failed: %v", err)
	}

	// Single-use policy: the consumed credential cannot rotate again.
	if _, err := engine.Rotate(ctx, "42", pair.RefreshCredential); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("second rotation: got %v, want ErrTokenInvalid", err)
	}
	// The replacement still can.
	if _, err := engine.Rotate(ctx, "42", rotated.RefreshCredential); err != nil {
		t.Fatalf("rotation of replacement failed: %v", err)
	}
}

func TestRotateMultiUsePolicy(t *testing.T) {
	cfg := testConfig()
	cfg.Refresh.SingleUse = false
	engine, _ := newTestEngine(t, cfg)
	ctx := context.Background()

	pair, err := engine.IssueInitial(ctx, "42")
	if err != nil {
		t.Fatalf("IssueInitial failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := engine.Rotate(ctx, "42", pair.RefreshCredential); err != nil {
			t.Fatalf("rotation %d failed: %v", i, err)
		}
	}
}

func TestRotateRejections(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig())
	ctx := context.Background()

	if _, err := engine.Rotate(ctx, "42", ""); !errors.Is(err, ErrTokenMissing) {
		t.Fatalf("empty credential: got %v, want ErrTokenMissing", err)
	}

	pair, err := engine.IssueInitial(ctx, "7")
	if err != nil {
		t.Fatalf("IssueInitial failed: %v", err)
	}

	// An access credential never passes the refresh gate.
	if _, err := engine.Rotate(ctx, "7", pair.AccessCredential); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("access credential: got %v, want ErrTokenInvalid", err)
	}
	// Caller-asserted subject must match the credential's subject.
	if _, err := engine.Rotate(ctx, "42", pair.RefreshCredential); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("foreign caller subject: got %v, want ErrTokenInvalid", err)
	}
}

func TestRotateForeignIdentifierOwnership(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig())
	ctx := context.Background()

	pair, err := engine.IssueInitial(ctx, "7")
	if err != nil {
		t.Fatalf("IssueInitial failed: %v", err)
	}

	// Reassign the stored record to another subject; the signed credential
	// still says "7", so ownership validation must reject it.
	err = engine.refresh.Put(ctx, refreshstate.Record{
		RefreshID: pair.RefreshID,
		Subject:   "9",
		ExpiresAt: pair.RefreshExpiresAt,
	})
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if _, err := engine.Rotate(ctx, "", pair.RefreshCredential); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("foreign ownership: got %v, want ErrTokenInvalid", err)
	}
}

func TestAuthenticateUnknownSubject(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig())
	ctx := context.Background()

	pair, err := engine.IssueInitial(ctx, "99")
	if err != nil {
		t.Fatalf("IssueInitial failed: %v", err)
	}
	if _, err := engine.Authenticate(ctx, pair.AccessCredential); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("unknown subject: got %v, want ErrTokenInvalid", err)
	}
}

func TestAuthenticateStoreOutage(t *testing.T) {
	engine, mr := newTestEngine(t, testConfig())
	ctx := context.Background()

	pair, err := engine.IssueInitial(ctx, "42")
	if err != nil {
		t.Fatalf("IssueInitial failed: %v", err)
	}

	mr.Close()

	_, err = engine.Authenticate(ctx, pair.AccessCredential)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("blacklist outage: got %v, want ErrStoreUnavailable", err)
	}
	if _, ok := AsTokenError(err); ok {
		t.Fatal("store outage must not be a TokenError")
	}
}

func TestMetricsCounters(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig())
	ctx := context.Background()

	pair, err := engine.IssueInitial(ctx, "42")
	if err != nil {
		t.Fatalf("IssueInitial failed: %v", err)
	}
	if _, err := engine.Authenticate(ctx, pair.AccessCredential); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if _, err := engine.Authenticate(ctx, "garbage"); err == nil {
		t.Fatal("expected rejection")
	}
	if err := engine.Revoke(ctx, pair.AccessCredential, pair.RefreshID); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if _, err := engine.Authenticate(ctx, pair.AccessCredential); !errors.Is(err, ErrTokenBlacklisted) {
		t.Fatalf("got %v, want ErrTokenBlacklisted", err)
	}

	snap := engine.MetricsSnapshot()
	checks := map[MetricID]uint64{
		MetricIssueSuccess: 1,
		MetricAuthSuccess:  1,
		MetricAuthRejected: 2,
		MetricRevoke:       1,
		MetricBlacklistHit: 1,
	}
	for id, want := range checks {
		if got := snap.Counters[id]; got != want {
			t.Fatalf("counter %d: got %d, want %d", id, got, want)
		}
	}
}
