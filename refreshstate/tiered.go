package refreshstate

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// TieredOptions configures the cache-then-durable composition.
type TieredOptions struct {
	// CacheTTL bounds mirror entry lifetime. Entries are additionally capped
	// at the record's remaining durable lifetime, so a mirror entry can never
	// outlive its record's natural expiry.
	CacheTTL time.Duration

	Logger *zap.Logger

	// OnCacheFallback fires when a validation misses the mirror and falls
	// back to the durable store.
	OnCacheFallback func()
	// OnCacheDegraded fires when a mirror operation fails and is absorbed.
	OnCacheDegraded func()
}

// Tiered composes the authoritative durable store with the advisory Redis
// mirror and centrally enforces the consistency contract: writes and deletes
// touch the durable tier first, mirror failures degrade instead of failing
// the operation, and a cache miss downgrades to the durable lookup rather
// than rejecting.
type Tiered struct {
	durable Store
	mirror  *Mirror
	opts    TieredOptions
	logger  *zap.Logger
}

// NewTiered wraps durable with mirror. A nil mirror disables the cache tier
// entirely; the store then behaves as durable-only.
func NewTiered(durable Store, mirror *Mirror, opts TieredOptions) *Tiered {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tiered{
		durable: durable,
		mirror:  mirror,
		opts:    opts,
		logger:  logger,
	}
}

func (t *Tiered) degraded(op string, err error) {
	t.logger.Warn("refresh mirror degraded", zap.String("op", op), zap.Error(err))
	if t.opts.OnCacheDegraded != nil {
		t.opts.OnCacheDegraded()
	}
}

func (t *Tiered) mirrorTTL(rec Record) time.Duration {
	ttl := time.Until(rec.ExpiresAt)
	if t.opts.CacheTTL > 0 && t.opts.CacheTTL < ttl {
		ttl = t.opts.CacheTTL
	}
	return ttl
}

// Put persists rec durably, then best-effort writes the mirror entry. The
// durable write is the commit point: a mirror failure is logged and absorbed.
func (t *Tiered) Put(ctx context.Context, rec Record) error {
	if err := t.durable.Put(ctx, rec); err != nil {
		return err
	}

	if t.mirror != nil {
		if ttl := t.mirrorTTL(rec); ttl > 0 {
			if err := t.mirror.Put(ctx, rec.RefreshID, rec.Subject, ttl); err != nil {
				t.degraded("put", err)
			}
		}
	}

	return nil
}

// Validate reports whether refreshID is a live identifier owned by subject.
// Cache-first: a mirror hit short-circuits the durable lookup; a miss or a
// mirror failure falls back to the durable store. Only a durable-tier
// failure is returned as an error.
func (t *Tiered) Validate(ctx context.Context, subject, refreshID string) (bool, error) {
	if subject == "" || refreshID == "" {
		return false, nil
	}

	if t.mirror != nil {
		cached, found, err := t.mirror.Get(ctx, refreshID)
		switch {
		case err != nil:
			t.degraded("get", err)
		case found:
			return cached == subject, nil
		default:
			if t.opts.OnCacheFallback != nil {
				t.opts.OnCacheFallback()
			}
		}
	}

	rec, err := t.durable.Get(ctx, refreshID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	return rec.Subject == subject, nil
}

// Delete evicts the identifier from the durable store first, then
// best-effort from the mirror.
func (t *Tiered) Delete(ctx context.Context, refreshID string) error {
	if err := t.durable.Delete(ctx, refreshID); err != nil {
		return err
	}

	if t.mirror != nil {
		if err := t.mirror.Delete(ctx, refreshID); err != nil {
			t.degraded("delete", err)
		}
	}

	return nil
}

// Exists reports whether a live record is known for refreshID in either
// tier. A mirror hit is sufficient; a miss downgrades to the durable check.
func (t *Tiered) Exists(ctx context.Context, refreshID string) (bool, error) {
	if t.mirror != nil {
		_, found, err := t.mirror.Get(ctx, refreshID)
		if err != nil {
			t.degraded("exists", err)
		} else if found {
			return true, nil
		}
	}

	if _, err := t.durable.Get(ctx, refreshID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Expiry returns the durable expiry of refreshID. The mirror does not store
// expiries, so this always consults the authoritative tier.
func (t *Tiered) Expiry(ctx context.Context, refreshID string) (time.Time, error) {
	rec, err := t.durable.Get(ctx, refreshID)
	if err != nil {
		return time.Time{}, err
	}
	return rec.ExpiresAt, nil
}
