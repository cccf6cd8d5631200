package crewauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DEPthes/crewauth/blacklist"
	"github.com/DEPthes/crewauth/refreshstate"
	"github.com/DEPthes/crewauth/token"
	"go.uber.org/zap"
)

// Engine orchestrates credential issuance, rotation, revocation, and
// per-request verification. Construct it through Builder.Build; after that
// every method is safe for concurrent use.
type Engine struct {
	config    Config
	codec     *token.Codec
	refresh   *refreshstate.Tiered
	blacklist *blacklist.Store
	resolver  SubjectResolver
	logger    *zap.Logger
	metrics   *Metrics
}

// Authenticate verifies an access credential and resolves its subject into a
// Principal. Failures are always one of the closed TokenError set, except
// for store outages which surface as ErrStoreUnavailable: when the
// revocation list or the subject backend cannot be consulted, no conclusion
// about validity can be drawn.
func (e *Engine) Authenticate(ctx context.Context, credential string) (*Principal, error) {
	if credential == "" {
		e.metrics.Inc(MetricAuthRejected)
		return nil, ErrTokenMissing
	}

	claims, err := e.codec.Verify(credential)
	if err != nil {
		e.metrics.Inc(MetricAuthRejected)
		return nil, mapVerifyError(err)
	}
	if claims.Kind != token.KindAccess {
		e.metrics.Inc(MetricAuthRejected)
		return nil, ErrTokenInvalid
	}

	revoked, err := e.blacklist.IsRevoked(ctx, credential)
	if err != nil {
		e.logger.Error("blacklist lookup failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if revoked {
		e.metrics.Inc(MetricBlacklistHit)
		e.metrics.Inc(MetricAuthRejected)
		return nil, ErrTokenBlacklisted
	}

	subject, err := e.resolver.ResolveSubject(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrSubjectNotFound) {
			e.metrics.Inc(MetricAuthRejected)
			return nil, ErrTokenInvalid
		}
		e.logger.Error("subject resolution failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if subject == nil {
		e.metrics.Inc(MetricAuthRejected)
		return nil, ErrTokenInvalid
	}

	e.metrics.Inc(MetricAuthSuccess)
	return &Principal{
		Subject:   *subject,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// MetricsSnapshot returns a point-in-time copy of the engine counters for
// the exporters under metrics/export.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	return e.metrics.Snapshot()
}

// AccessTTL returns the configured access credential lifetime.
func (e *Engine) AccessTTL() time.Duration { return e.config.JWT.AccessTTL }

// RefreshTTL returns the configured refresh credential lifetime.
func (e *Engine) RefreshTTL() time.Duration { return e.config.JWT.RefreshTTL }

// mapVerifyError collapses codec failures into the closed TokenError set.
// Precedence: unparseable input is malformed, a bad signature is invalid,
// and only a credential that verified but aged out is expired.
func mapVerifyError(err error) *TokenError {
	switch {
	case errors.Is(err, token.ErrMalformed):
		return ErrTokenMalformed
	case errors.Is(err, token.ErrSignature):
		return ErrTokenInvalid
	case errors.Is(err, token.ErrExpired):
		return ErrTokenExpired
	default:
		return ErrTokenInvalid
	}
}
