package crewauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DEPthes/crewauth/refreshstate"
	"github.com/DEPthes/crewauth/token"
	"go.uber.org/zap"
)

// IssueInitial produces a fresh credential pair for subjectID. The durable
// refresh record is persisted before the pair is returned, so no credential
// is ever handed out that cannot yet be validated.
func (e *Engine) IssueInitial(ctx context.Context, subjectID string) (*Pair, error) {
	access, err := e.codec.Issue(subjectID, token.KindAccess, e.config.JWT.AccessTTL)
	if err != nil {
		e.metrics.Inc(MetricIssueFailure)
		return nil, err
	}

	refresh, err := e.codec.Issue(subjectID, token.KindRefresh, e.config.JWT.RefreshTTL)
	if err != nil {
		e.metrics.Inc(MetricIssueFailure)
		return nil, err
	}

	err = e.refresh.Put(ctx, refreshstate.Record{
		RefreshID: refresh.RefreshID,
		Subject:   subjectID,
		ExpiresAt: refresh.ExpiresAt,
	})
	if err != nil {
		e.metrics.Inc(MetricIssueFailure)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metrics.Inc(MetricIssueSuccess)
	return &Pair{
		AccessCredential:  access.Credential,
		RefreshCredential: refresh.Credential,
		AccessExpiresAt:   access.ExpiresAt,
		RefreshExpiresAt:  refresh.ExpiresAt,
		RefreshID:         refresh.RefreshID,
	}, nil
}

// Rotate exchanges a refresh credential for a brand-new pair. The embedded
// refresh identifier must be live in the state store and owned by the
// credential's subject; a syntactically valid but unknown or foreign
// identifier fails with ErrTokenInvalid regardless of signature validity.
// When subjectID is non-empty it must additionally match the credential's
// subject. Under single-use policy the old record is retired on success; a
// concurrent logout deleting the same record is a race the caller loses
// gracefully.
func (e *Engine) Rotate(ctx context.Context, subjectID, refreshCredential string) (*Pair, error) {
	if refreshCredential == "" {
		e.metrics.Inc(MetricRotateFailure)
		return nil, ErrTokenMissing
	}

	claims, err := e.codec.Verify(refreshCredential)
	if err != nil {
		e.metrics.Inc(MetricRotateFailure)
		return nil, mapVerifyError(err)
	}
	if claims.Kind != token.KindRefresh {
		e.metrics.Inc(MetricRotateFailure)
		return nil, ErrTokenInvalid
	}
	if subjectID != "" && subjectID != claims.Subject {
		e.metrics.Inc(MetricRotateFailure)
		return nil, ErrTokenInvalid
	}

	ok, err := e.refresh.Validate(ctx, claims.Subject, claims.RefreshID)
	if err != nil {
		e.metrics.Inc(MetricRotateFailure)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !ok {
		e.metrics.Inc(MetricRotateFailure)
		return nil, ErrTokenInvalid
	}

	pair, err := e.IssueInitial(ctx, claims.Subject)
	if err != nil {
		e.metrics.Inc(MetricRotateFailure)
		return nil, err
	}

	if e.config.Refresh.SingleUse {
		if err := e.refresh.Delete(ctx, claims.RefreshID); err != nil {
			// The new pair is already durable; losing the retire write only
			// extends the old credential to its natural expiry.
			e.logger.Warn("retiring rotated refresh record failed",
				zap.String("refresh_id", claims.RefreshID), zap.Error(err))
		}
	}

	e.metrics.Inc(MetricRotateSuccess)
	return pair, nil
}

// Revoke invalidates an access credential before its natural expiry and,
// when refreshID is non-empty, deletes the matching refresh record from both
// tiers. The blacklist entry lives exactly as long as the credential would
// have; an already-expired credential needs no entry.
func (e *Engine) Revoke(ctx context.Context, accessCredential, refreshID string) error {
	if accessCredential == "" {
		return ErrTokenMissing
	}

	claims, err := e.codec.Verify(accessCredential)
	if err != nil && !errors.Is(err, token.ErrExpired) {
		return mapVerifyError(err)
	}
	if claims == nil || claims.Kind != token.KindAccess {
		return ErrTokenInvalid
	}

	if remaining := time.Until(claims.ExpiresAt.Time); remaining > 0 {
		if err := e.blacklist.Revoke(ctx, accessCredential, remaining); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	if refreshID != "" {
		if err := e.refresh.Delete(ctx, refreshID); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	e.metrics.Inc(MetricRevoke)
	return nil
}
