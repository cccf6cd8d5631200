package crewauth

import (
	"context"
	"errors"
	"time"
)

// Pair is the credential pair produced by Engine.IssueInitial and
// Engine.Rotate. Expiries are absolute timestamps; both are user-visible in
// login and refresh responses.
type Pair struct {
	AccessCredential  string
	RefreshCredential string
	AccessExpiresAt   time.Time
	RefreshExpiresAt  time.Time

	// RefreshID is the identifier embedded in RefreshCredential, exposed so
	// callers can pass it back to Engine.Revoke on logout.
	RefreshID string
}

// Subject is the minimal account representation the engine needs. Everything
// else about a user lives behind the SubjectResolver.
type Subject struct {
	ID         string
	Identifier string
}

// SubjectResolver is implemented by the caller to look up accounts during
// authentication. Returning ErrSubjectNotFound (or nil, nil) rejects the
// credential as invalid; any other error is treated as a store outage.
type SubjectResolver interface {
	ResolveSubject(ctx context.Context, subjectID string) (*Subject, error)
}

// ErrSubjectNotFound is returned by SubjectResolver implementations when the
// subject identifier no longer maps to an account.
var ErrSubjectNotFound = errors.New("subject not found")

// Principal is the resolved identity attached to a request after successful
// verification.
type Principal struct {
	Subject   Subject
	ExpiresAt time.Time
}

// SubjectResolverFunc adapts a function to the SubjectResolver interface.
type SubjectResolverFunc func(ctx context.Context, subjectID string) (*Subject, error)

// ResolveSubject calls f.
func (f SubjectResolverFunc) ResolveSubject(ctx context.Context, subjectID string) (*Subject, error) {
	return f(ctx, subjectID)
}
