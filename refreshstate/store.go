package refreshstate

import (
	"context"
	"errors"
	"time"
)

// Record is the durable validity entry behind one refresh credential. At
// most one live Record maps to a given refresh identifier; rotation creates
// a new record rather than mutating an old one.
type Record struct {
	RefreshID string
	Subject   string
	ExpiresAt time.Time
}

// ErrNotFound is returned by Store.Get when no live record exists for the
// identifier.
var ErrNotFound = errors.New("refresh record not found")

// Store is the authoritative durable tier. Implementations must be safe for
// concurrent use from many request-handling goroutines.
type Store interface {
	Put(ctx context.Context, rec Record) error
	Get(ctx context.Context, refreshID string) (*Record, error)
	Delete(ctx context.Context, refreshID string) error
}
