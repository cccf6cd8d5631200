package refreshstate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	qPut = `
INSERT INTO refresh_tokens (refresh_id, subject_id, expires_at)
VALUES ($1, $2, $3)
ON CONFLICT (refresh_id)
DO UPDATE SET subject_id = EXCLUDED.subject_id, expires_at = EXCLUDED.expires_at;
`
	qGet = `
SELECT refresh_id, subject_id, expires_at
FROM refresh_tokens
WHERE refresh_id = $1 AND expires_at > NOW()
LIMIT 1;
`
	qDelete = `
DELETE FROM refresh_tokens WHERE refresh_id = $1;
`
)

// PostgresStore is the production durable tier backed by a pgx pool.
type PostgresStore struct {
	pool         *pgxpool.Pool
	queryTimeout time.Duration
}

// NewPostgresStore binds a store to pool. queryTimeout caps every query;
// zero disables the cap.
func NewPostgresStore(pool *pgxpool.Pool, queryTimeout time.Duration) *PostgresStore {
	return &PostgresStore{pool: pool, queryTimeout: queryTimeout}
}

func (s *PostgresStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

// Put upserts the record keyed by its refresh identifier.
func (s *PostgresStore) Put(ctx context.Context, rec Record) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.pool.Exec(ctx, qPut, rec.RefreshID, rec.Subject, rec.ExpiresAt); err != nil {
		return fmt.Errorf("put refresh record: %w", err)
	}
	return nil
}

// Get fetches the live record for refreshID. Expired rows are treated as
// absent; cleanup of dead rows is left to the schema's retention job.
func (s *PostgresStore) Get(ctx context.Context, refreshID string) (*Record, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rec Record
	err := s.pool.QueryRow(ctx, qGet, refreshID).
		Scan(&rec.RefreshID, &rec.Subject, &rec.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get refresh record: %w", err)
	}
	return &rec, nil
}

// Delete removes the record for refreshID. Deleting an absent record is not
// an error.
func (s *PostgresStore) Delete(ctx context.Context, refreshID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.pool.Exec(ctx, qDelete, refreshID); err != nil {
		return fmt.Errorf("delete refresh record: %w", err)
	}
	return nil
}
