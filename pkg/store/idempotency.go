package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// lookupIdempotencyKey checks whether key has already been used for
// tenantID within the retention window. Returns found=true with the prior
// result if so.
func (s *Store) lookupIdempotencyKey(ctx context.Context, tenantID, key string) (id string, version int64, found bool, err error) {
	query := fmt.Sprintf(
		"SELECT breadcrumb_id, version FROM idempotency_keys WHERE tenant_id = %s AND idem_key = %s AND created_at >= %s",
		s.placeholder(1), s.placeholder(2), s.placeholder(3),
	)
	cutoff := time.Now().Add(-s.idemWindow)
	row := s.db.QueryRowContext(ctx, query, tenantID, key, cutoff)
	if err := row.Scan(&id, &version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", 0, false, nil
		}
		return "", 0, false, fmt.Errorf("store: lookup idempotency key: %w", err)
	}
	return id, version, true, nil
}

// recordIdempotencyKey stores key's result within tx, part of the same
// transaction as the mutation it guards.
func (s *Store) recordIdempotencyKey(ctx context.Context, tx *sql.Tx, tenantID, key, breadcrumbID string, version int64, now time.Time) error {
	query := fmt.Sprintf(
		"INSERT INTO idempotency_keys (tenant_id, idem_key, breadcrumb_id, version, created_at) VALUES (%s, %s, %s, %s, %s)",
		s.placeholder(1), s.placeholder(2), s.placeholder(3), s.placeholder(4), s.placeholder(5),
	)
	_, err := tx.ExecContext(ctx, query, tenantID, key, breadcrumbID, version, now)
	return err
}
