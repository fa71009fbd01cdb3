package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrForwardNotFound indicates no pending forward matched the id
var ErrForwardNotFound = errors.New("pending forward not found")

// CreatePendingForwardParams holds the fields for queueing a forward leg
type CreatePendingForwardParams struct {
	DonationID  uuid.UUID
	TxKey       string
	AmountDrops int64
	Destination string
	MaxAttempts int32
	LastError   string
}

const forwardColumns = `id, donation_id, tx_key, amount_drops, destination, status,
	attempt_count, max_attempts, last_error, next_retry_at, created_at, updated_at`

func scanForward(row pgx.Row) (*PendingForward, error) {
	var f PendingForward
	err := row.Scan(&f.ID, &f.DonationID, &f.TxKey, &f.AmountDrops, &f.Destination, &f.Status,
		&f.AttemptCount, &f.MaxAttempts, &f.LastError, &f.NextRetryAt, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrForwardNotFound
		}
		return nil, fmt.Errorf("pending forward scan failed: %w", err)
	}
	return &f, nil
}

// CreatePendingForward queues a forward leg for the reconciler
func (s *Store) CreatePendingForward(ctx context.Context, params CreatePendingForwardParams) (*PendingForward, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO pending_forwards (id, donation_id, tx_key, amount_drops, destination,
			max_attempts, last_error)
		 VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, NULLIF($6, ''))
		 RETURNING `+forwardColumns,
		params.DonationID, params.TxKey, params.AmountDrops, params.Destination,
		params.MaxAttempts, params.LastError,
	)
	return scanForward(row)
}

// ClaimDueForwards claims pending forwards whose retry time has passed and
// pushes their next_retry_at forward so concurrent pollers skip them.
func (s *Store) ClaimDueForwards(ctx context.Context, limit int32, claimFor time.Duration) ([]PendingForward, error) {
	rows, err := s.pool.Query(ctx,
		`UPDATE pending_forwards
		 SET next_retry_at = now() + make_interval(secs => $2), updated_at = now()
		 WHERE id IN (
			SELECT id FROM pending_forwards
			WHERE status = 'pending' AND next_retry_at <= now() AND attempt_count < max_attempts
			ORDER BY next_retry_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		 )
		 RETURNING `+forwardColumns,
		limit, claimFor.Seconds(),
	)
	if err != nil {
		return nil, fmt.Errorf("due forward claim failed: %w", err)
	}
	defer rows.Close()

	var forwards []PendingForward
	for rows.Next() {
		var f PendingForward
		if err := rows.Scan(&f.ID, &f.DonationID, &f.TxKey, &f.AmountDrops, &f.Destination, &f.Status,
			&f.AttemptCount, &f.MaxAttempts, &f.LastError, &f.NextRetryAt, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("pending forward scan failed: %w", err)
		}
		forwards = append(forwards, f)
	}
	return forwards, rows.Err()
}

// ListPendingForwards returns the operator view of the queue
func (s *Store) ListPendingForwards(ctx context.Context, limit int32) ([]PendingForward, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+forwardColumns+`
		 FROM pending_forwards
		 WHERE status IN ('pending', 'failed')
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("pending forward query failed: %w", err)
	}
	defer rows.Close()

	var forwards []PendingForward
	for rows.Next() {
		var f PendingForward
		if err := rows.Scan(&f.ID, &f.DonationID, &f.TxKey, &f.AmountDrops, &f.Destination, &f.Status,
			&f.AttemptCount, &f.MaxAttempts, &f.LastError, &f.NextRetryAt, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("pending forward scan failed: %w", err)
		}
		forwards = append(forwards, f)
	}
	return forwards, rows.Err()
}

// MarkForwardSucceeded finalizes a forward after a successful submission
func (s *Store) MarkForwardSucceeded(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE pending_forwards
		 SET status = $1, last_error = NULL, updated_at = now()
		 WHERE id = $2`,
		ForwardStatusSucceeded, id,
	)
	if err != nil {
		return fmt.Errorf("forward success update failed: %w", err)
	}
	return nil
}

// RecordForwardAttempt bumps the attempt counter and reschedules or exhausts
// the forward depending on remaining attempts.
func (s *Store) RecordForwardAttempt(ctx context.Context, id uuid.UUID, attemptErr string, nextRetryAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE pending_forwards
		 SET attempt_count = attempt_count + 1,
		     last_error = $1,
		     next_retry_at = $2,
		     status = CASE WHEN attempt_count + 1 >= max_attempts THEN 'failed' ELSE 'pending' END,
		     updated_at = now()
		 WHERE id = $3`,
		attemptErr, nextRetryAt, id,
	)
	if err != nil {
		return fmt.Errorf("forward attempt update failed: %w", err)
	}
	return nil
}

// RequeueForward resets a failed forward so the reconciler picks it up again
func (s *Store) RequeueForward(ctx context.Context, id uuid.UUID) (*PendingForward, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE pending_forwards
		 SET status = 'pending', attempt_count = 0, next_retry_at = now(), updated_at = now()
		 WHERE id = $1
		 RETURNING `+forwardColumns,
		id,
	)
	return scanForward(row)
}
