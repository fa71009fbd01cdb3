package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

var (
	// ErrKeyNotFound indicates no idempotency record exists for the key
	ErrKeyNotFound = errors.New("idempotency key not found")
)

// GetIdempotencyKey retrieves the durable record for a blob-prefix key
func (s *Store) GetIdempotencyKey(ctx context.Context, key string) (*IdempotencyKey, error) {
	var rec IdempotencyKey
	err := s.pool.QueryRow(ctx,
		`SELECT key, request_hash, status, response_status, response_body, created_at, completed_at
		 FROM idempotency_keys WHERE key = $1`,
		key,
	).Scan(&rec.Key, &rec.RequestHash, &rec.Status, &rec.ResponseStatus, &rec.ResponseBody,
		&rec.CreatedAt, &rec.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("idempotency query failed: %w", err)
	}
	return &rec, nil
}

// ReserveIdempotencyKey inserts an in_progress reservation for the key.
// Returns false when the key already exists; the caller then reads the
// existing record to decide between replay and conflict.
func (s *Store) ReserveIdempotencyKey(ctx context.Context, key, requestHash string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO idempotency_keys (key, request_hash, status)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO NOTHING`,
		key, requestHash, IdempotencyInProgress,
	)
	if err != nil {
		return false, fmt.Errorf("key reservation failed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// CompleteIdempotencyKey finalizes the reservation with the response to replay
// on duplicate submissions.
func (s *Store) CompleteIdempotencyKey(ctx context.Context, key string, responseStatus int, responseBody json.RawMessage) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE idempotency_keys
		 SET status = $1, response_status = $2, response_body = $3, completed_at = now()
		 WHERE key = $4`,
		IdempotencyCompleted, responseStatus, responseBody, key,
	)
	if err != nil {
		return fmt.Errorf("idempotency update failed: %w", err)
	}
	return nil
}

// ReleaseIdempotencyKey drops an in_progress reservation after a hard failure
// so the donor can retry the submission.
func (s *Store) ReleaseIdempotencyKey(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM idempotency_keys WHERE key = $1 AND status = $2`,
		key, IdempotencyInProgress,
	)
	if err != nil {
		return fmt.Errorf("idempotency release failed: %w", err)
	}
	return nil
}
