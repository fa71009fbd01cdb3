package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Idempotency key lifecycle
const (
	IdempotencyInProgress = "in_progress"
	IdempotencyCompleted  = "completed"
)

// Donation lifecycle
const (
	DonationStatusSettled = "settled"
	DonationStatusFailed  = "failed"
)

// Forward leg lifecycle, tracked on the donation and on the pending_forwards queue
const (
	ForwardStatusNone         = "none"
	ForwardStatusPending      = "pending"
	ForwardStatusSucceeded    = "succeeded"
	ForwardStatusFailed       = "failed"
	ForwardStatusNeedsFunding = "needs_funding"
)

// IdempotencyKey is a durable record of a processed (or in-flight) settlement,
// keyed by the signed blob prefix. Completed rows carry the response to replay.
type IdempotencyKey struct {
	Key            string
	RequestHash    string
	Status         string
	ResponseStatus pgtype.Int4
	ResponseBody   json.RawMessage
	CreatedAt      time.Time
	CompletedAt    pgtype.Timestamptz
}

// Donation is the durable record of a settled donation
type Donation struct {
	ID            uuid.UUID
	CampaignID    string
	PayloadID     pgtype.Text
	TxKey         string
	TxHash        pgtype.Text
	AmountDrops   int64
	DonorAccount  pgtype.Text
	Status        string
	ForwardStatus string
	ForwardTxHash pgtype.Text
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PendingForward is a queued forward leg awaiting retry by the reconciler
type PendingForward struct {
	ID           uuid.UUID
	DonationID   pgtype.UUID
	TxKey        string
	AmountDrops  int64
	Destination  string
	Status       string
	AttemptCount int32
	MaxAttempts  int32
	LastError    pgtype.Text
	NextRetryAt  time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
