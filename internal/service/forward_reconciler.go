package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wefund/wefund-api/internal/db"
	"github.com/wefund/wefund-api/internal/logger"
)

const (
	reconcilerBatchSize = 50
	retryBaseDelay      = time.Minute
	retryMaxDelay       = time.Hour
)

// ReconcilerStore is the slice of the database layer the reconciler needs
type ReconcilerStore interface {
	ClaimDueForwards(ctx context.Context, limit int32, claimFor time.Duration) ([]db.PendingForward, error)
	ListPendingForwards(ctx context.Context, limit int32) ([]db.PendingForward, error)
	MarkForwardSucceeded(ctx context.Context, id uuid.UUID) error
	RecordForwardAttempt(ctx context.Context, id uuid.UUID, attemptErr string, nextRetryAt time.Time) error
	RequeueForward(ctx context.Context, id uuid.UUID) (*db.PendingForward, error)
	UpdateDonationForward(ctx context.Context, txKey, forwardStatus, forwardTxHash string) error
}

// ReconcilerConfig controls the background forward reconciler
type ReconcilerConfig struct {
	Workers  int
	Interval time.Duration
}

// ForwardReconciler drains the pending forward queue in the background.
// Forwards that failed or were skipped at settlement time are retried here
// until they succeed or exhaust their attempts.
type ForwardReconciler struct {
	store    ReconcilerStore
	forwards *ForwardService
	config   ReconcilerConfig

	tasks  chan db.PendingForward
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewForwardReconciler creates a new ForwardReconciler
func NewForwardReconciler(store ReconcilerStore, forwards *ForwardService, config ReconcilerConfig) *ForwardReconciler {
	if config.Workers <= 0 {
		config.Workers = 2
	}
	if config.Interval <= 0 {
		config.Interval = 30 * time.Second
	}
	return &ForwardReconciler{
		store:    store,
		forwards: forwards,
		config:   config,
		tasks:    make(chan db.PendingForward, reconcilerBatchSize),
	}
}

// Start launches the scan loop and worker pool
func (r *ForwardReconciler) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)

	for i := 0; i < r.config.Workers; i++ {
		r.wg.Add(1)
		go r.worker(ctx, i)
	}

	r.wg.Add(1)
	go r.scanLoop(ctx)

	logger.Info("forward reconciler started",
		zap.Int("workers", r.config.Workers),
		zap.Duration("interval", r.config.Interval))
}

// Stop cancels the reconciler and waits for in-flight work to finish
func (r *ForwardReconciler) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	logger.Info("forward reconciler stopped")
}

// scanLoop is the sole sender on the task channel and closes it on shutdown
func (r *ForwardReconciler) scanLoop(ctx context.Context) {
	defer r.wg.Done()
	defer close(r.tasks)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.enqueueDue(ctx)
		}
	}
}

func (r *ForwardReconciler) enqueueDue(ctx context.Context) {
	// Claim for two scan intervals so a slow batch is not re-claimed mid-flight
	forwards, err := r.store.ClaimDueForwards(ctx, reconcilerBatchSize, 2*r.config.Interval)
	if err != nil {
		logger.Error("failed to claim due forwards", zap.Error(err))
		return
	}
	if len(forwards) == 0 {
		return
	}

	logger.Info("claimed pending forwards", zap.Int("count", len(forwards)))

	for _, f := range forwards {
		select {
		case <-ctx.Done():
			return
		case r.tasks <- f:
		}
	}
}

func (r *ForwardReconciler) worker(ctx context.Context, id int) {
	defer r.wg.Done()

	for forward := range r.tasks {
		if ctx.Err() != nil {
			return
		}
		if err := r.process(ctx, forward); err != nil {
			logger.Error("forward reconciliation attempt failed",
				zap.Int("worker", id),
				zap.String("forward_id", forward.ID.String()),
				zap.Error(err))
		}
	}
}

// process attempts one forward. A failed attempt is rescheduled with
// exponential delay until max_attempts is reached.
func (r *ForwardReconciler) process(ctx context.Context, forward db.PendingForward) error {
	canAfford, balance, err := r.forwards.CanAfford(ctx, forward.AmountDrops)
	if err != nil {
		return r.recordFailure(ctx, forward, fmt.Sprintf("balance check failed: %v", err))
	}
	if !canAfford {
		return r.recordFailure(ctx, forward, fmt.Sprintf(
			"insufficient funds: balance %d drops, need %d drops",
			balance, r.forwards.RequiredDrops(forward.AmountDrops)))
	}

	result, err := r.forwards.Forward(ctx, forward.AmountDrops)
	if err != nil {
		return r.recordFailure(ctx, forward, err.Error())
	}

	if err := r.store.MarkForwardSucceeded(ctx, forward.ID); err != nil {
		return err
	}
	if err := r.store.UpdateDonationForward(ctx, forward.TxKey, db.ForwardStatusSucceeded, result.TxJSON.Hash); err != nil {
		logger.Error("failed to update donation forward status",
			zap.String("tx_key", forward.TxKey),
			zap.Error(err))
	}

	logger.Info("pending forward completed",
		zap.String("forward_id", forward.ID.String()),
		zap.String("tx_hash", result.TxJSON.Hash),
		zap.Int64("amount_drops", forward.AmountDrops))

	return nil
}

func (r *ForwardReconciler) recordFailure(ctx context.Context, forward db.PendingForward, reason string) error {
	nextRetry := time.Now().Add(retryDelay(forward.AttemptCount + 1))
	if err := r.store.RecordForwardAttempt(ctx, forward.ID, reason, nextRetry); err != nil {
		return err
	}

	if forward.AttemptCount+1 >= forward.MaxAttempts {
		logger.Error("pending forward exhausted all attempts",
			zap.String("forward_id", forward.ID.String()),
			zap.Int32("attempts", forward.AttemptCount+1),
			zap.String("last_error", reason))
		if err := r.store.UpdateDonationForward(ctx, forward.TxKey, db.ForwardStatusFailed, ""); err != nil {
			logger.Error("failed to update donation forward status",
				zap.String("tx_key", forward.TxKey),
				zap.Error(err))
		}
	} else {
		logger.Warn("pending forward attempt failed, rescheduled",
			zap.String("forward_id", forward.ID.String()),
			zap.Int32("attempt", forward.AttemptCount+1),
			zap.Time("next_retry_at", nextRetry),
			zap.String("reason", reason))
	}

	return nil
}

// retryDelay grows exponentially with the attempt number, capped at an hour
func retryDelay(attempt int32) time.Duration {
	delay := retryBaseDelay
	for i := int32(1); i < attempt; i++ {
		delay *= 2
		if delay >= retryMaxDelay {
			return retryMaxDelay
		}
	}
	return delay
}

// ListPending returns queued forwards for the operator view
func (r *ForwardReconciler) ListPending(ctx context.Context, limit int32) ([]db.PendingForward, error) {
	if limit <= 0 {
		limit = reconcilerBatchSize
	}
	return r.store.ListPendingForwards(ctx, limit)
}

// Retry requeues a forward and attempts it immediately
func (r *ForwardReconciler) Retry(ctx context.Context, id uuid.UUID) (*db.PendingForward, error) {
	forward, err := r.store.RequeueForward(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.process(ctx, *forward); err != nil {
		return forward, err
	}
	return forward, nil
}
