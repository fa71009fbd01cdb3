package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/wefund/wefund-api/internal/client/xrpl"
	"github.com/wefund/wefund-api/internal/db"
	"github.com/wefund/wefund-api/internal/logger"
)

// dedupKeyLength is the signed blob prefix used as the settlement identity
const dedupKeyLength = 64

// SettlementStore is the slice of the database layer the settlement service
// needs, kept local so tests can substitute it.
type SettlementStore interface {
	GetIdempotencyKey(ctx context.Context, key string) (*db.IdempotencyKey, error)
	ReserveIdempotencyKey(ctx context.Context, key, requestHash string) (bool, error)
	CompleteIdempotencyKey(ctx context.Context, key string, responseStatus int, responseBody json.RawMessage) error
	ReleaseIdempotencyKey(ctx context.Context, key string) error
	CreateDonation(ctx context.Context, params db.CreateDonationParams) (*db.Donation, error)
	UpdateDonationForward(ctx context.Context, txKey, forwardStatus, forwardTxHash string) error
	GetDonationByReference(ctx context.Context, reference string) (*db.Donation, error)
	CreatePendingForward(ctx context.Context, params db.CreatePendingForwardParams) (*db.PendingForward, error)
}

// SettleParams carries a signed donation into settlement
type SettleParams struct {
	TxBlob       string
	Amount       float64
	CampaignID   string
	PayloadID    string
	DonorAccount string
}

// WalletInfo reports the wallets involved in a settlement
type WalletInfo struct {
	WebsiteWallet string `json:"websiteWallet"`
	CharityWallet string `json:"charityWallet"`
	NeedsFunding  bool   `json:"needsFunding,omitempty"`
}

// SettlementResult is the terminal outcome of a settlement. Partial success
// (donation settled, forward failed or skipped) is a valid terminal state:
// the donor's payment is never reversed.
type SettlementResult struct {
	Success          bool               `json:"success"`
	AlreadyProcessed bool               `json:"alreadyProcessed,omitempty"`
	DonationTx       *xrpl.SubmitResult `json:"donationTx"`
	ForwardTx        *xrpl.SubmitResult `json:"forwardTx"`
	ForwardError     string             `json:"forwardError,omitempty"`
	WebsiteBalance   []xrpl.Balance     `json:"websiteBalance"`
	CharityBalance   []xrpl.Balance     `json:"charityBalance"`
	WalletInfo       WalletInfo         `json:"walletInfo"`
}

// SettlementConfig holds settlement knobs beyond the wallet economics
type SettlementConfig struct {
	ForwardMaxAttempts int32
}

// SettlementService submits signed donation blobs to the ledger and forwards
// settled funds to the recipient wallet, guarded by a durable idempotency
// store keyed on the blob prefix.
type SettlementService struct {
	ledger   LedgerClient
	store    SettlementStore
	forwards *ForwardService
	wallets  WalletConfig
	config   SettlementConfig

	// Process-local fast path over the durable store
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewSettlementService creates a new SettlementService
func NewSettlementService(ledger LedgerClient, store SettlementStore, forwards *ForwardService, wallets WalletConfig, config SettlementConfig) *SettlementService {
	return &SettlementService{
		ledger:   ledger,
		store:    store,
		forwards: forwards,
		wallets:  wallets,
		config:   config,
		seen:     make(map[string]struct{}),
	}
}

// DedupKey derives the settlement identity from a signed blob
func DedupKey(txBlob string) string {
	if len(txBlob) <= dedupKeyLength {
		return txBlob
	}
	return txBlob[:dedupKeyLength]
}

// requestHash fingerprints the full settlement request so a key reused with a
// different amount or campaign is rejected instead of replayed.
func requestHash(params SettleParams) string {
	h := sha256.New()
	h.Write([]byte(params.TxBlob))
	h.Write([]byte(strconv.FormatFloat(params.Amount, 'f', -1, 64)))
	h.Write([]byte(params.CampaignID))
	return hex.EncodeToString(h.Sum(nil))
}

// Settle runs the two-step settlement: submit the donor's signed transaction,
// then attempt the forward from the platform wallet to the recipient. A
// duplicate blob returns the stored outcome without a second ledger submit.
func (s *SettlementService) Settle(ctx context.Context, params SettleParams) (*SettlementResult, error) {
	if params.TxBlob == "" {
		return nil, &ValidationError{Message: "missing signed transaction blob"}
	}
	if params.Amount <= 0 {
		return nil, &ValidationError{Message: "invalid donation amount"}
	}

	key := DedupKey(params.TxBlob)
	hash := requestHash(params)

	// Fast path: a blob this process already settled skips the reservation
	if s.Seen(key) {
		return s.replay(ctx, key, hash)
	}

	reserved, err := s.store.ReserveIdempotencyKey(ctx, key, hash)
	if err != nil {
		return nil, err
	}
	if !reserved {
		return s.replay(ctx, key, hash)
	}

	// Mark locally before submitting to close the in-process race window
	s.markSeen(key)

	result, err := s.settle(ctx, params, key)
	if err != nil {
		// A failed submission must stay retryable: drop the reservation
		s.forget(key)
		if relErr := s.store.ReleaseIdempotencyKey(ctx, key); relErr != nil {
			logger.Error("failed to release idempotency key",
				zap.String("tx_key", key),
				zap.Error(relErr))
		}
		return nil, err
	}

	body, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal settlement result: %w", err)
	}
	if err := s.store.CompleteIdempotencyKey(ctx, key, http.StatusOK, body); err != nil {
		logger.Error("failed to finalize idempotency key",
			zap.String("tx_key", key),
			zap.Error(err))
	}

	return result, nil
}

// replay resolves a duplicate submission from the durable store
func (s *SettlementService) replay(ctx context.Context, key, hash string) (*SettlementResult, error) {
	rec, err := s.store.GetIdempotencyKey(ctx, key)
	if err != nil {
		return nil, err
	}

	if rec.Status != db.IdempotencyCompleted {
		return nil, ErrSettlementInProgress
	}
	if rec.RequestHash != hash {
		return nil, ErrKeyReuseMismatch
	}

	var result SettlementResult
	if err := json.Unmarshal(rec.ResponseBody, &result); err != nil {
		return nil, fmt.Errorf("failed to decode stored settlement result: %w", err)
	}
	result.AlreadyProcessed = true

	// Refresh the platform balance; the stored one is stale by definition
	if balance, err := s.ledger.GetBalances(ctx, s.wallets.PlatformAddress); err == nil {
		result.WebsiteBalance = balance
	}

	logger.Info("transaction already processed, returning stored result",
		zap.String("tx_key", key))

	return &result, nil
}

// settle performs the donation leg and then the forward leg
func (s *SettlementService) settle(ctx context.Context, params SettleParams, key string) (*SettlementResult, error) {
	donationTx, err := s.ledger.Submit(ctx, params.TxBlob)
	if err != nil {
		return nil, fmt.Errorf("failed to process donation: %w", err)
	}

	websiteBalance, err := s.ledger.GetBalances(ctx, s.wallets.PlatformAddress)
	if err != nil {
		logger.Warn("failed to confirm platform balance after donation",
			zap.String("tx_key", key),
			zap.Error(err))
	}

	result := &SettlementResult{
		Success:        true,
		DonationTx:     donationTx,
		WebsiteBalance: websiteBalance,
		WalletInfo: WalletInfo{
			WebsiteWallet: s.wallets.PlatformAddress,
			CharityWallet: s.wallets.CharityAddress,
		},
	}

	amountDrops, _ := strconv.ParseInt(xrpl.XRPToDrops(params.Amount), 10, 64)
	forwardStatus := s.forward(ctx, amountDrops, key, result)

	donation, err := s.store.CreateDonation(ctx, db.CreateDonationParams{
		CampaignID:    params.CampaignID,
		PayloadID:     params.PayloadID,
		TxKey:         key,
		TxHash:        donationTx.TxJSON.Hash,
		AmountDrops:   amountDrops,
		DonorAccount:  params.DonorAccount,
		Status:        db.DonationStatusSettled,
		ForwardStatus: forwardStatus,
		ForwardTxHash: forwardTxHash(result.ForwardTx),
	})
	if err != nil {
		logger.Error("failed to record donation",
			zap.String("tx_key", key),
			zap.Error(err))
		return result, nil
	}

	// Queue the forward leg for the reconciler when it did not complete
	if forwardStatus == db.ForwardStatusPending || forwardStatus == db.ForwardStatusNeedsFunding {
		_, err := s.store.CreatePendingForward(ctx, db.CreatePendingForwardParams{
			DonationID:  donation.ID,
			TxKey:       key,
			AmountDrops: amountDrops,
			Destination: s.wallets.CharityAddress,
			MaxAttempts: s.config.ForwardMaxAttempts,
			LastError:   result.ForwardError,
		})
		if err != nil {
			logger.Error("failed to queue pending forward",
				zap.String("tx_key", key),
				zap.Error(err))
		}
	}

	return result, nil
}

// forward runs the forward leg and mutates result accordingly, returning the
// donation's forward status. Forward failure never fails the settlement.
func (s *SettlementService) forward(ctx context.Context, amountDrops int64, key string, result *SettlementResult) string {
	canAfford, _, err := s.forwards.CanAfford(ctx, amountDrops)
	if err != nil {
		result.ForwardError = err.Error()
		return db.ForwardStatusPending
	}

	if !canAfford {
		logger.Warn("platform wallet cannot afford forward transaction",
			zap.String("tx_key", key),
			zap.Int64("amount_drops", amountDrops))
		result.ForwardError = fmt.Sprintf(
			"Platform wallet has insufficient funds to forward %s XRP. Please fund the platform wallet with additional XRP.",
			xrpl.DropsToXRP(amountDrops))
		result.WalletInfo.NeedsFunding = true
		return db.ForwardStatusNeedsFunding
	}

	forwardTx, err := s.forwards.Forward(ctx, amountDrops)
	if err != nil {
		logger.Error("forward transaction failed",
			zap.String("tx_key", key),
			zap.Error(err))
		result.ForwardError = err.Error()
		return db.ForwardStatusPending
	}

	result.ForwardTx = forwardTx
	if balance, err := s.ledger.GetBalances(ctx, s.wallets.CharityAddress); err == nil {
		result.CharityBalance = balance
	}
	return db.ForwardStatusSucceeded
}

// Submit posts a raw signed blob without the forward leg or dedup guard
func (s *SettlementService) Submit(ctx context.Context, txBlob string) (*xrpl.SubmitResult, error) {
	if txBlob == "" {
		return nil, &ValidationError{Message: "missing transaction blob"}
	}
	return s.ledger.Submit(ctx, txBlob)
}

// Track looks up a recorded donation by id, payload id or tx hash
func (s *SettlementService) Track(ctx context.Context, reference string) (*db.Donation, error) {
	if reference == "" {
		return nil, &ValidationError{Message: "missing reference"}
	}
	return s.store.GetDonationByReference(ctx, reference)
}

// Seen reports whether the key was settled by this process instance
func (s *SettlementService) Seen(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[key]
	return ok
}

func (s *SettlementService) markSeen(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[key] = struct{}{}
}

func (s *SettlementService) forget(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, key)
}

func forwardTxHash(result *xrpl.SubmitResult) string {
	if result == nil {
		return ""
	}
	return result.TxJSON.Hash
}
