package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/wefund/wefund-api/internal/client/xrpl"
	"github.com/wefund/wefund-api/internal/logger"
)

// LedgerClient is the slice of the ledger client the settlement services
// need, kept local so tests can substitute it.
type LedgerClient interface {
	Submit(ctx context.Context, txBlob string) (*xrpl.SubmitResult, error)
	AccountInfo(ctx context.Context, address string) (*xrpl.AccountData, error)
	GetBalanceDrops(ctx context.Context, address string) (int64, error)
	GetBalances(ctx context.Context, address string) ([]xrpl.Balance, error)
	ValidatedLedgerIndex(ctx context.Context) (int64, error)
	Sign(ctx context.Context, tx xrpl.PaymentTx, secret string) (string, error)
}

// WalletConfig describes the custodial wallets and forwarding economics
type WalletConfig struct {
	PlatformAddress string
	PlatformSeed    string
	CharityAddress  string

	ForwardFeeDrops int64
	ReserveDrops    int64
}

// ledgerSequenceBuffer is added to the current validated ledger index to give
// the forward transaction room to be included
const ledgerSequenceBuffer = 10

// ForwardService moves settled funds from the platform wallet to the final
// recipient wallet.
type ForwardService struct {
	ledger  LedgerClient
	wallets WalletConfig
}

// NewForwardService creates a new ForwardService
func NewForwardService(ledger LedgerClient, wallets WalletConfig) *ForwardService {
	return &ForwardService{ledger: ledger, wallets: wallets}
}

// RequiredDrops is the balance the platform wallet must hold to forward the
// given amount: amount + fee + base reserve.
func (s *ForwardService) RequiredDrops(amountDrops int64) int64 {
	return amountDrops + s.wallets.ForwardFeeDrops + s.wallets.ReserveDrops
}

// CanAfford checks the platform wallet balance against the forward amount.
// The check is advisory: the ledger's own engine result remains the final
// arbiter when two forwards race on one balance.
func (s *ForwardService) CanAfford(ctx context.Context, amountDrops int64) (bool, int64, error) {
	balance, err := s.ledger.GetBalanceDrops(ctx, s.wallets.PlatformAddress)
	if err != nil {
		return false, 0, fmt.Errorf("affordability check failed: %w", err)
	}

	required := s.RequiredDrops(amountDrops)
	logger.Info("wallet affordability check",
		zap.String("wallet", s.wallets.PlatformAddress),
		zap.Int64("balance_drops", balance),
		zap.Int64("required_drops", required),
		zap.Bool("can_afford", balance >= required))

	return balance >= required, balance, nil
}

// Forward builds, signs and submits the second payment from the platform
// wallet to the recipient. Returns the engine result of the submission.
func (s *ForwardService) Forward(ctx context.Context, amountDrops int64) (*xrpl.SubmitResult, error) {
	account, err := s.ledger.AccountInfo(ctx, s.wallets.PlatformAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to get platform account sequence: %w", err)
	}

	ledgerIndex, err := s.ledger.ValidatedLedgerIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current ledger index: %w", err)
	}

	tx := xrpl.PaymentTx{
		TransactionType:    "Payment",
		Account:            s.wallets.PlatformAddress,
		Amount:             strconv.FormatInt(amountDrops, 10),
		Destination:        s.wallets.CharityAddress,
		Sequence:           account.Sequence,
		LastLedgerSequence: ledgerIndex + ledgerSequenceBuffer,
		Fee:                strconv.FormatInt(s.wallets.ForwardFeeDrops, 10),
	}

	txBlob, err := s.ledger.Sign(ctx, tx, s.wallets.PlatformSeed)
	if err != nil {
		return nil, fmt.Errorf("failed to sign forward transaction: %w", err)
	}

	result, err := s.ledger.Submit(ctx, txBlob)
	if err != nil {
		return nil, fmt.Errorf("forward submission failed: %w", err)
	}

	logger.Info("funds forwarded to recipient",
		zap.String("destination", s.wallets.CharityAddress),
		zap.Int64("amount_drops", amountDrops),
		zap.String("tx_hash", result.TxJSON.Hash))

	return result, nil
}
