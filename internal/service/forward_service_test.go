package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wefund/wefund-api/internal/client/xrpl"
)

func TestRequiredDrops(t *testing.T) {
	svc := NewForwardService(new(mockLedger), testWallets)

	// amount + 12 drop fee + 10 XRP reserve
	assert.Equal(t, int64(20_000_012), svc.RequiredDrops(10_000_000))
	assert.Equal(t, int64(10_000_013), svc.RequiredDrops(1))
}

func TestCanAfford(t *testing.T) {
	amount := int64(10_000_000)
	required := amount + testWallets.ForwardFeeDrops + testWallets.ReserveDrops

	tests := []struct {
		name    string
		balance int64
		want    bool
	}{
		{name: "exactly enough", balance: required, want: true},
		{name: "one drop short", balance: required - 1, want: false},
		{name: "well funded", balance: required * 2, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := new(mockLedger)
			svc := NewForwardService(ledger, testWallets)

			ledger.On("GetBalanceDrops", mock.Anything, testPlatformAddress).Return(tt.balance, nil)

			got, balance, err := svc.CanAfford(context.Background(), amount)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.balance, balance)
		})
	}
}

func TestCanAfford_LedgerError(t *testing.T) {
	ledger := new(mockLedger)
	svc := NewForwardService(ledger, testWallets)

	ledger.On("GetBalanceDrops", mock.Anything, testPlatformAddress).
		Return(int64(0), errors.New("account not found"))

	_, _, err := svc.CanAfford(context.Background(), 1_000_000)

	assert.Error(t, err)
}

func TestForward(t *testing.T) {
	ledger := new(mockLedger)
	svc := NewForwardService(ledger, testWallets)

	ledger.On("AccountInfo", mock.Anything, testPlatformAddress).
		Return(&xrpl.AccountData{Account: testPlatformAddress, Balance: "100000000", Sequence: 42}, nil)
	ledger.On("ValidatedLedgerIndex", mock.Anything).Return(int64(7000), nil)
	ledger.On("Sign", mock.Anything, mock.MatchedBy(func(tx xrpl.PaymentTx) bool {
		return tx.TransactionType == "Payment" &&
			tx.Account == testPlatformAddress &&
			tx.Destination == testCharityAddress &&
			tx.Amount == "5000000" &&
			tx.Fee == "12" &&
			tx.Sequence == 42 &&
			tx.LastLedgerSequence == 7010
	}), testSeed).Return("SIGNEDBLOB", nil)
	ledger.On("Submit", mock.Anything, "SIGNEDBLOB").Return(submitResult("FORWARDHASH"), nil)

	result, err := svc.Forward(context.Background(), 5_000_000)

	require.NoError(t, err)
	assert.Equal(t, "FORWARDHASH", result.TxJSON.Hash)
	ledger.AssertExpectations(t)
}

func TestForward_EngineFailure(t *testing.T) {
	ledger := new(mockLedger)
	svc := NewForwardService(ledger, testWallets)

	ledger.On("AccountInfo", mock.Anything, testPlatformAddress).
		Return(&xrpl.AccountData{Account: testPlatformAddress, Balance: "100000000", Sequence: 42}, nil)
	ledger.On("ValidatedLedgerIndex", mock.Anything).Return(int64(7000), nil)
	ledger.On("Sign", mock.Anything, mock.Anything, testSeed).Return("SIGNEDBLOB", nil)
	ledger.On("Submit", mock.Anything, "SIGNEDBLOB").
		Return(nil, &xrpl.EngineError{Result: &xrpl.SubmitResult{EngineResult: "tecUNFUNDED_PAYMENT"}})

	_, err := svc.Forward(context.Background(), 5_000_000)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "tecUNFUNDED_PAYMENT")
}
