package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/wefund/wefund-api/internal/client/xaman"
	"github.com/wefund/wefund-api/internal/client/xrpl"
	"github.com/wefund/wefund-api/internal/db"
)

// mockLedger is a mock implementation of LedgerClient
type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) Submit(ctx context.Context, txBlob string) (*xrpl.SubmitResult, error) {
	args := m.Called(ctx, txBlob)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*xrpl.SubmitResult), args.Error(1)
}

func (m *mockLedger) AccountInfo(ctx context.Context, address string) (*xrpl.AccountData, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*xrpl.AccountData), args.Error(1)
}

func (m *mockLedger) GetBalanceDrops(ctx context.Context, address string) (int64, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockLedger) GetBalances(ctx context.Context, address string) ([]xrpl.Balance, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]xrpl.Balance), args.Error(1)
}

func (m *mockLedger) ValidatedLedgerIndex(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockLedger) Sign(ctx context.Context, tx xrpl.PaymentTx, secret string) (string, error) {
	args := m.Called(ctx, tx, secret)
	return args.String(0), args.Error(1)
}

// mockGateway is a mock implementation of GatewayClient
type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreatePayload(ctx context.Context, req xaman.CreatePayloadRequest) (*xaman.CreatePayloadResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*xaman.CreatePayloadResponse), args.Error(1)
}

func (m *mockGateway) GetPayload(ctx context.Context, payloadID string) (*xaman.PayloadStatus, error) {
	args := m.Called(ctx, payloadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*xaman.PayloadStatus), args.Error(1)
}

func (m *mockGateway) WaitForResolution(ctx context.Context, payloadID string, initial, maxInterval, maxElapsed time.Duration) (*xaman.PayloadStatus, error) {
	args := m.Called(ctx, payloadID, initial, maxInterval, maxElapsed)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*xaman.PayloadStatus), args.Error(1)
}

func (m *mockGateway) Ping(ctx context.Context) (*xaman.PingResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*xaman.PingResponse), args.Error(1)
}

// mockStore is a mock implementation of SettlementStore
type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetIdempotencyKey(ctx context.Context, key string) (*db.IdempotencyKey, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*db.IdempotencyKey), args.Error(1)
}

func (m *mockStore) ReserveIdempotencyKey(ctx context.Context, key, requestHash string) (bool, error) {
	args := m.Called(ctx, key, requestHash)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) CompleteIdempotencyKey(ctx context.Context, key string, responseStatus int, responseBody json.RawMessage) error {
	args := m.Called(ctx, key, responseStatus, responseBody)
	return args.Error(0)
}

func (m *mockStore) ReleaseIdempotencyKey(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *mockStore) CreateDonation(ctx context.Context, params db.CreateDonationParams) (*db.Donation, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*db.Donation), args.Error(1)
}

func (m *mockStore) UpdateDonationForward(ctx context.Context, txKey, forwardStatus, forwardTxHash string) error {
	args := m.Called(ctx, txKey, forwardStatus, forwardTxHash)
	return args.Error(0)
}

func (m *mockStore) GetDonationByReference(ctx context.Context, reference string) (*db.Donation, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*db.Donation), args.Error(1)
}

func (m *mockStore) CreatePendingForward(ctx context.Context, params db.CreatePendingForwardParams) (*db.PendingForward, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*db.PendingForward), args.Error(1)
}

// mockReconcilerStore is a mock implementation of ReconcilerStore
type mockReconcilerStore struct {
	mock.Mock
}

func (m *mockReconcilerStore) ClaimDueForwards(ctx context.Context, limit int32, claimFor time.Duration) ([]db.PendingForward, error) {
	args := m.Called(ctx, limit, claimFor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]db.PendingForward), args.Error(1)
}

func (m *mockReconcilerStore) ListPendingForwards(ctx context.Context, limit int32) ([]db.PendingForward, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]db.PendingForward), args.Error(1)
}

func (m *mockReconcilerStore) MarkForwardSucceeded(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockReconcilerStore) RecordForwardAttempt(ctx context.Context, id uuid.UUID, attemptErr string, nextRetryAt time.Time) error {
	args := m.Called(ctx, id, attemptErr, nextRetryAt)
	return args.Error(0)
}

func (m *mockReconcilerStore) RequeueForward(ctx context.Context, id uuid.UUID) (*db.PendingForward, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*db.PendingForward), args.Error(1)
}

func (m *mockReconcilerStore) UpdateDonationForward(ctx context.Context, txKey, forwardStatus, forwardTxHash string) error {
	args := m.Called(ctx, txKey, forwardStatus, forwardTxHash)
	return args.Error(0)
}
