package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wefund/wefund-api/internal/client/xaman"
)

func newTestPaymentService(gateway *mockGateway) *PaymentService {
	return NewPaymentService(gateway, PaymentConfig{
		BaseURL:               "https://wefund.example.com",
		PlatformWalletAddress: testPlatformAddress,
		WaitInitial:           time.Millisecond,
		WaitMax:               10 * time.Millisecond,
		WaitTimeout:           100 * time.Millisecond,
	})
}

func TestCreateDonationPayment_Success(t *testing.T) {
	gateway := new(mockGateway)
	svc := newTestPaymentService(gateway)

	gateway.On("CreatePayload", mock.Anything, mock.MatchedBy(func(req xaman.CreatePayloadRequest) bool {
		return req.TxJSON.TransactionType == "Payment" &&
			req.TxJSON.Destination == testPlatformAddress &&
			req.TxJSON.Amount == "10000000" &&
			!req.Options.Submit
	})).Return(&xaman.CreatePayloadResponse{
		UUID: "payload-uuid-1",
		Refs: xaman.PayloadRefs{QRPng: "https://gateway.example.com/qr/payload-uuid-1.png"},
		Next: xaman.PayloadNext{Always: "https://gateway.example.com/sign/payload-uuid-1"},
	}, nil)

	result, err := svc.CreateDonationPayment(context.Background(), PaymentRequest{
		CampaignID: "campaign-1",
		Amount:     10,
	})

	require.NoError(t, err)
	assert.Equal(t, "payload-uuid-1", result.PayloadID)
	assert.False(t, result.IsFallback)
	assert.True(t, strings.HasPrefix(result.DonationID, "donation-campaign-1-"))
	gateway.AssertExpectations(t)
}

func TestCreateDonationPayment_DropsTruncation(t *testing.T) {
	tests := []struct {
		name   string
		amount float64
		drops  string
	}{
		{name: "whole amount", amount: 10, drops: "10000000"},
		{name: "six decimal places", amount: 0.000001, drops: "1"},
		{name: "sub-drop precision truncates", amount: 1.0000019, drops: "1000001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway := new(mockGateway)
			svc := newTestPaymentService(gateway)

			gateway.On("CreatePayload", mock.Anything, mock.MatchedBy(func(req xaman.CreatePayloadRequest) bool {
				return req.TxJSON.Amount == tt.drops
			})).Return(&xaman.CreatePayloadResponse{
				UUID: "payload-uuid-1",
				Refs: xaman.PayloadRefs{QRPng: "https://gateway.example.com/qr.png"},
			}, nil)

			_, err := svc.CreateDonationPayment(context.Background(), PaymentRequest{
				CampaignID: "campaign-1",
				Amount:     tt.amount,
			})

			require.NoError(t, err)
			gateway.AssertExpectations(t)
		})
	}
}

func TestCreateDonationPayment_RateLimited(t *testing.T) {
	gateway := new(mockGateway)
	svc := newTestPaymentService(gateway)

	gateway.On("CreatePayload", mock.Anything, mock.Anything).
		Return(nil, &xaman.ErrRateLimited{RetryAfter: 300})

	_, err := svc.CreateDonationPayment(context.Background(), PaymentRequest{
		CampaignID: "campaign-1",
		Amount:     10,
	})

	// Rate limiting must surface, never degrade to the fallback QR
	var rateLimitErr *xaman.ErrRateLimited
	require.ErrorAs(t, err, &rateLimitErr)
	assert.Equal(t, 300, rateLimitErr.RetryAfter)
}

func TestCreateDonationPayment_GatewayDownFallsBack(t *testing.T) {
	gateway := new(mockGateway)
	svc := newTestPaymentService(gateway)

	gateway.On("CreatePayload", mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused"))

	result, err := svc.CreateDonationPayment(context.Background(), PaymentRequest{
		CampaignID: "campaign-1",
		Amount:     10,
	})

	require.NoError(t, err)
	assert.True(t, result.IsFallback)
	assert.True(t, strings.HasPrefix(result.QRUrl, "data:image/png;base64,"))
	assert.Contains(t, result.PayloadURL, testPlatformAddress)
	assert.True(t, strings.HasPrefix(result.PayloadID, "fallback-"))
}

func TestCreateDonationPayment_Validation(t *testing.T) {
	svc := newTestPaymentService(new(mockGateway))

	tests := []struct {
		name string
		req  PaymentRequest
	}{
		{name: "zero amount", req: PaymentRequest{CampaignID: "campaign-1"}},
		{name: "negative amount", req: PaymentRequest{CampaignID: "campaign-1", Amount: -1}},
		{name: "missing campaign", req: PaymentRequest{Amount: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateDonationPayment(context.Background(), tt.req)
			var validationErr *ValidationError
			assert.ErrorAs(t, err, &validationErr)
		})
	}
}

func TestCheckPayment(t *testing.T) {
	gateway := new(mockGateway)
	svc := newTestPaymentService(gateway)

	status := &xaman.PayloadStatus{}
	status.Meta.Signed = true
	gateway.On("GetPayload", mock.Anything, "payload-uuid-1").Return(status, nil)

	got, err := svc.CheckPayment(context.Background(), "payload-uuid-1")

	require.NoError(t, err)
	assert.Equal(t, xaman.OutcomeSigned, got.Outcome())

	_, err = svc.CheckPayment(context.Background(), "")
	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestWaitForPayment_PassesWaitBudget(t *testing.T) {
	gateway := new(mockGateway)
	svc := newTestPaymentService(gateway)

	status := &xaman.PayloadStatus{}
	status.Meta.Cancelled = true
	gateway.On("WaitForResolution", mock.Anything, "payload-uuid-1",
		time.Millisecond, 10*time.Millisecond, 100*time.Millisecond).Return(status, nil)

	got, err := svc.WaitForPayment(context.Background(), "payload-uuid-1")

	require.NoError(t, err)
	assert.Equal(t, xaman.OutcomeCancelled, got.Outcome())
	gateway.AssertExpectations(t)
}

func TestFallbackQR(t *testing.T) {
	svc := newTestPaymentService(new(mockGateway))

	result, err := svc.FallbackQR("campaign-1", 2.5)

	require.NoError(t, err)
	assert.True(t, result.IsFallback)
	assert.True(t, strings.HasPrefix(result.QRUrl, "data:image/png;base64,"))
	assert.Contains(t, result.PayloadURL, "xrpl.org/send")

	_, err = svc.FallbackQR("campaign-1", 0)
	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}
