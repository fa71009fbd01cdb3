package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/wefund/wefund-api/internal/client/xaman"
	"github.com/wefund/wefund-api/internal/client/xrpl"
	"github.com/wefund/wefund-api/internal/logger"
)

// GatewayClient is the slice of the signing gateway client the payment
// service needs, kept local so tests can substitute it.
type GatewayClient interface {
	CreatePayload(ctx context.Context, req xaman.CreatePayloadRequest) (*xaman.CreatePayloadResponse, error)
	GetPayload(ctx context.Context, payloadID string) (*xaman.PayloadStatus, error)
	WaitForResolution(ctx context.Context, payloadID string, initial, maxInterval, maxElapsed time.Duration) (*xaman.PayloadStatus, error)
	Ping(ctx context.Context) (*xaman.PingResponse, error)
}

// PaymentConfig holds the initiator's settings
type PaymentConfig struct {
	BaseURL               string
	PlatformWalletAddress string

	WaitInitial time.Duration
	WaitMax     time.Duration
	WaitTimeout time.Duration
}

// PaymentRequest is a donor's intent to pay
type PaymentRequest struct {
	CampaignID  string  `json:"campaignId"`
	Destination string  `json:"destination"`
	Amount      float64 `json:"amount"`
	Memo        string  `json:"memo"`
}

// PaymentResult is what the donor needs to sign, or the untracked fallback
type PaymentResult struct {
	PayloadID  string `json:"payloadId"`
	DonationID string `json:"donationId"`
	QRUrl      string `json:"qrUrl"`
	PayloadURL string `json:"payloadUrl"`
	IsFallback bool   `json:"isFallback,omitempty"`
}

// PaymentService builds signing requests at the gateway and degrades to a
// plain payment URL plus a locally rendered QR when the gateway is down.
type PaymentService struct {
	gateway GatewayClient
	config  PaymentConfig
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(gateway GatewayClient, config PaymentConfig) *PaymentService {
	return &PaymentService{gateway: gateway, config: config}
}

// CreateDonationPayment validates the request and registers a signable-only
// payload at the gateway. Rate limiting propagates as *xaman.ErrRateLimited;
// any other gateway failure falls back to an untracked manual-payment QR.
func (s *PaymentService) CreateDonationPayment(ctx context.Context, req PaymentRequest) (*PaymentResult, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	destination := req.Destination
	if destination == "" {
		destination = s.config.PlatformWalletAddress
	}

	instruction := "Thank you for your donation!"
	if req.Memo != "" {
		instruction = req.Memo
	}

	payload := xaman.CreatePayloadRequest{
		TxJSON: xaman.PaymentTransaction{
			TransactionType: "Payment",
			Destination:     destination,
			Amount:          xrpl.XRPToDrops(req.Amount),
		},
		Options: xaman.PayloadOptions{
			// The gateway hands the signed blob back for server-side settlement
			Submit: false,
			ReturnURL: &xaman.ReturnURL{
				Web: s.config.BaseURL + "/donate/success?id={id}&txid={txid}",
			},
		},
		CustomMeta: xaman.CustomMeta{
			Instruction: instruction,
			Blob: map[string]interface{}{
				"purpose":     "crowdfunding_donation",
				"platform":    "wefund",
				"campaign_id": req.CampaignID,
			},
		},
	}

	created, err := s.gateway.CreatePayload(ctx, payload)
	if err != nil {
		if rle, ok := err.(*xaman.ErrRateLimited); ok {
			return nil, rle
		}
		logger.Warn("gateway payload creation failed, using fallback QR",
			zap.String("campaign_id", req.CampaignID),
			zap.Error(err))
		return s.FallbackQR(req.CampaignID, req.Amount)
	}

	return &PaymentResult{
		PayloadID:  created.UUID,
		DonationID: donationID(req.CampaignID),
		QRUrl:      created.Refs.QRPng,
		PayloadURL: created.Next.Always,
	}, nil
}

// CheckPayment does a single status check against the gateway
func (s *PaymentService) CheckPayment(ctx context.Context, payloadID string) (*xaman.PayloadStatus, error) {
	if payloadID == "" {
		return nil, &ValidationError{Message: "missing payload id"}
	}
	return s.gateway.GetPayload(ctx, payloadID)
}

// WaitForPayment polls the gateway until the payload resolves or the
// configured wait budget runs out.
func (s *PaymentService) WaitForPayment(ctx context.Context, payloadID string) (*xaman.PayloadStatus, error) {
	if payloadID == "" {
		return nil, &ValidationError{Message: "missing payload id"}
	}
	return s.gateway.WaitForResolution(ctx, payloadID,
		s.config.WaitInitial, s.config.WaitMax, s.config.WaitTimeout)
}

// PingGateway verifies gateway connectivity and credentials
func (s *PaymentService) PingGateway(ctx context.Context) (*xaman.PingResponse, error) {
	return s.gateway.Ping(ctx)
}

// FallbackQR builds a plain wallet-to-wallet payment URL and renders the QR
// locally. There is no gateway tracking; the donor completes the transfer out
// of band.
func (s *PaymentService) FallbackQR(campaignID string, amount float64) (*PaymentResult, error) {
	if amount <= 0 {
		return nil, &ValidationError{Message: "amount must be a positive number"}
	}

	paymentURL := fmt.Sprintf("https://xrpl.org/send?to=%s&amount=%s&dt=%s",
		s.config.PlatformWalletAddress,
		url.QueryEscape(fmt.Sprintf("%g", amount)),
		url.QueryEscape(campaignID))

	qr, err := qrcode.New(paymentURL, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to create QR code: %w", err)
	}

	pngBytes, err := qr.PNG(256)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PNG: %w", err)
	}

	return &PaymentResult{
		PayloadID:  "fallback-" + uuid.NewString(),
		DonationID: "fallback-" + donationID(campaignID),
		QRUrl:      "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes),
		PayloadURL: paymentURL,
		IsFallback: true,
	}, nil
}

func (s *PaymentService) validate(req PaymentRequest) error {
	if req.Amount <= 0 {
		return &ValidationError{Message: "amount must be a positive number"}
	}
	if req.CampaignID == "" {
		return &ValidationError{Message: "missing campaign id"}
	}
	if req.Destination == "" && s.config.PlatformWalletAddress == "" {
		return &ValidationError{Message: "missing destination wallet"}
	}
	return nil
}

func donationID(campaignID string) string {
	return fmt.Sprintf("donation-%s-%s", campaignID, uuid.NewString())
}
