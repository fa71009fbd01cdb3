package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wefund/wefund-api/internal/client/xaman"
	"github.com/wefund/wefund-api/internal/logger"
	"github.com/wefund/wefund-api/internal/service"
)

// PaymentHandler handles payment request creation and status endpoints
type PaymentHandler struct {
	common *CommonServices
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(common *CommonServices) *PaymentHandler {
	return &PaymentHandler{common: common}
}

// paymentStatusResponse is the polled view of a signing request
type paymentStatusResponse struct {
	Success  bool          `json:"success"`
	Status   xaman.Outcome `json:"status"`
	Resolved bool          `json:"resolved"`
	TxID     string        `json:"txid,omitempty"`
	TxBlob   string        `json:"txBlob,omitempty"`
	Account  string        `json:"account,omitempty"`
}

// CreatePayment builds a signing request at the payment gateway. When the
// gateway is unreachable the response carries a fallback QR instead, flagged
// with isFallback.
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var req service.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.common.payments.CreateDonationPayment(c.Request.Context(), req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	logger.Info("payment request created",
		zap.String("payload_id", result.PayloadID),
		zap.String("campaign_id", req.CampaignID),
		zap.Bool("is_fallback", result.IsFallback))

	sendSuccess(c, http.StatusOK, gin.H{
		"success": true,
		"payment": result,
	})
}

// GetPayment returns the current state of a signing request
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	payloadID := c.Param("payload_id")

	status, err := h.common.payments.CheckPayment(c.Request.Context(), payloadID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	sendSuccess(c, http.StatusOK, toStatusResponse(status))
}

// WaitForPayment blocks until the signing request resolves or the wait
// budget runs out, whichever comes first
func (h *PaymentHandler) WaitForPayment(c *gin.Context) {
	payloadID := c.Param("payload_id")

	status, err := h.common.payments.WaitForPayment(c.Request.Context(), payloadID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	sendSuccess(c, http.StatusOK, toStatusResponse(status))
}

// fallbackQRRequest is the body for the explicit fallback endpoint
type fallbackQRRequest struct {
	CampaignID string  `json:"campaignId"`
	Amount     float64 `json:"amount"`
}

// CreateFallbackQR renders a plain payment QR without gateway tracking
func (h *PaymentHandler) CreateFallbackQR(c *gin.Context) {
	var req fallbackQRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.common.payments.FallbackQR(req.CampaignID, req.Amount)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	sendSuccess(c, http.StatusOK, gin.H{
		"success": true,
		"payment": result,
	})
}

// PingGateway verifies gateway connectivity and credentials
func (h *PaymentHandler) PingGateway(c *gin.Context) {
	pong, err := h.common.payments.PingGateway(c.Request.Context())
	if err != nil {
		sendError(c, http.StatusBadGateway, "Payment gateway is unreachable", err)
		return
	}

	sendSuccess(c, http.StatusOK, gin.H{
		"success":     true,
		"pong":        pong.Pong,
		"application": pong.Auth.Application.Name,
	})
}

func toStatusResponse(status *xaman.PayloadStatus) paymentStatusResponse {
	return paymentStatusResponse{
		Success:  true,
		Status:   status.Outcome(),
		Resolved: status.Terminal(),
		TxID:     status.Response.TxID,
		TxBlob:   status.Response.Hex,
		Account:  status.Response.Account,
	}
}
