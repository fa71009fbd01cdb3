package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"github.com/wefund/wefund-api/internal/client/xrpl"
	"github.com/wefund/wefund-api/internal/db"
	"github.com/wefund/wefund-api/internal/logger"
	"github.com/wefund/wefund-api/internal/service"
)

// DonationHandler handles donation settlement and lookup endpoints
type DonationHandler struct {
	common *CommonServices
}

// NewDonationHandler creates a new DonationHandler
func NewDonationHandler(common *CommonServices) *DonationHandler {
	return &DonationHandler{common: common}
}

// settleRequest is a signed donation ready for settlement
type settleRequest struct {
	TxBlob       string  `json:"txBlob"`
	Amount       float64 `json:"amount"`
	CampaignID   string  `json:"campaignId"`
	PayloadID    string  `json:"payloadId"`
	DonorAccount string  `json:"donorAccount"`
}

// SettleDonation submits the donor's signed transaction and forwards the
// funds to the recipient wallet. Duplicate blobs return the stored outcome.
func (h *DonationHandler) SettleDonation(c *gin.Context) {
	var req settleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.common.settlements.Settle(c.Request.Context(), service.SettleParams{
		TxBlob:       req.TxBlob,
		Amount:       req.Amount,
		CampaignID:   req.CampaignID,
		PayloadID:    req.PayloadID,
		DonorAccount: req.DonorAccount,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	logger.Info("donation settled",
		zap.String("campaign_id", req.CampaignID),
		zap.Bool("already_processed", result.AlreadyProcessed),
		zap.Bool("needs_funding", result.WalletInfo.NeedsFunding))

	sendSuccess(c, http.StatusOK, result)
}

// submitRequest carries a raw signed blob
type submitRequest struct {
	TxBlob string `json:"txBlob"`
}

// SubmitTransaction posts a signed blob straight to the ledger without the
// forward leg
func (h *DonationHandler) SubmitTransaction(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.common.settlements.Submit(c.Request.Context(), req.TxBlob)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	sendSuccess(c, http.StatusOK, gin.H{
		"success": true,
		"result":  result,
	})
}

// donationView is the public shape of a recorded donation
type donationView struct {
	ID            string `json:"id"`
	CampaignID    string `json:"campaignId"`
	PayloadID     string `json:"payloadId,omitempty"`
	TxHash        string `json:"txHash"`
	Amount        string `json:"amount"`
	DonorAccount  string `json:"donorAccount,omitempty"`
	Status        string `json:"status"`
	ForwardStatus string `json:"forwardStatus"`
	ForwardTxHash string `json:"forwardTxHash,omitempty"`
	CreatedAt     string `json:"createdAt"`
}

// TrackDonation looks up a donation by id, payload id or transaction hash
func (h *DonationHandler) TrackDonation(c *gin.Context) {
	reference := c.Param("reference")

	donation, err := h.common.settlements.Track(c.Request.Context(), reference)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	sendSuccess(c, http.StatusOK, gin.H{
		"success":  true,
		"donation": toDonationView(donation),
	})
}

func toDonationView(d *db.Donation) donationView {
	return donationView{
		ID:            d.ID.String(),
		CampaignID:    d.CampaignID,
		PayloadID:     textOrEmpty(d.PayloadID),
		TxHash:        textOrEmpty(d.TxHash),
		Amount:        xrpl.DropsToXRP(d.AmountDrops),
		DonorAccount:  textOrEmpty(d.DonorAccount),
		Status:        d.Status,
		ForwardStatus: d.ForwardStatus,
		ForwardTxHash: textOrEmpty(d.ForwardTxHash),
		CreatedAt:     d.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

func textOrEmpty(t pgtype.Text) string {
	if !t.Valid {
		return ""
	}
	return t.String
}
