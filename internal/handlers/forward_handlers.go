package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wefund/wefund-api/internal/client/xrpl"
	"github.com/wefund/wefund-api/internal/db"
)

// ForwardHandler exposes the pending forward queue to operators
type ForwardHandler struct {
	common *CommonServices
}

// NewForwardHandler creates a new ForwardHandler
func NewForwardHandler(common *CommonServices) *ForwardHandler {
	return &ForwardHandler{common: common}
}

// forwardView is the operator-facing shape of a queued forward
type forwardView struct {
	ID           string `json:"id"`
	DonationID   string `json:"donationId,omitempty"`
	TxKey        string `json:"txKey"`
	Amount       string `json:"amount"`
	Destination  string `json:"destination"`
	Status       string `json:"status"`
	AttemptCount int32  `json:"attemptCount"`
	MaxAttempts  int32  `json:"maxAttempts"`
	LastError    string `json:"lastError,omitempty"`
	NextRetryAt  string `json:"nextRetryAt"`
}

// ListPendingForwards returns queued and failed forwards
func (h *ForwardHandler) ListPendingForwards(c *gin.Context) {
	limit := int32(50)
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || parsed <= 0 {
			sendError(c, http.StatusBadRequest, "Invalid limit parameter", err)
			return
		}
		limit = int32(parsed)
	}

	forwards, err := h.common.reconciler.ListPending(c.Request.Context(), limit)
	if err != nil {
		handleDBError(c, err, "No pending forwards found")
		return
	}

	views := make([]forwardView, 0, len(forwards))
	for _, f := range forwards {
		views = append(views, toForwardView(f))
	}
	sendList(c, views)
}

// RetryForward requeues a forward and attempts it immediately
func (h *ForwardHandler) RetryForward(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		sendError(c, http.StatusBadRequest, "Invalid forward ID", err)
		return
	}

	forward, err := h.common.reconciler.Retry(c.Request.Context(), id)
	if err != nil {
		if forward != nil {
			// Requeued but the immediate attempt failed; the reconciler owns it now
			c.JSON(http.StatusAccepted, gin.H{
				"success": false,
				"error":   err.Error(),
				"forward": toForwardView(*forward),
			})
			return
		}
		handleDBError(c, err, "Forward not found")
		return
	}

	sendSuccess(c, http.StatusOK, gin.H{
		"success": true,
		"forward": toForwardView(*forward),
	})
}

func toForwardView(f db.PendingForward) forwardView {
	donationID := ""
	if f.DonationID.Valid {
		donationID = uuid.UUID(f.DonationID.Bytes).String()
	}
	return forwardView{
		ID:           f.ID.String(),
		DonationID:   donationID,
		TxKey:        f.TxKey,
		Amount:       xrpl.DropsToXRP(f.AmountDrops),
		Destination:  f.Destination,
		Status:       f.Status,
		AttemptCount: f.AttemptCount,
		MaxAttempts:  f.MaxAttempts,
		LastError:    textOrEmpty(f.LastError),
		NextRetryAt:  f.NextRetryAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}
