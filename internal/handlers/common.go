package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/wefund/wefund-api/internal/client/xaman"
	"github.com/wefund/wefund-api/internal/db"
	"github.com/wefund/wefund-api/internal/logger"
	"github.com/wefund/wefund-api/internal/service"
)

// CommonServices holds common dependencies used across handlers
type CommonServices struct {
	payments    *service.PaymentService
	settlements *service.SettlementService
	reconciler  *service.ForwardReconciler
	ledger      service.LedgerClient
	wallets     service.WalletConfig
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Success    bool   `json:"success"`
	Error      string `json:"error"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

// SuccessResponse represents a standard success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// NewCommonServices creates a new instance of CommonServices
func NewCommonServices(payments *service.PaymentService, settlements *service.SettlementService, reconciler *service.ForwardReconciler, ledger service.LedgerClient, wallets service.WalletConfig) *CommonServices {
	return &CommonServices{
		payments:    payments,
		settlements: settlements,
		reconciler:  reconciler,
		ledger:      ledger,
		wallets:     wallets,
	}
}

// sendError is a helper function that combines logging and error response
// It logs the error with the given message and sends a JSON error response
func sendError(c *gin.Context, statusCode int, message string, err error) {
	logger.Error(message,
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
	)
	c.JSON(statusCode, ErrorResponse{Error: message})
}

// handleDBError is a helper function that handles database errors and returns appropriate HTTP status codes
func handleDBError(c *gin.Context, err error, notFoundMsg string) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, pgx.ErrNoRows),
		errors.Is(err, db.ErrDonationNotFound),
		errors.Is(err, db.ErrForwardNotFound),
		errors.Is(err, db.ErrKeyNotFound):
		sendError(c, http.StatusNotFound, notFoundMsg, err)
	default:
		sendError(c, http.StatusInternalServerError, "Internal server error", err)
	}
}

// handleServiceError maps service layer errors onto HTTP status codes
func handleServiceError(c *gin.Context, err error) {
	var validationErr *service.ValidationError
	var rateLimitErr *xaman.ErrRateLimited

	switch {
	case errors.As(err, &validationErr):
		sendError(c, http.StatusBadRequest, validationErr.Message, err)
	case errors.As(err, &rateLimitErr):
		logger.Warn("payment gateway rate limit reached",
			zap.Int("retry_after", rateLimitErr.RetryAfter))
		c.JSON(http.StatusTooManyRequests, ErrorResponse{
			Error:      "Rate limit exceeded",
			RetryAfter: rateLimitErr.RetryAfter,
		})
	case errors.Is(err, service.ErrSettlementInProgress):
		sendError(c, http.StatusConflict, "Transaction is already being processed", err)
	case errors.Is(err, service.ErrKeyReuseMismatch):
		sendError(c, http.StatusConflict, "Transaction was already processed with different parameters", err)
	default:
		handleDBError(c, err, "Resource not found")
	}
}

// sendSuccess is a helper function that sends a success response
func sendSuccess(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

// sendSuccessMessage is a helper function that sends a success message
func sendSuccessMessage(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, SuccessResponse{Message: message})
}

// sendList is a helper function that sends a list response
func sendList(c *gin.Context, items interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data":   items,
	})
}
