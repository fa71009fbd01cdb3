package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wefund/wefund-api/internal/client/xrpl"
)

// WalletHandler exposes platform wallet balance endpoints
type WalletHandler struct {
	common *CommonServices
}

// NewWalletHandler creates a new WalletHandler
func NewWalletHandler(common *CommonServices) *WalletHandler {
	return &WalletHandler{common: common}
}

// GetBalance returns the balance of a single account, defaulting to the
// platform wallet
func (h *WalletHandler) GetBalance(c *gin.Context) {
	account := c.Query("address")
	if account == "" {
		account = h.common.wallets.PlatformAddress
	}

	balances, err := h.common.ledger.GetBalances(c.Request.Context(), account)
	if err != nil {
		sendError(c, http.StatusBadGateway, "Failed to fetch account balance", err)
		return
	}

	sendSuccess(c, http.StatusOK, gin.H{
		"success":  true,
		"account":  account,
		"balances": balances,
	})
}

// GetBalances returns both platform and recipient wallet balances in one call
func (h *WalletHandler) GetBalances(c *gin.Context) {
	ctx := c.Request.Context()

	websiteBalance, err := h.common.ledger.GetBalances(ctx, h.common.wallets.PlatformAddress)
	if err != nil {
		sendError(c, http.StatusBadGateway, "Failed to fetch platform wallet balance", err)
		return
	}

	var charityBalance []xrpl.Balance
	if h.common.wallets.CharityAddress != "" {
		charityBalance, err = h.common.ledger.GetBalances(ctx, h.common.wallets.CharityAddress)
		if err != nil {
			sendError(c, http.StatusBadGateway, "Failed to fetch recipient wallet balance", err)
			return
		}
	}

	sendSuccess(c, http.StatusOK, gin.H{
		"success":        true,
		"websiteBalance": websiteBalance,
		"charityBalance": charityBalance,
		"walletInfo": gin.H{
			"websiteWallet": h.common.wallets.PlatformAddress,
			"charityWallet": h.common.wallets.CharityAddress,
		},
	})
}
