// internal/handlers/wallet/wallet_handler.go
package wallet

import (
	"context"
	"net/http"

	"sooq-service/internal/domain/wallet"
	"sooq-service/internal/middleware"
	"sooq-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletReader resolves a business's wallet.
type WalletReader interface {
	FindByBusinessID(ctx context.Context, businessID int64) (*wallet.Wallet, error)
}

type WalletHandler struct {
	wallets WalletReader
}

func NewWalletHandler(wallets WalletReader) *WalletHandler {
	return &WalletHandler{wallets: wallets}
}

// GetMyWallet returns the authenticated business's wallet balance.
func (h *WalletHandler) GetMyWallet(c *gin.Context) {
	businessID := middleware.MustGetBusinessID(c)

	w, err := h.wallets.FindByBusinessID(c.Request.Context(), businessID)
	if err != nil {
		response.Error(c, http.StatusNotFound, "wallet not found", err)
		return
	}

	response.Success(c, http.StatusOK, "wallet retrieved", w)
}
