// internal/handlers/pricing/pricing_handler.go
package pricing

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	xerrors "sooq-service/internal/pkg/errors"
	"sooq-service/internal/pkg/response"
	service "sooq-service/internal/service/pricing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PricingHandler struct {
	pricingService *service.Service
	logger         *zap.Logger
}

func NewPricingHandler(pricingService *service.Service, logger *zap.Logger) *PricingHandler {
	return &PricingHandler{
		pricingService: pricingService,
		logger:         logger,
	}
}

type livePriceResponse struct {
	Symbol       string `json:"symbol"`
	Carat        int64  `json:"carat"`
	PricePerGram string `json:"price_per_gram"`
}

// GetLivePrice returns the current local-currency price per gram for a metal
// symbol at a given purity.
func (h *PricingHandler) GetLivePrice(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Query("symbol")))
	if symbol == "" {
		response.Error(c, http.StatusBadRequest, "symbol is required", nil)
		return
	}

	carat := int64(24)
	if raw := c.Query("carat"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "invalid carat", err)
			return
		}
		carat = parsed
	}

	price, err := h.pricingService.LivePricePerGram(c.Request.Context(), symbol, carat)
	if err != nil {
		if xerrors.IsValidation(err) {
			response.Error(c, http.StatusBadRequest, "invalid price request", err)
			return
		}

		// Upstream feed details stay in the logs; clients get a generic
		// message.
		var fetchErr *service.PriceFetchError
		if errors.As(err, &fetchErr) {
			h.logger.Error("live price fetch failed",
				zap.String("symbol", fetchErr.Symbol),
				zap.Error(fetchErr.Err),
			)
			response.Error(c, http.StatusBadGateway, "metal price is temporarily unavailable", nil)
			return
		}

		response.Error(c, http.StatusInternalServerError, "failed to compute live price", err)
		return
	}

	response.Success(c, http.StatusOK, "live price retrieved", livePriceResponse{
		Symbol:       symbol,
		Carat:        carat,
		PricePerGram: price.String(),
	})
}
