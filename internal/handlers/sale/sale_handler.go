// internal/handlers/sale/sale_handler.go
package sale

import (
	"net/http"
	"strconv"

	"sooq-service/internal/domain/sale"
	xerrors "sooq-service/internal/pkg/errors"
	"sooq-service/internal/pkg/response"
	service "sooq-service/internal/service/profit"

	"github.com/gin-gonic/gin"
)

type SaleHandler struct {
	profitService *service.Service
}

func NewSaleHandler(profitService *service.Service) *SaleHandler {
	return &SaleHandler{
		profitService: profitService,
	}
}

// CreateSale records a jewelry stock sale and distributes its proceeds.
func (h *SaleHandler) CreateSale(c *gin.Context) {
	var req sale.CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.profitService.RecordSale(c.Request.Context(), &req)
	if err != nil {
		respondServiceError(c, "failed to record sale", err)
		return
	}

	response.Success(c, http.StatusCreated, "sale recorded", result)
}

// ListSales lists the recorded sales for a manufacturing request.
func (h *SaleHandler) ListSales(c *gin.Context) {
	manufacturingRequestID, err := strconv.ParseInt(c.Query("manufacturing_request"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "manufacturing_request query parameter is required", err)
		return
	}

	sales, err := h.profitService.SalesForManufacturingRequest(c.Request.Context(), manufacturingRequestID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list sales", err)
		return
	}

	response.Success(c, http.StatusOK, "sales retrieved", sales)
}

// GetSale retrieves a sale together with its profit distributions.
func (h *SaleHandler) GetSale(c *gin.Context) {
	saleID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid sale ID", err)
		return
	}

	result, err := h.profitService.SaleWithDistributions(c.Request.Context(), saleID)
	if err != nil {
		respondServiceError(c, "sale not found", err)
		return
	}

	response.Success(c, http.StatusOK, "sale retrieved", result)
}

func respondServiceError(c *gin.Context, message string, err error) {
	switch {
	case xerrors.IsValidation(err):
		response.Error(c, http.StatusBadRequest, message, err)
	case xerrors.Is(err, xerrors.ErrNotFound):
		response.Error(c, http.StatusNotFound, message, err)
	default:
		response.Error(c, http.StatusInternalServerError, message, err)
	}
}
