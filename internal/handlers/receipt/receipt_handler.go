// internal/handlers/receipt/receipt_handler.go
package receipt

import (
	"context"
	"net/http"
	"time"

	xerrors "sooq-service/internal/pkg/errors"
	"sooq-service/internal/pkg/response"
	service "sooq-service/internal/service/receipt"

	"github.com/gin-gonic/gin"
)

// BusinessDirectory resolves business names for receipt initials.
type BusinessDirectory interface {
	BusinessName(ctx context.Context, businessID int64) (string, error)
}

type ReceiptHandler struct {
	receiptService *service.Service
	businesses     BusinessDirectory
}

func NewReceiptHandler(receiptService *service.Service, businesses BusinessDirectory) *ReceiptHandler {
	return &ReceiptHandler{
		receiptService: receiptService,
		businesses:     businesses,
	}
}

type issueReceiptRequest struct {
	TransactionCode string `json:"transaction_code" binding:"required"`
	BusinessID      int64  `json:"business_id" binding:"required"`
}

type issueReceiptResponse struct {
	ReceiptNumber string `json:"receipt_number"`
}

// IssueReceiptNumber allocates the next receipt number for a transaction
// code on behalf of a business.
func (h *ReceiptHandler) IssueReceiptNumber(c *gin.Context) {
	var req issueReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	name, err := h.businesses.BusinessName(c.Request.Context(), req.BusinessID)
	if err != nil {
		response.Error(c, http.StatusNotFound, "business not found", err)
		return
	}

	number, err := h.receiptService.GenerateReceiptNumber(c.Request.Context(), req.TransactionCode, name, time.Now())
	if err != nil {
		if xerrors.IsValidation(err) {
			response.Error(c, http.StatusBadRequest, "failed to issue receipt number", err)
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to issue receipt number", err)
		return
	}

	response.Success(c, http.StatusCreated, "receipt number issued", issueReceiptResponse{
		ReceiptNumber: number,
	})
}
