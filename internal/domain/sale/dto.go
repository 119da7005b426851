// internal/domain/sale/dto.go
package sale

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateSaleRequest records a sale and triggers profit distribution.
type CreateSaleRequest struct {
	ManufacturingRequestID int64           `json:"manufacturing_request" binding:"required"`
	JewelryProductID       int64           `json:"jewelry_product" binding:"required"`
	Quantity               int64           `json:"quantity" binding:"required,gt=0"`
	SalePrice              decimal.Decimal `json:"sale_price" binding:"required"`
	SaleDate               *time.Time      `json:"sale_date,omitempty"`
	CustomerName           string          `json:"customer_name,omitempty"`
	Notes                  string          `json:"notes,omitempty"`
}

// SaleResponse is the created sale plus its recorded distributions.
type SaleResponse struct {
	Sale          *StockSale           `json:"sale"`
	Distributions []ProfitDistribution `json:"profit_distributions"`
}
