// internal/domain/pricing/entity.go
package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// GlobalMetal is a globally traded metal with its price-feed symbol
// (e.g. XAU, XAG).
type GlobalMetal struct {
	ID     int64  `json:"id" db:"id"`
	Name   string `json:"name" db:"name"`
	Symbol string `json:"symbol" db:"symbol"`
}

// MetalPrice is one observed live price for a global metal.
type MetalPrice struct {
	GlobalMetalID int64           `json:"global_metal_id" db:"global_metal_id"`
	Price         decimal.Decimal `json:"price" db:"price"`
	PriceOnDate   time.Time       `json:"price_on_date" db:"price_on_date"`
}

// CurrencyRate is the organization's default currency conversion rate.
type CurrencyRate struct {
	Code string          `json:"code" db:"code"`
	Rate decimal.Decimal `json:"rate" db:"rate"`
}
