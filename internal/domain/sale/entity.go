// internal/domain/sale/entity.go
package sale

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// MaterialSource is how a manufacturing request was funded, which decides
// the profit-split policy at sale time.
type MaterialSource string

const (
	SourceMusharakah         MaterialSource = "musharakah"
	SourceCash               MaterialSource = "cash"
	SourceAsset              MaterialSource = "asset"
	SourceMusharakahAndAsset MaterialSource = "musharakah_and_asset"
)

// StockSale records a jewelry sale from showroom or marketplace stock.
type StockSale struct {
	ID                     int64           `json:"id" db:"id"`
	ManufacturingRequestID int64           `json:"manufacturing_request_id" db:"manufacturing_request_id"`
	JewelryProductID       int64           `json:"jewelry_product_id" db:"jewelry_product_id"`
	Quantity               int64           `json:"quantity" db:"quantity"`
	SalePrice              decimal.Decimal `json:"sale_price" db:"sale_price"`
	SaleDate               time.Time       `json:"sale_date" db:"sale_date"`
	CustomerName           sql.NullString  `json:"customer_name,omitempty" db:"customer_name"`
	Notes                  sql.NullString  `json:"notes,omitempty" db:"notes"`
	CreatedAt              time.Time       `json:"created_at" db:"created_at"`
}

// MusharakahContract carries the fixed equity split between the investor
// (capital/material) and the jeweler (manufacturing).
type MusharakahContract struct {
	ID         int64           `json:"id" db:"id"`
	JewelerID  sql.NullInt64   `json:"jeweler_id,omitempty" db:"jeweler_id"`
	InvestorID sql.NullInt64   `json:"investor_id,omitempty" db:"investor_id"`
	Equity     decimal.Decimal `json:"musharakah_equity" db:"musharakah_equity"`
}

// ManufacturingPayment links a manufacturing request to its funding source.
type ManufacturingPayment struct {
	ManufacturingRequestID int64          `db:"manufacturing_request_id"`
	PaymentType            MaterialSource `db:"payment_type"`
	MusharakahContractID   sql.NullInt64  `db:"musharakah_contract_id"`
}

// ManufacturingProduct is the requested quantity and metal consumption of a
// product within a manufacturing request.
type ManufacturingProduct struct {
	ManufacturingRequestID int64           `db:"manufacturing_request_id"`
	JewelryProductID       int64           `db:"jewelry_product_id"`
	Quantity               int64           `db:"quantity"`
	MetalAmount            decimal.Decimal `db:"metal_amount"`
	EstimatedPrice         decimal.Decimal `db:"estimated_price"`
}

// ManufacturingTarget holds the extra metal allocation for a material not
// covered by the original musharakah contribution (hybrid funding).
type ManufacturingTarget struct {
	ManufacturingRequestID int64           `db:"manufacturing_request_id"`
	MaterialItemID         int64           `db:"material_item_id"`
	CaratTypeID            int64           `db:"carat_type_id"`
	MetalAmount            decimal.Decimal `db:"metal_amount"`
	RequestedQuantity      int64           `db:"requested_quantity"`
}

// ProfitDistribution is one recipient's share of a sale. A row is written
// only when the transaction amount is positive.
type ProfitDistribution struct {
	ID                      int64           `json:"id" db:"id"`
	SaleID                  int64           `json:"jewelry_sale_id" db:"jewelry_sale_id"`
	MusharakahContractID    sql.NullInt64   `json:"musharakah_contract_id,omitempty" db:"musharakah_contract_id"`
	RecipientBusinessID     int64           `json:"recipient_business_id" db:"recipient_business_id"`
	RecipientType           string          `json:"recipient_type" db:"recipient_type"`
	CostOfRepurchasingMetal decimal.Decimal `json:"cost_of_repurchasing_metal" db:"cost_of_repurchasing_metal"`
	Revenue                 decimal.Decimal `json:"revenue" db:"revenue"`
	ProfitSharePercentage   decimal.Decimal `json:"profit_share_percentage" db:"profit_share_percentage"`
	ProfitAmount            decimal.Decimal `json:"profit_amount" db:"profit_amount"`
	TransactionAmount       decimal.Decimal `json:"transaction_amount" db:"transaction_amount"`
	DistributedAt           time.Time       `json:"distributed_at" db:"distributed_at"`
}

const (
	RecipientJeweler  = "jeweler"
	RecipientInvestor = "investor"
)
