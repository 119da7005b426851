// internal/domain/wallet/entity.go
package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet is a business's balance ledger head.
type Wallet struct {
	ID         int64           `json:"id" db:"id"`
	BusinessID int64           `json:"business_id" db:"business_id"`
	Balance    decimal.Decimal `json:"balance" db:"balance"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}

type TransactionType string

const (
	TypePayment TransactionType = "payment"
)

type TransactionStatus string

const (
	StatusSuccess TransactionStatus = "success"
	StatusFailed  TransactionStatus = "failed"
)

// Transaction records a wallet balance movement with its before/after
// snapshot. Created atomically with whatever mutated the balance.
type Transaction struct {
	ID                   int64             `json:"id" db:"id"`
	Reference            string            `json:"reference" db:"reference"`
	FromBusinessID       int64             `json:"from_business_id" db:"from_business_id"`
	ToBusinessID         int64             `json:"to_business_id" db:"to_business_id"`
	ProfitDistributionID int64             `json:"profit_distribution_id,omitempty" db:"profit_distribution_id"`
	TransactionType      TransactionType   `json:"transaction_type" db:"transaction_type"`
	Status               TransactionStatus `json:"status" db:"status"`
	Amount               decimal.Decimal   `json:"amount" db:"amount"`
	PreviousBalance      decimal.Decimal   `json:"previous_balance" db:"previous_balance"`
	CurrentBalance       decimal.Decimal   `json:"current_balance" db:"current_balance"`
	CreatedAt            time.Time         `json:"created_at" db:"created_at"`
}
