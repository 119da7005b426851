// internal/domain/pool/entity.go
package pool

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type MaterialType string

const (
	MaterialMetal MaterialType = "metal"
	MaterialStone MaterialType = "stone"
)

type Status string

const (
	StatusOpen    Status = "open"
	StatusClosed  Status = "closed"
	StatusSettled Status = "settled"
)

type ContributionStatus string

const (
	ContributionPending       ContributionStatus = "pending"
	ContributionAdminApproved ContributionStatus = "admin_approved"
	ContributionApproved      ContributionStatus = "approved"
	ContributionRejected      ContributionStatus = "rejected"
)

type FundStatus string

const (
	FundOpen    FundStatus = "open"
	FundFunded  FundStatus = "funded"
	FundClosed  FundStatus = "closed"
)

// Pool is a collection vehicle where investors contribute precious material
// toward a shared target. A pool linked to a Musharakah contract request uses
// an itemized target derived from the contract's bill of materials; otherwise
// a single numeric target applies.
type Pool struct {
	ID                int64          `json:"id" db:"id"`
	Name              string         `json:"name" db:"name"`
	ContractRequestID sql.NullInt64  `json:"musharakah_contract_request_id,omitempty" db:"musharakah_contract_request_id"`
	MaterialType      MaterialType   `json:"material_type,omitempty" db:"material_type"`
	MaterialItemID    sql.NullInt64  `json:"material_item_id,omitempty" db:"material_item_id"`
	CaratTypeID       sql.NullInt64  `json:"carat_type_id,omitempty" db:"carat_type_id"`
	CutShapeID        sql.NullInt64  `json:"cut_shape_id,omitempty" db:"cut_shape_id"`

	// Target weight in grams (metals) or carats (stones). Unused for
	// contract-linked pools, whose target is itemized.
	Target decimal.Decimal `json:"target" db:"target"`

	Status   Status `json:"status" db:"status"`
	IsActive bool   `json:"is_active" db:"is_active"`

	ExpectedReturnPercentage decimal.Decimal     `json:"expected_return_percentage" db:"expected_return_percentage"`
	ManagementFeeRate        decimal.Decimal     `json:"management_fee_rate" db:"management_fee_rate"`
	PerformanceFeeRate       decimal.Decimal     `json:"performance_fee_rate" db:"performance_fee_rate"`
	MinimumInvestmentGrams   decimal.NullDecimal `json:"minimum_investment_grams_per_participant,omitempty" db:"minimum_investment_grams_per_participant"`

	// Participation window: months from creation during which investors may
	// join. Once elapsed the pool closes even if unfulfilled.
	ParticipationDuration sql.NullInt64 `json:"participation_duration,omitempty" db:"participation_duration"`

	ApprovedAt sql.NullTime `json:"approved_at,omitempty" db:"approved_at"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at" db:"updated_at"`
}

// Settled pools are frozen: no further remaining-target computation or
// status transitions.
func (p *Pool) IsSettled() bool {
	return p.Status == StatusSettled
}

// Contribution is an investor's offer of material toward a pool.
// Status transitions once (pending -> admin_approved/approved/rejected);
// there is no un-approving.
type Contribution struct {
	ID            int64              `json:"id" db:"id"`
	PoolID        int64              `json:"pool_id" db:"pool_id"`
	ParticipantID int64              `json:"participant_id" db:"participant_id"`
	Weight        decimal.Decimal    `json:"weight" db:"weight"`
	Status        ContributionStatus `json:"status" db:"status"`
	FundStatus    FundStatus         `json:"fund_status" db:"fund_status"`
	ApprovedAt    sql.NullTime       `json:"approved_at,omitempty" db:"approved_at"`
	CreatedAt     time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at" db:"updated_at"`
}

// Counted reports whether the contribution counts toward the pool target.
func (c ContributionStatus) Counted() bool {
	return c == ContributionApproved || c == ContributionAdminApproved
}

// AssetContribution is a line item under a Contribution linking a purchase
// request (a specific precious-item purchase) with a quantity of units.
type AssetContribution struct {
	ID                int64              `json:"id" db:"id"`
	ContributionID    int64              `json:"pool_contribution_id" db:"pool_contribution_id"`
	PoolID            sql.NullInt64      `json:"pool_id,omitempty" db:"pool_id"`
	PurchaseRequestID int64              `json:"purchase_request_id" db:"purchase_request_id"`
	Quantity          decimal.Decimal    `json:"quantity" db:"quantity"`
	Status            ContributionStatus `json:"status" db:"status"`
	CreatedAt         time.Time          `json:"created_at" db:"created_at"`
}

// PreciousItemUnit is a physical unit under a purchase request. Units are
// linked to a pool when the covering contribution is approved and released
// when it is rejected.
type PreciousItemUnit struct {
	ID                 int64          `json:"id" db:"id"`
	PurchaseRequestID  int64          `json:"purchase_request_id" db:"purchase_request_id"`
	PoolID             sql.NullInt64  `json:"pool_id,omitempty" db:"pool_id"`
	SystemSerialNumber sql.NullString `json:"system_serial_number,omitempty" db:"system_serial_number"`
}

// MaterialRequirement is one aggregated bill-of-materials row for a contract
// request: the product material keyed by (type, item, carat | shape+weight)
// with the total weight required across all requested products.
type MaterialRequirement struct {
	MaterialType        MaterialType    `db:"material_type"`
	ItemName            string          `db:"material_item_name"`
	CaratName           string          `db:"carat_type_name"`
	ShapeName           string          `db:"shape_cut_name"`
	WeightPerUnit       decimal.Decimal `db:"weight"`
	TotalRequiredWeight decimal.Decimal `db:"total_required_weight"`
}

// ContributionLine is an asset contribution joined with its precious item's
// material attributes, the shape consumed by the allocation math.
type ContributionLine struct {
	Quantity      decimal.Decimal `db:"quantity"`
	MaterialType  MaterialType    `db:"material_type"`
	ItemName      string          `db:"material_item_name"`
	CaratName     string          `db:"carat_type_name"`
	ShapeName     string          `db:"shape_cut_name"`
	WeightPerUnit decimal.Decimal `db:"weight_per_unit"`
}

// TotalWeight returns the total material weight of the line.
func (l ContributionLine) TotalWeight() decimal.Decimal {
	return l.Quantity.Mul(l.WeightPerUnit)
}
