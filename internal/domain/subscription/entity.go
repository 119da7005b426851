// internal/domain/subscription/entity.go
package subscription

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusFailed    Status = "failed"
	StatusSuspended Status = "suspended"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

type BillingFrequency string

const (
	FrequencyMonthly BillingFrequency = "monthly"
	FrequencyYearly  BillingFrequency = "yearly"
)

type PaymentInterval string

const (
	IntervalMonthly PaymentInterval = "monthly"
	IntervalYearly  PaymentInterval = "yearly"
)

type PaymentType string

const (
	PaymentPrepaid  PaymentType = "prepaid"
	PaymentPostpaid PaymentType = "postpaid"
)

type AmountVariability string

const (
	AmountFixed    AmountVariability = "fixed"
	AmountVariable AmountVariability = "variable"
)

// BusinessSubscription is the active subscription record for a business.
// At most one active subscription exists per business; the record is never
// hard-deleted (lifecycle tracked through Status).
type BusinessSubscription struct {
	ID         int64 `json:"id" db:"id"`
	BusinessID int64 `json:"business_id" db:"business_id"`

	// Plan linkage. PendingPlanID holds an admin plan change that takes
	// effect at the next billing cycle.
	SubscriptionPlanID       sql.NullInt64 `json:"subscription_plan_id,omitempty" db:"subscription_plan_id"`
	SubscriptionName         string        `json:"subscription_name" db:"subscription_name"`
	PendingPlanID            sql.NullInt64 `json:"pending_plan_id,omitempty" db:"pending_plan_id"`
	PendingPlanEffectiveDate sql.NullTime  `json:"pending_plan_effective_date,omitempty" db:"pending_plan_effective_date"`

	// Subscription period
	StartDate     time.Time    `json:"start_date" db:"start_date"`
	ExpiryDate    sql.NullTime `json:"expiry_date,omitempty" db:"expiry_date"`
	CancelledDate sql.NullTime `json:"cancelled_date,omitempty" db:"cancelled_date"`

	// Billing cycle state. BillingDay is fixed at creation from StartDate;
	// the actual recurrence anchors to the day of the last billed date.
	BillingDay        int          `json:"billing_day" db:"billing_day"`
	NextBillingDate   sql.NullTime `json:"next_billing_date,omitempty" db:"next_billing_date"`
	LastBillingDate   sql.NullTime `json:"last_billing_date,omitempty" db:"last_billing_date"`
	BillingCycleCount int          `json:"billing_cycle_count" db:"billing_cycle_count"`

	BillingFrequency  BillingFrequency  `json:"billing_frequency" db:"billing_frequency"`
	PaymentInterval   PaymentInterval   `json:"payment_interval" db:"payment_interval"`
	PaymentType       PaymentType       `json:"payment_type" db:"payment_type"`
	AmountVariability AmountVariability `json:"payment_amount_variability" db:"payment_amount_variability"`

	// Pricing
	SubscriptionFee decimal.Decimal `json:"subscription_fee" db:"subscription_fee"`
	CommissionRate  decimal.Decimal `json:"commission_rate" db:"commission_rate"`
	ProRataRate     decimal.Decimal `json:"pro_rata_rate" db:"pro_rata_rate"`

	// Retry / grace state
	GracePeriodDays      int  `json:"grace_period_days" db:"grace_period_days"`
	MaxRetryAttempts     int  `json:"max_retry_attempts" db:"max_retry_attempts"`
	RetryCount           int  `json:"retry_count" db:"retry_count"`
	IntroGracePeriodDays int  `json:"intro_grace_period_days" db:"intro_grace_period_days"`
	IntroGraceApplied    bool `json:"intro_grace_applied" db:"intro_grace_applied"`

	Status      Status `json:"status" db:"status"`
	IsAutoRenew bool   `json:"is_auto_renew" db:"is_auto_renew"`

	// Features enabled for this subscription, snapshotted from the plan at
	// purchase or plan-change time. Later plan edits do not propagate here.
	Features []string `json:"features" db:"features"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HasPendingPlanChange reports whether an admin plan change is queued.
func (s *BusinessSubscription) HasPendingPlanChange() bool {
	return s.PendingPlanID.Valid
}

// Plan is the catalog entry a business subscribes to.
type Plan struct {
	ID                   int64               `json:"id" db:"id"`
	Name                 string              `json:"name" db:"name"`
	BillingFrequency     BillingFrequency    `json:"billing_frequency" db:"billing_frequency"`
	PaymentInterval      PaymentInterval     `json:"payment_interval" db:"payment_interval"`
	PaymentType          PaymentType         `json:"payment_type" db:"payment_type"`
	AmountVariability    AmountVariability   `json:"payment_amount_variability" db:"payment_amount_variability"`
	SubscriptionFee      decimal.Decimal     `json:"subscription_fee" db:"subscription_fee"`
	DiscountedFee        decimal.NullDecimal `json:"discounted_fee,omitempty" db:"discounted_fee"`
	CommissionRate       decimal.Decimal     `json:"commission_rate" db:"commission_rate"`
	ProRataRate          decimal.Decimal     `json:"pro_rata_rate" db:"pro_rata_rate"`
	GracePeriodDays      int                 `json:"grace_period_days" db:"grace_period_days"`
	MaxRetryAttempts     int                 `json:"max_retry_attempts" db:"max_retry_attempts"`
	IntroGracePeriodDays int                 `json:"intro_grace_period_days" db:"intro_grace_period_days"`
	Features             []string            `json:"features" db:"features"`
	IsPublic             bool                `json:"is_public" db:"is_public"`
	Status               Status              `json:"status" db:"status"`
	CreatedAt            time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at" db:"updated_at"`
}

// EffectiveFee returns the discounted fee when present, otherwise the regular
// fee, defaulting to zero.
func (p *Plan) EffectiveFee() decimal.Decimal {
	if p.DiscountedFee.Valid && !p.DiscountedFee.Decimal.IsZero() {
		return p.DiscountedFee.Decimal
	}
	return p.SubscriptionFee
}
