// internal/domain/subscription/dto.go
package subscription

import "time"

// CreateSubscriptionRequest starts a subscription on a plan for the
// authenticated business.
type CreateSubscriptionRequest struct {
	PlanID      int64      `json:"plan_id" binding:"required"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	ExpiryDate  *time.Time `json:"expiry_date,omitempty"`
	IsAutoRenew bool       `json:"is_auto_renew"`
}

// ChargeResultRequest is posted by the billing scheduler after attempting a
// recurring charge.
type ChargeResultRequest struct {
	ChargedAt *time.Time `json:"charged_at,omitempty"`
}

// PlanChangeRequest queues a plan change to be applied at the next cycle.
type PlanChangeRequest struct {
	PlanID        int64      `json:"plan_id" binding:"required"`
	EffectiveDate *time.Time `json:"effective_date,omitempty"`
}

// DueListResponse is the scheduler's work list.
type DueListResponse struct {
	Subscriptions []BusinessSubscription `json:"subscriptions"`
	Total         int                    `json:"total"`
	AsOf          time.Time              `json:"as_of"`
}
