// internal/service/billing/billing_service.go
package billing

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"sooq-service/internal/domain/subscription"
	xerrors "sooq-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// SubscriptionRepository is the persistence surface the billing engine
// needs. Billing-cycle mutation goes through the ForUpdate/WithTx pair so
// that cycle advancement for one subscription is strictly sequential.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *subscription.BusinessSubscription) error
	FindByID(ctx context.Context, id int64) (*subscription.BusinessSubscription, error)
	FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*subscription.BusinessSubscription, error)
	FindActiveByBusiness(ctx context.Context, businessID int64) (*subscription.BusinessSubscription, error)
	FindDue(ctx context.Context, asOf time.Time) ([]subscription.BusinessSubscription, error)
	UpdateBillingStateWithTx(ctx context.Context, tx pgx.Tx, sub *subscription.BusinessSubscription) error
	SetPendingPlan(ctx context.Context, id int64, planID int64, effectiveDate time.Time) error
	UpdateStatus(ctx context.Context, id int64, status subscription.Status) error
}

// PlanRepository resolves subscription plans.
type PlanRepository interface {
	FindByID(ctx context.Context, id int64) (*subscription.Plan, error)
	ListPublic(ctx context.Context) ([]subscription.Plan, error)
}

// DB begins transactions. Satisfied by *postgres.DB.
type DB interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
}

type Service struct {
	subscriptionRepo SubscriptionRepository
	planRepo         PlanRepository
	db               DB
	logger           *zap.Logger
}

func NewService(subscriptionRepo SubscriptionRepository, planRepo PlanRepository, db DB, logger *zap.Logger) *Service {
	return &Service{
		subscriptionRepo: subscriptionRepo,
		planRepo:         planRepo,
		db:               db,
		logger:           logger,
	}
}

// ShouldApplyPendingChanges reports whether a pending plan change exists and
// its effective date has been reached.
func ShouldApplyPendingChanges(sub *subscription.BusinessSubscription, checkDate time.Time) bool {
	if !sub.HasPendingPlanChange() {
		return false
	}
	return sub.PendingPlanEffectiveDate.Valid &&
		!dateOnly(checkDate).Before(dateOnly(sub.PendingPlanEffectiveDate.Time))
}

// ApplyPendingPlanChanges copies the pending plan's fields onto the
// subscription and clears the pending markers. Features are re-snapshotted
// from the new plan. Returns false (no mutation) when nothing is pending.
func ApplyPendingPlanChanges(sub *subscription.BusinessSubscription, plan *subscription.Plan) bool {
	if !sub.HasPendingPlanChange() || plan == nil {
		return false
	}

	sub.SubscriptionPlanID = sql.NullInt64{Int64: plan.ID, Valid: true}
	sub.SubscriptionName = plan.Name
	sub.BillingFrequency = plan.BillingFrequency
	sub.PaymentInterval = plan.PaymentInterval
	sub.AmountVariability = plan.AmountVariability
	sub.PaymentType = plan.PaymentType
	sub.SubscriptionFee = plan.EffectiveFee()
	sub.CommissionRate = plan.CommissionRate
	sub.ProRataRate = plan.ProRataRate
	if plan.Features != nil {
		sub.Features = plan.Features
	} else {
		sub.Features = []string{}
	}

	sub.PendingPlanID = sql.NullInt64{}
	sub.PendingPlanEffectiveDate = sql.NullTime{}
	return true
}

// InitializeBillingSchedule sets the creation-time billing fields:
// billing_day comes from the start date, and next_billing_date defaults to
// the expiry date (initial subscriptions bill once for the whole period) or
// falls back to the first computed cycle. Intro grace periods set their own
// next billing date and are left untouched.
func InitializeBillingSchedule(sub *subscription.BusinessSubscription) {
	if sub.StartDate.IsZero() {
		return
	}
	sub.BillingDay = sub.StartDate.Day()

	if sub.NextBillingDate.Valid || sub.IntroGraceApplied {
		return
	}
	if sub.ExpiryDate.Valid {
		sub.NextBillingDate = sql.NullTime{Time: dateOnly(sub.ExpiryDate.Time), Valid: true}
	} else {
		sub.NextBillingDate = sql.NullTime{Time: NextBillingDate(sub.BillingFrequency, sub.StartDate), Valid: true}
	}
}

// updateAfterSuccess advances the billing cycle after a successful charge.
// pendingPlan must be the resolved pending plan when one is queued.
func updateAfterSuccess(sub *subscription.BusinessSubscription, pendingPlan *subscription.Plan, today time.Time) error {
	today = dateOnly(today)

	// PREPAID bills in advance: the charge funds the upcoming period ending
	// at the current next_billing_date. POSTPAID bills in arrears: the
	// charge settles the period that ended yesterday, while the ledger date
	// recorded is today.
	var periodEndForNextCycle time.Time
	if sub.PaymentType == subscription.PaymentPostpaid {
		periodEndForNextCycle = today.AddDate(0, 0, -1)
		sub.LastBillingDate = sql.NullTime{Time: today, Valid: true}
	} else {
		if !sub.NextBillingDate.Valid {
			return xerrors.Validationf("subscription %d has no next billing date", sub.ID)
		}
		periodEndForNextCycle = dateOnly(sub.NextBillingDate.Time)
		sub.LastBillingDate = sql.NullTime{Time: periodEndForNextCycle, Valid: true}
	}

	// Apply a queued plan change before computing the next cycle so the new
	// billing frequency governs subsequent dates.
	ApplyPendingPlanChanges(sub, pendingPlan)

	next := NextBillingDate(sub.BillingFrequency, periodEndForNextCycle)

	// Fixed-duration subscriptions stop billing at expiry. A next billing
	// date pinned to expiry_date signals the final cycle.
	if sub.ExpiryDate.Valid && next.After(dateOnly(sub.ExpiryDate.Time)) {
		next = dateOnly(sub.ExpiryDate.Time)
	}
	sub.NextBillingDate = sql.NullTime{Time: next, Valid: true}

	sub.BillingCycleCount++
	sub.RetryCount = 0

	// expiry_date is fixed at creation and never extended; derive it only
	// when it was never set.
	if !sub.ExpiryDate.Valid {
		sub.ExpiryDate = sql.NullTime{Time: NextBillingDate(sub.BillingFrequency, next), Valid: true}
	}
	return nil
}

// updateAfterFailure increments the retry counter. Once retries are
// exhausted the cycle is abandoned: the next billing date advances one full
// cycle (from the last billed date, or the start date for a first cycle)
// and the counter resets so the next cycle starts clean.
func updateAfterFailure(sub *subscription.BusinessSubscription) {
	sub.RetryCount++
	if sub.RetryCount < sub.MaxRetryAttempts {
		return
	}

	from := sub.StartDate
	if sub.LastBillingDate.Valid {
		from = sub.LastBillingDate.Time
	}
	sub.NextBillingDate = sql.NullTime{Time: NextBillingDate(sub.BillingFrequency, from), Valid: true}
	sub.RetryCount = 0
}

// ProcessChargeSuccess records a successful recurring charge: it locks the
// subscription row, applies any pending plan change, advances the billing
// dates and persists, all within one transaction.
func (s *Service) ProcessChargeSuccess(ctx context.Context, subscriptionID int64, today time.Time) (*subscription.BusinessSubscription, error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	sub, err := s.subscriptionRepo.FindByIDForUpdate(ctx, tx, subscriptionID)
	if err != nil {
		return nil, err
	}

	var pendingPlan *subscription.Plan
	if sub.HasPendingPlanChange() {
		pendingPlan, err = s.planRepo.FindByID(ctx, sub.PendingPlanID.Int64)
		if err != nil {
			return nil, fmt.Errorf("pending plan not found: %w", err)
		}
	}

	oldFee := sub.SubscriptionFee
	if err := updateAfterSuccess(sub, pendingPlan, today); err != nil {
		return nil, err
	}

	if err := s.subscriptionRepo.UpdateBillingStateWithTx(ctx, tx, sub); err != nil {
		return nil, fmt.Errorf("failed to update billing state: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if pendingPlan != nil {
		s.logger.Info("applied pending plan change",
			zap.Int64("subscription_id", sub.ID),
			zap.String("old_fee", oldFee.String()),
			zap.String("new_fee", sub.SubscriptionFee.String()),
		)
	}
	s.logger.Info("billing cycle advanced",
		zap.Int64("subscription_id", sub.ID),
		zap.String("payment_type", string(sub.PaymentType)),
		zap.Time("next_billing_date", sub.NextBillingDate.Time),
		zap.Int("billing_cycle_count", sub.BillingCycleCount),
	)

	return sub, nil
}

// ProcessChargeFailure records a failed recurring charge attempt.
func (s *Service) ProcessChargeFailure(ctx context.Context, subscriptionID int64) (*subscription.BusinessSubscription, error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	sub, err := s.subscriptionRepo.FindByIDForUpdate(ctx, tx, subscriptionID)
	if err != nil {
		return nil, err
	}

	updateAfterFailure(sub)

	if err := s.subscriptionRepo.UpdateBillingStateWithTx(ctx, tx, sub); err != nil {
		return nil, fmt.Errorf("failed to update billing state: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Warn("billing charge failed",
		zap.Int64("subscription_id", sub.ID),
		zap.Int("retry_count", sub.RetryCount),
		zap.Int("max_retry_attempts", sub.MaxRetryAttempts),
	)

	return sub, nil
}

// DueSubscriptions lists the subscriptions the scheduler should charge.
func (s *Service) DueSubscriptions(ctx context.Context, asOf time.Time) ([]subscription.BusinessSubscription, error) {
	subs, err := s.subscriptionRepo.FindDue(ctx, dateOnly(asOf))
	if err != nil {
		return nil, fmt.Errorf("failed to list due subscriptions: %w", err)
	}
	return subs, nil
}

// QueuePlanChange stores an admin plan change to be applied at the next
// billing cycle. The effective date defaults to the next billing date.
func (s *Service) QueuePlanChange(ctx context.Context, subscriptionID int64, req *subscription.PlanChangeRequest) (*subscription.BusinessSubscription, error) {
	sub, err := s.subscriptionRepo.FindByID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	plan, err := s.planRepo.FindByID(ctx, req.PlanID)
	if err != nil {
		return nil, fmt.Errorf("subscription plan not found: %w", err)
	}
	if plan.Status != subscription.StatusActive {
		return nil, xerrors.Validationf("subscription plan %d is not active", plan.ID)
	}

	effective := time.Time{}
	switch {
	case req.EffectiveDate != nil:
		effective = dateOnly(*req.EffectiveDate)
	case sub.NextBillingDate.Valid:
		effective = dateOnly(sub.NextBillingDate.Time)
	default:
		return nil, xerrors.Validationf("subscription %d has no next billing date to anchor the change", sub.ID)
	}

	if err := s.subscriptionRepo.SetPendingPlan(ctx, subscriptionID, plan.ID, effective); err != nil {
		return nil, fmt.Errorf("failed to queue plan change: %w", err)
	}

	s.logger.Info("plan change queued",
		zap.Int64("subscription_id", subscriptionID),
		zap.Int64("plan_id", plan.ID),
		zap.Time("effective_date", effective),
	)

	return s.subscriptionRepo.FindByID(ctx, subscriptionID)
}

// CreateSubscription starts a subscription on a plan for a business,
// snapshotting the plan's pricing and features and fixing the creation-time
// billing schedule. A business can hold at most one active subscription.
func (s *Service) CreateSubscription(ctx context.Context, businessID int64, req *subscription.CreateSubscriptionRequest) (*subscription.BusinessSubscription, error) {
	existing, err := s.subscriptionRepo.FindActiveByBusiness(ctx, businessID)
	if err != nil && !xerrors.Is(err, xerrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing subscription: %w", err)
	}
	if existing != nil {
		return nil, xerrors.Validationf("business %d already has an active subscription", businessID)
	}

	plan, err := s.planRepo.FindByID(ctx, req.PlanID)
	if err != nil {
		return nil, fmt.Errorf("subscription plan not found: %w", err)
	}
	if plan.Status != subscription.StatusActive {
		return nil, xerrors.Validationf("subscription plan %d is not active", plan.ID)
	}

	startDate := dateOnly(time.Now())
	if req.StartDate != nil {
		startDate = dateOnly(*req.StartDate)
	}

	sub := &subscription.BusinessSubscription{
		BusinessID:           businessID,
		SubscriptionPlanID:   sql.NullInt64{Int64: plan.ID, Valid: true},
		SubscriptionName:     plan.Name,
		StartDate:            startDate,
		BillingFrequency:     plan.BillingFrequency,
		PaymentInterval:      plan.PaymentInterval,
		PaymentType:          plan.PaymentType,
		AmountVariability:    plan.AmountVariability,
		SubscriptionFee:      plan.EffectiveFee(),
		CommissionRate:       plan.CommissionRate,
		ProRataRate:          plan.ProRataRate,
		GracePeriodDays:      plan.GracePeriodDays,
		MaxRetryAttempts:     plan.MaxRetryAttempts,
		IntroGracePeriodDays: plan.IntroGracePeriodDays,
		Status:               subscription.StatusActive,
		IsAutoRenew:          req.IsAutoRenew,
		Features:             plan.Features,
	}
	if sub.Features == nil {
		sub.Features = []string{}
	}
	if req.ExpiryDate != nil {
		sub.ExpiryDate = sql.NullTime{Time: dateOnly(*req.ExpiryDate), Valid: true}
	}

	// An introductory grace period defers the first charge past the normal
	// first cycle.
	if plan.IntroGracePeriodDays > 0 {
		sub.IntroGraceApplied = true
		sub.NextBillingDate = sql.NullTime{Time: startDate.AddDate(0, 0, plan.IntroGracePeriodDays), Valid: true}
	}

	InitializeBillingSchedule(sub)

	if err := s.subscriptionRepo.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	s.logger.Info("subscription created",
		zap.Int64("subscription_id", sub.ID),
		zap.Int64("business_id", businessID),
		zap.Int64("plan_id", plan.ID),
		zap.Time("next_billing_date", sub.NextBillingDate.Time),
	)
	return sub, nil
}

// ActiveSubscription returns the business's current active subscription.
func (s *Service) ActiveSubscription(ctx context.Context, businessID int64) (*subscription.BusinessSubscription, error) {
	return s.subscriptionRepo.FindActiveByBusiness(ctx, businessID)
}

// CancelSubscription marks a subscription cancelled. The record is kept; the
// scheduler stops picking it up because cancelled subscriptions are never due.
func (s *Service) CancelSubscription(ctx context.Context, subscriptionID int64) (*subscription.BusinessSubscription, error) {
	sub, err := s.subscriptionRepo.FindByID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.Status == subscription.StatusCancelled {
		return nil, xerrors.Validationf("subscription %d is already cancelled", sub.ID)
	}

	if err := s.subscriptionRepo.UpdateStatus(ctx, subscriptionID, subscription.StatusCancelled); err != nil {
		return nil, fmt.Errorf("failed to cancel subscription: %w", err)
	}

	s.logger.Info("subscription cancelled", zap.Int64("subscription_id", subscriptionID))
	return s.subscriptionRepo.FindByID(ctx, subscriptionID)
}

// GetSubscription retrieves a subscription by ID.
func (s *Service) GetSubscription(ctx context.Context, subscriptionID int64) (*subscription.BusinessSubscription, error) {
	return s.subscriptionRepo.FindByID(ctx, subscriptionID)
}

// ListPlans lists the publicly offered subscription plans.
func (s *Service) ListPlans(ctx context.Context) ([]subscription.Plan, error) {
	plans, err := s.planRepo.ListPublic(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscription plans: %w", err)
	}
	return plans, nil
}
