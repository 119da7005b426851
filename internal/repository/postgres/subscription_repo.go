// internal/repository/postgres/subscription_repo.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"sooq-service/internal/domain/subscription"
	xerrors "sooq-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

type BusinessSubscriptionRepository struct {
	db *pgxpool.Pool
}

func NewBusinessSubscriptionRepository(db *pgxpool.Pool) *BusinessSubscriptionRepository {
	return &BusinessSubscriptionRepository{db: db}
}

const subscriptionColumns = `
	id, business_id, subscription_plan_id, subscription_name,
	pending_plan_id, pending_plan_effective_date,
	start_date, expiry_date, cancelled_date,
	billing_day, next_billing_date, last_billing_date, billing_cycle_count,
	billing_frequency, payment_interval, payment_type, payment_amount_variability,
	subscription_fee, commission_rate, pro_rata_rate,
	grace_period_days, max_retry_attempts, retry_count,
	intro_grace_period_days, intro_grace_applied,
	status, is_auto_renew, features, created_at, updated_at
`

func scanSubscription(row pgx.Row) (*subscription.BusinessSubscription, error) {
	var sub subscription.BusinessSubscription
	err := row.Scan(
		&sub.ID, &sub.BusinessID, &sub.SubscriptionPlanID, &sub.SubscriptionName,
		&sub.PendingPlanID, &sub.PendingPlanEffectiveDate,
		&sub.StartDate, &sub.ExpiryDate, &sub.CancelledDate,
		&sub.BillingDay, &sub.NextBillingDate, &sub.LastBillingDate, &sub.BillingCycleCount,
		&sub.BillingFrequency, &sub.PaymentInterval, &sub.PaymentType, &sub.AmountVariability,
		&sub.SubscriptionFee, &sub.CommissionRate, &sub.ProRataRate,
		&sub.GracePeriodDays, &sub.MaxRetryAttempts, &sub.RetryCount,
		&sub.IntroGracePeriodDays, &sub.IntroGraceApplied,
		&sub.Status, &sub.IsAutoRenew, pq.Array(&sub.Features), &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan subscription: %w", err)
	}
	return &sub, nil
}

// Create inserts a new business subscription.
func (r *BusinessSubscriptionRepository) Create(ctx context.Context, sub *subscription.BusinessSubscription) error {
	query := `
		INSERT INTO business_subscriptions (
			business_id, subscription_plan_id, subscription_name,
			start_date, expiry_date,
			billing_day, next_billing_date,
			billing_frequency, payment_interval, payment_type, payment_amount_variability,
			subscription_fee, commission_rate, pro_rata_rate,
			grace_period_days, max_retry_attempts,
			intro_grace_period_days, intro_grace_applied,
			status, is_auto_renew, features
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		sub.BusinessID, sub.SubscriptionPlanID, sub.SubscriptionName,
		sub.StartDate, sub.ExpiryDate,
		sub.BillingDay, sub.NextBillingDate,
		sub.BillingFrequency, sub.PaymentInterval, sub.PaymentType, sub.AmountVariability,
		sub.SubscriptionFee, sub.CommissionRate, sub.ProRataRate,
		sub.GracePeriodDays, sub.MaxRetryAttempts,
		sub.IntroGracePeriodDays, sub.IntroGraceApplied,
		sub.Status, sub.IsAutoRenew, pq.Array(sub.Features),
	).Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

// FindByID retrieves a subscription by ID.
func (r *BusinessSubscriptionRepository) FindByID(ctx context.Context, id int64) (*subscription.BusinessSubscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM business_subscriptions WHERE id = $1`
	return scanSubscription(r.db.QueryRow(ctx, query, id))
}

// FindByIDForUpdate locks and retrieves a subscription inside a transaction.
func (r *BusinessSubscriptionRepository) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*subscription.BusinessSubscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM business_subscriptions WHERE id = $1 FOR UPDATE`
	return scanSubscription(tx.QueryRow(ctx, query, id))
}

// FindActiveByBusiness retrieves the active subscription for a business.
func (r *BusinessSubscriptionRepository) FindActiveByBusiness(ctx context.Context, businessID int64) (*subscription.BusinessSubscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM business_subscriptions
		WHERE business_id = $1 AND status = 'active'
		ORDER BY created_at DESC
		LIMIT 1
	`
	return scanSubscription(r.db.QueryRow(ctx, query, businessID))
}

// FindDue lists active subscriptions whose next billing date has arrived.
func (r *BusinessSubscriptionRepository) FindDue(ctx context.Context, asOf time.Time) ([]subscription.BusinessSubscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM business_subscriptions
		WHERE status = 'active'
		  AND next_billing_date IS NOT NULL
		  AND next_billing_date <= $1
		ORDER BY next_billing_date, id
	`

	rows, err := r.db.Query(ctx, query, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to list due subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []subscription.BusinessSubscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// UpdateBillingStateWithTx persists the billing-cycle fields mutated by a
// charge outcome, including any plan change applied alongside it.
func (r *BusinessSubscriptionRepository) UpdateBillingStateWithTx(ctx context.Context, tx pgx.Tx, sub *subscription.BusinessSubscription) error {
	query := `
		UPDATE business_subscriptions
		SET subscription_plan_id = $1, subscription_name = $2,
		    pending_plan_id = $3, pending_plan_effective_date = $4,
		    expiry_date = $5,
		    next_billing_date = $6, last_billing_date = $7, billing_cycle_count = $8,
		    billing_frequency = $9, payment_interval = $10, payment_type = $11,
		    payment_amount_variability = $12,
		    subscription_fee = $13, commission_rate = $14, pro_rata_rate = $15,
		    retry_count = $16, features = $17, updated_at = NOW()
		WHERE id = $18
	`

	tag, err := tx.Exec(
		ctx, query,
		sub.SubscriptionPlanID, sub.SubscriptionName,
		sub.PendingPlanID, sub.PendingPlanEffectiveDate,
		sub.ExpiryDate,
		sub.NextBillingDate, sub.LastBillingDate, sub.BillingCycleCount,
		sub.BillingFrequency, sub.PaymentInterval, sub.PaymentType,
		sub.AmountVariability,
		sub.SubscriptionFee, sub.CommissionRate, sub.ProRataRate,
		sub.RetryCount, pq.Array(sub.Features),
		sub.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update billing state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// SetPendingPlan queues a plan change for the next billing cycle.
func (r *BusinessSubscriptionRepository) SetPendingPlan(ctx context.Context, id int64, planID int64, effectiveDate time.Time) error {
	query := `
		UPDATE business_subscriptions
		SET pending_plan_id = $1, pending_plan_effective_date = $2, updated_at = NOW()
		WHERE id = $3
	`

	tag, err := r.db.Exec(ctx, query, planID, effectiveDate, id)
	if err != nil {
		return fmt.Errorf("failed to set pending plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// UpdateStatus moves a subscription through its lifecycle.
func (r *BusinessSubscriptionRepository) UpdateStatus(ctx context.Context, id int64, status subscription.Status) error {
	query := `UPDATE business_subscriptions SET status = $1, updated_at = NOW() WHERE id = $2`
	if status == subscription.StatusCancelled {
		query = `UPDATE business_subscriptions SET status = $1, cancelled_date = NOW(), updated_at = NOW() WHERE id = $2`
	}

	tag, err := r.db.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update subscription status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}
