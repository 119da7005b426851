// internal/repository/postgres/subscription_plan_repo.go
package postgres

import (
	"context"
	"fmt"

	"sooq-service/internal/domain/subscription"
	xerrors "sooq-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

type SubscriptionPlanRepository struct {
	db *pgxpool.Pool
}

func NewSubscriptionPlanRepository(db *pgxpool.Pool) *SubscriptionPlanRepository {
	return &SubscriptionPlanRepository{db: db}
}

const planColumns = `
	id, name, billing_frequency, payment_interval, payment_type,
	payment_amount_variability, subscription_fee, discounted_fee,
	commission_rate, pro_rata_rate,
	grace_period_days, max_retry_attempts, intro_grace_period_days,
	features, is_public, status, created_at, updated_at
`

func scanPlan(row pgx.Row) (*subscription.Plan, error) {
	var p subscription.Plan
	err := row.Scan(
		&p.ID, &p.Name, &p.BillingFrequency, &p.PaymentInterval, &p.PaymentType,
		&p.AmountVariability, &p.SubscriptionFee, &p.DiscountedFee,
		&p.CommissionRate, &p.ProRataRate,
		&p.GracePeriodDays, &p.MaxRetryAttempts, &p.IntroGracePeriodDays,
		pq.Array(&p.Features), &p.IsPublic, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan subscription plan: %w", err)
	}
	return &p, nil
}

// FindByID retrieves a plan by ID.
func (r *SubscriptionPlanRepository) FindByID(ctx context.Context, id int64) (*subscription.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM subscription_plans WHERE id = $1`
	return scanPlan(r.db.QueryRow(ctx, query, id))
}

// ListPublic lists the active, publicly offered plans.
func (r *SubscriptionPlanRepository) ListPublic(ctx context.Context) ([]subscription.Plan, error) {
	query := `
		SELECT ` + planColumns + `
		FROM subscription_plans
		WHERE is_public = TRUE AND status = 'active'
		ORDER BY subscription_fee, id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var plans []subscription.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *p)
	}
	return plans, rows.Err()
}
