package billing

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"sooq-service/internal/domain/subscription"
	xerrors "sooq-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type fakeDB struct {
	tx *fakeTx
}

func (d *fakeDB) BeginTx(ctx context.Context) (pgx.Tx, error) {
	d.tx = &fakeTx{}
	return d.tx, nil
}

type fakeSubscriptionRepo struct {
	subs   map[int64]*subscription.BusinessSubscription
	nextID int64
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{subs: make(map[int64]*subscription.BusinessSubscription), nextID: 1}
}

func (r *fakeSubscriptionRepo) Create(ctx context.Context, sub *subscription.BusinessSubscription) error {
	sub.ID = r.nextID
	r.nextID++
	copied := *sub
	r.subs[sub.ID] = &copied
	return nil
}

func (r *fakeSubscriptionRepo) FindByID(ctx context.Context, id int64) (*subscription.BusinessSubscription, error) {
	sub, ok := r.subs[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	copied := *sub
	return &copied, nil
}

func (r *fakeSubscriptionRepo) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*subscription.BusinessSubscription, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeSubscriptionRepo) FindActiveByBusiness(ctx context.Context, businessID int64) (*subscription.BusinessSubscription, error) {
	for _, sub := range r.subs {
		if sub.BusinessID == businessID && sub.Status == subscription.StatusActive {
			copied := *sub
			return &copied, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (r *fakeSubscriptionRepo) FindDue(ctx context.Context, asOf time.Time) ([]subscription.BusinessSubscription, error) {
	var due []subscription.BusinessSubscription
	for _, sub := range r.subs {
		if sub.Status == subscription.StatusActive && sub.NextBillingDate.Valid && !sub.NextBillingDate.Time.After(asOf) {
			due = append(due, *sub)
		}
	}
	return due, nil
}

func (r *fakeSubscriptionRepo) UpdateBillingStateWithTx(ctx context.Context, tx pgx.Tx, sub *subscription.BusinessSubscription) error {
	if _, ok := r.subs[sub.ID]; !ok {
		return xerrors.ErrNotFound
	}
	copied := *sub
	r.subs[sub.ID] = &copied
	return nil
}

func (r *fakeSubscriptionRepo) SetPendingPlan(ctx context.Context, id int64, planID int64, effectiveDate time.Time) error {
	sub, ok := r.subs[id]
	if !ok {
		return xerrors.ErrNotFound
	}
	sub.PendingPlanID = sql.NullInt64{Int64: planID, Valid: true}
	sub.PendingPlanEffectiveDate = sql.NullTime{Time: effectiveDate, Valid: true}
	return nil
}

func (r *fakeSubscriptionRepo) UpdateStatus(ctx context.Context, id int64, status subscription.Status) error {
	sub, ok := r.subs[id]
	if !ok {
		return xerrors.ErrNotFound
	}
	sub.Status = status
	if status == subscription.StatusCancelled {
		sub.CancelledDate = sql.NullTime{Time: time.Now(), Valid: true}
	}
	return nil
}

type fakePlanRepo struct {
	plans map[int64]*subscription.Plan
}

func (r *fakePlanRepo) FindByID(ctx context.Context, id int64) (*subscription.Plan, error) {
	plan, ok := r.plans[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return plan, nil
}

func (r *fakePlanRepo) ListPublic(ctx context.Context) ([]subscription.Plan, error) {
	var out []subscription.Plan
	for _, p := range r.plans {
		if p.IsPublic {
			out = append(out, *p)
		}
	}
	return out, nil
}

func monthlyPlan() *subscription.Plan {
	return &subscription.Plan{
		ID:               5,
		Name:             "Silver Monthly",
		BillingFrequency: subscription.FrequencyMonthly,
		PaymentInterval:  subscription.IntervalMonthly,
		PaymentType:      subscription.PaymentPrepaid,
		SubscriptionFee:  dec("25.00"),
		DiscountedFee:    decimal.NullDecimal{Decimal: dec("19.00"), Valid: true},
		CommissionRate:   dec("0.0300"),
		MaxRetryAttempts: 3,
		Features:         []string{"PURCHASE_ASSETS"},
		IsPublic:         true,
		Status:           subscription.StatusActive,
	}
}

func lifecycleFixture() (*Service, *fakeSubscriptionRepo, *fakePlanRepo, *fakeDB) {
	subRepo := newFakeSubscriptionRepo()
	planRepo := &fakePlanRepo{plans: map[int64]*subscription.Plan{5: monthlyPlan()}}
	db := &fakeDB{}
	svc := NewService(subRepo, planRepo, db, zap.NewNop())
	return svc, subRepo, planRepo, db
}

func TestCreateSubscription_SnapshotsPlan(t *testing.T) {
	svc, _, _, _ := lifecycleFixture()
	start := date(2025, time.October, 13)
	expiry := date(2026, time.October, 13)

	sub, err := svc.CreateSubscription(context.Background(), 10, &subscription.CreateSubscriptionRequest{
		PlanID:     5,
		StartDate:  &start,
		ExpiryDate: &expiry,
	})
	require.NoError(t, err)

	assert.Equal(t, "Silver Monthly", sub.SubscriptionName)
	assert.True(t, sub.SubscriptionFee.Equal(dec("19.00")), "discounted fee wins")
	assert.Equal(t, []string{"PURCHASE_ASSETS"}, sub.Features)
	assert.Equal(t, 13, sub.BillingDay)
	assert.Equal(t, subscription.StatusActive, sub.Status)
	// Initial subscriptions with an expiry bill once for the whole period.
	assert.Equal(t, expiry, sub.NextBillingDate.Time)
}

func TestCreateSubscription_IntroGraceDefersFirstCharge(t *testing.T) {
	svc, _, planRepo, _ := lifecycleFixture()
	planRepo.plans[5].IntroGracePeriodDays = 14
	start := date(2025, time.October, 13)

	sub, err := svc.CreateSubscription(context.Background(), 10, &subscription.CreateSubscriptionRequest{
		PlanID:    5,
		StartDate: &start,
	})
	require.NoError(t, err)

	assert.True(t, sub.IntroGraceApplied)
	assert.Equal(t, date(2025, time.October, 27), sub.NextBillingDate.Time)
}

func TestCreateSubscription_RejectsSecondActive(t *testing.T) {
	svc, _, _, _ := lifecycleFixture()
	start := date(2025, time.October, 13)
	req := &subscription.CreateSubscriptionRequest{PlanID: 5, StartDate: &start}

	_, err := svc.CreateSubscription(context.Background(), 10, req)
	require.NoError(t, err)

	_, err = svc.CreateSubscription(context.Background(), 10, req)
	require.Error(t, err)
	assert.True(t, xerrors.IsValidation(err))
}

func TestCreateSubscription_RejectsInactivePlan(t *testing.T) {
	svc, _, planRepo, _ := lifecycleFixture()
	planRepo.plans[5].Status = subscription.StatusSuspended

	_, err := svc.CreateSubscription(context.Background(), 10, &subscription.CreateSubscriptionRequest{PlanID: 5})
	require.Error(t, err)
	assert.True(t, xerrors.IsValidation(err))
}

func TestCancelSubscription(t *testing.T) {
	svc, repo, _, _ := lifecycleFixture()
	start := date(2025, time.October, 13)
	created, err := svc.CreateSubscription(context.Background(), 10, &subscription.CreateSubscriptionRequest{
		PlanID:    5,
		StartDate: &start,
	})
	require.NoError(t, err)

	sub, err := svc.CancelSubscription(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusCancelled, sub.Status)
	assert.True(t, sub.CancelledDate.Valid)

	_, err = svc.CancelSubscription(context.Background(), created.ID)
	require.Error(t, err)
	assert.True(t, xerrors.IsValidation(err))

	// Cancelled subscriptions never show up in the scheduler's work list.
	due, err := repo.FindDue(context.Background(), date(2030, time.January, 1))
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestQueuePlanChange_DefaultsToNextBillingDate(t *testing.T) {
	svc, repo, _, _ := lifecycleFixture()
	start := date(2025, time.October, 13)
	expiry := date(2026, time.October, 13)
	created, err := svc.CreateSubscription(context.Background(), 10, &subscription.CreateSubscriptionRequest{
		PlanID:     5,
		StartDate:  &start,
		ExpiryDate: &expiry,
	})
	require.NoError(t, err)

	sub, err := svc.QueuePlanChange(context.Background(), created.ID, &subscription.PlanChangeRequest{PlanID: 5})
	require.NoError(t, err)

	assert.Equal(t, int64(5), sub.PendingPlanID.Int64)
	assert.Equal(t, expiry, sub.PendingPlanEffectiveDate.Time)

	stored, err := repo.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.True(t, stored.PendingPlanID.Valid)
}

func TestProcessChargeSuccess_PersistsAdvancedCycle(t *testing.T) {
	svc, repo, _, db := lifecycleFixture()
	start := date(2025, time.January, 21)
	expiry := date(2026, time.January, 21)
	created, err := svc.CreateSubscription(context.Background(), 10, &subscription.CreateSubscriptionRequest{
		PlanID:     5,
		StartDate:  &start,
		ExpiryDate: &expiry,
	})
	require.NoError(t, err)

	// First (and only) cycle bills at expiry.
	sub, err := svc.ProcessChargeSuccess(context.Background(), created.ID, expiry)
	require.NoError(t, err)
	require.True(t, db.tx.committed)

	assert.Equal(t, expiry, sub.LastBillingDate.Time)
	assert.Equal(t, expiry, sub.NextBillingDate.Time, "clamped to expiry")
	assert.Equal(t, 1, sub.BillingCycleCount)

	stored, err := repo.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.BillingCycleCount)
}

func TestProcessChargeFailure_PersistsRetryCount(t *testing.T) {
	svc, repo, _, db := lifecycleFixture()
	start := date(2025, time.January, 21)
	expiry := date(2026, time.January, 21)
	created, err := svc.CreateSubscription(context.Background(), 10, &subscription.CreateSubscriptionRequest{
		PlanID:     5,
		StartDate:  &start,
		ExpiryDate: &expiry,
	})
	require.NoError(t, err)

	sub, err := svc.ProcessChargeFailure(context.Background(), created.ID)
	require.NoError(t, err)
	require.True(t, db.tx.committed)
	assert.Equal(t, 1, sub.RetryCount)

	stored, err := repo.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.RetryCount)
}
