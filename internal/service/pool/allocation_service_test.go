package pool

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"sooq-service/internal/domain/pool"
	xerrors "sooq-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(ctx context.Context) error   { t.committed = true; return nil }
func (t *fakeTx) Rollback(ctx context.Context) error { t.rolledBack = true; return nil }

type fakeDB struct {
	txs []*fakeTx
}

func (d *fakeDB) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx := &fakeTx{}
	d.txs = append(d.txs, tx)
	return tx, nil
}

type fakePoolRepo struct {
	pools         map[int64]*pool.Pool
	requirements  []pool.MaterialRequirement
	statusUpdates []pool.Status
}

func (r *fakePoolRepo) FindByID(ctx context.Context, id int64) (*pool.Pool, error) {
	p, ok := r.pools[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return p, nil
}

func (r *fakePoolRepo) ListActive(ctx context.Context) ([]pool.Pool, error) {
	var out []pool.Pool
	for _, p := range r.pools {
		out = append(out, *p)
	}
	return out, nil
}

func (r *fakePoolRepo) UpdateStatus(ctx context.Context, id int64, status pool.Status) error {
	r.statusUpdates = append(r.statusUpdates, status)
	r.pools[id].Status = status
	return nil
}

func (r *fakePoolRepo) MaterialRequirements(ctx context.Context, contractRequestID int64) ([]pool.MaterialRequirement, error) {
	return r.requirements, nil
}

type statusUpdate struct {
	contributionID int64
	status         pool.ContributionStatus
}

type fakeAsset struct {
	contributionID int64
	quantity       decimal.Decimal
}

type fakeContributionRepo struct {
	contributions    map[int64]*pool.Contribution
	approvedLines    []pool.ContributionLine
	approvedLinesErr error
	pendingLines     []pool.ContributionLine
	assets           map[int64]fakeAsset
	purchaseIDs      []int64
	pending          []pool.Contribution

	statusUpdates  []statusUpdate
	assetStatuses  []pool.ContributionStatus
	rejectedAssets []int64
}

func (r *fakeContributionRepo) FindByID(ctx context.Context, id int64) (*pool.Contribution, error) {
	c, ok := r.contributions[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return c, nil
}

func (r *fakeContributionRepo) ApprovedLines(ctx context.Context, poolID int64) ([]pool.ContributionLine, error) {
	if r.approvedLinesErr != nil {
		return nil, r.approvedLinesErr
	}
	return r.approvedLines, nil
}

func (r *fakeContributionRepo) PendingLines(ctx context.Context, poolID int64) ([]pool.ContributionLine, error) {
	return r.pendingLines, nil
}

func (r *fakeContributionRepo) SumAssetQuantities(ctx context.Context, contributionID int64, ids []int64) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, id := range ids {
		if a, ok := r.assets[id]; ok && a.contributionID == contributionID {
			total = total.Add(a.quantity)
		}
	}
	return total, nil
}

func (r *fakeContributionRepo) PurchaseRequestIDs(ctx context.Context, contributionID int64) ([]int64, error) {
	return r.purchaseIDs, nil
}

func (r *fakeContributionRepo) ListPendingByPool(ctx context.Context, poolID int64) ([]pool.Contribution, error) {
	return r.pending, nil
}

func (r *fakeContributionRepo) UpdateStatusWithTx(ctx context.Context, tx pgx.Tx, id int64, status pool.ContributionStatus, approvedAt *time.Time) error {
	r.statusUpdates = append(r.statusUpdates, statusUpdate{contributionID: id, status: status})
	return nil
}

func (r *fakeContributionRepo) UpdateAssetStatusesWithTx(ctx context.Context, tx pgx.Tx, contributionID int64, ids []int64, status pool.ContributionStatus) error {
	r.assetStatuses = append(r.assetStatuses, status)
	return nil
}

func (r *fakeContributionRepo) RejectAssetsForContributionWithTx(ctx context.Context, tx pgx.Tx, contributionID int64) error {
	r.rejectedAssets = append(r.rejectedAssets, contributionID)
	return nil
}

type releaseCall struct {
	poolID        int64
	purchaseIDs   []int64
	participantID int64
}

type fakeUnitRepo struct {
	eligible        []pool.PreciousItemUnit
	serialConflicts []string
	held            map[int64]bool
	assigned        []pool.UnitAssignment
	released        []releaseCall
}

func (r *fakeUnitRepo) FindEligible(ctx context.Context, unitIDs []int64, participantID int64) ([]pool.PreciousItemUnit, error) {
	return r.eligible, nil
}

func (r *fakeUnitRepo) SerialConflicts(ctx context.Context, serials []string, excludeUnitIDs []int64) ([]string, error) {
	return r.serialConflicts, nil
}

func (r *fakeUnitRepo) AssignToPoolWithTx(ctx context.Context, tx pgx.Tx, poolID int64, assignments []pool.UnitAssignment) (int64, error) {
	if r.held == nil {
		r.held = make(map[int64]bool)
	}
	var assigned int64
	for _, a := range assignments {
		if r.held[a.ID] {
			continue
		}
		r.held[a.ID] = true
		r.assigned = append(r.assigned, a)
		assigned++
	}
	return assigned, nil
}

func (r *fakeUnitRepo) ReleaseFromPoolWithTx(ctx context.Context, tx pgx.Tx, poolID int64, purchaseRequestIDs []int64, participantID int64) error {
	r.released = append(r.released, releaseCall{poolID: poolID, purchaseIDs: purchaseRequestIDs, participantID: participantID})
	return nil
}

type fakeNotifier struct {
	decided       []int64
	opportunities []decimal.Decimal
}

func (n *fakeNotifier) ContributionDecided(ctx context.Context, c *pool.Contribution, p *pool.Pool) {
	n.decided = append(n.decided, c.ID)
}

func (n *fakeNotifier) PoolOpportunity(ctx context.Context, p *pool.Pool, remainingWeight decimal.Decimal) {
	n.opportunities = append(n.opportunities, remainingWeight)
}

type fixture struct {
	svc      *Service
	pools    *fakePoolRepo
	contribs *fakeContributionRepo
	units    *fakeUnitRepo
	notifier *fakeNotifier
	db       *fakeDB
}

func newFixture() *fixture {
	f := &fixture{
		pools:    &fakePoolRepo{pools: make(map[int64]*pool.Pool)},
		contribs: &fakeContributionRepo{contributions: make(map[int64]*pool.Contribution)},
		units:    &fakeUnitRepo{},
		notifier: &fakeNotifier{},
		db:       &fakeDB{},
	}
	f.svc = NewService(f.pools, f.contribs, f.units, f.notifier, f.db, zap.NewNop())
	return f
}

func simplePool(target string) *pool.Pool {
	return &pool.Pool{
		ID:        1,
		Name:      "Gold Pool",
		Target:    dec(target),
		Status:    pool.StatusOpen,
		IsActive:  true,
		CreatedAt: time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
	}
}

func contractPool() *pool.Pool {
	p := simplePool("0")
	p.ContractRequestID = sql.NullInt64{Int64: 9, Valid: true}
	return p
}

func line(qty, weight string, mt pool.MaterialType, item, carat, shape string) pool.ContributionLine {
	return pool.ContributionLine{
		Quantity:      dec(qty),
		MaterialType:  mt,
		ItemName:      item,
		CaratName:     carat,
		ShapeName:     shape,
		WeightPerUnit: dec(weight),
	}
}

func TestRemainingTarget_Simple(t *testing.T) {
	f := newFixture()
	p := simplePool("100")
	f.contribs.approvedLines = []pool.ContributionLine{
		line("1", "30", pool.MaterialMetal, "Gold", "22K", ""),
		line("2", "20", pool.MaterialMetal, "Gold", "22K", ""),
	}
	// A pending 30g contribution exists but must not count.
	f.contribs.pendingLines = []pool.ContributionLine{
		line("1", "30", pool.MaterialMetal, "Gold", "22K", ""),
	}

	remaining, err := f.svc.RemainingTarget(context.Background(), p)
	require.NoError(t, err)
	require.NotNil(t, remaining.Simple)
	assert.Nil(t, remaining.Itemized)
	assert.True(t, remaining.Simple.TotalRemaining.Equal(dec("30")), "got %s", remaining.Simple.TotalRemaining)
}

func TestRemainingTarget_SimpleKeepsNegativeRemainder(t *testing.T) {
	f := newFixture()
	p := simplePool("50")
	f.contribs.approvedLines = []pool.ContributionLine{
		line("1", "80", pool.MaterialMetal, "Gold", "24K", ""),
	}

	remaining, err := f.svc.RemainingTarget(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, remaining.Simple.TotalRemaining.Equal(dec("-30")))
	assert.True(t, remaining.Fulfilled())
}

func TestRemainingTarget_Itemized(t *testing.T) {
	f := newFixture()
	p := contractPool()
	f.pools.requirements = []pool.MaterialRequirement{
		{MaterialType: pool.MaterialMetal, ItemName: "Gold", CaratName: "22K", TotalRequiredWeight: dec("50")},
		{MaterialType: pool.MaterialStone, ItemName: "Diamond", ShapeName: "Round", WeightPerUnit: dec("2"), TotalRequiredWeight: dec("10")},
	}
	f.contribs.approvedLines = []pool.ContributionLine{
		line("2", "10", pool.MaterialMetal, "Gold", "22K", ""),
		line("2", "2", pool.MaterialStone, "Diamond", "", "Round"),
	}

	remaining, err := f.svc.RemainingTarget(context.Background(), p)
	require.NoError(t, err)
	require.NotNil(t, remaining.Itemized)

	// 50g required minus 20g contributed.
	assert.True(t, remaining.Itemized.Metal["Gold"]["22K"].Equal(dec("30.00")))
	// 10 carats at 2 per unit is 5 units; 2 contributed leaves 3.
	assert.Equal(t, 3, remaining.Itemized.Stone["Diamond"]["Round"]["2.00"])
	assert.False(t, remaining.Fulfilled())
}

func TestRemainingTarget_ItemizedFloorsAtZero(t *testing.T) {
	f := newFixture()
	p := contractPool()
	f.pools.requirements = []pool.MaterialRequirement{
		{MaterialType: pool.MaterialMetal, ItemName: "Gold", CaratName: "22K", TotalRequiredWeight: dec("50")},
	}
	f.contribs.approvedLines = []pool.ContributionLine{
		line("7", "10", pool.MaterialMetal, "Gold", "22K", ""),
	}

	remaining, err := f.svc.RemainingTarget(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, remaining.Itemized.Metal["Gold"]["22K"].IsZero())
	assert.True(t, remaining.Fulfilled())
}

func TestRemainingTarget_SettledPoolIsFrozen(t *testing.T) {
	f := newFixture()
	p := simplePool("100")
	p.Status = pool.StatusSettled

	_, err := f.svc.RemainingTarget(context.Background(), p)
	require.Error(t, err)
	assert.True(t, xerrors.IsValidation(err))
}

func TestActualRemainingForUser(t *testing.T) {
	f := newFixture()
	p := simplePool("100")
	f.contribs.approvedLines = []pool.ContributionLine{
		line("1", "70", pool.MaterialMetal, "Gold", "22K", ""),
	}

	t.Run("subtracts pending weight", func(t *testing.T) {
		f.contribs.pendingLines = []pool.ContributionLine{
			line("1", "10", pool.MaterialMetal, "Gold", "22K", ""),
		}
		actual, err := f.svc.ActualRemainingForUser(context.Background(), p)
		require.NoError(t, err)
		assert.True(t, actual.TotalRemaining.Equal(dec("20")))
	})

	t.Run("floors at zero", func(t *testing.T) {
		f.contribs.pendingLines = []pool.ContributionLine{
			line("1", "10", pool.MaterialMetal, "Gold", "22K", ""),
			line("1", "25", pool.MaterialMetal, "Gold", "22K", ""),
		}
		actual, err := f.svc.ActualRemainingForUser(context.Background(), p)
		require.NoError(t, err)
		assert.True(t, actual.TotalRemaining.IsZero())
	})

	t.Run("nil for itemized pools", func(t *testing.T) {
		f2 := newFixture()
		actual, err := f2.svc.ActualRemainingForUser(context.Background(), contractPool())
		require.NoError(t, err)
		assert.Nil(t, actual)
	})
}

func serial(s string) *string { return &s }

func approvalFixture() (*fixture, *pool.Contribution) {
	f := newFixture()
	f.pools.pools[1] = simplePool("100")
	c := &pool.Contribution{ID: 5, PoolID: 1, ParticipantID: 42, Status: pool.ContributionPending}
	f.contribs.contributions[5] = c
	return f, c
}

func TestDecideContribution_Approve(t *testing.T) {
	f, _ := approvalFixture()
	f.contribs.assets = map[int64]fakeAsset{21: {contributionID: 5, quantity: dec("2")}}
	f.units.eligible = []pool.PreciousItemUnit{{ID: 11}, {ID: 12}}
	f.contribs.approvedLines = []pool.ContributionLine{
		line("1", "40", pool.MaterialMetal, "Gold", "22K", ""),
	}

	req := &pool.ContributionDecisionRequest{
		Status: pool.ContributionApproved,
		PreciousItemUnits: []pool.UnitAssignment{
			{ID: 11, SystemSerialNumber: serial("SN-001")},
			{ID: 12, SystemSerialNumber: serial("SN-002")},
		},
		AssetContributionIDs: []int64{21},
	}

	got, err := f.svc.DecideContribution(context.Background(), 5, req)
	require.NoError(t, err)

	assert.Equal(t, pool.ContributionApproved, got.Status)
	assert.True(t, got.ApprovedAt.Valid)
	assert.Len(t, f.units.assigned, 2)
	assert.Equal(t, []pool.ContributionStatus{pool.ContributionApproved}, f.contribs.assetStatuses)
	require.Len(t, f.db.txs, 1)
	assert.True(t, f.db.txs[0].committed)
	assert.Equal(t, []int64{5}, f.notifier.decided)

	// Pool still has 60g of capacity and no pending queue: investors are told.
	require.Len(t, f.notifier.opportunities, 1)
	assert.True(t, f.notifier.opportunities[0].Equal(dec("60")))
}

func TestDecideContribution_Approve_UnitCountMismatch(t *testing.T) {
	f, c := approvalFixture()
	f.contribs.assets = map[int64]fakeAsset{21: {contributionID: 5, quantity: dec("3")}}

	req := &pool.ContributionDecisionRequest{
		Status: pool.ContributionApproved,
		PreciousItemUnits: []pool.UnitAssignment{
			{ID: 11}, {ID: 12},
		},
		AssetContributionIDs: []int64{21},
	}

	_, err := f.svc.DecideContribution(context.Background(), 5, req)
	require.Error(t, err)
	assert.True(t, xerrors.IsValidation(err))

	// Nothing moved.
	assert.Equal(t, pool.ContributionPending, c.Status)
	assert.Empty(t, f.units.assigned)
	assert.Empty(t, f.db.txs)
}

func TestDecideContribution_Approve_RequiresUnits(t *testing.T) {
	f, _ := approvalFixture()

	_, err := f.svc.DecideContribution(context.Background(), 5, &pool.ContributionDecisionRequest{
		Status: pool.ContributionApproved,
	})
	require.Error(t, err)
	assert.True(t, xerrors.IsValidation(err))
}

func TestDecideContribution_Approve_DuplicateSerialInRequest(t *testing.T) {
	f, _ := approvalFixture()
	f.contribs.assets = map[int64]fakeAsset{21: {contributionID: 5, quantity: dec("2")}}

	_, err := f.svc.DecideContribution(context.Background(), 5, &pool.ContributionDecisionRequest{
		Status: pool.ContributionApproved,
		PreciousItemUnits: []pool.UnitAssignment{
			{ID: 11, SystemSerialNumber: serial("SN-001")},
			{ID: 12, SystemSerialNumber: serial("SN-001")},
		},
		AssetContributionIDs: []int64{21},
	})
	require.Error(t, err)
	assert.True(t, xerrors.IsValidation(err))
	assert.Empty(t, f.db.txs)
}

func TestDecideContribution_Approve_SerialTaken(t *testing.T) {
	f, _ := approvalFixture()
	f.contribs.assets = map[int64]fakeAsset{21: {contributionID: 5, quantity: dec("1")}}
	f.units.serialConflicts = []string{"SN-001"}

	_, err := f.svc.DecideContribution(context.Background(), 5, &pool.ContributionDecisionRequest{
		Status: pool.ContributionApproved,
		PreciousItemUnits: []pool.UnitAssignment{
			{ID: 11, SystemSerialNumber: serial("SN-001")},
		},
		AssetContributionIDs: []int64{21},
	})
	require.Error(t, err)
	assert.True(t, xerrors.IsValidation(err))
}

func TestDecideContribution_Approve_IneligibleUnits(t *testing.T) {
	f, _ := approvalFixture()
	f.contribs.assets = map[int64]fakeAsset{21: {contributionID: 5, quantity: dec("2")}}
	f.units.eligible = []pool.PreciousItemUnit{{ID: 11}}

	_, err := f.svc.DecideContribution(context.Background(), 5, &pool.ContributionDecisionRequest{
		Status:               pool.ContributionApproved,
		PreciousItemUnits:    []pool.UnitAssignment{{ID: 11}, {ID: 12}},
		AssetContributionIDs: []int64{21},
	})
	require.Error(t, err)
	assert.True(t, xerrors.IsValidation(err))
	assert.Empty(t, f.db.txs)
}

func TestDecideContribution_Approve_UnitTakenConcurrently(t *testing.T) {
	f, c := approvalFixture()
	f.contribs.assets = map[int64]fakeAsset{21: {contributionID: 5, quantity: dec("2")}}
	f.units.eligible = []pool.PreciousItemUnit{{ID: 11}, {ID: 12}}
	// Unit 12 was grabbed by another approval between the eligibility read
	// and the assignment update.
	f.units.held = map[int64]bool{12: true}

	_, err := f.svc.DecideContribution(context.Background(), 5, &pool.ContributionDecisionRequest{
		Status:               pool.ContributionApproved,
		PreciousItemUnits:    []pool.UnitAssignment{{ID: 11}, {ID: 12}},
		AssetContributionIDs: []int64{21},
	})
	require.Error(t, err)
	assert.True(t, xerrors.IsValidation(err))

	// The whole decision rolls back: no approval, no asset status change.
	assert.Equal(t, pool.ContributionPending, c.Status)
	assert.Empty(t, f.contribs.assetStatuses)
	require.Len(t, f.db.txs, 1)
	assert.False(t, f.db.txs[0].committed)
	assert.True(t, f.db.txs[0].rolledBack)
}

func TestDecideContribution_Approve_ForeignAssetIDsDoNotCount(t *testing.T) {
	f, c := approvalFixture()
	// Asset 99 belongs to another contribution; its quantity must not satisfy
	// this contribution's unit count.
	f.contribs.assets = map[int64]fakeAsset{99: {contributionID: 6, quantity: dec("2")}}
	f.units.eligible = []pool.PreciousItemUnit{{ID: 11}, {ID: 12}}

	_, err := f.svc.DecideContribution(context.Background(), 5, &pool.ContributionDecisionRequest{
		Status:               pool.ContributionApproved,
		PreciousItemUnits:    []pool.UnitAssignment{{ID: 11}, {ID: 12}},
		AssetContributionIDs: []int64{99},
	})
	require.Error(t, err)
	assert.True(t, xerrors.IsValidation(err))
	assert.Equal(t, pool.ContributionPending, c.Status)
	assert.Empty(t, f.units.assigned)
	assert.Empty(t, f.db.txs)
}

func TestDecideContribution_AlreadyDecided(t *testing.T) {
	f, c := approvalFixture()

	c.Status = pool.ContributionApproved
	_, err := f.svc.DecideContribution(context.Background(), 5, &pool.ContributionDecisionRequest{Status: pool.ContributionRejected})
	require.Error(t, err)
	assert.True(t, xerrors.IsValidation(err))

	c.Status = pool.ContributionRejected
	_, err = f.svc.DecideContribution(context.Background(), 5, &pool.ContributionDecisionRequest{Status: pool.ContributionApproved})
	require.Error(t, err)
	assert.True(t, xerrors.IsValidation(err))
}

func TestDecideContribution_AdminApprove(t *testing.T) {
	f, _ := approvalFixture()
	f.contribs.approvedLines = []pool.ContributionLine{
		line("1", "40", pool.MaterialMetal, "Gold", "22K", ""),
	}

	got, err := f.svc.DecideContribution(context.Background(), 5, &pool.ContributionDecisionRequest{
		Status:               pool.ContributionAdminApproved,
		AssetContributionIDs: []int64{21},
	})
	require.NoError(t, err)

	assert.Equal(t, pool.ContributionAdminApproved, got.Status)
	assert.True(t, got.ApprovedAt.Valid)
	// No units change hands until final approval.
	assert.Empty(t, f.units.assigned)
	assert.Equal(t, []pool.ContributionStatus{pool.ContributionAdminApproved}, f.contribs.assetStatuses)
}

func TestDecideContribution_Reject(t *testing.T) {
	f, c := approvalFixture()
	c.Status = pool.ContributionAdminApproved
	c.ApprovedAt = sql.NullTime{Time: time.Now(), Valid: true}
	f.contribs.purchaseIDs = []int64{31, 32}

	got, err := f.svc.DecideContribution(context.Background(), 5, &pool.ContributionDecisionRequest{
		Status: pool.ContributionRejected,
	})
	require.NoError(t, err)

	assert.Equal(t, pool.ContributionRejected, got.Status)
	assert.False(t, got.ApprovedAt.Valid)
	require.Len(t, f.units.released, 1)
	assert.Equal(t, releaseCall{poolID: 1, purchaseIDs: []int64{31, 32}, participantID: 42}, f.units.released[0])
	assert.Equal(t, []int64{5}, f.contribs.rejectedAssets)
}

func TestDecideContribution_FulfillmentClosesPoolAndRejectsPending(t *testing.T) {
	f, _ := approvalFixture()
	f.contribs.assets = map[int64]fakeAsset{21: {contributionID: 5, quantity: dec("1")}}
	f.units.eligible = []pool.PreciousItemUnit{{ID: 11}}
	f.contribs.approvedLines = []pool.ContributionLine{
		line("1", "100", pool.MaterialMetal, "Gold", "22K", ""),
	}
	f.contribs.pending = []pool.Contribution{
		{ID: 6, PoolID: 1, Status: pool.ContributionPending},
		{ID: 7, PoolID: 1, Status: pool.ContributionPending},
	}

	_, err := f.svc.DecideContribution(context.Background(), 5, &pool.ContributionDecisionRequest{
		Status:               pool.ContributionApproved,
		PreciousItemUnits:    []pool.UnitAssignment{{ID: 11}},
		AssetContributionIDs: []int64{21},
	})
	require.NoError(t, err)

	assert.Equal(t, []pool.Status{pool.StatusClosed}, f.pools.statusUpdates)
	assert.Equal(t, pool.StatusClosed, f.pools.pools[1].Status)

	// The queued contributions are rejected along with their asset lines, and
	// nobody is invited into a closed pool.
	var rejected []int64
	for _, u := range f.contribs.statusUpdates {
		if u.status == pool.ContributionRejected {
			rejected = append(rejected, u.contributionID)
		}
	}
	assert.Equal(t, []int64{6, 7}, rejected)
	assert.Equal(t, []int64{6, 7}, f.contribs.rejectedAssets)
	assert.Empty(t, f.notifier.opportunities)
}

func TestDecideContribution_NoOpportunityWhilePendingQueueExists(t *testing.T) {
	f, _ := approvalFixture()
	f.contribs.assets = map[int64]fakeAsset{21: {contributionID: 5, quantity: dec("1")}}
	f.units.eligible = []pool.PreciousItemUnit{{ID: 11}}
	f.contribs.approvedLines = []pool.ContributionLine{
		line("1", "40", pool.MaterialMetal, "Gold", "22K", ""),
	}
	f.contribs.pending = []pool.Contribution{
		{ID: 6, PoolID: 1, Status: pool.ContributionPending},
	}

	_, err := f.svc.DecideContribution(context.Background(), 5, &pool.ContributionDecisionRequest{
		Status:               pool.ContributionApproved,
		PreciousItemUnits:    []pool.UnitAssignment{{ID: 11}},
		AssetContributionIDs: []int64{21},
	})
	require.NoError(t, err)

	assert.Empty(t, f.notifier.opportunities)
	assert.Equal(t, pool.StatusOpen, f.pools.pools[1].Status)
}

func TestDecideContribution_FulfillmentCheckFailureDoesNotUndoDecision(t *testing.T) {
	f, c := approvalFixture()
	f.contribs.assets = map[int64]fakeAsset{21: {contributionID: 5, quantity: dec("1")}}
	f.units.eligible = []pool.PreciousItemUnit{{ID: 11}}
	f.contribs.approvedLinesErr = fmt.Errorf("connection reset")

	got, err := f.svc.DecideContribution(context.Background(), 5, &pool.ContributionDecisionRequest{
		Status:               pool.ContributionApproved,
		PreciousItemUnits:    []pool.UnitAssignment{{ID: 11}},
		AssetContributionIDs: []int64{21},
	})
	require.NoError(t, err, "the decision committed; a failing fulfillment check is a warning")

	assert.Equal(t, pool.ContributionApproved, got.Status)
	assert.Equal(t, pool.ContributionApproved, c.Status)
	require.Len(t, f.db.txs, 1)
	assert.True(t, f.db.txs[0].committed)
	assert.Equal(t, []int64{5}, f.notifier.decided)
}

func TestReconcilePoolStatus(t *testing.T) {
	now := time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC)

	t.Run("closes fulfilled pool", func(t *testing.T) {
		f := newFixture()
		f.pools.pools[1] = simplePool("100")
		f.contribs.approvedLines = []pool.ContributionLine{
			line("1", "100", pool.MaterialMetal, "Gold", "22K", ""),
		}
		p, err := f.svc.ReconcilePoolStatus(context.Background(), 1, now)
		require.NoError(t, err)
		assert.Equal(t, pool.StatusClosed, p.Status)
	})

	t.Run("closes pool past participation window", func(t *testing.T) {
		f := newFixture()
		p := simplePool("100")
		p.ParticipationDuration = sql.NullInt64{Int64: 2, Valid: true}
		f.pools.pools[1] = p

		got, err := f.svc.ReconcilePoolStatus(context.Background(), 1, now)
		require.NoError(t, err)
		assert.Equal(t, pool.StatusClosed, got.Status)
	})

	t.Run("reopens unfulfilled pool inside window", func(t *testing.T) {
		f := newFixture()
		p := simplePool("100")
		p.Status = pool.StatusClosed
		p.ParticipationDuration = sql.NullInt64{Int64: 6, Valid: true}
		f.pools.pools[1] = p

		got, err := f.svc.ReconcilePoolStatus(context.Background(), 1, now)
		require.NoError(t, err)
		assert.Equal(t, pool.StatusOpen, got.Status)
	})

	t.Run("settled pool is frozen", func(t *testing.T) {
		f := newFixture()
		p := simplePool("100")
		p.Status = pool.StatusSettled
		f.pools.pools[1] = p

		_, err := f.svc.ReconcilePoolStatus(context.Background(), 1, now)
		require.Error(t, err)
		assert.True(t, xerrors.IsValidation(err))
	})
}
