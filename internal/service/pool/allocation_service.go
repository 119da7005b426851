// internal/service/pool/allocation_service.go
package pool

import (
	"context"
	"fmt"
	"time"

	"sooq-service/internal/domain/pool"
	xerrors "sooq-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PoolRepository loads pools and the aggregated bill of materials for a
// contract-linked pool.
type PoolRepository interface {
	FindByID(ctx context.Context, id int64) (*pool.Pool, error)
	ListActive(ctx context.Context) ([]pool.Pool, error)
	UpdateStatus(ctx context.Context, id int64, status pool.Status) error
	MaterialRequirements(ctx context.Context, contractRequestID int64) ([]pool.MaterialRequirement, error)
}

// ContributionRepository covers contributions and their asset line items.
type ContributionRepository interface {
	FindByID(ctx context.Context, id int64) (*pool.Contribution, error)
	ApprovedLines(ctx context.Context, poolID int64) ([]pool.ContributionLine, error)
	PendingLines(ctx context.Context, poolID int64) ([]pool.ContributionLine, error)
	SumAssetQuantities(ctx context.Context, contributionID int64, assetContributionIDs []int64) (decimal.Decimal, error)
	PurchaseRequestIDs(ctx context.Context, contributionID int64) ([]int64, error)
	ListPendingByPool(ctx context.Context, poolID int64) ([]pool.Contribution, error)
	UpdateStatusWithTx(ctx context.Context, tx pgx.Tx, id int64, status pool.ContributionStatus, approvedAt *time.Time) error
	UpdateAssetStatusesWithTx(ctx context.Context, tx pgx.Tx, contributionID int64, assetContributionIDs []int64, status pool.ContributionStatus) error
	RejectAssetsForContributionWithTx(ctx context.Context, tx pgx.Tx, contributionID int64) error
}

// UnitRepository manages precious-item unit linkage to pools.
type UnitRepository interface {
	FindEligible(ctx context.Context, unitIDs []int64, participantID int64) ([]pool.PreciousItemUnit, error)
	SerialConflicts(ctx context.Context, serials []string, excludeUnitIDs []int64) ([]string, error)
	AssignToPoolWithTx(ctx context.Context, tx pgx.Tx, poolID int64, assignments []pool.UnitAssignment) (int64, error)
	ReleaseFromPoolWithTx(ctx context.Context, tx pgx.Tx, poolID int64, purchaseRequestIDs []int64, participantID int64) error
}

// Notifier fans decision outcomes out to interested users. Fire and forget:
// failures are logged by the implementation, never propagated.
type Notifier interface {
	ContributionDecided(ctx context.Context, c *pool.Contribution, p *pool.Pool)
	PoolOpportunity(ctx context.Context, p *pool.Pool, remainingWeight decimal.Decimal)
}

// DB begins transactions. Satisfied by *postgres.DB.
type DB interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
}

type Service struct {
	poolRepo         PoolRepository
	contributionRepo ContributionRepository
	unitRepo         UnitRepository
	notifier         Notifier
	db               DB
	logger           *zap.Logger
}

func NewService(
	poolRepo PoolRepository,
	contributionRepo ContributionRepository,
	unitRepo UnitRepository,
	notifier Notifier,
	db DB,
	logger *zap.Logger,
) *Service {
	return &Service{
		poolRepo:         poolRepo,
		contributionRepo: contributionRepo,
		unitRepo:         unitRepo,
		notifier:         notifier,
		db:               db,
		logger:           logger,
	}
}

// RemainingTarget computes how much of the pool's target is still
// uncontributed. Pools without a contract request return the simple numeric
// remainder; contract-linked pools return the itemized per-bucket remainder
// built from the contract's bill of materials. Only APPROVED/ADMIN_APPROVED
// contributions count.
func (s *Service) RemainingTarget(ctx context.Context, p *pool.Pool) (pool.RemainingTarget, error) {
	if p.IsSettled() {
		return pool.RemainingTarget{}, xerrors.Validationf("pool %d is settled; its target is frozen", p.ID)
	}

	if !p.ContractRequestID.Valid {
		lines, err := s.contributionRepo.ApprovedLines(ctx, p.ID)
		if err != nil {
			return pool.RemainingTarget{}, fmt.Errorf("failed to load approved contributions: %w", err)
		}
		total := decimal.Zero
		for _, l := range lines {
			if l.WeightPerUnit.IsZero() {
				continue
			}
			total = total.Add(l.TotalWeight())
		}
		return pool.RemainingTarget{Simple: &pool.SimpleTarget{TotalRemaining: p.Target.Sub(total)}}, nil
	}

	requirements, err := s.poolRepo.MaterialRequirements(ctx, p.ContractRequestID.Int64)
	if err != nil {
		return pool.RemainingTarget{}, fmt.Errorf("failed to load material requirements: %w", err)
	}

	itemized := pool.NewItemizedTarget()
	for _, r := range requirements {
		switch r.MaterialType {
		case pool.MaterialMetal:
			itemized.AddMetal(r.ItemName, r.CaratName, r.TotalRequiredWeight)
		case pool.MaterialStone:
			itemized.AddStone(r.ItemName, r.ShapeName, r.WeightPerUnit, r.TotalRequiredWeight)
		}
	}

	lines, err := s.contributionRepo.ApprovedLines(ctx, p.ID)
	if err != nil {
		return pool.RemainingTarget{}, fmt.Errorf("failed to load approved contributions: %w", err)
	}
	for _, l := range lines {
		if l.ItemName == "" || l.WeightPerUnit.IsZero() {
			continue
		}
		switch l.MaterialType {
		case pool.MaterialMetal:
			itemized.SubtractMetal(l.ItemName, l.CaratName, l.Quantity, l.WeightPerUnit)
		case pool.MaterialStone:
			itemized.SubtractStone(l.ItemName, l.ShapeName, l.Quantity, l.WeightPerUnit)
		}
	}

	return pool.RemainingTarget{Itemized: itemized}, nil
}

// ActualRemainingForUser is the remainder after counting every PENDING
// contribution from every investor, floored at zero. It decides whether the
// minimum-contribution rule can be waived: when pending contributions would
// already satisfy the remainder, a new investor may top the pool off with
// less than the stated minimum. Only simple pools have this view; itemized
// pools return nil.
func (s *Service) ActualRemainingForUser(ctx context.Context, p *pool.Pool) (*pool.SimpleTarget, error) {
	remaining, err := s.RemainingTarget(ctx, p)
	if err != nil {
		return nil, err
	}
	if remaining.Simple == nil {
		return nil, nil
	}

	lines, err := s.contributionRepo.PendingLines(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending contributions: %w", err)
	}
	pendingWeight := decimal.Zero
	for _, l := range lines {
		if l.WeightPerUnit.IsZero() {
			continue
		}
		pendingWeight = pendingWeight.Add(l.TotalWeight())
	}

	actual := remaining.Simple.TotalRemaining.Sub(pendingWeight)
	if actual.IsNegative() {
		actual = decimal.Zero
	}
	return &pool.SimpleTarget{TotalRemaining: actual}, nil
}

// PoolDetails loads a pool together with its computed remainders.
func (s *Service) PoolDetails(ctx context.Context, poolID int64) (*pool.PoolDetailsResponse, error) {
	p, err := s.poolRepo.FindByID(ctx, poolID)
	if err != nil {
		return nil, err
	}

	remaining, err := s.RemainingTarget(ctx, p)
	if err != nil {
		return nil, err
	}
	actual, err := s.ActualRemainingForUser(ctx, p)
	if err != nil {
		return nil, err
	}

	return &pool.PoolDetailsResponse{
		Pool:                   p,
		RemainingTarget:        remaining,
		ActualRemainingForUser: actual,
	}, nil
}

// ListActivePools lists the active pools.
func (s *Service) ListActivePools(ctx context.Context) ([]pool.Pool, error) {
	pools, err := s.poolRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pools: %w", err)
	}
	return pools, nil
}

// ReconcilePoolStatus re-evaluates an OPEN pool after its target or
// participation window changed: fulfilled pools close, pools past their
// participation deadline close, everything else stays open.
func (s *Service) ReconcilePoolStatus(ctx context.Context, poolID int64, now time.Time) (*pool.Pool, error) {
	p, err := s.poolRepo.FindByID(ctx, poolID)
	if err != nil {
		return nil, err
	}
	if p.IsSettled() {
		return nil, xerrors.Validationf("pool %d is settled; status transitions are frozen", p.ID)
	}

	remaining, err := s.RemainingTarget(ctx, p)
	if err != nil {
		return nil, err
	}

	status := pool.StatusOpen
	switch {
	case remaining.Fulfilled():
		status = pool.StatusClosed
	case p.ParticipationDuration.Valid:
		deadline := p.CreatedAt.AddDate(0, int(p.ParticipationDuration.Int64), 0)
		if !now.Before(deadline) {
			status = pool.StatusClosed
		}
	}

	if status != p.Status {
		if err := s.poolRepo.UpdateStatus(ctx, p.ID, status); err != nil {
			return nil, fmt.Errorf("failed to update pool status: %w", err)
		}
		p.Status = status
		s.logger.Info("pool status reconciled",
			zap.Int64("pool_id", p.ID),
			zap.String("status", string(status)),
		)
	}
	return p, nil
}
