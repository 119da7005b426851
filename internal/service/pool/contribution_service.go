// internal/service/pool/contribution_service.go
package pool

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"sooq-service/internal/domain/pool"
	xerrors "sooq-service/internal/pkg/errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DecideContribution applies an admin decision to a pending contribution.
// APPROVED assigns the investor's physical units to the pool, ADMIN_APPROVED
// marks the intermediate confirmation without unit assignment, and REJECTED
// releases any units previously taken. The whole transition is one
// transaction; the post-decision fulfillment check runs after commit.
func (s *Service) DecideContribution(ctx context.Context, contributionID int64, req *pool.ContributionDecisionRequest) (*pool.Contribution, error) {
	c, err := s.contributionRepo.FindByID(ctx, contributionID)
	if err != nil {
		return nil, err
	}

	switch c.Status {
	case pool.ContributionApproved:
		return nil, xerrors.Validationf("contribution %d is already approved", c.ID)
	case pool.ContributionRejected:
		return nil, xerrors.Validationf("contribution %d is already rejected", c.ID)
	}

	p, err := s.poolRepo.FindByID(ctx, c.PoolID)
	if err != nil {
		return nil, err
	}
	if p.IsSettled() {
		return nil, xerrors.Validationf("pool %d is settled; contributions can no longer change", p.ID)
	}

	switch req.Status {
	case pool.ContributionApproved:
		err = s.approve(ctx, c, req)
	case pool.ContributionAdminApproved:
		err = s.adminApprove(ctx, c, req)
	case pool.ContributionRejected:
		err = s.reject(ctx, c)
	default:
		return nil, xerrors.Validationf("unsupported contribution status %q", req.Status)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("contribution decided",
		zap.Int64("contribution_id", c.ID),
		zap.Int64("pool_id", p.ID),
		zap.String("status", string(c.Status)),
	)

	// The decision is committed at this point. A failing fulfillment check
	// must not make the caller believe the decision itself failed, so it
	// degrades to a warning; the next decision or reconcile retries it.
	if err := s.afterDecision(ctx, p.ID); err != nil {
		s.logger.Warn("post-decision pool check failed",
			zap.Int64("pool_id", p.ID),
			zap.Error(err),
		)
	}
	s.notifier.ContributionDecided(ctx, c, p)
	return c, nil
}

// approve validates the unit payload against the contribution's asset line
// items, then links the units to the pool. Validation failures leave the
// contribution untouched.
func (s *Service) approve(ctx context.Context, c *pool.Contribution, req *pool.ContributionDecisionRequest) error {
	if len(req.PreciousItemUnits) == 0 {
		return xerrors.Validationf("approval requires the precious item units being contributed")
	}

	declared, err := s.contributionRepo.SumAssetQuantities(ctx, c.ID, req.AssetContributionIDs)
	if err != nil {
		return fmt.Errorf("failed to sum asset quantities: %w", err)
	}
	if !declared.Equal(decimal.NewFromInt(int64(len(req.PreciousItemUnits)))) {
		return xerrors.Validationf(
			"unit count mismatch: %d units provided but the selected asset contributions declare %s",
			len(req.PreciousItemUnits), declared.String(),
		)
	}

	if err := s.checkSerials(ctx, req.PreciousItemUnits); err != nil {
		return err
	}

	unitIDs := make([]int64, 0, len(req.PreciousItemUnits))
	for _, u := range req.PreciousItemUnits {
		unitIDs = append(unitIDs, u.ID)
	}
	eligible, err := s.unitRepo.FindEligible(ctx, unitIDs, c.ParticipantID)
	if err != nil {
		return fmt.Errorf("failed to load precious item units: %w", err)
	}
	if len(eligible) != len(unitIDs) {
		return xerrors.Validationf("some precious item units were not found or are not available for this participant")
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// The assign update only takes units still unlinked, so a concurrent
	// approval naming the same unit wins at most once. A shortfall means
	// someone else got there first; roll the whole decision back.
	assigned, err := s.unitRepo.AssignToPoolWithTx(ctx, tx, c.PoolID, req.PreciousItemUnits)
	if err != nil {
		return fmt.Errorf("failed to assign units to pool: %w", err)
	}
	if assigned != int64(len(req.PreciousItemUnits)) {
		return xerrors.Validationf("some precious item units were taken by another pool; approval aborted")
	}

	now := time.Now().UTC()
	if err := s.contributionRepo.UpdateStatusWithTx(ctx, tx, c.ID, pool.ContributionApproved, &now); err != nil {
		return fmt.Errorf("failed to update contribution status: %w", err)
	}
	if len(req.AssetContributionIDs) > 0 {
		if err := s.contributionRepo.UpdateAssetStatusesWithTx(ctx, tx, c.ID, req.AssetContributionIDs, pool.ContributionApproved); err != nil {
			return fmt.Errorf("failed to update asset contribution statuses: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	c.Status = pool.ContributionApproved
	c.ApprovedAt = sql.NullTime{Time: now, Valid: true}
	return nil
}

// adminApprove records the intermediate confirmation. Units are not linked
// yet; that happens on final approval.
func (s *Service) adminApprove(ctx context.Context, c *pool.Contribution, req *pool.ContributionDecisionRequest) error {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	if err := s.contributionRepo.UpdateStatusWithTx(ctx, tx, c.ID, pool.ContributionAdminApproved, &now); err != nil {
		return fmt.Errorf("failed to update contribution status: %w", err)
	}
	if len(req.AssetContributionIDs) > 0 {
		if err := s.contributionRepo.UpdateAssetStatusesWithTx(ctx, tx, c.ID, req.AssetContributionIDs, pool.ContributionAdminApproved); err != nil {
			return fmt.Errorf("failed to update asset contribution statuses: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	c.Status = pool.ContributionAdminApproved
	c.ApprovedAt = sql.NullTime{Time: now, Valid: true}
	return nil
}

// reject releases the units held for this contribution's purchase requests
// and cascades the rejection to its asset line items. Units are matched by
// purchase request, participant and pool; a participant with two
// contributions from the same purchase request has both released together.
func (s *Service) reject(ctx context.Context, c *pool.Contribution) error {
	purchaseRequestIDs, err := s.contributionRepo.PurchaseRequestIDs(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("failed to load purchase requests: %w", err)
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if len(purchaseRequestIDs) > 0 {
		if err := s.unitRepo.ReleaseFromPoolWithTx(ctx, tx, c.PoolID, purchaseRequestIDs, c.ParticipantID); err != nil {
			return fmt.Errorf("failed to release units: %w", err)
		}
	}
	if err := s.contributionRepo.UpdateStatusWithTx(ctx, tx, c.ID, pool.ContributionRejected, nil); err != nil {
		return fmt.Errorf("failed to update contribution status: %w", err)
	}
	if err := s.contributionRepo.RejectAssetsForContributionWithTx(ctx, tx, c.ID); err != nil {
		return fmt.Errorf("failed to reject asset contributions: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	c.Status = pool.ContributionRejected
	c.ApprovedAt = sql.NullTime{}
	return nil
}

// checkSerials rejects duplicate serial numbers within the request and
// serials already taken by other units.
func (s *Service) checkSerials(ctx context.Context, units []pool.UnitAssignment) error {
	seen := make(map[string]struct{}, len(units))
	serials := make([]string, 0, len(units))
	unitIDs := make([]int64, 0, len(units))
	for _, u := range units {
		unitIDs = append(unitIDs, u.ID)
		if u.SystemSerialNumber == nil || *u.SystemSerialNumber == "" {
			continue
		}
		serial := *u.SystemSerialNumber
		if _, dup := seen[serial]; dup {
			return xerrors.Validationf("duplicate serial number %q in request", serial)
		}
		seen[serial] = struct{}{}
		serials = append(serials, serial)
	}
	if len(serials) == 0 {
		return nil
	}

	conflicts, err := s.unitRepo.SerialConflicts(ctx, serials, unitIDs)
	if err != nil {
		return fmt.Errorf("failed to check serial numbers: %w", err)
	}
	if len(conflicts) > 0 {
		return xerrors.Validationf("serial numbers already in use: %s", strings.Join(conflicts, ", "))
	}
	return nil
}

// afterDecision runs the fulfillment check: a fulfilled open pool closes and
// its remaining pending contributions are rejected in bulk; an open pool with
// capacity left and no pending queue triggers the opportunity notification.
func (s *Service) afterDecision(ctx context.Context, poolID int64) error {
	p, err := s.poolRepo.FindByID(ctx, poolID)
	if err != nil {
		return err
	}

	remaining, err := s.RemainingTarget(ctx, p)
	if err != nil {
		return err
	}

	if remaining.Fulfilled() && p.Status == pool.StatusOpen {
		if err := s.poolRepo.UpdateStatus(ctx, p.ID, pool.StatusClosed); err != nil {
			return fmt.Errorf("failed to close pool: %w", err)
		}
		p.Status = pool.StatusClosed
		s.logger.Info("pool target fulfilled, pool closed", zap.Int64("pool_id", p.ID))
	}

	if p.Status != pool.StatusOpen {
		return s.rejectPending(ctx, p)
	}

	pending, err := s.contributionRepo.ListPendingByPool(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("failed to list pending contributions: %w", err)
	}
	if len(pending) == 0 {
		if w := remaining.TotalRemainingWeight(); w.IsPositive() {
			s.notifier.PoolOpportunity(ctx, p, w)
		}
	}
	return nil
}

// rejectPending rejects every still-pending contribution of a closed pool.
// Pending contributions never held units, so there is nothing to release.
func (s *Service) rejectPending(ctx context.Context, p *pool.Pool) error {
	pending, err := s.contributionRepo.ListPendingByPool(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("failed to list pending contributions: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for i := range pending {
		if err := s.contributionRepo.UpdateStatusWithTx(ctx, tx, pending[i].ID, pool.ContributionRejected, nil); err != nil {
			return fmt.Errorf("failed to reject contribution %d: %w", pending[i].ID, err)
		}
		if err := s.contributionRepo.RejectAssetsForContributionWithTx(ctx, tx, pending[i].ID); err != nil {
			return fmt.Errorf("failed to reject asset contributions for %d: %w", pending[i].ID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("rejected pending contributions for closed pool",
		zap.Int64("pool_id", p.ID),
		zap.Int("count", len(pending)),
	)
	return nil
}
