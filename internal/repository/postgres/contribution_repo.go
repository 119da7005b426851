// internal/repository/postgres/contribution_repo.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"sooq-service/internal/domain/pool"
	xerrors "sooq-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type ContributionRepository struct {
	db *pgxpool.Pool
}

func NewContributionRepository(db *pgxpool.Pool) *ContributionRepository {
	return &ContributionRepository{db: db}
}

const contributionColumns = `
	id, pool_id, participant_id, weight, status, fund_status,
	approved_at, created_at, updated_at
`

func scanContribution(row pgx.Row) (*pool.Contribution, error) {
	var c pool.Contribution
	err := row.Scan(
		&c.ID, &c.PoolID, &c.ParticipantID, &c.Weight, &c.Status, &c.FundStatus,
		&c.ApprovedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan contribution: %w", err)
	}
	return &c, nil
}

// FindByID retrieves a contribution by ID.
func (r *ContributionRepository) FindByID(ctx context.Context, id int64) (*pool.Contribution, error) {
	query := `SELECT ` + contributionColumns + ` FROM pool_contributions WHERE id = $1`
	return scanContribution(r.db.QueryRow(ctx, query, id))
}

// ListPendingByPool lists the pool's still-pending contributions.
func (r *ContributionRepository) ListPendingByPool(ctx context.Context, poolID int64) ([]pool.Contribution, error) {
	query := `
		SELECT ` + contributionColumns + `
		FROM pool_contributions
		WHERE pool_id = $1 AND status = 'pending'
		ORDER BY created_at, id
	`

	rows, err := r.db.Query(ctx, query, poolID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending contributions: %w", err)
	}
	defer rows.Close()

	var out []pool.Contribution
	for rows.Next() {
		c, err := scanContribution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// contributionLines loads asset contribution rows joined with their purchase
// request's material attributes, filtered by contribution status.
func (r *ContributionRepository) contributionLines(ctx context.Context, poolID int64, statuses []string) ([]pool.ContributionLine, error) {
	query := `
		SELECT ac.quantity,
		       pr.material_type,
		       COALESCE(mi.name, '') AS material_item_name,
		       COALESCE(ct.name, '') AS carat_type_name,
		       COALESCE(cs.name, '') AS shape_cut_name,
		       COALESCE(pr.item_weight, 0) AS weight_per_unit
		FROM pool_asset_contributions ac
		JOIN pool_contributions pc ON pc.id = ac.pool_contribution_id
		JOIN purchase_requests pr ON pr.id = ac.purchase_request_id
		LEFT JOIN material_items mi ON mi.id = pr.material_item_id
		LEFT JOIN carat_types ct ON ct.id = pr.carat_type_id
		LEFT JOIN cut_shapes cs ON cs.id = pr.cut_shape_id
		WHERE pc.pool_id = $1 AND ac.status = ANY($2)
	`

	rows, err := r.db.Query(ctx, query, poolID, statuses)
	if err != nil {
		return nil, fmt.Errorf("failed to load contribution lines: %w", err)
	}
	defer rows.Close()

	var lines []pool.ContributionLine
	for rows.Next() {
		var l pool.ContributionLine
		if err := rows.Scan(
			&l.Quantity, &l.MaterialType, &l.ItemName, &l.CaratName,
			&l.ShapeName, &l.WeightPerUnit,
		); err != nil {
			return nil, fmt.Errorf("failed to scan contribution line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// ApprovedLines loads the lines that count toward the pool target.
func (r *ContributionRepository) ApprovedLines(ctx context.Context, poolID int64) ([]pool.ContributionLine, error) {
	return r.contributionLines(ctx, poolID, []string{
		string(pool.ContributionApproved), string(pool.ContributionAdminApproved),
	})
}

// PendingLines loads the lines of contributions still awaiting a decision.
func (r *ContributionRepository) PendingLines(ctx context.Context, poolID int64) ([]pool.ContributionLine, error) {
	return r.contributionLines(ctx, poolID, []string{string(pool.ContributionPending)})
}

// SumAssetQuantities totals the declared unit quantities of the given asset
// contributions. Scoped to one parent contribution so ids belonging to other
// contributions never count toward its total.
func (r *ContributionRepository) SumAssetQuantities(ctx context.Context, contributionID int64, assetContributionIDs []int64) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(quantity), 0)
		FROM pool_asset_contributions
		WHERE id = ANY($1) AND pool_contribution_id = $2
	`

	var total decimal.Decimal
	if err := r.db.QueryRow(ctx, query, assetContributionIDs, contributionID).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum asset quantities: %w", err)
	}
	return total, nil
}

// PurchaseRequestIDs lists the purchase requests backing a contribution's
// asset line items.
func (r *ContributionRepository) PurchaseRequestIDs(ctx context.Context, contributionID int64) ([]int64, error) {
	query := `SELECT purchase_request_id FROM pool_asset_contributions WHERE pool_contribution_id = $1`

	rows, err := r.db.Query(ctx, query, contributionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchase requests: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan purchase request id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateStatusWithTx moves a contribution to its decided status. A nil
// approvedAt clears the approval timestamp.
func (r *ContributionRepository) UpdateStatusWithTx(ctx context.Context, tx pgx.Tx, id int64, status pool.ContributionStatus, approvedAt *time.Time) error {
	query := `
		UPDATE pool_contributions
		SET status = $1, approved_at = $2, updated_at = NOW()
		WHERE id = $3
	`

	tag, err := tx.Exec(ctx, query, status, approvedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update contribution status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// UpdateAssetStatusesWithTx sets the status on the given asset contributions,
// touching only rows under the named parent contribution.
func (r *ContributionRepository) UpdateAssetStatusesWithTx(ctx context.Context, tx pgx.Tx, contributionID int64, assetContributionIDs []int64, status pool.ContributionStatus) error {
	query := `
		UPDATE pool_asset_contributions
		SET status = $1
		WHERE id = ANY($2) AND pool_contribution_id = $3
	`

	if _, err := tx.Exec(ctx, query, status, assetContributionIDs, contributionID); err != nil {
		return fmt.Errorf("failed to update asset contribution statuses: %w", err)
	}
	return nil
}

// RejectAssetsForContributionWithTx cascades a rejection to every not-yet
// rejected asset line of the contribution.
func (r *ContributionRepository) RejectAssetsForContributionWithTx(ctx context.Context, tx pgx.Tx, contributionID int64) error {
	query := `
		UPDATE pool_asset_contributions
		SET status = 'rejected'
		WHERE pool_contribution_id = $1 AND status <> 'rejected'
	`

	if _, err := tx.Exec(ctx, query, contributionID); err != nil {
		return fmt.Errorf("failed to reject asset contributions: %w", err)
	}
	return nil
}
