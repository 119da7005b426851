// internal/repository/postgres/pool_repo.go
package postgres

import (
	"context"
	"fmt"

	"sooq-service/internal/domain/pool"
	xerrors "sooq-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PoolRepository struct {
	db *pgxpool.Pool
}

func NewPoolRepository(db *pgxpool.Pool) *PoolRepository {
	return &PoolRepository{db: db}
}

const poolColumns = `
	id, name, musharakah_contract_request_id, material_type,
	material_item_id, carat_type_id, cut_shape_id,
	target, status, is_active,
	expected_return_percentage, management_fee_rate, performance_fee_rate,
	minimum_investment_grams_per_participant, participation_duration,
	approved_at, created_at, updated_at
`

func scanPool(row pgx.Row) (*pool.Pool, error) {
	var p pool.Pool
	err := row.Scan(
		&p.ID, &p.Name, &p.ContractRequestID, &p.MaterialType,
		&p.MaterialItemID, &p.CaratTypeID, &p.CutShapeID,
		&p.Target, &p.Status, &p.IsActive,
		&p.ExpectedReturnPercentage, &p.ManagementFeeRate, &p.PerformanceFeeRate,
		&p.MinimumInvestmentGrams, &p.ParticipationDuration,
		&p.ApprovedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan pool: %w", err)
	}
	return &p, nil
}

// FindByID retrieves a pool by ID.
func (r *PoolRepository) FindByID(ctx context.Context, id int64) (*pool.Pool, error) {
	query := `SELECT ` + poolColumns + ` FROM pools WHERE id = $1`
	return scanPool(r.db.QueryRow(ctx, query, id))
}

// ListActive lists active pools ordered by creation.
func (r *PoolRepository) ListActive(ctx context.Context) ([]pool.Pool, error) {
	query := `SELECT ` + poolColumns + ` FROM pools WHERE is_active = TRUE ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list pools: %w", err)
	}
	defer rows.Close()

	var pools []pool.Pool
	for rows.Next() {
		p, err := scanPool(rows)
		if err != nil {
			return nil, err
		}
		pools = append(pools, *p)
	}
	return pools, rows.Err()
}

// UpdateStatus transitions a pool's lifecycle status.
func (r *PoolRepository) UpdateStatus(ctx context.Context, id int64, status pool.Status) error {
	query := `UPDATE pools SET status = $1, updated_at = NOW() WHERE id = $2`

	tag, err := r.db.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update pool status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// MaterialRequirements aggregates the bill of materials of a contract
// request: each product's material rows multiplied by the requested quantity,
// grouped per (type, item, carat | shape + unit weight).
func (r *PoolRepository) MaterialRequirements(ctx context.Context, contractRequestID int64) ([]pool.MaterialRequirement, error) {
	query := `
		SELECT pm.material_type,
		       mi.name AS material_item_name,
		       COALESCE(ct.name, '') AS carat_type_name,
		       COALESCE(cs.name, '') AS shape_cut_name,
		       pm.weight,
		       SUM(pm.weight * rp.quantity) AS total_required_weight
		FROM musharakah_contract_request_products rp
		JOIN product_materials pm ON pm.jewelry_product_id = rp.jewelry_product_id
		JOIN material_items mi ON mi.id = pm.material_item_id
		LEFT JOIN carat_types ct ON ct.id = pm.carat_type_id
		LEFT JOIN cut_shapes cs ON cs.id = pm.cut_shape_id
		WHERE rp.musharakah_contract_request_id = $1
		GROUP BY pm.material_type, mi.name, ct.name, cs.name, pm.weight
	`

	rows, err := r.db.Query(ctx, query, contractRequestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load material requirements: %w", err)
	}
	defer rows.Close()

	var requirements []pool.MaterialRequirement
	for rows.Next() {
		var m pool.MaterialRequirement
		if err := rows.Scan(
			&m.MaterialType, &m.ItemName, &m.CaratName, &m.ShapeName,
			&m.WeightPerUnit, &m.TotalRequiredWeight,
		); err != nil {
			return nil, fmt.Errorf("failed to scan material requirement: %w", err)
		}
		requirements = append(requirements, m)
	}
	return requirements, rows.Err()
}
