// internal/repository/postgres/profit_distribution_repo.go
package postgres

import (
	"context"
	"fmt"

	"sooq-service/internal/domain/sale"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProfitDistributionRepository struct {
	db *pgxpool.Pool
}

func NewProfitDistributionRepository(db *pgxpool.Pool) *ProfitDistributionRepository {
	return &ProfitDistributionRepository{db: db}
}

// InsertWithTx creates a distribution row within the caller's transaction.
func (r *ProfitDistributionRepository) InsertWithTx(ctx context.Context, tx pgx.Tx, d *sale.ProfitDistribution) error {
	query := `
		INSERT INTO profit_distributions (
			jewelry_sale_id, musharakah_contract_id,
			recipient_business_id, recipient_type,
			cost_of_repurchasing_metal, revenue,
			profit_share_percentage, profit_amount, transaction_amount,
			distributed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	err := tx.QueryRow(
		ctx, query,
		d.SaleID, d.MusharakahContractID,
		d.RecipientBusinessID, d.RecipientType,
		d.CostOfRepurchasingMetal, d.Revenue,
		d.ProfitSharePercentage, d.ProfitAmount, d.TransactionAmount,
		d.DistributedAt,
	).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("failed to insert profit distribution: %w", err)
	}
	return nil
}

// ListBySale lists a sale's distribution rows.
func (r *ProfitDistributionRepository) ListBySale(ctx context.Context, saleID int64) ([]sale.ProfitDistribution, error) {
	query := `
		SELECT id, jewelry_sale_id, musharakah_contract_id,
		       recipient_business_id, recipient_type,
		       cost_of_repurchasing_metal, revenue,
		       profit_share_percentage, profit_amount, transaction_amount,
		       distributed_at
		FROM profit_distributions
		WHERE jewelry_sale_id = $1
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query, saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list profit distributions: %w", err)
	}
	defer rows.Close()

	var out []sale.ProfitDistribution
	for rows.Next() {
		var d sale.ProfitDistribution
		if err := rows.Scan(
			&d.ID, &d.SaleID, &d.MusharakahContractID,
			&d.RecipientBusinessID, &d.RecipientType,
			&d.CostOfRepurchasingMetal, &d.Revenue,
			&d.ProfitSharePercentage, &d.ProfitAmount, &d.TransactionAmount,
			&d.DistributedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan profit distribution: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
