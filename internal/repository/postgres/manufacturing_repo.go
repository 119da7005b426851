// internal/repository/postgres/manufacturing_repo.go
package postgres

import (
	"context"
	"fmt"

	"sooq-service/internal/domain/sale"
	xerrors "sooq-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ManufacturingRepository struct {
	db *pgxpool.Pool
}

func NewManufacturingRepository(db *pgxpool.Pool) *ManufacturingRepository {
	return &ManufacturingRepository{db: db}
}

// Payment resolves how a manufacturing request was funded.
func (r *ManufacturingRepository) Payment(ctx context.Context, manufacturingRequestID int64) (*sale.ManufacturingPayment, error) {
	query := `
		SELECT manufacturing_request_id, payment_type, musharakah_contract_id
		FROM manufacturing_payments
		WHERE manufacturing_request_id = $1
	`

	var p sale.ManufacturingPayment
	err := r.db.QueryRow(ctx, query, manufacturingRequestID).Scan(
		&p.ManufacturingRequestID, &p.PaymentType, &p.MusharakahContractID,
	)
	if err == pgx.ErrNoRows {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load manufacturing payment: %w", err)
	}
	return &p, nil
}

// Contract loads a musharakah contract with its equity split.
func (r *ManufacturingRepository) Contract(ctx context.Context, contractID int64) (*sale.MusharakahContract, error) {
	query := `
		SELECT id, jeweler_id, investor_id, musharakah_equity
		FROM musharakah_contracts
		WHERE id = $1
	`

	var c sale.MusharakahContract
	err := r.db.QueryRow(ctx, query, contractID).Scan(
		&c.ID, &c.JewelerID, &c.InvestorID, &c.Equity,
	)
	if err == pgx.ErrNoRows {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load musharakah contract: %w", err)
	}
	return &c, nil
}

// Product loads the requested quantity and cost basis of one product within
// a manufacturing request.
func (r *ManufacturingRepository) Product(ctx context.Context, manufacturingRequestID, jewelryProductID int64) (*sale.ManufacturingProduct, error) {
	query := `
		SELECT manufacturing_request_id, jewelry_product_id, quantity,
		       metal_amount, estimated_price
		FROM manufacturing_request_products
		WHERE manufacturing_request_id = $1 AND jewelry_product_id = $2
	`

	var p sale.ManufacturingProduct
	err := r.db.QueryRow(ctx, query, manufacturingRequestID, jewelryProductID).Scan(
		&p.ManufacturingRequestID, &p.JewelryProductID, &p.Quantity,
		&p.MetalAmount, &p.EstimatedPrice,
	)
	if err == pgx.ErrNoRows {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load manufacturing product: %w", err)
	}
	return &p, nil
}

// Targets lists the extra-material allocations of a hybrid-funded request.
func (r *ManufacturingRepository) Targets(ctx context.Context, manufacturingRequestID int64) ([]sale.ManufacturingTarget, error) {
	query := `
		SELECT manufacturing_request_id, material_item_id, carat_type_id,
		       metal_amount, requested_quantity
		FROM manufacturing_targets
		WHERE manufacturing_request_id = $1
	`

	rows, err := r.db.Query(ctx, query, manufacturingRequestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list manufacturing targets: %w", err)
	}
	defer rows.Close()

	var targets []sale.ManufacturingTarget
	for rows.Next() {
		var t sale.ManufacturingTarget
		if err := rows.Scan(
			&t.ManufacturingRequestID, &t.MaterialItemID, &t.CaratTypeID,
			&t.MetalAmount, &t.RequestedQuantity,
		); err != nil {
			return nil, fmt.Errorf("failed to scan manufacturing target: %w", err)
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// JewelerBusinessID resolves the jeweler business behind a manufacturing
// request.
func (r *ManufacturingRepository) JewelerBusinessID(ctx context.Context, manufacturingRequestID int64) (int64, error) {
	query := `SELECT business_id FROM manufacturing_requests WHERE id = $1`

	var businessID int64
	err := r.db.QueryRow(ctx, query, manufacturingRequestID).Scan(&businessID)
	if err == pgx.ErrNoRows {
		return 0, xerrors.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve jeweler business: %w", err)
	}
	return businessID, nil
}
