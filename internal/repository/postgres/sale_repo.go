// internal/repository/postgres/sale_repo.go
package postgres

import (
	"context"
	"fmt"

	"sooq-service/internal/domain/sale"
	xerrors "sooq-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type StockSaleRepository struct {
	db *pgxpool.Pool
}

func NewStockSaleRepository(db *pgxpool.Pool) *StockSaleRepository {
	return &StockSaleRepository{db: db}
}

const saleColumns = `
	id, manufacturing_request_id, jewelry_product_id, quantity,
	sale_price, sale_date, customer_name, notes, created_at
`

func scanSale(row pgx.Row) (*sale.StockSale, error) {
	var s sale.StockSale
	err := row.Scan(
		&s.ID, &s.ManufacturingRequestID, &s.JewelryProductID, &s.Quantity,
		&s.SalePrice, &s.SaleDate, &s.CustomerName, &s.Notes, &s.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan sale: %w", err)
	}
	return &s, nil
}

// InsertWithTx creates a sale row within the caller's transaction.
func (r *StockSaleRepository) InsertWithTx(ctx context.Context, tx pgx.Tx, s *sale.StockSale) error {
	query := `
		INSERT INTO jewelry_stock_sales (
			manufacturing_request_id, jewelry_product_id, quantity,
			sale_price, sale_date, customer_name, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := tx.QueryRow(
		ctx, query,
		s.ManufacturingRequestID, s.JewelryProductID, s.Quantity,
		s.SalePrice, s.SaleDate, s.CustomerName, s.Notes,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert sale: %w", err)
	}
	return nil
}

// FindByID retrieves a sale by ID.
func (r *StockSaleRepository) FindByID(ctx context.Context, id int64) (*sale.StockSale, error) {
	query := `SELECT ` + saleColumns + ` FROM jewelry_stock_sales WHERE id = $1`
	return scanSale(r.db.QueryRow(ctx, query, id))
}

// ListByManufacturingRequest lists all sales of a manufacturing request.
func (r *StockSaleRepository) ListByManufacturingRequest(ctx context.Context, manufacturingRequestID int64) ([]sale.StockSale, error) {
	query := `
		SELECT ` + saleColumns + `
		FROM jewelry_stock_sales
		WHERE manufacturing_request_id = $1
		ORDER BY sale_date DESC, id DESC
	`

	rows, err := r.db.Query(ctx, query, manufacturingRequestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	defer rows.Close()

	var sales []sale.StockSale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, *s)
	}
	return sales, rows.Err()
}
