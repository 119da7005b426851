// internal/repository/postgres/metal_price_repo.go
package postgres

import (
	"context"
	"fmt"

	"sooq-service/internal/domain/pricing"
	xerrors "sooq-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MetalPriceRepository struct {
	db *pgxpool.Pool
}

func NewMetalPriceRepository(db *pgxpool.Pool) *MetalPriceRepository {
	return &MetalPriceRepository{db: db}
}

// FindMetalBySymbol resolves a global metal by its price-feed symbol.
func (r *MetalPriceRepository) FindMetalBySymbol(ctx context.Context, symbol string) (*pricing.GlobalMetal, error) {
	query := `SELECT id, name, symbol FROM global_metals WHERE symbol = $1`

	var m pricing.GlobalMetal
	err := r.db.QueryRow(ctx, query, symbol).Scan(&m.ID, &m.Name, &m.Symbol)
	if err == pgx.ErrNoRows {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find metal: %w", err)
	}
	return &m, nil
}

// LatestPrice returns the most recent recorded price for a metal.
func (r *MetalPriceRepository) LatestPrice(ctx context.Context, globalMetalID int64) (*pricing.MetalPrice, error) {
	query := `
		SELECT global_metal_id, price, price_on_date
		FROM global_metal_prices
		WHERE global_metal_id = $1
		ORDER BY price_on_date DESC
		LIMIT 1
	`

	var p pricing.MetalPrice
	err := r.db.QueryRow(ctx, query, globalMetalID).Scan(&p.GlobalMetalID, &p.Price, &p.PriceOnDate)
	if err == pgx.ErrNoRows {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest price: %w", err)
	}
	return &p, nil
}

// DefaultCurrencyRate returns the organization's default currency conversion
// rate.
func (r *MetalPriceRepository) DefaultCurrencyRate(ctx context.Context) (*pricing.CurrencyRate, error) {
	query := `SELECT code, rate FROM currency_rates WHERE is_default = TRUE LIMIT 1`

	var c pricing.CurrencyRate
	err := r.db.QueryRow(ctx, query).Scan(&c.Code, &c.Rate)
	if err == pgx.ErrNoRows {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load default currency rate: %w", err)
	}
	return &c, nil
}
