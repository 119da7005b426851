// internal/service/pricing/pricing_service.go
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sooq-service/internal/domain/pricing"
	xerrors "sooq-service/internal/pkg/errors"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	priceCacheKeyPrefix = "metal_price:"
	priceCacheTTL       = 5 * time.Minute
)

var carat24 = decimal.NewFromInt(24)

// PriceFetchError reports a failed live-price lookup for one metal symbol.
// Callers surface a generic message to clients while the wrapped cause stays
// in the logs.
type PriceFetchError struct {
	Symbol string
	Err    error
}

func (e *PriceFetchError) Error() string {
	return fmt.Sprintf("failed to fetch live price for %s: %v", e.Symbol, e.Err)
}

func (e *PriceFetchError) Unwrap() error { return e.Err }

// MetalPriceRepository resolves metals and their latest recorded prices.
type MetalPriceRepository interface {
	FindMetalBySymbol(ctx context.Context, symbol string) (*pricing.GlobalMetal, error)
	LatestPrice(ctx context.Context, globalMetalID int64) (*pricing.MetalPrice, error)
	DefaultCurrencyRate(ctx context.Context) (*pricing.CurrencyRate, error)
}

type Service struct {
	repo   MetalPriceRepository
	cache  *redis.Client
	logger *zap.Logger
}

func NewService(repo MetalPriceRepository, cache *redis.Client, logger *zap.Logger) *Service {
	return &Service{repo: repo, cache: cache, logger: logger}
}

type cachedPrice struct {
	Price string `json:"price"`
	Rate  string `json:"rate"`
}

// LivePricePerGram returns the current local-currency price of one gram of
// the given metal at the given purity. The base feed quotes pure (24 carat)
// metal, so the price scales by carat/24 and then by the default currency
// rate, rounded to two decimals.
func (s *Service) LivePricePerGram(ctx context.Context, symbol string, carat int64) (decimal.Decimal, error) {
	if carat <= 0 || carat > 24 {
		return decimal.Zero, xerrors.Validationf("carat must be between 1 and 24, got %d", carat)
	}

	base, rate, err := s.basePrice(ctx, symbol)
	if err != nil {
		return decimal.Zero, &PriceFetchError{Symbol: symbol, Err: err}
	}

	price := decimal.NewFromInt(carat).
		Div(carat24).
		Mul(base).
		Mul(rate).
		Round(2)
	return price, nil
}

// basePrice returns the pure-metal feed price and the currency rate, from
// cache when fresh.
func (s *Service) basePrice(ctx context.Context, symbol string) (decimal.Decimal, decimal.Decimal, error) {
	key := priceCacheKeyPrefix + symbol

	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key).Result(); err == nil {
			var c cachedPrice
			if err := json.Unmarshal([]byte(raw), &c); err == nil {
				price, perr := decimal.NewFromString(c.Price)
				rate, rerr := decimal.NewFromString(c.Rate)
				if perr == nil && rerr == nil {
					return price, rate, nil
				}
			}
			s.logger.Warn("discarding malformed cached price", zap.String("symbol", symbol))
		}
	}

	metal, err := s.repo.FindMetalBySymbol(ctx, symbol)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("metal not found: %w", err)
	}
	latest, err := s.repo.LatestPrice(ctx, metal.ID)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("no price recorded: %w", err)
	}
	rate, err := s.repo.DefaultCurrencyRate(ctx)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("no default currency rate: %w", err)
	}

	if s.cache != nil {
		raw, _ := json.Marshal(cachedPrice{Price: latest.Price.String(), Rate: rate.Rate.String()})
		if err := s.cache.Set(ctx, key, raw, priceCacheTTL).Err(); err != nil {
			s.logger.Warn("failed to cache metal price", zap.String("symbol", symbol), zap.Error(err))
		}
	}
	return latest.Price, rate.Rate, nil
}
