package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"sooq-service/internal/domain/pricing"
	xerrors "sooq-service/internal/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

type fakePriceRepo struct {
	metal *pricing.GlobalMetal
	price *pricing.MetalPrice
	rate  *pricing.CurrencyRate
}

func (r *fakePriceRepo) FindMetalBySymbol(ctx context.Context, symbol string) (*pricing.GlobalMetal, error) {
	if r.metal == nil || r.metal.Symbol != symbol {
		return nil, xerrors.ErrNotFound
	}
	return r.metal, nil
}

func (r *fakePriceRepo) LatestPrice(ctx context.Context, globalMetalID int64) (*pricing.MetalPrice, error) {
	if r.price == nil {
		return nil, xerrors.ErrNotFound
	}
	return r.price, nil
}

func (r *fakePriceRepo) DefaultCurrencyRate(ctx context.Context) (*pricing.CurrencyRate, error) {
	if r.rate == nil {
		return nil, xerrors.ErrNotFound
	}
	return r.rate, nil
}

func newPricingService(repo *fakePriceRepo) *Service {
	return NewService(repo, nil, zap.NewNop())
}

func goldRepo() *fakePriceRepo {
	return &fakePriceRepo{
		metal: &pricing.GlobalMetal{ID: 1, Name: "Gold", Symbol: "XAU"},
		price: &pricing.MetalPrice{GlobalMetalID: 1, Price: dec("100"), PriceOnDate: time.Now()},
		rate:  &pricing.CurrencyRate{Code: "SAR", Rate: dec("3.75")},
	}
}

func TestLivePricePerGram(t *testing.T) {
	svc := newPricingService(goldRepo())

	t.Run("pure metal", func(t *testing.T) {
		price, err := svc.LivePricePerGram(context.Background(), "XAU", 24)
		require.NoError(t, err)
		assert.True(t, price.Equal(dec("375.00")), "got %s", price)
	})

	t.Run("scales by purity", func(t *testing.T) {
		// 22/24 * 100 * 3.75 = 343.75
		price, err := svc.LivePricePerGram(context.Background(), "XAU", 22)
		require.NoError(t, err)
		assert.True(t, price.Equal(dec("343.75")), "got %s", price)
	})

	t.Run("rounds to two decimals", func(t *testing.T) {
		// 18/24 * 100 * 3.333 = 249.975 -> 249.98
		svc := newPricingService(&fakePriceRepo{
			metal: &pricing.GlobalMetal{ID: 1, Symbol: "XAU"},
			price: &pricing.MetalPrice{GlobalMetalID: 1, Price: dec("100")},
			rate:  &pricing.CurrencyRate{Code: "SAR", Rate: dec("3.333")},
		})
		price, err := svc.LivePricePerGram(context.Background(), "XAU", 18)
		require.NoError(t, err)
		assert.True(t, price.Equal(dec("249.98")), "got %s", price)
	})
}

func TestLivePricePerGram_ValidatesCarat(t *testing.T) {
	svc := newPricingService(goldRepo())

	for _, carat := range []int64{0, -1, 25} {
		_, err := svc.LivePricePerGram(context.Background(), "XAU", carat)
		require.Error(t, err, "carat %d", carat)
		assert.True(t, xerrors.IsValidation(err))
	}
}

func TestLivePricePerGram_WrapsFetchFailures(t *testing.T) {
	tests := []struct {
		name string
		repo *fakePriceRepo
	}{
		{"unknown symbol", &fakePriceRepo{}},
		{"no recorded price", &fakePriceRepo{metal: &pricing.GlobalMetal{ID: 1, Symbol: "XAU"}}},
		{"no currency rate", &fakePriceRepo{
			metal: &pricing.GlobalMetal{ID: 1, Symbol: "XAU"},
			price: &pricing.MetalPrice{GlobalMetalID: 1, Price: dec("100")},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newPricingService(tt.repo).LivePricePerGram(context.Background(), "XAU", 24)
			require.Error(t, err)

			var fetchErr *PriceFetchError
			require.True(t, errors.As(err, &fetchErr))
			assert.Equal(t, "XAU", fetchErr.Symbol)
			assert.True(t, errors.Is(err, xerrors.ErrNotFound))
		})
	}
}
