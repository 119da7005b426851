package profit

import (
	"database/sql"
	"testing"

	"sooq-service/internal/domain/sale"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

// Two of ten requested units sold at 1500. Metal cost 2x100=200,
// manufacturing cost 1500/10*2=300, profit 1000.
func musharakahFacts() SaleFacts {
	return SaleFacts{
		Quantity:           2,
		SalePrice:          dec("1500"),
		Source:             sale.SourceMusharakah,
		JewelerBusinessID:  100,
		MetalAmountPerUnit: dec("100"),
		EstimatedPrice:     dec("1500"),
		RequestedQuantity:  10,
		Contract: &sale.MusharakahContract{
			ID:         3,
			JewelerID:  sql.NullInt64{Int64: 100, Valid: true},
			InvestorID: sql.NullInt64{Int64: 200, Valid: true},
			Equity:     dec("60"),
		},
	}
}

func byRecipient(t *testing.T, ds []sale.ProfitDistribution, recipientType string) sale.ProfitDistribution {
	t.Helper()
	for _, d := range ds {
		if d.RecipientType == recipientType {
			return d
		}
	}
	t.Fatalf("no %s distribution in %+v", recipientType, ds)
	return sale.ProfitDistribution{}
}

func TestSaleFacts_Costs(t *testing.T) {
	f := musharakahFacts()

	assert.True(t, f.MetalCost().Equal(dec("200")))
	assert.True(t, f.ManufacturingCost().Equal(dec("300")))
	assert.True(t, f.Profit().Equal(dec("1000")))
}

func TestCalculateDistributions_Musharakah(t *testing.T) {
	ds := CalculateDistributions(musharakahFacts())
	require.Len(t, ds, 2)

	investor := byRecipient(t, ds, sale.RecipientInvestor)
	assert.Equal(t, int64(200), investor.RecipientBusinessID)
	assert.True(t, investor.ProfitAmount.Equal(dec("600")), "60%% of 1000")
	// Profit share plus the metal cost the investor fronted.
	assert.True(t, investor.TransactionAmount.Equal(dec("800")))
	assert.True(t, investor.ProfitSharePercentage.Equal(dec("60")))
	assert.True(t, investor.CostOfRepurchasingMetal.Equal(dec("200")))

	jeweler := byRecipient(t, ds, sale.RecipientJeweler)
	assert.Equal(t, int64(100), jeweler.RecipientBusinessID)
	assert.True(t, jeweler.ProfitAmount.Equal(dec("400")))
	// Profit share plus the manufacturing cost.
	assert.True(t, jeweler.TransactionAmount.Equal(dec("700")))
	assert.True(t, jeweler.ProfitSharePercentage.Equal(dec("40")))
}

func TestCalculateDistributions_CashAndAsset(t *testing.T) {
	for _, source := range []sale.MaterialSource{sale.SourceCash, sale.SourceAsset} {
		t.Run(string(source), func(t *testing.T) {
			f := musharakahFacts()
			f.Source = source
			f.Contract = nil

			ds := CalculateDistributions(f)
			require.Len(t, ds, 1)
			assert.Equal(t, sale.RecipientJeweler, ds[0].RecipientType)
			assert.Equal(t, int64(100), ds[0].RecipientBusinessID)
			assert.True(t, ds[0].ProfitAmount.Equal(dec("1000")))
			assert.True(t, ds[0].ProfitSharePercentage.Equal(dec("100")))
			// The jeweler keeps the whole sale price.
			assert.True(t, ds[0].TransactionAmount.Equal(dec("1500")))
		})
	}
}

func TestCalculateDistributions_HybridDeductsAdditionalMaterial(t *testing.T) {
	f := musharakahFacts()
	f.Source = sale.SourceMusharakahAndAsset
	f.AdditionalMaterialPrice = dec("100")

	ds := CalculateDistributions(f)
	require.Len(t, ds, 2)

	// Divisible profit drops to 900; the 100 comes back to the jeweler on
	// top of the split.
	investor := byRecipient(t, ds, sale.RecipientInvestor)
	assert.True(t, investor.ProfitAmount.Equal(dec("540")))
	assert.True(t, investor.TransactionAmount.Equal(dec("740")))

	jeweler := byRecipient(t, ds, sale.RecipientJeweler)
	assert.True(t, jeweler.ProfitAmount.Equal(dec("360")))
	assert.True(t, jeweler.TransactionAmount.Equal(dec("760")))
}

func TestCalculateDistributions_DropsNonPositiveTransactionAmounts(t *testing.T) {
	f := musharakahFacts()
	// Sale at 100: profit is 100-200-300 = -400. Investor share -240 plus
	// 200 metal reimbursement is still negative, so no row; jeweler share
	// -160 plus 300 manufacturing stays positive.
	f.SalePrice = dec("100")

	ds := CalculateDistributions(f)
	require.Len(t, ds, 1)
	assert.Equal(t, sale.RecipientJeweler, ds[0].RecipientType)
	assert.True(t, ds[0].ProfitAmount.Equal(dec("-160")))
	assert.True(t, ds[0].TransactionAmount.Equal(dec("140")))
}

func TestCalculateDistributions_MusharakahWithoutInvestor(t *testing.T) {
	f := musharakahFacts()
	f.Contract.InvestorID = sql.NullInt64{}

	ds := CalculateDistributions(f)
	require.Len(t, ds, 1)
	assert.Equal(t, sale.RecipientJeweler, ds[0].RecipientType)
}

func TestCalculateDistributions_RoundsHalfUp(t *testing.T) {
	f := musharakahFacts()
	f.Contract.Equity = dec("50")
	f.SalePrice = dec("1500.01")

	ds := CalculateDistributions(f)
	investor := byRecipient(t, ds, sale.RecipientInvestor)
	// 1000.01 * 0.50 = 500.005, the half cent rounds up.
	assert.True(t, investor.ProfitAmount.Equal(dec("500.01")), "got %s", investor.ProfitAmount)
}

func TestCalculateDistributions_MusharakahSourceWithoutContractFallsBack(t *testing.T) {
	f := musharakahFacts()
	f.Contract = nil

	ds := CalculateDistributions(f)
	require.Len(t, ds, 1)
	assert.Equal(t, sale.RecipientJeweler, ds[0].RecipientType)
	assert.True(t, ds[0].TransactionAmount.Equal(dec("1500")))
}
