// internal/service/profit/calculator.go
package profit

import (
	"database/sql"

	"github.com/shopspring/decimal"

	"sooq-service/internal/domain/sale"
)

var hundred = decimal.NewFromInt(100)

// SaleFacts is everything the split calculation needs, resolved up front so
// the math itself is pure.
type SaleFacts struct {
	Quantity          int64
	SalePrice         decimal.Decimal
	Source            sale.MaterialSource
	JewelerBusinessID int64

	// Per-unit metal cost and the estimated manufacturing price for the whole
	// requested batch, from the manufacturing request's product row.
	MetalAmountPerUnit decimal.Decimal
	EstimatedPrice     decimal.Decimal
	RequestedQuantity  int64

	// Hybrid funding only: the price of additional material the jeweler
	// bought outside the musharakah contribution, prorated to the sold
	// quantity.
	AdditionalMaterialPrice decimal.Decimal

	Contract *sale.MusharakahContract
}

// MetalCost is the repurchase cost of the metal consumed by the sold units.
func (f SaleFacts) MetalCost() decimal.Decimal {
	return f.MetalAmountPerUnit.Mul(decimal.NewFromInt(f.Quantity)).Round(2)
}

// ManufacturingCost prorates the batch's estimated manufacturing price to
// the sold quantity.
func (f SaleFacts) ManufacturingCost() decimal.Decimal {
	if f.RequestedQuantity == 0 {
		return decimal.Zero
	}
	return f.EstimatedPrice.
		Div(decimal.NewFromInt(f.RequestedQuantity)).
		Mul(decimal.NewFromInt(f.Quantity)).
		Round(2)
}

// Profit is the sale price net of metal and manufacturing costs. It may be
// negative; recipients then receive only their cost reimbursements.
func (f SaleFacts) Profit() decimal.Decimal {
	return f.SalePrice.Sub(f.MetalCost()).Sub(f.ManufacturingCost()).Round(2)
}

// CalculateDistributions derives the per-recipient payout rows for a sale.
//
// CASH and ASSET funded requests have no partner: the jeweler takes the
// whole sale price and the full profit. MUSHARAKAH splits the profit by the
// contract's equity percentage, with each party additionally reimbursed for
// the cost they fronted (metal for the investor, manufacturing for the
// jeweler). The hybrid source deducts the jeweler's additional material
// price from the divisible profit and repays it on the jeweler's side.
//
// Rows whose transaction amount is not positive are dropped.
func CalculateDistributions(f SaleFacts) []sale.ProfitDistribution {
	switch f.Source {
	case sale.SourceMusharakah, sale.SourceMusharakahAndAsset:
		if f.Contract != nil {
			return musharakahSplit(f)
		}
	}
	return jewelerOnly(f)
}

func jewelerOnly(f SaleFacts) []sale.ProfitDistribution {
	d := sale.ProfitDistribution{
		RecipientBusinessID:     f.JewelerBusinessID,
		RecipientType:           sale.RecipientJeweler,
		CostOfRepurchasingMetal: f.MetalCost(),
		Revenue:                 f.SalePrice,
		ProfitSharePercentage:   hundred,
		ProfitAmount:            f.Profit(),
		TransactionAmount:       f.SalePrice.Round(2),
	}
	return keepPositive(d)
}

func musharakahSplit(f SaleFacts) []sale.ProfitDistribution {
	metalCost := f.MetalCost()
	mfgCost := f.ManufacturingCost()
	divisible := f.Profit().Sub(f.AdditionalMaterialPrice)

	investorShare := f.Contract.Equity
	jewelerShare := hundred.Sub(investorShare)

	investorProfit := divisible.Mul(investorShare).Div(hundred).Round(2)
	jewelerProfit := divisible.Mul(jewelerShare).Div(hundred).Round(2)

	var out []sale.ProfitDistribution
	if f.Contract.InvestorID.Valid {
		out = append(out, keepPositive(sale.ProfitDistribution{
			MusharakahContractID:    nullInt64(f.Contract.ID),
			RecipientBusinessID:     f.Contract.InvestorID.Int64,
			RecipientType:           sale.RecipientInvestor,
			CostOfRepurchasingMetal: metalCost,
			Revenue:                 f.SalePrice,
			ProfitSharePercentage:   investorShare,
			ProfitAmount:            investorProfit,
			TransactionAmount:       investorProfit.Add(metalCost).Round(2),
		})...)
	}

	jewelerID := f.JewelerBusinessID
	if f.Contract.JewelerID.Valid {
		jewelerID = f.Contract.JewelerID.Int64
	}
	out = append(out, keepPositive(sale.ProfitDistribution{
		MusharakahContractID:    nullInt64(f.Contract.ID),
		RecipientBusinessID:     jewelerID,
		RecipientType:           sale.RecipientJeweler,
		CostOfRepurchasingMetal: metalCost,
		Revenue:                 f.SalePrice,
		ProfitSharePercentage:   jewelerShare,
		ProfitAmount:            jewelerProfit,
		TransactionAmount:       jewelerProfit.Add(mfgCost).Add(f.AdditionalMaterialPrice).Round(2),
	})...)
	return out
}

func keepPositive(d sale.ProfitDistribution) []sale.ProfitDistribution {
	if !d.TransactionAmount.IsPositive() {
		return nil
	}
	return []sale.ProfitDistribution{d}
}

func nullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: true}
}
