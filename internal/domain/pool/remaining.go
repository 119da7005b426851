// internal/domain/pool/remaining.go
package pool

import "github.com/shopspring/decimal"

// Quantize rounds a weight to two decimals, half-up. All weight buckets in
// the allocation math go through this so that boundary values like x.005
// agree everywhere.
func Quantize(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// RemainingTarget is the outcome of the allocation computation. Exactly one
// of Simple or Itemized is set: Simple for plain numeric-target pools,
// Itemized for pools backed by a Musharakah contract's bill of materials.
type RemainingTarget struct {
	Simple   *SimpleTarget   `json:"simple,omitempty"`
	Itemized *ItemizedTarget `json:"itemized,omitempty"`
}

// SimpleTarget is the single-number remainder. The sign is not clamped;
// callers interpret negative values as over-contribution.
type SimpleTarget struct {
	TotalRemaining decimal.Decimal `json:"total_remaining"`
}

// ItemizedTarget is the per-bucket remainder. Metal buckets are keyed
// item -> carat and hold remaining weight; stone buckets are keyed
// item -> shape -> weight-per-unit (two-decimal string) and hold remaining
// unit counts. Buckets are floored at zero during subtraction.
type ItemizedTarget struct {
	Metal map[string]map[string]decimal.Decimal `json:"metal"`
	Stone map[string]map[string]map[string]int  `json:"stone"`
}

// NewItemizedTarget returns an empty itemized remainder.
func NewItemizedTarget() *ItemizedTarget {
	return &ItemizedTarget{
		Metal: make(map[string]map[string]decimal.Decimal),
		Stone: make(map[string]map[string]map[string]int),
	}
}

// AddMetal records a required metal weight bucket.
func (t *ItemizedTarget) AddMetal(item, carat string, required decimal.Decimal) {
	if _, ok := t.Metal[item]; !ok {
		t.Metal[item] = make(map[string]decimal.Decimal)
	}
	t.Metal[item][carat] = Quantize(required)
}

// AddStone records a required stone count bucket. The unit count is derived
// from the total required weight divided by the weight per unit, rounded
// half-up to an integer.
func (t *ItemizedTarget) AddStone(item, shape string, weightPerUnit, totalRequired decimal.Decimal) {
	if weightPerUnit.IsZero() {
		return
	}
	if _, ok := t.Stone[item]; !ok {
		t.Stone[item] = make(map[string]map[string]int)
	}
	if _, ok := t.Stone[item][shape]; !ok {
		t.Stone[item][shape] = make(map[string]int)
	}
	count := totalRequired.Div(weightPerUnit).Round(0)
	t.Stone[item][shape][Quantize(weightPerUnit).String()] = int(count.IntPart())
}

// SubtractMetal deducts a contributed weight from its bucket, floored at 0.
// Contributions with no matching bucket are ignored.
func (t *ItemizedTarget) SubtractMetal(item, carat string, quantity, weightPerUnit decimal.Decimal) {
	carats, ok := t.Metal[item]
	if !ok {
		return
	}
	remaining, ok := carats[carat]
	if !ok {
		return
	}
	remaining = remaining.Sub(Quantize(quantity.Mul(weightPerUnit)))
	if remaining.IsNegative() {
		remaining = decimal.Zero.Round(2)
	}
	carats[carat] = remaining
}

// SubtractStone deducts a contributed unit count from its bucket, floored
// at 0. The quantity is rounded half-up to an integer.
func (t *ItemizedTarget) SubtractStone(item, shape string, quantity, weightPerUnit decimal.Decimal) {
	shapes, ok := t.Stone[item]
	if !ok {
		return
	}
	weights, ok := shapes[shape]
	if !ok {
		return
	}
	key := Quantize(weightPerUnit).String()
	remaining, ok := weights[key]
	if !ok {
		return
	}
	remaining -= int(quantity.Round(0).IntPart())
	if remaining < 0 {
		remaining = 0
	}
	weights[key] = remaining
}

// Fulfilled reports whether every bucket of the target has been met.
func (r RemainingTarget) Fulfilled() bool {
	if r.Simple != nil {
		return r.Simple.TotalRemaining.LessThanOrEqual(decimal.Zero)
	}
	if r.Itemized == nil {
		return false
	}
	for _, carats := range r.Itemized.Metal {
		for _, remaining := range carats {
			if remaining.IsPositive() {
				return false
			}
		}
	}
	for _, shapes := range r.Itemized.Stone {
		for _, weights := range shapes {
			for _, remaining := range weights {
				if remaining > 0 {
					return false
				}
			}
		}
	}
	return true
}

// TotalRemainingWeight sums all positive remainders into one figure, used
// for investor opportunity notifications. Returns zero when fulfilled.
func (r RemainingTarget) TotalRemainingWeight() decimal.Decimal {
	if r.Simple != nil {
		if r.Simple.TotalRemaining.IsPositive() {
			return r.Simple.TotalRemaining
		}
		return decimal.Zero
	}
	total := decimal.Zero
	if r.Itemized == nil {
		return total
	}
	for _, carats := range r.Itemized.Metal {
		for _, remaining := range carats {
			if remaining.IsPositive() {
				total = total.Add(remaining)
			}
		}
	}
	for _, shapes := range r.Itemized.Stone {
		for _, weights := range shapes {
			for _, remaining := range weights {
				if remaining > 0 {
					total = total.Add(decimal.NewFromInt(int64(remaining)))
				}
			}
		}
	}
	return total
}
