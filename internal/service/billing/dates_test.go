package billing

import (
	"database/sql"
	"testing"
	"time"

	"sooq-service/internal/domain/subscription"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextMonthlyBillingDate(t *testing.T) {
	tests := []struct {
		name string
		from time.Time
		want time.Time
	}{
		{"same day next month", date(2025, time.October, 13), date(2025, time.November, 13)},
		{"december rolls into january", date(2025, time.December, 21), date(2026, time.January, 21)},
		{"jan 31 clamps to feb 28", date(2025, time.January, 31), date(2025, time.February, 28)},
		{"jan 31 clamps to feb 29 on leap year", date(2024, time.January, 31), date(2024, time.February, 29)},
		{"mar 31 clamps to apr 30", date(2025, time.March, 31), date(2025, time.April, 30)},
		{"feb 28 stays day 28", date(2025, time.February, 28), date(2025, time.March, 28)},
		{"first of month", date(2025, time.June, 1), date(2025, time.July, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextMonthlyBillingDate(tt.from))
		})
	}
}

func TestNextMonthlyBillingDate_DayNeverExceedsMonthLength(t *testing.T) {
	// The computed day is min(from.day, daysIn(next month)) for every
	// anchor day of a long month.
	for day := 1; day <= 31; day++ {
		from := date(2025, time.January, day)
		got := NextMonthlyBillingDate(from)
		require.Equal(t, time.February, got.Month())
		want := day
		if want > 28 {
			want = 28
		}
		assert.Equal(t, want, got.Day(), "anchor day %d", day)
	}
}

func TestNextYearlyBillingDate(t *testing.T) {
	tests := []struct {
		name string
		from time.Time
		want time.Time
	}{
		{"plain anniversary", date(2025, time.March, 21), date(2026, time.March, 21)},
		{"feb 29 falls back to feb 28", date(2024, time.February, 29), date(2025, time.February, 28)},
		{"feb 29 to leap year keeps feb 29", date(2027, time.February, 28), date(2028, time.February, 28)},
		{"dec 31 keeps dec 31", date(2025, time.December, 31), date(2026, time.December, 31)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextYearlyBillingDate(tt.from))
		})
	}
}

func TestNextBillingDate_Dispatch(t *testing.T) {
	from := date(2025, time.May, 10)

	assert.Equal(t, date(2025, time.June, 10), NextBillingDate(subscription.FrequencyMonthly, from))
	assert.Equal(t, date(2026, time.May, 10), NextBillingDate(subscription.FrequencyYearly, from))
	// Unknown frequency leaves the date unchanged.
	assert.Equal(t, from, NextBillingDate(subscription.BillingFrequency("weekly"), from))
}

func TestIsDueForBilling(t *testing.T) {
	sub := &subscription.BusinessSubscription{}
	today := date(2025, time.March, 21)

	assert.False(t, IsDueForBilling(sub, today), "no next billing date set")

	sub.NextBillingDate = sql.NullTime{Time: date(2025, time.March, 22), Valid: true}
	assert.False(t, IsDueForBilling(sub, today), "not yet due")

	sub.NextBillingDate = sql.NullTime{Time: today, Valid: true}
	assert.True(t, IsDueForBilling(sub, today), "due on the day")

	sub.NextBillingDate = sql.NullTime{Time: date(2025, time.March, 1), Valid: true}
	assert.True(t, IsDueForBilling(sub, today), "overdue")
}
