// internal/service/billing/dates.go
package billing

import (
	"time"

	"sooq-service/internal/domain/subscription"
)

// dateOnly truncates a timestamp to its calendar date in UTC. All billing
// arithmetic works on whole dates.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this month.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// NextMonthlyBillingDate advances to the same day of month in the next
// calendar month, clamped to the month's last day when the day does not
// exist (e.g. Jan 31 -> Feb 28). The day comes from fromDate itself, never
// from the stored billing_day: a subscription activated on Oct 13 bills on
// the 13th of each month because each cycle anchors to the last billed day.
func NextMonthlyBillingDate(fromDate time.Time) time.Time {
	from := dateOnly(fromDate)
	year, month := from.Year(), from.Month()
	if month == time.December {
		month = time.January
		year++
	} else {
		month++
	}

	day := from.Day()
	if last := daysInMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// NextYearlyBillingDate advances one year keeping month and day. A Feb 29
// anchor falls back to Feb 28 on non-leap years; any other overflow clamps
// to the month's last day.
func NextYearlyBillingDate(fromDate time.Time) time.Time {
	from := dateOnly(fromDate)
	year := from.Year() + 1

	day := from.Day()
	if last := daysInMonth(year, from.Month()); day > last {
		day = last
	}
	return time.Date(year, from.Month(), day, 0, 0, 0, 0, time.UTC)
}

// NextBillingDate dispatches on the subscription's billing frequency. An
// unknown frequency returns fromDate unchanged.
func NextBillingDate(freq subscription.BillingFrequency, fromDate time.Time) time.Time {
	switch freq {
	case subscription.FrequencyMonthly:
		return NextMonthlyBillingDate(fromDate)
	case subscription.FrequencyYearly:
		return NextYearlyBillingDate(fromDate)
	}
	return dateOnly(fromDate)
}

// IsDueForBilling reports whether the subscription should be charged today:
// a next billing date is set and today has reached it.
func IsDueForBilling(sub *subscription.BusinessSubscription, today time.Time) bool {
	if !sub.NextBillingDate.Valid {
		return false
	}
	return !dateOnly(today).Before(dateOnly(sub.NextBillingDate.Time))
}
