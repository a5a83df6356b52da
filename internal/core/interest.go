package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// PeriodsPerYear returns the number of compounding periods for a frequency.
func PeriodsPerYear(freq CompoundFrequency) int64 {
	switch freq {
	case CompoundDaily:
		return 365
	case CompoundWeekly:
		return 52
	default:
		return 12
	}
}

// compoundThresholdDays is the minimum elapsed days before a new accrual.
// Monthly uses a fixed 28-day approximation rather than calendar months.
func compoundThresholdDays(freq CompoundFrequency) int {
	switch freq {
	case CompoundDaily:
		return 1
	case CompoundWeekly:
		return 7
	default:
		return 28
	}
}

// CompoundDue reports whether enough time has passed since the last
// accrual. A nil lastApplied means interest has never been applied and the
// account is immediately due.
func CompoundDue(freq CompoundFrequency, lastApplied *time.Time, now time.Time) bool {
	if lastApplied == nil {
		return true
	}
	elapsed := int(now.Sub(*lastApplied).Hours() / 24)
	return elapsed >= compoundThresholdDays(freq)
}

// InterestAmount computes one period of interest on the balance:
// round(balance * annualRate/100 / periodsPerYear) to the cent.
func InterestAmount(balance Money, annualRate float64, freq CompoundFrequency) Money {
	cents := decimal.NewFromInt(balance.Cents).
		Mul(decimal.NewFromFloat(annualRate)).
		Div(decimal.NewFromInt(100 * PeriodsPerYear(freq))).
		Round(0).
		IntPart()
	return Money{Cents: cents}
}
