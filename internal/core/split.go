package core

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// SplitShare is one weighted destination of a disbursement.
type SplitShare struct {
	AccountID  int64
	Nickname   string
	Percentage float64
}

// Allocation is the amount assigned to one destination by Distribute.
type Allocation struct {
	AccountID  int64
	Nickname   string
	Percentage float64
	Amount     Money
}

// SplitTolerance is the allowed deviation of a split sum from 100%.
const SplitTolerance = 0.01

var oneHundred = decimal.NewFromInt(100)

// Distribute allocates total across the shares. Every share but the last
// gets round(total * pct / 100) cents; the last gets the remainder, so the
// outputs always sum to exactly total regardless of rounding drift.
// Shares are processed in account-ID order to keep repeated runs
// reproducible. Shares whose computed amount is not positive are dropped
// from the result.
func Distribute(total Money, shares []SplitShare) []Allocation {
	if len(shares) == 0 {
		return nil
	}

	ordered := make([]SplitShare, len(shares))
	copy(ordered, shares)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].AccountID < ordered[j].AccountID })

	totalDec := decimal.NewFromInt(total.Cents)
	allocations := make([]Allocation, 0, len(ordered))

	var distributed int64
	for i, share := range ordered {
		var cents int64
		if i == len(ordered)-1 {
			cents = total.Cents - distributed
		} else {
			cents = totalDec.
				Mul(decimal.NewFromFloat(share.Percentage)).
				Div(oneHundred).
				Round(0).
				IntPart()
			distributed += cents
		}

		if cents <= 0 {
			continue
		}
		allocations = append(allocations, Allocation{
			AccountID:  share.AccountID,
			Nickname:   share.Nickname,
			Percentage: share.Percentage,
			Amount:     Money{Cents: cents},
		})
	}

	return allocations
}

// ValidateSplits checks that every percentage is within [0,100] and that
// the percentages sum to 100 within SplitTolerance.
func ValidateSplits(shares []SplitShare) error {
	if len(shares) == 0 {
		return fmt.Errorf("%w: at least one split is required", ErrInvalidSplitConfiguration)
	}

	// Summing in decimal keeps e.g. 33.33+33.33+33.33 at exactly 99.99,
	// which sits on the tolerance boundary and must be accepted.
	sum := decimal.Zero
	for _, share := range shares {
		if share.Percentage < 0 || share.Percentage > 100 {
			return fmt.Errorf("%w: percentage %.2f out of range [0,100]", ErrInvalidSplitConfiguration, share.Percentage)
		}
		sum = sum.Add(decimal.NewFromFloat(share.Percentage))
	}
	if sum.Sub(oneHundred).Abs().GreaterThan(decimal.NewFromFloat(SplitTolerance)) {
		return fmt.Errorf("%w: percentages sum to %s, expected 100", ErrInvalidSplitConfiguration, sum)
	}
	return nil
}
