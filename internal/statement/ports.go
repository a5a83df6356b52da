// Package statement defines the outbound port for exporting finalized
// transactions to a family-readable statement.
package statement

import (
	"context"
	"time"
)

// Entry is one statement row. Amounts are signed from the perspective of
// the member: deposits positive, withdrawals negative.
type Entry struct {
	TransactionID int64
	Date          time.Time
	Member        string
	Account       string
	Kind          string
	Category      string
	Description   string
	AmountCents   int64
	Status        string
}

// Appender writes statement entries to an external destination.
type Appender interface {
	Append(ctx context.Context, e Entry) (rowRef string, err error)
}
