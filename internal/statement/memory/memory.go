// Package memory is an in-memory statement appender used by tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"familybank/internal/statement"
)

type Appender struct {
	mu      sync.Mutex
	entries []statement.Entry

	// FailNext makes the next Append return an error, for retry tests.
	FailNext bool
}

var _ statement.Appender = (*Appender)(nil)

func New() *Appender {
	return &Appender{}
}

func (a *Appender) Append(_ context.Context, e statement.Entry) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.FailNext {
		a.FailNext = false
		return "", fmt.Errorf("appender unavailable")
	}
	a.entries = append(a.entries, e)
	return fmt.Sprintf("row-%d", len(a.entries)), nil
}

func (a *Appender) Entries() []statement.Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]statement.Entry, len(a.entries))
	copy(out, a.entries)
	return out
}
