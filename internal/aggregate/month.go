package aggregate

import (
	"time"

	"expenseview/internal/core"
)

// Clock supplies the reference instant of an aggregation pass.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current local time.
func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock struct {
	At time.Time
}

// Now returns At.
func (c FixedClock) Now() time.Time { return c.At }

// IsCurrentMonth reports whether d falls in the calendar month and year of
// now. A missing date never matches.
func IsCurrentMonth(d core.Date, now time.Time) bool {
	if d.IsZero() {
		return false
	}
	return d.Month() == int(now.Month()) && d.Year() == now.Year()
}

// CurrentMonth keeps the expenses dated in now's month, preserving order.
func CurrentMonth(items []core.Expense, now time.Time) []core.Expense {
	out := make([]core.Expense, 0, len(items))
	for _, e := range items {
		if IsCurrentMonth(e.Date, now) {
			out = append(out, e)
		}
	}
	return out
}
