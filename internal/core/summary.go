package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryTotal is one chart data point: the current month's spend for a
// category. Values are produced fresh on every aggregation pass.
type CategoryTotal struct {
	Label string          `json:"label"`
	Value decimal.Decimal `json:"value"`
}

var monthNames = [...]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// MonthName returns the English name of m, or "" when m is out of range.
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthNames[m-1]
}
