package capgains

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Percent formats a ratio (0.30) as a percentage ("30.00%").
type Percent decimal.Decimal

func (p Percent) String() string {
	return fmt.Sprintf("%s%%", decimal.Decimal(p).Shift(2).StringFixed(2))
}

// rate is a shorthand for exact decimal ratios written as strings.
func rate(s string) decimal.Decimal { return decimal.RequireFromString(s) }
