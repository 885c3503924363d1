package date

import "time"

// Range represents a range of dates, boundaries included.
type Range struct{ From, To Date }

// TaxYear returns the calendar year range used for tax assessment.
func TaxYear(year int) Range {
	return Range{From: New(year, time.January, 1), To: New(year, time.December, 31)}
}

// Contains return true date is included in the range (boundaries included)
func (r Range) Contains(date Date) bool { return (!date.Before(r.From) && !date.After(r.To)) }
