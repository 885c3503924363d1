package capgains

import (
	"github.com/etnz/capgains/date"
	"github.com/shopspring/decimal"
)

// SpeculationPeriodDays is the holding period crypto and precious metal lots must strictly exceed to be tax free.
const SpeculationPeriodDays = 365

// Exemption is the tax treatment of a gain on one lot.
type Exemption struct {
	IsTaxExempt          bool            `json:"isTaxExempt"`
	PartialExemptionRate decimal.Decimal `json:"partialExemptionRate"`
}

// Classify returns the exemption that applies to a lot of the given class held holdingPeriodDays.
//
// Crypto and precious metals are exempt when held strictly more than 365 days.
// Fund-like assets are never exempt, a part of their gain is, depending on the fund category.
// Stocks are always fully taxable.
func Classify(class AssetClass, category FundCategory, holdingPeriodDays int) Exemption {
	switch {
	case class.IsTimeExempt():
		return Exemption{IsTaxExempt: holdingPeriodDays > SpeculationPeriodDays, PartialExemptionRate: decimal.Zero}
	case class.IsFundLike():
		return Exemption{PartialExemptionRate: category.PartialExemptionRate()}
	default:
		return Exemption{PartialExemptionRate: decimal.Zero}
	}
}

// TaxableGain returns the part of gain subject to tax.
func (e Exemption) TaxableGain(gain Money) Money {
	if e.IsTaxExempt {
		return M(0, gain.Currency())
	}
	return gain.MulRate(decimal.NewFromInt(1).Sub(e.PartialExemptionRate))
}

// ExemptFrom returns the first sale date on which a lot bought on purchase becomes exempt.
// ok is false for classes that never become exempt.
func ExemptFrom(class AssetClass, purchase date.Date) (on date.Date, ok bool) {
	if !class.IsTimeExempt() {
		return date.Date{}, false
	}
	return purchase.Add(SpeculationPeriodDays + 1), true
}
