package capgains

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// BaseRate is the flat tax rate on capital income.
	BaseRate = rate("0.25")
	// SolidarityRate is the solidarity surcharge, applied on top of the base tax.
	SolidarityRate = rate("0.055")
)

// TaxSettings are the per user parameters of the yearly computation.
type TaxSettings struct {
	UserEmail                  string          `json:"userEmail"`
	SaverAllowance             Money           `json:"saverAllowance"`
	ChurchTaxRate              decimal.Decimal `json:"churchTaxRate"` // in percent, e.g. 9
	IncludeSolidaritySurcharge bool            `json:"includeSolidaritySurcharge"`
	// LossCarryforwardStocks is the opening stock loss carryforward (positive amount).
	LossCarryforwardStocks Money `json:"lossCarryforwardStocks"`
	// LossCarryforwardOther is the opening carryforward of other capital losses (positive amount).
	LossCarryforwardOther Money `json:"lossCarryforwardOther"`
}

// DefaultSettings returns the settings used for users that never saved any.
func DefaultSettings(currency string) TaxSettings {
	return TaxSettings{
		SaverAllowance:             M(1000, currency),
		ChurchTaxRate:              decimal.Zero,
		IncludeSolidaritySurcharge: true,
		LossCarryforwardStocks:     M(0, currency),
		LossCarryforwardOther:      M(0, currency),
	}
}

// SolidarityRate returns the surcharge rate that applies, 0 when disabled.
func (s TaxSettings) SolidarityRate() decimal.Decimal {
	if s.IncludeSolidaritySurcharge {
		return SolidarityRate
	}
	return decimal.Zero
}

// ChurchRate returns the church tax rate as a ratio.
func (s TaxSettings) ChurchRate() decimal.Decimal {
	return s.ChurchTaxRate.Div(decimal.NewFromInt(100))
}

// EffectiveRate is BaseRate * (1 + soli + church).
func (s TaxSettings) EffectiveRate() decimal.Decimal {
	return BaseRate.Mul(decimal.NewFromInt(1).Add(s.SolidarityRate()).Add(s.ChurchRate()))
}

// Validate checks the settings before they are saved.
func (s TaxSettings) Validate() error {
	switch {
	case s.UserEmail == "":
		return fmt.Errorf("%w: settings need a user email", ErrInvalidInput)
	case s.SaverAllowance.IsNegative():
		return fmt.Errorf("%w: negative saver allowance", ErrInvalidInput)
	case s.ChurchTaxRate.IsNegative() || s.ChurchTaxRate.GreaterThan(decimal.NewFromInt(100)):
		return fmt.Errorf("%w: church tax rate %s out of [0, 100]", ErrInvalidInput, s.ChurchTaxRate)
	case s.LossCarryforwardStocks.IsNegative() || s.LossCarryforwardOther.IsNegative():
		return fmt.Errorf("%w: loss carryforwards are positive amounts", ErrInvalidInput)
	}
	return nil
}
