package capgains

import (
	"fmt"
	"reflect"
	"time"

	"github.com/shopspring/decimal"
)

// Totals are the category sums of one tax year of events. It is an immutable value: Add returns a new one.
type Totals struct {
	Currency                  string
	Dividends                 Money
	Interest                  Money
	GainsStocks               Money // sum of positive stock gains
	LossesStocks              Money // sum of stock losses, negative or zero
	GainsFunds                Money // already net of partial exemption
	CryptoGainsExempt         Money
	CryptoGainsTaxable        Money
	PreciousMetalGainsExempt  Money
	PreciousMetalGainsTaxable Money
	WithholdingTax            Money
	EventCount                int
}

// NewTotals returns zero totals in currency.
func NewTotals(currency string) Totals {
	z := M(0, currency)
	return Totals{
		Currency:                  currency,
		Dividends:                 z,
		Interest:                  z,
		GainsStocks:               z,
		LossesStocks:              z,
		GainsFunds:                z,
		CryptoGainsExempt:         z,
		CryptoGainsTaxable:        z,
		PreciousMetalGainsExempt:  z,
		PreciousMetalGainsTaxable: z,
		WithholdingTax:            z,
	}
}

// Add returns the totals with e accounted for.
func (t Totals) Add(e TaxEvent) (Totals, error) {
	for _, m := range []Money{e.GrossAmount, e.GainLoss, e.TaxableAmount, e.WithholdingTaxPaid} {
		if c := m.Currency(); c != "" && t.Currency != "" && c != t.Currency {
			return t, fmt.Errorf("%w: event %s is in %s, summary is in %s", ErrInvalidInput, e.ID, c, t.Currency)
		}
	}
	switch e.Category {
	case Dividends:
		t.Dividends = t.Dividends.Add(e.GrossAmount)
	case Interest:
		t.Interest = t.Interest.Add(e.GrossAmount)
	case CapitalGainsStocks:
		if e.GainLoss.IsNegative() {
			t.LossesStocks = t.LossesStocks.Add(e.GainLoss)
		} else {
			t.GainsStocks = t.GainsStocks.Add(e.GainLoss)
		}
	case CapitalGainsFunds:
		t.GainsFunds = t.GainsFunds.Add(e.TaxableAmount)
	case CapitalGainsCrypto:
		if e.IsTaxExempt {
			t.CryptoGainsExempt = t.CryptoGainsExempt.Add(e.GainLoss)
		} else {
			t.CryptoGainsTaxable = t.CryptoGainsTaxable.Add(e.GainLoss)
		}
	case CapitalGainsPreciousMetals:
		if e.IsTaxExempt {
			t.PreciousMetalGainsExempt = t.PreciousMetalGainsExempt.Add(e.GainLoss)
		} else {
			t.PreciousMetalGainsTaxable = t.PreciousMetalGainsTaxable.Add(e.GainLoss)
		}
	default:
		return t, fmt.Errorf("%w: event %s has unknown category %q", ErrInvalidInput, e.ID, e.Category)
	}
	t.WithholdingTax = t.WithholdingTax.Add(e.WithholdingTaxPaid)
	t.EventCount++
	return t, nil
}

// FoldEvents sums events into fresh totals.
func FoldEvents(currency string, events []TaxEvent) (Totals, error) {
	t := NewTotals(currency)
	for _, e := range events {
		var err error
		if t, err = t.Add(e); err != nil {
			return NewTotals(currency), err
		}
	}
	return t, nil
}

// TaxSummary is the yearly tax computation of a portfolio. There is at most one per (portfolio, year).
type TaxSummary struct {
	PortfolioID string `json:"portfolioId"`
	TaxYear     int    `json:"taxYear"`
	Currency    string `json:"currency"`
	EventCount  int    `json:"eventCount"`

	TotalDividends              Money `json:"totalDividends"`
	TotalInterest               Money `json:"totalInterest"`
	TotalGainsStocks            Money `json:"totalGainsStocks"`
	TotalLossesStocks           Money `json:"totalLossesStocks"`
	PriorLossCarryforwardStocks Money `json:"priorLossCarryforwardStocks"`
	NetCapitalGainsStocks       Money `json:"netCapitalGainsStocks"`
	TotalGainsFunds             Money `json:"totalGainsFunds"`
	CryptoGainsExempt           Money `json:"cryptoGainsExempt"`
	CryptoGainsTaxable          Money `json:"cryptoGainsTaxable"`
	PreciousMetalGainsExempt    Money `json:"preciousMetalGainsExempt"`
	PreciousMetalGainsTaxable   Money `json:"preciousMetalGainsTaxable"`
	GrossTaxableIncome          Money `json:"grossTaxableIncome"`

	SaverAllowance          Money `json:"saverAllowance"`
	AllowanceUsed           Money `json:"allowanceUsed"`
	AllowanceRemaining      Money `json:"allowanceRemaining"`
	NetTaxableCapitalIncome Money `json:"netTaxableCapitalIncome"`

	BaseRate       decimal.Decimal `json:"baseRate"`
	SolidarityRate decimal.Decimal `json:"solidarityRate"`
	ChurchTaxRate  decimal.Decimal `json:"churchTaxRate"` // in percent
	EffectiveRate  decimal.Decimal `json:"effectiveRate"`

	CapitalGainsTax       Money `json:"capitalGainsTax"`
	SolidaritySurcharge   Money `json:"solidaritySurcharge"`
	ChurchTax             Money `json:"churchTax"`
	GrossTax              Money `json:"grossTax"`
	TotalWithholdingTax   Money `json:"totalWithholdingTax"`
	EstimatedTaxLiability Money `json:"estimatedTaxLiability"`

	LossCarryforwardStocks Money `json:"lossCarryforwardStocks"`
	LossCarryforwardOther  Money `json:"lossCarryforwardOther"`

	LastCalculated time.Time `json:"lastCalculated"`
}

// SummaryInput is everything ComputeSummary needs.
type SummaryInput struct {
	PortfolioID string
	TaxYear     int
	Totals      Totals
	Settings    TaxSettings
	// PriorLossCarryforwardStocks is the stock loss carried into this year, as a positive amount.
	PriorLossCarryforwardStocks Money
	Now                         time.Time
}

// ComputeSummary applies stock loss netting, the saver's allowance, the effective rate and the
// withholding tax credit to the totals of a year.
//
// Stock losses only offset stock gains. Exempt crypto and precious metal gains are reported but
// never taxed. The liability is floored at zero: refunds are not computed here.
func ComputeSummary(in SummaryInput) TaxSummary {
	t := in.Totals
	cur := t.Currency
	zero := M(0, cur)
	s := in.Settings
	prior := in.PriorLossCarryforwardStocks.Abs().In(cur)

	net := t.GainsStocks.Add(t.LossesStocks).Sub(prior)
	carry := zero
	if net.IsNegative() {
		carry = net.Abs()
		net = zero
	}

	gross := t.Dividends.
		Add(net).
		Add(t.GainsFunds).
		Add(t.CryptoGainsTaxable).
		Add(t.PreciousMetalGainsTaxable).
		Add(t.Interest)

	allowance := s.SaverAllowance.In(cur)
	used := allowance.Min(gross).Max(zero)
	netTaxable := gross.Sub(allowance).Max(zero)

	effective := s.EffectiveRate()
	cgt := netTaxable.MulRate(BaseRate)
	grossTax := netTaxable.MulRate(effective)

	return TaxSummary{
		PortfolioID: in.PortfolioID,
		TaxYear:     in.TaxYear,
		Currency:    cur,
		EventCount:  t.EventCount,

		TotalDividends:              t.Dividends,
		TotalInterest:               t.Interest,
		TotalGainsStocks:            t.GainsStocks,
		TotalLossesStocks:           t.LossesStocks,
		PriorLossCarryforwardStocks: prior,
		NetCapitalGainsStocks:       net,
		TotalGainsFunds:             t.GainsFunds,
		CryptoGainsExempt:           t.CryptoGainsExempt,
		CryptoGainsTaxable:          t.CryptoGainsTaxable,
		PreciousMetalGainsExempt:    t.PreciousMetalGainsExempt,
		PreciousMetalGainsTaxable:   t.PreciousMetalGainsTaxable,
		GrossTaxableIncome:          gross,

		SaverAllowance:          allowance,
		AllowanceUsed:           used,
		AllowanceRemaining:      allowance.Sub(used),
		NetTaxableCapitalIncome: netTaxable,

		BaseRate:       BaseRate,
		SolidarityRate: s.SolidarityRate(),
		ChurchTaxRate:  s.ChurchTaxRate,
		EffectiveRate:  effective,

		CapitalGainsTax:       cgt,
		SolidaritySurcharge:   cgt.MulRate(s.SolidarityRate()),
		ChurchTax:             cgt.MulRate(s.ChurchRate()),
		GrossTax:              grossTax,
		TotalWithholdingTax:   t.WithholdingTax,
		EstimatedTaxLiability: grossTax.Sub(t.WithholdingTax).Max(zero),

		LossCarryforwardStocks: carry,
		LossCarryforwardOther:  s.LossCarryforwardOther.Abs().In(cur),

		LastCalculated: in.Now,
	}
}

// Exact returns a copy of s whose amounts are persisted with all their digits.
func (s TaxSummary) Exact() TaxSummary {
	v := reflect.ValueOf(&s).Elem()
	for i := 0; i < v.NumField(); i++ {
		if m, ok := v.Field(i).Interface().(Money); ok {
			v.Field(i).Set(reflect.ValueOf(m.Exact()))
		}
	}
	return s
}
