package capgains

import (
	"fmt"

	"github.com/etnz/capgains/date"
)

// EventType is the kind of a realized taxable occurrence.
type EventType string

const (
	EventDividend EventType = "dividend"
	EventInterest EventType = "interest"
	EventSale     EventType = "sale"
)

// ParseEventType parses an event type.
func ParseEventType(s string) (EventType, error) {
	switch t := EventType(s); t {
	case EventDividend, EventInterest, EventSale:
		return t, nil
	default:
		return "", fmt.Errorf("unknown event type: %q", s)
	}
}

// TaxCategory is the bucket an event falls in for the yearly summary.
type TaxCategory string

const (
	Dividends                  TaxCategory = "dividends"
	Interest                   TaxCategory = "interest"
	CapitalGainsStocks         TaxCategory = "capital_gains_stocks"
	CapitalGainsFunds          TaxCategory = "capital_gains_funds"
	CapitalGainsCrypto         TaxCategory = "capital_gains_crypto"
	CapitalGainsPreciousMetals TaxCategory = "capital_gains_precious_metals"
)

// ParseTaxCategory parses a tax category.
func ParseTaxCategory(s string) (TaxCategory, error) {
	switch c := TaxCategory(s); c {
	case Dividends, Interest, CapitalGainsStocks, CapitalGainsFunds, CapitalGainsCrypto, CapitalGainsPreciousMetals:
		return c, nil
	default:
		return "", fmt.Errorf("unknown tax category: %q", s)
	}
}

// TaxEvent is one realized taxable occurrence: a dividend, an interest payment, or the gain of a lot slice sold.
//
// Events are immutable once created. Summaries are recomputed from all events of a year.
type TaxEvent struct {
	ID          string      `json:"id"`
	PortfolioID string      `json:"portfolioId"`
	HoldingID   string      `json:"holdingId,omitempty"`
	LotID       string      `json:"lotId,omitempty"`
	Type        EventType   `json:"type"`
	Category    TaxCategory `json:"category"`
	Date        date.Date   `json:"date"`
	// GrossAmount is the income of dividend and interest events.
	GrossAmount Money `json:"grossAmount"`
	// GainLoss is the realized gain (negative for a loss) of sale events.
	GainLoss Money `json:"gainLoss"`
	// TaxableAmount is the gain after partial exemption, pre-computed for fund sales.
	TaxableAmount      Money `json:"taxableAmount"`
	IsTaxExempt        bool  `json:"isTaxExempt"`
	WithholdingTaxPaid Money `json:"withholdingTaxPaid"`
}

// TaxYear returns the year the event is assessed in.
func (e TaxEvent) TaxYear() int { return e.Date.Year() }

// Validate checks an event before it is recorded.
func (e TaxEvent) Validate() error {
	if e.PortfolioID == "" {
		return fmt.Errorf("%w: event has no portfolio", ErrInvalidInput)
	}
	if e.Date.IsZero() {
		return fmt.Errorf("%w: event has no date", ErrInvalidInput)
	}
	if _, err := ParseEventType(string(e.Type)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if _, err := ParseTaxCategory(string(e.Category)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if e.WithholdingTaxPaid.IsNegative() {
		return fmt.Errorf("%w: negative withholding tax %s", ErrInvalidInput, e.WithholdingTaxPaid)
	}
	return nil
}
