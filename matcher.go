package capgains

import (
	"fmt"

	"github.com/etnz/capgains/date"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleRequest asks to sell a quantity of a holding at a unit price on a date.
type SaleRequest struct {
	HoldingID string    `json:"holdingId"`
	Quantity  Quantity  `json:"quantity"`
	SalePrice Money     `json:"salePrice"`
	SaleDate  date.Date `json:"saleDate"`
}

// Validate rejects malformed requests before any store access.
func (r SaleRequest) Validate() error {
	switch {
	case r.HoldingID == "":
		return fmt.Errorf("%w: holding id is required", ErrInvalidInput)
	case !r.Quantity.IsPositive():
		return fmt.Errorf("%w: quantity must be positive, got %s", ErrInvalidInput, r.Quantity)
	case !r.SalePrice.IsPositive():
		return fmt.Errorf("%w: sale price must be positive, got %s", ErrInvalidInput, r.SalePrice.Decimal())
	case r.SaleDate.IsZero():
		return fmt.Errorf("%w: sale date is required", ErrInvalidInput)
	}
	return nil
}

// MatchOptions select legacy behaviours of the matcher.
type MatchOptions struct {
	// AllowPartial reproduces the legacy silent partial match: a sale larger than the open lots
	// is not an error, the result carries the Shortfall and proceeds are still computed on the
	// requested quantity.
	AllowPartial bool
	// LegacyExemption reproduces the legacy all-or-nothing exemption: the taxable gain is zero
	// only if every lot is exempt, otherwise it is the whole gross gain net of partial exemption.
	LegacyExemption bool
}

// LotSale is the part of a sale matched against one lot.
type LotSale struct {
	LotID                string          `json:"lotId"`
	PurchaseDate         date.Date       `json:"purchaseDate"`
	QuantitySold         Quantity        `json:"quantitySold"`
	CostBasisPerUnit     Money           `json:"costBasisPerUnit"`
	CostBasis            Money           `json:"costBasis"`
	Proceeds             Money           `json:"proceeds"`
	GainLoss             Money           `json:"gainLoss"`
	HoldingPeriodDays    int             `json:"holdingPeriodDays"`
	IsTaxExempt          bool            `json:"isTaxExempt"`
	PartialExemptionRate decimal.Decimal `json:"partialExemptionRate"`
	TaxableGain          Money           `json:"taxableGain"`
	// ExemptFrom is the first sale date this lot would be exempt on, for time-exempt lots not yet exempt.
	ExemptFrom *date.Date `json:"exemptFrom,omitempty"`

	lot TaxLot // lot as read, for the version-checked update
}

// SaleEvent is the result of matching a sale against the lots of a holding.
type SaleEvent struct {
	HoldingID       string       `json:"holdingId"`
	AssetClass      AssetClass   `json:"assetClass"`
	FundCategory    FundCategory `json:"fundCategory,omitempty"`
	TaxCategory     TaxCategory  `json:"taxCategory"`
	SaleDate        date.Date    `json:"saleDate"`
	Quantity        Quantity     `json:"quantity"`
	QuantityMatched Quantity     `json:"quantityMatched"`
	Shortfall       Quantity     `json:"shortfall"`
	SalePrice       Money        `json:"salePrice"`
	GrossProceeds   Money        `json:"grossProceeds"`
	TotalCostBasis  Money        `json:"totalCostBasis"`
	GrossGainLoss   Money        `json:"grossGainLoss"`
	TaxableGain     Money        `json:"taxableGain"`
	ExemptGain      Money        `json:"exemptGain"`
	AllLotsExempt   bool         `json:"allLotsExempt"`
	LotsUsed        []LotSale    `json:"lotsUsed"`
}

// MatchFIFO consumes lots oldest first to satisfy req. It is a pure function: lots are not modified.
//
// Each lot slice gets its own holding period, gain and exemption. Lots bought after the sale date
// are not eligible. If the eligible lots cannot cover the sale, the returned error is an
// *InsufficientLotsError carrying the partial breakdown, unless opts.AllowPartial is set.
func MatchFIFO(asset Asset, lots Lots, req SaleRequest, opts MatchOptions) (SaleEvent, error) {
	if err := req.Validate(); err != nil {
		return SaleEvent{}, err
	}
	cur := req.SalePrice.Currency()
	zero := M(0, cur)

	sorted := make(Lots, 0, len(lots))
	for _, l := range lots {
		if l.HoldingID != "" && l.HoldingID != req.HoldingID {
			return SaleEvent{}, fmt.Errorf("%w: lot %s belongs to holding %s, not %s", ErrInvalidInput, l.ID, l.HoldingID, req.HoldingID)
		}
		if c := l.CostBasisPerUnit.Currency(); c != "" && cur != "" && c != cur {
			return SaleEvent{}, fmt.Errorf("%w: lot %s is in %s, sale is in %s", ErrInvalidInput, l.ID, c, cur)
		}
		if !l.RemainingQuantity.IsPositive() || l.PurchaseDate.After(req.SaleDate) {
			continue
		}
		sorted = append(sorted, l)
	}
	sorted.SortFIFO()

	ev := SaleEvent{
		HoldingID:      req.HoldingID,
		AssetClass:     asset.Class,
		FundCategory:   asset.FundCategory,
		TaxCategory:    asset.Class.TaxCategory(),
		SaleDate:       req.SaleDate,
		Quantity:       req.Quantity,
		SalePrice:      req.SalePrice,
		GrossProceeds:  zero,
		TotalCostBasis: zero,
		GrossGainLoss:  zero,
		TaxableGain:    zero,
		ExemptGain:     zero,
		LotsUsed:       []LotSale{},
	}

	toSell := req.Quantity
	allExempt := true
	for _, lot := range sorted {
		if !toSell.IsPositive() {
			break
		}
		qty := toSell.Min(lot.RemainingQuantity)
		proceeds := req.SalePrice.Mul(qty)
		cost := lot.CostBasisPerUnit.In(cur).Mul(qty)
		gain := proceeds.Sub(cost)
		days := req.SaleDate.DaysSince(lot.PurchaseDate)
		ex := Classify(asset.Class, asset.FundCategory, days)

		ls := LotSale{
			LotID:                lot.ID,
			PurchaseDate:         lot.PurchaseDate,
			QuantitySold:         qty,
			CostBasisPerUnit:     lot.CostBasisPerUnit.In(cur),
			CostBasis:            cost,
			Proceeds:             proceeds,
			GainLoss:             gain,
			HoldingPeriodDays:    days,
			IsTaxExempt:          ex.IsTaxExempt,
			PartialExemptionRate: ex.PartialExemptionRate,
			TaxableGain:          ex.TaxableGain(gain),
			lot:                  lot,
		}
		if on, ok := ExemptFrom(asset.Class, lot.PurchaseDate); ok && !ex.IsTaxExempt {
			ls.ExemptFrom = &on
		}
		allExempt = allExempt && ex.IsTaxExempt

		ev.LotsUsed = append(ev.LotsUsed, ls)
		ev.QuantityMatched = ev.QuantityMatched.Add(qty)
		ev.GrossProceeds = ev.GrossProceeds.Add(proceeds)
		ev.TotalCostBasis = ev.TotalCostBasis.Add(cost)
		ev.TaxableGain = ev.TaxableGain.Add(ls.TaxableGain)
		toSell = toSell.Sub(qty)
	}
	ev.AllLotsExempt = len(ev.LotsUsed) > 0 && allExempt
	ev.Shortfall = toSell

	// the exempt part only ever covers the matched lots.
	matchedGain := ev.GrossProceeds.Sub(ev.TotalCostBasis)
	matchedTaxable := ev.TaxableGain

	if toSell.IsPositive() && opts.AllowPartial {
		// legacy: proceeds on the requested quantity, whatever could be matched.
		ev.GrossProceeds = req.SalePrice.Mul(req.Quantity)
	}
	ev.GrossGainLoss = ev.GrossProceeds.Sub(ev.TotalCostBasis)

	if opts.LegacyExemption {
		rate := asset.FundCategory.PartialExemptionRate()
		if !asset.Class.IsFundLike() {
			rate = decimal.Zero
		}
		legacy := Exemption{IsTaxExempt: ev.AllLotsExempt, PartialExemptionRate: rate}
		ev.TaxableGain = legacy.TaxableGain(ev.GrossGainLoss)
		matchedTaxable = legacy.TaxableGain(matchedGain)
	}
	ev.ExemptGain = matchedGain.Sub(matchedTaxable)

	if toSell.IsPositive() && !opts.AllowPartial {
		return SaleEvent{}, &InsufficientLotsError{
			HoldingID: req.HoldingID,
			Requested: req.Quantity,
			Available: ev.QuantityMatched,
			Partial:   ev,
		}
	}
	return ev, nil
}

// IsComplete reports whether the whole requested quantity was matched.
func (e SaleEvent) IsComplete() bool { return !e.Shortfall.IsPositive() }

// LotUpdates returns the version-checked lot changes that execute this sale.
func (e SaleEvent) LotUpdates() []LotUpdate {
	updates := make([]LotUpdate, 0, len(e.LotsUsed))
	for _, ls := range e.LotsUsed {
		remaining := ls.lot.RemainingQuantity.Sub(ls.QuantitySold)
		updates = append(updates, LotUpdate{
			LotID:             ls.LotID,
			ExpectedVersion:   ls.lot.Version,
			RemainingQuantity: remaining,
			Status:            StatusOf(ls.lot.OriginalQuantity, remaining),
		})
	}
	return updates
}

// TaxEvents returns one sale event per lot slice, so that exemption stays at lot granularity.
func (e SaleEvent) TaxEvents(portfolioID string) []TaxEvent {
	events := make([]TaxEvent, 0, len(e.LotsUsed))
	zero := M(0, e.SalePrice.Currency())
	for _, ls := range e.LotsUsed {
		events = append(events, TaxEvent{
			ID:                 uuid.NewString(),
			PortfolioID:        portfolioID,
			HoldingID:          e.HoldingID,
			LotID:              ls.LotID,
			Type:               EventSale,
			Category:           e.TaxCategory,
			Date:               e.SaleDate,
			GrossAmount:        ls.Proceeds,
			GainLoss:           ls.GainLoss,
			TaxableAmount:      ls.TaxableGain,
			IsTaxExempt:        ls.IsTaxExempt,
			WithholdingTaxPaid: zero,
		})
	}
	return events
}
