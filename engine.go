package capgains

import (
	"context"
	"errors"
	"fmt"

	"github.com/etnz/capgains/date"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Engine runs the sale matcher and the tax aggregator against a Store.
//
// It holds no state between calls: every call reads what it needs, computes in memory and
// writes at most one atomic batch.
type Engine struct {
	store Store
	opts  options
}

// NewEngine creates an engine on top of store.
func NewEngine(store Store, opts ...Option) *Engine {
	return &Engine{store: store, opts: newOptions(opts)}
}

// Simulation is a dry run of a sale with an estimate of the tax it triggers.
type Simulation struct {
	SaleEvent
	EffectiveRate decimal.Decimal `json:"effectiveRate"`
	EstimatedTax  Money           `json:"estimatedTax"`
}

// MarshalJSON writes the sale fields followed by the estimate.
func (s Simulation) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(s.SaleEvent)
	w.Append("effectiveRate", s.EffectiveRate)
	w.Append("estimatedTax", s.EstimatedTax)
	return w.MarshalJSON()
}

// saleContext is what a sale needs from the store besides the lots.
type saleContext struct {
	portfolio Portfolio
	holding   Holding
	asset     Asset
}

func (e *Engine) loadSale(ctx context.Context, req *SaleRequest) (saleContext, error) {
	var sc saleContext
	if req.HoldingID == "" {
		return sc, fmt.Errorf("%w: holding id is required", ErrInvalidInput)
	}
	var err error
	if sc.holding, err = e.store.GetHolding(ctx, req.HoldingID); err != nil {
		return sc, fmt.Errorf("could not get holding %q: %w", req.HoldingID, err)
	}
	if sc.asset, err = e.store.GetAsset(ctx, sc.holding.AssetID); err != nil {
		return sc, fmt.Errorf("could not get asset %q: %w", sc.holding.AssetID, err)
	}
	if sc.portfolio, err = e.store.GetPortfolio(ctx, sc.holding.PortfolioID); err != nil {
		return sc, fmt.Errorf("could not get portfolio %q: %w", sc.holding.PortfolioID, err)
	}
	if req.SalePrice, err = inCurrency(req.SalePrice, e.currencyOf(sc.portfolio), "sale price"); err != nil {
		return sc, err
	}
	return sc, nil
}

func (e *Engine) match(ctx context.Context, sc saleContext, req SaleRequest) (SaleEvent, error) {
	lots, err := e.store.ListLots(ctx, sc.holding.ID, Matchable...)
	if err != nil {
		return SaleEvent{}, fmt.Errorf("could not list lots of holding %q: %w", sc.holding.ID, err)
	}
	ev, err := MatchFIFO(sc.asset, lots, req, e.opts.match)
	if err != nil {
		return SaleEvent{}, err
	}
	for _, ls := range ev.LotsUsed {
		e.opts.logger.Debug().
			Str("holding", sc.holding.ID).
			Str("lot", ls.LotID).
			Stringer("quantity", ls.QuantitySold).
			Int("holdingPeriodDays", ls.HoldingPeriodDays).
			Bool("exempt", ls.IsTaxExempt).
			Str("gainLoss", ls.GainLoss.Decimal().String()).
			Msg("lot matched")
	}
	if !ev.IsComplete() {
		e.opts.logger.Warn().Str("holding", sc.holding.ID).Stringer("shortfall", ev.Shortfall).Msg("partial match accepted in compatibility mode")
	}
	return ev, nil
}

// SimulateSale matches a sale against the open lots of a holding without modifying anything.
func (e *Engine) SimulateSale(ctx context.Context, req SaleRequest) (*Simulation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	sc, err := e.loadSale(ctx, &req)
	if err != nil {
		return nil, err
	}
	ev, err := e.match(ctx, sc, req)
	if err != nil {
		return nil, err
	}
	settings, err := e.SettingsFor(ctx, sc.portfolio)
	if err != nil {
		return nil, err
	}
	r := settings.EffectiveRate()
	return &Simulation{
		SaleEvent:     ev,
		EffectiveRate: r,
		EstimatedTax:  ev.TaxableGain.MulRate(r).Max(M(0, ev.TaxableGain.Currency())),
	}, nil
}

// ExecuteSale matches a sale, then decrements the lots and records the tax events atomically.
//
// If a lot changed between the read and the write, the whole match is retried from a fresh read,
// up to the configured number of attempts.
func (e *Engine) ExecuteSale(ctx context.Context, req SaleRequest) (*SaleEvent, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	sc, err := e.loadSale(ctx, &req)
	if err != nil {
		return nil, err
	}
	for attempt := 1; attempt <= e.opts.maxRetries; attempt++ {
		ev, err := e.match(ctx, sc, req)
		if err != nil {
			return nil, err
		}
		err = e.store.CommitSale(ctx, ev.LotUpdates(), ev.TaxEvents(sc.portfolio.ID))
		if errors.Is(err, ErrConflict) {
			e.opts.logger.Warn().Str("holding", sc.holding.ID).Int("attempt", attempt).Err(err).Msg("lot changed during sale, retrying")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("could not commit sale on holding %q: %w", sc.holding.ID, err)
		}
		e.opts.logger.Info().
			Str("holding", sc.holding.ID).
			Stringer("quantity", ev.QuantityMatched).
			Str("gainLoss", ev.GrossGainLoss.Decimal().String()).
			Int("lots", len(ev.LotsUsed)).
			Msg("sale executed")
		return &ev, nil
	}
	return nil, fmt.Errorf("%w: sale on holding %q still conflicting after %d attempts", ErrConcurrentModification, sc.holding.ID, e.opts.maxRetries)
}

func (e *Engine) currencyOf(p Portfolio) string {
	if p.Currency != "" {
		return p.Currency
	}
	return e.opts.currency
}

// inCurrency gives m the currency cur when it has none. Amounts are never converted: another
// currency is rejected.
func inCurrency(m Money, cur, what string) (Money, error) {
	if c := m.Currency(); c != "" && c != cur {
		return Money{}, fmt.Errorf("%w: %s is in %s, expected %s", ErrInvalidInput, what, c, cur)
	}
	return m.In(cur), nil
}

// SettingsFor returns the tax settings of the portfolio owner, or the defaults if they never saved any.
func (e *Engine) SettingsFor(ctx context.Context, p Portfolio) (TaxSettings, error) {
	cur := e.currencyOf(p)
	s, err := e.store.GetSettings(ctx, p.Owner)
	if errors.Is(err, ErrNotFound) {
		s = DefaultSettings(cur)
		if e.opts.defaults != nil {
			s = *e.opts.defaults
		}
		s.UserEmail = p.Owner
		err = nil
	}
	if err != nil {
		return TaxSettings{}, fmt.Errorf("could not get settings of %q: %w", p.Owner, err)
	}
	if s.SaverAllowance, err = inCurrency(s.SaverAllowance, cur, "saver allowance"); err != nil {
		return TaxSettings{}, err
	}
	if s.LossCarryforwardStocks, err = inCurrency(s.LossCarryforwardStocks, cur, "stock loss carryforward"); err != nil {
		return TaxSettings{}, err
	}
	if s.LossCarryforwardOther, err = inCurrency(s.LossCarryforwardOther, cur, "other loss carryforward"); err != nil {
		return TaxSettings{}, err
	}
	return s, nil
}

// CalculateSummary recomputes the tax summary of a portfolio for a year from all its events and
// upserts it. Running it again on the same events yields the same summary.
//
// Summaries are chained by their stock loss carryforward. The loss carried into the year is the one
// left by the latest stored summary before it, and the years in between are computed and stored on
// the way. Without any earlier summary, the owner's settings give the opening carryforward. Stored
// summaries of later years are recomputed afterwards, so they carry the new figures.
func (e *Engine) CalculateSummary(ctx context.Context, portfolioID string, taxYear int) (*TaxSummary, error) {
	if portfolioID == "" {
		return nil, fmt.Errorf("%w: portfolio id is required", ErrInvalidInput)
	}
	if taxYear < 1900 || taxYear > 9999 {
		return nil, fmt.Errorf("%w: tax year %d out of range", ErrInvalidInput, taxYear)
	}
	p, err := e.store.GetPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("could not get portfolio %q: %w", portfolioID, err)
	}
	settings, err := e.SettingsFor(ctx, p)
	if err != nil {
		return nil, err
	}
	years, err := e.store.SummaryYears(ctx, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("could not list summaries of %q: %w", portfolioID, err)
	}

	prior := settings.LossCarryforwardStocks
	from, to := taxYear, taxYear
	chained := false
	for _, y := range years {
		if y < taxYear {
			from, chained = y+1, true
		}
		if y > to {
			to = y
		}
	}
	if chained {
		prev, err := e.store.GetSummary(ctx, portfolioID, from-1)
		if err != nil {
			return nil, fmt.Errorf("could not get %d summary: %w", from-1, err)
		}
		prior = prev.LossCarryforwardStocks
	}

	var result TaxSummary
	for y := from; y <= to; y++ {
		s, err := e.summarize(ctx, p, settings, y, prior)
		if err != nil {
			return nil, err
		}
		prior = s.LossCarryforwardStocks
		if y == taxYear {
			result = s
		}
	}
	return &result, nil
}

// summarize computes and upserts the summary of one year, given the stock loss carried into it.
func (e *Engine) summarize(ctx context.Context, p Portfolio, settings TaxSettings, taxYear int, prior Money) (TaxSummary, error) {
	events, err := e.store.ListEvents(ctx, p.ID, taxYear)
	if err != nil {
		return TaxSummary{}, fmt.Errorf("could not list events of %d: %w", taxYear, err)
	}
	totals, err := FoldEvents(e.currencyOf(p), events)
	if err != nil {
		return TaxSummary{}, err
	}
	s := ComputeSummary(SummaryInput{
		PortfolioID:                 p.ID,
		TaxYear:                     taxYear,
		Totals:                      totals,
		Settings:                    settings,
		PriorLossCarryforwardStocks: prior,
		Now:                         e.opts.now().UTC(),
	})

	if err := e.store.UpsertSummary(ctx, s); err != nil {
		return TaxSummary{}, fmt.Errorf("could not save %d summary: %w", taxYear, err)
	}
	e.opts.logger.Info().
		Str("portfolio", p.ID).
		Int("year", taxYear).
		Int("events", s.EventCount).
		Str("liability", s.EstimatedTaxLiability.Decimal().String()).
		Msg("tax summary updated")
	return s, nil
}

// Summary returns the stored summary of a portfolio for a year.
func (e *Engine) Summary(ctx context.Context, portfolioID string, taxYear int) (*TaxSummary, error) {
	s, err := e.store.GetSummary(ctx, portfolioID, taxYear)
	if err != nil {
		return nil, fmt.Errorf("could not get %d summary of %q: %w", taxYear, portfolioID, err)
	}
	return &s, nil
}

// Holding returns a holding with the asset it is invested in.
func (e *Engine) Holding(ctx context.Context, holdingID string) (Holding, Asset, error) {
	h, err := e.store.GetHolding(ctx, holdingID)
	if err != nil {
		return Holding{}, Asset{}, fmt.Errorf("could not get holding %q: %w", holdingID, err)
	}
	a, err := e.store.GetAsset(ctx, h.AssetID)
	if err != nil {
		return Holding{}, Asset{}, fmt.Errorf("could not get asset %q: %w", h.AssetID, err)
	}
	return h, a, nil
}

// Lots returns the lots of a holding, oldest first.
func (e *Engine) Lots(ctx context.Context, holdingID string, statusIn ...LotStatus) (Lots, error) {
	if _, err := e.store.GetHolding(ctx, holdingID); err != nil {
		return nil, fmt.Errorf("could not get holding %q: %w", holdingID, err)
	}
	lots, err := e.store.ListLots(ctx, holdingID, statusIn...)
	if err != nil {
		return nil, fmt.Errorf("could not list lots of holding %q: %w", holdingID, err)
	}
	lots.SortFIFO()
	return lots, nil
}

func (e *Engine) recorder() (Recorder, error) {
	rec, ok := e.store.(Recorder)
	if !ok {
		return nil, fmt.Errorf("store %T cannot record", e.store)
	}
	return rec, nil
}

// PurchaseRequest records the acquisition of a lot.
type PurchaseRequest struct {
	HoldingID    string    `json:"holdingId"`
	Date         date.Date `json:"date"`
	Quantity     Quantity  `json:"quantity"`
	PricePerUnit Money     `json:"pricePerUnit"`
}

// RecordPurchase creates a new open lot on a holding.
func (e *Engine) RecordPurchase(ctx context.Context, req PurchaseRequest) (TaxLot, error) {
	rec, err := e.recorder()
	if err != nil {
		return TaxLot{}, err
	}
	h, err := e.store.GetHolding(ctx, req.HoldingID)
	if err != nil {
		return TaxLot{}, fmt.Errorf("could not get holding %q: %w", req.HoldingID, err)
	}
	p, err := e.store.GetPortfolio(ctx, h.PortfolioID)
	if err != nil {
		return TaxLot{}, fmt.Errorf("could not get portfolio %q: %w", h.PortfolioID, err)
	}
	price, err := inCurrency(req.PricePerUnit, e.currencyOf(p), "purchase price")
	if err != nil {
		return TaxLot{}, err
	}
	lot := TaxLot{
		ID:                uuid.NewString(),
		HoldingID:         h.ID,
		PurchaseDate:      req.Date,
		OriginalQuantity:  req.Quantity,
		RemainingQuantity: req.Quantity,
		CostBasisPerUnit:  price,
	}
	if err := lot.Validate(); err != nil {
		return TaxLot{}, err
	}
	lot, err = rec.AddLot(ctx, lot)
	if err != nil {
		return TaxLot{}, fmt.Errorf("could not add lot: %w", err)
	}
	e.opts.logger.Debug().Str("holding", h.ID).Str("lot", lot.ID).Stringer("quantity", lot.OriginalQuantity).Msg("lot recorded")
	return lot, nil
}

// IncomeRequest records a dividend or interest payment.
type IncomeRequest struct {
	PortfolioID    string    `json:"portfolioId"`
	HoldingID      string    `json:"holdingId,omitempty"`
	Type           EventType `json:"type"`
	Date           date.Date `json:"date"`
	GrossAmount    Money     `json:"grossAmount"`
	WithholdingTax Money     `json:"withholdingTax"`
}

// RecordIncome creates a dividend or interest tax event.
func (e *Engine) RecordIncome(ctx context.Context, req IncomeRequest) (TaxEvent, error) {
	rec, err := e.recorder()
	if err != nil {
		return TaxEvent{}, err
	}
	var category TaxCategory
	switch req.Type {
	case EventDividend:
		category = Dividends
	case EventInterest:
		category = Interest
	default:
		return TaxEvent{}, fmt.Errorf("%w: income must be a dividend or interest, got %q", ErrInvalidInput, req.Type)
	}
	p, err := e.store.GetPortfolio(ctx, req.PortfolioID)
	if err != nil {
		return TaxEvent{}, fmt.Errorf("could not get portfolio %q: %w", req.PortfolioID, err)
	}
	if req.HoldingID != "" {
		if _, err := e.store.GetHolding(ctx, req.HoldingID); err != nil {
			return TaxEvent{}, fmt.Errorf("could not get holding %q: %w", req.HoldingID, err)
		}
	}
	cur := e.currencyOf(p)
	gross, err := inCurrency(req.GrossAmount, cur, "income amount")
	if err != nil {
		return TaxEvent{}, err
	}
	withheld, err := inCurrency(req.WithholdingTax, cur, "withholding tax")
	if err != nil {
		return TaxEvent{}, err
	}
	ev := TaxEvent{
		ID:                 uuid.NewString(),
		PortfolioID:        p.ID,
		HoldingID:          req.HoldingID,
		Type:               req.Type,
		Category:           category,
		Date:               req.Date,
		GrossAmount:        gross,
		GainLoss:           M(0, cur),
		TaxableAmount:      gross,
		WithholdingTaxPaid: withheld,
	}
	if err := ev.Validate(); err != nil {
		return TaxEvent{}, err
	}
	if !ev.GrossAmount.IsPositive() {
		return TaxEvent{}, fmt.Errorf("%w: income amount must be positive", ErrInvalidInput)
	}
	ev, err = rec.AddEvent(ctx, ev)
	if err != nil {
		return TaxEvent{}, fmt.Errorf("could not add event: %w", err)
	}
	return ev, nil
}

// UpdateSettings saves the tax settings of a user.
func (e *Engine) UpdateSettings(ctx context.Context, s TaxSettings) error {
	rec, err := e.recorder()
	if err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}
	if err := rec.PutSettings(ctx, s); err != nil {
		return fmt.Errorf("could not save settings of %q: %w", s.UserEmail, err)
	}
	return nil
}
