package capgains

import "context"

// Store is the record store the engine reads from and writes to.
//
// Implementations return errors wrapping ErrNotFound for missing records and ErrConflict when a
// LotUpdate's expected version does not match. Writes of a CommitSale are atomic.
type Store interface {
	GetPortfolio(ctx context.Context, id string) (Portfolio, error)
	GetHolding(ctx context.Context, id string) (Holding, error)
	GetAsset(ctx context.Context, id string) (Asset, error)

	// ListLots returns the lots of a holding whose status is one of statusIn (all lots if empty).
	ListLots(ctx context.Context, holdingID string, statusIn ...LotStatus) (Lots, error)
	// UpdateLot applies a single version-checked lot update, with the same checks as CommitSale.
	// Sales go through CommitSale, so that lots and events are written together. UpdateLot serves
	// adjustments of one lot that record no event.
	UpdateLot(ctx context.Context, u LotUpdate) error
	// CommitSale applies all lot updates and records all events, or nothing.
	CommitSale(ctx context.Context, updates []LotUpdate, events []TaxEvent) error

	// ListEvents returns the events of a portfolio dated in the given calendar year.
	ListEvents(ctx context.Context, portfolioID string, taxYear int) ([]TaxEvent, error)
	GetSettings(ctx context.Context, userEmail string) (TaxSettings, error)

	GetSummary(ctx context.Context, portfolioID string, taxYear int) (TaxSummary, error)
	// SummaryYears returns the years of the stored summaries of a portfolio, in ascending order.
	SummaryYears(ctx context.Context, portfolioID string) ([]int, error)
	// UpsertSummary creates or replaces the summary keyed by (PortfolioID, TaxYear) in one atomic step.
	UpsertSummary(ctx context.Context, s TaxSummary) error
}

// Recorder creates the records the engine works on.
type Recorder interface {
	CreatePortfolio(ctx context.Context, p Portfolio) (Portfolio, error)
	CreateAsset(ctx context.Context, a Asset) (Asset, error)
	CreateHolding(ctx context.Context, h Holding) (Holding, error)
	AddLot(ctx context.Context, l TaxLot) (TaxLot, error)
	AddEvent(ctx context.Context, e TaxEvent) (TaxEvent, error)
	PutSettings(ctx context.Context, s TaxSettings) error
	ListHoldings(ctx context.Context, portfolioID string) ([]Holding, error)
}

// Database is a store that can also record. Both memstore and sqlstore implement it.
type Database interface {
	Store
	Recorder
	Close() error
}
