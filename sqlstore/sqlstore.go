// Package sqlstore is a SQLite implementation of the capgains store, on the pure Go
// modernc.org/sqlite driver.
//
// Amounts and quantities are stored as decimal TEXT so that nothing is lost to floating point.
// Lot updates are version checked inside a transaction.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/etnz/capgains"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS portfolios (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    owner TEXT NOT NULL,
    currency TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS assets (
    id TEXT PRIMARY KEY,
    symbol TEXT NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    class TEXT NOT NULL,
    fund_category TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS holdings (
    id TEXT PRIMARY KEY,
    portfolio_id TEXT NOT NULL REFERENCES portfolios(id),
    asset_id TEXT NOT NULL REFERENCES assets(id)
);

CREATE TABLE IF NOT EXISTS tax_lots (
    id TEXT PRIMARY KEY,
    holding_id TEXT NOT NULL REFERENCES holdings(id),
    purchase_date TEXT NOT NULL,
    original_quantity TEXT NOT NULL,
    remaining_quantity TEXT NOT NULL,
    cost_basis_per_unit TEXT NOT NULL,
    currency TEXT NOT NULL,
    status TEXT NOT NULL,
    version INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS tax_lots_holding ON tax_lots(holding_id, status);

CREATE TABLE IF NOT EXISTS tax_events (
    id TEXT PRIMARY KEY,
    portfolio_id TEXT NOT NULL REFERENCES portfolios(id),
    holding_id TEXT NOT NULL DEFAULT '',
    lot_id TEXT NOT NULL DEFAULT '',
    type TEXT NOT NULL,
    category TEXT NOT NULL,
    date TEXT NOT NULL,
    tax_year INTEGER NOT NULL,
    currency TEXT NOT NULL,
    gross_amount TEXT NOT NULL,
    gain_loss TEXT NOT NULL,
    taxable_amount TEXT NOT NULL,
    is_tax_exempt INTEGER NOT NULL DEFAULT 0,
    withholding_tax_paid TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS tax_events_year ON tax_events(portfolio_id, tax_year);

CREATE TABLE IF NOT EXISTS tax_settings (
    user_email TEXT PRIMARY KEY,
    currency TEXT NOT NULL,
    saver_allowance TEXT NOT NULL,
    church_tax_rate TEXT NOT NULL,
    include_solidarity_surcharge INTEGER NOT NULL,
    loss_carryforward_stocks TEXT NOT NULL,
    loss_carryforward_other TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tax_summaries (
    portfolio_id TEXT NOT NULL REFERENCES portfolios(id),
    tax_year INTEGER NOT NULL,
    summary TEXT NOT NULL,
    last_calculated TEXT NOT NULL,
    PRIMARY KEY (portfolio_id, tax_year)
);
`

// Store is a capgains.Database backed by a *sql.DB.
type Store struct {
	db *sql.DB
}

var _ capgains.Database = (*Store)(nil)

// Open opens (or creates) the database file at path and migrates its schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single writer avoids SQLITE_BUSY between our own connections.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an already open database. The schema is not migrated.
func New(db *sql.DB) *Store { return &Store{db: db} }

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate sqlite: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, capgains.ErrNotFound)
}

func parseMoney(amount, currency string) (capgains.Money, error) {
	return capgains.ParseMoney(amount, currency)
}

func text(m capgains.Money) string { return m.Decimal().String() }

/* ---- reference data ---- */

const (
	insertPortfolio = `INSERT INTO portfolios (id, name, owner, currency) VALUES (?, ?, ?, ?)`
	selectPortfolio = `SELECT id, name, owner, currency FROM portfolios WHERE id = ?`
	insertAsset     = `INSERT INTO assets (id, symbol, name, class, fund_category) VALUES (?, ?, ?, ?, ?)`
	selectAsset     = `SELECT id, symbol, name, class, fund_category FROM assets WHERE id = ?`
	insertHolding   = `INSERT INTO holdings (id, portfolio_id, asset_id) VALUES (?, ?, ?)`
	selectHolding   = `SELECT id, portfolio_id, asset_id FROM holdings WHERE id = ?`
	selectHoldings  = `SELECT id, portfolio_id, asset_id FROM holdings WHERE portfolio_id = ? ORDER BY id`
)

func (s *Store) CreatePortfolio(ctx context.Context, p capgains.Portfolio) (capgains.Portfolio, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if _, err := s.db.ExecContext(ctx, insertPortfolio, p.ID, p.Name, p.Owner, p.Currency); err != nil {
		return capgains.Portfolio{}, fmt.Errorf("insert portfolio: %w", err)
	}
	return p, nil
}

func (s *Store) GetPortfolio(ctx context.Context, id string) (capgains.Portfolio, error) {
	var p capgains.Portfolio
	err := s.db.QueryRowContext(ctx, selectPortfolio, id).Scan(&p.ID, &p.Name, &p.Owner, &p.Currency)
	if errors.Is(err, sql.ErrNoRows) {
		return p, notFound("portfolio", id)
	}
	if err != nil {
		return p, fmt.Errorf("select portfolio: %w", err)
	}
	return p, nil
}

func (s *Store) CreateAsset(ctx context.Context, a capgains.Asset) (capgains.Asset, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if _, err := s.db.ExecContext(ctx, insertAsset, a.ID, a.Symbol, a.Name, a.Class.String(), string(a.FundCategory)); err != nil {
		return capgains.Asset{}, fmt.Errorf("insert asset: %w", err)
	}
	return a, nil
}

func (s *Store) GetAsset(ctx context.Context, id string) (capgains.Asset, error) {
	var a capgains.Asset
	var class, category string
	err := s.db.QueryRowContext(ctx, selectAsset, id).Scan(&a.ID, &a.Symbol, &a.Name, &class, &category)
	if errors.Is(err, sql.ErrNoRows) {
		return a, notFound("asset", id)
	}
	if err != nil {
		return a, fmt.Errorf("select asset: %w", err)
	}
	if a.Class, err = capgains.ParseAssetClass(class); err != nil {
		return a, fmt.Errorf("asset %q: %w", id, err)
	}
	if a.FundCategory, err = capgains.ParseFundCategory(category); err != nil {
		return a, fmt.Errorf("asset %q: %w", id, err)
	}
	return a, nil
}

func (s *Store) CreateHolding(ctx context.Context, h capgains.Holding) (capgains.Holding, error) {
	if _, err := s.GetPortfolio(ctx, h.PortfolioID); err != nil {
		return capgains.Holding{}, err
	}
	if _, err := s.GetAsset(ctx, h.AssetID); err != nil {
		return capgains.Holding{}, err
	}
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if _, err := s.db.ExecContext(ctx, insertHolding, h.ID, h.PortfolioID, h.AssetID); err != nil {
		return capgains.Holding{}, fmt.Errorf("insert holding: %w", err)
	}
	return h, nil
}

func (s *Store) GetHolding(ctx context.Context, id string) (capgains.Holding, error) {
	var h capgains.Holding
	err := s.db.QueryRowContext(ctx, selectHolding, id).Scan(&h.ID, &h.PortfolioID, &h.AssetID)
	if errors.Is(err, sql.ErrNoRows) {
		return h, notFound("holding", id)
	}
	if err != nil {
		return h, fmt.Errorf("select holding: %w", err)
	}
	return h, nil
}

func (s *Store) ListHoldings(ctx context.Context, portfolioID string) ([]capgains.Holding, error) {
	rows, err := s.db.QueryContext(ctx, selectHoldings, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("list holdings: %w", err)
	}
	defer rows.Close()

	out := []capgains.Holding{}
	for rows.Next() {
		var h capgains.Holding
		if err := rows.Scan(&h.ID, &h.PortfolioID, &h.AssetID); err != nil {
			return nil, fmt.Errorf("scan holding: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

/* ---- settings ---- */

const (
	selectSettings = `SELECT user_email, currency, saver_allowance, church_tax_rate, include_solidarity_surcharge, loss_carryforward_stocks, loss_carryforward_other FROM tax_settings WHERE user_email = ?`
	upsertSettings = `INSERT INTO tax_settings (user_email, currency, saver_allowance, church_tax_rate, include_solidarity_surcharge, loss_carryforward_stocks, loss_carryforward_other) VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_email) DO UPDATE SET currency = excluded.currency, saver_allowance = excluded.saver_allowance, church_tax_rate = excluded.church_tax_rate, include_solidarity_surcharge = excluded.include_solidarity_surcharge, loss_carryforward_stocks = excluded.loss_carryforward_stocks, loss_carryforward_other = excluded.loss_carryforward_other`
)

func (s *Store) GetSettings(ctx context.Context, userEmail string) (capgains.TaxSettings, error) {
	var v capgains.TaxSettings
	var cur, allowance, church, lcfStocks, lcfOther string
	err := s.db.QueryRowContext(ctx, selectSettings, userEmail).Scan(&v.UserEmail, &cur, &allowance, &church, &v.IncludeSolidaritySurcharge, &lcfStocks, &lcfOther)
	if errors.Is(err, sql.ErrNoRows) {
		return v, notFound("settings", userEmail)
	}
	if err != nil {
		return v, fmt.Errorf("select settings: %w", err)
	}
	if v.SaverAllowance, err = parseMoney(allowance, cur); err != nil {
		return v, err
	}
	if v.ChurchTaxRate, err = decimal.NewFromString(church); err != nil {
		return v, fmt.Errorf("invalid church tax rate %q: %w", church, err)
	}
	if v.LossCarryforwardStocks, err = parseMoney(lcfStocks, cur); err != nil {
		return v, err
	}
	if v.LossCarryforwardOther, err = parseMoney(lcfOther, cur); err != nil {
		return v, err
	}
	return v, nil
}

func (s *Store) PutSettings(ctx context.Context, v capgains.TaxSettings) error {
	_, err := s.db.ExecContext(ctx, upsertSettings,
		v.UserEmail, v.SaverAllowance.Currency(), text(v.SaverAllowance), v.ChurchTaxRate.String(),
		v.IncludeSolidaritySurcharge, text(v.LossCarryforwardStocks), text(v.LossCarryforwardOther))
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}

/* ---- summaries ---- */

const (
	selectSummary      = `SELECT summary FROM tax_summaries WHERE portfolio_id = ? AND tax_year = ?`
	selectSummaryYears = `SELECT tax_year FROM tax_summaries WHERE portfolio_id = ? ORDER BY tax_year`
	upsertSummary      = `INSERT INTO tax_summaries (portfolio_id, tax_year, summary, last_calculated) VALUES (?, ?, ?, ?)
ON CONFLICT(portfolio_id, tax_year) DO UPDATE SET summary = excluded.summary, last_calculated = excluded.last_calculated`
)

func (s *Store) GetSummary(ctx context.Context, portfolioID string, taxYear int) (capgains.TaxSummary, error) {
	var v capgains.TaxSummary
	var doc string
	err := s.db.QueryRowContext(ctx, selectSummary, portfolioID, taxYear).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return v, notFound("summary", fmt.Sprintf("%s/%d", portfolioID, taxYear))
	}
	if err != nil {
		return v, fmt.Errorf("select summary: %w", err)
	}
	if err := json.Unmarshal([]byte(doc), &v); err != nil {
		return v, fmt.Errorf("decode summary: %w", err)
	}
	return v, nil
}

func (s *Store) SummaryYears(ctx context.Context, portfolioID string) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, selectSummaryYears, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("list summary years: %w", err)
	}
	defer rows.Close()

	years := []int{}
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, fmt.Errorf("scan summary year: %w", err)
		}
		years = append(years, y)
	}
	return years, rows.Err()
}

// UpsertSummary writes the summary in a single statement, so concurrent runs cannot create duplicates.
func (s *Store) UpsertSummary(ctx context.Context, v capgains.TaxSummary) error {
	doc, err := json.Marshal(v.Exact())
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, upsertSummary, v.PortfolioID, v.TaxYear, string(doc), v.LastCalculated.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}
	return nil
}
