package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/etnz/capgains"
	"github.com/etnz/capgains/date"
	"github.com/google/uuid"
)

const (
	insertLot  = `INSERT INTO tax_lots (id, holding_id, purchase_date, original_quantity, remaining_quantity, cost_basis_per_unit, currency, status, version) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)`
	selectLots = `SELECT id, holding_id, purchase_date, original_quantity, remaining_quantity, cost_basis_per_unit, currency, version FROM tax_lots WHERE holding_id = ?`
	updateLot  = `UPDATE tax_lots SET remaining_quantity = ?, status = ?, version = version + 1 WHERE id = ? AND version = ?`
	lotState   = `SELECT original_quantity, version FROM tax_lots WHERE id = ?`

	insertEvent  = `INSERT INTO tax_events (id, portfolio_id, holding_id, lot_id, type, category, date, tax_year, currency, gross_amount, gain_loss, taxable_amount, is_tax_exempt, withholding_tax_paid) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	selectEvents = `SELECT id, portfolio_id, holding_id, lot_id, type, category, date, currency, gross_amount, gain_loss, taxable_amount, is_tax_exempt, withholding_tax_paid FROM tax_events WHERE portfolio_id = ? AND tax_year = ? ORDER BY rowid`
)

// AddLot records a new lot at version 1.
func (s *Store) AddLot(ctx context.Context, l capgains.TaxLot) (capgains.TaxLot, error) {
	if _, err := s.GetHolding(ctx, l.HoldingID); err != nil {
		return capgains.TaxLot{}, err
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l.Version = 1
	_, err := s.db.ExecContext(ctx, insertLot,
		l.ID, l.HoldingID, l.PurchaseDate.String(),
		l.OriginalQuantity.String(), l.RemainingQuantity.String(),
		text(l.CostBasisPerUnit), l.CostBasisPerUnit.Currency(), l.Status().String())
	if err != nil {
		return capgains.TaxLot{}, fmt.Errorf("insert lot: %w", err)
	}
	return l, nil
}

// ListLots returns the lots of a holding oldest first, filtered by status when statusIn is not empty.
func (s *Store) ListLots(ctx context.Context, holdingID string, statusIn ...capgains.LotStatus) (capgains.Lots, error) {
	query, args := lotsQuery(holdingID, statusIn)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	defer rows.Close()

	lots := capgains.Lots{}
	for rows.Next() {
		var l capgains.TaxLot
		var purchased, original, remaining, cost, cur string
		if err := rows.Scan(&l.ID, &l.HoldingID, &purchased, &original, &remaining, &cost, &cur, &l.Version); err != nil {
			return nil, fmt.Errorf("scan lot: %w", err)
		}
		if l.PurchaseDate, err = date.Parse(purchased); err != nil {
			return nil, fmt.Errorf("lot %q: %w", l.ID, err)
		}
		if l.OriginalQuantity, err = capgains.ParseQuantity(original); err != nil {
			return nil, fmt.Errorf("lot %q: %w", l.ID, err)
		}
		if l.RemainingQuantity, err = capgains.ParseQuantity(remaining); err != nil {
			return nil, fmt.Errorf("lot %q: %w", l.ID, err)
		}
		if l.CostBasisPerUnit, err = parseMoney(cost, cur); err != nil {
			return nil, fmt.Errorf("lot %q: %w", l.ID, err)
		}
		lots = append(lots, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	return lots, nil
}

func lotsQuery(holdingID string, statusIn []capgains.LotStatus) (string, []any) {
	query := selectLots
	args := []any{holdingID}
	if len(statusIn) > 0 {
		marks := make([]string, len(statusIn))
		for i, st := range statusIn {
			marks[i] = "?"
			args = append(args, st.String())
		}
		query += " AND status IN (" + strings.Join(marks, ", ") + ")"
	}
	return query + " ORDER BY purchase_date, id", args
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// applyUpdate checks the update against the stored lot, then writes it if the version still matches.
func applyUpdate(ctx context.Context, x execer, u capgains.LotUpdate) error {
	if u.RemainingQuantity.IsNegative() {
		return fmt.Errorf("%w: remaining quantity %s out of range for lot %q", capgains.ErrInvalidInput, u.RemainingQuantity, u.LotID)
	}
	var original string
	var version int64
	err := x.QueryRowContext(ctx, lotState, u.LotID).Scan(&original, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound("lot", u.LotID)
	}
	if err != nil {
		return fmt.Errorf("select lot: %w", err)
	}
	if version != u.ExpectedVersion {
		return fmt.Errorf("lot %q at version %d, expected %d: %w", u.LotID, version, u.ExpectedVersion, capgains.ErrConflict)
	}
	limit, err := capgains.ParseQuantity(original)
	if err != nil {
		return fmt.Errorf("parse lot %q quantity: %w", u.LotID, err)
	}
	if u.RemainingQuantity.GreaterThan(limit) {
		return fmt.Errorf("%w: remaining quantity %s out of range for lot %q", capgains.ErrInvalidInput, u.RemainingQuantity, u.LotID)
	}

	res, err := x.ExecContext(ctx, updateLot, u.RemainingQuantity.String(), u.Status.String(), u.LotID, u.ExpectedVersion)
	if err != nil {
		return fmt.Errorf("update lot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update lot: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("lot %q changed since version %d: %w", u.LotID, u.ExpectedVersion, capgains.ErrConflict)
	}
	return nil
}

func (s *Store) UpdateLot(ctx context.Context, u capgains.LotUpdate) error {
	return applyUpdate(ctx, s.db, u)
}

func insertEventWith(ctx context.Context, x execer, e capgains.TaxEvent) error {
	cur := e.GrossAmount.Currency()
	if cur == "" {
		cur = e.GainLoss.Currency()
	}
	_, err := x.ExecContext(ctx, insertEvent,
		e.ID, e.PortfolioID, e.HoldingID, e.LotID, string(e.Type), string(e.Category),
		e.Date.String(), e.TaxYear(), cur,
		text(e.GrossAmount), text(e.GainLoss), text(e.TaxableAmount), e.IsTaxExempt, text(e.WithholdingTaxPaid))
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// CommitSale applies every lot update and inserts every event in one transaction.
// Any version mismatch rolls the whole batch back with capgains.ErrConflict.
func (s *Store) CommitSale(ctx context.Context, updates []capgains.LotUpdate, events []capgains.TaxEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sale: %w", err)
	}
	defer tx.Rollback()

	for _, u := range updates {
		if err := applyUpdate(ctx, tx, u); err != nil {
			return err
		}
	}
	for _, e := range events {
		if err := insertEventWith(ctx, tx, e); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sale: %w", err)
	}
	return nil
}

func (s *Store) AddEvent(ctx context.Context, e capgains.TaxEvent) (capgains.TaxEvent, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if err := insertEventWith(ctx, s.db, e); err != nil {
		return capgains.TaxEvent{}, err
	}
	return e, nil
}

// ListEvents returns the events of a portfolio for a year in recording order.
func (s *Store) ListEvents(ctx context.Context, portfolioID string, taxYear int) ([]capgains.TaxEvent, error) {
	rows, err := s.db.QueryContext(ctx, selectEvents, portfolioID, taxYear)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := []capgains.TaxEvent{}
	for rows.Next() {
		var e capgains.TaxEvent
		var typ, category, day, cur, gross, gain, taxable, withholding string
		if err := rows.Scan(&e.ID, &e.PortfolioID, &e.HoldingID, &e.LotID, &typ, &category, &day, &cur, &gross, &gain, &taxable, &e.IsTaxExempt, &withholding); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Type = capgains.EventType(typ)
		e.Category = capgains.TaxCategory(category)
		if e.Date, err = date.Parse(day); err != nil {
			return nil, fmt.Errorf("event %q: %w", e.ID, err)
		}
		for _, f := range []struct {
			dst *capgains.Money
			src string
		}{{&e.GrossAmount, gross}, {&e.GainLoss, gain}, {&e.TaxableAmount, taxable}, {&e.WithholdingTaxPaid, withholding}} {
			if *f.dst, err = parseMoney(f.src, cur); err != nil {
				return nil, fmt.Errorf("event %q: %w", e.ID, err)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}
