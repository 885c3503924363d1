package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/etnz/capgains"
	"github.com/etnz/capgains/date"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T) (*Store, capgains.Holding) {
	t.Helper()
	ctx := context.Background()
	s := New()
	p, err := s.CreatePortfolio(ctx, capgains.Portfolio{ID: "p1", Owner: "a@b.c", Currency: "EUR"})
	require.NoError(t, err)
	a, err := s.CreateAsset(ctx, capgains.Asset{ID: "aapl", Symbol: "AAPL", Class: capgains.Stock})
	require.NoError(t, err)
	h, err := s.CreateHolding(ctx, capgains.Holding{ID: "h1", PortfolioID: p.ID, AssetID: a.ID})
	require.NoError(t, err)
	return s, h
}

func lot(id, day string, qty int, cost float64) capgains.TaxLot {
	return capgains.TaxLot{
		ID:                id,
		HoldingID:         "h1",
		PurchaseDate:      date.MustParse(day),
		OriginalQuantity:  capgains.Q(qty),
		RemainingQuantity: capgains.Q(qty),
		CostBasisPerUnit:  capgains.M(cost, "EUR"),
	}
}

func TestNotFound(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, err := s.GetPortfolio(ctx, "nope")
	require.ErrorIs(t, err, capgains.ErrNotFound)
	_, err = s.GetHolding(ctx, "nope")
	require.ErrorIs(t, err, capgains.ErrNotFound)
	_, err = s.GetSummary(ctx, "nope", 2024)
	require.ErrorIs(t, err, capgains.ErrNotFound)
	_, err = s.GetSettings(ctx, "x@y.z")
	require.ErrorIs(t, err, capgains.ErrNotFound)
	_, err = s.CreateHolding(ctx, capgains.Holding{PortfolioID: "nope", AssetID: "nope"})
	require.ErrorIs(t, err, capgains.ErrNotFound)
}

func TestListLots(t *testing.T) {
	ctx := context.Background()
	s, h := seed(t)
	for _, l := range []capgains.TaxLot{
		lot("c", "2024-03-01", 10, 3),
		lot("a", "2024-01-01", 10, 1),
		lot("b", "2024-02-01", 10, 2),
	} {
		got, err := s.AddLot(ctx, l)
		require.NoError(t, err)
		require.Equal(t, int64(1), got.Version)
	}
	require.NoError(t, s.UpdateLot(ctx, capgains.LotUpdate{LotID: "a", ExpectedVersion: 1, RemainingQuantity: capgains.Q(0)}))
	require.NoError(t, s.UpdateLot(ctx, capgains.LotUpdate{LotID: "b", ExpectedVersion: 1, RemainingQuantity: capgains.Q(4)}))

	all, err := s.ListLots(ctx, h.ID)
	require.NoError(t, err)
	var ids []string
	for _, l := range all {
		ids = append(ids, l.ID)
	}
	require.Equal(t, []string{"a", "b", "c"}, ids)

	open, err := s.ListLots(ctx, h.ID, capgains.Matchable...)
	require.NoError(t, err)
	require.Len(t, open, 2)
	require.Equal(t, "b", open[0].ID)
	require.Equal(t, capgains.LotPartiallySold, open[0].Status())
	require.Equal(t, int64(2), open[0].Version)
}

func TestCommitSaleConflict(t *testing.T) {
	ctx := context.Background()
	s, h := seed(t)
	_, err := s.AddLot(ctx, lot("a", "2024-01-01", 10, 1))
	require.NoError(t, err)
	_, err = s.AddLot(ctx, lot("b", "2024-02-01", 10, 1))
	require.NoError(t, err)

	ev := capgains.TaxEvent{ID: "e1", PortfolioID: "p1", Type: capgains.EventSale, Category: capgains.CapitalGainsStocks, Date: date.MustParse("2024-06-01")}
	updates := []capgains.LotUpdate{
		{LotID: "a", ExpectedVersion: 1, RemainingQuantity: capgains.Q(0)},
		{LotID: "b", ExpectedVersion: 7, RemainingQuantity: capgains.Q(5)},
	}
	err = s.CommitSale(ctx, updates, []capgains.TaxEvent{ev})
	require.ErrorIs(t, err, capgains.ErrConflict)

	// nothing was applied
	lots, err := s.ListLots(ctx, h.ID)
	require.NoError(t, err)
	for _, l := range lots {
		require.True(t, l.RemainingQuantity.Equal(capgains.Q(10)), "lot %s changed", l.ID)
		require.Equal(t, int64(1), l.Version)
	}
	events, err := s.ListEvents(ctx, "p1", 2024)
	require.NoError(t, err)
	require.Empty(t, events)

	updates[1].ExpectedVersion = 1
	require.NoError(t, s.CommitSale(ctx, updates, []capgains.TaxEvent{ev}))
	events, err = s.ListEvents(ctx, "p1", 2024)
	require.NoError(t, err)
	require.Len(t, events, 1)

	// the same updates are now stale
	err = s.CommitSale(ctx, updates, nil)
	if !errors.Is(err, capgains.ErrConflict) {
		t.Errorf("CommitSale() = %v, want conflict", err)
	}
}

func TestListEventsByYear(t *testing.T) {
	ctx := context.Background()
	s, _ := seed(t)
	for _, d := range []string{"2023-12-31", "2024-01-01", "2024-12-31", "2025-01-01"} {
		_, err := s.AddEvent(ctx, capgains.TaxEvent{PortfolioID: "p1", Type: capgains.EventDividend, Category: capgains.Dividends, Date: date.MustParse(d)})
		require.NoError(t, err)
	}
	got, err := s.ListEvents(ctx, "p1", 2024)
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestUpsertSummary(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.UpsertSummary(ctx, capgains.TaxSummary{PortfolioID: "p1", TaxYear: 2024, EventCount: 1}))
	require.NoError(t, s.UpsertSummary(ctx, capgains.TaxSummary{PortfolioID: "p1", TaxYear: 2024, EventCount: 2}))
	got, err := s.GetSummary(ctx, "p1", 2024)
	require.NoError(t, err)
	require.Equal(t, 2, got.EventCount)

	require.NoError(t, s.UpsertSummary(ctx, capgains.TaxSummary{PortfolioID: "p1", TaxYear: 2022}))
	require.NoError(t, s.UpsertSummary(ctx, capgains.TaxSummary{PortfolioID: "p2", TaxYear: 2023}))
	years, err := s.SummaryYears(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, []int{2022, 2024}, years)
}
