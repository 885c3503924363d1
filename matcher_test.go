package capgains

import (
	"errors"
	"testing"
)

var (
	stock  = Asset{ID: "aapl", Symbol: "AAPL", Class: Stock}
	crypto = Asset{ID: "btc", Symbol: "BTC", Class: Crypto}
	etf    = Asset{ID: "vwce", Symbol: "VWCE", Class: ETF, FundCategory: EquityFund30}
)

func TestMatchFIFO_Order(t *testing.T) {
	lots := Lots{
		newLot("l3", "2024-01-05", 10, EUR(150)),
		newLot("l1", "2023-01-10", 10, EUR(100)),
		newLot("l2", "2023-06-01", 10, EUR(120)),
	}

	t.Run("exactly the first lot", func(t *testing.T) {
		ev, err := MatchFIFO(stock, lots, sell(10, EUR(200), "2024-06-01"), MatchOptions{})
		if err != nil {
			t.Fatalf("MatchFIFO() error = %v", err)
		}
		if len(ev.LotsUsed) != 1 || ev.LotsUsed[0].LotID != "l1" {
			t.Errorf("LotsUsed = %+v, want only l1", ev.LotsUsed)
		}
	})

	t.Run("spill into the second lot", func(t *testing.T) {
		ev, err := MatchFIFO(stock, lots, sell(25, EUR(200), "2024-06-01"), MatchOptions{})
		if err != nil {
			t.Fatalf("MatchFIFO() error = %v", err)
		}
		wantIDs := []string{"l1", "l2", "l3"}
		wantQty := []float64{10, 10, 5}
		wantGain := []Money{EUR(1000), EUR(800), EUR(250)}
		if len(ev.LotsUsed) != len(wantIDs) {
			t.Fatalf("len(LotsUsed) = %d, want %d", len(ev.LotsUsed), len(wantIDs))
		}
		var sold Quantity
		var cost Money
		for i, ls := range ev.LotsUsed {
			if ls.LotID != wantIDs[i] {
				t.Errorf("LotsUsed[%d].LotID = %s, want %s", i, ls.LotID, wantIDs[i])
			}
			if !ls.QuantitySold.Equal(Q(wantQty[i])) {
				t.Errorf("LotsUsed[%d].QuantitySold = %v, want %v", i, ls.QuantitySold, wantQty[i])
			}
			if !ls.GainLoss.Equal(wantGain[i]) {
				t.Errorf("LotsUsed[%d].GainLoss = %v, want %v", i, ls.GainLoss, wantGain[i])
			}
			sold = sold.Add(ls.QuantitySold)
			cost = cost.Add(ls.CostBasisPerUnit.Mul(ls.QuantitySold))
		}
		if !sold.Equal(Q(25)) {
			t.Errorf("sum of QuantitySold = %v, want 25", sold)
		}
		if !cost.Equal(ev.TotalCostBasis) || !ev.TotalCostBasis.Equal(EUR(2950)) {
			t.Errorf("TotalCostBasis = %v, sum of lots = %v, want 2950", ev.TotalCostBasis, cost)
		}
		if !ev.GrossProceeds.Equal(EUR(5000)) {
			t.Errorf("GrossProceeds = %v, want 5000", ev.GrossProceeds)
		}
		if !ev.GrossGainLoss.Equal(EUR(2050)) || !ev.TaxableGain.Equal(EUR(2050)) {
			t.Errorf("GrossGainLoss, TaxableGain = %v, %v, want 2050, 2050", ev.GrossGainLoss, ev.TaxableGain)
		}
		if !ev.ExemptGain.IsZero() {
			t.Errorf("ExemptGain = %v, want 0", ev.ExemptGain)
		}

		updates := ev.LotUpdates()
		wantStatus := []LotStatus{LotClosed, LotClosed, LotPartiallySold}
		for i, u := range updates {
			if u.Status != wantStatus[i] {
				t.Errorf("LotUpdates()[%d].Status = %v, want %v", i, u.Status, wantStatus[i])
			}
			if u.ExpectedVersion != 1 {
				t.Errorf("LotUpdates()[%d].ExpectedVersion = %d, want 1", i, u.ExpectedVersion)
			}
		}
		if !updates[2].RemainingQuantity.Equal(Q(5)) {
			t.Errorf("remaining of l3 = %v, want 5", updates[2].RemainingQuantity)
		}
	})

	t.Run("input lots are not modified", func(t *testing.T) {
		if _, err := MatchFIFO(stock, lots, sell(25, EUR(200), "2024-06-01"), MatchOptions{}); err != nil {
			t.Fatalf("MatchFIFO() error = %v", err)
		}
		for _, l := range lots {
			if !l.RemainingQuantity.Equal(Q(10)) {
				t.Errorf("lot %s remaining = %v, want 10", l.ID, l.RemainingQuantity)
			}
		}
	})
}

func TestMatchFIFO_SameDayLots(t *testing.T) {
	lots := Lots{
		newLot("b", "2024-01-01", 1, EUR(20)),
		newLot("a", "2024-01-01", 1, EUR(10)),
	}
	ev, err := MatchFIFO(stock, lots, sell(1, EUR(30), "2024-02-01"), MatchOptions{})
	if err != nil {
		t.Fatalf("MatchFIFO() error = %v", err)
	}
	if got := ev.LotsUsed[0].LotID; got != "a" {
		t.Errorf("first lot = %s, want a", got)
	}
}

func TestMatchFIFO_ExemptionBoundary(t *testing.T) {
	lots := Lots{newLot("l1", "2023-01-01", 1, EUR(100))}
	tests := []struct {
		sold   string
		days   int
		exempt bool
	}{
		{"2024-01-01", 365, false},
		{"2024-01-02", 366, true},
	}
	for _, tt := range tests {
		ev, err := MatchFIFO(crypto, lots, sell(1, EUR(300), tt.sold), MatchOptions{})
		if err != nil {
			t.Fatalf("MatchFIFO() error = %v", err)
		}
		ls := ev.LotsUsed[0]
		if ls.HoldingPeriodDays != tt.days {
			t.Errorf("sold %s: HoldingPeriodDays = %d, want %d", tt.sold, ls.HoldingPeriodDays, tt.days)
		}
		if ls.IsTaxExempt != tt.exempt {
			t.Errorf("sold %s: IsTaxExempt = %v, want %v", tt.sold, ls.IsTaxExempt, tt.exempt)
		}
		if tt.exempt {
			if !ev.TaxableGain.IsZero() || !ev.AllLotsExempt || ls.ExemptFrom != nil {
				t.Errorf("sold %s: TaxableGain = %v, AllLotsExempt = %v, ExemptFrom = %v", tt.sold, ev.TaxableGain, ev.AllLotsExempt, ls.ExemptFrom)
			}
		} else {
			if !ev.TaxableGain.Equal(EUR(200)) {
				t.Errorf("sold %s: TaxableGain = %v, want 200", tt.sold, ev.TaxableGain)
			}
			if ls.ExemptFrom == nil || ls.ExemptFrom.String() != "2024-01-02" {
				t.Errorf("sold %s: ExemptFrom = %v, want 2024-01-02", tt.sold, ls.ExemptFrom)
			}
		}
	}
}

func TestMatchFIFO_PartialExemption(t *testing.T) {
	lots := Lots{newLot("l1", "2024-01-01", 10, EUR(100))}
	ev, err := MatchFIFO(etf, lots, sell(10, EUR(200), "2024-06-01"), MatchOptions{})
	if err != nil {
		t.Fatalf("MatchFIFO() error = %v", err)
	}
	if !ev.GrossGainLoss.Equal(EUR(1000)) {
		t.Errorf("GrossGainLoss = %v, want 1000", ev.GrossGainLoss)
	}
	if !ev.TaxableGain.Equal(EUR(700)) {
		t.Errorf("TaxableGain = %v, want 700", ev.TaxableGain)
	}
	if !ev.ExemptGain.Equal(EUR(300)) {
		t.Errorf("ExemptGain = %v, want 300", ev.ExemptGain)
	}
	if ev.TaxCategory != CapitalGainsFunds {
		t.Errorf("TaxCategory = %v, want %v", ev.TaxCategory, CapitalGainsFunds)
	}
}

func TestMatchFIFO_MixedExemption(t *testing.T) {
	lots := Lots{
		newLot("old", "2022-01-01", 1, EUR(20000)),
		newLot("new", "2024-01-01", 1, EUR(40000)),
	}
	req := sell(2, EUR(50000), "2024-06-01")

	ev, err := MatchFIFO(crypto, lots, req, MatchOptions{})
	if err != nil {
		t.Fatalf("MatchFIFO() error = %v", err)
	}
	if !ev.TaxableGain.Equal(EUR(10000)) {
		t.Errorf("TaxableGain = %v, want 10000", ev.TaxableGain)
	}
	if !ev.ExemptGain.Equal(EUR(30000)) {
		t.Errorf("ExemptGain = %v, want 30000", ev.ExemptGain)
	}
	if ev.AllLotsExempt {
		t.Error("AllLotsExempt = true, want false")
	}

	events := ev.TaxEvents("p1")
	if len(events) != 2 {
		t.Fatalf("len(TaxEvents()) = %d, want 2", len(events))
	}
	if !events[0].IsTaxExempt || events[1].IsTaxExempt {
		t.Errorf("TaxEvents() exemption = %v, %v, want true, false", events[0].IsTaxExempt, events[1].IsTaxExempt)
	}
	if events[0].ID == events[1].ID {
		t.Error("TaxEvents() share the same ID")
	}
	for _, e := range events {
		if err := e.Validate(); err != nil {
			t.Errorf("TaxEvents() produced invalid event: %v", err)
		}
	}

	t.Run("legacy all-or-nothing", func(t *testing.T) {
		ev, err := MatchFIFO(crypto, lots, req, MatchOptions{LegacyExemption: true})
		if err != nil {
			t.Fatalf("MatchFIFO() error = %v", err)
		}
		if !ev.TaxableGain.Equal(EUR(40000)) {
			t.Errorf("TaxableGain = %v, want 40000", ev.TaxableGain)
		}
	})
}

func TestMatchFIFO_InsufficientLots(t *testing.T) {
	lots := Lots{
		newLot("l1", "2024-01-01", 6, EUR(10)),
		newLot("l2", "2024-02-01", 4, EUR(10)),
		newLot("later", "2024-08-01", 100, EUR(10)),
	}
	req := sell(15, EUR(20), "2024-06-01")

	_, err := MatchFIFO(stock, lots, req, MatchOptions{})
	if !errors.Is(err, ErrInsufficientLots) {
		t.Fatalf("MatchFIFO() error = %v, want ErrInsufficientLots", err)
	}
	var ile *InsufficientLotsError
	if !errors.As(err, &ile) {
		t.Fatalf("MatchFIFO() error is %T, want *InsufficientLotsError", err)
	}
	if !ile.Available.Equal(Q(10)) || !ile.Requested.Equal(Q(15)) {
		t.Errorf("Available, Requested = %v, %v, want 10, 15", ile.Available, ile.Requested)
	}
	if !ile.Partial.Shortfall.Equal(Q(5)) || len(ile.Partial.LotsUsed) != 2 {
		t.Errorf("Partial = %+v", ile.Partial)
	}
	if got := ErrorKind(err); got != "insufficient_lots" {
		t.Errorf("ErrorKind() = %q, want insufficient_lots", got)
	}

	t.Run("legacy partial", func(t *testing.T) {
		ev, err := MatchFIFO(stock, lots, req, MatchOptions{AllowPartial: true})
		if err != nil {
			t.Fatalf("MatchFIFO() error = %v", err)
		}
		if ev.IsComplete() {
			t.Error("IsComplete() = true, want false")
		}
		if !ev.GrossProceeds.Equal(EUR(300)) {
			t.Errorf("GrossProceeds = %v, want 300 on the requested quantity", ev.GrossProceeds)
		}
		if !ev.TotalCostBasis.Equal(EUR(100)) {
			t.Errorf("TotalCostBasis = %v, want 100", ev.TotalCostBasis)
		}
		if !ev.TaxableGain.Equal(EUR(100)) {
			t.Errorf("TaxableGain = %v, want 100 on the matched lots", ev.TaxableGain)
		}
		if !ev.ExemptGain.IsZero() {
			t.Errorf("ExemptGain = %v, want 0: unmatched units are not exempt", ev.ExemptGain)
		}
	})
}

func TestMatchFIFO_InvalidInput(t *testing.T) {
	lots := Lots{newLot("l1", "2024-01-01", 10, EUR(10))}
	tests := []struct {
		name string
		req  SaleRequest
	}{
		{"zero quantity", sell(0, EUR(10), "2024-06-01")},
		{"negative quantity", sell(-1, EUR(10), "2024-06-01")},
		{"zero price", sell(1, EUR(0), "2024-06-01")},
		{"no date", SaleRequest{HoldingID: "h1", Quantity: Q(1), SalePrice: EUR(10)}},
		{"no holding", SaleRequest{Quantity: Q(1), SalePrice: EUR(10), SaleDate: lots[0].PurchaseDate}},
		{"other currency", sell(1, USD(10), "2024-06-01")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MatchFIFO(stock, lots, tt.req, MatchOptions{})
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("MatchFIFO() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestMatchFIFO_Loss(t *testing.T) {
	lots := Lots{newLot("l1", "2024-01-01", 10, EUR(50))}
	ev, err := MatchFIFO(stock, lots, sell(4, EUR(30), "2024-03-01"), MatchOptions{})
	if err != nil {
		t.Fatalf("MatchFIFO() error = %v", err)
	}
	if !ev.GrossGainLoss.Equal(EUR(-80)) || !ev.TaxableGain.Equal(EUR(-80)) {
		t.Errorf("GrossGainLoss, TaxableGain = %v, %v, want -80, -80", ev.GrossGainLoss, ev.TaxableGain)
	}
}
