package capgains

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/etnz/capgains/date"
	"github.com/shopspring/decimal"
)

func event(category TaxCategory, amount Money) TaxEvent {
	e := TaxEvent{
		PortfolioID:        "p1",
		Category:           category,
		Date:               date.MustParse("2024-05-01"),
		GrossAmount:        M(0, amount.Currency()),
		GainLoss:           M(0, amount.Currency()),
		TaxableAmount:      M(0, amount.Currency()),
		WithholdingTaxPaid: M(0, amount.Currency()),
	}
	switch category {
	case Dividends, Interest:
		e.Type = EventDividend
		e.GrossAmount = amount
		e.TaxableAmount = amount
	default:
		e.Type = EventSale
		e.GainLoss = amount
		e.TaxableAmount = amount
	}
	return e
}

func summarize(t *testing.T, settings TaxSettings, prior Money, events ...TaxEvent) TaxSummary {
	t.Helper()
	totals, err := FoldEvents("EUR", events)
	if err != nil {
		t.Fatalf("FoldEvents() error = %v", err)
	}
	return ComputeSummary(SummaryInput{
		PortfolioID:                 "p1",
		TaxYear:                     2024,
		Totals:                      totals,
		Settings:                    settings,
		PriorLossCarryforwardStocks: prior,
	})
}

func TestFoldEvents(t *testing.T) {
	cryptoOld := event(CapitalGainsCrypto, EUR(300))
	cryptoOld.IsTaxExempt = true
	fund := event(CapitalGainsFunds, EUR(1000))
	fund.TaxableAmount = EUR(700)
	div := event(Dividends, EUR(100))
	div.WithholdingTaxPaid = EUR(15)

	totals, err := FoldEvents("EUR", []TaxEvent{
		div,
		event(Interest, EUR(20)),
		event(CapitalGainsStocks, EUR(500)),
		event(CapitalGainsStocks, EUR(-200)),
		fund,
		cryptoOld,
		event(CapitalGainsCrypto, EUR(50)),
		event(CapitalGainsPreciousMetals, EUR(-10)),
	})
	if err != nil {
		t.Fatalf("FoldEvents() error = %v", err)
	}
	checks := []struct {
		name      string
		got, want Money
	}{
		{"Dividends", totals.Dividends, EUR(100)},
		{"Interest", totals.Interest, EUR(20)},
		{"GainsStocks", totals.GainsStocks, EUR(500)},
		{"LossesStocks", totals.LossesStocks, EUR(-200)},
		{"GainsFunds", totals.GainsFunds, EUR(700)},
		{"CryptoGainsExempt", totals.CryptoGainsExempt, EUR(300)},
		{"CryptoGainsTaxable", totals.CryptoGainsTaxable, EUR(50)},
		{"PreciousMetalGainsTaxable", totals.PreciousMetalGainsTaxable, EUR(-10)},
		{"WithholdingTax", totals.WithholdingTax, EUR(15)},
	}
	for _, c := range checks {
		if !c.got.Equal(c.want) {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
	if totals.EventCount != 8 {
		t.Errorf("EventCount = %d, want 8", totals.EventCount)
	}
}

func TestFoldEvents_Errors(t *testing.T) {
	if _, err := FoldEvents("EUR", []TaxEvent{event(Dividends, USD(1))}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("FoldEvents(USD) error = %v, want ErrInvalidInput", err)
	}
	if _, err := FoldEvents("EUR", []TaxEvent{event("options", EUR(1))}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("FoldEvents(options) error = %v, want ErrInvalidInput", err)
	}
}

func TestComputeSummary_Allowance(t *testing.T) {
	tests := []struct {
		gross                      float64
		netTaxable, used, remained float64
	}{
		{1500, 500, 1000, 0},
		{600, 0, 600, 400},
		{0, 0, 0, 1000},
	}
	for _, tt := range tests {
		s := summarize(t, DefaultSettings("EUR"), EUR(0), event(Dividends, EUR(tt.gross)))
		if !s.GrossTaxableIncome.Equal(EUR(tt.gross)) {
			t.Errorf("gross %v: GrossTaxableIncome = %v", tt.gross, s.GrossTaxableIncome)
		}
		if !s.NetTaxableCapitalIncome.Equal(EUR(tt.netTaxable)) {
			t.Errorf("gross %v: NetTaxableCapitalIncome = %v, want %v", tt.gross, s.NetTaxableCapitalIncome, tt.netTaxable)
		}
		if !s.AllowanceUsed.Equal(EUR(tt.used)) {
			t.Errorf("gross %v: AllowanceUsed = %v, want %v", tt.gross, s.AllowanceUsed, tt.used)
		}
		if !s.AllowanceRemaining.Equal(EUR(tt.remained)) {
			t.Errorf("gross %v: AllowanceRemaining = %v, want %v", tt.gross, s.AllowanceRemaining, tt.remained)
		}
	}
}

func TestComputeSummary_NegativeGross(t *testing.T) {
	s := summarize(t, DefaultSettings("EUR"), EUR(0), event(CapitalGainsCrypto, EUR(-400)))
	if !s.AllowanceUsed.IsZero() || !s.AllowanceRemaining.Equal(EUR(1000)) {
		t.Errorf("AllowanceUsed, AllowanceRemaining = %v, %v, want 0, 1000", s.AllowanceUsed, s.AllowanceRemaining)
	}
	if !s.NetTaxableCapitalIncome.IsZero() || !s.EstimatedTaxLiability.IsZero() {
		t.Errorf("NetTaxableCapitalIncome, EstimatedTaxLiability = %v, %v, want 0, 0", s.NetTaxableCapitalIncome, s.EstimatedTaxLiability)
	}
}

func TestComputeSummary_LossCarryforward(t *testing.T) {
	s := summarize(t, DefaultSettings("EUR"), EUR(0),
		event(CapitalGainsStocks, EUR(500)),
		event(CapitalGainsStocks, EUR(-800)),
	)
	if !s.NetCapitalGainsStocks.IsZero() {
		t.Errorf("NetCapitalGainsStocks = %v, want 0", s.NetCapitalGainsStocks)
	}
	if !s.LossCarryforwardStocks.Equal(EUR(300)) {
		t.Errorf("LossCarryforwardStocks = %v, want 300", s.LossCarryforwardStocks)
	}

	t.Run("prior carryforward is consumed", func(t *testing.T) {
		s := summarize(t, DefaultSettings("EUR"), EUR(300), event(CapitalGainsStocks, EUR(1000)))
		if !s.NetCapitalGainsStocks.Equal(EUR(700)) {
			t.Errorf("NetCapitalGainsStocks = %v, want 700", s.NetCapitalGainsStocks)
		}
		if !s.LossCarryforwardStocks.IsZero() {
			t.Errorf("LossCarryforwardStocks = %v, want 0", s.LossCarryforwardStocks)
		}
	})

	t.Run("stock losses do not offset dividends", func(t *testing.T) {
		s := summarize(t, DefaultSettings("EUR"), EUR(0),
			event(Dividends, EUR(2000)),
			event(CapitalGainsStocks, EUR(-800)),
		)
		if !s.GrossTaxableIncome.Equal(EUR(2000)) {
			t.Errorf("GrossTaxableIncome = %v, want 2000", s.GrossTaxableIncome)
		}
		if !s.LossCarryforwardStocks.Equal(EUR(800)) {
			t.Errorf("LossCarryforwardStocks = %v, want 800", s.LossCarryforwardStocks)
		}
	})
}

func TestTaxSettings_EffectiveRate(t *testing.T) {
	s := DefaultSettings("EUR")
	s.ChurchTaxRate = decimal.NewFromInt(9)
	if got, want := s.EffectiveRate(), rate("0.28625"); !got.Equal(want) {
		t.Errorf("EffectiveRate() = %v, want %v", got, want)
	}
	s.IncludeSolidaritySurcharge = false
	s.ChurchTaxRate = decimal.Zero
	if got, want := s.EffectiveRate(), rate("0.25"); !got.Equal(want) {
		t.Errorf("EffectiveRate() = %v, want %v", got, want)
	}
}

func TestTaxSettings_Validate(t *testing.T) {
	s := DefaultSettings("EUR")
	if err := s.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Validate() without email = %v, want ErrInvalidInput", err)
	}
	s.UserEmail = "a@b.c"
	if err := s.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
	s.ChurchTaxRate = decimal.NewFromInt(101)
	if err := s.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Validate() with church 101%% = %v, want ErrInvalidInput", err)
	}
}

func TestComputeSummary_EndToEnd(t *testing.T) {
	s := summarize(t, DefaultSettings("EUR"), EUR(0),
		event(Dividends, EUR(200)),
		event(CapitalGainsStocks, EUR(1500)),
	)
	if !s.GrossTaxableIncome.Equal(EUR(1700)) {
		t.Errorf("GrossTaxableIncome = %v, want 1700", s.GrossTaxableIncome)
	}
	if !s.NetTaxableCapitalIncome.Equal(EUR(700)) {
		t.Errorf("NetTaxableCapitalIncome = %v, want 700", s.NetTaxableCapitalIncome)
	}
	if want := M(rate("184.625"), "EUR"); !s.EstimatedTaxLiability.Equal(want) {
		t.Errorf("EstimatedTaxLiability = %v, want %v", s.EstimatedTaxLiability.Decimal(), want.Decimal())
	}
	if want := M(rate("175"), "EUR"); !s.CapitalGainsTax.Equal(want) {
		t.Errorf("CapitalGainsTax = %v, want %v", s.CapitalGainsTax.Decimal(), want.Decimal())
	}
	if want := M(rate("9.625"), "EUR"); !s.SolidaritySurcharge.Equal(want) {
		t.Errorf("SolidaritySurcharge = %v, want %v", s.SolidaritySurcharge.Decimal(), want.Decimal())
	}

	t.Run("withholding is credited", func(t *testing.T) {
		div := event(Dividends, EUR(200))
		div.WithholdingTaxPaid = EUR(50)
		s := summarize(t, DefaultSettings("EUR"), EUR(0), div, event(CapitalGainsStocks, EUR(1500)))
		if want := M(rate("134.625"), "EUR"); !s.EstimatedTaxLiability.Equal(want) {
			t.Errorf("EstimatedTaxLiability = %v, want %v", s.EstimatedTaxLiability.Decimal(), want.Decimal())
		}
	})

	t.Run("liability is floored at zero", func(t *testing.T) {
		div := event(Dividends, EUR(200))
		div.WithholdingTaxPaid = EUR(500)
		s := summarize(t, DefaultSettings("EUR"), EUR(0), div, event(CapitalGainsStocks, EUR(1500)))
		if !s.EstimatedTaxLiability.IsZero() {
			t.Errorf("EstimatedTaxLiability = %v, want 0", s.EstimatedTaxLiability)
		}
	})
}

func TestComputeSummary_Idempotent(t *testing.T) {
	events := []TaxEvent{
		event(Dividends, EUR(200)),
		event(CapitalGainsStocks, EUR(1500)),
		event(CapitalGainsStocks, EUR(-300)),
	}
	a := summarize(t, DefaultSettings("EUR"), EUR(0), events...)
	a.LastCalculated = time.Time{}
	b := summarize(t, DefaultSettings("EUR"), EUR(0), events...)
	b.LastCalculated = time.Time{}
	ja, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	jb, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(ja) != string(jb) {
		t.Errorf("second run = %s, want %s", jb, ja)
	}
}
