package renderer

import (
	"fmt"
	"io"
	"strings"

	"github.com/etnz/capgains"
)

// SummaryMarkdown renders a yearly tax summary.
func SummaryMarkdown(s *capgains.TaxSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Tax Summary %d\n\n", s.TaxYear)
	fmt.Fprintf(&b, "Portfolio `%s`, %d events, calculated %s\n\n", s.PortfolioID, s.EventCount, s.LastCalculated.Format("2006-01-02 15:04"))

	fmt.Fprint(&b, "## Income\n\n")
	fmt.Fprintln(&b, "| Category | Amount |")
	fmt.Fprintln(&b, "|:---|---:|")
	row := func(name string, m capgains.Money) { fmt.Fprintf(&b, "| %s | %s |\n", name, m.SignedString()) }
	row("Dividends", s.TotalDividends)
	row("Interest", s.TotalInterest)
	row("Stock gains", s.TotalGainsStocks)
	row("Stock losses", s.TotalLossesStocks)
	row("Prior stock loss carryforward", s.PriorLossCarryforwardStocks.Neg())
	row("Net stock gains", s.NetCapitalGainsStocks)
	row("Fund gains (after partial exemption)", s.TotalGainsFunds)
	row("Crypto gains (taxable)", s.CryptoGainsTaxable)
	row("Precious metal gains (taxable)", s.PreciousMetalGainsTaxable)
	fmt.Fprintf(&b, "| **Gross taxable income** | **%s** |\n\n", s.GrossTaxableIncome.SignedString())

	ConditionalBlock(&b, func(w io.Writer) bool {
		fmt.Fprint(w, "## Tax Free\n\n")
		fmt.Fprintf(w, "- Crypto held over one year: %s\n", s.CryptoGainsExempt.SignedString())
		fmt.Fprintf(w, "- Precious metals held over one year: %s\n\n", s.PreciousMetalGainsExempt.SignedString())
		return !s.CryptoGainsExempt.IsZero() || !s.PreciousMetalGainsExempt.IsZero()
	})

	fmt.Fprint(&b, "## Tax\n\n")
	fmt.Fprintln(&b, "| Item | Amount |")
	fmt.Fprintln(&b, "|:---|---:|")
	fmt.Fprintf(&b, "| Saver's allowance | %s |\n", s.SaverAllowance)
	fmt.Fprintf(&b, "| Allowance used | %s |\n", s.AllowanceUsed)
	fmt.Fprintf(&b, "| Allowance remaining | %s |\n", s.AllowanceRemaining)
	fmt.Fprintf(&b, "| Net taxable income | %s |\n", s.NetTaxableCapitalIncome)
	fmt.Fprintf(&b, "| Capital gains tax (%s) | %s |\n", percent(s.BaseRate), s.CapitalGainsTax)
	if !s.SolidarityRate.IsZero() {
		fmt.Fprintf(&b, "| Solidarity surcharge (%s) | %s |\n", percent(s.SolidarityRate), s.SolidaritySurcharge)
	}
	if !s.ChurchTaxRate.IsZero() {
		fmt.Fprintf(&b, "| Church tax (%s%%) | %s |\n", s.ChurchTaxRate, s.ChurchTax)
	}
	fmt.Fprintf(&b, "| Withholding tax paid | %s |\n", s.TotalWithholdingTax.Neg().SignedString())
	fmt.Fprintf(&b, "| **Estimated liability** (effective %s) | **%s** |\n\n", percent(s.EffectiveRate), s.EstimatedTaxLiability)

	ConditionalBlock(&b, func(w io.Writer) bool {
		fmt.Fprint(w, "## Carried Forward\n\n")
		fmt.Fprintf(w, "- Stock losses: %s\n", s.LossCarryforwardStocks)
		fmt.Fprintf(w, "- Other losses: %s\n", s.LossCarryforwardOther)
		return !s.LossCarryforwardStocks.IsZero() || !s.LossCarryforwardOther.IsZero()
	})
	return b.String()
}

// SettingsMarkdown renders the tax settings of a user.
func SettingsMarkdown(s capgains.TaxSettings) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Tax Settings of %s\n\n", s.UserEmail)
	fmt.Fprintf(&b, "- Saver's allowance: %s\n", s.SaverAllowance)
	fmt.Fprintf(&b, "- Church tax rate: %s%%\n", s.ChurchTaxRate)
	fmt.Fprintf(&b, "- Solidarity surcharge: %s\n", yesNo(s.IncludeSolidaritySurcharge))
	fmt.Fprintf(&b, "- Stock loss carryforward: %s\n", s.LossCarryforwardStocks)
	fmt.Fprintf(&b, "- Other loss carryforward: %s\n", s.LossCarryforwardOther)
	fmt.Fprintf(&b, "- Effective rate: %s\n", percent(s.EffectiveRate()))
	return b.String()
}
