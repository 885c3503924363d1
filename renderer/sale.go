package renderer

import (
	"fmt"
	"io"
	"strings"

	"github.com/etnz/capgains"
)

// SaleMarkdown renders the lot by lot breakdown of a sale.
func SaleMarkdown(title string, ev *capgains.SaleEvent) string {
	var b strings.Builder
	writeSale(&b, title, ev)
	return b.String()
}

// SimulationMarkdown renders a simulated sale and its tax estimate.
func SimulationMarkdown(sim *capgains.Simulation) string {
	var b strings.Builder
	writeSale(&b, "Sale Simulation", &sim.SaleEvent)
	fmt.Fprint(&b, "## Tax Estimate\n\n")
	fmt.Fprintf(&b, "- Effective rate: %s\n", percent(sim.EffectiveRate))
	fmt.Fprintf(&b, "- Estimated tax: %s\n", sim.EstimatedTax)
	fmt.Fprint(&b, "\nThe estimate ignores the saver's allowance and loss offsets of the year.\n")
	return b.String()
}

func writeSale(b *strings.Builder, title string, ev *capgains.SaleEvent) {
	fmt.Fprintf(b, "# %s\n\n", title)
	fmt.Fprintf(b, "Holding `%s` (%s), %s units at %s on %s\n\n", ev.HoldingID, ev.AssetClass, ev.Quantity, ev.SalePrice, ev.SaleDate)

	fmt.Fprint(b, "## Lots Used\n\n")
	fmt.Fprintln(b, "| Lot | Purchased | Days | Quantity | Cost Basis | Proceeds | Gain/Loss | Exempt | Taxable |")
	fmt.Fprintln(b, "|:---|:---|---:|---:|---:|---:|---:|:---:|---:|")
	for _, ls := range ev.LotsUsed {
		exempt := yesNo(ls.IsTaxExempt)
		if !ls.PartialExemptionRate.IsZero() {
			exempt = percent(ls.PartialExemptionRate)
		}
		fmt.Fprintf(b, "| %s | %s | %d | %s | %s | %s | %s | %s | %s |\n",
			ls.LotID, ls.PurchaseDate, ls.HoldingPeriodDays, ls.QuantitySold,
			ls.CostBasis, ls.Proceeds, ls.GainLoss.SignedString(), exempt, ls.TaxableGain.SignedString())
	}
	fmt.Fprintf(b, "| **Total** | | | **%s** | **%s** | **%s** | **%s** | | **%s** |\n\n",
		ev.QuantityMatched, ev.TotalCostBasis, ev.GrossProceeds, ev.GrossGainLoss.SignedString(), ev.TaxableGain.SignedString())

	if !ev.ExemptGain.IsZero() {
		fmt.Fprintf(b, "Exempt gain: %s\n\n", ev.ExemptGain.SignedString())
	}
	if !ev.IsComplete() {
		fmt.Fprintf(b, "**Warning**: only %s of %s units could be matched against open lots.\n\n", ev.QuantityMatched, ev.Quantity)
	}

	ConditionalBlock(b, func(w io.Writer) bool {
		fmt.Fprint(w, "## Upcoming Exemptions\n\n")
		n := 0
		for _, ls := range ev.LotsUsed {
			if ls.ExemptFrom == nil {
				continue
			}
			fmt.Fprintf(w, "- lot `%s` is tax free when sold on or after %s\n", ls.LotID, ls.ExemptFrom)
			n++
		}
		fmt.Fprintln(w)
		return n > 0
	})
}
