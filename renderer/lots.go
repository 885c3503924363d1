package renderer

import (
	"fmt"
	"strings"

	"github.com/etnz/capgains"
	"github.com/etnz/capgains/date"
)

// LotsMarkdown renders the lots of a holding, oldest first.
// For time exempt classes it shows the date each lot becomes tax free relative to asOf.
func LotsMarkdown(h capgains.Holding, a capgains.Asset, lots capgains.Lots, asOf date.Date) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Lots of %s\n\n", a.Symbol)
	fmt.Fprintf(&b, "Holding `%s` in portfolio `%s`, %s", h.ID, h.PortfolioID, a.Class)
	if a.Class.IsFundLike() && a.FundCategory != capgains.NoFundCategory {
		fmt.Fprintf(&b, " (%s, %s exempt)", a.FundCategory, percent(a.FundCategory.PartialExemptionRate()))
	}
	fmt.Fprint(&b, "\n\n")

	if len(lots) == 0 {
		fmt.Fprintln(&b, "No lots.")
		return b.String()
	}

	fmt.Fprintln(&b, "| Lot | Purchased | Original | Remaining | Cost/Unit | Status | Tax Free From |")
	fmt.Fprintln(&b, "|:---|:---|---:|---:|---:|:---|:---|")
	for _, l := range lots {
		free := "-"
		if on, ok := capgains.ExemptFrom(a.Class, l.PurchaseDate); ok {
			free = on.String()
			if !asOf.Before(on) {
				free = "now"
			}
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s |\n",
			l.ID, l.PurchaseDate, l.OriginalQuantity, l.RemainingQuantity, l.CostBasisPerUnit, l.Status(), free)
	}
	fmt.Fprintf(&b, "\nAvailable: %s\n", lots.Available())
	return b.String()
}

// HoldingsMarkdown lists the holdings of a portfolio.
func HoldingsMarkdown(p capgains.Portfolio, holdings []capgains.Holding) string {
	var b strings.Builder
	title := p.Name
	if title == "" {
		title = p.ID
	}
	fmt.Fprintf(&b, "# Holdings of %s\n\n", title)
	fmt.Fprintf(&b, "Owner %s, currency %s\n\n", p.Owner, p.Currency)
	if len(holdings) == 0 {
		fmt.Fprintln(&b, "No holdings.")
		return b.String()
	}
	fmt.Fprintln(&b, "| Holding | Asset |")
	fmt.Fprintln(&b, "|:---|:---|")
	for _, h := range holdings {
		fmt.Fprintf(&b, "| %s | %s |\n", h.ID, h.AssetID)
	}
	return b.String()
}
