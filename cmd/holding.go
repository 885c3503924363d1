package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/etnz/capgains"
	"github.com/etnz/capgains/renderer"
	"github.com/google/subcommands"
)

type holdingCmd struct {
	id        string
	portfolio string
	asset     string
	out       outputFlags
}

func (*holdingCmd) Name() string     { return "holding" }
func (*holdingCmd) Synopsis() string { return "open a holding, or list the holdings of a portfolio" }
func (*holdingCmd) Usage() string {
	return `cgt holding -portfolio <id> [-asset <id>] [-id <id>]

  With -asset, opens a holding of the portfolio in that asset and prints its identifier.
  Without, lists the holdings of the portfolio.
`
}

func (c *holdingCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Holding identifier")
	f.StringVar(&c.portfolio, "portfolio", "", "Portfolio identifier")
	f.StringVar(&c.asset, "asset", "", "Asset identifier")
	c.out.SetFlags(f)
}

func (c *holdingCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withEngine(ctx, func(ctx context.Context, db capgains.Database, _ *capgains.Engine) error {
		if c.portfolio == "" {
			return usagef("-portfolio is required")
		}
		if c.asset == "" {
			p, err := db.GetPortfolio(ctx, c.portfolio)
			if err != nil {
				return err
			}
			holdings, err := db.ListHoldings(ctx, p.ID)
			if err != nil {
				return err
			}
			return c.out.print(holdings, renderer.HoldingsMarkdown(p, holdings))
		}
		h, err := db.CreateHolding(ctx, capgains.Holding{ID: c.id, PortfolioID: c.portfolio, AssetID: c.asset})
		if err != nil {
			return err
		}
		fmt.Println(h.ID)
		return nil
	})
}
