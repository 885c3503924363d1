package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/etnz/capgains"
	"github.com/google/subcommands"
)

type assetCmd struct {
	id       string
	symbol   string
	name     string
	class    string
	category string
}

func (*assetCmd) Name() string     { return "asset" }
func (*assetCmd) Synopsis() string { return "declare an asset and its tax treatment" }
func (*assetCmd) Usage() string {
	return `cgt asset -symbol <symbol> -class <class> [-id <id>] [-name <name>] [-fund-category <category>]

  Declares an asset. The class decides how gains are taxed:
    stock, etf, bond, fund, crypto, precious_metal.
  ETFs, bonds and funds may declare a fund category for the partial exemption:
    equity_fund_30, mixed_fund_15, real_estate_fund_60, bond_fund_0.
`
}

func (c *assetCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Asset identifier")
	f.StringVar(&c.symbol, "symbol", "", "Ticker or symbol")
	f.StringVar(&c.name, "name", "", "Display name")
	f.StringVar(&c.class, "class", "stock", "Asset class")
	f.StringVar(&c.category, "fund-category", "", "Fund category of fund-like assets")
}

func (c *assetCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withEngine(ctx, func(ctx context.Context, db capgains.Database, _ *capgains.Engine) error {
		if c.symbol == "" {
			return usagef("-symbol is required")
		}
		class, err := capgains.ParseAssetClass(c.class)
		if err != nil {
			return usageError{err}
		}
		category, err := capgains.ParseFundCategory(c.category)
		if err != nil {
			return usageError{err}
		}
		a, err := db.CreateAsset(ctx, capgains.Asset{ID: c.id, Symbol: c.symbol, Name: c.name, Class: class, FundCategory: category})
		if err != nil {
			return err
		}
		fmt.Println(a.ID)
		return nil
	})
}
