package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/capgains"
	"github.com/google/subcommands"
)

type portfolioCmd struct {
	id       string
	name     string
	owner    string
	currency string
}

func (*portfolioCmd) Name() string     { return "portfolio" }
func (*portfolioCmd) Synopsis() string { return "create a portfolio" }
func (*portfolioCmd) Usage() string {
	return `cgt portfolio -owner <email> [-id <id>] [-name <name>] [-currency <code>]

  Creates a portfolio. The owner's tax settings apply to its yearly summaries.
  The identifier is generated when -id is omitted, and printed on stdout.
`
}

func (c *portfolioCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Portfolio identifier")
	f.StringVar(&c.name, "name", "", "Display name")
	f.StringVar(&c.owner, "owner", "", "Email of the owner")
	f.StringVar(&c.currency, "currency", "", "Currency of the portfolio, the global -currency by default")
}

func (c *portfolioCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.owner == "" {
		fmt.Fprintln(os.Stderr, "Error: -owner is required")
		return subcommands.ExitUsageError
	}
	if c.currency == "" {
		c.currency = *defaultCurrency
	}
	return withEngine(ctx, func(ctx context.Context, db capgains.Database, _ *capgains.Engine) error {
		p, err := db.CreatePortfolio(ctx, capgains.Portfolio{ID: c.id, Name: c.name, Owner: c.owner, Currency: c.currency})
		if err != nil {
			return err
		}
		fmt.Println(p.ID)
		return nil
	})
}
