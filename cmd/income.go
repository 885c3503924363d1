package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/etnz/capgains"
	"github.com/etnz/capgains/date"
	"github.com/google/subcommands"
)

type incomeCmd struct {
	portfolio   string
	holding     string
	kind        string
	date        string
	amount      string
	withholding string
}

func (*incomeCmd) Name() string     { return "income" }
func (*incomeCmd) Synopsis() string { return "record a dividend or an interest payment" }
func (*incomeCmd) Usage() string {
	return `cgt income -portfolio <id> -type dividend|interest -amount <gross> [-withholding <tax>] [-holding <id>] [-d <date>]

  Records capital income. The gross amount is taxable, the tax withheld at source is credited
  against the yearly liability.
`
}

func (c *incomeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "portfolio", "", "Portfolio identifier")
	f.StringVar(&c.holding, "holding", "", "Holding that paid the income, if any")
	f.StringVar(&c.kind, "type", "dividend", "dividend or interest")
	f.StringVar(&c.date, "d", date.Today().String(), "Payment date. See 'cgt topic dates' for supported formats.")
	f.StringVar(&c.amount, "amount", "", "Gross amount")
	f.StringVar(&c.withholding, "withholding", "0", "Tax withheld at source")
}

func (c *incomeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withEngine(ctx, func(ctx context.Context, _ capgains.Database, e *capgains.Engine) error {
		kind, err := capgains.ParseEventType(c.kind)
		if err != nil {
			return usageError{err}
		}
		on, err := date.ParseRelative(c.date, date.Today())
		if err != nil {
			return usageError{err}
		}
		gross, err := capgains.ParseMoney(c.amount, "")
		if err != nil {
			return usagef("invalid -amount: %v", err)
		}
		withheld, err := capgains.ParseMoney(c.withholding, "")
		if err != nil {
			return usagef("invalid -withholding: %v", err)
		}
		ev, err := e.RecordIncome(ctx, capgains.IncomeRequest{
			PortfolioID:    c.portfolio,
			HoldingID:      c.holding,
			Type:           kind,
			Date:           on,
			GrossAmount:    gross,
			WithholdingTax: withheld,
		})
		if err != nil {
			return err
		}
		fmt.Println(ev.ID)
		return nil
	})
}
