package cmd

import (
	"context"
	"flag"

	"github.com/etnz/capgains"
	"github.com/etnz/capgains/date"
	"github.com/etnz/capgains/renderer"
	"github.com/google/subcommands"
)

// summaryCmd holds the flags for the 'summary' subcommand.
type summaryCmd struct {
	portfolio string
	year      int
	stored    bool
	out       outputFlags
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "compute the yearly tax summary of a portfolio" }
func (*summaryCmd) Usage() string {
	return `cgt summary -portfolio <id> [-year <year>] [-stored] [-json] [-q <jsonpath>]

  Computes the tax summary of a portfolio for a year from all its recorded events, stores it
  and displays it. The previous year's summary provides the loss carried into the year.
  With -stored, displays the last computed summary instead.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "portfolio", "", "Portfolio identifier")
	f.IntVar(&c.year, "year", date.Today().Year(), "Tax year")
	f.BoolVar(&c.stored, "stored", false, "Show the stored summary without computing it")
	c.out.SetFlags(f)
}

func (c *summaryCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withEngine(ctx, func(ctx context.Context, _ capgains.Database, e *capgains.Engine) error {
		var s *capgains.TaxSummary
		var err error
		if c.stored {
			s, err = e.Summary(ctx, c.portfolio, c.year)
		} else {
			s, err = e.CalculateSummary(ctx, c.portfolio, c.year)
		}
		if err != nil {
			return err
		}
		return c.out.print(s, renderer.SummaryMarkdown(s))
	})
}
