package cmd

import (
	"context"
	"flag"

	"github.com/etnz/capgains"
	"github.com/etnz/capgains/date"
	"github.com/etnz/capgains/renderer"
	"github.com/google/subcommands"
)

type lotsCmd struct {
	holding string
	status  string
	asOf    string
	out     outputFlags
}

func (*lotsCmd) Name() string     { return "lots" }
func (*lotsCmd) Synopsis() string { return "list the tax lots of a holding" }
func (*lotsCmd) Usage() string {
	return `cgt lots -holding <id> [-status open|partially_sold|closed] [-d <date>]

  Lists the lots of a holding in the order a sale consumes them.
  For crypto and precious metals it shows the day each lot becomes tax free, relative to -d.
`
}

func (c *lotsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.holding, "holding", "", "Holding identifier")
	f.StringVar(&c.status, "status", "", "Only lots with this status")
	f.StringVar(&c.asOf, "d", date.Today().String(), "Reference date for tax free lots")
	c.out.SetFlags(f)
}

func (c *lotsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withEngine(ctx, func(ctx context.Context, _ capgains.Database, e *capgains.Engine) error {
		var statusIn []capgains.LotStatus
		if c.status != "" {
			st, err := capgains.ParseLotStatus(c.status)
			if err != nil {
				return usageError{err}
			}
			statusIn = append(statusIn, st)
		}
		on, err := date.ParseRelative(c.asOf, date.Today())
		if err != nil {
			return usageError{err}
		}
		h, a, err := e.Holding(ctx, c.holding)
		if err != nil {
			return err
		}
		lots, err := e.Lots(ctx, h.ID, statusIn...)
		if err != nil {
			return err
		}
		return c.out.print(lots, renderer.LotsMarkdown(h, a, lots, on))
	})
}
