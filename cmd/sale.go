package cmd

import (
	"context"
	"errors"
	"flag"

	"github.com/etnz/capgains"
	"github.com/etnz/capgains/date"
	"github.com/etnz/capgains/renderer"
	"github.com/google/subcommands"
)

// saleFlags are shared by simulate and sell.
type saleFlags struct {
	holding  string
	date     string
	quantity string
	price    string
	out      outputFlags
}

func (c *saleFlags) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.holding, "holding", "", "Holding identifier")
	f.StringVar(&c.date, "d", date.Today().String(), "Sale date. See 'cgt topic dates' for supported formats.")
	f.StringVar(&c.quantity, "quantity", "", "Quantity sold")
	f.StringVar(&c.price, "price", "", "Sale price per unit")
	c.out.SetFlags(f)
}

func (c *saleFlags) request() (capgains.SaleRequest, error) {
	on, err := date.ParseRelative(c.date, date.Today())
	if err != nil {
		return capgains.SaleRequest{}, usageError{err}
	}
	qty, err := capgains.ParseQuantity(c.quantity)
	if err != nil {
		return capgains.SaleRequest{}, usagef("invalid -quantity: %v", err)
	}
	price, err := capgains.ParseMoney(c.price, "")
	if err != nil {
		return capgains.SaleRequest{}, usagef("invalid -price: %v", err)
	}
	return capgains.SaleRequest{HoldingID: c.holding, Quantity: qty, SalePrice: price, SaleDate: on}, nil
}

// printShortfall prints what could be matched before the error is reported.
func (c *saleFlags) printShortfall(err error) error {
	var short *capgains.InsufficientLotsError
	if errors.As(err, &short) {
		if perr := c.out.print(short.Partial, renderer.SaleMarkdown("Insufficient Lots", &short.Partial)); perr != nil {
			return perr
		}
	}
	return err
}

type simulateCmd struct{ saleFlags }

func (*simulateCmd) Name() string     { return "simulate" }
func (*simulateCmd) Synopsis() string { return "simulate a sale and estimate its tax" }
func (*simulateCmd) Usage() string {
	return `cgt simulate -holding <id> -quantity <q> -price <unit price> [-d <date>] [-json] [-q <jsonpath>]

  Matches the sale against the open lots, oldest first, and estimates the tax at the owner's
  effective rate. Nothing is recorded.

Usage Examples:
$ cgt simulate -holding h1 -quantity 5 -price 120 -json -q '$.taxableGain.amount'
`
}

func (c *simulateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withEngine(ctx, func(ctx context.Context, _ capgains.Database, e *capgains.Engine) error {
		req, err := c.request()
		if err != nil {
			return err
		}
		sim, err := e.SimulateSale(ctx, req)
		if err != nil {
			return c.printShortfall(err)
		}
		return c.out.print(sim, renderer.SimulationMarkdown(sim))
	})
}

type sellCmd struct{ saleFlags }

func (*sellCmd) Name() string     { return "sell" }
func (*sellCmd) Synopsis() string { return "execute a sale: consume lots and record the tax events" }
func (*sellCmd) Usage() string {
	return `cgt sell -holding <id> -quantity <q> -price <unit price> [-d <date>] [-json] [-q <jsonpath>]

  Matches the sale like simulate does, then decrements the lots and records one tax event
  per lot consumed, all at once. A sale larger than the open lots is refused.
`
}

func (c *sellCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withEngine(ctx, func(ctx context.Context, _ capgains.Database, e *capgains.Engine) error {
		req, err := c.request()
		if err != nil {
			return err
		}
		ev, err := e.ExecuteSale(ctx, req)
		if err != nil {
			return c.printShortfall(err)
		}
		return c.out.print(ev, renderer.SaleMarkdown("Sale", ev))
	})
}
