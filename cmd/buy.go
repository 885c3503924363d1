package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/etnz/capgains"
	"github.com/etnz/capgains/date"
	"github.com/google/subcommands"
)

type buyCmd struct {
	holding  string
	date     string
	quantity string
	price    string
}

func (*buyCmd) Name() string     { return "buy" }
func (*buyCmd) Synopsis() string { return "record a purchase as a new tax lot" }
func (*buyCmd) Usage() string {
	return `cgt buy -holding <id> -quantity <q> -price <unit price> [-d <date>]

  Records a purchase on a holding. Each purchase is a separate tax lot consumed first in first out.
  The price is per unit, in the portfolio currency. The lot identifier is printed on stdout.

Usage Examples:
$ cgt buy -holding h1 -quantity 10 -price 101.5 -d 2024-03-01
`
}

func (c *buyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.holding, "holding", "", "Holding identifier")
	f.StringVar(&c.date, "d", date.Today().String(), "Purchase date. See 'cgt topic dates' for supported formats.")
	f.StringVar(&c.quantity, "quantity", "", "Quantity bought")
	f.StringVar(&c.price, "price", "", "Price per unit")
}

func (c *buyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withEngine(ctx, func(ctx context.Context, _ capgains.Database, e *capgains.Engine) error {
		on, err := date.ParseRelative(c.date, date.Today())
		if err != nil {
			return usageError{err}
		}
		qty, err := capgains.ParseQuantity(c.quantity)
		if err != nil {
			return usagef("invalid -quantity: %v", err)
		}
		price, err := capgains.ParseMoney(c.price, "")
		if err != nil {
			return usagef("invalid -price: %v", err)
		}
		lot, err := e.RecordPurchase(ctx, capgains.PurchaseRequest{HoldingID: c.holding, Date: on, Quantity: qty, PricePerUnit: price})
		if err != nil {
			return err
		}
		fmt.Println(lot.ID)
		return nil
	})
}
