package cmd

import (
	"context"
	"flag"
	"strconv"

	"github.com/etnz/capgains"
	"github.com/etnz/capgains/renderer"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

type settingsCmd struct {
	portfolio   string
	allowance   string
	church      string
	solidarity  string
	carryStocks string
	carryOther  string
	out         outputFlags
}

func (*settingsCmd) Name() string     { return "settings" }
func (*settingsCmd) Synopsis() string { return "show or update the tax settings of a portfolio owner" }
func (*settingsCmd) Usage() string {
	return `cgt settings -portfolio <id> [-allowance <amount>] [-church <percent>] [-soli true|false]
             [-carry-stocks <amount>] [-carry-other <amount>]

  Shows the tax settings of the owner of a portfolio. Owners that never saved settings
  get the default ones: 1000 saver's allowance, solidarity surcharge, no church tax.
  Any of the update flags saves the settings first.

  Loss carryforwards are the losses carried into the first computed year, as positive amounts.
`
}

func (c *settingsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "portfolio", "", "Portfolio identifier")
	f.StringVar(&c.allowance, "allowance", "", "Saver's allowance")
	f.StringVar(&c.church, "church", "", "Church tax rate in percent, e.g. 8 or 9")
	f.StringVar(&c.solidarity, "soli", "", "Whether the solidarity surcharge applies")
	f.StringVar(&c.carryStocks, "carry-stocks", "", "Opening stock loss carryforward")
	f.StringVar(&c.carryOther, "carry-other", "", "Opening loss carryforward of other capital income")
	c.out.SetFlags(f)
}

// apply updates s with the flags that were set, and reports whether any was.
func (c *settingsCmd) apply(s *capgains.TaxSettings) (changed bool, err error) {
	cur := s.SaverAllowance.Currency()
	money := func(v string, dst *capgains.Money) {
		if v == "" || err != nil {
			return
		}
		*dst, err = capgains.ParseMoney(v, cur)
		changed = true
	}
	money(c.allowance, &s.SaverAllowance)
	money(c.carryStocks, &s.LossCarryforwardStocks)
	money(c.carryOther, &s.LossCarryforwardOther)
	if c.church != "" && err == nil {
		s.ChurchTaxRate, err = decimal.NewFromString(c.church)
		changed = true
	}
	if c.solidarity != "" && err == nil {
		s.IncludeSolidaritySurcharge, err = strconv.ParseBool(c.solidarity)
		changed = true
	}
	if err != nil {
		return false, usageError{err}
	}
	return changed, nil
}

func (c *settingsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withEngine(ctx, func(ctx context.Context, db capgains.Database, e *capgains.Engine) error {
		if c.portfolio == "" {
			return usagef("-portfolio is required")
		}
		p, err := db.GetPortfolio(ctx, c.portfolio)
		if err != nil {
			return err
		}
		s, err := e.SettingsFor(ctx, p)
		if err != nil {
			return err
		}
		changed, err := c.apply(&s)
		if err != nil {
			return err
		}
		if changed {
			if err := e.UpdateSettings(ctx, s); err != nil {
				return err
			}
		}
		return c.out.print(s, renderer.SettingsMarkdown(s))
	})
}
