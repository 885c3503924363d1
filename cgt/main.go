// Command cgt computes capital gains tax on FIFO tax lots.
//
// Shell completion is installed with COMP_INSTALL=1 cgt.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/etnz/capgains/cmd"
	"github.com/etnz/capgains/docs"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cmd.Register(commander)

	completion(commander).Complete("cgt")

	flag.Parse()

	if flag.NArg() > 0 {
		name := flag.Arg(0)
		known := false
		commander.VisitCommands(func(_ *subcommands.CommandGroup, c subcommands.Command) {
			known = known || c.Name() == name
		})
		if !known {
			if ok, code := cmd.RunExtension(name, flag.Args()[1:]); ok {
				os.Exit(code)
			}
		}
	}
	os.Exit(int(commander.Execute(context.Background())))
}

// completion describes the command line for shell completion: every subcommand with its flags.
func completion(commander *subcommands.Commander) *complete.Command {
	global := map[string]complete.Predictor{
		"db":       predict.Files("*.db"),
		"currency": predict.Set{"EUR", "CHF", "USD"},
		"v":        predict.Nothing,
	}
	root := &complete.Command{Sub: map[string]*complete.Command{}, Flags: global}

	commander.VisitCommands(func(_ *subcommands.CommandGroup, c subcommands.Command) {
		fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
		c.SetFlags(fs)
		flags := map[string]complete.Predictor{}
		fs.VisitAll(func(f *flag.Flag) {
			flags[f.Name] = predict.Something
		})
		sub := &complete.Command{Flags: flags}
		switch c.Name() {
		case "topic":
			topics, _ := docs.GetAllTopics()
			sub.Args = predict.Set(topics)
		case "asset":
			flags["class"] = predict.Set{"stock", "etf", "bond", "fund", "crypto", "precious_metal"}
			flags["fund-category"] = predict.Set{"equity_fund_30", "mixed_fund_15", "real_estate_fund_60", "bond_fund_0"}
		case "income":
			flags["type"] = predict.Set{"dividend", "interest"}
		case "lots":
			flags["status"] = predict.Set{"open", "partially_sold", "closed"}
		}
		root.Sub[c.Name()] = sub
	})
	return root
}
