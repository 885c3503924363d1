package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/capgains"
	"github.com/etnz/capgains/agent"
	"github.com/google/subcommands"
	"google.golang.org/genai"
)

// AssistCmd is the subcommand for the AI assistant.
type AssistCmd struct{}

// Name returns the name of the command.
func (*AssistCmd) Name() string { return "assist" }

// Synopsis returns a short-one line synopsis of the command.
func (*AssistCmd) Synopsis() string { return "Start an interactive session with the AI assistant." }

// Usage returns a long-form usage string.
func (*AssistCmd) Usage() string {
	return `cgt assist [<question>...]

  Start an interactive session with the AI assistant. The assistant reads the lots, simulates
  sales and computes summaries on the database, it never records anything.
  The Gemini client is configured by the environment, e.g. GEMINI_API_KEY.
`
}

// SetFlags sets the flags for the command.
func (*AssistCmd) SetFlags(_ *flag.FlagSet) {}

// Execute executes the command.
func (c *AssistCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	initialPrompt := strings.Join(f.Args(), " ")

	return withEngine(ctx, func(ctx context.Context, _ capgains.Database, e *capgains.Engine) error {
		client, err := genai.NewClient(ctx, nil)
		if err != nil {
			return fmt.Errorf("could not initialize Gemini's client: %w", err)
		}

		a := agent.New(os.Stdout, os.Stdin, agent.NewResearcher(), agent.NewTaxAdvisor(e))
		if r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120)); err == nil {
			a.Render = r.Render
		}
		if err := a.Run(ctx, client, initialPrompt); err != nil {
			return fmt.Errorf("agent failed: %w", err)
		}
		return nil
	})
}
