// Package cmd implements the cgt command line: one subcommand per engine operation,
// plus the HTTP server, the assistant and the documentation topics.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/etnz/capgains"
	"github.com/etnz/capgains/memstore"
	"github.com/etnz/capgains/sqlstore"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&portfolioCmd{}, "records")
	c.Register(&assetCmd{}, "records")
	c.Register(&holdingCmd{}, "records")
	c.Register(&buyCmd{}, "records")
	c.Register(&incomeCmd{}, "records")
	c.Register(&settingsCmd{}, "records")

	c.Register(&lotsCmd{}, "tax")
	c.Register(&simulateCmd{}, "tax")
	c.Register(&sellCmd{}, "tax")
	c.Register(&summaryCmd{}, "tax")

	c.Register(&serveCmd{}, "")
	c.Register(&AssistCmd{}, "")
	c.Register(&topicCmd{}, "")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var (
	dbPath          = flag.String("db", envOr(EnvDB, "cgt.db"), "Path to the SQLite database, ':memory:' for a throw away store")
	defaultCurrency = flag.String("currency", envOr(EnvDefaultCurrency, "EUR"), "Currency of portfolios that do not declare one")
	// Verbose enables debug logs on stderr.
	Verbose = flag.Bool("v", envBool(EnvVerbose), "Verbose logs")
)

func envOr(name, value string) string {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v
	}
	return value
}

func envBool(name string) bool {
	v, err := strconv.ParseBool(os.Getenv(name))
	return err == nil && v
}

// Logger returns the console logger configured by the global flags.
func Logger() zerolog.Logger {
	level := zerolog.InfoLevel
	if *Verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		Level(level).
		With().Timestamp().Logger()
}

// OpenDatabase opens the database selected by the -db flag.
func OpenDatabase(ctx context.Context) (capgains.Database, error) {
	if *dbPath == ":memory:" {
		return memstore.New(), nil
	}
	db, err := sqlstore.Open(ctx, *dbPath)
	if err != nil {
		return nil, fmt.Errorf("could not open database %q: %w", *dbPath, err)
	}
	return db, nil
}

// NewEngine creates the engine on db with the global flags.
func NewEngine(db capgains.Database) *capgains.Engine {
	return capgains.NewEngine(db,
		capgains.WithLogger(Logger()),
		capgains.WithCurrency(*defaultCurrency),
	)
}

// withEngine opens the database, runs fn and closes the database.
// Errors are printed the same way by every subcommand.
func withEngine(ctx context.Context, fn func(ctx context.Context, db capgains.Database, e *capgains.Engine) error) subcommands.ExitStatus {
	db, err := OpenDatabase(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	logger := Logger()
	ctx = logger.WithContext(ctx)
	if err := fn(ctx, db, NewEngine(db)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitStatus(err)
	}
	return subcommands.ExitSuccess
}

// usageError marks errors in the command line itself.
type usageError struct{ error }

func usagef(format string, args ...any) error { return usageError{fmt.Errorf(format, args...)} }

func exitStatus(err error) subcommands.ExitStatus {
	if _, ok := err.(usageError); ok {
		return subcommands.ExitUsageError
	}
	return subcommands.ExitFailure
}
