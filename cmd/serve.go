package cmd

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/etnz/capgains"
	"github.com/etnz/capgains/api"
	"github.com/google/subcommands"
)

type serveCmd struct {
	addr string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the engine over HTTP" }
func (*serveCmd) Usage() string {
	return `cgt serve [-addr <host:port>]

  Serves sale simulations, executions and tax summaries as a JSON HTTP API:

    GET  /holdings/{id}/lots
    POST /holdings/{id}/sales:simulate
    POST /holdings/{id}/sales
    GET  /portfolios/{id}/tax-summaries/{year}
    POST /portfolios/{id}/tax-summaries/{year}

  The server stops on SIGINT or SIGTERM after the requests in flight completed.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "localhost:8080", "Address to listen on")
}

func (c *serveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withEngine(ctx, func(ctx context.Context, _ capgains.Database, e *capgains.Engine) error {
		logger := Logger()
		srv := &http.Server{
			Addr:              c.addr,
			Handler:           api.NewServer(e, logger).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errc := make(chan error, 1)
		go func() { errc <- srv.ListenAndServe() }()
		logger.Info().Str("addr", c.addr).Str("db", *dbPath).Msg("serving")

		select {
		case err := <-errc:
			return err
		case <-ctx.Done():
		}
		logger.Info().Msg("shutting down")
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
}
