package cli

import (
	"time"

	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/versolve/internal/server"
	"github.com/matzehuels/versolve/pkg/cache"
	"github.com/matzehuels/versolve/pkg/resolve"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	cache    cacheOpts
	addr     string // listen address
	timeout  int    // per-request resolution timeout in seconds
	strategy string // default strategy
}

// serveCommand creates the serve command running the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the resolver over HTTP",
		Long: `Serve runs the HTTP API until interrupted:

  GET  /healthz
  GET  /metrics
  POST /v1/resolve?strategy=hybrid&validate=false
  POST /v1/sanity?deep=false

Both POST endpoints take a JSON graph document.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			strategy, err := resolve.ParseStrategy(opts.strategy)
			if err != nil {
				return err
			}
			backend, err := opts.cache.open(ctx, c.Logger)
			if err != nil {
				return err
			}
			defer backend.Close()

			c.metrics.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			srv := server.New(server.Config{
				Timeout:  time.Duration(opts.timeout) * time.Second,
				Strategy: strategy,
				Logger:   c.Logger.WithPrefix("http"),
				Gatherer: c.metrics,
				Cache:    cache.NewInstrumented(backend, "resolve", nil),
				Keyer:    cache.NewScopedKeyer(nil, "api:"),
			})
			return srv.ListenAndServe(ctx, opts.addr)
		},
	}

	opts.cache.register(cmd)
	cmd.Flags().StringVar(&opts.addr, "addr", ":8080", "listen address")
	cmd.Flags().IntVar(&opts.timeout, "timeout", int(server.DefaultTimeout/time.Second), "per-request timeout in seconds")
	cmd.Flags().StringVar(&opts.strategy, "strategy", string(resolve.StrategyHybrid), "default search strategy: hybrid, backtrack")
	return cmd
}
