// Package cli implements the versolve command-line interface.
//
// This package provides commands for resolving the dependencies of a project
// against a TOML registry or a JSON graph document, checking a registry for
// uninstallable versions, rendering resolutions and serving the resolver
// over HTTP. The CLI is built using cobra and logs via charmbracelet/log.
//
// # Commands
//
// The main commands are:
//   - resolve: Pick one version per package and write the manifest
//   - sanity: List versions that can never be installed
//   - graph: Render a resolution as DOT or SVG
//   - serve: Run the HTTP API
//   - cache: Manage the result cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging, which also
// traces every search decision of the resolver.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/matzehuels/versolve/internal/metrics"
	"github.com/matzehuels/versolve/pkg/buildinfo"
	"github.com/matzehuels/versolve/pkg/cache"
	"github.com/matzehuels/versolve/pkg/observability"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "versolve"

	// defaultTimeout is the default resolution timeout (seconds).
	defaultTimeout = 60
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Out receives command output; status lines go to Logger.
	Out io.Writer

	metricsFile string
	metrics     *prometheus.Registry
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Out:    os.Stdout,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "versolve resolves package versions",
		Long:          `versolve picks one version for every package a project needs, preferring fewer and newer packages, and explains conflicts when no choice satisfies every constraint.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c.setupMetrics()
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile on exit")

	// Register all subcommands
	root.AddCommand(c.resolveCommand())
	root.AddCommand(c.sanityCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// Execute runs root and writes the metrics textfile afterwards, also when
// the command failed.
func (c *CLI) Execute(ctx context.Context, root *cobra.Command) error {
	err := root.ExecuteContext(ctx)
	if c.metricsFile != "" && c.metrics != nil {
		if werr := metrics.WriteFile(c.metrics, c.metricsFile); werr != nil {
			c.Logger.Warn("write metrics", "path", c.metricsFile, "err", werr)
		}
	}
	return err
}

// setupMetrics registers Prometheus hooks once per process.
func (c *CLI) setupMetrics() {
	if c.metrics != nil {
		return
	}
	c.metrics = prometheus.NewRegistry()
	observability.SetResolverHooks(metrics.NewResolverHooks(c.metrics))
	observability.SetCacheHooks(metrics.NewCacheHooks(c.metrics))
	observability.SetHTTPHooks(metrics.NewHTTPHooks(c.metrics))
}

// =============================================================================
// Cache Factory
// =============================================================================

// cacheOpts holds the cache flags shared by resolve and serve.
type cacheOpts struct {
	noCache bool
	redis   string
}

func (o *cacheOpts) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.noCache, "no-cache", false, "do not read or write cached results")
	cmd.Flags().StringVar(&o.redis, "redis", os.Getenv("VERSOLVE_REDIS_URL"), "redis URL for a shared cache (default: file cache)")
}

// open returns the configured backend. A file cache that cannot be created
// degrades to no caching.
func (o *cacheOpts) open(ctx context.Context, logger *log.Logger) (cache.Cache, error) {
	if o.noCache {
		return cache.NewNullCache(), nil
	}
	if o.redis != "" {
		return cache.NewRedisCache(ctx, o.redis)
	}
	dir, err := cacheDir()
	if err != nil {
		logger.Warn("cache disabled", "err", err)
		return cache.NewNullCache(), nil
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		logger.Warn("cache disabled", "err", err)
		return cache.NewNullCache(), nil
	}
	return fc, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/versolve/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
