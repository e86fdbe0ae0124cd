package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/matzehuels/versolve/pkg/cache"
	"github.com/matzehuels/versolve/pkg/errors"
	"github.com/matzehuels/versolve/pkg/graph"
	pkgio "github.com/matzehuels/versolve/pkg/io"
	"github.com/matzehuels/versolve/pkg/registry"
	"github.com/matzehuels/versolve/pkg/resolve"
	"github.com/matzehuels/versolve/pkg/version"
)

// resolveOpts holds the command-line flags shared by resolve and graph.
type resolveOpts struct {
	source     sourceOpts
	cache      cacheOpts
	strategy   string // search strategy: hybrid or backtrack
	noValidate bool   // allow strong edges to packages without versions
	timeout    int    // resolution timeout in seconds
	output     string // output file; the extension selects the format
}

func (o *resolveOpts) register(cmd *cobra.Command, outputUsage string) {
	o.source.register(cmd, true)
	o.cache.register(cmd)
	cmd.Flags().StringVar(&o.strategy, "strategy", string(resolve.StrategyHybrid), "search strategy: hybrid, backtrack")
	cmd.Flags().BoolVar(&o.noValidate, "no-validate", false, "allow dependencies on packages without versions")
	cmd.Flags().IntVar(&o.timeout, "timeout", defaultTimeout, "resolution timeout in seconds")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", outputUsage)
}

// resolution is a resolved graph.
type resolution struct {
	g      *graph.Graph
	sol    map[uuid.UUID]version.Number
	cached bool
}

// resolveCommand creates the resolve command.
func (c *CLI) resolveCommand() *cobra.Command {
	var opts resolveOpts
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Pick one version for every package the project needs",
		Long: `Resolve loads a registry and a project, or a JSON graph document, and picks
one version per required package such that every dependency is satisfied.

Among all solutions the one installing the newest versions of the packages
closest to the project wins. If no solution exists the conflict is
explained.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.resolve(cmd.Context(), &opts)
			if err != nil {
				return err
			}
			return c.writeResolution(res, opts.output)
		},
	}
	opts.register(cmd, "output file: .toml (manifest) or .json (result); default prints a table")
	return cmd
}

// resolve loads the graph and resolves it, consulting the cache first.
func (c *CLI) resolve(ctx context.Context, opts *resolveOpts) (*resolution, error) {
	strategy, err := resolve.ParseStrategy(opts.strategy)
	if err != nil {
		return nil, err
	}
	g, err := opts.source.load(ctx, c)
	if err != nil {
		return nil, err
	}

	backend, err := opts.cache.open(ctx, c.Logger)
	if err != nil {
		return nil, err
	}
	defer backend.Close()
	store := cache.NewInstrumented(backend, "resolve", nil)

	digest, err := pkgio.Digest(g)
	if err != nil {
		return nil, err
	}
	validate := !opts.noValidate
	key := cache.NewDefaultKeyer().ResolveKey(digest, string(strategy)+"/validate="+strconv.FormatBool(validate))
	if data, hit, err := store.Get(ctx, key); err != nil {
		c.Logger.Warn("cache read failed", "err", err)
	} else if hit {
		if res, err := pkgio.ReadResult(bytes.NewReader(data)); err == nil {
			c.Logger.Debug("using cached resolution", "key", key)
			return &resolution{g: g, sol: res.Map(), cached: true}, nil
		}
		c.Logger.Warn("ignoring corrupt cache entry", "key", key)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(opts.timeout)*time.Second)
	defer cancel()

	var spin *Spinner
	if c.Logger.GetLevel() > LogDebug && isTerminal(os.Stderr) {
		spin = newSpinner(ctx, os.Stderr, "Resolving...")
		spin.Start()
	}
	prog := newProgress(c.Logger)
	sol, err := resolve.ResolveContext(ctx, g, resolve.Options{
		Strategy: strategy,
		Simplify: true,
		Validate: validate,
		Logger:   c.Logger.WithPrefix("resolve"),
	})
	if spin != nil {
		spin.Stop()
	}
	if err != nil {
		return nil, err
	}
	prog.done("Resolved", "installed", len(sol), "strategy", strategy)

	if data, err := json.Marshal(pkgio.NewResult(g, sol)); err == nil {
		if err := store.Set(ctx, key, data, cache.DefaultTTL); err != nil {
			c.Logger.Warn("cache write failed", "err", err)
		}
	}
	return &resolution{g: g, sol: sol}, nil
}

// writeResolution prints the resolution as a table or writes it to path.
func (c *CLI) writeResolution(res *resolution, path string) error {
	if path == "" {
		for _, e := range pkgio.NewResult(res.g, res.sol).Packages {
			printPackage(c.Out, e.Name, formatVersion(e.Version))
		}
		printStats(c.Out, len(res.sol), res.g.Len(), res.cached)
		return nil
	}

	var buf bytes.Buffer
	switch filepath.Ext(path) {
	case ".toml":
		if err := registry.WriteManifest(&buf, res.g, res.sol); err != nil {
			return err
		}
	case ".json":
		if err := pkgio.WriteResult(&buf, res.g, res.sol); err != nil {
			return err
		}
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unsupported output %q (want .toml or .json)", path)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return err
	}
	printSuccess(c.Out, "Resolved %d packages", len(res.sol))
	printFile(c.Out, path)
	return nil
}
