package cli

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/versolve/pkg/cache"
	pkgio "github.com/matzehuels/versolve/pkg/io"
	"github.com/matzehuels/versolve/pkg/resolve"
)

// sanityOpts holds the command-line flags for the sanity command.
type sanityOpts struct {
	source  sourceOpts
	cache   cacheOpts
	deep    bool // confirm survivors of propagation with a bounded search
	budget  int  // search nodes per deep check
	workers int  // parallel checks
}

// sanityCommand creates the sanity command.
func (c *CLI) sanityCommand() *cobra.Command {
	var opts sanityOpts
	cmd := &cobra.Command{
		Use:   "sanity [package...]",
		Short: "List versions that can never be installed",
		Long: `Sanity checks every version of the named packages, or of all packages, and
reports those that cannot be part of any consistent installation, for
example because a dependency has no compatible version left.

Without --deep only conflicts found by constraint propagation are reported.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSanity(cmd, args, &opts)
		},
	}
	opts.source.register(cmd, false)
	opts.cache.register(cmd)
	cmd.Flags().BoolVar(&opts.deep, "deep", false, "confirm the remaining versions with a bounded search")
	cmd.Flags().IntVar(&opts.budget, "budget", resolve.DefaultSanityBudget, "search nodes per version with --deep")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "parallel checks (default: number of CPUs)")
	return cmd
}

func (c *CLI) runSanity(cmd *cobra.Command, names []string, opts *sanityOpts) error {
	ctx := cmd.Context()
	g, err := opts.source.load(ctx, c)
	if err != nil {
		return err
	}
	ids, err := lookupNames(g, names)
	if err != nil {
		return err
	}

	backend, err := opts.cache.open(ctx, c.Logger)
	if err != nil {
		return err
	}
	defer backend.Close()
	store := cache.NewInstrumented(backend, "sanity", nil)

	digest, err := pkgio.Digest(g)
	if err != nil {
		return err
	}
	key := cache.NewScopedKeyer(nil, strings.Join(names, ",")+":").SanityKey(digest, opts.deep)

	var findings []resolve.Finding
	data, hit, err := store.Get(ctx, key)
	if err != nil {
		c.Logger.Warn("cache read failed", "err", err)
	}
	if !hit || json.NewDecoder(bytes.NewReader(data)).Decode(&findings) != nil {
		prog := newProgress(c.Logger)
		findings, err = resolve.SanityCheck(ctx, g, resolve.SanityOptions{
			IDs:     ids,
			Deep:    opts.deep,
			Budget:  opts.budget,
			Workers: opts.workers,
			Logger:  c.Logger.WithPrefix("sanity"),
		})
		if err != nil {
			return err
		}
		checked := len(ids)
		if checked == 0 {
			checked = g.Len()
		}
		prog.done("Checked", "packages", checked, "findings", len(findings))
		if data, err := json.Marshal(findings); err == nil {
			if err := store.Set(ctx, key, data, cache.DefaultTTL); err != nil {
				c.Logger.Warn("cache write failed", "err", err)
			}
		}
	}

	if len(findings) == 0 {
		printSuccess(c.Out, "No uninstallable versions")
		return nil
	}
	printWarning(c.Out, "%d uninstallable version(s)", len(findings))
	for _, f := range findings {
		printPackage(c.Out, f.Name, formatVersion(f.Version))
	}
	return nil
}
