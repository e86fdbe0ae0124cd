package resolve

import (
	"cmp"
	"context"
	"runtime"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/versolve/pkg/graph"
	"github.com/matzehuels/versolve/pkg/observability"
	"github.com/matzehuels/versolve/pkg/version"
)

// DefaultSanityBudget caps the search nodes of one deep check.
const DefaultSanityBudget = 10000

// Finding is a version that can never be installed, whatever is required.
type Finding struct {
	Package uuid.UUID      `json:"package"`
	Name    string         `json:"name"`
	Version version.Number `json:"version"`
}

// SanityOptions configures [SanityCheck].
type SanityOptions struct {
	// IDs restricts the check to these packages. Empty checks all.
	IDs []uuid.UUID

	// Deep confirms versions that survive propagation with a bounded
	// search. Only proven failures are reported.
	Deep bool

	// Budget caps the search nodes of one deep check. Zero uses
	// DefaultSanityBudget.
	Budget int

	// Workers limits parallel checks. Zero uses GOMAXPROCS.
	Workers int

	Logger *log.Logger
	Hooks  observability.ResolverHooks
}

// SanityCheck reports every version of the selected packages that cannot be
// part of any consistent installation. Requirements and fixed versions of g
// are ignored, and g is not modified.
//
// The only error returned is the context's.
func SanityCheck(ctx context.Context, g *graph.Graph, opts SanityOptions) ([]Finding, error) {
	logger, hooks := opts.Logger, opts.Hooks
	if logger == nil {
		logger = discardLogger()
	}
	if hooks == nil {
		hooks = observability.Resolver()
	}
	budget := opts.Budget
	if budget <= 0 {
		budget = DefaultSanityBudget
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	ids := opts.IDs
	if len(ids) == 0 {
		ids = g.Packages()
	}
	start := time.Now()
	pr := newProblem(g, buildOptions{roots: ids})
	base := pr.initialDomains()
	pr.propagateAll(base, nil)

	var targets []int
	for _, id := range ids {
		if x, ok := pr.index[id]; ok && !slices.Contains(targets, x) {
			targets = append(targets, x)
		}
	}

	results := make([][]Finding, len(targets))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, x := range targets {
		eg.Go(func() error {
			for s, v := range pr.versions[x] {
				if err := gctx.Err(); err != nil {
					return err
				}
				if pr.installable(base, x, s, opts.Deep, budget) {
					continue
				}
				logger.Debug("version cannot be installed", "package", pr.label(x), "version", v)
				results[i] = append(results[i], Finding{Package: pr.ids[x], Name: g.Name(pr.ids[x]), Version: v})
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var findings []Finding
	checked := 0
	for i, x := range targets {
		checked += len(pr.versions[x])
		findings = append(findings, results[i]...)
	}
	slices.SortFunc(findings, func(a, b Finding) int {
		return cmp.Or(
			cmp.Compare(a.Name, b.Name),
			cmp.Compare(a.Package.String(), b.Package.String()),
			a.Version.Compare(b.Version),
		)
	})
	hooks.OnSanityComplete(ctx, checked, len(findings), time.Since(start))
	logger.Info("sanity check finished", "versions", checked, "findings", len(findings))
	return findings, nil
}

// installable reports whether state s of x survives propagation from base
// and, when deep is set, is not proven infeasible by a bounded search.
func (pr *problem) installable(base []bitset, x, s int, deep bool, budget int) bool {
	if !base[x].has(s) {
		return false
	}
	dom := cloneDomains(base)
	dom[x].only(s)
	if pr.propagate(dom, []int{x}, nil) >= 0 {
		return false
	}
	if !deep {
		return true
	}
	sr := &searcher{pr: pr, dec: priorityDecider{pr: pr}, log: discardLogger(), budget: budget}
	return sr.run(dom) || sr.exhausted
}
