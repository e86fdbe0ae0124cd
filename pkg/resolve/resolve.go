package resolve

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/versolve/pkg/errors"
	"github.com/matzehuels/versolve/pkg/graph"
	"github.com/matzehuels/versolve/pkg/observability"
	"github.com/matzehuels/versolve/pkg/version"
)

// Strategy selects how the resolver searches.
type Strategy string

const (
	// StrategyHybrid finds a good solution with message passing first and
	// then proves or improves it with an exact, bounded search.
	StrategyHybrid Strategy = "hybrid"

	// StrategyBacktrack runs the exact search alone.
	StrategyBacktrack Strategy = "backtrack"
)

// Strategies lists the accepted strategies.
var Strategies = []Strategy{StrategyHybrid, StrategyBacktrack}

// ParseStrategy converts a name to a Strategy. The empty string selects
// StrategyHybrid.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyHybrid:
		return StrategyHybrid, nil
	case StrategyBacktrack:
		return StrategyBacktrack, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unknown strategy %q (want hybrid or backtrack)", s)
}

const defaultMaxSumRounds = 8

// Options configures [Resolve].
type Options struct {
	Strategy Strategy

	// Simplify runs [Simplify] on a copy of the graph before searching.
	Simplify bool

	// Validate makes Simplify reject strong edges to packages without
	// versions. Only used with Simplify.
	Validate bool

	// Logger receives progress output; at debug level every search
	// decision is traced. Nil discards it.
	Logger *log.Logger

	// Hooks receives resolve events. Nil uses the registered hooks.
	Hooks observability.ResolverHooks

	// SearchBudget caps the nodes of the heuristic phase of the hybrid
	// strategy. Zero derives it from the problem size. The exact phase is
	// never capped.
	SearchBudget int

	// MaxSumRounds is the number of message passing sweeps per decision.
	MaxSumRounds int
}

func (o Options) withDefaults() Options {
	if o.Strategy == "" {
		o.Strategy = StrategyHybrid
	}
	if o.Logger == nil {
		o.Logger = discardLogger()
	}
	if o.Hooks == nil {
		o.Hooks = observability.Resolver()
	}
	if o.MaxSumRounds <= 0 {
		o.MaxSumRounds = defaultMaxSumRounds
	}
	return o
}

func discardLogger() *log.Logger {
	return log.New(io.Discard)
}

// Resolve picks one version for every package that has to be installed to
// satisfy the requirements and fixed versions of g, or returns a
// *ResolverError explaining why that is impossible.
//
// Among all solutions it returns the best one in a fixed priority order:
// packages closer to the requirements come first, and for each package not
// installing it beats any version, and newer versions beat older ones.
// Both strategies return the same result. g is never modified.
func Resolve(g *graph.Graph, opts Options) (map[uuid.UUID]version.Number, error) {
	return resolve(context.Background(), g, opts.withDefaults())
}

// ResolveContext is like [Resolve] but returns as soon as ctx is done. The
// search keeps running on its own copy of g until it finishes.
func ResolveContext(ctx context.Context, g *graph.Graph, opts Options) (map[uuid.UUID]version.Number, error) {
	opts = opts.withDefaults()
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeTimeout, err, "resolution canceled")
	}

	type result struct {
		sol map[uuid.UUID]version.Number
		err error
	}
	done := make(chan result, 1)
	clone := g.Clone()
	go func() {
		sol, err := resolve(ctx, clone, opts)
		done <- result{sol, err}
	}()

	select {
	case r := <-done:
		return r.sol, r.err
	case <-ctx.Done():
		opts.Logger.Warn("resolution abandoned", "err", ctx.Err())
		return nil, errors.Wrap(errors.ErrCodeTimeout, ctx.Err(), "resolution canceled")
	}
}

func resolve(ctx context.Context, g *graph.Graph, opts Options) (sol map[uuid.UUID]version.Number, err error) {
	start := time.Now()
	nodes := 0
	build := buildOptions{reqs: g.Requirements(), fixed: g.Fixed(), representatives: true}
	if opts.Simplify {
		// Keep the priority order of the full graph; pruning removes edges.
		build.order, build.depth = reach(g, rootIDs(build.reqs, build.fixed))
		g = g.Clone()
		stats, err := Simplify(g, SimplifyOptions{Validate: opts.Validate, Logger: opts.Logger, Hooks: opts.Hooks})
		if err != nil {
			return nil, err
		}
		if stats.Conflict {
			opts.Logger.Debug("simplifier found a conflict")
		}
	}

	pr := newProblem(g, build)
	opts.Hooks.OnResolveStart(ctx, string(opts.Strategy), len(pr.ids))
	opts.Logger.Info("resolving", "strategy", opts.Strategy, "packages", len(pr.ids))
	defer func() {
		opts.Hooks.OnResolveComplete(ctx, string(opts.Strategy), len(sol), nodes, time.Since(start), err)
	}()

	states, nodes, ok := solve(pr, opts)
	if !ok {
		rerr := explainFailure(g)
		opts.Logger.Info("no solution", "package", rerr.Label)
		return nil, rerr
	}
	sol = pr.assignment(states)
	opts.Logger.Info("resolved", "installed", len(sol), "nodes", nodes, "took", time.Since(start).Round(time.Microsecond))
	return sol, nil
}

// solve returns the optimal complete assignment of pr, the number of search
// nodes spent and whether a solution exists.
func solve(pr *problem, opts Options) ([]int, int, bool) {
	dom := pr.initialDomains()
	for x := range dom {
		if dom[x].empty() {
			return nil, 0, false
		}
	}
	if pr.propagateAll(dom, nil) >= 0 {
		return nil, 0, false
	}

	var incumbent []int
	nodes := 0
	if opts.Strategy == StrategyHybrid {
		budget := opts.SearchBudget
		if budget <= 0 {
			budget = 10*len(pr.ids) + 1000
		}
		h := &searcher{pr: pr, dec: newMaxSumDecider(pr, opts.MaxSumRounds), log: opts.Logger, budget: budget}
		if h.run(cloneDomains(dom)) {
			incumbent = h.solution
			opts.Logger.Debug("heuristic incumbent", "nodes", h.nodes)
		} else {
			opts.Logger.Debug("heuristic search found nothing", "nodes", h.nodes, "exhausted", h.exhausted)
		}
		nodes += h.nodes
	}

	exact := &searcher{pr: pr, dec: priorityDecider{pr: pr}, log: opts.Logger}
	if incumbent != nil {
		exact.bound = pr.ranks(incumbent)
	}
	found := exact.run(dom)
	nodes += exact.nodes
	switch {
	case found:
		return exact.solution, nodes, true
	case incumbent != nil:
		return incumbent, nodes, true
	}
	return nil, nodes, false
}

// Describe renders a solution as sorted "label version" lines.
func Describe(g *graph.Graph, sol map[uuid.UUID]version.Number) string {
	ids := make([]uuid.UUID, 0, len(sol))
	for id := range sol {
		ids = append(ids, id)
	}
	g.SortIDs(ids)
	var b strings.Builder
	for _, id := range ids {
		fmt.Fprintf(&b, "%s %s\n", g.Label(id), sol[id])
	}
	return b.String()
}
