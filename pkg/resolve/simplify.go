package resolve

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/versolve/pkg/graph"
	"github.com/matzehuels/versolve/pkg/observability"
	"github.com/matzehuels/versolve/pkg/version"
)

// SimplifyStats summarizes one simplification pass.
type SimplifyStats = observability.SimplifyStats

// SimplifyOptions configures [Simplify].
type SimplifyOptions struct {
	// Validate rejects graphs with strong edges to packages that have no
	// known versions, before anything is changed.
	Validate bool

	// Logger receives progress output. Nil discards it.
	Logger *log.Logger

	// Hooks receives the pass summary. Nil uses the registered hooks.
	Hooks observability.ResolverHooks
}

// Simplify shrinks g in place to the versions that can take part in a
// solution for its current requirements and fixed versions.
//
// Every version that loses all support under arc consistency is pruned, and
// runs of adjacent versions that behave identically towards every other
// package are merged into the newest of the run. No version that some
// solution could use is removed. When propagation proves the requirements
// unsatisfiable the graph is left unchanged and Conflict is set; the
// resolver explains the conflict.
//
// Merges are only valid for the requirements in place when Simplify ran.
func Simplify(g *graph.Graph, opts SimplifyOptions) (SimplifyStats, error) {
	logger, hooks := opts.Logger, opts.Hooks
	if logger == nil {
		logger = discardLogger()
	}
	if hooks == nil {
		hooks = observability.Resolver()
	}
	start := time.Now()
	stats, err := simplify(g, opts.Validate, logger)
	hooks.OnSimplify(context.Background(), stats, time.Since(start), err)
	return stats, err
}

func simplify(g *graph.Graph, validate bool, logger *log.Logger) (SimplifyStats, error) {
	pr := newProblem(g, buildOptions{reqs: g.Requirements(), fixed: g.Fixed()})
	stats := SimplifyStats{Packages: len(pr.ids)}

	if validate {
		if err := pr.validate(); err != nil {
			logger.Warn("graph validation failed", "violations", len(err.Violations))
			return stats, err
		}
	}

	dom := pr.initialDomains()
	w := -1
	for x := range dom {
		if dom[x].empty() {
			w = x
			break
		}
	}
	if w < 0 {
		w = pr.propagateAll(dom, nil)
	}
	if w >= 0 {
		stats.Conflict = true
		logger.Info("requirements are unsatisfiable, graph left unchanged", "package", pr.label(w))
		return stats, nil
	}

	type merge struct {
		id      uuid.UUID
		v, into version.Number
	}
	var merges []merge
	for x, id := range pr.ids {
		if pr.g.IsFixed(id) {
			continue
		}
		// Walk surviving versions newest first, keeping the run head.
		head := -1
		for s := len(pr.versions[x]) - 1; s >= 0; s-- {
			if !dom[x].has(s) {
				continue
			}
			if head >= 0 && pr.sameSignature(dom, x, s, head) {
				merges = append(merges, merge{id, pr.versions[x][s], pr.versions[x][head]})
				continue
			}
			head = s
		}
	}

	for x, id := range pr.ids {
		for s, v := range pr.versions[x] {
			if !dom[x].has(s) && g.Prune(id, v) {
				stats.Pruned++
			}
		}
	}
	for _, m := range merges {
		if err := g.Merge(m.id, m.v, m.into); err != nil {
			return stats, err
		}
		stats.Merged++
	}
	logger.Info("simplified graph", "packages", stats.Packages, "pruned", stats.Pruned, "merged", stats.Merged)
	return stats, nil
}

// sameSignature reports whether states s and t of x admit exactly the same
// surviving states of every neighbor.
func (pr *problem) sameSignature(dom []bitset, x, s, t int) bool {
	for k, y := range pr.adj[x] {
		rows := pr.compat[x][k]
		if !rows[s].and(dom[y]).equal(rows[t].and(dom[y])) {
			return false
		}
	}
	return true
}

// validate collects strong edges, from versions in scope, to packages that
// have no known versions.
func (pr *problem) validate() *GraphValidationError {
	var out []Violation
	for x, id := range pr.ids {
		for _, v := range pr.versions[x] {
			edges := pr.g.Neighbors(id, v)
			deps := make([]uuid.UUID, 0, len(edges))
			for dep, e := range edges {
				if !e.Weak && len(pr.g.Versions(dep)) == 0 {
					deps = append(deps, dep)
				}
			}
			pr.g.SortIDs(deps)
			for _, dep := range deps {
				out = append(out, Violation{Package: id, Label: pr.label(x), Version: v, Dependency: dep})
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return &GraphValidationError{Violations: out}
}
