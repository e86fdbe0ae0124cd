package resolve

import (
	"slices"

	"github.com/google/uuid"

	"github.com/matzehuels/versolve/pkg/graph"
	"github.com/matzehuels/versolve/pkg/version"
)

// problem is the index-based view of a graph that propagation and search
// work on. Packages become variables numbered in priority order; the states
// of variable x are its versions in ascending order followed by one extra
// state meaning "not installed".
//
// A problem is immutable once built. Domains live outside it so that many
// searches or checks can share one problem.
type problem struct {
	g        *graph.Graph
	ids      []uuid.UUID
	index    map[uuid.UUID]int
	versions [][]version.Number
	depth    []int // BFS distance from the nearest root

	// adj[x] lists the variables constrained together with x. rev[x][k] is
	// the position of x in adj[adj[x][k]].
	adj [][]int
	rev [][]int

	// compat[x][k][s] holds the states of adj[x][k] compatible with x in
	// state s. The relation is symmetric: both packages' edges are applied.
	compat [][][]bitset

	// missing[x][s] lists strong dependencies of state s that are not in
	// the graph at all. Such states can never be installed.
	missing []map[int][]uuid.UUID

	reqs  map[uuid.UUID]version.Spec
	fixed map[uuid.UUID]version.Number
	reps  bool
}

// buildOptions selects what a problem covers.
type buildOptions struct {
	reqs  map[uuid.UUID]version.Spec
	fixed map[uuid.UUID]version.Number

	// roots overrides the packages the scope is grown from. By default
	// these are the required and fixed packages.
	roots []uuid.UUID

	// order and depth fix the variable order, typically computed by reach
	// on the graph before it was simplified. Packages reachable but not
	// listed are appended.
	order []uuid.UUID
	depth []int

	// representatives hides versions merged into another one.
	representatives bool
}

func newProblem(g *graph.Graph, opts buildOptions) *problem {
	pr := &problem{
		g:     g,
		index: make(map[uuid.UUID]int),
		reqs:  opts.reqs,
		fixed: opts.fixed,
		reps:  opts.representatives,
	}
	if pr.reqs == nil {
		pr.reqs = map[uuid.UUID]version.Spec{}
	}
	if pr.fixed == nil {
		pr.fixed = map[uuid.UUID]version.Number{}
	}

	var order []uuid.UUID
	var depth []int
	switch {
	case opts.order != nil:
		order, depth = reach(g, opts.order, opts.depth...)
	case opts.roots != nil:
		order, depth = reach(g, opts.roots)
	default:
		order, depth = reach(g, rootIDs(pr.reqs, pr.fixed))
	}
	for i, id := range order {
		pr.index[id] = i
		pr.versions = append(pr.versions, g.Versions(id))
	}
	pr.ids, pr.depth = order, depth
	pr.link()
	return pr
}

// rootIDs returns the required and fixed packages.
func rootIDs(reqs map[uuid.UUID]version.Spec, fixed map[uuid.UUID]version.Number) []uuid.UUID {
	var roots []uuid.UUID
	for id := range reqs {
		roots = append(roots, id)
	}
	for id := range fixed {
		if _, dup := reqs[id]; !dup {
			roots = append(roots, id)
		}
	}
	return roots
}

// reach lists the known packages reachable from start in breadth first
// order, with their distance. Edges of every version count, weak or not.
// When depths are given, start is kept in its order; otherwise it is
// sorted and starts at distance zero.
func reach(g *graph.Graph, start []uuid.UUID, depths ...int) ([]uuid.UUID, []int) {
	var order []uuid.UUID
	var depth []int
	seen := make(map[uuid.UUID]bool)
	add := func(id uuid.UUID, d int) {
		if !seen[id] && g.Has(id) {
			seen[id] = true
			order = append(order, id)
			depth = append(depth, d)
		}
	}
	if depths == nil {
		start = slices.Clone(start)
		g.SortIDs(start)
	}
	for i, id := range start {
		d := 0
		if depths != nil {
			d = depths[i]
		}
		add(id, d)
	}
	for i := 0; i < len(order); i++ {
		id := order[i]
		var deps []uuid.UUID
		for _, v := range g.Versions(id) {
			for dep := range g.Neighbors(id, v) {
				if !seen[dep] && g.Has(dep) && !slices.Contains(deps, dep) {
					deps = append(deps, dep)
				}
			}
		}
		g.SortIDs(deps)
		for _, dep := range deps {
			add(dep, depth[i]+1)
		}
	}
	return order, depth
}

// link builds adjacency and compatibility tables for every pair of
// variables joined by at least one edge.
func (pr *problem) link() {
	n := len(pr.ids)
	pr.adj = make([][]int, n)
	pr.rev = make([][]int, n)
	pr.compat = make([][][]bitset, n)
	pr.missing = make([]map[int][]uuid.UUID, n)

	pairs := make([]map[int]bool, n)
	for x := range n {
		pairs[x] = make(map[int]bool)
	}
	for x, id := range pr.ids {
		for s, v := range pr.versions[x] {
			for dep, e := range pr.g.Neighbors(id, v) {
				y, ok := pr.index[dep]
				if !ok {
					if !e.Weak {
						if pr.missing[x] == nil {
							pr.missing[x] = make(map[int][]uuid.UUID)
						}
						pr.missing[x][s] = append(pr.missing[x][s], dep)
					}
					continue
				}
				pairs[x][y] = true
				pairs[y][x] = true
			}
		}
	}
	for x := range n {
		for y := range pairs[x] {
			pr.adj[x] = append(pr.adj[x], y)
		}
		slices.Sort(pr.adj[x])
		pr.rev[x] = make([]int, len(pr.adj[x]))
		pr.compat[x] = make([][]bitset, len(pr.adj[x]))
	}
	for x := range n {
		for k, y := range pr.adj[x] {
			pr.rev[x][k], _ = slices.BinarySearch(pr.adj[y], x)
		}
	}
	for x := range n {
		for k, y := range pr.adj[x] {
			if y < x {
				continue
			}
			rows := pr.pairMatrix(x, y)
			pr.compat[x][k] = rows
			pr.compat[y][pr.rev[x][k]] = transpose(rows, pr.states(y))
		}
	}
}

// pairMatrix returns, for every state of x, the compatible states of y.
func (pr *problem) pairMatrix(x, y int) []bitset {
	nx, ny := pr.states(x), pr.states(y)
	rows := make([]bitset, nx)
	for s := range rows {
		rows[s] = fullBitset(ny)
	}
	for s, v := range pr.versions[x] {
		if e, ok := pr.g.Neighbors(pr.ids[x], v)[pr.ids[y]]; ok {
			rows[s] = pr.admitted(e, y)
		}
	}
	for t, w := range pr.versions[y] {
		e, ok := pr.g.Neighbors(pr.ids[y], w)[pr.ids[x]]
		if !ok {
			continue
		}
		adm := pr.admitted(e, x)
		for s := range nx {
			if !adm.has(s) {
				rows[s].clear(t)
			}
		}
	}
	return rows
}

// admitted returns the states of y that satisfy edge e.
func (pr *problem) admitted(e graph.Edge, y int) bitset {
	b := newBitset(pr.states(y))
	for t, w := range pr.versions[y] {
		if e.Spec.Contains(w) {
			b.set(t)
		}
	}
	if e.Weak {
		b.set(pr.uninstalled(y))
	}
	return b
}

func transpose(rows []bitset, cols int) []bitset {
	out := make([]bitset, cols)
	for t := range out {
		out[t] = newBitset(len(rows))
	}
	for s, row := range rows {
		for t := row.next(0); t >= 0; t = row.next(t + 1) {
			out[t].set(s)
		}
	}
	return out
}

// states returns the number of states of x, including "not installed".
func (pr *problem) states(x int) int { return len(pr.versions[x]) + 1 }

// uninstalled returns the "not installed" state of x.
func (pr *problem) uninstalled(x int) int { return len(pr.versions[x]) }

// initialDomains returns the starting domains: fixed packages hold their
// pinned version, required packages the versions their requirement admits,
// every other package all versions plus "not installed". States with a
// missing strong dependency are left out.
func (pr *problem) initialDomains() []bitset {
	dom := make([]bitset, len(pr.ids))
	for x, id := range pr.ids {
		d := newBitset(pr.states(x))
		fv, fixed := pr.fixed[id]
		req, required := pr.reqs[id]
		for s, v := range pr.versions[x] {
			switch {
			case fixed:
				if v == fv && (!required || req.Contains(v)) {
					d.set(s)
				}
			case required:
				if req.Contains(v) && pr.visible(x, v, req) {
					d.set(s)
				}
			default:
				if pr.visible(x, v, version.Any()) {
					d.set(s)
				}
			}
		}
		if !fixed && !required {
			d.set(pr.uninstalled(x))
		}
		for s := range pr.missing[x] {
			d.clear(s)
		}
		dom[x] = d
	}
	return dom
}

// visible reports whether v takes part in search. Merged versions are
// hidden behind their representative unless the requirement excludes it.
func (pr *problem) visible(x int, v version.Number, req version.Spec) bool {
	if !pr.reps || pr.g.IsRepresentative(pr.ids[x], v) {
		return true
	}
	return !req.Contains(pr.g.Representative(pr.ids[x], v))
}

// rank orders the states of x by preference, 0 being the best: "not
// installed" first, then versions from newest to oldest.
func (pr *problem) rank(x, s int) int {
	return pr.uninstalled(x) - s
}

// bestState returns the most preferred state in d.
func (pr *problem) bestState(x int, d bitset) int {
	if u := pr.uninstalled(x); d.has(u) {
		return u
	}
	return d.last()
}

// label returns the display label of variable x.
func (pr *problem) label(x int) string {
	return pr.g.Label(pr.ids[x])
}

// stateString renders state s of x for logs and messages.
func (pr *problem) stateString(x, s int) string {
	if s == pr.uninstalled(x) {
		return "uninstalled"
	}
	return pr.versions[x][s].String()
}

// assignment converts singleton domains to the installed versions.
func (pr *problem) assignment(states []int) map[uuid.UUID]version.Number {
	out := make(map[uuid.UUID]version.Number)
	for x, s := range states {
		if s != pr.uninstalled(x) {
			out[pr.ids[x]] = pr.versions[x][s]
		}
	}
	return out
}

// propagate enforces arc consistency on dom, starting from the variables in
// seeds whose domains changed. It returns a variable whose domain became
// empty, or -1. With a non-nil tracer every removal is recorded.
func (pr *problem) propagate(dom []bitset, seeds []int, tr *tracer) int {
	queued := make([]bool, len(dom))
	queue := make([]int, 0, len(seeds))
	for _, x := range seeds {
		if dom[x].empty() {
			return x
		}
		if !queued[x] {
			queued[x] = true
			queue = append(queue, x)
		}
	}
	for len(queue) > 0 {
		x := queue[0]
		queue = queue[1:]
		queued[x] = false
		for k, y := range pr.adj[x] {
			if !pr.revise(dom, y, pr.rev[x][k], x, tr) {
				continue
			}
			if dom[y].empty() {
				return y
			}
			if !queued[y] {
				queued[y] = true
				queue = append(queue, y)
			}
		}
	}
	return -1
}

// propagateAll establishes arc consistency over every variable.
func (pr *problem) propagateAll(dom []bitset, tr *tracer) int {
	seeds := make([]int, len(dom))
	for x := range seeds {
		seeds[x] = x
	}
	return pr.propagate(dom, seeds, tr)
}

// revise drops the states of y without support in dom[x]. ky is the
// position of x in adj[y].
func (pr *problem) revise(dom []bitset, y, ky, x int, tr *tracer) bool {
	changed := false
	rows := pr.compat[y][ky]
	for s := dom[y].next(0); s >= 0; s = dom[y].next(s + 1) {
		if !rows[s].intersects(dom[x]) {
			dom[y].clear(s)
			changed = true
			if tr != nil {
				tr.record(y, s, x)
			}
		}
	}
	return changed
}

// tracer remembers which neighbor removed each state during propagation,
// and which state of every variable was removed last.
type tracer struct {
	reason []map[int]int
	last   []int
}

func newTracer(n int) *tracer {
	return &tracer{reason: make([]map[int]int, n), last: make([]int, n)}
}

func (tr *tracer) record(x, s, by int) {
	if tr.reason[x] == nil {
		tr.reason[x] = make(map[int]int)
	}
	if _, ok := tr.reason[x][s]; !ok {
		tr.reason[x][s] = by
		tr.last[x] = s
	}
}
