package resolve

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/matzehuels/versolve/pkg/graph"
	"github.com/matzehuels/versolve/pkg/version"
)

const (
	// minimizeBudget caps the search nodes spent on one feasibility check
	// while shrinking the set of conflicting requirements.
	minimizeBudget = 20000

	// minimizeMaxChecks caps the number of feasibility checks.
	minimizeMaxChecks = 64

	// explainDepth caps how far restrictions of neighbors are explained.
	explainDepth = 3

	// refuteDepth and refuteBudget cap the nested branches and the
	// propagations spent explaining a conflict found only by search.
	refuteDepth  = 4
	refuteBudget = 4096
)

// explainFailure builds the ResolverError for an infeasible graph.
func explainFailure(g *graph.Graph) *ResolverError {
	reqs, fixed := g.Requirements(), g.Fixed()
	roots := minimalRoots(g, reqs, fixed)

	subReqs := make(map[uuid.UUID]version.Spec)
	subFixed := make(map[uuid.UUID]version.Number)
	for _, id := range roots {
		if s, ok := reqs[id]; ok {
			subReqs[id] = s
		}
		if v, ok := fixed[id]; ok {
			subFixed[id] = v
		}
	}
	pr := newProblem(g, buildOptions{reqs: subReqs, fixed: subFixed, representatives: true})
	dom := pr.initialDomains()
	tr := newTracer(len(dom))
	w := -1
	for x := range dom {
		if dom[x].empty() {
			w = x
			break
		}
	}
	if w < 0 {
		w = pr.propagateAll(dom, tr)
	}

	var e *ResolverError
	if w >= 0 {
		e = &ResolverError{
			Package: pr.ids[w],
			Label:   pr.label(w),
			Causes:  pr.restrictions(w, dom, tr, 0, -1),
		}
	} else {
		// The conflict only shows up during search. Report the requirements
		// that together admit no solution and, when the budget allows, the
		// implications that rule out every branch.
		e = &ResolverError{}
		for x, id := range pr.ids {
			if !slices.Contains(roots, id) {
				continue
			}
			if e.Label == "" {
				e.Package, e.Label = id, pr.label(x)
			}
			e.Causes = append(e.Causes, pr.rootCauses(x)...)
		}
		budget := refuteBudget
		if branches, ok := pr.refute(dom, 0, &budget); ok {
			e.Causes = append(e.Causes, branches...)
		}
	}
	e.Requirements = roots
	return e
}

// minimalRoots shrinks the required and fixed packages to a subset that is
// still unsatisfiable by dropping one root at a time. A root is only dropped
// when infeasibility without it is proven within the budget.
func minimalRoots(g *graph.Graph, reqs map[uuid.UUID]version.Spec, fixed map[uuid.UUID]version.Number) []uuid.UUID {
	roots := rootIDs(reqs, fixed)
	g.SortIDs(roots)

	checks := 0
	for i := len(roots) - 1; i >= 0 && checks < minimizeMaxChecks; i-- {
		candidate := slices.Delete(slices.Clone(roots), i, i+1)
		checks++
		if provenInfeasible(g, candidate, reqs, fixed) {
			roots = candidate
		}
	}
	return roots
}

func provenInfeasible(g *graph.Graph, roots []uuid.UUID, reqs map[uuid.UUID]version.Spec, fixed map[uuid.UUID]version.Number) bool {
	subReqs := make(map[uuid.UUID]version.Spec)
	subFixed := make(map[uuid.UUID]version.Number)
	for _, id := range roots {
		if s, ok := reqs[id]; ok {
			subReqs[id] = s
		}
		if v, ok := fixed[id]; ok {
			subFixed[id] = v
		}
	}
	pr := newProblem(g, buildOptions{reqs: subReqs, fixed: subFixed, representatives: true})
	dom := pr.initialDomains()
	if pr.propagateAll(dom, nil) >= 0 {
		return true
	}
	s := &searcher{pr: pr, dec: priorityDecider{pr: pr}, log: discardLogger(), budget: minimizeBudget}
	found := s.run(dom)
	return !found && !s.exhausted
}

// rootCauses describes the requirement and pin of variable x, if any.
func (pr *problem) rootCauses(x int) []Cause {
	id := pr.ids[x]
	var causes []Cause
	if v, ok := pr.fixed[id]; ok {
		causes = append(causes, Cause{Kind: CauseFixed, Spec: version.Exact(v), Versions: []version.Number{v}})
	}
	if s, ok := pr.reqs[id]; ok {
		causes = append(causes, Cause{Kind: CauseRequired, Spec: s})
	}
	return causes
}

// restrictions explains why x lost the states it lost: its own requirement
// or pin, missing dependencies, and the neighbors that removed states during
// propagation. Neighbor skip is left out to avoid explaining in circles.
func (pr *problem) restrictions(x int, dom []bitset, tr *tracer, depth, skip int) []Cause {
	causes := pr.rootCauses(x)

	missing := make(map[uuid.UUID][]version.Number)
	for s, deps := range pr.missing[x] {
		for _, dep := range deps {
			missing[dep] = append(missing[dep], pr.versions[x][s])
		}
	}
	deps := make([]uuid.UUID, 0, len(missing))
	for dep := range missing {
		deps = append(deps, dep)
	}
	pr.g.SortIDs(deps)
	for _, dep := range deps {
		vs := missing[dep]
		version.Sort(vs)
		causes = append(causes, Cause{Kind: CauseMissing, Package: dep, Label: pr.g.Label(dep), Versions: vs})
	}

	removed := make(map[int][]int)
	for s, by := range tr.reason[x] {
		if by != skip {
			removed[by] = append(removed[by], s)
		}
	}
	neighbors := make([]int, 0, len(removed))
	for y := range removed {
		neighbors = append(neighbors, y)
	}
	slices.Sort(neighbors)
	for _, y := range neighbors {
		states := removed[y]
		slices.Sort(states)
		causes = append(causes, pr.relation(x, y, states, dom, tr, depth))
	}
	return causes
}

// relation explains the states of x removed because of neighbor y.
func (pr *problem) relation(x, y int, states []int, dom []bitset, tr *tracer, depth int) Cause {
	xid, yid := pr.ids[x], pr.ids[y]

	if spec, ok := pr.forcedRequirement(y, xid, dom[y]); ok {
		return Cause{
			Kind:    CauseRequiredBy,
			Package: yid,
			Label:   pr.label(y),
			Spec:    spec,
			Chain:   pr.chain(y, tr),
		}
	}

	c := Cause{Kind: CauseRequires, Package: yid, Label: pr.label(y)}
	var specs []version.Range
	for _, s := range states {
		if s == pr.uninstalled(x) {
			continue
		}
		v := pr.versions[x][s]
		c.Versions = append(c.Versions, v)
		if e, ok := pr.g.Neighbors(xid, v)[yid]; ok {
			specs = append(specs, e.Spec.Ranges()...)
		}
	}
	c.Spec = version.Union(specs...)
	for t := dom[y].next(0); t >= 0; t = dom[y].next(t + 1) {
		if t == pr.uninstalled(y) {
			c.Optional = true
		} else {
			c.Allowed = append(c.Allowed, pr.versions[y][t])
		}
	}
	if depth+1 < explainDepth {
		c.Because = pr.restrictions(y, dom, tr, depth+1, x)
	}
	return c
}

// forcedRequirement reports whether y must be installed and every remaining
// version of y depends on target, returning the union of those specs.
func (pr *problem) forcedRequirement(y int, target uuid.UUID, d bitset) (version.Spec, bool) {
	if d.has(pr.uninstalled(y)) {
		return version.Spec{}, false
	}
	var specs []version.Range
	for t := d.next(0); t >= 0; t = d.next(t + 1) {
		e, ok := pr.g.Neighbors(pr.ids[y], pr.versions[y][t])[target]
		if !ok {
			return version.Spec{}, false
		}
		specs = append(specs, e.Spec.Ranges()...)
	}
	if len(specs) == 0 {
		return version.Spec{}, false
	}
	return version.Union(specs...), true
}

// chain lists the packages that force y to be installed, from a root down
// to y, by following who removed the "not installed" state.
func (pr *problem) chain(y int, tr *tracer) []string {
	var path []string
	seen := make(map[int]bool)
	for x := y; !seen[x]; {
		seen[x] = true
		path = append(path, pr.label(x))
		by, ok := tr.reason[x][pr.uninstalled(x)]
		if !ok {
			break
		}
		x = by
	}
	slices.Reverse(path)
	return path
}

// refute branches on the first undecided variable of dom and shows that
// each of its states leads to an empty domain, either directly through
// propagation or through further branches. ok is false when the depth or
// the budget runs out before every branch is closed.
func (pr *problem) refute(dom []bitset, depth int, budget *int) ([]Cause, bool) {
	x, _, undecided := priorityDecider{pr: pr}.decide(dom)
	if !undecided || depth >= refuteDepth {
		return nil, false
	}
	var causes []Cause
	for s := dom[x].next(0); s >= 0; s = dom[x].next(s + 1) {
		if *budget <= 0 {
			return nil, false
		}
		*budget--

		d := cloneDomains(dom)
		d[x].only(s)
		tr := newTracer(len(d))
		c := Cause{Kind: CauseBranch, Package: pr.ids[x], Label: pr.label(x)}
		if s != pr.uninstalled(x) {
			c.Versions = []version.Number{pr.versions[x][s]}
		}
		if w := pr.propagate(d, []int{x}, tr); w >= 0 {
			c.Chain = pr.implications(x, s, w, d, tr)
		} else {
			sub, ok := pr.refute(d, depth+1, budget)
			if !ok {
				return nil, false
			}
			c.Because = sub
		}
		causes = append(causes, c)
	}
	return causes, true
}

// implications walks the tracer back from the emptied variable w to the
// assumption x=s and describes each step as a dependency between two
// packages, in the order propagation applied them. The other neighbors
// that removed states of w close the chain.
func (pr *problem) implications(x, s, w int, dom []bitset, tr *tracer) []string {
	from := func(a int) bitset {
		if a != x {
			return dom[a]
		}
		b := newBitset(pr.states(x))
		b.set(s)
		return b
	}

	path := []int{w}
	seen := map[int]bool{w: true}
	for cur := w; ; {
		by, ok := pr.remover(cur, tr)
		if !ok {
			break
		}
		path = append(path, by)
		if by == x || seen[by] {
			break
		}
		seen[by] = true
		cur = by
	}
	slices.Reverse(path)

	var steps []string
	for i := 0; i+1 < len(path); i++ {
		steps = append(steps, pr.step(path[i], from(path[i]), path[i+1], tr))
	}

	var others []int
	for _, by := range tr.reason[w] {
		if (len(path) < 2 || by != path[len(path)-2]) && !slices.Contains(others, by) {
			others = append(others, by)
		}
	}
	slices.Sort(others)
	for _, by := range others {
		steps = append(steps, pr.step(by, from(by), w, tr))
	}
	return steps
}

// remover returns the variable that removed the last state of y.
func (pr *problem) remover(y int, tr *tracer) (int, bool) {
	by, ok := tr.reason[y][tr.last[y]]
	return by, ok
}

// step describes how a, holding the states in from, restricted b: either
// a's versions depend on b, or the removed versions of b depend on a.
func (pr *problem) step(a int, from bitset, b int, tr *tracer) string {
	aid, bid := pr.ids[a], pr.ids[b]
	if vs, spec := pr.edgesTo(a, from.members(), bid); len(vs) > 0 {
		return fmt.Sprintf("%s %s requires %s at %s", pr.label(a), joinVersions(vs), pr.label(b), spec)
	}
	var removed []int
	for t, by := range tr.reason[b] {
		if by == a {
			removed = append(removed, t)
		}
	}
	slices.Sort(removed)
	if vs, spec := pr.edgesTo(b, removed, aid); len(vs) > 0 {
		return fmt.Sprintf("%s %s requires %s at %s", pr.label(b), joinVersions(vs), pr.label(a), spec)
	}
	return fmt.Sprintf("%s restricts %s", pr.label(a), pr.label(b))
}

// edgesTo returns the versions among states of x that depend on target,
// and the union of their specs.
func (pr *problem) edgesTo(x int, states []int, target uuid.UUID) ([]version.Number, version.Spec) {
	var vs []version.Number
	var specs []version.Range
	for _, s := range states {
		if s == pr.uninstalled(x) {
			continue
		}
		v := pr.versions[x][s]
		if e, ok := pr.g.Neighbors(pr.ids[x], v)[target]; ok {
			vs = append(vs, v)
			specs = append(specs, e.Spec.Ranges()...)
		}
	}
	return vs, version.Union(specs...)
}
