package resolve

import "math"

// decider picks the next branching decision of the search: a variable with
// more than one candidate state and the state to try first. ok is false
// once every domain is a singleton.
type decider interface {
	decide(dom []bitset) (x, s int, ok bool)
}

// priorityDecider branches on the first undecided variable in priority
// order and tries its most preferred state. Depth-first search driven by it
// enumerates assignments in lexicographic preference order, so the first
// solution it reaches is the optimum.
type priorityDecider struct {
	pr *problem
}

func (d priorityDecider) decide(dom []bitset) (int, int, bool) {
	for x := range dom {
		if dom[x].count() > 1 {
			return x, d.pr.bestState(x, dom[x]), true
		}
	}
	return 0, 0, false
}

// maxSumDecider runs max-sum message passing over the constraint graph and
// decides the variable whose best state leads its runner-up by the widest
// margin. When no variable stands out it defers to the priority decider.
type maxSumDecider struct {
	pr       *problem
	rounds   int
	field    [][]float64   // unary preference of every state
	msg      [][][]float64 // msg[x][k][s]: message from adj[x][k] to x about state s
	fallback priorityDecider
}

// minGap is the smallest belief margin treated as a real preference.
const minGap = 1e-9

func newMaxSumDecider(pr *problem, rounds int) *maxSumDecider {
	d := &maxSumDecider{
		pr:       pr,
		rounds:   rounds,
		field:    make([][]float64, len(pr.ids)),
		msg:      make([][][]float64, len(pr.ids)),
		fallback: priorityDecider{pr: pr},
	}
	for x := range pr.ids {
		n := pr.states(x)
		scale := 1 / float64(1+pr.depth[x])
		d.field[x] = make([]float64, n)
		for s := range n {
			d.field[x][s] = scale * float64(n-pr.rank(x, s)) / float64(n)
		}
		d.msg[x] = make([][]float64, len(pr.adj[x]))
		for k := range pr.adj[x] {
			d.msg[x][k] = make([]float64, n)
		}
	}
	return d
}

func (d *maxSumDecider) decide(dom []bitset) (int, int, bool) {
	if _, _, ok := d.fallback.decide(dom); !ok {
		return 0, 0, false
	}
	for range d.rounds {
		d.sweep(dom)
	}

	bestX, bestS, bestGap := -1, -1, minGap
	for x := range dom {
		if dom[x].count() < 2 {
			continue
		}
		s1, b1, b2 := -1, math.Inf(-1), math.Inf(-1)
		for s := dom[x].next(0); s >= 0; s = dom[x].next(s + 1) {
			b := d.belief(x, s)
			// Ties go to the preferred state, which has the lower rank.
			if b > b1 || (b == b1 && s1 >= 0 && d.pr.rank(x, s) < d.pr.rank(x, s1)) {
				s1, b1, b2 = s, b, b1
			} else if b > b2 {
				b2 = b
			}
		}
		if math.IsInf(b1, -1) {
			// Message passing sees no consistent state; let search prove it.
			return d.fallback.decide(dom)
		}
		gap := b1 - b2
		if math.IsInf(b2, -1) {
			gap = math.MaxFloat64
		}
		if gap > bestGap {
			bestX, bestS, bestGap = x, s1, gap
		}
	}
	if bestX < 0 {
		return d.fallback.decide(dom)
	}
	return bestX, bestS, true
}

func (d *maxSumDecider) belief(x, s int) float64 {
	b := d.field[x][s]
	for k := range d.pr.adj[x] {
		b += d.msg[x][k][s]
	}
	return b
}

// sweep updates every message once, in place.
func (d *maxSumDecider) sweep(dom []bitset) {
	pr := d.pr
	for y := range pr.ids {
		// Sum incoming messages of y once; exclude one at a time below.
		n := pr.states(y)
		finite := make([]float64, n)
		infs := make([]int, n)
		for t := dom[y].next(0); t >= 0; t = dom[y].next(t + 1) {
			finite[t] = d.field[y][t]
			for j := range pr.adj[y] {
				if m := d.msg[y][j][t]; math.IsInf(m, -1) {
					infs[t]++
				} else {
					finite[t] += m
				}
			}
		}
		for j, x := range pr.adj[y] {
			kx := pr.rev[y][j] // position of y in adj[x]
			out := d.msg[x][kx]
			rows := pr.compat[x][kx]
			peak := math.Inf(-1)
			for s := dom[x].next(0); s >= 0; s = dom[x].next(s + 1) {
				best := math.Inf(-1)
				for t := dom[y].next(0); t >= 0; t = dom[y].next(t + 1) {
					if !rows[s].has(t) {
						continue
					}
					own := d.msg[y][j][t]
					val := finite[t]
					if math.IsInf(own, -1) {
						if infs[t] > 1 {
							continue
						}
					} else {
						if infs[t] > 0 {
							continue
						}
						val -= own
					}
					best = max(best, val)
				}
				out[s] = best
				peak = max(peak, best)
			}
			if !math.IsInf(peak, -1) {
				for s := dom[x].next(0); s >= 0; s = dom[x].next(s + 1) {
					out[s] -= peak
				}
			}
		}
	}
}
