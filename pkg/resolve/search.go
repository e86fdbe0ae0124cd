package resolve

import (
	"github.com/charmbracelet/log"
)

// searcher is a depth-first search over domains with binary branching:
// either the decided variable takes the chosen state, or that state is
// excluded. Arc consistency is restored after every step.
type searcher struct {
	pr    *problem
	dec   decider
	log   *log.Logger
	trace bool

	// budget caps the number of visited nodes; zero means unlimited.
	budget    int
	nodes     int
	exhausted bool

	// bound holds the ranks of an incumbent solution. Subtrees that cannot
	// produce a lexicographically better rank vector are skipped.
	bound []int

	solution []int
}

// run searches from dom, which it may modify. It reports whether a
// solution was found; the solution is left in s.solution.
func (s *searcher) run(dom []bitset) bool {
	s.trace = s.log.GetLevel() <= log.DebugLevel
	return s.search(dom, 0)
}

func (s *searcher) search(dom []bitset, depth int) bool {
	for {
		s.nodes++
		if s.budget > 0 && s.nodes > s.budget {
			s.exhausted = true
			return false
		}
		if s.bound != nil && !s.canImprove(dom) {
			return false
		}
		x, st, ok := s.dec.decide(dom)
		if !ok {
			s.solution = make([]int, len(dom))
			for i, d := range dom {
				s.solution[i] = d.next(0)
			}
			return true
		}
		if s.trace {
			s.log.Debug("✓ select", "depth", depth, "package", s.pr.label(x), "state", s.pr.stateString(x, st))
		}

		branch := cloneDomains(dom)
		branch[x].only(st)
		if w := s.pr.propagate(branch, []int{x}, nil); w < 0 {
			if s.search(branch, depth+1) {
				return true
			}
			if s.exhausted {
				return false
			}
		} else if s.trace {
			s.log.Debug("✗ conflict", "depth", depth, "package", s.pr.label(w))
		}

		if s.trace {
			s.log.Debug("← exclude", "depth", depth, "package", s.pr.label(x), "state", s.pr.stateString(x, st))
		}
		dom[x].clear(st)
		if w := s.pr.propagate(dom, []int{x}, nil); w >= 0 {
			if s.trace {
				s.log.Debug("✗ conflict", "depth", depth, "package", s.pr.label(w))
			}
			return false
		}
	}
}

// canImprove reports whether dom may still contain an assignment whose
// rank vector is lexicographically smaller than the bound.
func (s *searcher) canImprove(dom []bitset) bool {
	for x, d := range dom {
		r := s.pr.rank(x, s.pr.bestState(x, d))
		if r != s.bound[x] {
			return r < s.bound[x]
		}
	}
	return false
}

// ranks returns the rank vector of a complete assignment.
func (pr *problem) ranks(states []int) []int {
	out := make([]int, len(states))
	for x, st := range states {
		out[x] = pr.rank(x, st)
	}
	return out
}
