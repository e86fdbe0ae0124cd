package version

import (
	"strconv"
	"strings"
)

// Bound is a version with zero to three leading components.
//
// Whether a Bound is a lower or an upper edge depends on where it sits in a
// Range. An empty Bound is unbounded on that side. As an upper edge a Bound
// covers every version that starts with its components.
type Bound struct {
	t [3]uint64
	n int
}

// NewBound returns a bound with the given leading components.
// It panics if more than three components are given.
func NewBound(parts ...uint64) Bound {
	if len(parts) > 3 {
		panic("version: bound with more than three components")
	}
	var b Bound
	b.n = copy(b.t[:], parts)
	return b
}

// Len returns the number of specified components.
func (b Bound) Len() int { return b.n }

// IsUnbounded reports whether b has no components.
func (b Bound) IsUnbounded() bool { return b.n == 0 }

// Parts returns the specified components.
func (b Bound) Parts() []uint64 {
	return append([]uint64(nil), b.t[:b.n]...)
}

// String renders the components joined by dots, or "*" when unbounded.
func (b Bound) String() string {
	if b.n == 0 {
		return "*"
	}
	parts := make([]string, b.n)
	for i := range b.n {
		parts[i] = strconv.FormatUint(b.t[i], 10)
	}
	return strings.Join(parts, ".")
}

// trimmed drops trailing zero components. Used for lower edges, where
// "1.0.0", "1.0" and "1" admit the same versions.
func (b Bound) trimmed() Bound {
	for b.n > 0 && b.t[b.n-1] == 0 {
		b.n--
	}
	return b
}

// atLeast reports whether v lies at or above b used as a lower edge.
func (b Bound) atLeast(v Number) bool {
	p := v.parts()
	for i := range b.n {
		if b.t[i] < p[i] {
			return true
		}
		if b.t[i] > p[i] {
			return false
		}
	}
	return true
}

// atMost reports whether v lies at or below b used as an upper edge.
func (b Bound) atMost(v Number) bool {
	p := v.parts()
	for i := range b.n {
		if p[i] < b.t[i] {
			return true
		}
		if p[i] > b.t[i] {
			return false
		}
	}
	return true
}

// lessLower orders two lower edges; the unbounded edge sorts first.
func lessLower(a, b Bound) bool {
	for i := range min(a.n, b.n) {
		if a.t[i] != b.t[i] {
			return a.t[i] < b.t[i]
		}
	}
	return a.n < b.n
}

// lessUpper orders two upper edges; the unbounded edge sorts last and a
// shorter bound covers more than a longer one with the same prefix.
func lessUpper(a, b Bound) bool {
	for i := range min(a.n, b.n) {
		if a.t[i] != b.t[i] {
			return a.t[i] < b.t[i]
		}
	}
	return a.n > b.n
}

// upperBelowLower reports whether an upper edge lies entirely below a lower
// edge, which makes the range between them empty.
func upperBelowLower(up, lo Bound) bool {
	if up.n == 0 || lo.n == 0 {
		return false
	}
	for i := range min(up.n, lo.n) {
		if up.t[i] != lo.t[i] {
			return up.t[i] < lo.t[i]
		}
	}
	return false
}

// joinable reports whether a range ending at up and a range starting at lo
// overlap or touch, so that their union is a single range. With equal
// lengths the last component may differ by one: 1.5 joins 1.6.
func joinable(up, lo Bound) bool {
	if up.n == 0 || lo.n == 0 {
		return true
	}
	if up.n == lo.n {
		last := up.n - 1
		for i := range last {
			if up.t[i] != lo.t[i] {
				return up.t[i] > lo.t[i]
			}
		}
		return up.t[last]+1 >= lo.t[last]
	}
	for i := range min(up.n, lo.n) {
		if up.t[i] != lo.t[i] {
			return up.t[i] > lo.t[i]
		}
	}
	return true
}

func (b Bound) equal(o Bound) bool {
	return b.n == o.n && b.t == o.t
}
