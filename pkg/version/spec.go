package version

import (
	"slices"
	"strings"
)

// Range is the closed interval between two bounds, widened by partial upper
// bounds: Range{1.2, 1.4} admits every 1.4.x.
type Range struct {
	Lower Bound
	Upper Bound
}

// NewRange returns the range [lo, up]. Trailing zero components of the lower
// bound are dropped since they do not change which versions it admits.
func NewRange(lo, up Bound) Range {
	return Range{Lower: lo.trimmed(), Upper: up}
}

// AnyRange returns the range admitting every version.
func AnyRange() Range { return Range{} }

// IsEmpty reports whether r admits no version.
func (r Range) IsEmpty() bool {
	return upperBelowLower(r.Upper, r.Lower)
}

// Contains reports whether v lies within r. Prerelease and build tags are
// ignored: 1.2.0-rc1 lies within every range that admits 1.2.0.
func (r Range) Contains(v Number) bool {
	return r.Lower.atLeast(v) && r.Upper.atMost(v)
}

// Intersect returns the range admitted by both r and o. The result may be
// empty.
func (r Range) Intersect(o Range) Range {
	lo := r.Lower
	if lessLower(lo, o.Lower) {
		lo = o.Lower
	}
	up := r.Upper
	if lessUpper(o.Upper, up) {
		up = o.Upper
	}
	return Range{Lower: lo, Upper: up}
}

// String renders r in the compact registry syntax understood by ParseRange:
// "*", "1.2", "1.2-1.4", "0.3-*" or "*-2".
func (r Range) String() string {
	switch {
	case r.Lower.n == 0 && r.Upper.n == 0:
		return "*"
	case r.Lower.equal(r.Upper):
		return r.Lower.String()
	}
	return r.Lower.String() + "-" + r.Upper.String()
}

// Spec is a set of versions represented as a union of ranges. The ranges
// are kept sorted by lower bound, pairwise disjoint and never joinable, so
// two Specs admitting the same versions compare Equal.
//
// The zero Spec is empty.
type Spec struct {
	ranges []Range
}

// Any returns the Spec admitting every version.
func Any() Spec {
	return Spec{ranges: []Range{{}}}
}

// Exact returns the Spec admitting exactly the release v.Major.v.Minor.v.Patch
// (and its prereleases, which bounds do not distinguish).
func Exact(v Number) Spec {
	b := NewBound(v.Major, v.Minor, v.Patch)
	return Union(NewRange(b, b))
}

// Union normalizes ranges into a Spec. Empty ranges are dropped; overlapping
// and joinable ranges are merged. The result does not depend on input order.
func Union(ranges ...Range) Spec {
	rs := make([]Range, 0, len(ranges))
	for _, r := range ranges {
		r.Lower = r.Lower.trimmed()
		if !r.IsEmpty() {
			rs = append(rs, r)
		}
	}
	slices.SortFunc(rs, func(a, b Range) int {
		switch {
		case lessLower(a.Lower, b.Lower):
			return -1
		case lessLower(b.Lower, a.Lower):
			return 1
		case lessUpper(a.Upper, b.Upper):
			return -1
		case lessUpper(b.Upper, a.Upper):
			return 1
		}
		return 0
	})

	out := rs[:0]
	for _, r := range rs {
		if n := len(out); n > 0 && joinable(out[n-1].Upper, r.Lower) {
			if lessUpper(out[n-1].Upper, r.Upper) {
				out[n-1].Upper = r.Upper
			}
			continue
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return Spec{}
	}
	return Spec{ranges: out}
}

// Ranges returns a copy of the normalized ranges of s.
func (s Spec) Ranges() []Range {
	return slices.Clone(s.ranges)
}

// IsEmpty reports whether s admits no version.
func (s Spec) IsEmpty() bool {
	return len(s.ranges) == 0
}

// IsAny reports whether s admits every version.
func (s Spec) IsAny() bool {
	return len(s.ranges) == 1 && s.ranges[0] == Range{}
}

// Contains reports whether v is admitted by s.
func (s Spec) Contains(v Number) bool {
	for _, r := range s.ranges {
		if r.Contains(v) {
			return true
		}
	}
	return false
}

// Union returns the Spec admitting versions in s or o.
func (s Spec) Union(o Spec) Spec {
	return Union(append(slices.Clone(s.ranges), o.ranges...)...)
}

// Intersect returns the Spec admitting versions in both s and o.
func (s Spec) Intersect(o Spec) Spec {
	var rs []Range
	for _, a := range s.ranges {
		for _, b := range o.ranges {
			if r := a.Intersect(b); !r.IsEmpty() {
				rs = append(rs, r)
			}
		}
	}
	return Union(rs...)
}

// Equal reports whether s and o admit the same versions.
func (s Spec) Equal(o Spec) bool {
	return slices.Equal(s.ranges, o.ranges)
}

// Filter returns the versions in vs admitted by s, preserving order.
func (s Spec) Filter(vs []Number) []Number {
	var out []Number
	for _, v := range vs {
		if s.Contains(v) {
			out = append(out, v)
		}
	}
	return out
}

// String returns the canonical form produced by Format, or "∅" for the
// empty Spec.
func (s Spec) String() string {
	if s.IsEmpty() {
		return "∅"
	}
	text, _ := Format(s)
	return text
}

// RegistryString renders s as comma separated registry ranges.
func (s Spec) RegistryString() string {
	parts := make([]string, len(s.ranges))
	for i, r := range s.ranges {
		parts[i] = r.String()
	}
	return strings.Join(parts, ", ")
}

// MarshalText implements encoding.TextMarshaler using the canonical form.
// The empty Spec is written as "∅".
func (s Spec) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. It accepts everything
// Parse does plus "∅" for the empty Spec.
func (s *Spec) UnmarshalText(text []byte) error {
	if strings.TrimSpace(string(text)) == "∅" {
		*s = Spec{}
		return nil
	}
	p, err := Parse(string(text))
	if err != nil {
		return err
	}
	*s = p
	return nil
}
