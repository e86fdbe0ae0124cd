package version

import (
	"strings"

	"github.com/matzehuels/versolve/pkg/errors"
)

// Format returns the canonical text of s: the shortest operator form of each
// range, joined by ", ". Parse(Format(s)) is Equal to s.
//
// The empty Spec has no textual form and yields an INVALID_SPEC error.
func Format(s Spec) (string, error) {
	if s.IsEmpty() {
		return "", errors.New(errors.ErrCodeInvalidSpec, "empty version spec has no textual form")
	}
	parts := make([]string, len(s.ranges))
	for i, r := range s.ranges {
		parts[i] = formatRange(r)
	}
	return strings.Join(parts, ", "), nil
}

func formatRange(r Range) string {
	lo, up := r.Lower, r.Upper
	switch {
	case lo.n == 0 && up.n == 0:
		return "*"
	case up.n == 0:
		return ">=" + lo.String()
	case lo.n == 0:
		return "<" + successor(up).String()
	case caretUpper(lo).equal(up):
		return "^" + lo.String()
	case lo.n >= 2 && tildeUpper(lo).equal(up):
		return "~" + lo.String()
	case lo.n == 1 && up.equal(NewBound(lo.t[0], 0)):
		return "~" + lo.String() + ".0"
	case up.trimmed().equal(lo):
		return "=" + up.String()
	}
	return lo.String() + " - " + up.String()
}

// successor returns the smallest bound above every version admitted by up,
// written with as many components as up so that "<" maps it back.
func successor(up Bound) Bound {
	s := up
	s.t[s.n-1]++
	return s
}
