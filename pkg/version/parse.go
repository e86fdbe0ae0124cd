package version

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matzehuels/versolve/pkg/errors"
)

// ParseError reports malformed version spec syntax.
type ParseError struct {
	Input  string // the full text handed to the parser
	Term   string // the offending comma separated term, if any
	Reason string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Term != "" && e.Term != e.Input {
		return fmt.Sprintf("invalid version spec %q: term %q: %s", e.Input, e.Term, e.Reason)
	}
	return fmt.Sprintf("invalid version spec %q: %s", e.Input, e.Reason)
}

// Unwrap exposes the coded error so errors.Is(err, ErrCodeInvalidSpec) holds.
func (e *ParseError) Unwrap() error {
	return errors.New(errors.ErrCodeInvalidSpec, "%s", e.Reason)
}

// opKind tags the operator of a parsed term.
type opKind int

const (
	opCaret opKind = iota
	opTilde
	opEqual
	opAtLeast
	opLess
	opHyphen
	opAny
)

// term is one comma separated element of a spec: an operator applied to one
// partial version, or two for a hyphen range.
type term struct {
	op opKind
	lo Bound
	hi Bound
}

// Parse parses the compound spec syntax described in the package
// documentation and returns the union of its terms.
func Parse(text string) (Spec, error) {
	if strings.TrimSpace(text) == "" {
		return Spec{}, &ParseError{Input: text, Reason: "empty spec"}
	}
	var ranges []Range
	for _, raw := range strings.Split(text, ",") {
		t, err := parseTerm(strings.TrimSpace(raw))
		if err != nil {
			return Spec{}, &ParseError{Input: text, Term: strings.TrimSpace(raw), Reason: err.Error()}
		}
		r, err := t.eval()
		if err != nil {
			return Spec{}, &ParseError{Input: text, Term: strings.TrimSpace(raw), Reason: err.Error()}
		}
		ranges = append(ranges, r)
	}
	return Union(ranges...), nil
}

// MustParse is like Parse but panics on error.
func MustParse(text string) Spec {
	s, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return s
}

func parseTerm(s string) (term, error) {
	if s == "" {
		return term{}, fmt.Errorf("empty term")
	}
	if s == "*" {
		return term{op: opAny}, nil
	}
	if lo, hi, ok := splitHyphen(s); ok {
		a, err := parseBound(lo)
		if err != nil {
			return term{}, err
		}
		b, err := parseBound(hi)
		if err != nil {
			return term{}, err
		}
		return term{op: opHyphen, lo: a, hi: b}, nil
	}

	op, rest := opCaret, s
	for _, p := range []struct {
		prefix string
		op     opKind
	}{
		{">=", opAtLeast}, {"≥", opAtLeast}, {"^", opCaret},
		{"~", opTilde}, {"=", opEqual}, {"<", opLess},
	} {
		if strings.HasPrefix(s, p.prefix) {
			op, rest = p.op, strings.TrimSpace(s[len(p.prefix):])
			break
		}
	}
	if rest == "" {
		return term{}, fmt.Errorf("operator without version")
	}
	if strings.IndexAny(rest, "^~=<>≥*") == 0 {
		return term{}, fmt.Errorf("stacked operators")
	}
	b, err := parseBound(rest)
	if err != nil {
		return term{}, err
	}
	return term{op: op, lo: b}, nil
}

// splitHyphen splits "a - b". The dash must be surrounded by whitespace so
// that it cannot be confused with a prerelease tag.
func splitHyphen(s string) (string, string, bool) {
	i := strings.Index(s, " -")
	if i < 0 {
		return "", "", false
	}
	rest := s[i+2:]
	if rest == "" || (rest[0] != ' ' && rest[0] != '\t') {
		return "", "", false
	}
	return strings.TrimSpace(s[:i]), strings.TrimSpace(rest), true
}

// parseBound parses one to three dot separated decimal components with an
// optional leading "v".
func parseBound(s string) (Bound, error) {
	if s == "" {
		return Bound{}, fmt.Errorf("missing version")
	}
	s = strings.TrimPrefix(s, "v")
	if strings.ContainsAny(s, "-+") {
		return Bound{}, fmt.Errorf("prerelease and build tags are not allowed in specs: %q", s)
	}
	parts := strings.Split(s, ".")
	if len(parts) > 3 {
		return Bound{}, fmt.Errorf("more than three version components: %q", s)
	}
	var b Bound
	for i, p := range parts {
		if len(p) > 1 && p[0] == '0' {
			return Bound{}, fmt.Errorf("leading zero in version component %q", p)
		}
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return Bound{}, fmt.Errorf("invalid version component %q", p)
		}
		b.t[i] = n
	}
	b.n = len(parts)
	return b, nil
}

// eval turns a term into the range it denotes.
func (t term) eval() (Range, error) {
	switch t.op {
	case opAny:
		return Range{}, nil
	case opCaret, opTilde:
		if t.lo.n == 3 && t.lo.t == [3]uint64{} {
			return Range{}, fmt.Errorf("0.0.0 is not a valid version floor")
		}
		if t.op == opCaret {
			return NewRange(t.lo, caretUpper(t.lo)), nil
		}
		return NewRange(t.lo, tildeUpper(t.lo)), nil
	case opEqual:
		return NewRange(t.lo, t.lo), nil
	case opAtLeast:
		return NewRange(t.lo, Bound{}), nil
	case opLess:
		up, ok := lessUpperBound(t.lo)
		if !ok {
			return Range{}, fmt.Errorf("no version is less than %s", t.lo)
		}
		return NewRange(Bound{}, up), nil
	case opHyphen:
		r := NewRange(t.lo, t.hi)
		if r.IsEmpty() {
			return Range{}, fmt.Errorf("upper end %s is below lower end %s", t.hi, t.lo)
		}
		return r, nil
	}
	return Range{}, fmt.Errorf("unknown operator")
}

// caretUpper freezes the leftmost nonzero component of b. When every given
// component is zero the whole of b is frozen.
func caretUpper(b Bound) Bound {
	for i := range b.n {
		if b.t[i] != 0 {
			return NewBound(b.t[:i+1]...)
		}
	}
	return b
}

// tildeUpper freezes major and minor when given, otherwise the major.
func tildeUpper(b Bound) Bound {
	if b.n >= 2 {
		return NewBound(b.t[0], b.t[1])
	}
	return b
}

// lessUpperBound returns the largest upper bound strictly below b read as
// a full version: <1 and <1.0.0 give 0, <1.2 gives 1.1, <1.2.3 gives 1.2.2.
func lessUpperBound(b Bound) (Bound, bool) {
	major, minor, patch := b.t[0], b.t[1], b.t[2]
	switch {
	case patch != 0:
		return NewBound(major, minor, patch-1), true
	case minor != 0:
		return NewBound(major, minor-1), true
	case major != 0:
		return NewBound(major - 1), true
	}
	return Bound{}, false
}

// ParseRange parses the compact registry range syntax: "*", "1.2",
// "1.2-1.4", "0.3-*" or "*-2". A single bound a means [a, a].
func ParseRange(text string) (Range, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return Range{}, &ParseError{Input: text, Reason: "empty range"}
	}
	lo, hi := s, s
	if i := strings.IndexByte(s, '-'); i >= 0 {
		lo, hi = strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:])
	}
	a, err := parseRangeBound(lo)
	if err != nil {
		return Range{}, &ParseError{Input: text, Reason: err.Error()}
	}
	b, err := parseRangeBound(hi)
	if err != nil {
		return Range{}, &ParseError{Input: text, Reason: err.Error()}
	}
	r := NewRange(a, b)
	if r.IsEmpty() {
		return Range{}, &ParseError{Input: text, Reason: "empty range"}
	}
	return r, nil
}

func parseRangeBound(s string) (Bound, error) {
	if s == "*" {
		return Bound{}, nil
	}
	return parseBound(s)
}
