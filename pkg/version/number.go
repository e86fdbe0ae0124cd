package version

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/matzehuels/versolve/pkg/errors"
)

// Number is a concrete semantic version.
//
// Numbers are comparable with == and usable as map keys. Use Compare for
// ordering: prereleases sort below the release they precede.
type Number struct {
	Major, Minor, Patch uint64
	Pre                 string // prerelease tag without the leading "-"
	Build               string // build metadata without the leading "+"
}

// New returns the release version major.minor.patch.
func New(major, minor, patch uint64) Number {
	return Number{Major: major, Minor: minor, Patch: patch}
}

// ParseNumber parses a semantic version such as "1.2.3", "v2", "1.0.0-rc.1"
// or "1.2.3+build.5". Missing minor and patch components default to zero.
func ParseNumber(s string) (Number, error) {
	sv, err := semver.NewVersion(strings.TrimSpace(s))
	if err != nil {
		return Number{}, errors.Wrap(errors.ErrCodeInvalidVersion, err, "invalid version number %q", s)
	}
	return Number{
		Major: sv.Major(),
		Minor: sv.Minor(),
		Patch: sv.Patch(),
		Pre:   sv.Prerelease(),
		Build: sv.Metadata(),
	}, nil
}

// MustParseNumber is like ParseNumber but panics on error.
// Intended for tests and package-level literals.
func MustParseNumber(s string) Number {
	v, err := ParseNumber(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String renders the version in semver form, e.g. "1.2.3-rc.1+abc".
func (v Number) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Pre != "" {
		b.WriteByte('-')
		b.WriteString(v.Pre)
	}
	if v.Build != "" {
		b.WriteByte('+')
		b.WriteString(v.Build)
	}
	return b.String()
}

// IsPrerelease reports whether v carries a prerelease tag.
func (v Number) IsPrerelease() bool {
	return v.Pre != ""
}

// Compare returns -1, 0 or +1 depending on whether v sorts before, equal to
// or after w. The order is total: it returns 0 only for identical numbers.
func (v Number) Compare(w Number) int {
	if c := cmp.Compare(v.Major, w.Major); c != 0 {
		return c
	}
	if c := cmp.Compare(v.Minor, w.Minor); c != 0 {
		return c
	}
	if c := cmp.Compare(v.Patch, w.Patch); c != 0 {
		return c
	}
	if c := comparePre(v.Pre, w.Pre); c != 0 {
		return c
	}
	return compareBuild(v.Build, w.Build)
}

// Less reports whether v sorts before w.
func (v Number) Less(w Number) bool {
	return v.Compare(w) < 0
}

func (v Number) parts() [3]uint64 {
	return [3]uint64{v.Major, v.Minor, v.Patch}
}

func comparePre(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return 1
	case b == "":
		return -1
	}
	if c := semver.New(0, 0, 0, a, "").Compare(semver.New(0, 0, 0, b, "")); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

func compareBuild(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return -1
	case b == "":
		return 1
	}
	return strings.Compare(a, b)
}

// Sort orders vs ascending by Compare.
func Sort(vs []Number) {
	slices.SortFunc(vs, Number.Compare)
}

// MarshalText implements encoding.TextMarshaler.
func (v Number) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Number) UnmarshalText(text []byte) error {
	n, err := ParseNumber(string(text))
	if err != nil {
		return err
	}
	*v = n
	return nil
}
