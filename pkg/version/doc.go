// Package version implements the version algebra used by the resolver:
// concrete version numbers, partially specified bounds, ranges, set-valued
// specifications and the weights used to rank candidate versions.
//
// # Numbers
//
// A [Number] is a semantic version (major.minor.patch with optional
// prerelease and build metadata). Numbers are comparable values and can be
// used as map keys. [ParseNumber] accepts one to three numeric components
// and an optional leading "v":
//
//	v, err := version.ParseNumber("v1.2.3-rc.1")
//
// Prereleases sort below their release; build metadata only breaks ties so
// that two numbers compare equal exactly when they are identical.
//
// # Bounds and Ranges
//
// A [Bound] is a version with zero to three leading components. Used as the
// upper edge of a [Range] a bound covers the whole series it names, so the
// range [1.2, 1.4] admits 1.4.7 but not 1.5.0. An empty bound means
// "unbounded" on either side. Bounds ignore prerelease and build tags.
//
// # Specs
//
// A [Spec] is a union of ranges kept sorted, disjoint and merged whenever two
// ranges touch. The zero Spec is empty; [Any] admits every version.
//
//	s, err := version.Parse("^1.2, ~0.3.1, 2 - 3.4")
//	s.Contains(version.MustParseNumber("1.9.0")) // true
//
// The compound syntax understood by [Parse]:
//
//	^1.2.3   caret (compatible release): [1.2.3, 2)
//	1.2.3    same as ^1.2.3
//	~1.2.3   tilde (compatible minor):   [1.2.3, 1.3)
//	=1.2     exact, widened by the given components: 1.2.x
//	>=1.2    at least (≥ is accepted too)
//	<1.2     strictly less than 1.2.0
//	1 - 2.3  hyphen range, inclusive of the whole 2.3 series
//	*        any version
//
// Caret and tilde freeze the leftmost nonzero component: ^0.2.3 admits only
// 0.2.x and ^0.0.3 admits only 0.0.3. [Format] produces the canonical text
// of a Spec; parsing that text yields an identical Spec.
//
// Registries use the compact range syntax handled by [ParseRange]
// ("1.2-1.4", "0.3-*", "*").
//
// # Weights
//
// A [Weight] orders candidate versions during optimization. It agrees with
// Number ordering and adds [MinWeight] and [MaxWeight] sentinels for states
// that are not versions, such as "not installed".
package version
