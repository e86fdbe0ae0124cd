package resolve

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/matzehuels/versolve/pkg/errors"
	"github.com/matzehuels/versolve/pkg/version"
)

// CauseKind classifies one reason a package lost candidate versions.
type CauseKind int

const (
	// CauseRequired: the package is required at Spec.
	CauseRequired CauseKind = iota
	// CauseFixed: the package is pinned at the single version in Spec.
	CauseFixed
	// CauseRequiredBy: every remaining version of Package depends on the
	// package at Spec, and Package must be installed (see Chain).
	CauseRequiredBy
	// CauseRequires: the package's Versions depend on Package at Spec, but
	// Package is restricted to Allowed (see Because).
	CauseRequires
	// CauseMissing: the package's Versions depend on Package, which is not
	// in the graph.
	CauseMissing
	// CauseBranch: assuming Package is at Versions (or not installed when
	// Versions is empty), the implications in Chain leave some package
	// without candidates. Because holds the branches tried next when the
	// assumption alone is not enough.
	CauseBranch
)

var causeKindNames = [...]string{"required", "fixed", "required_by", "requires", "missing", "branch"}

func (k CauseKind) String() string {
	if int(k) < len(causeKindNames) {
		return causeKindNames[k]
	}
	return fmt.Sprintf("CauseKind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k CauseKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Cause is one step in the explanation of a conflict.
type Cause struct {
	Kind     CauseKind        `json:"kind"`
	Package  uuid.UUID        `json:"package,omitempty"`
	Label    string           `json:"label,omitempty"`
	Spec     version.Spec     `json:"spec"`
	Versions []version.Number `json:"versions,omitempty"`

	// Allowed lists the versions Package was restricted to; Optional
	// reports whether it could also stay uninstalled.
	Allowed  []version.Number `json:"allowed,omitempty"`
	Optional bool             `json:"optional,omitempty"`

	// Chain lists the labels of the packages that force Package to be
	// installed, starting at a top-level requirement and ending at Package.
	// For CauseBranch it lists the implication steps instead.
	Chain []string `json:"chain,omitempty"`

	// Because explains why Package was restricted to Allowed.
	Because []Cause `json:"because,omitempty"`
}

// ResolverError reports that no assignment satisfies every requirement,
// fixed version and dependency edge.
//
// Package is the package left without candidates. Causes explain how each
// of its versions was ruled out. Requirements lists a minimal subset of the
// top-level requirements and fixed packages that is already unsatisfiable.
type ResolverError struct {
	Package      uuid.UUID   `json:"package"`
	Label        string      `json:"label"`
	Causes       []Cause     `json:"causes"`
	Requirements []uuid.UUID `json:"requirements"`
}

// Error renders the conflict as an indented tree.
func (e *ResolverError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "unsatisfiable requirements detected for package %s:", e.Label)
	writeCauses(&b, e.Label, e.Causes, 1)
	b.WriteString("\n  no versions left")
	return b.String()
}

// Unwrap exposes the UNSATISFIABLE code.
func (e *ResolverError) Unwrap() error {
	return errors.New(errors.ErrCodeUnsatisfiable, "unsatisfiable requirements for %s", e.Label)
}

func writeCauses(b *strings.Builder, subject string, causes []Cause, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, c := range causes {
		b.WriteString("\n" + indent + "- ")
		switch c.Kind {
		case CauseRequired:
			fmt.Fprintf(b, "%s is required at %s", subject, c.Spec)
		case CauseFixed:
			fmt.Fprintf(b, "%s is fixed at %s", subject, joinVersions(c.Versions))
		case CauseRequiredBy:
			fmt.Fprintf(b, "%s requires %s at %s", c.Label, subject, c.Spec)
			if len(c.Chain) > 1 {
				fmt.Fprintf(b, " (via %s)", strings.Join(c.Chain, " → "))
			}
		case CauseRequires:
			fmt.Fprintf(b, "%s %s requires %s at %s, but %s is restricted to %s",
				subject, joinVersions(c.Versions), c.Label, c.Spec, c.Label, describeAllowed(c.Allowed, c.Optional))
			writeCauses(b, c.Label, c.Because, depth+1)
		case CauseMissing:
			fmt.Fprintf(b, "%s %s depends on %s, which is not in the registry",
				subject, joinVersions(c.Versions), c.Label)
		case CauseBranch:
			if len(c.Versions) == 0 {
				fmt.Fprintf(b, "if %s is not installed", c.Label)
			} else {
				fmt.Fprintf(b, "if %s is at %s", c.Label, joinVersions(c.Versions))
			}
			if len(c.Chain) > 0 {
				fmt.Fprintf(b, ": %s", strings.Join(c.Chain, " → "))
			}
			writeCauses(b, c.Label, c.Because, depth+1)
		}
	}
}

func joinVersions(vs []version.Number) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

func describeAllowed(vs []version.Number, optional bool) string {
	switch {
	case len(vs) == 0 && optional:
		return "not being installed"
	case len(vs) == 0:
		return "no versions"
	case optional:
		return joinVersions(vs) + " or not being installed"
	}
	return joinVersions(vs)
}

// Violation is a strong edge to a package without any known version.
type Violation struct {
	Package    uuid.UUID      `json:"package"`
	Label      string         `json:"label"`
	Version    version.Number `json:"version"`
	Dependency uuid.UUID      `json:"dependency"`
}

// GraphValidationError reports edges whose dependency has no known
// versions, found when simplification runs with validation enabled.
type GraphValidationError struct {
	Violations []Violation `json:"violations"`
}

// Error lists the first few violations.
func (e *GraphValidationError) Error() string {
	const shown = 5
	var b strings.Builder
	fmt.Fprintf(&b, "graph validation failed: %d edge(s) reference packages without versions", len(e.Violations))
	for i, v := range e.Violations {
		if i == shown {
			fmt.Fprintf(&b, "\n  ... and %d more", len(e.Violations)-shown)
			break
		}
		fmt.Fprintf(&b, "\n  %s@%s depends on %s", v.Label, v.Version, v.Dependency)
	}
	return b.String()
}

// Unwrap exposes the GRAPH_VALIDATION code.
func (e *GraphValidationError) Unwrap() error {
	return errors.New(errors.ErrCodeGraphValidation, "%d invalid edge(s)", len(e.Violations))
}
