package resolve

import (
	"encoding/json"
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/versolve/pkg/errors"
	"github.com/matzehuels/versolve/pkg/version"
)

func findCause(causes []Cause, kind CauseKind, label string) (Cause, bool) {
	for _, c := range causes {
		if c.Kind == kind && c.Label == label {
			return c, true
		}
	}
	return Cause{}, false
}

func TestExplainRequirementChain(t *testing.T) {
	f := newFixture(t)
	f.pkg("A", "1.0.0")
	f.pkg("B", "1.0.0")
	f.pkg("C", "1.0.0", "2.0.0")
	f.pkg("D", "1.0.0")
	f.dep("A", "1.0.0", "B", "*")
	f.dep("B", "1.0.0", "C", "2")
	f.dep("D", "1.0.0", "C", "1")
	f.require("A", "*")
	f.require("D", "*")

	_, err := Resolve(f.g, Options{})
	var rerr *ResolverError
	if !errors.As(err, &rerr) {
		t.Fatalf("Resolve() error = %v, want *ResolverError", err)
	}
	if rerr.Package != f.ids["C"] {
		t.Fatalf("conflict package = %s, want C", rerr.Label)
	}

	label := func(name string) string { return f.g.Label(f.ids[name]) }
	byB, ok := findCause(rerr.Causes, CauseRequiredBy, label("B"))
	if !ok {
		t.Fatalf("no cause for B in %+v", rerr.Causes)
	}
	if want := []string{label("A"), label("B")}; !slices.Equal(byB.Chain, want) {
		t.Errorf("chain = %v, want %v", byB.Chain, want)
	}
	if !byB.Spec.Equal(version.MustParse("2")) {
		t.Errorf("spec = %s, want ^2", byB.Spec)
	}
	if _, ok := findCause(rerr.Causes, CauseRequiredBy, label("D")); !ok {
		t.Errorf("no cause for D in %+v", rerr.Causes)
	}
	if !strings.Contains(err.Error(), "via "+label("A")+" → "+label("B")) {
		t.Errorf("message lacks the chain:\n%s", err)
	}

	data, err := json.Marshal(rerr)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"kind":"required_by"`) {
		t.Errorf("JSON = %s", data)
	}
}

func TestExplainRestrictedDependency(t *testing.T) {
	f := newFixture(t)
	f.pkg("A", "1.0.0", "2.0.0")
	f.pkg("B", "1.0.0", "2.0.0")
	f.pkg("C", "1.0.0", "2.0.0")
	f.dep("A", "1.0.0", "B", "1")
	f.dep("A", "2.0.0", "B", "2")
	f.dep("B", "1.0.0", "C", "1")
	f.dep("B", "2.0.0", "C", "1")
	f.fix("C", "2.0.0")
	f.require("A", "*")

	_, err := Resolve(f.g, Options{})
	var rerr *ResolverError
	if !errors.As(err, &rerr) {
		t.Fatalf("Resolve() error = %v, want *ResolverError", err)
	}
	if rerr.Package != f.ids["B"] {
		t.Fatalf("conflict package = %s, want B", rerr.Label)
	}

	c, ok := findCause(rerr.Causes, CauseRequires, f.g.Label(f.ids["C"]))
	if !ok {
		t.Fatalf("no restriction by C in %+v", rerr.Causes)
	}
	if len(c.Versions) != 2 || len(c.Allowed) != 1 || c.Allowed[0] != version.MustParseNumber("2.0.0") || c.Optional {
		t.Errorf("cause = %+v", c)
	}
	if len(c.Because) == 0 || c.Because[0].Kind != CauseFixed {
		t.Errorf("because = %+v, want the fixed version", c.Because)
	}
	if _, ok := findCause(rerr.Causes, CauseRequiredBy, f.g.Label(f.ids["A"])); !ok {
		t.Errorf("no cause for A in %+v", rerr.Causes)
	}
	if len(rerr.Requirements) != 2 {
		t.Errorf("requirements = %v, want A and C", rerr.Requirements)
	}
}

func TestGraphValidationErrorMessage(t *testing.T) {
	e := &GraphValidationError{}
	for range 7 {
		e.Violations = append(e.Violations, Violation{Label: "A", Version: version.MustParseNumber("1.0.0")})
	}
	msg := e.Error()
	if !strings.Contains(msg, "7 edge(s)") || !strings.Contains(msg, "and 2 more") {
		t.Errorf("Error() = %q", msg)
	}
}

func TestCauseKindString(t *testing.T) {
	if got := CauseMissing.String(); got != "missing" {
		t.Errorf("String() = %q", got)
	}
	if got := CauseBranch.String(); got != "branch" {
		t.Errorf("String() = %q", got)
	}
	if got := CauseKind(42).String(); got != "CauseKind(42)" {
		t.Errorf("String() = %q", got)
	}
}
