package resolve

import (
	"context"
	"maps"
	"testing"
	"time"

	"github.com/matzehuels/versolve/pkg/errors"
	"github.com/matzehuels/versolve/pkg/observability"
	"github.com/matzehuels/versolve/pkg/version"
)

func TestSimplify(t *testing.T) {
	f := newFixture(t)
	f.pkg("A", "0.9.0", "1.0.0", "1.1.0", "1.2.0", "2.0.0")
	f.pkg("B", "1.0.0", "2.0.0")
	f.pkg("Z", "1.0.0")
	f.dep("A", "0.9.0", "B", "3")
	for _, v := range []string{"1.0.0", "1.1.0", "1.2.0"} {
		f.dep("A", v, "B", "1")
	}
	f.dep("A", "2.0.0", "B", "2")
	f.require("A", "*")

	stats, err := Simplify(f.g, SimplifyOptions{Validate: true})
	if err != nil {
		t.Fatal(err)
	}
	want := SimplifyStats{Packages: 2, Pruned: 1, Merged: 2}
	if stats != want {
		t.Errorf("Simplify() = %+v, want %+v", stats, want)
	}

	a := f.ids["A"]
	if f.g.HasVersion(a, version.MustParseNumber("0.9.0")) {
		t.Error("A@0.9.0 survived")
	}
	for _, v := range []string{"1.0.0", "1.1.0"} {
		if got := f.g.Representative(a, version.MustParseNumber(v)); got != version.MustParseNumber("1.2.0") {
			t.Errorf("Representative(A@%s) = %s, want 1.2.0", v, got)
		}
	}
	if !f.g.IsRepresentative(a, version.MustParseNumber("2.0.0")) {
		t.Error("A@2.0.0 was merged")
	}
	if len(f.g.Versions(f.ids["Z"])) != 1 {
		t.Error("package out of scope was modified")
	}

	got, err := Resolve(f.g, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if want := f.solution(map[string]string{"A": "2.0.0", "B": "2.0.0"}); !maps.Equal(got, want) {
		t.Errorf("Resolve() = %v", f.names(got))
	}
}

func TestSimplifyConflictLeavesGraph(t *testing.T) {
	f := newFixture(t)
	f.pkg("A", "1.0.0", "2.0.0")
	f.pkg("B", "1.0.0")
	f.dep("A", "1.0.0", "B", "2")
	f.dep("A", "2.0.0", "B", "2")
	f.require("A", "*")

	stats, err := Simplify(f.g, SimplifyOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !stats.Conflict || stats.Pruned != 0 {
		t.Errorf("Simplify() = %+v, want a conflict and no pruning", stats)
	}
	if len(f.g.Versions(f.ids["A"])) != 2 {
		t.Error("graph was modified")
	}
}

func TestSimplifyValidation(t *testing.T) {
	f := newFixture(t)
	f.pkg("A", "1.0.0", "2.0.0")
	f.pkg("Empty")
	f.dep("A", "1.0.0", "Empty", "*")
	f.weak("A", "2.0.0", "Empty", "*")
	f.require("A", "*")

	_, err := Simplify(f.g, SimplifyOptions{Validate: true})
	var verr *GraphValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Simplify() error = %v, want *GraphValidationError", err)
	}
	if len(verr.Violations) != 1 || verr.Violations[0].Version != version.MustParseNumber("1.0.0") {
		t.Errorf("violations = %+v, want only the strong edge of A@1.0.0", verr.Violations)
	}
	if len(f.g.Versions(f.ids["A"])) != 2 {
		t.Error("graph was modified")
	}
}

type recordingHooks struct {
	observability.NoopResolverHooks
	simplified []SimplifyStats
	resolved   []int
}

func (h *recordingHooks) OnSimplify(_ context.Context, stats SimplifyStats, _ time.Duration, _ error) {
	h.simplified = append(h.simplified, stats)
}

func (h *recordingHooks) OnResolveComplete(_ context.Context, _ string, installed, _ int, _ time.Duration, _ error) {
	h.resolved = append(h.resolved, installed)
}

func TestHooks(t *testing.T) {
	f := newFixture(t)
	f.pkg("A", "1.0.0")
	f.pkg("B", "1.0.0")
	f.dep("A", "1.0.0", "B", "*")
	f.require("A", "*")

	h := &recordingHooks{}
	if _, err := Resolve(f.g, Options{Simplify: true, Hooks: h}); err != nil {
		t.Fatal(err)
	}
	if len(h.simplified) != 1 || h.simplified[0].Packages != 2 {
		t.Errorf("OnSimplify calls = %+v", h.simplified)
	}
	if len(h.resolved) != 1 || h.resolved[0] != 2 {
		t.Errorf("OnResolveComplete installed = %v, want [2]", h.resolved)
	}
}
