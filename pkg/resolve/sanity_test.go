package resolve

import (
	"context"
	"slices"
	"testing"

	"github.com/google/uuid"

	"github.com/matzehuels/versolve/pkg/version"
)

func TestSanityCheck(t *testing.T) {
	f := newFixture(t)
	f.pkg("A", "1.0.0", "2.0.0")
	f.pkg("B", "1.0.0", "2.0.0")
	f.pkg("C", "1.0.0")
	f.dep("A", "1.0.0", "B", "3")
	f.dep("A", "2.0.0", "B", "1")
	f.dep("B", "1.0.0", "C", "2")
	f.dep("C", "1.0.0", "Ghost", "*")
	f.require("A", "2") // ignored

	findings, err := SanityCheck(context.Background(), f.g, SanityOptions{})
	if err != nil {
		t.Fatal(err)
	}
	want := []Finding{
		{Package: f.ids["A"], Name: "A", Version: version.MustParseNumber("1.0.0")},
		{Package: f.ids["A"], Name: "A", Version: version.MustParseNumber("2.0.0")},
		{Package: f.ids["B"], Name: "B", Version: version.MustParseNumber("1.0.0")},
		{Package: f.ids["C"], Name: "C", Version: version.MustParseNumber("1.0.0")},
	}
	if !slices.Equal(findings, want) {
		t.Errorf("SanityCheck() = %v, want %v", findings, want)
	}

	subset, err := SanityCheck(context.Background(), f.g, SanityOptions{IDs: []uuid.UUID{f.ids["B"]}, Deep: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(subset) != 1 || subset[0].Package != f.ids["B"] {
		t.Errorf("SanityCheck(B) = %v", subset)
	}
	if len(f.g.Versions(f.ids["A"])) != 2 {
		t.Error("SanityCheck modified the graph")
	}
}

func TestSanityCheckCanceled(t *testing.T) {
	f := newFixture(t)
	f.pkg("A", "1.0.0")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := SanityCheck(ctx, f.g, SanityOptions{}); err == nil {
		t.Error("SanityCheck(canceled) succeeded")
	}
}
