package render

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/matzehuels/versolve/pkg/graph"
	"github.com/matzehuels/versolve/pkg/version"
)

func TestToDOT(t *testing.T) {
	a := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	b := uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	c := uuid.MustParse("00000000-0000-0000-0000-00000000000c")
	v1 := version.MustParseNumber("1.0.0")

	g := graph.New()
	g.AddPackage(a, "A", v1)
	g.AddPackage(b, "B", v1)
	g.AddPackage(c, "C", v1)
	g.AddEdge(a, v1, b, version.MustParse("1"), false)
	g.AddEdge(a, v1, c, version.MustParse("1"), true)
	g.Require(a, version.Any())
	g.Fix(b, v1)

	sol := map[uuid.UUID]version.Number{a: v1, b: v1}

	tests := []struct {
		name     string
		opts     Options
		contains []string
		excludes []string
	}{
		{
			name: "simple",
			contains: []string{
				`label="A\nv1.0.0"`,
				"penwidth=2",
				"fillcolor=lightgrey",
				`"` + a.String() + `" -> "` + b.String() + `";`,
			},
			excludes: []string{c.String()},
		},
		{
			name:     "detailed",
			opts:     Options{Detailed: true},
			contains: []string{`label="^1"`, `\n` + a.String() + `"`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dot := ToDOT(g, sol, tt.opts)
			for _, s := range tt.contains {
				if !strings.Contains(dot, s) {
					t.Errorf("DOT lacks %q:\n%s", s, dot)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(dot, s) {
					t.Errorf("DOT contains %q:\n%s", s, dot)
				}
			}
		})
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="100pt" height="50pt" viewBox="0.00 0.00 100.00 50.00"><g/></svg>`)
	out := string(normalizeViewBox(in))
	if !strings.Contains(out, `viewBox="0 0 100.00 50.00" width="100" height="50"`) {
		t.Errorf("normalizeViewBox() = %s", out)
	}
	if got := normalizeViewBox([]byte("<svg>")); string(got) != "<svg>" {
		t.Errorf("normalizeViewBox(no viewBox) = %s", got)
	}
}
