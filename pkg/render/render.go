package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/google/uuid"

	"github.com/matzehuels/versolve/pkg/graph"
	"github.com/matzehuels/versolve/pkg/version"
)

// Options configures DOT output.
type Options struct {
	// Detailed adds package UUIDs to node labels and edge specs to edges.
	Detailed bool
}

// ToDOT draws the installed packages of sol and the edges between them in
// Graphviz DOT format. Required packages have a bold outline, fixed ones a
// grey fill. Weak edges are dashed.
func ToDOT(g *graph.Graph, sol map[uuid.UUID]version.Number, opts Options) string {
	ids := make([]uuid.UUID, 0, len(sol))
	for id := range sol {
		ids = append(ids, id)
	}
	g.SortIDs(ids)

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, id := range ids {
		fmt.Fprintf(&buf, "  %q [%s];\n", id.String(), strings.Join(nodeAttrs(g, id, sol[id], opts), ", "))
	}

	buf.WriteString("\n")
	for _, id := range ids {
		edges := g.Neighbors(id, sol[id])
		deps := make([]uuid.UUID, 0, len(edges))
		for dep := range edges {
			if _, ok := sol[dep]; ok {
				deps = append(deps, dep)
			}
		}
		g.SortIDs(deps)
		for _, dep := range deps {
			e := edges[dep]
			var attrs []string
			if e.Weak {
				attrs = append(attrs, "style=dashed")
			}
			if opts.Detailed {
				attrs = append(attrs, fmt.Sprintf("label=%q", e.Spec.String()))
			}
			fmt.Fprintf(&buf, "  %q -> %q", id.String(), dep.String())
			if len(attrs) > 0 {
				fmt.Fprintf(&buf, " [%s]", strings.Join(attrs, ", "))
			}
			buf.WriteString(";\n")
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(g *graph.Graph, id uuid.UUID, v version.Number, opts Options) []string {
	name := g.Name(id)
	if name == "" {
		name = id.String()
	}
	label := name + "\nv" + v.String()
	if opts.Detailed {
		label += "\n" + id.String()
	}
	attrs := []string{fmt.Sprintf("label=%q", label)}
	if g.IsRequired(id) {
		attrs = append(attrs, "penwidth=2")
	}
	if g.IsFixed(id) {
		attrs = append(attrs, "fillcolor=lightgrey")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces the fixed point size Graphviz writes with a
// viewBox so the SVG scales with its container.
func normalizeViewBox(svg []byte) []byte {
	m := viewBoxRe.FindSubmatch(svg)
	if m == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(m[3]), 64)
	h, _ := strconv.ParseFloat(string(m[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
