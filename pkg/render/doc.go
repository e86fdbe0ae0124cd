// Package render draws resolutions as node-link diagrams.
//
// [ToDOT] produces Graphviz DOT text for the installed packages and the
// dependency edges between them; [RenderSVG] lays it out with the
// WebAssembly build of Graphviz bundled by github.com/goccy/go-graphviz, so
// no system installation is needed.
//
//	dot := render.ToDOT(g, result, render.Options{Detailed: true})
//	svg, err := render.RenderSVG(ctx, dot)
package render
