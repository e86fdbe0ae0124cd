// Package pkg provides the core libraries of versolve, a package version
// resolver.
//
// # Overview
//
// versolve picks one version for every package a project needs such that
// every dependency constraint holds, preferring to install fewer packages
// and newer versions. The pkg directory is organized into three areas:
//
//  1. Domain logic ([version], [graph], [resolve])
//  2. Input and output ([registry], [io], [render])
//  3. Infrastructure ([cache], [errors], [observability], [buildinfo])
//
// # Architecture
//
// The typical data flow through versolve:
//
//	Registry.toml + Project.toml + Manifest.toml    graph.json
//	         ↓                                         ↓
//	    [registry] package                        [io] package
//	         ↓                                         ↓
//	                  [graph] package (versions, edges, requirements)
//	                           ↓
//	                  [resolve] package (simplify, search, explain)
//	                           ↓
//	          Manifest.toml / result.json / DOT / SVG
//
// # Quick Start
//
//	reg, _ := registry.Open("path/to/registry")
//	g, _ := reg.Graph(ctx, registry.LoadOptions{})
//
//	project, _ := registry.ReadProject("Project.toml")
//	_ = project.Require(g)
//
//	result, err := resolve.Resolve(g, resolve.Options{Simplify: true})
//	var conflict *resolve.ResolverError
//	if errors.As(err, &conflict) {
//	    fmt.Println(conflict) // indented explanation
//	}
//	_ = registry.WriteManifest(os.Stdout, g, result)
//
// # Main Packages
//
// [version] - Version numbers, version specs as unions of ranges, and the
// parsers for the compound spec syntax ("^1.2, ~0.3") and the compact
// registry range syntax ("0.5-0").
//
// [graph] - The dependency graph: packages identified by UUID, their
// versions, versioned edges with specs, requirements and fixed versions.
//
// [resolve] - The simplifier, the sanity checker and the resolver with its
// conflict explanations.
//
// [registry] - Readers for registry directories, project files and
// manifests.
//
// [io] - JSON graph documents and resolution results.
//
// [render] - DOT and SVG drawings of a resolution.
//
// [cache] - Result caches backed by files or Redis.
//
// [version]: https://pkg.go.dev/github.com/matzehuels/versolve/pkg/version
// [graph]: https://pkg.go.dev/github.com/matzehuels/versolve/pkg/graph
// [resolve]: https://pkg.go.dev/github.com/matzehuels/versolve/pkg/resolve
// [registry]: https://pkg.go.dev/github.com/matzehuels/versolve/pkg/registry
// [io]: https://pkg.go.dev/github.com/matzehuels/versolve/pkg/io
// [render]: https://pkg.go.dev/github.com/matzehuels/versolve/pkg/render
// [cache]: https://pkg.go.dev/github.com/matzehuels/versolve/pkg/cache
// [errors]: https://pkg.go.dev/github.com/matzehuels/versolve/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/versolve/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/versolve/pkg/buildinfo
package pkg
