// Package graph provides the dependency graph consumed by the resolver.
//
// A [Graph] is a set of flat tables keyed by package UUID. Nothing in the
// graph points at anything else: edges name their target by identifier and
// are looked up through accessor methods, so dependency cycles need no
// special handling.
//
// # Contents
//
//   - Packages: UUID, display name and the sorted set of known versions.
//   - Edges: for every (package, version) pair a map from dependency UUID to
//     an [Edge] holding the admissible [version.Spec] and a weak flag.
//   - Fixed packages: UUID to pinned version; the resolver never changes them.
//   - Requirements: UUID to the spec a top-level install must satisfy.
//
// Display names exist for messages only. Two unrelated packages may share a
// name; they are still distinct because their UUIDs differ.
//
// # Building a Graph
//
//	g := graph.New()
//	g.AddPackage(a, "A", v1, v2)
//	g.AddPackage(b, "B", v1)
//	g.AddEdge(a, v2, b, version.MustParse("^1"), false)
//	g.Require(a, version.Any())
//
// # Invariants
//
// The following hold after every mutation:
//
//   - A stored edge spec is never empty.
//   - Every version with edges is a known version of its package.
//   - The requirement of a fixed package is intersected with its pinned
//     version, whichever of Require and Fix ran first.
//
// # Weak Edges
//
// A weak edge constrains its target only when the target is installed. It
// never forces the target to be installed.
//
// # Simplification Hooks
//
// [Graph.Prune] and [Graph.Merge] are used by the simplifier to remove
// versions that cannot appear in any solution and to mark versions that are
// interchangeable with a representative. [Graph.Clone] gives callers an
// independent copy for parallel what-if work.
//
// A Graph is not safe for concurrent mutation.
package graph
