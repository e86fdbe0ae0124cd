// Package resolve picks package versions from a [graph.Graph].
//
// Three entry points share one internal model, in which every package in
// scope is a variable whose states are its versions plus "not installed":
//
//   - [Simplify] prunes versions that cannot appear in any solution and
//     merges versions that behave identically, editing the graph in place.
//   - [SanityCheck] lists versions that can never be installed, regardless
//     of what is required.
//   - [Resolve] computes the preferred solution or explains the conflict
//     with a [*ResolverError].
//
// # Search
//
// Constraints are pairwise: a version's edge to a dependency admits the
// dependency's versions matching the edge spec, plus "not installed" when
// the edge is weak. Arc consistency runs after every search decision.
//
// The exact strategy branches on packages in priority order (breadth first
// from the requirements) and tries the most preferred state first, so the
// first solution is the optimum. The hybrid strategy first finds a solution
// guided by max-sum message passing, then uses it as a bound for the exact
// search. Both return the same assignment.
//
// # Logging
//
// Pass a [log.Logger] in the options. At debug level every decision is
// logged with a marker: ✓ for a selection, ✗ for a conflict and ← for an
// excluded state.
package resolve
