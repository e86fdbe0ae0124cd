package graph

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/matzehuels/versolve/pkg/version"
)

var (
	// ErrNilID is returned when a package or dependency UUID is the nil UUID.
	ErrNilID = errors.New("package ID must not be nil")

	// ErrUnknownPackage is returned when an operation names a package that
	// was never added with [Graph.AddPackage].
	ErrUnknownPackage = errors.New("unknown package")

	// ErrUnknownVersion is returned by [Graph.AddEdge] when the origin
	// version is not a known version of its package.
	ErrUnknownVersion = errors.New("unknown version")

	// ErrEmptySpec is returned by [Graph.AddEdge] for a spec that admits no
	// version. Such an edge would make its origin version uninstallable and
	// must be modelled by leaving the version out instead.
	ErrEmptySpec = errors.New("edge spec admits no version")

	// ErrSelfDependency is returned by [Graph.AddEdge] for an edge from a
	// package to itself.
	ErrSelfDependency = errors.New("package cannot depend on itself")
)

// Edge constrains a dependency of one package version.
type Edge struct {
	Spec version.Spec // admissible versions of the dependency
	Weak bool         // applies only if the dependency is installed anyway
}

// Graph is the dependency graph of one resolution attempt.
// The zero value is not usable; create graphs with [New].
type Graph struct {
	names      map[uuid.UUID]string
	versions   map[uuid.UUID][]version.Number
	edges      map[uuid.UUID]map[version.Number]map[uuid.UUID]Edge
	dependents map[uuid.UUID]map[uuid.UUID]int // dep -> package -> number of versions with an edge
	fixed      map[uuid.UUID]version.Number
	reqs       map[uuid.UUID]version.Spec
	merged     map[uuid.UUID]map[version.Number]version.Number
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		names:      make(map[uuid.UUID]string),
		versions:   make(map[uuid.UUID][]version.Number),
		edges:      make(map[uuid.UUID]map[version.Number]map[uuid.UUID]Edge),
		dependents: make(map[uuid.UUID]map[uuid.UUID]int),
		fixed:      make(map[uuid.UUID]version.Number),
		reqs:       make(map[uuid.UUID]version.Spec),
		merged:     make(map[uuid.UUID]map[version.Number]version.Number),
	}
}

// =============================================================================
// Mutation
// =============================================================================

// AddPackage adds a package or merges more versions into an existing one.
// An empty name keeps the previously recorded name.
//
// Returns ErrNilID if id is the nil UUID.
func (g *Graph) AddPackage(id uuid.UUID, name string, versions ...version.Number) error {
	if id == uuid.Nil {
		return ErrNilID
	}
	if name != "" || !g.Has(id) {
		g.names[id] = name
	}
	vs := g.versions[id]
	for _, v := range versions {
		if i, found := slices.BinarySearchFunc(vs, v, version.Number.Compare); !found {
			vs = slices.Insert(vs, i, v)
		}
	}
	if vs == nil {
		vs = []version.Number{}
	}
	g.versions[id] = vs
	return nil
}

// AddEdge records that version v of package id depends on dep, constrained
// to spec. A second edge between the same pair replaces the first. The
// dependency does not need to be known yet.
//
// Returns ErrNilID, ErrUnknownPackage, ErrUnknownVersion, ErrEmptySpec or
// ErrSelfDependency when the edge would break an invariant.
func (g *Graph) AddEdge(id uuid.UUID, v version.Number, dep uuid.UUID, spec version.Spec, weak bool) error {
	if id == uuid.Nil || dep == uuid.Nil {
		return ErrNilID
	}
	if !g.Has(id) {
		return fmt.Errorf("%w: %s", ErrUnknownPackage, id)
	}
	if !g.HasVersion(id, v) {
		return fmt.Errorf("%w: %s@%s", ErrUnknownVersion, g.Label(id), v)
	}
	if id == dep {
		return fmt.Errorf("%w: %s@%s", ErrSelfDependency, g.Label(id), v)
	}
	if spec.IsEmpty() {
		return fmt.Errorf("%w: %s@%s -> %s", ErrEmptySpec, g.Label(id), v, dep)
	}

	byVersion := g.edges[id]
	if byVersion == nil {
		byVersion = make(map[version.Number]map[uuid.UUID]Edge)
		g.edges[id] = byVersion
	}
	out := byVersion[v]
	if out == nil {
		out = make(map[uuid.UUID]Edge)
		byVersion[v] = out
	}
	if _, exists := out[dep]; !exists {
		if g.dependents[dep] == nil {
			g.dependents[dep] = make(map[uuid.UUID]int)
		}
		g.dependents[dep][id]++
	}
	out[dep] = Edge{Spec: spec, Weak: weak}
	return nil
}

// Fix pins package id at version v. The version is added to the package if
// it is not yet known, and an existing requirement is narrowed to v.
//
// Returns ErrNilID or ErrUnknownPackage.
func (g *Graph) Fix(id uuid.UUID, v version.Number) error {
	if id == uuid.Nil {
		return ErrNilID
	}
	if !g.Has(id) {
		return fmt.Errorf("%w: %s", ErrUnknownPackage, id)
	}
	if err := g.AddPackage(id, "", v); err != nil {
		return err
	}
	g.fixed[id] = v
	if req, ok := g.reqs[id]; ok {
		g.reqs[id] = req.Intersect(version.Exact(v))
	}
	return nil
}

// Require demands that package id be installed at a version admitted by
// spec. Repeated requirements intersect. For a fixed package the
// requirement is narrowed to the pinned version. The stored requirement may
// end up empty; the resolver reports that as a conflict.
//
// Returns ErrNilID or ErrUnknownPackage.
func (g *Graph) Require(id uuid.UUID, spec version.Spec) error {
	if id == uuid.Nil {
		return ErrNilID
	}
	if !g.Has(id) {
		return fmt.Errorf("%w: %s", ErrUnknownPackage, id)
	}
	if prev, ok := g.reqs[id]; ok {
		spec = prev.Intersect(spec)
	}
	if v, ok := g.fixed[id]; ok {
		spec = spec.Intersect(version.Exact(v))
	}
	g.reqs[id] = spec
	return nil
}

// Prune removes version v of package id together with its edges. Fixed
// versions are never removed. Reports whether a version was removed.
func (g *Graph) Prune(id uuid.UUID, v version.Number) bool {
	if fv, ok := g.fixed[id]; ok && fv == v {
		return false
	}
	vs := g.versions[id]
	i, found := slices.BinarySearchFunc(vs, v, version.Number.Compare)
	if !found {
		return false
	}
	g.versions[id] = slices.Delete(vs, i, i+1)

	for dep := range g.edges[id][v] {
		if n := g.dependents[dep][id] - 1; n > 0 {
			g.dependents[dep][id] = n
		} else {
			delete(g.dependents[dep], id)
		}
	}
	delete(g.edges[id], v)
	for k, r := range g.merged[id] {
		if k == v || r == v {
			delete(g.merged[id], k)
		}
	}
	return true
}

// Merge records that version v of package id is interchangeable with the
// representative version into: both have the same constraints towards every
// other package and are admitted by the same specs. The resolver only
// considers representatives.
//
// Returns ErrUnknownPackage or ErrUnknownVersion.
func (g *Graph) Merge(id uuid.UUID, v, into version.Number) error {
	if !g.Has(id) {
		return fmt.Errorf("%w: %s", ErrUnknownPackage, id)
	}
	for _, x := range []version.Number{v, into} {
		if !g.HasVersion(id, x) {
			return fmt.Errorf("%w: %s@%s", ErrUnknownVersion, g.Label(id), x)
		}
	}
	rep := g.Representative(id, into)
	if rep == v {
		return nil
	}
	if g.merged[id] == nil {
		g.merged[id] = make(map[version.Number]version.Number)
	}
	g.merged[id][v] = rep
	return nil
}

// Clone returns a deep copy of g.
func (g *Graph) Clone() *Graph {
	c := New()
	maps.Copy(c.names, g.names)
	maps.Copy(c.fixed, g.fixed)
	maps.Copy(c.reqs, g.reqs)
	for id, vs := range g.versions {
		c.versions[id] = slices.Clone(vs)
	}
	for id, byVersion := range g.edges {
		cb := make(map[version.Number]map[uuid.UUID]Edge, len(byVersion))
		for v, out := range byVersion {
			cb[v] = maps.Clone(out)
		}
		c.edges[id] = cb
	}
	for dep, m := range g.dependents {
		c.dependents[dep] = maps.Clone(m)
	}
	for id, m := range g.merged {
		c.merged[id] = maps.Clone(m)
	}
	return c
}

// =============================================================================
// Queries
// =============================================================================

// Has reports whether package id is known.
func (g *Graph) Has(id uuid.UUID) bool {
	_, ok := g.versions[id]
	return ok
}

// HasVersion reports whether v is a known version of package id.
func (g *Graph) HasVersion(id uuid.UUID, v version.Number) bool {
	_, found := slices.BinarySearchFunc(g.versions[id], v, version.Number.Compare)
	return found
}

// Len returns the number of known packages.
func (g *Graph) Len() int { return len(g.versions) }

// Name returns the display name of package id.
func (g *Graph) Name(id uuid.UUID) string { return g.names[id] }

// Label returns a human-readable identification of package id for
// messages: the name followed by a short UUID prefix, or the full UUID when
// the name is unknown.
func (g *Graph) Label(id uuid.UUID) string {
	name := g.names[id]
	if name == "" {
		return id.String()
	}
	return fmt.Sprintf("%s [%s]", name, id.String()[:8])
}

// Packages returns all known package UUIDs ordered by name, then UUID.
func (g *Graph) Packages() []uuid.UUID {
	ids := slices.Collect(maps.Keys(g.versions))
	g.SortIDs(ids)
	return ids
}

// SortIDs orders ids by display name, then UUID.
func (g *Graph) SortIDs(ids []uuid.UUID) {
	slices.SortFunc(ids, func(a, b uuid.UUID) int {
		if c := cmp.Compare(g.names[a], g.names[b]); c != 0 {
			return c
		}
		return cmp.Compare(a.String(), b.String())
	})
}

// Versions returns the known versions of package id in ascending order.
func (g *Graph) Versions(id uuid.UUID) []version.Number {
	return slices.Clone(g.versions[id])
}

// Neighbors returns the dependency edges of version v of package id.
// The returned map is owned by the graph and must not be modified.
func (g *Graph) Neighbors(id uuid.UUID, v version.Number) map[uuid.UUID]Edge {
	return g.edges[id][v]
}

// Dependents returns the packages with at least one version depending on
// id, ordered by name, then UUID.
func (g *Graph) Dependents(id uuid.UUID) []uuid.UUID {
	ids := slices.Collect(maps.Keys(g.dependents[id]))
	g.SortIDs(ids)
	return ids
}

// FixedVersion returns the pinned version of package id.
func (g *Graph) FixedVersion(id uuid.UUID) (version.Number, bool) {
	v, ok := g.fixed[id]
	return v, ok
}

// IsFixed reports whether package id is pinned.
func (g *Graph) IsFixed(id uuid.UUID) bool {
	_, ok := g.fixed[id]
	return ok
}

// Fixed returns a copy of the pinned versions.
func (g *Graph) Fixed() map[uuid.UUID]version.Number {
	return maps.Clone(g.fixed)
}

// Requirement returns the requirement on package id.
func (g *Graph) Requirement(id uuid.UUID) (version.Spec, bool) {
	s, ok := g.reqs[id]
	return s, ok
}

// IsRequired reports whether package id has a requirement.
func (g *Graph) IsRequired(id uuid.UUID) bool {
	_, ok := g.reqs[id]
	return ok
}

// Requirements returns a copy of the active requirements.
func (g *Graph) Requirements() map[uuid.UUID]version.Spec {
	return maps.Clone(g.reqs)
}

// Representative returns the version that stands in for v of package id
// after [Graph.Merge], or v itself.
func (g *Graph) Representative(id uuid.UUID, v version.Number) version.Number {
	for {
		r, ok := g.merged[id][v]
		if !ok {
			return v
		}
		v = r
	}
}

// IsRepresentative reports whether v of package id stands for itself.
func (g *Graph) IsRepresentative(id uuid.UUID, v version.Number) bool {
	_, merged := g.merged[id][v]
	return !merged
}
