package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/versolve/pkg/errors"
	"github.com/matzehuels/versolve/pkg/graph"
	"github.com/matzehuels/versolve/pkg/version"
)

// Entry is one package listed in Registry.toml.
type Entry struct {
	Name string `toml:"name"`
	Path string `toml:"path"`
}

// Registry is an opened registry directory.
type Registry struct {
	Name     string
	dir      string
	packages map[uuid.UUID]Entry
}

type indexFile struct {
	Name     string           `toml:"name"`
	UUID     string           `toml:"uuid"`
	Packages map[string]Entry `toml:"packages"`
}

// Open reads the Registry.toml index in dir. Package files are read by
// [Registry.Graph].
func Open(dir string) (*Registry, error) {
	var idx indexFile
	path := filepath.Join(dir, "Registry.toml")
	if _, err := toml.DecodeFile(path, &idx); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidRegistry, err, "read %s", path)
	}
	r := &Registry{Name: idx.Name, dir: dir, packages: make(map[uuid.UUID]Entry, len(idx.Packages))}
	for key, e := range idx.Packages {
		id, err := uuid.Parse(key)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidRegistry, err, "package key %q", key)
		}
		if err := errors.ValidateRegistryName(e.Name); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidRegistry, err, "package %s", id)
		}
		if err := errors.ValidatePath(e.Path); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidRegistry, err, "package %s", e.Name)
		}
		r.packages[id] = e
	}
	return r, nil
}

// Len returns the number of listed packages.
func (r *Registry) Len() int { return len(r.packages) }

// Lookup finds a package by name.
func (r *Registry) Lookup(name string) (uuid.UUID, bool) {
	ids := make([]uuid.UUID, 0, 1)
	for id, e := range r.packages {
		if e.Name == name {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return uuid.Nil, false
	}
	slices.SortFunc(ids, cmpUUID)
	return ids[0], true
}

// LoadOptions configures [Registry.Graph].
type LoadOptions struct {
	// Workers limits how many packages are read in parallel. Zero uses
	// GOMAXPROCS.
	Workers int
	Logger  *log.Logger
}

// Graph reads every package of the registry into a new graph.
func (r *Registry) Graph(ctx context.Context, opts LoadOptions) (*graph.Graph, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	ids := make([]uuid.UUID, 0, len(r.packages))
	for id := range r.packages {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, cmpUUID)

	loaded := make([]*packageData, len(ids))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, id := range ids {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := r.loadPackage(id)
			if err != nil {
				return err
			}
			loaded[i] = p
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	g := graph.New()
	for i, id := range ids {
		if err := g.AddPackage(id, r.packages[id].Name, loaded[i].versions...); err != nil {
			return nil, err
		}
	}
	edges := 0
	for i, id := range ids {
		for _, e := range loaded[i].edges {
			if err := g.AddEdge(id, e.version, e.dep, e.spec, e.weak); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidRegistry, err, "package %s", r.packages[id].Name)
			}
			edges++
		}
	}
	if opts.Logger != nil {
		opts.Logger.Debug("loaded registry", "name", r.Name, "packages", len(ids), "edges", edges)
	}
	return g, nil
}

type packageData struct {
	versions []version.Number
	edges    []edgeData
}

type edgeData struct {
	version version.Number
	dep     uuid.UUID
	spec    version.Spec
	weak    bool
}

type versionInfo struct {
	Yanked bool `toml:"yanked"`
}

func (r *Registry) loadPackage(id uuid.UUID) (*packageData, error) {
	e := r.packages[id]
	dir := filepath.Join(r.dir, filepath.FromSlash(e.Path))
	fail := func(err error, file string) error {
		return errors.Wrap(errors.ErrCodeInvalidRegistry, err, "%s: %s", e.Name, file)
	}

	var meta struct {
		Name string `toml:"name"`
		UUID string `toml:"uuid"`
	}
	if _, err := toml.DecodeFile(filepath.Join(dir, "Package.toml"), &meta); err != nil && !os.IsNotExist(err) {
		return nil, fail(err, "Package.toml")
	}
	if meta.UUID != "" && meta.UUID != id.String() {
		return nil, fail(fmt.Errorf("uuid %s does not match the index entry %s", meta.UUID, id), "Package.toml")
	}

	var versions map[string]versionInfo
	if _, err := toml.DecodeFile(filepath.Join(dir, "Versions.toml"), &versions); err != nil {
		return nil, fail(err, "Versions.toml")
	}
	p := &packageData{}
	for text, info := range versions {
		v, err := version.ParseNumber(text)
		if err != nil {
			return nil, fail(err, "Versions.toml")
		}
		if !info.Yanked {
			p.versions = append(p.versions, v)
		}
	}
	version.Sort(p.versions)

	for _, weak := range []bool{false, true} {
		depsFile, compatFile := "Deps.toml", "Compat.toml"
		if weak {
			depsFile, compatFile = "WeakDeps.toml", "WeakCompat.toml"
		}
		deps, err := readRanged[string](filepath.Join(dir, depsFile))
		if err != nil {
			return nil, fail(err, depsFile)
		}
		compat, err := readRanged[any](filepath.Join(dir, compatFile))
		if err != nil {
			return nil, fail(err, compatFile)
		}
		for _, v := range p.versions {
			for name, target := range matching(deps, v) {
				dep, err := uuid.Parse(target)
				if err != nil {
					return nil, fail(fmt.Errorf("dependency %s: %w", name, err), depsFile)
				}
				spec := version.Any()
				for _, sec := range compat {
					val, ok := sec.entries[name]
					if !ok || !sec.rng.Contains(v) {
						continue
					}
					s, err := compatSpec(val)
					if err != nil {
						return nil, fail(fmt.Errorf("compat %s: %w", name, err), compatFile)
					}
					spec = spec.Intersect(s)
				}
				if spec.IsEmpty() {
					return nil, fail(fmt.Errorf("compat %s for %s is empty", name, v), compatFile)
				}
				p.edges = append(p.edges, edgeData{version: v, dep: dep, spec: spec, weak: weak})
			}
		}
	}
	return p, nil
}

// ranged is one table of a Deps or Compat file.
type ranged[T any] struct {
	rng     version.Range
	entries map[string]T
}

// readRanged reads a file of range-keyed tables. A missing file is empty.
func readRanged[T any](path string) ([]ranged[T], error) {
	var raw map[string]map[string]T
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]ranged[T], 0, len(raw))
	for _, k := range keys {
		rng, err := version.ParseRange(k)
		if err != nil {
			return nil, err
		}
		out = append(out, ranged[T]{rng: rng, entries: raw[k]})
	}
	return out, nil
}

// matching merges the entries of all sections whose range contains v.
func matching(secs []ranged[string], v version.Number) map[string]string {
	out := make(map[string]string)
	for _, s := range secs {
		if s.rng.Contains(v) {
			for name, target := range s.entries {
				out[name] = target
			}
		}
	}
	return out
}

// compatSpec parses a compat value: a range string or a list of them.
func compatSpec(val any) (version.Spec, error) {
	var texts []string
	switch x := val.(type) {
	case string:
		texts = []string{x}
	case []any:
		for _, item := range x {
			s, ok := item.(string)
			if !ok {
				return version.Spec{}, fmt.Errorf("unexpected %T in compat list", item)
			}
			texts = append(texts, s)
		}
	default:
		return version.Spec{}, fmt.Errorf("unexpected compat value %T", val)
	}
	ranges := make([]version.Range, 0, len(texts))
	for _, t := range texts {
		r, err := version.ParseRange(t)
		if err != nil {
			return version.Spec{}, err
		}
		ranges = append(ranges, r)
	}
	return version.Union(ranges...), nil
}

func cmpUUID(a, b uuid.UUID) int {
	return slices.Compare(a[:], b[:])
}
