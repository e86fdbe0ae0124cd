package registry

import (
	"fmt"
	"io"
	"path/filepath"
	"slices"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"github.com/matzehuels/versolve/pkg/errors"
	"github.com/matzehuels/versolve/pkg/graph"
	"github.com/matzehuels/versolve/pkg/version"
)

// ManifestFormat is the format version written by WriteManifest.
const ManifestFormat = "2.0"

// ManifestEntry is one installed package of a manifest.
type ManifestEntry struct {
	UUID     uuid.UUID      `toml:"uuid"`
	Version  version.Number `toml:"version"`
	Pinned   bool           `toml:"pinned,omitempty"`
	Deps     []string       `toml:"deps,omitempty"`
	WeakDeps []string       `toml:"weakdeps,omitempty"`
}

// Manifest is a parsed Manifest.toml.
type Manifest struct {
	Format string                     `toml:"manifest_format"`
	Deps   map[string][]ManifestEntry `toml:"deps"`
}

// ReadManifest parses the manifest file at path.
func ReadManifest(path string) (*Manifest, error) {
	if err := errors.ValidateManifestFilename(filepath.Base(path)); err != nil {
		return nil, err
	}
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "read %s", path)
	}
	if m.Format != ManifestFormat {
		return nil, errors.New(errors.ErrCodeInvalidManifest, "%s: unsupported manifest format %q", path, m.Format)
	}
	return &m, nil
}

// Pin fixes every pinned entry of the manifest in g.
func (m *Manifest) Pin(g *graph.Graph) error {
	for name, entries := range m.Deps {
		for _, e := range entries {
			if !e.Pinned {
				continue
			}
			if err := g.Fix(e.UUID, e.Version); err != nil {
				return fmt.Errorf("pin %s: %w", name, err)
			}
		}
	}
	return nil
}

// NewManifest records sol. Fixed packages of g are marked pinned.
func NewManifest(g *graph.Graph, sol map[uuid.UUID]version.Number) *Manifest {
	m := &Manifest{Format: ManifestFormat, Deps: make(map[string][]ManifestEntry)}
	ids := make([]uuid.UUID, 0, len(sol))
	for id := range sol {
		ids = append(ids, id)
	}
	g.SortIDs(ids)
	for _, id := range ids {
		v := sol[id]
		e := ManifestEntry{UUID: id, Version: v, Pinned: g.IsFixed(id)}
		for dep, edge := range g.Neighbors(id, v) {
			if _, installed := sol[dep]; !installed {
				continue
			}
			if edge.Weak {
				e.WeakDeps = append(e.WeakDeps, g.Name(dep))
			} else {
				e.Deps = append(e.Deps, g.Name(dep))
			}
		}
		slices.Sort(e.Deps)
		slices.Sort(e.WeakDeps)
		name := g.Name(id)
		m.Deps[name] = append(m.Deps[name], e)
	}
	return m
}

// WriteManifest writes the manifest of sol to w.
func WriteManifest(w io.Writer, g *graph.Graph, sol map[uuid.UUID]version.Number) error {
	if _, err := io.WriteString(w, "# This file is machine-generated - editing it directly is not advised\n\n"); err != nil {
		return err
	}
	return toml.NewEncoder(w).Encode(NewManifest(g, sol))
}
