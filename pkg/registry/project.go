package registry

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"github.com/matzehuels/versolve/pkg/errors"
	"github.com/matzehuels/versolve/pkg/graph"
	"github.com/matzehuels/versolve/pkg/version"
)

// Project is a parsed Project.toml.
type Project struct {
	Name   string
	Deps   map[string]uuid.UUID
	Compat map[string]version.Spec
}

type projectFile struct {
	Name   string            `toml:"name"`
	Deps   map[string]string `toml:"deps"`
	Compat map[string]string `toml:"compat"`
}

// ReadProject parses the project file at path.
func ReadProject(path string) (*Project, error) {
	if err := errors.ValidateManifestFilename(filepath.Base(path)); err != nil {
		return nil, err
	}
	var f projectFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "read %s", path)
	}
	p := &Project{Name: f.Name, Deps: make(map[string]uuid.UUID), Compat: make(map[string]version.Spec)}
	for name, text := range f.Deps {
		if err := errors.ValidateRegistryName(name); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "%s", path)
		}
		id, err := uuid.Parse(text)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "%s: dependency %s", path, name)
		}
		p.Deps[name] = id
	}
	for name, text := range f.Compat {
		spec, err := version.Parse(text)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "%s: compat %s", path, name)
		}
		p.Compat[name] = spec
	}
	return p, nil
}

// Require adds a requirement to g for every dependency of the project,
// narrowed by its compat entry. Compat entries for names that are not
// dependencies, such as "julia", are ignored.
func (p *Project) Require(g *graph.Graph) error {
	names := make([]string, 0, len(p.Deps))
	for name := range p.Deps {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		id := p.Deps[name]
		if !g.Has(id) {
			return errors.New(errors.ErrCodePackageNotFound, "dependency %s (%s) is not in the registry", name, id)
		}
		spec, ok := p.Compat[name]
		if !ok {
			spec = version.Any()
		}
		if err := g.Require(id, spec); err != nil {
			return fmt.Errorf("require %s: %w", name, err)
		}
	}
	return nil
}
