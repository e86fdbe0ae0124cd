package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/matzehuels/versolve/pkg/errors"
	"github.com/matzehuels/versolve/pkg/graph"
	pkgio "github.com/matzehuels/versolve/pkg/io"
	"github.com/matzehuels/versolve/pkg/registry"
	"github.com/matzehuels/versolve/pkg/version"
)

// sourceOpts selects where a command reads its graph from: a registry
// directory plus optional project and manifest files, or a JSON document.
type sourceOpts struct {
	registry string // registry directory
	project  string // Project.toml with the requirements
	manifest string // Manifest.toml whose pinned entries are fixed
	graph    string // JSON graph document
}

func (o *sourceOpts) register(cmd *cobra.Command, withProject bool) {
	cmd.Flags().StringVar(&o.registry, "registry", os.Getenv("VERSOLVE_REGISTRY"), "registry directory containing Registry.toml")
	cmd.Flags().StringVar(&o.graph, "graph", "", "JSON graph document (instead of --registry)")
	if withProject {
		cmd.Flags().StringVar(&o.project, "project", "", "project file with the requirements (Project.toml)")
		cmd.Flags().StringVar(&o.manifest, "manifest", "", "manifest whose pinned packages stay fixed (Manifest.toml)")
	}
}

// load builds the graph and applies the project requirements and manifest
// pins.
func (o *sourceOpts) load(ctx context.Context, c *CLI) (*graph.Graph, error) {
	switch {
	case o.graph != "" && o.registry != "":
		return nil, errors.New(errors.ErrCodeInvalidInput, "--graph and --registry are mutually exclusive")
	case o.graph == "" && o.registry == "":
		return nil, errors.New(errors.ErrCodeInvalidInput, "one of --graph or --registry is required")
	case o.graph != "" && (o.project != "" || o.manifest != ""):
		return nil, errors.New(errors.ErrCodeInvalidInput, "--project and --manifest need --registry")
	}

	prog := newProgress(c.Logger)
	if o.graph != "" {
		g, err := pkgio.ImportJSON(o.graph)
		if err != nil {
			return nil, err
		}
		prog.done("Loaded graph", "packages", g.Len())
		return g, nil
	}

	reg, err := registry.Open(o.registry)
	if err != nil {
		return nil, err
	}
	g, err := reg.Graph(ctx, registry.LoadOptions{Logger: c.Logger})
	if err != nil {
		return nil, err
	}
	prog.done("Loaded registry", "name", reg.Name, "packages", g.Len())

	if o.project != "" {
		p, err := registry.ReadProject(o.project)
		if err != nil {
			return nil, err
		}
		if err := p.Require(g); err != nil {
			return nil, err
		}
		c.Logger.Debug("applied project", "name", p.Name, "deps", len(p.Deps))
	}
	if o.manifest != "" {
		m, err := registry.ReadManifest(o.manifest)
		if err != nil {
			return nil, err
		}
		if err := m.Pin(g); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// lookupNames maps package names to UUIDs. Names shared by several
// packages select all of them.
func lookupNames(g *graph.Graph, names []string) ([]uuid.UUID, error) {
	byName := make(map[string][]uuid.UUID)
	for _, id := range g.Packages() {
		byName[g.Name(id)] = append(byName[g.Name(id)], id)
	}
	var ids []uuid.UUID
	for _, name := range names {
		found, ok := byName[name]
		if !ok {
			return nil, errors.New(errors.ErrCodePackageNotFound, "package %q is not in the graph", name)
		}
		ids = append(ids, found...)
	}
	return ids, nil
}

// formatVersion renders v for tables.
func formatVersion(v version.Number) string {
	return fmt.Sprintf("v%s", v)
}
