package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/versolve/pkg/errors"
	pkgio "github.com/matzehuels/versolve/pkg/io"
	"github.com/matzehuels/versolve/pkg/registry"
)

const (
	exampleUUID = "7876af07-990d-54b4-ab0e-23690620f79a"
	jsonUUID    = "682c06a0-de6a-54ab-a142-c8b1cf79cde6"
	brokenUUID  = "3c0b7d1e-5a43-4c3f-9d55-6f0b0c7a1e2d"
	ghostUUID   = "d2b0a3f4-9e1c-4b7a-8f6d-1a2b3c4d5e6f"
)

// runCLI executes the root command with args and returns its output.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, logs bytes.Buffer
	c := New(&logs, LogInfo)
	c.Out = &out
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&logs)
	err := c.Execute(context.Background(), root)
	return out.String(), err
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// writeRegistry creates a registry where Example 1.1.0 needs JSON 0.21,
// Example 1.0.0 needs JSON 0.20 and Broken 1.0.0 needs a package missing
// from the registry. It returns the registry directory and a project
// requiring Example.
func writeRegistry(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"Registry.toml": `name = "Test"
[packages]
` + exampleUUID + ` = { name = "Example", path = "E/Example" }
` + jsonUUID + ` = { name = "JSON", path = "J/JSON" }
` + brokenUUID + ` = { name = "Broken", path = "B/Broken" }
`,
		"E/Example/Versions.toml": "[\"1.0.0\"]\n[\"1.1.0\"]\n",
		"E/Example/Deps.toml":     "[\"1\"]\nJSON = \"" + jsonUUID + "\"\n",
		"E/Example/Compat.toml":   "[\"1.0\"]\nJSON = \"0.20\"\n[\"1.1-1\"]\nJSON = \"0.21\"\n",
		"J/JSON/Versions.toml":    "[\"0.20.0\"]\n[\"0.21.0\"]\n",
		"B/Broken/Versions.toml":  "[\"1.0.0\"]\n",
		"B/Broken/Deps.toml":      "[\"1\"]\nGhost = \"" + ghostUUID + "\"\n",
		"project/Project.toml":    "name = \"App\"\n[deps]\nExample = \"" + exampleUUID + "\"\n[compat]\nExample = \"1\"\n",
	})
	return dir, filepath.Join(dir, "project", "Project.toml")
}

func isolateCache(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
}

var rowRe = func(name, version string) *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(name) + `\s+` + regexp.QuoteMeta(version))
}

func TestResolveTable(t *testing.T) {
	isolateCache(t)
	reg, project := writeRegistry(t)

	for _, status := range []string{"fresh", "cached"} {
		out, err := runCLI(t, "resolve", "--registry", reg, "--project", project)
		require.NoError(t, err)
		assert.Regexp(t, rowRe("Example", "v1.1.0"), out)
		assert.Regexp(t, rowRe("JSON", "v0.21.0"), out)
		assert.NotContains(t, out, "Broken")
		assert.Contains(t, out, status)
	}
}

func TestResolveOutputs(t *testing.T) {
	isolateCache(t)
	reg, project := writeRegistry(t)
	dir := t.TempDir()

	manifest := filepath.Join(dir, "Manifest.toml")
	_, err := runCLI(t, "resolve", "--registry", reg, "--project", project, "--no-cache", "-o", manifest)
	require.NoError(t, err)
	m, err := registry.ReadManifest(manifest)
	require.NoError(t, err)
	require.Len(t, m.Deps["Example"], 1)
	assert.Equal(t, "1.1.0", m.Deps["Example"][0].Version.String())
	assert.Equal(t, []string{"JSON"}, m.Deps["Example"][0].Deps)

	result := filepath.Join(dir, "result.json")
	_, err = runCLI(t, "resolve", "--registry", reg, "--project", project, "--strategy", "backtrack", "-o", result)
	require.NoError(t, err)
	f, err := os.Open(result)
	require.NoError(t, err)
	defer f.Close()
	res, err := pkgio.ReadResult(f)
	require.NoError(t, err)
	require.Len(t, res.Packages, 2)
	assert.Equal(t, "Example", res.Packages[0].Name)

	_, err = runCLI(t, "resolve", "--registry", reg, "--project", project, "-o", filepath.Join(dir, "out.yaml"))
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestResolveGraphDocument(t *testing.T) {
	isolateCache(t)
	reg, project := writeRegistry(t)
	r, err := registry.Open(reg)
	require.NoError(t, err)
	g, err := r.Graph(context.Background(), registry.LoadOptions{})
	require.NoError(t, err)
	p, err := registry.ReadProject(project)
	require.NoError(t, err)
	require.NoError(t, p.Require(g))

	doc := filepath.Join(t.TempDir(), "graph.json")
	require.NoError(t, pkgio.ExportJSON(g, doc))

	out, err := runCLI(t, "resolve", "--graph", doc)
	require.NoError(t, err)
	assert.Regexp(t, rowRe("Example", "v1.1.0"), out)
}

func TestResolveConflict(t *testing.T) {
	isolateCache(t)
	reg, project := writeRegistry(t)
	writeFiles(t, filepath.Dir(project), map[string]string{
		"Project.toml": "[deps]\nExample = \"" + exampleUUID + "\"\n[compat]\nExample = \"1.1\"\n",
		"Manifest.toml": `manifest_format = "2.0"
[[deps.JSON]]
uuid = "` + jsonUUID + `"
version = "0.20.0"
pinned = true
`,
	})

	_, err := runCLI(t, "resolve", "--registry", reg, "--project", project,
		"--manifest", filepath.Join(filepath.Dir(project), "Manifest.toml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeUnsatisfiable))
	assert.Contains(t, err.Error(), "JSON")
}

func TestResolveFlagErrors(t *testing.T) {
	isolateCache(t)
	reg, project := writeRegistry(t)
	tests := []struct {
		name string
		args []string
	}{
		{"no source", []string{"resolve"}},
		{"both sources", []string{"resolve", "--registry", reg, "--graph", "g.json"}},
		{"project without registry", []string{"resolve", "--graph", "g.json", "--project", project}},
		{"bad strategy", []string{"resolve", "--registry", reg, "--strategy", "greedy"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, tt.args...)
			assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput), "%v", err)
		})
	}
}

func TestSanityCommand(t *testing.T) {
	isolateCache(t)
	reg, _ := writeRegistry(t)

	out, err := runCLI(t, "sanity", "--registry", reg, "--deep")
	require.NoError(t, err)
	assert.Contains(t, out, "1 uninstallable version(s)")
	assert.Regexp(t, rowRe("Broken", "v1.0.0"), out)

	out, err = runCLI(t, "sanity", "--registry", reg, "Example", "JSON")
	require.NoError(t, err)
	assert.Contains(t, out, "No uninstallable versions")

	_, err = runCLI(t, "sanity", "--registry", reg, "Missing")
	assert.True(t, errors.Is(err, errors.ErrCodePackageNotFound))
}

func TestGraphCommand(t *testing.T) {
	isolateCache(t)
	reg, project := writeRegistry(t)

	out, err := runCLI(t, "graph", "--registry", reg, "--project", project, "--detailed")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "digraph G {"))
	assert.Contains(t, out, `"Example\nv1.1.0\n`+exampleUUID+`"`)
	assert.Contains(t, out, `"`+exampleUUID+`" -> "`+jsonUUID+`"`)

	_, err = runCLI(t, "graph", "--registry", reg, "--project", project, "-o", "graph.png")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestGraphOutputFormat(t *testing.T) {
	tests := []struct {
		format, output, want string
		wantErr              bool
	}{
		{"", "", formatDOT, false},
		{"", "deps.gv", formatDOT, false},
		{"", "deps.svg", formatSVG, false},
		{"dot", "deps.svg", formatDOT, false},
		{"", "deps.pdf", "", true},
	}
	for _, tt := range tests {
		o := graphOpts{format: tt.format}
		o.resolve.output = tt.output
		got, err := o.outputFormat()
		if tt.wantErr {
			assert.Error(t, err, "%+v", tt)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%+v", tt)
	}
}

func TestMetricsFile(t *testing.T) {
	isolateCache(t)
	reg, project := writeRegistry(t)
	path := filepath.Join(t.TempDir(), "versolve.prom")

	_, err := runCLI(t, "--metrics-file", path, "resolve", "--registry", reg, "--project", project)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `versolve_resolve_total{outcome="ok",strategy="hybrid"} 1`)
	assert.Contains(t, string(data), `versolve_cache_lookups_total{key_type="resolve",result="miss"} 1`)
}

func TestCompletion(t *testing.T) {
	out, err := runCLI(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "bash completion")

	_, err = runCLI(t, "completion", "tcsh")
	assert.Error(t, err)
}

func TestExampleRegistry(t *testing.T) {
	isolateCache(t)
	reg := filepath.Join("..", "..", "examples", "registry")
	project := filepath.Join("..", "..", "examples", "project", "Project.toml")

	out, err := runCLI(t, "resolve", "--registry", reg, "--project", project, "--no-cache")
	require.NoError(t, err)
	assert.Regexp(t, rowRe("HTTP", "v1.10.0"), out)
	assert.Regexp(t, rowRe("JSONParser", "v0.21.4"), out)
	assert.Regexp(t, rowRe("Logging", "v0.3.0"), out)
	assert.NotContains(t, out, "Aeson")
}
