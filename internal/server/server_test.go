package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/versolve/internal/metrics"
	"github.com/matzehuels/versolve/pkg/cache"
	"github.com/matzehuels/versolve/pkg/errors"
	"github.com/matzehuels/versolve/pkg/graph"
	"github.com/matzehuels/versolve/pkg/io"
	"github.com/matzehuels/versolve/pkg/resolve"
	"github.com/matzehuels/versolve/pkg/version"
)

var (
	idA = uuid.NewSHA1(uuid.NameSpaceOID, []byte("A"))
	idB = uuid.NewSHA1(uuid.NameSpaceOID, []byte("B"))
	idC = uuid.NewSHA1(uuid.NameSpaceOID, []byte("C"))
)

func v(s string) version.Number { return version.MustParseNumber(s) }

// sampleGraph: A 1.0.0 needs B ^1, A 2.0.0 needs the unknown C.
func sampleGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	require.NoError(t, g.AddPackage(idA, "A", v("1.0.0"), v("2.0.0")))
	require.NoError(t, g.AddPackage(idB, "B", v("1.0.0"), v("1.1.0"), v("2.0.0")))
	require.NoError(t, g.AddEdge(idA, v("1.0.0"), idB, version.MustParse("1"), false))
	require.NoError(t, g.AddEdge(idA, v("2.0.0"), idC, version.Any(), false))
	require.NoError(t, g.Require(idA, version.Any()))
	return g
}

func body(t *testing.T, g *graph.Graph) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, io.WriteJSON(g, &buf))
	return &buf
}

func newTestServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = log.New(&bytes.Buffer{})
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.NewRegistry()
	}
	srv := httptest.NewServer(New(cfg))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url string, b *bytes.Buffer) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", b)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, Config{})
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestResolve(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	srv := newTestServer(t, Config{Cache: fc})

	for _, wantCache := range []string{"miss", "hit"} {
		resp := post(t, srv.URL+"/v1/resolve", body(t, sampleGraph(t)))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, wantCache, resp.Header.Get("X-Cache"))

		res, err := io.ReadResult(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, map[uuid.UUID]version.Number{idA: v("1.0.0"), idB: v("1.1.0")}, res.Map())
	}
}

func TestResolveStrategies(t *testing.T) {
	srv := newTestServer(t, Config{})
	for _, s := range resolve.Strategies {
		resp := post(t, srv.URL+"/v1/resolve?strategy="+string(s), body(t, sampleGraph(t)))
		assert.Equal(t, http.StatusOK, resp.StatusCode, s)
	}
}

func TestResolveErrors(t *testing.T) {
	conflict := sampleGraph(t)
	require.NoError(t, conflict.Fix(idB, v("2.0.0")))

	tests := []struct {
		name     string
		query    string
		body     string
		status   int
		code     errors.Code
		conflict bool
	}{
		{name: "bad json", body: "{", status: http.StatusBadRequest, code: errors.ErrCodeInvalidInput},
		{name: "unknown field", body: `{"nodes": []}`, status: http.StatusBadRequest, code: errors.ErrCodeInvalidInput},
		{name: "bad strategy", query: "?strategy=greedy", body: "{}", status: http.StatusBadRequest, code: errors.ErrCodeInvalidInput},
		{name: "bad flag", query: "?validate=maybe", body: "{}", status: http.StatusBadRequest, code: errors.ErrCodeInvalidInput},
		{name: "unsatisfiable", body: body(t, conflict).String(), status: http.StatusUnprocessableEntity, code: errors.ErrCodeUnsatisfiable, conflict: true},
		{name: "invalid graph", query: "?validate=true", body: body(t, sampleGraph(t)).String(), status: http.StatusUnprocessableEntity, code: errors.ErrCodeGraphValidation, conflict: true},
	}
	srv := newTestServer(t, Config{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, srv.URL+"/v1/resolve"+tt.query, bytes.NewBufferString(tt.body))
			assert.Equal(t, tt.status, resp.StatusCode)
			var e struct {
				Code     errors.Code     `json:"code"`
				Error    string          `json:"error"`
				Conflict json.RawMessage `json:"conflict"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
			assert.Equal(t, tt.code, e.Code)
			assert.NotEmpty(t, e.Error)
			assert.Equal(t, tt.conflict, len(e.Conflict) > 0)
		})
	}
}

func TestSanity(t *testing.T) {
	srv := newTestServer(t, Config{})
	resp := post(t, srv.URL+"/v1/sanity?deep=true", body(t, sampleGraph(t)))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Findings []resolve.Finding `json:"findings"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Findings, 1)
	assert.Equal(t, idA, out.Findings[0].Package)
	assert.Equal(t, v("2.0.0"), out.Findings[0].Version)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	srv := newTestServer(t, Config{
		Gatherer:      reg,
		HTTPHooks:     metrics.NewHTTPHooks(reg),
		ResolverHooks: metrics.NewResolverHooks(reg),
	})
	post(t, srv.URL+"/v1/resolve", body(t, sampleGraph(t)))

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `versolve_http_requests_total{code="200",method="POST",route="/v1/resolve"} 1`)
	assert.Contains(t, buf.String(), `versolve_resolve_total{outcome="ok",strategy="hybrid"} 1`)
}
