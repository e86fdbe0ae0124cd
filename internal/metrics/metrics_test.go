package metrics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/versolve/pkg/errors"
	"github.com/matzehuels/versolve/pkg/observability"
)

var (
	_ observability.ResolverHooks = (*ResolverHooks)(nil)
	_ observability.CacheHooks    = (*CacheHooks)(nil)
	_ observability.HTTPHooks     = (*HTTPHooks)(nil)
)

func TestResolverHooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := NewResolverHooks(reg)
	ctx := context.Background()

	h.OnResolveStart(ctx, "hybrid", 3)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.inflight))
	h.OnResolveComplete(ctx, "hybrid", 3, 12, time.Millisecond, nil)
	h.OnResolveStart(ctx, "hybrid", 3)
	h.OnResolveComplete(ctx, "hybrid", 0, 4, time.Millisecond, errors.New(errors.ErrCodeUnsatisfiable, "no"))
	assert.Equal(t, 0.0, testutil.ToFloat64(h.inflight))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.resolves.WithLabelValues("hybrid", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.resolves.WithLabelValues("hybrid", "unsatisfiable")))

	h.OnSimplify(ctx, observability.SimplifyStats{Packages: 2, Pruned: 3, Merged: 1}, time.Millisecond, nil)
	h.OnSimplify(ctx, observability.SimplifyStats{Conflict: true}, time.Millisecond, nil)
	assert.Equal(t, 3.0, testutil.ToFloat64(h.simplifyVersions.WithLabelValues("pruned")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.simplifyVersions.WithLabelValues("merged")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.conflicts))

	h.OnSanityComplete(ctx, 10, 2, time.Millisecond)
	assert.Equal(t, 2.0, testutil.ToFloat64(h.findings))

	n, err := testutil.GatherAndCount(reg, "versolve_resolve_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{errors.New(errors.ErrCodeUnsatisfiable, "x"), "unsatisfiable"},
		{errors.New(errors.ErrCodeGraphValidation, "x"), "invalid"},
		{errors.Wrap(errors.ErrCodeTimeout, context.DeadlineExceeded, "x"), "timeout"},
		{fmt.Errorf("plain"), "error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Outcome(tt.err), "%v", tt.err)
	}
}

func TestCacheHooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := NewCacheHooks(reg)
	ctx := context.Background()
	h.OnCacheMiss(ctx, "resolve")
	h.OnCacheSet(ctx, "resolve", 128)
	h.OnCacheHit(ctx, "resolve")
	h.OnCacheHit(ctx, "resolve")

	want := `
# HELP versolve_cache_lookups_total Cache lookups by key type and result
# TYPE versolve_cache_lookups_total counter
versolve_cache_lookups_total{key_type="resolve",result="hit"} 2
versolve_cache_lookups_total{key_type="resolve",result="miss"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(want), "versolve_cache_lookups_total"))
	assert.Equal(t, 128.0, testutil.ToFloat64(h.written.WithLabelValues("resolve")))
}

func TestHTTPHooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := NewHTTPHooks(reg)
	ctx := context.Background()
	h.OnRequest(ctx, "POST", "/v1/resolve")
	assert.Equal(t, 1.0, testutil.ToFloat64(h.inflight))
	h.OnResponse(ctx, "POST", "/v1/resolve", 422, 5*time.Millisecond)
	assert.Equal(t, 0.0, testutil.ToFloat64(h.inflight))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.requests.WithLabelValues("POST", "/v1/resolve", "422")))
}

func TestWriteFile(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := NewCacheHooks(reg)
	h.OnCacheHit(context.Background(), "sanity")

	path := filepath.Join(t.TempDir(), "versolve.prom")
	require.NoError(t, WriteFile(reg, path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `versolve_cache_lookups_total{key_type="sanity",result="hit"} 1`)
}
