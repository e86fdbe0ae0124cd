// Package server exposes the resolver over HTTP.
//
// Routes:
//
//	GET  /healthz      liveness probe
//	GET  /metrics      Prometheus exposition
//	POST /v1/resolve   resolve a JSON graph document
//	POST /v1/sanity    list uninstallable versions of a JSON graph document
//
// Both POST routes take the document written by io.WriteJSON. /v1/resolve
// accepts the query parameters strategy (hybrid or backtrack) and
// validate, which rejects strong edges to packages without versions.
// /v1/sanity accepts deep. Resolution results are cached by document
// digest and options.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/versolve/pkg/cache"
	"github.com/matzehuels/versolve/pkg/errors"
	"github.com/matzehuels/versolve/pkg/graph"
	"github.com/matzehuels/versolve/pkg/io"
	"github.com/matzehuels/versolve/pkg/observability"
	"github.com/matzehuels/versolve/pkg/resolve"
)

const (
	// DefaultTimeout bounds one resolution when Config.Timeout is zero.
	DefaultTimeout = 30 * time.Second

	maxBodyBytes = 32 << 20
)

// Config configures a Server. Zero values select defaults.
type Config struct {
	Timeout  time.Duration
	Strategy resolve.Strategy
	Logger   *log.Logger

	// Gatherer backs /metrics. Nil uses prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	// Cache stores resolution results. Nil disables caching.
	Cache cache.Cache
	Keyer cache.Keyer

	ResolverHooks observability.ResolverHooks
	HTTPHooks     observability.HTTPHooks
}

// Server is an http.Handler serving the resolver API.
type Server struct {
	cfg    Config
	router chi.Router
}

// New builds the router for cfg.
func New(cfg Config) *Server {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Strategy == "" {
		cfg.Strategy = resolve.StrategyHybrid
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.NewNullCache()
	}
	if cfg.Keyer == nil {
		cfg.Keyer = cache.NewDefaultKeyer()
	}
	if cfg.ResolverHooks == nil {
		cfg.ResolverHooks = observability.Resolver()
	}
	if cfg.HTTPHooks == nil {
		cfg.HTTPHooks = observability.HTTP()
	}

	s := &Server{cfg: cfg}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	r.Route("/v1", func(r chi.Router) {
		r.Post("/resolve", s.handleResolve)
		r.Post("/sanity", s.handleSanity)
	})
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.cfg.Logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.cfg.Logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

// logRequests logs each request and reports it to the HTTP hooks under its
// route pattern.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		s.cfg.HTTPHooks.OnRequest(r.Context(), r.Method, r.URL.Path)
		defer func() {
			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			d := time.Since(start)
			s.cfg.HTTPHooks.OnResponse(r.Context(), r.Method, route, status, d)
			s.cfg.Logger.Debug("request",
				"method", r.Method,
				"route", route,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", d,
				"request_id", middleware.GetReqID(r.Context()))
		}()
		next.ServeHTTP(ww, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	strategy := s.cfg.Strategy
	if name := q.Get("strategy"); name != "" {
		var err error
		if strategy, err = resolve.ParseStrategy(name); err != nil {
			writeError(w, err)
			return
		}
	}
	validate, err := boolParam(q.Get("validate"), false)
	if err != nil {
		writeError(w, err)
		return
	}

	g, ok := s.readGraph(w, r)
	if !ok {
		return
	}

	digest, err := io.Digest(g)
	if err != nil {
		writeError(w, err)
		return
	}
	key := s.cfg.Keyer.ResolveKey(digest, string(strategy)+"/validate="+strconv.FormatBool(validate))
	if data, hit, err := s.cfg.Cache.Get(ctx, key); err != nil {
		s.cfg.Logger.Warn("cache read failed", "err", err)
	} else if hit {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Cache", "hit")
		_, _ = w.Write(data)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	sol, err := resolve.ResolveContext(ctx, g, resolve.Options{
		Strategy: strategy,
		Simplify: true,
		Validate: validate,
		Logger:   s.cfg.Logger.WithPrefix("resolve"),
		Hooks:    s.cfg.ResolverHooks,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := json.Marshal(io.NewResult(g, sol))
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "encode result"))
		return
	}
	if err := s.cfg.Cache.Set(r.Context(), key, data, cache.DefaultTTL); err != nil {
		s.cfg.Logger.Warn("cache write failed", "err", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "miss")
	_, _ = w.Write(data)
}

type sanityResponse struct {
	Findings []resolve.Finding `json:"findings"`
}

func (s *Server) handleSanity(w http.ResponseWriter, r *http.Request) {
	deep, err := boolParam(r.URL.Query().Get("deep"), false)
	if err != nil {
		writeError(w, err)
		return
	}
	g, ok := s.readGraph(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Timeout)
	defer cancel()
	findings, err := resolve.SanityCheck(ctx, g, resolve.SanityOptions{
		Deep:   deep,
		Logger: s.cfg.Logger.WithPrefix("sanity"),
		Hooks:  s.cfg.ResolverHooks,
	})
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeTimeout, err, "sanity check canceled"))
		return
	}
	if findings == nil {
		findings = []resolve.Finding{}
	}
	writeJSON(w, http.StatusOK, sanityResponse{Findings: findings})
}

func (s *Server) readGraph(w http.ResponseWriter, r *http.Request) (*graph.Graph, bool) {
	g, err := io.ReadJSON(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return g, true
}

func boolParam(s string, def bool) (bool, error) {
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, errors.New(errors.ErrCodeInvalidInput, "invalid boolean %q", s)
	}
	return b, nil
}
