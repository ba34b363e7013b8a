// Package lruserver exposes a shared cache over HTTP.
package lruserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"gitlab.com/slon/memcached/lrucache/lrumetrics"
	"gitlab.com/slon/memcached/lrucache/lrusync"
)

const (
	// EvictedKeyHeader names the key a PUT evicted, if any.
	EvictedKeyHeader = "X-Evicted-Key"

	maxValueSize    = 1 << 20
	shutdownTimeout = 5 * time.Second
)

// Server serves a shared cache over HTTP.
type Server struct {
	cache    *lrusync.Cache[string, []byte]
	logger   *zap.Logger
	registry *prometheus.Registry
	router   chi.Router
}

// Listing is the body of GET /cache.
type Listing struct {
	Capacity int      `json:"capacity"`
	Keys     []string `json:"keys"`
}

// New builds the routes for cache and registers its metrics.
func New(cache *lrusync.Cache[string, []byte], logger *zap.Logger) *Server {
	s := &Server{
		cache:    cache,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}
	s.registry.MustRegister(lrumetrics.NewCollector("lrucache", cache))

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.accessLog)

	r.Get("/cache", s.handleList)
	r.Get("/cache/{key}", s.handleGet)
	r.Put("/cache/{key}", s.handlePut)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	s.router = r
	return s
}

// Handler returns the router, for use with httptest or a custom server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on addr and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve handles connections from ln until ctx is cancelled, then shuts the
// server down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	s.logger.Info("serving cache", zap.String("addr", ln.Addr().String()), zap.Int("capacity", s.cache.Cap()))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	s.logger.Info("server stopped")
	return nil
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	key, err := cacheKey(r)
	if err != nil {
		http.Error(w, "malformed key", http.StatusBadRequest)
		return
	}

	value, ok := s.cache.Get(key)
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(value)
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	key, err := cacheKey(r)
	if err != nil {
		http.Error(w, "malformed key", http.StatusBadRequest)
		return
	}

	value, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxValueSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "value too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "failed to read value", http.StatusBadRequest)
		return
	}

	if evictedKey, _, evicted := s.cache.Put(key, value); evicted {
		w.Header().Set(EvictedKeyHeader, evictedKey)
	}
	w.WriteHeader(http.StatusNoContent)
}

// cacheKey returns the decoded {key} segment. chi routes on RawPath when it
// is set, leaving the segment escaped.
func cacheKey(r *http.Request) (string, error) {
	key := chi.URLParam(r, "key")
	if r.URL.RawPath == "" {
		return key, nil
	}
	return url.PathUnescape(key)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	listing := Listing{Capacity: s.cache.Cap(), Keys: s.cache.Keys()}
	if err := json.NewEncoder(w).Encode(listing); err != nil {
		s.logger.Warn("failed to encode listing", zap.Error(err))
	}
}
