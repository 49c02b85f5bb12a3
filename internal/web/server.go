// Package web is the development server: it serves the built site,
// renders directive markup on the fly in hydrate mode, and reloads
// connected browsers when a rebuild finishes.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/monokrome/astrogonia/internal/config"
	"github.com/monokrome/astrogonia/internal/render"
	"github.com/monokrome/astrogonia/internal/search"
	"github.com/monokrome/astrogonia/internal/transform"
)

type Server struct {
	cfg     *config.Config
	logger  *slog.Logger
	hub     *Hub
	rebuild func(context.Context) error

	// The transform stack is built once, on the first HTML response
	// that needs it.
	engineOnce sync.Once
	engine     render.Engine
	registry   *render.Registry
	templates  *transform.Resolver
	scope      render.Scope
}

// NewServer builds a dev server over the output directory. rebuild is
// invoked by the file watcher when sources change; it may be nil.
func NewServer(cfg *config.Config, logger *slog.Logger, rebuild func(context.Context) error) *Server {
	return &Server{
		cfg:     cfg,
		logger:  logger,
		hub:     newHub(logger),
		rebuild: rebuild,
	}
}

// Handler assembles the dev-server routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/search", s.handleSearch)
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		s.hub.serveWs(w, r)
	})

	fileServer := http.FileServer(http.Dir(s.cfg.OutputDir))
	mux.Handle("/", s.transformMiddleware(fileServer))

	return s.logRequests(mux)
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if err := s.watch(ctx); err != nil {
		s.logger.Warn("file watching unavailable", "error", err)
	}

	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("listening", "addr", addr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// transformStack lazily builds the engine, registry, template resolver
// and default scope shared by all in-flight requests.
func (s *Server) transformStack() (render.Engine, *render.Registry, *transform.Resolver, render.Scope) {
	s.engineOnce.Do(func() {
		reg := render.DefaultRegistry()
		if s.cfg.Directives != "" {
			if manifest, ok := render.LoadManifest(s.cfg.Directives); ok {
				manifest.Apply(reg)
			}
		}
		s.engine = render.NewEngine()
		s.registry = reg
		s.templates = &transform.Resolver{Root: s.cfg.TemplateDir}
		s.scope = render.Scope(s.cfg.DefaultScope())
	})
	return s.engine, s.registry, s.templates, s.scope
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleSearch opens the index per request: rebuilds recreate the
// database file, so a held connection would go stale.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	searcher, err := search.NewSQLiteSearcher(s.cfg.IndexPath())
	if err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error": "search index unavailable",
		})
		return
	}
	defer func() { _ = searcher.Close() }()

	query := r.URL.Query().Get("q")
	limit := parseIntQuery(r, "limit", 50)
	offset := parseIntQuery(r, "offset", 0)

	results, err := searcher.Search(r.Context(), query, limit, offset)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error": err.Error(),
		})
		return
	}
	_ = json.NewEncoder(w).Encode(results)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w}
		next.ServeHTTP(rw, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", filepath.Clean(r.URL.Path),
			"status", rw.status(),
			"duration", time.Since(start),
		)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseWriter) status() int {
	if w.statusCode == 0 {
		return http.StatusOK
	}
	return w.statusCode
}

func parseIntQuery(r *http.Request, key string, fallback int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}
