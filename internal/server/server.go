// Package server exposes the catalog over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/country-catalog/internal/refresh"
	"github.com/sells-group/country-catalog/internal/render"
	"github.com/sells-group/country-catalog/internal/store"
)

// Refresher triggers a catalog refresh run.
type Refresher interface {
	Refresh(ctx context.Context) (*refresh.Result, error)
}

// Server wires the store, the refresh engine, and the summary renderer into
// an HTTP handler.
type Server struct {
	store    store.Store
	engine   Refresher
	renderer *render.Renderer
}

// New creates a Server.
func New(st store.Store, engine Refresher, renderer *render.Renderer) *Server {
	return &Server{store: st, engine: engine, renderer: renderer}
}

// Router builds the chi router with CORS and request logging.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)

	r.Route("/countries", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Post("/refresh", s.handleRefresh)
		r.Get("/image", s.handleImage)
		r.Get("/{name}", s.handleGet)
		r.Delete("/{name}", s.handleDelete)
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
