// Package server exposes the evaluation pipeline over an HTTP API: run and
// stage triggers, query management, and raw data reads.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/aeo-lab/internal/config"
	"github.com/sells-group/aeo-lab/internal/pipeline"
	"github.com/sells-group/aeo-lab/internal/store"
)

// Server wires the HTTP API to the store and pipeline.
type Server struct {
	cfg   *config.Config
	store store.Store
	pipe  *pipeline.Pipeline
}

// New creates a Server.
func New(cfg *config.Config, st store.Store, pipe *pipeline.Pipeline) *Server {
	return &Server{cfg: cfg, store: st, pipe: pipe}
}

// Router builds the chi handler tree. The health endpoint stays outside
// basic auth so load balancers can probe it.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		if s.cfg.Server.BasicAuthUser != "" {
			r.Use(middleware.BasicAuth("aeo-lab", map[string]string{
				s.cfg.Server.BasicAuthUser: s.cfg.Server.BasicAuthPass,
			}))
		}

		r.Route("/runs", func(r chi.Router) {
			r.Post("/", s.handleStartRun)
			r.Get("/", s.handleListRuns)
			r.Get("/{id}", s.handleGetRun)
			r.Get("/{id}/summary", s.handleRunSummary)
		})

		r.Post("/jobs/{stage}", s.handleStageJob)

		r.Route("/queries", func(r chi.Router) {
			r.Get("/", s.handleListQueries)
			r.Post("/", s.handleCreateQuery)
			r.Get("/{id}", s.handleGetQuery)
		})

		r.Route("/data", func(r chi.Router) {
			r.Get("/observations", s.handleObservations)
			r.Get("/scores", s.handleScores)
			r.Get("/counterfactuals", s.handleCounterfactuals)
			r.Get("/brand-deltas", s.handleBrandDeltas)
			r.Get("/brand-opportunities", s.handleBrandOpportunities)
		})
	})

	return r
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("server: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("server: listening", zap.Int("port", s.cfg.Server.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

// requestLogger logs each request through the global zap logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("server: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
