// Package api exposes conflict detection, merging and consolidation runs
// over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/todmy/doc-consolidator/internal/auth"
	"github.com/todmy/doc-consolidator/internal/embeddings"
	"github.com/todmy/doc-consolidator/internal/pipeline"
	"github.com/todmy/doc-consolidator/internal/storage"
)

// ServerConfig holds the server dependencies. Storage repositories are
// optional as a group: without them only the stateless routes are mounted.
type ServerConfig struct {
	Pipeline *pipeline.Pipeline
	Auth     auth.Service

	Documents storage.DocumentRepository
	Claims    storage.ClaimRepository
	Runs      storage.RunRepository
	Conflicts storage.ConflictRepository
	Embedder  embeddings.Embedder

	AllowedOrigins []string
	Log            *slog.Logger
}

type Server struct {
	router   *chi.Mux
	pipeline *pipeline.Pipeline
	auth     *auth.Handlers

	authService  auth.Service
	documentRepo storage.DocumentRepository
	claimRepo    storage.ClaimRepository
	runRepo      storage.RunRepository
	conflictRepo storage.ConflictRepository
	embedder     embeddings.Embedder

	log *slog.Logger
}

func NewServer(config ServerConfig) *Server {
	if config.Log == nil {
		config.Log = slog.Default()
	}
	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = []string{"http://localhost:*", "https://*"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s := &Server{
		router:       r,
		pipeline:     config.Pipeline,
		auth:         auth.NewHandlers(config.Auth),
		authService:  config.Auth,
		documentRepo: config.Documents,
		claimRepo:    config.Claims,
		runRepo:      config.Runs,
		conflictRepo: config.Conflicts,
		embedder:     config.Embedder,
		log:          config.Log,
	}
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Auth routes (public)
		r.Post("/auth/register", s.auth.Register)
		r.Post("/auth/login", s.auth.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(s.authService))

			r.Get("/auth/me", s.auth.Me)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireScope(auth.ScopeConsolidate))

				r.Post("/claims/validate", s.handleValidateClaims)
				r.Post("/conflicts/detect", s.handleDetectConflicts)
				r.Post("/merge", s.handleMerge)
			})

			if !s.stateful() {
				return
			}

			consolidate := auth.RequireScope(auth.ScopeConsolidate)
			review := auth.RequireScope(auth.ScopeReview)

			// Documents
			r.With(consolidate).Post("/documents", s.handleUpload)
			r.With(review).Get("/documents/{documentID}", s.handleGetDocument)
			r.With(consolidate).Delete("/documents/{documentID}", s.handleDeleteDocument)
			r.With(review).Get("/claims/similar", s.handleSimilarClaims)

			// Consolidation runs
			r.Route("/consolidations", func(r chi.Router) {
				r.With(consolidate).Post("/", s.handleCreateConsolidation)

				r.Group(func(r chi.Router) {
					r.Use(review)

					r.Get("/", s.handleListConsolidations)
					r.Get("/{runID}", s.handleGetConsolidation)
					r.Get("/{runID}/conflicts", s.handleGetRunConflicts)
					r.Get("/{runID}/flagged", s.handleGetFlagged)
					r.Get("/{runID}/document", s.handleGetMergedDocument)
				})
			})
		})
	})
}

func (s *Server) stateful() bool {
	return s.documentRepo != nil && s.claimRepo != nil && s.runRepo != nil && s.conflictRepo != nil
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then drains in-flight requests
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Helper to send JSON responses
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
