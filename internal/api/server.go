// Package api exposes the extraction jobs, live profiles and enrichment runs
// over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/profile-cli/internal/enrich"
	"github.com/sells-group/profile-cli/internal/extraction"
	"github.com/sells-group/profile-cli/internal/metrics"
	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/profile"
	"github.com/sells-group/profile-cli/internal/store"
	"github.com/sells-group/profile-cli/pkg/hibp"
)

const (
	defaultMaxUpload   = 25 << 20
	defaultWaitTimeout = 30 * time.Second
	maxWaitTimeout     = 5 * time.Minute
)

// Deps are the collaborators the handlers call. Breaches and Runs are
// optional.
type Deps struct {
	Sessions *profile.Sessions
	Jobs     *extraction.Manager
	Enricher *enrich.Orchestrator
	Breaches hibp.Client
	Runs     store.Store
	Metrics  *metrics.Metrics
}

// Option configures a Server.
type Option func(*Server)

// WithMaxUpload caps the size of an uploaded document in bytes.
func WithMaxUpload(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// WithCORSOrigins sets the allowed browser origins.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

// WithEnrichTimeout bounds one enrichment run.
func WithEnrichTimeout(d time.Duration) Option {
	return func(s *Server) { s.enrichTimeout = d }
}

// Server holds the HTTP handlers.
type Server struct {
	deps          Deps
	maxUpload     int64
	origins       []string
	enrichTimeout time.Duration
	now           func() time.Time
}

// New creates a Server.
func New(deps Deps, opts ...Option) *Server {
	s := &Server{
		deps:      deps,
		maxUpload: defaultMaxUpload,
		origins:   []string{"*"},
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Router builds the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	if s.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())
	}

	r.Route("/subjects/{id}", func(r chi.Router) {
		r.Get("/profile", s.handleGetProfile)
		r.Patch("/profile", s.handlePatchProfile)
		r.Post("/close", s.handleClose)

		r.Post("/extraction", s.handleSubmit)
		r.Get("/extraction", s.handleReconnect)
		r.Delete("/extraction", s.handleDiscard)
		r.Get("/extraction/wait", s.handleWait)
		r.Post("/extraction/apply", s.handleApply)

		r.Post("/enrich", s.handleEnrich)
		r.Get("/enrich/runs", s.handleListRuns)
		r.Post("/social/confirm", s.handleConfirmSocial)
	})

	r.Post("/breaches/check", s.handleBreachCheck)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code    model.ErrorCode `json:"error"`
	Message string          `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, code model.ErrorCode, msg string) {
	writeJSON(w, status, errorBody{Code: code, Message: msg})
}

// Serve runs srv until ctx ends, then shuts it down gracefully.
func Serve(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zap.L().Info("api: shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
