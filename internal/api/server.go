package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/examprep/question-api/internal/config"
	"github.com/examprep/question-api/internal/models"
	"github.com/examprep/question-api/internal/questions"
	"github.com/examprep/question-api/internal/ratelimit"
	"github.com/examprep/question-api/internal/storage"
)

// IdentityResolver turns an Authorization header into the calling user
type IdentityResolver interface {
	Resolve(ctx context.Context, authorization string) (*models.AuthenticatedUser, error)
}

// QuestionLister lists the questions a user may see
type QuestionLister interface {
	List(ctx context.Context, user *models.AuthenticatedUser, q models.QuestionQuery) (*questions.Result, error)
}

// ReadinessChecker reports the state of each backing dependency
type ReadinessChecker interface {
	HealthCheckAll(ctx context.Context) map[string]error
}

// StatsReader counts questions per level with elevated privileges
type StatsReader interface {
	CountByLevel(ctx context.Context) (*models.LevelBreakdown, error)
}

// Dependencies are the collaborators the handlers call. Readiness, Limiter
// and Stats are optional.
type Dependencies struct {
	Store     storage.Prober
	Resolver  IdentityResolver
	Questions QuestionLister
	Readiness ReadinessChecker
	Limiter   ratelimit.Limiter
	// RateLimit is the number of question requests per minute per client
	RateLimit int
	Stats     StatsReader
	// AdminToken gates the stats route; the route is not mounted when empty
	AdminToken string
	// ProbeTimeout bounds the health and readiness checks
	ProbeTimeout time.Duration
}

// Server represents the HTTP API server
type Server struct {
	config config.ServerConfig
	deps   Dependencies
	router *chi.Mux
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, deps Dependencies) *Server {
	if deps.ProbeTimeout <= 0 {
		deps.ProbeTimeout = 5 * time.Second
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"http://localhost:5173"}
	}

	s := &Server{
		config: cfg,
		deps:   deps,
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if s.config.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", adminTokenHeader},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/ready", s.handleReady)

		r.With(s.rateLimit).Get("/questions", s.handleListQuestions)

		if s.deps.Stats != nil && s.deps.AdminToken != "" {
			r.With(requireAdminToken(s.deps.AdminToken)).Get("/admin/stats", s.handleAdminStats)
		}
	})

	s.router = r
}
