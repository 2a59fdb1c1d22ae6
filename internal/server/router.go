package server

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/lockbox/lockbox/internal/handler"
	"github.com/lockbox/lockbox/internal/metrics"
	"github.com/lockbox/lockbox/internal/middleware"
	"github.com/lockbox/lockbox/internal/service"
)

// RouterDeps holds everything the router wires together.
type RouterDeps struct {
	Auth    *service.AuthService
	Vault   *service.VaultService
	Metrics metrics.Recorder
	// Health lists named readiness checks, e.g. "store" and "redis".
	Health map[string]handler.HealthChecker
	Logger *slog.Logger

	CORSAllowedOrigins []string
	MaxRequestBodySize int64
	EnableHSTS         bool
	// ExposeMetrics mounts GET /metrics.
	ExposeMetrics bool
}

// NewRouter builds the HTTP API.
func NewRouter(deps RouterDeps) *chi.Mux {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := deps.Metrics
	if recorder == nil {
		recorder = metrics.NewNoop()
	}

	h := handler.New()
	healthHandler := handler.NewHealthHandler(deps.Health)
	authHandler := handler.NewAuthHandler(deps.Auth, logger)
	secretHandler := handler.NewSecretHandler(deps.Vault, logger)

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = deps.CORSAllowedOrigins

	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics(recorder))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{EnableHSTS: deps.EnableHSTS}))
	r.Use(middleware.CORS(cors))
	r.Use(middleware.MaxBodySize(deps.MaxRequestBodySize))

	r.Get("/", h.Hello)
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)
	if deps.ExposeMetrics {
		r.Get("/metrics", handler.NewMetricsHandler(recorder).Metrics)
	}

	requireAuth := middleware.Auth(deps.Auth, logger)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.With(requireAuth).Get("/me", authHandler.Me)
	})

	r.Route("/secrets", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", secretHandler.List)
		r.Post("/", secretHandler.Create)
		r.Get("/{id}", secretHandler.Get)
		r.Patch("/{id}", secretHandler.Update)
		r.Delete("/{id}", secretHandler.Delete)
	})

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
