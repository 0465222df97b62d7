package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/iho/ledgerbook/internal/adapter/http/handler"
	"github.com/iho/ledgerbook/internal/adapter/http/middleware"
	"github.com/iho/ledgerbook/internal/domain"
	"github.com/iho/ledgerbook/internal/infrastructure/metrics"
	"github.com/iho/ledgerbook/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	TransactionHandler *handler.TransactionHandler
	AuditHandler       *handler.AuditHandler
	ReportHandler      *handler.ReportHandler
	HealthHandler      *handler.HealthHandler

	TokenVerifier middleware.TokenVerifier
	RoleGate      middleware.Authorizer
	CookieName    string

	Logger zerolog.Logger

	// Optional
	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	RateLimiter      *middleware.RateLimiter
	Metrics          *metrics.Metrics
	MetricsHandler   http.Handler
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery)
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Limit)
		}
		r.Use(middleware.Authenticate(cfg.TokenVerifier, cfg.CookieName))

		anyRole := middleware.RequireRole(cfg.RoleGate, domain.RequireAnyRole)
		writer := middleware.RequireRole(cfg.RoleGate, domain.RequireWriter)
		admin := middleware.RequireRole(cfg.RoleGate, domain.RequireAdmin)

		r.Route("/transactions", func(r chi.Router) {
			r.With(anyRole).Get("/", cfg.TransactionHandler.List)

			create := http.Handler(http.HandlerFunc(cfg.TransactionHandler.Create))
			if cfg.IdempotencyStore != nil {
				create = middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL).Wrap(create)
			}
			r.With(writer).Post("/", create.ServeHTTP)

			r.Route("/{id}", func(r chi.Router) {
				r.With(anyRole).Get("/", cfg.TransactionHandler.Get)
				r.With(writer).Patch("/", cfg.TransactionHandler.Update)
				r.With(writer).Delete("/", cfg.TransactionHandler.Delete)
				r.With(admin).Patch("/restore", cfg.TransactionHandler.Restore)
			})
		})

		r.With(admin).Get("/audit", cfg.AuditHandler.List)
		r.With(anyRole).Get("/reports/summary", cfg.ReportHandler.Summary)
	})

	return r
}
