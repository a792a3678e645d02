package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/server/models"
)

// RouterConfig carries the handlers and middleware the routing tree needs.
type RouterConfig struct {
	AllowedOrigins []string
	AuthHandler    *AuthHandler
	UserHandler    *UserHandler
	MetricsHandler *MetricsHandler
	Auth           *AuthMiddleware
	RateLimiter    *RateLimiter
}

// NewRouter builds the chi multiplexer with the global middleware pipeline
// and the versioned API tree. Role gates: user administration and the audit
// trail need ADMIN, metric writes and report exports need ANALYST, reads
// need any authenticated user.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cfg.RateLimiter.Handler)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/token", cfg.AuthHandler.Token)

		r.Group(func(r chi.Router) {
			r.Use(cfg.Auth.RequireAuth)

			r.Route("/users", func(r chi.Router) {
				r.With(cfg.Auth.RequireRole(models.RoleAdmin)).Post("/", cfg.UserHandler.Create)
				r.Get("/{id}", cfg.UserHandler.Get)
				r.With(cfg.Auth.RequireRole(models.RoleAdmin)).Put("/{id}", cfg.UserHandler.Update)
				r.With(cfg.Auth.RequireRole(models.RoleAdmin)).Post("/{id}/deactivate", cfg.UserHandler.Deactivate)
				r.With(cfg.Auth.RequireRole(models.RoleAdmin)).Post("/{id}/rotate", cfg.UserHandler.Rotate)
			})

			r.With(cfg.Auth.RequireRole(models.RoleAdmin)).Get("/audit", cfg.UserHandler.AuditTrail)

			r.Route("/metrics", func(r chi.Router) {
				r.With(cfg.Auth.RequireRole(models.RoleAnalyst)).Post("/", cfg.MetricsHandler.Record)
				r.Get("/", cfg.MetricsHandler.List)
			})

			r.Route("/benchmarks", func(r chi.Router) {
				r.With(cfg.Auth.RequireRole(models.RoleAdmin)).Post("/", cfg.MetricsHandler.UpsertBenchmark)
				r.Get("/compare", cfg.MetricsHandler.Compare)
			})

			r.With(cfg.Auth.RequireRole(models.RoleAnalyst)).Post("/reports/export", cfg.MetricsHandler.ExportReport)
		})
	})

	r.Get("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
