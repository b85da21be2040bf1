package httpapi

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vladislavdragonenkov/storefront/internal/health"
)

// NewRouter собирает роутер магазина: middleware, health-пробы и маршруты API.
// healthHandler может быть nil — тогда монтируется только простой liveness probe.
func NewRouter(h *Handler, healthHandler *health.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", health.LivenessHandler)
	if healthHandler != nil {
		r.Get("/health", healthHandler.ServeHTTP)
		r.Get("/readyz", healthHandler.ReadinessHandler)
	}

	h.Register(r)
	return r
}
