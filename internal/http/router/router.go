// Package router arma el árbol de rutas HTTP sobre chi.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	healthctrl "github.com/dropDatabas3/yandexid/internal/http/controllers/health"
	socialctrl "github.com/dropDatabas3/yandexid/internal/http/controllers/social"
	httperrors "github.com/dropDatabas3/yandexid/internal/http/errors"
	mw "github.com/dropDatabas3/yandexid/internal/http/middlewares"
	"github.com/dropDatabas3/yandexid/internal/rate"
)

// Deps contains all dependencies for the router.
type Deps struct {
	Social *socialctrl.Controllers
	Health *healthctrl.HealthController

	// CallbackPath es la ruta del redirect_uri ("/yandex-id-callback/").
	CallbackPath string
	// RateLimiter es opcional.
	RateLimiter rate.Limiter
	// Metrics sirve /metrics; nil lo desactiva.
	Metrics http.Handler
}

// New returns the root handler.
func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		mw.WithRequestID(),
		mw.WithLogging(),
		mw.WithRecover(),
		mw.WithMetrics(),
	)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	if d.Health != nil {
		r.Get("/healthz", d.Health.Healthz)
		r.Get("/readyz", d.Health.Readyz)
	}
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}
	if d.Social != nil {
		RegisterSocialRoutes(r, SocialRouterDeps{
			Controllers:  d.Social,
			CallbackPath: d.CallbackPath,
			RateLimiter:  d.RateLimiter,
		})
	}
	return r
}
