package router

import (
	"strings"

	"github.com/go-chi/chi/v5"

	ctrl "github.com/dropDatabas3/yandexid/internal/http/controllers/social"
	mw "github.com/dropDatabas3/yandexid/internal/http/middlewares"
	"github.com/dropDatabas3/yandexid/internal/rate"
)

// SocialRouterDeps contiene las dependencias para el router social.
type SocialRouterDeps struct {
	Controllers  *ctrl.Controllers
	CallbackPath string
	RateLimiter  rate.Limiter // Opcional: rate limiter por IP
}

// RegisterSocialRoutes registra las rutas del login con Yandex ID.
func RegisterSocialRoutes(r chi.Router, deps SocialRouterDeps) {
	c := deps.Controllers

	callback := strings.TrimRight(strings.TrimSpace(deps.CallbackPath), "/")
	if callback == "" {
		callback = "/yandex-id-callback"
	}

	r.Group(func(g chi.Router) {
		g.Use(
			mw.WithSecurityHeaders(),
			mw.WithNoStore(),
			mw.WithRateLimit(mw.RateLimitConfig{
				Limiter: deps.RateLimiter,
				KeyFunc: mw.IPPathRateKey,
				Route:   "yandex-id",
			}),
		)

		// GET /yandex-id-callback y /yandex-id-callback/ - redirect_uri
		g.Get(callback, c.Callback.Callback)
		g.Get(callback+"/", c.Callback.Callback)

		// GET /yandex-id/login - inicia el flujo
		g.Get("/yandex-id/login", c.Start.Start)

		g.Get("/yandex-id/me", c.Session.Me)
		g.Post("/yandex-id/logout", c.Session.Logout)
	})

	// El botón se embebe en páginas del host: sin rate limit ni no-store.
	r.Get("/yandex-id/button", c.Button.Button)
}
