// Package server arma el handler HTTP completo a partir de la configuración.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/yandexid/internal/cache"
	"github.com/dropDatabas3/yandexid/internal/config"
	"github.com/dropDatabas3/yandexid/internal/email"
	"github.com/dropDatabas3/yandexid/internal/events"
	healthctrl "github.com/dropDatabas3/yandexid/internal/http/controllers/health"
	socialctrl "github.com/dropDatabas3/yandexid/internal/http/controllers/social"
	"github.com/dropDatabas3/yandexid/internal/http/router"
	healthsvc "github.com/dropDatabas3/yandexid/internal/http/services/health"
	"github.com/dropDatabas3/yandexid/internal/http/services/session"
	"github.com/dropDatabas3/yandexid/internal/http/services/social"
	"github.com/dropDatabas3/yandexid/internal/metrics"
	"github.com/dropDatabas3/yandexid/internal/oauth/yandex"
	"github.com/dropDatabas3/yandexid/internal/observability/logger"
	"github.com/dropDatabas3/yandexid/internal/rate"
	"github.com/dropDatabas3/yandexid/internal/security/password"
	"github.com/dropDatabas3/yandexid/internal/store"
)

// App contiene el handler y los recursos que hay que cerrar al apagar.
type App struct {
	Handler http.Handler
	Store   store.AdapterConnection
	Cache   cache.Client
	Yandex  *yandex.Client
	State   social.StateVerifier
	Bus     *events.Bus

	closers []func() error
}

// Close libera store, cache y Redis en orden inverso de apertura.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Options permite reemplazar piezas en tests.
type Options struct {
	// HTTPClient para las llamadas a Yandex; nil => cliente instrumentado.
	HTTPClient *http.Client
	// PasswordParams; nil => password.Default.
	PasswordParams *password.Params
}

// OpenStore abre el account store configurado y aplica migraciones si
// storage.migrate está activo. Lo usan serve, migrate y purge-links.
func OpenStore(ctx context.Context, cfg *config.Config, migrate bool) (store.AdapterConnection, error) {
	conn, err := store.OpenAdapter(ctx, store.AdapterConfig{
		Name:         cfg.Storage.Driver,
		DSN:          cfg.Storage.DSN,
		MaxOpenConns: cfg.Storage.MaxConns,
		MaxIdleConns: cfg.Storage.MinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if migrate {
		res, err := store.Migrate(ctx, conn)
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("migrate store: %w", err)
		}
		if len(res.Applied) > 0 {
			logger.L().Info("migrations applied",
				logger.Component("store"),
				logger.String("driver", conn.Name()),
				logger.Any("versions", res.Applied))
		}
	}
	return conn, nil
}

// NewYandexClient construye el cliente OAuth desde la configuración.
func NewYandexClient(cfg *config.Config, hc *http.Client) *yandex.Client {
	if hc == nil {
		hc = &http.Client{
			Timeout:   cfg.Yandex.HTTPTimeout,
			Transport: metrics.InstrumentUpstream(nil),
		}
	}
	return yandex.New(yandex.Config{
		ClientID:     cfg.Yandex.ClientID,
		ClientSecret: cfg.Yandex.ClientSecret,
		RedirectURL:  cfg.CallbackURL(),
		AuthURL:      cfg.Yandex.AuthorizeURL,
		TokenURL:     cfg.Yandex.TokenURL,
		InfoURL:      cfg.Yandex.InfoURL,
		Timeout:      cfg.Yandex.HTTPTimeout,
		HTTPClient:   hc,
	})
}

// Build arma todas las dependencias y devuelve el handler listo para servir.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	log := logger.L().With(logger.Component("server.wiring"))
	app := &App{}

	if err := metrics.Register(nil); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	// 1. Cache (states consumidos, sesiones) + cliente Redis compartido.
	var rdb *redis.Client
	switch cfg.Cache.Kind {
	case "redis":
		c, err := cache.DialRedis(ctx, cache.RedisOptions{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		rdb = c
		app.Cache = cache.NewRedis(rdb, cfg.Cache.Redis.Prefix)
	default:
		app.Cache = cache.NewMemory(cfg.Cache.Redis.Prefix)
	}
	app.closers = append(app.closers, app.Cache.Close)

	// 2. Account store.
	conn, err := OpenStore(ctx, cfg, cfg.Storage.Migrate)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Store = conn
	app.closers = append(app.closers, conn.Close)

	// 3. Yandex.
	app.Yandex = NewYandexClient(cfg, opts.HTTPClient)
	if !app.Yandex.Configured() {
		log.Warn("yandex.client_id is empty: login button hidden and /yandex-id/login disabled")
	}

	// 4. Services.
	verifier, err := social.NewStateVerifier(social.StateDeps{
		Secret: []byte(cfg.Yandex.StateSecret),
		TTL:    cfg.Yandex.StateTTL,
		Cache:  app.Cache,
	})
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.State = verifier

	sessions := session.NewService(session.Deps{
		Cache: app.Cache,
		Config: session.Config{
			CookieName:   cfg.Session.CookieName,
			CookieDomain: cfg.Session.Domain,
			SameSite:     cfg.Session.SameSite,
			Secure:       cfg.Session.Secure,
			TTL:          cfg.Session.TTL,
		},
	})

	resolver := social.NewResolver(social.ResolverDeps{
		Accounts:       conn.Accounts(),
		AutoCreate:     func() bool { return cfg.Yandex.AutoCreateUsers },
		PasswordParams: opts.PasswordParams,
	})

	app.Bus = events.NewBus(events.MetricsListener{}, events.AuditListener{})
	if cfg.Mail.WelcomeEnabled && cfg.SMTP.Host != "" {
		welcome := &events.WelcomeMailListener{
			Sender:  email.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.TLS),
			SiteURL: cfg.Server.PublicURL,
		}
		app.Bus.Subscribe(welcome)
		// Se cierra primero: deja terminar los envíos pendientes.
		app.closers = append(app.closers, func() error { welcome.Wait(); return nil })
	}

	services := social.Services{
		State:    verifier,
		Resolver: resolver,
		Start:    social.NewStartService(social.StartDeps{Verifier: verifier, Provider: app.Yandex}),
		Callback: social.NewCallbackService(social.CallbackDeps{
			CallbackPath: cfg.Yandex.CallbackPath,
			LandingURL:   cfg.Yandex.LandingURL,
			Verifier:     verifier,
			Exchange:     app.Yandex,
			Profiles:     app.Yandex,
			Resolver:     resolver,
			Sessions:     sessions,
			Events:       app.Bus,
		}),
		Button: social.NewButtonService(social.ButtonDeps{
			Settings: func() social.ButtonSettings {
				return social.ButtonSettings{
					ClientID:       cfg.Yandex.ClientID,
					ButtonText:     cfg.Yandex.ButtonText,
					ShowOnLogin:    cfg.Yandex.ShowOnLogin,
					ShowOnRegister: cfg.Yandex.ShowOnRegister,
				}
			},
		}),
	}

	// 5. Rate limiter (opcional).
	var limiter rate.Limiter
	if cfg.Rate.Enabled {
		if rdb != nil {
			limiter = rate.NewRedisLimiter(rdb, cfg.Cache.Redis.Prefix+":rl:", cfg.Rate.Limit, cfg.Rate.Window)
		} else {
			limiter = rate.NewMemoryLimiter("rl:", cfg.Rate.Limit, cfg.Rate.Window)
		}
	}

	health := healthsvc.NewHealthService(healthsvc.Deps{
		Version:    cfg.App.Version,
		StoreCheck: conn.Ping,
		CacheCheck: app.Cache.Ping,
		Configured: app.Yandex.Configured,
		Timeout:    2 * time.Second,
	})

	app.Handler = router.New(router.Deps{
		Social: socialctrl.NewControllers(services, sessions, socialctrl.CookieConfig{
			Domain: cfg.Session.Domain,
			Secure: cfg.Session.Secure,
			TTL:    cfg.Yandex.StateTTL,
		}, cfg.Yandex.LandingURL),
		Health:       healthctrl.NewHealthController(health),
		CallbackPath: cfg.Yandex.CallbackPath,
		RateLimiter:  limiter,
		Metrics:      metrics.Handler(nil),
	})
	return app, nil
}
