// Package config loads the service configuration: defaults, then config.yaml,
// then environment overrides. Values are resolved once at startup and passed
// explicitly to the components that need them.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Yandex is the provider-facing part of the configuration: credentials,
// feature toggles and button text.
type Yandex struct {
	ClientID        string `yaml:"client_id" env:"YANDEX_CLIENT_ID"`
	ClientSecret    string `yaml:"client_secret" env:"YANDEX_CLIENT_SECRET"`
	AutoCreateUsers bool   `yaml:"auto_create_users" env:"YANDEX_AUTO_CREATE_USERS"`
	ShowOnLogin     bool   `yaml:"show_on_login" env:"YANDEX_SHOW_ON_LOGIN"`
	ShowOnRegister  bool   `yaml:"show_on_register" env:"YANDEX_SHOW_ON_REGISTER"`
	ButtonText      string `yaml:"button_text" env:"YANDEX_BUTTON_TEXT"`

	// CallbackPath is the redirect_uri path registered at oauth.yandex.ru.
	CallbackPath string `yaml:"callback_path" env:"YANDEX_CALLBACK_PATH"`
	// LandingURL is where the browser goes after a successful login.
	LandingURL string `yaml:"landing_url" env:"YANDEX_LANDING_URL"`

	// StateSecret signs state tokens (HS256). Empty => random per process,
	// which breaks in-flight logins across restarts and multiple replicas.
	StateSecret string        `yaml:"state_secret" env:"YANDEX_STATE_SECRET"`
	StateTTL    time.Duration `yaml:"state_ttl" env:"YANDEX_STATE_TTL"`
	HTTPTimeout time.Duration `yaml:"http_timeout" env:"YANDEX_HTTP_TIMEOUT"`

	// Endpoint overrides (tests, proxies).
	AuthorizeURL string `yaml:"authorize_url" env:"YANDEX_AUTHORIZE_URL"`
	TokenURL     string `yaml:"token_url" env:"YANDEX_TOKEN_URL"`
	InfoURL      string `yaml:"info_url" env:"YANDEX_INFO_URL"`
}

type Config struct {
	App struct {
		// dev | prod
		Env     string `yaml:"env" env:"APP_ENV"`
		Name    string `yaml:"name" env:"APP_NAME"`
		Version string `yaml:"version" env:"APP_VERSION"`
	} `yaml:"app"`

	Log struct {
		Level string `yaml:"level" env:"LOG_LEVEL"`
	} `yaml:"log"`

	Server struct {
		Addr string `yaml:"addr" env:"SERVER_ADDR"`
		// PublicURL is the externally visible origin used to build redirect_uri.
		PublicURL       string        `yaml:"public_url" env:"SERVER_PUBLIC_URL"`
		ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
		WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
	} `yaml:"server"`

	Yandex Yandex `yaml:"yandex"`

	Storage struct {
		// memory | postgres | sqlite
		Driver   string `yaml:"driver" env:"STORAGE_DRIVER"`
		DSN      string `yaml:"dsn" env:"STORAGE_DSN"`
		MaxConns int    `yaml:"max_conns" env:"STORAGE_MAX_CONNS"`
		MinConns int    `yaml:"min_conns" env:"STORAGE_MIN_CONNS"`
		Migrate  bool   `yaml:"migrate" env:"STORAGE_MIGRATE"`
	} `yaml:"storage"`

	Cache struct {
		// memory | redis
		Kind  string `yaml:"kind" env:"CACHE_KIND"`
		Redis struct {
			Addr     string `yaml:"addr" env:"REDIS_ADDR"`
			Password string `yaml:"password" env:"REDIS_PASSWORD"`
			DB       int    `yaml:"db" env:"REDIS_DB"`
			Prefix   string `yaml:"prefix" env:"REDIS_PREFIX"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Session struct {
		CookieName string        `yaml:"cookie_name" env:"SESSION_COOKIE_NAME"`
		Domain     string        `yaml:"domain" env:"SESSION_DOMAIN"`
		SameSite   string        `yaml:"samesite" env:"SESSION_SAMESITE"`
		Secure     bool          `yaml:"secure" env:"SESSION_SECURE"`
		TTL        time.Duration `yaml:"ttl" env:"SESSION_TTL"`
	} `yaml:"session"`

	Rate struct {
		Enabled bool          `yaml:"enabled" env:"RATE_ENABLED"`
		Limit   int           `yaml:"limit" env:"RATE_LIMIT"`
		Window  time.Duration `yaml:"window" env:"RATE_WINDOW"`
	} `yaml:"rate"`

	SMTP struct {
		Host     string `yaml:"host" env:"SMTP_HOST"`
		Port     int    `yaml:"port" env:"SMTP_PORT"`
		Username string `yaml:"username" env:"SMTP_USERNAME"`
		Password string `yaml:"password" env:"SMTP_PASSWORD"`
		From     string `yaml:"from" env:"SMTP_FROM"`
		TLS      string `yaml:"tls" env:"SMTP_TLS"` // auto | starttls | ssl | none
	} `yaml:"smtp"`

	Mail struct {
		WelcomeEnabled bool `yaml:"welcome_enabled" env:"MAIL_WELCOME_ENABLED"`
	} `yaml:"mail"`
}

// DefaultButtonText is shown when button_text is left empty.
const DefaultButtonText = "Sign in with Yandex"

// Default returns the configuration used on a fresh install.
func Default() Config {
	var c Config
	c.App.Env = "dev"
	c.App.Name = "yandexid"
	c.Log.Level = "info"

	c.Server.Addr = ":8080"
	c.Server.PublicURL = "http://localhost:8080"
	c.Server.ReadTimeout = 10 * time.Second
	c.Server.WriteTimeout = 30 * time.Second
	c.Server.ShutdownTimeout = 10 * time.Second

	c.Yandex.ButtonText = DefaultButtonText
	c.Yandex.ShowOnLogin = true
	c.Yandex.ShowOnRegister = true
	c.Yandex.AutoCreateUsers = true
	c.Yandex.CallbackPath = "/yandex-id-callback/"
	c.Yandex.LandingURL = "/"
	c.Yandex.StateTTL = 10 * time.Minute
	c.Yandex.HTTPTimeout = 5 * time.Second

	c.Storage.Driver = "memory"
	c.Storage.MaxConns = 10
	c.Storage.MinConns = 2
	c.Storage.Migrate = true

	c.Cache.Kind = "memory"
	c.Cache.Redis.Addr = "localhost:6379"
	c.Cache.Redis.Prefix = "yandexid"

	c.Session.CookieName = "yid_session"
	c.Session.SameSite = "Lax"
	c.Session.TTL = 12 * time.Hour

	c.Rate.Enabled = true
	c.Rate.Limit = 30
	c.Rate.Window = time.Minute

	c.SMTP.Port = 587
	c.SMTP.TLS = "auto"
	return c
}

// Load reads path (optional, may be empty) on top of Default and then applies
// environment overrides.
func Load(path string) (*Config, error) {
	c := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("config: env: %w", err)
	}

	c.normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) normalize() {
	c.App.Env = strings.ToLower(strings.TrimSpace(c.App.Env))
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	c.Cache.Kind = strings.ToLower(strings.TrimSpace(c.Cache.Kind))
	c.Server.PublicURL = strings.TrimRight(strings.TrimSpace(c.Server.PublicURL), "/")

	c.Yandex.ClientID = strings.TrimSpace(c.Yandex.ClientID)
	c.Yandex.ClientSecret = strings.TrimSpace(c.Yandex.ClientSecret)
	if strings.TrimSpace(c.Yandex.ButtonText) == "" {
		c.Yandex.ButtonText = DefaultButtonText
	}
	if p := strings.TrimSpace(c.Yandex.CallbackPath); p != "" && !strings.HasPrefix(p, "/") {
		c.Yandex.CallbackPath = "/" + p
	}

	// Guardia dura: en prod la cookie de sesión siempre es Secure.
	if c.App.Env == "prod" {
		c.Session.Secure = true
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Driver {
	case "memory":
	case "postgres", "sqlite":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			errs = append(errs, fmt.Errorf("storage.dsn is required for driver %q", c.Storage.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q is not supported", c.Storage.Driver))
	}

	switch c.Cache.Kind {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("cache.kind %q is not supported", c.Cache.Kind))
	}

	if c.Yandex.StateTTL <= 0 {
		errs = append(errs, errors.New("yandex.state_ttl must be positive"))
	}
	if c.Yandex.HTTPTimeout <= 0 {
		errs = append(errs, errors.New("yandex.http_timeout must be positive"))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("session.ttl must be positive"))
	}
	if c.Rate.Enabled && (c.Rate.Limit <= 0 || c.Rate.Window <= 0) {
		errs = append(errs, errors.New("rate.limit and rate.window must be positive when rate.enabled"))
	}
	if c.Yandex.CallbackPath == "" {
		errs = append(errs, errors.New("yandex.callback_path is required"))
	}
	if !validLanding(c.Yandex.LandingURL) {
		errs = append(errs, fmt.Errorf("yandex.landing_url %q must be a relative path or an http(s) URL", c.Yandex.LandingURL))
	}
	if _, err := url.Parse(c.Server.PublicURL); err != nil || c.Server.PublicURL == "" {
		errs = append(errs, fmt.Errorf("server.public_url %q is invalid", c.Server.PublicURL))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// CallbackURL is the absolute redirect_uri registered at the provider.
func (c *Config) CallbackURL() string {
	return c.Server.PublicURL + c.Yandex.CallbackPath
}

// IsProd reports whether the service runs with production safeguards.
func (c *Config) IsProd() bool { return c.App.Env == "prod" }

func validLanding(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	// "//evil.example" is protocol-relative, not a local path.
	if strings.HasPrefix(s, "/") && !strings.HasPrefix(s, "//") {
		return true
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
