// Package session mantiene las sesiones del navegador: payload en cache bajo
// "sid:<sha256(id)>" y el id opaco en una cookie HttpOnly.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dropDatabas3/yandexid/internal/cache"
	"github.com/dropDatabas3/yandexid/internal/domain/repository"
	"github.com/dropDatabas3/yandexid/internal/observability/logger"
	tokens "github.com/dropDatabas3/yandexid/internal/security/token"
)

// Service defines session operations.
type Service interface {
	// Establish crea una sesión para la cuenta y devuelve su id opaco.
	Establish(ctx context.Context, acc *repository.Account) (*Session, error)
	// Lookup devuelve el payload de una sesión vigente.
	Lookup(ctx context.Context, sessionID string) (*Payload, error)
	// Revoke elimina la sesión. Idempotente.
	Revoke(ctx context.Context, sessionID string) error

	BuildCookie(s *Session) *http.Cookie
	ClearCookie() *http.Cookie
	CookieName() string
}

// Session es el resultado de Establish.
type Session struct {
	ID        string
	AccountID string
	ExpiresAt time.Time
}

// Payload es lo que se guarda en cache.
type Payload struct {
	AccountID string    `json:"account_id"`
	Username  string    `json:"username"`
	Provider  string    `json:"provider"`
	Created   time.Time `json:"created"`
	Expires   time.Time `json:"expires"`
}

// Config contains cookie and lifetime settings.
type Config struct {
	CookieName   string        // Cookie name (default: "yid_session")
	CookieDomain string        // Cookie domain
	SameSite     string        // SameSite policy ("Lax", "Strict", "None")
	Secure       bool          // Secure flag for cookie
	TTL          time.Duration // default 12h
}

// Deps contains dependencies for the session service.
type Deps struct {
	Cache  cache.Client
	Config Config
}

// Service errors
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionFailed   = errors.New("failed to create session")
)

type service struct {
	cache  cache.Client
	config Config
	now    func() time.Time
}

// NewService creates a new session Service.
func NewService(d Deps) Service {
	cfg := d.Config
	if cfg.CookieName == "" {
		cfg.CookieName = "yid_session"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 12 * time.Hour
	}
	return &service{cache: d.Cache, config: cfg, now: time.Now}
}

func key(sessionID string) string {
	return "sid:" + tokens.SHA256Base64URL(sessionID)
}

func (s *service) Establish(ctx context.Context, acc *repository.Account) (*Session, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("session"),
		logger.Op("Establish"),
	)
	if acc == nil || acc.ID == "" {
		return nil, fmt.Errorf("%w: missing account", ErrSessionFailed)
	}

	sessionID, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		log.Error("failed to generate session ID", logger.Err(err))
		return nil, fmt.Errorf("%w: %v", ErrSessionFailed, err)
	}

	now := s.now().UTC()
	payload := Payload{
		AccountID: acc.ID,
		Username:  acc.Username,
		Provider:  "yandex",
		Created:   now,
		Expires:   now.Add(s.config.TTL),
	}
	b, _ := json.Marshal(payload)
	if err := s.cache.Set(ctx, key(sessionID), string(b), s.config.TTL); err != nil {
		log.Error("failed to store session in cache", logger.Err(err))
		return nil, fmt.Errorf("%w: %v", ErrSessionFailed, err)
	}

	log.Debug("session created", logger.AccountID(acc.ID))
	return &Session{ID: sessionID, AccountID: acc.ID, ExpiresAt: payload.Expires}, nil
}

func (s *service) Lookup(ctx context.Context, sessionID string) (*Payload, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrSessionNotFound
	}
	raw, err := s.cache.Get(ctx, key(sessionID))
	if cache.IsNotFound(err) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session lookup: %w", err)
	}
	var p Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, ErrSessionNotFound
	}
	if !p.Expires.IsZero() && s.now().After(p.Expires) {
		return nil, ErrSessionNotFound
	}
	return &p, nil
}

func (s *service) Revoke(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return nil
	}
	return s.cache.Delete(ctx, key(sessionID))
}

func (s *service) CookieName() string { return s.config.CookieName }

// BuildCookie creates the session cookie.
func (s *service) BuildCookie(sess *Session) *http.Cookie {
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		ttl = s.config.TTL
	}
	return &http.Cookie{
		Name:     s.config.CookieName,
		Value:    sess.ID,
		Path:     "/",
		Domain:   s.config.CookieDomain,
		MaxAge:   int(ttl.Seconds()),
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   s.config.Secure,
		SameSite: ParseSameSite(s.config.SameSite),
	}
}

// ClearCookie borra la cookie de sesión en el navegador.
func (s *service) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     s.config.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   s.config.CookieDomain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.config.Secure,
		SameSite: ParseSameSite(s.config.SameSite),
	}
}

// ParseSameSite mapea "Strict"/"None"/"Lax" (case-insensitive); default Lax.
func ParseSameSite(v string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
