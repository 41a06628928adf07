// Package social contains the HTTP controllers of the Yandex ID login.
package social

import (
	"net/http"
	"time"

	"github.com/dropDatabas3/yandexid/internal/http/services/session"
	svc "github.com/dropDatabas3/yandexid/internal/http/services/social"
)

// BindingCookieName guarda el binding anónimo del navegador entre el start
// y el callback.
const BindingCookieName = "yid_state"

// CookieConfig controla los atributos de la cookie de binding.
type CookieConfig struct {
	Domain string
	Secure bool
	// TTL debería coincidir con yandex.state_ttl.
	TTL time.Duration
}

// Controllers agrupa todos los controllers del dominio social.
type Controllers struct {
	Start    *StartController
	Callback *CallbackController
	Button   *ButtonController
	Session  *SessionController
}

// NewControllers creates the social controllers aggregator.
func NewControllers(s svc.Services, sessions session.Service, cookies CookieConfig, backURL string) *Controllers {
	return &Controllers{
		Start:    NewStartController(s.Start, cookies),
		Callback: NewCallbackController(s.Callback, sessions, cookies, backURL),
		Button:   NewButtonController(s.Button),
		Session:  NewSessionController(sessions),
	}
}

func bindingCookie(cfg CookieConfig, value string) *http.Cookie {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &http.Cookie{
		Name:     BindingCookieName,
		Value:    value,
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		// Lax: el regreso desde oauth.yandex.ru es una navegación top-level GET.
		SameSite: http.SameSiteLaxMode,
	}
}

func clearBindingCookie(cfg CookieConfig) *http.Cookie {
	c := bindingCookie(cfg, "")
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	return c
}

func readBinding(r *http.Request) string {
	c, err := r.Cookie(BindingCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
