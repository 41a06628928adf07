package social

import (
	"encoding/json"
	"errors"
	"net/http"

	dto "github.com/dropDatabas3/yandexid/internal/http/dto/session"
	httperrors "github.com/dropDatabas3/yandexid/internal/http/errors"
	"github.com/dropDatabas3/yandexid/internal/http/services/session"
	"github.com/dropDatabas3/yandexid/internal/observability/logger"
)

// SessionController exposes the current session to the host application.
type SessionController struct {
	sessions session.Service
}

// NewSessionController creates a new SessionController.
func NewSessionController(sessions session.Service) *SessionController {
	return &SessionController{sessions: sessions}
}

func (c *SessionController) sessionID(r *http.Request) string {
	ck, err := r.Cookie(c.sessions.CookieName())
	if err != nil {
		return ""
	}
	return ck.Value
}

// Me handles GET /yandex-id/me
func (c *SessionController) Me(w http.ResponseWriter, r *http.Request) {
	p, err := c.sessions.Lookup(r.Context(), c.sessionID(r))
	if err != nil {
		if !errors.Is(err, session.ErrSessionNotFound) {
			logger.From(r.Context()).Error("session lookup failed", logger.Err(err))
			httperrors.WriteError(w, httperrors.ErrServiceUnavailable)
			return
		}
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(dto.MeResponse{AccountID: p.AccountID, Username: p.Username})
}

// Logout handles POST /yandex-id/logout
func (c *SessionController) Logout(w http.ResponseWriter, r *http.Request) {
	if err := c.sessions.Revoke(r.Context(), c.sessionID(r)); err != nil {
		logger.From(r.Context()).Warn("session revoke failed", logger.Err(err))
	}
	http.SetCookie(w, c.sessions.ClearCookie())
	w.WriteHeader(http.StatusNoContent)
}
