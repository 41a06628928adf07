package social

import (
	"errors"
	"net/http"
	"strings"

	httperrors "github.com/dropDatabas3/yandexid/internal/http/errors"
	mw "github.com/dropDatabas3/yandexid/internal/http/middlewares"
	"github.com/dropDatabas3/yandexid/internal/http/services/session"
	svc "github.com/dropDatabas3/yandexid/internal/http/services/social"
	"github.com/dropDatabas3/yandexid/internal/observability/logger"
)

// CallbackController handles the Yandex ID redirect_uri.
type CallbackController struct {
	service  svc.CallbackService
	sessions session.Service
	cookies  CookieConfig
	backURL  string
}

// NewCallbackController creates a new CallbackController.
func NewCallbackController(service svc.CallbackService, sessions session.Service, cookies CookieConfig, backURL string) *CallbackController {
	return &CallbackController{service: service, sessions: sessions, cookies: cookies, backURL: backURL}
}

// Callback handles GET /yandex-id-callback/ (with or without trailing slash).
func (c *CallbackController) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("CallbackController.Callback"))

	q := r.URL.Query()
	res, err := c.service.Callback(ctx, svc.CallbackRequest{
		Path:                     r.URL.Path,
		Code:                     strings.TrimSpace(q.Get("code")),
		State:                    strings.TrimSpace(q.Get("state")),
		Binding:                  readBinding(r),
		ProviderError:            strings.TrimSpace(q.Get("error")),
		ProviderErrorDescription: strings.TrimSpace(q.Get("error_description")),
		ClientIP:                 mw.ClientIP(r),
	})
	if errors.Is(err, svc.ErrNotCallback) {
		// Sin code no hay nada que hacer.
		httperrors.WriteError(w, httperrors.ErrNotFound)
		return
	}

	// El binding ya se consumió (o falló): no sirve para otro intento.
	http.SetCookie(w, clearBindingCookie(c.cookies))

	if err != nil {
		appErr := mapCallbackError(err)
		log.Debug("callback rejected", logger.String("code", appErr.Code))
		httperrors.WriteErrorPage(w, appErr, c.backURL)
		return
	}

	http.SetCookie(w, c.sessions.BuildCookie(res.Session))
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, res.RedirectURL, http.StatusFound)
}

// mapCallbackError maps a failed callback to the terminal error page.
func mapCallbackError(err error) *httperrors.AppError {
	ce, ok := svc.AsCallbackError(err)
	if !ok {
		return httperrors.ErrInternalServerError.WithCause(err)
	}

	status := http.StatusInternalServerError
	switch ce.Reason {
	case svc.ReasonInvalidState:
		status = http.StatusBadRequest
	case svc.ReasonTokenExchangeFailed, svc.ReasonProfileFetchFailed:
		status = http.StatusBadGateway
	case svc.ReasonAccountResolutionFailed:
		if errors.Is(ce, svc.ErrAutoCreateDisabled) {
			status = http.StatusForbidden
		}
	}
	return httperrors.New(status, strings.ToUpper(string(ce.Reason)), ce.Reason.Message()).WithCause(err)
}
