package social

import (
	"errors"
	"net/http"

	httperrors "github.com/dropDatabas3/yandexid/internal/http/errors"
	svc "github.com/dropDatabas3/yandexid/internal/http/services/social"
	"github.com/dropDatabas3/yandexid/internal/observability/logger"
)

// StartController handles the start of the Yandex ID login.
type StartController struct {
	service svc.StartService
	cookies CookieConfig
}

// NewStartController creates a new StartController.
func NewStartController(service svc.StartService, cookies CookieConfig) *StartController {
	return &StartController{service: service, cookies: cookies}
}

// Start handles GET /yandex-id/login
func (c *StartController) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("StartController.Start"))

	res, err := c.service.Start(ctx, svc.StartRequest{Binding: readBinding(r)})
	if err != nil {
		if errors.Is(err, svc.ErrNotConfigured) {
			log.Warn("login started but yandex client_id is not set")
			httperrors.WriteErrorPage(w, httperrors.ErrNotConfigured, "")
			return
		}
		log.Error("start failed", logger.Err(err))
		httperrors.WriteErrorPage(w, httperrors.ErrInternalServerError.WithCause(err), "")
		return
	}

	http.SetCookie(w, bindingCookie(c.cookies, res.Binding))
	http.Redirect(w, r, res.RedirectURL, http.StatusFound)
}
