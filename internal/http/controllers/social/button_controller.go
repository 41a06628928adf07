package social

import (
	"net/http"

	httperrors "github.com/dropDatabas3/yandexid/internal/http/errors"
	svc "github.com/dropDatabas3/yandexid/internal/http/services/social"
	"github.com/dropDatabas3/yandexid/internal/observability/logger"
)

// ButtonController serves the login button fragment for host pages.
type ButtonController struct {
	service svc.ButtonService
}

// NewButtonController creates a new ButtonController.
func NewButtonController(service svc.ButtonService) *ButtonController {
	return &ButtonController{service: service}
}

// Button handles GET /yandex-id/button?context=login|register
func (c *ButtonController) Button(w http.ResponseWriter, r *http.Request) {
	html, err := c.service.Render(r.Context(), r.URL.Query().Get("context"))
	if err != nil {
		logger.From(r.Context()).Error("render button failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
		return
	}
	if html == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}
