package events

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/dropDatabas3/yandexid/internal/audit"
	"github.com/dropDatabas3/yandexid/internal/email"
	"github.com/dropDatabas3/yandexid/internal/metrics"
	"github.com/dropDatabas3/yandexid/internal/observability/logger"
)

// MetricsListener cuenta resultados y caminos de resolución en Prometheus.
type MetricsListener struct{}

func (MetricsListener) OnLoginSucceeded(_ context.Context, e LoginSucceeded) {
	metrics.LoginOutcomes.WithLabelValues("success", "").Inc()
	path := "existing"
	switch {
	case e.Created:
		path = "created"
	case e.Linked:
		path = "linked"
	}
	metrics.AccountResolutions.WithLabelValues(path).Inc()
}

func (MetricsListener) OnLoginFailed(_ context.Context, e LoginFailed) {
	metrics.LoginOutcomes.WithLabelValues("failed", e.Reason).Inc()
}

// AuditListener escribe cada resultado en el log de auditoría.
type AuditListener struct{}

func (AuditListener) OnLoginSucceeded(ctx context.Context, e LoginSucceeded) {
	audit.Log(ctx, "yandex_login.succeeded",
		logger.AccountID(e.AccountID),
		logger.ProviderID(e.ProviderUserID),
		logger.Username(e.Username),
		logger.Bool("created", e.Created),
		logger.Bool("linked", e.Linked),
		logger.ClientIP(e.ClientIP),
	)
}

func (AuditListener) OnLoginFailed(ctx context.Context, e LoginFailed) {
	audit.Log(ctx, "yandex_login.failed",
		logger.Stage(e.Stage),
		logger.Reason(e.Reason),
		zap.String("cause", e.Cause),
		logger.ClientIP(e.ClientIP),
	)
}

// WelcomeMailListener envía la bienvenida cuando el login creó la cuenta.
// El envío corre en background para no demorar el redirect.
type WelcomeMailListener struct {
	Sender  email.Sender
	SiteURL string

	inflight sync.WaitGroup
}

// Wait bloquea hasta que terminen los envíos en curso.
func (w *WelcomeMailListener) Wait() { w.inflight.Wait() }

func (w *WelcomeMailListener) OnLoginSucceeded(ctx context.Context, e LoginSucceeded) {
	if w == nil || w.Sender == nil || !e.Created || e.Email == "" {
		return
	}
	log := logger.From(ctx).With(logger.Component("events.welcome_mail"), logger.AccountID(e.AccountID))

	name := e.DisplayName
	if name == "" {
		name = e.Username
	}
	subject, html, text, err := email.RenderWelcome(email.WelcomeVars{
		DisplayName: name,
		Username:    e.Username,
		SiteURL:     w.SiteURL,
	})
	if err != nil {
		log.Error("render welcome mail failed", logger.Err(err))
		return
	}

	w.inflight.Add(1)
	go func() {
		defer w.inflight.Done()
		if err := w.Sender.Send(e.Email, subject, html, text); err != nil {
			log.Warn("welcome mail not sent", logger.Email(e.Email), logger.Err(err))
			return
		}
		log.Info("welcome mail sent", logger.Email(e.Email))
	}()
}

func (w *WelcomeMailListener) OnLoginFailed(context.Context, LoginFailed) {}
