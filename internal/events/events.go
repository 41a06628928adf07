// Package events es un bus in-process para los eventos del login con Yandex ID.
// Los listeners corren de forma síncrona en el orden de suscripción; un panic
// en un listener se registra y no afecta al resto ni al request.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/dropDatabas3/yandexid/internal/observability/logger"
)

// LoginSucceeded se publica cuando el callback termina con sesión establecida.
type LoginSucceeded struct {
	AccountID      string
	Username       string
	Email          string
	DisplayName    string
	ProviderUserID string
	// Created: la cuenta se creó en este login. Linked: se vinculó por email.
	Created  bool
	Linked   bool
	ClientIP string
	At       time.Time
}

// LoginFailed se publica cuando el callback termina en Failed.
type LoginFailed struct {
	Stage    string
	Reason   string
	Cause    string
	ClientIP string
	At       time.Time
}

// Listener recibe los eventos del bus.
type Listener interface {
	OnLoginSucceeded(ctx context.Context, e LoginSucceeded)
	OnLoginFailed(ctx context.Context, e LoginFailed)
}

// Publisher es lo que consume el servicio de callback.
type Publisher interface {
	PublishLoginSucceeded(ctx context.Context, e LoginSucceeded)
	PublishLoginFailed(ctx context.Context, e LoginFailed)
}

// Bus implementa Publisher.
type Bus struct {
	mu        sync.RWMutex
	listeners []Listener
}

// NewBus crea un bus con los listeners dados.
func NewBus(ls ...Listener) *Bus {
	b := &Bus{}
	for _, l := range ls {
		b.Subscribe(l)
	}
	return b
}

// Subscribe agrega un listener. nil se ignora.
func (b *Bus) Subscribe(l Listener) {
	if l == nil {
		return
	}
	b.mu.Lock()
	b.listeners = append(b.listeners, l)
	b.mu.Unlock()
}

func (b *Bus) snapshot() []Listener {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Listener, len(b.listeners))
	copy(out, b.listeners)
	return out
}

func (b *Bus) PublishLoginSucceeded(ctx context.Context, e LoginSucceeded) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	for _, l := range b.snapshot() {
		dispatch(ctx, "login_succeeded", func() { l.OnLoginSucceeded(ctx, e) })
	}
}

func (b *Bus) PublishLoginFailed(ctx context.Context, e LoginFailed) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	for _, l := range b.snapshot() {
		dispatch(ctx, "login_failed", func() { l.OnLoginFailed(ctx, e) })
	}
}

func dispatch(ctx context.Context, name string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.From(ctx).Error("event listener panic",
				logger.Component("events"),
				logger.String("event", name),
				logger.Any("panic", rec),
			)
		}
	}()
	fn()
}
