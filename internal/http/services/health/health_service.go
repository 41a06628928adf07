// Package health contiene el service para health checks.
package health

import (
	"context"
	"fmt"
	"time"

	dto "github.com/dropDatabas3/yandexid/internal/http/dto/health"
	"github.com/dropDatabas3/yandexid/internal/observability/logger"
)

// HealthService define las operaciones de health check.
type HealthService interface {
	Check(ctx context.Context) dto.HealthResponse
}

// Deps contiene las dependencias inyectables para el health service.
// Un check nil se reporta como "disabled".
type Deps struct {
	Version    string
	StoreCheck func(ctx context.Context) error
	CacheCheck func(ctx context.Context) error
	// Configured indica si hay client_id; sin él el login está apagado pero
	// el servicio sigue listo.
	Configured func() bool
	Timeout    time.Duration
}

type healthService struct {
	deps Deps
}

// NewHealthService crea un nuevo service de health check.
func NewHealthService(deps Deps) HealthService {
	if deps.Timeout <= 0 {
		deps.Timeout = 2 * time.Second
	}
	return &healthService{deps: deps}
}

func (s *healthService) Check(ctx context.Context) dto.HealthResponse {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("health"),
		logger.Op("Check"),
	)

	ctx, cancel := context.WithTimeout(ctx, s.deps.Timeout)
	defer cancel()

	resp := dto.HealthResponse{
		Status:     "ready",
		Version:    s.deps.Version,
		Components: make(map[string]dto.HealthStatus),
		Timestamp:  time.Now().UTC(),
	}

	check := func(name string, fn func(context.Context) error) {
		if fn == nil {
			resp.Components[name] = dto.HealthStatus{Status: "disabled"}
			return
		}
		if err := fn(ctx); err != nil {
			resp.Components[name] = dto.HealthStatus{Status: "error", Message: fmt.Sprintf("unavailable: %v", err)}
			resp.Status = "unavailable"
			log.Error(name+" unavailable", logger.Err(err))
			return
		}
		resp.Components[name] = dto.HealthStatus{Status: "ok"}
	}
	check("store", s.deps.StoreCheck)
	check("cache", s.deps.CacheCheck)

	if s.deps.Configured != nil {
		if s.deps.Configured() {
			resp.Components["yandex"] = dto.HealthStatus{Status: "ok"}
		} else {
			resp.Components["yandex"] = dto.HealthStatus{Status: "disabled", Message: "client_id not set"}
		}
	}
	return resp
}
