package social

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dropDatabas3/yandexid/internal/observability/logger"
	tokens "github.com/dropDatabas3/yandexid/internal/security/token"
)

// StartService handles the start phase of the Yandex ID login.
type StartService interface {
	// Start mints a state bound to the browser and returns the authorize URL.
	Start(ctx context.Context, req StartRequest) (*StartResult, error)
}

// StartRequest contains the parameters for starting the login.
type StartRequest struct {
	// Binding existente del navegador; vacío => se genera uno nuevo.
	Binding string
}

// StartResult contains the result of starting the login.
type StartResult struct {
	RedirectURL string
	// Binding debe quedar en la cookie del navegador hasta el callback.
	Binding string
}

// AuthURLBuilder arma la URL de autorización de Yandex.
type AuthURLBuilder interface {
	Configured() bool
	AuthURL(state string) string
}

// Errors for start service.
var (
	ErrNotConfigured      = errors.New("yandex id login is not configured")
	ErrStartAuthURLFailed = errors.New("failed to generate auth URL")
)

// StartDeps contains dependencies for start service.
type StartDeps struct {
	Verifier StateVerifier
	Provider AuthURLBuilder
}

type startService struct {
	verifier StateVerifier
	provider AuthURLBuilder
}

// NewStartService creates a new StartService.
func NewStartService(d StartDeps) StartService {
	return &startService{verifier: d.Verifier, provider: d.Provider}
}

func (s *startService) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("social.start"))

	if s.provider == nil || !s.provider.Configured() {
		return nil, ErrNotConfigured
	}

	binding := strings.TrimSpace(req.Binding)
	if binding == "" {
		b, err := tokens.GenerateOpaqueToken(32)
		if err != nil {
			return nil, fmt.Errorf("%w: binding: %v", ErrStartAuthURLFailed, err)
		}
		binding = b
	}

	state, err := s.verifier.Generate(ctx, PurposeYandexLogin, binding)
	if err != nil {
		log.Error("failed to mint state", logger.Err(err))
		return nil, fmt.Errorf("%w: %v", ErrStartAuthURLFailed, err)
	}

	return &StartResult{RedirectURL: s.provider.AuthURL(state), Binding: binding}, nil
}
