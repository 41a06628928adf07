package social

import (
	"context"
	"strings"
	"time"

	"github.com/dropDatabas3/yandexid/internal/domain/repository"
	"github.com/dropDatabas3/yandexid/internal/events"
	"github.com/dropDatabas3/yandexid/internal/http/services/session"
	"github.com/dropDatabas3/yandexid/internal/oauth/yandex"
	"github.com/dropDatabas3/yandexid/internal/observability/logger"
)

// TokenExchanger cambia el authorization code por un access token.
type TokenExchanger interface {
	Exchange(ctx context.Context, code string) (string, error)
}

// ProfileFetcher obtiene el perfil de Yandex con el access token.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, accessToken string) (*yandex.Profile, error)
}

// SessionEstablisher crea la sesión local.
type SessionEstablisher interface {
	Establish(ctx context.Context, acc *repository.Account) (*session.Session, error)
}

// CallbackDeps contains dependencies for callback service.
type CallbackDeps struct {
	// CallbackPath es la ruta registrada como redirect_uri ("/yandex-id-callback/").
	CallbackPath string
	// LandingURL es el destino tras un login exitoso.
	LandingURL string

	Verifier StateVerifier
	Exchange TokenExchanger
	Profiles ProfileFetcher
	Resolver AccountResolver
	Sessions SessionEstablisher
	Events   events.Publisher // opcional

	Now func() time.Time
}

type callbackService struct {
	path     string
	landing  string
	verifier StateVerifier
	exchange TokenExchanger
	profiles ProfileFetcher
	resolver AccountResolver
	sessions SessionEstablisher
	events   events.Publisher
	now      func() time.Time
}

// NewCallbackService creates a new CallbackService.
func NewCallbackService(d CallbackDeps) CallbackService {
	path := d.CallbackPath
	if path == "" {
		path = "/yandex-id-callback/"
	}
	landing := d.LandingURL
	if landing == "" {
		landing = "/"
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &callbackService{
		path:     normalizePath(path),
		landing:  landing,
		verifier: d.Verifier,
		exchange: d.Exchange,
		profiles: d.Profiles,
		resolver: d.Resolver,
		sessions: d.Sessions,
		events:   d.Events,
		now:      now,
	}
}

// normalizePath ignora la barra final: "/yandex-id-callback" y
// "/yandex-id-callback/" son la misma ruta.
func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p != "/" {
		p = strings.TrimRight(p, "/")
	}
	return p
}

func (s *callbackService) Callback(ctx context.Context, req CallbackRequest) (*CallbackResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("social.callback"))

	// Idle: no es nuestro request.
	if normalizePath(req.Path) != s.path {
		return nil, ErrNotCallback
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		if req.ProviderError != "" {
			log.Info("provider returned an error instead of a code",
				logger.String("error", req.ProviderError),
				logger.String("error_description", req.ProviderErrorDescription),
			)
		}
		return nil, ErrNotCallback
	}
	stage := StageCodeReceived

	if err := s.verifier.Verify(ctx, req.State, PurposeYandexLogin, req.Binding); err != nil {
		return nil, s.fail(ctx, req, stage, ReasonInvalidState, err)
	}
	stage = StageStateVerified

	accessToken, err := s.exchange.Exchange(ctx, code)
	if err != nil {
		return nil, s.fail(ctx, req, stage, ReasonTokenExchangeFailed, err)
	}
	stage = StageTokenObtained

	profile, err := s.profiles.FetchProfile(ctx, accessToken)
	if err != nil {
		return nil, s.fail(ctx, req, stage, ReasonProfileFetchFailed, err)
	}
	stage = StageProfileObtained

	res, err := s.resolver.Resolve(ctx, profile)
	if err != nil {
		return nil, s.fail(ctx, req, stage, ReasonAccountResolutionFailed, err)
	}
	stage = StageAccountResolved

	sess, err := s.sessions.Establish(ctx, res.Account)
	if err != nil {
		return nil, s.fail(ctx, req, stage, ReasonSessionFailed, err)
	}
	stage = StageSessionEstablished

	acc := res.Account
	log.Info("yandex id login completed",
		logger.AccountID(acc.ID),
		logger.ProviderID(profile.ID),
		logger.Bool("created", res.Created),
		logger.Bool("linked", res.Linked),
	)

	if s.events != nil {
		s.events.PublishLoginSucceeded(ctx, events.LoginSucceeded{
			AccountID:      acc.ID,
			Username:       acc.Username,
			Email:          acc.Email,
			DisplayName:    acc.DisplayName,
			ProviderUserID: profile.ID,
			Created:        res.Created,
			Linked:         res.Linked,
			ClientIP:       req.ClientIP,
			At:             s.now().UTC(),
		})
	}

	return &CallbackResult{
		Account:     AccountView{ID: acc.ID, Username: acc.Username},
		Created:     res.Created,
		Linked:      res.Linked,
		Session:     sess,
		RedirectURL: s.landing,
		Stage:       stage,
	}, nil
}

// fail registra el fallo, publica LoginFailed y devuelve el *CallbackError.
func (s *callbackService) fail(ctx context.Context, req CallbackRequest, stage Stage, reason Reason, err error) error {
	ce := &CallbackError{Stage: stage, Reason: reason, Err: err}

	logger.From(ctx).Warn("yandex id login failed",
		logger.Component("social.callback"),
		logger.Stage(string(stage)),
		logger.Reason(string(reason)),
		logger.String("cause", ce.Cause()),
		logger.Err(err),
	)

	if s.events != nil {
		s.events.PublishLoginFailed(ctx, events.LoginFailed{
			Stage:    string(stage),
			Reason:   string(reason),
			Cause:    ce.Cause(),
			ClientIP: req.ClientIP,
			At:       s.now().UTC(),
		})
	}
	return ce
}
