package social

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dropDatabas3/yandexid/internal/domain/repository"
	"github.com/dropDatabas3/yandexid/internal/oauth/yandex"
	"github.com/dropDatabas3/yandexid/internal/observability/logger"
	"github.com/dropDatabas3/yandexid/internal/security/password"
)

// ResolverDeps contains dependencies for the account resolver.
type ResolverDeps struct {
	Accounts repository.AccountRepository
	// AutoCreate is read on every call so a config reload applies immediately.
	AutoCreate func() bool
	// PasswordParams for the throwaway password hash (default password.Default).
	PasswordParams *password.Params
	// MaxSuffix bounds the username suffix search (default 1000).
	MaxSuffix int
}

type resolver struct {
	accounts   repository.AccountRepository
	autoCreate func() bool
	params     password.Params
	maxSuffix  int
}

// NewResolver creates an AccountResolver.
func NewResolver(d ResolverDeps) AccountResolver {
	params := password.Default
	if d.PasswordParams != nil {
		params = *d.PasswordParams
	}
	maxSuffix := d.MaxSuffix
	if maxSuffix <= 0 {
		maxSuffix = 1000
	}
	autoCreate := d.AutoCreate
	if autoCreate == nil {
		autoCreate = func() bool { return true }
	}
	return &resolver{
		accounts:   d.Accounts,
		autoCreate: autoCreate,
		params:     params,
		maxSuffix:  maxSuffix,
	}
}

func (r *resolver) Resolve(ctx context.Context, p *yandex.Profile) (*Resolution, error) {
	if p == nil || strings.TrimSpace(p.ID) == "" {
		return nil, ErrProfileIncomplete
	}
	providerID := strings.TrimSpace(p.ID)
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("social.resolver"),
		logger.ProviderID(providerID),
	)

	// 1. Cuenta ya vinculada.
	if acc, err := r.byProviderID(ctx, providerID); err != nil || acc != nil {
		if err != nil {
			return nil, err
		}
		return &Resolution{Account: acc}, nil
	}

	// 2. Misma dirección de email: vincular.
	if email := strings.TrimSpace(p.Email); email != "" {
		acc, err := r.accounts.FindByEmail(ctx, email)
		switch {
		case err == nil:
			return r.link(ctx, acc, providerID)
		case !repository.IsNotFound(err):
			log.Error("lookup by email failed", logger.Err(err))
			return nil, fmt.Errorf("%w: %v", ErrAccountLookupFailed, err)
		}
	}

	// 3. Crear.
	if !r.autoCreate() {
		log.Info("no matching account and auto-create disabled")
		return nil, ErrAutoCreateDisabled
	}
	return r.create(ctx, p, providerID)
}

// byProviderID returns the oldest linked account, or nil.
func (r *resolver) byProviderID(ctx context.Context, providerID string) (*repository.Account, error) {
	accs, err := r.accounts.FindByProviderID(ctx, providerID)
	if err != nil {
		logger.From(ctx).Error("lookup by provider id failed", logger.ProviderID(providerID), logger.Err(err))
		return nil, fmt.Errorf("%w: %v", ErrAccountLookupFailed, err)
	}
	if len(accs) == 0 {
		return nil, nil
	}
	if len(accs) > 1 {
		logger.From(ctx).Warn("data integrity: provider id linked to several accounts; using the oldest",
			logger.Component("social.resolver"),
			logger.ProviderID(providerID),
			logger.Int("matches", len(accs)),
			logger.AccountID(accs[0].ID),
		)
	}
	acc := accs[0]
	return &acc, nil
}

func (r *resolver) link(ctx context.Context, acc *repository.Account, providerID string) (*Resolution, error) {
	log := logger.From(ctx).With(
		logger.Component("social.resolver"),
		logger.AccountID(acc.ID),
		logger.ProviderID(providerID),
	)
	if acc.LinkedProviderID != "" && acc.LinkedProviderID != providerID {
		log.Warn("replacing existing provider link on email match",
			logger.String("previous_provider_user_id", acc.LinkedProviderID))
	}

	err := r.accounts.LinkProvider(ctx, acc.ID, providerID)
	if errors.Is(err, repository.ErrProviderLinked) {
		// Otro callback concurrente vinculó este id primero: gana ese.
		winner, lerr := r.byProviderID(ctx, providerID)
		if lerr != nil {
			return nil, lerr
		}
		if winner != nil {
			return &Resolution{Account: winner}, nil
		}
	}
	if err != nil {
		log.Error("link provider failed", logger.Err(err))
		return nil, fmt.Errorf("%w: link: %v", ErrAccountLookupFailed, err)
	}

	acc.LinkedProviderID = providerID
	log.Info("linked provider id to account by email")
	return &Resolution{Account: acc, Linked: true}, nil
}

func (r *resolver) create(ctx context.Context, p *yandex.Profile, providerID string) (*Resolution, error) {
	log := logger.From(ctx).With(logger.Component("social.resolver"), logger.ProviderID(providerID))

	plain, err := password.Random(24)
	if err != nil {
		return nil, fmt.Errorf("%w: password: %v", ErrAccountCreationFailed, err)
	}
	hash, err := password.Hash(r.params, plain)
	if err != nil {
		return nil, fmt.Errorf("%w: password: %v", ErrAccountCreationFailed, err)
	}

	displayName := strings.TrimSpace(p.DisplayName)
	base := BaseUsername(p)

	// base, base1, base2, ... hasta encontrar uno libre.
	for n := 0; n <= r.maxSuffix; n++ {
		username := withSuffix(base, n)
		taken, err := r.accounts.UsernameExists(ctx, username)
		if err != nil {
			log.Error("username check failed", logger.Err(err))
			return nil, fmt.Errorf("%w: username check: %v", ErrAccountCreationFailed, err)
		}
		if taken {
			continue
		}

		name := displayName
		if name == "" {
			name = username
		}
		acc, err := r.accounts.Create(ctx, repository.CreateAccountInput{
			Username:         username,
			Email:            strings.TrimSpace(p.Email),
			DisplayName:      name,
			FirstName:        strings.TrimSpace(p.FirstName),
			LastName:         strings.TrimSpace(p.LastName),
			PasswordHash:     hash,
			LinkedProviderID: providerID,
			AvatarURL:        p.AvatarURL(),
		})
		switch {
		case err == nil:
			log.Info("account created", logger.AccountID(acc.ID), logger.Username(acc.Username))
			return &Resolution{Account: acc, Created: true}, nil

		case errors.Is(err, repository.ErrProviderLinked):
			// Callback duplicado: el otro ya creó la cuenta.
			winner, lerr := r.byProviderID(ctx, providerID)
			if lerr == nil && winner != nil {
				log.Info("concurrent creation for provider id; using existing account", logger.AccountID(winner.ID))
				return &Resolution{Account: winner}, nil
			}
			return nil, fmt.Errorf("%w: %v", ErrAccountCreationFailed, err)

		case errors.Is(err, repository.ErrUsernameTaken):
			// Alguien tomó el nombre entre el chequeo y el insert.
			log.Debug("username taken at insert; retrying", logger.Username(username))
			continue

		default:
			log.Error("create account failed", logger.Err(err))
			return nil, fmt.Errorf("%w: %v", ErrAccountCreationFailed, err)
		}
	}
	return nil, fmt.Errorf("%w: no free username for %q", ErrAccountCreationFailed, base)
}
