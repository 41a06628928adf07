package social

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dropDatabas3/yandexid/internal/cache"
	"github.com/dropDatabas3/yandexid/internal/observability/logger"
	tokens "github.com/dropDatabas3/yandexid/internal/security/token"
)

// PurposeYandexLogin is the state purpose of the Yandex ID login flow.
const PurposeYandexLogin = "yandex_id_oauth"

const (
	stateIssuer = "yandexid"
	// stateLeeway tolera desfase de reloj entre réplicas.
	stateLeeway = 5 * time.Second
)

// StateVerifier emite y valida el parámetro state del flujo OAuth.
type StateVerifier interface {
	// Generate emite un state para purpose, atado al binding del navegador.
	Generate(ctx context.Context, purpose, binding string) (string, error)
	// Verify acepta el state una sola vez, solo para el mismo purpose y binding
	// y dentro de su ventana de validez.
	Verify(ctx context.Context, state, purpose, binding string) error
}

// Errors for state operations.
var (
	ErrStateInvalid  = errors.New("invalid state token")
	ErrStateExpired  = errors.New("state token expired")
	ErrStatePurpose  = errors.New("state purpose mismatch")
	ErrStateBinding  = errors.New("state not bound to this browser")
	ErrStateReplayed = errors.New("state already used")
)

// StateClaims contains the claims for the state JWT.
type StateClaims struct {
	Purpose string `json:"pur"`
	// Binding is sha256(binding cookie), never the raw cookie value.
	Binding string `json:"bnd"`
	jwtv5.RegisteredClaims
}

// StateDeps contains dependencies for the state verifier.
type StateDeps struct {
	// Secret firma los states (HS256). Vacío => aleatorio por proceso.
	Secret []byte
	TTL    time.Duration
	// Cache registra los jti consumidos (SetNX).
	Cache cache.Client
	Now   func() time.Time
}

type stateVerifier struct {
	secret []byte
	ttl    time.Duration
	cache  cache.Client
	now    func() time.Time
}

// NewStateVerifier creates a StateVerifier.
func NewStateVerifier(d StateDeps) (StateVerifier, error) {
	if d.Cache == nil {
		return nil, errors.New("state verifier: cache is required")
	}
	secret := d.Secret
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("state verifier: random secret: %w", err)
		}
		logger.L().Warn("yandex.state_secret not set; using a per-process key (in-flight logins break on restart)",
			logger.Component("social.state"))
	}
	ttl := d.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &stateVerifier{secret: secret, ttl: ttl, cache: d.Cache, now: now}, nil
}

func (v *stateVerifier) Generate(_ context.Context, purpose, binding string) (string, error) {
	if purpose == "" {
		return "", fmt.Errorf("%w: empty purpose", ErrStateInvalid)
	}
	if strings.TrimSpace(binding) == "" {
		return "", fmt.Errorf("%w: empty binding", ErrStateBinding)
	}
	now := v.now().UTC()
	claims := StateClaims{
		Purpose: purpose,
		Binding: tokens.SHA256Base64URL(binding),
		RegisteredClaims: jwtv5.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    stateIssuer,
			IssuedAt:  jwtv5.NewNumericDate(now),
			NotBefore: jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(v.ttl)),
		},
	}
	return jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString(v.secret)
}

func (v *stateVerifier) Verify(ctx context.Context, state, purpose, binding string) error {
	if strings.TrimSpace(state) == "" {
		return fmt.Errorf("%w: empty", ErrStateInvalid)
	}

	claims := &StateClaims{}
	_, err := jwtv5.ParseWithClaims(state, claims,
		func(*jwtv5.Token) (any, error) { return v.secret, nil },
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
		jwtv5.WithIssuer(stateIssuer),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithLeeway(stateLeeway),
		jwtv5.WithTimeFunc(v.now),
	)
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return ErrStateExpired
		}
		return fmt.Errorf("%w: %v", ErrStateInvalid, err)
	}

	if claims.Purpose != purpose {
		return ErrStatePurpose
	}
	if strings.TrimSpace(binding) == "" || !tokens.Equal(claims.Binding, tokens.SHA256Base64URL(binding)) {
		return ErrStateBinding
	}
	if claims.ID == "" {
		return fmt.Errorf("%w: missing jti", ErrStateInvalid)
	}

	// Consumo atómico: solo la primera verificación gana.
	remaining := claims.ExpiresAt.Time.Sub(v.now()) + stateLeeway
	if remaining <= 0 {
		remaining = stateLeeway
	}
	ok, err := v.cache.SetNX(ctx, "state:used:"+claims.ID, "1", remaining)
	if err != nil {
		return fmt.Errorf("%w: replay guard: %v", ErrStateInvalid, err)
	}
	if !ok {
		return ErrStateReplayed
	}
	return nil
}
