package social

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/yandexid/internal/http/services/session"
)

// CallbackService handles the redirect back from Yandex ID.
type CallbackService interface {
	// Callback recorre el flujo completo. ErrNotCallback significa que el
	// request no es un callback (otra ruta o sin code) y no se hizo nada.
	Callback(ctx context.Context, req CallbackRequest) (*CallbackResult, error)
}

// Stage is a step of the callback flow.
type Stage string

const (
	StageIdle               Stage = "idle"
	StageCodeReceived       Stage = "code_received"
	StageStateVerified      Stage = "state_verified"
	StageTokenObtained      Stage = "token_obtained"
	StageProfileObtained    Stage = "profile_obtained"
	StageAccountResolved    Stage = "account_resolved"
	StageSessionEstablished Stage = "session_established"
)

// Reason classifies a failed callback.
type Reason string

const (
	ReasonInvalidState            Reason = "invalid_state"
	ReasonTokenExchangeFailed     Reason = "token_exchange_failed"
	ReasonProfileFetchFailed      Reason = "profile_fetch_failed"
	ReasonAccountResolutionFailed Reason = "account_resolution_failed"
	ReasonSessionFailed           Reason = "session_failed"
)

// Message is the text shown to the user on the error page.
func (r Reason) Message() string {
	switch r {
	case ReasonInvalidState:
		return "Invalid security token."
	case ReasonTokenExchangeFailed:
		return "Failed to get access token from Yandex."
	case ReasonProfileFetchFailed:
		return "Failed to get user information from Yandex."
	case ReasonAccountResolutionFailed:
		return "Failed to create user account."
	case ReasonSessionFailed:
		return "Failed to sign you in. Please try again."
	default:
		return "Yandex ID login failed."
	}
}

// CallbackRequest contains the parameters of the callback request.
type CallbackRequest struct {
	Path  string
	Code  string
	State string
	// Binding es el valor de la cookie anónima del navegador.
	Binding string

	ProviderError            string
	ProviderErrorDescription string
	ClientIP                 string
}

// CallbackResult contains the result of a successful callback.
type CallbackResult struct {
	Account     AccountView
	Created     bool
	Linked      bool
	Session     *session.Session
	RedirectURL string
	Stage       Stage
}

// AccountView is the subset of the account the controller needs.
type AccountView struct {
	ID       string
	Username string
}

// CallbackError is returned when the flow ends in Failed.
type CallbackError struct {
	// Stage is the last stage reached before the failure.
	Stage  Stage
	Reason Reason
	Err    error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("yandex callback failed at %s: %s: %v", e.Stage, e.Reason, e.Err)
}

func (e *CallbackError) Unwrap() error { return e.Err }

// Cause returns a stable code for the underlying error, e.g.
// "auto_create_disabled" for a resolution failure.
func (e *CallbackError) Cause() string {
	switch {
	case errors.Is(e.Err, ErrAutoCreateDisabled):
		return "auto_create_disabled"
	case errors.Is(e.Err, ErrAccountCreationFailed):
		return "account_creation_failed"
	case errors.Is(e.Err, ErrProfileIncomplete):
		return "profile_incomplete"
	case errors.Is(e.Err, ErrStateExpired):
		return "state_expired"
	case errors.Is(e.Err, ErrStateReplayed):
		return "state_replayed"
	case errors.Is(e.Err, ErrStateBinding):
		return "state_binding"
	case errors.Is(e.Err, ErrStatePurpose):
		return "state_purpose"
	default:
		return ""
	}
}

// AsCallbackError extracts a *CallbackError from err.
func AsCallbackError(err error) (*CallbackError, bool) {
	var ce *CallbackError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// ErrNotCallback: the request is not a Yandex ID callback.
var ErrNotCallback = errors.New("not a yandex id callback")
