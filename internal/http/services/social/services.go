// Package social implements the Yandex ID login flow: state, start,
// callback orchestration, account resolution and the login button.
package social

// Services agrupa los servicios del dominio social.
type Services struct {
	State    StateVerifier
	Start    StartService
	Callback CallbackService
	Button   ButtonService
	Resolver AccountResolver
}
