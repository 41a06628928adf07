package social

import (
	"bytes"
	"context"
	"html/template"
	"strings"
)

// Button contexts.
const (
	ButtonLogin    = "login"
	ButtonRegister = "register"
)

// ButtonSettings is the part of the configuration the button depends on.
type ButtonSettings struct {
	ClientID       string
	ButtonText     string
	ShowOnLogin    bool
	ShowOnRegister bool
}

// ButtonService renders the "Sign in with Yandex" button.
type ButtonService interface {
	// Render devuelve el fragmento HTML, o "" cuando el botón no debe mostrarse
	// (toggle apagado para ese contexto o client_id vacío).
	Render(ctx context.Context, buttonContext string) (template.HTML, error)
}

// ButtonDeps contains dependencies for button service.
type ButtonDeps struct {
	Settings func() ButtonSettings
	// LoginURL es la ruta local que inicia el flujo ("/yandex-id/login").
	LoginURL string
}

type buttonService struct {
	settings func() ButtonSettings
	loginURL string
}

// NewButtonService creates a new ButtonService.
func NewButtonService(d ButtonDeps) ButtonService {
	loginURL := d.LoginURL
	if loginURL == "" {
		loginURL = "/yandex-id/login"
	}
	return &buttonService{settings: d.Settings, loginURL: loginURL}
}

var buttonTmpl = template.Must(template.New("button").Parse(
	`<div class="yandex-id-login-wrapper" style="margin: 20px 0;">` +
		`<a href="{{.URL}}" class="button button-large yandex-id-login" style="width: 100%; text-align: center; background: #fc0; border-color: #fc0; color: #000;">` +
		`{{.Text}}</a></div>`))

func (s *buttonService) Render(_ context.Context, buttonContext string) (template.HTML, error) {
	st := s.settings()
	if strings.TrimSpace(st.ClientID) == "" {
		return "", nil
	}
	switch strings.ToLower(strings.TrimSpace(buttonContext)) {
	case ButtonRegister:
		if !st.ShowOnRegister {
			return "", nil
		}
	default:
		if !st.ShowOnLogin {
			return "", nil
		}
	}

	text := strings.TrimSpace(st.ButtonText)
	if text == "" {
		text = "Sign in with Yandex"
	}
	var buf bytes.Buffer
	if err := buttonTmpl.Execute(&buf, struct{ URL, Text string }{s.loginURL, text}); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
