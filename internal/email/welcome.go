package email

import (
	"bytes"
	"fmt"
	htmltpl "html/template"
	texttpl "text/template"
)

// WelcomeVars son las variables del correo de bienvenida.
type WelcomeVars struct {
	DisplayName string
	Username    string
	SiteURL     string
}

const welcomeSubject = "Your account was created"

var welcomeHTML = htmltpl.Must(htmltpl.New("welcome.html").Parse(`<!doctype html>
<html><body>
<p>Hello {{.DisplayName}},</p>
<p>An account with the username <strong>{{.Username}}</strong> was created for you when you signed in with Yandex ID.</p>
<p>Next time, just use the <a href="{{.SiteURL}}">Sign in with Yandex</a> button again.</p>
</body></html>`))

var welcomeText = texttpl.Must(texttpl.New("welcome.txt").Parse(`Hello {{.DisplayName}},

An account with the username "{{.Username}}" was created for you when you signed in with Yandex ID.
Next time, just use the "Sign in with Yandex" button again: {{.SiteURL}}
`))

// RenderWelcome devuelve asunto, html y texto del correo de bienvenida.
func RenderWelcome(v WelcomeVars) (subject, html, text string, err error) {
	var hb, tb bytes.Buffer
	if err := welcomeHTML.Execute(&hb, v); err != nil {
		return "", "", "", fmt.Errorf("render welcome html: %w", err)
	}
	if err := welcomeText.Execute(&tb, v); err != nil {
		return "", "", "", fmt.Errorf("render welcome text: %w", err)
	}
	return welcomeSubject, hb.String(), tb.String(), nil
}
