// Package errors escribe las respuestas de error del servicio: JSON para
// clientes de API y una página HTML para los flujos del navegador.
package errors

import (
	"encoding/json"
	"html/template"
	"net/http"
)

// errorResponse controla exactamente qué campos se envían al cliente.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// WriteError escribe err como JSON. Errores que no son *AppError salen como 500.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)

	resp := errorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Detail:  appErr.Detail,
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(resp)
}

var pageTmpl = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
</head>
<body>
<main>
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
{{if .BackURL}}<p><a href="{{.BackURL}}">Back</a></p>{{end}}
</main>
</body>
</html>
`))

// WriteErrorPage escribe una página HTML terminal (sin reintento) para el
// navegador. backURL es opcional.
func WriteErrorPage(w http.ResponseWriter, err error, backURL string) {
	appErr := FromError(err)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(appErr.HTTPStatus)
	_ = pageTmpl.Execute(w, struct {
		Title   string
		Message string
		BackURL string
	}{
		Title:   "Yandex ID login failed",
		Message: appErr.Message,
		BackURL: backURL,
	})
}
