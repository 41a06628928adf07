package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/yandexid/internal/config"
	"github.com/dropDatabas3/yandexid/internal/security/password"
	_ "github.com/dropDatabas3/yandexid/internal/store/adapters/memory"
)

func fakeYandex(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("code") != "abc" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok1","token_type":"bearer"}`))
	})
	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "OAuth tok1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":42,"login":"alice","default_email":"alice@yandex.ru"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(yandexURL string) *config.Config {
	c := config.Default()
	c.Yandex.ClientID = "cid"
	c.Yandex.ClientSecret = "csecret"
	c.Yandex.StateSecret = "state-secret"
	c.Yandex.LandingURL = "/account"
	c.Yandex.TokenURL = yandexURL + "/token"
	c.Yandex.InfoURL = yandexURL + "/info"
	c.Rate.Enabled = false
	return &c
}

func buildApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	app, err := Build(context.Background(), cfg, Options{
		PasswordParams: &password.Params{Memory: 64, Time: 1, Parallelism: 1, KeyLen: 16},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func cookieNamed(cs []*http.Cookie, name string) *http.Cookie {
	for _, c := range cs {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLoginFlow_EndToEnd(t *testing.T) {
	app := buildApp(t, testConfig(fakeYandex(t).URL))

	// 1. Start: cookie de binding + redirect a Yandex.
	rec := httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/yandex-id/login", nil))
	require.Equal(t, http.StatusFound, rec.Code)

	binding := cookieNamed(rec.Result().Cookies(), "yid_state")
	require.NotNil(t, binding)
	assert.True(t, binding.HttpOnly)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "oauth.yandex.ru", loc.Host)
	assert.Equal(t, "http://localhost:8080/yandex-id-callback/", loc.Query().Get("redirect_uri"))
	state := loc.Query().Get("state")

	// 2. Callback.
	req := httptest.NewRequest(http.MethodGet, "/yandex-id-callback/?code=abc&state="+url.QueryEscape(state), nil)
	req.AddCookie(binding)
	rec = httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	assert.Equal(t, "/account", rec.Header().Get("Location"))

	sess := cookieNamed(rec.Result().Cookies(), "yid_session")
	require.NotNil(t, sess)
	assert.True(t, sess.HttpOnly)

	// 3. /me con la sesión.
	req = httptest.NewRequest(http.MethodGet, "/yandex-id/me", nil)
	req.AddCookie(sess)
	rec = httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var me map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "alice", me["username"])
	assert.NotEmpty(t, me["account_id"])
	assert.Len(t, me, 2, "solo account_id y username")

	// 4. Replay del mismo callback: página de error terminal.
	req = httptest.NewRequest(http.MethodGet, "/yandex-id-callback?code=abc&state="+url.QueryEscape(state), nil)
	req.AddCookie(binding)
	rec = httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid security token.")
	assert.Nil(t, cookieNamed(rec.Result().Cookies(), "yid_session"))
}

func TestCallback_WithoutCodeIsNotFound(t *testing.T) {
	app := buildApp(t, testConfig(fakeYandex(t).URL))

	rec := httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/yandex-id-callback/?error=access_denied", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCallback_MissingBindingCookie(t *testing.T) {
	app := buildApp(t, testConfig(fakeYandex(t).URL))

	rec := httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/yandex-id/login", nil))
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)

	// Sin cookie: el state no está atado a este navegador.
	rec = httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/yandex-id-callback/?code=abc&state="+url.QueryEscape(loc.Query().Get("state")), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestButtonAndReadyz(t *testing.T) {
	cfg := testConfig(fakeYandex(t).URL)
	cfg.Yandex.ShowOnRegister = false
	app := buildApp(t, cfg)

	rec := httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/yandex-id/button?context=login", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sign in with Yandex")

	rec = httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/yandex-id/button?context=register", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ready"`)
}

func TestStart_NotConfigured(t *testing.T) {
	cfg := testConfig(fakeYandex(t).URL)
	cfg.Yandex.ClientID = ""
	app := buildApp(t, cfg)

	rec := httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/yandex-id/login", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/yandex-id/button", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

// loginWith arranca el flujo y devuelve la respuesta del callback con code.
func loginWith(t *testing.T, app *App, code string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/yandex-id/login", nil))
	require.Equal(t, http.StatusFound, rec.Code)
	binding := cookieNamed(rec.Result().Cookies(), "yid_state")
	require.NotNil(t, binding)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/yandex-id-callback/?code="+code+"&state="+url.QueryEscape(loc.Query().Get("state")), nil)
	req.AddCookie(binding)
	rec = httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, req)
	return rec
}

func TestCallback_FailureStatusByStage(t *testing.T) {
	cases := []struct {
		name       string
		code       string
		info       http.HandlerFunc
		autoCreate bool
		wantStatus int
	}{
		{
			name:       "token exchange rejected",
			code:       "wrong",
			autoCreate: true,
			wantStatus: http.StatusBadGateway,
		},
		{
			name: "profile endpoint fails",
			code: "abc",
			info: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			autoCreate: true,
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "auto create disabled",
			code:       "abc",
			autoCreate: false,
			wantStatus: http.StatusForbidden,
		},
		{
			name: "profile without id",
			code: "abc",
			info: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"login":"alice"}`))
			},
			autoCreate: true,
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			yx := fakeYandex(t)
			cfg := testConfig(yx.URL)
			cfg.Yandex.AutoCreateUsers = tc.autoCreate
			if tc.info != nil {
				info := httptest.NewServer(tc.info)
				t.Cleanup(info.Close)
				cfg.Yandex.InfoURL = info.URL
			}
			app := buildApp(t, cfg)

			rec := loginWith(t, app, tc.code)
			assert.Equal(t, tc.wantStatus, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
			assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
			assert.Nil(t, cookieNamed(rec.Result().Cookies(), "yid_session"))
		})
	}
}
