package social

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/yandexid/internal/cache"
	"github.com/dropDatabas3/yandexid/internal/oauth/yandex"
)

func TestStart_BuildsAuthorizeURL(t *testing.T) {
	v, err := NewStateVerifier(StateDeps{Secret: []byte("s"), Cache: cache.NewMemory("")})
	require.NoError(t, err)
	client := yandex.New(yandex.Config{ClientID: "cid", RedirectURL: "https://example.com/yandex-id-callback/"})

	res, err := NewStartService(StartDeps{Verifier: v, Provider: client}).
		Start(context.Background(), StartRequest{Binding: "existing"})
	require.NoError(t, err)
	assert.Equal(t, "existing", res.Binding)

	u, err := url.Parse(res.RedirectURL)
	require.NoError(t, err)
	assert.Equal(t, "https://oauth.yandex.ru/authorize", u.Scheme+"://"+u.Host+u.Path)
	q := u.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "https://example.com/yandex-id-callback/", q.Get("redirect_uri"))
	require.NoError(t, v.Verify(context.Background(), q.Get("state"), PurposeYandexLogin, "existing"))
}

func TestStart_NotConfigured(t *testing.T) {
	v, err := NewStateVerifier(StateDeps{Secret: []byte("s"), Cache: cache.NewMemory("")})
	require.NoError(t, err)

	_, err = NewStartService(StartDeps{Verifier: v, Provider: yandex.New(yandex.Config{})}).
		Start(context.Background(), StartRequest{})
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestButton_Render(t *testing.T) {
	settings := ButtonSettings{ClientID: "cid", ButtonText: "Войти с <Яндекс>", ShowOnLogin: true, ShowOnRegister: false}
	svc := NewButtonService(ButtonDeps{Settings: func() ButtonSettings { return settings }})

	html, err := svc.Render(context.Background(), ButtonLogin)
	require.NoError(t, err)
	assert.Contains(t, string(html), `href="/yandex-id/login"`)
	assert.Contains(t, string(html), "Войти с &lt;Яндекс&gt;")

	html, err = svc.Render(context.Background(), ButtonRegister)
	require.NoError(t, err)
	assert.Empty(t, html)

	settings.ShowOnRegister = true
	settings.ClientID = ""
	html, err = svc.Render(context.Background(), ButtonRegister)
	require.NoError(t, err)
	assert.Empty(t, html, "hidden without client id")

	settings.ClientID = "cid"
	settings.ButtonText = " "
	html, err = svc.Render(context.Background(), ButtonRegister)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Sign in with Yandex")
}
