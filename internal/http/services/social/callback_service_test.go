package social

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/yandexid/internal/cache"
	"github.com/dropDatabas3/yandexid/internal/domain/repository"
	"github.com/dropDatabas3/yandexid/internal/events"
	"github.com/dropDatabas3/yandexid/internal/http/services/session"
	"github.com/dropDatabas3/yandexid/internal/oauth/yandex"
	"github.com/dropDatabas3/yandexid/internal/store/adapters/memory"
)

type stubExchanger struct {
	token string
	err   error
	calls int
}

func (s *stubExchanger) Exchange(_ context.Context, code string) (string, error) {
	s.calls++
	return s.token, s.err
}

type stubProfiles struct {
	profile *yandex.Profile
	err     error
	calls   int
}

func (s *stubProfiles) FetchProfile(context.Context, string) (*yandex.Profile, error) {
	s.calls++
	return s.profile, s.err
}

type stubSessions struct{ err error }

func (s stubSessions) Establish(_ context.Context, acc *repository.Account) (*session.Session, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &session.Session{ID: "sid-1", AccountID: acc.ID}, nil
}

type recordingPublisher struct {
	mu        sync.Mutex
	succeeded []events.LoginSucceeded
	failed    []events.LoginFailed
}

func (p *recordingPublisher) PublishLoginSucceeded(_ context.Context, e events.LoginSucceeded) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.succeeded = append(p.succeeded, e)
}

func (p *recordingPublisher) PublishLoginFailed(_ context.Context, e events.LoginFailed) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed = append(p.failed, e)
}

type callbackFixture struct {
	svc      CallbackService
	verifier StateVerifier
	exchange *stubExchanger
	profiles *stubProfiles
	repo     *memory.AccountRepo
	events   *recordingPublisher
}

func newCallbackFixture(t *testing.T, sessions SessionEstablisher) *callbackFixture {
	t.Helper()
	v, err := NewStateVerifier(StateDeps{Secret: []byte("secret"), Cache: cache.NewMemory("")})
	require.NoError(t, err)

	f := &callbackFixture{
		verifier: v,
		exchange: &stubExchanger{token: "tok1"},
		profiles: &stubProfiles{profile: &yandex.Profile{ID: "1001", Login: "alice", Email: "alice@yandex.ru"}},
		repo:     memory.NewAccountRepo(),
		events:   &recordingPublisher{},
	}
	f.svc = NewCallbackService(CallbackDeps{
		LandingURL: "/welcome",
		Verifier:   v,
		Exchange:   f.exchange,
		Profiles:   f.profiles,
		Resolver:   newTestResolver(f.repo, true),
		Sessions:   sessions,
		Events:     f.events,
	})
	return f
}

func (f *callbackFixture) request(t *testing.T) CallbackRequest {
	t.Helper()
	st, err := f.verifier.Generate(context.Background(), PurposeYandexLogin, "browser-1")
	require.NoError(t, err)
	return CallbackRequest{Path: "/yandex-id-callback/", Code: "abc", State: st, Binding: "browser-1", ClientIP: "203.0.113.9"}
}

func requireCallbackError(t *testing.T, err error, stage Stage, reason Reason) *CallbackError {
	t.Helper()
	ce, ok := AsCallbackError(err)
	require.True(t, ok, "expected *CallbackError, got %v", err)
	assert.Equal(t, stage, ce.Stage)
	assert.Equal(t, reason, ce.Reason)
	return ce
}

func TestCallback_Success(t *testing.T) {
	f := newCallbackFixture(t, stubSessions{})

	res, err := f.svc.Callback(context.Background(), f.request(t))
	require.NoError(t, err)
	assert.Equal(t, StageSessionEstablished, res.Stage)
	assert.Equal(t, "/welcome", res.RedirectURL)
	assert.Equal(t, "alice", res.Account.Username)
	assert.True(t, res.Created)
	assert.Equal(t, "sid-1", res.Session.ID)

	require.Len(t, f.events.succeeded, 1)
	ev := f.events.succeeded[0]
	assert.Equal(t, "1001", ev.ProviderUserID)
	assert.True(t, ev.Created)
	assert.Equal(t, "203.0.113.9", ev.ClientIP)
	assert.Empty(t, f.events.failed)
}

func TestCallback_NotACallback(t *testing.T) {
	f := newCallbackFixture(t, stubSessions{})

	req := f.request(t)
	req.Path = "/somewhere-else/"
	_, err := f.svc.Callback(context.Background(), req)
	require.ErrorIs(t, err, ErrNotCallback)

	req = f.request(t)
	req.Code = ""
	req.ProviderError = "access_denied"
	_, err = f.svc.Callback(context.Background(), req)
	require.ErrorIs(t, err, ErrNotCallback)

	assert.Zero(t, f.exchange.calls)
	assert.Empty(t, f.events.failed)
}

func TestCallback_PathWithoutTrailingSlash(t *testing.T) {
	f := newCallbackFixture(t, stubSessions{})
	req := f.request(t)
	req.Path = "/yandex-id-callback"

	_, err := f.svc.Callback(context.Background(), req)
	require.NoError(t, err)
}

func TestCallback_InvalidState(t *testing.T) {
	f := newCallbackFixture(t, stubSessions{})
	req := f.request(t)
	req.State = "forged"

	_, err := f.svc.Callback(context.Background(), req)
	requireCallbackError(t, err, StageCodeReceived, ReasonInvalidState)
	assert.Zero(t, f.exchange.calls, "no exchange after a bad state")
	require.Len(t, f.events.failed, 1)
	assert.Equal(t, "invalid_state", f.events.failed[0].Reason)
}

func TestCallback_ReplayedState(t *testing.T) {
	f := newCallbackFixture(t, stubSessions{})
	req := f.request(t)

	_, err := f.svc.Callback(context.Background(), req)
	require.NoError(t, err)

	_, err = f.svc.Callback(context.Background(), req)
	ce := requireCallbackError(t, err, StageCodeReceived, ReasonInvalidState)
	assert.Equal(t, "state_replayed", ce.Cause())
	assert.Equal(t, 1, f.exchange.calls)
}

func TestCallback_TokenExchangeFailed(t *testing.T) {
	f := newCallbackFixture(t, stubSessions{})
	f.exchange.err = yandex.ErrTokenExchangeFailed

	_, err := f.svc.Callback(context.Background(), f.request(t))
	ce := requireCallbackError(t, err, StageStateVerified, ReasonTokenExchangeFailed)
	assert.ErrorIs(t, ce, yandex.ErrTokenExchangeFailed)
	assert.Zero(t, f.profiles.calls)
	assert.Empty(t, f.repo.All())
}

func TestCallback_ProfileFetchFailed(t *testing.T) {
	f := newCallbackFixture(t, stubSessions{})
	f.profiles.err = yandex.ErrProfileFetchFailed

	_, err := f.svc.Callback(context.Background(), f.request(t))
	requireCallbackError(t, err, StageTokenObtained, ReasonProfileFetchFailed)
	assert.Empty(t, f.repo.All())
}

func TestCallback_AccountResolutionFailed(t *testing.T) {
	f := newCallbackFixture(t, stubSessions{})
	f.profiles.profile = &yandex.Profile{Login: "no-id"}

	_, err := f.svc.Callback(context.Background(), f.request(t))
	ce := requireCallbackError(t, err, StageProfileObtained, ReasonAccountResolutionFailed)
	assert.Equal(t, "profile_incomplete", ce.Cause())
	require.Len(t, f.events.failed, 1)
	assert.Equal(t, "profile_incomplete", f.events.failed[0].Cause)
}

func TestCallback_SessionFailed(t *testing.T) {
	f := newCallbackFixture(t, stubSessions{err: errors.New("cache down")})

	_, err := f.svc.Callback(context.Background(), f.request(t))
	requireCallbackError(t, err, StageAccountResolved, ReasonSessionFailed)
	assert.Empty(t, f.events.succeeded)
}

func TestCallback_CreationDisabled(t *testing.T) {
	v, err := NewStateVerifier(StateDeps{Secret: []byte("secret"), Cache: cache.NewMemory("")})
	require.NoError(t, err)
	repo := memory.NewAccountRepo()
	svc := NewCallbackService(CallbackDeps{
		Verifier: v,
		Exchange: &stubExchanger{token: "tok1"},
		Profiles: &stubProfiles{profile: &yandex.Profile{ID: "1", Login: "zed"}},
		Resolver: newTestResolver(repo, false),
		Sessions: stubSessions{},
	})
	st, err := v.Generate(context.Background(), PurposeYandexLogin, "b")
	require.NoError(t, err)

	_, err = svc.Callback(context.Background(), CallbackRequest{Path: "/yandex-id-callback/", Code: "abc", State: st, Binding: "b"})
	ce := requireCallbackError(t, err, StageProfileObtained, ReasonAccountResolutionFailed)
	assert.Equal(t, "auto_create_disabled", ce.Cause())
	assert.Empty(t, repo.All())
}

// End to end con el cliente real contra un Yandex falso: code "abc" ->
// token "tok1" -> perfil "alice" -> cuenta creada -> sesión en cache.
func TestCallback_EndToEnd(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostForm.Get("code") != "abc" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
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
		_, _ = w.Write([]byte(`{"id":"1130000012345","login":"alice","default_email":"alice@yandex.ru","display_name":"Alice","default_avatar_id":"131652443"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := yandex.New(yandex.Config{
		ClientID:     "cid",
		ClientSecret: "csecret",
		RedirectURL:  "https://example.com/yandex-id-callback/",
		TokenURL:     srv.URL + "/token",
		InfoURL:      srv.URL + "/info",
		Timeout:      2 * time.Second,
	})

	store := cache.NewMemory("e2e")
	v, err := NewStateVerifier(StateDeps{Secret: []byte("secret"), Cache: store})
	require.NoError(t, err)
	repo := memory.NewAccountRepo()
	sessions := session.NewService(session.Deps{Cache: store})

	svc := NewCallbackService(CallbackDeps{
		Verifier: v,
		Exchange: client,
		Profiles: client,
		Resolver: newTestResolver(repo, true),
		Sessions: sessions,
	})

	start := NewStartService(StartDeps{Verifier: v, Provider: client})
	begun, err := start.Start(context.Background(), StartRequest{})
	require.NoError(t, err)
	require.NotEmpty(t, begun.Binding)
	require.Contains(t, begun.RedirectURL, "client_id=cid")

	redirect, err := http.NewRequest(http.MethodGet, begun.RedirectURL, nil)
	require.NoError(t, err)
	state := redirect.URL.Query().Get("state")

	res, err := svc.Callback(context.Background(), CallbackRequest{
		Path:    "/yandex-id-callback/",
		Code:    "abc",
		State:   state,
		Binding: begun.Binding,
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", res.Account.Username)
	assert.True(t, res.Created)
	assert.Equal(t, "/", res.RedirectURL)

	accs := repo.All()
	require.Len(t, accs, 1)
	assert.Equal(t, "1130000012345", accs[0].LinkedProviderID)
	assert.Equal(t, "Alice", accs[0].DisplayName)
	assert.Equal(t, "https://avatars.yandex.net/get-yapic/131652443/islands-200", accs[0].AvatarURL)

	payload, err := sessions.Lookup(context.Background(), res.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, accs[0].ID, payload.AccountID)
}
