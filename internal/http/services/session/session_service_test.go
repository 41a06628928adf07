package session

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/yandexid/internal/cache"
	"github.com/dropDatabas3/yandexid/internal/domain/repository"
	tokens "github.com/dropDatabas3/yandexid/internal/security/token"
)

func TestEstablishLookupRevoke(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemory("")
	svc := NewService(Deps{Cache: c, Config: Config{TTL: time.Hour, Secure: true, SameSite: "Strict"}})

	sess, err := svc.Establish(ctx, &repository.Account{ID: "acc-1", Username: "alice"})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)

	// El id nunca se guarda en claro.
	_, err = c.Get(ctx, "sid:"+sess.ID)
	assert.True(t, cache.IsNotFound(err))
	_, err = c.Get(ctx, "sid:"+tokens.SHA256Base64URL(sess.ID))
	require.NoError(t, err)

	p, err := svc.Lookup(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", p.AccountID)
	assert.Equal(t, "alice", p.Username)

	ck := svc.BuildCookie(sess)
	assert.Equal(t, "yid_session", ck.Name)
	assert.True(t, ck.HttpOnly)
	assert.True(t, ck.Secure)
	assert.Equal(t, http.SameSiteStrictMode, ck.SameSite)

	require.NoError(t, svc.Revoke(ctx, sess.ID))
	_, err = svc.Lookup(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestEstablishRequiresAccount(t *testing.T) {
	svc := NewService(Deps{Cache: cache.NewMemory("")})
	_, err := svc.Establish(context.Background(), &repository.Account{})
	assert.ErrorIs(t, err, ErrSessionFailed)
}

func TestParseSameSite(t *testing.T) {
	assert.Equal(t, http.SameSiteLaxMode, ParseSameSite(""))
	assert.Equal(t, http.SameSiteNoneMode, ParseSameSite("none"))
	assert.Equal(t, http.SameSiteStrictMode, ParseSameSite("Strict"))
}
