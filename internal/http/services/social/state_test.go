package social

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/yandexid/internal/cache"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func newTestVerifier(t *testing.T, clk *fakeClock) StateVerifier {
	t.Helper()
	v, err := NewStateVerifier(StateDeps{
		Secret: []byte("test-secret-0123456789abcdef"),
		TTL:    10 * time.Minute,
		Cache:  cache.NewMemory("test"),
		Now:    clk.Now,
	})
	require.NoError(t, err)
	return v
}

func TestState_RoundTrip(t *testing.T) {
	ctx := context.Background()
	v := newTestVerifier(t, newClock())

	st, err := v.Generate(ctx, PurposeYandexLogin, "browser-1")
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(st, "."), "state is a compact JWT")

	require.NoError(t, v.Verify(ctx, st, PurposeYandexLogin, "browser-1"))
}

func TestState_PurposeSpecific(t *testing.T) {
	ctx := context.Background()
	v := newTestVerifier(t, newClock())

	st, err := v.Generate(ctx, "password_reset", "browser-1")
	require.NoError(t, err)

	err = v.Verify(ctx, st, PurposeYandexLogin, "browser-1")
	require.ErrorIs(t, err, ErrStatePurpose)

	// Un purpose equivocado no consume el token.
	require.NoError(t, v.Verify(ctx, st, "password_reset", "browser-1"))
}

func TestState_BindingMismatch(t *testing.T) {
	ctx := context.Background()
	v := newTestVerifier(t, newClock())

	st, err := v.Generate(ctx, PurposeYandexLogin, "browser-1")
	require.NoError(t, err)

	assert.ErrorIs(t, v.Verify(ctx, st, PurposeYandexLogin, "browser-2"), ErrStateBinding)
	assert.ErrorIs(t, v.Verify(ctx, st, PurposeYandexLogin, ""), ErrStateBinding)
}

func TestState_Expired(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	v := newTestVerifier(t, clk)

	st, err := v.Generate(ctx, PurposeYandexLogin, "browser-1")
	require.NoError(t, err)

	clk.Advance(11 * time.Minute)
	require.ErrorIs(t, v.Verify(ctx, st, PurposeYandexLogin, "browser-1"), ErrStateExpired)
}

func TestState_WithinLeeway(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	v := newTestVerifier(t, clk)

	st, err := v.Generate(ctx, PurposeYandexLogin, "browser-1")
	require.NoError(t, err)

	clk.Advance(10*time.Minute + 2*time.Second)
	require.NoError(t, v.Verify(ctx, st, PurposeYandexLogin, "browser-1"))
}

func TestState_SingleUse(t *testing.T) {
	ctx := context.Background()
	v := newTestVerifier(t, newClock())

	st, err := v.Generate(ctx, PurposeYandexLogin, "browser-1")
	require.NoError(t, err)

	require.NoError(t, v.Verify(ctx, st, PurposeYandexLogin, "browser-1"))
	require.ErrorIs(t, v.Verify(ctx, st, PurposeYandexLogin, "browser-1"), ErrStateReplayed)
}

func TestState_Tampered(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	v := newTestVerifier(t, clk)

	st, err := v.Generate(ctx, PurposeYandexLogin, "browser-1")
	require.NoError(t, err)

	parts := strings.Split(st, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	bad := parts[0] + "." + parts[1] + "." + string(sig)
	require.ErrorIs(t, v.Verify(ctx, bad, PurposeYandexLogin, "browser-1"), ErrStateInvalid)

	// Otro secreto.
	other, err := NewStateVerifier(StateDeps{Secret: []byte("another-secret"), Cache: cache.NewMemory(""), Now: clk.Now})
	require.NoError(t, err)
	require.ErrorIs(t, other.Verify(ctx, st, PurposeYandexLogin, "browser-1"), ErrStateInvalid)

	require.ErrorIs(t, v.Verify(ctx, "", PurposeYandexLogin, "browser-1"), ErrStateInvalid)
	require.ErrorIs(t, v.Verify(ctx, "not-a-jwt", PurposeYandexLogin, "browser-1"), ErrStateInvalid)
}

func TestState_GenerateRequiresBinding(t *testing.T) {
	v := newTestVerifier(t, newClock())
	_, err := v.Generate(context.Background(), PurposeYandexLogin, " ")
	require.ErrorIs(t, err, ErrStateBinding)
}
