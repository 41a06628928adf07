package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheck(t *testing.T) {
	ok := func(context.Context) error { return nil }

	resp := NewHealthService(Deps{StoreCheck: ok, CacheCheck: ok, Configured: func() bool { return false }}).Check(context.Background())
	assert.Equal(t, "ready", resp.Status)
	assert.Equal(t, "ok", resp.Components["store"].Status)
	assert.Equal(t, "disabled", resp.Components["yandex"].Status)

	resp = NewHealthService(Deps{
		StoreCheck: func(context.Context) error { return errors.New("conn refused") },
		CacheCheck: ok,
	}).Check(context.Background())
	assert.Equal(t, "unavailable", resp.Status)
	assert.Equal(t, "error", resp.Components["store"].Status)
	assert.Contains(t, resp.Components["store"].Message, "conn refused")

	resp = NewHealthService(Deps{}).Check(context.Background())
	assert.Equal(t, "ready", resp.Status)
	assert.Equal(t, "disabled", resp.Components["cache"].Status)
}
