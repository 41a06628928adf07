package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/yandexid/internal/domain/repository"
	"github.com/dropDatabas3/yandexid/internal/store"
)

func TestAdapterRegistered(t *testing.T) {
	conn, err := store.OpenAdapter(context.Background(), store.AdapterConfig{Name: "memory"})
	require.NoError(t, err)
	require.NoError(t, conn.Ping(context.Background()))
	assert.NotNil(t, conn.Accounts())

	res, err := store.Migrate(context.Background(), conn)
	require.NoError(t, err)
	assert.Empty(t, res.Applied)
}

func TestAccountRepo_CreateAndLookups(t *testing.T) {
	ctx := context.Background()
	r := NewAccountRepo()

	a, err := r.Create(ctx, repository.CreateAccountInput{
		Username: "Alice", Email: "alice@example.com", PasswordHash: "h", LinkedProviderID: "42",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)

	got, err := r.FindByProviderID(ctx, "42")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)

	byEmail, err := r.FindByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, a.ID, byEmail.ID)

	taken, err := r.UsernameExists(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, taken)

	_, err = r.Create(ctx, repository.CreateAccountInput{Username: "alice", PasswordHash: "h"})
	assert.ErrorIs(t, err, repository.ErrUsernameTaken)
	assert.True(t, repository.IsConflict(err))

	_, err = r.Create(ctx, repository.CreateAccountInput{Username: "other", PasswordHash: "h", LinkedProviderID: "42"})
	assert.ErrorIs(t, err, repository.ErrProviderLinked)
}

func TestAccountRepo_FindByEmailReturnsOldest(t *testing.T) {
	ctx := context.Background()
	r := NewAccountRepo()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r.Seed(
		repository.Account{ID: "new", Username: "n", Email: "dup@example.com", CreatedAt: base.Add(time.Hour)},
		repository.Account{ID: "old", Username: "o", Email: "dup@example.com", CreatedAt: base},
	)

	got, err := r.FindByEmail(ctx, "dup@example.com")
	require.NoError(t, err)
	assert.Equal(t, "old", got.ID)

	_, err = r.FindByEmail(ctx, "none@example.com")
	assert.True(t, repository.IsNotFound(err))
}

func TestAccountRepo_LinkAndPurge(t *testing.T) {
	ctx := context.Background()
	r := NewAccountRepo()
	r.Seed(
		repository.Account{ID: "a", Username: "a"},
		repository.Account{ID: "b", Username: "b", LinkedProviderID: "7", AvatarURL: "https://x"},
	)

	require.NoError(t, r.LinkProvider(ctx, "a", "9"))
	assert.ErrorIs(t, r.LinkProvider(ctx, "a", "7"), repository.ErrProviderLinked)
	assert.ErrorIs(t, r.LinkProvider(ctx, "zzz", "1"), repository.ErrNotFound)

	n, err := r.PurgeProviderLinks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, acc := range r.All() {
		assert.Empty(t, acc.LinkedProviderID)
		assert.Empty(t, acc.AvatarURL)
	}
}
