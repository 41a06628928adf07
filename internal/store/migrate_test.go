package store

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExec struct {
	applied []int
	stmts   []string
}

func (f *fakeExec) Exec(_ context.Context, q string, args ...any) error {
	f.stmts = append(f.stmts, q)
	if strings.HasPrefix(q, "INSERT INTO _migrations") {
		f.applied = append(f.applied, args[0].(int))
	}
	return nil
}

func (f *fakeExec) AppliedVersions(context.Context) ([]int, error) { return f.applied, nil }
func (f *fakeExec) Placeholder(int) string                         { return "?" }
func (f *fakeExec) Dialect() string                                { return "sqlite" }

func testSource() MigrationSource {
	return MigrationSource{
		FS: fstest.MapFS{
			"0002_more.sql":     {Data: []byte("CREATE TABLE b (x INT);")},
			"0001_accounts.sql": {Data: []byte("CREATE TABLE a (x INT);")},
			"README.md":         {Data: []byte("ignored")},
		},
		Dir: ".",
	}
}

func TestMigrator_ParseOrdersAndIgnoresOthers(t *testing.T) {
	migs, err := NewMigrator(testSource()).ParseMigrations()
	require.NoError(t, err)
	require.Len(t, migs, 2)
	assert.Equal(t, 1, migs[0].Version)
	assert.Equal(t, "accounts", migs[0].Name)
	assert.Equal(t, 2, migs[1].Version)
}

func TestMigrator_RunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	exec := &fakeExec{}
	m := NewMigrator(testSource())

	res, err := m.Run(ctx, exec)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, res.Applied)

	res, err = m.Run(ctx, exec)
	require.NoError(t, err)
	assert.Empty(t, res.Applied)
	assert.Equal(t, []int{1, 2}, res.Skipped)
}

func TestMigrator_DuplicateVersion(t *testing.T) {
	src := MigrationSource{FS: fstest.MapFS{
		"0001_a.sql": {Data: []byte("x")},
		"1_b.sql":    {Data: []byte("y")},
	}, Dir: "."}
	_, err := NewMigrator(src).ParseMigrations()
	require.Error(t, err)
}
