// Package sqlite implementa el adapter SQLite (modernc, sin cgo) del account
// store, para instalaciones de un solo nodo.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/dropDatabas3/yandexid/internal/domain/repository"
	"github.com/dropDatabas3/yandexid/internal/store"
	sqlitemigrations "github.com/dropDatabas3/yandexid/migrations/sqlite"
)

func init() {
	store.RegisterAdapter(&sqliteAdapter{})
}

type sqliteAdapter struct{}

func (a *sqliteAdapter) Name() string { return "sqlite" }

func (a *sqliteAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("sqlite: dsn is required")
	}
	db, err := sql.Open("sqlite", withPragmas(dsn))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// Un solo escritor; evita SQLITE_BUSY entre conexiones del pool.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return &sqliteConnection{db: db, accounts: &accountRepo{db: db}}, nil
}

func withPragmas(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

type sqliteConnection struct {
	db       *sql.DB
	accounts *accountRepo
}

func (c *sqliteConnection) Name() string                           { return "sqlite" }
func (c *sqliteConnection) Ping(ctx context.Context) error         { return c.db.PingContext(ctx) }
func (c *sqliteConnection) Close() error                           { return c.db.Close() }
func (c *sqliteConnection) Accounts() repository.AccountRepository { return c.accounts }

func (c *sqliteConnection) MigrationExecutor() (store.Executor, store.MigrationSource) {
	return &sqliteExecutor{db: c.db}, store.MigrationSource{FS: sqlitemigrations.FS, Dir: sqlitemigrations.Dir}
}

type sqliteExecutor struct{ db *sql.DB }

func (e *sqliteExecutor) Exec(ctx context.Context, query string, args ...any) error {
	_, err := e.db.ExecContext(ctx, query, args...)
	return err
}

func (e *sqliteExecutor) AppliedVersions(ctx context.Context) ([]int, error) {
	rows, err := e.db.QueryContext(ctx, `SELECT version FROM _migrations ORDER BY version`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (e *sqliteExecutor) Placeholder(int) string { return "?" }
func (e *sqliteExecutor) Dialect() string        { return "sqlite" }

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

// mapSQLiteError traduce violaciones de unicidad a errores de dominio.
func mapSQLiteError(err error) error {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return err
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT:
	default:
		return err
	}
	msg := se.Error()
	switch {
	case strings.Contains(msg, "accounts.linked_provider_id"):
		return repository.ErrProviderLinked
	case strings.Contains(msg, "accounts.username"):
		return repository.ErrUsernameTaken
	default:
		return fmt.Errorf("%w: %s", repository.ErrConflict, msg)
	}
}
