// Package pg implementa el adapter PostgreSQL del account store.
// Usa pgxpool directamente.
package pg

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/yandexid/internal/domain/repository"
	"github.com/dropDatabas3/yandexid/internal/store"
	"github.com/dropDatabas3/yandexid/migrations/postgres"
)

func init() {
	store.RegisterAdapter(&postgresAdapter{})
}

// nullIfEmpty returns nil if the string is empty, otherwise returns the string pointer.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// postgresAdapter implementa store.Adapter para PostgreSQL.
type postgresAdapter struct{}

func (a *postgresAdapter) Name() string { return "postgres" }

func (a *postgresAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}

	// Configurar pool
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	} else {
		poolCfg.MaxConns = 10
	}
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = int32(cfg.MaxIdleConns)
	} else {
		poolCfg.MinConns = 2
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}

	// Verificar conexión
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping failed: %w", err)
	}

	return &pgConnection{pool: pool, accounts: &accountRepo{pool: pool}}, nil
}

// pgConnection representa una conexión activa a PostgreSQL.
type pgConnection struct {
	pool     *pgxpool.Pool
	accounts *accountRepo
}

func (c *pgConnection) Name() string { return "postgres" }

func (c *pgConnection) Ping(ctx context.Context) error { return c.pool.Ping(ctx) }

func (c *pgConnection) Close() error {
	c.pool.Close()
	return nil
}

func (c *pgConnection) Accounts() repository.AccountRepository { return c.accounts }

func (c *pgConnection) MigrationExecutor() (store.Executor, store.MigrationSource) {
	return &pgExecutor{pool: c.pool}, store.MigrationSource{FS: postgres.FS, Dir: postgres.Dir}
}

// pgExecutor adapta pgxpool a store.Executor.
type pgExecutor struct{ pool *pgxpool.Pool }

func (e *pgExecutor) Exec(ctx context.Context, query string, args ...any) error {
	_, err := e.pool.Exec(ctx, query, args...)
	return err
}

func (e *pgExecutor) AppliedVersions(ctx context.Context) ([]int, error) {
	rows, err := e.pool.Query(ctx, `SELECT version FROM _migrations ORDER BY version`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int])
}

func (e *pgExecutor) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }
func (e *pgExecutor) Dialect() string          { return "postgres" }

// Constraint names from migrations/postgres.
const (
	constraintProviderID = "accounts_linked_provider_id_key"
	constraintUsername   = "accounts_username_lower_key"
)

// mapPgError traduce violaciones de unicidad a errores de dominio.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" { // unique_violation
		return err
	}
	switch {
	case pgErr.ConstraintName == constraintProviderID,
		strings.Contains(pgErr.ConstraintName, "provider"):
		return repository.ErrProviderLinked
	case pgErr.ConstraintName == constraintUsername,
		strings.Contains(pgErr.ConstraintName, "username"):
		return repository.ErrUsernameTaken
	default:
		return fmt.Errorf("%w: %s", repository.ErrConflict, pgErr.ConstraintName)
	}
}
