package pg

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/yandexid/internal/domain/repository"
)

type accountRepo struct {
	pool *pgxpool.Pool
}

const accountColumns = `id, username, email, display_name, first_name, last_name,
	password_hash, COALESCE(linked_provider_id, ''), avatar_url, created_at, updated_at`

func scanAccount(row pgx.Row) (*repository.Account, error) {
	var a repository.Account
	var id uuid.UUID
	if err := row.Scan(&id, &a.Username, &a.Email, &a.DisplayName, &a.FirstName, &a.LastName,
		&a.PasswordHash, &a.LinkedProviderID, &a.AvatarURL, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.ID = id.String()
	return &a, nil
}

func (r *accountRepo) FindByProviderID(ctx context.Context, providerUserID string) ([]repository.Account, error) {
	if providerUserID == "" {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+`
		FROM accounts WHERE linked_provider_id = $1
		ORDER BY created_at ASC, id ASC`, providerUserID)
	if err != nil {
		return nil, fmt.Errorf("pg: find by provider id: %w", err)
	}
	defer rows.Close()

	var out []repository.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("pg: scan account: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *accountRepo) FindByEmail(ctx context.Context, email string) (*repository.Account, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, repository.ErrNotFound
	}
	a, err := scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+`
		FROM accounts WHERE lower(email) = lower($1)
		ORDER BY created_at ASC, id ASC LIMIT 1`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg: find by email: %w", err)
	}
	return a, nil
}

func (r *accountRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE lower(username) = lower($1))`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("pg: username exists: %w", err)
	}
	return exists, nil
}

func (r *accountRepo) Create(ctx context.Context, in repository.CreateAccountInput) (*repository.Account, error) {
	if strings.TrimSpace(in.Username) == "" {
		return nil, fmt.Errorf("%w: username required", repository.ErrInvalidInput)
	}

	now := time.Now().UTC()
	a, err := scanAccount(r.pool.QueryRow(ctx, `
		INSERT INTO accounts (id, username, email, display_name, first_name, last_name,
			password_hash, linked_provider_id, avatar_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		RETURNING `+accountColumns,
		uuid.New(), in.Username, in.Email, in.DisplayName, in.FirstName, in.LastName,
		in.PasswordHash, nullIfEmpty(in.LinkedProviderID), in.AvatarURL, now))
	if err != nil {
		return nil, mapPgError(err)
	}
	return a, nil
}

func (r *accountRepo) LinkProvider(ctx context.Context, accountID, providerUserID string) error {
	id, err := uuid.Parse(accountID)
	if err != nil {
		return repository.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE accounts SET linked_provider_id = $2, updated_at = now() WHERE id = $1`,
		id, providerUserID)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *accountRepo) GetByID(ctx context.Context, accountID string) (*repository.Account, error) {
	id, err := uuid.Parse(accountID)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	a, err := scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg: get account: %w", err)
	}
	return a, nil
}

func (r *accountRepo) PurgeProviderLinks(ctx context.Context) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE accounts SET linked_provider_id = NULL, avatar_url = '', updated_at = now()
		WHERE linked_provider_id IS NOT NULL OR avatar_url <> ''`)
	if err != nil {
		return 0, fmt.Errorf("pg: purge provider links: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
