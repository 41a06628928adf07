package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/yandexid/internal/domain/repository"
)

type accountRepo struct {
	db *sql.DB
}

const accountColumns = `id, username, email, display_name, first_name, last_name,
	password_hash, COALESCE(linked_provider_id, ''), avatar_url, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*repository.Account, error) {
	var a repository.Account
	var created, updated int64
	if err := row.Scan(&a.ID, &a.Username, &a.Email, &a.DisplayName, &a.FirstName, &a.LastName,
		&a.PasswordHash, &a.LinkedProviderID, &a.AvatarURL, &created, &updated); err != nil {
		return nil, err
	}
	a.CreatedAt = fromMillis(created)
	a.UpdatedAt = fromMillis(updated)
	return &a, nil
}

func (r *accountRepo) FindByProviderID(ctx context.Context, providerUserID string) ([]repository.Account, error) {
	if providerUserID == "" {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+accountColumns+`
		FROM accounts WHERE linked_provider_id = ?
		ORDER BY created_at ASC, rowid ASC`, providerUserID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: find by provider id: %w", err)
	}
	defer rows.Close()

	var out []repository.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan account: %w", err)
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
	// email usa COLLATE NOCASE.
	a, err := scanAccount(r.db.QueryRowContext(ctx, `SELECT `+accountColumns+`
		FROM accounts WHERE email = ?
		ORDER BY created_at ASC, rowid ASC LIMIT 1`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: find by email: %w", err)
	}
	return a, nil
}

func (r *accountRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM accounts WHERE username = ?`, username).Scan(&n); err != nil {
		return false, fmt.Errorf("sqlite: username exists: %w", err)
	}
	return n > 0, nil
}

func (r *accountRepo) Create(ctx context.Context, in repository.CreateAccountInput) (*repository.Account, error) {
	if strings.TrimSpace(in.Username) == "" {
		return nil, fmt.Errorf("%w: username required", repository.ErrInvalidInput)
	}

	now := time.Now().UTC()
	id := uuid.NewString()
	var provider any
	if in.LinkedProviderID != "" {
		provider = in.LinkedProviderID
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, username, email, display_name, first_name, last_name,
			password_hash, linked_provider_id, avatar_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.Username, in.Email, in.DisplayName, in.FirstName, in.LastName,
		in.PasswordHash, provider, in.AvatarURL, toMillis(now), toMillis(now))
	if err != nil {
		return nil, mapSQLiteError(err)
	}

	return &repository.Account{
		ID:               id,
		Username:         in.Username,
		Email:            in.Email,
		DisplayName:      in.DisplayName,
		FirstName:        in.FirstName,
		LastName:         in.LastName,
		PasswordHash:     in.PasswordHash,
		LinkedProviderID: in.LinkedProviderID,
		AvatarURL:        in.AvatarURL,
		CreatedAt:        fromMillis(toMillis(now)),
		UpdatedAt:        fromMillis(toMillis(now)),
	}, nil
}

func (r *accountRepo) LinkProvider(ctx context.Context, accountID, providerUserID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET linked_provider_id = ?, updated_at = ? WHERE id = ?`,
		providerUserID, toMillis(time.Now()), accountID)
	if err != nil {
		return mapSQLiteError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *accountRepo) GetByID(ctx context.Context, accountID string) (*repository.Account, error) {
	a, err := scanAccount(r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, accountID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get account: %w", err)
	}
	return a, nil
}

func (r *accountRepo) PurgeProviderLinks(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET linked_provider_id = NULL, avatar_url = '', updated_at = ?
		WHERE linked_provider_id IS NOT NULL OR avatar_url <> ''`, toMillis(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("sqlite: purge provider links: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}
