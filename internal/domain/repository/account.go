package repository

import (
	"context"
	"time"
)

// Account is a local user account.
type Account struct {
	ID          string
	Username    string
	Email       string
	DisplayName string
	FirstName   string
	LastName    string
	// PasswordHash is never used for Yandex logins but the account must carry one.
	PasswordHash string
	// LinkedProviderID is the Yandex user id this account is bound to ("" = unlinked).
	LinkedProviderID string
	// AvatarURL is derived from the provider avatar id at creation time.
	AvatarURL string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateAccountInput holds everything persisted by a single Create call.
// LinkedProviderID and AvatarURL are written in the same statement so a
// failed create never leaves a half-linked account behind.
type CreateAccountInput struct {
	Username         string
	Email            string
	DisplayName      string
	FirstName        string
	LastName         string
	PasswordHash     string
	LinkedProviderID string
	AvatarURL        string
}

// AccountRepository is the account store used by the Yandex login flow.
type AccountRepository interface {
	// FindByProviderID returns accounts linked to providerUserID, oldest first.
	// The schema keeps this to at most one row; more than one is a data-integrity
	// problem the caller reports.
	FindByProviderID(ctx context.Context, providerUserID string) ([]Account, error)

	// FindByEmail returns the oldest account with that email (case-insensitive).
	// Returns ErrNotFound when none exists.
	FindByEmail(ctx context.Context, email string) (*Account, error)

	// UsernameExists reports whether username is taken (case-insensitive).
	UsernameExists(ctx context.Context, username string) (bool, error)

	// Create inserts an account. Returns ErrUsernameTaken or ErrProviderLinked
	// (wrapping ErrConflict) on unique violations.
	Create(ctx context.Context, in CreateAccountInput) (*Account, error)

	// LinkProvider sets LinkedProviderID on an existing account in one statement.
	// Returns ErrNotFound if the account is gone and ErrProviderLinked if another
	// account already holds providerUserID.
	LinkProvider(ctx context.Context, accountID, providerUserID string) error

	// GetByID returns ErrNotFound when the account does not exist.
	GetByID(ctx context.Context, accountID string) (*Account, error)

	// PurgeProviderLinks clears every provider link and avatar URL, returning
	// the number of accounts touched.
	PurgeProviderLinks(ctx context.Context) (int, error)
}
