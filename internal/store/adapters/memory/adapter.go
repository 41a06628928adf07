// Package memory implementa un account store en memoria. Pensado para
// desarrollo, tests y despliegues de una sola instancia sin persistencia.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/yandexid/internal/domain/repository"
	"github.com/dropDatabas3/yandexid/internal/store"
)

func init() {
	store.RegisterAdapter(&memoryAdapter{})
}

type memoryAdapter struct{}

func (a *memoryAdapter) Name() string { return "memory" }

func (a *memoryAdapter) Connect(context.Context, store.AdapterConfig) (store.AdapterConnection, error) {
	return &memoryConnection{repo: NewAccountRepo()}, nil
}

type memoryConnection struct {
	repo *AccountRepo
}

func (c *memoryConnection) Name() string                           { return "memory" }
func (c *memoryConnection) Ping(context.Context) error             { return nil }
func (c *memoryConnection) Close() error                           { return nil }
func (c *memoryConnection) Accounts() repository.AccountRepository { return c.repo }

// AccountRepo es un AccountRepository protegido por un mutex.
type AccountRepo struct {
	mu   sync.RWMutex
	rows []repository.Account
	now  func() time.Time
}

// NewAccountRepo crea un repositorio vacío.
func NewAccountRepo() *AccountRepo {
	return &AccountRepo{now: time.Now}
}

// Seed inserta cuentas tal cual (tests). Un ID vacío se genera.
func (r *AccountRepo) Seed(accounts ...repository.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range accounts {
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = r.now().UTC()
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = a.CreatedAt
		}
		r.rows = append(r.rows, a)
	}
}

// All retorna una copia de todas las cuentas en orden de inserción.
func (r *AccountRepo) All() []repository.Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]repository.Account, len(r.rows))
	copy(out, r.rows)
	return out
}

func (r *AccountRepo) FindByProviderID(_ context.Context, providerUserID string) ([]repository.Account, error) {
	if providerUserID == "" {
		return nil, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []repository.Account
	for _, a := range r.rows {
		if a.LinkedProviderID == providerUserID {
			out = append(out, a)
		}
	}
	sortOldestFirst(out)
	return out, nil
}

func (r *AccountRepo) FindByEmail(_ context.Context, email string) (*repository.Account, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, repository.ErrNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []repository.Account
	for _, a := range r.rows {
		if strings.EqualFold(a.Email, email) {
			matches = append(matches, a)
		}
	}
	if len(matches) == 0 {
		return nil, repository.ErrNotFound
	}
	sortOldestFirst(matches)
	return &matches[0], nil
}

func (r *AccountRepo) UsernameExists(_ context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.usernameTakenLocked(username), nil
}

func (r *AccountRepo) Create(_ context.Context, in repository.CreateAccountInput) (*repository.Account, error) {
	if strings.TrimSpace(in.Username) == "" {
		return nil, fmt.Errorf("%w: username required", repository.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.usernameTakenLocked(in.Username) {
		return nil, repository.ErrUsernameTaken
	}
	if in.LinkedProviderID != "" && r.providerTakenLocked(in.LinkedProviderID, "") {
		return nil, repository.ErrProviderLinked
	}

	now := r.now().UTC()
	a := repository.Account{
		ID:               uuid.NewString(),
		Username:         in.Username,
		Email:            in.Email,
		DisplayName:      in.DisplayName,
		FirstName:        in.FirstName,
		LastName:         in.LastName,
		PasswordHash:     in.PasswordHash,
		LinkedProviderID: in.LinkedProviderID,
		AvatarURL:        in.AvatarURL,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	r.rows = append(r.rows, a)
	return &a, nil
}

func (r *AccountRepo) LinkProvider(_ context.Context, accountID, providerUserID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i := range r.rows {
		if r.rows[i].ID == accountID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return repository.ErrNotFound
	}
	if r.providerTakenLocked(providerUserID, accountID) {
		return repository.ErrProviderLinked
	}
	r.rows[idx].LinkedProviderID = providerUserID
	r.rows[idx].UpdatedAt = r.now().UTC()
	return nil
}

func (r *AccountRepo) GetByID(_ context.Context, accountID string) (*repository.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.rows {
		if a.ID == accountID {
			a := a
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *AccountRepo) PurgeProviderLinks(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for i := range r.rows {
		if r.rows[i].LinkedProviderID == "" && r.rows[i].AvatarURL == "" {
			continue
		}
		r.rows[i].LinkedProviderID = ""
		r.rows[i].AvatarURL = ""
		n++
	}
	return n, nil
}

func (r *AccountRepo) usernameTakenLocked(username string) bool {
	for _, a := range r.rows {
		if strings.EqualFold(a.Username, username) {
			return true
		}
	}
	return false
}

func (r *AccountRepo) providerTakenLocked(providerUserID, exceptID string) bool {
	for _, a := range r.rows {
		if a.LinkedProviderID == providerUserID && a.ID != exceptID {
			return true
		}
	}
	return false
}

func sortOldestFirst(rows []repository.Account) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})
}
