package social

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/dropDatabas3/yandexid/internal/domain/repository"
	"github.com/dropDatabas3/yandexid/internal/oauth/yandex"
)

// AccountResolver maps a Yandex profile to a local account: by provider id,
// then by email (linking it), then by creating a new account.
type AccountResolver interface {
	Resolve(ctx context.Context, p *yandex.Profile) (*Resolution, error)
}

// Resolution is the account the login continues with.
type Resolution struct {
	Account *repository.Account
	// Created: the account did not exist before this call.
	Created bool
	// Linked: an existing account was matched by email and linked.
	Linked bool
}

// Errors for account resolution.
var (
	ErrProfileIncomplete     = errors.New("profile has no provider user id")
	ErrAutoCreateDisabled    = errors.New("automatic account creation is disabled")
	ErrAccountCreationFailed = errors.New("account creation failed")
	ErrAccountLookupFailed   = errors.New("account lookup failed")
)

// maxUsernameLength matches the host's login column.
const maxUsernameLength = 60

var foldMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// SanitizeUsername folds accents ("José" -> "jose"), lowercases, turns
// whitespace into "_" and keeps only [a-z0-9_.@-]. May return "".
func SanitizeUsername(s string) string {
	folded, _, err := transform.String(foldMarks, strings.TrimSpace(s))
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	lastUnderscore := false
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '@':
			b.WriteRune(r)
			lastUnderscore = false
		case r == '_' || unicode.IsSpace(r):
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return clampUsername(b.String(), maxUsernameLength)
}

// clampUsername corta a max bytes (la salida ya es ASCII) sin dejar "_" en
// los bordes.
func clampUsername(s string, max int) string {
	s = strings.Trim(s, "_")
	if len(s) > max {
		s = strings.TrimRight(s[:max], "_")
	}
	return s
}

// withSuffix arma base+n acortando base para que el total no pase de
// maxUsernameLength.
func withSuffix(base string, n int) string {
	if n <= 0 {
		return clampUsername(base, maxUsernameLength)
	}
	suffix := strconv.Itoa(n)
	return clampUsername(base, maxUsernameLength-len(suffix)) + suffix
}

// BaseUsername is the sanitized login, or "yandex_<id>" when the login is
// absent or sanitizes to nothing.
func BaseUsername(p *yandex.Profile) string {
	if base := SanitizeUsername(p.Login); base != "" {
		return base
	}
	return "yandex_" + SanitizeUsername(p.ID)
}
