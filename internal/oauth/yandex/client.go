// Package yandex implements the Yandex ID side of the OAuth 2.0
// authorization-code flow: authorize URL, code exchange and profile fetch.
// Yandex does not issue ID tokens, so identity comes from login.yandex.ru/info.
package yandex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	AuthEndpoint  = "https://oauth.yandex.ru/authorize"
	TokenEndpoint = "https://oauth.yandex.ru/token"
	InfoEndpoint  = "https://login.yandex.ru/info"

	defaultTimeout = 5 * time.Second
	maxBodyBytes   = 1 << 20
)

var (
	// ErrTokenExchangeFailed covers transport errors, timeouts, non-2xx
	// responses and responses without access_token.
	ErrTokenExchangeFailed = errors.New("yandex: token exchange failed")

	// ErrProfileFetchFailed covers transport errors, timeouts, non-2xx
	// responses and bodies that are not a JSON object.
	ErrProfileFetchFailed = errors.New("yandex: profile fetch failed")
)

// Config holds client credentials and endpoint overrides.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Empty values fall back to the production endpoints.
	AuthURL  string
	TokenURL string
	InfoURL  string

	// Timeout bounds each outbound call (default 5s).
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client is the Yandex ID OAuth client.
type Client struct {
	authorize oauth2.Config
	exchange  oauth2.Config
	infoURL   string
	timeout   time.Duration
	http      *http.Client
}

// New creates a Yandex ID client.
func New(cfg Config) *Client {
	endpoint := oauth2.Endpoint{
		AuthURL:   firstNonEmpty(cfg.AuthURL, AuthEndpoint),
		TokenURL:  firstNonEmpty(cfg.TokenURL, TokenEndpoint),
		AuthStyle: oauth2.AuthStyleInParams,
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	c := &Client{
		authorize: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
		},
		infoURL: firstNonEmpty(cfg.InfoURL, InfoEndpoint),
		timeout: timeout,
		http:    hc,
	}
	// The token request carries only grant_type, code, client_id and client_secret.
	c.exchange = c.authorize
	c.exchange.RedirectURL = ""
	return c
}

// Configured reports whether a client id is set. Without it the login
// button is hidden and the start endpoint refuses to redirect.
func (c *Client) Configured() bool {
	return strings.TrimSpace(c.authorize.ClientID) != ""
}

// AuthURL builds the authorization URL:
// response_type=code, client_id, redirect_uri, state.
func (c *Client) AuthURL(state string) string {
	return c.authorize.AuthCodeURL(state)
}

// Exchange trades an authorization code for an access token.
func (c *Client) Exchange(ctx context.Context, code string) (string, error) {
	if strings.TrimSpace(code) == "" {
		return "", fmt.Errorf("%w: empty code", ErrTokenExchangeFailed)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)

	tok, err := c.exchange.Exchange(ctx, code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			return "", fmt.Errorf("%w: status %d: %s", ErrTokenExchangeFailed, re.Response.StatusCode, re.ErrorCode)
		}
		return "", fmt.Errorf("%w: %v", ErrTokenExchangeFailed, err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: no access_token in response", ErrTokenExchangeFailed)
	}
	return tok.AccessToken, nil
}

// FetchProfile retrieves the user profile using the access token.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u, err := url.Parse(c.infoURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileFetchFailed, err)
	}
	q := u.Query()
	q.Set("format", "json")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileFetchFailed, err)
	}
	req.Header.Set("Authorization", "OAuth "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, fmt.Errorf("%w: status %d", ErrProfileFetchFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileFetchFailed, err)
	}
	p, err := decodeProfile(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileFetchFailed, err)
	}
	return p, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
