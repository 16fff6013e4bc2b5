// Package authclient is a small Go client for the auth service. It keeps one
// Session and refreshes it on demand, with concurrent refreshes collapsed
// into a single request.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	loginPath      = "/api/v1/auth/login"
	verifyPath     = "/api/v1/auth/2fa/verify"
	refreshPath    = "/api/v1/auth/refresh"
	mePath         = "/api/v1/auth/me"
	refreshKey     = "refresh"
	defaultSkew    = 30 * time.Second
	defaultTimeout = 10 * time.Second
)

var (
	ErrNotSignedIn    = errors.New("no active session")
	ErrSessionExpired = errors.New("session expired, sign in again")
)

// APIError is a non-2xx answer from the service.
type APIError struct {
	StatusCode int      `json:"-"`
	Message    string   `json:"mensagem"`
	Reasons    []string `json:"erros"`
	RetryAfter int      `json:"tentarNovamenteEm"`
}

func (e *APIError) Error() string {
	if len(e.Reasons) > 0 {
		return fmt.Sprintf("auth service returned %d: %s (%s)", e.StatusCode, e.Message, strings.Join(e.Reasons, "; "))
	}
	return fmt.Sprintf("auth service returned %d: %s", e.StatusCode, e.Message)
}

type tokenResponse struct {
	Message           string `json:"mensagem"`
	AccessToken       string `json:"accessToken"`
	RefreshToken      string `json:"refreshToken"`
	ExpiresAt         int64  `json:"expiresAt"`
	User              *User  `json:"usuario"`
	RequiresTwoFactor bool   `json:"requer2FA"`
	AccountID         string `json:"usuarioId"`
}

// LoginResult tells the caller whether a code must be verified before the
// session is usable.
type LoginResult struct {
	RequiresTwoFactor bool
	AccountID         string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRefreshSkew sets how long before expiry Token starts refreshing.
func WithRefreshSkew(d time.Duration) Option {
	return func(c *Client) { c.skew = d }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

type Client struct {
	baseURL string
	http    *http.Client
	session *Session
	group   singleflight.Group
	skew    time.Duration
	now     func() time.Time
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		session: &Session{},
		skew:    defaultSkew,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Session() *Session {
	return c.session
}

func (c *Client) Login(ctx context.Context, login, password string, rememberMe bool) (*LoginResult, error) {
	var out tokenResponse
	err := c.do(ctx, http.MethodPost, loginPath, "", map[string]any{
		"nome_usuario": login,
		"senha":        password,
		"lembrar":      rememberMe,
	}, &out)
	if err != nil {
		return nil, err
	}

	if out.RequiresTwoFactor {
		return &LoginResult{RequiresTwoFactor: true, AccountID: out.AccountID}, nil
	}
	c.session.set(out)
	return &LoginResult{AccountID: out.User.idOrEmpty()}, nil
}

func (c *Client) VerifyTwoFactor(ctx context.Context, accountID, code string, rememberMe bool) error {
	var out tokenResponse
	err := c.do(ctx, http.MethodPost, verifyPath, "", map[string]any{
		"usuarioId": accountID,
		"codigo":    code,
		"lembrar":   rememberMe,
	}, &out)
	if err != nil {
		return err
	}
	c.session.set(out)
	return nil
}

// Refresh exchanges the refresh token for a new pair. Concurrent callers
// share one request and its outcome. A rejected refresh token clears the
// session.
func (c *Client) Refresh(ctx context.Context) error {
	ch := c.group.DoChan(refreshKey, func() (any, error) {
		refreshToken := c.session.RefreshToken()
		if refreshToken == "" {
			return nil, ErrNotSignedIn
		}

		// The flight outlives any single caller's context.
		var out tokenResponse
		err := c.do(context.WithoutCancel(ctx), http.MethodPost, refreshPath, "", map[string]string{"refreshToken": refreshToken}, &out)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) &&
				(apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusNotFound) {
				c.session.Clear()
				return nil, ErrSessionExpired
			}
			return nil, err
		}
		c.session.set(out)
		return nil, nil
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Token returns an access token that is valid for at least the refresh skew,
// refreshing first when needed.
func (c *Client) Token(ctx context.Context) (string, error) {
	if c.session.Active(c.now(), c.skew) {
		return c.session.AccessToken(), nil
	}
	if err := c.Refresh(ctx); err != nil {
		return "", err
	}
	return c.session.AccessToken(), nil
}

// Me fetches the profile of the signed-in account, retrying once after a
// refresh when the access token is rejected.
func (c *Client) Me(ctx context.Context) (*User, error) {
	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}

	var user User
	err = c.do(ctx, http.MethodGet, mePath, token, nil, &user)

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		if err := c.Refresh(ctx); err != nil {
			return nil, err
		}
		err = c.do(ctx, http.MethodGet, mePath, c.session.AccessToken(), nil, &user)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) Logout() {
	c.session.Clear()
}

func (c *Client) do(ctx context.Context, method, path, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("auth service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (u *User) idOrEmpty() string {
	if u == nil {
		return ""
	}
	return u.ID
}
