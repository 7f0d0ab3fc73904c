// Package identity implements the hosted auth surface: email/password
// sign-in with a session that persists across restarts until explicit
// sign-out.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/aisocialapp/appcore/internal/apperr"
	"github.com/aisocialapp/appcore/internal/platform"
)

// SessionClaims are the JWT claims carried by a platform access token.
type SessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Client talks to /auth/v1 of the hosted platform and keeps the active
// session on disk so a restarted app stays signed in.
type Client struct {
	baseURL     string
	apiKey      string
	sessionPath string
	httpc       *http.Client
	log         *zap.Logger

	mu      sync.Mutex
	session *platform.Session
}

// Option adjusts client construction.
type Option func(*Client)

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates an identity client and loads any persisted session.
func New(baseURL, apiKey, sessionPath string, opts ...Option) *Client {
	c := &Client{
		baseURL:     baseURL,
		apiKey:      apiKey,
		sessionPath: sessionPath,
		httpc:       &http.Client{Timeout: 10 * time.Second},
		log:         zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	c.loadSession()
	return c
}

var _ platform.Identity = (*Client)(nil)

// SignUp registers a new account and starts a session.
func (c *Client) SignUp(ctx context.Context, email, password string) (*platform.Session, error) {
	return c.authenticate(ctx, c.baseURL+"/auth/v1/signup", email, password)
}

// SignIn starts a session for an existing account.
func (c *Client) SignIn(ctx context.Context, email, password string) (*platform.Session, error) {
	return c.authenticate(ctx, c.baseURL+"/auth/v1/token?grant_type=password", email, password)
}

// SignOut revokes the session remotely and always clears it locally,
// even when the revoke call fails.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	session := c.session
	c.session = nil
	c.mu.Unlock()
	_ = os.Remove(c.sessionPath)

	if session == nil {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/v1/logout", nil)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "build logout request", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)
	resp, err := c.httpc.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindTransport, "logout request failed", err)
	}
	resp.Body.Close()
	return nil
}

// CurrentUser returns the signed-in user, if the persisted session is
// still valid.
func (c *Client) CurrentUser() (*platform.User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil, false
	}
	if expired(c.session.AccessToken) {
		c.session = nil
		_ = os.Remove(c.sessionPath)
		return nil, false
	}
	u := c.session.User
	return &u, true
}

// AccessToken returns the current bearer token, or "" when signed out.
// It is the TokenFunc wired into the gateway and channel clients.
func (c *Client) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.AccessToken
}

func (c *Client) authenticate(ctx context.Context, endpoint, email, password string) (*platform.Session, error) {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "encode credentials", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "build auth request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, "auth request failed", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, "read auth response", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest {
			return nil, apperr.New(apperr.KindAuth, "invalid credentials")
		}
		return nil, apperr.New(apperr.FromStatus(resp.StatusCode),
			fmt.Sprintf("auth endpoint returned %d", resp.StatusCode))
	}

	var session platform.Session
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, "decode session", err)
	}
	if session.AccessToken == "" {
		return nil, apperr.New(apperr.KindAuth, "auth response missing access token")
	}

	c.mu.Lock()
	c.session = &session
	c.mu.Unlock()
	c.persistSession(&session)
	return &session, nil
}

func (c *Client) loadSession() {
	data, err := os.ReadFile(c.sessionPath)
	if err != nil {
		return
	}
	var session platform.Session
	if err := json.Unmarshal(data, &session); err != nil {
		c.log.Warn("discarding unreadable session file", zap.Error(err))
		_ = os.Remove(c.sessionPath)
		return
	}
	if expired(session.AccessToken) {
		_ = os.Remove(c.sessionPath)
		return
	}
	c.session = &session
}

func (c *Client) persistSession(session *platform.Session) {
	data, err := json.Marshal(session)
	if err != nil {
		return
	}
	if err := os.WriteFile(c.sessionPath, data, 0o600); err != nil {
		c.log.Warn("failed to persist session", zap.Error(err))
	}
}

// expired parses the token without verifying its signature; the server
// remains the authority, this only avoids presenting a token that is
// already past its expiry.
func expired(token string) bool {
	claims := &SessionClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Before(time.Now())
}
