// Package identity talks to the hosted auth service and keeps the signed-in session.
//
// [Client] wraps the auth REST API (authorize URL, PKCE code exchange, refresh, user, logout).
// [Auth] is the process wide auth context: it restores the persisted session, refreshes it and
// notifies subscribers of sign-in and sign-out events.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/oauth2"

	"github.com/verse91/clipy/internal/models"
	"github.com/verse91/clipy/internal/shared"
)

const DefaultProvider = "google"

// Client is a minimal client for the auth service REST API.
type Client struct {
	baseURL    string
	anonKey    string
	provider   string
	oauth      *oauth2.Config
	httpClient *http.Client
}

// NewClient validates cfg and builds a [Client]. A nil httpClient uses [http.DefaultClient].
func NewClient(cfg shared.IdentityConfig, httpClient *http.Client) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	provider := cfg.Provider
	if provider == "" {
		provider = DefaultProvider
	}

	base := strings.TrimRight(cfg.URL, "/")
	return &Client{
		baseURL:  base,
		anonKey:  cfg.AnonKey,
		provider: provider,
		oauth: &oauth2.Config{
			Endpoint: oauth2.Endpoint{
				AuthURL:  base + "/auth/v1/authorize",
				TokenURL: base + "/auth/v1/token",
			},
		},
		httpClient: httpClient,
	}, nil
}

var (
	sharedClient *Client
	sharedErr    error
	sharedOnce   sync.Once
)

// Shared returns the process wide client, constructing it from cfg on first use.
//
// Later calls ignore cfg and return the same client or the same configuration error.
func Shared(cfg shared.IdentityConfig) (*Client, error) {
	sharedOnce.Do(func() {
		sharedClient, sharedErr = NewClient(cfg, nil)
	})
	return sharedClient, sharedErr
}

// Provider returns the OAuth provider name used for sign-in.
func (c *Client) Provider() string {
	return c.provider
}

// AuthorizeURL returns the provider sign-in URL with a PKCE S256 challenge derived from verifier.
//
// Google is asked for offline access and a consent prompt so a refresh token is always issued.
func (c *Client) AuthorizeURL(redirectTo, verifier string) string {
	return c.oauth.AuthCodeURL("",
		oauth2.SetAuthURLParam("provider", c.provider),
		oauth2.SetAuthURLParam("redirect_to", redirectTo),
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.S256ChallengeOption(verifier),
	)
}

// Exchange trades an authorization code and its PKCE verifier for a session.
func (c *Client) Exchange(ctx context.Context, code, verifier string) (*models.Session, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code", shared.ErrMissingArgument)
	}
	body := map[string]string{"auth_code": code, "code_verifier": verifier}

	var session models.Session
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=pkce", "", body, &session); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}
	return &session, nil
}

// Refresh exchanges a refresh token for a new session.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*models.Session, error) {
	if refreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}
	body := map[string]string{"refresh_token": refreshToken}

	var session models.Session
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", "", body, &session); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}
	return &session, nil
}

// User returns the account behind accessToken.
func (c *Client) User(ctx context.Context, accessToken string) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodGet, "/auth/v1/user", accessToken, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SignOut revokes the session behind accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/auth/v1/logout", accessToken, nil, nil)
}

// apiError is the error body returned by the auth service. Field names differ between endpoints.
type apiError struct {
	Code        any    `json:"code"`
	Msg         string `json:"msg"`
	Message     string `json:"message"`
	Err         string `json:"error"`
	Description string `json:"error_description"`
}

func (e apiError) text() string {
	for _, s := range []string{e.Description, e.Msg, e.Message, e.Err} {
		if s != "" {
			return s
		}
	}
	return ""
}

// StatusError is returned for non-2xx responses from the auth service.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("auth service error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("auth service error: status %d: %s", e.StatusCode, e.Message)
}

func (c *Client) do(ctx context.Context, method, path, accessToken string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		_ = json.Unmarshal(data, &apiErr)
		return &StatusError{StatusCode: resp.StatusCode, Message: apiErr.text()}
	}

	if result == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// IsUnauthorized reports whether err is a 401 or 403 from the auth service.
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && (se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden)
}
