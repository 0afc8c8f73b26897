// Package credits reads and adjusts user credit balances through the credits REST API
// and describes the purchasable credit plans.
package credits

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// DefaultBaseURL is used when no API base URL is configured.
const DefaultBaseURL = "http://localhost:8080"

var (
	ErrRequestFailed     = errors.New("credits request failed")
	ErrMalformedResponse = errors.New("malformed credits response")
	ErrMissingUser       = errors.New("user id is required")
)

// StatusError reports a non-200 response. It matches [ErrRequestFailed] with [errors.Is].
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("failed to fetch user credits: %d", e.StatusCode)
}

func (e *StatusError) Unwrap() error { return ErrRequestFailed }

// Client makes raw HTTP requests to the credits API.
type Client struct {
	baseURL    string
	adminKey   string
	httpClient *http.Client
}

// NewClient creates a client for baseURL, falling back to [DefaultBaseURL].
func NewClient(baseURL string, client *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

// WithAdminKey returns a copy of c that sends key as X-Admin-Key on balance changes.
func (c *Client) WithAdminKey(key string) *Client {
	cp := *c
	cp.adminKey = key
	return &cp
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// Envelope is the JSON body shape returned by every credits API endpoint.
type Envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Balance is the data of a credits response.
type Balance struct {
	UserID       string `json:"user_id,omitempty"`
	Credits      *int   `json:"credits"`
	CreditsAdded *int   `json:"credits_added,omitempty"`
	Message      string `json:"message,omitempty"`
}

// Get performs a GET request to the specified path and returns the raw response.
func (c *Client) Get(ctx context.Context, path string, header http.Header) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, header)
}

// PostForm performs a form encoded POST request and returns the raw response.
func (c *Client) PostForm(ctx context.Context, path string, form url.Values, header http.Header) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, header)
}

func (c *Client) do(req *http.Request, header http.Header) (*APIResponse, error) {
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}

	var jsonData any
	if err := json.Unmarshal(body, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

func creditsPath(userID string) string {
	return "/api/v1/user/" + url.PathEscape(userID) + "/credits"
}

// Credits fetches the balance of userID.
//
// A non-200 status yields a [*StatusError]. A body without a numeric data.credits yields 0 and [ErrMalformedResponse].
func (c *Client) Credits(ctx context.Context, userID, accessToken string) (int, error) {
	if userID == "" {
		return 0, ErrMissingUser
	}

	header := http.Header{}
	header.Set("X-User-ID", userID)
	if accessToken != "" {
		header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.Get(ctx, creditsPath(userID), header)
	if err != nil {
		return 0, err
	}
	if resp.StatusCode != http.StatusOK {
		return 0, &StatusError{StatusCode: resp.StatusCode, Message: envelopeMessage(resp.Body)}
	}

	balance, err := decodeBalance(resp.Body)
	if err != nil {
		return 0, err
	}
	if balance.Credits == nil {
		return 0, fmt.Errorf("%w: missing data.credits", ErrMalformedResponse)
	}
	return *balance.Credits, nil
}

// AddCredits adds n credits to the balance of userID. Requires an admin key.
func (c *Client) AddCredits(ctx context.Context, userID string, n int) (*Balance, error) {
	return c.adjust(ctx, userID, "/add", n)
}

// SetCredits replaces the balance of userID. Requires an admin key.
func (c *Client) SetCredits(ctx context.Context, userID string, n int) (*Balance, error) {
	return c.adjust(ctx, userID, "/update", n)
}

func (c *Client) adjust(ctx context.Context, userID, action string, n int) (*Balance, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}

	header := http.Header{}
	header.Set("X-Admin-Key", c.adminKey)

	form := url.Values{"credits": {strconv.Itoa(n)}}
	resp, err := c.PostForm(ctx, creditsPath(userID)+action, form, header)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: envelopeMessage(resp.Body)}
	}
	return decodeBalance(resp.Body)
}

func decodeBalance(body []byte) (*Balance, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var balance Balance
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return &balance, nil
	}
	if err := json.Unmarshal(env.Data, &balance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &balance, nil
}

func envelopeMessage(body []byte) string {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	return env.Message
}
