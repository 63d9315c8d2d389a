package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	json "github.com/goccy/go-json"
)

// GroceryAPI is the slice of the REST API the sync engine consumes.
// *Client implements it; tests substitute fakes.
type GroceryAPI interface {
	ListSummaries(ctx context.Context) ([]ListSummary, error)
	GetList(ctx context.Context, listID string) (*GroceryList, error)
	SetItemChecked(ctx context.Context, listID, itemID string, checked bool) error
	AddItemToPantry(ctx context.Context, listID, itemID string) error
}

// Ensure Client implements GroceryAPI at compile time.
var _ GroceryAPI = (*Client)(nil)

// Client talks to the kitchen HTTP API.
type Client struct {
	baseURL    *url.URL
	http       *http.Client
	userAgent  string
	creds      CredentialProvider
	getRetries uint64
	newBackOff func() backoff.BackOff
}

const (
	defaultAPIURL     = "http://127.0.0.1:8000/api/v1"
	defaultUserAgent  = "kitchen-sync/0.1"
	defaultTimeout    = 10 * time.Second
	defaultGetRetries = 3
)

// Option customizes a Client.
type Option func(*Client)

// WithCredentials sets the bearer token source.
func WithCredentials(p CredentialProvider) Option {
	return func(c *Client) { c.creds = p }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithGetRetries sets how many times a failed GET is retried. Zero disables retry.
func WithGetRetries(n uint64) Option {
	return func(c *Client) { c.getRetries = n }
}

// NewClient builds a Client for the API rooted at apiURL.
func NewClient(apiURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(apiURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:    base,
		http:       &http.Client{Timeout: defaultTimeout},
		userAgent:  defaultUserAgent,
		creds:      NewStaticToken(""),
		getRetries: defaultGetRetries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			b.MaxElapsedTime = 10 * time.Second
			return b
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListSummaries retrieves GET /grocery.
func (c *Client) ListSummaries(ctx context.Context) ([]ListSummary, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload []ListSummary
	if err := c.get(ctx, c.endpoint("grocery"), &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// GetList retrieves one list with its items.
func (c *Client) GetList(ctx context.Context, listID string) (*GroceryList, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(listID) == "" {
		return nil, fmt.Errorf("list id required")
	}
	var payload GroceryList
	if err := c.get(ctx, c.endpoint("grocery", listID), &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// SetItemChecked confirms a check or uncheck.
func (c *Client) SetItemChecked(ctx context.Context, listID, itemID string, checked bool) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	body, err := json.Marshal(itemPatch{Checked: checked})
	if err != nil {
		return fmt.Errorf("encode patch: %w", err)
	}
	return c.do(ctx, http.MethodPatch, c.endpoint("grocery", listID, "items", itemID), body, nil)
}

// AddItemToPantry confirms a pantry-add. The server also marks the item checked.
func (c *Client) AddItemToPantry(ctx context.Context, listID, itemID string) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	var result PantryResult
	return c.do(ctx, http.MethodPost, c.endpoint("grocery", listID, "items", itemID, "to-pantry"), nil, &result)
}

// Health issues GET /health at the API origin.
func (c *Client) Health(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	u := &url.URL{Scheme: c.baseURL.Scheme, Host: c.baseURL.Host, Path: "/health"}
	return c.send(ctx, http.MethodGet, u, nil, nil, false)
}

func (c *Client) endpoint(elem ...string) *url.URL {
	return c.baseURL.JoinPath(elem...)
}

// get retries transient failures. 401 and permanent errors stop immediately.
func (c *Client) get(ctx context.Context, u *url.URL, dest any) error {
	op := func() error {
		err := c.do(ctx, http.MethodGet, u, nil, dest)
		if err != nil && (IsPermanent(err) || errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrNoCredentials)) {
			return backoff.Permanent(err)
		}
		return err
	}
	if c.getRetries == 0 {
		return op()
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.getRetries), ctx)
	return backoff.Retry(op, policy)
}

func (c *Client) do(ctx context.Context, method string, u *url.URL, body []byte, dest any) error {
	return c.send(ctx, method, u, body, dest, true)
}

func (c *Client) send(ctx context.Context, method string, u *url.URL, body []byte, dest any, authed bool) error {
	opName := method + " " + u.Path

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return &Error{Op: opName, Category: Permanent, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed && c.creds != nil {
		token, err := c.creds.Token(ctx)
		if err != nil {
			return &Error{Op: opName, Category: Transient, Err: err}
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Op: opName, Category: Transient, Err: fmt.Errorf("execute request: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized {
		if c.creds != nil {
			c.creds.Invalidate()
		}
		return &Error{Op: opName, Status: resp.StatusCode, Category: Transient, Err: ErrUnauthorized}
	}
	if resp.StatusCode >= 400 {
		return &Error{
			Op:       opName,
			Status:   resp.StatusCode,
			Category: categorizeStatus(resp.StatusCode),
			Err:      fmt.Errorf("status %d", resp.StatusCode),
		}
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil && !errors.Is(err, io.EOF) {
		return &Error{Op: opName, Category: Transient, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func parseBaseURL(apiURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiURL)
	if trimmed == "" {
		trimmed = defaultAPIURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_url %q: %w", apiURL, err)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
