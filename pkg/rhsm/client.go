// Package rhsm is a client for the subscription watch tally and capacity
// endpoints.
package rhsm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/opscart/subscriptions-utilized/pkg/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

var (
	// ErrUnauthorized is wrapped by StatusError for 401 and 403 responses
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUnexpectedStatus is wrapped by StatusError for any other non-2xx response
	ErrUnexpectedStatus = errors.New("unexpected status")
)

// StatusError reports a non-2xx API response
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("rhsm %s returned %d: %s", e.URL, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	return ErrUnexpectedStatus
}

// seriesResponse is the envelope of tally and capacity responses
type seriesResponse struct {
	Data  models.Series   `json:"data"`
	Meta  json.RawMessage `json:"meta,omitempty"`
	Links json.RawMessage `json:"links,omitempty"`
}

// Client performs authenticated GET requests against the API
type Client struct {
	base   string
	h      *http.Client
	tokens oauth2.TokenSource
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.h = h }
}

// WithTokenSource sets where bearer tokens come from
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithTimeout sets the request timeout of the default HTTP client
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.h.Timeout = d }
}

func New(base string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(base, "/"),
		h:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StaticToken returns a token source for a fixed bearer token
func StaticToken(token string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
}

// ClientCredentials returns a caching token source using the OAuth2
// client-credentials grant
func ClientCredentials(ctx context.Context, tokenURL, clientID, clientSecret string) oauth2.TokenSource {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}
	return cfg.TokenSource(ctx)
}

// Tally fetches the report series for a product:
// GET /tally/products/{productID}?granularity=&beginning=&ending=
func (c *Client) Tally(ctx context.Context, productID string, opts models.QueryOptions) (models.Series, error) {
	return c.fetchSeries(ctx, "tally", productID, opts)
}

// Capacity fetches the capacity series for a product:
// GET /capacity/products/{productID}?granularity=&beginning=&ending=
func (c *Client) Capacity(ctx context.Context, productID string, opts models.QueryOptions) (models.Series, error) {
	return c.fetchSeries(ctx, "capacity", productID, opts)
}

func (c *Client) fetchSeries(ctx context.Context, kind, productID string, opts models.QueryOptions) (models.Series, error) {
	u, err := url.Parse(c.base + "/" + kind + "/products/" + url.PathEscape(productID))
	if err != nil {
		return nil, fmt.Errorf("failed to build %s url: %w", kind, err)
	}
	q := u.Query()
	if opts.Granularity != "" {
		q.Set("granularity", string(opts.Granularity))
	}
	if opts.Beginning != "" {
		q.Set("beginning", opts.Beginning)
	}
	if opts.Ending != "" {
		q.Set("ending", opts.Ending)
	}
	u.RawQuery = q.Encode()

	var payload seriesResponse
	if err := c.get(ctx, u.String(), &payload); err != nil {
		return nil, err
	}
	if payload.Data == nil {
		return models.Series{}, nil
	}
	return payload.Data, nil
}

func (c *Client) get(ctx context.Context, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	// A token is obtained before every request so expired credentials
	// are refreshed by the source.
	if c.tokens != nil {
		tok, err := c.tokens.Token()
		if err != nil {
			return fmt.Errorf("failed to obtain token: %w", err)
		}
		tok.SetAuthHeader(req)
	}

	resp, err := c.h.Do(req)
	if err != nil {
		return fmt.Errorf("request %s failed: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{URL: target, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", target, err)
	}
	return nil
}
