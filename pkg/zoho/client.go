// SPDX-License-Identifier: Apache-2.0
// Package zoho is a minimal client for the Zoho APIs the agent consumes:
// OAuth token refresh, WorkDrive file listing, and Projects task creation.
package zoho

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/agpldev/ag-nexus-pm-agent/pkg/errors"
	"github.com/agpldev/ag-nexus-pm-agent/pkg/resilience"
)

// UserAgent identifies the agent in outbound requests.
const UserAgent = "NexusAgent/0.1 (+https://example.invalid)"

const defaultAPIDomain = "https://www.zohoapis.com"

// Tokens holds short-lived access token info returned by the token endpoint.
type Tokens struct {
	AccessToken string
	TokenType   string
	ExpiresIn   int
	APIDomain   string
}

// Client provides token refresh and authenticated request helpers.
// Safe for concurrent use.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger

	accountsBase      string
	clientID          string
	clientSecret      string
	refreshToken      string
	apiDomainFallback string

	refreshPolicy resilience.Policy

	mu     sync.Mutex
	tokens *Tokens
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client (tests point it at httptest servers).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithAccountsBase overrides the OAuth accounts endpoint base URL.
func WithAccountsBase(base string) Option {
	return func(c *Client) { c.accountsBase = strings.TrimRight(base, "/") }
}

// WithAPIDomainFallback sets the API domain used before the first refresh.
func WithAPIDomainFallback(domain string) Option {
	return func(c *Client) { c.apiDomainFallback = strings.TrimRight(domain, "/") }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithRefreshPolicy overrides the retry policy for token refresh.
func WithRefreshPolicy(p resilience.Policy) Option {
	return func(c *Client) { c.refreshPolicy = p }
}

// New creates a Client for the given OAuth credentials.
func New(clientID, clientSecret, refreshToken string, opts ...Option) *Client {
	c := &Client{
		httpClient:        &http.Client{Timeout: 30 * time.Second},
		logger:            slog.Default(),
		accountsBase:      "https://accounts.zoho.com",
		clientID:          clientID,
		clientSecret:      clientSecret,
		refreshToken:      refreshToken,
		apiDomainFallback: defaultAPIDomain,
		refreshPolicy:     resilience.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RefreshAccessToken refreshes the access token using the configured refresh
// token, retrying transient token-endpoint failures.
func (c *Client) RefreshAccessToken(ctx context.Context) (*Tokens, error) {
	endpoint := c.accountsBase + "/oauth/v2/token"
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {c.refreshToken},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}

	var tokens *Tokens
	err := c.refreshPolicy.Do(ctx, func(ctx context.Context) error {
		c.logger.InfoContext(ctx, "refreshing Zoho access token", slog.String("endpoint", endpoint))
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
			strings.NewReader(form.Encode()))
		if err != nil {
			return errors.New(errors.CodeInternal, "building token request", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("User-Agent", UserAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return classifyTransportError(err, "token endpoint unreachable")
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return httpError(resp, "Zoho token endpoint error")
		}

		var payload struct {
			AccessToken string `json:"access_token"`
			TokenType   string `json:"token_type"`
			ExpiresIn   int    `json:"expires_in"`
			APIDomain   string `json:"api_domain"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return errors.New(errors.CodeRemote, "decoding token response", err)
		}
		if payload.TokenType == "" {
			payload.TokenType = "Bearer"
		}
		if payload.ExpiresIn == 0 {
			payload.ExpiresIn = 3600
		}
		if payload.APIDomain == "" {
			payload.APIDomain = c.apiDomainFallback
		}
		tokens = &Tokens{
			AccessToken: payload.AccessToken,
			TokenType:   payload.TokenType,
			ExpiresIn:   payload.ExpiresIn,
			APIDomain:   strings.TrimRight(payload.APIDomain, "/"),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.tokens = tokens
	c.mu.Unlock()
	c.logger.InfoContext(ctx, "access token refreshed",
		slog.Int("expires_in", tokens.ExpiresIn),
		slog.String("api_domain", tokens.APIDomain))
	return tokens, nil
}

// APIBase returns the API base domain for subsequent calls.
func (c *Client) APIBase() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tokens == nil {
		return c.apiDomainFallback
	}
	return c.tokens.APIDomain
}

// authorize attaches the Authorization and User-Agent headers.
// Fails if no tokens are present; call RefreshAccessToken first.
func (c *Client) authorize(req *http.Request) error {
	c.mu.Lock()
	tokens := c.tokens
	c.mu.Unlock()
	if tokens == nil {
		return errors.New(errors.CodeUnauthorized,
			"no tokens present; call RefreshAccessToken first", nil)
	}
	req.Header.Set("Authorization", tokens.TokenType+" "+tokens.AccessToken)
	req.Header.Set("User-Agent", UserAgent)
	return nil
}

// doJSON issues an authorized request and decodes a 2xx JSON response into out.
func (c *Client) doJSON(ctx context.Context, method, rawURL string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return errors.New(errors.CodeInternal, "building request", err)
	}
	if err := c.authorize(req); err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpError(resp, fmt.Sprintf("%s %s", method, req.URL.Path))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.New(errors.CodeRemote, "decoding response", err)
	}
	return nil
}

// classifyTransportError turns a transport failure into the typed taxonomy:
// caller cancellation, attempt deadline, or a retryable connection error.
func classifyTransportError(err error, msg string) error {
	switch {
	case stderrors.Is(err, context.Canceled):
		return errors.New(errors.CodeCancelled, msg, err)
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.New(errors.CodeTimeout, msg, err)
	default:
		return errors.New(errors.CodeConnection, msg, err)
	}
}

// httpError builds a typed error from a non-2xx response, keeping a short
// body excerpt for logs.
func httpError(resp *http.Response, msg string) error {
	excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return errors.FromHTTPStatus(resp.StatusCode, msg).
		WithContext("body", strings.TrimSpace(string(excerpt)))
}
