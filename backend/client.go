// Package backend is the HTTP client for the remote wallet API.
//
// The client never retries, never refreshes credentials and never mutates
// local session state. Committing a returned token is the caller's job.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
)

const (
	defaultTimeout = 10 * time.Second

	// maxBodySize caps how much of a response body is read.
	maxBodySize = 1 << 20
)

// ClientOption configures a Client.
//
// Client options are applied at construction time via NewClient and allow
// callers to customize transport-level behavior (e.g. HTTP client, timeouts)
// without changing Client semantics.
type ClientOption func(*Client)

// WithHTTPClient configures the Client to use a custom http.Client.
//
// This is useful for setting timeouts, proxies, tracing, or test transports.
// The provided client is used for all outbound requests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// Client calls the wallet API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client.
//
// baseURL must point to the API root (e.g. "https://api.example.com").
// The base URL is normalized by trimming any trailing slash. The default
// transport is traced with otelhttp.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   defaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// bearer returns an http.Client that attaches token as a bearer credential
// on top of the configured transport.
func (c *Client) bearer(ctx context.Context, token string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	hc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
	hc.Timeout = c.httpClient.Timeout
	return hc
}

// do sends a request and returns the status and the (capped) body.
// body, when non-nil, is encoded as JSON. An empty token sends the request
// without credentials.
func (c *Client) do(ctx context.Context, method, path, token string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("backend: encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	hc := c.httpClient
	if token != "" {
		hc = c.bearer(ctx, token)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("backend: read response: %w", err)
	}

	return resp.StatusCode, raw, nil
}

// DoJSONRequest performs a raw request against the API and optionally decodes
// a successful JSON response into out.
//
// This function is a low-level transport helper intended as an escape hatch
// for endpoints that do not have first-class helpers (balances, transaction
// lists).
//
// Behavior and guarantees:
//   - Sends token as a bearer credential when non-empty
//   - Does NOT retry requests
//   - Does NOT interpret HTTP status codes
//   - Decodes JSON only for successful (2xx) responses
//
// Callers are responsible for inspecting the returned status code.
func DoJSONRequest[T any](
	ctx context.Context,
	client *Client,
	method string,
	path string,
	token string,
	body any,
	out *T,
) (int, error) {
	status, raw, err := client.do(ctx, method, path, token, body)
	if err != nil {
		return status, err
	}

	if out != nil && status >= 200 && status < 300 {
		if err := json.Unmarshal(raw, out); err != nil {
			return status, err
		}
	}

	return status, nil
}

// FetchConfig returns the raw feature configuration payload.
//
// Any transport failure or non-2xx status is an error; payload validation is
// left to the caller.
func (c *Client) FetchConfig(ctx context.Context) ([]byte, error) {
	status, raw, err := c.do(ctx, http.MethodGet, ConfigPath, "", nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, apiError(status, raw)
	}
	return raw, nil
}

// CurrentUser retrieves the profile of the user owning token.
//
// Return values:
//   - (*User, nil): the token is accepted and the user exists
//   - (nil, nil): the token is rejected (401 Unauthorized)
//   - (nil, error): an unexpected failure occurred
func (c *Client) CurrentUser(ctx context.Context, token string) (*User, error) {
	var env envelope[User]

	status, err := DoJSONRequest(ctx, c, http.MethodGet, UserPath, token, nil, &env)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK:
		if !env.Success {
			return nil, &APIError{Status: status, Message: env.Message}
		}
		return &env.Data, nil
	case http.StatusUnauthorized:
		return nil, nil
	default:
		return nil, &APIError{Status: status}
	}
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}
