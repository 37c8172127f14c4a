// ABOUTME: HTTP client for the platform's system REST API.
// ABOUTME: Adds API key and session token headers and checks expected status codes.

package dfapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"moul.io/http2curl"
)

const (
	// HeaderAPIKey carries the application API key.
	HeaderAPIKey = "X-DreamFactory-API-Key"
	// HeaderSessionToken carries the admin session token.
	HeaderSessionToken = "X-DreamFactory-Session-Token"

	defaultTimeout = 20 * time.Second
)

// Client talks to the platform REST API rooted at baseURL (e.g. http://host/api/v2).
type Client struct {
	baseURL      string
	apiKey       string
	sessionToken string
	httpClient   *http.Client
	logger       *zap.Logger
	curl         bool
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the API key sent with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithSessionToken sets the fallback session token used when the request
// context does not carry one.
func WithSessionToken(token string) Option {
	return func(c *Client) { c.sessionToken = token }
}

// WithHTTPClient replaces the underlying http.Client. Later WithTimeout and
// WithTransport options change a copy, never hc itself.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the request timeout of the underlying http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

// WithTransport sets the round tripper of the underlying http.Client.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Transport = rt
		c.httpClient = &hc
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithCurl logs every outgoing request as an equivalent curl command.
func WithCurl(enabled bool) Option {
	return func(c *Client) { c.curl = enabled }
}

// New creates a client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type contextKey string

const sessionTokenKey contextKey = "df_session_token"

// ContextWithSessionToken returns a context whose requests authenticate with token.
func ContextWithSessionToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, sessionTokenKey, token)
}

// SessionTokenFromContext returns the session token stored in ctx, if any.
func SessionTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(sessionTokenKey).(string)
	return token
}

// Request describes one API call.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    io.Reader
	Headers map[string]string
	// Expect lists the accepted status codes; empty means any 2xx.
	Expect []int
}

// Do performs req and returns the response headers and body. Non-accepted
// status codes are returned as *Error.
func (c *Client) Do(ctx context.Context, req Request) (http.Header, []byte, error) {
	u := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, req.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("build %s %s: %w", req.Method, req.Path, err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if c.apiKey != "" {
		httpReq.Header.Set(HeaderAPIKey, c.apiKey)
	}
	token := SessionTokenFromContext(ctx)
	if token == "" {
		token = c.sessionToken
	}
	if token != "" {
		httpReq.Header.Set(HeaderSessionToken, token)
	}

	if c.curl {
		cmd, err := http2curl.GetCurlCommand(httpReq)
		if err != nil {
			return nil, nil, fmt.Errorf("render curl command: %w", err)
		}
		c.logger.Info("api request", zap.String("curl", cmd.String()))
	}

	res, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return res.Header, nil, fmt.Errorf("read %s %s response: %w", req.Method, req.Path, err)
	}

	if !accepted(res.StatusCode, req.Expect) {
		return res.Header, body, parseError(res.StatusCode, body)
	}
	return res.Header, body, nil
}

func accepted(status int, expect []int) bool {
	if len(expect) == 0 {
		return status >= 200 && status < 300
	}
	for _, code := range expect {
		if status == code {
			return true
		}
	}
	return false
}

// GetJSON performs a GET and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	_, body, err := c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query, Expect: []int{http.StatusOK}})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// sendJSON marshals payload and sends it with method to path.
func (c *Client) sendJSON(ctx context.Context, method, path string, payload any, expect ...int) ([]byte, error) {
	j, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	_, body, err := c.Do(ctx, Request{Method: method, Path: path, Body: bytes.NewReader(j), Expect: expect})
	return body, err
}

// Platform describes the running platform instance.
type Platform struct {
	License string `json:"license"`
	Version string `json:"version"`
}

// Environment is the subset of system/environment the console reads.
type Environment struct {
	Platform Platform `json:"platform"`
}

// Environment fetches system/environment.
func (c *Client) Environment(ctx context.Context) (Environment, error) {
	var env Environment
	err := c.GetJSON(ctx, "system/environment", nil, &env)
	return env, err
}
