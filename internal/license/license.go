// ABOUTME: License tier lookup used to paywall commercial-only resources.
// ABOUTME: Reads the platform's license and, for paid tiers, asks the license server for its status.

package license

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/2389/dfconsole/internal/dfapi"
	"github.com/2389/dfconsole/internal/resources"
)

// TierOpenSource is the license value of a free platform install.
const TierOpenSource = "OPEN SOURCE"

// HeaderLicenseKey carries the license key to the license server.
const HeaderLicenseKey = "X-DreamFactory-License-Key"

// Status is the console's view of the platform license.
type Status struct {
	Tier        string
	Version     string
	DisableUI   bool
	Message     string
	RenewalDate string
	CheckedAt   time.Time
}

// OpenSource reports whether the platform runs without a commercial license.
func (s Status) OpenSource() bool {
	return s.Tier == TierOpenSource
}

// Allows reports whether def may be used under this license.
func (s Status) Allows(def resources.Definition) bool {
	return !def.Paywalled || !s.OpenSource()
}

// Locked reports whether the license server asked for the console to be disabled.
func (s Status) Locked() bool {
	return s.DisableUI
}

// Checker fetches and caches the license status.
type Checker struct {
	api        *dfapi.Client
	httpClient *http.Client
	licenseURL string
	licenseKey string
	ttl        time.Duration
	now        func() time.Time
	logger     *zap.Logger

	mu      sync.Mutex
	cached  *Status
	expires time.Time
}

// Option configures a Checker.
type Option func(*Checker)

// WithLicenseServer sets the license check endpoint and key. Without both,
// commercial tiers are trusted as reported by the platform.
func WithLicenseServer(url, key string) Option {
	return func(c *Checker) {
		c.licenseURL = url
		c.licenseKey = key
	}
}

// WithTTL sets how long a status is cached. Zero disables caching.
func WithTTL(d time.Duration) Option {
	return func(c *Checker) { c.ttl = d }
}

// WithHTTPClient sets the client used for the license server.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Checker) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Checker) { c.logger = l }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Checker) { c.now = now }
}

// NewChecker returns a checker reading the platform through api.
func NewChecker(api *dfapi.Client, opts ...Option) *Checker {
	c := &Checker{
		api:        api,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		ttl:        time.Hour,
		now:        time.Now,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Status returns the cached status, refreshing it once the TTL has passed.
// Failing to read the platform is an error; a failing license server only
// adds a message, since the platform has already reported its tier.
func (c *Checker) Status(ctx context.Context) (Status, error) {
	c.mu.Lock()
	if c.cached != nil && c.now().Before(c.expires) {
		st := *c.cached
		c.mu.Unlock()
		return st, nil
	}
	c.mu.Unlock()

	env, err := c.api.Environment(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("read license: %w", err)
	}

	st := Status{
		Tier:      strings.TrimSpace(env.Platform.License),
		Version:   env.Platform.Version,
		CheckedAt: c.now(),
	}
	if st.Tier == "" {
		st.Tier = TierOpenSource
	}

	if !st.OpenSource() && c.licenseURL != "" && c.licenseKey != "" {
		if err := c.checkServer(ctx, &st); err != nil {
			c.logger.Warn("license server check failed", zap.Error(err))
			st.Message = "The license server could not be reached."
		}
	}

	c.mu.Lock()
	c.cached = &st
	c.expires = c.now().Add(c.ttl)
	c.mu.Unlock()
	return st, nil
}

// Invalidate drops the cached status.
func (c *Checker) Invalidate() {
	c.mu.Lock()
	c.cached = nil
	c.mu.Unlock()
}

type serverResponse struct {
	DisableUI   json.RawMessage `json:"disableUi"`
	Msg         string          `json:"msg"`
	RenewalDate string          `json:"renewalDate"`
}

func (c *Checker) checkServer(ctx context.Context, st *Status) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.licenseURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderLicenseKey, c.licenseKey)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 64*1024))
	if err != nil {
		return err
	}
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("license server returned %d", res.StatusCode)
	}

	var sr serverResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return fmt.Errorf("decode license response: %w", err)
	}
	st.DisableUI = parseFlag(sr.DisableUI)
	st.Message = sr.Msg
	st.RenewalDate = sr.RenewalDate
	return nil
}

// parseFlag accepts a JSON boolean or a quoted "true"/"false".
func parseFlag(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		b, _ = strconv.ParseBool(strings.TrimSpace(s))
		return b
	}
	return false
}
