// ABOUTME: Tests for license status lookup, caching, and paywall decisions.

package license

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/2389/dfconsole/internal/dfapi"
	"github.com/2389/dfconsole/internal/resources"
)

func platform(t *testing.T, license string, hits *int32) *dfapi.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		assert.Equal(t, "/api/v2/system/environment", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"platform":{"license":"` + license + `","version":"6.1.0"}}`))
	}))
	t.Cleanup(srv.Close)
	return dfapi.New(srv.URL + "/api/v2")
}

func TestOpenSourceSkipsLicenseServer(t *testing.T) {
	var envHits, serverHits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&serverHits, 1)
	}))
	defer srv.Close()

	c := NewChecker(platform(t, "OPEN SOURCE", &envHits), WithLicenseServer(srv.URL, "key"))
	st, err := c.Status(context.Background())
	require.NoError(t, err)

	assert.True(t, st.OpenSource())
	assert.Equal(t, "6.1.0", st.Version)
	assert.Zero(t, atomic.LoadInt32(&serverHits))
}

func TestEmptyLicenseIsOpenSource(t *testing.T) {
	var hits int32
	st, err := NewChecker(platform(t, "", &hits)).Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TierOpenSource, st.Tier)
}

func TestCommercialTierAsksLicenseServer(t *testing.T) {
	var envHits int32
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get(HeaderLicenseKey)
		w.Write([]byte(`{"disableUi":"true","msg":"Your subscription has expired","renewalDate":"2026-01-01"}`))
	}))
	defer srv.Close()

	c := NewChecker(platform(t, "GOLD", &envHits), WithLicenseServer(srv.URL, "lic-123"), WithLogger(zaptest.NewLogger(t)))
	st, err := c.Status(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "lic-123", gotKey)
	assert.Equal(t, "GOLD", st.Tier)
	assert.True(t, st.Locked())
	assert.Equal(t, "Your subscription has expired", st.Message)
	assert.Equal(t, "2026-01-01", st.RenewalDate)
}

func TestLicenseServerFailureKeepsTier(t *testing.T) {
	var envHits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewChecker(platform(t, "SILVER", &envHits), WithLicenseServer(srv.URL, "k"), WithLogger(zaptest.NewLogger(t)))
	st, err := c.Status(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "SILVER", st.Tier)
	assert.False(t, st.Locked())
	assert.NotEmpty(t, st.Message)
}

func TestPlatformFailureIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"code":401,"message":"No session"}}`))
	}))
	defer srv.Close()

	_, err := NewChecker(dfapi.New(srv.URL)).Status(context.Background())
	var apiErr *dfapi.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.Status)
}

func TestStatusIsCachedForTTL(t *testing.T) {
	var hits int32
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	c := NewChecker(platform(t, "OPEN SOURCE", &hits), WithTTL(time.Minute), WithClock(clock))
	ctx := context.Background()

	_, err := c.Status(ctx)
	require.NoError(t, err)
	_, err = c.Status(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))

	now = now.Add(2 * time.Minute)
	_, err = c.Status(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))

	c.Invalidate()
	_, err = c.Status(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt32(&hits))
}

func TestAllows(t *testing.T) {
	paid, ok := resources.Get("limits")
	require.True(t, ok)
	free, ok := resources.Get("users")
	require.True(t, ok)

	oss := Status{Tier: TierOpenSource}
	gold := Status{Tier: "GOLD"}

	assert.False(t, oss.Allows(paid))
	assert.True(t, oss.Allows(free))
	assert.True(t, gold.Allows(paid))
	assert.True(t, gold.Allows(free))
}

func TestParseFlag(t *testing.T) {
	assert.True(t, parseFlag([]byte(`true`)))
	assert.True(t, parseFlag([]byte(`"true"`)))
	assert.False(t, parseFlag([]byte(`"false"`)))
	assert.False(t, parseFlag([]byte(`0`)))
	assert.False(t, parseFlag(nil))
}
