// ABOUTME: Tests for session token middleware.
// ABOUTME: Verifies token precedence across header, cookie, and Bearer sources.

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/2389/dfconsole/internal/dfapi"
)

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		name   string
		header string
		cookie string
		bearer string
		want   string
	}{
		{"nothing", "", "", "", ""},
		{"header", "tok-h", "", "", "tok-h"},
		{"cookie", "", "tok-c", "", "tok-c"},
		{"bearer", "", "", "Bearer tok-b", "tok-b"},
		{"lowercase bearer", "", "", "bearer tok-b", "tok-b"},
		{"empty bearer", "", "", "Bearer ", ""},
		{"basic auth ignored", "", "", "Basic dXNlcjpwYXNz", ""},
		{"header beats cookie", "tok-h", "tok-c", "Bearer tok-b", "tok-h"},
		{"cookie beats bearer", "", "tok-c", "Bearer tok-b", "tok-c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/", nil)
			if tt.header != "" {
				req.Header.Set(dfapi.HeaderSessionToken, tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: CookieName, Value: tt.cookie})
			}
			if tt.bearer != "" {
				req.Header.Set("Authorization", tt.bearer)
			}

			if got := TokenFromRequest(req); got != tt.want {
				t.Errorf("TokenFromRequest() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMiddleware_ForwardsToken(t *testing.T) {
	var got string
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = dfapi.SessionTokenFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin/", nil)
	req.Header.Set("Authorization", "Bearer abc")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got != "abc" {
		t.Errorf("context token = %q, want abc", got)
	}
}

func TestMiddleware_NoTokenLeavesContextEmpty(t *testing.T) {
	got := "unset"
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = dfapi.SessionTokenFromContext(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin/", nil))

	if got != "" {
		t.Errorf("context token = %q, want empty", got)
	}
}
