// ABOUTME: Tests for alert storage across a redirect.

package alerts

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// carry copies the last Set-Cookie of each name from a response onto the next request.
func carry(rr *httptest.ResponseRecorder, next *http.Request) {
	latest := map[string]*http.Cookie{}
	var names []string
	for _, c := range rr.Result().Cookies() {
		if _, seen := latest[c.Name]; !seen {
			names = append(names, c.Name)
		}
		latest[c.Name] = c
	}
	for _, name := range names {
		next.AddCookie(latest[name])
	}
}

func TestAddThenDrain(t *testing.T) {
	s := New([]byte("0123456789abcdef0123456789abcdef"), false, nil)

	first := httptest.NewRecorder()
	s.Add(first, httptest.NewRequest(http.MethodPost, "/admin/users/3/delete", nil), Success, "User deleted")

	req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	carry(first, req)
	second := httptest.NewRecorder()
	got := s.Drain(second, req)

	require.Len(t, got, 1)
	assert.Equal(t, Success, got[0].Kind)
	assert.Equal(t, "User deleted", got[0].Message)
	assert.NotEmpty(t, got[0].ID)

	// The cleared session is written back, so a third request sees nothing.
	again := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	carry(second, again)
	assert.Empty(t, s.Drain(httptest.NewRecorder(), again))
}

func TestDrainWithoutCookie(t *testing.T) {
	s := New(nil, false, nil)
	assert.Nil(t, s.Drain(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin/", nil)))
}

func TestMultipleAlertsKeepOrder(t *testing.T) {
	s := New([]byte("0123456789abcdef0123456789abcdef"), false, nil)
	req := httptest.NewRequest(http.MethodPost, "/admin/roles/import", nil)
	rr := httptest.NewRecorder()

	s.Add(rr, req, Error, "first")
	s.Add(rr, req, Warning, "second")

	next := httptest.NewRequest(http.MethodGet, "/admin/roles", nil)
	carry(rr, next)
	got := s.Drain(httptest.NewRecorder(), next)

	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Message)
	assert.Equal(t, "second", got[1].Message)
}

func TestForeignKeyIsIgnored(t *testing.T) {
	a := New([]byte("0123456789abcdef0123456789abcdef"), false, nil)
	b := New([]byte("fedcba9876543210fedcba9876543210"), false, nil)

	rr := httptest.NewRecorder()
	a.Add(rr, httptest.NewRequest(http.MethodPost, "/", nil), Info, "hello")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	carry(rr, req)
	assert.Empty(t, b.Drain(httptest.NewRecorder(), req))
}

func TestNewAlert_AssignsID(t *testing.T) {
	a := NewAlert(Warning, "careful")
	b := NewAlert(Warning, "careful")
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, Warning, a.Kind)
}
