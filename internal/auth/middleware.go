// ABOUTME: Session token middleware for console requests.
// ABOUTME: Picks the platform session token from a header, cookie, or Bearer token and forwards it.

package auth

import (
	"net/http"
	"strings"

	"github.com/2389/dfconsole/internal/dfapi"
)

// CookieName is the cookie that may carry the platform session token.
const CookieName = "df_session"

// Middleware places the request's session token in the context so every
// backend call made while serving it is sent with that token. Requests
// without one fall back to the client's configured token.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := TokenFromRequest(r); token != "" {
			r = r.WithContext(dfapi.ContextWithSessionToken(r.Context(), token))
		}
		next.ServeHTTP(w, r)
	})
}

// TokenFromRequest returns the session token in precedence order: the
// platform header, the df_session cookie, then an Authorization Bearer token.
func TokenFromRequest(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get(dfapi.HeaderSessionToken)); token != "" {
		return token
	}
	if c, err := r.Cookie(CookieName); err == nil && strings.TrimSpace(c.Value) != "" {
		return strings.TrimSpace(c.Value)
	}
	return extractBearer(r.Header.Get("Authorization"))
}

func extractBearer(authHeader string) string {
	if authHeader == "" {
		return ""
	}
	const prefix = "Bearer "
	if len(authHeader) < len(prefix) || !strings.EqualFold(authHeader[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(authHeader[len(prefix):])
}
