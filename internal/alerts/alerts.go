// ABOUTME: Dismissible alerts carried across redirects in a signed session cookie.
// ABOUTME: Alerts are added by handlers and drained (shown once) by the page layout.

package alerts

import (
	"encoding/gob"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

// Kind selects how an alert is styled.
type Kind string

const (
	Success Kind = "success"
	Info    Kind = "info"
	Warning Kind = "warning"
	Error   Kind = "error"
)

// Alert is one message shown to the user.
type Alert struct {
	ID      string
	Kind    Kind
	Message string
}

// NewAlert returns an alert for rendering directly into a response.
func NewAlert(kind Kind, message string) Alert {
	return Alert{ID: uuid.NewString(), Kind: kind, Message: message}
}

func init() {
	gob.Register(Alert{})
}

const sessionName = "dfconsole-alerts"

// Store keeps pending alerts in a cookie session.
type Store struct {
	cookies *sessions.CookieStore
	logger  *zap.Logger
}

// New returns a Store signing cookies with key. An empty key generates a
// random one, so alerts do not survive a restart.
func New(key []byte, secure bool, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(key) == 0 {
		key = securecookie.GenerateRandomKey(32)
		logger.Warn("no session key configured, using an ephemeral key")
	}

	cookies := sessions.NewCookieStore(key)
	cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   3600,
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &Store{cookies: cookies, logger: logger}
}

// Add queues an alert for the next page the user sees.
func (s *Store) Add(w http.ResponseWriter, r *http.Request, kind Kind, message string) {
	sess, err := s.cookies.Get(r, sessionName)
	if err != nil {
		// A cookie signed with an old key decodes as a fresh session.
		s.logger.Debug("discarding unreadable alert session", zap.Error(err))
	}
	sess.AddFlash(NewAlert(kind, message))
	if err := sess.Save(r, w); err != nil {
		s.logger.Warn("failed to save alert", zap.Error(err))
	}
}

// Drain returns the pending alerts and clears them.
func (s *Store) Drain(w http.ResponseWriter, r *http.Request) []Alert {
	sess, err := s.cookies.Get(r, sessionName)
	if err != nil {
		s.logger.Debug("discarding unreadable alert session", zap.Error(err))
	}
	flashes := sess.Flashes()
	if len(flashes) == 0 {
		return nil
	}
	if err := sess.Save(r, w); err != nil {
		s.logger.Warn("failed to clear alerts", zap.Error(err))
	}

	out := make([]Alert, 0, len(flashes))
	for _, f := range flashes {
		if a, ok := f.(Alert); ok {
			out = append(out, a)
		}
	}
	return out
}
