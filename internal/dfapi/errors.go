// ABOUTME: Error type for non-success API responses.
// ABOUTME: Parses the platform's {"error": {...}} envelope including validation context.

package dfapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Error is returned for any response outside the accepted status codes.
type Error struct {
	Status  int             `json:"-"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Context json.RawMessage `json:"context,omitempty"`
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// FieldErrors decodes a validation context of the form {"field": ["msg", ...]}.
// It returns nil when the context has another shape.
func (e *Error) FieldErrors() map[string][]string {
	if len(e.Context) == 0 {
		return nil
	}
	var fields map[string][]string
	if err := json.Unmarshal(e.Context, &fields); err != nil {
		return nil
	}
	return fields
}

// IsNotFound reports whether err is an API 404.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

func parseError(status int, body []byte) *Error {
	var envelope struct {
		Error *Error `json:"error"`
	}
	e := &Error{Status: status, Code: status}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		e = envelope.Error
		e.Status = status
		if e.Code == 0 {
			e.Code = status
		}
		return e
	}
	e.Message = strings.TrimSpace(string(body))
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

// FormatFieldErrors renders field errors as "field: msg; field: msg" in field order.
func FormatFieldErrors(fields map[string][]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var parts []string
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(fields[k], ", "))
	}
	return strings.Join(parts, "; ")
}
