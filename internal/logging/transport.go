// ABOUTME: RoundTripper that records every call the console makes to the platform.
// ABOUTME: Captures method, path, status, duration, and capped bodies into the activity store.

package logging

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/2389/dfconsole/internal/store"
)

const maxBodySize = 10 * 1024 // 10KB limit for body capture

// Recorder persists call records. *store.Store satisfies it.
type Recorder interface {
	LogCall(c *store.APICall) error
}

// Transport wraps Base and records each round trip. A nil Recorder only logs.
type Transport struct {
	Base     http.RoundTripper
	Recorder Recorder
	Logger   *zap.Logger
}

// NewTransport wraps base (http.DefaultTransport when nil).
func NewTransport(base http.RoundTripper, rec Recorder, logger *zap.Logger) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transport{Base: base, Recorder: rec, Logger: logger}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	var requestBody string
	if req.Body != nil && req.GetBody != nil {
		if body, err := req.GetBody(); err == nil {
			b, _ := io.ReadAll(io.LimitReader(body, maxBodySize))
			body.Close()
			requestBody = string(b)
		}
	}

	start := time.Now()
	res, err := t.Base.RoundTrip(req)
	duration := time.Since(start)

	call := &store.APICall{
		Timestamp:   start,
		RequestID:   RequestIDFromContext(req.Context()),
		Resource:    ResourceFromPath(req.URL.Path),
		Method:      req.Method,
		Path:        req.URL.Path,
		Query:       req.URL.RawQuery,
		DurationMs:  int(duration.Milliseconds()),
		RequestBody: requestBody,
	}

	if err != nil {
		call.Error = err.Error()
	} else {
		call.StatusCode = res.StatusCode
		body, readErr := io.ReadAll(res.Body)
		res.Body.Close()
		// Hand the caller an unconsumed body.
		res.Body = io.NopCloser(bytes.NewReader(body))
		if readErr != nil {
			call.Error = readErr.Error()
		}
		if len(body) > maxBodySize {
			body = body[:maxBodySize]
		}
		call.ResponseBody = string(body)
	}

	t.Logger.Debug("api call",
		zap.String("request_id", call.RequestID),
		zap.String("method", call.Method),
		zap.String("path", call.Path),
		zap.Int("status", call.StatusCode),
		zap.Int("duration_ms", call.DurationMs),
		zap.String("error", call.Error))

	if t.Recorder != nil {
		if recErr := t.Recorder.LogCall(call); recErr != nil {
			t.Logger.Warn("failed to record api call", zap.Error(recErr))
		}
	}
	return res, err
}

// ResourceFromPath names the platform resource a request path addresses:
// the segment after "system/" for system resources, otherwise the service
// name following the API version.
func ResourceFromPath(path string) string {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	for i, s := range segs {
		if s != "system" {
			continue
		}
		if i+1 < len(segs) {
			return segs[i+1]
		}
		return "unknown"
	}
	for i, s := range segs {
		if s == "api" && i+2 < len(segs) {
			return segs[i+2]
		}
	}
	return "unknown"
}
