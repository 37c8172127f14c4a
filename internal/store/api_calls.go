// ABOUTME: Storage for backend API call records.
// ABOUTME: Inserts calls made to the platform and answers the console's activity queries.

package store

import (
	"fmt"
	"time"
)

// APICall is one request the console made to the platform.
type APICall struct {
	ID           int64
	Timestamp    time.Time
	RequestID    string
	Resource     string
	Method       string
	Path         string
	Query        string
	StatusCode   int
	DurationMs   int
	Error        string
	RequestBody  string
	ResponseBody string
}

const timestampLayout = "2006-01-02 15:04:05"

// LogCall inserts a call record. A zero Timestamp means now.
func (s *Store) LogCall(c *APICall) error {
	ts := c.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO api_calls (timestamp, request_id, resource, method, path, query, status_code, duration_ms, error, request_body, response_body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ts.UTC().Format(timestampLayout), c.RequestID, c.Resource, c.Method, c.Path, c.Query, c.StatusCode, c.DurationMs, c.Error, c.RequestBody, c.ResponseBody)
	return err
}

// CallQuery filters ListCalls.
type CallQuery struct {
	Limit      int
	Offset     int
	Resource   string
	Method     string
	PathPrefix string
	StatusCode int
	RequestID  string
	ErrorsOnly bool
}

// CallStats are aggregate statistics over all stored calls.
type CallStats struct {
	TotalCalls      int
	TodayCalls      int
	ErrorCalls      int
	AvgDurationMs   int
	UniqueEndpoints int
}

// EndpointStat is one row of GetTopEndpoints.
type EndpointStat struct {
	Path  string
	Count int
	AvgMs int
}

const callColumns = `id, timestamp, COALESCE(request_id, ''), COALESCE(resource, ''), method, path,
	COALESCE(query, ''), COALESCE(status_code, 0), COALESCE(duration_ms, 0), COALESCE(error, ''),
	COALESCE(request_body, ''), COALESCE(response_body, '')`

// ListCalls returns calls matching q, newest first.
func (s *Store) ListCalls(q *CallQuery) ([]*APICall, error) {
	query := `SELECT ` + callColumns + ` FROM api_calls WHERE 1=1`
	args := []any{}

	if q.Resource != "" {
		query += " AND resource = ?"
		args = append(args, q.Resource)
	}
	if q.Method != "" {
		query += " AND method = ?"
		args = append(args, q.Method)
	}
	if q.PathPrefix != "" {
		query += ` AND path LIKE ? ESCAPE '\'`
		args = append(args, escapeSQLLike(q.PathPrefix)+"%")
	}
	if q.StatusCode > 0 {
		query += " AND status_code = ?"
		args = append(args, q.StatusCode)
	}
	if q.RequestID != "" {
		query += " AND request_id = ?"
		args = append(args, q.RequestID)
	}
	if q.ErrorsOnly {
		query += " AND (status_code >= 400 OR COALESCE(error, '') != '')"
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, q.Offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var calls []*APICall
	for rows.Next() {
		c := &APICall{}
		var timestamp string
		if err := rows.Scan(&c.ID, &timestamp, &c.RequestID, &c.Resource, &c.Method, &c.Path,
			&c.Query, &c.StatusCode, &c.DurationMs, &c.Error, &c.RequestBody, &c.ResponseBody); err != nil {
			return nil, err
		}
		c.Timestamp = parseTimestamp(timestamp)
		calls = append(calls, c)
	}
	return calls, rows.Err()
}

// CallStats returns aggregate statistics.
func (s *Store) CallStats() (*CallStats, error) {
	stats := &CallStats{}
	today := time.Now().UTC().Format("2006-01-02")

	err := s.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN date(timestamp) = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status_code >= 400 OR COALESCE(error, '') != '' THEN 1 ELSE 0 END), 0),
			CAST(COALESCE(AVG(duration_ms), 0) AS INTEGER),
			COUNT(DISTINCT path)
		FROM api_calls
	`, today).Scan(&stats.TotalCalls, &stats.TodayCalls, &stats.ErrorCalls, &stats.AvgDurationMs, &stats.UniqueEndpoints)
	if err != nil {
		return nil, fmt.Errorf("call stats: %w", err)
	}
	return stats, nil
}

// GetTopEndpoints returns the most frequently called paths.
func (s *Store) GetTopEndpoints(limit int) ([]EndpointStat, error) {
	rows, err := s.db.Query(`
		SELECT path, COUNT(*) AS count, AVG(duration_ms) AS avg_ms
		FROM api_calls
		GROUP BY path
		ORDER BY count DESC, path
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var endpoints []EndpointStat
	for rows.Next() {
		var e EndpointStat
		var avgMs float64
		if err := rows.Scan(&e.Path, &e.Count, &avgMs); err != nil {
			return nil, err
		}
		e.AvgMs = int(avgMs)
		endpoints = append(endpoints, e)
	}
	return endpoints, rows.Err()
}

// ResourceCallCount returns the number of calls for a resource since a given time.
func (s *Store) ResourceCallCount(resource string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*)
		FROM api_calls
		WHERE resource = ? AND timestamp >= ?
	`, resource, since.UTC().Format(timestampLayout)).Scan(&count)
	return count, err
}

// ResourceErrorRate returns the percentage of failed calls for a resource since a given time.
func (s *Store) ResourceErrorRate(resource string, since time.Time) (float64, error) {
	var total, failed int
	err := s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN status_code >= 400 OR COALESCE(error, '') != '' THEN 1 ELSE 0 END), 0)
		FROM api_calls
		WHERE resource = ? AND timestamp >= ?
	`, resource, since.UTC().Format(timestampLayout)).Scan(&total, &failed)
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}
	return float64(failed) / float64(total) * 100.0, nil
}

// PruneCalls deletes calls older than before and returns how many were removed.
func (s *Store) PruneCalls(before time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM api_calls WHERE timestamp < ?`, before.UTC().Format(timestampLayout))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func parseTimestamp(v string) time.Time {
	for _, layout := range []string{timestampLayout, time.RFC3339Nano, "2006-01-02T15:04:05Z"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
