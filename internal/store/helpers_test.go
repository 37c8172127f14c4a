// ABOUTME: Tests for the SQL LIKE escaping helper.

package store

import (
	"testing"
)

func TestEscapeSQLLike(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain path", input: "system/role", expected: "system/role"},
		{name: "underscore in resource", input: "system/email_template", expected: "system/email\\_template"},
		{name: "percent", input: "system/%", expected: "system/\\%"},
		{name: "backslash", input: "a\\b", expected: "a\\\\b"},
		{name: "backslash then percent", input: "a\\%", expected: "a\\\\\\%"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := escapeSQLLike(tt.input); got != tt.expected {
				t.Errorf("escapeSQLLike(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestListCallsPrefixIsLiteral(t *testing.T) {
	s := setupTestDB(t)

	for _, p := range []string{"system/email_template", "system/emailxtemplate"} {
		if err := s.LogCall(&APICall{Method: "GET", Path: p, StatusCode: 200}); err != nil {
			t.Fatalf("LogCall: %v", err)
		}
	}

	calls, err := s.ListCalls(&CallQuery{PathPrefix: "system/email_"})
	if err != nil {
		t.Fatalf("ListCalls: %v", err)
	}
	if len(calls) != 1 || calls[0].Path != "system/email_template" {
		t.Fatalf("expected only the literal match, got %+v", calls)
	}
}
