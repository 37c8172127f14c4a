// ABOUTME: SQL helper functions for query construction.
// ABOUTME: Utilities for escaping LIKE patterns.

package store

import "strings"

// escapeSQLLike escapes %, _ and \ so a user-supplied prefix matches literally.
// Queries using it must declare ESCAPE '\'.
func escapeSQLLike(pattern string) string {
	// Backslash first to avoid double-escaping
	pattern = strings.ReplaceAll(pattern, "\\", "\\\\")
	pattern = strings.ReplaceAll(pattern, "%", "\\%")
	pattern = strings.ReplaceAll(pattern, "_", "\\_")
	return pattern
}
