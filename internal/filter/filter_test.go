// ABOUTME: Tests for filter query construction.
// ABOUTME: Covers per-resource field lists and verbatim term interpolation.

package filter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery_Roles(t *testing.T) {
	got := For(Roles)("admin")
	assert.Equal(t, `(id like "%admin%") or (name like "%admin%") or (description like "%admin%")`, got)
}

func TestQuery_EveryResourceContainsTermPerField(t *testing.T) {
	terms := []string{"admin", `a"b`, "50%_off", "line\nbreak", "ünïcode"}

	for _, r := range Resources() {
		for _, term := range terms {
			got := Query(r, term)
			fields := Fields(r)
			require.NotEmpty(t, fields, "resource %s has no fields", r)

			for _, field := range fields {
				clause := `(` + field + ` like "%` + term + `%")`
				assert.Contains(t, got, clause, "resource %s term %q", r, term)
			}
			assert.Equal(t, len(fields), strings.Count(got, " like "), "resource %s", r)
		}
	}
}

func TestFields(t *testing.T) {
	tests := []struct {
		resource Resource
		want     []string
	}{
		{User, []string{"first_name", "last_name", "name", "email"}},
		{Apps, []string{"name", "description"}},
		{Services, []string{"name", "label", "description", "type"}},
		{EmailTemplates, []string{"name", "description"}},
		{ServiceReports, []string{"id", "service_id", "service_name", "user_email", "action", "request_verb"}},
		{Roles, []string{"id", "name", "description"}},
		{Limits, []string{"name"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.resource), func(t *testing.T) {
			assert.Equal(t, tt.want, Fields(tt.resource))
		})
	}
}

func TestFields_ReturnsCopy(t *testing.T) {
	fields := Fields(Limits)
	fields[0] = "mutated"
	assert.Equal(t, []string{"name"}, Fields(Limits))
}

func TestQuery_Limits(t *testing.T) {
	assert.Equal(t, `(name like "%x%")`, Query(Limits, "x"))
}

func TestQuery_EmptyTerm(t *testing.T) {
	assert.Empty(t, Query(User, ""))
}

func TestQuery_UnknownResource(t *testing.T) {
	assert.Empty(t, Query(Resource("widgets"), "x"))
	assert.Nil(t, Fields(Resource("widgets")))
}

func TestParse(t *testing.T) {
	r, ok := Parse("serviceReports")
	assert.True(t, ok)
	assert.Equal(t, ServiceReports, r)

	_, ok = Parse("nope")
	assert.False(t, ok)
}

func TestClauses_JoinsWithOr(t *testing.T) {
	got := Clauses([]string{"a", "b"}, "q")
	assert.Equal(t, `(a like "%q%") or (b like "%q%")`, got)
}
