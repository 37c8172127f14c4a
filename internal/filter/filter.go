// ABOUTME: Builds backend filter-language strings from free-text search terms.
// ABOUTME: Maps each searchable resource to the fields its search box matches against.

package filter

import (
	"fmt"
	"strings"
)

// Resource identifies a searchable resource type.
type Resource string

const (
	User           Resource = "user"
	Apps           Resource = "apps"
	Services       Resource = "services"
	EmailTemplates Resource = "emailTemplates"
	ServiceReports Resource = "serviceReports"
	Roles          Resource = "roles"
	Limits         Resource = "limits"
)

// fieldsByResource is the closed set of searchable resources.
var fieldsByResource = map[Resource][]string{
	User:           {"first_name", "last_name", "name", "email"},
	Apps:           {"name", "description"},
	Services:       {"name", "label", "description", "type"},
	EmailTemplates: {"name", "description"},
	ServiceReports: {"id", "service_id", "service_name", "user_email", "action", "request_verb"},
	Roles:          {"id", "name", "description"},
	Limits:         {"name"},
}

// Resources returns every searchable resource.
func Resources() []Resource {
	return []Resource{User, Apps, Services, EmailTemplates, ServiceReports, Roles, Limits}
}

// Parse resolves a resource name, reporting false for unknown names.
func Parse(name string) (Resource, bool) {
	r := Resource(name)
	_, ok := fieldsByResource[r]
	return r, ok
}

// Fields returns a copy of the fields searched for r, or nil if r is unknown.
func Fields(r Resource) []string {
	fields, ok := fieldsByResource[r]
	if !ok {
		return nil
	}
	return append([]string(nil), fields...)
}

// Clauses builds `(field like "%term%")` clauses joined by " or ".
// The term is interpolated as-is; the backend is trusted to sandbox it.
func Clauses(fields []string, term string) string {
	if len(fields) == 0 || term == "" {
		return ""
	}
	clauses := make([]string, len(fields))
	for i, field := range fields {
		clauses[i] = fmt.Sprintf(`(%s like "%%%s%%")`, field, term)
	}
	return strings.Join(clauses, " or ")
}

// Query maps a search term to a filter string for r.
func Query(r Resource, term string) string {
	return Clauses(fieldsByResource[r], term)
}

// For returns the query builder for r, the shape the table controller consumes.
func For(r Resource) func(term string) string {
	return func(term string) string {
		return Query(r, term)
	}
}
