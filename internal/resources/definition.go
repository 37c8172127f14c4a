// ABOUTME: Resource definitions binding API paths, filters, and table layouts.
// ABOUTME: Each definition builds a typed table controller behind the table.Table interface.

package resources

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/2389/dfconsole/internal/dfapi"
	"github.com/2389/dfconsole/internal/filter"
	"github.com/2389/dfconsole/internal/table"
)

// Definition describes one administrable resource.
type Definition struct {
	Slug      string // URL segment, e.g. "email-templates"
	Title     string // "Email Templates"
	Path      string // API path, e.g. "system/email_template"
	Paywalled bool
	// SearchFields lists the fields the search box matches, for display.
	SearchFields []string

	newTable  func(c *dfapi.Client, pageSize int) (table.Table, error)
	getRecord func(ctx context.Context, c *dfapi.Client, id string) (any, error)
	deletable func(record any) bool
	form      *FormSpec
}

// NewTable builds a controller for this resource.
func (d Definition) NewTable(c *dfapi.Client, pageSize int) (table.Table, error) {
	return d.newTable(c, pageSize)
}

// Get fetches one record as its DTO.
func (d Definition) Get(ctx context.Context, c *dfapi.Client, id string) (any, error) {
	return d.getRecord(ctx, c, id)
}

// Deletable reports whether a record returned by Get may be deleted. It
// applies the same guard that hides the table's delete action.
func (d Definition) Deletable(record any) bool {
	return d.deletable(record)
}

// Form returns the create/edit form, or nil when the resource is read-only here.
func (d Definition) Form() *FormSpec {
	return d.form
}

// Save creates (id empty) or updates a record through the resource's form.
func (d Definition) Save(ctx context.Context, c *dfapi.Client, id string, v url.Values) (string, error) {
	if d.form == nil {
		return "", fmt.Errorf("%s cannot be edited from the console", d.Slug)
	}
	return d.form.Save(ctx, c, d.Path, id, v)
}

// binding is the typed half of a definition.
type binding[Raw, Row any] struct {
	slug, title, path string
	paywalled         bool
	searchFields      []string
	query             func(string) string
	sort              string
	mapRow            func(Raw) Row
	id                func(Row) string
	columns           []table.Column[Row]
	deletable         func(Row) bool
	form              *FormSpec
}

func (s binding[Raw, Row]) definition() Definition {
	return Definition{
		Slug:         s.slug,
		Title:        s.title,
		Path:         s.path,
		Paywalled:    s.paywalled,
		SearchFields: s.searchFields,
		form:         s.form,
		newTable: func(c *dfapi.Client, pageSize int) (table.Table, error) {
			return table.New(s.config(dfapi.NewResource[Raw](c, s.path), pageSize))
		},
		getRecord: func(ctx context.Context, c *dfapi.Client, id string) (any, error) {
			return dfapi.NewResource[Raw](c, s.path).Get(ctx, id)
		},
		deletable: func(record any) bool {
			raw, ok := record.(Raw)
			if !ok {
				return false
			}
			return s.deletable == nil || s.deletable(s.mapRow(raw))
		},
	}
}

func (s binding[Raw, Row]) config(src table.Source[Raw], pageSize int) table.Config[Raw, Row] {
	base := "/admin/" + s.slug + "/{id}"
	return table.Config[Raw, Row]{
		Source:  src,
		Map:     s.mapRow,
		ID:      s.id,
		Columns: s.columns,
		Default: &table.Action[Row]{Name: "view", Label: "View", Method: "GET", Endpoint: base},
		Actions: []table.Action[Row]{
			{Name: "delete", Label: "Delete", Method: "DELETE", Endpoint: base, Confirm: true, Visible: s.deletable},
		},
		FilterQuery: s.query,
		Limit:       pageSize,
		Sort:        s.sort,
	}
}

var (
	registry = make(map[string]Definition)
	order    []string
	mu       sync.RWMutex
)

// Register adds a definition to the registry.
func Register(d Definition) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := registry[d.Slug]; exists {
		panic(fmt.Sprintf("resource %q already registered", d.Slug))
	}
	registry[d.Slug] = d
	order = append(order, d.Slug)
}

// Get retrieves a definition by slug.
func Get(slug string) (Definition, bool) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := registry[slug]
	return d, ok
}

// All returns every definition in registration order.
func All() []Definition {
	mu.RLock()
	defer mu.RUnlock()

	defs := make([]Definition, 0, len(order))
	for _, slug := range order {
		defs = append(defs, registry[slug])
	}
	return defs
}

// Slugs returns every registered slug, sorted.
func Slugs() []string {
	mu.RLock()
	defer mu.RUnlock()

	slugs := append([]string(nil), order...)
	sort.Strings(slugs)
	return slugs
}

// Helpers shared by the definitions.

func itoa(id int) string { return strconv.Itoa(id) }

func activeLabel(b bool) string {
	if b {
		return "Active"
	}
	return "Inactive"
}

// nameSearch matches resources that have no entry in the filter package.
func nameSearch(term string) string {
	return filter.Clauses([]string{"name"}, term)
}

func joinNonEmpty(sep string, parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}

func init() {
	for _, d := range []Definition{
		users(),
		admins(),
		roles(),
		apps(),
		services(),
		scheduler(),
		scripts(),
		emailTemplates(),
		reports(),
		limits(),
	} {
		Register(d)
	}
}
