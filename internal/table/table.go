// ABOUTME: Column, action, page, and view types shared by every resource table.
// ABOUTME: Views are plain snapshots so renderers never touch typed rows.

package table

import (
	"context"
	"net/url"
	"strings"

	"github.com/2389/dfconsole/internal/dfapi"
)

// State is the freshness of the rows a controller holds.
type State int

const (
	// Stale rows may be outdated: nothing fetched yet, or a mutating call ran since.
	Stale State = iota
	// Fresh rows are exactly what the last resolved refresh returned.
	Fresh
)

func (s State) String() string {
	if s == Fresh {
		return "fresh"
	}
	return "stale"
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Column defines one table column.
type Column[Row any] struct {
	Key    string
	Header string
	Value  func(Row) string
}

// Action defines a row action. Endpoint is a path template where {id} is
// replaced by the row id.
type Action[Row any] struct {
	Name     string
	Label    string
	Method   string
	Endpoint string
	Confirm  bool
	// Visible hides the action for rows it does not apply to. Nil means always visible.
	Visible func(Row) bool
}

func (a Action[Row]) visibleFor(row Row) bool {
	return a.Visible == nil || a.Visible(row)
}

func (a Action[Row]) view(id string) ActionView {
	return ActionView{
		Name:     a.Name,
		Label:    a.Label,
		Method:   a.Method,
		Endpoint: strings.ReplaceAll(a.Endpoint, "{id}", url.PathEscape(id)),
		Confirm:  a.Confirm,
	}
}

// Page is the pagination state. Total always comes from the server.
type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

// HasNext reports whether rows exist after this page.
func (p Page) HasNext() bool {
	return p.Limit > 0 && p.Offset+p.Limit < p.Total
}

// HasPrev reports whether rows exist before this page.
func (p Page) HasPrev() bool {
	return p.Offset > 0
}

// NextOffset is the offset of the following page.
func (p Page) NextOffset() int {
	return p.Offset + p.Limit
}

// PrevOffset is the offset of the preceding page, never below zero.
func (p Page) PrevOffset() int {
	if p.Offset-p.Limit < 0 {
		return 0
	}
	return p.Offset - p.Limit
}

// Number is the 1-based page number.
func (p Page) Number() int {
	if p.Limit <= 0 {
		return 1
	}
	return p.Offset/p.Limit + 1
}

// Pages is the number of pages needed for Total rows.
func (p Page) Pages() int {
	if p.Limit <= 0 || p.Total == 0 {
		return 1
	}
	return (p.Total + p.Limit - 1) / p.Limit
}

// ColumnView is a rendered column header.
type ColumnView struct {
	Key    string `json:"key"`
	Header string `json:"header"`
}

// ActionView is an action made visible for a row.
type ActionView struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Method   string `json:"method"`
	Endpoint string `json:"endpoint"`
	Confirm  bool   `json:"confirm,omitempty"`
}

// RowView is a rendered row.
type RowView struct {
	ID      string       `json:"id"`
	Cells   []string     `json:"cells"`
	Default *ActionView  `json:"default,omitempty"`
	Actions []ActionView `json:"actions,omitempty"`
}

// View is a snapshot of a controller for rendering.
type View struct {
	Columns []ColumnView `json:"columns"`
	Rows    []RowView    `json:"rows"`
	Page    Page         `json:"page"`
	State   State        `json:"state"`
	Filter  string       `json:"filter,omitempty"`
	Sort    string       `json:"sort,omitempty"`
}

// Source is the backend a controller reads from and writes to.
// *dfapi.Resource satisfies it.
type Source[Raw any] interface {
	List(ctx context.Context, p dfapi.ListParams) (dfapi.ListResponse[Raw], error)
	Delete(ctx context.Context, id string) error
	Import(ctx context.Context, u dfapi.Upload) error
	Export(ctx context.Context, f dfapi.Format) (dfapi.Export, error)
}

// Table is the type-erased controller surface used by pages that handle
// many resource types.
type Table interface {
	Restore(opts ...RefreshOption)
	Refresh(ctx context.Context, opts ...RefreshOption) error
	DeleteID(ctx context.Context, id string) error
	Upload(ctx context.Context, u dfapi.Upload) error
	Download(ctx context.Context, f dfapi.Format) (dfapi.Export, error)
	FilterQuery(term string) string
	Allowed(action, id string) bool
	View() View
	Page() Page
	State() State
}
