// ABOUTME: Generic controller binding a backend list endpoint to a paginated table.
// ABOUTME: Owns pagination state, maps raw rows to view rows, dispatches delete/import/export.

package table

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/2389/dfconsole/internal/dfapi"
)

// Config wires a controller to one resource.
type Config[Raw, Row any] struct {
	Source  Source[Raw]
	Map     func(Raw) Row
	ID      func(Row) string
	Columns []Column[Row]
	Default *Action[Row]
	Actions []Action[Row]
	// FilterQuery turns a search term into a backend filter. Nil disables search.
	FilterQuery func(term string) string
	Limit       int
	Sort        string
}

// Controller holds one page view's rows. Refreshes are not sequenced: each
// resolved list response replaces the rows, so the last response to arrive
// wins even if it belongs to an earlier request.
type Controller[Raw, Row any] struct {
	cfg Config[Raw, Row]

	mu     sync.Mutex
	rows   []Row
	page   Page
	filter string
	sort   string
	state  State
}

// New validates cfg and returns a controller in the Stale state.
func New[Raw, Row any](cfg Config[Raw, Row]) (*Controller[Raw, Row], error) {
	if cfg.Source == nil {
		return nil, errors.New("table: source is required")
	}
	if cfg.Map == nil {
		return nil, errors.New("table: map function is required")
	}
	if cfg.ID == nil {
		return nil, errors.New("table: id function is required")
	}
	return &Controller[Raw, Row]{
		cfg:   cfg,
		page:  Page{Limit: cfg.Limit},
		sort:  cfg.Sort,
		state: Stale,
	}, nil
}

// RefreshOption overrides one list parameter. Parameters not overridden keep
// the values of the last successful refresh.
type RefreshOption func(*refreshRequest)

type refreshRequest struct {
	params dfapi.ListParams
	query  func(string) string
}

// WithLimit sets the page size.
func WithLimit(limit int) RefreshOption {
	return func(r *refreshRequest) { r.params.Limit = limit }
}

// WithOffset sets the row offset.
func WithOffset(offset int) RefreshOption {
	return func(r *refreshRequest) { r.params.Offset = offset }
}

// WithFilter sets a raw backend filter string.
func WithFilter(filter string) RefreshOption {
	return func(r *refreshRequest) { r.params.Filter = filter }
}

// WithSearch builds the filter from a free-text term via the controller's FilterQuery.
func WithSearch(term string) RefreshOption {
	return func(r *refreshRequest) {
		if r.query == nil {
			r.params.Filter = ""
			return
		}
		r.params.Filter = r.query(term)
	}
}

// WithSort sets the sort expression, e.g. "name desc".
func WithSort(sort string) RefreshOption {
	return func(r *refreshRequest) { r.params.Sort = sort }
}

// Restore sets list parameters without fetching, so a controller rebuilt for
// a later request refreshes the page the user was looking at.
func (c *Controller[Raw, Row]) Restore(opts ...RefreshOption) {
	c.mu.Lock()
	defer c.mu.Unlock()

	req := refreshRequest{
		params: dfapi.ListParams{Limit: c.page.Limit, Offset: c.page.Offset, Filter: c.filter, Sort: c.sort},
		query:  c.cfg.FilterQuery,
	}
	for _, opt := range opts {
		opt(&req)
	}
	c.page.Limit = req.params.Limit
	c.page.Offset = req.params.Offset
	c.filter = req.params.Filter
	c.sort = req.params.Sort
}

// Refresh issues one list request and, on success, stores the mapped rows and
// the server-reported total. Failures are returned unchanged and leave the
// stored rows alone.
func (c *Controller[Raw, Row]) Refresh(ctx context.Context, opts ...RefreshOption) error {
	c.mu.Lock()
	req := refreshRequest{
		params: dfapi.ListParams{
			Limit:  c.page.Limit,
			Offset: c.page.Offset,
			Filter: c.filter,
			Sort:   c.sort,
		},
		query: c.cfg.FilterQuery,
	}
	c.mu.Unlock()

	for _, opt := range opts {
		opt(&req)
	}

	res, err := c.cfg.Source.List(ctx, req.params)
	if err != nil {
		return err
	}

	rows := make([]Row, len(res.Resource))
	for i, raw := range res.Resource {
		rows[i] = c.cfg.Map(raw)
	}

	c.mu.Lock()
	c.rows = rows
	c.page = Page{Limit: req.params.Limit, Offset: req.params.Offset, Total: res.Meta.Count}
	c.filter = req.params.Filter
	c.sort = req.params.Sort
	c.state = Fresh
	c.mu.Unlock()
	return nil
}

// DeleteRow deletes row by its id and then refreshes, whatever the delete
// outcome. Rows are never removed optimistically.
func (c *Controller[Raw, Row]) DeleteRow(ctx context.Context, row Row) error {
	return c.DeleteID(ctx, c.cfg.ID(row))
}

// DeleteID deletes the record with id and then refreshes, whatever the delete outcome.
func (c *Controller[Raw, Row]) DeleteID(ctx context.Context, id string) error {
	c.markStale()
	var delErr error
	if err := c.cfg.Source.Delete(ctx, id); err != nil {
		delErr = fmt.Errorf("delete %s: %w", id, err)
	}
	return errors.Join(delErr, c.Refresh(ctx))
}

// Upload imports a file and refreshes on success.
func (c *Controller[Raw, Row]) Upload(ctx context.Context, u dfapi.Upload) error {
	c.markStale()
	if err := c.cfg.Source.Import(ctx, u); err != nil {
		return err
	}
	return c.Refresh(ctx)
}

// Download exports the resource list and refreshes on success.
func (c *Controller[Raw, Row]) Download(ctx context.Context, f dfapi.Format) (dfapi.Export, error) {
	exp, err := c.cfg.Source.Export(ctx, f)
	if err != nil {
		return dfapi.Export{}, err
	}
	return exp, c.Refresh(ctx)
}

// FilterQuery maps a search term to the backend filter for this resource.
func (c *Controller[Raw, Row]) FilterQuery(term string) string {
	if c.cfg.FilterQuery == nil {
		return ""
	}
	return c.cfg.FilterQuery(term)
}

func (c *Controller[Raw, Row]) markStale() {
	c.mu.Lock()
	c.state = Stale
	c.mu.Unlock()
}

// Rows returns a copy of the current rows.
func (c *Controller[Raw, Row]) Rows() []Row {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Row(nil), c.rows...)
}

// Find returns the current row with id.
func (c *Controller[Raw, Row]) Find(id string) (Row, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, row := range c.rows {
		if c.cfg.ID(row) == id {
			return row, true
		}
	}
	var zero Row
	return zero, false
}

// Allowed reports whether the named action is visible for the current row with id.
func (c *Controller[Raw, Row]) Allowed(action, id string) bool {
	row, ok := c.Find(id)
	if !ok {
		return false
	}
	if c.cfg.Default != nil && c.cfg.Default.Name == action {
		return c.cfg.Default.visibleFor(row)
	}
	for _, a := range c.cfg.Actions {
		if a.Name == action {
			return a.visibleFor(row)
		}
	}
	return false
}

// Page returns the pagination state.
func (c *Controller[Raw, Row]) Page() Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// State returns the freshness of the current rows.
func (c *Controller[Raw, Row]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// View renders the current rows through the column and action definitions.
func (c *Controller[Raw, Row]) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Columns: make([]ColumnView, len(c.cfg.Columns)),
		Rows:    make([]RowView, len(c.rows)),
		Page:    c.page,
		State:   c.state,
		Filter:  c.filter,
		Sort:    c.sort,
	}
	for i, col := range c.cfg.Columns {
		v.Columns[i] = ColumnView{Key: col.Key, Header: col.Header}
	}
	for i, row := range c.rows {
		rv := RowView{
			ID:    c.cfg.ID(row),
			Cells: make([]string, len(c.cfg.Columns)),
		}
		for j, col := range c.cfg.Columns {
			rv.Cells[j] = col.Value(row)
		}
		if d := c.cfg.Default; d != nil && d.visibleFor(row) {
			av := d.view(rv.ID)
			rv.Default = &av
		}
		for _, a := range c.cfg.Actions {
			if a.visibleFor(row) {
				rv.Actions = append(rv.Actions, a.view(rv.ID))
			}
		}
		v.Rows[i] = rv
	}
	return v
}

var _ Table = (*Controller[struct{}, struct{}])(nil)
