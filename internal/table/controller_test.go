// ABOUTME: Tests for the generic table controller.
// ABOUTME: Covers refresh mapping, delete-then-refresh, import/export, and overlapping refreshes.

package table

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/2389/dfconsole/internal/dfapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rawItem struct {
	ID     int
	Name   string
	Active bool
}

type itemRow struct {
	ID     int
	Label  string
	Active bool
}

type fakeSource struct {
	mu        sync.Mutex
	responses []dfapi.ListResponse[rawItem]
	listErr   error
	deleteErr error
	importErr error
	exportErr error

	lists   []dfapi.ListParams
	deletes []string
	imports []dfapi.Upload
	exports []dfapi.Format
}

func (f *fakeSource) List(ctx context.Context, p dfapi.ListParams) (dfapi.ListResponse[rawItem], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists = append(f.lists, p)
	if f.listErr != nil {
		return dfapi.ListResponse[rawItem]{}, f.listErr
	}
	if len(f.responses) == 0 {
		return dfapi.ListResponse[rawItem]{}, nil
	}
	res := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return res, nil
}

func (f *fakeSource) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	return f.deleteErr
}

func (f *fakeSource) Import(ctx context.Context, u dfapi.Upload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imports = append(f.imports, u)
	return f.importErr
}

func (f *fakeSource) Export(ctx context.Context, format dfapi.Format) (dfapi.Export, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exports = append(f.exports, format)
	if f.exportErr != nil {
		return dfapi.Export{}, f.exportErr
	}
	return dfapi.Export{Name: "items." + string(format), Data: []byte("data")}, nil
}

func mapItem(r rawItem) itemRow {
	return itemRow{ID: r.ID, Label: r.Name, Active: r.Active}
}

func newController(t *testing.T, src Source[rawItem]) *Controller[rawItem, itemRow] {
	t.Helper()
	c, err := New(Config[rawItem, itemRow]{
		Source: src,
		Map:    mapItem,
		ID:     func(r itemRow) string { return strconv.Itoa(r.ID) },
		Columns: []Column[itemRow]{
			{Key: "id", Header: "ID", Value: func(r itemRow) string { return strconv.Itoa(r.ID) }},
			{Key: "label", Header: "Label", Value: func(r itemRow) string { return r.Label }},
		},
		Default: &Action[itemRow]{Name: "view", Label: "View", Method: "GET", Endpoint: "/items/{id}"},
		Actions: []Action[itemRow]{
			{Name: "delete", Label: "Delete", Method: "DELETE", Endpoint: "/items/{id}", Confirm: true,
				Visible: func(r itemRow) bool { return !r.Active }},
		},
		FilterQuery: func(term string) string { return "(name like \"%" + term + "%\")" },
		Limit:       25,
		Sort:        "name",
	})
	require.NoError(t, err)
	return c
}

func TestNew_RequiresCallbacks(t *testing.T) {
	_, err := New(Config[rawItem, itemRow]{})
	assert.Error(t, err)

	_, err = New(Config[rawItem, itemRow]{Source: &fakeSource{}})
	assert.Error(t, err)

	_, err = New(Config[rawItem, itemRow]{Source: &fakeSource{}, Map: mapItem})
	assert.Error(t, err)
}

func TestRefresh_StoresMappedRowsAndServerCount(t *testing.T) {
	src := &fakeSource{responses: []dfapi.ListResponse[rawItem]{{
		Resource: []rawItem{{ID: 1, Name: "db1", Active: true}, {ID: 2, Name: "db2"}},
		Meta:     dfapi.Meta{Count: 42},
	}}}
	c := newController(t, src)
	assert.Equal(t, Stale, c.State())

	require.NoError(t, c.Refresh(context.Background()))

	assert.Equal(t, []itemRow{{ID: 1, Label: "db1", Active: true}, {ID: 2, Label: "db2"}}, c.Rows())
	assert.Equal(t, Page{Limit: 25, Offset: 0, Total: 42}, c.Page())
	assert.Equal(t, Fresh, c.State())
	require.Len(t, src.lists, 1)
	assert.Equal(t, dfapi.ListParams{Limit: 25, Sort: "name"}, src.lists[0])
}

func TestRefresh_OptionsPersistAcrossRefreshes(t *testing.T) {
	src := &fakeSource{}
	c := newController(t, src)

	require.NoError(t, c.Refresh(context.Background(), WithLimit(10), WithOffset(30), WithSearch("ab"), WithSort("id desc")))
	require.NoError(t, c.Refresh(context.Background()))

	require.Len(t, src.lists, 2)
	want := dfapi.ListParams{Limit: 10, Offset: 30, Filter: `(name like "%ab%")`, Sort: "id desc"}
	assert.Equal(t, want, src.lists[0])
	assert.Equal(t, want, src.lists[1])

	require.NoError(t, c.Refresh(context.Background(), WithFilter("")))
	assert.Empty(t, src.lists[2].Filter)
}

func TestRestore_SetsParamsWithoutFetching(t *testing.T) {
	src := &fakeSource{}
	c := newController(t, src)

	c.Restore(WithOffset(50), WithSearch("x"))
	assert.Empty(t, src.lists)
	assert.Equal(t, Stale, c.State())

	require.NoError(t, c.DeleteID(context.Background(), "3"))
	require.Len(t, src.lists, 1)
	assert.Equal(t, dfapi.ListParams{Limit: 25, Offset: 50, Filter: `(name like "%x%")`, Sort: "name"}, src.lists[0])
}

func TestRefresh_FailureKeepsRows(t *testing.T) {
	src := &fakeSource{responses: []dfapi.ListResponse[rawItem]{{
		Resource: []rawItem{{ID: 1, Name: "a"}},
		Meta:     dfapi.Meta{Count: 1},
	}}}
	c := newController(t, src)
	require.NoError(t, c.Refresh(context.Background()))

	boom := errors.New("boom")
	src.listErr = boom
	err := c.Refresh(context.Background(), WithOffset(50))
	assert.ErrorIs(t, err, boom)

	assert.Len(t, c.Rows(), 1)
	assert.Equal(t, 0, c.Page().Offset)
	assert.Len(t, src.lists, 2, "no retry on failure")
}

func TestDeleteRow_DeletesOnceThenRefreshesOnce(t *testing.T) {
	src := &fakeSource{responses: []dfapi.ListResponse[rawItem]{{
		Resource: []rawItem{{ID: 7, Name: "gone"}},
		Meta:     dfapi.Meta{Count: 1},
	}}}
	c := newController(t, src)
	require.NoError(t, c.Refresh(context.Background()))
	src.lists = nil

	require.NoError(t, c.DeleteRow(context.Background(), itemRow{ID: 7}))

	assert.Equal(t, []string{"7"}, src.deletes)
	assert.Len(t, src.lists, 1)
	assert.Equal(t, Fresh, c.State())
}

func TestDeleteRow_RefreshesEvenWhenDeleteFails(t *testing.T) {
	boom := errors.New("forbidden")
	src := &fakeSource{deleteErr: boom, responses: []dfapi.ListResponse[rawItem]{{
		Resource: []rawItem{{ID: 7, Name: "still here"}},
		Meta:     dfapi.Meta{Count: 1},
	}}}
	c := newController(t, src)

	err := c.DeleteRow(context.Background(), itemRow{ID: 7})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"7"}, src.deletes)
	assert.Len(t, src.lists, 1)
	assert.Equal(t, []itemRow{{ID: 7, Label: "still here"}}, c.Rows())
}

func TestDeleteRow_StaleWhenRefreshFails(t *testing.T) {
	src := &fakeSource{responses: []dfapi.ListResponse[rawItem]{{
		Resource: []rawItem{{ID: 7}},
		Meta:     dfapi.Meta{Count: 1},
	}}}
	c := newController(t, src)
	require.NoError(t, c.Refresh(context.Background()))

	src.listErr = errors.New("down")
	err := c.DeleteRow(context.Background(), itemRow{ID: 7})
	assert.Error(t, err)
	assert.Equal(t, Stale, c.State())
	assert.Len(t, c.Rows(), 1, "rows stay at the last successful fetch")
}

func TestUpload_RefreshesOnSuccessOnly(t *testing.T) {
	src := &fakeSource{}
	c := newController(t, src)

	require.NoError(t, c.Upload(context.Background(), dfapi.Upload{Name: "a.json", Format: dfapi.FormatJSON}))
	assert.Len(t, src.imports, 1)
	assert.Len(t, src.lists, 1)

	boom := errors.New("bad file")
	src.importErr = boom
	assert.ErrorIs(t, c.Upload(context.Background(), dfapi.Upload{Name: "b.json"}), boom)
	assert.Len(t, src.lists, 1)
	assert.Equal(t, Stale, c.State())
}

func TestDownload_RefreshesOnSuccess(t *testing.T) {
	src := &fakeSource{}
	c := newController(t, src)

	exp, err := c.Download(context.Background(), dfapi.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "items.csv", exp.Name)
	assert.Len(t, src.lists, 1)

	src.exportErr = errors.New("nope")
	_, err = c.Download(context.Background(), dfapi.FormatCSV)
	assert.Error(t, err)
	assert.Len(t, src.lists, 1)
}

func TestView_AppliesColumnsAndActionGuards(t *testing.T) {
	src := &fakeSource{responses: []dfapi.ListResponse[rawItem]{{
		Resource: []rawItem{{ID: 1, Name: "on", Active: true}, {ID: 2, Name: "off"}},
		Meta:     dfapi.Meta{Count: 2},
	}}}
	c := newController(t, src)
	require.NoError(t, c.Refresh(context.Background()))

	v := c.View()
	assert.Equal(t, []ColumnView{{Key: "id", Header: "ID"}, {Key: "label", Header: "Label"}}, v.Columns)
	require.Len(t, v.Rows, 2)
	assert.Equal(t, []string{"1", "on"}, v.Rows[0].Cells)
	require.NotNil(t, v.Rows[0].Default)
	assert.Equal(t, "view", v.Rows[0].Default.Name)
	assert.Equal(t, "/items/1", v.Rows[0].Default.Endpoint)
	assert.Empty(t, v.Rows[0].Actions)
	require.Len(t, v.Rows[1].Actions, 1)
	assert.Equal(t, "delete", v.Rows[1].Actions[0].Name)
	assert.Equal(t, "/items/2", v.Rows[1].Actions[0].Endpoint)

	assert.False(t, c.Allowed("delete", "1"))
	assert.True(t, c.Allowed("delete", "2"))
	assert.True(t, c.Allowed("view", "1"))
	assert.False(t, c.Allowed("delete", "99"))
}

func TestFilterQuery(t *testing.T) {
	c := newController(t, &fakeSource{})
	assert.Equal(t, `(name like "%x%")`, c.FilterQuery("x"))
}

// gatedSource blocks each List call until its response is released.
type gatedSource struct {
	fakeSource
	gates map[string]chan dfapi.ListResponse[rawItem]
}

func (g *gatedSource) List(ctx context.Context, p dfapi.ListParams) (dfapi.ListResponse[rawItem], error) {
	return <-g.gates[p.Filter], nil
}

func TestRefresh_LastResponseWins(t *testing.T) {
	src := &gatedSource{gates: map[string]chan dfapi.ListResponse[rawItem]{
		"first":  make(chan dfapi.ListResponse[rawItem]),
		"second": make(chan dfapi.ListResponse[rawItem]),
	}}
	c := newController(t, src)

	var wg sync.WaitGroup
	wg.Add(2)
	firstDone := make(chan struct{})
	secondDone := make(chan struct{})
	go func() {
		defer wg.Done()
		defer close(firstDone)
		assert.NoError(t, c.Refresh(context.Background(), WithFilter("first")))
	}()
	go func() {
		defer wg.Done()
		defer close(secondDone)
		assert.NoError(t, c.Refresh(context.Background(), WithFilter("second")))
	}()

	// The later request resolves first.
	src.gates["second"] <- dfapi.ListResponse[rawItem]{Resource: []rawItem{{ID: 2}}, Meta: dfapi.Meta{Count: 2}}
	<-secondDone
	src.gates["first"] <- dfapi.ListResponse[rawItem]{Resource: []rawItem{{ID: 1}}, Meta: dfapi.Meta{Count: 1}}
	<-firstDone
	wg.Wait()

	assert.Equal(t, []itemRow{{ID: 1}}, c.Rows())
	assert.Equal(t, 1, c.Page().Total)
	assert.Equal(t, "first", c.View().Filter)
}

func TestPage_Navigation(t *testing.T) {
	p := Page{Limit: 10, Offset: 10, Total: 35}
	assert.True(t, p.HasNext())
	assert.True(t, p.HasPrev())
	assert.Equal(t, 20, p.NextOffset())
	assert.Equal(t, 0, p.PrevOffset())
	assert.Equal(t, 2, p.Number())
	assert.Equal(t, 4, p.Pages())

	last := Page{Limit: 10, Offset: 30, Total: 35}
	assert.False(t, last.HasNext())

	unlimited := Page{Total: 5}
	assert.False(t, unlimited.HasNext())
	assert.Equal(t, 1, unlimited.Number())
	assert.Equal(t, 1, unlimited.Pages())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "fresh", Fresh.String())
	assert.Equal(t, "stale", Stale.String())
}
