// ABOUTME: Tests for resource definitions against a fake platform backend.
// ABOUTME: Covers row mapping, search filters, action guards, forms, and the registry.

package resources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/dfconsole/internal/dfapi"
	"github.com/2389/dfconsole/internal/forms"
	"github.com/2389/dfconsole/internal/table"
)

type backend struct {
	requests []*http.Request
	bodies   []string
	respond  func(w http.ResponseWriter, r *http.Request)
}

func newBackend(t *testing.T, respond func(w http.ResponseWriter, r *http.Request)) (*backend, *dfapi.Client) {
	t.Helper()
	b := &backend{respond: respond}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}
		raw, _ := json.Marshal(body)
		b.requests = append(b.requests, r)
		b.bodies = append(b.bodies, string(raw))
		w.Header().Set("Content-Type", "application/json")
		b.respond(w, r)
	}))
	t.Cleanup(srv.Close)
	return b, dfapi.New(srv.URL + "/api/v2")
}

func listOf(body string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}
}

func mustGet(t *testing.T, slug string) Definition {
	t.Helper()
	d, ok := Get(slug)
	require.True(t, ok, "resource %s not registered", slug)
	return d
}

func TestServicesMapping(t *testing.T) {
	_, c := newBackend(t, listOf(`{"resource":[{"id":1,"name":"db1","label":"DB","description":"","is_active":true}],"meta":{"count":1}}`))

	tbl, err := mustGet(t, "services").NewTable(c, 25)
	require.NoError(t, err)
	require.NoError(t, tbl.Refresh(context.Background()))

	ctrl, ok := tbl.(*table.Controller[ServiceDTO, ServiceRow])
	require.True(t, ok)
	assert.Equal(t, []ServiceRow{{ID: 1, Name: "db1", Label: "DB", Description: "", Active: true}}, ctrl.Rows())
	assert.Equal(t, 1, tbl.Page().Total)
	assert.Equal(t, table.Fresh, tbl.State())
}

func TestListRequestUsesPathSortAndSearch(t *testing.T) {
	b, c := newBackend(t, listOf(`{"resource":[],"meta":{"count":0}}`))

	tbl, err := mustGet(t, "roles").NewTable(c, 10)
	require.NoError(t, err)
	require.NoError(t, tbl.Refresh(context.Background(), table.WithSearch("ad")))

	require.Len(t, b.requests, 1)
	r := b.requests[0]
	assert.Equal(t, "/api/v2/system/role", r.URL.Path)
	q := r.URL.Query()
	assert.Equal(t, "10", q.Get("limit"))
	assert.Equal(t, "name", q.Get("sort"))
	assert.Equal(t, `(id like "%ad%") or (name like "%ad%") or (description like "%ad%")`, q.Get("filter"))
}

func TestSearchFilters(t *testing.T) {
	_, c := newBackend(t, listOf(`{"resource":[],"meta":{"count":0}}`))

	cases := map[string]string{
		"users":     `(first_name like "%x%") or (last_name like "%x%") or (name like "%x%") or (email like "%x%")`,
		"admins":    `(first_name like "%x%") or (last_name like "%x%") or (name like "%x%") or (email like "%x%")`,
		"scheduler": `(name like "%x%")`,
		"scripts":   `(name like "%x%")`,
		"limits":    `(name like "%x%")`,
	}
	for slug, want := range cases {
		t.Run(slug, func(t *testing.T) {
			tbl, err := mustGet(t, slug).NewTable(c, 10)
			require.NoError(t, err)
			assert.Equal(t, want, tbl.FilterQuery("x"))
			assert.Empty(t, tbl.FilterQuery(""))
		})
	}
}

func TestRootAdminCannotBeDeleted(t *testing.T) {
	_, c := newBackend(t, listOf(`{"resource":[
		{"id":1,"name":"Root","email":"root@example.com","is_active":true,"is_root_admin":true},
		{"id":2,"name":"Ops","email":"ops@example.com","is_active":true,"confirmed":true}
	],"meta":{"count":2}}`))

	tbl, err := mustGet(t, "admins").NewTable(c, 10)
	require.NoError(t, err)
	require.NoError(t, tbl.Refresh(context.Background()))

	assert.False(t, tbl.Allowed("delete", "1"))
	assert.True(t, tbl.Allowed("delete", "2"))
	assert.True(t, tbl.Allowed("view", "1"))

	v := tbl.View()
	require.Len(t, v.Rows, 2)
	assert.Empty(t, v.Rows[0].Actions)
	require.Len(t, v.Rows[1].Actions, 1)
	assert.Equal(t, "/admin/admins/2", v.Rows[1].Actions[0].Endpoint)
	assert.Equal(t, "Confirmed", v.Rows[1].Cells[6])
}

func TestReportsAreReadOnly(t *testing.T) {
	_, c := newBackend(t, listOf(`{"resource":[{"id":9,"service_id":null,"service_name":"db","action":"Created","request_verb":"POST","created_date":"2024-01-01"}],"meta":{"count":1}}`))

	d := mustGet(t, "reports")
	assert.True(t, d.Paywalled)
	assert.Nil(t, d.Form())

	tbl, err := d.NewTable(c, 10)
	require.NoError(t, err)
	require.NoError(t, tbl.Refresh(context.Background()))
	assert.False(t, tbl.Allowed("delete", "9"))
	assert.Equal(t, []string{"2024-01-01", "", "db", "", "Created", "POST"}, tbl.View().Rows[0].Cells)
}

func TestScriptsKeyedByName(t *testing.T) {
	b, c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			w.Write([]byte(`{"name":"user.get.pre_process"}`))
			return
		}
		w.Write([]byte(`{"resource":[],"meta":{"count":0}}`))
	})

	tbl, err := mustGet(t, "scripts").NewTable(c, 10)
	require.NoError(t, err)
	require.NoError(t, tbl.DeleteID(context.Background(), "user.get.pre_process"))

	require.Len(t, b.requests, 2)
	assert.Equal(t, "/api/v2/system/event_script/user.get.pre_process", b.requests[0].URL.Path)
}

func TestMapLimit(t *testing.T) {
	user := 4
	row := MapLimit(LimitDTO{ID: 3, Name: "burst", Type: "instance.user", Rate: 10, Period: "minute", UserID: &user, IsActive: true})
	assert.Equal(t, LimitRow{ID: 3, Name: "burst", Type: "instance.user", Rate: "10 / minute", User: "4", Active: true}, row)
}

func TestMapApp(t *testing.T) {
	role := 2
	row := MapApp(AppDTO{ID: 5, Name: "web", APIKey: "abc", RoleID: &role})
	assert.Equal(t, AppRow{ID: 5, Name: "web", Role: "2", APIKey: "abc"}, row)
	assert.Equal(t, "", MapApp(AppDTO{}).Role)
}

func TestMapUserRegistration(t *testing.T) {
	assert.Equal(t, "Pending", MapUser(UserDTO{}).Registration)
	assert.Equal(t, "Confirmed", MapUser(UserDTO{Confirmed: true}).Registration)
}

func TestFormCreate(t *testing.T) {
	b, c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"resource":[{"id":42}]}`))
	})

	id, err := mustGet(t, "roles").Save(context.Background(), c, "", url.Values{
		"name":        {"editors"},
		"description": {"can edit"},
		"is_active":   {"true"},
	})
	require.NoError(t, err)
	assert.Equal(t, "42", id)

	require.Len(t, b.requests, 1)
	assert.Equal(t, http.MethodPost, b.requests[0].Method)
	assert.JSONEq(t, `{"resource":[{"name":"editors","description":"can edit","is_active":true}]}`, b.bodies[0])
}

func TestFormUpdate(t *testing.T) {
	b, c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"resource":[{"id":7}]}`))
	})

	id, err := mustGet(t, "limits").Save(context.Background(), c, "7", url.Values{
		"name":    {"burst"},
		"type":    {"instance"},
		"rate":    {"100"},
		"period":  {"hour"},
		"user_id": {"0"},
	})
	require.NoError(t, err)
	assert.Equal(t, "7", id)

	require.Len(t, b.requests, 1)
	assert.Equal(t, http.MethodPatch, b.requests[0].Method)
	assert.Equal(t, "/api/v2/system/limit", b.requests[0].URL.Path)
	assert.JSONEq(t, `{"resource":[{"id":7,"name":"burst","description":"","is_active":false,"type":"instance","rate":100,"period":"hour","user_id":null,"role_id":null,"service_id":null}]}`, b.bodies[0])
}

func TestFormUpdate_ClearedUserFieldsAreSent(t *testing.T) {
	for _, slug := range []string{"users", "admins"} {
		t.Run(slug, func(t *testing.T) {
			b, c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"resource":[{"id":5}]}`))
			})

			_, err := mustGet(t, slug).Save(context.Background(), c, "5", url.Values{
				"email":      {"a@b.co"},
				"name":       {"n"},
				"first_name": {""},
				"last_name":  {""},
				"phone":      {""},
			})
			require.NoError(t, err)

			require.Len(t, b.bodies, 1)
			assert.JSONEq(t, `{"resource":[{"id":5,"name":"n","email":"a@b.co","first_name":"","last_name":"","phone":"","is_active":false}]}`, b.bodies[0])
		})
	}
}

func TestFormValidationSkipsBackend(t *testing.T) {
	b, c := newBackend(t, listOf(`{}`))

	_, err := mustGet(t, "users").Save(context.Background(), c, "", url.Values{"email": {"nope"}})
	var fe forms.FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "Invalid email format", fe.For("email"))
	assert.Equal(t, "This field is required", fe.For("name"))
	assert.Empty(t, b.requests)
}

func TestFormBackendValidation(t *testing.T) {
	_, c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"Validation failed","context":{"name":["The name has already been taken."]}}}`))
	})

	_, err := mustGet(t, "roles").Save(context.Background(), c, "", url.Values{"name": {"admins"}})
	var fe forms.FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "The name has already been taken.", fe.For("name"))
}

func TestFormBackendFailure(t *testing.T) {
	_, c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"code":500,"message":"boom"}}`))
	})

	_, err := mustGet(t, "roles").Save(context.Background(), c, "", url.Values{"name": {"admins"}})
	var apiErr *dfapi.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "boom", apiErr.Message)
}

func TestReadOnlyResourceSave(t *testing.T) {
	_, c := newBackend(t, listOf(`{}`))
	_, err := mustGet(t, "services").Save(context.Background(), c, "", url.Values{})
	assert.Error(t, err)
}

func TestFormValuesFromRecord(t *testing.T) {
	_, c := newBackend(t, listOf(`{"id":3,"name":"ops","description":"operators","is_active":true}`))

	d := mustGet(t, "roles")
	rec, err := d.Get(context.Background(), c, "3")
	require.NoError(t, err)

	vals, err := d.Form().Values(rec)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"name": "ops", "description": "operators", "is_active": "true"}, vals)
}

func TestRegistry(t *testing.T) {
	var slugs []string
	for _, d := range All() {
		slugs = append(slugs, d.Slug)
	}
	assert.Equal(t, []string{"users", "admins", "roles", "apps", "services", "scheduler", "scripts", "email-templates", "reports", "limits"}, slugs)
	assert.Equal(t, "admins", Slugs()[0])

	_, ok := Get("nope")
	assert.False(t, ok)

	assert.Panics(t, func() { Register(Definition{Slug: "users"}) })
}

func TestDeletable(t *testing.T) {
	admins := mustGet(t, "admins")
	assert.False(t, admins.Deletable(UserDTO{ID: 1, IsRootAdmin: true}))
	assert.True(t, admins.Deletable(UserDTO{ID: 2}))
	assert.False(t, admins.Deletable(RoleDTO{ID: 2}), "records of another resource are refused")

	assert.False(t, mustGet(t, "reports").Deletable(ServiceReportDTO{ID: 5}))
	assert.True(t, mustGet(t, "roles").Deletable(RoleDTO{ID: 5}))
}
