// ABOUTME: HTTP handlers for admin console pages.
// ABOUTME: Serves the dashboard and backend call log, and renders pages with alerts and CSRF tokens.

package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/2389/dfconsole/internal/alerts"
	"github.com/2389/dfconsole/internal/dfapi"
	"github.com/2389/dfconsole/internal/drafts"
	apierrors "github.com/2389/dfconsole/internal/errors"
	"github.com/2389/dfconsole/internal/license"
	"github.com/2389/dfconsole/internal/resources"
	"github.com/2389/dfconsole/internal/store"
	"github.com/2389/dfconsole/internal/table"
)

// dashboardConcurrency caps the parallel count requests on the dashboard.
const dashboardConcurrency = 4

// activityWindow is how far back the dashboard cards count backend calls.
const activityWindow = 24 * time.Hour

// Deps are the collaborators of the console handlers. Store and Drafts may be nil.
type Deps struct {
	API      *dfapi.Client
	Store    *store.Store
	License  *license.Checker
	Alerts   *alerts.Store
	Drafts   *drafts.Generator
	PageSize int
	Logger   *zap.Logger
}

type Handlers struct {
	api      *dfapi.Client
	store    *store.Store
	license  *license.Checker
	alerts   *alerts.Store
	drafts   *drafts.Generator
	pageSize int
	logger   *zap.Logger
	sanitize *bluemonday.Policy
}

func NewHandlers(d Deps) *Handlers {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Alerts == nil {
		d.Alerts = alerts.New(nil, false, d.Logger)
	}
	if d.License == nil {
		d.License = license.NewChecker(d.API, license.WithLogger(d.Logger))
	}
	if d.Drafts == nil {
		d.Drafts = drafts.NewGenerator("", "", d.Logger)
	}
	if d.PageSize <= 0 {
		d.PageSize = 25
	}
	return &Handlers{
		api:      d.API,
		store:    d.Store,
		license:  d.License,
		alerts:   d.Alerts,
		drafts:   d.Drafts,
		pageSize: d.PageSize,
		logger:   d.Logger,
		sanitize: bluemonday.UGCPolicy(),
	}
}

func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Get("/", h.dashboard)
		r.Get("/logs", h.logsList)
		r.Route("/{resource}", h.resourceRoutes)
	})
	r.Route("/api", func(r chi.Router) {
		r.Get("/license", h.apiLicense)
		r.Get("/resources/{resource}", h.apiList)
	})
}

// navItem is one resource link in the layout.
type navItem struct {
	Slug  string
	Title string
}

// render writes a full page. It adds the layout's shared data: pending
// alerts, navigation, and the CSRF token.
func (h *Handlers) render(w http.ResponseWriter, r *http.Request, status int, page string, data map[string]any, extra ...alerts.Alert) {
	if data == nil {
		data = map[string]any{}
	}
	nav := make([]navItem, 0)
	for _, def := range resources.All() {
		nav = append(nav, navItem{Slug: def.Slug, Title: def.Title})
	}
	data["Nav"] = nav
	data["Alerts"] = append(h.alerts.Drain(w, r), extra...)
	data["CSRFToken"] = csrf.Token(r)
	data["CSRFField"] = csrf.TemplateField(r)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := renderPage(w, page, data); err != nil {
		h.logger.Error("failed to render page", zap.String("page", page), zap.Error(err))
	}
}

// renderError shows err on the error page with the status the platform error maps to.
func (h *Handlers) renderError(w http.ResponseWriter, r *http.Request, heading string, err error) {
	resp := apierrors.FromAPIError(err)
	h.render(w, r, resp.Status, "error", map[string]any{
		"Title":   heading,
		"Heading": heading,
		"Message": resp.Message,
		"Details": resp.Details,
	})
}

func (h *Handlers) renderNotFound(w http.ResponseWriter, r *http.Request, message string) {
	h.render(w, r, http.StatusNotFound, "error", map[string]any{
		"Title":   "Not found",
		"Heading": "Not found",
		"Message": message,
	})
}

// dashboardCard is one resource tile on the dashboard.
type dashboardCard struct {
	Slug   string
	Title  string
	Count  int
	Locked bool
	Err    string

	// Backend calls for the resource within activityWindow.
	Calls     int
	ErrorRate float64
}

func (h *Handlers) dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status, err := h.license.Status(ctx)
	if err != nil {
		h.logger.Warn("license lookup failed", zap.Error(err))
		status = license.Status{Tier: "unknown", Message: "The platform license could not be read."}
	}

	defs := resources.All()
	cards := make([]dashboardCard, len(defs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(dashboardConcurrency)
	for i, def := range defs {
		cards[i] = dashboardCard{Slug: def.Slug, Title: def.Title}
		if err == nil && !status.Allows(def) {
			cards[i].Locked = true
			continue
		}
		g.Go(func() error {
			count, cerr := h.count(gctx, def)
			if cerr != nil {
				// One unreachable resource should not blank the dashboard.
				h.logger.Warn("resource count failed", zap.String("resource", def.Slug), zap.Error(cerr))
				cards[i].Err = apierrors.FromAPIError(cerr).Message
				return nil
			}
			cards[i].Count = count
			return nil
		})
	}
	_ = g.Wait()
	h.addActivity(cards, defs)

	data := map[string]any{
		"Title":   "Dashboard",
		"License": status,
		"Cards":   cards,
	}
	if h.store != nil {
		if stats, serr := h.store.CallStats(); serr == nil {
			data["Stats"] = stats
		} else {
			h.logger.Warn("call stats failed", zap.Error(serr))
		}
	}
	h.render(w, r, http.StatusOK, "dashboard", data)
}

// addActivity fills in recent call counts and error rates from the call log.
func (h *Handlers) addActivity(cards []dashboardCard, defs []resources.Definition) {
	if h.store == nil {
		return
	}
	since := time.Now().Add(-activityWindow)
	for i, def := range defs {
		name := callResource(def)
		calls, err := h.store.ResourceCallCount(name, since)
		if err != nil {
			h.logger.Warn("resource call count failed", zap.String("resource", def.Slug), zap.Error(err))
			continue
		}
		cards[i].Calls = calls
		if calls == 0 {
			continue
		}
		rate, err := h.store.ResourceErrorRate(name, since)
		if err != nil {
			h.logger.Warn("resource error rate failed", zap.String("resource", def.Slug), zap.Error(err))
			continue
		}
		cards[i].ErrorRate = rate
	}
}

// count fetches one row to read the server-side total.
func (h *Handlers) count(ctx context.Context, def resources.Definition) (int, error) {
	t, err := def.NewTable(h.api, 1)
	if err != nil {
		return 0, err
	}
	if err := t.Refresh(ctx, table.WithLimit(1)); err != nil {
		return 0, err
	}
	return t.Page().Total, nil
}

var logMethods = []string{"GET", "POST", "PATCH", "PUT", "DELETE"}

func (h *Handlers) logsList(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.render(w, r, http.StatusNotFound, "error", map[string]any{
			"Title":   "API log",
			"Heading": "API log disabled",
			"Message": "The console was started without a call log database.",
		})
		return
	}

	q := r.URL.Query()
	statusCode, _ := strconv.Atoi(q.Get("status"))
	query := &store.CallQuery{
		Limit:      100,
		Resource:   q.Get("resource"),
		Method:     q.Get("method"),
		PathPrefix: q.Get("path"),
		StatusCode: statusCode,
		RequestID:  q.Get("request_id"),
		ErrorsOnly: q.Get("errors") == "true",
	}

	calls, err := h.store.ListCalls(query)
	if err != nil {
		h.logger.Error("list calls failed", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	for _, c := range calls {
		c.RequestBody = prettyJSON(c.RequestBody)
		c.ResponseBody = prettyJSON(c.ResponseBody)
	}

	stats, err := h.store.CallStats()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	topEndpoints, err := h.store.GetTopEndpoints(10)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.render(w, r, http.StatusOK, "logs", map[string]any{
		"Title":            "API log",
		"Calls":            calls,
		"Stats":            stats,
		"TopEndpoints":     topEndpoints,
		"ResourceNames":    callResourceNames(),
		"Methods":          logMethods,
		"SelectedResource": query.Resource,
		"SelectedMethod":   query.Method,
		"ErrorsOnly":       query.ErrorsOnly,
	})
}

// callResourceNames lists the resource names calls are recorded under.
func callResourceNames() []string {
	names := []string{"environment"}
	for _, def := range resources.All() {
		names = append(names, callResource(def))
	}
	return names
}

// callResource is the name the call log records def's requests under.
func callResource(def resources.Definition) string {
	return strings.TrimPrefix(def.Path, "system/")
}

// PruneCalls deletes call records older than retain. It is a no-op without a store.
func (h *Handlers) PruneCalls(retain time.Duration) {
	if h.store == nil || retain <= 0 {
		return
	}
	n, err := h.store.PruneCalls(time.Now().Add(-retain))
	if err != nil {
		h.logger.Warn("prune call log failed", zap.Error(err))
		return
	}
	if n > 0 {
		h.logger.Info("pruned call log", zap.Int64("rows", n))
	}
}

// prettyJSON formats JSON with indentation, or returns original string if not valid JSON
func prettyJSON(s string) string {
	if s == "" {
		return s
	}
	var obj any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return s
	}
	return prettyJSONValue(obj)
}

func prettyJSONValue(v any) string {
	formatted, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ""
	}
	return string(formatted)
}
