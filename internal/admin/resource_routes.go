// ABOUTME: Resource admin routes that wire table controllers and forms to HTTP handlers.
// ABOUTME: Provides list, delete, import, export, detail, and create/edit pages for every registered resource.

package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"

	"github.com/2389/dfconsole/internal/alerts"
	"github.com/2389/dfconsole/internal/dfapi"
	"github.com/2389/dfconsole/internal/drafts"
	apierrors "github.com/2389/dfconsole/internal/errors"
	"github.com/2389/dfconsole/internal/forms"
	"github.com/2389/dfconsole/internal/license"
	"github.com/2389/dfconsole/internal/resources"
	"github.com/2389/dfconsole/internal/table"
)

const (
	maxUploadSize = 32 << 20
	maxPageSize   = 1000

	emailTemplatesSlug = "email-templates"
)

type ctxKey int

const definitionKey ctxKey = iota

func (h *Handlers) resourceRoutes(r chi.Router) {
	r.Use(h.resourceGate)
	r.Get("/", h.list)
	r.Post("/", h.create)
	// Record ids are free-form (scripts are keyed by name), so resource-wide
	// actions live under their own segment.
	r.Get("/actions/new", h.newForm)
	r.Post("/actions/import", h.importFile)
	r.Get("/actions/export", h.export)
	r.Post("/actions/generate", h.generate)
	r.Get("/{id}", h.detail)
	r.Post("/{id}", h.update)
	r.Delete("/{id}", h.deleteRow)
	r.Get("/{id}/edit", h.editForm)
	r.Post("/{id}/delete", h.deleteAndRedirect)
}

// resourceGate resolves the resource definition and applies license rules:
// a console disabled by the license server and paywalled resources on the
// open source tier render the paywall page.
func (h *Handlers) resourceGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		def, ok := resources.Get(chi.URLParam(r, "resource"))
		if !ok {
			h.renderNotFound(w, r, "Unknown resource.")
			return
		}

		status, err := h.license.Status(r.Context())
		switch {
		case err != nil && def.Paywalled:
			h.renderError(w, r, "License check failed", err)
			return
		case err != nil:
			h.logger.Warn("license lookup failed", zap.Error(err))
		case status.Locked() || !status.Allows(def):
			h.render(w, r, http.StatusPaymentRequired, "paywall", map[string]any{
				"Title":    def.Title,
				"Resource": def,
				"License":  status,
				"Locked":   status.Locked(),
			})
			return
		}

		ctx := context.WithValue(r.Context(), definitionKey, def)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func definitionFrom(r *http.Request) resources.Definition {
	def, _ := r.Context().Value(definitionKey).(resources.Definition)
	return def
}

// listState reads the list parameters of a request. Only parameters that
// are present are returned, so absent ones keep the controller defaults.
func (h *Handlers) listState(q url.Values) (url.Values, []table.RefreshOption) {
	state := url.Values{}
	var opts []table.RefreshOption

	if term := strings.TrimSpace(q.Get("q")); term != "" {
		state.Set("q", term)
		opts = append(opts, table.WithSearch(term))
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 && limit <= maxPageSize {
		state.Set("limit", strconv.Itoa(limit))
		opts = append(opts, table.WithLimit(limit))
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil && offset > 0 {
		state.Set("offset", strconv.Itoa(offset))
		opts = append(opts, table.WithOffset(offset))
	}
	if sort := strings.TrimSpace(q.Get("sort")); sort != "" {
		state.Set("sort", sort)
		opts = append(opts, table.WithSort(sort))
	}
	return state, opts
}

func (h *Handlers) list(w http.ResponseWriter, r *http.Request) {
	def := definitionFrom(r)

	t, err := def.NewTable(h.api, h.pageSize)
	if err != nil {
		h.renderError(w, r, def.Title, err)
		return
	}

	state, opts := h.listState(r.URL.Query())
	status := http.StatusOK
	var extra []alerts.Alert
	if err := t.Refresh(r.Context(), opts...); err != nil {
		h.logger.Warn("list refresh failed", zap.String("resource", def.Slug), zap.Error(err))
		status = apierrors.FromAPIError(err).Status
		extra = append(extra, errorAlert(err))
	}

	h.render(w, r, status, "list", map[string]any{
		"Title":     def.Title,
		"Resource":  def,
		"Query":     state.Get("q"),
		"Sort":      state.Get("sort"),
		"CanCreate": def.Form() != nil,
		"Table":     template.HTML(RenderTable(t.View(), "/admin/"+def.Slug, state)),
	}, extra...)
}

// deleteRow handles the htmx delete button. It answers with the refreshed
// table and an out-of-band alert, always with 200 so htmx swaps it in.
func (h *Handlers) deleteRow(w http.ResponseWriter, r *http.Request) {
	def := definitionFrom(r)
	id := chi.URLParam(r, "id")

	t, err := def.NewTable(h.api, h.pageSize)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	state, opts := h.listState(r.URL.Query())
	t.Restore(opts...)

	var notice alerts.Alert
	if gerr := h.guardDelete(r.Context(), def, id); gerr != nil {
		notice = errorAlert(gerr)
		if rerr := t.Refresh(r.Context()); rerr != nil {
			h.logger.Warn("refresh failed", zap.String("resource", def.Slug), zap.Error(rerr))
		}
	} else if derr := t.DeleteID(r.Context(), id); derr != nil {
		h.logger.Warn("delete failed", zap.String("resource", def.Slug), zap.String("id", id), zap.Error(derr))
		notice = errorAlert(derr)
	} else {
		notice = alerts.NewAlert(alerts.Success, fmt.Sprintf("Deleted %s %s.", strings.ToLower(def.Title), id))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, RenderTable(t.View(), "/admin/"+def.Slug, state))
	if err := renderPartial(w, "alerts-oob", []alerts.Alert{notice}); err != nil {
		h.logger.Error("failed to render alerts", zap.Error(err))
	}
}

// deleteAndRedirect is the form fallback for deletes, used by the detail page.
func (h *Handlers) deleteAndRedirect(w http.ResponseWriter, r *http.Request) {
	def := definitionFrom(r)
	id := chi.URLParam(r, "id")
	listURL := "/admin/" + def.Slug

	t, err := def.NewTable(h.api, h.pageSize)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if gerr := h.guardDelete(r.Context(), def, id); gerr != nil {
		h.alerts.Add(w, r, alerts.Error, errorAlert(gerr).Message)
		http.Redirect(w, r, listURL+"/"+url.PathEscape(id), http.StatusSeeOther)
		return
	}

	if err := t.DeleteID(r.Context(), id); err != nil {
		h.logger.Warn("delete failed", zap.String("resource", def.Slug), zap.String("id", id), zap.Error(err))
		h.alerts.Add(w, r, alerts.Error, errorAlert(err).Message)
		http.Redirect(w, r, listURL, http.StatusSeeOther)
		return
	}
	h.alerts.Add(w, r, alerts.Success, fmt.Sprintf("Deleted %s %s.", strings.ToLower(def.Title), id))
	http.Redirect(w, r, listURL, http.StatusSeeOther)
}

// errForbiddenDelete is returned for records whose delete action is hidden.
var errForbiddenDelete = errors.New("this record cannot be deleted")

// guardDelete fetches the record and refuses records the table would not
// offer a delete action for, such as root admins.
func (h *Handlers) guardDelete(ctx context.Context, def resources.Definition, id string) error {
	record, err := def.Get(ctx, h.api, id)
	if err != nil {
		return err
	}
	if !def.Deletable(record) {
		return errForbiddenDelete
	}
	return nil
}

func (h *Handlers) importFile(w http.ResponseWriter, r *http.Request) {
	def := definitionFrom(r)
	listURL := "/admin/" + def.Slug

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		h.alerts.Add(w, r, alerts.Error, "The upload could not be read.")
		http.Redirect(w, r, listURL, http.StatusSeeOther)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.alerts.Add(w, r, alerts.Error, "Choose a file to import.")
		http.Redirect(w, r, listURL, http.StatusSeeOther)
		return
	}
	defer file.Close()

	format, err := dfapi.ParseFormat(filepath.Ext(header.Filename))
	if err != nil {
		h.alerts.Add(w, r, alerts.Error, "Import files must be JSON, CSV, or XML.")
		http.Redirect(w, r, listURL, http.StatusSeeOther)
		return
	}

	t, err := def.NewTable(h.api, h.pageSize)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := t.Upload(r.Context(), dfapi.Upload{Name: header.Filename, Format: format, Body: file}); err != nil {
		h.logger.Warn("import failed", zap.String("resource", def.Slug), zap.Error(err))
		h.alerts.Add(w, r, alerts.Error, errorAlert(err).Message)
		http.Redirect(w, r, listURL, http.StatusSeeOther)
		return
	}
	h.alerts.Add(w, r, alerts.Success, fmt.Sprintf("Imported %s.", header.Filename))
	http.Redirect(w, r, listURL, http.StatusSeeOther)
}

func (h *Handlers) export(w http.ResponseWriter, r *http.Request) {
	def := definitionFrom(r)

	name := r.URL.Query().Get("format")
	if name == "" {
		name = string(dfapi.FormatJSON)
	}
	format, err := dfapi.ParseFormat(name)
	if err != nil {
		h.render(w, r, http.StatusBadRequest, "error", map[string]any{
			"Title":   def.Title,
			"Heading": "Export failed",
			"Message": err.Error(),
		})
		return
	}

	t, err := def.NewTable(h.api, h.pageSize)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	exp, err := t.Download(r.Context(), format)
	if err != nil && exp.Name == "" {
		h.renderError(w, r, "Export failed", err)
		return
	}
	if err != nil {
		// The file was produced; only the follow-up refresh failed.
		h.logger.Warn("refresh after export failed", zap.String("resource", def.Slug), zap.Error(err))
	}

	w.Header().Set("Content-Type", exp.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exp.Name))
	if _, err := w.Write(exp.Data); err != nil {
		h.logger.Warn("failed to write export", zap.String("resource", def.Slug), zap.String("file", exp.Name), zap.Error(err))
	}
}

func (h *Handlers) detail(w http.ResponseWriter, r *http.Request) {
	def := definitionFrom(r)
	id := chi.URLParam(r, "id")

	record, err := def.Get(r.Context(), h.api, id)
	if err != nil {
		if dfapi.IsNotFound(err) {
			h.renderNotFound(w, r, fmt.Sprintf("%s %s does not exist.", def.Title, id))
			return
		}
		h.renderError(w, r, def.Title, err)
		return
	}

	fields, err := recordFields(record)
	if err != nil {
		h.renderError(w, r, def.Title, err)
		return
	}

	data := map[string]any{
		"Title":     def.Title,
		"Resource":  def,
		"ID":        id,
		"CanEdit":   def.Form() != nil,
		"CanDelete": def.Deletable(record),
		"Detail":    template.HTML(RenderResourceDetail(fields)),
	}
	if body, ok := fields["body_html"].(string); ok && body != "" {
		data["Preview"] = h.preview(body)
	}
	h.render(w, r, http.StatusOK, "detail", data)
}

func (h *Handlers) newForm(w http.ResponseWriter, r *http.Request) {
	def := definitionFrom(r)
	if def.Form() == nil {
		h.renderNotFound(w, r, def.Title+" cannot be created from the console.")
		return
	}
	h.renderForm(w, r, http.StatusOK, def, "", nil, nil)
}

func (h *Handlers) editForm(w http.ResponseWriter, r *http.Request) {
	def := definitionFrom(r)
	id := chi.URLParam(r, "id")
	if def.Form() == nil {
		h.renderNotFound(w, r, def.Title+" cannot be edited from the console.")
		return
	}

	record, err := def.Get(r.Context(), h.api, id)
	if err != nil {
		h.renderError(w, r, def.Title, err)
		return
	}
	values, err := def.Form().Values(record)
	if err != nil {
		h.renderError(w, r, def.Title, err)
		return
	}
	h.renderForm(w, r, http.StatusOK, def, id, values, nil)
}

func (h *Handlers) create(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, "")
}

func (h *Handlers) update(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, chi.URLParam(r, "id"))
}

func (h *Handlers) save(w http.ResponseWriter, r *http.Request, id string) {
	def := definitionFrom(r)
	if def.Form() == nil {
		h.renderNotFound(w, r, def.Title+" cannot be edited from the console.")
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	savedID, err := def.Save(r.Context(), h.api, id, r.PostForm)
	if err != nil {
		values := flatten(r.PostForm)
		var fieldErrs forms.FieldErrors
		if errors.As(err, &fieldErrs) {
			h.renderForm(w, r, http.StatusUnprocessableEntity, def, id, values, fieldErrs)
			return
		}
		h.logger.Warn("save failed", zap.String("resource", def.Slug), zap.Error(err))
		h.renderForm(w, r, apierrors.FromAPIError(err).Status, def, id, values, nil, errorAlert(err))
		return
	}

	verb := "Updated"
	if id == "" {
		verb = "Created"
	}
	h.alerts.Add(w, r, alerts.Success, fmt.Sprintf("%s %s %s.", verb, strings.ToLower(def.Title), savedID))
	target := "/admin/" + def.Slug
	if savedID != "" {
		target += "/" + url.PathEscape(savedID)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// generate drafts an email template and shows it in the new-template form.
func (h *Handlers) generate(w http.ResponseWriter, r *http.Request) {
	def := definitionFrom(r)
	if def.Slug != emailTemplatesSlug {
		h.renderNotFound(w, r, "Drafts are only available for email templates.")
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	purpose := strings.TrimSpace(r.PostForm.Get("purpose"))
	if purpose == "" {
		purpose = drafts.Purposes[0]
	}

	d, fromAI := h.drafts.Generate(r.Context(), purpose)
	msg := "Drafted from a built-in template. Review it before saving."
	if fromAI {
		msg = "Drafted with OpenAI. Review it before saving."
	}
	notice := alerts.NewAlert(alerts.Info, msg)

	values := map[string]string{
		"name":        d.Name,
		"description": d.Description,
		"subject":     d.Subject,
		"body_text":   d.BodyText,
		"body_html":   d.BodyHTML,
		"from_name":   d.FromName,
	}
	h.renderForm(w, r, http.StatusOK, def, "", values, nil, notice)
}

func (h *Handlers) renderForm(w http.ResponseWriter, r *http.Request, status int, def resources.Definition, id string, values map[string]string, errs forms.FieldErrors, extra ...alerts.Alert) {
	action := "/admin/" + def.Slug
	if id != "" {
		action += "/" + url.PathEscape(id)
	}

	data := map[string]any{
		"Title":       def.Title,
		"Resource":    def,
		"ID":          id,
		"CanGenerate": def.Slug == emailTemplatesSlug && id == "",
		"Purposes":    drafts.Purposes,
	}
	data["Form"] = template.HTML(RenderResourceForm(def.Form().Fields, values, errs, action, csrf.TemplateField(r)))
	if body := values["body_html"]; body != "" {
		data["Preview"] = h.preview(body)
	}
	h.render(w, r, status, "form", data, extra...)
}

// preview sanitizes template HTML for display inside the console.
func (h *Handlers) preview(body string) template.HTML {
	return template.HTML(h.sanitize.Sanitize(body))
}

// errorAlert turns a backend or validation error into a dismissible alert.
func errorAlert(err error) alerts.Alert {
	msg := err.Error()
	var apiErr *dfapi.Error
	if errors.As(err, &apiErr) {
		resp := apierrors.FromAPIError(apiErr)
		msg = resp.Message
		if resp.Details != "" {
			msg += " " + resp.Details
		}
	}
	return alerts.NewAlert(alerts.Error, msg)
}

// recordFields converts a record to its wire field names for display.
func recordFields(record any) (map[string]any, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func flatten(v url.Values) map[string]string {
	out := make(map[string]string, len(v))
	for k := range v {
		out[k] = v.Get(k)
	}
	return out
}

// apiList serves a resource page as JSON.
func (h *Handlers) apiList(w http.ResponseWriter, r *http.Request) {
	def, ok := resources.Get(chi.URLParam(r, "resource"))
	if !ok {
		apierrors.WriteError(w, http.StatusNotFound, apierrors.ErrNotFound, "unknown resource")
		return
	}
	if def.Paywalled {
		status, err := h.license.Status(r.Context())
		if err != nil {
			apierrors.WriteAPIError(w, err)
			return
		}
		if !status.Allows(def) {
			apierrors.WriteErrorWithDetails(w, http.StatusPaymentRequired, apierrors.ErrLicenseRequired,
				def.Title+" requires a commercial license", "platform license: "+status.Tier)
			return
		}
	}

	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err != nil || n < 1 || n > maxPageSize {
			apierrors.WriteErrorWithField(w, http.StatusBadRequest, apierrors.ErrInvalidRequest,
				fmt.Sprintf("limit must be between 1 and %d", maxPageSize), "limit")
			return
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err != nil || n < 0 {
			apierrors.WriteErrorWithField(w, http.StatusBadRequest, apierrors.ErrInvalidRequest,
				"offset must be a non-negative integer", "offset")
			return
		}
	}

	t, err := def.NewTable(h.api, h.pageSize)
	if err != nil {
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrInternal, err.Error())
		return
	}
	_, opts := h.listState(q)
	if err := t.Refresh(r.Context(), opts...); err != nil {
		apierrors.WriteAPIError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(t.View())
}

func (h *Handlers) apiLicense(w http.ResponseWriter, r *http.Request) {
	status, err := h.license.Status(r.Context())
	if err != nil {
		apierrors.WriteAPIError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(licenseJSON(status))
}

type licenseResponse struct {
	Tier        string `json:"tier"`
	Version     string `json:"version,omitempty"`
	OpenSource  bool   `json:"open_source"`
	DisableUI   bool   `json:"disable_ui"`
	Message     string `json:"message,omitempty"`
	RenewalDate string `json:"renewal_date,omitempty"`
}

func licenseJSON(s license.Status) licenseResponse {
	return licenseResponse{
		Tier:        s.Tier,
		Version:     s.Version,
		OpenSource:  s.OpenSource(),
		DisableUI:   s.DisableUI,
		Message:     s.Message,
		RenewalDate: s.RenewalDate,
	}
}
