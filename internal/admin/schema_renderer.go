// ABOUTME: HTML renderer for resource tables, forms, and record details.
// ABOUTME: Generates semantic HTML with Tailwind CSS and htmx attributes from table views and form fields.

package admin

import (
	"fmt"
	"html"
	"html/template"
	"net/url"
	"sort"
	"strings"

	"github.com/2389/dfconsole/internal/forms"
	"github.com/2389/dfconsole/internal/resources"
	"github.com/2389/dfconsole/internal/table"
)

// tableID is the element htmx swaps after a row action.
const tableID = "resource-table"

// RenderTable generates the table partial for a view. state carries the
// list parameters (q, limit, offset, sort) so row actions refresh the same page.
func RenderTable(v table.View, listURL string, state url.Values) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<div id="%s">`, tableID))
	if v.State == table.Stale {
		sb.WriteString(`<p class="mb-2 text-sm text-yellow-700">These rows may be out of date. Reload to refresh them.</p>`)
	}

	sb.WriteString(`<table class="min-w-full divide-y divide-gray-200">`)
	sb.WriteString(`<thead class="bg-gray-50"><tr>`)
	for _, col := range v.Columns {
		sb.WriteString(fmt.Sprintf(`<th class="px-6 py-3 text-left text-xs font-medium text-gray-500 uppercase">%s</th>`,
			html.EscapeString(col.Header)))
	}
	sb.WriteString(`<th class="px-6 py-3 text-right text-xs font-medium text-gray-500 uppercase">Actions</th>`)
	sb.WriteString(`</tr></thead>`)
	sb.WriteString(`<tbody class="bg-white divide-y divide-gray-200">`)

	if len(v.Rows) == 0 {
		sb.WriteString(fmt.Sprintf(`<tr><td colspan="%d" class="px-6 py-4 text-sm text-gray-500">No records found.</td></tr>`,
			len(v.Columns)+1))
	}

	for _, row := range v.Rows {
		sb.WriteString(fmt.Sprintf(`<tr id="row-%s">`, html.EscapeString(row.ID)))
		for _, cell := range row.Cells {
			sb.WriteString(fmt.Sprintf(`<td class="px-6 py-4 whitespace-nowrap text-sm text-gray-900">%s</td>`,
				html.EscapeString(cell)))
		}

		actions := row.Actions
		if row.Default != nil {
			actions = append([]table.ActionView{*row.Default}, actions...)
		}
		sb.WriteString(`<td class="px-6 py-4 whitespace-nowrap text-right text-sm space-x-3">`)
		sb.WriteString(RenderActions(actions, state))
		sb.WriteString(`</td></tr>`)
	}

	sb.WriteString(`</tbody></table>`)
	sb.WriteString(renderPager(v.Page, listURL, state))
	sb.WriteString(`</div>`)
	return sb.String()
}

// RenderActions generates action links and buttons. GET actions become links;
// other methods become htmx buttons that replace the table.
func RenderActions(actions []table.ActionView, state url.Values) string {
	var sb strings.Builder

	for i, action := range actions {
		if i > 0 {
			sb.WriteString(" ")
		}

		if action.Method == "GET" {
			sb.WriteString(fmt.Sprintf(`<a href="%s" class="text-blue-600 hover:text-blue-900">%s</a>`,
				html.EscapeString(action.Endpoint),
				html.EscapeString(action.Label)))
			continue
		}

		endpoint := action.Endpoint
		if q := state.Encode(); q != "" {
			endpoint += "?" + q
		}
		confirmAttr := ""
		if action.Confirm {
			confirmAttr = fmt.Sprintf(` hx-confirm="%s this item?"`, html.EscapeString(action.Label))
		}

		cssClass := "text-blue-600 hover:text-blue-900"
		if action.Method == "DELETE" {
			cssClass = "text-red-600 hover:text-red-900"
		}

		sb.WriteString(fmt.Sprintf(`<button %s="%s"%s hx-target="#%s" hx-swap="outerHTML" class="%s">%s</button>`,
			getHTMXAttribute(action.Method),
			html.EscapeString(endpoint),
			confirmAttr,
			tableID,
			cssClass,
			html.EscapeString(action.Label)))
	}

	return sb.String()
}

func renderPager(p table.Page, listURL string, state url.Values) string {
	var sb strings.Builder

	sb.WriteString(`<div class="flex items-center justify-between px-6 py-3 text-sm text-gray-600">`)
	sb.WriteString(fmt.Sprintf(`<span>Page %d of %d &middot; %d records</span>`, p.Number(), p.Pages(), p.Total))
	sb.WriteString(`<span class="space-x-3">`)
	if p.HasPrev() {
		sb.WriteString(fmt.Sprintf(`<a href="%s" class="text-blue-600 hover:text-blue-900">Previous</a>`,
			html.EscapeString(pageURL(listURL, state, p.PrevOffset()))))
	}
	if p.HasNext() {
		sb.WriteString(fmt.Sprintf(`<a href="%s" class="text-blue-600 hover:text-blue-900">Next</a>`,
			html.EscapeString(pageURL(listURL, state, p.NextOffset()))))
	}
	sb.WriteString(`</span></div>`)
	return sb.String()
}

func pageURL(listURL string, state url.Values, offset int) string {
	q := url.Values{}
	for k, v := range state {
		q[k] = v
	}
	q.Set("offset", fmt.Sprint(offset))
	return listURL + "?" + q.Encode()
}

// RenderResourceForm generates a create/edit form with inline field errors.
func RenderResourceForm(fields []resources.Field, values map[string]string, errs forms.FieldErrors, action string, csrfField template.HTML) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<form method="post" action="%s" class="bg-white rounded-lg shadow p-6 space-y-4 max-w-2xl">`,
		html.EscapeString(action)))
	sb.WriteString(string(csrfField))

	if general := errs.General(); len(general) > 0 {
		sb.WriteString(`<div class="rounded bg-red-50 p-3 text-sm text-red-700">`)
		for _, msg := range general {
			sb.WriteString(fmt.Sprintf(`<p>%s</p>`, html.EscapeString(msg)))
		}
		sb.WriteString(`</div>`)
	}

	for _, field := range fields {
		name := html.EscapeString(field.Name)
		value := values[field.Name]

		sb.WriteString(`<div>`)
		sb.WriteString(fmt.Sprintf(`<label for="%s" class="block text-sm font-medium text-gray-700">%s</label>`,
			name, html.EscapeString(field.Label)))

		switch field.Type {
		case "textarea":
			sb.WriteString(fmt.Sprintf(`<textarea id="%s" name="%s" rows="6" %s class="mt-1 block w-full rounded border-gray-300 shadow-sm px-3 py-2 border">%s</textarea>`,
				name, name, requiredAttr(field.Required), html.EscapeString(value)))

		case "checkbox":
			checked := ""
			if isTruthy(value) {
				checked = "checked"
			}
			sb.WriteString(fmt.Sprintf(`<input type="checkbox" id="%s" name="%s" value="true" %s class="mt-1 rounded border-gray-300">`,
				name, name, checked))

		case "select":
			sb.WriteString(fmt.Sprintf(`<select id="%s" name="%s" %s class="mt-1 block w-full rounded border-gray-300 shadow-sm px-3 py-2 border">`,
				name, name, requiredAttr(field.Required)))
			sb.WriteString(`<option value="">Select...</option>`)
			for _, opt := range field.Options {
				selected := ""
				if opt == value {
					selected = " selected"
				}
				sb.WriteString(fmt.Sprintf(`<option value="%s"%s>%s</option>`,
					html.EscapeString(opt), selected, html.EscapeString(opt)))
			}
			sb.WriteString(`</select>`)

		default:
			inputType := field.Type
			if inputType == "" {
				inputType = "text"
			}
			valueAttr := ""
			if value != "" && inputType != "password" {
				valueAttr = fmt.Sprintf(` value="%s"`, html.EscapeString(value))
			}
			sb.WriteString(fmt.Sprintf(`<input type="%s" id="%s" name="%s"%s %s class="mt-1 block w-full rounded border-gray-300 shadow-sm px-3 py-2 border">`,
				html.EscapeString(inputType), name, name, valueAttr, requiredAttr(field.Required)))
		}

		if field.Help != "" {
			sb.WriteString(fmt.Sprintf(`<p class="mt-1 text-xs text-gray-500">%s</p>`, html.EscapeString(field.Help)))
		}
		if msg := errs.For(field.Name); msg != "" {
			sb.WriteString(fmt.Sprintf(`<p class="mt-1 text-sm text-red-600">%s</p>`, html.EscapeString(msg)))
		}
		sb.WriteString(`</div>`)
	}

	sb.WriteString(`<div class="flex gap-4">`)
	sb.WriteString(`<button type="submit" class="px-4 py-2 bg-purple-600 text-white rounded hover:bg-purple-700">Save</button>`)
	sb.WriteString(`<button type="button" onclick="history.back()" class="px-4 py-2 bg-gray-200 text-gray-700 rounded hover:bg-gray-300">Cancel</button>`)
	sb.WriteString(`</div>`)

	sb.WriteString(`</form>`)
	return sb.String()
}

// RenderResourceDetail generates a detail view of a record's fields, sorted by name.
func RenderResourceDetail(record map[string]any) string {
	var sb strings.Builder

	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sb.WriteString(`<div class="bg-white rounded-lg shadow overflow-hidden">`)
	sb.WriteString(`<dl class="divide-y divide-gray-200">`)

	for _, key := range keys {
		sb.WriteString(`<div class="px-6 py-4 grid grid-cols-3 gap-4">`)
		sb.WriteString(fmt.Sprintf(`<dt class="text-sm font-medium text-gray-500">%s</dt>`,
			html.EscapeString(key)))
		sb.WriteString(fmt.Sprintf(`<dd class="text-sm text-gray-900 col-span-2">%s</dd>`,
			formatDetailValue(record[key])))
		sb.WriteString(`</div>`)
	}

	sb.WriteString(`</dl></div>`)
	return sb.String()
}

// Helper functions

func formatDetailValue(value any) string {
	switch v := value.(type) {
	case nil:
		return `<span class="text-gray-400">No value</span>`
	case bool:
		if v {
			return "Yes"
		}
		return "No"
	case map[string]any, []any:
		return fmt.Sprintf(`<pre class="whitespace-pre-wrap text-xs">%s</pre>`, html.EscapeString(prettyJSONValue(v)))
	}

	strValue := fmt.Sprint(value)
	if strValue == "" {
		return `<span class="text-gray-400">No value</span>`
	}
	return html.EscapeString(strValue)
}

func isTruthy(value string) bool {
	switch strings.ToLower(value) {
	case "true", "1", "on", "yes":
		return true
	}
	return false
}

func requiredAttr(required bool) string {
	if required {
		return "required"
	}
	return ""
}

func getHTMXAttribute(method string) string {
	switch method {
	case "POST":
		return "hx-post"
	case "DELETE":
		return "hx-delete"
	case "PUT":
		return "hx-put"
	case "PATCH":
		return "hx-patch"
	default:
		return "hx-post"
	}
}
