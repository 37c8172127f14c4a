// ABOUTME: Template loading and rendering for the admin console.
// ABOUTME: Embeds HTML templates and provides render helpers.

package admin

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
)

//go:embed templates/*.html templates/partials/*.html
var templateFS embed.FS

var (
	layoutTmpl   *template.Template
	pageTmpls    map[string]*template.Template
	partialTmpls *template.Template
)

var funcs = template.FuncMap{
	"join": strings.Join,
}

// partialPaths defines the templates htmx responses render on their own.
var partialPaths = []string{
	"templates/partials/alerts.html",
}

// pageDefinitions maps page names to their template files
func getPageDefinitions() map[string]string {
	return map[string]string{
		"dashboard": "templates/dashboard.html",
		"list":      "templates/list.html",
		"form":      "templates/form.html",
		"detail":    "templates/detail.html",
		"logs":      "templates/logs.html",
		"paywall":   "templates/paywall.html",
		"error":     "templates/error.html",
	}
}

func parsePartialTemplates() *template.Template {
	return template.Must(template.New("partials").Funcs(funcs).ParseFS(templateFS, partialPaths...))
}

// parsePageTemplates creates a map of page templates, each with layout and partials
func parsePageTemplates() map[string]*template.Template {
	templates := make(map[string]*template.Template)

	for name, path := range getPageDefinitions() {
		tmpl := template.Must(layoutTmpl.Clone())
		tmpl = template.Must(tmpl.ParseFS(templateFS, path))
		tmpl = template.Must(tmpl.ParseFS(templateFS, partialPaths...))
		templates[name] = tmpl
	}

	return templates
}

func init() {
	layoutTmpl = template.Must(template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html"))
	partialTmpls = parsePartialTemplates()
	pageTmpls = parsePageTemplates()
}

func renderPage(w io.Writer, page string, data any) error {
	tmpl, ok := pageTmpls[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	return tmpl.ExecuteTemplate(w, "layout", data)
}

func renderPartial(w io.Writer, name string, data any) error {
	return partialTmpls.ExecuteTemplate(w, name, data)
}
