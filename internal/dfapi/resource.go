// ABOUTME: Typed access to one system resource endpoint (list, get, create, update, delete).
// ABOUTME: Also handles bulk import and export of the resource list as files.

package dfapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// ListParams are the query parameters of a list request.
type ListParams struct {
	Limit   int
	Offset  int
	Filter  string
	Sort    string
	Fields  []string
	Related []string
}

// Values encodes p. include_count is always requested so meta.count is present.
func (p ListParams) Values() url.Values {
	v := url.Values{}
	v.Set("include_count", "true")
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Offset > 0 {
		v.Set("offset", strconv.Itoa(p.Offset))
	}
	if p.Filter != "" {
		v.Set("filter", p.Filter)
	}
	if p.Sort != "" {
		v.Set("sort", p.Sort)
	}
	if len(p.Fields) > 0 {
		v.Set("fields", strings.Join(p.Fields, ","))
	}
	if len(p.Related) > 0 {
		v.Set("related", strings.Join(p.Related, ","))
	}
	return v
}

// Meta is the metadata block of a list response.
type Meta struct {
	Count int `json:"count"`
}

// ListResponse is the list envelope: {"resource": [...], "meta": {"count": n}}.
type ListResponse[T any] struct {
	Resource []T  `json:"resource"`
	Meta     Meta `json:"meta"`
}

type envelope[T any] struct {
	Resource []T `json:"resource"`
}

// Format is a bulk import/export file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXML  Format = "xml"
)

// ParseFormat resolves a format name or file extension.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.TrimPrefix(strings.ToLower(s), ".")) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatXML:
		return FormatXML, nil
	}
	return "", fmt.Errorf("unsupported format %q", s)
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatXML:
		return "application/xml"
	default:
		return "application/json"
	}
}

// Upload is a file to import into a resource.
type Upload struct {
	Name   string
	Format Format
	Body   io.Reader
}

// Export is a downloaded resource list.
type Export struct {
	Name        string
	ContentType string
	Data        []byte
}

// Resource is a typed client for one resource path, e.g. "system/user".
type Resource[T any] struct {
	client *Client
	path   string
}

// NewResource returns a typed client for path.
func NewResource[T any](c *Client, path string) *Resource[T] {
	return &Resource[T]{client: c, path: strings.Trim(path, "/")}
}

// Path returns the resource path relative to the API root.
func (r *Resource[T]) Path() string {
	return r.path
}

// Name returns the last path segment, used for export file names.
func (r *Resource[T]) Name() string {
	if i := strings.LastIndex(r.path, "/"); i >= 0 {
		return r.path[i+1:]
	}
	return r.path
}

func (r *Resource[T]) itemPath(id string) string {
	return r.path + "/" + url.PathEscape(id)
}

// List fetches one page of the resource.
func (r *Resource[T]) List(ctx context.Context, p ListParams) (ListResponse[T], error) {
	var out ListResponse[T]
	if err := r.client.GetJSON(ctx, r.path, p.Values(), &out); err != nil {
		return ListResponse[T]{}, err
	}
	return out, nil
}

// Get fetches a single record by id.
func (r *Resource[T]) Get(ctx context.Context, id string, related ...string) (T, error) {
	var out T
	var q url.Values
	if len(related) > 0 {
		q = url.Values{"related": {strings.Join(related, ",")}}
	}
	err := r.client.GetJSON(ctx, r.itemPath(id), q, &out)
	return out, err
}

// Create posts entity in a {"resource": [entity]} envelope and returns the
// first record of the response (typically only its id).
func (r *Resource[T]) Create(ctx context.Context, entity T) (T, error) {
	return r.write(ctx, http.MethodPost, entity, http.StatusOK, http.StatusCreated)
}

// Update patches entity in a {"resource": [entity]} envelope. The entity must carry its id.
func (r *Resource[T]) Update(ctx context.Context, entity T) (T, error) {
	return r.write(ctx, http.MethodPatch, entity, http.StatusOK)
}

func (r *Resource[T]) write(ctx context.Context, method string, entity T, expect ...int) (T, error) {
	var zero T
	body, err := r.client.sendJSON(ctx, method, r.path, envelope[T]{Resource: []T{entity}}, expect...)
	if err != nil {
		return zero, err
	}
	var out envelope[T]
	if err := json.Unmarshal(body, &out); err != nil {
		return zero, fmt.Errorf("decode %s %s response: %w", method, r.path, err)
	}
	if len(out.Resource) == 0 {
		return zero, nil
	}
	return out.Resource[0], nil
}

// Delete removes the record with id. Any 2xx is success.
func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	_, _, err := r.client.Do(ctx, Request{Method: http.MethodDelete, Path: r.itemPath(id)})
	return err
}

// Import posts the file contents to the resource with the format's content type.
func (r *Resource[T]) Import(ctx context.Context, u Upload) error {
	if u.Body == nil {
		return fmt.Errorf("import %s: empty upload", r.path)
	}
	_, _, err := r.client.Do(ctx, Request{
		Method:  http.MethodPost,
		Path:    r.path,
		Body:    u.Body,
		Headers: map[string]string{"Content-Type": u.Format.ContentType()},
	})
	return err
}

// Export downloads the resource list as a file.
func (r *Resource[T]) Export(ctx context.Context, f Format) (Export, error) {
	name := r.Name() + "." + string(f)
	q := url.Values{"file": {name}, "download": {"true"}}
	header, body, err := r.client.Do(ctx, Request{
		Method:  http.MethodGet,
		Path:    r.path,
		Query:   q,
		Headers: map[string]string{"Accept": f.ContentType()},
		Expect:  []int{http.StatusOK},
	})
	if err != nil {
		return Export{}, err
	}
	ct := header.Get("Content-Type")
	if ct == "" {
		ct = f.ContentType()
	}
	return Export{Name: name, ContentType: ct, Data: body}, nil
}
