// ABOUTME: Form binding and validation for console create/edit pages.
// ABOUTME: Produces field-level errors from local rules or from backend validation failures.

package forms

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/2389/dfconsole/internal/dfapi"
)

// FieldError is one message attached to one form field. Field is empty for
// errors that belong to the whole form.
type FieldError struct {
	Field   string
	Message string
}

// FieldErrors is returned as an error when a form does not validate.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	parts := make([]string, len(fe))
	for i, e := range fe {
		if e.Field == "" {
			parts[i] = e.Message
			continue
		}
		parts[i] = e.Field + ": " + e.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// For returns the messages attached to field, joined for display.
func (fe FieldErrors) For(field string) string {
	var msgs []string
	for _, e := range fe {
		if e.Field == field {
			msgs = append(msgs, e.Message)
		}
	}
	return strings.Join(msgs, " ")
}

// General returns messages not tied to a field.
func (fe FieldErrors) General() []string {
	var msgs []string
	for _, e := range fe {
		if e.Field == "" {
			msgs = append(msgs, e.Message)
		}
	}
	return msgs
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Bind copies form values into dst, a pointer to a struct tagged with `form`.
// Strings are converted to the field types; a missing checkbox reads as false.
func Bind(values url.Values, dst any) error {
	flat := make(map[string]any, len(values))
	for k, v := range values {
		if len(v) > 0 {
			flat[k] = strings.TrimSpace(v[0])
		}
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "form",
		WeaklyTypedInput: true,
		Result:           dst,
	})
	if err != nil {
		return err
	}
	return dec.Decode(flat)
}

// Values renders a tagged struct back into form values for pre-filling an edit form.
func Values(src any) (map[string]string, error) {
	raw := make(map[string]any)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "form",
		Result:  &raw,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(src); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		out[k] = format(v)
	}
	return out, nil
}

func format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "true"
		}
		return ""
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ""
		}
		return format(rv.Elem().Interface())
	}
	return fmt.Sprint(v)
}

// Validate checks v against its `validate` tags.
func Validate(v any) FieldErrors {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{{Message: err.Error()}}
	}
	out := make(FieldErrors, 0, len(verrs))
	for _, e := range verrs {
		out = append(out, FieldError{Field: e.Field(), Message: message(e)})
	}
	return out
}

// Decode binds values into dst and validates it. A bind failure is reported as
// a form-level error.
func Decode(values url.Values, dst any) FieldErrors {
	if err := Bind(values, dst); err != nil {
		return FieldErrors{{Message: bindMessage(err)}}
	}
	return Validate(dst)
}

func bindMessage(err error) string {
	var merr *mapstructure.Error
	if errors.As(err, &merr) && len(merr.Errors) > 0 {
		return strings.Join(merr.Errors, "; ")
	}
	return err.Error()
}

// FromAPIError maps a backend validation failure onto form fields. It reports
// false when err is not a backend error.
func FromAPIError(err error) (FieldErrors, bool) {
	var apiErr *dfapi.Error
	if !errors.As(err, &apiErr) {
		return nil, false
	}
	ctx := apiErr.FieldErrors()
	if len(ctx) == 0 {
		return FieldErrors{{Message: apiErr.Message}}, true
	}
	fields := make([]string, 0, len(ctx))
	for f := range ctx {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var out FieldErrors
	for _, f := range fields {
		for _, msg := range ctx[f] {
			out = append(out, FieldError{Field: f, Message: msg})
		}
	}
	return out, true
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		if e.Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "oneof":
		return "Must be one of: " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "gt":
		return "Must be greater than " + e.Param()
	case "url":
		return "Invalid URL format"
	case "json":
		return "Must be valid JSON"
	default:
		return "Invalid value"
	}
}
