// ABOUTME: Create/edit form definitions for resources the console can write.
// ABOUTME: Binds form values to a validated input, converts it to the API entity, and saves it.

package resources

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/2389/dfconsole/internal/dfapi"
	"github.com/2389/dfconsole/internal/forms"
)

// Field describes one form input.
type Field struct {
	Name     string
	Label    string
	Type     string // text, textarea, email, number, checkbox, select, password
	Required bool
	Help     string
	Options  []string
}

// FormSpec is a resource's create/edit form.
type FormSpec struct {
	Fields []Field

	values func(record any) (map[string]string, error)
	save   func(ctx context.Context, c *dfapi.Client, path, id string, v url.Values) (string, error)
}

// Save validates v and creates the record (id empty) or updates it. It returns
// the record id. Validation failures are returned as forms.FieldErrors.
func (f *FormSpec) Save(ctx context.Context, c *dfapi.Client, path, id string, v url.Values) (string, error) {
	return f.save(ctx, c, path, id, v)
}

// Values pre-fills the form from a record returned by Definition.Get.
func (f *FormSpec) Values(record any) (map[string]string, error) {
	return f.values(record)
}

// formSpec is the typed half of a FormSpec. Input carries `form` and
// `validate` tags; DTO is the API entity.
type formSpec[DTO, Input any] struct {
	fields  []Field
	toInput func(DTO) Input
	// toDTO builds the entity; id is empty when creating.
	toDTO func(in Input, id int) DTO
	idOf  func(DTO) string
}

func (s formSpec[DTO, Input]) build() *FormSpec {
	return &FormSpec{
		Fields: s.fields,
		values: func(record any) (map[string]string, error) {
			dto, ok := record.(DTO)
			if !ok {
				return nil, fmt.Errorf("unexpected record type %T", record)
			}
			return forms.Values(s.toInput(dto))
		},
		save: func(ctx context.Context, c *dfapi.Client, path, id string, v url.Values) (string, error) {
			var in Input
			if errs := forms.Decode(v, &in); len(errs) > 0 {
				return "", errs
			}
			res := dfapi.NewResource[DTO](c, path)

			var (
				saved DTO
				err   error
			)
			if id == "" {
				saved, err = res.Create(ctx, s.toDTO(in, 0))
			} else {
				n, convErr := strconv.Atoi(id)
				if convErr != nil {
					return "", fmt.Errorf("invalid id %q", id)
				}
				saved, err = res.Update(ctx, s.toDTO(in, n))
			}
			if err != nil {
				if errs, ok := forms.FromAPIError(err); ok && hasFieldErrors(errs) {
					return "", errs
				}
				return "", err
			}
			if newID := s.idOf(saved); newID != "" && newID != "0" {
				return newID, nil
			}
			return id, nil
		},
	}
}

func hasFieldErrors(errs forms.FieldErrors) bool {
	for _, e := range errs {
		if e.Field != "" {
			return true
		}
	}
	return false
}
