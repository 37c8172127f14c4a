// ABOUTME: Tests for form binding, validation messages, and backend error mapping.
// ABOUTME: Uses a small tagged struct shaped like the console's resource inputs.

package forms

import (
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/dfconsole/internal/dfapi"
)

type roleInput struct {
	Name        string `form:"name" validate:"required,max=10"`
	Email       string `form:"email" validate:"omitempty,email"`
	Rate        int    `form:"rate" validate:"gte=0"`
	Active      bool   `form:"is_active"`
	Description string `form:"description"`
}

func TestBindConvertsTypes(t *testing.T) {
	var in roleInput
	err := Bind(url.Values{
		"name":      {"  admins "},
		"rate":      {"12"},
		"is_active": {"true"},
	}, &in)
	require.NoError(t, err)

	assert.Equal(t, "admins", in.Name)
	assert.Equal(t, 12, in.Rate)
	assert.True(t, in.Active)
	assert.Empty(t, in.Description)
}

func TestBindMissingCheckboxIsFalse(t *testing.T) {
	in := roleInput{Active: true}
	require.NoError(t, Bind(url.Values{"name": {"x"}}, &in))
	assert.True(t, in.Active, "absent keys leave the field untouched")

	var fresh roleInput
	require.NoError(t, Bind(url.Values{"name": {"x"}}, &fresh))
	assert.False(t, fresh.Active)
}

func TestDecodeReportsFieldErrors(t *testing.T) {
	var in roleInput
	errs := Decode(url.Values{"email": {"not-an-email"}, "rate": {"-1"}}, &in)
	require.Len(t, errs, 3)

	assert.Equal(t, "This field is required", errs.For("name"))
	assert.Equal(t, "Invalid email format", errs.For("email"))
	assert.Equal(t, "Must be greater than or equal to 0", errs.For("rate"))
	assert.Empty(t, errs.For("description"))
}

func TestDecodeBindFailureIsGeneral(t *testing.T) {
	var in roleInput
	errs := Decode(url.Values{"name": {"ok"}, "rate": {"many"}}, &in)
	require.Len(t, errs, 1)
	assert.Empty(t, errs[0].Field)
	assert.NotEmpty(t, errs.General())
}

func TestValidatePasses(t *testing.T) {
	assert.Nil(t, Validate(&roleInput{Name: "ok"}))
}

func TestValidateMaxLength(t *testing.T) {
	errs := Validate(&roleInput{Name: "much-too-long-name"})
	assert.Equal(t, "Must be at most 10 characters", errs.For("name"))
}

func TestValuesRoundTrip(t *testing.T) {
	vals, err := Values(roleInput{Name: "admins", Rate: 5, Active: true})
	require.NoError(t, err)

	assert.Equal(t, "admins", vals["name"])
	assert.Equal(t, "5", vals["rate"])
	assert.Equal(t, "true", vals["is_active"])
	assert.Equal(t, "", vals["description"])
}

func TestFromAPIErrorWithContext(t *testing.T) {
	apiErr := &dfapi.Error{
		Status:  400,
		Code:    400,
		Message: "Validation failed.",
		Context: []byte(`{"name":["The name has already been taken."],"email":["Bad.","Worse."]}`),
	}
	errs, ok := FromAPIError(fmt.Errorf("create: %w", apiErr))
	require.True(t, ok)

	assert.Equal(t, FieldErrors{
		{Field: "email", Message: "Bad."},
		{Field: "email", Message: "Worse."},
		{Field: "name", Message: "The name has already been taken."},
	}, errs)
}

func TestFromAPIErrorWithoutContext(t *testing.T) {
	errs, ok := FromAPIError(&dfapi.Error{Status: 500, Message: "boom"})
	require.True(t, ok)
	assert.Equal(t, []string{"boom"}, errs.General())
}

func TestFromAPIErrorIgnoresOtherErrors(t *testing.T) {
	_, ok := FromAPIError(fmt.Errorf("dial tcp: refused"))
	assert.False(t, ok)
}

func TestFieldErrorsError(t *testing.T) {
	errs := FieldErrors{{Field: "name", Message: "required"}, {Message: "try again"}}
	assert.Equal(t, "validation failed: name: required; try again", errs.Error())
}
