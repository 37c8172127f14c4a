// ABOUTME: Rate limits scoped to the instance, a user, a role, or a service.
// ABOUTME: Paywalled on open source licenses.

package resources

import (
	"strconv"

	"github.com/2389/dfconsole/internal/filter"
	"github.com/2389/dfconsole/internal/table"
)

// LimitTypes are the scopes a limit may apply to.
var LimitTypes = []string{
	"instance",
	"instance.user",
	"instance.each_user",
	"instance.service",
	"instance.role",
	"instance.user.service",
	"instance.each_user.service",
	"instance.service.endpoint",
	"instance.user.service.endpoint",
	"instance.each_user.service.endpoint",
}

// LimitPeriods are the windows a limit rate is counted over.
var LimitPeriods = []string{"minute", "hour", "day", "7-day", "30-day"}

// LimitDTO is a system/limit record.
type LimitDTO struct {
	ID          int    `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
	Type        string `json:"type,omitempty"`
	Rate        int    `json:"rate,omitempty"`
	Period      string `json:"period,omitempty"`
	UserID      *int   `json:"user_id"`
	RoleID      *int   `json:"role_id"`
	ServiceID   *int   `json:"service_id"`
	Endpoint    string `json:"endpoint,omitempty"`
	Verb        string `json:"verb,omitempty"`
}

// LimitRow is the table row for limits.
type LimitRow struct {
	ID      int
	Name    string
	Type    string
	Rate    string
	User    string
	Role    string
	Service string
	Active  bool
}

// MapLimit converts a LimitDTO to its row.
func MapLimit(l LimitDTO) LimitRow {
	rate := ""
	if l.Rate > 0 {
		rate = joinNonEmpty(" / ", strconv.Itoa(l.Rate), l.Period)
	}
	return LimitRow{
		ID:      l.ID,
		Name:    l.Name,
		Type:    l.Type,
		Rate:    rate,
		User:    optionalID(l.UserID),
		Role:    optionalID(l.RoleID),
		Service: optionalID(l.ServiceID),
		Active:  l.IsActive,
	}
}

func optionalID(id *int) string {
	if id == nil {
		return ""
	}
	return itoa(*id)
}

func optionalRef(id int) *int {
	if id <= 0 {
		return nil
	}
	return &id
}

func derefID(id *int) int {
	if id == nil {
		return 0
	}
	return *id
}

type limitInput struct {
	Name        string `form:"name" validate:"required,max=64"`
	Description string `form:"description" validate:"max=255"`
	Type        string `form:"type" validate:"required,oneof=instance instance.user instance.each_user instance.service instance.role instance.user.service instance.each_user.service instance.service.endpoint instance.user.service.endpoint instance.each_user.service.endpoint"`
	Rate        int    `form:"rate" validate:"gte=1"`
	Period      string `form:"period" validate:"required,oneof=minute hour day 7-day 30-day"`
	UserID      int    `form:"user_id" validate:"gte=0"`
	RoleID      int    `form:"role_id" validate:"gte=0"`
	ServiceID   int    `form:"service_id" validate:"gte=0"`
	Endpoint    string `form:"endpoint" validate:"max=255"`
	Verb        string `form:"verb" validate:"omitempty,oneof=GET POST PUT PATCH DELETE"`
	IsActive    bool   `form:"is_active"`
}

func limits() Definition {
	return binding[LimitDTO, LimitRow]{
		slug:         "limits",
		title:        "Limits",
		path:         "system/limit",
		paywalled:    true,
		searchFields: filter.Fields(filter.Limits),
		query:        filter.For(filter.Limits),
		sort:         "name",
		mapRow:       MapLimit,
		id:           func(r LimitRow) string { return itoa(r.ID) },
		columns: []table.Column[LimitRow]{
			{Key: "id", Header: "ID", Value: func(r LimitRow) string { return itoa(r.ID) }},
			{Key: "name", Header: "Name", Value: func(r LimitRow) string { return r.Name }},
			{Key: "type", Header: "Type", Value: func(r LimitRow) string { return r.Type }},
			{Key: "rate", Header: "Rate", Value: func(r LimitRow) string { return r.Rate }},
			{Key: "user", Header: "User", Value: func(r LimitRow) string { return r.User }},
			{Key: "role", Header: "Role", Value: func(r LimitRow) string { return r.Role }},
			{Key: "service", Header: "Service", Value: func(r LimitRow) string { return r.Service }},
			{Key: "active", Header: "Active", Value: func(r LimitRow) string { return activeLabel(r.Active) }},
		},
		form: formSpec[LimitDTO, limitInput]{
			fields: []Field{
				{Name: "name", Label: "Name", Type: "text", Required: true},
				{Name: "description", Label: "Description", Type: "textarea"},
				{Name: "type", Label: "Type", Type: "select", Required: true, Options: LimitTypes},
				{Name: "rate", Label: "Rate", Type: "number", Required: true},
				{Name: "period", Label: "Period", Type: "select", Required: true, Options: LimitPeriods},
				{Name: "user_id", Label: "User ID", Type: "number", Help: "0 for none"},
				{Name: "role_id", Label: "Role ID", Type: "number", Help: "0 for none"},
				{Name: "service_id", Label: "Service ID", Type: "number", Help: "0 for none"},
				{Name: "endpoint", Label: "Endpoint", Type: "text"},
				{Name: "verb", Label: "Verb", Type: "select", Options: []string{"", "GET", "POST", "PUT", "PATCH", "DELETE"}},
				{Name: "is_active", Label: "Active", Type: "checkbox"},
			},
			toInput: func(l LimitDTO) limitInput {
				return limitInput{
					Name:        l.Name,
					Description: l.Description,
					Type:        l.Type,
					Rate:        l.Rate,
					Period:      l.Period,
					UserID:      derefID(l.UserID),
					RoleID:      derefID(l.RoleID),
					ServiceID:   derefID(l.ServiceID),
					Endpoint:    l.Endpoint,
					Verb:        l.Verb,
					IsActive:    l.IsActive,
				}
			},
			toDTO: func(in limitInput, id int) LimitDTO {
				return LimitDTO{
					ID:          id,
					Name:        in.Name,
					Description: in.Description,
					Type:        in.Type,
					Rate:        in.Rate,
					Period:      in.Period,
					UserID:      optionalRef(in.UserID),
					RoleID:      optionalRef(in.RoleID),
					ServiceID:   optionalRef(in.ServiceID),
					Endpoint:    in.Endpoint,
					Verb:        in.Verb,
					IsActive:    in.IsActive,
				}
			},
			idOf: func(l LimitDTO) string { return itoa(l.ID) },
		}.build(),
	}.definition()
}
