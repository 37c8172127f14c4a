// ABOUTME: Roles and apps, the access-control entities behind API keys.
// ABOUTME: Apps show the role they are bound to and their API key.

package resources

import (
	"strconv"

	"github.com/2389/dfconsole/internal/filter"
	"github.com/2389/dfconsole/internal/table"
)

// RoleDTO is a system/role record.
type RoleDTO struct {
	ID          int    `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
}

// RoleRow is the table row for roles.
type RoleRow struct {
	ID          int
	Name        string
	Description string
	Active      bool
}

// MapRole converts a RoleDTO to its row.
func MapRole(r RoleDTO) RoleRow {
	return RoleRow{ID: r.ID, Name: r.Name, Description: r.Description, Active: r.IsActive}
}

type roleInput struct {
	Name        string `form:"name" validate:"required,max=64"`
	Description string `form:"description" validate:"max=255"`
	IsActive    bool   `form:"is_active"`
}

func roles() Definition {
	return binding[RoleDTO, RoleRow]{
		slug:         "roles",
		title:        "Roles",
		path:         "system/role",
		searchFields: filter.Fields(filter.Roles),
		query:        filter.For(filter.Roles),
		sort:         "name",
		mapRow:       MapRole,
		id:           func(r RoleRow) string { return itoa(r.ID) },
		columns: []table.Column[RoleRow]{
			{Key: "id", Header: "ID", Value: func(r RoleRow) string { return itoa(r.ID) }},
			{Key: "name", Header: "Name", Value: func(r RoleRow) string { return r.Name }},
			{Key: "description", Header: "Description", Value: func(r RoleRow) string { return r.Description }},
			{Key: "active", Header: "Active", Value: func(r RoleRow) string { return activeLabel(r.Active) }},
		},
		form: formSpec[RoleDTO, roleInput]{
			fields: []Field{
				{Name: "name", Label: "Name", Type: "text", Required: true},
				{Name: "description", Label: "Description", Type: "textarea"},
				{Name: "is_active", Label: "Active", Type: "checkbox"},
			},
			toInput: func(r RoleDTO) roleInput {
				return roleInput{Name: r.Name, Description: r.Description, IsActive: r.IsActive}
			},
			toDTO: func(in roleInput, id int) RoleDTO {
				return RoleDTO{ID: id, Name: in.Name, Description: in.Description, IsActive: in.IsActive}
			},
			idOf: func(r RoleDTO) string { return itoa(r.ID) },
		}.build(),
	}.definition()
}

// AppDTO is a system/app record.
type AppDTO struct {
	ID          int    `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
	APIKey      string `json:"api_key,omitempty"`
	RoleID      *int   `json:"role_id"`
	Type        int    `json:"type"`
	URL         string `json:"url,omitempty"`
}

// AppRow is the table row for apps.
type AppRow struct {
	ID          int
	Name        string
	Role        string
	APIKey      string
	Description string
	Active      bool
}

// MapApp converts an AppDTO to its row.
func MapApp(a AppDTO) AppRow {
	return AppRow{
		ID:          a.ID,
		Name:        a.Name,
		Role:        optionalID(a.RoleID),
		APIKey:      a.APIKey,
		Description: a.Description,
		Active:      a.IsActive,
	}
}

// App types as stored by the platform.
var appTypes = []string{"0", "1", "2", "3"}

type appInput struct {
	Name        string `form:"name" validate:"required,max=64"`
	Description string `form:"description" validate:"max=255"`
	RoleID      int    `form:"role_id" validate:"gte=0"`
	Type        string `form:"type" validate:"required,oneof=0 1 2 3"`
	URL         string `form:"url" validate:"omitempty,url"`
	IsActive    bool   `form:"is_active"`
}

func apps() Definition {
	return binding[AppDTO, AppRow]{
		slug:         "apps",
		title:        "Apps",
		path:         "system/app",
		searchFields: filter.Fields(filter.Apps),
		query:        filter.For(filter.Apps),
		sort:         "name",
		mapRow:       MapApp,
		id:           func(r AppRow) string { return itoa(r.ID) },
		columns: []table.Column[AppRow]{
			{Key: "id", Header: "ID", Value: func(r AppRow) string { return itoa(r.ID) }},
			{Key: "name", Header: "Name", Value: func(r AppRow) string { return r.Name }},
			{Key: "role", Header: "Role", Value: func(r AppRow) string { return r.Role }},
			{Key: "api_key", Header: "API Key", Value: func(r AppRow) string { return r.APIKey }},
			{Key: "description", Header: "Description", Value: func(r AppRow) string { return r.Description }},
			{Key: "active", Header: "Active", Value: func(r AppRow) string { return activeLabel(r.Active) }},
		},
		form: formSpec[AppDTO, appInput]{
			fields: []Field{
				{Name: "name", Label: "Name", Type: "text", Required: true},
				{Name: "description", Label: "Description", Type: "textarea"},
				{Name: "role_id", Label: "Default Role ID", Type: "number", Help: "0 for none"},
				{Name: "type", Label: "Type", Type: "select", Required: true, Options: appTypes,
					Help: "0 none, 1 file storage, 2 remote URL, 3 web server path"},
				{Name: "url", Label: "Launch URL", Type: "text"},
				{Name: "is_active", Label: "Active", Type: "checkbox"},
			},
			toInput: func(a AppDTO) appInput {
				return appInput{
					Name:        a.Name,
					Description: a.Description,
					RoleID:      derefID(a.RoleID),
					Type:        itoa(a.Type),
					URL:         a.URL,
					IsActive:    a.IsActive,
				}
			},
			toDTO: func(in appInput, id int) AppDTO {
				a := AppDTO{
					ID:          id,
					Name:        in.Name,
					Description: in.Description,
					RoleID:      optionalRef(in.RoleID),
					URL:         in.URL,
					IsActive:    in.IsActive,
				}
				a.Type, _ = strconv.Atoi(in.Type)
				return a
			},
			idOf: func(a AppDTO) string { return itoa(a.ID) },
		}.build(),
	}.definition()
}
