// ABOUTME: Database and integration services configured on the platform.
// ABOUTME: Lists and deletes services; their configuration is edited on the platform itself.

package resources

import (
	"github.com/2389/dfconsole/internal/filter"
	"github.com/2389/dfconsole/internal/table"
)

// ServiceDTO is a system/service record.
type ServiceDTO struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Label       string `json:"label"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
	Type        string `json:"type,omitempty"`
}

// ServiceRow is the table row for services.
type ServiceRow struct {
	ID          int
	Name        string
	Label       string
	Description string
	Active      bool
}

// MapService converts a ServiceDTO to its row.
func MapService(s ServiceDTO) ServiceRow {
	return ServiceRow{
		ID:          s.ID,
		Name:        s.Name,
		Label:       s.Label,
		Description: s.Description,
		Active:      s.IsActive,
	}
}

func services() Definition {
	return binding[ServiceDTO, ServiceRow]{
		slug:         "services",
		title:        "Services",
		path:         "system/service",
		searchFields: filter.Fields(filter.Services),
		query:        filter.For(filter.Services),
		sort:         "name",
		mapRow:       MapService,
		id:           func(r ServiceRow) string { return itoa(r.ID) },
		columns: []table.Column[ServiceRow]{
			{Key: "id", Header: "ID", Value: func(r ServiceRow) string { return itoa(r.ID) }},
			{Key: "name", Header: "Name", Value: func(r ServiceRow) string { return r.Name }},
			{Key: "label", Header: "Label", Value: func(r ServiceRow) string { return r.Label }},
			{Key: "description", Header: "Description", Value: func(r ServiceRow) string { return r.Description }},
			{Key: "active", Header: "Active", Value: func(r ServiceRow) string { return activeLabel(r.Active) }},
		},
	}.definition()
}
