// ABOUTME: Scheduled tasks that call a service endpoint on a fixed frequency.
// ABOUTME: Paywalled on open source licenses.

package resources

import (
	"strconv"

	"github.com/2389/dfconsole/internal/table"
)

// TaskDTO is a system/scheduler record.
type TaskDTO struct {
	ID          int    `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
	ServiceID   int    `json:"service_id,omitempty"`
	Component   string `json:"component,omitempty"`
	Verb        string `json:"verb,omitempty"`
	Frequency   int    `json:"frequency,omitempty"`
	Payload     string `json:"payload,omitempty"`
	HasLog      bool   `json:"has_log,omitempty"`
}

// TaskRow is the table row for scheduled tasks.
type TaskRow struct {
	ID          int
	Name        string
	Description string
	Active      bool
	Service     int
	Component   string
	Method      string
	Frequency   int
}

// MapTask converts a TaskDTO to its row.
func MapTask(t TaskDTO) TaskRow {
	return TaskRow{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Active:      t.IsActive,
		Service:     t.ServiceID,
		Component:   t.Component,
		Method:      t.Verb,
		Frequency:   t.Frequency,
	}
}

type taskInput struct {
	Name        string `form:"name" validate:"required,max=64"`
	Description string `form:"description" validate:"max=255"`
	ServiceID   int    `form:"service_id" validate:"gt=0"`
	Component   string `form:"component" validate:"required"`
	Verb        string `form:"verb" validate:"required,oneof=GET POST PUT PATCH DELETE"`
	Frequency   int    `form:"frequency" validate:"gte=1"`
	Payload     string `form:"payload" validate:"omitempty,json"`
	IsActive    bool   `form:"is_active"`
}

func scheduler() Definition {
	return binding[TaskDTO, TaskRow]{
		slug:         "scheduler",
		title:        "Scheduler",
		path:         "system/scheduler",
		paywalled:    true,
		searchFields: []string{"name"},
		query:        nameSearch,
		sort:         "name",
		mapRow:       MapTask,
		id:           func(r TaskRow) string { return itoa(r.ID) },
		columns: []table.Column[TaskRow]{
			{Key: "id", Header: "ID", Value: func(r TaskRow) string { return itoa(r.ID) }},
			{Key: "name", Header: "Name", Value: func(r TaskRow) string { return r.Name }},
			{Key: "description", Header: "Description", Value: func(r TaskRow) string { return r.Description }},
			{Key: "active", Header: "Active", Value: func(r TaskRow) string { return activeLabel(r.Active) }},
			{Key: "service", Header: "Service ID", Value: func(r TaskRow) string { return itoa(r.Service) }},
			{Key: "component", Header: "Component", Value: func(r TaskRow) string { return r.Component }},
			{Key: "method", Header: "Method", Value: func(r TaskRow) string { return r.Method }},
			{Key: "frequency", Header: "Frequency (min)", Value: func(r TaskRow) string { return strconv.Itoa(r.Frequency) }},
		},
		form: formSpec[TaskDTO, taskInput]{
			fields: []Field{
				{Name: "name", Label: "Name", Type: "text", Required: true},
				{Name: "description", Label: "Description", Type: "textarea"},
				{Name: "service_id", Label: "Service ID", Type: "number", Required: true},
				{Name: "component", Label: "Component", Type: "text", Required: true, Help: "Endpoint path within the service, e.g. _table/orders"},
				{Name: "verb", Label: "Method", Type: "select", Required: true, Options: []string{"GET", "POST", "PUT", "PATCH", "DELETE"}},
				{Name: "frequency", Label: "Frequency (minutes)", Type: "number", Required: true},
				{Name: "payload", Label: "Payload (JSON)", Type: "textarea"},
				{Name: "is_active", Label: "Active", Type: "checkbox"},
			},
			toInput: func(t TaskDTO) taskInput {
				return taskInput{
					Name:        t.Name,
					Description: t.Description,
					ServiceID:   t.ServiceID,
					Component:   t.Component,
					Verb:        t.Verb,
					Frequency:   t.Frequency,
					Payload:     t.Payload,
					IsActive:    t.IsActive,
				}
			},
			toDTO: func(in taskInput, id int) TaskDTO {
				return TaskDTO{
					ID:          id,
					Name:        in.Name,
					Description: in.Description,
					ServiceID:   in.ServiceID,
					Component:   in.Component,
					Verb:        in.Verb,
					Frequency:   in.Frequency,
					Payload:     in.Payload,
					IsActive:    in.IsActive,
				}
			},
			idOf: func(t TaskDTO) string { return itoa(t.ID) },
		}.build(),
	}.definition()
}
