// ABOUTME: Event scripts attached to API events. They are keyed by event name, not id.

package resources

import (
	"github.com/2389/dfconsole/internal/table"
)

// ScriptDTO is a system/event_script record.
type ScriptDTO struct {
	Name                   string `json:"name"`
	Type                   string `json:"type"`
	IsActive               bool   `json:"is_active"`
	Content                string `json:"content,omitempty"`
	StoragePath            string `json:"storage_path,omitempty"`
	AllowEventModification bool   `json:"allow_event_modification,omitempty"`
}

// ScriptRow is the table row for event scripts.
type ScriptRow struct {
	Name   string
	Type   string
	Active bool
}

// MapScript converts a ScriptDTO to its row.
func MapScript(s ScriptDTO) ScriptRow {
	return ScriptRow{Name: s.Name, Type: s.Type, Active: s.IsActive}
}

func scripts() Definition {
	return binding[ScriptDTO, ScriptRow]{
		slug:         "scripts",
		title:        "Event Scripts",
		path:         "system/event_script",
		searchFields: []string{"name"},
		query:        nameSearch,
		sort:         "name",
		mapRow:       MapScript,
		id:           func(r ScriptRow) string { return r.Name },
		columns: []table.Column[ScriptRow]{
			{Key: "name", Header: "Event", Value: func(r ScriptRow) string { return r.Name }},
			{Key: "type", Header: "Language", Value: func(r ScriptRow) string { return r.Type }},
			{Key: "active", Header: "Active", Value: func(r ScriptRow) string { return activeLabel(r.Active) }},
		},
	}.definition()
}
