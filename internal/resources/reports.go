// ABOUTME: Service reports, the platform's audit log of configuration changes.
// ABOUTME: Read-only here, newest first, and paywalled on open source licenses.

package resources

import (
	"github.com/2389/dfconsole/internal/filter"
	"github.com/2389/dfconsole/internal/table"
)

// ServiceReportDTO is a system/service_report record.
type ServiceReportDTO struct {
	ID          int    `json:"id"`
	ServiceID   *int   `json:"service_id"`
	ServiceName string `json:"service_name"`
	UserEmail   string `json:"user_email"`
	Action      string `json:"action"`
	RequestVerb string `json:"request_verb"`
	CreatedDate string `json:"created_date"`
}

// ServiceReportRow is the table row for service reports.
type ServiceReportRow struct {
	ID          int
	Time        string
	ServiceID   string
	ServiceName string
	UserEmail   string
	Action      string
	Request     string
}

// MapServiceReport converts a ServiceReportDTO to its row.
func MapServiceReport(r ServiceReportDTO) ServiceReportRow {
	row := ServiceReportRow{
		ID:          r.ID,
		Time:        r.CreatedDate,
		ServiceName: r.ServiceName,
		UserEmail:   r.UserEmail,
		Action:      r.Action,
		Request:     r.RequestVerb,
	}
	if r.ServiceID != nil {
		row.ServiceID = itoa(*r.ServiceID)
	}
	return row
}

func reports() Definition {
	return binding[ServiceReportDTO, ServiceReportRow]{
		slug:         "reports",
		title:        "Service Reports",
		path:         "system/service_report",
		paywalled:    true,
		searchFields: filter.Fields(filter.ServiceReports),
		query:        filter.For(filter.ServiceReports),
		sort:         "id desc",
		mapRow:       MapServiceReport,
		id:           func(r ServiceReportRow) string { return itoa(r.ID) },
		columns: []table.Column[ServiceReportRow]{
			{Key: "time", Header: "Time", Value: func(r ServiceReportRow) string { return r.Time }},
			{Key: "service_id", Header: "Service ID", Value: func(r ServiceReportRow) string { return r.ServiceID }},
			{Key: "service_name", Header: "Service", Value: func(r ServiceReportRow) string { return r.ServiceName }},
			{Key: "user_email", Header: "User", Value: func(r ServiceReportRow) string { return r.UserEmail }},
			{Key: "action", Header: "Action", Value: func(r ServiceReportRow) string { return r.Action }},
			{Key: "request", Header: "Request", Value: func(r ServiceReportRow) string { return r.Request }},
		},
		deletable: func(ServiceReportRow) bool { return false },
	}.definition()
}
