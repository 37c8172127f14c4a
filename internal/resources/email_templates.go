// ABOUTME: Email templates used by the platform for invites, password resets, and registration.

package resources

import (
	"github.com/2389/dfconsole/internal/filter"
	"github.com/2389/dfconsole/internal/table"
)

// EmailTemplateDTO is a system/email_template record.
type EmailTemplateDTO struct {
	ID           int    `json:"id,omitempty"`
	Name         string `json:"name,omitempty"`
	Description  string `json:"description"`
	Subject      string `json:"subject"`
	BodyText     string `json:"body_text"`
	BodyHTML     string `json:"body_html"`
	FromName     string `json:"from_name"`
	FromEmail    string `json:"from_email"`
	ReplyToName  string `json:"reply_to_name"`
	ReplyToEmail string `json:"reply_to_email"`
}

// EmailTemplateRow is the table row for email templates.
type EmailTemplateRow struct {
	ID          int
	Name        string
	Description string
}

// MapEmailTemplate converts an EmailTemplateDTO to its row.
func MapEmailTemplate(e EmailTemplateDTO) EmailTemplateRow {
	return EmailTemplateRow{ID: e.ID, Name: e.Name, Description: e.Description}
}

type emailTemplateInput struct {
	Name         string `form:"name" validate:"required,max=64"`
	Description  string `form:"description" validate:"max=255"`
	Subject      string `form:"subject" validate:"required,max=255"`
	BodyText     string `form:"body_text"`
	BodyHTML     string `form:"body_html"`
	FromName     string `form:"from_name" validate:"max=80"`
	FromEmail    string `form:"from_email" validate:"omitempty,email"`
	ReplyToName  string `form:"reply_to_name" validate:"max=80"`
	ReplyToEmail string `form:"reply_to_email" validate:"omitempty,email"`
}

func emailTemplates() Definition {
	return binding[EmailTemplateDTO, EmailTemplateRow]{
		slug:         "email-templates",
		title:        "Email Templates",
		path:         "system/email_template",
		searchFields: filter.Fields(filter.EmailTemplates),
		query:        filter.For(filter.EmailTemplates),
		sort:         "name",
		mapRow:       MapEmailTemplate,
		id:           func(r EmailTemplateRow) string { return itoa(r.ID) },
		columns: []table.Column[EmailTemplateRow]{
			{Key: "id", Header: "ID", Value: func(r EmailTemplateRow) string { return itoa(r.ID) }},
			{Key: "name", Header: "Name", Value: func(r EmailTemplateRow) string { return r.Name }},
			{Key: "description", Header: "Description", Value: func(r EmailTemplateRow) string { return r.Description }},
		},
		form: formSpec[EmailTemplateDTO, emailTemplateInput]{
			fields: []Field{
				{Name: "name", Label: "Name", Type: "text", Required: true},
				{Name: "description", Label: "Description", Type: "text"},
				{Name: "subject", Label: "Subject", Type: "text", Required: true},
				{Name: "from_name", Label: "From Name", Type: "text"},
				{Name: "from_email", Label: "From Email", Type: "email"},
				{Name: "reply_to_name", Label: "Reply-To Name", Type: "text"},
				{Name: "reply_to_email", Label: "Reply-To Email", Type: "email"},
				{Name: "body_text", Label: "Body (plain text)", Type: "textarea"},
				{Name: "body_html", Label: "Body (HTML)", Type: "textarea", Help: "Use {first_name}, {link} and other lookups"},
			},
			toInput: func(e EmailTemplateDTO) emailTemplateInput {
				return emailTemplateInput{
					Name:         e.Name,
					Description:  e.Description,
					Subject:      e.Subject,
					BodyText:     e.BodyText,
					BodyHTML:     e.BodyHTML,
					FromName:     e.FromName,
					FromEmail:    e.FromEmail,
					ReplyToName:  e.ReplyToName,
					ReplyToEmail: e.ReplyToEmail,
				}
			},
			toDTO: func(in emailTemplateInput, id int) EmailTemplateDTO {
				return EmailTemplateDTO{
					ID:           id,
					Name:         in.Name,
					Description:  in.Description,
					Subject:      in.Subject,
					BodyText:     in.BodyText,
					BodyHTML:     in.BodyHTML,
					FromName:     in.FromName,
					FromEmail:    in.FromEmail,
					ReplyToName:  in.ReplyToName,
					ReplyToEmail: in.ReplyToEmail,
				}
			},
			idOf: func(e EmailTemplateDTO) string { return itoa(e.ID) },
		}.build(),
	}.definition()
}
