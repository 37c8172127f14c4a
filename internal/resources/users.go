// ABOUTME: Users and admins share one entity shape and the user search fields.
// ABOUTME: Root admins cannot be deleted from the console.

package resources

import (
	"github.com/2389/dfconsole/internal/filter"
	"github.com/2389/dfconsole/internal/table"
)

// UserDTO is a system/user or system/admin record.
type UserDTO struct {
	ID            int    `json:"id,omitempty"`
	Name          string `json:"name,omitempty"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone"`
	IsActive      bool   `json:"is_active"`
	Confirmed     bool   `json:"confirmed,omitempty"`
	IsRootAdmin   bool   `json:"is_root_admin,omitempty"`
	LastLoginDate string `json:"last_login_date,omitempty"`
	CreatedDate   string `json:"created_date,omitempty"`
}

// UserRow is the table row for users and admins.
type UserRow struct {
	ID           int
	Active       bool
	Email        string
	DisplayName  string
	FirstName    string
	LastName     string
	Registration string
	RootAdmin    bool
}

// MapUser converts a UserDTO to its row.
func MapUser(u UserDTO) UserRow {
	reg := "Pending"
	if u.Confirmed {
		reg = "Confirmed"
	}
	return UserRow{
		ID:           u.ID,
		Active:       u.IsActive,
		Email:        u.Email,
		DisplayName:  u.Name,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Registration: reg,
		RootAdmin:    u.IsRootAdmin,
	}
}

var userColumns = []table.Column[UserRow]{
	{Key: "id", Header: "ID", Value: func(r UserRow) string { return itoa(r.ID) }},
	{Key: "active", Header: "Active", Value: func(r UserRow) string { return activeLabel(r.Active) }},
	{Key: "email", Header: "Email", Value: func(r UserRow) string { return r.Email }},
	{Key: "display_name", Header: "Display Name", Value: func(r UserRow) string { return r.DisplayName }},
	{Key: "first_name", Header: "First Name", Value: func(r UserRow) string { return r.FirstName }},
	{Key: "last_name", Header: "Last Name", Value: func(r UserRow) string { return r.LastName }},
	{Key: "registration", Header: "Registration", Value: func(r UserRow) string { return r.Registration }},
}

type userInput struct {
	Email     string `form:"email" validate:"required,email,max=255"`
	Name      string `form:"name" validate:"required,max=255"`
	FirstName string `form:"first_name" validate:"max=255"`
	LastName  string `form:"last_name" validate:"max=255"`
	Phone     string `form:"phone" validate:"max=32"`
	IsActive  bool   `form:"is_active"`
}

var userForm = formSpec[UserDTO, userInput]{
	fields: []Field{
		{Name: "email", Label: "Email", Type: "email", Required: true},
		{Name: "name", Label: "Display Name", Type: "text", Required: true},
		{Name: "first_name", Label: "First Name", Type: "text"},
		{Name: "last_name", Label: "Last Name", Type: "text"},
		{Name: "phone", Label: "Phone", Type: "text"},
		{Name: "is_active", Label: "Active", Type: "checkbox"},
	},
	toInput: func(u UserDTO) userInput {
		return userInput{
			Email:     u.Email,
			Name:      u.Name,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Phone:     u.Phone,
			IsActive:  u.IsActive,
		}
	},
	toDTO: func(in userInput, id int) UserDTO {
		return UserDTO{
			ID:        id,
			Email:     in.Email,
			Name:      in.Name,
			FirstName: in.FirstName,
			LastName:  in.LastName,
			Phone:     in.Phone,
			IsActive:  in.IsActive,
		}
	},
	idOf: func(u UserDTO) string { return itoa(u.ID) },
}.build()

func userBinding(slug, title, path string) binding[UserDTO, UserRow] {
	return binding[UserDTO, UserRow]{
		slug:         slug,
		title:        title,
		path:         path,
		searchFields: filter.Fields(filter.User),
		query:        filter.For(filter.User),
		sort:         "name",
		mapRow:       MapUser,
		id:           func(r UserRow) string { return itoa(r.ID) },
		columns:      userColumns,
		deletable:    func(r UserRow) bool { return !r.RootAdmin },
		form:         userForm,
	}
}

func users() Definition {
	return userBinding("users", "Users", "system/user").definition()
}

func admins() Definition {
	return userBinding("admins", "Admins", "system/admin").definition()
}
