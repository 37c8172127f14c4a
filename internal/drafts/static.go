// ABOUTME: Built-in email template drafts used when OpenAI is unavailable.

package drafts

import (
	"regexp"
	"strings"
)

// Purposes lists the built-in drafts, in display order.
var Purposes = []string{"user invite", "password reset", "user registration", "email confirmation"}

var static = map[string]Draft{
	"user invite": {
		Name:        "user_invite",
		Description: "Invites a new user to the instance.",
		Subject:     "You're invited to {instance_name}",
		BodyText:    "Hi {first_name},\n\nYou have been invited to {instance_name}. Follow this link to set your password and sign in:\n\n{link}\n",
		BodyHTML:    "<p>Hi {first_name},</p><p>You have been invited to {instance_name}. <a href=\"{link}\">Set your password</a> to sign in.</p>",
		FromName:    "{instance_name}",
	},
	"password reset": {
		Name:        "password_reset",
		Description: "Sends a password reset link.",
		Subject:     "Reset your password",
		BodyText:    "Hi {first_name},\n\nUse this link to reset your password:\n\n{link}\n\nIf you did not ask for a reset you can ignore this email.\n",
		BodyHTML:    "<p>Hi {first_name},</p><p><a href=\"{link}\">Reset your password</a>.</p><p>If you did not ask for a reset you can ignore this email.</p>",
		FromName:    "{instance_name}",
	},
	"user registration": {
		Name:        "user_registration",
		Description: "Confirms a self-registered user.",
		Subject:     "Confirm your registration",
		BodyText:    "Hi {first_name},\n\nThanks for registering. Your confirmation code is {confirm_code}.\n\nConfirm here: {link}\n",
		BodyHTML:    "<p>Hi {first_name},</p><p>Thanks for registering. Your confirmation code is <strong>{confirm_code}</strong>.</p><p><a href=\"{link}\">Confirm your account</a></p>",
		FromName:    "{instance_name}",
	},
	"email confirmation": {
		Name:        "email_confirmation",
		Description: "Confirms a change of email address.",
		Subject:     "Confirm your new email address",
		BodyText:    "Hi {first_name},\n\nPlease confirm {email} as your new address:\n\n{link}\n",
		BodyHTML:    "<p>Hi {first_name},</p><p>Please <a href=\"{link}\">confirm {email}</a> as your new address.</p>",
		FromName:    "{instance_name}",
	},
}

var nonWord = regexp.MustCompile(`[^a-z0-9]+`)

// staticDraft returns the built-in draft for purpose, or a generic draft
// named after it.
func staticDraft(purpose string) Draft {
	key := strings.ToLower(purpose)
	if d, ok := static[key]; ok {
		return d
	}
	name := strings.Trim(nonWord.ReplaceAllString(key, "_"), "_")
	if name == "" {
		name = "notification"
	}
	return Draft{
		Name:        name,
		Description: purpose,
		Subject:     "A message from {instance_name}",
		BodyText:    "Hi {first_name},\n\n{link}\n",
		BodyHTML:    "<p>Hi {first_name},</p><p><a href=\"{link}\">Open {instance_name}</a></p>",
		FromName:    "{instance_name}",
	}
}
