// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package admin

import (
	"context"
	"fmt"

	"github.com/taibuivan/parseadmin/internal/rest"
)

// # Mail Transport

// Mail is a plain-text message.
type Mail struct {
	Text    string
	To      string
	Subject string
}

// EmailOptions is handed to transports that render their own templates.
type EmailOptions struct {
	AppName string
	Link    string
	User    rest.Record
}

// MailAdapter is the minimal mail transport capability.
type MailAdapter interface {
	SendMail(context context.Context, mail Mail) error
}

// VerificationEmailSender is an optional capability. Transports implementing
// it render the verification email themselves.
type VerificationEmailSender interface {
	SendVerificationEmail(context context.Context, options EmailOptions) error
}

// PasswordResetEmailSender is an optional capability. Transports implementing
// it render the password reset email themselves.
type PasswordResetEmailSender interface {
	SendPasswordResetEmail(context context.Context, options EmailOptions) error
}

// # Default Templates

// DefaultVerificationEmail renders the fallback verification message.
func DefaultVerificationEmail(options EmailOptions) Mail {
	email := stringField(options.User, FieldEmail)
	return Mail{
		Text: fmt.Sprintf("Hi,\n\nYou are being asked to confirm the e-mail address %s with %s\n\nClick here to confirm it:\n%s",
			email, options.AppName, options.Link),
		To:      email,
		Subject: "Please verify your e-mail for " + options.AppName,
	}
}

// DefaultResetPasswordEmail renders the fallback password reset message. It is
// addressed to the email, or to the username when the account has none.
func DefaultResetPasswordEmail(options EmailOptions) Mail {
	username := stringField(options.User, FieldUsername)

	to := stringField(options.User, FieldEmail)
	if to == "" {
		to = username
	}

	reminder := ""
	if username != "" {
		reminder = fmt.Sprintf(" (your username is '%s')", username)
	}

	return Mail{
		Text: fmt.Sprintf("Hi,\n\nYou requested to reset your password for %s%s.\n\nClick here to reset it:\n%s",
			options.AppName, reminder, options.Link),
		To:      to,
		Subject: "Password Reset for " + options.AppName,
	}
}
