// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package admin

import (
	"strings"

	"github.com/taibuivan/parseadmin/internal/rest"
)

// # Record Fields

// Keys of an admin user record. Keys starting with "_" are internal and never
// leave the service.
const (
	FieldObjectID                  = rest.FieldObjectID
	FieldUsername                  = "username"
	FieldEmail                     = "email"
	FieldPassword                  = rest.FieldPassword
	FieldRole                      = "role"
	FieldEmailVerified             = "emailVerified"
	FieldEmailVerifyToken          = "_email_verify_token"
	FieldEmailVerifyTokenExpiresAt = "_email_verify_token_expires_at"
	FieldPerishableToken           = "_perishable_token"
	FieldPerishableTokenExpiresAt  = "_perishable_token_expires_at"
	FieldHashedPassword            = "_hashed_password"
)

// stringField reads a string value from a record, returning "" when absent.
func stringField(user rest.Record, key string) string {
	value, _ := user[key].(string)
	return value
}

// PublicView returns a copy of user without internal fields.
func PublicView(user rest.Record) rest.Record {
	if user == nil {
		return nil
	}
	view := make(rest.Record, len(user))
	for key, value := range user {
		if strings.HasPrefix(key, "_") {
			continue
		}
		view[key] = value
	}
	return view
}
