// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package uuid provides the correlation identifiers attached to requests.

Identifiers are Version 7 UUIDs, so request ids sort by arrival time in log
queries. When the v7 generator cannot read entropy, a random v4 value is
returned instead of failing the request.
*/
package uuid

import "github.com/google/uuid"

// # Generators

// New generates a new time-ordered identifier string.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// IsValid reports whether value parses as a UUID of any version.
func IsValid(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}
