// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package admin

import (
	"context"

	"github.com/taibuivan/parseadmin/internal/rest"
)

// # Repository Interfaces

// Store is the query/update collaborator the controller mutates users through.
// It is satisfied by [rest.Store] and always runs with master privileges.
type Store interface {
	// Find returns the records of className matching where.
	Find(context context.Context, className string, where rest.Query, opts rest.FindOptions) ([]rest.Record, error)

	// Update applies body to the first match and returns the new record, or
	// nil when nothing matched.
	Update(context context.Context, className string, where rest.Query, body rest.Record) (rest.Record, error)

	// Create stores a new record.
	Create(context context.Context, className string, body rest.Record) (rest.Record, error)
}
