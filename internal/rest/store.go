// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package rest is the thin query/update layer between REST-shaped records and
stored documents.

It translates keys (objectId, createdAt, updatedAt), encoded dates and the
Delete operator, and always runs with master privileges: callers are trusted
service code, never end users.
*/
package rest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/taibuivan/parseadmin/internal/platform/apperr"
	"github.com/taibuivan/parseadmin/internal/platform/sec"
	"github.com/taibuivan/parseadmin/internal/storage"
)

// Record is an object in its REST form.
type Record = map[string]any

// Query is a REST where clause.
type Query = map[string]any

// ObjectIDLength is the length of generated object ids.
const ObjectIDLength = 10

// FindOptions narrows a [Store.Find] call.
type FindOptions struct {
	Limit int64
}

// Option customises a [Store].
type Option func(*Store)

// WithClock replaces the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(store *Store) { store.now = now }
}

// WithPasswordHasher replaces the password hash function.
func WithPasswordHasher(hash func(string) (string, error)) Option {
	return func(store *Store) { store.hashPassword = hash }
}

// Store runs REST queries and updates against storage collections.
type Store struct {
	database     storage.Database
	now          func() time.Time
	hashPassword func(string) (string, error)
}

// NewStore constructs a [Store] over database.
func NewStore(database storage.Database, options ...Option) *Store {
	store := &Store{
		database:     database,
		now:          time.Now,
		hashPassword: sec.HashPassword,
	}
	for _, option := range options {
		option(store)
	}
	return store
}

/*
Find returns the records of className matching where.

Parameters:
  - context: context.Context
  - className: string
  - where: Query
  - opts: FindOptions

Returns:
  - []Record: matches in collection order
  - error: invalid query or storage failures
*/
func (store *Store) Find(context context.Context, className string, where Query, opts FindOptions) ([]Record, error) {
	filter, err := transformWhere(where)
	if err != nil {
		return nil, err
	}

	docs, err := store.database.Collection(className).Find(context, filter, storage.FindOptions{Limit: opts.Limit})
	if err != nil {
		return nil, fmt.Errorf("rest_find_failed: %w", err)
	}

	records := make([]Record, 0, len(docs))
	for _, doc := range docs {
		records = append(records, toRecord(doc))
	}
	return records, nil
}

/*
Update applies body to the first record of className matching where.

Description: Fields set to [DeleteOp] are removed, a password is stored only
as its bcrypt hash, and updatedAt is always refreshed.

Returns:
  - Record: the updated record, or nil when nothing matched
  - error: invalid update or storage failures
*/
func (store *Store) Update(context context.Context, className string, where Query, body Record) (Record, error) {
	filter, err := transformWhere(where)
	if err != nil {
		return nil, err
	}

	update, err := transformUpdate(body, store.now(), store.hashPassword)
	if err != nil {
		return nil, err
	}

	doc, err := store.database.Collection(className).FindOneAndUpdate(context, filter, update)
	if errors.Is(err, storage.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, apperr.Conflict("A record with the same unique value already exists")
		}
		return nil, fmt.Errorf("rest_update_failed: %w", err)
	}

	return toRecord(doc), nil
}

// Create stores a new record with a generated objectId and timestamps.
func (store *Store) Create(context context.Context, className string, body Record) (Record, error) {
	now := store.now().UTC()

	update, err := transformUpdate(body, now, store.hashPassword)
	if err != nil {
		return nil, err
	}

	objectID, err := sec.RandomString(ObjectIDLength)
	if err != nil {
		return nil, fmt.Errorf("rest_generate_id_failed: %w", err)
	}

	doc, _ := update["$set"].(storage.Document)
	doc[storageID] = objectID
	doc[storageCreatedAt] = now

	if err := store.database.Collection(className).InsertOne(context, doc); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, apperr.Conflict("A record with the same unique value already exists")
		}
		return nil, fmt.Errorf("rest_create_failed: %w", err)
	}

	return toRecord(doc), nil
}
