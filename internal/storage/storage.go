// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package storage defines the document storage contract the schema and user
layers are written against.

# Architecture

Every operation is a single-document (or single-query) round trip. The package
never caches documents: callers re-query whenever they need fresh state, and
atomicity comes only from what the engine guarantees for one document
(find-and-modify, unique index on insert).

Two implementations ship with the package:
  - [MongoCollection]: the production adapter over the MongoDB driver.
  - [MemoryCollection]: an in-process collection used by tests.
*/
package storage

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Document is a single stored record in its native shape.
type Document = bson.M

var (
	// ErrDuplicateKey is returned when an insert or upsert violates a unique index.
	ErrDuplicateKey = errors.New("storage: duplicate key")

	// ErrNoDocuments is returned by single-document operations that matched nothing.
	ErrNoDocuments = errors.New("storage: no documents")
)

// FindOptions narrows a [Collection.Find] call.
type FindOptions struct {
	// Limit caps the number of returned documents. Zero means no limit.
	Limit int64
}

// UpdateResult reports the effect of an update or upsert.
type UpdateResult struct {
	MatchedCount  int64
	ModifiedCount int64
	UpsertedID    any
}

// Collection is the storage collaborator contract.
//
// Filters use the engine's query language ($exists, $gt, $or, ...) and updates
// use its update operators ($set, $unset).
type Collection interface {
	// Find returns every document matching filter, in collection order.
	Find(ctx context.Context, filter Document, opts FindOptions) ([]Document, error)

	// InsertOne stores doc. A unique-index violation yields [ErrDuplicateKey].
	InsertOne(ctx context.Context, doc Document) error

	// UpdateOne applies update to the first document matching filter.
	UpdateOne(ctx context.Context, filter, update Document) (UpdateResult, error)

	// UpsertOne is UpdateOne that inserts when nothing matches.
	UpsertOne(ctx context.Context, filter, update Document) (UpdateResult, error)

	// FindOneAndUpdate atomically updates one document and returns its new state.
	// It yields [ErrNoDocuments] when nothing matches.
	FindOneAndUpdate(ctx context.Context, filter, update Document) (Document, error)

	// FindOneAndDelete atomically removes one document and returns it.
	// It yields [ErrNoDocuments] when nothing matches.
	FindOneAndDelete(ctx context.Context, filter Document) (Document, error)
}

// Database hands out collections by name.
type Database interface {
	Collection(name string) Collection
}
