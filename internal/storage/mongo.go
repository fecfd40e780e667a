// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package storage

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// # Mongo Adapter

// MongoDatabase implements [Database] over a driver database handle.
type MongoDatabase struct {
	database *mongo.Database
}

// NewMongoDatabase wraps a driver database handle.
func NewMongoDatabase(database *mongo.Database) *MongoDatabase {
	return &MongoDatabase{database: database}
}

// Collection returns the adapter for the named collection.
func (db *MongoDatabase) Collection(name string) Collection {
	return NewMongoCollection(db.database.Collection(name))
}

// MongoCollection implements [Collection] using the MongoDB driver.
//
// Driver-specific conditions are mapped at this boundary: duplicate-key write
// errors match [ErrDuplicateKey], mongo.ErrNoDocuments becomes [ErrNoDocuments]
// and driver timeouts match context.DeadlineExceeded. Everything else is
// wrapped and passed through.
type MongoCollection struct {
	collection *mongo.Collection
}

// NewMongoCollection wraps a driver collection handle.
func NewMongoCollection(collection *mongo.Collection) *MongoCollection {
	return &MongoCollection{collection: collection}
}

// Find implements [Collection].
func (repository *MongoCollection) Find(ctx context.Context, filter Document, opts FindOptions) ([]Document, error) {
	findOptions := options.Find()
	if opts.Limit > 0 {
		findOptions.SetLimit(opts.Limit)
	}

	cursor, err := repository.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, mapError("mongo_find_failed", err)
	}

	documents := make([]Document, 0)
	if err := cursor.All(ctx, &documents); err != nil {
		return nil, mapError("mongo_find_decode_failed", err)
	}

	return documents, nil
}

// InsertOne implements [Collection].
func (repository *MongoCollection) InsertOne(ctx context.Context, doc Document) error {
	if _, err := repository.collection.InsertOne(ctx, doc); err != nil {
		return mapError("mongo_insert_failed", err)
	}
	return nil
}

// UpdateOne implements [Collection].
func (repository *MongoCollection) UpdateOne(ctx context.Context, filter, update Document) (UpdateResult, error) {
	result, err := repository.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return UpdateResult{}, mapError("mongo_update_failed", err)
	}
	return toUpdateResult(result), nil
}

// UpsertOne implements [Collection].
func (repository *MongoCollection) UpsertOne(ctx context.Context, filter, update Document) (UpdateResult, error) {
	result, err := repository.collection.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return UpdateResult{}, mapError("mongo_upsert_failed", err)
	}
	return toUpdateResult(result), nil
}

// FindOneAndUpdate implements [Collection].
func (repository *MongoCollection) FindOneAndUpdate(ctx context.Context, filter, update Document) (Document, error) {
	findOptions := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc Document
	err := repository.collection.FindOneAndUpdate(ctx, filter, update, findOptions).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNoDocuments
		}
		return nil, mapError("mongo_find_one_and_update_failed", err)
	}

	return doc, nil
}

// FindOneAndDelete implements [Collection].
func (repository *MongoCollection) FindOneAndDelete(ctx context.Context, filter Document) (Document, error) {
	var doc Document
	err := repository.collection.FindOneAndDelete(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNoDocuments
		}
		return nil, mapError("mongo_find_one_and_delete_failed", err)
	}

	return doc, nil
}

// mapError wraps a driver error for action. Duplicate-key conditions also
// match [ErrDuplicateKey]; driver timeouts also match context.DeadlineExceeded.
func mapError(action string, err error) error {
	switch {
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w: %w", action, ErrDuplicateKey, err)
	case mongo.IsTimeout(err) && !errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w: %w", action, context.DeadlineExceeded, err)
	default:
		return fmt.Errorf("%s: %w", action, err)
	}
}

func toUpdateResult(result *mongo.UpdateResult) UpdateResult {
	if result == nil {
		return UpdateResult{}
	}
	return UpdateResult{
		MatchedCount:  result.MatchedCount,
		ModifiedCount: result.ModifiedCount,
		UpsertedID:    result.UpsertedID,
	}
}
