// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/taibuivan/parseadmin/internal/storage"
)

func TestMemoryCollection_InsertAndFind(t *testing.T) {
	ctx := context.Background()
	collection := storage.NewMemoryCollection()

	require.NoError(t, collection.InsertOne(ctx, storage.Document{"_id": "a", "n": 1}))
	require.NoError(t, collection.InsertOne(ctx, storage.Document{"_id": "b", "n": 2}))
	require.NoError(t, collection.InsertOne(ctx, storage.Document{"_id": "c", "n": 3}))

	docs, err := collection.Find(ctx, storage.Document{}, storage.FindOptions{})
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "a", docs[0]["_id"])
	assert.Equal(t, "c", docs[2]["_id"])

	docs, err = collection.Find(ctx, storage.Document{"n": storage.Document{"$gte": 2}}, storage.FindOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "b", docs[0]["_id"])
}

func TestMemoryCollection_GeneratesID(t *testing.T) {
	collection := storage.NewMemoryCollection()
	require.NoError(t, collection.InsertOne(context.Background(), storage.Document{"x": 1}))

	docs, err := collection.Find(context.Background(), storage.Document{}, storage.FindOptions{})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.IsType(t, bson.ObjectID{}, docs[0]["_id"])
}

func TestMemoryCollection_DuplicateKey(t *testing.T) {
	ctx := context.Background()
	collection := storage.NewMemoryCollection("email")

	require.NoError(t, collection.InsertOne(ctx, storage.Document{"_id": "a", "email": "a@x.io"}))

	err := collection.InsertOne(ctx, storage.Document{"_id": "a"})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	err = collection.InsertOne(ctx, storage.Document{"_id": "b", "email": "a@x.io"})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Sparse: two documents without the key are fine.
	require.NoError(t, collection.InsertOne(ctx, storage.Document{"_id": "c"}))
	require.NoError(t, collection.InsertOne(ctx, storage.Document{"_id": "d"}))
	assert.Equal(t, 3, collection.Len())
}

func TestMatches_Operators(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	doc := storage.Document{
		"name":    "alice",
		"age":     int32(30),
		"tags":    bson.A{"x", "y"},
		"expires": bson.NewDateTimeFromTime(now),
		"nested":  storage.Document{"type": "GeoPoint"},
	}

	tests := []struct {
		name   string
		filter storage.Document
		want   bool
	}{
		{"equality", storage.Document{"name": "alice"}, true},
		{"nil_matches_missing", storage.Document{"email": nil}, true},
		{"nil_rejects_present", storage.Document{"name": nil}, false},
		{"exists_true", storage.Document{"name": storage.Document{"$exists": true}}, true},
		{"exists_false", storage.Document{"name": storage.Document{"$exists": false}}, false},
		{"dotted", storage.Document{"nested.type": "GeoPoint"}, true},
		{"ne", storage.Document{"name": storage.Document{"$ne": "bob"}}, true},
		{"number_cross_type", storage.Document{"age": 30}, true},
		{"gt_time", storage.Document{"expires": storage.Document{"$gt": now.Add(-time.Hour)}}, true},
		{"lt_time", storage.Document{"expires": storage.Document{"$lt": now}}, false},
		{"in", storage.Document{"name": storage.Document{"$in": bson.A{"bob", "alice"}}}, true},
		{"array_contains", storage.Document{"tags": "y"}, true},
		{"or", storage.Document{"$or": bson.A{storage.Document{"name": "bob"}, storage.Document{"age": 30}}}, true},
		{"and", storage.Document{"$and": bson.A{storage.Document{"name": "alice"}, storage.Document{"age": 31}}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := storage.Matches(doc, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMemoryCollection_UpsertSeedsFromFilter(t *testing.T) {
	ctx := context.Background()
	collection := storage.NewMemoryCollection()

	result, err := collection.UpsertOne(ctx,
		storage.Document{"_id": "Post", "title": storage.Document{"$exists": false}},
		storage.Document{"$set": storage.Document{"title": "string"}},
	)
	require.NoError(t, err)
	assert.Equal(t, "Post", result.UpsertedID)

	docs, err := collection.Find(ctx, storage.Document{"_id": "Post"}, storage.FindOptions{})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, storage.Document{"_id": "Post", "title": "string"}, docs[0])

	// The guard now fails, so a second upsert collides on _id.
	_, err = collection.UpsertOne(ctx,
		storage.Document{"_id": "Post", "title": storage.Document{"$exists": false}},
		storage.Document{"$set": storage.Document{"title": "number"}},
	)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestMemoryCollection_FindOneAndUpdate(t *testing.T) {
	ctx := context.Background()
	collection := storage.NewMemoryCollection()
	require.NoError(t, collection.InsertOne(ctx, storage.Document{"_id": "a", "meta": storage.Document{"k": 1}, "tmp": true}))

	doc, err := collection.FindOneAndUpdate(ctx,
		storage.Document{"_id": "a"},
		storage.Document{
			"$set":   storage.Document{"meta.v": "x"},
			"$unset": storage.Document{"tmp": ""},
		},
	)
	require.NoError(t, err)
	assert.Equal(t, storage.Document{"_id": "a", "meta": storage.Document{"k": 1, "v": "x"}}, doc)

	_, err = collection.FindOneAndUpdate(ctx, storage.Document{"_id": "missing"}, storage.Document{"$set": storage.Document{"x": 1}})
	assert.ErrorIs(t, err, storage.ErrNoDocuments)
}

func TestMemoryCollection_FindOneAndDelete(t *testing.T) {
	ctx := context.Background()
	collection := storage.NewMemoryCollection()
	require.NoError(t, collection.InsertOne(ctx, storage.Document{"_id": "a"}))

	doc, err := collection.FindOneAndDelete(ctx, storage.Document{"_id": "a"})
	require.NoError(t, err)
	assert.Equal(t, "a", doc["_id"])
	assert.Equal(t, 0, collection.Len())

	_, err = collection.FindOneAndDelete(ctx, storage.Document{"_id": "a"})
	assert.ErrorIs(t, err, storage.ErrNoDocuments)
}

func TestMemoryCollection_FailNext(t *testing.T) {
	collection := storage.NewMemoryCollection()
	boom := errors.New("boom")
	collection.FailNext(boom)

	_, err := collection.Find(context.Background(), storage.Document{}, storage.FindOptions{})
	assert.ErrorIs(t, err, boom)

	_, err = collection.Find(context.Background(), storage.Document{}, storage.FindOptions{})
	assert.NoError(t, err)
}

func TestFindReturnsCopies(t *testing.T) {
	ctx := context.Background()
	collection := storage.NewMemoryCollection()
	require.NoError(t, collection.InsertOne(ctx, storage.Document{"_id": "a", "n": storage.Document{"v": 1}}))

	docs, err := collection.Find(ctx, storage.Document{}, storage.FindOptions{})
	require.NoError(t, err)
	docs[0]["n"].(storage.Document)["v"] = 2

	docs, err = collection.Find(ctx, storage.Document{}, storage.FindOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, docs[0]["n"].(storage.Document)["v"])
}
