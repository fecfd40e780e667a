// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package storage

import (
	"context"
	"reflect"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// # In-Memory Adapter

// MemoryCollection is an in-process [Collection] that keeps insertion order.
//
// It enforces a unique "_id" plus any sparse unique keys given at construction,
// which is enough to reproduce the duplicate-key paths of the real engine.
type MemoryCollection struct {
	mu         sync.Mutex
	documents  []Document
	uniqueKeys []string
	failure    error
}

// NewMemoryCollection creates an empty collection with the given sparse unique keys.
func NewMemoryCollection(uniqueKeys ...string) *MemoryCollection {
	return &MemoryCollection{uniqueKeys: uniqueKeys}
}

// FailNext makes the next operation return err instead of touching the data.
func (c *MemoryCollection) FailNext(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failure = err
}

// Len returns the number of stored documents.
func (c *MemoryCollection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.documents)
}

func (c *MemoryCollection) takeFailure() error {
	err := c.failure
	c.failure = nil
	return err
}

// Find implements [Collection].
func (c *MemoryCollection) Find(_ context.Context, filter Document, opts FindOptions) ([]Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.takeFailure(); err != nil {
		return nil, err
	}

	result := make([]Document, 0)
	for _, doc := range c.documents {
		matched, err := Matches(doc, filter)
		if err != nil {
			return nil, err
		}
		if !matched {
			continue
		}
		result = append(result, CloneDocument(doc))
		if opts.Limit > 0 && int64(len(result)) >= opts.Limit {
			break
		}
	}
	return result, nil
}

// InsertOne implements [Collection].
func (c *MemoryCollection) InsertOne(_ context.Context, doc Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.takeFailure(); err != nil {
		return err
	}

	return c.insert(CloneDocument(doc))
}

// UpdateOne implements [Collection].
func (c *MemoryCollection) UpdateOne(_ context.Context, filter, update Document) (UpdateResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.takeFailure(); err != nil {
		return UpdateResult{}, err
	}

	index, err := c.firstMatch(filter)
	if err != nil || index < 0 {
		return UpdateResult{}, err
	}

	modified, err := c.updateAt(index, update)
	if err != nil {
		return UpdateResult{}, err
	}
	return UpdateResult{MatchedCount: 1, ModifiedCount: modified}, nil
}

// UpsertOne implements [Collection].
func (c *MemoryCollection) UpsertOne(_ context.Context, filter, update Document) (UpdateResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.takeFailure(); err != nil {
		return UpdateResult{}, err
	}

	index, err := c.firstMatch(filter)
	if err != nil {
		return UpdateResult{}, err
	}
	if index >= 0 {
		modified, err := c.updateAt(index, update)
		if err != nil {
			return UpdateResult{}, err
		}
		return UpdateResult{MatchedCount: 1, ModifiedCount: modified}, nil
	}

	doc, err := seedFromFilter(filter)
	if err != nil {
		return UpdateResult{}, err
	}
	if err := ApplyUpdate(doc, update, true); err != nil {
		return UpdateResult{}, err
	}
	if err := c.insert(doc); err != nil {
		return UpdateResult{}, err
	}
	return UpdateResult{UpsertedID: doc["_id"]}, nil
}

// FindOneAndUpdate implements [Collection].
func (c *MemoryCollection) FindOneAndUpdate(_ context.Context, filter, update Document) (Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.takeFailure(); err != nil {
		return nil, err
	}

	index, err := c.firstMatch(filter)
	if err != nil {
		return nil, err
	}
	if index < 0 {
		return nil, ErrNoDocuments
	}

	if _, err := c.updateAt(index, update); err != nil {
		return nil, err
	}
	return CloneDocument(c.documents[index]), nil
}

// FindOneAndDelete implements [Collection].
func (c *MemoryCollection) FindOneAndDelete(_ context.Context, filter Document) (Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.takeFailure(); err != nil {
		return nil, err
	}

	index, err := c.firstMatch(filter)
	if err != nil {
		return nil, err
	}
	if index < 0 {
		return nil, ErrNoDocuments
	}

	removed := c.documents[index]
	c.documents = append(c.documents[:index], c.documents[index+1:]...)
	return removed, nil
}

func (c *MemoryCollection) firstMatch(filter Document) (int, error) {
	for i, doc := range c.documents {
		matched, err := Matches(doc, filter)
		if err != nil {
			return -1, err
		}
		if matched {
			return i, nil
		}
	}
	return -1, nil
}

// updateAt applies update to a copy of the document at index and swaps it in
// only when the result still satisfies the unique keys.
func (c *MemoryCollection) updateAt(index int, update Document) (int64, error) {
	current := c.documents[index]
	next := CloneDocument(current)
	if err := ApplyUpdate(next, update, false); err != nil {
		return 0, err
	}
	if err := c.checkUnique(next, index); err != nil {
		return 0, err
	}

	c.documents[index] = next
	if reflect.DeepEqual(current, next) {
		return 0, nil
	}
	return 1, nil
}

func (c *MemoryCollection) insert(doc Document) error {
	if _, ok := doc["_id"]; !ok {
		doc["_id"] = bson.NewObjectID()
	}
	if err := c.checkUnique(doc, -1); err != nil {
		return err
	}
	c.documents = append(c.documents, doc)
	return nil
}

func (c *MemoryCollection) checkUnique(doc Document, skip int) error {
	keys := append([]string{"_id"}, c.uniqueKeys...)
	for _, key := range keys {
		value, present := Lookup(doc, key)
		if !present || value == nil {
			continue
		}
		for i, other := range c.documents {
			if i == skip {
				continue
			}
			if otherValue, ok := Lookup(other, key); ok && equalValues(value, otherValue) {
				return ErrDuplicateKey
			}
		}
	}
	return nil
}

// MemoryDatabase hands out [MemoryCollection]s, creating them on first use.
type MemoryDatabase struct {
	mu          sync.Mutex
	collections map[string]*MemoryCollection
}

// NewMemoryDatabase creates an empty database.
func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{collections: make(map[string]*MemoryCollection)}
}

// Register installs a pre-configured collection under name.
func (db *MemoryDatabase) Register(name string, collection *MemoryCollection) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.collections[name] = collection
}

// Memory returns the concrete collection for name.
func (db *MemoryDatabase) Memory(name string) *MemoryCollection {
	db.mu.Lock()
	defer db.mu.Unlock()

	collection, ok := db.collections[name]
	if !ok {
		collection = NewMemoryCollection()
		db.collections[name] = collection
	}
	return collection
}

// Collection implements [Database].
func (db *MemoryDatabase) Collection(name string) Collection {
	return db.Memory(name)
}
