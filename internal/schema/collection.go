// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package schema maps the generic class schema model to and from the documents
kept in the _SCHEMA collection, and exposes the operations that read and
mutate those documents.

# Architecture

  - Codec: [DecodeFieldType], [EncodeFieldType], [DecodeSchema] and [EncodeSchema]
    are pure functions with no storage access.
  - Collection: [Collection] wraps a [storage.Collection] and re-reads storage on
    every call. Atomicity comes only from single-document operations.
  - Delivery: [Handler] exposes the collection to authenticated admins.

# Concurrency

[Collection.AddFieldIfNotExists] checks the current schema and then upserts with
a "field does not exist" guard. Two callers adding different fields to the same
class can both pass the check; the guard only stops one from overwriting the
other's field. A guard collision is reported as success: the first writer wins.
*/
package schema

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/taibuivan/parseadmin/internal/platform/apperr"
	"github.com/taibuivan/parseadmin/internal/platform/metrics"
	"github.com/taibuivan/parseadmin/internal/storage"
)

// ErrClassNotFound is returned when a class has no schema document (or, in a
// corrupted collection, more than one).
var ErrClassNotFound = apperr.NotFound("Class")

// # Schema Collection

// Collection reads and writes schema documents.
type Collection struct {
	collection storage.Collection
	logger     *slog.Logger
}

// NewCollection constructs a [Collection] over the schema storage collection.
func NewCollection(collection storage.Collection, logger *slog.Logger) *Collection {
	return &Collection{collection: collection, logger: logger}
}

/*
FetchAll decodes every schema document in collection order.

Parameters:
  - context: context.Context

Returns:
  - []Schema: every class
  - error: storage or decode failures
*/
func (repository *Collection) FetchAll(context context.Context) ([]Schema, error) {
	docs, err := repository.collection.Find(context, storage.Document{}, storage.FindOptions{})
	if err != nil {
		observe("fetch_all", err)
		return nil, fmt.Errorf("schema_fetch_all_failed: %w", err)
	}

	schemas := make([]Schema, 0, len(docs))
	for _, doc := range docs {
		decoded, err := repository.decode(doc)
		if err != nil {
			observe("fetch_all", err)
			return nil, err
		}
		schemas = append(schemas, decoded)
	}

	observe("fetch_all", nil)
	return schemas, nil
}

/*
FetchOne loads the schema for one class.

Parameters:
  - context: context.Context
  - className: string

Returns:
  - Schema: the decoded class
  - error: [ErrClassNotFound] unless exactly one document matches
*/
func (repository *Collection) FetchOne(context context.Context, className string) (Schema, error) {
	docs, err := repository.collection.Find(context, byName(className), storage.FindOptions{Limit: 2})
	if err != nil {
		return Schema{}, fmt.Errorf("schema_fetch_one_failed: %w", err)
	}
	if len(docs) != 1 {
		return Schema{}, ErrClassNotFound
	}
	return repository.decode(docs[0])
}

// FindAndDelete atomically removes a class schema and returns what was removed.
// A missing class yields (nil, nil). Dependents are not checked here.
func (repository *Collection) FindAndDelete(context context.Context, className string) (*Schema, error) {
	doc, err := repository.collection.FindOneAndDelete(context, byName(className))
	if errors.Is(err, storage.ErrNoDocuments) {
		observe("delete_class", nil)
		return nil, nil
	}
	if err != nil {
		observe("delete_class", err)
		return nil, fmt.Errorf("schema_find_and_delete_failed: %w", err)
	}

	removed, err := repository.decode(doc)
	if err != nil {
		return nil, err
	}

	observe("delete_class", nil)
	repository.logger.Info("schema_class_deleted", slog.String("class_name", className))
	return &removed, nil
}

/*
Insert stores a new schema document.

Parameters:
  - context: context.Context
  - doc: storage.Document (native form, keyed by _id)

Returns:
  - Schema: the decoded class
  - error: DuplicateClass when the class exists; other storage errors unchanged
*/
func (repository *Collection) Insert(context context.Context, doc storage.Document) (Schema, error) {
	decoded, err := repository.decode(doc)
	if err != nil {
		return Schema{}, err
	}

	if err := repository.collection.InsertOne(context, doc); err != nil {
		observe("insert", err)
		if errors.Is(err, storage.ErrDuplicateKey) {
			return Schema{}, apperr.DuplicateClass(decoded.ClassName)
		}
		return Schema{}, err
	}

	observe("insert", nil)
	repository.logger.Info("schema_class_created", slog.String("class_name", decoded.ClassName))
	return decoded, nil
}

// Upsert updates the class document matching className plus the extra query
// conditions, creating it when nothing matches.
func (repository *Collection) Upsert(context context.Context, className string, query, update storage.Document) error {
	filter := byName(className)
	for key, value := range query {
		filter[key] = value
	}

	if _, err := repository.collection.UpsertOne(context, filter, update); err != nil {
		return fmt.Errorf("schema_upsert_failed: %w", err)
	}
	return nil
}

/*
AddFieldIfNotExists adds a field to a class, creating the class if needed.

Description: An existing field with the same name is left untouched and the
call succeeds. A second GeoPoint on the same class is rejected because the
storage engine indexes only one per collection. The write is guarded by
{field: {$exists: false}} so a concurrently added field is never overwritten.

Parameters:
  - context: context.Context
  - className: string
  - fieldName: string
  - fieldType: FieldType

Returns:
  - error: IncorrectType, UnknownType, or storage failures
*/
func (repository *Collection) AddFieldIfNotExists(context context.Context, className, fieldName string, fieldType FieldType) error {
	if isReserved(fieldName) {
		return apperr.ValidationError(fmt.Sprintf("field name %s is reserved", fieldName))
	}

	existing, err := repository.FetchOne(context, className)
	switch {
	case err == nil:
		if _, exists := existing.Fields[fieldName]; exists {
			observe("add_field", errNoop)
			return nil
		}
		if fieldType.Type == KindGeoPoint && existing.HasGeoPoint() {
			err := apperr.IncorrectType("MongoDB only supports one GeoPoint field in a class.")
			observe("add_field", err)
			return err
		}
	case errors.Is(err, ErrClassNotFound):
		// The upsert below creates the class.
	default:
		observe("add_field", err)
		return err
	}

	native, err := EncodeFieldType(fieldType)
	if err != nil {
		observe("add_field", err)
		return err
	}

	err = repository.Upsert(context, className,
		storage.Document{fieldName: storage.Document{"$exists": false}},
		storage.Document{"$set": storage.Document{fieldName: native}},
	)
	if errors.Is(err, storage.ErrDuplicateKey) {
		repository.logger.Warn("schema_field_add_lost_race",
			slog.String("class_name", className),
			slog.String("field", fieldName),
		)
		observe("add_field", errNoop)
		return nil
	}
	if err != nil {
		observe("add_field", err)
		return err
	}

	observe("add_field", nil)
	repository.logger.Info("schema_field_added",
		slog.String("class_name", className),
		slog.String("field", fieldName),
		slog.String("type", native),
	)
	return nil
}

// UpdateClassPermissions replaces the stored class-level permissions.
func (repository *Collection) UpdateClassPermissions(context context.Context, className string, permissions ClassLevelPermissions) error {
	result, err := repository.collection.UpdateOne(context, byName(className), storage.Document{
		"$set": storage.Document{keyMetadata + "." + metadataPermissions: permissions.Native()},
	})
	if err != nil {
		observe("update_permissions", err)
		return fmt.Errorf("schema_update_permissions_failed: %w", err)
	}
	if result.MatchedCount == 0 {
		observe("update_permissions", ErrClassNotFound)
		return ErrClassNotFound
	}

	observe("update_permissions", nil)
	return nil
}

// DeleteField removes a field definition. Implicit fields cannot be removed.
func (repository *Collection) DeleteField(context context.Context, className, fieldName string) error {
	if _, implicit := ImplicitFields()[fieldName]; implicit || isReserved(fieldName) {
		return apperr.ValidationError(fmt.Sprintf("field %s cannot be deleted", fieldName))
	}

	result, err := repository.collection.UpdateOne(context, byName(className), storage.Document{
		"$unset": storage.Document{fieldName: ""},
	})
	if err != nil {
		observe("delete_field", err)
		return fmt.Errorf("schema_delete_field_failed: %w", err)
	}
	if result.MatchedCount == 0 {
		observe("delete_field", ErrClassNotFound)
		return ErrClassNotFound
	}

	observe("delete_field", nil)
	repository.logger.Info("schema_field_deleted",
		slog.String("class_name", className),
		slog.String("field", fieldName),
	)
	return nil
}

// # Helpers

var errNoop = errors.New("noop")

// decode runs [DecodeSchema] and logs the stored permission entries the
// decoded view leaves out.
func (repository *Collection) decode(doc storage.Document) (Schema, error) {
	decoded, err := DecodeSchema(doc)
	if err != nil {
		return Schema{}, err
	}
	for _, entry := range droppedPermissions(doc) {
		repository.logger.Debug("schema_permission_dropped",
			slog.String("class_name", decoded.ClassName),
			slog.String("entry", entry),
		)
	}
	return decoded, nil
}

func byName(className string) storage.Document {
	return storage.Document{keyClassName: className}
}

func observe(operation string, err error) {
	outcome := metrics.OutcomeOK
	switch {
	case errors.Is(err, errNoop):
		outcome = metrics.OutcomeNoop
	case err != nil:
		outcome = metrics.OutcomeError
	}
	metrics.SchemaOperations.WithLabelValues(operation, outcome).Inc()
}
