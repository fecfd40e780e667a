// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rest

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/taibuivan/parseadmin/internal/platform/apperr"
	"github.com/taibuivan/parseadmin/internal/storage"
)

// # Key Translation

const (
	FieldObjectID  = "objectId"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
	FieldPassword  = "password"

	storageID             = "_id"
	storageCreatedAt      = "_created_at"
	storageUpdatedAt      = "_updated_at"
	storageHashedPassword = "_hashed_password"
)

func toStorageKey(key string) string {
	switch key {
	case FieldObjectID:
		return storageID
	case FieldCreatedAt:
		return storageCreatedAt
	case FieldUpdatedAt:
		return storageUpdatedAt
	default:
		return key
	}
}

// # Queries

// transformWhere rewrites a REST query into a storage filter.
func transformWhere(where Query) (storage.Document, error) {
	filter := storage.Document{}

	for key, value := range where {
		switch key {
		case "$or", "$and":
			clauses, ok := storage.AsSlice(value)
			if !ok {
				return nil, apperr.ValidationError(fmt.Sprintf("%s expects an array of queries", key))
			}
			transformed := make(bson.A, 0, len(clauses))
			for _, clause := range clauses {
				sub, ok := storage.AsMap(clause)
				if !ok {
					return nil, apperr.ValidationError(fmt.Sprintf("%s clause must be a query", key))
				}
				inner, err := transformWhere(sub)
				if err != nil {
					return nil, err
				}
				transformed = append(transformed, inner)
			}
			filter[key] = transformed
		default:
			converted, err := transformQueryValue(value)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", key, err)
			}
			filter[toStorageKey(key)] = converted
		}
	}

	return filter, nil
}

func transformQueryValue(value any) (any, error) {
	if isEncodedDate(value) {
		return DecodeDate(value)
	}

	m, ok := storage.AsMap(value)
	if !ok {
		return storage.Clone(value), nil
	}

	converted := storage.Document{}
	for operator, operand := range m {
		if !strings.HasPrefix(operator, "$") {
			return storage.Clone(value), nil
		}
		inner, err := transformQueryValue(operand)
		if err != nil {
			return nil, err
		}
		converted[operator] = inner
	}
	return converted, nil
}

// # Updates

// transformUpdate rewrites a REST update body into storage update operators.
// Every update also stamps _updated_at.
func transformUpdate(body Record, now time.Time, hash func(string) (string, error)) (storage.Document, error) {
	set := storage.Document{}
	unset := storage.Document{}

	for key, value := range body {
		switch key {
		case FieldObjectID, FieldCreatedAt, FieldUpdatedAt, storageID:
			return nil, apperr.ValidationError(fmt.Sprintf("%s cannot be modified", key))
		case FieldPassword:
			password, ok := value.(string)
			if !ok || password == "" {
				return nil, apperr.ValidationError("password must be a non-empty string")
			}
			hashed, err := hash(password)
			if err != nil {
				return nil, fmt.Errorf("rest_hash_password_failed: %w", err)
			}
			set[storageHashedPassword] = hashed
			continue
		}

		if isDeleteOp(value) {
			unset[key] = ""
			continue
		}

		converted, err := transformStoredValue(value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		set[key] = converted
	}

	set[storageUpdatedAt] = now.UTC()

	update := storage.Document{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update, nil
}

// transformStoredValue converts encoded dates (at any depth) into native dates.
func transformStoredValue(value any) (any, error) {
	if isEncodedDate(value) {
		return DecodeDate(value)
	}
	if m, ok := storage.AsMap(value); ok {
		converted := storage.Document{}
		for key, inner := range m {
			out, err := transformStoredValue(inner)
			if err != nil {
				return nil, err
			}
			converted[key] = out
		}
		return converted, nil
	}
	if s, ok := storage.AsSlice(value); ok {
		converted := make(bson.A, 0, len(s))
		for _, inner := range s {
			out, err := transformStoredValue(inner)
			if err != nil {
				return nil, err
			}
			converted = append(converted, out)
		}
		return converted, nil
	}
	return value, nil
}

// # Records

// toRecord converts a stored document into its REST form. Timestamps become
// ISO strings and every other native date becomes an encoded date.
func toRecord(doc storage.Document) Record {
	record := Record{}

	for key, value := range doc {
		switch key {
		case storageID:
			record[FieldObjectID] = idString(value)
		case storageCreatedAt, storageUpdatedAt:
			restKey := FieldCreatedAt
			if key == storageUpdatedAt {
				restKey = FieldUpdatedAt
			}
			if t, ok := storage.AsTime(value); ok {
				record[restKey] = FormatISO(t)
			} else {
				record[restKey] = value
			}
		default:
			record[key] = toRecordValue(value)
		}
	}

	return record
}

func toRecordValue(value any) any {
	if t, ok := storage.AsTime(value); ok {
		return EncodeDate(t)
	}
	if m, ok := storage.AsMap(value); ok {
		converted := map[string]any{}
		for key, inner := range m {
			converted[key] = toRecordValue(inner)
		}
		return converted
	}
	if s, ok := storage.AsSlice(value); ok {
		converted := make([]any, 0, len(s))
		for _, inner := range s {
			converted = append(converted, toRecordValue(inner))
		}
		return converted
	}
	return value
}

func idString(value any) any {
	if oid, ok := value.(bson.ObjectID); ok {
		return oid.Hex()
	}
	return value
}
