// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package storage

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// # Shape Normalisation
//
// The driver may hand back embedded documents as bson.M or bson.D, arrays as
// bson.A and dates as bson.DateTime depending on decoder settings. Callers go
// through these helpers instead of asserting concrete types.

// AsMap returns v as a map when it is any kind of embedded document.
func AsMap(v any) (map[string]any, bool) {
	switch typed := v.(type) {
	case bson.M:
		return typed, typed != nil
	case map[string]any:
		return typed, typed != nil
	case bson.D:
		result := make(map[string]any, len(typed))
		for _, element := range typed {
			result[element.Key] = element.Value
		}
		return result, true
	default:
		return nil, false
	}
}

// AsSlice returns v as a slice when it is any kind of array.
func AsSlice(v any) ([]any, bool) {
	switch typed := v.(type) {
	case bson.A:
		return typed, true
	case []any:
		return typed, true
	case []string:
		result := make([]any, len(typed))
		for i, s := range typed {
			result[i] = s
		}
		return result, true
	case []map[string]any:
		result := make([]any, len(typed))
		for i, m := range typed {
			result[i] = m
		}
		return result, true
	default:
		return nil, false
	}
}

// AsTime returns v as a time when it is a native date value.
func AsTime(v any) (time.Time, bool) {
	switch typed := v.(type) {
	case time.Time:
		return typed, true
	case bson.DateTime:
		return typed.Time(), true
	default:
		return time.Time{}, false
	}
}

// Clone deep-copies v. Embedded documents come back as [Document] and arrays
// as bson.A so the result never aliases the input.
func Clone(v any) any {
	if m, ok := AsMap(v); ok {
		result := make(Document, len(m))
		for key, value := range m {
			result[key] = Clone(value)
		}
		return result
	}
	if s, ok := AsSlice(v); ok {
		result := make(bson.A, len(s))
		for i, value := range s {
			result[i] = Clone(value)
		}
		return result
	}
	if t, ok := v.(bson.DateTime); ok {
		return t.Time().UTC()
	}
	return v
}

// CloneDocument deep-copies a document.
func CloneDocument(doc Document) Document {
	if doc == nil {
		return nil
	}
	return Clone(doc).(Document)
}

// Lookup resolves a dotted path inside doc.
func Lookup(doc map[string]any, path string) (any, bool) {
	current := any(doc)
	for _, part := range strings.Split(path, ".") {
		m, ok := AsMap(current)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
