// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package storage

import (
	"fmt"
	"strings"
)

// # Update Operators

// ApplyUpdate applies $set, $unset and $setOnInsert to doc in place.
// $setOnInsert is only honoured when inserting is true.
func ApplyUpdate(doc Document, update Document, inserting bool) error {
	for operator, body := range update {
		fields, ok := AsMap(body)
		if !ok {
			return fmt.Errorf("storage: %s expects a document", operator)
		}

		switch operator {
		case "$set":
			for path, value := range fields {
				if err := setPath(doc, path, Clone(value)); err != nil {
					return err
				}
			}
		case "$setOnInsert":
			if !inserting {
				continue
			}
			for path, value := range fields {
				if err := setPath(doc, path, Clone(value)); err != nil {
					return err
				}
			}
		case "$unset":
			for path := range fields {
				unsetPath(doc, path)
			}
		default:
			return fmt.Errorf("storage: unsupported update operator %s", operator)
		}
	}
	return nil
}

func setPath(doc Document, path string, value any) error {
	parts := strings.Split(path, ".")
	current := map[string]any(doc)

	for _, part := range parts[:len(parts)-1] {
		next, exists := current[part]
		if !exists || next == nil {
			created := Document{}
			current[part] = created
			current = created
			continue
		}
		m, ok := AsMap(next)
		if !ok {
			return fmt.Errorf("storage: cannot set %s: %s is not a document", path, part)
		}
		current = m
	}

	current[parts[len(parts)-1]] = value
	return nil
}

func unsetPath(doc Document, path string) {
	parts := strings.Split(path, ".")
	current := map[string]any(doc)

	for _, part := range parts[:len(parts)-1] {
		m, ok := AsMap(current[part])
		if !ok {
			return
		}
		current = m
	}

	delete(current, parts[len(parts)-1])
}

// seedFromFilter builds the initial document of an upsert from the equality
// clauses of filter.
func seedFromFilter(filter Document) (Document, error) {
	doc := Document{}
	for key, condition := range filter {
		if strings.HasPrefix(key, "$") {
			continue
		}
		if _, isOperator := isOperatorDocument(condition); isOperator {
			continue
		}
		if err := setPath(doc, key, Clone(condition)); err != nil {
			return nil, err
		}
	}
	return doc, nil
}
