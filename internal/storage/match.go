// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package storage

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// # Query Matching
//
// A subset of the engine's query language, enough for the filters this module
// issues: equality (nil matches a missing field), $exists, $ne, $gt, $gte, $lt,
// $lte, $in, $or and $and, with dotted paths into embedded documents.

// Matches reports whether doc satisfies filter.
func Matches(doc map[string]any, filter map[string]any) (bool, error) {
	for key, condition := range filter {
		switch key {
		case "$or", "$and":
			clauses, ok := AsSlice(condition)
			if !ok {
				return false, fmt.Errorf("storage: %s expects an array", key)
			}
			matched, err := matchLogical(doc, key, clauses)
			if err != nil || !matched {
				return false, err
			}
		default:
			if strings.HasPrefix(key, "$") {
				return false, fmt.Errorf("storage: unsupported top-level operator %s", key)
			}
			value, present := Lookup(doc, key)
			matched, err := matchCondition(value, present, condition)
			if err != nil || !matched {
				return false, err
			}
		}
	}
	return true, nil
}

func matchLogical(doc map[string]any, operator string, clauses []any) (bool, error) {
	for _, clause := range clauses {
		sub, ok := AsMap(clause)
		if !ok {
			return false, fmt.Errorf("storage: %s clause must be a document", operator)
		}
		matched, err := Matches(doc, sub)
		if err != nil {
			return false, err
		}
		if operator == "$or" && matched {
			return true, nil
		}
		if operator == "$and" && !matched {
			return false, nil
		}
	}
	return operator == "$and", nil
}

// isOperatorDocument reports whether condition is {"$op": operand, ...}.
func isOperatorDocument(condition any) (map[string]any, bool) {
	m, ok := AsMap(condition)
	if !ok || len(m) == 0 {
		return nil, false
	}
	for key := range m {
		if !strings.HasPrefix(key, "$") {
			return nil, false
		}
	}
	return m, true
}

func matchCondition(value any, present bool, condition any) (bool, error) {
	operators, ok := isOperatorDocument(condition)
	if !ok {
		return matchEquality(value, present, condition), nil
	}

	for operator, operand := range operators {
		var matched bool
		switch operator {
		case "$exists":
			want, ok := operand.(bool)
			if !ok {
				return false, fmt.Errorf("storage: $exists expects a boolean")
			}
			matched = present == want
		case "$ne":
			matched = !matchEquality(value, present, operand)
		case "$gt", "$gte", "$lt", "$lte":
			matched = present && matchOrdering(value, operator, operand)
		case "$in":
			candidates, ok := AsSlice(operand)
			if !ok {
				return false, fmt.Errorf("storage: $in expects an array")
			}
			for _, candidate := range candidates {
				if matchEquality(value, present, candidate) {
					matched = true
					break
				}
			}
		default:
			return false, fmt.Errorf("storage: unsupported operator %s", operator)
		}
		if !matched {
			return false, nil
		}
	}
	return true, nil
}

func matchEquality(value any, present bool, condition any) bool {
	if condition == nil {
		return !present || value == nil
	}
	if !present {
		return false
	}
	if equalValues(value, condition) {
		return true
	}

	// An array field matches when any element equals a scalar condition.
	if elements, ok := AsSlice(value); ok {
		if _, conditionIsArray := AsSlice(condition); !conditionIsArray {
			for _, element := range elements {
				if equalValues(element, condition) {
					return true
				}
			}
		}
	}
	return false
}

func matchOrdering(value any, operator string, operand any) bool {
	cmp, ok := compareValues(value, operand)
	if !ok {
		return false
	}
	switch operator {
	case "$gt":
		return cmp > 0
	case "$gte":
		return cmp >= 0
	case "$lt":
		return cmp < 0
	default:
		return cmp <= 0
	}
}

func equalValues(a, b any) bool {
	if ta, ok := AsTime(a); ok {
		tb, ok := AsTime(b)
		return ok && ta.Equal(tb)
	}
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	return reflect.DeepEqual(Clone(a), Clone(b))
}

// compareValues orders two values of the same family (time, number, string).
func compareValues(a, b any) (int, bool) {
	if ta, ok := AsTime(a); ok {
		tb, ok := AsTime(b)
		if !ok {
			return 0, false
		}
		return ta.Compare(tb), true
	}
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		}
		return 0, true
	}
	if sa, ok := a.(string); ok {
		sb, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(sa, sb), true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case time.Duration:
		return float64(n), true
	}
	return 0, false
}
