// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

import (
	"fmt"
	"strings"

	"github.com/taibuivan/parseadmin/internal/platform/apperr"
)

// # Field Types

// Kind is the generic type tag of a class field.
type Kind string

const (
	KindNumber   Kind = "Number"
	KindString   Kind = "String"
	KindBoolean  Kind = "Boolean"
	KindDate     Kind = "Date"
	KindObject   Kind = "Object"
	KindArray    Kind = "Array"
	KindGeoPoint Kind = "GeoPoint"
	KindFile     Kind = "File"
	KindBytes    Kind = "Bytes"
	KindPolygon  Kind = "Polygon"
	KindPointer  Kind = "Pointer"
	KindRelation Kind = "Relation"

	// KindACL is implicit on every class and never stored as a field.
	KindACL Kind = "ACL"
)

// nativeKeywords maps the lowercase storage keywords to their kind.
var nativeKeywords = map[string]Kind{
	"number":   KindNumber,
	"string":   KindString,
	"boolean":  KindBoolean,
	"date":     KindDate,
	"object":   KindObject,
	"map":      KindObject,
	"array":    KindArray,
	"geopoint": KindGeoPoint,
	"file":     KindFile,
	"bytes":    KindBytes,
	"polygon":  KindPolygon,
}

// FieldType describes one class field. TargetClass is set for Pointer and
// Relation only.
type FieldType struct {
	Type        Kind   `json:"type"`
	TargetClass string `json:"targetClass,omitempty"`
}

// Of returns a field type for a kind that carries no target class.
func Of(kind Kind) FieldType {
	return FieldType{Type: kind}
}

// Pointer returns a pointer field type targeting class.
func Pointer(class string) FieldType {
	return FieldType{Type: KindPointer, TargetClass: class}
}

// Relation returns a relation field type targeting class.
func Relation(class string) FieldType {
	return FieldType{Type: KindRelation, TargetClass: class}
}

// HasTarget reports whether the kind requires a target class.
func (k Kind) HasTarget() bool {
	return k == KindPointer || k == KindRelation
}

// Validate enforces the target-class invariant.
func (f FieldType) Validate() error {
	if f.Type.HasTarget() {
		if f.TargetClass == "" {
			return apperr.UnknownType(fmt.Sprintf("%s field requires a target class", f.Type))
		}
		return nil
	}
	if f.TargetClass != "" {
		return apperr.UnknownType(fmt.Sprintf("%s field cannot carry a target class", f.Type))
	}
	if f.Type == KindACL {
		return nil
	}
	for _, kind := range nativeKeywords {
		if kind == f.Type {
			return nil
		}
	}
	return apperr.UnknownType(fmt.Sprintf("unknown field type %q", f.Type))
}

// # Native Encoding

/*
DecodeFieldType parses the compact storage encoding of a field type.

Encodings:
  - "*ClassName": Pointer to ClassName
  - "relation<ClassName>": Relation to ClassName
  - lowercase keyword: number, string, boolean, date, object (or map), array,
    geopoint, file, bytes, polygon

Returns:
  - FieldType: the decoded type
  - error: UnknownType for anything else
*/
func DecodeFieldType(native string) (FieldType, error) {
	if target, ok := strings.CutPrefix(native, "*"); ok {
		if target == "" {
			return FieldType{}, apperr.UnknownType("pointer type is missing its target class")
		}
		return Pointer(target), nil
	}

	if rest, ok := strings.CutPrefix(native, "relation<"); ok {
		target, closed := strings.CutSuffix(rest, ">")
		if !closed || target == "" {
			return FieldType{}, apperr.UnknownType(fmt.Sprintf("malformed relation type %q", native))
		}
		return Relation(target), nil
	}

	if kind, ok := nativeKeywords[native]; ok {
		return Of(kind), nil
	}

	return FieldType{}, apperr.UnknownType(fmt.Sprintf("unknown field type %q", native))
}

// EncodeFieldType is the inverse of [DecodeFieldType]. Object encodes as
// "object"; ACL is implicit and has no stored form.
func EncodeFieldType(field FieldType) (string, error) {
	if err := field.Validate(); err != nil {
		return "", err
	}

	switch field.Type {
	case KindPointer:
		return "*" + field.TargetClass, nil
	case KindRelation:
		return "relation<" + field.TargetClass + ">", nil
	case KindACL:
		return "", apperr.UnknownType("ACL is implicit and cannot be stored")
	default:
		return strings.ToLower(string(field.Type)), nil
	}
}
