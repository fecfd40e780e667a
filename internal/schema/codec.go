// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

import (
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/taibuivan/parseadmin/internal/platform/apperr"
	"github.com/taibuivan/parseadmin/internal/storage"
)

// # Schema Model

// Schema is the generic view of a class.
type Schema struct {
	ClassName             string                `json:"className"`
	Fields                map[string]FieldType  `json:"fields"`
	ClassLevelPermissions ClassLevelPermissions `json:"classLevelPermissions"`
	Indexes               map[string]any        `json:"indexes"`
}

// HasGeoPoint reports whether any field of the class is a GeoPoint.
func (s Schema) HasGeoPoint() bool {
	for _, field := range s.Fields {
		if field.Type == KindGeoPoint {
			return true
		}
	}
	return false
}

// Keys of the stored schema document that are never data fields.
const (
	keyClassName         = "_id"
	keyMetadata          = "_metadata"
	keyClientPermissions = "_client_permissions"

	metadataPermissions = "class_permissions"
	metadataIndexes     = "indexes"
)

// ImplicitFields are present on every class in the generic view and never
// stored as field keys.
func ImplicitFields() map[string]FieldType {
	return map[string]FieldType{
		"ACL":       Of(KindACL),
		"createdAt": Of(KindDate),
		"updatedAt": Of(KindDate),
		"objectId":  Of(KindString),
	}
}

func isReserved(key string) bool {
	return key == keyClassName || key == keyMetadata || key == keyClientPermissions
}

// # Decoding

/*
DecodeSchema converts a stored schema document into its generic view.

Description: Reserved keys are skipped and every other key is decoded as a
field. The four implicit fields are always added. Permissions default to
[DefaultCLPs]; when _metadata.class_permissions exists it is laid over
[EmptyCLPs] instead, so action keys it omits stay closed.

Returns:
  - Schema: the generic view
  - error: UnknownType naming the first undecodable field
*/
func DecodeSchema(doc storage.Document) (Schema, error) {
	className, ok := doc[keyClassName].(string)
	if !ok || className == "" {
		return Schema{}, fmt.Errorf("schema_decode_failed: document has no class name")
	}

	fields := make(map[string]FieldType, len(doc)+4)
	for key, value := range doc {
		if isReserved(key) {
			continue
		}

		native, isString := value.(string)
		if !isString {
			return Schema{}, apperr.UnknownType(fmt.Sprintf("field %s of class %s has a non-string type", key, className))
		}

		field, err := DecodeFieldType(native)
		if err != nil {
			return Schema{}, apperr.UnknownType(fmt.Sprintf("field %s of class %s has unknown type %q", key, className, native))
		}
		fields[key] = field
	}

	for name, field := range ImplicitFields() {
		fields[name] = field
	}

	result := Schema{
		ClassName:             className,
		Fields:                fields,
		ClassLevelPermissions: DefaultCLPs(),
		Indexes:               map[string]any{},
	}

	metadata, _ := storage.AsMap(doc[keyMetadata])
	if explicit, ok := storage.AsMap(metadata[metadataPermissions]); ok {
		result.ClassLevelPermissions = overlayCLPs(explicit)
	}
	if indexes, ok := storage.AsMap(metadata[metadataIndexes]); ok {
		for name, definition := range indexes {
			result.Indexes[name] = storage.Clone(definition)
		}
	}

	return result, nil
}

// # Encoding

// EncodeSchema converts a generic schema into its stored document. Implicit
// fields are dropped. Permissions are written only when set, so a class
// created without them decodes to [DefaultCLPs].
func EncodeSchema(s Schema) (storage.Document, error) {
	if s.ClassName == "" {
		return nil, apperr.ValidationError("className is required")
	}

	doc := storage.Document{keyClassName: s.ClassName}
	implicit := ImplicitFields()

	geoPoints := 0
	for name, field := range s.Fields {
		if _, skip := implicit[name]; skip {
			continue
		}
		if isReserved(name) {
			return nil, apperr.ValidationError(fmt.Sprintf("field name %s is reserved", name))
		}
		if field.Type == KindGeoPoint {
			geoPoints++
		}

		native, err := EncodeFieldType(field)
		if err != nil {
			return nil, err
		}
		doc[name] = native
	}

	if geoPoints > 1 {
		return nil, apperr.IncorrectType("currently, only one GeoPoint field may exist in an object")
	}

	metadata := bson.M{}
	if !s.ClassLevelPermissions.isZero() {
		metadata[metadataPermissions] = s.ClassLevelPermissions.Native()
	}
	if len(s.Indexes) > 0 {
		indexes := bson.M{}
		for name, definition := range s.Indexes {
			indexes[name] = storage.Clone(definition)
		}
		metadata[metadataIndexes] = indexes
	}
	if len(metadata) > 0 {
		doc[keyMetadata] = metadata
	}

	return doc, nil
}

func (c ClassLevelPermissions) isZero() bool {
	return c.Find == nil && c.Get == nil && c.Create == nil && c.Update == nil &&
		c.Delete == nil && c.AddField == nil && c.ProtectedFields == nil
}
