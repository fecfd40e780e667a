// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

import (
	"sort"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/taibuivan/parseadmin/internal/storage"
)

// # Class-Level Permissions

// Permission keys stored under _metadata.class_permissions.
const (
	PermFind            = "find"
	PermGet             = "get"
	PermCreate          = "create"
	PermUpdate          = "update"
	PermDelete          = "delete"
	PermAddField        = "addField"
	PermProtectedFields = "protectedFields"
)

// ClassLevelPermissions maps each action to the roles (or "*") allowed to
// perform it, and each role to the fields hidden from it.
type ClassLevelPermissions struct {
	Find            map[string]bool     `json:"find"`
	Get             map[string]bool     `json:"get"`
	Create          map[string]bool     `json:"create"`
	Update          map[string]bool     `json:"update"`
	Delete          map[string]bool     `json:"delete"`
	AddField        map[string]bool     `json:"addField"`
	ProtectedFields map[string][]string `json:"protectedFields"`
}

// EmptyCLPs returns a permission set with every key present and nothing granted.
func EmptyCLPs() ClassLevelPermissions {
	return ClassLevelPermissions{
		Find:            map[string]bool{},
		Get:             map[string]bool{},
		Create:          map[string]bool{},
		Update:          map[string]bool{},
		Delete:          map[string]bool{},
		AddField:        map[string]bool{},
		ProtectedFields: map[string][]string{},
	}
}

// DefaultCLPs returns the open permission set used when a class has no
// explicit permissions.
func DefaultCLPs() ClassLevelPermissions {
	return ClassLevelPermissions{
		Find:            map[string]bool{"*": true},
		Get:             map[string]bool{"*": true},
		Create:          map[string]bool{"*": true},
		Update:          map[string]bool{"*": true},
		Delete:          map[string]bool{"*": true},
		AddField:        map[string]bool{"*": true},
		ProtectedFields: map[string][]string{"*": {}},
	}
}

// actions pairs each action key with its map, in storage key order.
func (c *ClassLevelPermissions) actions() []struct {
	key string
	ref *map[string]bool
} {
	return []struct {
		key string
		ref *map[string]bool
	}{
		{PermFind, &c.Find},
		{PermGet, &c.Get},
		{PermCreate, &c.Create},
		{PermUpdate, &c.Update},
		{PermDelete, &c.Delete},
		{PermAddField, &c.AddField},
	}
}

// overlayCLPs lays explicit stored permissions over [EmptyCLPs]. Action keys
// absent from explicit stay empty. Unknown keys are ignored.
func overlayCLPs(explicit map[string]any) ClassLevelPermissions {
	result := EmptyCLPs()

	for _, action := range result.actions() {
		raw, ok := storage.AsMap(explicit[action.key])
		if !ok {
			continue
		}
		grants := make(map[string]bool, len(raw))
		for role, value := range raw {
			if allowed, isBool := value.(bool); isBool {
				grants[role] = allowed
			}
		}
		*action.ref = grants
	}

	if raw, ok := storage.AsMap(explicit[PermProtectedFields]); ok {
		protected := make(map[string][]string, len(raw))
		for role, value := range raw {
			fields, _ := storage.AsSlice(value)
			names := make([]string, 0, len(fields))
			for _, field := range fields {
				if name, isString := field.(string); isString {
					names = append(names, name)
				}
			}
			protected[role] = names
		}
		result.ProtectedFields = protected
	}

	return result
}

// droppedPermissions lists the stored permission entries of doc that the
// boolean permission model cannot hold: non-boolean grants as "action.role"
// and unknown top-level keys such as pointer-permission lists.
func droppedPermissions(doc storage.Document) []string {
	metadata, _ := storage.AsMap(doc[keyMetadata])
	explicit, ok := storage.AsMap(metadata[metadataPermissions])
	if !ok {
		return nil
	}

	known := map[string]bool{PermProtectedFields: true}
	template := EmptyCLPs()
	for _, action := range template.actions() {
		known[action.key] = true
	}

	var dropped []string
	for key, value := range explicit {
		if !known[key] {
			dropped = append(dropped, key)
			continue
		}
		if key == PermProtectedFields {
			continue
		}
		grants, isMap := storage.AsMap(value)
		if !isMap {
			dropped = append(dropped, key)
			continue
		}
		for role, grant := range grants {
			if _, isBool := grant.(bool); !isBool {
				dropped = append(dropped, key+"."+role)
			}
		}
	}

	sort.Strings(dropped)
	return dropped
}

// Native returns the stored form of the permission set.
func (c ClassLevelPermissions) Native() bson.M {
	native := bson.M{}

	for _, action := range c.actions() {
		grants := bson.M{}
		for role, allowed := range *action.ref {
			grants[role] = allowed
		}
		native[action.key] = grants
	}

	protected := bson.M{}
	for role, fields := range c.ProtectedFields {
		list := make(bson.A, 0, len(fields))
		for _, field := range fields {
			list = append(list, field)
		}
		protected[role] = list
	}
	native[PermProtectedFields] = protected

	return native
}
