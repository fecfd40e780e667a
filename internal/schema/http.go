// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/parseadmin/internal/platform/apperr"
	"github.com/taibuivan/parseadmin/internal/platform/middleware"
	requestutil "github.com/taibuivan/parseadmin/internal/platform/request"
	"github.com/taibuivan/parseadmin/internal/platform/respond"
	"github.com/taibuivan/parseadmin/internal/platform/sec"
	"github.com/taibuivan/parseadmin/internal/platform/validate"
	"github.com/taibuivan/parseadmin/pkg/pagination"
)

// Handler exposes the schema collection to authenticated admins.
type Handler struct {
	collection *Collection
}

// NewHandler constructs a new [Handler].
func NewHandler(collection *Collection) *Handler {
	return &Handler{collection: collection}
}

// Routes returns the schema router.
//
// # Endpoints
//   - GET    /                                : List classes (viewer)
//   - GET    /{className}                     : Fetch one class (viewer)
//   - POST   /                                : Create a class (admin)
//   - PUT    /{className}/fields/{fieldName}  : Add a field if absent (admin)
//   - DELETE /{className}/fields/{fieldName}  : Remove a field (admin)
//   - PUT    /{className}/permissions         : Replace class-level permissions (admin)
//   - DELETE /{className}                     : Delete the class schema (admin)
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(sec.RoleViewer))
		r.Get("/", handler.list)
		r.Get("/{className}", handler.get)
	})

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(sec.RoleAdmin))
		r.Post("/", handler.create)
		r.Put("/{className}/fields/{fieldName}", handler.addField)
		r.Delete("/{className}/fields/{fieldName}", handler.deleteField)
		r.Put("/{className}/permissions", handler.updatePermissions)
		r.Delete("/{className}", handler.deleteClass)
	})

	return router
}

func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)

	schemas, err := handler.collection.FetchAll(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	page, meta := pagination.Slice(schemas, params)
	respond.Paginated(writer, page, meta)
}

func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	found, err := handler.collection.FetchOne(request.Context(), requestutil.Param(request, "className"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, found)
}

/*
create stores a new class.

POST /api/v1/schemas

Request:
  - Body: Schema (className, fields, optional classLevelPermissions and indexes)

Response:
  - 201: Schema: the decoded class
  - 400: UNKNOWN_TYPE / INCORRECT_TYPE / VALIDATION_ERROR
  - 409: DUPLICATE_CLASS
*/
func (handler *Handler) create(writer http.ResponseWriter, request *http.Request) {
	var input Schema
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required("className", input.ClassName).
		MaxLen("className", input.ClassName, 128).
		ClassName("className", input.ClassName)
	for name := range input.Fields {
		if _, implicit := ImplicitFields()[name]; !implicit {
			validator.FieldName("fields."+name, name)
		}
	}
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	doc, err := EncodeSchema(input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	created, err := handler.collection.Insert(request.Context(), doc)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, created)
}

func (handler *Handler) addField(writer http.ResponseWriter, request *http.Request) {
	className := requestutil.Param(request, "className")
	fieldName := requestutil.Param(request, "fieldName")

	var field FieldType
	if err := requestutil.DecodeJSON(request, &field); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.FieldName("fieldName", fieldName)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.collection.AddFieldIfNotExists(request.Context(), className, fieldName, field); err != nil {
		respond.Error(writer, request, err)
		return
	}

	updated, err := handler.collection.FetchOne(request.Context(), className)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, updated)
}

func (handler *Handler) deleteField(writer http.ResponseWriter, request *http.Request) {
	err := handler.collection.DeleteField(request.Context(),
		requestutil.Param(request, "className"),
		requestutil.Param(request, "fieldName"),
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

func (handler *Handler) updatePermissions(writer http.ResponseWriter, request *http.Request) {
	className := requestutil.Param(request, "className")

	var permissions ClassLevelPermissions
	if err := requestutil.DecodeJSON(request, &permissions); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	// Keys omitted from the body are stored empty, never open.
	permissions = fillMissing(permissions)

	if err := handler.collection.UpdateClassPermissions(request.Context(), className, permissions); err != nil {
		respond.Error(writer, request, err)
		return
	}

	updated, err := handler.collection.FetchOne(request.Context(), className)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, updated)
}

func (handler *Handler) deleteClass(writer http.ResponseWriter, request *http.Request) {
	removed, err := handler.collection.FindAndDelete(request.Context(), requestutil.Param(request, "className"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	if removed == nil {
		respond.Error(writer, request, apperr.NotFound("Class"))
		return
	}
	respond.NoContent(writer)
}

func fillMissing(permissions ClassLevelPermissions) ClassLevelPermissions {
	for _, action := range permissions.actions() {
		if *action.ref == nil {
			*action.ref = map[string]bool{}
		}
	}
	if permissions.ProtectedFields == nil {
		permissions.ProtectedFields = map[string][]string{}
	}
	return permissions
}
