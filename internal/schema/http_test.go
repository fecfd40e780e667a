// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/parseadmin/internal/platform/ctxutil"
	"github.com/taibuivan/parseadmin/internal/platform/sec"
	"github.com/taibuivan/parseadmin/internal/schema"
	"github.com/taibuivan/parseadmin/internal/storage"
)

type listResponse struct {
	Data []schema.Schema `json:"data"`
	Meta struct {
		Page    int  `json:"page"`
		Total   int  `json:"total"`
		HasMore bool `json:"has_more"`
	} `json:"meta"`
}

func listAsViewer(t *testing.T, handler *schema.Handler, query string) (int, listResponse) {
	t.Helper()

	request := httptest.NewRequest(http.MethodGet, "/"+query, nil)
	request = request.WithContext(ctxutil.WithAuthUser(request.Context(), &sec.AuthClaims{
		UserID: "viewer1",
		Role:   string(sec.RoleViewer),
	}))
	recorder := httptest.NewRecorder()

	handler.Routes().ServeHTTP(recorder, request)

	var body listResponse
	if recorder.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	}
	return recorder.Code, body
}

func TestHandler_ListPages(t *testing.T) {
	collection, backing := newCollection(t)
	seed(t, backing,
		storage.Document{"_id": "A"},
		storage.Document{"_id": "B"},
		storage.Document{"_id": "C"},
	)
	handler := schema.NewHandler(collection)

	status, body := listAsViewer(t, handler, "?page=2&limit=2")
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "C", body.Data[0].ClassName)
	assert.Equal(t, 3, body.Meta.Total)
	assert.False(t, body.Meta.HasMore)
}

func TestHandler_ListHugePageIsEmpty(t *testing.T) {
	tests := []struct {
		name string
		docs []storage.Document
	}{
		{"empty_collection", nil},
		{"populated_collection", []storage.Document{{"_id": "A"}, {"_id": "B"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collection, backing := newCollection(t)
			seed(t, backing, tt.docs...)
			handler := schema.NewHandler(collection)

			status, body := listAsViewer(t, handler, "?page=92233720368547760&limit=100")
			require.Equal(t, http.StatusOK, status)
			assert.Empty(t, body.Data)
			assert.Equal(t, len(tt.docs), body.Meta.Total)
		})
	}
}
