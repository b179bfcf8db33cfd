package response_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kiranshivaraju/hireflow/internal/api/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	response.JSON(w, map[string]string{"name": "test"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	data := body["data"].(map[string]any)
	assert.Equal(t, "test", data["name"])
}

func TestCreated(t *testing.T) {
	w := httptest.NewRecorder()
	response.Created(w, "/api/v1/jobs/abc", map[string]string{"id": "abc"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "/api/v1/jobs/abc", w.Header().Get("Location"))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	data := body["data"].(map[string]any)
	assert.Equal(t, "abc", data["id"])
}

func TestNoContent(t *testing.T) {
	w := httptest.NewRecorder()
	response.NoContent(w)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestCollection(t *testing.T) {
	w := httptest.NewRecorder()
	items := []map[string]string{{"id": "1"}, {"id": "2"}}
	meta := response.PaginationMeta{Page: 1, Limit: 20, Total: 50, HasNext: true}

	response.Collection(w, items, meta)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	data := body["data"].([]any)
	assert.Len(t, data, 2)

	m := body["meta"].(map[string]any)
	assert.Equal(t, float64(1), m["page"])
	assert.Equal(t, float64(20), m["limit"])
	assert.Equal(t, float64(50), m["total"])
	assert.Equal(t, true, m["has_next"])
}

func TestError(t *testing.T) {
	w := httptest.NewRecorder()
	response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid params", map[string][]string{
		"service": {"service is required"},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	errObj := body["error"].(map[string]any)
	assert.Equal(t, "VALIDATION_ERROR", errObj["code"])
	assert.Equal(t, "Invalid params", errObj["message"])
	assert.NotNil(t, errObj["details"])
}

func TestError_NoDetails(t *testing.T) {
	w := httptest.NewRecorder()
	response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Not found", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	errObj := body["error"].(map[string]any)
	assert.Equal(t, "RESOURCE_NOT_FOUND", errObj["code"])
	_, hasDetails := errObj["details"]
	assert.False(t, hasDetails)
}

func TestCreated_NoLocation(t *testing.T) {
	w := httptest.NewRecorder()
	response.Created(w, "", map[string]string{"id": "abc"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, w.Header().Get("Location"))
}

func TestFail_StatusFollowsCode(t *testing.T) {
	tests := []struct {
		code   response.Code
		status int
	}{
		{response.CodeInvalidRequest, http.StatusBadRequest},
		{response.CodeInvalidToken, http.StatusUnauthorized},
		{response.CodeForbidden, http.StatusForbidden},
		{response.CodeNotFound, http.StatusNotFound},
		{response.CodeKeyNotFound, http.StatusNotFound},
		{response.CodeInvalidTransition, http.StatusConflict},
		{response.CodeConflict, http.StatusConflict},
		{response.CodeDuplicateKey, http.StatusConflict},
		{response.CodeRateLimited, http.StatusTooManyRequests},
		{response.CodeInternal, http.StatusInternalServerError},
		{response.CodeNotImplemented, http.StatusNotImplemented},
		{response.CodeDegraded, http.StatusServiceUnavailable},
		{"SOMETHING_NEW", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			w := httptest.NewRecorder()
			response.Fail(w, tt.code, "msg")

			assert.Equal(t, tt.status, w.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, string(tt.code), body["error"].(map[string]any)["code"])
		})
	}
}

func TestInternal_HidesCause(t *testing.T) {
	w := httptest.NewRecorder()
	response.Internal(w)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "An unexpected error occurred")
}

func TestNewPaginationMeta(t *testing.T) {
	assert.True(t, response.NewPaginationMeta(1, 20, 21).HasNext)
	assert.False(t, response.NewPaginationMeta(2, 20, 40).HasNext)
	assert.False(t, response.NewPaginationMeta(1, 20, 0).HasNext)
}
