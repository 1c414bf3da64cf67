package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func marshalToMap(t *testing.T, v any) map[string]any {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func TestEnvelopeTransformer_Success(t *testing.T) {
	data := map[string]string{"id": "note_123", "title": "Groceries"}

	result, err := EnvelopeTransformer(nil, "200", data)
	require.NoError(t, err)

	out := marshalToMap(t, result)
	assert.Equal(t, float64(EnvelopeVersion), out["v"])
	assert.Equal(t, true, out["success"])
	assert.Equal(t, map[string]any{"id": "note_123", "title": "Groceries"}, out["data"])
	assert.NotContains(t, out, "error")
}

func TestEnvelopeTransformer_SuccessNilData(t *testing.T) {
	result, err := EnvelopeTransformer(nil, "204", nil)
	require.NoError(t, err)

	out := marshalToMap(t, result)
	assert.Equal(t, true, out["success"])
	assert.NotContains(t, out, "data")
}

func TestEnvelopeTransformer_APIError(t *testing.T) {
	apiErr := &APIError{
		status:  http.StatusForbidden,
		Code:    "FORBIDDEN",
		Message: "Not enough permissions",
	}

	result, err := EnvelopeTransformer(nil, "403", apiErr)
	require.NoError(t, err)

	out := marshalToMap(t, result)
	assert.Equal(t, float64(EnvelopeVersion), out["v"])
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "FORBIDDEN", out["code"])
	assert.Equal(t, "Not enough permissions", out["message"])
	assert.Equal(t, "Not enough permissions", out["error"])
	assert.NotContains(t, out, "details")
	assert.NotContains(t, out, "data")
}

func TestEnvelopeTransformer_APIErrorWithDetails(t *testing.T) {
	apiErr := &APIError{
		status:  http.StatusBadRequest,
		Code:    "VALIDATION",
		Message: "Validation failed",
		Details: map[string]string{"title": "is required"},
	}

	result, err := EnvelopeTransformer(nil, "400", apiErr)
	require.NoError(t, err)

	out := marshalToMap(t, result)
	assert.Equal(t, map[string]any{"title": "is required"}, out["details"])
}

func TestEnvelopeTransformer_PlainError(t *testing.T) {
	result, err := EnvelopeTransformer(nil, "500", errors.New("boom"))
	require.NoError(t, err)

	out := marshalToMap(t, result)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "boom", out["error"])
	assert.NotContains(t, out, "code")
}

func TestEnvelope_WrapsHTTPResponses(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)
	out := marshalToMap(t, json.RawMessage(resp.Body.Bytes()))
	assert.Equal(t, float64(EnvelopeVersion), out["v"])
	assert.Equal(t, true, out["success"])
	assert.Contains(t, out, "data")

	resp = ts.api.Get("/api/notes")
	assertError(t, resp, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestStatusToCode(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{http.StatusBadRequest, "VALIDATION"},
		{http.StatusUnprocessableEntity, "VALIDATION"},
		{http.StatusUnauthorized, "UNAUTHORIZED"},
		{http.StatusForbidden, "FORBIDDEN"},
		{http.StatusNotFound, "NOT_FOUND"},
		{http.StatusConflict, "CONFLICT"},
		{http.StatusInternalServerError, "INTERNAL"},
		{http.StatusTeapot, "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, statusToCode(tt.status))
		})
	}
}
