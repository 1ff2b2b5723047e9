package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	require.NoError(t, WriteJSON(rec, http.StatusAccepted, SuccessResponse("ok", map[string]int{"total": 2})))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "ok", resp.Message)
	assert.Equal(t, map[string]any{"total": float64(2)}, resp.Data)
}

func TestErrorResponse(t *testing.T) {
	resp := ErrorResponse("bad request", errors.New("csrf_token missing"))
	assert.False(t, resp.Success)
	assert.Equal(t, "csrf_token missing", resp.Error)
	assert.False(t, resp.Timestamp.IsZero())

	assert.Empty(t, ErrorResponse("gone", nil).Error)
}
