package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleError(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleError(rec, "Invalid epoch ID", http.StatusBadRequest)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	errJson := &DefaultErrorJson{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), errJson))
	assert.Equal(t, "Invalid epoch ID", errJson.Message)
	assert.Equal(t, http.StatusBadRequest, errJson.Code)
}

func TestWriteJson(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJson(rec, map[string]string{"message": "hello"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"message":"hello"}`, rec.Body.String())
}
