package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError_AppError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, ErrBadRequest.WithDetail("state required"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "BAD_REQUEST", body["code"])
	assert.Equal(t, "state required", body["detail"])
	assert.Empty(t, ErrBadRequest.Detail, "WithDetail must not mutate the base error")
}

func TestWriteError_GenericIsInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("db exploded"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db exploded")
}

func TestWriteErrorPage_EscapesMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteErrorPage(rec, New(http.StatusBadRequest, "X", "<script>alert(1)</script>"), "/login")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Contains(t, rec.Body.String(), "&lt;script&gt;")
	assert.Contains(t, rec.Body.String(), `href="/login"`)
}
