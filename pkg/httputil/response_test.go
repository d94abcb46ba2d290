package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	t.Run("writes JSON with correct content type", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()

		WriteJSON(rec, http.StatusOK, map[string]string{"foo": "bar"})

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var result map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Equal(t, "bar", result["foo"])
	})

	t.Run("handles nil data", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()

		WriteJSON(rec, http.StatusAccepted, nil)

		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Empty(t, rec.Body.String())
	})
}

func TestWriteError(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusBadRequest, "invalid_input", "Name is required")

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var result ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "invalid_input", result.Error)
	assert.Equal(t, "Name is required", result.Message)
	assert.Nil(t, result.Details)
	assert.NotContains(t, rec.Body.String(), "details")
}

func TestWriteErrorWithDetails(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteErrorWithDetails(rec, http.StatusConflict, "scan_in_progress", "busy", map[string]string{"phase": "SpiderRunning"})

	var result map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, map[string]any{"phase": "SpiderRunning"}, result["details"])
}

func TestWriteNoContent(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteNoContent(rec)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "valid", body: `{"name":"x"}`},
		{name: "empty", body: "", wantErr: "empty"},
		{name: "unknown field", body: `{"nope":1}`, wantErr: "unknown field"},
		{name: "trailing value", body: `{"name":"x"} {"name":"y"}`, wantErr: "single JSON value"},
		{name: "malformed", body: `{"name":`, wantErr: "unexpected EOF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))

			var p payload
			err := DecodeJSON(rec, req, &p)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "x", p.Name)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestReadBody(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("curl https://x"))
	data, err := ReadBody(rec, req)
	require.NoError(t, err)
	assert.Equal(t, "curl https://x", string(data))
}

func TestStatusRecorder(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	sr := NewStatusRecorder(rec)
	assert.Equal(t, http.StatusOK, sr.Status)

	sr.WriteHeader(http.StatusTeapot)
	assert.Equal(t, http.StatusTeapot, sr.Status)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Same(t, rec, sr.Unwrap())

	_, _, err := sr.Hijack()
	assert.Error(t, err, "httptest.ResponseRecorder cannot hijack")

	sr.Flush()
	assert.True(t, rec.Flushed)
}
