package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sakif/chat-memo/internal/apperror"
	"github.com/stretchr/testify/assert"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "validation",
			err:        apperror.ValidationFailed("title", "title is required"),
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"validation_error","message":"title is required"}`,
		},
		{
			name:       "wrapped not found",
			err:        fmt.Errorf("loading: %w", apperror.NotFound("snippet", "abc")),
			wantStatus: http.StatusNotFound,
			wantBody:   `{"error":"not_found","message":"snippet not found with id abc"}`,
		},
		{
			name:       "forbidden",
			err:        apperror.Forbidden("default AI providers cannot be modified"),
			wantStatus: http.StatusForbidden,
			wantBody:   `{"error":"forbidden","message":"default AI providers cannot be modified"}`,
		},
		{
			name:       "unauthorized",
			err:        apperror.Unauthorized("invalid email or password"),
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"unauthorized","message":"invalid email or password"}`,
		},
		{
			name:       "internal details are hidden",
			err:        errors.New("sqlite: no such table: snippets"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"internal_error","message":"An internal error occurred"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"x"}`))
		rec := httptest.NewRecorder()
		var dst createSnippetRequest

		assert.True(t, decodeJSON(rec, req, &dst))
		assert.Equal(t, "x", dst.Title)
	})

	t.Run("empty body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
		rec := httptest.NewRecorder()
		var dst createSnippetRequest

		assert.False(t, decodeJSON(rec, req, &dst))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "request body is required")
	})

	t.Run("too large", func(t *testing.T) {
		big := `{"title":"` + strings.Repeat("a", maxBodyBytes) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
		rec := httptest.NewRecorder()
		var dst createSnippetRequest

		assert.False(t, decodeJSON(rec, req, &dst))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCurrentUser_MissingIsUnauthorized(t *testing.T) {
	rec := httptest.NewRecorder()
	_, ok := currentUser(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
