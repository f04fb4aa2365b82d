package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/blogsite/internal/apperror"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestWriteError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		errorType string
		message   string
		field     string
	}{
		{"validation", apperror.ValidationFailed("title", "title is required"),
			http.StatusBadRequest, "validation_error", "title is required", "title"},
		{"conflict is a 400", apperror.Conflict("user", "alice"),
			http.StatusBadRequest, "conflict", "a user with that name already exists: alice", ""},
		{"unauthorized", apperror.Unauthorized("nope"),
			http.StatusUnauthorized, "unauthorized", "nope", ""},
		{"forbidden", apperror.Forbidden("not yours"),
			http.StatusForbidden, "forbidden", "not yours", ""},
		{"not found", apperror.NotFound("post", "p1"),
			http.StatusNotFound, "not_found", "post not found with id p1", ""},
		{"upstream hides cause", apperror.Upstream("failed to upload image", errors.New("dial tcp 10.0.0.1")),
			http.StatusInternalServerError, "upstream_error", "failed to upload image", ""},
		{"wrapped app error", fmt.Errorf("creating post: %w", apperror.NotFound("user", "u1")),
			http.StatusNotFound, "not_found", "user not found with id u1", ""},
		{"plain error hides details", errors.New("SELECT * FROM secrets"),
			http.StatusInternalServerError, "internal_error", "An internal error occurred", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, discard, tt.err)

			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var body ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			assert.Equal(t, tt.errorType, body.Error)
			assert.Equal(t, tt.message, body.Message)
			assert.Equal(t, tt.field, body.Field)
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type target struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name    string
		body    string
		limit   int64
		wantErr bool
	}{
		{"valid", `{"name":"x"}`, 0, false},
		{"empty body", ``, 0, true},
		{"malformed", `{"name":`, 0, true},
		{"unknown field", `{"name":"x","extra":1}`, 0, true},
		{"two objects", `{"name":"x"}{"name":"y"}`, 0, true},
		{"over limit", `{"name":"` + strings.Repeat("x", 100) + `"}`, 32, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst target
			err := decodeJSON(httptest.NewRecorder(), req, &dst, tt.limit)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperror.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "x", dst.Name)
		})
	}
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestHealthHandler(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHealthHandler(fakePinger{}, discard).HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	NewHealthHandler(fakePinger{err: errors.New("db gone")}, discard).HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
