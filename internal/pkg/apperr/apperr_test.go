package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeNotFound, CodeOf(NotFound("order not found")))
	assert.Equal(t, CodeConflict, CodeOf(Conflict("duplicate code")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain error")))
}

func TestCodeOfWrappedError(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", Forbidden("not your order"))
	assert.Equal(t, CodeForbidden, CodeOf(wrapped))
}

func TestMessageOfHidesInternalCause(t *testing.T) {
	err := Internal("failed to save order", errors.New("pq: connection refused"))

	assert.Equal(t, "internal server error", MessageOf(err))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestMessageOfClientFacingError(t *testing.T) {
	err := BadRequest("insufficient stock for '%s'", "Black")
	assert.Equal(t, "insufficient stock for 'Black'", MessageOf(err))
}

func TestMessageOfUnknownError(t *testing.T) {
	assert.Equal(t, "internal server error", MessageOf(errors.New("boom")))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{BadRequest("bad"), http.StatusBadRequest},
		{Unauthorized("no token"), http.StatusUnauthorized},
		{Forbidden("nope"), http.StatusForbidden},
		{NotFound("missing"), http.StatusNotFound},
		{Conflict("taken"), http.StatusConflict},
		{Internal("oops", nil), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.status, HTTPStatus(tt.err))
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Internal("wrapper", cause)

	assert.ErrorIs(t, err, cause)
}
