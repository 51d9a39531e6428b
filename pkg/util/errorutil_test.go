package util

import (
	"errors"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	t.Run("passes through domain errors", func(t *testing.T) {
		err := NewConflict("ticket closed", nil)
		domainErr := ToDomainError(err)
		assert.Equal(t, "CONFLICT", domainErr.Code)
		assert.Equal(t, http.StatusConflict, domainErr.HTTPStatus)
	})

	t.Run("maps pgx.ErrNoRows to not found", func(t *testing.T) {
		domainErr := ToDomainError(pgx.ErrNoRows)
		assert.Equal(t, "NOT_FOUND", domainErr.Code)
	})

	t.Run("wraps unknown errors as internal", func(t *testing.T) {
		domainErr := ToDomainError(errors.New("boom"))
		assert.Equal(t, "INTERNAL_ERROR", domainErr.Code)
		assert.Equal(t, http.StatusInternalServerError, domainErr.HTTPStatus)
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, ToDomainError(nil))
	})
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		err    error
		code   string
		status int
	}{
		{NewValidationError("bad", nil), "VALIDATION_FAILED", http.StatusBadRequest},
		{NewNotFound("ticket", nil), "NOT_FOUND", http.StatusNotFound},
		{NewUnauthorized("nope"), "UNAUTHORIZED", http.StatusUnauthorized},
		{NewForbidden("nope"), "FORBIDDEN", http.StatusForbidden},
		{NewConflict("clash", nil), "CONFLICT", http.StatusConflict},
		{NewPreconditionFailed("gate", nil), "PRECONDITION_FAILED", http.StatusPreconditionFailed},
		{NewInternalError(errors.New("boom")), "INTERNAL_ERROR", http.StatusInternalServerError},
	}
	for _, tc := range tests {
		var domainErr *DomainError
		require.True(t, errors.As(tc.err, &domainErr))
		assert.Equal(t, tc.code, domainErr.Code)
		assert.Equal(t, tc.status, domainErr.HTTPStatus)
	}
}

func TestNotFoundMessage(t *testing.T) {
	assert.EqualError(t, NewNotFound("ticket", nil), "ticket not found")
}

func TestDomainErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewInternalError(cause)
	assert.ErrorIs(t, err, cause)
}
