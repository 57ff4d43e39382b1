package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("category", "Soccer"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "Invalid wraps ErrValidation",
			err:       Invalid([]FieldError{{Field: "name", Message: "name is required"}}),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Conflict wraps ErrConflict",
			err:       Conflict("item", "Goggles"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "Unauthorized wraps ErrUnauthorized",
			err:       Unauthorized("login required"),
			target:    ErrUnauthorized,
			wantMatch: true,
		},
		{
			name:      "AuthFailure wraps ErrAuthFailure",
			err:       AuthFailure("token exchange failed", errors.New("boom")),
			target:    ErrAuthFailure,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("category", "Soccer"),
			target:    ErrValidation,
			wantMatch: false,
		},
		{
			name:      "wrapped with fmt.Errorf still matches",
			err:       fmt.Errorf("service: %w", NotFound("item", "Stick")),
			target:    ErrNotFound,
			wantMatch: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMatch, errors.Is(tt.err, tt.target))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("category", "Soccer"),
			wantMessage: "category not found with id Soccer",
		},
		{
			name:        "Invalid uses the field message",
			err:         Invalid([]FieldError{{Field: "name", Message: "name is required"}}),
			wantMessage: "name is required",
		},
		{
			name:        "Conflict message includes resource and id",
			err:         Conflict("item", "Goggles"),
			wantMessage: "item conflict with id Goggles",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMessage, tt.err.Error())
		})
	}
}

func TestAuthFailureKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := AuthFailure("Failed to fetch user info from Google.", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrAuthFailure)
	assert.Equal(t, "Failed to fetch user info from Google.", err.Error())
}

func TestInvalid(t *testing.T) {
	t.Run("nil for no fields", func(t *testing.T) {
		assert.Nil(t, Invalid(nil))
	})

	t.Run("collects every field", func(t *testing.T) {
		err := Invalid([]FieldError{
			{Field: "name", Message: "name is required"},
			{Field: "description", Message: "description is required"},
		})
		assert.ErrorIs(t, err, ErrValidation)
		assert.Equal(t, "name", err.Field)
		assert.Equal(t, "name is required; description is required", err.Error())
		assert.Len(t, FieldsOf(fmt.Errorf("wrapped: %w", err)), 2)
	})
}

func TestFieldsOfPlainError(t *testing.T) {
	assert.Nil(t, FieldsOf(errors.New("plain")))
}
