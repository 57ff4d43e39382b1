package service

import (
	"errors"

	"github.com/sakif/item-catalog/internal/apperror"
)

// isExpected reports whether err is a normal business outcome rather than
// a fault worth logging at error level.
func isExpected(err error) bool {
	return errors.Is(err, apperror.ErrValidation) ||
		errors.Is(err, apperror.ErrNotFound) ||
		errors.Is(err, apperror.ErrConflict) ||
		errors.Is(err, apperror.ErrUnauthorized)
}
