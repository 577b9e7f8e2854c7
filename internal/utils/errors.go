package utils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrStorage      = errors.New("storage backend failure")
	// ErrTooLarge is a validation error reported with its own status.
	ErrTooLarge error = tooLargeError{}
)

type tooLargeError struct{}

func (tooLargeError) Error() string { return "file too large" }

func (tooLargeError) Is(target error) bool { return target == ErrValidation }

// StatusFor maps an error from the media service onto an HTTP status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return fiber.StatusOK
	case errors.Is(err, ErrTooLarge):
		return fiber.StatusRequestEntityTooLarge
	case errors.Is(err, ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, ErrStorage):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
