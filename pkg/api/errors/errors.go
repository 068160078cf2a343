package errors

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/leadflowhq/leadflow/pkg/domain"
	"github.com/leadflowhq/leadflow/pkg/models"
)

// ValidationError returns a 400 with the domain validation message
func ValidationError(c echo.Context, err error) error {
	msg := "Invalid request data. Please check your input and try again."
	if de, ok := err.(*domain.DomainError); ok && de.Message != "" {
		msg = de.Message
	}
	return c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "validation_error",
		Message: msg,
	})
}

// StorageError returns a generic storage error without exposing internal details
func StorageError(c echo.Context) error {
	return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:   "storage_error",
		Message: "A storage error occurred. Please try again later.",
	})
}

// NotFoundError returns a generic not found error
func NotFoundError(c echo.Context) error {
	return c.JSON(http.StatusNotFound, models.ErrorResponse{
		Error:   "not_found",
		Message: "The requested resource was not found.",
	})
}

// InternalError returns a generic internal server error
func InternalError(c echo.Context) error {
	return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred. Please try again later.",
	})
}

// FromDomain maps a domain error to the right HTTP response
func FromDomain(c echo.Context, err error) error {
	switch {
	case domain.IsValidation(err):
		return ValidationError(c, err)
	case domain.IsNotFound(err):
		return NotFoundError(c)
	case domain.IsStorage(err):
		return StorageError(c)
	default:
		return InternalError(c)
	}
}
