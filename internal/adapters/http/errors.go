package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/basobaas/plotline/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`            // Error code: validation_error, not_found, internal_error, etc.
	Message   string `json:"message"`         // Human-readable message
	Field     string `json:"field,omitempty"` // Offending field for validation errors
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errValidation returns a 400 naming the offending field.
func errValidation(c *fiber.Ctx, verr *domain.ValidationError) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(400).JSON(APIError{
		Status:    400,
		Code:      "validation_error",
		Message:   verr.Error(),
		Field:     verr.Field,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// errConflict returns a 409 error.
func errConflict(c *fiber.Ctx, code, msg string) error {
	return newError(c, 409, code, msg)
}

// errUnprocessable returns a 422 error.
func errUnprocessable(c *fiber.Ctx, code, msg string) error {
	return newError(c, 422, code, msg)
}

// mapDomainError translates domain sentinels into HTTP error responses.
func mapDomainError(c *fiber.Ctx, err error) error {
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return errNotFound(c, "session not found")
	case errors.Is(err, domain.ErrInsufficientVertices):
		return errUnprocessable(c, "insufficient_vertices", "at least 3 distinct points are required")
	case errors.Is(err, domain.ErrRingNotClosed):
		return errUnprocessable(c, "ring_not_closed", "boundary must be closed before this operation")
	case errors.Is(err, domain.ErrSubmissionInFlight):
		return errConflict(c, "submission_in_flight", "a submission for this session is already in progress")
	case errors.As(err, &verr):
		return errValidation(c, verr)
	default:
		return errInternal(c, err.Error())
	}
}
