package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/calebnewtonusc/CivicQ-sub006/internal/middleware"
	"github.com/calebnewtonusc/CivicQ-sub006/internal/model"
)

// serviceError maps a service-layer sentinel error to the API error response.
// fallback is the message used for unclassified errors (never the raw error,
// which may carry SQL fragments).
func serviceError(c fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "Resource not found")
	case errors.Is(err, model.ErrInvalidInput):
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_INPUT", err.Error())
	case errors.Is(err, model.ErrInvalidTransition):
		var te *model.TransitionError
		if errors.As(err, &te) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": fiber.Map{
					"code":               "INVALID_TRANSITION",
					"message":            te.Error(),
					"currentStatus":      te.From,
					"allowedTransitions": te.Allowed,
				},
			})
		}
		return middleware.ErrorResponse(c, fiber.StatusConflict, "INVALID_TRANSITION", err.Error())
	case errors.Is(err, model.ErrInvalidState):
		return middleware.ErrorResponse(c, fiber.StatusConflict, "INVALID_STATE", err.Error())
	case errors.Is(err, model.ErrConflictRetry):
		return middleware.ErrorResponse(c, fiber.StatusConflict, "CONFLICT_RETRY", "Concurrent update in progress, retry the request")
	case errors.Is(err, model.ErrUnavailable):
		return middleware.ErrorResponse(c, fiber.StatusServiceUnavailable, "UNAVAILABLE", "A required backend is temporarily unavailable")
	default:
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", fallback)
	}
}
