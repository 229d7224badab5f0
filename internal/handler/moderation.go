package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/calebnewtonusc/CivicQ-sub006/internal/middleware"
	"github.com/calebnewtonusc/CivicQ-sub006/internal/model"
	"github.com/calebnewtonusc/CivicQ-sub006/internal/service"
)

type ModerationHandler struct {
	svc *service.ModerationService
}

func NewModerationHandler(svc *service.ModerationService) *ModerationHandler {
	return &ModerationHandler{svc: svc}
}

// Moderate handles POST /api/questions/:id/moderate
func (h *ModerationHandler) Moderate(c fiber.Ctx) error {
	id, errMsg := middleware.ParseID(c.Params("id"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	var action model.ModerationAction
	if err := c.Bind().JSON(&action); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	actorID, errMsg := middleware.ValidateUserID(action.ActorID)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", "actorId: "+errMsg)
	}
	action.ActorID = actorID
	action.Reason = middleware.ValidateReason(action.Reason)

	result, err := h.svc.Moderate(c.Context(), id, action)
	if err != nil {
		return serviceError(c, err, "Failed to apply moderation action")
	}

	Metrics.ModerationActions.WithLabelValues(string(action.Kind)).Inc()

	return c.JSON(result)
}
