package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/calebnewtonusc/CivicQ-sub006/internal/config"
	"github.com/calebnewtonusc/CivicQ-sub006/internal/middleware"
	"github.com/calebnewtonusc/CivicQ-sub006/internal/model"
	"github.com/calebnewtonusc/CivicQ-sub006/internal/service"
)

type VoteHandler struct {
	svc *service.VoteService
	cfg *config.Config
}

func NewVoteHandler(svc *service.VoteService, cfg *config.Config) *VoteHandler {
	return &VoteHandler{svc: svc, cfg: cfg}
}

// Cast handles POST /api/votes
func (h *VoteHandler) Cast(c fiber.Ctx) error {
	var req model.CastVoteRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	if req.QuestionID <= 0 {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", "questionId must be a positive integer")
	}

	userID, errMsg := middleware.ValidateUserID(req.UserID)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	req.UserID = userID

	if req.Value != model.VoteUp && req.Value != model.VoteDown {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", "value must be +1 or -1")
	}
	if req.DeviceRiskScore < 0 || req.DeviceRiskScore > 1 {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", "deviceRiskScore must be in [0, 1]")
	}

	result, err := h.svc.Cast(c.Context(), req, h.cfg.Vote)
	if err != nil {
		return serviceError(c, err, "Failed to cast vote")
	}

	Metrics.VotesTotal.WithLabelValues(string(result.Outcome)).Inc()

	return c.JSON(result)
}
