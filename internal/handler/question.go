package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/calebnewtonusc/CivicQ-sub006/internal/config"
	"github.com/calebnewtonusc/CivicQ-sub006/internal/middleware"
	"github.com/calebnewtonusc/CivicQ-sub006/internal/model"
	"github.com/calebnewtonusc/CivicQ-sub006/internal/service"
)

type QuestionHandler struct {
	svc *service.QuestionService
	cfg *config.Config
}

func NewQuestionHandler(svc *service.QuestionService, cfg *config.Config) *QuestionHandler {
	return &QuestionHandler{svc: svc, cfg: cfg}
}

// Submit handles POST /api/questions
func (h *QuestionHandler) Submit(c fiber.Ctx) error {
	var req model.SubmitQuestionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	if req.ContestID <= 0 {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", "contestId must be a positive integer")
	}

	authorID, errMsg := middleware.ValidateUserID(req.AuthorID)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	req.AuthorID = authorID

	text, errMsg := middleware.ValidateQuestionText(req.Text)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	req.Text = text

	resp, err := h.svc.Submit(c.Context(), req, h.cfg)
	if err != nil {
		return serviceError(c, err, "Failed to submit question")
	}

	Metrics.QuestionsTotal.Inc()
	if resp.ClusterDecision != "" {
		Metrics.ClusterDecisions.WithLabelValues(resp.ClusterDecision).Inc()
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

// Edit handles PUT /api/questions/:id
func (h *QuestionHandler) Edit(c fiber.Ctx) error {
	id, errMsg := middleware.ParseID(c.Params("id"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	var req model.EditQuestionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	authorID, errMsg := middleware.ValidateUserID(req.AuthorID)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	req.AuthorID = authorID

	text, errMsg := middleware.ValidateQuestionText(req.Text)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	req.Text = text

	resp, err := h.svc.Edit(c.Context(), id, req, h.cfg)
	if err != nil {
		return serviceError(c, err, "Failed to edit question")
	}

	if resp.ClusterDecision != "" {
		Metrics.ClusterDecisions.WithLabelValues(resp.ClusterDecision).Inc()
	}

	return c.JSON(resp)
}

// GetByID handles GET /api/questions/:id
func (h *QuestionHandler) GetByID(c fiber.Ctx) error {
	id, errMsg := middleware.ParseID(c.Params("id"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	body, err := h.svc.GetByID(c.Context(), id)
	if err != nil {
		return serviceError(c, err, "Failed to fetch question")
	}

	c.Set("Content-Type", "application/json")
	return c.Send(body)
}

// GetRanked handles GET /api/contests/:contestId/questions
func (h *QuestionHandler) GetRanked(c fiber.Ctx) error {
	contestID, errMsg := middleware.ParseID(c.Params("contestId"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	page, pageSize := middleware.ParsePagination(c)

	body, err := h.svc.GetRankedPage(c.Context(), contestID, page, pageSize)
	if err != nil {
		return serviceError(c, err, "Failed to fetch ranked questions")
	}

	c.Set("Content-Type", "application/json")
	return c.Send(body)
}
