package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/calebnewtonusc/CivicQ-sub006/internal/middleware"
	"github.com/calebnewtonusc/CivicQ-sub006/internal/model"
	"github.com/calebnewtonusc/CivicQ-sub006/internal/service"
)

type AuditHandler struct {
	svc *service.AuditService
}

func NewAuditHandler(svc *service.AuditService) *AuditHandler {
	return &AuditHandler{svc: svc}
}

// List handles GET /api/audit
func (h *AuditHandler) List(c fiber.Ctx) error {
	page, pageSize := middleware.ParsePagination(c)

	filter := model.AuditLogFilter{
		EventType:  c.Query("eventType"),
		TargetType: c.Query("targetType"),
		Severity:   model.AuditSeverity(c.Query("severity")),
		Page:       page,
		PageSize:   pageSize,
	}
	if raw := c.Query("targetId"); raw != "" {
		targetID, errMsg := middleware.ParseID(raw)
		if errMsg != "" {
			return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", "targetId: "+errMsg)
		}
		filter.TargetID = targetID
	}

	result, err := h.svc.List(c.Context(), filter)
	if err != nil {
		return serviceError(c, err, "Failed to fetch audit log")
	}

	return c.JSON(result)
}

// Verify handles GET /api/audit/verify
func (h *AuditHandler) Verify(c fiber.Ctx) error {
	var fromID, toID int64
	if raw := c.Query("fromId"); raw != "" {
		id, errMsg := middleware.ParseID(raw)
		if errMsg != "" {
			return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", "fromId: "+errMsg)
		}
		fromID = id
	}
	if raw := c.Query("toId"); raw != "" {
		id, errMsg := middleware.ParseID(raw)
		if errMsg != "" {
			return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", "toId: "+errMsg)
		}
		toID = id
	}
	if toID != 0 && fromID > toID {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD",
			"fromId must not exceed toId (got fromId="+strconv.FormatInt(fromID, 10)+")")
	}

	result, err := h.svc.VerifyChain(c.Context(), fromID, toID)
	if err != nil {
		return serviceError(c, err, "Failed to verify audit chain")
	}

	status := fiber.StatusOK
	if !result.OK {
		// A broken chain is a server-side integrity failure, not a bad request.
		status = fiber.StatusInternalServerError
	}
	return c.Status(status).JSON(result)
}
