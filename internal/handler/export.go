package handler

import (
	"bytes"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/calebnewtonusc/CivicQ-sub006/internal/service"
)

type ExportHandler struct {
	svc *service.AuditService
}

func NewExportHandler(svc *service.AuditService) *ExportHandler {
	return &ExportHandler{svc: svc}
}

// Export handles GET /api/audit/export
// Serves the full audit log as NDJSON for offline verification and archival.
func (h *ExportHandler) Export(c fiber.Ctx) error {
	var buf bytes.Buffer
	if _, err := h.svc.Export(c.Context(), &buf); err != nil {
		return serviceError(c, err, "Failed to export audit log")
	}

	filename := fmt.Sprintf("audit-log-%s.ndjson", time.Now().UTC().Format("2006-01-02"))
	c.Set("Content-Type", "application/x-ndjson")
	c.Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	return c.Send(buf.Bytes())
}
