package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/mylugha/mylugha-api/internal/models"
	"github.com/mylugha/mylugha-api/internal/service"
	"github.com/mylugha/mylugha-api/pkg/response"
)

// ExportHandler wires HTTP endpoints to the export service.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler creates a new handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Export godoc
// @Summary Export language contributions
// @Description Download a language's contributions as CSV or PDF (admin only)
// @Tags Exports
// @Produce octet-stream
// @Param code path string true "Language code"
// @Param format query string false "Export format" Enums(csv, pdf) default(csv)
// @Param status query string false "Status filter" Enums(pending, validated, rejected)
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /exports/languages/{code} [get]
func (h *ExportHandler) Export(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	var status *models.ContributionStatus
	if s := c.Query("status"); s != "" {
		v := models.ContributionStatus(s)
		status = &v
	}

	file, err := h.service.Export(c.Request.Context(), c.Param("code"), format, status)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+file.Filename)
	c.Data(200, file.ContentType, file.Data)
}
