package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edu-admin-api/internal/access"
	"github.com/noah-isme/edu-admin-api/internal/middleware"
	"github.com/noah-isme/edu-admin-api/internal/service"
	"github.com/noah-isme/edu-admin-api/pkg/response"
)

type assessmentExporter interface {
	ExportAssessments(ctx context.Context, caller access.Identity, req service.ExportRequest) (*service.ExportResult, error)
}

// ExportHandler streams assessment exports.
type ExportHandler struct {
	exports assessmentExporter
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports assessmentExporter) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Assessments godoc
// @Summary Export assessments
// @Description Exports the assessments visible to the caller. Accepts the assessment list filters.
// @Tags Assessments
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Param sort query string false "Sort key"
// @Param order query string false "asc or desc"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /assessments/export [get]
func (h *ExportHandler) Assessments(c *gin.Context) {
	desc, err := parseOrder(c.Query("order"))
	if err != nil {
		response.Error(c, err)
		return
	}
	var filter service.AssessmentFilter
	if err := bindQuery(c, &filter); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.exports.ExportAssessments(c.Request.Context(), middleware.IdentityFromContext(c), service.ExportRequest{
		Filter: filter.Predicate(),
		SortBy: strings.TrimSpace(c.Query("sort")),
		Desc:   desc,
		Format: c.Query("format"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("X-Export-Rows", strconv.Itoa(result.Rows))
	response.Attachment(c, result.Filename, result.ContentType, result.Body)
}
