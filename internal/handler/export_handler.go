package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pbis-api/internal/models"
	"github.com/noah-isme/pbis-api/internal/service"
	"github.com/noah-isme/pbis-api/pkg/response"
)

type exportService interface {
	RiskList(ctx context.Context, dates models.DateRange, format string) (*service.ExportResult, error)
	Tier3(ctx context.Context, dates models.DateRange, format string) (*service.ExportResult, error)
	CICOGrid(ctx context.Context, month models.MonthKey) (*service.ExportResult, error)
}

// ExportHandler streams report exports as file downloads.
type ExportHandler struct {
	service exportService
	now     func() time.Time
}

// NewExportHandler constructs the handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service, now: time.Now}
}

func (h *ExportHandler) send(c *gin.Context, result *service.ExportResult, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, result.Filename, result.ContentType, result.Payload)
}

// RiskList godoc
// @Summary Export the dashboard risk list
// @Tags Exports
// @Produce octet-stream
// @Param format query string false "csv or pdf"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Router /exports/risk-list [get]
func (h *ExportHandler) RiskList(c *gin.Context) {
	dates, err := queryDateRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.RiskList(c.Request.Context(), dates, c.Query("format"))
	h.send(c, result, err)
}

// Tier3 godoc
// @Summary Export the Tier3 caseload review
// @Tags Exports
// @Produce octet-stream
// @Param format query string false "csv or pdf"
// @Router /exports/tier3 [get]
func (h *ExportHandler) Tier3(c *gin.Context) {
	dates, err := queryDateRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.Tier3(c.Request.Context(), dates, c.Query("format"))
	h.send(c, result, err)
}

// CICO godoc
// @Summary Export one month's CICO grid as XLSX
// @Tags Exports
// @Produce octet-stream
// @Param year query int false "Year"
// @Param month query int false "Month (3-12)"
// @Router /exports/cico [get]
func (h *ExportHandler) CICO(c *gin.Context) {
	month, err := queryMonth(c, h.now())
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.CICOGrid(c.Request.Context(), month)
	h.send(c, result, err)
}
