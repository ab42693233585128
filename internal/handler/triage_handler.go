package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pbis-api/internal/models"
	"github.com/noah-isme/pbis-api/pkg/response"
)

type triageService interface {
	Meeting(ctx context.Context, ref *time.Time) (*models.MeetingReport, error)
	Tier3(ctx context.Context, dates models.DateRange) (*models.Tier3Report, error)
	CICO(ctx context.Context, month models.MonthKey) (*models.CICOReport, error)
}

// TriageHandler exposes the three tier decision procedures.
type TriageHandler struct {
	service triageService
	now     func() time.Time
}

// NewTriageHandler constructs the handler.
func NewTriageHandler(service triageService) *TriageHandler {
	return &TriageHandler{service: service, now: time.Now}
}

// Meeting godoc
// @Summary Four-week team meeting triage
// @Tags Triage
// @Produce json
// @Param date query string false "Reference date (YYYY-MM-DD). Defaults to today"
// @Success 200 {object} response.Envelope
// @Router /meeting/triage [get]
func (h *TriageHandler) Meeting(c *gin.Context) {
	ref, err := queryDate(c, "date")
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.service.Meeting(c.Request.Context(), ref)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report)
}

// Tier3 godoc
// @Summary Tier3 caseload review
// @Tags Triage
// @Produce json
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /tier3/review [get]
func (h *TriageHandler) Tier3(c *gin.Context) {
	dates, err := queryDateRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.service.Tier3(c.Request.Context(), dates)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report)
}

// CICO godoc
// @Summary Monthly CICO review
// @Tags Triage
// @Produce json
// @Param year query int false "Year"
// @Param month query int false "Month (3-12)"
// @Success 200 {object} response.Envelope
// @Router /cico/review [get]
func (h *TriageHandler) CICO(c *gin.Context) {
	month, err := queryMonth(c, h.now())
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.service.CICO(c.Request.Context(), month)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report)
}
