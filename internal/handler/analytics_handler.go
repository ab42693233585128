package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pbis-api/internal/middleware"
	"github.com/noah-isme/pbis-api/internal/models"
	appErrors "github.com/noah-isme/pbis-api/pkg/errors"
	"github.com/noah-isme/pbis-api/pkg/response"
)

type analyticsService interface {
	Dashboard(ctx context.Context, dates models.DateRange) (*models.Dashboard, bool, error)
	StudentDetail(ctx context.Context, code string) (*models.StudentDetail, error)
}

type overviewService interface {
	Overview(ctx context.Context) *models.Overview
}

// AnalyticsHandler exposes dashboard-ready analytics endpoints.
type AnalyticsHandler struct {
	analytics analyticsService
	reports   overviewService
}

// NewAnalyticsHandler constructs the analytics handler.
func NewAnalyticsHandler(analytics analyticsService, reports overviewService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, reports: reports}
}

// Dashboard godoc
// @Summary School-wide behavior dashboard
// @Tags Analytics
// @Produce json
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /analytics/dashboard [get]
func (h *AnalyticsHandler) Dashboard(c *gin.Context) {
	dates, err := queryDateRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	dashboard, cacheHit, err := h.analytics.Dashboard(c.Request.Context(), dates)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, dashboard, middleware.Meta(c))
}

// Student godoc
// @Summary Single-student behavior drill-down
// @Tags Analytics
// @Produce json
// @Param code path string true "Student code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /analytics/students/{code} [get]
func (h *AnalyticsHandler) Student(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "student code is required"))
		return
	}
	detail, err := h.analytics.StudentDetail(c.Request.Context(), code)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail)
}

// Overview godoc
// @Summary Dashboard, meeting triage and CICO review in one payload
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics/overview [get]
func (h *AnalyticsHandler) Overview(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.reports.Overview(c.Request.Context()))
}
