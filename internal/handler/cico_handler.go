package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pbis-api/internal/middleware"
	"github.com/noah-isme/pbis-api/internal/models"
	"github.com/noah-isme/pbis-api/internal/service"
	appErrors "github.com/noah-isme/pbis-api/pkg/errors"
	"github.com/noah-isme/pbis-api/pkg/response"
)

type cicoService interface {
	Monthly(ctx context.Context, month models.MonthKey) (*models.MonthlyCICOSheet, bool, error)
	GenerateMonth(ctx context.Context, month models.MonthKey) ([]models.MonthlyCICORecord, error)
	UpdateCells(ctx context.Context, req service.CellBatchRequest) ([]models.MonthlyCICORecord, error)
	ApplyDailyEntry(ctx context.Context, req service.DailyEntryRequest) (*models.MonthlyCICORecord, error)
	UpdateSettings(ctx context.Context, req service.SettingsRequest) (*models.MonthlyCICORecord, error)
	BusinessDays(ctx context.Context, month models.MonthKey) ([]time.Time, []string, error)
	ToggleTier2(ctx context.Context, req service.Tier2ToggleRequest) (*models.MonthlyCICORecord, error)
	DailyRecords(ctx context.Context, q service.DailyRecordQuery) ([]models.DailyCICOEntry, error)
}

type dailyEntryPayload struct {
	StudentCode string `json:"student_code"`
	Date        string `json:"date"`
	Target1     string `json:"target1"`
	Target2     string `json:"target2"`
}

type dailyEntryResult struct {
	Applied bool                      `json:"applied"`
	Record  *models.MonthlyCICORecord `json:"record,omitempty"`
}

type generatePayload struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

type businessDaysResult struct {
	Year  int      `json:"year"`
	Month int      `json:"month"`
	Count int      `json:"count"`
	Days  []string `json:"days"`
	Dates []string `json:"dates"`
}

// CICOHandler exposes the monthly CICO grid and daily reconciliation.
type CICOHandler struct {
	service cicoService
	now     func() time.Time
}

// NewCICOHandler constructs the handler.
func NewCICOHandler(service cicoService) *CICOHandler {
	return &CICOHandler{service: service, now: time.Now}
}

// Monthly godoc
// @Summary Monthly CICO grid
// @Tags CICO
// @Produce json
// @Param year query int false "Year"
// @Param month query int false "Month (3-12)"
// @Success 200 {object} response.Envelope
// @Router /cico/monthly [get]
func (h *CICOHandler) Monthly(c *gin.Context) {
	month, err := queryMonth(c, h.now())
	if err != nil {
		response.Error(c, err)
		return
	}
	sheet, cacheHit, err := h.service.Monthly(c.Request.Context(), month)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, sheet, middleware.Meta(c))
}

// Generate godoc
// @Summary Create the month's records for every enrolled Tier2(CICO) student
// @Tags CICO
// @Accept json
// @Produce json
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /cico/monthly/generate [post]
func (h *CICOHandler) Generate(c *gin.Context) {
	var payload generatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	created, err := h.service.GenerateMonth(c.Request.Context(), models.MonthKey{Year: payload.Year, Month: payload.Month})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, created, map[string]interface{}{"created": len(created)})
}

// Cells godoc
// @Summary Edit several day cells of the monthly grid
// @Tags CICO
// @Accept json
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /cico/monthly/cells [post]
func (h *CICOHandler) Cells(c *gin.Context) {
	var req service.CellBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	records, err := h.service.UpdateCells(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records)
}

// Daily godoc
// @Summary Fold one daily check-in into the monthly record
// @Tags CICO
// @Accept json
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /cico/daily [post]
func (h *CICOHandler) Daily(c *gin.Context) {
	var payload dailyEntryPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	date, ok := models.ParseDate(payload.Date)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD"))
		return
	}
	record, err := h.service.ApplyDailyEntry(c.Request.Context(), service.DailyEntryRequest{
		StudentCode: payload.StudentCode,
		Date:        date,
		Target1:     payload.Target1,
		Target2:     payload.Target2,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dailyEntryResult{Applied: record != nil, Record: record})
}

// DailyRecords godoc
// @Summary Filled day cells across monthly records
// @Tags CICO
// @Produce json
// @Param student_code query string false "Student code"
// @Param from query string false "Start date (YYYY-MM-DD), defaults to the first of to's month"
// @Param to query string false "End date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Envelope
// @Router /cico/daily [get]
func (h *CICOHandler) DailyRecords(c *gin.Context) {
	window, err := queryDateRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	entries, err := h.service.DailyRecords(c.Request.Context(), service.DailyRecordQuery{
		StudentCode: c.Query("student_code"),
		From:        window.From,
		To:          window.To,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, map[string]interface{}{"total": len(entries)})
}

// Tier2Toggle godoc
// @Summary Keep ("O") or release ("X") a student from Tier2 for one month
// @Tags CICO
// @Accept json
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /cico/monthly/tier2 [put]
func (h *CICOHandler) Tier2Toggle(c *gin.Context) {
	var req service.Tier2ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	record, err := h.service.ToggleTier2(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record)
}

// Settings godoc
// @Summary Change a student's CICO target, direction, scale or goal for a month
// @Tags CICO
// @Accept json
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /cico/settings [put]
func (h *CICOHandler) Settings(c *gin.Context) {
	var req service.SettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	record, err := h.service.UpdateSettings(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record)
}

// BusinessDays godoc
// @Summary Weekdays of a month minus school holidays
// @Tags CICO
// @Produce json
// @Param year query int false "Year"
// @Param month query int false "Month"
// @Success 200 {object} response.Envelope
// @Router /cico/business-days [get]
func (h *CICOHandler) BusinessDays(c *gin.Context) {
	month, err := queryMonth(c, h.now())
	if err != nil {
		response.Error(c, err)
		return
	}
	days, _, err := h.service.BusinessDays(c.Request.Context(), month)
	if err != nil {
		response.Error(c, err)
		return
	}
	result := businessDaysResult{Year: month.Year, Month: month.Month, Count: len(days), Days: make([]string, 0, len(days)), Dates: make([]string, 0, len(days))}
	for _, day := range days {
		result.Days = append(result.Days, models.DayLabel(day))
		result.Dates = append(result.Dates, day.Format(models.DateLayout))
	}
	response.JSON(c, http.StatusOK, result)
}
