package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pbis-api/internal/middleware"
	"github.com/noah-isme/pbis-api/internal/models"
	"github.com/noah-isme/pbis-api/internal/service"
	appErrors "github.com/noah-isme/pbis-api/pkg/errors"
	"github.com/noah-isme/pbis-api/pkg/response"
)

type interventionService interface {
	Plan(ctx context.Context, studentCode string) (*models.BehaviorInterventionPlan, bool, error)
	SavePlan(ctx context.Context, studentCode string, plan models.BehaviorInterventionPlan) (*models.BehaviorInterventionPlan, error)
	SaveMeetingNote(ctx context.Context, req service.MeetingNoteRequest) (*models.MeetingNote, error)
	MeetingNotes(ctx context.Context, filter models.MeetingNoteFilter) ([]models.MeetingNote, bool, error)
	LatestMeetingNotes(ctx context.Context) (map[string]models.MeetingNote, bool, error)
}

type meetingNotePayload struct {
	MeetingType string `json:"meeting_type"`
	Date        string `json:"date"`
	Content     string `json:"content"`
	Author      string `json:"author"`
	StudentCode string `json:"student_code"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
}

// InterventionHandler exposes Tier3 intervention plans and team meeting notes.
type InterventionHandler struct {
	service interventionService
}

// NewInterventionHandler constructs the handler.
func NewInterventionHandler(service interventionService) *InterventionHandler {
	return &InterventionHandler{service: service}
}

// Plan godoc
// @Summary Behavior intervention plan of a student
// @Tags Intervention
// @Produce json
// @Param code path string true "Student code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{code}/bip [get]
func (h *InterventionHandler) Plan(c *gin.Context) {
	plan, cacheHit, err := h.service.Plan(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, plan, middleware.Meta(c))
}

// SavePlan godoc
// @Summary Replace a student's behavior intervention plan
// @Tags Intervention
// @Accept json
// @Produce json
// @Param code path string true "Student code"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students/{code}/bip [put]
func (h *InterventionHandler) SavePlan(c *gin.Context) {
	var plan models.BehaviorInterventionPlan
	if err := c.ShouldBindJSON(&plan); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	saved, err := h.service.SavePlan(c.Request.Context(), c.Param("code"), plan)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, saved)
}

// SaveMeetingNote godoc
// @Summary Record a team meeting
// @Tags Intervention
// @Accept json
// @Produce json
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /meeting-notes [post]
func (h *InterventionHandler) SaveMeetingNote(c *gin.Context) {
	var payload meetingNotePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	req := service.MeetingNoteRequest{
		MeetingType: payload.MeetingType,
		Content:     payload.Content,
		Author:      payload.Author,
		StudentCode: payload.StudentCode,
	}
	date, ok := models.ParseDate(payload.Date)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD"))
		return
	}
	req.Date = date
	for _, field := range []struct {
		raw  string
		dest **time.Time
		name string
	}{
		{payload.PeriodStart, &req.PeriodStart, "period_start"},
		{payload.PeriodEnd, &req.PeriodEnd, "period_end"},
	} {
		if strings.TrimSpace(field.raw) == "" {
			continue
		}
		parsed, ok := models.ParseDate(field.raw)
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid "+field.name+", expected YYYY-MM-DD"))
			return
		}
		*field.dest = &parsed
	}

	note, err := h.service.SaveMeetingNote(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, note)
}

// MeetingNotes godoc
// @Summary List meeting notes, newest first
// @Tags Intervention
// @Produce json
// @Param meeting_type query string false "tier1, tier2, tier3 or consultation"
// @Param student_code query string false "Student code"
// @Success 200 {object} response.Envelope
// @Router /meeting-notes [get]
func (h *InterventionHandler) MeetingNotes(c *gin.Context) {
	notes, cacheHit, err := h.service.MeetingNotes(c.Request.Context(), models.MeetingNoteFilter{
		MeetingType: c.Query("meeting_type"),
		StudentCode: c.Query("student_code"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.Meta(c)
	meta["total"] = len(notes)
	response.JSON(c, http.StatusOK, notes, meta)
}

// LatestMeetingNotes godoc
// @Summary Newest note of each meeting type
// @Tags Intervention
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /meeting-notes/latest [get]
func (h *InterventionHandler) LatestMeetingNotes(c *gin.Context) {
	latest, cacheHit, err := h.service.LatestMeetingNotes(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, latest, middleware.Meta(c))
}
