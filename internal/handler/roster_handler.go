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

type rosterService interface {
	Status(ctx context.Context) (*models.RosterStatus, bool, error)
	Update(ctx context.Context, code string, update models.StudentUpdate) (*models.Student, error)
}

type identifierService interface {
	Mapping(ctx context.Context) (map[string]models.StudentIdentity, error)
}

// RosterHandler exposes tier status administration.
type RosterHandler struct {
	roster      rosterService
	identifiers identifierService
}

// NewRosterHandler constructs the handler.
func NewRosterHandler(roster rosterService, identifiers identifierService) *RosterHandler {
	return &RosterHandler{roster: roster, identifiers: identifiers}
}

// Status godoc
// @Summary List students with tier flags
// @Tags Tier
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /tier/status [get]
func (h *RosterHandler) Status(c *gin.Context) {
	status, cacheHit, err := h.roster.Status(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, status, middleware.Meta(c))
}

// Update godoc
// @Summary Update a student's enrollment, external code, tier flags or memo
// @Tags Tier
// @Accept json
// @Produce json
// @Param code path string true "Student code"
// @Success 200 {object} response.Envelope
// @Router /tier/status/{code} [put]
func (h *RosterHandler) Update(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "student code is required"))
		return
	}
	var update models.StudentUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	student, err := h.roster.Update(c.Request.Context(), code, update)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student)
}

// Mapping godoc
// @Summary External behavior-system code mapping of enrolled students
// @Tags Tier
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /tier/mapping [get]
func (h *RosterHandler) Mapping(c *gin.Context) {
	mapping, err := h.identifiers.Mapping(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mapping, map[string]interface{}{"count": len(mapping)})
}
