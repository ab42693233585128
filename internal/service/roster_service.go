package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/pbis-api/internal/models"
	appErrors "github.com/noah-isme/pbis-api/pkg/errors"
)

type rosterDataset interface {
	Students(ctx context.Context) ([]models.Student, bool, error)
	InvalidateRoster(ctx context.Context) error
}

// RosterService exposes tier status and administrative updates.
type RosterService struct {
	store     RosterStore
	dataset   rosterDataset
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRosterService constructs the service.
func NewRosterService(store RosterStore, dataset rosterDataset, validate *validator.Validate, logger *zap.Logger) *RosterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{store: store, dataset: dataset, validator: validate, logger: logger}
}

// Status lists every student with enrollment counts.
func (s *RosterService) Status(ctx context.Context) (*models.RosterStatus, bool, error) {
	students, hit, err := s.dataset.Students(ctx)
	if err != nil {
		return nil, false, err
	}
	status := &models.RosterStatus{Students: students, TotalCount: len(students)}
	for _, student := range students {
		if student.Enrolled {
			status.EnrolledCount++
		}
	}
	return status, hit, nil
}

// Update applies a partial administrative update. Tier1 is the floor of every student and
// cannot be cleared. The roster cache is dropped before returning.
func (s *RosterService) Update(ctx context.Context, code string, update models.StudentUpdate) (*models.Student, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student code is required")
	}
	if err := s.validator.Struct(update); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid roster update")
	}
	if update.Empty() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "update has no fields")
	}
	if update.Tier1 != nil && !*update.Tier1 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "tier1 cannot be removed")
	}
	if update.ExternalCode != nil {
		trimmed := strings.TrimSpace(*update.ExternalCode)
		update.ExternalCode = &trimmed
	}

	student, err := s.store.UpdateStudent(ctx, code, update)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student "+code+" not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	if err := s.dataset.InvalidateRoster(ctx); err != nil {
		s.logger.Warn("roster cache invalidation failed", zap.String("student_code", code), zap.Error(err))
	}
	s.logger.Info("student updated", zap.String("student_code", code))
	return student, nil
}
