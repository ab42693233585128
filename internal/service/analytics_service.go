package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/pbis-api/internal/models"
	appErrors "github.com/noah-isme/pbis-api/pkg/errors"
)

// AnalyticsService serves the school-wide dashboard and per-student drill-downs.
type AnalyticsService struct {
	dataset incidentDataset
	builder *ReportBuilder
	metrics *MetricsService
	logger  *zap.Logger
}

// NewAnalyticsService constructs an analytics service.
func NewAnalyticsService(dataset incidentDataset, builder *ReportBuilder, metrics *MetricsService, logger *zap.Logger) *AnalyticsService {
	if builder == nil {
		builder = NewReportBuilder(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{dataset: dataset, builder: builder, metrics: metrics, logger: logger}
}

// Dashboard aggregates incidents within dates. The boolean reports whether both source
// collections came from cache.
func (s *AnalyticsService) Dashboard(ctx context.Context, dates models.DateRange) (*models.Dashboard, bool, error) {
	if dates.From != nil && dates.To != nil && dates.From.After(*dates.To) {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "start date must not be after end date")
	}
	students, rosterHit, err := s.dataset.Students(ctx)
	if err != nil {
		return nil, false, err
	}
	incidents, incidentsHit, err := s.dataset.Incidents(ctx)
	if err != nil {
		return nil, false, err
	}
	dashboard := s.builder.BuildDashboard(incidents, NewIdentifierIndex(students, s.logger), dates)
	return &dashboard, rosterHit && incidentsHit, nil
}

// StudentDetail drills into one student by student code.
func (s *AnalyticsService) StudentDetail(ctx context.Context, code string) (*models.StudentDetail, error) {
	students, _, err := s.dataset.Students(ctx)
	if err != nil {
		return nil, err
	}
	idx := NewIdentifierIndex(students, s.logger)
	identity, ok := idx.ByStudentCode(code)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student "+code+" not found")
	}
	incidents, _, err := s.dataset.Incidents(ctx)
	if err != nil {
		return nil, err
	}
	detail := s.builder.BuildStudentDetail(incidents, idx, identity)
	return &detail, nil
}
