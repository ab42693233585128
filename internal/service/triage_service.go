package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/pbis-api/internal/models"
	appErrors "github.com/noah-isme/pbis-api/pkg/errors"
)

type incidentDataset interface {
	Students(ctx context.Context) ([]models.Student, bool, error)
	Incidents(ctx context.Context) ([]models.BehaviorIncident, bool, error)
}

type triageDataset interface {
	incidentDataset
	MonthlyHistory(ctx context.Context, months []models.MonthKey) (map[models.MonthKey][]models.MonthlyCICORecord, error)
}

// TriageService runs the tier decision procedures over the cached collections.
type TriageService struct {
	dataset triageDataset
	engine  *TierEngine
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewTriageService constructs the service.
func NewTriageService(dataset triageDataset, engine *TierEngine, metrics *MetricsService, logger *zap.Logger) *TriageService {
	if engine == nil {
		engine = NewTierEngine(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TriageService{dataset: dataset, engine: engine, metrics: metrics, logger: logger, now: time.Now}
}

func (s *TriageService) load(ctx context.Context) ([]models.BehaviorIncident, *IdentifierIndex, error) {
	students, _, err := s.dataset.Students(ctx)
	if err != nil {
		return nil, nil, err
	}
	incidents, _, err := s.dataset.Incidents(ctx)
	if err != nil {
		return nil, nil, err
	}
	return incidents, NewIdentifierIndex(students, s.logger), nil
}

// Meeting runs the 4-week triage ending on ref, or today when ref is nil.
func (s *TriageService) Meeting(ctx context.Context, ref *time.Time) (*models.MeetingReport, error) {
	incidents, idx, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	anchor := s.now()
	if ref != nil {
		anchor = *ref
	}
	report := s.engine.MeetingTriage(incidents, idx, anchor)
	for _, row := range report.Students {
		s.metrics.RecordTierDecision(ProcedureMeeting, string(row.Recommendation))
	}
	return &report, nil
}

// Tier3 reviews the Tier3 caseload over dates.
func (s *TriageService) Tier3(ctx context.Context, dates models.DateRange) (*models.Tier3Report, error) {
	if dates.From != nil && dates.To != nil && dates.From.After(*dates.To) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start date must not be after end date")
	}
	incidents, idx, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	report := s.engine.Tier3Review(incidents, idx, dates)
	for _, row := range report.Students {
		s.metrics.RecordTierDecision(ProcedureTier3, string(row.Decision))
	}
	return &report, nil
}

// CICO reviews the Tier2(CICO) caseload for month.
func (s *TriageService) CICO(ctx context.Context, month models.MonthKey) (*models.CICOReport, error) {
	if err := validSchoolMonth(month); err != nil {
		return nil, err
	}
	students, _, err := s.dataset.Students(ctx)
	if err != nil {
		return nil, err
	}
	history, err := s.dataset.MonthlyHistory(ctx, s.engine.CICOMonths(month))
	if err != nil {
		return nil, err
	}
	report := s.engine.CICOReview(history, NewIdentifierIndex(students, s.logger), month)
	for _, row := range report.Students {
		s.metrics.RecordTierDecision(ProcedureCICO, string(row.Decision))
	}
	return &report, nil
}

// CurrentMonth is the month containing now.
func (s *TriageService) CurrentMonth() models.MonthKey {
	return models.NewMonthKey(s.now())
}
