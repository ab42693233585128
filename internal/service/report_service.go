package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/pbis-api/internal/models"
)

type dashboardProvider interface {
	Dashboard(ctx context.Context, dates models.DateRange) (*models.Dashboard, bool, error)
}

type triageProvider interface {
	Meeting(ctx context.Context, ref *time.Time) (*models.MeetingReport, error)
	CICO(ctx context.Context, month models.MonthKey) (*models.CICOReport, error)
}

// ReportService composes the school-wide overview consumed by the reporting layer.
type ReportService struct {
	analytics dashboardProvider
	triage    triageProvider
	logger    *zap.Logger
	now       func() time.Time
}

// NewReportService constructs the report service.
func NewReportService(analytics dashboardProvider, triage triageProvider, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{analytics: analytics, triage: triage, logger: logger, now: time.Now}
}

func sectionStatus(err error) models.SectionStatus {
	if err != nil {
		return models.SectionStatus{Available: false, Error: err.Error()}
	}
	return models.SectionStatus{Available: true}
}

// Overview builds each section independently. A section whose upstream failed is marked
// unavailable and the remaining sections are still returned. The CICO section is only
// attempted during the school year.
func (s *ReportService) Overview(ctx context.Context) *models.Overview {
	now := s.now()
	overview := &models.Overview{GeneratedAt: now.UTC()}

	dashboard, _, err := s.analytics.Dashboard(ctx, models.DateRange{})
	if err != nil {
		s.logger.Warn("overview dashboard unavailable", zap.Error(err))
	} else {
		overview.Dashboard = dashboard
	}
	overview.DashboardInfo = sectionStatus(err)

	meeting, err := s.triage.Meeting(ctx, &now)
	if err != nil {
		s.logger.Warn("overview meeting triage unavailable", zap.Error(err))
	} else {
		overview.Meeting = meeting
	}
	overview.MeetingInfo = sectionStatus(err)

	month := models.NewMonthKey(now)
	if month.Month < FirstSchoolMonth {
		overview.CICOInfo = models.SectionStatus{Available: false, Error: "no cico records outside the school year"}
		return overview
	}
	cico, err := s.triage.CICO(ctx, month)
	if err != nil {
		s.logger.Warn("overview cico review unavailable", zap.Error(err))
	} else {
		overview.CICO = cico
	}
	overview.CICOInfo = sectionStatus(err)
	return overview
}
