package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pbis-api/internal/models"
	appErrors "github.com/noah-isme/pbis-api/pkg/errors"
)

type fakeIncidentSource struct {
	incidents []models.BehaviorIncident
	err       error
	calls     int
}

func (f *fakeIncidentSource) FetchIncidents(context.Context) ([]models.BehaviorIncident, error) {
	f.calls++
	return f.incidents, f.err
}

type fakeHolidaySource struct{ dates []string }

func (f fakeHolidaySource) FetchHolidays(context.Context) ([]string, error) { return f.dates, nil }

func overviewFixture(incidentErr error) (*ReportService, *fakeIncidentSource) {
	roster := &fakeRosterStore{students: []models.Student{
		student("S1", "E1", "1-1", models.TierFlags{Tier1: true, Tier2CICO: true}),
	}}
	incidents := &fakeIncidentSource{
		incidents: []models.BehaviorIncident{incident("E1", "2025-05-12", 5, "상해")},
		err:       incidentErr,
	}
	may := models.MonthKey{Year: 2025, Month: 5}
	store := newFakeCICOStore(cicoRecord("S1", may, oxDays(9, 1)))
	dataset := NewDatasetService(roster, incidents, store, fakeHolidaySource{}, nil, nil, DatasetTTLs{}, nil)

	engine := NewTierEngine(nil)
	triage := NewTriageService(dataset, engine, NewMetricsService(), nil)
	triage.now = func() time.Time { return mustDate("2025-05-20") }
	analytics := NewAnalyticsService(dataset, NewReportBuilder(engine), nil, nil)
	svc := NewReportService(analytics, triage, nil)
	svc.now = triage.now
	return svc, incidents
}

func TestOverviewComposesAllSections(t *testing.T) {
	svc, _ := overviewFixture(nil)

	overview := svc.Overview(context.Background())

	assert.True(t, overview.DashboardInfo.Available)
	assert.True(t, overview.MeetingInfo.Available)
	assert.True(t, overview.CICOInfo.Available)
	require.NotNil(t, overview.Meeting)
	require.Len(t, overview.Meeting.Students, 1)
	assert.Equal(t, models.RecommendTier3Immediate, overview.Meeting.Students[0].Recommendation)
	require.NotNil(t, overview.CICO)
	require.Len(t, overview.CICO.Students, 1)
	assert.Equal(t, models.CICOMaintain, overview.CICO.Students[0].Decision)
}

func TestOverviewSurvivesIncidentOutage(t *testing.T) {
	svc, _ := overviewFixture(errors.New("sheets quota exceeded"))

	overview := svc.Overview(context.Background())

	assert.False(t, overview.DashboardInfo.Available)
	assert.False(t, overview.MeetingInfo.Available)
	assert.Nil(t, overview.Dashboard)
	assert.Contains(t, overview.DashboardInfo.Error, "incidents")
	assert.True(t, overview.CICOInfo.Available)
	require.NotNil(t, overview.CICO)
}

func TestTriageTier3RejectsInvertedRange(t *testing.T) {
	svc, _ := overviewFixture(nil)
	triage := svc.triage.(*TriageService)
	from, to := mustDate("2025-05-10"), mustDate("2025-05-01")

	_, err := triage.Tier3(context.Background(), models.DateRange{From: &from, To: &to})

	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestAnalyticsStudentDetailUnknownCode(t *testing.T) {
	svc, _ := overviewFixture(nil)
	analytics := svc.analytics.(*AnalyticsService)

	_, err := analytics.StudentDetail(context.Background(), "S404")

	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
