package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/pbis-api/internal/models"
	"github.com/noah-isme/pbis-api/internal/service"
	appErrors "github.com/noah-isme/pbis-api/pkg/errors"
)

type fakeAnalyticsSrv struct{ dates models.DateRange }

func (f *fakeAnalyticsSrv) Dashboard(_ context.Context, dates models.DateRange) (*models.Dashboard, bool, error) {
	f.dates = dates
	return &models.Dashboard{Summary: models.DashboardSummary{TotalIncidents: 3}}, false, nil
}

func (f *fakeAnalyticsSrv) StudentDetail(_ context.Context, code string) (*models.StudentDetail, error) {
	if code != "S1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student "+code+" not found")
	}
	return &models.StudentDetail{Profile: models.StudentProfile{StudentCode: "S1"}}, nil
}

type fakeOverviewSrv struct{}

func (fakeOverviewSrv) Overview(context.Context) *models.Overview {
	return &models.Overview{
		DashboardInfo: models.SectionStatus{Available: false, Error: "incidents unavailable"},
		MeetingInfo:   models.SectionStatus{Available: true},
	}
}

func TestAnalyticsHandlerDashboardDateRange(t *testing.T) {
	srv := &fakeAnalyticsSrv{}
	handler := NewAnalyticsHandler(srv, fakeOverviewSrv{})
	c, rec := newTestContext(http.MethodGet, "/analytics/dashboard?from=2025-03-01&to=2025-03-31", nil)

	handler.Dashboard(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	if assert.NotNil(t, srv.dates.From) && assert.NotNil(t, srv.dates.To) {
		assert.Equal(t, "2025-03-01", srv.dates.From.Format(models.DateLayout))
		assert.Equal(t, "2025-03-31", srv.dates.To.Format(models.DateLayout))
	}
	assert.Equal(t, false, decodeEnvelope(t, rec).Meta["cache_hit"])
}

func TestAnalyticsHandlerStudentNotFound(t *testing.T) {
	handler := NewAnalyticsHandler(&fakeAnalyticsSrv{}, fakeOverviewSrv{})
	c, rec := newTestContext(http.MethodGet, "/analytics/students/S404", nil)
	c.Params = gin.Params{{Key: "code", Value: "S404"}}

	handler.Student(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalyticsHandlerOverviewIsAlwaysOK(t *testing.T) {
	handler := NewAnalyticsHandler(&fakeAnalyticsSrv{}, fakeOverviewSrv{})
	c, rec := newTestContext(http.MethodGet, "/analytics/overview", nil)

	handler.Overview(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decodeEnvelope(t, rec).Data), `"dashboard_status":{"available":false,"error":"incidents unavailable"}`)
}

func TestMetricsHandlerReadyReportsFailingCheck(t *testing.T) {
	handler := NewMetricsHandler(service.NewMetricsService(), map[string]ReadinessCheck{
		"database": func(context.Context) error { return nil },
		"cache":    func(context.Context) error { return errors.New("connection refused") },
	})
	c, rec := newTestContext(http.MethodGet, "/ready", nil)

	handler.Ready(c)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestMetricsHandlerHealth(t *testing.T) {
	handler := NewMetricsHandler(nil, nil)
	c, rec := newTestContext(http.MethodGet, "/health", nil)

	handler.Health(c)

	assert.Equal(t, http.StatusOK, rec.Code)
}
