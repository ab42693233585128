package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pbis-api/internal/models"
)

type fakeTriageSrv struct {
	ref   *time.Time
	dates models.DateRange
	month models.MonthKey
}

func (f *fakeTriageSrv) Meeting(_ context.Context, ref *time.Time) (*models.MeetingReport, error) {
	f.ref = ref
	return &models.MeetingReport{Period: "2025-03-01 ~ 2025-03-28"}, nil
}

func (f *fakeTriageSrv) Tier3(_ context.Context, dates models.DateRange) (*models.Tier3Report, error) {
	f.dates = dates
	return &models.Tier3Report{}, nil
}

func (f *fakeTriageSrv) CICO(_ context.Context, month models.MonthKey) (*models.CICOReport, error) {
	f.month = month
	return &models.CICOReport{Year: month.Year, Month: month.Month}, nil
}

func TestTriageHandlerMeetingReferenceDate(t *testing.T) {
	srv := &fakeTriageSrv{}
	handler := NewTriageHandler(srv)
	c, rec := newTestContext(http.MethodGet, "/meeting/triage?date=2025-03-28", nil)

	handler.Meeting(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, srv.ref)
	assert.Equal(t, "2025-03-28", srv.ref.Format(models.DateLayout))
}

func TestTriageHandlerMeetingDefaultsToToday(t *testing.T) {
	srv := &fakeTriageSrv{}
	handler := NewTriageHandler(srv)
	c, _ := newTestContext(http.MethodGet, "/meeting/triage", nil)

	handler.Meeting(c)

	assert.Nil(t, srv.ref)
}

func TestTriageHandlerTier3InvalidDate(t *testing.T) {
	handler := NewTriageHandler(&fakeTriageSrv{})
	c, rec := newTestContext(http.MethodGet, "/tier3/review?from=03-01-2025", nil)

	handler.Tier3(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTriageHandlerCICOMonth(t *testing.T) {
	srv := &fakeTriageSrv{}
	handler := NewTriageHandler(srv)
	c, rec := newTestContext(http.MethodGet, "/cico/review?year=2025&month=5", nil)

	handler.CICO(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.MonthKey{Year: 2025, Month: 5}, srv.month)
}

func TestTriageHandlerCICORejectsNonNumericMonth(t *testing.T) {
	handler := NewTriageHandler(&fakeTriageSrv{})
	c, rec := newTestContext(http.MethodGet, "/cico/review?month=may", nil)

	handler.CICO(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
