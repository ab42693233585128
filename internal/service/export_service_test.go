package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pbis-api/internal/models"
	appErrors "github.com/noah-isme/pbis-api/pkg/errors"
	"github.com/noah-isme/pbis-api/pkg/export"
)

type stubDashboard struct{ dashboard *models.Dashboard }

func (s stubDashboard) Dashboard(context.Context, models.DateRange) (*models.Dashboard, bool, error) {
	return s.dashboard, false, nil
}

type stubTier3 struct{ report *models.Tier3Report }

func (s stubTier3) Tier3(context.Context, models.DateRange) (*models.Tier3Report, error) {
	return s.report, nil
}

type stubMonthly struct{ sheet *models.MonthlyCICOSheet }

func (s stubMonthly) Monthly(context.Context, models.MonthKey) (*models.MonthlyCICOSheet, bool, error) {
	return s.sheet, false, nil
}

type captureXLSX struct{ data export.Dataset }

func (c *captureXLSX) Render(data export.Dataset, _ string) ([]byte, error) {
	c.data = data
	return []byte("xlsx"), nil
}

func TestExportRiskListCSV(t *testing.T) {
	svc := NewExportService(stubDashboard{&models.Dashboard{RiskList: []models.RiskStudent{
		{StudentCode: "S1", ClassName: "1-1", ExternalCode: "E1", Tier: models.TierThree, Count: 6, MaxIntensity: 3},
	}}}, nil, nil, nil)

	result, err := svc.RiskList(context.Background(), models.DateRange{}, "csv")

	require.NoError(t, err)
	assert.Equal(t, "risk-list.csv", result.Filename)
	assert.Contains(t, string(result.Payload), "S1,1-1,E1,Tier 3,6,3")
}

func TestExportTier3PDF(t *testing.T) {
	svc := NewExportService(nil, stubTier3{&models.Tier3Report{Students: []models.Tier3StudentReview{
		{StudentCode: "S1", Tier: models.TierFlag3, Incidents: 2, Decision: models.Tier3MaintainObserve},
	}}}, nil, nil)

	result, err := svc.Tier3(context.Background(), models.DateRange{}, "pdf")

	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, bytes.HasPrefix(result.Payload, []byte("%PDF")))
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	svc := NewExportService(stubDashboard{&models.Dashboard{}}, nil, nil, nil)

	_, err := svc.RiskList(context.Background(), models.DateRange{}, "docx")

	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestExportCICOGridColumns(t *testing.T) {
	rate := 75.0
	capture := &captureXLSX{}
	svc := NewExportService(nil, nil, stubMonthly{&models.MonthlyCICOSheet{
		Year: 2025, Month: 3,
		BusinessDays: []string{"3/3", "3/4"},
		Records: []models.MonthlyCICORecord{{
			StudentCode: "S1", ScaleType: "O/X", AchievementRate: &rate, Achieved: models.AchievedNo,
			Days: []models.DayCell{{Label: "3/3", Value: "O"}, {Label: "3/4", Value: "X"}},
		}},
	}}, nil)
	svc.xlsx = capture

	result, err := svc.CICOGrid(context.Background(), models.MonthKey{Year: 2025, Month: 3})

	require.NoError(t, err)
	assert.Equal(t, "cico-2025-03.xlsx", result.Filename)
	assert.Equal(t, []string{"Student", "Target Behavior", "Direction", "Scale", "Goal", "3/3", "3/4", "Rate", "Achieved"}, capture.data.Headers)
	require.Len(t, capture.data.Rows, 1)
	assert.Equal(t, "75.0", capture.data.Rows[0]["Rate"])
	assert.Equal(t, "X", capture.data.Rows[0]["3/4"])
}
