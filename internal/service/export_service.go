package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/pbis-api/internal/models"
	appErrors "github.com/noah-isme/pbis-api/pkg/errors"
	"github.com/noah-isme/pbis-api/pkg/export"
)

// Export formats.
const (
	FormatCSV  = "csv"
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"
)

var contentTypes = map[string]string{
	FormatCSV:  "text/csv; charset=utf-8",
	FormatPDF:  "application/pdf",
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// ExportResult is a rendered file ready to be streamed.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type xlsxRenderer interface {
	Render(data export.Dataset, sheetName string) ([]byte, error)
}

type tier3Provider interface {
	Tier3(ctx context.Context, dates models.DateRange) (*models.Tier3Report, error)
}

type monthlyProvider interface {
	Monthly(ctx context.Context, month models.MonthKey) (*models.MonthlyCICOSheet, bool, error)
}

// ExportService renders reports into downloadable files.
type ExportService struct {
	analytics dashboardProvider
	triage    tier3Provider
	cico      monthlyProvider
	csv       csvRenderer
	pdf       pdfRenderer
	xlsx      xlsxRenderer
	logger    *zap.Logger
}

// NewExportService constructs the export service with the default renderers.
func NewExportService(analytics dashboardProvider, triage tier3Provider, cico monthlyProvider, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		analytics: analytics,
		triage:    triage,
		cico:      cico,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(true),
		xlsx:      export.NewXLSXExporter(),
		logger:    logger,
	}
}

func (s *ExportService) render(data export.Dataset, format, title, basename string) (*ExportResult, error) {
	var (
		payload []byte
		err     error
	)
	switch strings.ToLower(format) {
	case FormatCSV, "":
		format = FormatCSV
		payload, err = s.csv.Render(data)
	case FormatPDF:
		payload, err = s.pdf.Render(data, title)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format "+format)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render "+format)
	}
	return &ExportResult{
		Filename:    fmt.Sprintf("%s.%s", basename, format),
		ContentType: contentTypes[format],
		Payload:     payload,
	}, nil
}

var riskListHeaders = []string{"Student", "Class", "External Code", "Tier", "Incidents", "Max Intensity"}

// RiskList exports the dashboard risk list as CSV or PDF.
func (s *ExportService) RiskList(ctx context.Context, dates models.DateRange, format string) (*ExportResult, error) {
	dashboard, _, err := s.analytics.Dashboard(ctx, dates)
	if err != nil {
		return nil, err
	}
	data := export.Dataset{Headers: riskListHeaders}
	for _, row := range dashboard.RiskList {
		data.Rows = append(data.Rows, map[string]string{
			"Student":       row.StudentCode,
			"Class":         row.ClassName,
			"External Code": row.ExternalCode,
			"Tier":          string(row.Tier),
			"Incidents":     strconv.Itoa(row.Count),
			"Max Intensity": strconv.Itoa(row.MaxIntensity),
		})
	}
	s.logger.Debug("risk list exported", zap.Int("rows", len(data.Rows)), zap.String("format", format))
	return s.render(data, format, "Risk List", "risk-list")
}

var tier3Headers = []string{"Student", "Class", "Tier", "Incidents", "Max Intensity", "Avg Intensity", "Top Behavior", "Decision", "Memo"}

// Tier3 exports the Tier3 caseload review as CSV or PDF.
func (s *ExportService) Tier3(ctx context.Context, dates models.DateRange, format string) (*ExportResult, error) {
	report, err := s.triage.Tier3(ctx, dates)
	if err != nil {
		return nil, err
	}
	data := export.Dataset{Headers: tier3Headers}
	for _, row := range report.Students {
		top := "-"
		if len(row.BehaviorTypes) > 0 {
			top = row.BehaviorTypes[0].Name
		}
		data.Rows = append(data.Rows, map[string]string{
			"Student":       row.StudentCode,
			"Class":         row.ClassName,
			"Tier":          string(row.Tier),
			"Incidents":     strconv.Itoa(row.Incidents),
			"Max Intensity": strconv.Itoa(row.MaxIntensity),
			"Avg Intensity": strconv.FormatFloat(row.AvgIntensity, 'f', 1, 64),
			"Top Behavior":  top,
			"Decision":      string(row.Decision),
			"Memo":          row.Memo,
		})
	}
	return s.render(data, format, "Tier3 Review", "tier3-review")
}

// CICOGrid exports one month's CICO grid as XLSX, one column per business day.
func (s *ExportService) CICOGrid(ctx context.Context, month models.MonthKey) (*ExportResult, error) {
	sheet, _, err := s.cico.Monthly(ctx, month)
	if err != nil {
		return nil, err
	}
	headers := []string{"Student", "Target Behavior", "Direction", "Scale", "Goal"}
	headers = append(headers, sheet.BusinessDays...)
	headers = append(headers, "Rate", "Achieved")

	data := export.Dataset{Headers: headers}
	for _, record := range sheet.Records {
		row := map[string]string{
			"Student":         record.StudentCode,
			"Target Behavior": record.TargetBehavior,
			"Direction":       record.BehaviorDirection,
			"Scale":           record.ScaleType,
			"Goal":            record.GoalCriteria,
			"Achieved":        string(record.Achieved),
		}
		for _, cell := range record.Days {
			row[cell.Label] = cell.Value
		}
		if record.AchievementRate != nil {
			row["Rate"] = strconv.FormatFloat(*record.AchievementRate, 'f', 1, 64)
		}
		data.Rows = append(data.Rows, row)
	}

	payload, err := s.xlsx.Render(data, month.String())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render xlsx")
	}
	return &ExportResult{
		Filename:    fmt.Sprintf("cico-%s.%s", month.String(), FormatXLSX),
		ContentType: contentTypes[FormatXLSX],
		Payload:     payload,
	}, nil
}
