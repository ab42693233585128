package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/noah-isme/pbis-api/internal/models"
)

// SheetsIncidentSource reads the behavior log from a Google spreadsheet range whose first
// row holds the column headers.
type SheetsIncidentSource struct {
	svc           *sheetsapi.Service
	spreadsheetID string
	readRange     string
}

// NewSheetsIncidentSource constructs the sheet-backed incident source.
func NewSheetsIncidentSource(svc *sheetsapi.Service, spreadsheetID, readRange string) *SheetsIncidentSource {
	return &SheetsIncidentSource{svc: svc, spreadsheetID: spreadsheetID, readRange: readRange}
}

// FetchIncidents reads and normalises every non-blank row.
func (s *SheetsIncidentSource) FetchIncidents(ctx context.Context) ([]models.BehaviorIncident, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read incident sheet %s: %w", s.readRange, err)
	}
	return incidentsFromValues(resp.Values), nil
}

func incidentsFromValues(values [][]interface{}) []models.BehaviorIncident {
	if len(values) < 2 {
		return []models.BehaviorIncident{}
	}
	headers := make([]string, len(values[0]))
	for i, h := range values[0] {
		headers[i] = strings.TrimSpace(fmt.Sprint(h))
	}

	incidents := make([]models.BehaviorIncident, 0, len(values)-1)
	for n, raw := range values[1:] {
		row := make(map[string]string, len(headers))
		blank := true
		for i, header := range headers {
			if header == "" || i >= len(raw) {
				continue
			}
			cell := strings.TrimSpace(fmt.Sprint(raw[i]))
			if cell != "" {
				blank = false
			}
			row[header] = cell
		}
		if blank {
			continue
		}
		incident := models.IncidentFromRow(row)
		if incident.ID == "" {
			// header row is sheet row 1
			incident.ID = "row-" + strconv.Itoa(n+2)
		}
		incidents = append(incidents, incident)
	}
	return incidents
}
