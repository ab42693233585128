package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pbis-api/pkg/config"
	"github.com/noah-isme/pbis-api/pkg/sheets"
)

func TestSheetsIncidentSourceFetchIncidents(t *testing.T) {
	var requested string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"range":          "incidents!A1:H4",
			"majorDimension": "ROWS",
			"values": [][]interface{}{
				{"번호", "코드번호", "행동발생 날짜", "시간대", "장소", "행동유형", "기능", "강도"},
				{"1", "E1", "2025-03-04", "1교시", "교실", "공격", "관심", "4"},
				{"", "", "", "", "", "", "", ""},
				{"", "E2", "언젠가", "점심", "복도", "욕설"},
			},
		})
	}))
	defer server.Close()

	svc, err := sheets.NewService(context.Background(), config.SheetsConfig{SpreadsheetID: "sheet-1", Endpoint: server.URL + "/"})
	require.NoError(t, err)
	source := NewSheetsIncidentSource(svc, "sheet-1", "incidents!A1:H")

	incidents, err := source.FetchIncidents(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.Contains(requested, "/spreadsheets/sheet-1/values/"))
	require.Len(t, incidents, 2)
	assert.Equal(t, "E1", incidents[0].ExternalCode)
	assert.Equal(t, 4, incidents[0].Intensity)
	assert.Equal(t, "2025-03-04", incidents[0].DateLabel())
	assert.Equal(t, "row-4", incidents[1].ID)
	assert.False(t, incidents[1].HasDate())
	assert.Equal(t, "", incidents[1].Function)
}

func TestSheetsIncidentSourceUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":429,"message":"quota"}}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	svc, err := sheets.NewService(context.Background(), config.SheetsConfig{SpreadsheetID: "sheet-1", Endpoint: server.URL + "/"})
	require.NoError(t, err)

	_, err = NewSheetsIncidentSource(svc, "sheet-1", "incidents").FetchIncidents(context.Background())
	assert.Error(t, err)
}

func TestIncidentsFromValuesHeaderOnly(t *testing.T) {
	assert.Empty(t, incidentsFromValues([][]interface{}{{"코드번호"}}))
	assert.Empty(t, incidentsFromValues(nil))
}
