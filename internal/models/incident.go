package models

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// BehaviorIncident is one observed behavior event. Incidents reference students through
// the external behavior-system code, never the student code.
type BehaviorIncident struct {
	ID           string    `db:"id" json:"id"`
	ExternalCode string    `db:"external_code" json:"external_code"`
	IncidentDate time.Time `db:"incident_date" json:"incident_date"`
	TimeSlot     string    `db:"time_slot" json:"time_slot"`
	Location     string    `db:"location" json:"location"`
	BehaviorType string    `db:"behavior_type" json:"behavior_type"`
	Function     string    `db:"function" json:"function"`
	Intensity    int       `db:"intensity" json:"intensity"`
}

// HasDate reports whether the incident carried a parseable date.
func (i BehaviorIncident) HasDate() bool {
	return !i.IncidentDate.IsZero()
}

// DateLabel renders the incident date as YYYY-MM-DD, or "-" when unknown.
func (i BehaviorIncident) DateLabel() string {
	if !i.HasDate() {
		return "-"
	}
	return i.IncidentDate.Format(DateLayout)
}

// DateLayout is the canonical calendar-date layout.
const DateLayout = "2006-01-02"

var incidentDateLayouts = []string{DateLayout, "2006/01/02", "2006.01.02", "2006-1-2", "2006/1/2", "2006. 1. 2", time.RFC3339}

// ParseDate parses the date formats seen in incident logs. Returns false for anything else.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSuffix(strings.TrimSpace(raw), ".")
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range incidentDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return DateOnly(t), true
		}
	}
	return time.Time{}, false
}

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// incidentColumns maps each field to the header names used by the behavior-log sheet.
var incidentColumns = map[string][]string{
	"id":            {"번호", "id"},
	"external_code": {"코드번호", "external_code", "code"},
	"incident_date": {"행동발생 날짜", "incident_date", "date"},
	"time_slot":     {"시간대", "time_slot"},
	"location":      {"장소", "location"},
	"behavior_type": {"행동유형", "behavior_type"},
	"function":      {"기능", "function"},
	"intensity":     {"강도", "intensity"},
}

// IncidentFromRow normalises a loosely-typed log row. Fractional intensities round to the
// nearest whole level. A malformed intensity becomes 0 and an unparseable date leaves
// IncidentDate zero; neither drops the row.
func IncidentFromRow(row map[string]string) BehaviorIncident {
	get := func(field string) string {
		for _, header := range incidentColumns[field] {
			if v, ok := row[header]; ok {
				return strings.TrimSpace(v)
			}
		}
		return ""
	}

	incident := BehaviorIncident{
		ID:           get("id"),
		ExternalCode: get("external_code"),
		TimeSlot:     get("time_slot"),
		Location:     get("location"),
		BehaviorType: get("behavior_type"),
		Function:     get("function"),
	}
	if d, ok := ParseDate(get("incident_date")); ok {
		incident.IncidentDate = d
	}
	if v, err := strconv.ParseFloat(get("intensity"), 64); err == nil && v > 0 {
		incident.Intensity = int(math.Round(v))
	}
	return incident
}

// DateRange bounds an inclusive calendar range. Nil ends are open.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// Contains reports whether the incident date falls within the range. Undated incidents
// only match a fully open range.
func (r DateRange) Contains(t time.Time) bool {
	if r.From == nil && r.To == nil {
		return true
	}
	if t.IsZero() {
		return false
	}
	day := DateOnly(t)
	if r.From != nil && day.Before(DateOnly(*r.From)) {
		return false
	}
	if r.To != nil && day.After(DateOnly(*r.To)) {
		return false
	}
	return true
}
