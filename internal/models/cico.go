package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrDuplicateRecord reports a monthly record that already exists for the student and month.
var ErrDuplicateRecord = errors.New("monthly record already exists")

// Achievement is the derived goal outcome of a monthly record.
type Achievement string

const (
	AchievedYes          Achievement = "yes"
	AchievedNo           Achievement = "no"
	AchievedUndetermined Achievement = "undetermined"
)

// Behavior directions as stored on a record.
const (
	DirectionIncrease = "increase"
	DirectionDecrease = "decrease"
)

// Daily outcome marks.
const (
	MarkSuccess = "O"
	MarkFailure = "X"
)

// DayCell is one labelled day column of a monthly record.
type DayCell struct {
	Label string `db:"day_label" json:"label"`
	Value string `db:"value" json:"value"`
}

// MonthKey identifies a monthly period.
type MonthKey struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// NewMonthKey derives the period containing t.
func NewMonthKey(t time.Time) MonthKey {
	return MonthKey{Year: t.Year(), Month: int(t.Month())}
}

// AddMonths steps the key by n months (negative steps back).
func (k MonthKey) AddMonths(n int) MonthKey {
	t := time.Date(k.Year, time.Month(k.Month), 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	return NewMonthKey(t)
}

// Valid reports whether the month is in range.
func (k MonthKey) Valid() bool {
	return k.Year > 0 && k.Month >= 1 && k.Month <= 12
}

func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, k.Month)
}

// DayLabel renders the cell label used for t inside its monthly record ("3/4").
func DayLabel(t time.Time) string {
	return fmt.Sprintf("%d/%d", int(t.Month()), t.Day())
}

// MonthlyCICORecord is one student's CICO row for one month. AchievementRate and Achieved
// are derived from the day cells and settings and must be recomputed after any cell write.
type MonthlyCICORecord struct {
	ID                string      `db:"id" json:"id"`
	Year              int         `db:"year" json:"year"`
	Month             int         `db:"month" json:"month"`
	StudentCode       string      `db:"student_code" json:"student_code"`
	TargetBehavior    string      `db:"target_behavior" json:"target_behavior"`
	BehaviorDirection string      `db:"behavior_direction" json:"behavior_direction"`
	ScaleType         string      `db:"scale_type" json:"scale_type"`
	GoalCriteria      string      `db:"goal_criteria" json:"goal_criteria"`
	Days              []DayCell   `db:"-" json:"days"`
	AchievementRate   *float64    `db:"achievement_rate" json:"achievement_rate"`
	Achieved          Achievement `db:"achieved" json:"achieved"`
	Tier2Status       string      `db:"tier2_status" json:"tier2_status"`
	UpdatedAt         time.Time   `db:"updated_at" json:"updated_at"`
}

// Key returns the record's monthly period.
func (r MonthlyCICORecord) Key() MonthKey {
	return MonthKey{Year: r.Year, Month: r.Month}
}

// Tier2Active reports whether the student is kept in Tier2 for this month. Records
// created before the flag existed count as active.
func (r MonthlyCICORecord) Tier2Active() bool {
	return r.Tier2Status != MarkFailure
}

// CellIndex locates the day cell with the given label.
func (r MonthlyCICORecord) CellIndex(label string) (int, bool) {
	for i, cell := range r.Days {
		if cell.Label == label {
			return i, true
		}
	}
	return -1, false
}

// ParseDayLabel resolves an "M/D" cell label within year.
func ParseDayLabel(year int, label string) (time.Time, bool) {
	var month, day int
	if _, err := fmt.Sscanf(label, "%d/%d", &month, &day); err != nil {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// DailyCICOEntry is one filled day cell, flattened out of its monthly record.
type DailyCICOEntry struct {
	Date        string `json:"date"`
	Label       string `json:"label"`
	StudentCode string `json:"student_code"`
	RecordID    string `json:"record_id"`
	Value       string `json:"value"`
}

// CICOSettings updates a record's intervention settings; nil fields are left untouched.
type CICOSettings struct {
	TargetBehavior    *string `json:"target_behavior"`
	BehaviorDirection *string `json:"behavior_direction"`
	ScaleType         *string `json:"scale_type"`
	GoalCriteria      *string `json:"goal_criteria"`
}

// CellUpdate writes one day cell of a record.
type CellUpdate struct {
	RecordID string `json:"record_id" validate:"required"`
	Label    string `json:"label" validate:"required"`
	Value    string `json:"value"`
}

// MonthlyCICOSheet is the grid for one month.
type MonthlyCICOSheet struct {
	Year         int                 `json:"year"`
	Month        int                 `json:"month"`
	BusinessDays []string            `json:"business_days"`
	Records      []MonthlyCICORecord `json:"records"`
}
