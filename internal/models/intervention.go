package models

import "time"

// Meeting types recorded by the behavior support team.
const (
	MeetingTier1        = "tier1"
	MeetingTier2        = "tier2"
	MeetingTier3        = "tier3"
	MeetingConsultation = "consultation"
)

// BehaviorInterventionPlan is the Tier3 plan kept for one student. A save replaces the
// whole plan.
type BehaviorInterventionPlan struct {
	StudentCode             string    `db:"student_code" json:"student_code"`
	TargetBehavior          string    `db:"target_behavior" json:"target_behavior"`
	Hypothesis              string    `db:"hypothesis" json:"hypothesis"`
	Goals                   string    `db:"goals" json:"goals"`
	PreventionStrategies    string    `db:"prevention_strategies" json:"prevention_strategies"`
	TeachingStrategies      string    `db:"teaching_strategies" json:"teaching_strategies"`
	ReinforcementStrategies string    `db:"reinforcement_strategies" json:"reinforcement_strategies"`
	CrisisPlan              string    `db:"crisis_plan" json:"crisis_plan"`
	EvaluationPlan          string    `db:"evaluation_plan" json:"evaluation_plan"`
	MedicationStatus        string    `db:"medication_status" json:"medication_status"`
	ReinforcerInfo          string    `db:"reinforcer_info" json:"reinforcer_info"`
	OtherConsiderations     string    `db:"other_considerations" json:"other_considerations"`
	Author                  string    `db:"author" json:"author" validate:"max=100"`
	UpdatedAt               time.Time `db:"updated_at" json:"updated_at"`
}

// MeetingNote is one team meeting record, optionally tied to a student and a review period.
type MeetingNote struct {
	ID          string     `db:"id" json:"id"`
	MeetingType string     `db:"meeting_type" json:"meeting_type"`
	MeetingDate time.Time  `db:"meeting_date" json:"meeting_date"`
	Content     string     `db:"content" json:"content"`
	Author      string     `db:"author" json:"author"`
	StudentCode string     `db:"student_code" json:"student_code"`
	PeriodStart *time.Time `db:"period_start" json:"period_start,omitempty"`
	PeriodEnd   *time.Time `db:"period_end" json:"period_end,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// MeetingNoteFilter narrows a note listing. Empty fields match every note.
type MeetingNoteFilter struct {
	MeetingType string
	StudentCode string
}

// Matches reports whether note passes the filter.
func (f MeetingNoteFilter) Matches(note MeetingNote) bool {
	if f.MeetingType != "" && note.MeetingType != f.MeetingType {
		return false
	}
	if f.StudentCode != "" && note.StudentCode != f.StudentCode {
		return false
	}
	return true
}
