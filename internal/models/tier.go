package models

import "time"

// Tier is a volume-based classification.
type Tier string

const (
	TierOne   Tier = "Tier 1"
	TierTwo   Tier = "Tier 2"
	TierThree Tier = "Tier 3"
)

// Rank orders tiers for sorting; higher is more intensive support.
func (t Tier) Rank() int {
	switch t {
	case TierThree:
		return 3
	case TierTwo:
		return 2
	default:
		return 1
	}
}

// Recommendation is the outcome of the 4-week meeting triage.
type Recommendation string

const (
	RecommendTier3Immediate Recommendation = "Tier 3 (Immediate)"
	RecommendTier2Entry     Recommendation = "Tier 2 (Entry)"
	RecommendMaintainTier1  Recommendation = "Maintain Tier 1"
)

// TierDecisionResult is computed on demand and never persisted.
type TierDecisionResult struct {
	StudentCode      string         `json:"student_code"`
	ClassName        string         `json:"class_name"`
	Classification   Tier           `json:"classification"`
	TotalIncidents   int            `json:"total_incidents"`
	WeeklyAverage    float64        `json:"weekly_avg"`
	IsEmergency      bool           `json:"is_emergency"`
	EmergencyReasons []string       `json:"emergency_reasons"`
	IsTier2Candidate bool           `json:"is_tier2_candidate"`
	Recommendation   Recommendation `json:"recommendation"`
}

// MeetingSummary counts flagged students.
type MeetingSummary struct {
	EmergencyCount      int `json:"emergency_count"`
	Tier2CandidateCount int `json:"tier2_candidate_count"`
}

// MeetingReport is the team-meeting list for a 4-week window.
type MeetingReport struct {
	Period   string               `json:"period"`
	From     time.Time            `json:"from"`
	To       time.Time            `json:"to"`
	Students []TierDecisionResult `json:"students"`
	Summary  MeetingSummary       `json:"summary"`
}

// Tier3Decision is the outcome of the Tier3 caseload review.
type Tier3Decision string

const (
	Tier3DeescalateCICO   Tier3Decision = "De-escalate to Tier2(CICO)"
	Tier3EscalateCrisis   Tier3Decision = "Escalate to Tier3+ (review)"
	Tier3MaintainCrisis   Tier3Decision = "Maintain Tier3+ (crisis)"
	Tier3MaintainObserve  Tier3Decision = "Maintain Tier3 (observe)"
	Tier3MaintainStandard Tier3Decision = "Maintain Tier3"
)

// WeekCount is an incident count for the Monday-start week beginning at WeekStart.
type WeekCount struct {
	WeekStart string `json:"week"`
	Count     int    `json:"count"`
}

// Tier3StudentReview is one row of the Tier3 caseload review.
type Tier3StudentReview struct {
	StudentCode     string        `json:"code"`
	ClassName       string        `json:"class"`
	ExternalCode    string        `json:"external_code"`
	Tier            TierFlag      `json:"tier"`
	Memo            string        `json:"memo"`
	HasIncidentLink bool          `json:"has_incident_link"`
	Incidents       int           `json:"incidents"`
	MaxIntensity    int           `json:"max_intensity"`
	AvgIntensity    float64       `json:"avg_intensity"`
	BehaviorTypes   []NameCount   `json:"behavior_types"`
	WeeklyTrend     []WeekCount   `json:"weekly_trend"`
	Decision        Tier3Decision `json:"decision"`
}

// Tier3Summary aggregates the reviewed caseload.
type Tier3Summary struct {
	TotalStudents  int     `json:"total_students"`
	TotalIncidents int     `json:"total_incidents"`
	AvgIntensity   float64 `json:"avg_intensity"`
}

// Tier3Report is the caseload review for a date range.
type Tier3Report struct {
	From     time.Time            `json:"from"`
	To       time.Time            `json:"to"`
	Students []Tier3StudentReview `json:"students"`
	Summary  Tier3Summary         `json:"summary"`
}

// CICODecision is the outcome of the monthly CICO review.
type CICODecision string

const (
	CICODownShiftTier1  CICODecision = "Tier1 down-shift recommended"
	CICOMaintain        CICODecision = "Maintain CICO (good standing)"
	CICORevisePlan      CICODecision = "Revise CICO plan"
	CICOEscalationTier3 CICODecision = "Tier3 escalation review"
)

// MonthRate is one month's achievement rate; Rate is nil when no usable record exists.
type MonthRate struct {
	Year  int      `json:"year"`
	Month int      `json:"month"`
	Rate  *float64 `json:"rate"`
}

// CICOStudentReview is one row of the monthly CICO review.
type CICOStudentReview struct {
	StudentCode    string       `json:"student_code"`
	ClassName      string       `json:"class_name"`
	TargetBehavior string       `json:"target_behavior"`
	GoalCriteria   string       `json:"goal_criteria"`
	CurrentRate    float64      `json:"current_rate"`
	Achieved       Achievement  `json:"achieved"`
	History        []MonthRate  `json:"history"`
	Decision       CICODecision `json:"decision"`
}

// CICOSummary counts decisions.
type CICOSummary struct {
	Total     int `json:"total"`
	DownShift int `json:"down_shift"`
	Maintain  int `json:"maintain"`
	Revise    int `json:"revise"`
	Escalate  int `json:"escalate"`
}

// CICOReport is the monthly CICO review.
type CICOReport struct {
	Year     int                 `json:"year"`
	Month    int                 `json:"month"`
	Students []CICOStudentReview `json:"students"`
	Summary  CICOSummary         `json:"summary"`
}
