package models

import "time"

// NameCount is one bucket of a frequency breakdown.
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"value"`
}

// HeatCell is one non-zero location x time-slot cell.
type HeatCell struct {
	Location string `json:"y"`
	TimeSlot string `json:"x"`
	Count    int    `json:"value"`
}

// DailyCount is an incident count for one date.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// RiskStudent is a Tier2+ student on the school-wide risk list.
type RiskStudent struct {
	StudentCode  string `json:"code"`
	ExternalCode string `json:"external_code"`
	ClassName    string `json:"class"`
	Count        int    `json:"count"`
	MaxIntensity int    `json:"max_intensity"`
	Tier         Tier   `json:"tier"`
}

// SafetyAlert is the audit record of one high-severity incident.
type SafetyAlert struct {
	Date         string `json:"date"`
	StudentCode  string `json:"student"`
	Location     string `json:"location"`
	BehaviorType string `json:"type"`
	Intensity    int    `json:"intensity"`
}

// DashboardSummary holds headline counts.
type DashboardSummary struct {
	TotalIncidents   int     `json:"total_incidents"`
	AvgIntensity     float64 `json:"avg_intensity"`
	RiskStudentCount int     `json:"risk_student_count"`
}

// Dashboard is the school-wide aggregate consumed by the reporting layer.
type Dashboard struct {
	Summary      DashboardSummary `json:"summary"`
	Trends       []DailyCount     `json:"trends"`
	Locations    []NameCount      `json:"locations"`
	TimeSlots    []NameCount      `json:"times"`
	Behaviors    []NameCount      `json:"behaviors"`
	Functions    []NameCount      `json:"functions"`
	Heatmap      []HeatCell       `json:"heatmap"`
	RiskList     []RiskStudent    `json:"risk_list"`
	SafetyAlerts []SafetyAlert    `json:"safety_alerts"`
}

// ABCPoint plots one incident by time slot, location and intensity.
type ABCPoint struct {
	TimeSlot  string `json:"x"`
	Location  string `json:"y"`
	Intensity int    `json:"z"`
	Function  string `json:"function"`
}

// StudentProfile is the single-student header.
type StudentProfile struct {
	StudentCode    string    `json:"code"`
	ExternalCode   string    `json:"external_code"`
	ClassName      string    `json:"class"`
	Tier           Tier      `json:"tier"`
	TierFlags      TierFlags `json:"tier_flags"`
	TotalIncidents int       `json:"total_incidents"`
	AvgIntensity   float64   `json:"avg_intensity"`
}

// StudentDetail is the single-student drill-down.
type StudentDetail struct {
	Profile   StudentProfile `json:"profile"`
	ABC       []ABCPoint     `json:"abc_data"`
	Functions []NameCount    `json:"functions"`
	Trend     []DailyCount   `json:"trend"`
}

// SectionStatus reports whether an overview section could be computed.
type SectionStatus struct {
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`
}

// Overview composes the school-wide summaries; a failed section does not hide the others.
type Overview struct {
	GeneratedAt   time.Time      `json:"generated_at"`
	Dashboard     *Dashboard     `json:"dashboard,omitempty"`
	DashboardInfo SectionStatus  `json:"dashboard_status"`
	Meeting       *MeetingReport `json:"meeting,omitempty"`
	MeetingInfo   SectionStatus  `json:"meeting_status"`
	CICO          *CICOReport    `json:"cico,omitempty"`
	CICOInfo      SectionStatus  `json:"cico_status"`
}

// SystemMetrics is a lightweight instrumentation snapshot.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"avg_request_duration_ms"`
	StoreQueryCount          uint64    `json:"store_query_count"`
	AverageStoreQueryMs      float64   `json:"avg_store_query_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
