package service

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/noah-isme/pbis-api/internal/models"
)

// Procedure names used for decision metrics.
const (
	ProcedureMeeting = "meeting"
	ProcedureTier3   = "tier3"
	ProcedureCICO    = "cico"
)

// TierEngine evaluates the tier decision procedures. It is stateless apart from its rules
// and safe for concurrent use.
type TierEngine struct {
	rules *TierRules
}

// NewTierEngine builds an engine; nil rules fall back to the embedded defaults.
func NewTierEngine(rules *TierRules) *TierEngine {
	if rules == nil {
		rules = DefaultTierRules()
	}
	return &TierEngine{rules: rules}
}

// Rules exposes the active thresholds.
func (e *TierEngine) Rules() *TierRules {
	return e.rules
}

// ClassifyBaseline classifies by incident volume and peak intensity alone.
func (e *TierEngine) ClassifyBaseline(count, maxIntensity int) models.Tier {
	tier, _ := decide(e.rules.baselineTable(), baselineFacts{incidents: count, maxIntensity: maxIntensity})
	return tier
}

// MeetingWindow returns the inclusive trailing window ending on ref's calendar day.
func (e *TierEngine) MeetingWindow(ref time.Time) (time.Time, time.Time) {
	to := models.DateOnly(ref)
	from := to.AddDate(0, 0, -(e.rules.Meeting.WindowDays - 1))
	return from, to
}

type studentIncidents struct {
	identity  models.StudentIdentity
	incidents []models.BehaviorIncident
}

// groupByStudent attributes incidents to enrolled students in roster order. Incidents that
// fail resolution or fall outside the range are dropped.
func groupByStudent(incidents []models.BehaviorIncident, idx *IdentifierIndex, dates models.DateRange) []studentIncidents {
	byCode := make(map[string]int)
	var groups []studentIncidents
	for _, incident := range incidents {
		if !dates.Contains(incident.IncidentDate) {
			continue
		}
		identity, ok := idx.ResolveIncident(incident)
		if !ok {
			continue
		}
		pos, seen := byCode[identity.StudentCode]
		if !seen {
			pos = len(groups)
			byCode[identity.StudentCode] = pos
			groups = append(groups, studentIncidents{identity: identity})
		}
		groups[pos].incidents = append(groups[pos].incidents, incident)
	}

	rank := make(map[string]int)
	for i, identity := range idx.Students() {
		rank[identity.StudentCode] = i
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return rank[groups[i].identity.StudentCode] < rank[groups[j].identity.StudentCode]
	})
	return groups
}

// MeetingTriage runs the 4-week team-meeting triage ending on ref. Only students with at
// least one incident in the window are listed.
func (e *TierEngine) MeetingTriage(incidents []models.BehaviorIncident, idx *IdentifierIndex, ref time.Time) models.MeetingReport {
	from, to := e.MeetingWindow(ref)
	report := models.MeetingReport{
		Period:   fmt.Sprintf("%s ~ %s", from.Format(models.DateLayout), to.Format(models.DateLayout)),
		From:     from,
		To:       to,
		Students: []models.TierDecisionResult{},
	}
	weeks := float64(e.rules.Meeting.WindowDays) / 7

	for _, group := range groupByStudent(incidents, idx, models.DateRange{From: &from, To: &to}) {
		reasons := e.emergencyReasons(group.incidents)
		candidate := e.hasConsecutiveWeeks(group.incidents, from, to)
		facts := meetingFacts{emergency: len(reasons) > 0, candidate: candidate}
		recommendation, _ := decide(e.rules.meetingTable(), facts)

		result := models.TierDecisionResult{
			StudentCode:      group.identity.StudentCode,
			ClassName:        group.identity.ClassName,
			Classification:   e.ClassifyBaseline(len(group.incidents), maxIntensity(group.incidents)),
			TotalIncidents:   len(group.incidents),
			WeeklyAverage:    round1(float64(len(group.incidents)) / weeks),
			IsEmergency:      facts.emergency,
			EmergencyReasons: reasons,
			IsTier2Candidate: candidate,
			Recommendation:   recommendation,
		}
		if result.IsEmergency {
			report.Summary.EmergencyCount++
		}
		if result.IsTier2Candidate {
			report.Summary.Tier2CandidateCount++
		}
		report.Students = append(report.Students, result)
	}

	sort.SliceStable(report.Students, func(i, j int) bool {
		return meetingGroup(report.Students[i]) < meetingGroup(report.Students[j])
	})
	return report
}

func meetingGroup(r models.TierDecisionResult) int {
	switch {
	case r.IsEmergency:
		return 0
	case r.IsTier2Candidate:
		return 1
	default:
		return 2
	}
}

func (e *TierEngine) emergencyReasons(incidents []models.BehaviorIncident) []string {
	reasons := []string{}
	m := e.rules.Meeting
	for _, incident := range incidents {
		if incident.Intensity >= m.EmergencyIntensity {
			reasons = append(reasons, fmt.Sprintf("intensity >= %d (high severity)", m.EmergencyIntensity))
			break
		}
	}
	for _, incident := range incidents {
		if e.rules.emergencyPattern.MatchString(incident.BehaviorType) {
			reasons = append(reasons, "restraint or injury keyword in behavior type")
			break
		}
	}
	return reasons
}

// hasConsecutiveWeeks walks every Monday-start week overlapping [from, to], including empty
// ones, so a quiet week resets the streak.
func (e *TierEngine) hasConsecutiveWeeks(incidents []models.BehaviorIncident, from, to time.Time) bool {
	m := e.rules.Meeting
	streak := 0
	for _, week := range weeklyCounts(incidents, weekStart(from), weekStart(to)) {
		if week.Count >= m.WeeklyMinIncidents {
			streak++
		} else {
			streak = 0
		}
		if streak >= m.ConsecutiveWeeks {
			return true
		}
	}
	return false
}

// weekStart returns the Monday on or before t.
func weekStart(t time.Time) time.Time {
	day := models.DateOnly(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// weeklyCounts buckets dated incidents into contiguous Monday-start weeks from first to last.
func weeklyCounts(incidents []models.BehaviorIncident, first, last time.Time) []models.WeekCount {
	counts := make(map[time.Time]int)
	for _, incident := range incidents {
		if incident.HasDate() {
			counts[weekStart(incident.IncidentDate)]++
		}
	}
	var out []models.WeekCount
	for week := first; !week.After(last); week = week.AddDate(0, 0, 7) {
		out = append(out, models.WeekCount{WeekStart: week.Format(models.DateLayout), Count: counts[week]})
	}
	return out
}

func incidentSpan(incidents []models.BehaviorIncident) (time.Time, time.Time, bool) {
	var first, last time.Time
	for _, incident := range incidents {
		if !incident.HasDate() {
			continue
		}
		if first.IsZero() || incident.IncidentDate.Before(first) {
			first = incident.IncidentDate
		}
		if incident.IncidentDate.After(last) {
			last = incident.IncidentDate
		}
	}
	return first, last, !first.IsZero()
}

// Tier3Review evaluates every enrolled Tier3 or Tier3+ student over the date range.
// Students without an external code are listed with no incident data.
func (e *TierEngine) Tier3Review(incidents []models.BehaviorIncident, idx *IdentifierIndex, dates models.DateRange) models.Tier3Report {
	report := models.Tier3Report{Students: []models.Tier3StudentReview{}}
	if dates.From != nil {
		report.From = models.DateOnly(*dates.From)
	}
	if dates.To != nil {
		report.To = models.DateOnly(*dates.To)
	}

	byStudent := make(map[string][]models.BehaviorIncident)
	for _, group := range groupByStudent(incidents, idx, dates) {
		byStudent[group.identity.StudentCode] = group.incidents
	}

	totalIntensity := 0
	for _, identity := range idx.Students() {
		if !identity.Enrolled || !(identity.Tiers.Tier3 || identity.Tiers.Tier3Plus) {
			continue
		}
		own := byStudent[identity.StudentCode]
		row := models.Tier3StudentReview{
			StudentCode:     identity.StudentCode,
			ClassName:       identity.ClassName,
			ExternalCode:    identity.ExternalCode,
			Tier:            models.TierFlag3,
			Memo:            identity.Memo,
			HasIncidentLink: identity.ExternalCode != "",
			Incidents:       len(own),
			MaxIntensity:    maxIntensity(own),
			BehaviorTypes:   countBy(own, func(i models.BehaviorIncident) string { return i.BehaviorType }),
			WeeklyTrend:     []models.WeekCount{},
		}
		if identity.Tiers.Tier3Plus {
			row.Tier = models.TierFlag3Plus
		}
		sum := sumIntensity(own)
		totalIntensity += sum
		if len(own) > 0 {
			row.AvgIntensity = round1(float64(sum) / float64(len(own)))
		}
		if first, last, ok := incidentSpan(own); ok {
			row.WeeklyTrend = weeklyCounts(own, weekStart(first), weekStart(last))
		}
		row.Decision, _ = decide(e.rules.tier3Table(), tier3Facts{
			incidents:    row.Incidents,
			maxIntensity: row.MaxIntensity,
			tier3Plus:    identity.Tiers.Tier3Plus,
		})

		report.Summary.TotalIncidents += row.Incidents
		report.Students = append(report.Students, row)
	}

	report.Summary.TotalStudents = len(report.Students)
	if report.Summary.TotalIncidents > 0 {
		report.Summary.AvgIntensity = round1(float64(totalIntensity) / float64(report.Summary.TotalIncidents))
	}
	sort.SliceStable(report.Students, func(i, j int) bool {
		a, b := report.Students[i], report.Students[j]
		if a.Tier != b.Tier {
			return a.Tier == models.TierFlag3Plus
		}
		return a.Incidents > b.Incidents
	})
	return report
}

// CICOReview evaluates every enrolled Tier2(CICO) student that has a computable rate for
// the month. Rates are recomputed from the day cells rather than read from stored fields.
func (e *TierEngine) CICOReview(records map[models.MonthKey][]models.MonthlyCICORecord, idx *IdentifierIndex, month models.MonthKey) models.CICOReport {
	report := models.CICOReport{Year: month.Year, Month: month.Month, Students: []models.CICOStudentReview{}}
	lookback := e.rules.CICO.LookbackMonths

	for _, identity := range idx.Students() {
		if !identity.Enrolled || !identity.Tiers.Tier2CICO {
			continue
		}
		current, ok := findRecord(records[month], identity.StudentCode)
		if !ok {
			continue
		}
		result := ComputeRecordRate(current)
		if result.RawRate == nil {
			continue
		}

		history := make([]models.MonthRate, 0, lookback+1)
		var previous *float64
		for back := lookback; back >= 1; back-- {
			key := month.AddMonths(-back)
			point := models.MonthRate{Year: key.Year, Month: key.Month}
			if record, found := findRecord(records[key], identity.StudentCode); found {
				prior := ComputeRecordRate(record)
				point.Rate = prior.Rate
				if back == 1 {
					previous = prior.RawRate
				}
			}
			history = append(history, point)
		}
		history = append(history, models.MonthRate{Year: month.Year, Month: month.Month, Rate: result.Rate})

		decision, _ := decide(e.rules.cicoTable(), cicoFacts{current: *result.RawRate, previous: previous})
		report.Students = append(report.Students, models.CICOStudentReview{
			StudentCode:    identity.StudentCode,
			ClassName:      identity.ClassName,
			TargetBehavior: current.TargetBehavior,
			GoalCriteria:   current.GoalCriteria,
			CurrentRate:    *result.Rate,
			Achieved:       result.Achieved,
			History:        history,
			Decision:       decision,
		})

		switch decision {
		case models.CICODownShiftTier1:
			report.Summary.DownShift++
		case models.CICOMaintain:
			report.Summary.Maintain++
		case models.CICORevisePlan:
			report.Summary.Revise++
		default:
			report.Summary.Escalate++
		}
	}
	report.Summary.Total = len(report.Students)
	return report
}

// CICOMonths lists the months CICOReview reads, oldest first.
func (e *TierEngine) CICOMonths(month models.MonthKey) []models.MonthKey {
	keys := make([]models.MonthKey, 0, e.rules.CICO.LookbackMonths+1)
	for back := e.rules.CICO.LookbackMonths; back >= 0; back-- {
		keys = append(keys, month.AddMonths(-back))
	}
	return keys
}

func findRecord(records []models.MonthlyCICORecord, studentCode string) (models.MonthlyCICORecord, bool) {
	for _, record := range records {
		if record.StudentCode == studentCode {
			return record, true
		}
	}
	return models.MonthlyCICORecord{}, false
}

func maxIntensity(incidents []models.BehaviorIncident) int {
	peak := 0
	for _, incident := range incidents {
		if incident.Intensity > peak {
			peak = incident.Intensity
		}
	}
	return peak
}

func sumIntensity(incidents []models.BehaviorIncident) int {
	sum := 0
	for _, incident := range incidents {
		sum += incident.Intensity
	}
	return sum
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
