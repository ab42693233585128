package service

import (
	"sort"
	"strings"

	"github.com/noah-isme/pbis-api/internal/models"
)

// ReportBuilder assembles school-wide and per-student summaries. It performs no I/O.
type ReportBuilder struct {
	engine *TierEngine
}

// NewReportBuilder constructs a builder around the engine's baseline rule.
func NewReportBuilder(engine *TierEngine) *ReportBuilder {
	if engine == nil {
		engine = NewTierEngine(nil)
	}
	return &ReportBuilder{engine: engine}
}

// BuildDashboard aggregates incidents attributed to enrolled students within dates.
// Unresolvable incidents contribute to nothing, including the totals.
func (b *ReportBuilder) BuildDashboard(incidents []models.BehaviorIncident, idx *IdentifierIndex, dates models.DateRange) models.Dashboard {
	groups := groupByStudent(incidents, idx, dates)
	attributed := make([]models.BehaviorIncident, 0, len(incidents))
	for _, group := range groups {
		attributed = append(attributed, group.incidents...)
	}

	dashboard := models.Dashboard{
		Trends:       dailyTrend(attributed),
		Locations:    countBy(attributed, func(i models.BehaviorIncident) string { return i.Location }),
		TimeSlots:    countBy(attributed, func(i models.BehaviorIncident) string { return i.TimeSlot }),
		Behaviors:    countBy(attributed, func(i models.BehaviorIncident) string { return i.BehaviorType }),
		Functions:    countBy(attributed, func(i models.BehaviorIncident) string { return i.Function }),
		Heatmap:      heatmap(attributed),
		RiskList:     []models.RiskStudent{},
		SafetyAlerts: []models.SafetyAlert{},
	}

	severe := b.engine.rules.Baseline.SevereIntensity
	for _, group := range groups {
		peak := maxIntensity(group.incidents)
		tier := b.engine.ClassifyBaseline(len(group.incidents), peak)
		if tier.Rank() >= models.TierTwo.Rank() {
			dashboard.RiskList = append(dashboard.RiskList, models.RiskStudent{
				StudentCode:  group.identity.StudentCode,
				ExternalCode: group.identity.ExternalCode,
				ClassName:    group.identity.ClassName,
				Count:        len(group.incidents),
				MaxIntensity: peak,
				Tier:         tier,
			})
		}
		for _, incident := range group.incidents {
			if incident.Intensity < severe {
				continue
			}
			dashboard.SafetyAlerts = append(dashboard.SafetyAlerts, models.SafetyAlert{
				Date:         incident.DateLabel(),
				StudentCode:  group.identity.StudentCode,
				Location:     orDash(incident.Location),
				BehaviorType: orDash(incident.BehaviorType),
				Intensity:    incident.Intensity,
			})
		}
	}

	sort.SliceStable(dashboard.RiskList, func(i, j int) bool {
		a, c := dashboard.RiskList[i], dashboard.RiskList[j]
		if a.Tier.Rank() != c.Tier.Rank() {
			return a.Tier.Rank() > c.Tier.Rank()
		}
		return a.Count > c.Count
	})
	sort.SliceStable(dashboard.SafetyAlerts, func(i, j int) bool {
		return dashboard.SafetyAlerts[i].Date > dashboard.SafetyAlerts[j].Date
	})

	dashboard.Summary = models.DashboardSummary{
		TotalIncidents:   len(attributed),
		RiskStudentCount: len(dashboard.RiskList),
	}
	if len(attributed) > 0 {
		dashboard.Summary.AvgIntensity = round1(float64(sumIntensity(attributed)) / float64(len(attributed)))
	}
	return dashboard
}

// BuildStudentDetail drills into one student. A student without an external code, or one
// that is not enrolled, yields an empty profile rather than an error.
func (b *ReportBuilder) BuildStudentDetail(incidents []models.BehaviorIncident, idx *IdentifierIndex, identity models.StudentIdentity) models.StudentDetail {
	var own []models.BehaviorIncident
	for _, incident := range incidents {
		resolved, ok := idx.ResolveIncident(incident)
		if ok && resolved.StudentCode == identity.StudentCode {
			own = append(own, incident)
		}
	}

	detail := models.StudentDetail{
		Profile: models.StudentProfile{
			StudentCode:    identity.StudentCode,
			ExternalCode:   identity.ExternalCode,
			ClassName:      identity.ClassName,
			Tier:           b.engine.ClassifyBaseline(len(own), maxIntensity(own)),
			TierFlags:      identity.Tiers,
			TotalIncidents: len(own),
		},
		ABC:       make([]models.ABCPoint, 0, len(own)),
		Functions: countBy(own, func(i models.BehaviorIncident) string { return i.Function }),
		Trend:     dailyTrend(own),
	}
	if len(own) > 0 {
		detail.Profile.AvgIntensity = round1(float64(sumIntensity(own)) / float64(len(own)))
	}
	for _, incident := range own {
		detail.ABC = append(detail.ABC, models.ABCPoint{
			TimeSlot:  orUnknown(incident.TimeSlot),
			Location:  orUnknown(incident.Location),
			Intensity: incident.Intensity,
			Function:  orUnknown(incident.Function),
		})
	}
	return detail
}

// countBy builds a frequency breakdown sorted by count descending, then name. Blank
// values are not a category.
func countBy(incidents []models.BehaviorIncident, key func(models.BehaviorIncident) string) []models.NameCount {
	counts := make(map[string]int)
	for _, incident := range incidents {
		name := strings.TrimSpace(key(incident))
		if name == "" {
			continue
		}
		counts[name]++
	}
	out := make([]models.NameCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, models.NameCount{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func heatmap(incidents []models.BehaviorIncident) []models.HeatCell {
	type cell struct{ location, slot string }
	counts := make(map[cell]int)
	for _, incident := range incidents {
		location, slot := strings.TrimSpace(incident.Location), strings.TrimSpace(incident.TimeSlot)
		if location == "" || slot == "" {
			continue
		}
		counts[cell{location, slot}]++
	}
	out := make([]models.HeatCell, 0, len(counts))
	for c, count := range counts {
		out = append(out, models.HeatCell{Location: c.location, TimeSlot: c.slot, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Location != out[j].Location {
			return out[i].Location < out[j].Location
		}
		return out[i].TimeSlot < out[j].TimeSlot
	})
	return out
}

func dailyTrend(incidents []models.BehaviorIncident) []models.DailyCount {
	counts := make(map[string]int)
	for _, incident := range incidents {
		if incident.HasDate() {
			counts[incident.DateLabel()]++
		}
	}
	out := make([]models.DailyCount, 0, len(counts))
	for date, count := range counts {
		out = append(out, models.DailyCount{Date: date, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func orDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}

func orUnknown(v string) string {
	if strings.TrimSpace(v) == "" {
		return "Unknown"
	}
	return v
}
