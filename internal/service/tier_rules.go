package service

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/pbis-api/internal/models"
)

//go:embed rules/tier_rules.yaml
var defaultTierRulesYAML []byte

// TierRules holds every threshold used by the tier decision procedures.
type TierRules struct {
	Baseline BaselineRules `yaml:"baseline"`
	Meeting  MeetingRules  `yaml:"meeting"`
	Tier3    Tier3Rules    `yaml:"tier3"`
	CICO     CICORules     `yaml:"cico"`

	emergencyPattern *regexp.Regexp
}

// BaselineRules classify by incident volume alone.
type BaselineRules struct {
	Tier2MinIncidents int `yaml:"tier2_min_incidents"`
	Tier3MinIncidents int `yaml:"tier3_min_incidents"`
	SevereIntensity   int `yaml:"severe_intensity"`
}

// MeetingRules drive the 4-week team-meeting triage.
type MeetingRules struct {
	WindowDays         int    `yaml:"window_days"`
	WeeklyMinIncidents int    `yaml:"weekly_min_incidents"`
	ConsecutiveWeeks   int    `yaml:"consecutive_weeks"`
	EmergencyIntensity int    `yaml:"emergency_intensity"`
	EmergencyPattern   string `yaml:"emergency_pattern"`
}

// Tier3Rules drive the Tier3 caseload review.
type Tier3Rules struct {
	CrisisIntensity     int `yaml:"crisis_intensity"`
	CrisisIncidents     int `yaml:"crisis_incidents"`
	StableMaxIncidents  int `yaml:"stable_max_incidents"`
	StableMaxIntensity  int `yaml:"stable_max_intensity"`
	ObserveMaxIncidents int `yaml:"observe_max_incidents"`
}

// CICORules drive the monthly CICO review.
type CICORules struct {
	SuccessRate    float64 `yaml:"success_rate"`
	RevisionRate   float64 `yaml:"revision_rate"`
	LookbackMonths int     `yaml:"lookback_months"`
}

// DefaultTierRules returns the embedded thresholds.
func DefaultTierRules() *TierRules {
	rules, err := parseTierRules(defaultTierRulesYAML, nil)
	if err != nil {
		panic(fmt.Sprintf("embedded tier rules are invalid: %v", err))
	}
	return rules
}

// LoadTierRules reads an override file on top of the embedded defaults. An empty path
// returns the defaults.
func LoadTierRules(path string) (*TierRules, error) {
	base := DefaultTierRules()
	if path == "" {
		return base, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tier rules %s: %w", path, err)
	}
	return parseTierRules(raw, base)
}

func parseTierRules(raw []byte, base *TierRules) (*TierRules, error) {
	rules := &TierRules{}
	if base != nil {
		*rules = *base
	}
	if err := yaml.Unmarshal(raw, rules); err != nil {
		return nil, fmt.Errorf("unmarshal tier rules: %w", err)
	}
	if err := rules.validate(); err != nil {
		return nil, err
	}
	pattern, err := regexp.Compile(rules.Meeting.EmergencyPattern)
	if err != nil {
		return nil, fmt.Errorf("compile emergency pattern: %w", err)
	}
	rules.emergencyPattern = pattern
	return rules, nil
}

func (r *TierRules) validate() error {
	switch {
	case r.Baseline.Tier2MinIncidents <= 0 || r.Baseline.Tier3MinIncidents < r.Baseline.Tier2MinIncidents:
		return fmt.Errorf("baseline incident thresholds must satisfy 0 < tier2 <= tier3")
	case r.Meeting.WindowDays <= 0 || r.Meeting.ConsecutiveWeeks <= 0:
		return fmt.Errorf("meeting window and consecutive weeks must be positive")
	case r.Meeting.EmergencyPattern == "":
		return fmt.Errorf("meeting emergency pattern must not be empty")
	case r.CICO.RevisionRate > r.CICO.SuccessRate:
		return fmt.Errorf("cico revision rate must not exceed success rate")
	case r.CICO.LookbackMonths < 1:
		return fmt.Errorf("cico lookback must cover at least one month")
	}
	return nil
}

// rule is one row of an ordered decision table; the first matching row wins.
type rule[F any, O any] struct {
	name string
	when func(F) bool
	then func(F) O
}

func decide[F any, O any](table []rule[F, O], facts F) (O, string) {
	for _, row := range table {
		if row.when(facts) {
			return row.then(facts), row.name
		}
	}
	var zero O
	return zero, ""
}

func always[F any](F) bool { return true }

func outcome[F any, O any](o O) func(F) O {
	return func(F) O { return o }
}

type baselineFacts struct {
	incidents    int
	maxIntensity int
}

func (r *TierRules) baselineTable() []rule[baselineFacts, models.Tier] {
	b := r.Baseline
	return []rule[baselineFacts, models.Tier]{
		{
			name: "tier3_volume_or_severity",
			when: func(f baselineFacts) bool {
				return f.incidents >= b.Tier3MinIncidents || f.maxIntensity >= b.SevereIntensity
			},
			then: outcome[baselineFacts](models.TierThree),
		},
		{
			name: "tier2_volume",
			when: func(f baselineFacts) bool { return f.incidents >= b.Tier2MinIncidents },
			then: outcome[baselineFacts](models.TierTwo),
		},
		{name: "default", when: always[baselineFacts], then: outcome[baselineFacts](models.TierOne)},
	}
}

type meetingFacts struct {
	emergency bool
	candidate bool
}

func (r *TierRules) meetingTable() []rule[meetingFacts, models.Recommendation] {
	return []rule[meetingFacts, models.Recommendation]{
		{
			name: "emergency",
			when: func(f meetingFacts) bool { return f.emergency },
			then: outcome[meetingFacts](models.RecommendTier3Immediate),
		},
		{
			name: "tier2_candidate",
			when: func(f meetingFacts) bool { return f.candidate },
			then: outcome[meetingFacts](models.RecommendTier2Entry),
		},
		{name: "default", when: always[meetingFacts], then: outcome[meetingFacts](models.RecommendMaintainTier1)},
	}
}

type tier3Facts struct {
	incidents    int
	maxIntensity int
	tier3Plus    bool
}

func (r *TierRules) tier3Table() []rule[tier3Facts, models.Tier3Decision] {
	t := r.Tier3
	return []rule[tier3Facts, models.Tier3Decision]{
		{
			name: "no_incidents",
			when: func(f tier3Facts) bool { return f.incidents == 0 },
			then: outcome[tier3Facts](models.Tier3DeescalateCICO),
		},
		{
			name: "crisis",
			when: func(f tier3Facts) bool {
				return f.maxIntensity >= t.CrisisIntensity || f.incidents >= t.CrisisIncidents
			},
			then: func(f tier3Facts) models.Tier3Decision {
				if f.tier3Plus {
					return models.Tier3MaintainCrisis
				}
				return models.Tier3EscalateCrisis
			},
		},
		{
			name: "stable",
			when: func(f tier3Facts) bool {
				return f.incidents <= t.StableMaxIncidents && f.maxIntensity < t.StableMaxIntensity
			},
			then: outcome[tier3Facts](models.Tier3DeescalateCICO),
		},
		{
			name: "observe",
			when: func(f tier3Facts) bool { return f.incidents <= t.ObserveMaxIncidents },
			then: outcome[tier3Facts](models.Tier3MaintainObserve),
		},
		{name: "default", when: always[tier3Facts], then: outcome[tier3Facts](models.Tier3MaintainStandard)},
	}
}

type cicoFacts struct {
	current  float64
	previous *float64
}

func (r *TierRules) cicoTable() []rule[cicoFacts, models.CICODecision] {
	c := r.CICO
	return []rule[cicoFacts, models.CICODecision]{
		{
			name: "two_consecutive_successes",
			when: func(f cicoFacts) bool {
				return f.previous != nil && *f.previous >= c.SuccessRate && f.current >= c.SuccessRate
			},
			then: outcome[cicoFacts](models.CICODownShiftTier1),
		},
		{
			name: "good_standing",
			when: func(f cicoFacts) bool { return f.current >= c.SuccessRate },
			then: outcome[cicoFacts](models.CICOMaintain),
		},
		{
			name: "partial",
			when: func(f cicoFacts) bool { return f.current >= c.RevisionRate },
			then: outcome[cicoFacts](models.CICORevisePlan),
		},
		{name: "default", when: always[cicoFacts], then: outcome[cicoFacts](models.CICOEscalationTier3)},
	}
}
