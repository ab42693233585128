package service

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/noah-isme/pbis-api/internal/models"
)

// Direction states whether the target behavior should increase or decrease.
type Direction string

const (
	DirectionIncrease Direction = models.DirectionIncrease
	DirectionDecrease Direction = models.DirectionDecrease
)

// ParseDirection accepts the stored values and the sheet labels ("증가 목표행동").
// An empty value defaults to increase; an unknown one reports false.
func ParseDirection(raw string) (Direction, bool) {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case v == "":
		return DirectionIncrease, true
	case v == "increase" || v == "up" || strings.HasPrefix(v, "증가"):
		return DirectionIncrease, true
	case v == "decrease" || v == "down" || strings.HasPrefix(v, "감소"):
		return DirectionDecrease, true
	default:
		return "", false
	}
}

// Scale is the closed set of measurement scales a monthly record can declare.
// Each variant owns its own scoring strategy.
type Scale interface {
	Name() string
	// score returns the rate over the values it accepted and how many it accepted.
	score(values []string, dir Direction) (float64, int)
}

type binaryScale struct{}

type boundedScale struct {
	max int
}

type freeNumericScale struct {
	unit string
}

// Scale variants.
var (
	ScaleBinary   Scale = binaryScale{}
	ScaleScore2   Scale = boundedScale{max: 2}
	ScaleScore5   Scale = boundedScale{max: 5}
	ScaleScore7   Scale = boundedScale{max: 7}
	ScaleCount    Scale = freeNumericScale{unit: "count"}
	ScaleDuration Scale = freeNumericScale{unit: "duration"}
)

var boundedScalePattern = regexp.MustCompile(`^0\s*[-~–]\s*(\d+)\s*(점|pt|points?)?$`)

// ParseScale resolves a declared scale label. Empty labels default to O/X.
func ParseScale(label string) (Scale, error) {
	v := strings.ToLower(strings.TrimSpace(label))
	switch v {
	case "", "o/x", "ox", "o,x", "binary":
		return ScaleBinary, nil
	case "횟수", "빈도", "count", "frequency":
		return ScaleCount, nil
	case "시간", "지속시간", "분", "duration", "minutes":
		return ScaleDuration, nil
	}
	if m := boundedScalePattern.FindStringSubmatch(v); m != nil {
		switch m[1] {
		case "2":
			return ScaleScore2, nil
		case "5":
			return ScaleScore5, nil
		case "7":
			return ScaleScore7, nil
		}
	}
	return nil, fmt.Errorf("unknown scale type %q", label)
}

func (binaryScale) Name() string { return "O/X" }

func (binaryScale) score(values []string, dir Direction) (float64, int) {
	desired := models.MarkSuccess
	if dir == DirectionDecrease {
		desired = models.MarkFailure
	}
	filled, hits := 0, 0
	for _, raw := range values {
		mark, ok := normalizeMark(raw)
		if !ok {
			continue
		}
		filled++
		if mark == desired {
			hits++
		}
	}
	if filled == 0 {
		return 0, 0
	}
	return float64(hits) / float64(filled) * 100, filled
}

func (s boundedScale) Name() string { return fmt.Sprintf("0-%d", s.max) }

func (s boundedScale) score(values []string, dir Direction) (float64, int) {
	filled, sum := 0, 0.0
	for _, raw := range values {
		v, ok := parseNumber(raw)
		if !ok || v < 0 || v > float64(s.max) {
			continue
		}
		filled++
		sum += v
	}
	if filled == 0 {
		return 0, 0
	}
	maxTotal := float64(filled * s.max)
	if dir == DirectionDecrease {
		return (maxTotal - sum) / maxTotal * 100, filled
	}
	return sum / maxTotal * 100, filled
}

func (s freeNumericScale) Name() string { return s.unit }

// score for free-numeric scales is the plain mean: these scales have no ceiling, so the
// "rate" is not a percentage and may exceed 100.
func (freeNumericScale) score(values []string, _ Direction) (float64, int) {
	filled, sum := 0, 0.0
	for _, raw := range values {
		v, ok := parseNumber(raw)
		if !ok || v < 0 {
			continue
		}
		filled++
		sum += v
	}
	if filled == 0 {
		return 0, 0
	}
	return sum / float64(filled), filled
}

// RateResult is the derived performance of a monthly record.
type RateResult struct {
	Rate       *float64           `json:"rate_percent"`
	RawRate    *float64           `json:"-"`
	Achieved   models.Achievement `json:"achieved"`
	FilledDays int                `json:"filled_days"`
	TotalDays  int                `json:"total_days"`
	// Unbounded marks a free-numeric rate: the plain mean, not a 0-100 percentage.
	Unbounded bool `json:"unbounded,omitempty"`
}

// ComputeRate converts one row of raw day values into an achievement rate. It is pure:
// identical inputs always yield identical output.
func ComputeRate(days []models.DayCell, scale Scale, dir Direction, goalCriteria string) RateResult {
	result := RateResult{Achieved: models.AchievedUndetermined, TotalDays: len(days)}

	values := make([]string, 0, len(days))
	for _, day := range days {
		if isPlaceholder(day.Value) {
			continue
		}
		values = append(values, strings.TrimSpace(day.Value))
	}
	if len(values) == 0 || scale == nil {
		return result
	}

	raw, filled := scale.score(values, dir)
	if filled == 0 {
		return result
	}
	rounded := math.Round(raw*10) / 10
	result.RawRate = &raw
	result.Rate = &rounded
	result.FilledDays = filled
	_, result.Unbounded = scale.(freeNumericScale)

	if goal, ok := ParseGoalCriteria(goalCriteria); ok {
		if goal.Met(raw) {
			result.Achieved = models.AchievedYes
		} else {
			result.Achieved = models.AchievedNo
		}
	}
	return result
}

// ComputeRecordRate applies ComputeRate using the record's own settings. A record whose
// scale or direction cannot be parsed yields an undetermined result rather than a guess.
func ComputeRecordRate(record models.MonthlyCICORecord) RateResult {
	scale, err := ParseScale(record.ScaleType)
	dir, ok := ParseDirection(record.BehaviorDirection)
	if err != nil || !ok {
		return RateResult{Achieved: models.AchievedUndetermined, TotalDays: len(record.Days)}
	}
	return ComputeRate(record.Days, scale, dir, record.GoalCriteria)
}

// Comparator is the direction of a goal threshold.
type Comparator string

const (
	AtLeast Comparator = ">="
	AtMost  Comparator = "<="
	Below   Comparator = "<"
	Above   Comparator = ">"
)

// GoalCriteria is a parsed goal such as "80% 이상" or "≤20%".
type GoalCriteria struct {
	Threshold  float64
	Comparator Comparator
}

// Met compares rate against the threshold.
func (g GoalCriteria) Met(rate float64) bool {
	switch g.Comparator {
	case AtMost:
		return rate <= g.Threshold
	case Below:
		return rate < g.Threshold
	case Above:
		return rate > g.Threshold
	default:
		return rate >= g.Threshold
	}
}

var goalNumberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// Checked in order; negated phrases come first so "no more than" is not read as "more than",
// and ">=" must be seen before ">" and "<=" before "<".
var goalComparators = []struct {
	cmp    Comparator
	tokens []string
}{
	{AtMost, []string{"no more than", "not more than", "no greater than", "not greater than", "not above"}},
	{AtLeast, []string{"no less than", "not less than", "no fewer than", "not fewer than", "not below"}},
	{AtLeast, []string{"≥", ">=", "이상", "or more", "at least"}},
	{AtMost, []string{"≤", "<=", "이하", "or under", "or less", "at most"}},
	{Below, []string{"미만", "<", "below", "less than"}},
	{Above, []string{"초과", ">", "above", "more than"}},
}

// ParseGoalCriteria extracts the threshold and comparator; ≥ is assumed unless the text
// says otherwise. Returns false when no number is present.
func ParseGoalCriteria(raw string) (GoalCriteria, bool) {
	text := strings.ToLower(strings.TrimSpace(raw))
	num := goalNumberPattern.FindString(text)
	if num == "" {
		return GoalCriteria{}, false
	}
	threshold, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return GoalCriteria{}, false
	}
	goal := GoalCriteria{Threshold: threshold, Comparator: AtLeast}
	for _, candidate := range goalComparators {
		if containsAny(text, candidate.tokens) {
			goal.Comparator = candidate.cmp
			break
		}
	}
	return goal, true
}

func containsAny(text string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(text, token) {
			return true
		}
	}
	return false
}

func isPlaceholder(raw string) bool {
	switch strings.TrimSpace(raw) {
	case "", "-", "·":
		return true
	default:
		return false
	}
}

func normalizeMark(raw string) (string, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "O", "○", "◯":
		return models.MarkSuccess, true
	case "X", "×", "✕":
		return models.MarkFailure, true
	default:
		return "", false
	}
}

func parseNumber(raw string) (float64, bool) {
	v := strings.TrimSuffix(strings.TrimSpace(raw), "%")
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
