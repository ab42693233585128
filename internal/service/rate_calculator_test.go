package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pbis-api/internal/models"
)

func days(values ...string) []models.DayCell {
	cells := make([]models.DayCell, len(values))
	for i, v := range values {
		cells[i] = models.DayCell{Label: models.DayLabel(mustDate("2025-03-03").AddDate(0, 0, i)), Value: v}
	}
	return cells
}

func TestComputeRateBinaryIncrease(t *testing.T) {
	result := ComputeRate(days("O", "X", "O", "O", "", "-"), ScaleBinary, DirectionIncrease, "80% 이상")

	require.NotNil(t, result.Rate)
	assert.Equal(t, 75.0, *result.Rate)
	assert.Equal(t, 4, result.FilledDays)
	assert.Equal(t, 6, result.TotalDays)
	assert.Equal(t, models.AchievedNo, result.Achieved)
}

func TestComputeRateBinaryDecreaseCountsX(t *testing.T) {
	result := ComputeRate(days("X", "X", "O", "x"), ScaleBinary, DirectionDecrease, "≥70%")

	require.NotNil(t, result.Rate)
	assert.Equal(t, 75.0, *result.Rate)
	assert.Equal(t, models.AchievedYes, result.Achieved)
}

func TestComputeRateBoundedScore(t *testing.T) {
	result := ComputeRate(days("2", "1", "2", "1"), ScaleScore2, DirectionIncrease, "")

	require.NotNil(t, result.Rate)
	assert.Equal(t, 75.0, *result.Rate)
	assert.Equal(t, models.AchievedUndetermined, result.Achieved)
}

func TestComputeRateDirectionInversionLaw(t *testing.T) {
	cases := []struct {
		scale  Scale
		values []string
	}{
		{ScaleScore2, []string{"0", "1", "2", "2", "1"}},
		{ScaleScore5, []string{"3", "4", "1", "5"}},
		{ScaleScore7, []string{"6", "2", "7", "0", "3", "5"}},
	}
	for _, tc := range cases {
		t.Run(tc.scale.Name(), func(t *testing.T) {
			inc := ComputeRate(days(tc.values...), tc.scale, DirectionIncrease, "")
			dec := ComputeRate(days(tc.values...), tc.scale, DirectionDecrease, "")
			require.NotNil(t, inc.RawRate)
			require.NotNil(t, dec.RawRate)
			assert.InDelta(t, 100-*inc.RawRate, *dec.RawRate, 1e-9)
			assert.InDelta(t, 100-*inc.Rate, *dec.Rate, 0.1)
		})
	}
}

func TestComputeRateEmptyInputLaw(t *testing.T) {
	scales := []Scale{ScaleBinary, ScaleScore2, ScaleScore5, ScaleScore7, ScaleCount, ScaleDuration}
	for _, scale := range scales {
		for _, goal := range []string{"", "80% 이상", "≤20%"} {
			result := ComputeRate(days("", "-", "·", " "), scale, DirectionIncrease, goal)
			assert.Nil(t, result.Rate, scale.Name())
			assert.Equal(t, models.AchievedUndetermined, result.Achieved, scale.Name())
		}
	}
}

func TestComputeRateFreeNumericIsMean(t *testing.T) {
	result := ComputeRate(days("120", "80", "", "160"), ScaleDuration, DirectionDecrease, "≤20%")

	require.NotNil(t, result.Rate)
	assert.Equal(t, 120.0, *result.Rate)
	assert.Equal(t, models.AchievedNo, result.Achieved)
	assert.True(t, result.Unbounded)
	assert.False(t, ComputeRate(days("O"), ScaleBinary, DirectionIncrease, "").Unbounded)
}

func TestComputeRateSkipsMalformedValues(t *testing.T) {
	result := ComputeRate(days("4", "abc", "9", "2"), ScaleScore5, DirectionIncrease, "50% 이상")

	require.NotNil(t, result.Rate)
	assert.Equal(t, 2, result.FilledDays)
	assert.Equal(t, 60.0, *result.Rate)
	assert.Equal(t, models.AchievedYes, result.Achieved)
}

func TestComputeRateAllMalformedIsUndetermined(t *testing.T) {
	result := ComputeRate(days("maybe", "?"), ScaleBinary, DirectionIncrease, "80%")

	assert.Nil(t, result.Rate)
	assert.Equal(t, models.AchievedUndetermined, result.Achieved)
}

func TestComputeRateMalformedGoalIsUndetermined(t *testing.T) {
	result := ComputeRate(days("O", "O"), ScaleBinary, DirectionIncrease, "잘하기")

	require.NotNil(t, result.Rate)
	assert.Equal(t, 100.0, *result.Rate)
	assert.Equal(t, models.AchievedUndetermined, result.Achieved)
}

func TestComputeRateIdempotent(t *testing.T) {
	input := days("O", "X", "O")
	first := ComputeRate(input, ScaleBinary, DirectionIncrease, "60% 이상")
	second := ComputeRate(input, ScaleBinary, DirectionIncrease, "60% 이상")
	assert.Equal(t, first, second)
}

func TestComputeRateRoundsForDisplayOnly(t *testing.T) {
	result := ComputeRate(days("O", "O", "X"), ScaleBinary, DirectionIncrease, "66.7% 이상")

	require.NotNil(t, result.Rate)
	assert.Equal(t, 66.7, *result.Rate)
	assert.InDelta(t, 66.6667, *result.RawRate, 1e-4)
	assert.Equal(t, models.AchievedNo, result.Achieved)
}

func TestComputeRecordRateUnknownScale(t *testing.T) {
	record := models.MonthlyCICORecord{ScaleType: "0-10", Days: days("5")}
	result := ComputeRecordRate(record)
	assert.Nil(t, result.Rate)
	assert.Equal(t, models.AchievedUndetermined, result.Achieved)
}

func TestParseScale(t *testing.T) {
	cases := map[string]Scale{
		"":       ScaleBinary,
		"O/X":    ScaleBinary,
		"0-2점":   ScaleScore2,
		"0~5":    ScaleScore5,
		"0 - 7점": ScaleScore7,
		"횟수":     ScaleCount,
		"지속시간":   ScaleDuration,
	}
	for label, want := range cases {
		got, err := ParseScale(label)
		require.NoError(t, err, label)
		assert.Equal(t, want, got, label)
	}
	_, err := ParseScale("0-10")
	assert.Error(t, err)
}

func TestParseDirection(t *testing.T) {
	dir, ok := ParseDirection("감소 목표행동")
	assert.True(t, ok)
	assert.Equal(t, DirectionDecrease, dir)

	dir, ok = ParseDirection("")
	assert.True(t, ok)
	assert.Equal(t, DirectionIncrease, dir)

	_, ok = ParseDirection("sideways")
	assert.False(t, ok)
}

func TestParseGoalCriteria(t *testing.T) {
	cases := []struct {
		raw  string
		want GoalCriteria
	}{
		{"80% 이상", GoalCriteria{80, AtLeast}},
		{"≥80%", GoalCriteria{80, AtLeast}},
		{"20% 이하", GoalCriteria{20, AtMost}},
		{"≤20%", GoalCriteria{20, AtMost}},
		{"20% or under", GoalCriteria{20, AtMost}},
		{"3회 미만", GoalCriteria{3, Below}},
		{"80", GoalCriteria{80, AtLeast}},
		{"no more than 20%", GoalCriteria{20, AtMost}},
		{"not more than 2 times", GoalCriteria{2, AtMost}},
		{"not less than 80%", GoalCriteria{80, AtLeast}},
		{"no fewer than 4 days", GoalCriteria{4, AtLeast}},
		{"more than 50%", GoalCriteria{50, Above}},
		{"less than 3 times", GoalCriteria{3, Below}},
	}
	for _, tc := range cases {
		got, ok := ParseGoalCriteria(tc.raw)
		require.True(t, ok, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}
	_, ok := ParseGoalCriteria("no number here")
	assert.False(t, ok)
}
