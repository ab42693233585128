package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIncidentFromRowRoundsIntensity(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{"4", 4},
		{"4.9", 5},
		{"4.5", 5},
		{"4.4", 4},
		{"강함", 0},
		{"-2", 0},
	}
	for _, tc := range cases {
		incident := IncidentFromRow(map[string]string{"코드번호": "E1", "강도": tc.raw})
		assert.Equal(t, tc.want, incident.Intensity, tc.raw)
	}
}

func TestIncidentFromRowKeepsRowWithBadDate(t *testing.T) {
	incident := IncidentFromRow(map[string]string{"번호": "7", "code": " E2 ", "date": "언젠가"})

	assert.Equal(t, "7", incident.ID)
	assert.Equal(t, "E2", incident.ExternalCode)
	assert.True(t, incident.IncidentDate.IsZero())
}
