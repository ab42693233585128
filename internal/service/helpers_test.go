package service

import (
	"time"

	"github.com/noah-isme/pbis-api/internal/models"
)

func mustDate(raw string) time.Time {
	t, err := time.Parse(models.DateLayout, raw)
	if err != nil {
		panic(err)
	}
	return t
}

func strPtr(v string) *string { return &v }

func boolPtr(v bool) *bool { return &v }

func floatPtr(v float64) *float64 { return &v }

func student(code, external, class string, flags models.TierFlags) models.Student {
	s := models.Student{StudentCode: code, ClassName: class, Enrolled: true, TierFlags: flags}
	if external != "" {
		s.ExternalCode = strPtr(external)
	}
	return s
}

func incident(external, date string, intensity int, behavior string) models.BehaviorIncident {
	return models.BehaviorIncident{
		ExternalCode: external,
		IncidentDate: mustDate(date),
		TimeSlot:     "1교시",
		Location:     "교실",
		BehaviorType: behavior,
		Function:     "관심",
		Intensity:    intensity,
	}
}

func tier1() models.TierFlags { return models.TierFlags{Tier1: true} }
