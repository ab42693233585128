package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/pbis-api/internal/models"
)

type incidentRow struct {
	ID           string         `db:"id"`
	ExternalCode sql.NullString `db:"external_code"`
	IncidentDate sql.NullTime   `db:"incident_date"`
	TimeSlot     sql.NullString `db:"time_slot"`
	Location     sql.NullString `db:"location"`
	BehaviorType sql.NullString `db:"behavior_type"`
	Function     sql.NullString `db:"function"`
	Intensity    sql.NullInt64  `db:"intensity"`
}

func (r incidentRow) toModel() models.BehaviorIncident {
	incident := models.BehaviorIncident{
		ID:           r.ID,
		ExternalCode: r.ExternalCode.String,
		TimeSlot:     r.TimeSlot.String,
		Location:     r.Location.String,
		BehaviorType: r.BehaviorType.String,
		Function:     r.Function.String,
	}
	if r.IncidentDate.Valid {
		incident.IncidentDate = models.DateOnly(r.IncidentDate.Time)
	}
	if r.Intensity.Valid && r.Intensity.Int64 > 0 {
		incident.Intensity = int(r.Intensity.Int64)
	}
	return incident
}

// IncidentRepository reads the behavior incident log from Postgres.
type IncidentRepository struct {
	db *sqlx.DB
}

// NewIncidentRepository constructs an IncidentRepository.
func NewIncidentRepository(db *sqlx.DB) *IncidentRepository {
	return &IncidentRepository{db: db}
}

// FetchIncidents returns every logged incident. Missing columns come back as blanks and
// undated rows keep a zero date.
func (r *IncidentRepository) FetchIncidents(ctx context.Context) ([]models.BehaviorIncident, error) {
	const query = `SELECT id, external_code, incident_date, time_slot, location, behavior_type, function, intensity
FROM behavior_incidents ORDER BY incident_date NULLS LAST, id`
	var rows []incidentRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list behavior incidents: %w", err)
	}
	incidents := make([]models.BehaviorIncident, 0, len(rows))
	for _, row := range rows {
		incidents = append(incidents, row.toModel())
	}
	return incidents, nil
}
