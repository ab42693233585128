package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/pbis-api/internal/models"
)

// HolidayRepository lists school holidays.
type HolidayRepository struct {
	db *sqlx.DB
}

// NewHolidayRepository constructs a HolidayRepository.
func NewHolidayRepository(db *sqlx.DB) *HolidayRepository {
	return &HolidayRepository{db: db}
}

// FetchHolidays returns every holiday as YYYY-MM-DD.
func (r *HolidayRepository) FetchHolidays(ctx context.Context) ([]string, error) {
	var dates []time.Time
	if err := r.db.SelectContext(ctx, &dates, `SELECT holiday_date FROM school_holidays ORDER BY holiday_date`); err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.Format(models.DateLayout))
	}
	return out, nil
}
