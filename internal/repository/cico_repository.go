package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/pbis-api/internal/models"
)

const cicoRecordColumns = `id, year, month, student_code, target_behavior, behavior_direction, scale_type, goal_criteria, achievement_rate, achieved, tier2_status, updated_at`

type dayCellRow struct {
	RecordID string `db:"record_id"`
	models.DayCell
}

// CICORepository persists monthly CICO records. Each record owns an ordered list of day
// cells stored one row per cell so a daily write never rewrites its neighbours.
type CICORepository struct {
	db *sqlx.DB
}

// NewCICORepository constructs a CICORepository.
func NewCICORepository(db *sqlx.DB) *CICORepository {
	return &CICORepository{db: db}
}

// FetchMonthlyRecords returns every record of month with its day cells.
func (r *CICORepository) FetchMonthlyRecords(ctx context.Context, month models.MonthKey) ([]models.MonthlyCICORecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM cico_monthly_records WHERE year = $1 AND month = $2 ORDER BY student_code`, cicoRecordColumns)
	var records []models.MonthlyCICORecord
	if err := r.db.SelectContext(ctx, &records, query, month.Year, month.Month); err != nil {
		return nil, fmt.Errorf("list cico records %s: %w", month, err)
	}
	if len(records) == 0 {
		return records, nil
	}

	ids := make([]string, len(records))
	for i := range records {
		ids[i] = records[i].ID
	}
	var cells []dayCellRow
	const cellQuery = `SELECT record_id, day_label, value FROM cico_day_cells WHERE record_id = ANY($1) ORDER BY record_id, position`
	if err := r.db.SelectContext(ctx, &cells, cellQuery, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list cico day cells %s: %w", month, err)
	}
	byRecord := make(map[string][]models.DayCell, len(records))
	for _, cell := range cells {
		byRecord[cell.RecordID] = append(byRecord[cell.RecordID], cell.DayCell)
	}
	for i := range records {
		records[i].Days = byRecord[records[i].ID]
	}
	return records, nil
}

// FetchRecord loads one record by id.
func (r *CICORepository) FetchRecord(ctx context.Context, id string) (*models.MonthlyCICORecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM cico_monthly_records WHERE id = $1`, cicoRecordColumns)
	var record models.MonthlyCICORecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, fmt.Errorf("get cico record %s: %w", id, err)
	}
	const cellQuery = `SELECT day_label, value FROM cico_day_cells WHERE record_id = $1 ORDER BY position`
	if err := r.db.SelectContext(ctx, &record.Days, cellQuery, id); err != nil {
		return nil, fmt.Errorf("list cico day cells %s: %w", id, err)
	}
	return &record, nil
}

// WriteCell updates exactly one day cell.
func (r *CICORepository) WriteCell(ctx context.Context, id, label, value string) error {
	const query = `UPDATE cico_day_cells SET value = $1 WHERE record_id = $2 AND day_label = $3`
	res, err := r.db.ExecContext(ctx, query, value, id, label)
	if err != nil {
		return fmt.Errorf("write cico cell %s %s: %w", id, label, err)
	}
	return expectAffected(res, "write cico cell")
}

// WriteDerived stores the recomputed achievement fields.
func (r *CICORepository) WriteDerived(ctx context.Context, id string, rate *float64, achieved models.Achievement) error {
	const query = `UPDATE cico_monthly_records SET achievement_rate = $1, achieved = $2, updated_at = $3 WHERE id = $4`
	res, err := r.db.ExecContext(ctx, query, rate, achieved, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("write cico achievement %s: %w", id, err)
	}
	return expectAffected(res, "write cico achievement")
}

// SetTier2Status records whether the student stays in Tier2 for the record's month.
func (r *CICORepository) SetTier2Status(ctx context.Context, id, status string) error {
	const query = `UPDATE cico_monthly_records SET tier2_status = $1, updated_at = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set tier2 status %s: %w", id, err)
	}
	return expectAffected(res, "set tier2 status")
}

// UpdateSettings applies the non-nil settings of one record.
func (r *CICORepository) UpdateSettings(ctx context.Context, id string, settings models.CICOSettings) error {
	sets := make([]string, 0, 5)
	args := make([]interface{}, 0, 6)
	add := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, *value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("target_behavior", settings.TargetBehavior)
	add("behavior_direction", settings.BehaviorDirection)
	add("scale_type", settings.ScaleType)
	add("goal_criteria", settings.GoalCriteria)
	if len(sets) == 0 {
		return nil
	}
	args = append(args, time.Now().UTC())
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE cico_monthly_records SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update cico settings %s: %w", id, err)
	}
	return expectAffected(res, "update cico settings")
}

// CreateRecords inserts records and their day cells in one transaction.
func (r *CICORepository) CreateRecords(ctx context.Context, records []models.MonthlyCICORecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create cico records: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			_ = tx.Rollback()
		}
	}()

	const recordQuery = `INSERT INTO cico_monthly_records (id, year, month, student_code, target_behavior, behavior_direction, scale_type, goal_criteria, achievement_rate, achieved, tier2_status, updated_at)
VALUES (:id, :year, :month, :student_code, :target_behavior, :behavior_direction, :scale_type, :goal_criteria, :achievement_rate, :achieved, :tier2_status, :updated_at)`
	const cellQuery = `INSERT INTO cico_day_cells (record_id, position, day_label, value) VALUES ($1, $2, $3, $4)`
	now := time.Now().UTC()
	for i := range records {
		rec := &records[i]
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if rec.Achieved == "" {
			rec.Achieved = models.AchievedUndetermined
		}
		if rec.Tier2Status == "" {
			rec.Tier2Status = models.MarkSuccess
		}
		rec.UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, recordQuery, rec); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("create cico record for %s %s: %w", rec.StudentCode, rec.Key(), models.ErrDuplicateRecord)
			}
			return fmt.Errorf("create cico record for %s: %w", rec.StudentCode, err)
		}
		for pos, cell := range rec.Days {
			if _, err := tx.ExecContext(ctx, cellQuery, rec.ID, pos, cell.Label, cell.Value); err != nil {
				return fmt.Errorf("create cico cell %s for %s: %w", cell.Label, rec.StudentCode, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create cico records: %w", err)
	}
	commit = true
	return nil
}

// isUniqueViolation reports a Postgres 23505 error.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func expectAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, sql.ErrNoRows)
	}
	return nil
}
