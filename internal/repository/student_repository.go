package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/pbis-api/internal/models"
)

const studentColumns = `student_code, external_code, class_name, enrolled, tier1, tier2_cico, tier2_sst, tier3, tier3_plus, memo, updated_at`

// StudentRepository manages persistence for the student roster.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FetchStudents returns the whole roster ordered by class then student code.
func (r *StudentRepository) FetchStudents(ctx context.Context) ([]models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students ORDER BY class_name, student_code`, studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// UpdateStudent applies the non-nil fields of update and returns the stored row. A missing
// student surfaces as sql.ErrNoRows.
func (r *StudentRepository) UpdateStudent(ctx context.Context, code string, update models.StudentUpdate) (*models.Student, error) {
	sets := make([]string, 0, 9)
	args := make([]interface{}, 0, 10)
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if update.ExternalCode != nil {
		external := strings.TrimSpace(*update.ExternalCode)
		if external == "" {
			add("external_code", nil)
		} else {
			add("external_code", external)
		}
	}
	if update.Enrolled != nil {
		add("enrolled", *update.Enrolled)
	}
	if update.Tier1 != nil {
		add("tier1", *update.Tier1)
	}
	if update.Tier2CICO != nil {
		add("tier2_cico", *update.Tier2CICO)
	}
	if update.Tier2SST != nil {
		add("tier2_sst", *update.Tier2SST)
	}
	if update.Tier3 != nil {
		add("tier3", *update.Tier3)
	}
	if update.Tier3Plus != nil {
		add("tier3_plus", *update.Tier3Plus)
	}
	if update.Memo != nil {
		add("memo", *update.Memo)
	}
	add("updated_at", time.Now().UTC())
	args = append(args, code)

	query := fmt.Sprintf(`UPDATE students SET %s WHERE student_code = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), studentColumns)
	var stored models.Student
	if err := r.db.GetContext(ctx, &stored, query, args...); err != nil {
		return nil, fmt.Errorf("update student %s: %w", code, err)
	}
	return &stored, nil
}
