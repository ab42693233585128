package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/pbis-api/internal/models"
)

const planColumns = `student_code, target_behavior, hypothesis, goals, prevention_strategies, teaching_strategies, reinforcement_strategies, crisis_plan, evaluation_plan, medication_status, reinforcer_info, other_considerations, author, updated_at`

const meetingNoteColumns = `id, meeting_type, meeting_date, content, author, student_code, period_start, period_end, created_at`

// InterventionRepository stores behavior intervention plans and team meeting notes.
type InterventionRepository struct {
	db *sqlx.DB
}

// NewInterventionRepository constructs an InterventionRepository.
func NewInterventionRepository(db *sqlx.DB) *InterventionRepository {
	return &InterventionRepository{db: db}
}

// FetchPlan loads the plan of one student. A missing plan surfaces as sql.ErrNoRows.
func (r *InterventionRepository) FetchPlan(ctx context.Context, studentCode string) (*models.BehaviorInterventionPlan, error) {
	query := fmt.Sprintf(`SELECT %s FROM behavior_intervention_plans WHERE student_code = $1`, planColumns)
	var plan models.BehaviorInterventionPlan
	if err := r.db.GetContext(ctx, &plan, query, studentCode); err != nil {
		return nil, fmt.Errorf("get intervention plan %s: %w", studentCode, err)
	}
	return &plan, nil
}

// SavePlan inserts the plan or replaces the student's existing one.
func (r *InterventionRepository) SavePlan(ctx context.Context, plan *models.BehaviorInterventionPlan) error {
	plan.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO behavior_intervention_plans (student_code, target_behavior, hypothesis, goals, prevention_strategies, teaching_strategies, reinforcement_strategies, crisis_plan, evaluation_plan, medication_status, reinforcer_info, other_considerations, author, updated_at)
VALUES (:student_code, :target_behavior, :hypothesis, :goals, :prevention_strategies, :teaching_strategies, :reinforcement_strategies, :crisis_plan, :evaluation_plan, :medication_status, :reinforcer_info, :other_considerations, :author, :updated_at)
ON CONFLICT (student_code) DO UPDATE SET
	target_behavior = EXCLUDED.target_behavior,
	hypothesis = EXCLUDED.hypothesis,
	goals = EXCLUDED.goals,
	prevention_strategies = EXCLUDED.prevention_strategies,
	teaching_strategies = EXCLUDED.teaching_strategies,
	reinforcement_strategies = EXCLUDED.reinforcement_strategies,
	crisis_plan = EXCLUDED.crisis_plan,
	evaluation_plan = EXCLUDED.evaluation_plan,
	medication_status = EXCLUDED.medication_status,
	reinforcer_info = EXCLUDED.reinforcer_info,
	other_considerations = EXCLUDED.other_considerations,
	author = EXCLUDED.author,
	updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, plan); err != nil {
		return fmt.Errorf("save intervention plan %s: %w", plan.StudentCode, err)
	}
	return nil
}

// FetchMeetingNotes returns every note, newest meeting first.
func (r *InterventionRepository) FetchMeetingNotes(ctx context.Context) ([]models.MeetingNote, error) {
	query := fmt.Sprintf(`SELECT %s FROM meeting_notes ORDER BY meeting_date DESC, created_at DESC`, meetingNoteColumns)
	var notes []models.MeetingNote
	if err := r.db.SelectContext(ctx, &notes, query); err != nil {
		return nil, fmt.Errorf("list meeting notes: %w", err)
	}
	return notes, nil
}

// CreateMeetingNote inserts a note, assigning its id and creation time.
func (r *InterventionRepository) CreateMeetingNote(ctx context.Context, note *models.MeetingNote) error {
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	note.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO meeting_notes (id, meeting_type, meeting_date, content, author, student_code, period_start, period_end, created_at)
VALUES (:id, :meeting_type, :meeting_date, :content, :author, :student_code, :period_start, :period_end, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, note); err != nil {
		return fmt.Errorf("create meeting note: %w", err)
	}
	return nil
}
