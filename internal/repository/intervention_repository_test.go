package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pbis-api/internal/models"
)

func TestInterventionRepositoryFetchPlan(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInterventionRepository(db)

	rows := sqlmock.NewRows([]string{"student_code", "target_behavior", "hypothesis", "goals", "author", "updated_at"}).
		AddRow("S1", "자리 이탈", "회피 기능", "주 3회 이하", "담임", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM behavior_intervention_plans WHERE student_code = $1")).
		WithArgs("S1").
		WillReturnRows(rows)

	plan, err := repo.FetchPlan(context.Background(), "S1")
	require.NoError(t, err)
	assert.Equal(t, "자리 이탈", plan.TargetBehavior)
	assert.Equal(t, "회피 기능", plan.Hypothesis)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInterventionRepositoryFetchPlanMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInterventionRepository(db)

	mock.ExpectQuery("FROM behavior_intervention_plans").
		WithArgs("S9").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FetchPlan(context.Background(), "S9")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestInterventionRepositorySavePlanUpserts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInterventionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (student_code) DO UPDATE SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	plan := &models.BehaviorInterventionPlan{StudentCode: "S1", CrisisPlan: "상담실 이동"}
	require.NoError(t, repo.SavePlan(context.Background(), plan))
	assert.False(t, plan.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInterventionRepositoryMeetingNotes(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInterventionRepository(db)

	mock.ExpectExec("INSERT INTO meeting_notes").WillReturnResult(sqlmock.NewResult(0, 1))
	note := &models.MeetingNote{MeetingType: models.MeetingTier3, MeetingDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), Content: "사례 검토"}
	require.NoError(t, repo.CreateMeetingNote(context.Background(), note))
	assert.NotEmpty(t, note.ID)
	assert.False(t, note.CreatedAt.IsZero())

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "meeting_type", "meeting_date", "content", "author", "student_code", "period_start", "period_end", "created_at"}).
		AddRow("n2", "tier3", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), "사례 검토", "", "S1", start, nil, time.Now()).
		AddRow("n1", "tier1", time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), "학급 점검", "교감", "", nil, nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM meeting_notes ORDER BY meeting_date DESC, created_at DESC")).WillReturnRows(rows)

	notes, err := repo.FetchMeetingNotes(context.Background())
	require.NoError(t, err)
	require.Len(t, notes, 2)
	require.NotNil(t, notes[0].PeriodStart)
	assert.Equal(t, start, *notes[0].PeriodStart)
	assert.Nil(t, notes[1].PeriodStart)
	assert.NoError(t, mock.ExpectationsWereMet())
}
