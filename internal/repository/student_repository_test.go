package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pbis-api/internal/models"
)

var studentRowColumns = []string{"student_code", "external_code", "class_name", "enrolled", "tier1", "tier2_cico", "tier2_sst", "tier3", "tier3_plus", "memo", "updated_at"}

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestStudentRepositoryFetchStudents(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows(studentRowColumns).
		AddRow("S1", "E1", "1-1", true, true, true, false, false, false, "", time.Now()).
		AddRow("S2", nil, "1-2", false, true, false, false, false, false, "moved", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM students ORDER BY class_name, student_code")).WillReturnRows(rows)

	students, err := repo.FetchStudents(context.Background())
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "E1", students[0].External())
	assert.True(t, students[0].Tier2CICO)
	assert.Nil(t, students[1].ExternalCode)
	assert.False(t, students[1].Enrolled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateStudentBuildsPartialSet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	tier3 := true
	memo := "weekly check-in"
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE students SET tier3 = $1, memo = $2, updated_at = $3 WHERE student_code = $4 RETURNING")).
		WithArgs(true, memo, sqlmock.AnyArg(), "S1").
		WillReturnRows(sqlmock.NewRows(studentRowColumns).
			AddRow("S1", "E1", "1-1", true, true, false, false, true, false, memo, time.Now()))

	stored, err := repo.UpdateStudent(context.Background(), "S1", models.StudentUpdate{Tier3: &tier3, Memo: &memo})
	require.NoError(t, err)
	assert.True(t, stored.Tier3)
	assert.Equal(t, memo, stored.Memo)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateStudentClearsBlankExternalCode(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	blank := "  "
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE students SET external_code = $1, updated_at = $2 WHERE student_code = $3")).
		WithArgs(nil, sqlmock.AnyArg(), "S9").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.UpdateStudent(context.Background(), "S9", models.StudentUpdate{ExternalCode: &blank})
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}
