package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pbis-api/internal/models"
	"github.com/noah-isme/pbis-api/internal/repository"
	appErrors "github.com/noah-isme/pbis-api/pkg/errors"
)

type fakeRosterStore struct {
	students []models.Student
	fetches  int
	updates  []models.StudentUpdate
	err      error
}

func (f *fakeRosterStore) FetchStudents(context.Context) ([]models.Student, error) {
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	return append([]models.Student(nil), f.students...), nil
}

func (f *fakeRosterStore) UpdateStudent(_ context.Context, code string, update models.StudentUpdate) (*models.Student, error) {
	for i := range f.students {
		if f.students[i].StudentCode != code {
			continue
		}
		f.updates = append(f.updates, update)
		if update.Tier2CICO != nil {
			f.students[i].Tier2CICO = *update.Tier2CICO
		}
		if update.ExternalCode != nil {
			f.students[i].ExternalCode = update.ExternalCode
		}
		if update.Enrolled != nil {
			f.students[i].Enrolled = *update.Enrolled
		}
		updated := f.students[i]
		return &updated, nil
	}
	return nil, sql.ErrNoRows
}

func newRosterFixture() (*RosterService, *fakeRosterStore, *DatasetService) {
	store := &fakeRosterStore{students: []models.Student{
		student("S1", "E1", "1-1", tier1()),
		{StudentCode: "S2", ClassName: "1-2", Enrolled: false, TierFlags: tier1()},
	}}
	cache := NewCacheService(repository.NewMemoryCacheRepository(newFakeClock().Now), nil, 10*time.Second, "pbis", nil, true)
	dataset := NewDatasetService(store, nil, nil, nil, cache, nil, DatasetTTLs{}, nil)
	return NewRosterService(store, dataset, nil, nil), store, dataset
}

func TestRosterStatusCountsEnrolled(t *testing.T) {
	svc, _, _ := newRosterFixture()

	status, hit, err := svc.Status(context.Background())

	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, status.TotalCount)
	assert.Equal(t, 1, status.EnrolledCount)
}

func TestRosterUpdateInvalidatesCache(t *testing.T) {
	svc, store, dataset := newRosterFixture()
	ctx := context.Background()

	_, _, err := dataset.Students(ctx)
	require.NoError(t, err)
	_, err = svc.Update(ctx, "S1", models.StudentUpdate{Tier2CICO: boolPtr(true)})
	require.NoError(t, err)

	students, hit, err := dataset.Students(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, store.fetches)
	assert.True(t, students[0].Tier2CICO)
}

func TestRosterUpdateKeepsTier1Floor(t *testing.T) {
	svc, store, _ := newRosterFixture()

	_, err := svc.Update(context.Background(), "S1", models.StudentUpdate{Tier1: boolPtr(false)})

	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, store.updates)
}

func TestRosterUpdateTrimsExternalCode(t *testing.T) {
	svc, store, _ := newRosterFixture()

	student, err := svc.Update(context.Background(), "S2", models.StudentUpdate{ExternalCode: strPtr("  E2 "), Enrolled: boolPtr(true)})

	require.NoError(t, err)
	assert.Equal(t, "E2", student.External())
	require.Len(t, store.updates, 1)
	assert.Equal(t, "E2", *store.updates[0].ExternalCode)
}

func TestRosterUpdateUnknownStudent(t *testing.T) {
	svc, _, _ := newRosterFixture()

	_, err := svc.Update(context.Background(), "S404", models.StudentUpdate{Memo: strPtr("note")})

	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestRosterUpdateRejectsEmpty(t *testing.T) {
	svc, _, _ := newRosterFixture()

	_, err := svc.Update(context.Background(), "S1", models.StudentUpdate{})

	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestDatasetWrapsUpstreamFailure(t *testing.T) {
	_, store, dataset := newRosterFixture()
	store.err = errors.New("connection refused")

	_, _, err := dataset.Students(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrUpstreamUnavailable))
}
