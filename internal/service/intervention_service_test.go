package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pbis-api/internal/models"
	appErrors "github.com/noah-isme/pbis-api/pkg/errors"
)

type fakeInterventionStore struct {
	plans      map[string]models.BehaviorInterventionPlan
	notes      []models.MeetingNote
	planReads  int
	noteReads  int
	saveErr    error
	fetchErr   error
	createdIDs int
}

func newFakeInterventionStore() *fakeInterventionStore {
	return &fakeInterventionStore{plans: make(map[string]models.BehaviorInterventionPlan)}
}

func (f *fakeInterventionStore) FetchPlan(_ context.Context, code string) (*models.BehaviorInterventionPlan, error) {
	f.planReads++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	plan, ok := f.plans[code]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &plan, nil
}

func (f *fakeInterventionStore) SavePlan(_ context.Context, plan *models.BehaviorInterventionPlan) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	plan.UpdatedAt = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	f.plans[plan.StudentCode] = *plan
	return nil
}

func (f *fakeInterventionStore) FetchMeetingNotes(context.Context) ([]models.MeetingNote, error) {
	f.noteReads++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return append([]models.MeetingNote(nil), f.notes...), nil
}

func (f *fakeInterventionStore) CreateMeetingNote(_ context.Context, note *models.MeetingNote) error {
	f.createdIDs++
	note.ID = fmt.Sprintf("note-%d", f.createdIDs)
	// newest first, like the repository ordering
	f.notes = append([]models.MeetingNote{*note}, f.notes...)
	return nil
}

func newTestInterventionService(store *fakeInterventionStore) *InterventionService {
	roster := &fakeCICODataset{students: []models.Student{student("S1", "E1", "1-1", tier1())}}
	return NewInterventionService(store, roster, newTestCache(newFakeClock()), nil, nil, 0, nil)
}

func TestInterventionPlanReadThroughAndSaveInvalidates(t *testing.T) {
	store := newFakeInterventionStore()
	store.plans["S1"] = models.BehaviorInterventionPlan{StudentCode: "S1", TargetBehavior: "자리 이탈"}
	svc := newTestInterventionService(store)
	ctx := context.Background()

	plan, hit, err := svc.Plan(ctx, "S1")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "자리 이탈", plan.TargetBehavior)

	_, hit, err = svc.Plan(ctx, " S1 ")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, store.planReads)

	saved, err := svc.SavePlan(ctx, "S1", models.BehaviorInterventionPlan{TargetBehavior: "수업 방해", CrisisPlan: "상담실 이동"})
	require.NoError(t, err)
	assert.Equal(t, "S1", saved.StudentCode)
	assert.False(t, saved.UpdatedAt.IsZero())

	plan, hit, err = svc.Plan(ctx, "S1")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "수업 방해", plan.TargetBehavior)
	assert.Equal(t, 2, store.planReads)
}

func TestInterventionPlanMissingIsNotFound(t *testing.T) {
	store := newFakeInterventionStore()
	svc := newTestInterventionService(store)

	_, _, err := svc.Plan(context.Background(), "S1")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, _, err = svc.Plan(context.Background(), "S1")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	assert.Equal(t, 2, store.planReads)
}

func TestInterventionSavePlanRejects(t *testing.T) {
	store := newFakeInterventionStore()
	svc := newTestInterventionService(store)
	ctx := context.Background()

	_, err := svc.SavePlan(ctx, "S1", models.BehaviorInterventionPlan{StudentCode: "S2"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.SavePlan(ctx, "S9", models.BehaviorInterventionPlan{})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	store.saveErr = errors.New("connection reset")
	_, err = svc.SavePlan(ctx, "S1", models.BehaviorInterventionPlan{})
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
	assert.Empty(t, store.plans)
}

func TestInterventionMeetingNotes(t *testing.T) {
	store := newFakeInterventionStore()
	svc := newTestInterventionService(store)
	ctx := context.Background()

	notes, _, err := svc.MeetingNotes(ctx, models.MeetingNoteFilter{})
	require.NoError(t, err)
	assert.Empty(t, notes)

	_, err = svc.SaveMeetingNote(ctx, MeetingNoteRequest{MeetingType: "tier1", Date: mustDate("2025-03-03"), Content: "학급 점검"})
	require.NoError(t, err)
	_, err = svc.SaveMeetingNote(ctx, MeetingNoteRequest{MeetingType: "Tier3", Date: mustDate("2025-03-05"), Content: "사례 검토", StudentCode: "S1"})
	require.NoError(t, err)
	_, err = svc.SaveMeetingNote(ctx, MeetingNoteRequest{MeetingType: "tier1", Date: mustDate("2025-03-10"), Content: "재점검"})
	require.NoError(t, err)

	notes, hit, err := svc.MeetingNotes(ctx, models.MeetingNoteFilter{})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, notes, 3)

	tier3, hit, err := svc.MeetingNotes(ctx, models.MeetingNoteFilter{MeetingType: "TIER3", StudentCode: "S1"})
	require.NoError(t, err)
	assert.True(t, hit)
	require.Len(t, tier3, 1)
	assert.Equal(t, "사례 검토", tier3[0].Content)

	latest, _, err := svc.LatestMeetingNotes(ctx)
	require.NoError(t, err)
	assert.Len(t, latest, 2)
	assert.Equal(t, "재점검", latest[models.MeetingTier1].Content)
	assert.Equal(t, 2, store.noteReads)
}

func TestInterventionSaveMeetingNoteRejects(t *testing.T) {
	svc := newTestInterventionService(newFakeInterventionStore())
	ctx := context.Background()
	start, end := mustDate("2025-03-10"), mustDate("2025-03-01")

	cases := []MeetingNoteRequest{
		{MeetingType: "weekly", Date: mustDate("2025-03-03"), Content: "x"},
		{MeetingType: "tier2", Date: mustDate("2025-03-03"), Content: "  "},
		{MeetingType: "tier2", Content: "x"},
		{MeetingType: "tier2", Date: mustDate("2025-03-03"), Content: "x", PeriodStart: &start, PeriodEnd: &end},
	}
	for _, req := range cases {
		_, err := svc.SaveMeetingNote(ctx, req)
		assert.True(t, errors.Is(err, appErrors.ErrValidation), req.MeetingType)
	}
}
