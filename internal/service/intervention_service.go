package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/pbis-api/internal/models"
	appErrors "github.com/noah-isme/pbis-api/pkg/errors"
)

// InterventionStore persists intervention plans and meeting notes. FetchPlan reports
// sql.ErrNoRows when the student has no plan.
type InterventionStore interface {
	FetchPlan(ctx context.Context, studentCode string) (*models.BehaviorInterventionPlan, error)
	SavePlan(ctx context.Context, plan *models.BehaviorInterventionPlan) error
	FetchMeetingNotes(ctx context.Context) ([]models.MeetingNote, error)
	CreateMeetingNote(ctx context.Context, note *models.MeetingNote) error
}

// Cache keys of intervention records.
const (
	CollectionMeetingNotes = "meeting_notes"
	collectionPlan         = "bip"
)

// PlanCacheKey is the cache key of one student's intervention plan.
func PlanCacheKey(studentCode string) string {
	return collectionPlan + ":" + studentCode
}

// MeetingNoteRequest records one team meeting.
type MeetingNoteRequest struct {
	MeetingType string     `json:"meeting_type" validate:"required,oneof=tier1 tier2 tier3 consultation"`
	Date        time.Time  `json:"date"`
	Content     string     `json:"content" validate:"required"`
	Author      string     `json:"author" validate:"max=100"`
	StudentCode string     `json:"student_code"`
	PeriodStart *time.Time `json:"period_start"`
	PeriodEnd   *time.Time `json:"period_end"`
}

// InterventionService keeps Tier3 intervention plans and the team's meeting notes. Reads
// go through the shared cache and every save drops the key it touched.
type InterventionService struct {
	store     InterventionStore
	roster    rosterReader
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	ttl       time.Duration
}

// NewInterventionService constructs the service. A zero ttl uses the cache default.
func NewInterventionService(store InterventionStore, roster rosterReader, cache *CacheService, metrics *MetricsService, validate *validator.Validate, ttl time.Duration, logger *zap.Logger) *InterventionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InterventionService{store: store, roster: roster, cache: cache, metrics: metrics, validator: validate, logger: logger, ttl: ttl}
}

// Plan returns the student's intervention plan; the bool reports a cache hit.
func (s *InterventionService) Plan(ctx context.Context, studentCode string) (*models.BehaviorInterventionPlan, bool, error) {
	code := strings.TrimSpace(studentCode)
	if code == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "student code is required")
	}
	fetch := func(ctx context.Context) (*models.BehaviorInterventionPlan, error) {
		start := time.Now()
		plan, err := s.store.FetchPlan(ctx, code)
		s.metrics.ObserveStoreQuery(collectionPlan, time.Since(start))
		return plan, err
	}
	plan, hit, err := GetOrFetch(ctx, s.cache, PlanCacheKey(code), s.ttl, fetch)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "no intervention plan for student "+code)
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load intervention plan")
	}
	return plan, hit, nil
}

// SavePlan replaces the student's plan. The plan's student code must be empty or match.
func (s *InterventionService) SavePlan(ctx context.Context, studentCode string, plan models.BehaviorInterventionPlan) (*models.BehaviorInterventionPlan, error) {
	code := strings.TrimSpace(studentCode)
	if code == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student code is required")
	}
	plan.StudentCode = strings.TrimSpace(plan.StudentCode)
	if plan.StudentCode == "" {
		plan.StudentCode = code
	}
	if plan.StudentCode != code {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student code mismatch")
	}
	if err := s.validator.Struct(plan); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid intervention plan")
	}
	if err := s.requireStudent(ctx, code); err != nil {
		return nil, err
	}

	if err := s.store.SavePlan(ctx, &plan); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save intervention plan")
	}
	if err := s.cache.Invalidate(ctx, PlanCacheKey(code)); err != nil {
		s.logger.Warn("intervention plan cache invalidation failed", zap.String("student_code", code), zap.Error(err))
	}
	s.logger.Info("intervention plan saved", zap.String("student_code", code), zap.String("author", plan.Author))
	return &plan, nil
}

func (s *InterventionService) requireStudent(ctx context.Context, code string) error {
	students, _, err := s.roster.Students(ctx)
	if err != nil {
		return err
	}
	for _, student := range students {
		if student.StudentCode == code {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrNotFound, "student "+code+" not found")
}

// SaveMeetingNote records a meeting. A period, when given, must not end before it starts.
func (s *InterventionService) SaveMeetingNote(ctx context.Context, req MeetingNoteRequest) (*models.MeetingNote, error) {
	req.MeetingType = strings.ToLower(strings.TrimSpace(req.MeetingType))
	req.Content = strings.TrimSpace(req.Content)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid meeting note")
	}
	if req.Date.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "meeting date is required")
	}
	if req.PeriodStart != nil && req.PeriodEnd != nil && req.PeriodEnd.Before(*req.PeriodStart) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "period_end must not be before period_start")
	}

	note := &models.MeetingNote{
		MeetingType: req.MeetingType,
		MeetingDate: models.DateOnly(req.Date),
		Content:     req.Content,
		Author:      strings.TrimSpace(req.Author),
		StudentCode: strings.TrimSpace(req.StudentCode),
		PeriodStart: req.PeriodStart,
		PeriodEnd:   req.PeriodEnd,
	}
	if err := s.store.CreateMeetingNote(ctx, note); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save meeting note")
	}
	if err := s.cache.Invalidate(ctx, CollectionMeetingNotes); err != nil {
		s.logger.Warn("meeting notes cache invalidation failed", zap.Error(err))
	}
	s.logger.Info("meeting note saved", zap.String("meeting_type", note.MeetingType), zap.String("id", note.ID))
	return note, nil
}

func (s *InterventionService) meetingNotes(ctx context.Context) ([]models.MeetingNote, bool, error) {
	fetch := func(ctx context.Context) ([]models.MeetingNote, error) {
		start := time.Now()
		notes, err := s.store.FetchMeetingNotes(ctx)
		s.metrics.ObserveStoreQuery(CollectionMeetingNotes, time.Since(start))
		if err != nil {
			return nil, err
		}
		if notes == nil {
			notes = []models.MeetingNote{}
		}
		return notes, nil
	}
	notes, hit, err := GetOrFetch(ctx, s.cache, CollectionMeetingNotes, s.ttl, fetch)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load meeting notes")
	}
	return notes, hit, nil
}

// MeetingNotes lists notes newest first, narrowed by filter.
func (s *InterventionService) MeetingNotes(ctx context.Context, filter models.MeetingNoteFilter) ([]models.MeetingNote, bool, error) {
	notes, hit, err := s.meetingNotes(ctx)
	if err != nil {
		return nil, false, err
	}
	filter.MeetingType = strings.ToLower(strings.TrimSpace(filter.MeetingType))
	filter.StudentCode = strings.TrimSpace(filter.StudentCode)
	out := make([]models.MeetingNote, 0, len(notes))
	for _, note := range notes {
		if filter.Matches(note) {
			out = append(out, note)
		}
	}
	return out, hit, nil
}

// LatestMeetingNotes returns the newest note of each meeting type that has one.
func (s *InterventionService) LatestMeetingNotes(ctx context.Context) (map[string]models.MeetingNote, bool, error) {
	notes, hit, err := s.meetingNotes(ctx)
	if err != nil {
		return nil, false, err
	}
	latest := make(map[string]models.MeetingNote)
	for _, note := range notes {
		if _, seen := latest[note.MeetingType]; !seen {
			latest[note.MeetingType] = note
		}
	}
	return latest, hit, nil
}
