package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/pbis-api/internal/models"
	appErrors "github.com/noah-isme/pbis-api/pkg/errors"
	"github.com/noah-isme/pbis-api/pkg/jobs"
)

// IncidentSource reads the behavior incident log.
type IncidentSource interface {
	FetchIncidents(ctx context.Context) ([]models.BehaviorIncident, error)
}

// RosterStore reads and updates the student roster.
type RosterStore interface {
	FetchStudents(ctx context.Context) ([]models.Student, error)
	UpdateStudent(ctx context.Context, code string, update models.StudentUpdate) (*models.Student, error)
}

// CICOStore persists monthly CICO records. WriteCell touches exactly one day cell and
// reports sql.ErrNoRows when the record has no cell with that label.
type CICOStore interface {
	FetchMonthlyRecords(ctx context.Context, month models.MonthKey) ([]models.MonthlyCICORecord, error)
	FetchRecord(ctx context.Context, id string) (*models.MonthlyCICORecord, error)
	WriteCell(ctx context.Context, id, label, value string) error
	WriteDerived(ctx context.Context, id string, rate *float64, achieved models.Achievement) error
	UpdateSettings(ctx context.Context, id string, settings models.CICOSettings) error
	SetTier2Status(ctx context.Context, id, status string) error
	CreateRecords(ctx context.Context, records []models.MonthlyCICORecord) error
}

// HolidaySource lists non-school dates as YYYY-MM-DD strings.
type HolidaySource interface {
	FetchHolidays(ctx context.Context) ([]string, error)
}

// Cache keys of the upstream collections.
const (
	CollectionRoster    = "roster"
	CollectionIncidents = "incidents"
	CollectionHolidays  = "holidays"
	collectionCICO      = "cico"
)

// CICOCacheKey is the cache key of one month of CICO records.
func CICOCacheKey(month models.MonthKey) string {
	return collectionCICO + ":" + month.String()
}

// DatasetTTLs holds the per-collection cache lifetimes.
type DatasetTTLs struct {
	Roster    time.Duration
	Incidents time.Duration
	CICO      time.Duration
	Holidays  time.Duration
}

// DatasetService is the single read path to the upstream collections. Every read goes
// through the shared cache; every write path calls the matching invalidation.
type DatasetService struct {
	roster    RosterStore
	incidents IncidentSource
	cico      CICOStore
	holidays  HolidaySource
	cache     *CacheService
	metrics   *MetricsService
	ttls      DatasetTTLs
	warm      warmQueue
	logger    *zap.Logger
}

type warmQueue interface {
	Enqueue(job jobs.Job) error
}

// NewDatasetService wires the collaborators.
func NewDatasetService(roster RosterStore, incidents IncidentSource, cico CICOStore, holidays HolidaySource, cache *CacheService, metrics *MetricsService, ttls DatasetTTLs, logger *zap.Logger) *DatasetService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DatasetService{
		roster:    roster,
		incidents: incidents,
		cico:      cico,
		holidays:  holidays,
		cache:     cache,
		metrics:   metrics,
		ttls:      ttls,
		logger:    logger,
	}
}

// fetchCollection times and wraps one upstream read.
func fetchCollection[T any](s *DatasetService, collection string, fetch func(context.Context) ([]T, error)) func(context.Context) ([]T, error) {
	return func(ctx context.Context) ([]T, error) {
		start := time.Now()
		rows, err := fetch(ctx)
		s.metrics.ObserveStoreQuery(collection, time.Since(start))
		if err != nil {
			s.logger.Warn("upstream fetch failed", zap.String("collection", collection), zap.Error(err))
			return nil, appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, "failed to load "+collection)
		}
		if rows == nil {
			rows = []T{}
		}
		return rows, nil
	}
}

// Students returns the roster; the bool reports a cache hit.
func (s *DatasetService) Students(ctx context.Context) ([]models.Student, bool, error) {
	return GetOrFetch(ctx, s.cache, CollectionRoster, s.ttls.Roster,
		fetchCollection(s, CollectionRoster, s.roster.FetchStudents))
}

// Incidents returns the full incident log.
func (s *DatasetService) Incidents(ctx context.Context) ([]models.BehaviorIncident, bool, error) {
	return GetOrFetch(ctx, s.cache, CollectionIncidents, s.ttls.Incidents,
		fetchCollection(s, CollectionIncidents, s.incidents.FetchIncidents))
}

// MonthlyRecords returns every CICO record of one month.
func (s *DatasetService) MonthlyRecords(ctx context.Context, month models.MonthKey) ([]models.MonthlyCICORecord, bool, error) {
	fetch := func(ctx context.Context) ([]models.MonthlyCICORecord, error) {
		records, err := s.cico.FetchMonthlyRecords(ctx, month)
		if err != nil {
			return nil, fmt.Errorf("month %s: %w", month, err)
		}
		return records, nil
	}
	// The metric label stays "cico" for every month; the month only appears in the error.
	return GetOrFetch(ctx, s.cache, CICOCacheKey(month), s.ttls.CICO,
		fetchCollection(s, collectionCICO, fetch))
}

// MonthlyHistory loads several months keyed by period. It fails if any month fails.
func (s *DatasetService) MonthlyHistory(ctx context.Context, months []models.MonthKey) (map[models.MonthKey][]models.MonthlyCICORecord, error) {
	out := make(map[models.MonthKey][]models.MonthlyCICORecord, len(months))
	for _, month := range months {
		records, _, err := s.MonthlyRecords(ctx, month)
		if err != nil {
			return nil, err
		}
		out[month] = records
	}
	return out, nil
}

// Holidays returns the configured non-school dates.
func (s *DatasetService) Holidays(ctx context.Context) ([]string, bool, error) {
	return GetOrFetch(ctx, s.cache, CollectionHolidays, s.ttls.Holidays,
		fetchCollection(s, CollectionHolidays, s.holidays.FetchHolidays))
}

// InvalidateRoster drops the cached roster and schedules a refill.
func (s *DatasetService) InvalidateRoster(ctx context.Context) error {
	if err := s.cache.Invalidate(ctx, CollectionRoster); err != nil {
		return err
	}
	s.scheduleWarm(CollectionRoster, "")
	return nil
}

// InvalidateMonth drops one cached CICO month and schedules a refill.
func (s *DatasetService) InvalidateMonth(ctx context.Context, month models.MonthKey) error {
	if err := s.cache.Invalidate(ctx, CICOCacheKey(month)); err != nil {
		return err
	}
	s.scheduleWarm(collectionCICO, month.String())
	return nil
}

// UseWarmQueue makes every invalidation enqueue a background refetch of the dropped key.
func (s *DatasetService) UseWarmQueue(queue warmQueue) {
	s.warm = queue
}

func (s *DatasetService) scheduleWarm(collection, key string) {
	if s.warm == nil {
		return
	}
	if err := s.warm.Enqueue(jobs.Job{Type: collection, Key: key}); err != nil {
		s.logger.Warn("cache warm not scheduled", zap.String("collection", collection), zap.String("key", key), zap.Error(err))
	}
}

// Warm refetches one collection into the cache. It is the handler of the warm queue.
func (s *DatasetService) Warm(ctx context.Context, job jobs.Job) error {
	switch job.Type {
	case CollectionRoster:
		_, _, err := s.Students(ctx)
		return err
	case collectionCICO:
		t, err := time.Parse("2006-01", job.Key)
		if err != nil {
			return fmt.Errorf("warm cico: invalid month %q", job.Key)
		}
		_, _, err = s.MonthlyRecords(ctx, models.NewMonthKey(t))
		return err
	default:
		return fmt.Errorf("warm: unknown collection %q", job.Type)
	}
}
