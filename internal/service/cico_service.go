package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/pbis-api/internal/models"
	appErrors "github.com/noah-isme/pbis-api/pkg/errors"
)

// School-year months that carry CICO records.
const (
	FirstSchoolMonth = 3
	LastSchoolMonth  = 12
)

type cicoDataset interface {
	Students(ctx context.Context) ([]models.Student, bool, error)
	MonthlyRecords(ctx context.Context, month models.MonthKey) ([]models.MonthlyCICORecord, bool, error)
	Holidays(ctx context.Context) ([]string, bool, error)
	InvalidateMonth(ctx context.Context, month models.MonthKey) error
}

// DailyEntryRequest is one day's CICO check-out for a student.
type DailyEntryRequest struct {
	StudentCode string    `json:"student_code" validate:"required"`
	Date        time.Time `json:"date" validate:"required"`
	Target1     string    `json:"target1" validate:"cico_value"`
	Target2     string    `json:"target2" validate:"cico_value"`
}

// CellBatchRequest edits several grid cells of one month.
type CellBatchRequest struct {
	Year    int                 `json:"year" validate:"required,min=2000"`
	Month   int                 `json:"month" validate:"required,min=3,max=12"`
	Updates []models.CellUpdate `json:"updates" validate:"required,min=1,dive"`
}

// SettingsRequest updates one student's intervention settings for a month.
type SettingsRequest struct {
	Year        int                 `json:"year" validate:"required,min=2000"`
	Month       int                 `json:"month" validate:"required,min=3,max=12"`
	StudentCode string              `json:"student_code" validate:"required"`
	Settings    models.CICOSettings `json:"settings"`
}

// Tier2ToggleRequest marks whether a student stays in Tier2 for one month ("O" or "X").
type Tier2ToggleRequest struct {
	Year        int    `json:"year" validate:"required,min=2000"`
	Month       int    `json:"month" validate:"required,min=3,max=12"`
	StudentCode string `json:"student_code" validate:"required"`
	Status      string `json:"status" validate:"required,oneof=O X"`
}

// DailyRecordQuery narrows the daily listing. A nil To means today and a nil From means
// the first day of To's month.
type DailyRecordQuery struct {
	StudentCode string
	From        *time.Time
	To          *time.Time
}

// maxDailyListingMonths bounds how many monthly grids one daily listing may read.
const maxDailyListingMonths = 12

// CICOService folds daily entries into monthly records and manages the monthly grid.
type CICOService struct {
	store     CICOStore
	dataset   cicoDataset
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	newID     func() string
	now       func() time.Time
}

// NewCICOService constructs the service.
func NewCICOService(store CICOStore, dataset cicoDataset, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *CICOService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &CICOService{store: store, dataset: dataset, metrics: metrics, validator: validate, logger: logger, newID: uuid.NewString, now: time.Now}
	svc.validator.RegisterValidation("cico_value", func(fl validator.FieldLevel) bool {
		return validCellValue(fl.Field().String())
	})
	return svc
}

func validCellValue(raw string) bool {
	if isPlaceholder(raw) {
		return true
	}
	if _, ok := normalizeMark(raw); ok {
		return true
	}
	v, ok := parseNumber(raw)
	return ok && v >= 0
}

// DailyOutcome derives the single mark written for a day. Both targets present: O only
// when both are O. One present: that value verbatim. Neither: false.
func DailyOutcome(target1, target2 string) (string, bool) {
	t1, t2 := strings.TrimSpace(target1), strings.TrimSpace(target2)
	switch {
	case t1 != "" && t2 != "":
		m1, _ := normalizeMark(t1)
		m2, _ := normalizeMark(t2)
		if m1 == models.MarkSuccess && m2 == models.MarkSuccess {
			return models.MarkSuccess, true
		}
		return models.MarkFailure, true
	case t1 != "":
		return t1, true
	case t2 != "":
		return t2, true
	default:
		return "", false
	}
}

func recordNotFound(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrRecordNotFound.Code, appErrors.ErrRecordNotFound.Status, message)
}

// ApplyDailyEntry writes the day's outcome into the student's monthly record and refreshes
// its derived fields. Only the one day cell is written; every other cell is left as stored.
// It returns nil, nil when the entry carries no value.
func (s *CICOService) ApplyDailyEntry(ctx context.Context, req DailyEntryRequest) (*models.MonthlyCICORecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid daily entry")
	}
	if req.Date.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "entry date is required")
	}
	mark, ok := DailyOutcome(req.Target1, req.Target2)
	if !ok {
		s.metrics.RecordReconciliation(ReconcileSkipped)
		return nil, nil
	}

	month := models.NewMonthKey(req.Date)
	label := models.DayLabel(req.Date)
	records, err := s.store.FetchMonthlyRecords(ctx, month)
	if err != nil {
		s.metrics.RecordReconciliation(ReconcileFailed)
		return nil, appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, "failed to load monthly records")
	}
	record, found := findRecord(records, strings.TrimSpace(req.StudentCode))
	if !found {
		s.metrics.RecordReconciliation(ReconcileNotFound)
		return nil, recordNotFound(nil, "no monthly record for student "+req.StudentCode+" in "+month.String())
	}
	if _, hasCell := record.CellIndex(label); !hasCell {
		s.metrics.RecordReconciliation(ReconcileNotFound)
		return nil, recordNotFound(nil, "monthly record "+month.String()+" has no day "+label+" for student "+req.StudentCode)
	}

	if err := s.writeCell(ctx, record.ID, label, mark); err != nil {
		s.recordWriteFailure(err)
		return nil, err
	}
	// The cell is stored from here on, so the cached month is stale even if the recompute fails.
	defer s.invalidate(ctx, month)
	updated, err := s.recompute(ctx, record.ID)
	if err != nil {
		s.recordWriteFailure(err)
		return nil, err
	}
	s.metrics.RecordReconciliation(ReconcileApplied)
	s.logger.Info("daily cico entry applied",
		zap.String("student_code", record.StudentCode),
		zap.String("day", label),
		zap.String("mark", mark))
	return updated, nil
}

func (s *CICOService) recordWriteFailure(err error) {
	if errors.Is(err, appErrors.ErrRecordNotFound) {
		s.metrics.RecordReconciliation(ReconcileNotFound)
		return
	}
	s.metrics.RecordReconciliation(ReconcileFailed)
}

// writeCell writes one cell only. Callers recompute afterwards by re-reading the full row,
// so concurrent writes to other cells are part of the recomputed rate.
func (s *CICOService) writeCell(ctx context.Context, id, label, value string) error {
	if err := s.store.WriteCell(ctx, id, label, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return recordNotFound(err, "day "+label+" not found on record "+id)
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write day cell")
	}
	return nil
}

func (s *CICOService) recompute(ctx context.Context, id string) (*models.MonthlyCICORecord, error) {
	record, err := s.store.FetchRecord(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, recordNotFound(err, "monthly record "+id+" not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload monthly record")
	}
	result := ComputeRecordRate(*record)
	if err := s.store.WriteDerived(ctx, id, result.Rate, result.Achieved); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write achievement")
	}
	record.AchievementRate = result.Rate
	record.Achieved = result.Achieved
	return record, nil
}

func (s *CICOService) invalidate(ctx context.Context, month models.MonthKey) {
	if err := s.dataset.InvalidateMonth(ctx, month); err != nil {
		s.logger.Warn("cico cache invalidation failed", zap.String("month", month.String()), zap.Error(err))
	}
}

// UpdateCells applies a batch of grid edits. Every touched record is recomputed once.
func (s *CICOService) UpdateCells(ctx context.Context, req CellBatchRequest) ([]models.MonthlyCICORecord, error) {
	for i := range req.Updates {
		req.Updates[i].Value = strings.TrimSpace(req.Updates[i].Value)
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cell updates")
	}
	for _, update := range req.Updates {
		if !validCellValue(update.Value) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid cell value "+update.Value)
		}
	}

	month := models.MonthKey{Year: req.Year, Month: req.Month}
	defer s.invalidate(ctx, month)

	var touched []string
	seen := make(map[string]struct{})
	for _, update := range req.Updates {
		if err := s.store.WriteCell(ctx, update.RecordID, update.Label, update.Value); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, recordNotFound(err, "day "+update.Label+" not found on record "+update.RecordID)
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write day cell")
		}
		if _, ok := seen[update.RecordID]; !ok {
			seen[update.RecordID] = struct{}{}
			touched = append(touched, update.RecordID)
		}
	}

	out := make([]models.MonthlyCICORecord, 0, len(touched))
	for _, id := range touched {
		record, err := s.recompute(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *record)
	}
	return out, nil
}

// UpdateSettings changes a student's target behavior, direction, scale or goal for one
// month and recomputes the record under the new settings.
func (s *CICOService) UpdateSettings(ctx context.Context, req SettingsRequest) (*models.MonthlyCICORecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid settings")
	}
	settings := req.Settings
	if settings.BehaviorDirection != nil {
		dir, ok := ParseDirection(*settings.BehaviorDirection)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown behavior direction "+*settings.BehaviorDirection)
		}
		normalized := string(dir)
		settings.BehaviorDirection = &normalized
	}
	if settings.ScaleType != nil {
		if _, err := ParseScale(*settings.ScaleType); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unknown scale type")
		}
	}

	month := models.MonthKey{Year: req.Year, Month: req.Month}
	records, err := s.store.FetchMonthlyRecords(ctx, month)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, "failed to load monthly records")
	}
	record, found := findRecord(records, strings.TrimSpace(req.StudentCode))
	if !found {
		return nil, recordNotFound(nil, "no monthly record for student "+req.StudentCode+" in "+month.String())
	}
	defer s.invalidate(ctx, month)

	if err := s.store.UpdateSettings(ctx, record.ID, settings); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update settings")
	}
	return s.recompute(ctx, record.ID)
}

// ToggleTier2 stores the student's Tier2 status for the month.
func (s *CICOService) ToggleTier2(ctx context.Context, req Tier2ToggleRequest) (*models.MonthlyCICORecord, error) {
	req.Status = strings.ToUpper(strings.TrimSpace(req.Status))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid tier2 toggle")
	}
	month := models.MonthKey{Year: req.Year, Month: req.Month}
	records, err := s.store.FetchMonthlyRecords(ctx, month)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, "failed to load monthly records")
	}
	record, found := findRecord(records, strings.TrimSpace(req.StudentCode))
	if !found {
		return nil, recordNotFound(nil, "no monthly record for student "+req.StudentCode+" in "+month.String())
	}
	if err := s.store.SetTier2Status(ctx, record.ID, req.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, recordNotFound(err, "monthly record "+record.ID+" not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update tier2 status")
	}
	s.invalidate(ctx, month)
	record.Tier2Status = req.Status
	s.logger.Info("tier2 status changed",
		zap.String("student_code", record.StudentCode),
		zap.String("month", month.String()),
		zap.String("status", req.Status))
	return &record, nil
}

// BusinessDays lists the weekdays of the month that are not holidays.
func (s *CICOService) BusinessDays(ctx context.Context, month models.MonthKey) ([]time.Time, []string, error) {
	if !month.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "month must be between 1 and 12")
	}
	holidays, _, err := s.dataset.Holidays(ctx)
	if err != nil {
		return nil, nil, err
	}
	return BusinessDays(month, holidays), holidays, nil
}

// BusinessDays lists the weekdays of month minus the given holidays. Unparseable holiday
// strings are ignored.
func BusinessDays(month models.MonthKey, holidays []string) []time.Time {
	off := make(map[time.Time]struct{}, len(holidays))
	for _, raw := range holidays {
		if day, ok := models.ParseDate(raw); ok {
			off[day] = struct{}{}
		}
	}
	var days []time.Time
	first := time.Date(month.Year, time.Month(month.Month), 1, 0, 0, 0, 0, time.UTC)
	for day := first; day.Month() == first.Month(); day = day.AddDate(0, 0, 1) {
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			continue
		}
		if _, holiday := off[day]; holiday {
			continue
		}
		days = append(days, day)
	}
	return days
}

func validSchoolMonth(month models.MonthKey) error {
	if month.Year < 2000 || month.Month < FirstSchoolMonth || month.Month > LastSchoolMonth {
		return appErrors.Clone(appErrors.ErrValidation, "month must be a school month between 3 and 12")
	}
	return nil
}

// Monthly returns the grid of one month.
func (s *CICOService) Monthly(ctx context.Context, month models.MonthKey) (*models.MonthlyCICOSheet, bool, error) {
	if err := validSchoolMonth(month); err != nil {
		return nil, false, err
	}
	records, hit, err := s.dataset.MonthlyRecords(ctx, month)
	if err != nil {
		return nil, false, err
	}
	holidays, _, err := s.dataset.Holidays(ctx)
	if err != nil {
		return nil, false, err
	}
	sheet := &models.MonthlyCICOSheet{Year: month.Year, Month: month.Month, Records: records}
	for _, day := range BusinessDays(month, holidays) {
		sheet.BusinessDays = append(sheet.BusinessDays, models.DayLabel(day))
	}
	sort.SliceStable(sheet.Records, func(i, j int) bool {
		return sheet.Records[i].StudentCode < sheet.Records[j].StudentCode
	})
	return sheet, hit, nil
}

// DailyRecords flattens the filled day cells of the covered months into one list ordered
// by date then student code. Empty and placeholder cells are left out.
func (s *CICOService) DailyRecords(ctx context.Context, q DailyRecordQuery) ([]models.DailyCICOEntry, error) {
	to := models.DateOnly(s.now())
	if q.To != nil {
		to = models.DateOnly(*q.To)
	}
	from := time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)
	if q.From != nil {
		from = models.DateOnly(*q.From)
	}
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	first, last := models.NewMonthKey(from), models.NewMonthKey(to)
	if span := (last.Year-first.Year)*12 + last.Month - first.Month + 1; span > maxDailyListingMonths {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date range may cover at most 12 months")
	}
	code := strings.TrimSpace(q.StudentCode)

	entries := []models.DailyCICOEntry{}
	for month := first; ; month = month.AddMonths(1) {
		if month.Month >= FirstSchoolMonth && month.Month <= LastSchoolMonth {
			records, _, err := s.dataset.MonthlyRecords(ctx, month)
			if err != nil {
				return nil, err
			}
			for _, record := range records {
				if code != "" && record.StudentCode != code {
					continue
				}
				for _, cell := range record.Days {
					if isPlaceholder(cell.Value) {
						continue
					}
					day, ok := models.ParseDayLabel(record.Year, cell.Label)
					if !ok || day.Before(from) || day.After(to) {
						continue
					}
					entries = append(entries, models.DailyCICOEntry{
						Date:        day.Format(models.DateLayout),
						Label:       cell.Label,
						StudentCode: record.StudentCode,
						RecordID:    record.ID,
						Value:       strings.TrimSpace(cell.Value),
					})
				}
			}
		}
		if month == last {
			break
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Date != entries[j].Date {
			return entries[i].Date < entries[j].Date
		}
		return entries[i].StudentCode < entries[j].StudentCode
	})
	return entries, nil
}

// GenerateMonth creates a record for every enrolled Tier2(CICO) student that has none for
// the month. Each record gets one empty cell per business day and inherits the student's
// settings from the previous month.
func (s *CICOService) GenerateMonth(ctx context.Context, month models.MonthKey) ([]models.MonthlyCICORecord, error) {
	if err := validSchoolMonth(month); err != nil {
		return nil, err
	}
	students, _, err := s.dataset.Students(ctx)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.FetchMonthlyRecords(ctx, month)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, "failed to load monthly records")
	}
	previous, err := s.store.FetchMonthlyRecords(ctx, month.AddMonths(-1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, "failed to load previous month")
	}
	holidays, _, err := s.dataset.Holidays(ctx)
	if err != nil {
		return nil, err
	}
	businessDays := BusinessDays(month, holidays)

	var created []models.MonthlyCICORecord
	for _, student := range students {
		if !student.Enrolled || !student.Tier2CICO {
			continue
		}
		if _, ok := findRecord(existing, student.StudentCode); ok {
			continue
		}
		record := models.MonthlyCICORecord{
			ID:                s.newID(),
			Year:              month.Year,
			Month:             month.Month,
			StudentCode:       student.StudentCode,
			BehaviorDirection: models.DirectionIncrease,
			ScaleType:         ScaleBinary.Name(),
			Achieved:          models.AchievedUndetermined,
			Tier2Status:       models.MarkSuccess,
			Days:              make([]models.DayCell, 0, len(businessDays)),
		}
		if prior, ok := findRecord(previous, student.StudentCode); ok {
			record.TargetBehavior = prior.TargetBehavior
			record.BehaviorDirection = prior.BehaviorDirection
			record.ScaleType = prior.ScaleType
			record.GoalCriteria = prior.GoalCriteria
		}
		for _, day := range businessDays {
			record.Days = append(record.Days, models.DayCell{Label: models.DayLabel(day)})
		}
		created = append(created, record)
	}
	if len(created) == 0 {
		return []models.MonthlyCICORecord{}, nil
	}
	if err := s.store.CreateRecords(ctx, created); err != nil {
		if errors.Is(err, models.ErrDuplicateRecord) {
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "records for "+month.String()+" were generated concurrently, retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create monthly records")
	}
	s.invalidate(ctx, month)
	s.logger.Info("monthly cico records generated", zap.String("month", month.String()), zap.Int("records", len(created)))
	return created, nil
}
