package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harmonic-labs/academy-api/internal/models"
	"github.com/harmonic-labs/academy-api/internal/repository"
	appErrors "github.com/harmonic-labs/academy-api/pkg/errors"
)

// reportCacheKeyPattern matches every cached attendance report variant.
const reportCacheKeyPattern = "reports:attendance:*"

type attendanceRepository interface {
	Create(ctx context.Context, session *models.AttendanceSession) error
	List(ctx context.Context, cursorDate *time.Time, cursorID string, limit int) ([]models.AttendanceSessionDetail, bool, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.AttendanceSessionDetail, error)
}

type batchLookupRepository interface {
	FindByID(ctx context.Context, id string) (*models.ClassBatchDetail, error)
}

type reportCacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// AttendanceService coordinates attendance capture and retrieval.
type AttendanceService struct {
	repo      attendanceRepository
	batchRepo batchLookupRepository
	cache     reportCacheInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	pageSize  int
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(repo attendanceRepository, batchRepo batchLookupRepository, cache reportCacheInvalidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, pageSize int) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	svc := &AttendanceService{repo: repo, batchRepo: batchRepo, cache: cache, metrics: metrics, validator: validate, logger: logger, pageSize: pageSize}
	svc.validator.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
		return models.AttendanceStatus(fl.Field().String()).Valid()
	})
	return svc
}

// AttendanceEntryItem is one student's status within a submission.
type AttendanceEntryItem struct {
	StudentID string `json:"student_id" validate:"required,uuid4"`
	Status    string `json:"status" validate:"omitempty,attendance_status"`
}

// RecordAttendanceRequest describes the payload for recording one session.
type RecordAttendanceRequest struct {
	BatchID string                `json:"batch_id" validate:"required,uuid4"`
	Date    string                `json:"date"`
	Remark  *string               `json:"remark"`
	Entries []AttendanceEntryItem `json:"entries" validate:"dive"`
}

// ListAttendanceRequest carries cursor paging parameters.
type ListAttendanceRequest struct {
	Cursor string `json:"cursor"`
	Limit  int    `json:"limit"`
}

// Record validates and persists a new attendance session. An omitted
// date defaults to the submission day, omitted statuses default to
// Absent, and a student listed twice rejects the whole submission.
func (s *AttendanceService) Record(ctx context.Context, req RecordAttendanceRequest) (*models.AttendanceSession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	if req.Entries == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "entries field is required")
	}
	date := time.Now().UTC()
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
		}
		date = parsed
	}

	if _, err := s.batchRepo.FindByID(ctx, req.BatchID); err != nil {
		if errors.Is(err, repository.ErrBatchNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load batch")
	}

	seen := map[string]struct{}{}
	entries := make([]models.AttendanceEntry, len(req.Entries))
	for i, item := range req.Entries {
		if _, ok := seen[item.StudentID]; ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "duplicate student in payload")
		}
		seen[item.StudentID] = struct{}{}
		status := models.AttendanceStatus(item.Status)
		if item.Status == "" {
			status = models.AttendanceStatusAbsent
		}
		entries[i] = models.AttendanceEntry{StudentID: item.StudentID, Status: status}
	}

	session := &models.AttendanceSession{
		BatchID: req.BatchID,
		Date:    models.NormalizeDate(date),
		Remark:  req.Remark,
		Entries: entries,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to record attendance")
	}

	s.metrics.RecordSessionCreated()

	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, reportCacheKeyPattern); err != nil {
			s.logger.Warn("report cache invalidation failed", zap.Error(err))
		}
	}
	return session, nil
}

// List returns one page of sessions, newest first, with an opaque cursor
// for the next page.
func (s *AttendanceService) List(ctx context.Context, req ListAttendanceRequest) ([]models.AttendanceSessionDetail, *models.PageInfo, error) {
	limit := req.Limit
	if limit <= 0 || limit > 200 {
		limit = s.pageSize
	}

	var cursorDate *time.Time
	var cursorID string
	if req.Cursor != "" {
		date, id, err := models.DecodeCursor(req.Cursor)
		if err != nil {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "malformed cursor")
		}
		cursorDate = &date
		cursorID = id
	}

	sessions, hasMore, err := s.repo.List(ctx, cursorDate, cursorID, limit)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to list attendance")
	}

	page := &models.PageInfo{Limit: limit, Count: len(sessions), HasMore: hasMore}
	if hasMore && len(sessions) > 0 {
		last := sessions[len(sessions)-1]
		page.NextCursor = models.EncodeCursor(last.Date, last.ID)
	}
	return sessions, page, nil
}

// ListByStudent returns sessions involving one student, each narrowed to
// that student's entry. A student with no recorded sessions yields not
// found, matching the single-record detail contract.
func (s *AttendanceService) ListByStudent(ctx context.Context, studentID string) ([]models.AttendanceSessionDetail, error) {
	if _, err := uuid.Parse(studentID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid student id")
	}
	sessions, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to list attendance by student")
	}
	if len(sessions) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no attendance recorded for student")
	}
	return sessions, nil
}
