package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/harmonic-labs/academy-api/internal/models"
	"github.com/harmonic-labs/academy-api/internal/repository"
	appErrors "github.com/harmonic-labs/academy-api/pkg/errors"
)

type batchRepository interface {
	List(ctx context.Context, filter models.ClassBatchFilter) ([]models.ClassBatch, error)
	FindByID(ctx context.Context, id string) (*models.ClassBatchDetail, error)
	Create(ctx context.Context, batch *models.ClassBatch) error
	Update(ctx context.Context, batch *models.ClassBatch) error
	Delete(ctx context.Context, id string) error
}

type attendanceCounter interface {
	CountByBatch(ctx context.Context, batchID string) (int, error)
}

// BatchService manages class batches and their rosters.
type BatchService struct {
	repo           batchRepository
	attendanceRepo attendanceCounter
	validator      *validator.Validate
	logger         *zap.Logger
}

// NewBatchService constructs the batch service.
func NewBatchService(repo batchRepository, attendanceRepo attendanceCounter, validate *validator.Validate, logger *zap.Logger) *BatchService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchService{repo: repo, attendanceRepo: attendanceRepo, validator: validate, logger: logger}
}

// BatchRequest describes the create/update payload for a class batch.
type BatchRequest struct {
	Name       string   `json:"name" validate:"required"`
	Instructor string   `json:"instructor" validate:"required"`
	Instrument string   `json:"instrument" validate:"required"`
	Timing     string   `json:"timing" validate:"required"`
	StartDate  *string  `json:"start_date"`
	Branch     string   `json:"branch" validate:"required"`
	StudentIDs []string `json:"student_ids" validate:"omitempty,dive,uuid4"`
}

// List returns batches matching the filter.
func (s *BatchService) List(ctx context.Context, filter models.ClassBatchFilter) ([]models.ClassBatch, error) {
	batches, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to list batches")
	}
	return batches, nil
}

// Get returns one batch with its resolved roster.
func (s *BatchService) Get(ctx context.Context, id string) (*models.ClassBatchDetail, error) {
	batch, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBatchNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load batch")
	}
	return batch, nil
}

// Create validates and stores a new batch.
func (s *BatchService) Create(ctx context.Context, req BatchRequest) (*models.ClassBatch, error) {
	batch, err := s.toModel(req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, batch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to create batch")
	}
	return batch, nil
}

// Update replaces a batch's fields and roster.
func (s *BatchService) Update(ctx context.Context, id string, req BatchRequest) (*models.ClassBatch, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrBatchNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load batch")
	}
	batch, err := s.toModel(req)
	if err != nil {
		return nil, err
	}
	batch.ID = id
	if err := s.repo.Update(ctx, batch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to update batch")
	}
	return batch, nil
}

// Delete removes a batch. Deletion is refused while attendance history
// references the batch, so sessions never orphan their batch link.
func (s *BatchService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrBatchNotFound) {
			return appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load batch")
	}
	count, err := s.attendanceRepo.CountByBatch(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to check batch dependencies")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "batch has recorded attendance and cannot be deleted")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to delete batch")
	}
	return nil
}

func (s *BatchService) toModel(req BatchRequest) (*models.ClassBatch, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	batch := &models.ClassBatch{
		Name:       req.Name,
		Instructor: req.Instructor,
		Instrument: req.Instrument,
		Timing:     req.Timing,
		Branch:     req.Branch,
		StudentIDs: req.StudentIDs,
	}
	if req.StartDate != nil && *req.StartDate != "" {
		start, err := time.Parse("2006-01-02", *req.StartDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start date, expected YYYY-MM-DD")
		}
		start = models.NormalizeDate(start)
		batch.StartDate = &start
	}
	return batch, nil
}
