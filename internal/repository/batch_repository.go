package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/harmonic-labs/academy-api/internal/models"
)

// ErrBatchNotFound is returned when no batch matches the lookup.
var ErrBatchNotFound = errors.New("batch not found")

// BatchRepository handles persistence for class batches and their rosters.
type BatchRepository struct {
	db *sqlx.DB
}

// NewBatchRepository constructs the repository.
func NewBatchRepository(db *sqlx.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// List returns batches matching the filter, including roster ids.
func (r *BatchRepository) List(ctx context.Context, filter models.ClassBatchFilter) ([]models.ClassBatch, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.Instrument != "" {
		where = append(where, fmt.Sprintf("instrument = $%d", len(args)+1))
		args = append(args, filter.Instrument)
	}
	if filter.Branch != "" {
		where = append(where, fmt.Sprintf("branch = $%d", len(args)+1))
		args = append(args, filter.Branch)
	}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("name ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	query := fmt.Sprintf(`SELECT id, name, instructor, instrument, timing, start_date, branch, created_at, updated_at
FROM class_batches WHERE %s ORDER BY created_at DESC`, strings.Join(where, " AND "))

	var batches []models.ClassBatch
	if err := r.db.SelectContext(ctx, &batches, query, args...); err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	if err := r.attachRosters(ctx, batches); err != nil {
		return nil, err
	}
	return batches, nil
}

// FindByID returns one batch with its resolved roster students.
func (r *BatchRepository) FindByID(ctx context.Context, id string) (*models.ClassBatchDetail, error) {
	const query = `SELECT id, name, instructor, instrument, timing, start_date, branch, created_at, updated_at
FROM class_batches WHERE id = $1`
	var batch models.ClassBatchDetail
	if err := r.db.GetContext(ctx, &batch, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBatchNotFound
		}
		return nil, fmt.Errorf("find batch: %w", err)
	}

	const rosterQuery = `SELECT s.id, s.name, s.email, s.mobile, s.instruments, s.branch, s.age, s.status,
s.joining_date, s.country, s.city, s.address, s.created_at, s.updated_at
FROM batch_students bs
JOIN students s ON s.id = bs.student_id
WHERE bs.batch_id = $1
ORDER BY s.name`
	if err := r.db.SelectContext(ctx, &batch.Students, rosterQuery, id); err != nil {
		return nil, fmt.Errorf("load batch roster: %w", err)
	}
	batch.StudentIDs = make([]string, len(batch.Students))
	for i, s := range batch.Students {
		batch.StudentIDs[i] = s.ID
	}
	return &batch, nil
}

// Create inserts a batch and its roster links.
func (r *BatchRepository) Create(ctx context.Context, batch *models.ClassBatch) error {
	now := time.Now().UTC()
	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}
	batch.CreatedAt = now
	batch.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch create: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	const query = `INSERT INTO class_batches (id, name, instructor, instrument, timing, start_date, branch, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := tx.ExecContext(ctx, query, batch.ID, batch.Name, batch.Instructor, batch.Instrument, batch.Timing, batch.StartDate, batch.Branch, batch.CreatedAt, batch.UpdatedAt); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	if err := replaceRoster(ctx, tx, batch.ID, batch.StudentIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch create: %w", err)
	}
	committed = true
	return nil
}

// Update rewrites the batch row and replaces its roster.
func (r *BatchRepository) Update(ctx context.Context, batch *models.ClassBatch) error {
	batch.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch update: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	const query = `UPDATE class_batches
SET name = $1, instructor = $2, instrument = $3, timing = $4, start_date = $5, branch = $6, updated_at = $7
WHERE id = $8`
	if _, err := tx.ExecContext(ctx, query, batch.Name, batch.Instructor, batch.Instrument, batch.Timing, batch.StartDate, batch.Branch, batch.UpdatedAt, batch.ID); err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM batch_students WHERE batch_id = $1`, batch.ID); err != nil {
		return fmt.Errorf("clear batch roster: %w", err)
	}
	if err := replaceRoster(ctx, tx, batch.ID, batch.StudentIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch update: %w", err)
	}
	committed = true
	return nil
}

// Delete removes a batch and its roster links. Callers gate this on the
// absence of dependent attendance history.
func (r *BatchRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch delete: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM batch_students WHERE batch_id = $1`, id); err != nil {
		return fmt.Errorf("delete batch roster: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM class_batches WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete batch: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch delete: %w", err)
	}
	committed = true
	return nil
}

func replaceRoster(ctx context.Context, tx *sqlx.Tx, batchID string, studentIDs []string) error {
	const query = `INSERT INTO batch_students (batch_id, student_id) VALUES ($1, $2)`
	for _, studentID := range studentIDs {
		if _, err := tx.ExecContext(ctx, query, batchID, studentID); err != nil {
			return fmt.Errorf("insert roster member: %w", err)
		}
	}
	return nil
}

func (r *BatchRepository) attachRosters(ctx context.Context, batches []models.ClassBatch) error {
	if len(batches) == 0 {
		return nil
	}
	ids := make([]string, len(batches))
	for i, b := range batches {
		ids[i] = b.ID
	}
	query, args, err := sqlx.In(`SELECT batch_id, student_id FROM batch_students WHERE batch_id IN (?)`, ids)
	if err != nil {
		return fmt.Errorf("expand roster query: %w", err)
	}
	rows := []struct {
		BatchID   string `db:"batch_id"`
		StudentID string `db:"student_id"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("load rosters: %w", err)
	}
	byBatch := make(map[string][]string, len(batches))
	for _, row := range rows {
		byBatch[row.BatchID] = append(byBatch[row.BatchID], row.StudentID)
	}
	for i := range batches {
		batches[i].StudentIDs = byBatch[batches[i].ID]
	}
	return nil
}
