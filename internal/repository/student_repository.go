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

// ErrStudentNotFound is returned when no student matches the lookup.
var ErrStudentNotFound = errors.New("student not found")

// StudentRepository handles persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `id, name, email, mobile, instruments, branch, age, status, joining_date, country, city, address, created_at, updated_at`

// List returns students matching the filter, newest first.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.Branch != "" {
		where = append(where, fmt.Sprintf("branch = $%d", len(args)+1))
		args = append(args, filter.Branch)
	}
	if filter.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	query := fmt.Sprintf(`SELECT %s FROM students WHERE %s ORDER BY created_at DESC`, studentColumns, strings.Join(where, " AND "))

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// FindByID returns a single student record.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE id = $1`, studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

// Create inserts a student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	now := time.Now().UTC()
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	student.CreatedAt = now
	student.UpdatedAt = now

	const query = `INSERT INTO students (id, name, email, mobile, instruments, branch, age, status, joining_date, country, city, address, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	if _, err := r.db.ExecContext(ctx, query,
		student.ID, student.Name, student.Email, student.Mobile, student.Instruments, student.Branch,
		student.Age, student.Status, student.JoiningDate, student.Country, student.City, student.Address,
		student.CreatedAt, student.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert student: %w", err)
	}
	return nil
}

// Update rewrites a student record.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()

	const query = `UPDATE students
SET name = $1, email = $2, mobile = $3, instruments = $4, branch = $5, age = $6, status = $7,
    joining_date = $8, country = $9, city = $10, address = $11, updated_at = $12
WHERE id = $13`
	if _, err := r.db.ExecContext(ctx, query,
		student.Name, student.Email, student.Mobile, student.Instruments, student.Branch,
		student.Age, student.Status, student.JoiningDate, student.Country, student.City, student.Address,
		student.UpdatedAt, student.ID,
	); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}
