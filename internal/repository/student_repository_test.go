package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonic-labs/academy-api/internal/models"
)

func newStudentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestStudentRepositoryList(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "email", "mobile", "instruments", "branch", "age", "status", "joining_date", "country", "city", "address", "created_at", "updated_at"}).
		AddRow("s1", "Amara", "amara@example.com", "555-0101", "guitar,piano", "Koramangala", 14, models.StudentStatusActive, time.Now(), "IN", "Bengaluru", "MG Road", time.Now(), time.Now())
	mock.ExpectQuery("SELECT id, name, email, mobile, instruments").
		WithArgs(models.StudentStatusActive).
		WillReturnRows(rows)

	students, err := repo.List(context.Background(), models.StudentFilter{Status: models.StudentStatusActive})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, models.Instruments{"guitar", "piano"}, students[0].Instruments)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByIDMissing(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("FROM students WHERE id").
		WithArgs("s-missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "s-missing")
	assert.ErrorIs(t, err, ErrStudentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByIDQueryFailure(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("FROM students WHERE id").
		WithArgs("s1").
		WillReturnError(errors.New("connection reset"))

	_, err := repo.FindByID(context.Background(), "s1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrStudentNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").
		WillReturnResult(sqlmock.NewResult(1, 1))

	student := &models.Student{Name: "Amara", Email: "amara@example.com", Mobile: "555-0101", Instruments: models.Instruments{"guitar"}, Branch: "Koramangala", Status: models.StudentStatusActive}
	err := repo.Create(context.Background(), student)
	require.NoError(t, err)
	assert.NotEmpty(t, student.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("UPDATE students").
		WillReturnResult(sqlmock.NewResult(0, 1))

	student := &models.Student{ID: "s1", Name: "Amara", Email: "amara@example.com", Status: models.StudentStatusInactive}
	err := repo.Update(context.Background(), student)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
