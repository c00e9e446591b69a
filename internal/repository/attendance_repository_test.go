package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonic-labs/academy-api/internal/models"
)

func newAttendanceMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAttendanceRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO attendance_sessions").
		WithArgs(sqlmock.AnyArg(), "batch-1", sqlmock.AnyArg(), nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO attendance_entries").
		WithArgs(sqlmock.AnyArg(), "student-1", models.AttendanceStatusPresent, 0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO attendance_entries").
		WithArgs(sqlmock.AnyArg(), "student-2", models.AttendanceStatusAbsent, 1).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	session := &models.AttendanceSession{
		BatchID: "batch-1",
		Date:    time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Entries: []models.AttendanceEntry{
			{StudentID: "student-1", Status: models.AttendanceStatusPresent},
			{StudentID: "student-2", Status: models.AttendanceStatusAbsent},
		},
	}
	err := repo.Create(context.Background(), session)
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, session.ID, session.Entries[1].SessionID)
	assert.Equal(t, 1, session.Entries[1].Position)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryCreateRollsBackOnEntryFailure(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO attendance_sessions").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO attendance_entries").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	session := &models.AttendanceSession{
		BatchID: "batch-1",
		Date:    time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Entries: []models.AttendanceEntry{{StudentID: "student-1", Status: models.AttendanceStatusLate}},
	}
	err := repo.Create(context.Background(), session)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryListFirstPage(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	sessionRows := sqlmock.NewRows([]string{"id", "batch_id", "batch_name", "date", "remark", "created_at"}).
		AddRow("s2", "batch-1", "Guitar Evening", time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), nil, time.Now()).
		AddRow("s1", "batch-1", "Guitar Evening", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), nil, time.Now())
	mock.ExpectQuery("SELECT a.id, a.batch_id, b.name AS batch_name").
		WillReturnRows(sessionRows)

	entryRows := sqlmock.NewRows([]string{"session_id", "student_id", "status", "position", "student_name"}).
		AddRow("s2", "student-1", models.AttendanceStatusPresent, 0, "Amara").
		AddRow("s1", "student-1", models.AttendanceStatusAbsent, 0, "Amara")
	mock.ExpectQuery("SELECT e.session_id, e.student_id, e.status, e.position").
		WithArgs("s2", "s1").
		WillReturnRows(entryRows)

	sessions, hasMore, err := repo.List(context.Background(), nil, "", 50)
	require.NoError(t, err)
	assert.False(t, hasMore)
	require.Len(t, sessions, 2)
	assert.Equal(t, "s2", sessions[0].ID)
	require.Len(t, sessions[0].Entries, 1)
	assert.Equal(t, "Amara", sessions[0].Entries[0].StudentName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryListReportsMoreRows(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	sessionRows := sqlmock.NewRows([]string{"id", "batch_id", "batch_name", "date", "remark", "created_at"}).
		AddRow("s3", "batch-1", "Guitar Evening", time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC), nil, time.Now()).
		AddRow("s2", "batch-1", "Guitar Evening", time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), nil, time.Now()).
		AddRow("s1", "batch-1", "Guitar Evening", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), nil, time.Now())
	mock.ExpectQuery("SELECT a.id, a.batch_id, b.name AS batch_name").
		WillReturnRows(sessionRows)
	mock.ExpectQuery("SELECT e.session_id, e.student_id, e.status, e.position").
		WillReturnRows(sqlmock.NewRows([]string{"session_id", "student_id", "status", "position", "student_name"}))

	sessions, hasMore, err := repo.List(context.Background(), nil, "", 2)
	require.NoError(t, err)
	assert.True(t, hasMore)
	assert.Len(t, sessions, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryListByStudentNarrowsEntries(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	sessionRows := sqlmock.NewRows([]string{"id", "batch_id", "batch_name", "date", "remark", "created_at"}).
		AddRow("s1", "batch-1", "Guitar Evening", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), nil, time.Now())
	mock.ExpectQuery("SELECT DISTINCT a.id").
		WithArgs("student-1").
		WillReturnRows(sessionRows)

	entryRows := sqlmock.NewRows([]string{"session_id", "student_id", "status", "position", "student_name"}).
		AddRow("s1", "student-1", models.AttendanceStatusLate, 2, "Amara")
	mock.ExpectQuery("SELECT e.session_id, e.student_id, e.status, e.position").
		WithArgs("student-1", "s1").
		WillReturnRows(entryRows)

	sessions, err := repo.ListByStudent(context.Background(), "student-1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Len(t, sessions[0].Entries, 1)
	assert.Equal(t, "student-1", sessions[0].Entries[0].StudentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryCountByBatch(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM attendance_sessions`).
		WithArgs("batch-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountByBatch(context.Background(), "batch-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
