package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/harmonic-labs/academy-api/internal/models"
)

// AttendanceRepository handles persistence for attendance sessions and
// their embedded entries.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Create inserts a session and its entries in one transaction. Sessions
// are append-only: the write either persists the whole entry list or
// nothing.
func (r *AttendanceRepository) Create(ctx context.Context, session *models.AttendanceSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attendance create: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	const sessionQuery = `INSERT INTO attendance_sessions (id, batch_id, date, remark, created_at)
VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.ExecContext(ctx, sessionQuery, session.ID, session.BatchID, session.Date, session.Remark, session.CreatedAt); err != nil {
		return fmt.Errorf("insert attendance session: %w", err)
	}

	const entryQuery = `INSERT INTO attendance_entries (session_id, student_id, status, position)
VALUES ($1, $2, $3, $4)`
	for i, entry := range session.Entries {
		if _, err := tx.ExecContext(ctx, entryQuery, session.ID, entry.StudentID, entry.Status, i); err != nil {
			return fmt.Errorf("insert attendance entry: %w", err)
		}
		session.Entries[i].SessionID = session.ID
		session.Entries[i].Position = i
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit attendance create: %w", err)
	}
	committed = true
	return nil
}

// List returns sessions with batch names resolved, newest first, using
// keyset pagination on (date, id). It returns limit rows plus a flag
// indicating whether more rows exist beyond the page.
func (r *AttendanceRepository) List(ctx context.Context, cursorDate *time.Time, cursorID string, limit int) ([]models.AttendanceSessionDetail, bool, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `SELECT a.id, a.batch_id, b.name AS batch_name, a.date, a.remark, a.created_at
FROM attendance_sessions a
JOIN class_batches b ON b.id = a.batch_id`
	args := []interface{}{}
	if cursorDate != nil && cursorID != "" {
		query += ` WHERE (a.date, a.id) < ($1, $2)`
		args = append(args, *cursorDate, cursorID)
	}
	query += fmt.Sprintf(` ORDER BY a.date DESC, a.id DESC LIMIT %d`, limit+1)

	var sessions []models.AttendanceSessionDetail
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, false, fmt.Errorf("list attendance sessions: %w", err)
	}

	hasMore := len(sessions) > limit
	if hasMore {
		sessions = sessions[:limit]
	}

	if err := r.attachEntries(ctx, sessions); err != nil {
		return nil, false, err
	}
	return sessions, hasMore, nil
}

// ListByStudent returns every session containing an entry for the given
// student, with the entry list narrowed server-side to that student only.
func (r *AttendanceRepository) ListByStudent(ctx context.Context, studentID string) ([]models.AttendanceSessionDetail, error) {
	const query = `SELECT DISTINCT a.id, a.batch_id, b.name AS batch_name, a.date, a.remark, a.created_at
FROM attendance_sessions a
JOIN class_batches b ON b.id = a.batch_id
JOIN attendance_entries e ON e.session_id = a.id
WHERE e.student_id = $1
ORDER BY a.date DESC, a.id DESC`
	var sessions []models.AttendanceSessionDetail
	if err := r.db.SelectContext(ctx, &sessions, query, studentID); err != nil {
		return nil, fmt.Errorf("list attendance by student: %w", err)
	}
	if len(sessions) == 0 {
		return sessions, nil
	}

	ids := make([]string, len(sessions))
	for i, s := range sessions {
		ids[i] = s.ID
	}
	const entryQuery = `SELECT e.session_id, e.student_id, e.status, e.position, s.name AS student_name
FROM attendance_entries e
JOIN students s ON s.id = e.student_id
WHERE e.student_id = ? AND e.session_id IN (?)
ORDER BY e.session_id, e.position`
	query2, args, err := sqlx.In(entryQuery, studentID, ids)
	if err != nil {
		return nil, fmt.Errorf("expand entry query: %w", err)
	}
	var entries []models.AttendanceEntryDetail
	if err := r.db.SelectContext(ctx, &entries, r.db.Rebind(query2), args...); err != nil {
		return nil, fmt.Errorf("load narrowed entries: %w", err)
	}

	bySession := make(map[string][]models.AttendanceEntryDetail, len(sessions))
	for _, entry := range entries {
		bySession[entry.SessionID] = append(bySession[entry.SessionID], entry)
	}
	for i := range sessions {
		sessions[i].Entries = bySession[sessions[i].ID]
	}
	return sessions, nil
}

// ListForReport returns every session, optionally narrowed to one
// batch, newest first. Feeds the grouped report and exports.
func (r *AttendanceRepository) ListForReport(ctx context.Context, batchID *string) ([]models.AttendanceSessionDetail, error) {
	query := `SELECT a.id, a.batch_id, b.name AS batch_name, a.date, a.remark, a.created_at
FROM attendance_sessions a
JOIN class_batches b ON b.id = a.batch_id`
	args := []interface{}{}
	if batchID != nil && *batchID != "" {
		query += ` WHERE a.batch_id = $1`
		args = append(args, *batchID)
	}
	query += ` ORDER BY a.date DESC, a.id DESC`

	var sessions []models.AttendanceSessionDetail
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance for report: %w", err)
	}
	if err := r.attachEntries(ctx, sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// CountByBatch reports how many sessions reference a batch. Used to
// block batch deletion while dependent attendance history exists.
func (r *AttendanceRepository) CountByBatch(ctx context.Context, batchID string) (int, error) {
	const query = `SELECT COUNT(*) FROM attendance_sessions WHERE batch_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, batchID); err != nil {
		return 0, fmt.Errorf("count attendance by batch: %w", err)
	}
	return count, nil
}

func (r *AttendanceRepository) attachEntries(ctx context.Context, sessions []models.AttendanceSessionDetail) error {
	if len(sessions) == 0 {
		return nil
	}
	ids := make([]string, len(sessions))
	for i, s := range sessions {
		ids[i] = s.ID
	}
	const entryQuery = `SELECT e.session_id, e.student_id, e.status, e.position, s.name AS student_name
FROM attendance_entries e
JOIN students s ON s.id = e.student_id
WHERE e.session_id IN (?)
ORDER BY e.session_id, e.position`
	query, args, err := sqlx.In(entryQuery, ids)
	if err != nil {
		return fmt.Errorf("expand entry query: %w", err)
	}
	var entries []models.AttendanceEntryDetail
	if err := r.db.SelectContext(ctx, &entries, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("load session entries: %w", err)
	}

	bySession := make(map[string][]models.AttendanceEntryDetail, len(sessions))
	for _, entry := range entries {
		bySession[entry.SessionID] = append(bySession[entry.SessionID], entry)
	}
	for i := range sessions {
		sessions[i].Entries = bySession[sessions[i].ID]
	}
	return nil
}
