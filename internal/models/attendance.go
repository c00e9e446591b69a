package models

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// AttendanceStatus represents the per-student outcome for one session.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "Present"
	AttendanceStatusAbsent  AttendanceStatus = "Absent"
	AttendanceStatusLate    AttendanceStatus = "Late"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate:
		return true
	default:
		return false
	}
}

// AttendanceEntry is one student's status within a session. Entries are
// owned by their session and preserve submission order.
type AttendanceEntry struct {
	SessionID string           `db:"session_id" json:"-"`
	StudentID string           `db:"student_id" json:"student_id"`
	Status    AttendanceStatus `db:"status" json:"status"`
	Position  int              `db:"position" json:"-"`
}

// AttendanceEntryDetail extends an entry with the student's current name.
type AttendanceEntryDetail struct {
	AttendanceEntry
	StudentName string `db:"student_name" json:"student_name"`
}

// AttendanceSession is a single dated attendance event for one class batch.
// Sessions are append-only: no update or delete operations exist.
type AttendanceSession struct {
	ID        string    `db:"id" json:"id"`
	BatchID   string    `db:"batch_id" json:"batch_id"`
	Date      time.Time `db:"date" json:"date"`
	Remark    *string   `db:"remark" json:"remark,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	Entries []AttendanceEntry `db:"-" json:"entries"`
}

// AttendanceSessionDetail resolves the batch and student references to
// their current display names (a join, not a stored denormalization).
type AttendanceSessionDetail struct {
	ID        string    `db:"id" json:"id"`
	BatchID   string    `db:"batch_id" json:"batch_id"`
	BatchName string    `db:"batch_name" json:"batch_name"`
	Date      time.Time `db:"date" json:"date"`
	Remark    *string   `db:"remark" json:"remark,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	Entries []AttendanceEntryDetail `db:"-" json:"entries"`
}

// SummaryOutcome classifies a session by its entry statuses.
type SummaryOutcome string

const (
	SummaryAllPresent SummaryOutcome = "all_present"
	SummaryAllAbsent  SummaryOutcome = "all_absent"
	SummaryMixed      SummaryOutcome = "mixed"
)

// SessionSummary carries per-session status counts and the derived outcome.
type SessionSummary struct {
	Present int            `json:"present"`
	Absent  int            `json:"absent"`
	Late    int            `json:"late"`
	Total   int            `json:"total"`
	Outcome SummaryOutcome `json:"outcome"`
}

// Summarize computes counts and the outcome for a set of entries. The
// outcome mirrors the dashboard glyph: all present, all absent, or mixed.
func Summarize(entries []AttendanceEntryDetail) SessionSummary {
	summary := SessionSummary{Total: len(entries)}
	for _, entry := range entries {
		switch entry.Status {
		case AttendanceStatusPresent:
			summary.Present++
		case AttendanceStatusAbsent:
			summary.Absent++
		case AttendanceStatusLate:
			summary.Late++
		}
	}
	switch {
	case summary.Present == summary.Total:
		summary.Outcome = SummaryAllPresent
	case summary.Absent == summary.Total:
		summary.Outcome = SummaryAllAbsent
	default:
		summary.Outcome = SummaryMixed
	}
	return summary
}

// PageInfo contains cursor paging metadata returned in list responses.
type PageInfo struct {
	Limit      int    `json:"limit"`
	Count      int    `json:"count"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

// EncodeCursor builds an opaque cursor from the last row of a page.
func EncodeCursor(date time.Time, id string) string {
	raw := fmt.Sprintf("%s|%s", date.UTC().Format(time.RFC3339), id)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses an opaque cursor produced by EncodeCursor.
func DecodeCursor(cursor string) (time.Time, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("decode cursor: %w", err)
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 || parts[1] == "" {
		return time.Time{}, "", fmt.Errorf("malformed cursor")
	}
	date, err := time.Parse(time.RFC3339, parts[0])
	if err != nil {
		return time.Time{}, "", fmt.Errorf("malformed cursor date: %w", err)
	}
	return date, parts[1], nil
}

// NormalizeDate truncates a timestamp to a UTC date-only value. All
// attendance dates are stored and grouped this way to avoid off-by-one
// bucketing near midnight.
func NormalizeDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
