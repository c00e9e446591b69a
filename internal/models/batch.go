package models

import "time"

// ClassBatch represents a recurring scheduled class with an instructor,
// timing, and roster of assigned students.
type ClassBatch struct {
	ID         string     `db:"id" json:"id"`
	Name       string     `db:"name" json:"name"`
	Instructor string     `db:"instructor" json:"instructor"`
	Instrument string     `db:"instrument" json:"instrument"`
	Timing     string     `db:"timing" json:"timing"`
	StartDate  *time.Time `db:"start_date" json:"start_date,omitempty"`
	Branch     string     `db:"branch" json:"branch"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`

	// StudentIDs is the batch roster. Attendance entries are not
	// constrained to it: ad-hoc attendees may be recorded per session.
	StudentIDs []string `db:"-" json:"student_ids"`
}

// ClassBatchDetail extends a batch with its resolved roster.
type ClassBatchDetail struct {
	ClassBatch
	Students []Student `db:"-" json:"students,omitempty"`
}

// ClassBatchFilter defines filter criteria for listing batches.
type ClassBatchFilter struct {
	Instrument string
	Branch     string
	Search     string
}
