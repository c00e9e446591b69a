package dto

import (
	"time"

	"github.com/harmonic-labs/academy-api/internal/models"
)

// ReportSession is one attendance session inside the grouped report view.
type ReportSession struct {
	ID      string                         `json:"id"`
	Date    time.Time                      `json:"date"`
	Remark  *string                        `json:"remark,omitempty"`
	Summary models.SessionSummary          `json:"summary"`
	Entries []models.AttendanceEntryDetail `json:"entries"`
}

// MonthGroup buckets a batch's sessions by calendar month, most recent
// session first.
type MonthGroup struct {
	Year     int             `json:"year"`
	Month    time.Month      `json:"month"`
	Label    string          `json:"label"`
	Sessions []ReportSession `json:"sessions"`
}

// BatchGroup buckets the report by class batch, months descending.
type BatchGroup struct {
	BatchID   string       `json:"batch_id"`
	BatchName string       `json:"batch_name"`
	Months    []MonthGroup `json:"months"`
}

// AttendanceReport is the full grouped view derived from a page of
// attendance sessions. It is recomputed from storage on demand and
// cached until the next attendance write.
type AttendanceReport struct {
	Batches     []BatchGroup `json:"batches"`
	TotalCount  int          `json:"total_count"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// ExportRequest asks for an asynchronous attendance-report export.
type ExportRequest struct {
	BatchID *string             `json:"batch_id,omitempty"`
	Format  models.ExportFormat `json:"format"`
}

// ExportJobResponse acknowledges a queued export job.
type ExportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ExportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ExportStatusResponse reports job progress and the signed result URL.
type ExportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ExportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"result_url,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
