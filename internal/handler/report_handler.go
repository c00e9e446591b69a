package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harmonic-labs/academy-api/internal/dto"
	"github.com/harmonic-labs/academy-api/internal/service"
	appErrors "github.com/harmonic-labs/academy-api/pkg/errors"
	"github.com/harmonic-labs/academy-api/pkg/response"
)

type attendanceReportService interface {
	AttendanceReport(ctx context.Context, batchID *string) (*dto.AttendanceReport, error)
}

type exportJobService interface {
	CreateJob(ctx context.Context, req dto.ExportRequest, actorID string) (*dto.ExportJobResponse, error)
	GetStatus(ctx context.Context, id string) (*dto.ExportStatusResponse, error)
	ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error)
}

// ReportHandler exposes the grouped attendance report and its exports.
type ReportHandler struct {
	reports attendanceReportService
	exports exportJobService
}

// NewReportHandler constructs the handler.
func NewReportHandler(reports attendanceReportService, exports exportJobService) *ReportHandler {
	return &ReportHandler{reports: reports, exports: exports}
}

// Attendance godoc
// @Summary Attendance report grouped by batch and month
// @Tags Reports
// @Produce json
// @Param batchId query string false "Scope to one batch"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/attendance [get]
func (h *ReportHandler) Attendance(c *gin.Context) {
	var batchID *string
	if raw := c.Query("batchId"); raw != "" {
		batchID = &raw
	}
	report, err := h.reports.AttendanceReport(c.Request.Context(), batchID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// CreateExport godoc
// @Summary Queue an attendance report export
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body dto.ExportRequest true "Export payload"
// @Success 202 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/attendance/export [post]
func (h *ReportHandler) CreateExport(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	resp, err := h.exports.CreateJob(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, resp, nil)
}

// ExportStatus godoc
// @Summary Export job status
// @Tags Reports
// @Produce json
// @Param id path string true "Export job ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/exports/{id} [get]
func (h *ReportHandler) ExportStatus(c *gin.Context) {
	resp, err := h.exports.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// Download godoc
// @Summary Download a finished export by signed token
// @Tags Reports
// @Produce application/octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Router /reports/download/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	download, err := h.exports.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	contentType := "text/csv"
	if download.Format == "pdf" {
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Filename))
	c.Header("Content-Type", contentType)

	stat, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat export file"))
		return
	}
	c.DataFromReader(http.StatusOK, stat.Size(), contentType, download.File, nil)
}
