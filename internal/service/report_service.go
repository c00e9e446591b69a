package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/harmonic-labs/academy-api/internal/dto"
	"github.com/harmonic-labs/academy-api/internal/models"
	appErrors "github.com/harmonic-labs/academy-api/pkg/errors"
)

type reportAttendanceRepository interface {
	ListForReport(ctx context.Context, batchID *string) ([]models.AttendanceSessionDetail, error)
}

type reportCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// ReportService derives the grouped attendance report view.
type ReportService struct {
	repo         reportAttendanceRepository
	cache        reportCache
	metrics      *MetricsService
	logger       *zap.Logger
	cacheEnabled bool
	cacheTTL     time.Duration
}

// NewReportService constructs the report service.
func NewReportService(repo reportAttendanceRepository, cache reportCache, metrics *MetricsService, logger *zap.Logger, cacheEnabled bool, cacheTTL time.Duration) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &ReportService{repo: repo, cache: cache, metrics: metrics, logger: logger, cacheEnabled: cacheEnabled, cacheTTL: cacheTTL}
}

// AttendanceReport returns sessions grouped by batch and calendar month,
// newest first within each bucket. The view is cached until the next
// attendance write invalidates it.
func (s *ReportService) AttendanceReport(ctx context.Context, batchID *string) (*dto.AttendanceReport, error) {
	key := reportCacheKey(batchID)
	if s.cacheEnabled && s.cache != nil {
		var cached dto.AttendanceReport
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.metrics.RecordCacheLookup(true)
			return &cached, nil
		} else if err != appErrors.ErrCacheMiss {
			s.logger.Warn("report cache read failed", zap.String("key", key), zap.Error(err))
		}
		s.metrics.RecordCacheLookup(false)
	}

	sessions, err := s.repo.ListForReport(ctx, batchID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to build attendance report")
	}
	report := GroupSessions(sessions)

	if s.cacheEnabled && s.cache != nil {
		if err := s.cache.Set(ctx, key, report, s.cacheTTL); err != nil {
			s.logger.Warn("report cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return report, nil
}

// GroupSessions buckets sessions by batch, then by calendar month in
// descending order. Input order (date desc, id desc) is preserved within
// each month so the grouping is a pure reshaping of the session list.
func GroupSessions(sessions []models.AttendanceSessionDetail) *dto.AttendanceReport {
	report := &dto.AttendanceReport{
		Batches:     []dto.BatchGroup{},
		TotalCount:  len(sessions),
		GeneratedAt: time.Now().UTC(),
	}

	batchIndex := map[string]int{}
	for _, session := range sessions {
		bi, ok := batchIndex[session.BatchID]
		if !ok {
			bi = len(report.Batches)
			batchIndex[session.BatchID] = bi
			report.Batches = append(report.Batches, dto.BatchGroup{
				BatchID:   session.BatchID,
				BatchName: session.BatchName,
				Months:    []dto.MonthGroup{},
			})
		}
		batch := &report.Batches[bi]

		year, month := session.Date.Year(), session.Date.Month()
		var group *dto.MonthGroup
		for mi := range batch.Months {
			if batch.Months[mi].Year == year && batch.Months[mi].Month == month {
				group = &batch.Months[mi]
				break
			}
		}
		if group == nil {
			batch.Months = append(batch.Months, dto.MonthGroup{
				Year:  year,
				Month: month,
				Label: fmt.Sprintf("%s %d", month.String(), year),
			})
			group = &batch.Months[len(batch.Months)-1]
		}

		group.Sessions = append(group.Sessions, dto.ReportSession{
			ID:      session.ID,
			Date:    session.Date,
			Remark:  session.Remark,
			Summary: models.Summarize(session.Entries),
			Entries: session.Entries,
		})
	}
	return report
}

func reportCacheKey(batchID *string) string {
	if batchID != nil && *batchID != "" {
		return "reports:attendance:" + *batchID
	}
	return "reports:attendance:all"
}
