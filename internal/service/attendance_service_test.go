package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonic-labs/academy-api/internal/models"
	"github.com/harmonic-labs/academy-api/internal/repository"
	appErrors "github.com/harmonic-labs/academy-api/pkg/errors"
)

type attendanceRepoStub struct {
	created  []*models.AttendanceSession
	sessions []models.AttendanceSessionDetail
	hasMore  bool
	err      error

	gotCursorDate *time.Time
	gotCursorID   string
	gotLimit      int
}

func (r *attendanceRepoStub) Create(ctx context.Context, session *models.AttendanceSession) error {
	if r.err != nil {
		return r.err
	}
	session.ID = uuid.NewString()
	r.created = append(r.created, session)
	return nil
}

func (r *attendanceRepoStub) List(ctx context.Context, cursorDate *time.Time, cursorID string, limit int) ([]models.AttendanceSessionDetail, bool, error) {
	r.gotCursorDate = cursorDate
	r.gotCursorID = cursorID
	r.gotLimit = limit
	return r.sessions, r.hasMore, r.err
}

func (r *attendanceRepoStub) ListByStudent(ctx context.Context, studentID string) ([]models.AttendanceSessionDetail, error) {
	return r.sessions, r.err
}

type batchLookupStub struct {
	err error
}

func (b batchLookupStub) FindByID(ctx context.Context, id string) (*models.ClassBatchDetail, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &models.ClassBatchDetail{ClassBatch: models.ClassBatch{ID: id, Name: "Guitar Evening"}}, nil
}

type cacheInvalidatorStub struct {
	patterns []string
}

func (c *cacheInvalidatorStub) DeleteByPattern(ctx context.Context, pattern string) error {
	c.patterns = append(c.patterns, pattern)
	return nil
}

func TestAttendanceServiceRecordDefaultsAndNormalizes(t *testing.T) {
	repo := &attendanceRepoStub{}
	cache := &cacheInvalidatorStub{}
	svc := NewAttendanceService(repo, batchLookupStub{}, cache, nil, nil, nil, 50)

	studentA := uuid.NewString()
	studentB := uuid.NewString()
	session, err := svc.Record(context.Background(), RecordAttendanceRequest{
		BatchID: uuid.NewString(),
		Date:    "2025-03-10",
		Entries: []AttendanceEntryItem{
			{StudentID: studentA, Status: "Present"},
			{StudentID: studentB},
		},
	})
	require.NoError(t, err)
	require.Len(t, session.Entries, 2)
	assert.Equal(t, models.AttendanceStatusPresent, session.Entries[0].Status)
	assert.Equal(t, models.AttendanceStatusAbsent, session.Entries[1].Status)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), session.Date)
	assert.Equal(t, []string{"reports:attendance:*"}, cache.patterns)
}

func TestAttendanceServiceRecordRejectsDuplicateStudent(t *testing.T) {
	repo := &attendanceRepoStub{}
	svc := NewAttendanceService(repo, batchLookupStub{}, nil, nil, nil, nil, 50)

	student := uuid.NewString()
	_, err := svc.Record(context.Background(), RecordAttendanceRequest{
		BatchID: uuid.NewString(),
		Date:    "2025-03-10",
		Entries: []AttendanceEntryItem{
			{StudentID: student, Status: "Present"},
			{StudentID: student, Status: "Absent"},
		},
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Empty(t, repo.created)
}

func TestAttendanceServiceRecordUnknownBatch(t *testing.T) {
	svc := NewAttendanceService(&attendanceRepoStub{}, batchLookupStub{err: repository.ErrBatchNotFound}, nil, nil, nil, nil, 50)

	_, err := svc.Record(context.Background(), RecordAttendanceRequest{
		BatchID: uuid.NewString(),
		Date:    "2025-03-10",
		Entries: []AttendanceEntryItem{{StudentID: uuid.NewString(), Status: "Present"}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAttendanceServiceRecordBatchLookupFailure(t *testing.T) {
	svc := NewAttendanceService(&attendanceRepoStub{}, batchLookupStub{err: errors.New("connection refused")}, nil, nil, nil, nil, 50)

	_, err := svc.Record(context.Background(), RecordAttendanceRequest{
		BatchID: uuid.NewString(),
		Date:    "2025-03-10",
		Entries: []AttendanceEntryItem{{StudentID: uuid.NewString(), Status: "Present"}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStorage.Code, appErrors.FromError(err).Code)
}

func TestAttendanceServiceRecordDefaultsDateToToday(t *testing.T) {
	repo := &attendanceRepoStub{}
	svc := NewAttendanceService(repo, batchLookupStub{}, nil, nil, nil, nil, 50)

	before := models.NormalizeDate(time.Now().UTC())
	session, err := svc.Record(context.Background(), RecordAttendanceRequest{
		BatchID: uuid.NewString(),
		Entries: []AttendanceEntryItem{
			{StudentID: uuid.NewString(), Status: "Present"},
			{StudentID: uuid.NewString()},
		},
	})
	after := models.NormalizeDate(time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, session.Entries, 2)
	assert.Equal(t, models.AttendanceStatusPresent, session.Entries[0].Status)
	assert.Equal(t, models.AttendanceStatusAbsent, session.Entries[1].Status)
	assert.False(t, session.Date.Before(before))
	assert.False(t, session.Date.After(after))
}

func TestAttendanceServiceRecordAllowsEmptyEntries(t *testing.T) {
	repo := &attendanceRepoStub{}
	svc := NewAttendanceService(repo, batchLookupStub{}, nil, nil, nil, nil, 50)

	session, err := svc.Record(context.Background(), RecordAttendanceRequest{
		BatchID: uuid.NewString(),
		Date:    "2025-03-10",
		Entries: []AttendanceEntryItem{},
	})
	require.NoError(t, err)
	assert.Empty(t, session.Entries)
	require.Len(t, repo.created, 1)
}

func TestAttendanceServiceRecordMissingEntries(t *testing.T) {
	svc := NewAttendanceService(&attendanceRepoStub{}, batchLookupStub{}, nil, nil, nil, nil, 50)

	_, err := svc.Record(context.Background(), RecordAttendanceRequest{
		BatchID: uuid.NewString(),
		Date:    "2025-03-10",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAttendanceServiceRecordRejectsInvalidStatus(t *testing.T) {
	svc := NewAttendanceService(&attendanceRepoStub{}, batchLookupStub{}, nil, nil, nil, nil, 50)

	_, err := svc.Record(context.Background(), RecordAttendanceRequest{
		BatchID: uuid.NewString(),
		Date:    "2025-03-10",
		Entries: []AttendanceEntryItem{{StudentID: uuid.NewString(), Status: "Sick"}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAttendanceServiceListBuildsNextCursor(t *testing.T) {
	last := models.AttendanceSessionDetail{ID: "s1", Date: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)}
	repo := &attendanceRepoStub{
		sessions: []models.AttendanceSessionDetail{{ID: "s2", Date: time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)}, last},
		hasMore:  true,
	}
	svc := NewAttendanceService(repo, batchLookupStub{}, nil, nil, nil, nil, 50)

	sessions, page, err := svc.List(context.Background(), ListAttendanceRequest{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
	assert.True(t, page.HasMore)
	require.NotEmpty(t, page.NextCursor)

	date, id, err := models.DecodeCursor(page.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, "s1", id)
	assert.True(t, date.Equal(last.Date))
}

func TestAttendanceServiceListResumesFromCursor(t *testing.T) {
	repo := &attendanceRepoStub{}
	svc := NewAttendanceService(repo, batchLookupStub{}, nil, nil, nil, nil, 50)

	cursor := models.EncodeCursor(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), "s1")
	_, page, err := svc.List(context.Background(), ListAttendanceRequest{Cursor: cursor, Limit: 10})
	require.NoError(t, err)
	assert.False(t, page.HasMore)
	assert.Empty(t, page.NextCursor)
	require.NotNil(t, repo.gotCursorDate)
	assert.Equal(t, "s1", repo.gotCursorID)
	assert.Equal(t, 10, repo.gotLimit)
}

func TestAttendanceServiceListRejectsMalformedCursor(t *testing.T) {
	svc := NewAttendanceService(&attendanceRepoStub{}, batchLookupStub{}, nil, nil, nil, nil, 50)

	_, _, err := svc.List(context.Background(), ListAttendanceRequest{Cursor: "not-a-cursor"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAttendanceServiceListByStudentEmptyIsNotFound(t *testing.T) {
	svc := NewAttendanceService(&attendanceRepoStub{}, batchLookupStub{}, nil, nil, nil, nil, 50)

	_, err := svc.ListByStudent(context.Background(), uuid.NewString())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAttendanceServiceListByStudentRejectsBadID(t *testing.T) {
	svc := NewAttendanceService(&attendanceRepoStub{}, batchLookupStub{}, nil, nil, nil, nil, 50)

	_, err := svc.ListByStudent(context.Background(), "abc")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
