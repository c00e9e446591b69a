package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonic-labs/academy-api/internal/models"
	"github.com/harmonic-labs/academy-api/internal/repository"
	appErrors "github.com/harmonic-labs/academy-api/pkg/errors"
)

type studentRepoStub struct {
	students map[string]*models.Student
	findErr  error
}

func newStudentRepoStub() *studentRepoStub {
	return &studentRepoStub{students: map[string]*models.Student{}}
}

func (r *studentRepoStub) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	var out []models.Student
	for _, s := range r.students {
		out = append(out, *s)
	}
	return out, nil
}

func (r *studentRepoStub) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	s, ok := r.students[id]
	if !ok {
		return nil, repository.ErrStudentNotFound
	}
	return s, nil
}

func (r *studentRepoStub) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	r.students[student.ID] = student
	return nil
}

func (r *studentRepoStub) Update(ctx context.Context, student *models.Student) error {
	r.students[student.ID] = student
	return nil
}

func validStudentRequest() StudentRequest {
	return StudentRequest{
		Name:        "Amara",
		Email:       "amara@example.com",
		Mobile:      "555-0101",
		Instruments: []string{"guitar"},
		Branch:      "Koramangala",
		JoiningDate: "2024-06-15",
	}
}

func TestStudentServiceCreateDefaultsActive(t *testing.T) {
	repo := newStudentRepoStub()
	svc := NewStudentService(repo, nil, nil)

	student, err := svc.Create(context.Background(), validStudentRequest())
	require.NoError(t, err)
	assert.Equal(t, models.StudentStatusActive, student.Status)
	assert.Equal(t, 15, student.JoiningDate.Day())
}

func TestStudentServiceCreateRejectsBadEmail(t *testing.T) {
	svc := NewStudentService(newStudentRepoStub(), nil, nil)

	req := validStudentRequest()
	req.Email = "not-an-email"
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceCreateRejectsBadStatus(t *testing.T) {
	svc := NewStudentService(newStudentRepoStub(), nil, nil)

	req := validStudentRequest()
	req.Status = "Paused"
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceUpdateStatusTransition(t *testing.T) {
	repo := newStudentRepoStub()
	svc := NewStudentService(repo, nil, nil)

	created, err := svc.Create(context.Background(), validStudentRequest())
	require.NoError(t, err)

	req := validStudentRequest()
	req.Status = string(models.StudentStatusFreezed)
	updated, err := svc.Update(context.Background(), created.ID, req)
	require.NoError(t, err)
	assert.Equal(t, models.StudentStatusFreezed, updated.Status)
}

func TestStudentServiceGetUnknown(t *testing.T) {
	svc := NewStudentService(newStudentRepoStub(), nil, nil)

	_, err := svc.Get(context.Background(), uuid.NewString())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceGetLookupFailure(t *testing.T) {
	repo := newStudentRepoStub()
	repo.findErr = errors.New("connection refused")
	svc := NewStudentService(repo, nil, nil)

	_, err := svc.Get(context.Background(), uuid.NewString())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStorage.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceListRejectsInvalidStatusFilter(t *testing.T) {
	svc := NewStudentService(newStudentRepoStub(), nil, nil)

	_, err := svc.List(context.Background(), models.StudentFilter{Status: "Paused"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
