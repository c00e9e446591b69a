package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/harmonic-labs/academy-api/internal/models"
	"github.com/harmonic-labs/academy-api/internal/repository"
	appErrors "github.com/harmonic-labs/academy-api/pkg/errors"
)

type userRepoStub struct {
	users map[string]*models.User
}

func newUserRepoStub() *userRepoStub {
	return &userRepoStub{users: map[string]*models.User{}}
}

func (r *userRepoStub) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range r.users {
		if u.Username == username || u.Email == username {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *userRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

func (r *userRepoStub) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	for _, u := range r.users {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *userRepoStub) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	r.users[user.ID] = user
	return nil
}

type signupStudentStub struct {
	created []*models.Student
}

func (s *signupStudentStub) Create(ctx context.Context, student *models.Student) error {
	student.ID = uuid.NewString()
	s.created = append(s.created, student)
	return nil
}

func newAuthService(users *userRepoStub, students *signupStudentStub) *AuthService {
	return NewAuthService(users, students, nil, nil, AuthConfig{
		Secret:     "test-secret",
		Expiration: time.Hour,
		Issuer:     "academy-api",
	})
}

func TestAuthServiceSignupCreatesLinkedStudent(t *testing.T) {
	users := newUserRepoStub()
	students := &signupStudentStub{}
	svc := newAuthService(users, students)

	resp, err := svc.Signup(context.Background(), models.SignupRequest{
		Username: "amara",
		Email:    "amara@example.com",
		Password: "secret123",
		Role:     "student",
		Profile:  &models.StudentProfile{Name: "Amara", Branch: "Koramangala"},
	})
	require.NoError(t, err)
	require.Len(t, students.created, 1)
	require.NotNil(t, resp.User.StudentID)
	assert.Equal(t, students.created[0].ID, *resp.User.StudentID)
	assert.Equal(t, "/dashboard", resp.EntryRoute)
	assert.NotEmpty(t, resp.AccessToken)
}

func TestAuthServiceSignupAdminSkipsProfile(t *testing.T) {
	users := newUserRepoStub()
	students := &signupStudentStub{}
	svc := newAuthService(users, students)

	resp, err := svc.Signup(context.Background(), models.SignupRequest{
		Username: "head",
		Email:    "head@example.com",
		Password: "secret123",
		Role:     "admin",
	})
	require.NoError(t, err)
	assert.Empty(t, students.created)
	assert.Nil(t, resp.User.StudentID)
	assert.Equal(t, "/admin", resp.EntryRoute)
}

func TestAuthServiceSignupDuplicateConflicts(t *testing.T) {
	users := newUserRepoStub()
	svc := newAuthService(users, &signupStudentStub{})

	req := models.SignupRequest{Username: "amara", Email: "amara@example.com", Password: "secret123"}
	_, err := svc.Signup(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.Signup(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceSignupRejectsUnknownRole(t *testing.T) {
	svc := newAuthService(newUserRepoStub(), &signupStudentStub{})

	_, err := svc.Signup(context.Background(), models.SignupRequest{
		Username: "amara",
		Email:    "amara@example.com",
		Password: "secret123",
		Role:     "teacher",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginAndValidate(t *testing.T) {
	users := newUserRepoStub()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{ID: uuid.NewString(), Username: "amara", Email: "amara@example.com", PasswordHash: string(hash), Role: models.RoleStudent}
	users.users[user.ID] = user

	svc := newAuthService(users, &signupStudentStub{})
	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "amara@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "/dashboard", resp.EntryRoute)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	users := newUserRepoStub()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{ID: uuid.NewString(), Username: "amara", Email: "amara@example.com", PasswordHash: string(hash), Role: models.RoleStudent}
	users.users[user.ID] = user

	svc := newAuthService(users, &signupStudentStub{})
	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "amara@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateTokenRejectsTampered(t *testing.T) {
	svc := newAuthService(newUserRepoStub(), &signupStudentStub{})

	_, err := svc.ValidateToken("not.a.token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestEntryRouteTable(t *testing.T) {
	assert.Equal(t, "/admin", models.EntryRouteFor(models.RoleAdmin))
	assert.Equal(t, "/dashboard", models.EntryRouteFor(models.RoleStudent))
	assert.Equal(t, "/login", models.EntryRouteFor(models.UserRole("ghost")))
}
