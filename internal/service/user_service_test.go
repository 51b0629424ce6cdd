package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type userRepoStub struct {
	users  map[string]*models.User
	audits []*models.AuditLog
	filter models.UserFilter
}

func newUserRepoStub(users ...*models.User) *userRepoStub {
	repo := &userRepoStub{users: map[string]*models.User{}}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (r *userRepoStub) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	r.filter = filter
	var out []models.User
	for _, u := range r.users {
		if filter.Role == nil || u.Role == *filter.Role {
			out = append(out, *u)
		}
	}
	return out, len(out), nil
}

func (r *userRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (r *userRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *userRepoStub) Create(ctx context.Context, user *models.User) error {
	user.ID = fmt.Sprintf("user-%d", len(r.users)+1)
	r.users[user.ID] = user
	return nil
}

func (r *userRepoStub) Update(ctx context.Context, user *models.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return sql.ErrNoRows
	}
	r.users[user.ID] = user
	return nil
}

func (r *userRepoStub) Deactivate(ctx context.Context, id string) error {
	u, ok := r.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.Active = false
	return nil
}

func (r *userRepoStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.audits = append(r.audits, log)
	return nil
}

var root = Actor{UserID: "root", Role: models.RoleSuperAdmin}

func TestUserServiceCreate(t *testing.T) {
	repo := newUserRepoStub()
	svc := NewUserService(repo, nil, zap.NewNop())

	user, err := svc.Create(context.Background(), root, dto.CreateUserRequest{
		Email:    "Coord@Escola.test",
		FullName: "Coordenação",
		Role:     models.RoleAdmin,
		Password: "segredo123",
	}, "127.0.0.1", "test")
	require.NoError(t, err)
	assert.Equal(t, "coord@escola.test", user.Email)
	assert.True(t, user.Active)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("segredo123")))

	require.Len(t, repo.audits, 1)
	assert.Equal(t, models.AuditActionUserCreate, repo.audits[0].Action)
	assert.Equal(t, "root", *repo.audits[0].UserID)
	assert.Equal(t, "127.0.0.1", repo.audits[0].IPAddress)

	_, err = svc.Create(context.Background(), root, dto.CreateUserRequest{
		Email: "coord@escola.test", FullName: "Outro", Role: models.RoleTeacher, Password: "segredo123",
	}, "", "")
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestUserServiceCreateValidation(t *testing.T) {
	svc := NewUserService(newUserRepoStub(), nil, nil)
	_, err := svc.Create(context.Background(), root, dto.CreateUserRequest{
		Email: "aluno@escola.test", FullName: "Aluno", Role: "STUDENT", Password: "segredo123",
	}, "", "")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserServiceUpdateAndDelete(t *testing.T) {
	repo := newUserRepoStub(
		&models.User{ID: "root", Email: "root@escola.test", Role: models.RoleSuperAdmin, Active: true},
		&models.User{ID: "u1", Email: "prof@escola.test", Role: models.RoleTeacher, Active: true},
	)
	svc := NewUserService(repo, nil, zap.NewNop())
	ctx := context.Background()

	updated, err := svc.Update(ctx, root, "u1", dto.UpdateUserRequest{FullName: "Prof. Ana", Role: models.RoleAdmin}, "", "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, updated.Role)
	assert.True(t, updated.Active)
	require.Len(t, repo.audits, 1)
	assert.NotEmpty(t, repo.audits[0].OldValues)

	_, err = svc.Update(ctx, root, "root", dto.UpdateUserRequest{FullName: "Root", Role: models.RoleAdmin}, "", "")
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Delete(ctx, root, "u1", "", ""))
	assert.False(t, repo.users["u1"].Active)

	err = svc.Delete(ctx, root, "root", "", "")
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	err = svc.Delete(ctx, root, "ghost", "", "")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUserServiceListRoleFilter(t *testing.T) {
	repo := newUserRepoStub(
		&models.User{ID: "a", Role: models.RoleAdmin},
		&models.User{ID: "t", Role: models.RoleTeacher},
	)
	svc := NewUserService(repo, nil, nil)

	users, page, err := svc.List(context.Background(), dto.UserQuery{Role: "teacher"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "t", users[0].ID)
	assert.Equal(t, 1, page.TotalCount)
	require.NotNil(t, repo.filter.Role)
	assert.Equal(t, models.RoleTeacher, *repo.filter.Role)
}
