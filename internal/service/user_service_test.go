package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"bizdesk/internal/lifecycle"
	"bizdesk/internal/model"
)

type userFixture struct {
	users    *MockUserRepository
	sessions *MockSessionRepository
	roles    *MockRoleRepository
	audit    *MockAuditRepository
	svc      UserService
}

func newUserFixture() *userFixture {
	f := &userFixture{
		users:    new(MockUserRepository),
		sessions: new(MockSessionRepository),
		roles:    new(MockRoleRepository),
		audit:    new(MockAuditRepository),
	}
	f.svc = NewUserService(f.users, f.sessions, f.roles, f.audit, &fakeTxManager{})
	return f
}

func TestUserService_CreateUser(t *testing.T) {
	f := newUserFixture()
	f.roles.On("FindByName", mock.Anything, model.RoleStaff).Return(&model.Role{Name: model.RoleStaff}, nil)
	f.users.On("GetByUsername", mock.Anything, "dwayne").Return(nil, gorm.ErrRecordNotFound)
	f.users.On("GetByEmail", mock.Anything, "dwayne@shop.example").Return(nil, gorm.ErrRecordNotFound)
	f.users.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.Password != "secret1" && u.IsActive
	})).Return(nil)
	f.audit.On("Log", mock.Anything, mock.Anything).Return(nil)

	res, err := f.svc.CreateUser(context.Background(), CreateUserRequest{
		Username: " dwayne ",
		Email:    " Dwayne@Shop.example",
		Password: "secret1",
		Role:     model.RoleStaff,
	}, managerActor())
	require.NoError(t, err)
	assert.Equal(t, "dwayne", res.Username)
	assert.Equal(t, "dwayne@shop.example", res.Email)
	assert.Equal(t, []string{model.ActionCreateUser}, f.audit.actions())
}

func TestUserService_CreateUserUnknownRole(t *testing.T) {
	f := newUserFixture()
	f.roles.On("FindByName", mock.Anything, "owner").Return(nil, gorm.ErrRecordNotFound)

	_, err := f.svc.CreateUser(context.Background(), CreateUserRequest{Username: "x", Email: "x@y.z", Password: "secret1", Role: "owner"}, managerActor())
	assert.ErrorIs(t, err, ErrValidation)
	f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUserService_CreateUserDuplicateEmail(t *testing.T) {
	f := newUserFixture()
	f.roles.On("FindByName", mock.Anything, model.RoleStaff).Return(&model.Role{Name: model.RoleStaff}, nil)
	f.users.On("GetByUsername", mock.Anything, "dwayne").Return(nil, gorm.ErrRecordNotFound)
	f.users.On("GetByEmail", mock.Anything, "dwayne@shop.example").Return(&model.User{ID: uuid.New()}, nil)

	_, err := f.svc.CreateUser(context.Background(), CreateUserRequest{Username: "dwayne", Email: "dwayne@shop.example", Password: "secret1", Role: model.RoleStaff}, managerActor())
	assert.ErrorIs(t, err, ErrConflict)
}

func TestUserService_BootstrapOnlyOnce(t *testing.T) {
	t.Run("empty table creates admin", func(t *testing.T) {
		f := newUserFixture()
		f.users.On("List", mock.Anything, "", "", 1, 1).Return([]model.User{}, int64(0), nil)
		f.users.On("GetByUsername", mock.Anything, "root").Return(nil, gorm.ErrRecordNotFound)
		f.users.On("GetByEmail", mock.Anything, "root@shop.example").Return(nil, gorm.ErrRecordNotFound)
		f.users.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.audit.On("Log", mock.Anything, mock.Anything).Return(nil)

		res, err := f.svc.Bootstrap(context.Background(), CreateUserRequest{Username: "root", Email: "root@shop.example", Password: "secret1", Role: model.RoleStaff})
		require.NoError(t, err)
		assert.Equal(t, model.RoleAdmin, res.Role)
	})

	t.Run("existing users conflict", func(t *testing.T) {
		f := newUserFixture()
		f.users.On("List", mock.Anything, "", "", 1, 1).Return([]model.User{{}}, int64(3), nil)

		_, err := f.svc.Bootstrap(context.Background(), CreateUserRequest{Username: "root", Email: "root@shop.example", Password: "secret1"})
		assert.ErrorIs(t, err, ErrConflict)
	})
}

func TestUserService_DisableRevokesSessions(t *testing.T) {
	f := newUserFixture()
	id := uuid.New()
	f.users.On("GetByID", mock.Anything, id).Return(&model.User{ID: id, Username: "kim", Role: model.RoleStaff, IsActive: true}, nil)
	f.users.On("Update", mock.Anything, mock.Anything).Return(nil)
	f.sessions.On("DeleteByUser", mock.Anything, id).Return(nil)
	f.audit.On("Log", mock.Anything, mock.Anything).Return(nil)

	inactive := false
	res, err := f.svc.UpdateUser(context.Background(), id, UpdateUserRequest{IsActive: &inactive}, managerActor())
	require.NoError(t, err)
	assert.False(t, res.IsActive)
	f.sessions.AssertCalled(t, "DeleteByUser", mock.Anything, id)
}

func TestUserService_CannotDisableOrDeleteSelf(t *testing.T) {
	f := newUserFixture()
	me := lifecycle.Actor{ID: uuid.New(), Role: model.RoleAdmin}
	f.users.On("GetByID", mock.Anything, me.ID).Return(&model.User{ID: me.ID, Role: model.RoleAdmin, IsActive: true}, nil)

	inactive := false
	_, err := f.svc.UpdateUser(context.Background(), me.ID, UpdateUserRequest{IsActive: &inactive}, me)
	assert.ErrorIs(t, err, ErrValidation)

	err = f.svc.DeleteUser(context.Background(), me.ID, me)
	assert.ErrorIs(t, err, ErrValidation)
	f.users.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestUserService_GetMissing(t *testing.T) {
	f := newUserFixture()
	id := uuid.New()
	f.users.On("GetByID", mock.Anything, id).Return(nil, gorm.ErrRecordNotFound)

	_, err := f.svc.GetUserByID(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
}
