package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"bizdesk/internal/model"
)

func TestRoleService_SeedGrantsPerRole(t *testing.T) {
	repo := new(MockRoleRepository)
	repo.On("UpsertPermission", mock.Anything, mock.Anything).Return(nil)
	repo.On("FindByName", mock.Anything, model.RoleAdmin).Return(&model.Role{Name: model.RoleAdmin, IsSystem: true}, nil)
	repo.On("FindByName", mock.Anything, mock.Anything).Return(nil, gorm.ErrRecordNotFound)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	granted := map[string][]string{}
	repo.On("ReplacePermissions", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			role := args.Get(1).(*model.Role)
			for _, p := range args.Get(2).([]model.Permission) {
				granted[role.Name] = append(granted[role.Name], p.Code)
			}
		}).
		Return(nil)

	changes := 0
	svc := NewRoleService(repo, &fakeTxManager{}, func() { changes++ })
	require.NoError(t, svc.SeedDefaultRolesAndPermissions(context.Background()))

	assert.Len(t, granted[model.RoleAdmin], len(defaultPermissions))
	assert.Contains(t, granted[model.RoleManager], "invoices.write")
	assert.NotContains(t, granted[model.RoleManager], "roles.manage")
	assert.Contains(t, granted[model.RoleStaff], "work_orders.write")
	assert.Contains(t, granted[model.RoleStaff], "pricing.use")
	assert.NotContains(t, granted[model.RoleStaff], "users.read")
	assert.NotContains(t, granted[model.RoleStaff], "invoices.write")
	assert.Equal(t, 1, changes)

	// admin already existed, the other two system roles are created
	repo.AssertNumberOfCalls(t, "Create", 2)
}

func TestRoleService_CreateRoleConflict(t *testing.T) {
	repo := new(MockRoleRepository)
	repo.On("FindByName", mock.Anything, "cashier").Return(&model.Role{Name: "cashier"}, nil)

	svc := NewRoleService(repo, &fakeTxManager{}, nil)
	_, err := svc.CreateRole(context.Background(), CreateRoleRequest{Name: " Cashier "})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestRoleService_CreateRoleUnknownPermission(t *testing.T) {
	repo := new(MockRoleRepository)
	known := uuid.New()
	repo.On("FindByName", mock.Anything, "cashier").Return(nil, gorm.ErrRecordNotFound)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	repo.On("FindPermissionsByIDs", mock.Anything, mock.Anything).Return([]model.Permission{{ID: known}}, nil)

	svc := NewRoleService(repo, &fakeTxManager{}, nil)
	_, err := svc.CreateRole(context.Background(), CreateRoleRequest{
		Name:        "cashier",
		Permissions: []string{known.String(), uuid.NewString()},
	})
	assert.ErrorIs(t, err, ErrValidation)
	repo.AssertNotCalled(t, "ReplacePermissions", mock.Anything, mock.Anything, mock.Anything)
}

func TestRoleService_SystemRolesAreProtected(t *testing.T) {
	repo := new(MockRoleRepository)
	id := uuid.New()
	repo.On("FindByID", mock.Anything, id).Return(&model.Role{ID: id, Name: model.RoleStaff, IsSystem: true}, nil)

	svc := NewRoleService(repo, &fakeTxManager{}, nil)

	_, err := svc.UpdateRole(context.Background(), id, UpdateRoleRequest{Name: "crew"})
	assert.ErrorIs(t, err, ErrValidation)

	err = svc.DeleteRole(context.Background(), id)
	assert.ErrorIs(t, err, ErrValidation)
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestRoleService_DeleteRoleInUse(t *testing.T) {
	repo := new(MockRoleRepository)
	id := uuid.New()
	repo.On("FindByID", mock.Anything, id).Return(&model.Role{ID: id, Name: "cashier"}, nil)
	repo.On("CountUsers", mock.Anything, "cashier").Return(int64(2), nil)

	svc := NewRoleService(repo, &fakeTxManager{}, nil)
	err := svc.DeleteRole(context.Background(), id)
	assert.ErrorIs(t, err, ErrConflict)
}
