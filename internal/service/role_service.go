package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"bizdesk/internal/model"
	"bizdesk/internal/repository"
)

// --- DTOs ---

type CreateRoleRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"` // Permission UUIDs
}

type UpdateRoleRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type UpdateRolePermissionsRequest struct {
	PermissionIDs []string `json:"permission_ids" binding:"required"`
}

type RoleResponse struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	IsSystem    bool                 `json:"is_system"`
	Permissions []PermissionResponse `json:"permissions"`
	CreatedAt   string               `json:"created_at"`
}

type PermissionResponse struct {
	ID    string `json:"id"`
	Code  string `json:"code"`
	Name  string `json:"name"`
	Group string `json:"group"`
}

// --- Interface ---

type RoleService interface {
	ListRoles(ctx context.Context) ([]RoleResponse, error)
	GetRole(ctx context.Context, id uuid.UUID) (*RoleResponse, error)
	CreateRole(ctx context.Context, req CreateRoleRequest) (*RoleResponse, error)
	UpdateRole(ctx context.Context, id uuid.UUID, req UpdateRoleRequest) (*RoleResponse, error)
	DeleteRole(ctx context.Context, id uuid.UUID) error
	ListPermissions(ctx context.Context) ([]PermissionResponse, error)
	UpdateRolePermissions(ctx context.Context, id uuid.UUID, req UpdateRolePermissionsRequest) (*RoleResponse, error)
	GetPermissionsByRoleName(ctx context.Context, roleName string) ([]string, error)
	SeedDefaultRolesAndPermissions(ctx context.Context) error
}

type roleService struct {
	repo      repository.RoleRepository
	txManager repository.TransactionManager
	onChange  func()
}

// NewRoleService returns a RoleService. onChange, if set, is called after any
// change to role permissions so callers can drop cached lookups.
func NewRoleService(repo repository.RoleRepository, txManager repository.TransactionManager, onChange func()) RoleService {
	if onChange == nil {
		onChange = func() {}
	}
	return &roleService{repo: repo, txManager: txManager, onChange: onChange}
}

// --- Implementation ---

func (s *roleService) ListRoles(ctx context.Context) ([]RoleResponse, error) {
	roles, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roles: %w", err)
	}

	res := make([]RoleResponse, 0, len(roles))
	for _, r := range roles {
		res = append(res, toRoleResponse(r))
	}
	return res, nil
}

func (s *roleService) GetRole(ctx context.Context, id uuid.UUID) (*RoleResponse, error) {
	role, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "role")
	}
	resp := toRoleResponse(*role)
	return &resp, nil
}

func (s *roleService) CreateRole(ctx context.Context, req CreateRoleRequest) (*RoleResponse, error) {
	name := strings.ToLower(strings.TrimSpace(req.Name))
	if name == "" {
		return nil, fmt.Errorf("%w: role name is required", ErrValidation)
	}
	if _, err := s.repo.FindByName(ctx, name); err == nil {
		return nil, fmt.Errorf("role %q %w", name, ErrConflict)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check role: %w", err)
	}

	ids, err := parseIDs(req.Permissions, "permissions")
	if err != nil {
		return nil, err
	}

	role := &model.Role{Name: name, Description: req.Description}
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, role); err != nil {
			return fmt.Errorf("failed to create role: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}
		perms, err := s.repo.FindPermissionsByIDs(txCtx, ids)
		if err != nil {
			return fmt.Errorf("failed to fetch permissions: %w", err)
		}
		if len(perms) != len(ids) {
			return fmt.Errorf("%w: unknown permission id", ErrValidation)
		}
		return s.repo.ReplacePermissions(txCtx, role, perms)
	})
	if err != nil {
		return nil, err
	}

	s.onChange()
	return s.GetRole(ctx, role.ID)
}

func (s *roleService) UpdateRole(ctx context.Context, id uuid.UUID, req UpdateRoleRequest) (*RoleResponse, error) {
	role, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "role")
	}

	name := strings.ToLower(strings.TrimSpace(req.Name))
	if role.IsSystem && name != role.Name {
		return nil, fmt.Errorf("%w: system roles cannot be renamed", ErrValidation)
	}
	if name != role.Name {
		if _, err := s.repo.FindByName(ctx, name); err == nil {
			return nil, fmt.Errorf("role %q %w", name, ErrConflict)
		}
	}

	role.Name = name
	role.Description = req.Description
	if err := s.repo.Update(ctx, role); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	s.onChange()
	resp := toRoleResponse(*role)
	return &resp, nil
}

func (s *roleService) DeleteRole(ctx context.Context, id uuid.UUID) error {
	role, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "role")
	}
	if role.IsSystem {
		return fmt.Errorf("%w: cannot delete system role %q", ErrValidation, role.Name)
	}

	inUse, err := s.repo.CountUsers(ctx, role.Name)
	if err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if inUse > 0 {
		return fmt.Errorf("%w: role %q is assigned to %d user(s)", ErrConflict, role.Name, inUse)
	}

	if err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		return s.repo.Delete(txCtx, role)
	}); err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}

	s.onChange()
	return nil
}

func (s *roleService) ListPermissions(ctx context.Context) ([]PermissionResponse, error) {
	perms, err := s.repo.ListPermissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch permissions: %w", err)
	}

	res := make([]PermissionResponse, 0, len(perms))
	for _, p := range perms {
		res = append(res, toPermissionResponse(p))
	}
	return res, nil
}

func (s *roleService) UpdateRolePermissions(ctx context.Context, id uuid.UUID, req UpdateRolePermissionsRequest) (*RoleResponse, error) {
	role, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "role")
	}

	ids, err := parseIDs(req.PermissionIDs, "permission_ids")
	if err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		perms, err := s.repo.FindPermissionsByIDs(txCtx, ids)
		if err != nil {
			return fmt.Errorf("failed to fetch permissions: %w", err)
		}
		if len(perms) != len(ids) {
			return fmt.Errorf("%w: unknown permission id", ErrValidation)
		}
		return s.repo.ReplacePermissions(txCtx, role, perms)
	})
	if err != nil {
		return nil, err
	}

	s.onChange()
	return s.GetRole(ctx, id)
}

func (s *roleService) GetPermissionsByRoleName(ctx context.Context, roleName string) ([]string, error) {
	codes, err := s.repo.PermissionCodes(ctx, roleName)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch permissions: %w", err)
	}
	return codes, nil
}

// SeedDefaultRolesAndPermissions creates the permission catalog and the three
// system roles. Existing system roles get their default grants back; custom
// roles are left alone.
func (s *roleService) SeedDefaultRolesAndPermissions(ctx context.Context) error {
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		byCode := make(map[string]model.Permission, len(defaultPermissions))
		for _, p := range defaultPermissions {
			perm := p
			if err := s.repo.UpsertPermission(txCtx, &perm); err != nil {
				return fmt.Errorf("failed to seed permission %s: %w", p.Code, err)
			}
			byCode[perm.Code] = perm
		}

		for _, def := range defaultRoles {
			role, err := s.repo.FindByName(txCtx, def.name)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				role = &model.Role{Name: def.name, Description: def.description, IsSystem: true}
				if err := s.repo.Create(txCtx, role); err != nil {
					return fmt.Errorf("failed to seed role %s: %w", def.name, err)
				}
			} else if err != nil {
				return fmt.Errorf("failed to fetch role %s: %w", def.name, err)
			}

			perms := make([]model.Permission, 0, len(byCode))
			for code, p := range byCode {
				if def.grants(code) {
					perms = append(perms, p)
				}
			}
			if err := s.repo.ReplacePermissions(txCtx, role, perms); err != nil {
				return fmt.Errorf("failed to grant permissions to %s: %w", def.name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.onChange()
	return nil
}

// --- Seed data ---

var defaultPermissions = []model.Permission{
	{Code: "dashboard.read", Name: "View dashboard", Group: "dashboard"},
	{Code: "pricing.use", Name: "Use the price calculator", Group: "pricing"},
	{Code: "products.read", Name: "View products", Group: "products"},
	{Code: "products.write", Name: "Create and edit products", Group: "products"},
	{Code: "categories.write", Name: "Manage categories", Group: "products"},
	{Code: "distributor_invoices.write", Name: "Import distributor invoices", Group: "products"},
	{Code: "customers.read", Name: "View customers", Group: "customers"},
	{Code: "customers.write", Name: "Create and edit customers", Group: "customers"},
	{Code: "work_orders.read", Name: "View work orders", Group: "work_orders"},
	{Code: "work_orders.write", Name: "Create and update work orders", Group: "work_orders"},
	{Code: "tickets.read", Name: "View tickets", Group: "tickets"},
	{Code: "tickets.write", Name: "Create and update tickets", Group: "tickets"},
	{Code: "tasks.read", Name: "View tasks", Group: "tasks"},
	{Code: "tasks.write", Name: "Create and update tasks", Group: "tasks"},
	{Code: "quotations.read", Name: "View quotation requests and quotations", Group: "quotations"},
	{Code: "quotations.write", Name: "Handle quotation requests and issue quotations", Group: "quotations"},
	{Code: "inquiries.read", Name: "View customer inquiries", Group: "inquiries"},
	{Code: "inquiries.write", Name: "Handle customer inquiries", Group: "inquiries"},
	{Code: "call_logs.read", Name: "View call logs", Group: "call_logs"},
	{Code: "call_logs.write", Name: "Record calls", Group: "call_logs"},
	{Code: "invoices.read", Name: "View invoices", Group: "invoices"},
	{Code: "invoices.write", Name: "Issue and settle invoices", Group: "invoices"},
	{Code: "tax_rules.read", Name: "View tax rules", Group: "tax"},
	{Code: "tax_rules.write", Name: "Manage tax rules", Group: "tax"},
	{Code: "users.read", Name: "View users", Group: "users"},
	{Code: "users.write", Name: "Create and edit users", Group: "users"},
	{Code: "users.delete", Name: "Delete users", Group: "users"},
	{Code: "roles.manage", Name: "Manage roles and permissions", Group: "users"},
	{Code: "audit.read", Name: "View audit log", Group: "audit"},
}

type roleDefinition struct {
	name        string
	description string
	grants      func(code string) bool
}

var defaultRoles = []roleDefinition{
	{
		name:        model.RoleAdmin,
		description: "Full access",
		grants:      func(string) bool { return true },
	},
	{
		name:        model.RoleManager,
		description: "Runs the shop floor; no user or role administration",
		grants: func(code string) bool {
			return !strings.HasPrefix(code, "users.") && code != "roles.manage"
		},
	},
	{
		name:        model.RoleStaff,
		description: "Day-to-day records and pricing",
		grants: func(code string) bool {
			switch {
			case strings.HasPrefix(code, "users."), strings.HasPrefix(code, "tax_rules."),
				code == "roles.manage", code == "audit.read", code == "categories.write",
				code == "distributor_invoices.write", code == "invoices.write":
				return false
			}
			return true
		},
	},
}

// --- Helpers ---

func parseIDs(raw []string, field string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	seen := make(map[uuid.UUID]bool, len(raw))
	for _, r := range raw {
		id, err := parseID(r, field)
		if err != nil {
			return nil, err
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func toRoleResponse(r model.Role) RoleResponse {
	perms := make([]PermissionResponse, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		perms = append(perms, toPermissionResponse(p))
	}
	return RoleResponse{
		ID:          r.ID.String(),
		Name:        r.Name,
		Description: r.Description,
		IsSystem:    r.IsSystem,
		Permissions: perms,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
	}
}

func toPermissionResponse(p model.Permission) PermissionResponse {
	return PermissionResponse{
		ID:    p.ID.String(),
		Code:  p.Code,
		Name:  p.Name,
		Group: p.Group,
	}
}
