package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"bizdesk/internal/lifecycle"
	"bizdesk/internal/model"
	"bizdesk/internal/repository"
)

// DTOs for Request validation
type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	FullName string `json:"full_name"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"required"`
}

type UpdateUserRequest struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Email    string `json:"email" binding:"omitempty,email"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
	Password string `json:"password" binding:"omitempty,min=6"`
	IsActive *bool  `json:"is_active"`
}

// DTO for returning User without exposing sensitive data (e.g. password)
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
}

// UserService defines the interface for business logic related to User
type UserService interface {
	CreateUser(ctx context.Context, req CreateUserRequest, actor lifecycle.Actor) (*UserResponse, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*UserResponse, error)
	ListUsers(ctx context.Context, role, search string, page, limit int) ([]UserResponse, int64, error)
	UpdateUser(ctx context.Context, id uuid.UUID, req UpdateUserRequest, actor lifecycle.Actor) (*UserResponse, error)
	DeleteUser(ctx context.Context, id uuid.UUID, actor lifecycle.Actor) error
	// Bootstrap creates the first admin. It fails once any user exists.
	Bootstrap(ctx context.Context, req CreateUserRequest) (*UserResponse, error)
}

type userService struct {
	repo      repository.UserRepository
	sessions  repository.SessionRepository
	roles     repository.RoleRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
}

// NewUserService returns a new instance of UserService
func NewUserService(
	repo repository.UserRepository,
	sessions repository.SessionRepository,
	roles repository.RoleRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) UserService {
	return &userService{repo: repo, sessions: sessions, roles: roles, auditRepo: auditRepo, txManager: txManager}
}

// Helper: parse model to standard json API response
func mapToResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		FullName:  user.FullName,
		Email:     user.Email,
		Phone:     user.Phone,
		Role:      user.Role,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.Format(time.RFC3339),
	}
}

// validateRole accepts any role present in the roles table
func (s *userService) validateRole(ctx context.Context, role string) error {
	if _, err := s.roles.FindByName(ctx, role); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: unknown role %q", ErrValidation, role)
		}
		return fmt.Errorf("failed to fetch role: %w", err)
	}
	return nil
}

func (s *userService) CreateUser(ctx context.Context, req CreateUserRequest, actor lifecycle.Actor) (*UserResponse, error) {
	if err := s.validateRole(ctx, req.Role); err != nil {
		return nil, err
	}
	return s.create(ctx, req, actor.ID)
}

func (s *userService) Bootstrap(ctx context.Context, req CreateUserRequest) (*UserResponse, error) {
	_, total, err := s.repo.List(ctx, "", "", 1, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if total > 0 {
		return nil, fmt.Errorf("%w: an administrator is already configured", ErrConflict)
	}
	req.Role = model.RoleAdmin
	return s.create(ctx, req, uuid.Nil)
}

func (s *userService) create(ctx context.Context, req CreateUserRequest, actorID uuid.UUID) (*UserResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)

	// Double check username/email uniqueness via repo directly
	if _, err := s.repo.GetByUsername(ctx, req.Username); err == nil {
		return nil, fmt.Errorf("username %w", ErrConflict)
	}
	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("email %w", ErrConflict)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New("failed to hash password")
	}

	user := &model.User{
		Username: req.Username,
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: string(hashedPassword),
		Role:     req.Role,
		IsActive: true,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		audit := newAuditLog(actorID, model.ActionCreateUser, user.ID.String(), user.Username, map[string]interface{}{
			"email": user.Email,
			"role":  user.Role,
		})
		return s.auditRepo.Log(txCtx, audit)
	})
	if err != nil {
		return nil, err
	}

	return mapToResponse(user), nil
}

func (s *userService) GetUserByID(ctx context.Context, id uuid.UUID) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "user")
	}
	return mapToResponse(user), nil
}

func (s *userService) ListUsers(ctx context.Context, role, search string, page, limit int) ([]UserResponse, int64, error) {
	page, limit = normalizePage(page, limit)

	users, total, err := s.repo.List(ctx, role, search, page, limit)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *mapToResponse(&users[i]))
	}

	return responses, total, nil
}

func (s *userService) UpdateUser(ctx context.Context, id uuid.UUID, req UpdateUserRequest, actor lifecycle.Actor) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "user")
	}

	changes := map[string]interface{}{}
	if req.Role != "" && req.Role != user.Role {
		if err := s.validateRole(ctx, req.Role); err != nil {
			return nil, err
		}
		user.Role = req.Role
		changes["role"] = req.Role
	}

	if req.Username != "" && req.Username != user.Username {
		if _, err := s.repo.GetByUsername(ctx, req.Username); err == nil {
			return nil, fmt.Errorf("username %w", ErrConflict)
		}
		user.Username = req.Username
		changes["username"] = req.Username
	}

	if email := strings.ToLower(strings.TrimSpace(req.Email)); email != "" && email != user.Email {
		if _, err := s.repo.GetByEmail(ctx, email); err == nil {
			return nil, fmt.Errorf("email %w", ErrConflict)
		}
		user.Email = email
		changes["email"] = email
	}

	if req.FullName != "" {
		user.FullName = req.FullName
		changes["full_name"] = req.FullName
	}
	if req.Phone != "" {
		user.Phone = req.Phone
		changes["phone"] = req.Phone
	}
	if req.IsActive != nil && *req.IsActive != user.IsActive {
		if !*req.IsActive && user.ID == actor.ID {
			return nil, fmt.Errorf("%w: you cannot disable your own account", ErrValidation)
		}
		user.IsActive = *req.IsActive
		changes["is_active"] = user.IsActive
	}
	if req.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, errors.New("failed to hash password")
		}
		user.Password = string(hashed)
		changes["password"] = "changed"
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Update(txCtx, user); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		if !user.IsActive || req.Password != "" {
			if err := s.sessionsRevoked(txCtx, user.ID); err != nil {
				return err
			}
		}
		return s.auditRepo.Log(txCtx, newAuditLog(actor.ID, model.ActionUpdateUser, user.ID.String(), user.Username, changes))
	})
	if err != nil {
		return nil, err
	}

	return mapToResponse(user), nil
}

func (s *userService) DeleteUser(ctx context.Context, id uuid.UUID, actor lifecycle.Actor) error {
	if id == actor.ID {
		return fmt.Errorf("%w: you cannot delete your own account", ErrValidation)
	}
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "user")
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.sessionsRevoked(txCtx, id); err != nil {
			return err
		}
		if err := s.repo.Delete(txCtx, id); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return s.auditRepo.Log(txCtx, newAuditLog(actor.ID, model.ActionDeleteUser, id.String(), user.Username, map[string]interface{}{
			"email": user.Email,
		}))
	})
}

// sessionsRevoked ends every login of the user so a disabled account cannot refresh
func (s *userService) sessionsRevoked(ctx context.Context, userID uuid.UUID) error {
	if err := s.sessions.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	return nil
}
