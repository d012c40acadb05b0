package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"bizdesk/internal/lifecycle"
	"bizdesk/internal/model"
	"bizdesk/internal/repository"
)

// --- DTOs ---

type CreateCustomerRequest struct {
	Name        string `json:"name" binding:"required"`
	CompanyName string `json:"company_name"`
	TRN         string `json:"trn"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Address     string `json:"address"`
	Notes       string `json:"notes"`
}

type UpdateCustomerRequest struct {
	Name        *string `json:"name"`
	CompanyName *string `json:"company_name"`
	TRN         *string `json:"trn"`
	Phone       *string `json:"phone"`
	Email       *string `json:"email"`
	Address     *string `json:"address"`
	Notes       *string `json:"notes"`
	IsActive    *bool   `json:"is_active"`
}

type CustomerResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	CompanyName string    `json:"company_name"`
	TRN         string    `json:"trn"`
	Phone       string    `json:"phone"`
	Email       string    `json:"email"`
	Address     string    `json:"address"`
	Notes       string    `json:"notes"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// --- Interface ---

type CustomerService interface {
	CreateCustomer(ctx context.Context, req CreateCustomerRequest, actor lifecycle.Actor) (CustomerResponse, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (CustomerResponse, error)
	UpdateCustomer(ctx context.Context, id uuid.UUID, req UpdateCustomerRequest, actor lifecycle.Actor) (CustomerResponse, error)
	DeleteCustomer(ctx context.Context, id uuid.UUID, actor lifecycle.Actor) error
	GetCustomers(ctx context.Context, search string, activeOnly bool, page, limit int) ([]CustomerResponse, int64, error)
}

// --- Implementation ---

type customerService struct {
	repo      repository.CustomerRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
}

func NewCustomerService(repo repository.CustomerRepository, auditRepo repository.AuditRepository, txManager repository.TransactionManager) CustomerService {
	return &customerService{repo: repo, auditRepo: auditRepo, txManager: txManager}
}

func (s *customerService) CreateCustomer(ctx context.Context, req CreateCustomerRequest, actor lifecycle.Actor) (CustomerResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return CustomerResponse{}, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if err := validateEmail(req.Email); err != nil {
		return CustomerResponse{}, err
	}

	customer := model.Customer{
		Name:        name,
		CompanyName: req.CompanyName,
		TRN:         req.TRN,
		Phone:       req.Phone,
		Email:       strings.TrimSpace(req.Email),
		Address:     req.Address,
		Notes:       req.Notes,
		IsActive:    true,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, &customer); err != nil {
			return fmt.Errorf("failed to create customer: %w", err)
		}
		return s.auditRepo.Log(txCtx, newAuditLog(actor.ID, model.ActionCreateCustomer, customer.ID.String(), customer.Name, map[string]interface{}{
			"company_name": customer.CompanyName,
			"email":        customer.Email,
		}))
	})
	if err != nil {
		return CustomerResponse{}, err
	}

	return toCustomerResponse(customer), nil
}

func (s *customerService) GetCustomer(ctx context.Context, id uuid.UUID) (CustomerResponse, error) {
	customer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return CustomerResponse{}, notFoundOr(err, "customer")
	}
	return toCustomerResponse(*customer), nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, id uuid.UUID, req UpdateCustomerRequest, actor lifecycle.Actor) (CustomerResponse, error) {
	customer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return CustomerResponse{}, notFoundOr(err, "customer")
	}

	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return CustomerResponse{}, fmt.Errorf("%w: name must not be empty", ErrValidation)
	}
	if req.Email != nil {
		if err := validateEmail(*req.Email); err != nil {
			return CustomerResponse{}, err
		}
	}

	changes := map[string]interface{}{}
	setString(&customer.Name, req.Name, "name", changes)
	setString(&customer.CompanyName, req.CompanyName, "company_name", changes)
	setString(&customer.TRN, req.TRN, "trn", changes)
	setString(&customer.Phone, req.Phone, "phone", changes)
	setString(&customer.Email, req.Email, "email", changes)
	setString(&customer.Address, req.Address, "address", changes)
	setString(&customer.Notes, req.Notes, "notes", changes)
	if req.IsActive != nil && *req.IsActive != customer.IsActive {
		customer.IsActive = *req.IsActive
		changes["is_active"] = *req.IsActive
	}
	if len(changes) == 0 {
		return toCustomerResponse(*customer), nil
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Update(txCtx, customer); err != nil {
			return fmt.Errorf("failed to update customer: %w", err)
		}
		return s.auditRepo.Log(txCtx, newAuditLog(actor.ID, model.ActionUpdateCustomer, id.String(), customer.Name, changes))
	})
	if err != nil {
		return CustomerResponse{}, err
	}

	return toCustomerResponse(*customer), nil
}

func (s *customerService) DeleteCustomer(ctx context.Context, id uuid.UUID, actor lifecycle.Actor) error {
	customer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "customer")
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Delete(txCtx, id); err != nil {
			return fmt.Errorf("failed to delete customer: %w", err)
		}
		return s.auditRepo.Log(txCtx, newAuditLog(actor.ID, model.ActionDeleteCustomer, id.String(), customer.Name, nil))
	})
}

func (s *customerService) GetCustomers(ctx context.Context, search string, activeOnly bool, page, limit int) ([]CustomerResponse, int64, error) {
	page, limit = normalizePage(page, limit)

	customers, total, err := s.repo.List(ctx, strings.TrimSpace(search), activeOnly, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch customers: %w", err)
	}

	result := make([]CustomerResponse, 0, len(customers))
	for _, c := range customers {
		result = append(result, toCustomerResponse(c))
	}
	return result, total, nil
}

// --- Helpers ---

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: invalid email format", ErrValidation)
	}
	return nil
}

func toCustomerResponse(c model.Customer) CustomerResponse {
	return CustomerResponse{
		ID:          c.ID,
		Name:        c.Name,
		CompanyName: c.CompanyName,
		TRN:         c.TRN,
		Phone:       c.Phone,
		Email:       c.Email,
		Address:     c.Address,
		Notes:       c.Notes,
		IsActive:    c.IsActive,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}
