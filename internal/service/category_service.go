package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"bizdesk/internal/lifecycle"
	"bizdesk/internal/model"
	"bizdesk/internal/repository"
)

type CategoryRequest struct {
	Name          string `json:"name" binding:"required"`
	MarkupPercent string `json:"markup_percent" binding:"required"`
	Description   string `json:"description"`
}

type CategoryService interface {
	List(ctx context.Context) ([]model.Category, error)
	Create(ctx context.Context, req CategoryRequest, actor lifecycle.Actor) (*model.Category, error)
	Update(ctx context.Context, id uuid.UUID, req CategoryRequest, actor lifecycle.Actor) (*model.Category, error)
	Delete(ctx context.Context, id uuid.UUID, actor lifecycle.Actor) error
}

type categoryService struct {
	repo      repository.CategoryRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
}

func NewCategoryService(repo repository.CategoryRepository, auditRepo repository.AuditRepository, txManager repository.TransactionManager) CategoryService {
	return &categoryService{repo: repo, auditRepo: auditRepo, txManager: txManager}
}

func (s *categoryService) List(ctx context.Context) ([]model.Category, error) {
	categories, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch categories: %w", err)
	}
	return categories, nil
}

func (s *categoryService) Create(ctx context.Context, req CategoryRequest, actor lifecycle.Actor) (*model.Category, error) {
	markup, err := parsePercent(req.MarkupPercent, "markup_percent")
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if _, err := s.repo.FindByName(ctx, name); err == nil {
		return nil, fmt.Errorf("category %q %w", name, ErrConflict)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check category: %w", err)
	}

	category := &model.Category{Name: name, MarkupPercent: markup, Description: req.Description}
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, category); err != nil {
			return fmt.Errorf("failed to create category: %w", err)
		}
		return s.auditRepo.Log(txCtx, newAuditLog(actor.ID, model.ActionCreateCategory, category.ID.String(), name, map[string]interface{}{
			"markup_percent": markup.String(),
		}))
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

func (s *categoryService) Update(ctx context.Context, id uuid.UUID, req CategoryRequest, actor lifecycle.Actor) (*model.Category, error) {
	category, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "category")
	}
	markup, err := parsePercent(req.MarkupPercent, "markup_percent")
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if !strings.EqualFold(name, category.Name) {
		if _, err := s.repo.FindByName(ctx, name); err == nil {
			return nil, fmt.Errorf("category %q %w", name, ErrConflict)
		}
	}

	previous := category.MarkupPercent
	category.Name = name
	category.MarkupPercent = markup
	category.Description = req.Description

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Update(txCtx, category); err != nil {
			return fmt.Errorf("failed to update category: %w", err)
		}
		return s.auditRepo.Log(txCtx, newAuditLog(actor.ID, model.ActionUpdateCategory, id.String(), name, map[string]interface{}{
			"markup_percent":          markup.String(),
			"previous_markup_percent": previous.String(),
		}))
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

func (s *categoryService) Delete(ctx context.Context, id uuid.UUID, actor lifecycle.Actor) error {
	category, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "category")
	}
	n, err := s.repo.CountProducts(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("%w: category %q still has %d product(s)", ErrConflict, category.Name, n)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Delete(txCtx, id); err != nil {
			return fmt.Errorf("failed to delete category: %w", err)
		}
		return s.auditRepo.Log(txCtx, newAuditLog(actor.ID, model.ActionDeleteCategory, id.String(), category.Name, nil))
	})
}

// parsePercent parses a non-negative percentage such as "30" or "12.5"
func parsePercent(s, field string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s must be a non-negative percentage", ErrValidation, field)
	}
	return d, nil
}
