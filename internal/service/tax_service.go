package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"bizdesk/internal/lifecycle"
	"bizdesk/internal/model"
	"bizdesk/internal/repository"
)

// --- DTOs ---

type TaxRuleRequest struct {
	TaxType       string `json:"tax_type" binding:"required,oneof=GCT"`
	RatePercent   string `json:"rate_percent" binding:"required"`   // e.g. "15" for 15%
	EffectiveFrom string `json:"effective_from" binding:"required"` // YYYY-MM-DD
	EffectiveTo   string `json:"effective_to"`                      // YYYY-MM-DD, nullable
	Description   string `json:"description"`
}

type TaxRuleResponse struct {
	ID            string  `json:"id"`
	TaxType       string  `json:"tax_type"`
	RatePercent   string  `json:"rate_percent"`
	EffectiveFrom string  `json:"effective_from"`
	EffectiveTo   *string `json:"effective_to"`
	Description   string  `json:"description"`
	CreatedAt     string  `json:"created_at"`
}

type ActiveTaxRateResponse struct {
	TaxType     string `json:"tax_type"`
	RatePercent string `json:"rate_percent"`
	RuleID      string `json:"rule_id,omitempty"`
	Fallback    bool   `json:"fallback"`
}

// --- Interface ---

type TaxService interface {
	GetTaxRules(ctx context.Context, taxType string, page, limit int) ([]TaxRuleResponse, int64, error)
	CreateTaxRule(ctx context.Context, req TaxRuleRequest, actor lifecycle.Actor) (TaxRuleResponse, error)
	UpdateTaxRule(ctx context.Context, id uuid.UUID, req TaxRuleRequest, actor lifecycle.Actor) (TaxRuleResponse, error)
	DeleteTaxRule(ctx context.Context, id uuid.UUID, actor lifecycle.Actor) error
	GetActiveTaxRate(ctx context.Context, taxType string) (*ActiveTaxRateResponse, error)
	// ActiveGCT returns the GCT percentage in force on the given day, falling back to the configured default
	ActiveGCT(ctx context.Context, on time.Time) (decimal.Decimal, *uuid.UUID, error)
}

type taxService struct {
	repo       repository.TaxRuleRepository
	auditRepo  repository.AuditRepository
	txManager  repository.TransactionManager
	defaultGCT decimal.Decimal
}

func NewTaxService(repo repository.TaxRuleRepository, auditRepo repository.AuditRepository, txManager repository.TransactionManager, defaultGCT decimal.Decimal) TaxService {
	return &taxService{repo: repo, auditRepo: auditRepo, txManager: txManager, defaultGCT: defaultGCT}
}

// --- Implementation ---

func (s *taxService) GetTaxRules(ctx context.Context, taxType string, page, limit int) ([]TaxRuleResponse, int64, error) {
	page, limit = normalizePage(page, limit)
	rules, total, err := s.repo.List(ctx, taxType, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch tax rules: %w", err)
	}

	res := make([]TaxRuleResponse, 0, len(rules))
	for _, r := range rules {
		res = append(res, toTaxRuleResponse(r))
	}
	return res, total, nil
}

func (s *taxService) CreateTaxRule(ctx context.Context, req TaxRuleRequest, actor lifecycle.Actor) (TaxRuleResponse, error) {
	rate, effectiveFrom, effectiveTo, err := parseTaxRuleFields(req.RatePercent, req.EffectiveFrom, req.EffectiveTo)
	if err != nil {
		return TaxRuleResponse{}, err
	}

	rule := model.TaxRule{
		TaxType:       req.TaxType,
		RatePercent:   rate,
		EffectiveFrom: effectiveFrom,
		EffectiveTo:   effectiveTo,
		Description:   req.Description,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.checkOverlap(txCtx, req.TaxType, effectiveFrom, effectiveTo, nil); err != nil {
			return err
		}
		if err := s.repo.Create(txCtx, &rule); err != nil {
			return fmt.Errorf("failed to create tax rule: %w", err)
		}
		return s.auditRepo.Log(txCtx, newAuditLog(actor.ID, model.ActionCreateTaxRule, rule.ID.String(), req.TaxType+" "+rate.String()+"%", map[string]interface{}{
			"rate_percent":   rate.String(),
			"effective_from": req.EffectiveFrom,
			"effective_to":   req.EffectiveTo,
		}))
	})
	if err != nil {
		return TaxRuleResponse{}, err
	}

	return toTaxRuleResponse(rule), nil
}

func (s *taxService) UpdateTaxRule(ctx context.Context, id uuid.UUID, req TaxRuleRequest, actor lifecycle.Actor) (TaxRuleResponse, error) {
	rule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return TaxRuleResponse{}, notFoundOr(err, "tax rule")
	}

	rate, effectiveFrom, effectiveTo, err := parseTaxRuleFields(req.RatePercent, req.EffectiveFrom, req.EffectiveTo)
	if err != nil {
		return TaxRuleResponse{}, err
	}

	rule.TaxType = req.TaxType
	rule.RatePercent = rate
	rule.EffectiveFrom = effectiveFrom
	rule.EffectiveTo = effectiveTo
	rule.Description = req.Description

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		// exclude self from the overlap check
		if err := s.checkOverlap(txCtx, req.TaxType, effectiveFrom, effectiveTo, &id); err != nil {
			return err
		}
		if err := s.repo.Update(txCtx, rule); err != nil {
			return fmt.Errorf("failed to update tax rule: %w", err)
		}
		return s.auditRepo.Log(txCtx, newAuditLog(actor.ID, model.ActionUpdateTaxRule, rule.ID.String(), req.TaxType+" "+rate.String()+"%", map[string]interface{}{
			"rate_percent":   rate.String(),
			"effective_from": req.EffectiveFrom,
			"effective_to":   req.EffectiveTo,
		}))
	})
	if err != nil {
		return TaxRuleResponse{}, err
	}

	return toTaxRuleResponse(*rule), nil
}

func (s *taxService) DeleteTaxRule(ctx context.Context, id uuid.UUID, actor lifecycle.Actor) error {
	rule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "tax rule")
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Delete(txCtx, id); err != nil {
			return fmt.Errorf("failed to delete tax rule: %w", err)
		}
		return s.auditRepo.Log(txCtx, newAuditLog(actor.ID, model.ActionDeleteTaxRule, id.String(), rule.TaxType+" "+rule.RatePercent.String()+"%", map[string]interface{}{
			"deleted_id": id.String(),
		}))
	})
}

func (s *taxService) GetActiveTaxRate(ctx context.Context, taxType string) (*ActiveTaxRateResponse, error) {
	rule, err := s.repo.FindActive(ctx, taxType, time.Now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if taxType == model.TaxTypeGCT {
				return &ActiveTaxRateResponse{TaxType: taxType, RatePercent: s.defaultGCT.String(), Fallback: true}, nil
			}
			return nil, fmt.Errorf("active %s rate %w", taxType, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query active tax rate: %w", err)
	}

	return &ActiveTaxRateResponse{
		TaxType:     rule.TaxType,
		RatePercent: rule.RatePercent.String(),
		RuleID:      rule.ID.String(),
	}, nil
}

func (s *taxService) ActiveGCT(ctx context.Context, on time.Time) (decimal.Decimal, *uuid.UUID, error) {
	rule, err := s.repo.FindActive(ctx, model.TaxTypeGCT, on)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.defaultGCT, nil, nil
		}
		return decimal.Zero, nil, fmt.Errorf("failed to query GCT rule: %w", err)
	}
	id := rule.ID
	return rule.RatePercent, &id, nil
}

// --- Helpers ---

func parseTaxRuleFields(rateStr, fromStr, toStr string) (decimal.Decimal, time.Time, *time.Time, error) {
	rate, err := decimal.NewFromString(rateStr)
	if err != nil || rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.Zero, time.Time{}, nil, fmt.Errorf("%w: rate_percent must be between 0 and 100", ErrValidation)
	}

	effectiveFrom, err := time.Parse(dateLayout, fromStr)
	if err != nil {
		return decimal.Zero, time.Time{}, nil, fmt.Errorf("%w: effective_from must be YYYY-MM-DD", ErrValidation)
	}

	effectiveTo, err := parseOptionalDate(toStr, "effective_to")
	if err != nil {
		return decimal.Zero, time.Time{}, nil, err
	}
	if effectiveTo != nil && effectiveTo.Before(effectiveFrom) {
		return decimal.Zero, time.Time{}, nil, fmt.Errorf("%w: effective_to is before effective_from", ErrValidation)
	}

	return rate, effectiveFrom, effectiveTo, nil
}

func (s *taxService) checkOverlap(ctx context.Context, taxType string, from time.Time, to *time.Time, excludeID *uuid.UUID) error {
	count, err := s.repo.CountOverlapping(ctx, taxType, from, to, excludeID)
	if err != nil {
		return fmt.Errorf("failed to check overlap: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: a %s rule with overlapping effective dates", ErrConflict, taxType)
	}
	return nil
}

func toTaxRuleResponse(r model.TaxRule) TaxRuleResponse {
	resp := TaxRuleResponse{
		ID:            r.ID.String(),
		TaxType:       r.TaxType,
		RatePercent:   r.RatePercent.String(),
		EffectiveFrom: r.EffectiveFrom.Format(dateLayout),
		Description:   r.Description,
		CreatedAt:     r.CreatedAt.Format(time.RFC3339),
	}
	if r.EffectiveTo != nil {
		s := r.EffectiveTo.Format(dateLayout)
		resp.EffectiveTo = &s
	}
	return resp
}
