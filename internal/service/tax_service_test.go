package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"bizdesk/internal/model"
)

func TestTaxService_ActiveGCT(t *testing.T) {
	on := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	ruleID := uuid.New()

	t.Run("rule in force", func(t *testing.T) {
		repo := new(MockTaxRuleRepository)
		repo.On("FindActive", mock.Anything, model.TaxTypeGCT, on).
			Return(&model.TaxRule{ID: ruleID, TaxType: model.TaxTypeGCT, RatePercent: decimal.NewFromFloat(16.5)}, nil)
		svc := NewTaxService(repo, nil, &fakeTxManager{}, decimal.NewFromInt(15))

		rate, id, err := svc.ActiveGCT(context.Background(), on)
		require.NoError(t, err)
		assert.Equal(t, "16.5", rate.String())
		require.NotNil(t, id)
		assert.Equal(t, ruleID, *id)
	})

	t.Run("falls back to configured default", func(t *testing.T) {
		repo := new(MockTaxRuleRepository)
		repo.On("FindActive", mock.Anything, model.TaxTypeGCT, on).Return(nil, gorm.ErrRecordNotFound)
		svc := NewTaxService(repo, nil, &fakeTxManager{}, decimal.NewFromInt(15))

		rate, id, err := svc.ActiveGCT(context.Background(), on)
		require.NoError(t, err)
		assert.Equal(t, "15", rate.String())
		assert.Nil(t, id)
	})

	t.Run("database failure", func(t *testing.T) {
		repo := new(MockTaxRuleRepository)
		dbErr := errors.New("connection refused")
		repo.On("FindActive", mock.Anything, model.TaxTypeGCT, on).Return(nil, dbErr)
		svc := NewTaxService(repo, nil, &fakeTxManager{}, decimal.NewFromInt(15))

		_, _, err := svc.ActiveGCT(context.Background(), on)
		assert.ErrorIs(t, err, dbErr)
	})
}

func TestTaxService_CreateTaxRule(t *testing.T) {
	actor := managerActor()

	t.Run("valid rule is stored and audited", func(t *testing.T) {
		repo := new(MockTaxRuleRepository)
		audit := new(MockAuditRepository)
		repo.On("CountOverlapping", mock.Anything, model.TaxTypeGCT, mock.Anything, (*time.Time)(nil), (*uuid.UUID)(nil)).
			Return(int64(0), nil)
		repo.On("Create", mock.Anything, mock.AnythingOfType("*model.TaxRule")).Return(nil)
		audit.On("Log", mock.Anything, mock.Anything).Return(nil)
		svc := NewTaxService(repo, audit, &fakeTxManager{}, decimal.NewFromInt(15))

		res, err := svc.CreateTaxRule(context.Background(), TaxRuleRequest{
			TaxType:       model.TaxTypeGCT,
			RatePercent:   "15",
			EffectiveFrom: "2026-01-01",
		}, actor)
		require.NoError(t, err)
		assert.Equal(t, "15", res.RatePercent)
		assert.Equal(t, "2026-01-01", res.EffectiveFrom)
		assert.Nil(t, res.EffectiveTo)
		assert.Equal(t, []string{model.ActionCreateTaxRule}, audit.actions())
		repo.AssertExpectations(t)
	})

	t.Run("overlap is a conflict", func(t *testing.T) {
		repo := new(MockTaxRuleRepository)
		repo.On("CountOverlapping", mock.Anything, model.TaxTypeGCT, mock.Anything, mock.Anything, mock.Anything).
			Return(int64(1), nil)
		svc := NewTaxService(repo, new(MockAuditRepository), &fakeTxManager{}, decimal.NewFromInt(15))

		_, err := svc.CreateTaxRule(context.Background(), TaxRuleRequest{
			TaxType:       model.TaxTypeGCT,
			RatePercent:   "15",
			EffectiveFrom: "2026-01-01",
			EffectiveTo:   "2026-12-31",
		}, actor)
		assert.ErrorIs(t, err, ErrConflict)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	invalid := []struct {
		name string
		req  TaxRuleRequest
	}{
		{"rate above 100", TaxRuleRequest{TaxType: model.TaxTypeGCT, RatePercent: "101", EffectiveFrom: "2026-01-01"}},
		{"negative rate", TaxRuleRequest{TaxType: model.TaxTypeGCT, RatePercent: "-1", EffectiveFrom: "2026-01-01"}},
		{"bad from date", TaxRuleRequest{TaxType: model.TaxTypeGCT, RatePercent: "15", EffectiveFrom: "01/01/2026"}},
		{"to before from", TaxRuleRequest{TaxType: model.TaxTypeGCT, RatePercent: "15", EffectiveFrom: "2026-06-01", EffectiveTo: "2026-05-31"}},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewTaxService(new(MockTaxRuleRepository), new(MockAuditRepository), &fakeTxManager{}, decimal.NewFromInt(15))
			_, err := svc.CreateTaxRule(context.Background(), tt.req, actor)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestTaxService_GetActiveTaxRateFallback(t *testing.T) {
	repo := new(MockTaxRuleRepository)
	repo.On("FindActive", mock.Anything, model.TaxTypeGCT, mock.Anything).Return(nil, gorm.ErrRecordNotFound)
	svc := NewTaxService(repo, nil, &fakeTxManager{}, decimal.NewFromInt(15))

	res, err := svc.GetActiveTaxRate(context.Background(), model.TaxTypeGCT)
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Equal(t, "15", res.RatePercent)
}

func TestTaxService_DeleteMissingRule(t *testing.T) {
	repo := new(MockTaxRuleRepository)
	id := uuid.New()
	repo.On("FindByID", mock.Anything, id).Return(nil, gorm.ErrRecordNotFound)
	svc := NewTaxService(repo, nil, &fakeTxManager{}, decimal.NewFromInt(15))

	err := svc.DeleteTaxRule(context.Background(), id, managerActor())
	assert.ErrorIs(t, err, ErrNotFound)
}
