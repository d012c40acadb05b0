package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"bizdesk/internal/config"
	"bizdesk/internal/marketplace"
	"bizdesk/internal/model"
	"bizdesk/internal/pricing"
)

func testPricingConfig() config.PricingConfig {
	return config.PricingConfig{
		Rounding:       pricing.RoundNone,
		TargetCurrency: "JMD",
		ExchangeRates: map[string]decimal.Decimal{
			"USD": decimal.NewFromInt(162),
		},
		DefaultGCTPercent: decimal.NewFromInt(15),
	}
}

func gctStub(percent int64) *MockTaxService {
	taxes := new(MockTaxService)
	taxes.On("ActiveGCT", mock.Anything, mock.Anything).Return(decimal.NewFromInt(percent), nil, nil)
	return taxes
}

func TestPricingService_LocalUsesCategoryMarkupAndGCT(t *testing.T) {
	categories := new(MockCategoryRepository)
	categoryID := uuid.New()
	categories.On("FindByID", mock.Anything, categoryID).
		Return(&model.Category{ID: categoryID, Name: "Laptops", MarkupPercent: decimal.NewFromInt(30)}, nil)

	svc := NewPricingService(testPricingConfig(), categories, gctStub(15), nil, nil)

	quote, err := svc.Local(context.Background(), LocalPriceRequest{Cost: "10", CategoryID: categoryID.String()})
	require.NoError(t, err)

	assert.Equal(t, "local_distributor", quote.Pipeline)
	assert.Equal(t, "USD", quote.SourceCurrency)
	assert.Equal(t, "JMD", quote.TargetCurrency)
	assert.Equal(t, "1620", quote.Result.ConvertedCost.String())
	assert.Equal(t, "243", quote.Result.TaxAmount.String())
	assert.Equal(t, "558.9", quote.Result.MarkupAmount.String())
	assert.Equal(t, "2421.9", quote.Result.FinalPrice.String())
	assert.Equal(t, pricing.OrderConvertTaxMarkup, quote.Result.Order)
	categories.AssertExpectations(t)
}

func TestPricingService_LocalExplicitRateOverridesConfig(t *testing.T) {
	categories := new(MockCategoryRepository)
	categoryID := uuid.New()
	categories.On("FindByID", mock.Anything, categoryID).
		Return(&model.Category{ID: categoryID, MarkupPercent: decimal.Zero}, nil)

	svc := NewPricingService(testPricingConfig(), categories, gctStub(0), nil, nil)

	quote, err := svc.Local(context.Background(), LocalPriceRequest{
		Cost:         "10",
		Currency:     "usd",
		CategoryID:   categoryID.String(),
		ExchangeRate: "150",
	})
	require.NoError(t, err)
	assert.Equal(t, "1500", quote.Result.FinalPrice.String())
	assert.Equal(t, "150", quote.ExchangeRate.String())
}

func TestPricingService_LocalErrors(t *testing.T) {
	categoryID := uuid.New()

	tests := []struct {
		name    string
		req     LocalPriceRequest
		setup   func(c *MockCategoryRepository)
		wantErr error
	}{
		{
			name:    "non numeric cost",
			req:     LocalPriceRequest{Cost: "ten", CategoryID: categoryID.String()},
			wantErr: ErrValidation,
		},
		{
			name:    "unknown currency",
			req:     LocalPriceRequest{Cost: "10", Currency: "EUR", CategoryID: categoryID.String()},
			wantErr: ErrValidation,
		},
		{
			name: "missing category",
			req:  LocalPriceRequest{Cost: "10", CategoryID: categoryID.String()},
			setup: func(c *MockCategoryRepository) {
				c.On("FindByID", mock.Anything, categoryID).Return(nil, gorm.ErrRecordNotFound)
			},
			wantErr: ErrNotFound,
		},
		{
			name: "negative cost",
			req:  LocalPriceRequest{Cost: "-1", CategoryID: categoryID.String()},
			setup: func(c *MockCategoryRepository) {
				c.On("FindByID", mock.Anything, categoryID).Return(&model.Category{ID: categoryID}, nil)
			},
			wantErr: pricing.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			categories := new(MockCategoryRepository)
			if tt.setup != nil {
				tt.setup(categories)
			}
			svc := NewPricingService(testPricingConfig(), categories, gctStub(15), nil, nil)

			_, err := svc.Local(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPricingService_CalculateHonoursRoundingAndOrder(t *testing.T) {
	svc := NewPricingService(testPricingConfig(), nil, nil, nil, nil)

	quote, err := svc.Calculate(context.Background(), CalculatePriceRequest{
		Cost:           "10",
		ExchangeRate:   "162",
		TaxRatePercent: "15",
		MarkupPercent:  "30",
		Rounding:       "nearest-hundred",
	})
	require.NoError(t, err)
	assert.Equal(t, "2421.9", quote.Result.Unrounded.String())
	assert.Equal(t, "2400", quote.Result.FinalPrice.String())

	_, err = svc.Calculate(context.Background(), CalculatePriceRequest{Cost: "10", ExchangeRate: "0"})
	assert.ErrorIs(t, err, pricing.ErrInvalidInput)

	_, err = svc.Calculate(context.Background(), CalculatePriceRequest{Cost: "10", ExchangeRate: "1", Order: "tax-first"})
	assert.ErrorIs(t, err, pricing.ErrInvalidInput)
}

func TestPricingService_MarketplaceFromListPrice(t *testing.T) {
	svc := NewPricingService(testPricingConfig(), nil, gctStub(15), nil, nil)

	quote, err := svc.Marketplace(context.Background(), MarketplacePriceRequest{ListPrice: "50"})
	require.NoError(t, err)

	assert.Equal(t, "53.5", quote.EffectiveCost.String())
	assert.Equal(t, "80", quote.Result.MarkupPercent.String())
	assert.Equal(t, "17940.69", quote.Result.FinalPrice.String())
	assert.Equal(t, pricing.OrderConvertMarkupTax, quote.Result.Order)
}

func TestPricingService_MarketplaceFromURL(t *testing.T) {
	looker := new(MockLooker)
	looker.On("Lookup", mock.Anything, "https://shop.example.com/item/42").Return(&marketplace.Product{
		Title:    "USB-C Dock",
		Price:    decimal.NewFromInt(100),
		Currency: "USD",
		URL:      "https://shop.example.com/item/42",
	}, nil)

	svc := NewPricingService(testPricingConfig(), nil, gctStub(15), looker, nil)

	quote, err := svc.Marketplace(context.Background(), MarketplacePriceRequest{URL: "https://shop.example.com/item/42"})
	require.NoError(t, err)
	assert.Equal(t, "USB-C Dock", quote.Title)
	assert.Equal(t, "107", quote.EffectiveCost.String())
	assert.Equal(t, "120", quote.Result.MarkupPercent.String())
	looker.AssertExpectations(t)
}

func TestPricingService_MarketplaceLookupErrors(t *testing.T) {
	tests := []struct {
		name      string
		lookupErr error
		wantErr   error
	}{
		{name: "invalid url", lookupErr: marketplace.ErrInvalidURL, wantErr: ErrValidation},
		{name: "no price on page", lookupErr: marketplace.ErrNotFound, wantErr: ErrNotFound},
		{name: "network failure", lookupErr: errors.New("connection reset")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			looker := new(MockLooker)
			looker.On("Lookup", mock.Anything, mock.Anything).Return(nil, tt.lookupErr)
			svc := NewPricingService(testPricingConfig(), nil, gctStub(15), looker, nil)

			_, err := svc.Marketplace(context.Background(), MarketplacePriceRequest{URL: "ftp://x"})
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.ErrorIs(t, err, tt.lookupErr)
			}
		})
	}
}

func TestPricingService_MarketplaceNeedsPriceOrURL(t *testing.T) {
	svc := NewPricingService(testPricingConfig(), nil, gctStub(15), nil, nil)

	_, err := svc.Marketplace(context.Background(), MarketplacePriceRequest{})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Marketplace(context.Background(), MarketplacePriceRequest{URL: "https://shop.example.com/x"})
	assert.ErrorIs(t, err, ErrValidation, "lookup not configured")
}
