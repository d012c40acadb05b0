package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bizdesk/internal/config"
	"bizdesk/internal/marketplace"
	"bizdesk/internal/metrics"
	"bizdesk/internal/pricing"
	"bizdesk/internal/repository"
)

// --- DTOs ---

type CalculatePriceRequest struct {
	Cost           string `json:"cost" binding:"required"`
	ExchangeRate   string `json:"exchange_rate" binding:"required"`
	TaxRatePercent string `json:"tax_rate_percent"`
	MarkupPercent  string `json:"markup_percent"`
	Rounding       string `json:"rounding"`
	Order          string `json:"order"`
}

type LocalPriceRequest struct {
	Cost       string `json:"cost" binding:"required"`
	Currency   string `json:"currency"`      // defaults to USD
	CategoryID string `json:"category_id" binding:"required"`
	// ExchangeRate overrides the configured rate for Currency when set
	ExchangeRate string `json:"exchange_rate"`
}

type MarketplacePriceRequest struct {
	ListPrice    string `json:"list_price"`
	URL          string `json:"url"`
	Currency     string `json:"currency"`
	ExchangeRate string `json:"exchange_rate"`
}

type PriceQuote struct {
	Pipeline       string          `json:"pipeline"`
	SourceCurrency string          `json:"source_currency"`
	TargetCurrency string          `json:"target_currency"`
	ExchangeRate   decimal.Decimal `json:"exchange_rate"`
	CategoryID     string          `json:"category_id,omitempty"`
	Result         pricing.Result  `json:"result"`
}

type MarketplaceQuote struct {
	PriceQuote
	Title         string          `json:"title,omitempty"`
	URL           string          `json:"url,omitempty"`
	ListPrice     decimal.Decimal `json:"list_price"`
	EffectiveCost decimal.Decimal `json:"effective_cost"`
}

// --- Interface ---

type PricingService interface {
	Calculate(ctx context.Context, req CalculatePriceRequest) (*PriceQuote, error)
	Local(ctx context.Context, req LocalPriceRequest) (*PriceQuote, error)
	Marketplace(ctx context.Context, req MarketplacePriceRequest) (*MarketplaceQuote, error)
}

// --- Implementation ---

const (
	pipelineManual      = "manual"
	pipelineLocal       = "local_distributor"
	pipelineMarketplace = "marketplace"
)

type pricingService struct {
	cfg        config.PricingConfig
	categories repository.CategoryRepository
	taxes      TaxService
	looker     marketplace.Looker
	metrics    *metrics.Metrics
	now        func() time.Time
}

func NewPricingService(cfg config.PricingConfig, categories repository.CategoryRepository, taxes TaxService, looker marketplace.Looker, m *metrics.Metrics) PricingService {
	return &pricingService{
		cfg:        cfg,
		categories: categories,
		taxes:      taxes,
		looker:     looker,
		metrics:    m,
		now:        time.Now,
	}
}

func (s *pricingService) Calculate(ctx context.Context, req CalculatePriceRequest) (*PriceQuote, error) {
	cost, err := parseDecimal(req.Cost, "cost")
	if err != nil {
		return nil, err
	}
	rate, err := parseDecimal(req.ExchangeRate, "exchange_rate")
	if err != nil {
		return nil, err
	}
	tax, err := parseDecimalOr(req.TaxRatePercent, "tax_rate_percent", decimal.Zero)
	if err != nil {
		return nil, err
	}
	markup, err := parseDecimalOr(req.MarkupPercent, "markup_percent", decimal.Zero)
	if err != nil {
		return nil, err
	}
	rounding, err := s.rounding(req.Rounding)
	if err != nil {
		return nil, err
	}

	res, err := pricing.ComputePrice(pricing.Input{
		Cost:           cost,
		ExchangeRate:   rate,
		TaxRatePercent: tax,
		MarkupPercent:  markup,
		Rounding:       rounding,
		Order:          pricing.Order(req.Order),
	})
	if err != nil {
		return nil, err
	}
	s.metrics.ObservePrice(pipelineManual)

	return &PriceQuote{Pipeline: pipelineManual, TargetCurrency: s.cfg.TargetCurrency, ExchangeRate: rate, Result: res}, nil
}

func (s *pricingService) Local(ctx context.Context, req LocalPriceRequest) (*PriceQuote, error) {
	cost, err := parseDecimal(req.Cost, "cost")
	if err != nil {
		return nil, err
	}
	categoryID, err := parseID(req.CategoryID, "category_id")
	if err != nil {
		return nil, err
	}
	currency, rate, err := s.resolveRate(req.Currency, req.ExchangeRate)
	if err != nil {
		return nil, err
	}

	res, err := s.priceLocal(ctx, cost, rate, categoryID)
	if err != nil {
		return nil, err
	}

	return &PriceQuote{
		Pipeline:       pipelineLocal,
		SourceCurrency: currency,
		TargetCurrency: s.cfg.TargetCurrency,
		ExchangeRate:   rate,
		CategoryID:     categoryID.String(),
		Result:         res,
	}, nil
}

func (s *pricingService) Marketplace(ctx context.Context, req MarketplacePriceRequest) (*MarketplaceQuote, error) {
	var (
		listPrice decimal.Decimal
		title     string
		currency  = req.Currency
		err       error
	)

	switch {
	case strings.TrimSpace(req.ListPrice) != "":
		listPrice, err = parseDecimal(req.ListPrice, "list_price")
		if err != nil {
			return nil, err
		}
	case strings.TrimSpace(req.URL) != "":
		product, err := s.lookup(ctx, req.URL)
		if err != nil {
			return nil, err
		}
		listPrice = product.Price
		title = product.Title
		if currency == "" {
			currency = product.Currency
		}
	default:
		return nil, fmt.Errorf("%w: list_price or url is required", ErrValidation)
	}

	currency, rate, err := s.resolveRate(currency, req.ExchangeRate)
	if err != nil {
		return nil, err
	}
	tax, _, err := s.taxes.ActiveGCT(ctx, s.now())
	if err != nil {
		return nil, err
	}

	res, err := pricing.Marketplace(listPrice, rate, tax, s.cfg.Rounding)
	if err != nil {
		return nil, err
	}
	s.metrics.ObservePrice(pipelineMarketplace)

	return &MarketplaceQuote{
		PriceQuote: PriceQuote{
			Pipeline:       pipelineMarketplace,
			SourceCurrency: currency,
			TargetCurrency: s.cfg.TargetCurrency,
			ExchangeRate:   rate,
			Result:         res.Result,
		},
		Title:         title,
		URL:           req.URL,
		ListPrice:     res.ListPrice,
		EffectiveCost: res.EffectiveCost,
	}, nil
}

// --- Helpers ---

// priceLocal runs the local distributor pipeline with the category markup and the GCT in force today
func (s *pricingService) priceLocal(ctx context.Context, cost, rate decimal.Decimal, categoryID uuid.UUID) (pricing.Result, error) {
	category, err := s.categories.FindByID(ctx, categoryID)
	if err != nil {
		return pricing.Result{}, notFoundOr(err, "category")
	}
	gct, _, err := s.taxes.ActiveGCT(ctx, s.now())
	if err != nil {
		return pricing.Result{}, err
	}

	res, err := pricing.LocalDistributor(cost, rate, gct, category.MarkupPercent, s.cfg.Rounding)
	if err != nil {
		return pricing.Result{}, err
	}
	s.metrics.ObservePrice(pipelineLocal)
	return res, nil
}

func (s *pricingService) lookup(ctx context.Context, url string) (*marketplace.Product, error) {
	if s.looker == nil {
		return nil, fmt.Errorf("%w: marketplace lookup is not configured", ErrValidation)
	}
	product, err := s.looker.Lookup(ctx, url)
	if err != nil {
		switch {
		case errors.Is(err, marketplace.ErrInvalidURL):
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		case errors.Is(err, marketplace.ErrNotFound):
			return nil, fmt.Errorf("marketplace price %w", ErrNotFound)
		}
		return nil, fmt.Errorf("marketplace lookup failed: %w", err)
	}
	return product, nil
}

// resolveRate picks the explicit rate when given, otherwise the configured one for currency
func (s *pricingService) resolveRate(currency, explicit string) (string, decimal.Decimal, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "USD"
	}
	if strings.TrimSpace(explicit) != "" {
		rate, err := parseDecimal(explicit, "exchange_rate")
		return currency, rate, err
	}
	rate, ok := s.cfg.RateFor(currency)
	if !ok {
		return "", decimal.Zero, fmt.Errorf("%w: no exchange rate configured for %s", ErrValidation, currency)
	}
	return currency, rate, nil
}

func (s *pricingService) rounding(name string) (pricing.Rounding, error) {
	if strings.TrimSpace(name) == "" {
		return s.cfg.Rounding, nil
	}
	return pricing.ParseRounding(name)
}

func parseDecimal(s, field string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s must be a number", ErrValidation, field)
	}
	return d, nil
}

func parseDecimalOr(s, field string, def decimal.Decimal) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	return parseDecimal(s, field)
}
