package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"bizdesk/internal/lifecycle"
	"bizdesk/internal/model"
	"bizdesk/internal/notify"
	"bizdesk/internal/repository"
)

// --- DTOs ---

type LocalProductRequest struct {
	SKU          string `json:"sku" binding:"required"`
	Name         string `json:"name" binding:"required"`
	CategoryID   string `json:"category_id" binding:"required"`
	Cost         string `json:"cost" binding:"required"`
	Currency     string `json:"currency"`
	ExchangeRate string `json:"exchange_rate"`
	StockOnHand  int    `json:"stock_on_hand" binding:"gte=0"`
}

type MarketplaceProductRequest struct {
	SKU          string `json:"sku" binding:"required"`
	Name         string `json:"name"` // defaults to the listing title
	URL          string `json:"url"`
	ListPrice    string `json:"list_price"`
	Currency     string `json:"currency"`
	ExchangeRate string `json:"exchange_rate"`
	CategoryID   string `json:"category_id"`
}

type UpdateProductRequest struct {
	Name        *string `json:"name"`
	CategoryID  *string `json:"category_id"`
	StockOnHand *int    `json:"stock_on_hand" binding:"omitempty,gte=0"`
}

type ProductQuery struct {
	Source     string
	CategoryID string
	Search     string
	Page       int
	Limit      int
}

// --- Interface ---

type ProductService interface {
	List(ctx context.Context, q ProductQuery) ([]model.Product, int64, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Product, error)
	CreateFromLocal(ctx context.Context, req LocalProductRequest, actor lifecycle.Actor) (*model.Product, error)
	CreateFromMarketplace(ctx context.Context, req MarketplaceProductRequest, actor lifecycle.Actor) (*model.Product, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateProductRequest, actor lifecycle.Actor) (*model.Product, error)
	Delete(ctx context.Context, id uuid.UUID, actor lifecycle.Actor) error
}

// --- Implementation ---

type productService struct {
	repo      repository.ProductRepository
	pricing   PricingService
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	events    notify.Publisher
	logger    *slog.Logger
}

func NewProductService(repo repository.ProductRepository, pricingService PricingService, auditRepo repository.AuditRepository, txManager repository.TransactionManager, events notify.Publisher, logger *slog.Logger) ProductService {
	if logger == nil {
		logger = slog.Default()
	}
	return &productService{
		repo:      repo,
		pricing:   pricingService,
		auditRepo: auditRepo,
		txManager: txManager,
		events:    events,
		logger:    logger,
	}
}

func (s *productService) List(ctx context.Context, q ProductQuery) ([]model.Product, int64, error) {
	categoryID, err := parseOptionalID(q.CategoryID, "category_id")
	if err != nil {
		return nil, 0, err
	}
	switch q.Source {
	case "", model.SourceDistributor, model.SourceMarketplace, model.SourceManual:
	default:
		return nil, 0, fmt.Errorf("%w: unknown source %q", ErrValidation, q.Source)
	}
	page, limit := normalizePage(q.Page, q.Limit)

	products, total, err := s.repo.List(ctx, repository.ProductFilter{
		Source:     q.Source,
		CategoryID: categoryID,
		Search:     strings.TrimSpace(q.Search),
	}, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch products: %w", err)
	}
	return products, total, nil
}

func (s *productService) Get(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "product")
	}
	return product, nil
}

// CreateFromLocal prices a distributor item with its category markup and today's GCT
func (s *productService) CreateFromLocal(ctx context.Context, req LocalProductRequest, actor lifecycle.Actor) (*model.Product, error) {
	if err := s.ensureSKUFree(ctx, req.SKU); err != nil {
		return nil, err
	}

	quote, err := s.pricing.Local(ctx, LocalPriceRequest{
		Cost:         req.Cost,
		Currency:     req.Currency,
		CategoryID:   req.CategoryID,
		ExchangeRate: req.ExchangeRate,
	})
	if err != nil {
		return nil, err
	}
	categoryID := uuid.MustParse(quote.CategoryID)

	cost, _ := parseDecimal(req.Cost, "cost")
	product := &model.Product{
		SKU:         strings.TrimSpace(req.SKU),
		Name:        strings.TrimSpace(req.Name),
		Source:      model.SourceDistributor,
		CategoryID:  &categoryID,
		CostAmount:  cost,
		StockOnHand: req.StockOnHand,
	}
	applyQuote(product, *quote)

	if err := s.create(ctx, product, actor, pipelineLocal); err != nil {
		return nil, err
	}
	return product, nil
}

// CreateFromMarketplace prices a marketplace listing, looking it up by URL when no list price is given
func (s *productService) CreateFromMarketplace(ctx context.Context, req MarketplaceProductRequest, actor lifecycle.Actor) (*model.Product, error) {
	if err := s.ensureSKUFree(ctx, req.SKU); err != nil {
		return nil, err
	}
	categoryID, err := parseOptionalID(req.CategoryID, "category_id")
	if err != nil {
		return nil, err
	}

	quote, err := s.pricing.Marketplace(ctx, MarketplacePriceRequest{
		ListPrice:    req.ListPrice,
		URL:          req.URL,
		Currency:     req.Currency,
		ExchangeRate: req.ExchangeRate,
	})
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = quote.Title
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name is required when the listing has no title", ErrValidation)
	}

	product := &model.Product{
		SKU:        strings.TrimSpace(req.SKU),
		Name:       name,
		Source:     model.SourceMarketplace,
		SourceURL:  strings.TrimSpace(req.URL),
		CategoryID: categoryID,
		CostAmount: quote.ListPrice,
	}
	applyQuote(product, quote.PriceQuote)

	if err := s.create(ctx, product, actor, pipelineMarketplace); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *productService) Update(ctx context.Context, id uuid.UUID, req UpdateProductRequest, actor lifecycle.Actor) (*model.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "product")
	}

	changes := map[string]interface{}{}
	setString(&product.Name, req.Name, "name", changes)
	if req.CategoryID != nil {
		categoryID, err := parseOptionalID(*req.CategoryID, "category_id")
		if err != nil {
			return nil, err
		}
		product.CategoryID = categoryID
		product.Category = nil
		changes["category_id"] = *req.CategoryID
	}
	if req.StockOnHand != nil && *req.StockOnHand != product.StockOnHand {
		changes["stock_on_hand"] = map[string]int{"from": product.StockOnHand, "to": *req.StockOnHand}
		product.StockOnHand = *req.StockOnHand
	}
	if len(changes) == 0 {
		return product, nil
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Update(txCtx, product); err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}
		return s.auditRepo.Log(txCtx, newAuditLog(actor.ID, model.ActionUpdateProduct, id.String(), product.Name, changes))
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *productService) Delete(ctx context.Context, id uuid.UUID, actor lifecycle.Actor) error {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "product")
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Delete(txCtx, id); err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}
		return s.auditRepo.Log(txCtx, newAuditLog(actor.ID, model.ActionDeleteProduct, id.String(), product.Name, map[string]interface{}{
			"sku": product.SKU,
		}))
	})
}

// --- Helpers ---

func (s *productService) ensureSKUFree(ctx context.Context, sku string) error {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return fmt.Errorf("%w: sku is required", ErrValidation)
	}
	_, err := s.repo.FindBySKU(ctx, sku)
	switch {
	case err == nil:
		return fmt.Errorf("product with sku %q %w", sku, ErrConflict)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	default:
		return fmt.Errorf("failed to check sku: %w", err)
	}
}

func (s *productService) create(ctx context.Context, product *model.Product, actor lifecycle.Actor, pipeline string) error {
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, product); err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}
		return s.auditRepo.Log(txCtx, newAuditLog(actor.ID, model.ActionCreateProduct, product.ID.String(), product.Name, map[string]interface{}{
			"sku":        product.SKU,
			"pipeline":   pipeline,
			"sale_price": product.SalePrice.String(),
			"currency":   product.SaleCurrency,
		}))
	})
	if err != nil {
		return err
	}

	if s.events != nil && !s.events.Publish(notify.Event{
		Type:       notify.EventProductPriced,
		Kind:       notify.KindProduct,
		EntityID:   product.ID,
		Name:       product.Name,
		To:         product.SalePrice.String() + " " + product.SaleCurrency,
		ActorID:    actor.ID,
		ActorEmail: actor.Email,
		At:         time.Now(),
	}) {
		s.logger.Warn("Product event dropped", "product_id", product.ID)
	}
	return nil
}

func applyQuote(p *model.Product, q PriceQuote) {
	p.CostCurrency = q.SourceCurrency
	p.ExchangeRate = q.ExchangeRate
	p.TaxPercent = q.Result.TaxPercent
	p.MarkupPercent = q.Result.MarkupPercent
	p.SalePrice = q.Result.FinalPrice
	p.SaleCurrency = q.TargetCurrency
}
