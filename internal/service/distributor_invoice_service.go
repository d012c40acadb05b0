package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bizdesk/internal/config"
	"bizdesk/internal/lifecycle"
	"bizdesk/internal/metrics"
	"bizdesk/internal/model"
	"bizdesk/internal/pricing"
	"bizdesk/internal/repository"
)

// --- DTOs ---

type DistributorInvoiceLineRequest struct {
	SKU         string `json:"sku" binding:"required"`
	Description string `json:"description" binding:"required"`
	CategoryID  string `json:"category_id" binding:"required"`
	Quantity    int    `json:"quantity" binding:"required,gt=0"`
	UnitCost    string `json:"unit_cost" binding:"required"`
}

type ImportDistributorInvoiceRequest struct {
	Distributor string `json:"distributor" binding:"required"`
	ReferenceNo string `json:"reference_no" binding:"required"`
	InvoiceDate string `json:"invoice_date"` // YYYY-MM-DD, defaults to today
	Currency    string `json:"currency"`     // defaults to USD
	// ExchangeRate overrides the configured rate for Currency when set
	ExchangeRate string                          `json:"exchange_rate"`
	Lines        []DistributorInvoiceLineRequest `json:"lines" binding:"required,min=1,dive"`
}

type DistributorInvoiceLineResponse struct {
	SKU           string `json:"sku"`
	ProductID     string `json:"product_id"`
	Description   string `json:"description"`
	Quantity      int    `json:"quantity"`
	UnitCost      string `json:"unit_cost"`
	MarkupPercent string `json:"markup_percent"`
	SalePrice     string `json:"sale_price"`
}

type DistributorInvoiceResponse struct {
	ID           string                           `json:"id"`
	Distributor  string                           `json:"distributor"`
	ReferenceNo  string                           `json:"reference_no"`
	InvoiceDate  string                           `json:"invoice_date"`
	Currency     string                           `json:"currency"`
	ExchangeRate string                           `json:"exchange_rate"`
	TaxPercent   string                           `json:"tax_percent"`
	TotalCost    string                           `json:"total_cost"`
	Lines        []DistributorInvoiceLineResponse `json:"lines"`
	CreatedAt    string                           `json:"created_at"`
}

// --- Interface ---

type DistributorInvoiceService interface {
	Import(ctx context.Context, req ImportDistributorInvoiceRequest, actor lifecycle.Actor) (DistributorInvoiceResponse, error)
	Get(ctx context.Context, id uuid.UUID) (DistributorInvoiceResponse, error)
	List(ctx context.Context, distributor string, page, limit int) ([]DistributorInvoiceResponse, int64, error)
}

type distributorInvoiceService struct {
	repo       repository.DistributorInvoiceRepository
	products   repository.ProductRepository
	categories repository.CategoryRepository
	taxes      TaxService
	auditRepo  repository.AuditRepository
	txManager  repository.TransactionManager
	cfg        config.PricingConfig
	metrics    *metrics.Metrics
}

func NewDistributorInvoiceService(
	repo repository.DistributorInvoiceRepository,
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	taxes TaxService,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	cfg config.PricingConfig,
	m *metrics.Metrics,
) DistributorInvoiceService {
	return &distributorInvoiceService{
		repo:       repo,
		products:   products,
		categories: categories,
		taxes:      taxes,
		auditRepo:  auditRepo,
		txManager:  txManager,
		cfg:        cfg,
		metrics:    m,
	}
}

// --- Implementation ---

// Import prices every line through the local distributor pipeline and upserts the
// resulting product by SKU. Either the whole invoice lands or nothing does.
func (s *distributorInvoiceService) Import(ctx context.Context, req ImportDistributorInvoiceRequest, actor lifecycle.Actor) (DistributorInvoiceResponse, error) {
	distributor := strings.TrimSpace(req.Distributor)
	reference := strings.TrimSpace(req.ReferenceNo)
	if len(req.Lines) == 0 {
		return DistributorInvoiceResponse{}, fmt.Errorf("%w: at least one line is required", ErrValidation)
	}

	invoiceDate := time.Now()
	if req.InvoiceDate != "" {
		d, err := time.Parse(dateLayout, req.InvoiceDate)
		if err != nil {
			return DistributorInvoiceResponse{}, fmt.Errorf("%w: invoice_date must be YYYY-MM-DD", ErrValidation)
		}
		invoiceDate = d
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "USD"
	}
	var rate decimal.Decimal
	if req.ExchangeRate != "" {
		r, err := decimal.NewFromString(req.ExchangeRate)
		if err != nil {
			return DistributorInvoiceResponse{}, fmt.Errorf("%w: exchange_rate must be a number", ErrValidation)
		}
		rate = r
	} else {
		r, ok := s.cfg.RateFor(currency)
		if !ok {
			return DistributorInvoiceResponse{}, fmt.Errorf("%w: no exchange rate configured for %s", ErrValidation, currency)
		}
		rate = r
	}

	gct, taxRuleID, err := s.taxes.ActiveGCT(ctx, invoiceDate)
	if err != nil {
		return DistributorInvoiceResponse{}, err
	}

	exists, err := s.repo.ExistsReference(ctx, distributor, reference)
	if err != nil {
		return DistributorInvoiceResponse{}, fmt.Errorf("failed to check reference: %w", err)
	}
	if exists {
		return DistributorInvoiceResponse{}, fmt.Errorf("invoice %s from %s %w", reference, distributor, ErrConflict)
	}

	// Price every line before touching the database so a bad line rejects the whole import
	markups := map[uuid.UUID]decimal.Decimal{}
	products := make([]*model.Product, 0, len(req.Lines))
	lines := make([]model.DistributorInvoiceLine, 0, len(req.Lines))
	total := decimal.Zero

	for i, l := range req.Lines {
		field := fmt.Sprintf("lines[%d]", i)
		if l.Quantity <= 0 {
			return DistributorInvoiceResponse{}, fmt.Errorf("%w: %s.quantity must be positive", ErrValidation, field)
		}
		categoryID, err := parseID(l.CategoryID, field+".category_id")
		if err != nil {
			return DistributorInvoiceResponse{}, err
		}
		cost, err := parseDecimal(l.UnitCost, field+".unit_cost")
		if err != nil {
			return DistributorInvoiceResponse{}, err
		}

		markup, ok := markups[categoryID]
		if !ok {
			category, err := s.categories.FindByID(ctx, categoryID)
			if err != nil {
				return DistributorInvoiceResponse{}, notFoundOr(err, field+" category")
			}
			markup = category.MarkupPercent
			markups[categoryID] = markup
		}

		res, err := pricing.LocalDistributor(cost, rate, gct, markup, s.cfg.Rounding)
		if err != nil {
			return DistributorInvoiceResponse{}, fmt.Errorf("%s: %w", field, err)
		}
		s.metrics.ObservePrice(pipelineLocal)

		sku := strings.TrimSpace(l.SKU)
		cid := categoryID
		products = append(products, &model.Product{
			SKU:           sku,
			Name:          strings.TrimSpace(l.Description),
			Source:        model.SourceDistributor,
			CategoryID:    &cid,
			CostAmount:    cost,
			CostCurrency:  currency,
			ExchangeRate:  rate,
			TaxPercent:    gct,
			MarkupPercent: markup,
			SalePrice:     res.FinalPrice,
			SaleCurrency:  s.cfg.TargetCurrency,
			StockOnHand:   l.Quantity,
		})
		lines = append(lines, model.DistributorInvoiceLine{
			SKU:           sku,
			Description:   strings.TrimSpace(l.Description),
			CategoryID:    categoryID,
			Quantity:      l.Quantity,
			UnitCost:      cost,
			MarkupPercent: markup,
			SalePrice:     res.FinalPrice,
		})
		total = total.Add(cost.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	invoice := model.DistributorInvoice{
		Distributor:  distributor,
		ReferenceNo:  reference,
		Currency:     currency,
		ExchangeRate: rate,
		TaxPercent:   gct,
		TotalCost:    total,
		InvoiceDate:  invoiceDate,
		ImportedByID: actor.ID,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		for i, p := range products {
			if err := s.products.UpsertBySKU(txCtx, p); err != nil {
				return fmt.Errorf("failed to upsert product %s: %w", p.SKU, err)
			}
			lines[i].ProductID = p.ID
		}
		invoice.Lines = lines
		if err := s.repo.Create(txCtx, &invoice); err != nil {
			return fmt.Errorf("failed to create distributor invoice: %w", err)
		}

		details := map[string]interface{}{
			"distributor":   distributor,
			"currency":      currency,
			"exchange_rate": rate.String(),
			"gct_percent":   gct.String(),
			"lines":         len(lines),
			"total_cost":    total.String(),
		}
		if taxRuleID != nil {
			details["tax_rule_id"] = taxRuleID.String()
		}
		return s.auditRepo.Log(txCtx, newAuditLog(actor.ID, model.ActionImportInvoice, invoice.ID.String(), reference, details))
	})
	if err != nil {
		return DistributorInvoiceResponse{}, err
	}

	return toDistributorInvoiceResponse(invoice), nil
}

func (s *distributorInvoiceService) Get(ctx context.Context, id uuid.UUID) (DistributorInvoiceResponse, error) {
	invoice, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return DistributorInvoiceResponse{}, notFoundOr(err, "distributor invoice")
	}
	return toDistributorInvoiceResponse(*invoice), nil
}

func (s *distributorInvoiceService) List(ctx context.Context, distributor string, page, limit int) ([]DistributorInvoiceResponse, int64, error) {
	page, limit = normalizePage(page, limit)
	invoices, total, err := s.repo.List(ctx, strings.TrimSpace(distributor), page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch distributor invoices: %w", err)
	}

	result := make([]DistributorInvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		result = append(result, toDistributorInvoiceResponse(inv))
	}
	return result, total, nil
}

// --- Helpers ---

func toDistributorInvoiceResponse(inv model.DistributorInvoice) DistributorInvoiceResponse {
	resp := DistributorInvoiceResponse{
		ID:           inv.ID.String(),
		Distributor:  inv.Distributor,
		ReferenceNo:  inv.ReferenceNo,
		InvoiceDate:  inv.InvoiceDate.Format(dateLayout),
		Currency:     inv.Currency,
		ExchangeRate: inv.ExchangeRate.StringFixed(6),
		TaxPercent:   inv.TaxPercent.StringFixed(2),
		TotalCost:    inv.TotalCost.StringFixed(2),
		Lines:        make([]DistributorInvoiceLineResponse, 0, len(inv.Lines)),
		CreatedAt:    inv.CreatedAt.Format(time.RFC3339),
	}
	for _, l := range inv.Lines {
		resp.Lines = append(resp.Lines, DistributorInvoiceLineResponse{
			SKU:           l.SKU,
			ProductID:     l.ProductID.String(),
			Description:   l.Description,
			Quantity:      l.Quantity,
			UnitCost:      l.UnitCost.StringFixed(4),
			MarkupPercent: l.MarkupPercent.StringFixed(2),
			SalePrice:     l.SalePrice.StringFixed(2),
		})
	}
	return resp
}
