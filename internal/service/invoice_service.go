package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bizdesk/internal/lifecycle"
	"bizdesk/internal/model"
	"bizdesk/internal/repository"
)

const invoicePrefix = "INV"

// --- DTOs ---

type CreateInvoiceRequest struct {
	CustomerID  string `json:"customer_id"`
	WorkOrderID string `json:"work_order_id"`
	// QuotationID copies the quotation's lines when Lines is empty
	QuotationID string                `json:"quotation_id"`
	Lines       []DocumentLineRequest `json:"lines" binding:"omitempty,dive"`
	DueDate     string                `json:"due_date"` // YYYY-MM-DD
	Note        string                `json:"note"`
	TaxExempt   bool                  `json:"tax_exempt"`
}

type SettleInvoiceRequest struct {
	Status string `json:"status" binding:"required,oneof=paid void"`
	Note   string `json:"note"`
}

type InvoiceQuery struct {
	Status     string
	CustomerID string
	Page       int
	Limit      int
}

type InvoiceResponse struct {
	ID           string                 `json:"id"`
	InvoiceNo    string                 `json:"invoice_no"`
	CustomerID   *string                `json:"customer_id"`
	CustomerName string                 `json:"customer_name,omitempty"`
	WorkOrderID  *string                `json:"work_order_id"`
	QuotationID  *string                `json:"quotation_id"`
	Lines        []DocumentLineResponse `json:"lines"`
	Subtotal     string                 `json:"subtotal"`
	TaxRuleID    *string                `json:"tax_rule_id"`
	TaxPercent   string                 `json:"tax_percent"`
	TaxAmount    string                 `json:"tax_amount"`
	TotalAmount  string                 `json:"total_amount"`
	Currency     string                 `json:"currency"`
	Status       string                 `json:"status"`
	DueDate      *string                `json:"due_date"`
	PaidAt       *string                `json:"paid_at"`
	SettledBy    *string                `json:"settled_by"`
	Note         string                 `json:"note"`
	CreatedAt    string                 `json:"created_at"`
}

// --- Interface ---

type InvoiceService interface {
	CreateInvoice(ctx context.Context, req CreateInvoiceRequest, actor lifecycle.Actor) (InvoiceResponse, error)
	GetInvoice(ctx context.Context, id uuid.UUID) (InvoiceResponse, error)
	ListInvoices(ctx context.Context, q InvoiceQuery) ([]InvoiceResponse, int64, error)
	SettleInvoice(ctx context.Context, id uuid.UUID, req SettleInvoiceRequest, actor lifecycle.Actor) (InvoiceResponse, error)
	ExportInvoice(ctx context.Context, id uuid.UUID) (string, []byte, error)
}

type invoiceService struct {
	invoiceRepo   repository.InvoiceRepository
	quotationRepo repository.QuotationRepository
	products      repository.ProductRepository
	customers     repository.CustomerRepository
	tracker       Tracker
	taxes         TaxService
	auditRepo     repository.AuditRepository
	txManager     repository.TransactionManager
	currency      string
	now           func() time.Time
}

func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	quotationRepo repository.QuotationRepository,
	products repository.ProductRepository,
	customers repository.CustomerRepository,
	tracker Tracker,
	taxes TaxService,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	currency string,
) InvoiceService {
	return &invoiceService{
		invoiceRepo:   invoiceRepo,
		quotationRepo: quotationRepo,
		products:      products,
		customers:     customers,
		tracker:       tracker,
		taxes:         taxes,
		auditRepo:     auditRepo,
		txManager:     txManager,
		currency:      currency,
		now:           time.Now,
	}
}

// --- Implementation ---

func (s *invoiceService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest, actor lifecycle.Actor) (InvoiceResponse, error) {
	customerID, err := parseOptionalID(req.CustomerID, "customer_id")
	if err != nil {
		return InvoiceResponse{}, err
	}
	workOrderID, err := parseOptionalID(req.WorkOrderID, "work_order_id")
	if err != nil {
		return InvoiceResponse{}, err
	}
	quotationID, err := parseOptionalID(req.QuotationID, "quotation_id")
	if err != nil {
		return InvoiceResponse{}, err
	}
	dueDate, err := parseOptionalDate(req.DueDate, "due_date")
	if err != nil {
		return InvoiceResponse{}, err
	}

	if workOrderID != nil {
		rec, err := s.tracker.Get(ctx, model.KindWorkOrder, *workOrderID)
		if err != nil {
			return InvoiceResponse{}, err
		}
		wo := rec.(*model.WorkOrder)
		if customerID == nil {
			customerID = wo.CustomerID
		}
	}

	var lines []pricedLine
	subtotal := decimal.Zero
	switch {
	case len(req.Lines) > 0:
		lines, subtotal, err = priceLines(ctx, s.products, req.Lines)
		if err != nil {
			return InvoiceResponse{}, err
		}
		if quotationID != nil {
			if _, err := s.quotationRepo.FindByID(ctx, *quotationID); err != nil {
				return InvoiceResponse{}, notFoundOr(err, "quotation")
			}
		}
	case quotationID != nil:
		q, err := s.quotationRepo.FindByID(ctx, *quotationID)
		if err != nil {
			return InvoiceResponse{}, notFoundOr(err, "quotation")
		}
		if customerID == nil {
			customerID = q.CustomerID
		}
		for _, l := range q.Lines {
			lines = append(lines, pricedLine{
				ProductID:   l.ProductID,
				Description: l.Description,
				Quantity:    l.Quantity,
				UnitPrice:   l.UnitPrice,
				LineTotal:   l.LineTotal,
			})
			subtotal = subtotal.Add(l.LineTotal)
		}
	default:
		return InvoiceResponse{}, fmt.Errorf("%w: lines or quotation_id is required", ErrValidation)
	}

	if customerID != nil {
		if _, err := s.customers.FindByID(ctx, *customerID); err != nil {
			return InvoiceResponse{}, notFoundOr(err, "customer")
		}
	}

	now := s.now()
	taxPercent, taxRuleID, err := s.taxes.ActiveGCT(ctx, now)
	if err != nil {
		return InvoiceResponse{}, err
	}
	if req.TaxExempt {
		taxPercent, taxRuleID = decimal.Zero, nil
	}
	totals := computeTotals(subtotal, taxPercent)

	invoice := model.Invoice{
		CustomerID:  customerID,
		WorkOrderID: workOrderID,
		QuotationID: quotationID,
		Subtotal:    totals.Subtotal,
		TaxRuleID:   taxRuleID,
		TaxPercent:  totals.TaxPercent,
		TaxAmount:   totals.TaxAmount,
		TotalAmount: totals.Total,
		Currency:    s.currency,
		Status:      model.InvoicePending,
		DueDate:     dueDate,
		Note:        req.Note,
		CreatedByID: actor.ID,
	}
	for _, l := range lines {
		invoice.Lines = append(invoice.Lines, model.InvoiceLine{
			ProductID:   l.ProductID,
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			LineTotal:   l.LineTotal,
		})
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		no, err := nextDocumentNo(txCtx, s.txManager, invoicePrefix, now, s.invoiceRepo.CountByPrefix)
		if err != nil {
			return err
		}
		invoice.InvoiceNo = no
		if err := s.invoiceRepo.Create(txCtx, &invoice); err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}
		return s.auditRepo.Log(txCtx, newAuditLog(actor.ID, model.ActionCreateInvoice, invoice.ID.String(), no, map[string]interface{}{
			"subtotal":    totals.Subtotal.StringFixed(2),
			"tax_percent": totals.TaxPercent.String(),
			"total":       totals.Total.StringFixed(2),
			"currency":    s.currency,
		}))
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	return toInvoiceResponse(invoice), nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, id uuid.UUID) (InvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return InvoiceResponse{}, notFoundOr(err, "invoice")
	}
	return toInvoiceResponse(*invoice), nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, q InvoiceQuery) ([]InvoiceResponse, int64, error) {
	switch q.Status {
	case "", model.InvoicePending, model.InvoicePaid, model.InvoiceVoid:
	default:
		return nil, 0, fmt.Errorf("%w: unknown invoice status %q", ErrValidation, q.Status)
	}
	customerID, err := parseOptionalID(q.CustomerID, "customer_id")
	if err != nil {
		return nil, 0, err
	}
	page, limit := normalizePage(q.Page, q.Limit)

	invoices, total, err := s.invoiceRepo.List(ctx, repository.InvoiceFilter{Status: q.Status, CustomerID: customerID}, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch invoices: %w", err)
	}

	result := make([]InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		result = append(result, toInvoiceResponse(inv))
	}
	return result, total, nil
}

// SettleInvoice moves a pending invoice to paid or void. Settled invoices are final.
func (s *invoiceService) SettleInvoice(ctx context.Context, id uuid.UUID, req SettleInvoiceRequest, actor lifecycle.Actor) (InvoiceResponse, error) {
	if req.Status != model.InvoicePaid && req.Status != model.InvoiceVoid {
		return InvoiceResponse{}, fmt.Errorf("%w: status must be paid or void", ErrValidation)
	}

	var result model.Invoice
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, err := s.invoiceRepo.FindByID(txCtx, id)
		if err != nil {
			return notFoundOr(err, "invoice")
		}
		if invoice.Status != model.InvoicePending {
			return fmt.Errorf("%w: invoice %s is already %s", lifecycle.ErrInvalidTransition, invoice.InvoiceNo, invoice.Status)
		}

		previous := invoice.Status
		now := s.now()
		actorID := actor.ID
		invoice.Status = req.Status
		invoice.SettledByID = &actorID
		invoice.UpdatedAt = now
		if req.Status == model.InvoicePaid {
			invoice.PaidAt = &now
		}

		if err := s.invoiceRepo.UpdateStatus(txCtx, invoice); err != nil {
			return fmt.Errorf("failed to update invoice: %w", err)
		}
		if err := s.auditRepo.Log(txCtx, newAuditLog(actor.ID, model.ActionSettleInvoice, id.String(), invoice.InvoiceNo, map[string]interface{}{
			"from":  previous,
			"to":    req.Status,
			"total": invoice.TotalAmount.StringFixed(2),
			"note":  req.Note,
		})); err != nil {
			return err
		}
		result = *invoice
		return nil
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	return toInvoiceResponse(result), nil
}

// ExportInvoice renders the invoice as an xlsx workbook and returns its file name and bytes
func (s *invoiceService) ExportInvoice(ctx context.Context, id uuid.UUID) (string, []byte, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return "", nil, notFoundOr(err, "invoice")
	}
	resp := toInvoiceResponse(*invoice)

	header := [][2]string{
		{"Invoice no", invoice.InvoiceNo},
		{"Date", invoice.CreatedAt.Format(dateLayout)},
		{"Status", invoice.Status},
	}
	if resp.DueDate != nil {
		header = append(header, [2]string{"Due", *resp.DueDate})
	}
	if invoice.Customer != nil {
		header = append(header, [2]string{"Bill to", invoice.Customer.Name})
		if invoice.Customer.CompanyName != "" {
			header = append(header, [2]string{"Company", invoice.Customer.CompanyName})
		}
		if invoice.Customer.TRN != "" {
			header = append(header, [2]string{"TRN", invoice.Customer.TRN})
		}
		if invoice.Customer.Address != "" {
			header = append(header, [2]string{"Address", invoice.Customer.Address})
		}
	}
	if invoice.Note != "" {
		header = append(header, [2]string{"Note", invoice.Note})
	}

	data, err := exportSheet(sheetDocument{
		Title:    "Invoice " + invoice.InvoiceNo,
		Header:   header,
		Lines:    resp.Lines,
		Totals:   documentTotals{Subtotal: invoice.Subtotal, TaxPercent: invoice.TaxPercent, TaxAmount: invoice.TaxAmount, Total: invoice.TotalAmount},
		Currency: invoice.Currency,
	})
	if err != nil {
		return "", nil, err
	}
	return invoice.InvoiceNo + ".xlsx", data, nil
}

// --- Helpers ---

func toInvoiceResponse(inv model.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		ID:          inv.ID.String(),
		InvoiceNo:   inv.InvoiceNo,
		Lines:       make([]DocumentLineResponse, 0, len(inv.Lines)),
		Subtotal:    inv.Subtotal.StringFixed(2),
		TaxPercent:  inv.TaxPercent.StringFixed(2),
		TaxAmount:   inv.TaxAmount.StringFixed(2),
		TotalAmount: inv.TotalAmount.StringFixed(2),
		Currency:    inv.Currency,
		Status:      inv.Status,
		PaidAt:      formatTime(inv.PaidAt),
		Note:        inv.Note,
		CreatedAt:   inv.CreatedAt.Format(time.RFC3339),
	}
	if inv.CustomerID != nil {
		s := inv.CustomerID.String()
		resp.CustomerID = &s
	}
	if inv.Customer != nil {
		resp.CustomerName = inv.Customer.Name
	}
	if inv.WorkOrderID != nil {
		s := inv.WorkOrderID.String()
		resp.WorkOrderID = &s
	}
	if inv.QuotationID != nil {
		s := inv.QuotationID.String()
		resp.QuotationID = &s
	}
	if inv.TaxRuleID != nil {
		s := inv.TaxRuleID.String()
		resp.TaxRuleID = &s
	}
	if inv.SettledByID != nil {
		s := inv.SettledByID.String()
		resp.SettledBy = &s
	}
	if inv.DueDate != nil {
		s := inv.DueDate.Format(dateLayout)
		resp.DueDate = &s
	}
	for _, l := range inv.Lines {
		resp.Lines = append(resp.Lines, lineResponse(l.ProductID, l.Description, l.Quantity, l.UnitPrice, l.LineTotal))
	}
	return resp
}
