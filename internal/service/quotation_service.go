package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bizdesk/internal/lifecycle"
	"bizdesk/internal/model"
	"bizdesk/internal/repository"
)

const quotationPrefix = "QUO"

// --- DTOs ---

type CreateQuotationRequest struct {
	RequestID  string                `json:"request_id"`
	CustomerID string                `json:"customer_id"`
	Lines      []DocumentLineRequest `json:"lines" binding:"required,min=1,dive"`
	ValidUntil string                `json:"valid_until"` // YYYY-MM-DD
	Note       string                `json:"note"`
	TaxExempt  bool                  `json:"tax_exempt"`
	// MarkQuoted moves the answered request to "quoted"
	MarkQuoted bool `json:"mark_quoted"`
}

type QuotationResponse struct {
	ID            string                 `json:"id"`
	QuotationNo   string                 `json:"quotation_no"`
	RequestID     *string                `json:"request_id"`
	CustomerID    *string                `json:"customer_id"`
	Lines         []DocumentLineResponse `json:"lines"`
	Subtotal      string                 `json:"subtotal"`
	TaxPercent    string                 `json:"tax_percent"`
	TaxAmount     string                 `json:"tax_amount"`
	TotalAmount   string                 `json:"total_amount"`
	Currency      string                 `json:"currency"`
	ValidUntil    *string                `json:"valid_until"`
	Note          string                 `json:"note"`
	RequestStatus string                 `json:"request_status,omitempty"`
	CreatedAt     string                 `json:"created_at"`
}

// --- Interface ---

type QuotationService interface {
	Create(ctx context.Context, req CreateQuotationRequest, actor lifecycle.Actor) (QuotationResponse, error)
	Get(ctx context.Context, id uuid.UUID) (QuotationResponse, error)
	List(ctx context.Context, requestID string, page, limit int) ([]QuotationResponse, int64, error)
	Export(ctx context.Context, id uuid.UUID) (string, []byte, error)
}

// --- Implementation ---

type quotationService struct {
	repo      repository.QuotationRepository
	products  repository.ProductRepository
	customers repository.CustomerRepository
	tracker   Tracker
	taxes     TaxService
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	currency  string
	logger    *slog.Logger
	now       func() time.Time
}

func NewQuotationService(
	repo repository.QuotationRepository,
	products repository.ProductRepository,
	customers repository.CustomerRepository,
	tracker Tracker,
	taxes TaxService,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	currency string,
	logger *slog.Logger,
) QuotationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &quotationService{
		repo:      repo,
		products:  products,
		customers: customers,
		tracker:   tracker,
		taxes:     taxes,
		auditRepo: auditRepo,
		txManager: txManager,
		currency:  currency,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *quotationService) Create(ctx context.Context, req CreateQuotationRequest, actor lifecycle.Actor) (QuotationResponse, error) {
	requestID, err := parseOptionalID(req.RequestID, "request_id")
	if err != nil {
		return QuotationResponse{}, err
	}
	customerID, err := parseOptionalID(req.CustomerID, "customer_id")
	if err != nil {
		return QuotationResponse{}, err
	}
	validUntil, err := parseOptionalDate(req.ValidUntil, "valid_until")
	if err != nil {
		return QuotationResponse{}, err
	}
	if req.MarkQuoted && requestID == nil {
		return QuotationResponse{}, fmt.Errorf("%w: mark_quoted needs a request_id", ErrValidation)
	}

	if requestID != nil {
		rec, err := s.tracker.Get(ctx, model.KindQuotationRequest, *requestID)
		if err != nil {
			return QuotationResponse{}, err
		}
		qr := rec.(*model.QuotationRequest)
		if customerID == nil {
			customerID = qr.CustomerID
		}
		if req.MarkQuoted {
			// fail before writing anything if the request cannot move to quoted
			g, _ := lifecycle.GraphFor(model.KindQuotationRequest)
			if !g.CanTransition(qr.Status, model.QuoteRequestQuoted) {
				return QuotationResponse{}, fmt.Errorf("%w: request is %s", lifecycle.ErrInvalidTransition, qr.Status)
			}
			if !lifecycle.Allowed(actor.Role, lifecycle.ActionTransition, model.KindQuotationRequest) {
				return QuotationResponse{}, lifecycle.ErrPermissionDenied
			}
		}
	}
	if customerID != nil {
		if _, err := s.customers.FindByID(ctx, *customerID); err != nil {
			return QuotationResponse{}, notFoundOr(err, "customer")
		}
	}

	lines, subtotal, err := priceLines(ctx, s.products, req.Lines)
	if err != nil {
		return QuotationResponse{}, err
	}
	now := s.now()
	taxPercent, _, err := s.taxes.ActiveGCT(ctx, now)
	if err != nil {
		return QuotationResponse{}, err
	}
	if req.TaxExempt {
		taxPercent = decimal.Zero
	}
	totals := computeTotals(subtotal, taxPercent)

	quotation := model.Quotation{
		RequestID:   requestID,
		CustomerID:  customerID,
		Subtotal:    totals.Subtotal,
		TaxPercent:  totals.TaxPercent,
		TaxAmount:   totals.TaxAmount,
		TotalAmount: totals.Total,
		Currency:    s.currency,
		ValidUntil:  validUntil,
		Note:        req.Note,
		CreatedByID: actor.ID,
	}
	for _, l := range lines {
		quotation.Lines = append(quotation.Lines, model.QuotationLine{
			ProductID:   l.ProductID,
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			LineTotal:   l.LineTotal,
		})
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		no, err := nextDocumentNo(txCtx, s.txManager, quotationPrefix, now, s.repo.CountByPrefix)
		if err != nil {
			return err
		}
		quotation.QuotationNo = no
		if err := s.repo.Create(txCtx, &quotation); err != nil {
			return fmt.Errorf("failed to create quotation: %w", err)
		}
		details := map[string]interface{}{
			"total":    totals.Total.StringFixed(2),
			"currency": s.currency,
			"lines":    len(lines),
		}
		if requestID != nil {
			details["request_id"] = requestID.String()
		}
		return s.auditRepo.Log(txCtx, newAuditLog(actor.ID, model.ActionCreateQuote, quotation.ID.String(), no, details))
	})
	if err != nil {
		return QuotationResponse{}, err
	}

	resp := toQuotationResponse(quotation)
	if req.MarkQuoted {
		// runs in its own transaction so the status event is published after both commits
		rec, err := s.tracker.Transition(ctx, model.KindQuotationRequest, *requestID, TransitionRequest{
			Status: model.QuoteRequestQuoted,
			Notes:  "Quotation " + quotation.QuotationNo,
		}, actor)
		if err != nil {
			s.logger.Warn("Quotation saved but request was not marked quoted",
				"quotation_no", quotation.QuotationNo, "request_id", requestID, "error", err)
		} else {
			resp.RequestStatus = rec.LifecycleRecord().Status
		}
	}
	return resp, nil
}

func (s *quotationService) Get(ctx context.Context, id uuid.UUID) (QuotationResponse, error) {
	q, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return QuotationResponse{}, notFoundOr(err, "quotation")
	}
	return toQuotationResponse(*q), nil
}

func (s *quotationService) List(ctx context.Context, requestID string, page, limit int) ([]QuotationResponse, int64, error) {
	rid, err := parseOptionalID(requestID, "request_id")
	if err != nil {
		return nil, 0, err
	}
	page, limit = normalizePage(page, limit)
	quotations, total, err := s.repo.List(ctx, rid, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch quotations: %w", err)
	}

	result := make([]QuotationResponse, 0, len(quotations))
	for _, q := range quotations {
		result = append(result, toQuotationResponse(q))
	}
	return result, total, nil
}

// Export renders the quotation as an xlsx workbook and returns its file name and bytes
func (s *quotationService) Export(ctx context.Context, id uuid.UUID) (string, []byte, error) {
	q, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return "", nil, notFoundOr(err, "quotation")
	}
	resp := toQuotationResponse(*q)

	header := [][2]string{
		{"Quotation no", q.QuotationNo},
		{"Date", q.CreatedAt.Format(dateLayout)},
	}
	if resp.ValidUntil != nil {
		header = append(header, [2]string{"Valid until", *resp.ValidUntil})
	}
	if q.CustomerID != nil {
		if c, err := s.customers.FindByID(ctx, *q.CustomerID); err == nil {
			header = append(header, [2]string{"Customer", c.Name})
		}
	}
	if q.Note != "" {
		header = append(header, [2]string{"Note", q.Note})
	}

	data, err := exportSheet(sheetDocument{
		Title:    "Quotation " + q.QuotationNo,
		Header:   header,
		Lines:    resp.Lines,
		Totals:   documentTotals{Subtotal: q.Subtotal, TaxPercent: q.TaxPercent, TaxAmount: q.TaxAmount, Total: q.TotalAmount},
		Currency: q.Currency,
	})
	if err != nil {
		return "", nil, err
	}
	return q.QuotationNo + ".xlsx", data, nil
}

// --- Helpers ---

func toQuotationResponse(q model.Quotation) QuotationResponse {
	resp := QuotationResponse{
		ID:          q.ID.String(),
		QuotationNo: q.QuotationNo,
		Lines:       make([]DocumentLineResponse, 0, len(q.Lines)),
		Subtotal:    q.Subtotal.StringFixed(2),
		TaxPercent:  q.TaxPercent.StringFixed(2),
		TaxAmount:   q.TaxAmount.StringFixed(2),
		TotalAmount: q.TotalAmount.StringFixed(2),
		Currency:    q.Currency,
		Note:        q.Note,
		CreatedAt:   q.CreatedAt.Format(time.RFC3339),
	}
	if q.RequestID != nil {
		s := q.RequestID.String()
		resp.RequestID = &s
	}
	if q.CustomerID != nil {
		s := q.CustomerID.String()
		resp.CustomerID = &s
	}
	if q.ValidUntil != nil {
		s := q.ValidUntil.Format(dateLayout)
		resp.ValidUntil = &s
	}
	for _, l := range q.Lines {
		resp.Lines = append(resp.Lines, lineResponse(l.ProductID, l.Description, l.Quantity, l.UnitPrice, l.LineTotal))
	}
	return resp
}
