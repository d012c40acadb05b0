package service

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"bizdesk/internal/lifecycle"
	"bizdesk/internal/model"
)

// --- DTOs ---

type CreateQuotationRequestRequest struct {
	CustomerID     string `json:"customer_id"`
	ContactName    string `json:"contact_name"`
	ContactEmail   string `json:"contact_email" binding:"omitempty,email"`
	ContactPhone   string `json:"contact_phone"`
	Details        string `json:"details" binding:"required"`
	ProductURL     string `json:"product_url"`
	Priority       string `json:"priority"`
	AssignedUserID string `json:"assigned_user_id"`
}

type UpdateQuotationRequestRequest struct {
	ContactName  *string `json:"contact_name"`
	ContactEmail *string `json:"contact_email"`
	ContactPhone *string `json:"contact_phone"`
	Details      *string `json:"details"`
	ProductURL   *string `json:"product_url"`
	Priority     *string `json:"priority"`
}

// --- Interface ---

type QuotationRequestService interface {
	Create(ctx context.Context, req CreateQuotationRequestRequest, actor lifecycle.Actor) (*model.QuotationRequest, error)
	Get(ctx context.Context, id uuid.UUID) (*model.QuotationRequest, error)
	List(ctx context.Context, q RecordQuery) (RecordPage[model.QuotationRequest], error)
	Update(ctx context.Context, id uuid.UUID, req UpdateQuotationRequestRequest, actor lifecycle.Actor) (*model.QuotationRequest, error)
}

type quotationRequestService struct {
	tracker Tracker
}

func NewQuotationRequestService(tracker Tracker) QuotationRequestService {
	return &quotationRequestService{tracker: tracker}
}

// --- Implementation ---

func (s *quotationRequestService) Create(ctx context.Context, req CreateQuotationRequestRequest, actor lifecycle.Actor) (*model.QuotationRequest, error) {
	customerID, err := parseOptionalID(req.CustomerID, "customer_id")
	if err != nil {
		return nil, err
	}
	assignee, err := parseOptionalID(req.AssignedUserID, "assigned_user_id")
	if err != nil {
		return nil, err
	}
	if err := validateProductURL(req.ProductURL); err != nil {
		return nil, err
	}

	qr := &model.QuotationRequest{
		CustomerID:   customerID,
		ContactName:  req.ContactName,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		Details:      req.Details,
		ProductURL:   req.ProductURL,
	}
	qr.Priority = req.Priority
	qr.AssignedUserID = assignee

	if err := s.tracker.Create(ctx, qr, actor, func(no string) { qr.RequestNo = no }); err != nil {
		return nil, err
	}
	return qr, nil
}

func (s *quotationRequestService) Get(ctx context.Context, id uuid.UUID) (*model.QuotationRequest, error) {
	rec, err := s.tracker.Get(ctx, model.KindQuotationRequest, id)
	if err != nil {
		return nil, err
	}
	return rec.(*model.QuotationRequest), nil
}

func (s *quotationRequestService) List(ctx context.Context, q RecordQuery) (RecordPage[model.QuotationRequest], error) {
	filter, err := q.filter(model.KindQuotationRequest)
	if err != nil {
		return RecordPage[model.QuotationRequest]{}, err
	}
	page, limit := normalizePage(q.Page, q.Limit)
	items := []model.QuotationRequest{}
	total, err := s.tracker.List(ctx, &items, filter, page, limit)
	if err != nil {
		return RecordPage[model.QuotationRequest]{}, err
	}
	return RecordPage[model.QuotationRequest]{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (s *quotationRequestService) Update(ctx context.Context, id uuid.UUID, req UpdateQuotationRequestRequest, actor lifecycle.Actor) (*model.QuotationRequest, error) {
	qr, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]interface{}{}
	setString(&qr.ContactName, req.ContactName, "contact_name", changes)
	setString(&qr.ContactEmail, req.ContactEmail, "contact_email", changes)
	setString(&qr.ContactPhone, req.ContactPhone, "contact_phone", changes)
	setString(&qr.Details, req.Details, "details", changes)
	setString(&qr.ProductURL, req.ProductURL, "product_url", changes)
	setString(&qr.Priority, req.Priority, "priority", changes)
	if qr.Details == "" {
		return nil, fmt.Errorf("%w: details is required", ErrValidation)
	}
	if err := validateProductURL(qr.ProductURL); err != nil {
		return nil, err
	}

	if err := s.tracker.Update(ctx, qr, actor, changes); err != nil {
		return nil, err
	}
	return qr, nil
}

func validateProductURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: product_url must be an http(s) URL", ErrValidation)
	}
	return nil
}
