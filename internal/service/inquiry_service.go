package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"bizdesk/internal/lifecycle"
	"bizdesk/internal/model"
)

// --- DTOs ---

type CreateInquiryRequest struct {
	CustomerID     string `json:"customer_id"`
	Name           string `json:"name" binding:"required"`
	Email          string `json:"email" binding:"omitempty,email"`
	Phone          string `json:"phone"`
	Channel        string `json:"channel" binding:"omitempty,oneof=walk_in phone email web"`
	Subject        string `json:"subject" binding:"required"`
	Message        string `json:"message"`
	Priority       string `json:"priority"`
	AssignedUserID string `json:"assigned_user_id"`
}

type UpdateInquiryRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Subject  *string `json:"subject"`
	Message  *string `json:"message"`
	Priority *string `json:"priority"`
}

// --- Interface ---

type InquiryService interface {
	Create(ctx context.Context, req CreateInquiryRequest, actor lifecycle.Actor) (*model.CustomerInquiry, error)
	Get(ctx context.Context, id uuid.UUID) (*model.CustomerInquiry, error)
	List(ctx context.Context, q RecordQuery) (RecordPage[model.CustomerInquiry], error)
	Update(ctx context.Context, id uuid.UUID, req UpdateInquiryRequest, actor lifecycle.Actor) (*model.CustomerInquiry, error)
}

type inquiryService struct {
	tracker Tracker
}

func NewInquiryService(tracker Tracker) InquiryService {
	return &inquiryService{tracker: tracker}
}

// --- Implementation ---

func (s *inquiryService) Create(ctx context.Context, req CreateInquiryRequest, actor lifecycle.Actor) (*model.CustomerInquiry, error) {
	customerID, err := parseOptionalID(req.CustomerID, "customer_id")
	if err != nil {
		return nil, err
	}
	assignee, err := parseOptionalID(req.AssignedUserID, "assigned_user_id")
	if err != nil {
		return nil, err
	}

	inq := &model.CustomerInquiry{
		CustomerID: customerID,
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Channel:    req.Channel,
		Subject:    req.Subject,
		Message:    req.Message,
	}
	inq.Priority = req.Priority
	inq.AssignedUserID = assignee

	if err := s.tracker.Create(ctx, inq, actor, func(no string) { inq.InquiryNo = no }); err != nil {
		return nil, err
	}
	return inq, nil
}

func (s *inquiryService) Get(ctx context.Context, id uuid.UUID) (*model.CustomerInquiry, error) {
	rec, err := s.tracker.Get(ctx, model.KindCustomerInquiry, id)
	if err != nil {
		return nil, err
	}
	return rec.(*model.CustomerInquiry), nil
}

func (s *inquiryService) List(ctx context.Context, q RecordQuery) (RecordPage[model.CustomerInquiry], error) {
	filter, err := q.filter(model.KindCustomerInquiry)
	if err != nil {
		return RecordPage[model.CustomerInquiry]{}, err
	}
	page, limit := normalizePage(q.Page, q.Limit)
	items := []model.CustomerInquiry{}
	total, err := s.tracker.List(ctx, &items, filter, page, limit)
	if err != nil {
		return RecordPage[model.CustomerInquiry]{}, err
	}
	return RecordPage[model.CustomerInquiry]{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (s *inquiryService) Update(ctx context.Context, id uuid.UUID, req UpdateInquiryRequest, actor lifecycle.Actor) (*model.CustomerInquiry, error) {
	inq, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]interface{}{}
	setString(&inq.Name, req.Name, "name", changes)
	setString(&inq.Email, req.Email, "email", changes)
	setString(&inq.Phone, req.Phone, "phone", changes)
	setString(&inq.Subject, req.Subject, "subject", changes)
	setString(&inq.Message, req.Message, "message", changes)
	setString(&inq.Priority, req.Priority, "priority", changes)
	if inq.Name == "" || inq.Subject == "" {
		return nil, fmt.Errorf("%w: name and subject are required", ErrValidation)
	}

	if err := s.tracker.Update(ctx, inq, actor, changes); err != nil {
		return nil, err
	}
	return inq, nil
}
