package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"bizdesk/internal/lifecycle"
	"bizdesk/internal/model"
)

// --- DTOs ---

type CreateTicketRequest struct {
	CustomerID     string `json:"customer_id"`
	Subject        string `json:"subject" binding:"required"`
	Description    string `json:"description"`
	Category       string `json:"category"`
	Priority       string `json:"priority"`
	AssignedUserID string `json:"assigned_user_id"`
}

type UpdateTicketRequest struct {
	Subject     *string `json:"subject"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Resolution  *string `json:"resolution"`
	Priority    *string `json:"priority"`
}

// --- Interface ---

type TicketService interface {
	Create(ctx context.Context, req CreateTicketRequest, actor lifecycle.Actor) (*model.Ticket, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Ticket, error)
	List(ctx context.Context, q RecordQuery) (RecordPage[model.Ticket], error)
	Update(ctx context.Context, id uuid.UUID, req UpdateTicketRequest, actor lifecycle.Actor) (*model.Ticket, error)
}

type ticketService struct {
	tracker Tracker
}

func NewTicketService(tracker Tracker) TicketService {
	return &ticketService{tracker: tracker}
}

// --- Implementation ---

func (s *ticketService) Create(ctx context.Context, req CreateTicketRequest, actor lifecycle.Actor) (*model.Ticket, error) {
	customerID, err := parseOptionalID(req.CustomerID, "customer_id")
	if err != nil {
		return nil, err
	}
	assignee, err := parseOptionalID(req.AssignedUserID, "assigned_user_id")
	if err != nil {
		return nil, err
	}

	ticket := &model.Ticket{
		CustomerID:  customerID,
		Subject:     req.Subject,
		Description: req.Description,
		Category:    req.Category,
	}
	ticket.Priority = req.Priority
	ticket.AssignedUserID = assignee

	if err := s.tracker.Create(ctx, ticket, actor, func(no string) { ticket.TicketNo = no }); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (s *ticketService) Get(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	rec, err := s.tracker.Get(ctx, model.KindTicket, id)
	if err != nil {
		return nil, err
	}
	return rec.(*model.Ticket), nil
}

func (s *ticketService) List(ctx context.Context, q RecordQuery) (RecordPage[model.Ticket], error) {
	filter, err := q.filter(model.KindTicket)
	if err != nil {
		return RecordPage[model.Ticket]{}, err
	}
	page, limit := normalizePage(q.Page, q.Limit)
	items := []model.Ticket{}
	total, err := s.tracker.List(ctx, &items, filter, page, limit)
	if err != nil {
		return RecordPage[model.Ticket]{}, err
	}
	return RecordPage[model.Ticket]{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (s *ticketService) Update(ctx context.Context, id uuid.UUID, req UpdateTicketRequest, actor lifecycle.Actor) (*model.Ticket, error) {
	ticket, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]interface{}{}
	setString(&ticket.Subject, req.Subject, "subject", changes)
	setString(&ticket.Description, req.Description, "description", changes)
	setString(&ticket.Category, req.Category, "category", changes)
	setString(&ticket.Resolution, req.Resolution, "resolution", changes)
	setString(&ticket.Priority, req.Priority, "priority", changes)
	if ticket.Subject == "" {
		return nil, fmt.Errorf("%w: subject is required", ErrValidation)
	}

	if err := s.tracker.Update(ctx, ticket, actor, changes); err != nil {
		return nil, err
	}
	return ticket, nil
}
