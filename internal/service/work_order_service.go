package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bizdesk/internal/lifecycle"
	"bizdesk/internal/model"
)

// --- DTOs ---

type CreateWorkOrderRequest struct {
	CustomerID     string `json:"customer_id"`
	DeviceType     string `json:"device_type"`
	DeviceModel    string `json:"device_model"`
	SerialNumber   string `json:"serial_number"`
	ProblemSummary string `json:"problem_summary" binding:"required"`
	EstimatedCost  string `json:"estimated_cost"`
	Priority       string `json:"priority"`
	AssignedUserID string `json:"assigned_user_id"`
}

type UpdateWorkOrderRequest struct {
	DeviceType     *string `json:"device_type"`
	DeviceModel    *string `json:"device_model"`
	SerialNumber   *string `json:"serial_number"`
	ProblemSummary *string `json:"problem_summary"`
	Diagnosis      *string `json:"diagnosis"`
	EstimatedCost  *string `json:"estimated_cost"`
	Priority       *string `json:"priority"`
}

// --- Interface ---

type WorkOrderService interface {
	Create(ctx context.Context, req CreateWorkOrderRequest, actor lifecycle.Actor) (*model.WorkOrder, error)
	Get(ctx context.Context, id uuid.UUID) (*model.WorkOrder, error)
	List(ctx context.Context, q RecordQuery) (RecordPage[model.WorkOrder], error)
	Update(ctx context.Context, id uuid.UUID, req UpdateWorkOrderRequest, actor lifecycle.Actor) (*model.WorkOrder, error)
}

type workOrderService struct {
	tracker Tracker
}

func NewWorkOrderService(tracker Tracker) WorkOrderService {
	return &workOrderService{tracker: tracker}
}

// --- Implementation ---

func (s *workOrderService) Create(ctx context.Context, req CreateWorkOrderRequest, actor lifecycle.Actor) (*model.WorkOrder, error) {
	customerID, err := parseOptionalID(req.CustomerID, "customer_id")
	if err != nil {
		return nil, err
	}
	assignee, err := parseOptionalID(req.AssignedUserID, "assigned_user_id")
	if err != nil {
		return nil, err
	}
	cost, err := parseMoney(req.EstimatedCost, "estimated_cost")
	if err != nil {
		return nil, err
	}

	wo := &model.WorkOrder{
		CustomerID:     customerID,
		DeviceType:     req.DeviceType,
		DeviceModel:    req.DeviceModel,
		SerialNumber:   req.SerialNumber,
		ProblemSummary: req.ProblemSummary,
		EstimatedCost:  cost,
	}
	wo.Priority = req.Priority
	wo.AssignedUserID = assignee

	if err := s.tracker.Create(ctx, wo, actor, func(no string) { wo.OrderNo = no }); err != nil {
		return nil, err
	}
	return wo, nil
}

func (s *workOrderService) Get(ctx context.Context, id uuid.UUID) (*model.WorkOrder, error) {
	rec, err := s.tracker.Get(ctx, model.KindWorkOrder, id)
	if err != nil {
		return nil, err
	}
	return rec.(*model.WorkOrder), nil
}

func (s *workOrderService) List(ctx context.Context, q RecordQuery) (RecordPage[model.WorkOrder], error) {
	filter, err := q.filter(model.KindWorkOrder)
	if err != nil {
		return RecordPage[model.WorkOrder]{}, err
	}
	page, limit := normalizePage(q.Page, q.Limit)
	items := []model.WorkOrder{}
	total, err := s.tracker.List(ctx, &items, filter, page, limit)
	if err != nil {
		return RecordPage[model.WorkOrder]{}, err
	}
	return RecordPage[model.WorkOrder]{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (s *workOrderService) Update(ctx context.Context, id uuid.UUID, req UpdateWorkOrderRequest, actor lifecycle.Actor) (*model.WorkOrder, error) {
	wo, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]interface{}{}
	setString(&wo.DeviceType, req.DeviceType, "device_type", changes)
	setString(&wo.DeviceModel, req.DeviceModel, "device_model", changes)
	setString(&wo.SerialNumber, req.SerialNumber, "serial_number", changes)
	setString(&wo.ProblemSummary, req.ProblemSummary, "problem_summary", changes)
	setString(&wo.Diagnosis, req.Diagnosis, "diagnosis", changes)
	setString(&wo.Priority, req.Priority, "priority", changes)
	if req.EstimatedCost != nil {
		cost, err := parseMoney(*req.EstimatedCost, "estimated_cost")
		if err != nil {
			return nil, err
		}
		wo.EstimatedCost = cost
		changes["estimated_cost"] = cost.StringFixed(2)
	}
	if wo.ProblemSummary == "" {
		return nil, fmt.Errorf("%w: problem_summary is required", ErrValidation)
	}

	if err := s.tracker.Update(ctx, wo, actor, changes); err != nil {
		return nil, err
	}
	return wo, nil
}

// --- Helpers ---

// setString copies a provided field and records it in changes
func setString(dst *string, src *string, name string, changes map[string]interface{}) {
	if src == nil || *src == *dst {
		return
	}
	*dst = *src
	changes[name] = *src
}

// parseMoney parses a non-negative decimal; empty means zero
func parseMoney(s, field string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s must be a non-negative amount", ErrValidation, field)
	}
	return d, nil
}
