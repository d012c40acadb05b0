package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"bizdesk/internal/lifecycle"
	"bizdesk/internal/model"
	"bizdesk/internal/repository"
)

// --- DTOs ---

type CreateCallLogRequest struct {
	CustomerID      string `json:"customer_id"`
	CallerName      string `json:"caller_name"`
	PhoneNumber     string `json:"phone_number" binding:"required"`
	Direction       string `json:"direction" binding:"required,oneof=inbound outbound"`
	Purpose         string `json:"purpose"`
	Notes           string `json:"notes"`
	DurationSeconds int    `json:"duration_seconds" binding:"gte=0"`
	CalledAt        string `json:"called_at"`    // RFC3339, defaults to now
	FollowUpAt      string `json:"follow_up_at"` // RFC3339
}

type UpdateCallLogRequest struct {
	Purpose         *string `json:"purpose"`
	Notes           *string `json:"notes"`
	DurationSeconds *int    `json:"duration_seconds" binding:"omitempty,gte=0"`
	FollowUpAt      *string `json:"follow_up_at"` // empty string clears
}

type CallLogQuery struct {
	CustomerID string
	Direction  string
	From       string // YYYY-MM-DD
	To         string // YYYY-MM-DD, inclusive
	Search     string
	Page       int
	Limit      int
}

// --- Interface ---

type CallLogService interface {
	Create(ctx context.Context, req CreateCallLogRequest, actor lifecycle.Actor) (*model.CallLog, error)
	Get(ctx context.Context, id uuid.UUID) (*model.CallLog, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateCallLogRequest, actor lifecycle.Actor) (*model.CallLog, error)
	Delete(ctx context.Context, id uuid.UUID, actor lifecycle.Actor) error
	List(ctx context.Context, q CallLogQuery) ([]model.CallLog, int64, error)
}

// --- Implementation ---

type callLogService struct {
	repo      repository.CallLogRepository
	customers repository.CustomerRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	now       func() time.Time
}

func NewCallLogService(repo repository.CallLogRepository, customers repository.CustomerRepository, auditRepo repository.AuditRepository, txManager repository.TransactionManager) CallLogService {
	return &callLogService{repo: repo, customers: customers, auditRepo: auditRepo, txManager: txManager, now: time.Now}
}

func (s *callLogService) Create(ctx context.Context, req CreateCallLogRequest, actor lifecycle.Actor) (*model.CallLog, error) {
	if req.Direction != model.CallInbound && req.Direction != model.CallOutbound {
		return nil, fmt.Errorf("%w: direction must be inbound or outbound", ErrValidation)
	}
	customerID, err := parseOptionalID(req.CustomerID, "customer_id")
	if err != nil {
		return nil, err
	}
	callerName := strings.TrimSpace(req.CallerName)
	if customerID != nil {
		customer, err := s.customers.FindByID(ctx, *customerID)
		if err != nil {
			return nil, notFoundOr(err, "customer")
		}
		if callerName == "" {
			callerName = customer.Name
		}
	}

	calledAt := s.now()
	if req.CalledAt != "" {
		t, err := time.Parse(time.RFC3339, req.CalledAt)
		if err != nil {
			return nil, fmt.Errorf("%w: called_at must be RFC3339", ErrValidation)
		}
		calledAt = t
	}
	followUp, err := parseOptionalTimestamp(req.FollowUpAt, "follow_up_at")
	if err != nil {
		return nil, err
	}

	call := &model.CallLog{
		CustomerID:      customerID,
		CallerName:      callerName,
		PhoneNumber:     strings.TrimSpace(req.PhoneNumber),
		Direction:       req.Direction,
		Purpose:         req.Purpose,
		Notes:           req.Notes,
		DurationSeconds: req.DurationSeconds,
		FollowUpAt:      followUp,
		LoggedByID:      actor.ID,
		CalledAt:        calledAt,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, call); err != nil {
			return fmt.Errorf("failed to create call log: %w", err)
		}
		return s.auditRepo.Log(txCtx, newAuditLog(actor.ID, model.ActionCreateCallLog, call.ID.String(), call.PhoneNumber, map[string]interface{}{
			"direction": call.Direction,
			"purpose":   call.Purpose,
		}))
	})
	if err != nil {
		return nil, err
	}
	return call, nil
}

func (s *callLogService) Get(ctx context.Context, id uuid.UUID) (*model.CallLog, error) {
	call, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "call log")
	}
	return call, nil
}

func (s *callLogService) Update(ctx context.Context, id uuid.UUID, req UpdateCallLogRequest, actor lifecycle.Actor) (*model.CallLog, error) {
	call, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "call log")
	}

	changes := map[string]interface{}{}
	setString(&call.Purpose, req.Purpose, "purpose", changes)
	setString(&call.Notes, req.Notes, "notes", changes)
	if req.DurationSeconds != nil && *req.DurationSeconds != call.DurationSeconds {
		call.DurationSeconds = *req.DurationSeconds
		changes["duration_seconds"] = *req.DurationSeconds
	}
	if req.FollowUpAt != nil {
		followUp, err := parseOptionalTimestamp(*req.FollowUpAt, "follow_up_at")
		if err != nil {
			return nil, err
		}
		call.FollowUpAt = followUp
		changes["follow_up_at"] = *req.FollowUpAt
	}
	if len(changes) == 0 {
		return call, nil
	}

	call.LoggedBy = nil
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Update(txCtx, call); err != nil {
			return fmt.Errorf("failed to update call log: %w", err)
		}
		return s.auditRepo.Log(txCtx, newAuditLog(actor.ID, model.ActionUpdateCallLog, id.String(), call.PhoneNumber, changes))
	})
	if err != nil {
		return nil, err
	}
	return call, nil
}

func (s *callLogService) Delete(ctx context.Context, id uuid.UUID, actor lifecycle.Actor) error {
	call, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "call log")
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Delete(txCtx, id); err != nil {
			return fmt.Errorf("failed to delete call log: %w", err)
		}
		return s.auditRepo.Log(txCtx, newAuditLog(actor.ID, model.ActionDeleteCallLog, id.String(), call.PhoneNumber, nil))
	})
}

func (s *callLogService) List(ctx context.Context, q CallLogQuery) ([]model.CallLog, int64, error) {
	customerID, err := parseOptionalID(q.CustomerID, "customer_id")
	if err != nil {
		return nil, 0, err
	}
	if q.Direction != "" && q.Direction != model.CallInbound && q.Direction != model.CallOutbound {
		return nil, 0, fmt.Errorf("%w: direction must be inbound or outbound", ErrValidation)
	}
	from, err := parseOptionalDate(q.From, "from")
	if err != nil {
		return nil, 0, err
	}
	to, err := parseOptionalDate(q.To, "to")
	if err != nil {
		return nil, 0, err
	}
	if to != nil {
		// inclusive of the whole day
		end := to.AddDate(0, 0, 1)
		to = &end
	}
	page, limit := normalizePage(q.Page, q.Limit)

	calls, total, err := s.repo.List(ctx, repository.CallLogFilter{
		CustomerID: customerID,
		Direction:  q.Direction,
		From:       from,
		To:         to,
		Search:     strings.TrimSpace(q.Search),
	}, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch call logs: %w", err)
	}
	return calls, total, nil
}

func parseOptionalTimestamp(s, field string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be RFC3339", ErrValidation, field)
	}
	return &t, nil
}
