package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"bizdesk/internal/lifecycle"
	"bizdesk/internal/metrics"
	"bizdesk/internal/model"
	"bizdesk/internal/notify"
	"bizdesk/internal/repository"
)

// --- DTOs ---

type TransitionRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

// AssignRequest sets the assignee. An empty UserID clears it.
type AssignRequest struct {
	UserID string `json:"user_id"`
}

type HistoryEntryResponse struct {
	ID            string  `json:"id"`
	FromStatus    *string `json:"from_status"`
	ToStatus      string  `json:"to_status"`
	ChangedByID   string  `json:"changed_by_id"`
	ChangedByName string  `json:"changed_by_name"`
	ChangedAt     string  `json:"changed_at"`
	Notes         string  `json:"notes"`
}

// TrackerHooks run inside the transaction of the matching Tracker operation.
// A hook error rolls the whole operation back.
type TrackerHooks struct {
	Opened       func(ctx context.Context, rec model.Trackable, actor lifecycle.Actor) error
	Updated      func(ctx context.Context, rec model.Trackable, actor lifecycle.Actor, changes map[string]interface{}) error
	Transitioned func(ctx context.Context, rec model.Trackable, entry model.StatusHistoryEntry, actor lifecycle.Actor) error
	Assigned     func(ctx context.Context, rec model.Trackable, actor lifecycle.Actor) error
}

// document number prefixes; tasks are not numbered
var recordPrefixes = map[model.EntityKind]string{
	model.KindWorkOrder:        "WO",
	model.KindTicket:           "TKT",
	model.KindQuotationRequest: "QR",
	model.KindCustomerInquiry:  "INQ",
}

// --- Interface ---

// Tracker persists lifecycle changes of any tracked record kind. Every status
// mutation and its history entry are written in one transaction; events are
// published only after that transaction commits.
type Tracker interface {
	Create(ctx context.Context, rec model.Trackable, actor lifecycle.Actor, setNumber func(string)) error
	Get(ctx context.Context, kind model.EntityKind, id uuid.UUID) (model.Trackable, error)
	List(ctx context.Context, dest any, filter repository.RecordFilter, page, limit int) (int64, error)
	Update(ctx context.Context, rec model.Trackable, actor lifecycle.Actor, changes map[string]interface{}) error
	Transition(ctx context.Context, kind model.EntityKind, id uuid.UUID, req TransitionRequest, actor lifecycle.Actor) (model.Trackable, error)
	Assign(ctx context.Context, kind model.EntityKind, id uuid.UUID, req AssignRequest, actor lifecycle.Actor) (model.Trackable, error)
	History(ctx context.Context, kind model.EntityKind, id uuid.UUID) ([]HistoryEntryResponse, error)
	SetHooks(kind model.EntityKind, hooks TrackerHooks)
}

type tracker struct {
	records   repository.RecordRepository
	users     repository.UserRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	events    notify.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time

	mu    sync.RWMutex
	hooks map[model.EntityKind]TrackerHooks
}

func NewTracker(
	records repository.RecordRepository,
	users repository.UserRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	events notify.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &tracker{
		records:   records,
		users:     users,
		auditRepo: auditRepo,
		txManager: txManager,
		events:    events,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
		hooks:     make(map[model.EntityKind]TrackerHooks),
	}
}

// --- Implementation ---

func (t *tracker) SetHooks(kind model.EntityKind, hooks TrackerHooks) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hooks[kind] = hooks
}

func (t *tracker) hooksFor(kind model.EntityKind) TrackerHooks {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.hooks[kind]
}

func (t *tracker) Create(ctx context.Context, rec model.Trackable, actor lifecycle.Actor, setNumber func(string)) error {
	kind := rec.EntityKind()
	now := t.now()
	hooks := t.hooksFor(kind)

	entry, err := lifecycle.Open(rec, actor, now)
	if err != nil {
		return err
	}
	if rec.LifecycleRecord().AssignedUserID != nil && !lifecycle.Allowed(actor.Role, lifecycle.ActionAssign, kind) {
		return fmt.Errorf("%w: role %q may not assign a %s", lifecycle.ErrPermissionDenied, actor.Role, kind)
	}

	err = t.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if prefix, ok := recordPrefixes[kind]; ok && setNumber != nil {
			no, err := nextDocumentNo(txCtx, t.txManager, prefix, now, func(c context.Context, p string) (int64, error) {
				return t.records.CountByPrefix(c, kind, p)
			})
			if err != nil {
				return err
			}
			setNumber(no)
		}

		if err := t.records.Create(txCtx, rec); err != nil {
			return fmt.Errorf("failed to create %s: %w", kind, err)
		}
		entry.EntityID = rec.EntityID()
		if err := t.records.AppendHistory(txCtx, &entry); err != nil {
			return fmt.Errorf("failed to write status history: %w", err)
		}

		audit := newAuditLog(actor.ID, model.ActionCreateRecord, rec.EntityID().String(), rec.DisplayName(), map[string]interface{}{
			"kind":     kind,
			"status":   entry.ToStatus,
			"priority": rec.LifecycleRecord().Priority,
		})
		if err := t.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}

		if hooks.Opened != nil {
			return hooks.Opened(txCtx, rec, actor)
		}
		return nil
	})
	if err != nil {
		return err
	}

	t.metrics.ObserveTransition(string(kind), entry.ToStatus)
	t.publish(ctx, notify.Event{
		Type:       notify.EventCreated,
		Kind:       kind,
		EntityID:   rec.EntityID(),
		Name:       rec.DisplayName(),
		To:         entry.ToStatus,
		ActorID:    actor.ID,
		ActorEmail: actor.Email,
		AssigneeID: rec.LifecycleRecord().AssignedUserID,
		At:         now,
	})
	return nil
}

func (t *tracker) Get(ctx context.Context, kind model.EntityKind, id uuid.UUID) (model.Trackable, error) {
	rec, ok := model.NewRecord(kind)
	if !ok {
		return nil, fmt.Errorf("%w: unknown record kind %q", ErrValidation, kind)
	}
	if err := t.records.FindByID(ctx, rec, id); err != nil {
		return nil, notFoundOr(err, string(kind))
	}
	return rec, nil
}

func (t *tracker) List(ctx context.Context, dest any, filter repository.RecordFilter, page, limit int) (int64, error) {
	if filter.Status != "" {
		g, ok := lifecycle.GraphFor(filter.Kind)
		if ok && !g.HasStatus(filter.Status) {
			return 0, fmt.Errorf("%w: unknown %s status %q", ErrValidation, filter.Kind, filter.Status)
		}
	}
	page, limit = normalizePage(page, limit)
	total, err := t.records.List(ctx, dest, filter, page, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list %s: %w", filter.Kind, err)
	}
	return total, nil
}

// Update saves detail fields of a loaded record. Status is never changed here.
func (t *tracker) Update(ctx context.Context, rec model.Trackable, actor lifecycle.Actor, changes map[string]interface{}) error {
	kind := rec.EntityKind()
	lc := rec.LifecycleRecord()
	if g, ok := lifecycle.GraphFor(kind); ok && !g.ValidPriority(lc.Priority) {
		return fmt.Errorf("%w: priority %q is not valid for %s", ErrValidation, lc.Priority, kind)
	}
	lc.UpdatedAt = t.now()
	hooks := t.hooksFor(kind)

	return t.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := t.records.Save(txCtx, rec); err != nil {
			return fmt.Errorf("failed to update %s: %w", kind, err)
		}
		audit := newAuditLog(actor.ID, model.ActionUpdateRecord, rec.EntityID().String(), rec.DisplayName(), map[string]interface{}{
			"kind":    kind,
			"changes": changes,
		})
		if err := t.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		if hooks.Updated != nil {
			return hooks.Updated(txCtx, rec, actor, changes)
		}
		return nil
	})
}

func (t *tracker) Transition(ctx context.Context, kind model.EntityKind, id uuid.UUID, req TransitionRequest, actor lifecycle.Actor) (model.Trackable, error) {
	var (
		rec   model.Trackable
		entry model.StatusHistoryEntry
		now   = t.now()
		hooks = t.hooksFor(kind)
	)

	err := t.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		rec, err = t.Get(txCtx, kind, id)
		if err != nil {
			return err
		}

		entry, err = lifecycle.Transition(rec, req.Status, actor, req.Notes, now)
		if err != nil {
			return err
		}

		if err := t.records.Save(txCtx, rec); err != nil {
			return fmt.Errorf("failed to update %s: %w", kind, err)
		}
		if err := t.records.AppendHistory(txCtx, &entry); err != nil {
			return fmt.Errorf("failed to write status history: %w", err)
		}

		audit := newAuditLog(actor.ID, model.ActionChangeStatus, id.String(), rec.DisplayName(), map[string]interface{}{
			"kind":  kind,
			"from":  *entry.FromStatus,
			"to":    entry.ToStatus,
			"notes": req.Notes,
		})
		if err := t.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}

		if hooks.Transitioned != nil {
			return hooks.Transitioned(txCtx, rec, entry, actor)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	t.metrics.ObserveTransition(string(kind), entry.ToStatus)
	lc := rec.LifecycleRecord()
	recipient := lc.AssignedUserID
	if recipient == nil {
		recipient = &lc.CreatedByID
	}
	t.publish(ctx, notify.Event{
		Type:       notify.EventStatusChanged,
		Kind:       kind,
		EntityID:   id,
		Name:       rec.DisplayName(),
		From:       *entry.FromStatus,
		To:         entry.ToStatus,
		ActorID:    actor.ID,
		ActorEmail: actor.Email,
		AssigneeID: lc.AssignedUserID,
		Recipient:  t.emailOf(ctx, recipient),
		Notes:      req.Notes,
		At:         now,
	})
	return rec, nil
}

func (t *tracker) Assign(ctx context.Context, kind model.EntityKind, id uuid.UUID, req AssignRequest, actor lifecycle.Actor) (model.Trackable, error) {
	assignee, err := parseOptionalID(req.UserID, "user_id")
	if err != nil {
		return nil, err
	}

	var (
		rec   model.Trackable
		now   = t.now()
		hooks = t.hooksFor(kind)
	)
	err = t.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		rec, err = t.Get(txCtx, kind, id)
		if err != nil {
			return err
		}
		if assignee != nil {
			if _, err := t.users.GetByID(txCtx, *assignee); err != nil {
				return notFoundOr(err, "assignee")
			}
		}

		if err := lifecycle.Assign(rec, assignee, actor, now); err != nil {
			return err
		}
		if err := t.records.Save(txCtx, rec); err != nil {
			return fmt.Errorf("failed to update %s: %w", kind, err)
		}

		assigned := ""
		if assignee != nil {
			assigned = assignee.String()
		}
		audit := newAuditLog(actor.ID, model.ActionAssignRecord, id.String(), rec.DisplayName(), map[string]interface{}{
			"kind":        kind,
			"assigned_to": assigned,
		})
		if err := t.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}

		if hooks.Assigned != nil {
			return hooks.Assigned(txCtx, rec, actor)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if assignee != nil {
		t.publish(ctx, notify.Event{
			Type:       notify.EventAssigned,
			Kind:       kind,
			EntityID:   id,
			Name:       rec.DisplayName(),
			To:         rec.LifecycleRecord().Status,
			ActorID:    actor.ID,
			ActorEmail: actor.Email,
			AssigneeID: assignee,
			Recipient:  t.emailOf(ctx, assignee),
			At:         now,
		})
	}
	return rec, nil
}

func (t *tracker) History(ctx context.Context, kind model.EntityKind, id uuid.UUID) ([]HistoryEntryResponse, error) {
	if _, err := t.Get(ctx, kind, id); err != nil {
		return nil, err
	}
	entries, err := t.records.History(ctx, kind, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch status history: %w", err)
	}

	res := make([]HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		res = append(res, toHistoryResponse(e))
	}
	return res, nil
}

// --- Helpers ---

// publish never fails the caller; a full queue is logged by the queue itself
func (t *tracker) publish(_ context.Context, e notify.Event) {
	if t.events == nil {
		return
	}
	t.events.Publish(e)
}

func (t *tracker) emailOf(ctx context.Context, id *uuid.UUID) string {
	if id == nil || t.users == nil {
		return ""
	}
	u, err := t.users.GetByID(ctx, *id)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			t.logger.Debug("No recipient for notification", "user_id", id.String(), "error", err)
		}
		return ""
	}
	return u.Email
}

func toHistoryResponse(e model.StatusHistoryEntry) HistoryEntryResponse {
	resp := HistoryEntryResponse{
		ID:          e.ID.String(),
		FromStatus:  e.FromStatus,
		ToStatus:    e.ToStatus,
		ChangedByID: e.ChangedByID.String(),
		ChangedAt:   e.ChangedAt.Format(time.RFC3339),
		Notes:       e.Notes,
	}
	if e.ChangedBy != nil {
		resp.ChangedByName = e.ChangedBy.Username
	}
	return resp
}
