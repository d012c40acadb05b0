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

type CreateTaskRequest struct {
	Title          string `json:"title" binding:"required"`
	Description    string `json:"description"`
	DueDate        string `json:"due_date"` // YYYY-MM-DD
	RelatedKind    string `json:"related_kind"`
	RelatedID      string `json:"related_id"`
	Priority       string `json:"priority"`
	AssignedUserID string `json:"assigned_user_id"`
}

type UpdateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"due_date"`
	Priority    *string `json:"priority"`
}

type TaskCommentRequest struct {
	Comment string `json:"comment" binding:"required"`
}

type TaskActivityResponse struct {
	ID          string                 `json:"id"`
	Action      string                 `json:"action"`
	Description string                 `json:"description"`
	ActorID     string                 `json:"actor_id"`
	ActorName   string                 `json:"actor_name"`
	Metadata    map[string]interface{} `json:"metadata"`
	CreatedAt   string                 `json:"created_at"`
}

// --- Interface ---

type TaskService interface {
	Create(ctx context.Context, req CreateTaskRequest, actor lifecycle.Actor) (*model.Task, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Task, error)
	List(ctx context.Context, q RecordQuery) (RecordPage[model.Task], error)
	Update(ctx context.Context, id uuid.UUID, req UpdateTaskRequest, actor lifecycle.Actor) (*model.Task, error)
	Comment(ctx context.Context, id uuid.UUID, req TaskCommentRequest, actor lifecycle.Actor) (*TaskActivityResponse, error)
	Activity(ctx context.Context, id uuid.UUID) ([]TaskActivityResponse, error)
}

type taskService struct {
	tracker  Tracker
	activity repository.TaskActivityRepository
	now      func() time.Time
}

// NewTaskService also registers the tracker hooks that keep the task activity log
func NewTaskService(tracker Tracker, activity repository.TaskActivityRepository) TaskService {
	s := &taskService{tracker: tracker, activity: activity, now: time.Now}
	tracker.SetHooks(model.KindTask, TrackerHooks{
		Opened:       s.onOpened,
		Updated:      s.onUpdated,
		Transitioned: s.onTransitioned,
		Assigned:     s.onAssigned,
	})
	return s
}

// --- Implementation ---

func (s *taskService) Create(ctx context.Context, req CreateTaskRequest, actor lifecycle.Actor) (*model.Task, error) {
	due, err := parseOptionalDate(req.DueDate, "due_date")
	if err != nil {
		return nil, err
	}
	relatedID, err := parseOptionalID(req.RelatedID, "related_id")
	if err != nil {
		return nil, err
	}
	if req.RelatedKind != "" {
		if _, ok := model.NewRecord(model.EntityKind(req.RelatedKind)); !ok {
			return nil, fmt.Errorf("%w: unknown related_kind %q", ErrValidation, req.RelatedKind)
		}
		if relatedID == nil {
			return nil, fmt.Errorf("%w: related_id is required with related_kind", ErrValidation)
		}
	}
	assignee, err := parseOptionalID(req.AssignedUserID, "assigned_user_id")
	if err != nil {
		return nil, err
	}

	task := &model.Task{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		DueDate:     due,
		RelatedKind: req.RelatedKind,
		RelatedID:   relatedID,
	}
	task.Priority = req.Priority
	task.AssignedUserID = assignee

	if err := s.tracker.Create(ctx, task, actor, nil); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *taskService) Get(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	rec, err := s.tracker.Get(ctx, model.KindTask, id)
	if err != nil {
		return nil, err
	}
	return rec.(*model.Task), nil
}

func (s *taskService) List(ctx context.Context, q RecordQuery) (RecordPage[model.Task], error) {
	filter, err := q.filter(model.KindTask)
	if err != nil {
		return RecordPage[model.Task]{}, err
	}
	page, limit := normalizePage(q.Page, q.Limit)
	items := []model.Task{}
	total, err := s.tracker.List(ctx, &items, filter, page, limit)
	if err != nil {
		return RecordPage[model.Task]{}, err
	}
	return RecordPage[model.Task]{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (s *taskService) Update(ctx context.Context, id uuid.UUID, req UpdateTaskRequest, actor lifecycle.Actor) (*model.Task, error) {
	task, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]interface{}{}
	setString(&task.Title, req.Title, "title", changes)
	setString(&task.Description, req.Description, "description", changes)
	setString(&task.Priority, req.Priority, "priority", changes)
	if req.DueDate != nil {
		due, err := parseOptionalDate(*req.DueDate, "due_date")
		if err != nil {
			return nil, err
		}
		task.DueDate = due
		changes["due_date"] = *req.DueDate
	}
	if strings.TrimSpace(task.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}

	if err := s.tracker.Update(ctx, task, actor, changes); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *taskService) Comment(ctx context.Context, id uuid.UUID, req TaskCommentRequest, actor lifecycle.Actor) (*TaskActivityResponse, error) {
	comment := strings.TrimSpace(req.Comment)
	if comment == "" {
		return nil, fmt.Errorf("%w: comment is required", ErrValidation)
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	entry := &model.TaskActivityLog{
		TaskID:      id,
		Action:      model.TaskActivityCommented,
		Description: comment,
		ActorID:     actor.ID,
		Metadata:    model.JSONMap{},
		CreatedAt:   s.now(),
	}
	if err := s.activity.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to save comment: %w", err)
	}
	resp := toTaskActivityResponse(*entry)
	return &resp, nil
}

func (s *taskService) Activity(ctx context.Context, id uuid.UUID) ([]TaskActivityResponse, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	logs, err := s.activity.ListByTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch task activity: %w", err)
	}
	res := make([]TaskActivityResponse, 0, len(logs))
	for _, l := range logs {
		res = append(res, toTaskActivityResponse(l))
	}
	return res, nil
}

// --- Hooks ---

func (s *taskService) onOpened(ctx context.Context, rec model.Trackable, actor lifecycle.Actor) error {
	task := rec.(*model.Task)
	return s.log(ctx, task.ID, model.TaskActivityCreated, "Task created: "+task.Title, actor, model.JSONMap{
		"priority": task.Priority,
	})
}

func (s *taskService) onUpdated(ctx context.Context, rec model.Trackable, actor lifecycle.Actor, changes map[string]interface{}) error {
	if len(changes) == 0 {
		return nil
	}
	return s.log(ctx, rec.EntityID(), model.TaskActivityUpdated, "Task details updated", actor, model.JSONMap(changes))
}

func (s *taskService) onTransitioned(ctx context.Context, rec model.Trackable, entry model.StatusHistoryEntry, actor lifecycle.Actor) error {
	action := model.TaskActivityUpdated
	desc := fmt.Sprintf("Status changed from %s to %s", *entry.FromStatus, entry.ToStatus)
	if entry.ToStatus == model.TaskDone {
		action = model.TaskActivityCompleted
		desc = "Task completed"
	}
	return s.log(ctx, rec.EntityID(), action, desc, actor, model.JSONMap{
		"from":  *entry.FromStatus,
		"to":    entry.ToStatus,
		"notes": entry.Notes,
	})
}

func (s *taskService) onAssigned(ctx context.Context, rec model.Trackable, actor lifecycle.Actor) error {
	meta := model.JSONMap{"assigned_user_id": nil}
	desc := "Task unassigned"
	if id := rec.LifecycleRecord().AssignedUserID; id != nil {
		meta["assigned_user_id"] = id.String()
		desc = "Task assigned"
	}
	return s.log(ctx, rec.EntityID(), model.TaskActivityAssigned, desc, actor, meta)
}

// --- Helpers ---

func (s *taskService) log(ctx context.Context, taskID uuid.UUID, action, desc string, actor lifecycle.Actor, meta model.JSONMap) error {
	entry := &model.TaskActivityLog{
		TaskID:      taskID,
		Action:      action,
		Description: desc,
		ActorID:     actor.ID,
		Metadata:    meta,
		CreatedAt:   s.now(),
	}
	if err := s.activity.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to write task activity: %w", err)
	}
	return nil
}

func toTaskActivityResponse(l model.TaskActivityLog) TaskActivityResponse {
	resp := TaskActivityResponse{
		ID:          l.ID.String(),
		Action:      l.Action,
		Description: l.Description,
		ActorID:     l.ActorID.String(),
		Metadata:    l.Metadata,
		CreatedAt:   l.CreatedAt.Format(time.RFC3339),
	}
	if l.Actor != nil {
		resp.ActorName = l.Actor.Username
	}
	return resp
}
