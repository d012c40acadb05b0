package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Task statuses
const (
	TaskTodo       = "todo"
	TaskInProgress = "in_progress"
	TaskBlocked    = "blocked"
	TaskReview     = "review"
	TaskDone       = "done"
	TaskCancelled  = "cancelled"
)

// Task activity actions
const (
	TaskActivityCreated   = "created"
	TaskActivityUpdated   = "updated"
	TaskActivityAssigned  = "assigned"
	TaskActivityCompleted = "completed"
	TaskActivityCommented = "commented"
)

// Task is an internal to-do item, optionally tied to another record
type Task struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Title       string     `gorm:"type:varchar(255);not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	DueDate     *time.Time `gorm:"type:date" json:"due_date"`
	RelatedKind string     `gorm:"type:varchar(30)" json:"related_kind"`
	RelatedID   *uuid.UUID `gorm:"type:uuid;index" json:"related_id"`
	Lifecycle   `gorm:"embedded"`
}

func (t *Task) EntityKind() EntityKind      { return KindTask }
func (t *Task) EntityID() uuid.UUID         { return t.ID }
func (t *Task) LifecycleRecord() *Lifecycle { return &t.Lifecycle }
func (t *Task) DisplayName() string         { return t.Title }

// JSONMap is a free-form JSON object stored in a jsonb column
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *JSONMap) Scan(value any) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*m = JSONMap{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("unsupported jsonb value")
	}
	return json.Unmarshal(raw, m)
}

// TaskActivityLog records what happened to a task beyond status changes
type TaskActivityLog struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TaskID      uuid.UUID `gorm:"type:uuid;not null;index" json:"task_id"`
	Action      string    `gorm:"type:varchar(20);not null" json:"action"`
	Description string    `gorm:"type:text" json:"description"`
	ActorID     uuid.UUID `gorm:"type:uuid;not null" json:"actor_id"`
	Actor       *User     `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	Metadata    JSONMap   `gorm:"type:jsonb" json:"metadata"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}
