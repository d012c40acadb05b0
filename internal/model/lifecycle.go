package model

import (
	"time"

	"github.com/google/uuid"
)

// EntityKind names a record variant that carries a tracked status
type EntityKind string

const (
	KindWorkOrder        EntityKind = "work_order"
	KindTicket           EntityKind = "ticket"
	KindTask             EntityKind = "task"
	KindQuotationRequest EntityKind = "quotation_request"
	KindCustomerInquiry  EntityKind = "customer_inquiry"
)

// Urgency scale shared by work orders, tasks, quotation requests and inquiries
const (
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
	UrgencyUrgent = "urgent"
)

// Ticket priority scale
const (
	PriorityLow      = "low"
	PriorityNormal   = "normal"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Lifecycle is embedded in every tracked record. Status only changes through the lifecycle package.
type Lifecycle struct {
	Status         string     `gorm:"type:varchar(30);not null;index" json:"status"`
	Priority       string     `gorm:"type:varchar(20);not null" json:"priority"`
	AssignedUserID *uuid.UUID `gorm:"type:uuid;index" json:"assigned_user_id"`
	CreatedByID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"created_by_id"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	CompletedAt    *time.Time `json:"completed_at"`
}

// Trackable is implemented by every record whose status is governed by a transition graph
type Trackable interface {
	EntityKind() EntityKind
	EntityID() uuid.UUID
	LifecycleRecord() *Lifecycle
	DisplayName() string
}

// StatusHistoryEntry is an immutable row appended on every status mutation.
// FromStatus is nil for the entry written when the record is created.
type StatusHistoryEntry struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	EntityKind  EntityKind `gorm:"type:varchar(30);not null;index:idx_history_entity" json:"entity_kind"`
	EntityID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_history_entity" json:"entity_id"`
	FromStatus  *string    `gorm:"type:varchar(30)" json:"from_status"`
	ToStatus    string     `gorm:"type:varchar(30);not null" json:"to_status"`
	ChangedByID uuid.UUID  `gorm:"type:uuid;not null" json:"changed_by_id"`
	ChangedBy   *User      `gorm:"foreignKey:ChangedByID" json:"changed_by,omitempty"`
	ChangedAt   time.Time  `gorm:"not null;index" json:"changed_at"`
	Notes       string     `gorm:"type:text" json:"notes"`
}

func (StatusHistoryEntry) TableName() string {
	return "status_history"
}

// NewRecord returns an empty record of kind, or false for an unknown kind
func NewRecord(kind EntityKind) (Trackable, bool) {
	switch kind {
	case KindWorkOrder:
		return &WorkOrder{}, true
	case KindTicket:
		return &Ticket{}, true
	case KindTask:
		return &Task{}, true
	case KindQuotationRequest:
		return &QuotationRequest{}, true
	case KindCustomerInquiry:
		return &CustomerInquiry{}, true
	}
	return nil, false
}
