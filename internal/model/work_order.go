package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Work order stages
const (
	WorkOrderReceived       = "received"
	WorkOrderInProgress     = "in_progress"
	WorkOrderTesting        = "testing"
	WorkOrderReadyForPickup = "ready_for_pickup"
	WorkOrderCompleted      = "completed"
	WorkOrderCancelled      = "cancelled"
)

// WorkOrder is a repair or service job booked in for a customer's device
type WorkOrder struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderNo        string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"order_no"`
	CustomerID     *uuid.UUID      `gorm:"type:uuid;index" json:"customer_id"`
	Customer       *Customer       `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	DeviceType     string          `gorm:"type:varchar(100)" json:"device_type"`
	DeviceModel    string          `gorm:"type:varchar(255)" json:"device_model"`
	SerialNumber   string          `gorm:"type:varchar(100)" json:"serial_number"`
	ProblemSummary string          `gorm:"type:text;not null" json:"problem_summary"`
	Diagnosis      string          `gorm:"type:text" json:"diagnosis"`
	EstimatedCost  decimal.Decimal `gorm:"type:decimal(18,2);default:0" json:"estimated_cost"`
	Lifecycle      `gorm:"embedded"`
}

func (w *WorkOrder) EntityKind() EntityKind      { return KindWorkOrder }
func (w *WorkOrder) EntityID() uuid.UUID         { return w.ID }
func (w *WorkOrder) LifecycleRecord() *Lifecycle { return &w.Lifecycle }
func (w *WorkOrder) DisplayName() string         { return w.OrderNo }
