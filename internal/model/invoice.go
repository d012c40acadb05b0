package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice statuses
const (
	InvoicePending = "pending"
	InvoicePaid    = "paid"
	InvoiceVoid    = "void"
)

// Invoice is a bill issued to a customer. TotalAmount = Subtotal + TaxAmount.
type Invoice struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceNo   string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"invoice_no"`
	CustomerID  *uuid.UUID      `gorm:"type:uuid;index" json:"customer_id"`
	Customer    *Customer       `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	WorkOrderID *uuid.UUID      `gorm:"type:uuid;index" json:"work_order_id"`
	QuotationID *uuid.UUID      `gorm:"type:uuid;index" json:"quotation_id"`
	Lines       []InvoiceLine   `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"lines"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"subtotal"`
	TaxRuleID   *uuid.UUID      `gorm:"type:uuid" json:"tax_rule_id"`
	TaxPercent  decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"tax_percent"`
	TaxAmount   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"tax_amount"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"total_amount"`
	Currency    string          `gorm:"type:varchar(10);not null" json:"currency"`
	Status      string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	DueDate     *time.Time      `gorm:"type:date" json:"due_date"`
	PaidAt      *time.Time      `json:"paid_at"`
	Note        string          `gorm:"type:text" json:"note"`
	CreatedByID uuid.UUID       `gorm:"type:uuid;not null" json:"created_by_id"`
	SettledByID *uuid.UUID      `gorm:"type:uuid" json:"settled_by_id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// InvoiceLine is one billed item
type InvoiceLine struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	ProductID   *uuid.UUID      `gorm:"type:uuid" json:"product_id"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"unit_price"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"line_total"`
}
