package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Quotation request statuses
const (
	QuoteRequestPending   = "pending"
	QuoteRequestReviewing = "reviewing"
	QuoteRequestQuoted    = "quoted"
	QuoteRequestAccepted  = "accepted"
	QuoteRequestRejected  = "rejected"
	QuoteRequestCancelled = "cancelled"
)

// QuotationRequest is a customer asking for a price on goods or work
type QuotationRequest struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestNo    string     `gorm:"type:varchar(30);uniqueIndex;not null" json:"request_no"`
	CustomerID   *uuid.UUID `gorm:"type:uuid;index" json:"customer_id"`
	ContactName  string     `gorm:"type:varchar(255)" json:"contact_name"`
	ContactEmail string     `gorm:"type:varchar(255)" json:"contact_email"`
	ContactPhone string     `gorm:"type:varchar(50)" json:"contact_phone"`
	Details      string     `gorm:"type:text;not null" json:"details"`
	ProductURL   string     `gorm:"type:text" json:"product_url"`
	Lifecycle    `gorm:"embedded"`
}

func (q *QuotationRequest) EntityKind() EntityKind      { return KindQuotationRequest }
func (q *QuotationRequest) EntityID() uuid.UUID         { return q.ID }
func (q *QuotationRequest) LifecycleRecord() *Lifecycle { return &q.Lifecycle }
func (q *QuotationRequest) DisplayName() string         { return q.RequestNo }

// Quotation is the priced answer to a quotation request
type Quotation struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	QuotationNo  string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"quotation_no"`
	RequestID    *uuid.UUID      `gorm:"type:uuid;index" json:"request_id"`
	CustomerID   *uuid.UUID      `gorm:"type:uuid;index" json:"customer_id"`
	Lines        []QuotationLine `gorm:"foreignKey:QuotationID;constraint:OnDelete:CASCADE" json:"lines"`
	Subtotal     decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"subtotal"`
	TaxPercent   decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"tax_percent"`
	TaxAmount    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"tax_amount"`
	TotalAmount  decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"total_amount"`
	Currency     string          `gorm:"type:varchar(10);not null" json:"currency"`
	ValidUntil   *time.Time      `gorm:"type:date" json:"valid_until"`
	Note         string          `gorm:"type:text" json:"note"`
	CreatedByID  uuid.UUID       `gorm:"type:uuid;not null" json:"created_by_id"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// QuotationLine is one priced item on a quotation
type QuotationLine struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	QuotationID uuid.UUID       `gorm:"type:uuid;not null;index" json:"quotation_id"`
	ProductID   *uuid.UUID      `gorm:"type:uuid" json:"product_id"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"unit_price"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"line_total"`
}
