package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product sources, one per pricing pipeline
const (
	SourceDistributor = "distributor"
	SourceMarketplace = "marketplace"
	SourceManual      = "manual"
)

// Category holds the markup percentage applied to distributor products in it
type Category struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name          string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	MarkupPercent decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"markup_percent"`
	Description   string          `gorm:"type:text" json:"description"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Product is a sellable item together with the inputs its sale price was computed from
type Product struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SKU            string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"sku"`
	Name           string          `gorm:"type:varchar(255);not null" json:"name"`
	Source         string          `gorm:"type:varchar(20);not null;index" json:"source"`
	SourceURL      string          `gorm:"type:text" json:"source_url"`
	CategoryID     *uuid.UUID      `gorm:"type:uuid;index" json:"category_id"`
	Category       *Category       `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	CostAmount     decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"cost_amount"`
	CostCurrency   string          `gorm:"type:varchar(10);not null" json:"cost_currency"`
	ExchangeRate   decimal.Decimal `gorm:"type:decimal(18,6);not null" json:"exchange_rate"`
	TaxPercent     decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"tax_percent"`
	MarkupPercent  decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"markup_percent"`
	SalePrice      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"sale_price"`
	SaleCurrency   string          `gorm:"type:varchar(10);not null" json:"sale_currency"`
	StockOnHand    int             `gorm:"default:0;not null" json:"stock_on_hand"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `gorm:"index" json:"-"`
}

// DistributorInvoice is a supplier's bill whose lines are priced into the catalog
type DistributorInvoice struct {
	ID            uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Distributor   string                   `gorm:"type:varchar(255);not null" json:"distributor"`
	ReferenceNo   string                   `gorm:"type:varchar(100);not null;index" json:"reference_no"`
	Currency      string                   `gorm:"type:varchar(10);not null;default:'USD'" json:"currency"`
	ExchangeRate  decimal.Decimal          `gorm:"type:decimal(18,6);not null" json:"exchange_rate"`
	TaxPercent    decimal.Decimal          `gorm:"type:decimal(10,4);not null" json:"tax_percent"`
	TotalCost     decimal.Decimal          `gorm:"type:decimal(18,4);not null" json:"total_cost"`
	Lines         []DistributorInvoiceLine `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"lines"`
	InvoiceDate   time.Time                `gorm:"type:date;not null" json:"invoice_date"`
	ImportedByID  uuid.UUID                `gorm:"type:uuid;not null" json:"imported_by_id"`
	CreatedAt     time.Time                `json:"created_at"`
}

// DistributorInvoiceLine is one supplier item and the sale price it produced
type DistributorInvoiceLine struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	ProductID     uuid.UUID       `gorm:"type:uuid;not null" json:"product_id"`
	SKU           string          `gorm:"type:varchar(100);not null" json:"sku"`
	Description   string          `gorm:"type:text;not null" json:"description"`
	CategoryID    uuid.UUID       `gorm:"type:uuid;not null" json:"category_id"`
	Quantity      int             `gorm:"not null" json:"quantity"`
	UnitCost      decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_cost"`
	MarkupPercent decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"markup_percent"`
	SalePrice     decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"sale_price"`
}
