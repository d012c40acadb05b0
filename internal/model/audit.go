package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionLogin          = "LOGIN"
	ActionCreateUser     = "CREATE_USER"
	ActionUpdateUser     = "UPDATE_USER"
	ActionDeleteUser     = "DELETE_USER"
	ActionCreateTaxRule  = "CREATE_TAX_RULE"
	ActionUpdateTaxRule  = "UPDATE_TAX_RULE"
	ActionDeleteTaxRule  = "DELETE_TAX_RULE"
	ActionCreateCategory = "CREATE_CATEGORY"
	ActionUpdateCategory = "UPDATE_CATEGORY"
	ActionDeleteCategory = "DELETE_CATEGORY"
	ActionCreateProduct  = "CREATE_PRODUCT"
	ActionUpdateProduct  = "UPDATE_PRODUCT"
	ActionDeleteProduct  = "DELETE_PRODUCT"
	ActionImportInvoice  = "IMPORT_DISTRIBUTOR_INVOICE"
	ActionCreateCustomer = "CREATE_CUSTOMER"
	ActionUpdateCustomer = "UPDATE_CUSTOMER"
	ActionDeleteCustomer = "DELETE_CUSTOMER"
	ActionCreateRecord   = "CREATE_RECORD"
	ActionUpdateRecord   = "UPDATE_RECORD"
	ActionChangeStatus   = "CHANGE_STATUS"
	ActionAssignRecord   = "ASSIGN_RECORD"
	ActionCreateCallLog  = "CREATE_CALL_LOG"
	ActionUpdateCallLog  = "UPDATE_CALL_LOG"
	ActionDeleteCallLog  = "DELETE_CALL_LOG"
	ActionCreateQuote    = "CREATE_QUOTATION"
	ActionCreateInvoice  = "CREATE_INVOICE"
	ActionSettleInvoice  = "SETTLE_INVOICE"
)

// AuditLog tracks who did what, and when, for every mutation in the system
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // nil for system jobs
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:jsonb" json:"details"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
