package model

import "github.com/google/uuid"

// Customer inquiry statuses
const (
	InquiryNew        = "new"
	InquiryContacted  = "contacted"
	InquiryInProgress = "in_progress"
	InquiryResolved   = "resolved"
	InquiryClosed     = "closed"
)

// CustomerInquiry is an inbound lead or question from a (possibly unknown) customer.
// Only administrators may reassign inquiries.
type CustomerInquiry struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InquiryNo   string     `gorm:"type:varchar(30);uniqueIndex;not null" json:"inquiry_no"`
	CustomerID  *uuid.UUID `gorm:"type:uuid;index" json:"customer_id"`
	Name        string     `gorm:"type:varchar(255);not null" json:"name"`
	Email       string     `gorm:"type:varchar(255)" json:"email"`
	Phone       string     `gorm:"type:varchar(50)" json:"phone"`
	Channel     string     `gorm:"type:varchar(30)" json:"channel"` // walk_in, phone, email, web
	Subject     string     `gorm:"type:varchar(255);not null" json:"subject"`
	Message     string     `gorm:"type:text" json:"message"`
	Lifecycle   `gorm:"embedded"`
}

func (i *CustomerInquiry) EntityKind() EntityKind      { return KindCustomerInquiry }
func (i *CustomerInquiry) EntityID() uuid.UUID         { return i.ID }
func (i *CustomerInquiry) LifecycleRecord() *Lifecycle { return &i.Lifecycle }
func (i *CustomerInquiry) DisplayName() string         { return i.InquiryNo }
