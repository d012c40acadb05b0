package model

import "github.com/google/uuid"

// Ticket statuses
const (
	TicketOpen            = "open"
	TicketInProgress      = "in_progress"
	TicketWaitingCustomer = "waiting_customer"
	TicketResolved        = "resolved"
	TicketClosed          = "closed"
)

// Ticket is a support request raised by or on behalf of a customer
type Ticket struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TicketNo    string     `gorm:"type:varchar(30);uniqueIndex;not null" json:"ticket_no"`
	CustomerID  *uuid.UUID `gorm:"type:uuid;index" json:"customer_id"`
	Subject     string     `gorm:"type:varchar(255);not null" json:"subject"`
	Description string     `gorm:"type:text" json:"description"`
	Category    string     `gorm:"type:varchar(50)" json:"category"`
	Resolution  string     `gorm:"type:text" json:"resolution"`
	Lifecycle   `gorm:"embedded"`
}

func (t *Ticket) EntityKind() EntityKind      { return KindTicket }
func (t *Ticket) EntityID() uuid.UUID         { return t.ID }
func (t *Ticket) LifecycleRecord() *Lifecycle { return &t.Lifecycle }
func (t *Ticket) DisplayName() string         { return t.TicketNo }
