package model

import (
	"time"

	"github.com/google/uuid"
)

// Call directions
const (
	CallInbound  = "inbound"
	CallOutbound = "outbound"
)

// CallLog records a phone conversation with a customer
type CallLog struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CustomerID      *uuid.UUID `gorm:"type:uuid;index" json:"customer_id"`
	CallerName      string     `gorm:"type:varchar(255)" json:"caller_name"`
	PhoneNumber     string     `gorm:"type:varchar(50);not null" json:"phone_number"`
	Direction       string     `gorm:"type:varchar(10);not null" json:"direction"`
	Purpose         string     `gorm:"type:varchar(255)" json:"purpose"`
	Notes           string     `gorm:"type:text" json:"notes"`
	DurationSeconds int        `gorm:"default:0" json:"duration_seconds"`
	FollowUpAt      *time.Time `json:"follow_up_at"`
	LoggedByID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"logged_by_id"`
	LoggedBy        *User      `gorm:"foreignKey:LoggedByID" json:"logged_by,omitempty"`
	CalledAt        time.Time  `gorm:"not null;index" json:"called_at"`
	CreatedAt       time.Time  `json:"created_at"`
}
