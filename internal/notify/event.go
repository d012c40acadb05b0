// Package notify delivers lifecycle events outside the request that caused them.
//
// Services publish an Event after their transaction commits. A single worker
// drains the queue and hands each event to every Channel; a failing channel is
// logged and counted and never affects the others or the publisher.
package notify

import (
	"time"

	"github.com/google/uuid"

	"bizdesk/internal/model"
)

// Event types
const (
	EventCreated       = "created"
	EventStatusChanged = "status_changed"
	EventAssigned      = "assigned"
	EventProductPriced = "product_priced"
)

// KindProduct marks catalog events; products have no lifecycle
const KindProduct model.EntityKind = "product"

// Event describes something that happened to a record
type Event struct {
	Type       string           `json:"type"`
	Kind       model.EntityKind `json:"kind"`
	EntityID   uuid.UUID        `json:"entity_id"`
	Name       string           `json:"name"`
	From       string           `json:"from,omitempty"`
	To         string           `json:"to,omitempty"`
	ActorID    uuid.UUID        `json:"actor_id"`
	ActorEmail string           `json:"actor_email,omitempty"`
	AssigneeID *uuid.UUID       `json:"assignee_id,omitempty"`
	Recipient  string           `json:"-"` // email address the mail channel writes to
	Notes      string           `json:"notes,omitempty"`
	At         time.Time        `json:"at"`
}

// TemplateKind keys the message template for an event, e.g. "work_order.ready_for_pickup"
func (e Event) TemplateKind() string {
	switch e.Type {
	case EventStatusChanged:
		return string(e.Kind) + "." + e.To
	case EventAssigned:
		return string(e.Kind) + ".assigned"
	default:
		return string(e.Kind) + "." + e.Type
	}
}
