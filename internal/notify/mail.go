package notify

import (
	"context"
	"fmt"
	"log/slog"
)

// Mail is a rendered message ready for a Mailer
type Mail struct {
	Recipient    string
	TemplateKind string
	Subject      string
	Body         string
	Payload      map[string]any
}

// Mailer sends a rendered message. Real delivery lives behind this interface.
type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

// LogMailer writes messages to the log instead of sending them
type LogMailer struct {
	Logger *slog.Logger
}

func (l LogMailer) Send(_ context.Context, m Mail) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Mail queued", "to", m.Recipient, "template", m.TemplateKind, "subject", m.Subject)
	return nil
}

// subjects lists the template kinds that produce a mail; other events are skipped
var subjects = map[string]string{
	"work_order.ready_for_pickup": "Your device %s is ready for pickup",
	"work_order.completed":        "Work order %s completed",
	"work_order.cancelled":        "Work order %s cancelled",
	"ticket.resolved":             "Ticket %s resolved",
	"ticket.waiting_customer":     "Ticket %s is waiting on your reply",
	"quotation_request.quoted":    "Your quotation %s is ready",
	"customer_inquiry.contacted":  "We received your inquiry %s",
	"work_order.assigned":         "Work order %s assigned to you",
	"ticket.assigned":             "Ticket %s assigned to you",
	"task.assigned":               "Task %s assigned to you",
	"quotation_request.assigned":  "Quotation request %s assigned to you",
	"customer_inquiry.assigned":   "Inquiry %s assigned to you",
}

// MailChannel renders (recipient, template kind, payload) and hands it to a Mailer
type MailChannel struct {
	mailer Mailer
}

func NewMailChannel(m Mailer) *MailChannel {
	return &MailChannel{mailer: m}
}

func (c *MailChannel) Name() string { return "mail" }

func (c *MailChannel) Deliver(ctx context.Context, e Event) error {
	kind := e.TemplateKind()
	subject, ok := subjects[kind]
	if !ok || e.Recipient == "" {
		return nil
	}
	m, err := render(e, kind, subject)
	if err != nil {
		return err
	}
	return c.mailer.Send(ctx, m)
}

func render(e Event, kind, subject string) (Mail, error) {
	if e.Name == "" {
		return Mail{}, fmt.Errorf("render %s: event has no display name", kind)
	}
	body := fmt.Sprintf("%s %s is now %s.", e.Kind, e.Name, e.To)
	if e.Type == EventAssigned {
		body = fmt.Sprintf("%s %s has been assigned to you.", e.Kind, e.Name)
	}
	if e.Notes != "" {
		body += "\n\n" + e.Notes
	}
	return Mail{
		Recipient:    e.Recipient,
		TemplateKind: kind,
		Subject:      fmt.Sprintf(subject, e.Name),
		Body:         body,
		Payload: map[string]any{
			"kind":      e.Kind,
			"entity_id": e.EntityID,
			"from":      e.From,
			"to":        e.To,
		},
	}, nil
}
