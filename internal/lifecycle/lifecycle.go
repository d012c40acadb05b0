// Package lifecycle moves tracked records through their status graphs.
//
// Functions here mutate the record they are given and return the history entry
// the caller must persist alongside it. Nothing is written on error.
package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bizdesk/internal/model"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrPermissionDenied  = errors.New("permission denied")
)

// Actor is the authenticated user performing an operation
type Actor struct {
	ID    uuid.UUID
	Role  string
	Email string
}

func (a Actor) authenticated() bool {
	return a.ID != uuid.Nil
}

func graphOf(rec model.Trackable) (Graph, error) {
	g, ok := graphs[rec.EntityKind()]
	if !ok {
		return Graph{}, fmt.Errorf("%w: unknown record kind %q", ErrInvalidTransition, rec.EntityKind())
	}
	return g, nil
}

// Open initialises a new record in its kind's initial status and returns the
// creation history entry (FromStatus nil). An empty priority gets the default.
func Open(rec model.Trackable, actor Actor, now time.Time) (model.StatusHistoryEntry, error) {
	if !actor.authenticated() {
		return model.StatusHistoryEntry{}, ErrPermissionDenied
	}
	g, err := graphOf(rec)
	if err != nil {
		return model.StatusHistoryEntry{}, err
	}
	lc := rec.LifecycleRecord()
	if lc.Priority == "" {
		lc.Priority = g.DefaultPriority()
	} else if !g.ValidPriority(lc.Priority) {
		return model.StatusHistoryEntry{}, fmt.Errorf("%w: priority %q is not valid for %s", ErrInvalidTransition, lc.Priority, g.Kind)
	}

	lc.Status = g.Initial
	lc.CreatedByID = actor.ID
	lc.CreatedAt = now
	lc.UpdatedAt = now
	lc.CompletedAt = nil

	return model.StatusHistoryEntry{
		ID:          uuid.New(),
		EntityKind:  g.Kind,
		EntityID:    rec.EntityID(),
		FromStatus:  nil,
		ToStatus:    g.Initial,
		ChangedByID: actor.ID,
		ChangedAt:   now,
		Notes:       "created",
	}, nil
}

// Transition moves rec to status to. On error rec is left untouched.
func Transition(rec model.Trackable, to string, actor Actor, notes string, now time.Time) (model.StatusHistoryEntry, error) {
	if !actor.authenticated() {
		return model.StatusHistoryEntry{}, ErrPermissionDenied
	}
	g, err := graphOf(rec)
	if err != nil {
		return model.StatusHistoryEntry{}, err
	}
	lc := rec.LifecycleRecord()
	from := lc.Status

	if !g.CanTransition(from, to) {
		return model.StatusHistoryEntry{}, fmt.Errorf("%w: %s cannot move from %q to %q", ErrInvalidTransition, g.Kind, from, to)
	}

	action := ActionTransition
	if g.IsCancel(to) {
		action = ActionCancel
	}
	if !Allowed(actor.Role, action, g.Kind) {
		return model.StatusHistoryEntry{}, fmt.Errorf("%w: role %q may not %s a %s", ErrPermissionDenied, actor.Role, action, g.Kind)
	}

	lc.Status = to
	lc.UpdatedAt = now
	if g.IsTerminal(to) {
		completed := now
		lc.CompletedAt = &completed
	}

	prev := from
	return model.StatusHistoryEntry{
		ID:          uuid.New(),
		EntityKind:  g.Kind,
		EntityID:    rec.EntityID(),
		FromStatus:  &prev,
		ToStatus:    to,
		ChangedByID: actor.ID,
		ChangedAt:   now,
		Notes:       notes,
	}, nil
}

// Assign sets or clears (userID nil) the record's assignee. Status is not
// touched, so no history entry is produced.
func Assign(rec model.Trackable, userID *uuid.UUID, actor Actor, now time.Time) error {
	if !actor.authenticated() {
		return ErrPermissionDenied
	}
	g, err := graphOf(rec)
	if err != nil {
		return err
	}
	if !Allowed(actor.Role, ActionAssign, g.Kind) {
		return fmt.Errorf("%w: role %q may not assign a %s", ErrPermissionDenied, actor.Role, g.Kind)
	}
	lc := rec.LifecycleRecord()
	if g.IsTerminal(lc.Status) {
		return fmt.Errorf("%w: %s is already %s", ErrInvalidTransition, g.Kind, lc.Status)
	}

	if userID != nil {
		id := *userID
		lc.AssignedUserID = &id
	} else {
		lc.AssignedUserID = nil
	}
	lc.UpdatedAt = now
	return nil
}
