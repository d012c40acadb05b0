package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"bizdesk/internal/model"
	"bizdesk/internal/repository"
	"bizdesk/pkg/pagination"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrUnauthorized = errors.New("unauthorized")
	ErrValidation   = errors.New("invalid request")
)

const dateLayout = "2006-01-02"

// notFoundOr turns gorm's missing-row error into ErrNotFound and wraps anything else
func notFoundOr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to fetch %s: %w", what, err)
}

func parseID(s, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s must be a UUID", ErrValidation, field)
	}
	return id, nil
}

// parseOptionalID returns nil for an empty string
func parseOptionalID(s, field string) (*uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	id, err := parseID(s, field)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func parseOptionalDate(s, field string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be YYYY-MM-DD", ErrValidation, field)
	}
	return &t, nil
}

func normalizePage(page, limit int) (int, int) {
	p := pagination.Normalize(page, limit)
	return p.Page, p.Limit
}

func newAuditLog(actorID uuid.UUID, action, entityID, entityName string, details map[string]interface{}) *model.AuditLog {
	raw, _ := json.Marshal(details)
	entry := &model.AuditLog{
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(raw),
	}
	if actorID != uuid.Nil {
		id := actorID
		entry.UserID = &id
	}
	return entry
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

// nextDocumentNo returns PREFIX-YYYYMMDD-00001 style numbers, counting today's rows under an advisory lock.
// ctx must carry a transaction.
func nextDocumentNo(ctx context.Context, tx repository.TransactionManager, prefix string, now time.Time,
	count func(ctx context.Context, prefix string) (int64, error)) (string, error) {
	p := prefix + "-" + now.Format("20060102") + "-"
	if err := tx.Lock(ctx, p); err != nil {
		return "", fmt.Errorf("failed to lock document sequence: %w", err)
	}
	n, err := count(ctx, p)
	if err != nil {
		return "", fmt.Errorf("failed to count documents: %w", err)
	}
	return fmt.Sprintf("%s%05d", p, n+1), nil
}
