package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"bizdesk/internal/model"
)

// RecordFilter narrows a list of tracked records. Kind selects the table.
type RecordFilter struct {
	Kind           model.EntityKind
	Status         string
	Priority       string
	AssignedUserID *uuid.UUID
	CustomerID     *uuid.UUID
	Search         string
}

// number and free-text columns per record kind
var recordColumns = map[model.EntityKind]struct {
	number string
	search []string
}{
	model.KindWorkOrder:        {"order_no", []string{"order_no", "device_model", "serial_number", "problem_summary"}},
	model.KindTicket:           {"ticket_no", []string{"ticket_no", "subject"}},
	model.KindTask:             {"", []string{"title", "description"}},
	model.KindQuotationRequest: {"request_no", []string{"request_no", "contact_name", "details"}},
	model.KindCustomerInquiry:  {"inquiry_no", []string{"inquiry_no", "name", "subject"}},
}

// RecordRepository persists every lifecycle-tracked record kind and their shared status history
type RecordRepository interface {
	Create(ctx context.Context, rec model.Trackable) error
	Save(ctx context.Context, rec model.Trackable) error
	FindByID(ctx context.Context, rec model.Trackable, id uuid.UUID) error
	List(ctx context.Context, dest any, filter RecordFilter, page, limit int) (int64, error)
	CountByPrefix(ctx context.Context, kind model.EntityKind, prefix string) (int64, error)

	AppendHistory(ctx context.Context, entry *model.StatusHistoryEntry) error
	History(ctx context.Context, kind model.EntityKind, id uuid.UUID) ([]model.StatusHistoryEntry, error)
}

type recordRepository struct {
	db *gorm.DB
}

func NewRecordRepository(db *gorm.DB) RecordRepository {
	return &recordRepository{db: db}
}

func (r *recordRepository) Create(ctx context.Context, rec model.Trackable) error {
	return GetDB(ctx, r.db).Create(rec).Error
}

func (r *recordRepository) Save(ctx context.Context, rec model.Trackable) error {
	return GetDB(ctx, r.db).Omit("Customer").Save(rec).Error
}

// FindByID loads the row with id into rec, whose concrete type selects the table
func (r *recordRepository) FindByID(ctx context.Context, rec model.Trackable, id uuid.UUID) error {
	return GetDB(ctx, r.db).First(rec, "id = ?", id).Error
}

// List fills dest, a pointer to a slice of the filter's record kind
func (r *recordRepository) List(ctx context.Context, dest any, filter RecordFilter, page, limit int) (int64, error) {
	cols, ok := recordColumns[filter.Kind]
	if !ok {
		return 0, fmt.Errorf("unknown record kind %q", filter.Kind)
	}

	scope := func(db *gorm.DB) *gorm.DB {
		if filter.Status != "" {
			db = db.Where("status = ?", filter.Status)
		}
		if filter.Priority != "" {
			db = db.Where("priority = ?", filter.Priority)
		}
		if filter.AssignedUserID != nil {
			db = db.Where("assigned_user_id = ?", *filter.AssignedUserID)
		}
		if filter.CustomerID != nil && filter.Kind != model.KindTask {
			db = db.Where("customer_id = ?", *filter.CustomerID)
		}
		if filter.Search != "" {
			or := db.Session(&gorm.Session{NewDB: true})
			for i, col := range cols.search {
				if i == 0 {
					or = or.Where(col+" ILIKE ?", ilike(filter.Search))
				} else {
					or = or.Or(col+" ILIKE ?", ilike(filter.Search))
				}
			}
			db = db.Where(or)
		}
		return db
	}

	var total int64
	db := GetDB(ctx, r.db)
	if err := db.Model(dest).Scopes(scope).Count(&total).Error; err != nil {
		return 0, err
	}
	if err := db.Scopes(scope, paginate(page, limit)).Order("created_at desc").Find(dest).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *recordRepository) CountByPrefix(ctx context.Context, kind model.EntityKind, prefix string) (int64, error) {
	cols, ok := recordColumns[kind]
	if !ok || cols.number == "" {
		return 0, fmt.Errorf("record kind %q has no document number", kind)
	}
	rec, _ := model.NewRecord(kind)

	var count int64
	if err := GetDB(ctx, r.db).Model(rec).Where(cols.number+" LIKE ?", prefix+"%").Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *recordRepository) AppendHistory(ctx context.Context, entry *model.StatusHistoryEntry) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

// History returns the entries of one record oldest first
func (r *recordRepository) History(ctx context.Context, kind model.EntityKind, id uuid.UUID) ([]model.StatusHistoryEntry, error) {
	var entries []model.StatusHistoryEntry
	if err := GetDB(ctx, r.db).
		Preload("ChangedBy").
		Where("entity_kind = ? AND entity_id = ?", kind, id).
		Order("changed_at asc, id asc").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
