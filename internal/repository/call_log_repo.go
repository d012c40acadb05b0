package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"bizdesk/internal/model"
)

type CallLogFilter struct {
	CustomerID *uuid.UUID
	Direction  string
	From       *time.Time
	To         *time.Time
	Search     string
}

type CallLogRepository interface {
	Create(ctx context.Context, call *model.CallLog) error
	Update(ctx context.Context, call *model.CallLog) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CallLog, error)
	List(ctx context.Context, filter CallLogFilter, page, limit int) ([]model.CallLog, int64, error)
}

type callLogRepository struct {
	db *gorm.DB
}

func NewCallLogRepository(db *gorm.DB) CallLogRepository {
	return &callLogRepository{db: db}
}

func (r *callLogRepository) Create(ctx context.Context, call *model.CallLog) error {
	return GetDB(ctx, r.db).Create(call).Error
}

func (r *callLogRepository) Update(ctx context.Context, call *model.CallLog) error {
	return GetDB(ctx, r.db).Omit("LoggedBy").Save(call).Error
}

func (r *callLogRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.CallLog{}).Error
}

func (r *callLogRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.CallLog, error) {
	var call model.CallLog
	if err := GetDB(ctx, r.db).Preload("LoggedBy").First(&call, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &call, nil
}

func (r *callLogRepository) List(ctx context.Context, filter CallLogFilter, page, limit int) ([]model.CallLog, int64, error) {
	var calls []model.CallLog
	var total int64

	scope := func(db *gorm.DB) *gorm.DB {
		if filter.CustomerID != nil {
			db = db.Where("customer_id = ?", *filter.CustomerID)
		}
		if filter.Direction != "" {
			db = db.Where("direction = ?", filter.Direction)
		}
		if filter.From != nil {
			db = db.Where("called_at >= ?", *filter.From)
		}
		if filter.To != nil {
			db = db.Where("called_at < ?", *filter.To)
		}
		if filter.Search != "" {
			term := ilike(filter.Search)
			db = db.Where("caller_name ILIKE ? OR phone_number ILIKE ? OR purpose ILIKE ?", term, term, term)
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.CallLog{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Scopes(scope, paginate(page, limit)).Preload("LoggedBy").Order("called_at desc").Find(&calls).Error; err != nil {
		return nil, 0, err
	}

	return calls, total, nil
}
