package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"bizdesk/internal/model"
)

type TaskActivityRepository interface {
	Create(ctx context.Context, entry *model.TaskActivityLog) error
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]model.TaskActivityLog, error)
}

type taskActivityRepository struct {
	db *gorm.DB
}

func NewTaskActivityRepository(db *gorm.DB) TaskActivityRepository {
	return &taskActivityRepository{db: db}
}

func (r *taskActivityRepository) Create(ctx context.Context, entry *model.TaskActivityLog) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *taskActivityRepository) ListByTask(ctx context.Context, taskID uuid.UUID) ([]model.TaskActivityLog, error) {
	var logs []model.TaskActivityLog
	if err := GetDB(ctx, r.db).Preload("Actor").Where("task_id = ?", taskID).Order("created_at asc").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
