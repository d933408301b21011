package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/dumeirei/hotel-inventory/internal/models"
)

// HousekeepingRepository 清洁任务仓储
type HousekeepingRepository struct {
	db *gorm.DB
}

// NewHousekeepingRepository 创建清洁任务仓储
func NewHousekeepingRepository(db *gorm.DB) *HousekeepingRepository {
	return &HousekeepingRepository{db: db}
}

// Create 创建清洁任务
func (r *HousekeepingRepository) Create(ctx context.Context, task *models.HousekeepingTask) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// GetByID 根据 ID 获取任务
func (r *HousekeepingRepository) GetByID(ctx context.Context, id int64) (*models.HousekeepingTask, error) {
	var task models.HousekeepingTask
	err := r.db.WithContext(ctx).
		Where("is_deleted = ?", false).
		First(&task, id).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// ListOpenByProperty 获取门店未完成的任务，按优先级和创建时间排序
func (r *HousekeepingRepository) ListOpenByProperty(ctx context.Context, propertyID int64) ([]*models.HousekeepingTask, error) {
	var tasks []*models.HousekeepingTask
	err := r.db.WithContext(ctx).
		Joins("JOIN rooms ON rooms.id = housekeeping_tasks.room_id").
		Where("rooms.property_id = ?", propertyID).
		Where("housekeeping_tasks.is_deleted = ?", false).
		Where("housekeeping_tasks.status IN ?", []string{models.TaskStatusPending, models.TaskStatusInProgress}).
		Order(`CASE housekeeping_tasks.priority
			WHEN 'urgent' THEN 0 WHEN 'high' THEN 1 WHEN 'normal' THEN 2 ELSE 3 END`).
		Order("housekeeping_tasks.created_at ASC").
		Order("housekeeping_tasks.id ASC").
		Preload("Room").
		Find(&tasks).Error
	return tasks, err
}

// UpdateFrom 条件更新任务，仅当当前状态属于 from 时生效
func (r *HousekeepingRepository) UpdateFrom(ctx context.Context, id int64, from []string, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.HousekeepingTask{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleWrite
	}
	return nil
}
