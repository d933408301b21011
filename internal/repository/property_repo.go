package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/dumeirei/hotel-inventory/internal/common/database"
	"github.com/dumeirei/hotel-inventory/internal/models"
)

// PropertyRepository 门店仓储
type PropertyRepository struct {
	db *gorm.DB
}

// NewPropertyRepository 创建门店仓储
func NewPropertyRepository(db *gorm.DB) *PropertyRepository {
	return &PropertyRepository{db: db}
}

// GetByID 根据 ID 获取门店（含已软删除）
func (r *PropertyRepository) GetByID(ctx context.Context, id int64) (*models.Property, error) {
	var property models.Property
	if err := r.db.WithContext(ctx).First(&property, id).Error; err != nil {
		return nil, err
	}
	return &property, nil
}

// GetWithRoomTypes 获取门店及其可见房型
func (r *PropertyRepository) GetWithRoomTypes(ctx context.Context, id int64) (*models.Property, error) {
	var property models.Property
	err := r.db.WithContext(ctx).
		Scopes(database.NotDeleted).
		Preload("RoomTypes", func(db *gorm.DB) *gorm.DB {
			return db.Scopes(database.NotDeleted).Order("id ASC")
		}).
		First(&property, id).Error
	if err != nil {
		return nil, err
	}
	return &property, nil
}

// List 获取营业中的门店列表
func (r *PropertyRepository) List(ctx context.Context, offset, limit int, city string) ([]*models.Property, int64, error) {
	var properties []*models.Property
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Property{}).
		Scopes(database.NotDeleted).
		Where("is_active = ?", true)
	if city != "" {
		query = query.Where("city = ?", city)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("id ASC").Offset(offset).Limit(limit).Find(&properties).Error; err != nil {
		return nil, 0, err
	}
	return properties, total, nil
}
