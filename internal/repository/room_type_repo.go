package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dumeirei/hotel-inventory/internal/common/database"
	"github.com/dumeirei/hotel-inventory/internal/models"
)

// RoomTypeRepository 房型仓储
type RoomTypeRepository struct {
	db *gorm.DB
}

// NewRoomTypeRepository 创建房型仓储
func NewRoomTypeRepository(db *gorm.DB) *RoomTypeRepository {
	return &RoomTypeRepository{db: db}
}

// GetForUpdate 加行锁读取房型，同一房型的并发下单在此串行化
func (r *RoomTypeRepository) GetForUpdate(ctx context.Context, id int64) (*models.RoomType, error) {
	var roomType models.RoomType
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&roomType, id).Error
	if err != nil {
		return nil, err
	}
	return &roomType, nil
}

// ListByProperty 获取门店下满足入住人数的可见房型
func (r *RoomTypeRepository) ListByProperty(ctx context.Context, propertyID int64, minOccupancy int) ([]*models.RoomType, error) {
	var roomTypes []*models.RoomType
	err := r.db.WithContext(ctx).
		Scopes(database.NotDeleted).
		Where("property_id = ?", propertyID).
		Where("max_occupancy >= ?", minOccupancy).
		Order("id ASC").
		Find(&roomTypes).Error
	return roomTypes, err
}
