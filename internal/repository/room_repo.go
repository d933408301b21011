package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/hotel-inventory/internal/common/database"
	"github.com/dumeirei/hotel-inventory/internal/models"
)

// RoomRepository 房间仓储
type RoomRepository struct {
	db *gorm.DB
}

// NewRoomRepository 创建房间仓储
func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// GetByID 根据 ID 获取房间（含已软删除）
func (r *RoomRepository) GetByID(ctx context.Context, id int64) (*models.Room, error) {
	var room models.Room
	if err := r.db.WithContext(ctx).First(&room, id).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

// CountPool 统计房型可售房间池：未删除且非维修停用
func (r *RoomRepository) CountPool(ctx context.Context, propertyID, roomTypeID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Room{}).
		Scopes(database.NotDeleted).
		Where("property_id = ? AND room_type_id = ?", propertyID, roomTypeID).
		Where("status <> ?", models.RoomStatusOutOfOrder).
		Count(&count).Error
	return count, err
}

// 房号按数值顺序排列，"9" 排在 "10" 之前
const roomNumberOrder = "LENGTH(room_number) ASC, room_number ASC"

// FirstReady 按房号顺序取第一间空净房
func (r *RoomRepository) FirstReady(ctx context.Context, propertyID, roomTypeID int64) (*models.Room, error) {
	var room models.Room
	err := r.db.WithContext(ctx).
		Scopes(database.NotDeleted).
		Where("property_id = ? AND room_type_id = ?", propertyID, roomTypeID).
		Where("status = ?", models.RoomStatusCleanReady).
		Order(roomNumberOrder).
		Order("id ASC").
		First(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// ListByProperty 获取门店房间列表，status 为空时不过滤
func (r *RoomRepository) ListByProperty(ctx context.Context, propertyID int64, status models.RoomStatus) ([]*models.Room, error) {
	var rooms []*models.Room
	query := r.db.WithContext(ctx).
		Scopes(database.NotDeleted).
		Where("property_id = ?", propertyID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Order(roomNumberOrder).Find(&rooms).Error
	return rooms, err
}

// TransitionStatus 条件更新房间状态，仅当当前状态属于 from 时生效
// 未命中任何行返回 ErrStaleWrite
func (r *RoomRepository) TransitionStatus(ctx context.Context, id int64, from []models.RoomStatus, to models.RoomStatus, now time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.Room{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleWrite
	}
	return nil
}
