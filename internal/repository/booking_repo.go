package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/hotel-inventory/internal/common/database"
	"github.com/dumeirei/hotel-inventory/internal/models"
)

// BookingRepository 预订仓储
type BookingRepository struct {
	db *gorm.DB
}

// NewBookingRepository 创建预订仓储
func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// BookingFilter 预订列表过滤条件
type BookingFilter struct {
	PropertyID int64
	GuestID    int64
	Status     models.BookingStatus
	From       *time.Time // 入住日期下界
	To         *time.Time // 入住日期上界（不含）
}

// Create 创建预订
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	return r.db.WithContext(ctx).Create(booking).Error
}

// GetByID 根据 ID 获取预订（含已软删除）
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).First(&booking, id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

// GetByIDWithDetails 根据 ID 获取预订（包含房型和房间）
func (r *BookingRepository) GetByIDWithDetails(ctx context.Context, id int64) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).
		Preload("RoomType").
		Preload("Room").
		First(&booking, id).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// GetByBookingNo 根据预订号获取预订（包含房型和房间）
func (r *BookingRepository) GetByBookingNo(ctx context.Context, bookingNo string) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).
		Scopes(database.NotDeleted).
		Preload("RoomType").
		Preload("Room").
		Where("booking_number = ?", bookingNo).
		First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// ExistsByBookingNo 预订号是否已被占用（含已软删除）
func (r *BookingRepository) ExistsByBookingNo(ctx context.Context, bookingNo string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Booking{}).
		Where("booking_number = ?", bookingNo).
		Count(&count).Error
	return count > 0, err
}

// CountActiveOverlapping 统计与 [checkIn, checkOut) 重叠的有效预订数
// 重叠条件：existing.check_in < checkOut AND checkIn < existing.check_out
func (r *BookingRepository) CountActiveOverlapping(ctx context.Context, propertyID, roomTypeID int64, checkIn, checkOut time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Booking{}).
		Scopes(database.NotDeleted).
		Where("property_id = ? AND room_type_id = ?", propertyID, roomTypeID).
		Where("status IN ?", models.ActiveBookingStatuses).
		Where("check_in_date < ? AND check_out_date > ?", checkOut, checkIn).
		Count(&count).Error
	return count, err
}

// UpdateWithVersion 乐观锁更新，成功后 booking.Version 自增
// 版本不匹配返回 ErrStaleWrite
func (r *BookingRepository) UpdateWithVersion(ctx context.Context, booking *models.Booking, fields map[string]interface{}) error {
	fields["version"] = booking.Version + 1
	result := r.db.WithContext(ctx).Model(&models.Booking{}).
		Where("id = ? AND version = ?", booking.ID, booking.Version).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleWrite
	}
	booking.Version++
	return nil
}

// List 获取预订列表
func (r *BookingRepository) List(ctx context.Context, offset, limit int, filter BookingFilter) ([]*models.Booking, int64, error) {
	var bookings []*models.Booking
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Booking{}).Scopes(database.NotDeleted)
	if filter.PropertyID > 0 {
		query = query.Where("property_id = ?", filter.PropertyID)
	}
	if filter.GuestID > 0 {
		query = query.Where("guest_id = ?", filter.GuestID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		query = query.Where("check_in_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("check_in_date < ?", *filter.To)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.
		Order("check_in_date ASC").
		Order("id ASC").
		Offset(offset).Limit(limit).
		Find(&bookings).Error; err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

// ListPendingCreatedBefore 获取创建时间早于 before 的待确认预订
func (r *BookingRepository) ListPendingCreatedBefore(ctx context.Context, before time.Time, limit int) ([]*models.Booking, error) {
	var bookings []*models.Booking
	err := r.db.WithContext(ctx).
		Scopes(database.NotDeleted).
		Where("status = ?", models.BookingStatusPending).
		Where("created_at < ?", before).
		Order("id ASC").
		Limit(limit).
		Find(&bookings).Error
	return bookings, err
}

// ListNoShows 获取入住日期早于 checkInBefore 仍未入住的已确认预订
func (r *BookingRepository) ListNoShows(ctx context.Context, checkInBefore time.Time, limit int) ([]*models.Booking, error) {
	var bookings []*models.Booking
	err := r.db.WithContext(ctx).
		Scopes(database.NotDeleted).
		Where("status = ?", models.BookingStatusConfirmed).
		Where("check_in_date < ?", checkInBefore).
		Order("id ASC").
		Limit(limit).
		Find(&bookings).Error
	return bookings, err
}

// ListPendingRefunds 获取取消时间早于 cancelledBefore 且退款仍待受理的预订
func (r *BookingRepository) ListPendingRefunds(ctx context.Context, cancelledBefore time.Time, limit int) ([]*models.Booking, error) {
	var bookings []*models.Booking
	err := r.db.WithContext(ctx).
		Scopes(database.NotDeleted).
		Where("status = ? AND refund_status = ?", models.BookingStatusCancelled, models.RefundStatusPending).
		Where("cancelled_at < ?", cancelledBefore).
		Order("cancelled_at ASC, id ASC").
		Limit(limit).
		Find(&bookings).Error
	return bookings, err
}
