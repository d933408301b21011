package hotel

import (
	"context"
	stderrors "errors"

	"gorm.io/gorm"

	"github.com/dumeirei/hotel-inventory/internal/common/errors"
	"github.com/dumeirei/hotel-inventory/internal/models"
	"github.com/dumeirei/hotel-inventory/internal/repository"
)

// ResolveRoom 为入住选定房间
// 指定房间时校验归属、房型与状态；未指定时按房号升序取第一间空净房
func ResolveRoom(ctx context.Context, uow *repository.UnitOfWork, booking *models.Booking, requestedRoomID *int64) (*models.Room, error) {
	if requestedRoomID != nil {
		return resolveRequested(ctx, uow, booking, *requestedRoomID)
	}

	room, err := uow.Rooms.FirstReady(ctx, booking.PropertyID, booking.RoomTypeID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrNoRoomAvailable
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return room, nil
}

func resolveRequested(ctx context.Context, uow *repository.UnitOfWork, booking *models.Booking, roomID int64) (*models.Room, error) {
	room, err := uow.Rooms.GetByID(ctx, roomID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrRoomNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if !repository.IsVisible(room) || room.PropertyID != booking.PropertyID {
		return nil, errors.ErrRoomNotFound
	}
	if room.RoomTypeID != booking.RoomTypeID {
		return nil, errors.ErrNoRoomAvailable.WithMessage("指定房间与预订房型不一致")
	}
	if !room.Status.Assignable() {
		return nil, errors.ErrRoomNotReady.WithDetail("room_status", string(room.Status))
	}
	return room, nil
}
