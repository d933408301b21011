package hotel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumeirei/hotel-inventory/internal/common/errors"
	"github.com/dumeirei/hotel-inventory/internal/common/utils"
	"github.com/dumeirei/hotel-inventory/internal/models"
)

// ==================== ResolveRoom 测试 ====================

func TestResolveRoom(t *testing.T) {
	ctx := context.Background()

	t.Run("自动分配房号最小的空净房", func(t *testing.T) {
		env := setupEnv(t)
		b := insertBooking(t, env.db, env.f, env.f.standard, models.BookingStatusConfirmed, "2024-02-20", "2024-02-22")

		room, err := ResolveRoom(ctx, env.store.Reader(), b, nil)
		require.NoError(t, err)
		assert.Equal(t, env.f.room101.ID, room.ID)
	})

	t.Run("自动分配跳过空脏和维修房", func(t *testing.T) {
		env := setupEnv(t)
		require.NoError(t, env.db.Model(env.f.room101).Update("status", models.RoomStatusVacantDirty).Error)
		b := insertBooking(t, env.db, env.f, env.f.standard, models.BookingStatusConfirmed, "2024-02-20", "2024-02-22")

		room, err := ResolveRoom(ctx, env.store.Reader(), b, nil)
		require.NoError(t, err)
		assert.Equal(t, "102", room.RoomNumber)

		require.NoError(t, env.db.Model(env.f.room102).Update("status", models.RoomStatusOutOfOrder).Error)
		_, err = ResolveRoom(ctx, env.store.Reader(), b, nil)
		assert.True(t, errors.IsKind(err, errors.KindNoRoomAvailable))
	})

	t.Run("已查房的房间可以分配", func(t *testing.T) {
		env := setupEnv(t)
		require.NoError(t, env.db.Model(env.f.room301).Update("status", models.RoomStatusInspected).Error)
		b := insertBooking(t, env.db, env.f, env.f.suite, models.BookingStatusConfirmed, "2024-02-20", "2024-02-22")

		room, err := ResolveRoom(ctx, env.store.Reader(), b, utils.Int64Ptr(env.f.room301.ID))
		require.NoError(t, err)
		assert.Equal(t, models.RoomStatusInspected, room.Status)
	})

	t.Run("指定房间校验", func(t *testing.T) {
		env := setupEnv(t)
		b := insertBooking(t, env.db, env.f, env.f.standard, models.BookingStatusConfirmed, "2024-02-20", "2024-02-22")

		_, err := ResolveRoom(ctx, env.store.Reader(), b, utils.Int64Ptr(9999))
		assert.Equal(t, errors.ErrRoomNotFound.Code, errors.GetAppError(err).Code)

		_, err = ResolveRoom(ctx, env.store.Reader(), b, utils.Int64Ptr(env.f.room301.ID))
		assert.True(t, errors.IsKind(err, errors.KindNoRoomAvailable))

		require.NoError(t, env.db.Model(env.f.room102).Update("status", models.RoomStatusVacantDirty).Error)
		_, err = ResolveRoom(ctx, env.store.Reader(), b, utils.Int64Ptr(env.f.room102.ID))
		appErr := errors.GetAppError(err)
		assert.Equal(t, errors.ErrRoomNotReady.Code, appErr.Code)
		assert.Equal(t, string(models.RoomStatusVacantDirty), appErr.Details["room_status"])
	})

	t.Run("其他门店或已删除的房间视为不存在", func(t *testing.T) {
		env := setupEnv(t)
		other := &models.Property{Name: "山景酒店", Address: "山路 2 号", City: "杭州", Country: "CN", Timezone: "UTC", IsActive: true}
		require.NoError(t, env.db.Create(other).Error)
		foreign := addRoom(t, env.db, other.ID, env.f.standard.ID, "101", models.RoomStatusCleanReady)
		b := insertBooking(t, env.db, env.f, env.f.standard, models.BookingStatusConfirmed, "2024-02-20", "2024-02-22")

		_, err := ResolveRoom(ctx, env.store.Reader(), b, utils.Int64Ptr(foreign.ID))
		assert.Equal(t, errors.ErrRoomNotFound.Code, errors.GetAppError(err).Code)

		require.NoError(t, env.db.Model(env.f.room101).Update("is_deleted", true).Error)
		_, err = ResolveRoom(ctx, env.store.Reader(), b, utils.Int64Ptr(env.f.room101.ID))
		assert.Equal(t, errors.ErrRoomNotFound.Code, errors.GetAppError(err).Code)

		room, err := ResolveRoom(ctx, env.store.Reader(), b, nil)
		require.NoError(t, err)
		assert.Equal(t, env.f.room102.ID, room.ID)
	})
}
