package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dumeirei/hotel-inventory/internal/common/database"
	"github.com/dumeirei/hotel-inventory/internal/models"
)

// ==================== 重叠统计测试 ====================

func TestBookingRepository_CountActiveOverlapping(t *testing.T) {
	db := setupTestDB(t)
	f := seedInventory(t, db)
	repo := NewBookingRepository(db)
	ctx := context.Background()

	seed := []*models.Booking{
		newBooking(f, "BK1", models.BookingStatusConfirmed, "2024-03-01", "2024-03-03"),
		newBooking(f, "BK2", models.BookingStatusCheckedIn, "2024-03-02", "2024-03-04"),
		newBooking(f, "BK3", models.BookingStatusPending, "2024-03-01", "2024-03-03"),
		newBooking(f, "BK4", models.BookingStatusCancelled, "2024-03-01", "2024-03-03"),
		newBooking(f, "BK5", models.BookingStatusCheckedOut, "2024-03-01", "2024-03-03"),
	}
	deleted := newBooking(f, "BK6", models.BookingStatusConfirmed, "2024-03-01", "2024-03-03")
	deleted.SoftDelete(testNow)
	seed = append(seed, deleted)
	otherType := newBooking(f, "BK7", models.BookingStatusConfirmed, "2024-03-01", "2024-03-03")
	otherType.RoomTypeID = f.suite.ID
	seed = append(seed, otherType)
	for _, b := range seed {
		require.NoError(t, repo.Create(ctx, b))
	}

	tests := []struct {
		name    string
		in, out string
		want    int64
	}{
		{"同一区间", "2024-03-01", "2024-03-03", 2},
		{"前一段首尾相接", "2024-02-28", "2024-03-01", 0},
		{"离店日入住", "2024-03-04", "2024-03-06", 0},
		{"只与在住重叠", "2024-03-03", "2024-03-04", 1},
		{"包含全部", "2024-02-01", "2024-04-01", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := repo.CountActiveOverlapping(ctx, f.property.ID, f.standard.ID, date(tt.in), date(tt.out))
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}

// ==================== 预订号测试 ====================

func TestBookingRepository_BookingNoUnique(t *testing.T) {
	db := setupTestDB(t)
	f := seedInventory(t, db)
	repo := NewBookingRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newBooking(f, "BK20240301ZZZZZZ", models.BookingStatusPending, "2024-03-01", "2024-03-02")))

	exists, err := repo.ExistsByBookingNo(ctx, "BK20240301ZZZZZZ")
	require.NoError(t, err)
	assert.True(t, exists)

	err = repo.Create(ctx, newBooking(f, "BK20240301ZZZZZZ", models.BookingStatusPending, "2024-03-05", "2024-03-06"))
	require.Error(t, err)
	assert.True(t, database.IsDuplicateKey(err))
	assert.True(t, database.IsRetryable(err))

	found, err := repo.GetByBookingNo(ctx, "BK20240301ZZZZZZ")
	require.NoError(t, err)
	assert.Equal(t, date("2024-03-01"), found.CheckInDate.UTC())
}

// ==================== 乐观锁测试 ====================

func TestBookingRepository_UpdateWithVersion(t *testing.T) {
	db := setupTestDB(t)
	f := seedInventory(t, db)
	repo := NewBookingRepository(db)
	ctx := context.Background()

	b := newBooking(f, "BK1", models.BookingStatusPending, "2024-03-01", "2024-03-02")
	require.NoError(t, repo.Create(ctx, b))

	stale := *b
	require.NoError(t, repo.UpdateWithVersion(ctx, b, map[string]interface{}{"status": models.BookingStatusConfirmed}))
	assert.Equal(t, 2, b.Version)

	err := repo.UpdateWithVersion(ctx, &stale, map[string]interface{}{"status": models.BookingStatusCancelled})
	assert.ErrorIs(t, err, ErrStaleWrite)

	got, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, got.Status)
	assert.Equal(t, 2, got.Version)
}

func TestBookingRepository_GetByID_NotFound(t *testing.T) {
	db := setupTestDB(t)
	_, err := NewBookingRepository(db).GetByID(context.Background(), 999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

// ==================== 列表与定时任务查询测试 ====================

func TestBookingRepository_List(t *testing.T) {
	db := setupTestDB(t)
	f := seedInventory(t, db)
	repo := NewBookingRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newBooking(f, "BK1", models.BookingStatusPending, "2024-03-05", "2024-03-06")))
	require.NoError(t, repo.Create(ctx, newBooking(f, "BK2", models.BookingStatusConfirmed, "2024-03-01", "2024-03-02")))
	require.NoError(t, repo.Create(ctx, newBooking(f, "BK3", models.BookingStatusConfirmed, "2024-04-01", "2024-04-02")))

	from, to := date("2024-03-01"), date("2024-04-01")
	list, total, err := repo.List(ctx, 0, 10, BookingFilter{PropertyID: f.property.ID, From: &from, To: &to})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, "BK2", list[0].BookingNo)

	list, total, err = repo.List(ctx, 0, 10, BookingFilter{Status: models.BookingStatusConfirmed})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 2)
}

func TestBookingRepository_ListPendingCreatedBefore(t *testing.T) {
	db := setupTestDB(t)
	f := seedInventory(t, db)
	repo := NewBookingRepository(db)
	ctx := context.Background()

	old := newBooking(f, "BK1", models.BookingStatusPending, "2024-03-01", "2024-03-02")
	old.CreatedAt = testNow.Add(-time.Hour)
	fresh := newBooking(f, "BK2", models.BookingStatusPending, "2024-03-01", "2024-03-02")
	fresh.CreatedAt = testNow.Add(-time.Minute)
	confirmed := newBooking(f, "BK3", models.BookingStatusConfirmed, "2024-03-01", "2024-03-02")
	confirmed.CreatedAt = testNow.Add(-time.Hour)
	for _, b := range []*models.Booking{old, fresh, confirmed} {
		require.NoError(t, repo.Create(ctx, b))
	}

	list, err := repo.ListPendingCreatedBefore(ctx, testNow.Add(-30*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "BK1", list[0].BookingNo)
}

func TestBookingRepository_ListNoShows(t *testing.T) {
	db := setupTestDB(t)
	f := seedInventory(t, db)
	repo := NewBookingRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newBooking(f, "BK1", models.BookingStatusConfirmed, "2024-02-18", "2024-02-21")))
	require.NoError(t, repo.Create(ctx, newBooking(f, "BK2", models.BookingStatusConfirmed, "2024-02-19", "2024-02-21")))
	require.NoError(t, repo.Create(ctx, newBooking(f, "BK3", models.BookingStatusCheckedIn, "2024-02-18", "2024-02-21")))

	list, err := repo.ListNoShows(ctx, date("2024-02-19"), 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "BK1", list[0].BookingNo)
}

func TestBookingRepository_ListPendingRefunds(t *testing.T) {
	db := setupTestDB(t)
	f := seedInventory(t, db)
	repo := NewBookingRepository(db)
	ctx := context.Background()

	cancelled := func(no string, refund models.RefundStatus, at time.Time) *models.Booking {
		b := newBooking(f, no, models.BookingStatusCancelled, "2024-03-01", "2024-03-02")
		b.RefundStatus = refund
		b.CancelledAt = &at
		require.NoError(t, repo.Create(ctx, b))
		return b
	}
	cancelled("BK1", models.RefundStatusPending, testNow.Add(-time.Hour))
	cancelled("BK2", models.RefundStatusPending, testNow)
	cancelled("BK3", models.RefundStatusRefunded, testNow.Add(-time.Hour))
	cancelled("BK4", models.RefundStatusNone, testNow.Add(-time.Hour))

	list, err := repo.ListPendingRefunds(ctx, testNow.Add(-time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "BK1", list[0].BookingNo)

	none, err := repo.GetByBookingNo(ctx, "BK4")
	require.NoError(t, err)
	assert.Equal(t, models.RefundStatusNone, none.RefundStatus)
}
