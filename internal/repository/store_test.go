// Package repository 仓储与事务单元测试
package repository

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/hotel-inventory/internal/models"
)

var testNow = time.Date(2024, 2, 20, 9, 0, 0, 0, time.UTC)

// setupTestDB 创建内存数据库
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return testNow },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, AutoMigrate(db))
	return db
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

type fixture struct {
	property *models.Property
	standard *models.RoomType
	suite    *models.RoomType
	rooms    []*models.Room
}

// seedInventory 一个门店、两个房型，标准间三间房
func seedInventory(t *testing.T, db *gorm.DB) *fixture {
	f := &fixture{}
	f.property = &models.Property{Name: "海景酒店", Address: "滨海路 1 号", City: "厦门", Country: "CN", IsActive: true}
	require.NoError(t, db.Create(f.property).Error)

	f.standard = &models.RoomType{PropertyID: f.property.ID, Name: "Standard", MaxOccupancy: 2, BasePrice: decimal.RequireFromString("100.00")}
	f.suite = &models.RoomType{PropertyID: f.property.ID, Name: "Suite", MaxOccupancy: 4, BasePrice: decimal.RequireFromString("300.00")}
	require.NoError(t, db.Create(f.standard).Error)
	require.NoError(t, db.Create(f.suite).Error)

	for _, no := range []string{"103", "101", "102"} {
		room := &models.Room{PropertyID: f.property.ID, RoomTypeID: f.standard.ID, RoomNumber: no, Status: models.RoomStatusCleanReady}
		require.NoError(t, db.Create(room).Error)
		f.rooms = append(f.rooms, room)
	}
	return f
}

func newBooking(f *fixture, no string, status models.BookingStatus, in, out string) *models.Booking {
	return &models.Booking{
		BookingNo:    no,
		PropertyID:   f.property.ID,
		GuestID:      1,
		RoomTypeID:   f.standard.ID,
		CheckInDate:  date(in),
		CheckOutDate: date(out),
		NumGuests:    2,
		TotalAmount:  decimal.RequireFromString("200.00"),
		Currency:     "USD",
		Status:       status,
		Version:      1,
	}
}

// ==================== Store 测试 ====================

func TestStore_InTx_Commit(t *testing.T) {
	db := setupTestDB(t)
	f := seedInventory(t, db)
	store := NewStore(db, nil)
	ctx := context.Background()

	err := store.InTx(ctx, func(uow *UnitOfWork) error {
		b := newBooking(f, "BK20240301AAAAAA", models.BookingStatusPending, "2024-03-01", "2024-03-03")
		if err := uow.Bookings.Create(ctx, b); err != nil {
			return err
		}
		return uow.AuditLogs.Create(ctx, &models.AuditLog{
			Action: models.AuditActionCreate, EntityType: models.AuditEntityBooking, EntityID: b.ID, Timestamp: testNow,
		})
	})
	require.NoError(t, err)

	exists, err := store.Reader().Bookings.ExistsByBookingNo(ctx, "BK20240301AAAAAA")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestStore_InTx_RollbackOnError(t *testing.T) {
	db := setupTestDB(t)
	f := seedInventory(t, db)
	store := NewStore(db, nil)
	ctx := context.Background()
	boom := stderrors.New("boom")

	err := store.InTx(ctx, func(uow *UnitOfWork) error {
		b := newBooking(f, "BK20240301BBBBBB", models.BookingStatusPending, "2024-03-01", "2024-03-03")
		require.NoError(t, uow.Bookings.Create(ctx, b))
		require.NoError(t, uow.Rooms.TransitionStatus(ctx, f.rooms[0].ID,
			[]models.RoomStatus{models.RoomStatusCleanReady}, models.RoomStatusOccupied, testNow))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	exists, err := store.Reader().Bookings.ExistsByBookingNo(ctx, "BK20240301BBBBBB")
	require.NoError(t, err)
	assert.False(t, exists)

	room, err := store.Reader().Rooms.GetByID(ctx, f.rooms[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusCleanReady, room.Status)
}

func TestIsVisibleAndTouch(t *testing.T) {
	room := &models.Room{}
	assert.True(t, IsVisible(room))
	room.SoftDelete(testNow)
	assert.False(t, IsVisible(room))

	var missing *models.Room
	assert.False(t, IsVisible(missing))

	later := testNow.Add(time.Hour)
	Touch(room, later)
	assert.Equal(t, later, room.UpdatedAt)
}

// ==================== 审计日志测试 ====================

func TestAuditLogRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAuditLogRepository(db)
	ctx := context.Background()
	ip := "10.0.0.1"

	for i, action := range []string{models.AuditActionCreate, models.AuditActionConfirm} {
		require.NoError(t, repo.Create(ctx, &models.AuditLog{
			ActorID:    7,
			Action:     action,
			EntityType: models.AuditEntityBooking,
			EntityID:   1,
			Changes:    models.JSON{"status": models.Change(i, i+1)},
			IPAddress:  &ip,
			Timestamp:  testNow,
		}))
	}

	logs, err := repo.ListByEntity(ctx, models.AuditEntityBooking, 1)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, models.AuditActionConfirm, logs[1].Action)
	assert.Equal(t, ip, *logs[0].IPAddress)
	assert.NotNil(t, logs[1].Changes["status"])
}
