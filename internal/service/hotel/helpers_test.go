// Package hotel 客房库存与预订生命周期单元测试
package hotel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/hotel-inventory/internal/common/config"
	"github.com/dumeirei/hotel-inventory/internal/models"
	"github.com/dumeirei/hotel-inventory/internal/repository"
	"github.com/dumeirei/hotel-inventory/internal/service/notify"
	"github.com/dumeirei/hotel-inventory/pkg/payment"
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

	require.NoError(t, repository.AutoMigrate(db))
	return db
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// testClock 可拨动的测试时钟
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: testNow}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// recordingSink 记录入队的领域事件
type recordingSink struct {
	mu     sync.Mutex
	events []*notify.Event
}

func (s *recordingSink) Enqueue(events ...*notify.Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return len(events)
}

func (s *recordingSink) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

// failingGateway 始终失败的退款网关
type failingGateway struct{}

func (failingGateway) Refund(context.Context, *payment.RefundRequest) (*payment.RefundResult, error) {
	return nil, errors.New("gateway unavailable")
}

// fixture 一个营业中的门店：标准间两间（102、101），套房一间（301）
type fixture struct {
	property *models.Property
	standard *models.RoomType
	suite    *models.RoomType
	room101  *models.Room
	room102  *models.Room
	room301  *models.Room
}

func seedInventory(t *testing.T, db *gorm.DB) *fixture {
	f := &fixture{}
	f.property = &models.Property{Name: "海景酒店", Address: "滨海路 1 号", City: "厦门", Country: "CN", Timezone: "UTC", IsActive: true}
	require.NoError(t, db.Create(f.property).Error)

	f.standard = &models.RoomType{PropertyID: f.property.ID, Name: "Standard", MaxOccupancy: 2, BasePrice: money("100.00")}
	f.suite = &models.RoomType{PropertyID: f.property.ID, Name: "Suite", MaxOccupancy: 4, BasePrice: money("300.00")}
	require.NoError(t, db.Create(f.standard).Error)
	require.NoError(t, db.Create(f.suite).Error)

	f.room102 = addRoom(t, db, f.property.ID, f.standard.ID, "102", models.RoomStatusCleanReady)
	f.room101 = addRoom(t, db, f.property.ID, f.standard.ID, "101", models.RoomStatusCleanReady)
	f.room301 = addRoom(t, db, f.property.ID, f.suite.ID, "301", models.RoomStatusCleanReady)
	return f
}

func addRoom(t *testing.T, db *gorm.DB, propertyID, roomTypeID int64, number string, status models.RoomStatus) *models.Room {
	room := &models.Room{PropertyID: propertyID, RoomTypeID: roomTypeID, RoomNumber: number, Status: status}
	require.NoError(t, db.Create(room).Error)
	return room
}

var bookingSeq atomic.Int64

// insertBooking 直接写入一条预订，绕过生命周期校验
func insertBooking(t *testing.T, db *gorm.DB, f *fixture, roomType *models.RoomType, status models.BookingStatus, in, out string) *models.Booking {
	b := &models.Booking{
		BookingNo:    fmt.Sprintf("BKTEST%08d", bookingSeq.Add(1)),
		PropertyID:   f.property.ID,
		GuestID:      1,
		RoomTypeID:   roomType.ID,
		CheckInDate:  date(in),
		CheckOutDate: date(out),
		NumGuests:    1,
		TotalAmount:  money("200.00"),
		Currency:     "USD",
		Status:       status,
		Version:      1,
	}
	require.NoError(t, db.Create(b).Error)
	return b
}

// testEnv 预订服务及其协作者
type testEnv struct {
	db      *gorm.DB
	store   *repository.Store
	f       *fixture
	clock   *testClock
	sink    *recordingSink
	gateway *payment.MockGateway
	booking *BookingService
	avail   *AvailabilityService
	tasks   *HousekeepingService
}

func setupEnv(t *testing.T) *testEnv {
	db := setupTestDB(t)
	store := repository.NewStore(db, nil)
	env := &testEnv{
		db:      db,
		store:   store,
		f:       seedInventory(t, db),
		clock:   newTestClock(),
		sink:    &recordingSink{},
		gateway: payment.NewMockGateway(&payment.Config{}, zap.NewNop()),
	}

	env.booking = NewBookingService(store, env.sink, env.gateway, nil, &config.BookingConfig{
		MaxTxRetries:   3,
		RetryBackoffMs: 1,
		LockTTL:        1,
	})
	env.booking.SetClock(env.clock.Now)
	env.booking.SetLogger(zap.NewNop())

	env.avail = NewAvailabilityService(store, nil, nil)
	env.avail.SetClock(env.clock.Now)

	env.tasks = NewHousekeepingService(store, nil)
	env.tasks.SetClock(env.clock.Now)
	return env
}

func (e *testEnv) createRequest(roomType *models.RoomType, in, out string, guests int) *CreateBookingRequest {
	return &CreateBookingRequest{
		PropertyID: e.f.property.ID,
		RoomTypeID: roomType.ID,
		GuestID:    42,
		CheckIn:    date(in),
		CheckOut:   date(out),
		NumGuests:  guests,
	}
}

// confirmed 创建并确认一条预订
func (e *testEnv) confirmed(t *testing.T, roomType *models.RoomType, in, out string) *BookingInfo {
	ctx := context.Background()
	created, err := e.booking.CreateBooking(ctx, 7, e.createRequest(roomType, in, out, 1))
	require.NoError(t, err)
	info, err := e.booking.ConfirmBooking(ctx, 7, created.ID)
	require.NoError(t, err)
	return info
}

func (e *testEnv) reloadBooking(t *testing.T, id int64) *models.Booking {
	var b models.Booking
	require.NoError(t, e.db.First(&b, id).Error)
	return &b
}

func (e *testEnv) reloadRoom(t *testing.T, id int64) *models.Room {
	var r models.Room
	require.NoError(t, e.db.First(&r, id).Error)
	return &r
}
