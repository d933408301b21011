// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/hotel-inventory/internal/common/database"
)

// ErrStaleWrite 条件更新未命中
var ErrStaleWrite = database.ErrStaleWrite

// Visible 可软删除的实体
type Visible interface {
	Visible() bool
}

// Touchable 可刷新更新时间的实体
type Touchable interface {
	Touch(now time.Time)
}

// IsVisible 实体存在且未被软删除
func IsVisible(e Visible) bool {
	return e != nil && e.Visible()
}

// Touch 刷新实体更新时间
func Touch(e Touchable, now time.Time) {
	e.Touch(now)
}

// UnitOfWork 一次事务内可用的仓储集合，所有读写共用同一个事务句柄
type UnitOfWork struct {
	tx *gorm.DB

	Properties   *PropertyRepository
	RoomTypes    *RoomTypeRepository
	Rooms        *RoomRepository
	Bookings     *BookingRepository
	Housekeeping *HousekeepingRepository
	AuditLogs    *AuditLogRepository
}

func newUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{
		tx:           db,
		Properties:   NewPropertyRepository(db),
		RoomTypes:    NewRoomTypeRepository(db),
		Rooms:        NewRoomRepository(db),
		Bookings:     NewBookingRepository(db),
		Housekeeping: NewHousekeepingRepository(db),
		AuditLogs:    NewAuditLogRepository(db),
	}
}

// DB 返回底层句柄
func (u *UnitOfWork) DB() *gorm.DB {
	return u.tx
}

// Store 事务边界
type Store struct {
	db     *gorm.DB
	txOpts *sql.TxOptions
	reader *UnitOfWork
}

// NewStore 创建 Store，txOpts 为 nil 时使用数据库默认隔离级别
func NewStore(db *gorm.DB, txOpts *sql.TxOptions) *Store {
	return &Store{db: db, txOpts: txOpts, reader: newUnitOfWork(db)}
}

// DB 返回底层连接
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Reader 非事务读
func (s *Store) Reader() *UnitOfWork {
	return s.reader
}

// InTx 在事务中执行 fn，fn 返回错误或 panic 时整体回滚
func (s *Store) InTx(ctx context.Context, fn func(uow *UnitOfWork) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newUnitOfWork(tx))
	}, s.txOpts)
}

// AutoMigrate 迁移全部表结构
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
