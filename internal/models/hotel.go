package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Meta 通用字段：时间戳与软删除标记
type Meta struct {
	CreatedAt time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null" json:"updated_at"`
	IsDeleted bool       `gorm:"not null;default:false;index" json:"-"`
	DeletedAt *time.Time `json:"-"`
}

// Visible 未被软删除
func (m *Meta) Visible() bool {
	return !m.IsDeleted
}

// Touch 刷新更新时间
func (m *Meta) Touch(now time.Time) {
	m.UpdatedAt = now
}

// SoftDelete 标记软删除
func (m *Meta) SoftDelete(now time.Time) {
	m.IsDeleted = true
	m.DeletedAt = &now
	m.UpdatedAt = now
}

// Property 酒店门店
type Property struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name     string `gorm:"type:varchar(100);not null" json:"name"`
	Address  string `gorm:"type:varchar(255);not null" json:"address"`
	City     string `gorm:"type:varchar(50);not null;index" json:"city"`
	Country  string `gorm:"type:varchar(50);not null" json:"country"`
	Timezone string `gorm:"type:varchar(50);not null;default:UTC" json:"timezone"`
	IsActive bool   `gorm:"not null;default:true" json:"is_active"`
	Meta

	// 关联
	RoomTypes []RoomType `gorm:"foreignKey:PropertyID" json:"room_types,omitempty"`
}

// TableName 表名
func (Property) TableName() string {
	return "properties"
}

// RoomType 房型，价格按晚计
type RoomType struct {
	ID           int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	PropertyID   int64           `gorm:"index;not null" json:"property_id"`
	Name         string          `gorm:"type:varchar(100);not null" json:"name"`
	Description  *string         `gorm:"type:text" json:"description,omitempty"`
	MaxOccupancy int             `gorm:"not null;default:2" json:"max_occupancy"`
	BasePrice    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"base_price"`
	SizeSqm      *float64        `gorm:"type:decimal(6,2)" json:"size_sqm,omitempty"`
	Meta
}

// TableName 表名
func (RoomType) TableName() string {
	return "room_types"
}

// RoomStatus 房间状态
type RoomStatus string

// 房间状态
const (
	RoomStatusOccupied    RoomStatus = "OCCUPIED"     // 在住
	RoomStatusVacantDirty RoomStatus = "VACANT_DIRTY" // 空脏
	RoomStatusCleanReady  RoomStatus = "CLEAN_READY"  // 空净可售
	RoomStatusOutOfOrder  RoomStatus = "OUT_OF_ORDER" // 维修停用
	RoomStatusInspected   RoomStatus = "INSPECTED"    // 已查房
)

// Valid 是否为已知状态
func (s RoomStatus) Valid() bool {
	switch s {
	case RoomStatusOccupied, RoomStatusVacantDirty, RoomStatusCleanReady,
		RoomStatusOutOfOrder, RoomStatusInspected:
		return true
	}
	return false
}

// Assignable 可分配给入住客人
func (s RoomStatus) Assignable() bool {
	switch s {
	case RoomStatusCleanReady, RoomStatusInspected:
		return true
	case RoomStatusOccupied, RoomStatusVacantDirty, RoomStatusOutOfOrder:
		return false
	}
	return false
}

// Room 实体房间
type Room struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	PropertyID int64      `gorm:"not null;uniqueIndex:uk_room_property_number,priority:1" json:"property_id"`
	RoomTypeID int64      `gorm:"index;not null" json:"room_type_id"`
	RoomNumber string     `gorm:"type:varchar(20);not null;uniqueIndex:uk_room_property_number,priority:2" json:"room_number"`
	Floor      *int       `json:"floor,omitempty"`
	Status     RoomStatus `gorm:"type:varchar(20);not null;default:CLEAN_READY;index" json:"status"`
	Meta
}

// TableName 表名
func (Room) TableName() string {
	return "rooms"
}
