package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookingStatus 预订状态
type BookingStatus string

// 预订状态
const (
	BookingStatusPending    BookingStatus = "PENDING"     // 待确认
	BookingStatusConfirmed  BookingStatus = "CONFIRMED"   // 已确认
	BookingStatusCheckedIn  BookingStatus = "CHECKED_IN"  // 已入住
	BookingStatusCheckedOut BookingStatus = "CHECKED_OUT" // 已退房
	BookingStatusCancelled  BookingStatus = "CANCELLED"   // 已取消
)

// Valid 是否为已知状态
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCheckedIn,
		BookingStatusCheckedOut, BookingStatusCancelled:
		return true
	}
	return false
}

// Active 占用库存的状态
func (s BookingStatus) Active() bool {
	switch s {
	case BookingStatusConfirmed, BookingStatusCheckedIn:
		return true
	case BookingStatusPending, BookingStatusCheckedOut, BookingStatusCancelled:
		return false
	}
	return false
}

// ActiveBookingStatuses 计入可用房量扣减的状态
var ActiveBookingStatuses = []BookingStatus{BookingStatusConfirmed, BookingStatusCheckedIn}

// RefundStatus 取消后的退款进度
type RefundStatus string

// 退款状态
const (
	RefundStatusNone     RefundStatus = "NONE"     // 无需退款
	RefundStatusPending  RefundStatus = "PENDING"  // 取消已提交，等待网关受理
	RefundStatusRefunded RefundStatus = "REFUNDED" // 网关已受理
)

// BookingEvent 预订生命周期事件
type BookingEvent string

// 预订事件
const (
	BookingEventCreate   BookingEvent = "create"
	BookingEventConfirm  BookingEvent = "confirm"
	BookingEventCheckIn  BookingEvent = "check_in"
	BookingEventCheckOut BookingEvent = "check_out"
	BookingEventCancel   BookingEvent = "cancel"
)

// BookingTransition 状态转换表，from 为空表示新建
func BookingTransition(from BookingStatus, event BookingEvent) (BookingStatus, bool) {
	switch event {
	case BookingEventCreate:
		if from == "" {
			return BookingStatusPending, true
		}
	case BookingEventConfirm:
		if from == BookingStatusPending {
			return BookingStatusConfirmed, true
		}
	case BookingEventCheckIn:
		if from == BookingStatusConfirmed {
			return BookingStatusCheckedIn, true
		}
	case BookingEventCheckOut:
		if from == BookingStatusCheckedIn {
			return BookingStatusCheckedOut, true
		}
	case BookingEventCancel:
		switch from {
		case BookingStatusPending, BookingStatusConfirmed:
			return BookingStatusCancelled, true
		case BookingStatusCheckedIn, BookingStatusCheckedOut, BookingStatusCancelled:
			return "", false
		}
	}
	return "", false
}

// DateRange 半开日期区间 [CheckIn, CheckOut)
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// Valid 离店日期晚于入住日期
func (r DateRange) Valid() bool {
	return r.CheckOut.After(r.CheckIn)
}

// Nights 入住晚数
func (r DateRange) Nights() int {
	if !r.Valid() {
		return 0
	}
	return int(r.CheckOut.Sub(r.CheckIn).Hours() / 24)
}

// Overlaps 两个区间是否重叠，首尾相接不算重叠
func (r DateRange) Overlaps(o DateRange) bool {
	return r.CheckIn.Before(o.CheckOut) && o.CheckIn.Before(r.CheckOut)
}

// Booking 预订
type Booking struct {
	ID                 int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	BookingNo          string          `gorm:"column:booking_number;type:varchar(32);uniqueIndex;not null" json:"booking_number"`
	PropertyID         int64           `gorm:"index;not null" json:"property_id"`
	GuestID            int64           `gorm:"index;not null" json:"guest_id"`
	RoomTypeID         int64           `gorm:"not null;index:idx_booking_type_dates,priority:1" json:"room_type_id"`
	RoomID             *int64          `gorm:"index" json:"room_id,omitempty"`
	CheckInDate        time.Time       `gorm:"type:date;not null;index:idx_booking_type_dates,priority:2" json:"check_in_date"`
	CheckOutDate       time.Time       `gorm:"type:date;not null;index:idx_booking_type_dates,priority:3" json:"check_out_date"`
	ActualCheckIn      *time.Time      `json:"actual_check_in,omitempty"`
	ActualCheckOut     *time.Time      `json:"actual_check_out,omitempty"`
	NumGuests          int             `gorm:"not null;default:1" json:"num_guests"`
	SpecialRequests    *string         `gorm:"type:text" json:"special_requests,omitempty"`
	TotalAmount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	Currency           string          `gorm:"type:varchar(3);not null;default:USD" json:"currency"`
	Status             BookingStatus   `gorm:"type:varchar(20);not null;index" json:"status"`
	CancellationReason *string         `gorm:"type:varchar(255)" json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time      `json:"cancelled_at,omitempty"`
	CancellationCharge decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"cancellation_charge"`
	RefundAmount       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"refund_amount"`
	RefundStatus       RefundStatus    `gorm:"type:varchar(16);not null;default:NONE;index" json:"refund_status"`
	RefundID           *string         `gorm:"type:varchar(64)" json:"refund_id,omitempty"`
	Version            int             `gorm:"not null;default:1" json:"version"`
	Meta

	// 关联
	RoomType *RoomType `gorm:"foreignKey:RoomTypeID" json:"room_type,omitempty"`
	Room     *Room     `gorm:"foreignKey:RoomID" json:"room,omitempty"`
}

// TableName 表名
func (Booking) TableName() string {
	return "bookings"
}

// Range 预订日期区间
func (b *Booking) Range() DateRange {
	return DateRange{CheckIn: b.CheckInDate, CheckOut: b.CheckOutDate}
}
