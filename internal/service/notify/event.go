// Package notify 提供领域事件的异步投递
package notify

import (
	"time"

	"github.com/google/uuid"
)

// 事件类型
const (
	EventBookingCreated    = "booking.created"
	EventBookingConfirmed  = "booking.confirmed"
	EventBookingCheckedIn  = "booking.checked_in"
	EventBookingCheckedOut = "booking.checked_out"
	EventBookingCancelled  = "booking.cancelled"
	EventTaskCreated       = "housekeeping.task_created"
)

// Event 领域事件
type Event struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	OccurredAt time.Time              `json:"occurred_at"`
	PropertyID int64                  `json:"property_id"`
	BookingID  int64                  `json:"booking_id,omitempty"`
	BookingNo  string                 `json:"booking_number,omitempty"`
	RoomID     *int64                 `json:"room_id,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

// NewEvent 创建事件
func NewEvent(eventType string, propertyID int64, occurredAt time.Time) *Event {
	return &Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: occurredAt.UTC(),
		PropertyID: propertyID,
	}
}

// With 附加业务数据
func (e *Event) With(key string, value interface{}) *Event {
	if e.Data == nil {
		e.Data = make(map[string]interface{})
	}
	e.Data[key] = value
	return e
}
