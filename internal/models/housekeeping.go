package models

import "time"

// 清洁任务类型
const (
	TaskTypeCleaning    = "cleaning"
	TaskTypeInspection  = "inspection"
	TaskTypeMaintenance = "maintenance"
)

// 清洁任务优先级
const (
	TaskPriorityLow    = "low"
	TaskPriorityNormal = "normal"
	TaskPriorityHigh   = "high"
	TaskPriorityUrgent = "urgent"
)

// 清洁任务状态
const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
)

// HousekeepingTask 客房清洁任务
type HousekeepingTask struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	RoomID     int64      `gorm:"index;not null" json:"room_id"`
	BookingID  *int64     `gorm:"index" json:"booking_id,omitempty"`
	AssignedTo *int64     `json:"assigned_to,omitempty"`
	TaskType   string     `gorm:"type:varchar(20);not null" json:"task_type"`
	Priority   string     `gorm:"type:varchar(10);not null;default:normal" json:"priority"`
	Status     string     `gorm:"type:varchar(20);not null;default:pending;index" json:"status"`
	StartTime  *time.Time `json:"start_time,omitempty"`
	EndTime    *time.Time `json:"end_time,omitempty"`
	Notes      *string    `gorm:"type:text" json:"notes,omitempty"`
	Meta

	// 关联
	Room *Room `gorm:"foreignKey:RoomID" json:"room,omitempty"`
}

// TableName 表名
func (HousekeepingTask) TableName() string {
	return "housekeeping_tasks"
}

// DurationMinutes 已完成任务的耗时（分钟），未完成返回 nil
func (t *HousekeepingTask) DurationMinutes() *int {
	if t.StartTime == nil || t.EndTime == nil {
		return nil
	}
	m := int(t.EndTime.Sub(*t.StartTime).Minutes())
	return &m
}

// ValidTaskType 任务类型是否合法
func ValidTaskType(t string) bool {
	switch t {
	case TaskTypeCleaning, TaskTypeInspection, TaskTypeMaintenance:
		return true
	}
	return false
}

// ValidTaskPriority 优先级是否合法
func ValidTaskPriority(p string) bool {
	switch p {
	case TaskPriorityLow, TaskPriorityNormal, TaskPriorityHigh, TaskPriorityUrgent:
		return true
	}
	return false
}
