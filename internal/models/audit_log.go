package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// 审计动作
const (
	AuditActionCreate   = "create"
	AuditActionConfirm  = "confirm"
	AuditActionCheckIn  = "check_in"
	AuditActionCheckOut = "check_out"
	AuditActionCancel   = "cancel"
	AuditActionRefund   = "refund"
	AuditActionUpdate   = "update"
)

// 审计实体类型
const (
	AuditEntityBooking          = "booking"
	AuditEntityRoom             = "room"
	AuditEntityHousekeepingTask = "housekeeping_task"
)

// AuditLog 审计日志，与状态变更同事务写入
type AuditLog struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ActorID    int64     `gorm:"index;not null" json:"actor_id"` // 0 表示系统任务
	Action     string    `gorm:"type:varchar(50);not null" json:"action"`
	EntityType string    `gorm:"type:varchar(50);not null;index:idx_audit_entity,priority:1" json:"entity_type"`
	EntityID   int64     `gorm:"not null;index:idx_audit_entity,priority:2" json:"entity_id"`
	Changes    JSON      `gorm:"type:text" json:"changes,omitempty"`
	IPAddress  *string   `gorm:"type:varchar(64)" json:"ip_address,omitempty"`
	UserAgent  *string   `gorm:"type:varchar(255)" json:"user_agent,omitempty"`
	Timestamp  time.Time `gorm:"not null;index" json:"timestamp"`
}

// TableName 表名
func (AuditLog) TableName() string {
	return "audit_logs"
}

// JSON 自定义 JSON 类型
type JSON map[string]interface{}

// Scan 实现 sql.Scanner 接口
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("models: unsupported JSON source")
	}
	return json.Unmarshal(b, j)
}

// Value 实现 driver.Valuer 接口
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Change 单个字段的变更
func Change(from, to interface{}) map[string]interface{} {
	return map[string]interface{}{"from": from, "to": to}
}
