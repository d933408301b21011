package repository

import "github.com/dumeirei/hotel-inventory/internal/models"

// Models 需要迁移的模型
func Models() []interface{} {
	return []interface{}{
		&models.Property{},
		&models.RoomType{},
		&models.Room{},
		&models.Booking{},
		&models.HousekeepingTask{},
		&models.AuditLog{},
	}
}
