package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/dumeirei/hotel-inventory/internal/models"
)

// AuditLogRepository 审计日志仓储
type AuditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository 创建审计日志仓储
func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// Create 写入审计日志
func (r *AuditLogRepository) Create(ctx context.Context, log *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// ListByEntity 获取实体的审计记录，按时间正序
func (r *AuditLogRepository) ListByEntity(ctx context.Context, entityType string, entityID int64) ([]*models.AuditLog, error) {
	var logs []*models.AuditLog
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("id ASC").
		Find(&logs).Error
	return logs, err
}
