// Package repository 入账 outbox 仓库
package repository

import (
	"gorm.io/gorm"

	"github.com/zhangdayeb/tg-hongbao-go/internal/database/models"
)

// OutboxRepository 入账 outbox 仓库
type OutboxRepository struct {
	db *gorm.DB
}

// NewOutboxRepository 创建 outbox 仓库
func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// WithTx 返回绑定到事务的仓库
func (r *OutboxRepository) WithTx(tx *gorm.DB) *OutboxRepository {
	return &OutboxRepository{db: tx}
}

// Create 写入一条待推送入账
func (r *OutboxRepository) Create(entry *models.CreditOutbox) error {
	return r.db.Create(entry).Error
}

// ListPending 列出待推送的入账
func (r *OutboxRepository) ListPending(limit int) ([]models.CreditOutbox, error) {
	var entries []models.CreditOutbox
	err := r.db.Where("status = ?", models.OutboxStatusPending).
		Order("id ASC").Limit(limit).Find(&entries).Error
	return entries, err
}

// MarkSent 标记推送成功
func (r *OutboxRepository) MarkSent(id uint) error {
	return r.db.Model(&models.CreditOutbox{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":   models.OutboxStatusSent,
			"attempts": gorm.Expr("attempts + 1"),
		}).Error
}

// MarkFailure 记录一次推送失败，超过重试上限后置为 failed
func (r *OutboxRepository) MarkFailure(id uint, maxAttempts int, reason string) error {
	err := r.db.Model(&models.CreditOutbox{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": reason,
		}).Error
	if err != nil {
		return err
	}
	return r.db.Model(&models.CreditOutbox{}).
		Where("id = ? AND attempts >= ?", id, maxAttempts).
		Update("status", models.OutboxStatusFailed).Error
}
