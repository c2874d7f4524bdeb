// Package models 入账 outbox 模型
package models

import (
	"time"
)

// outbox 状态
const (
	OutboxStatusPending = "pending" // 待推送
	OutboxStatusSent    = "sent"    // 已推送
	OutboxStatusFailed  = "failed"  // 超过重试次数
)

// CreditOutbox 平台入账 outbox
// 平台账务桥接启用时，领取入账先在领取事务内落一条 outbox，
// 再由定时任务推送到平台接口，保证包侧扣减与入账不脱节
type CreditOutbox struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PacketUUID string    `gorm:"column:packet_uuid;size:36;index" json:"packet_uuid"`
	ClaimantTG int64     `gorm:"column:claimant_tg;index" json:"claimant_tg"`
	Amount     int64     `gorm:"column:amount" json:"amount"`
	Attempts   int       `gorm:"column:attempts" json:"attempts"`
	Status     string    `gorm:"column:status;size:20;default:'pending';index" json:"status"`
	LastError  string    `gorm:"column:last_error;size:500" json:"last_error"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName 表名
func (CreditOutbox) TableName() string {
	return "credit_outbox"
}
