// Package models 红包数据模型
package models

import (
	"time"
)

// 红包状态
const (
	PacketStatusActive    = "active"    // 进行中
	PacketStatusCompleted = "completed" // 已领完
	PacketStatusExpired   = "expired"   // 已过期
	PacketStatusRevoked   = "revoked"   // 已撤回
)

// 红包类型
const (
	PacketModeRandom  = "random"  // 拼手气
	PacketModeAverage = "average" // 均分
	PacketModeCustom  = "custom"  // 自定义份额
)

// DefaultTitle 默认祝福语
const DefaultTitle = "恭喜发财，大吉大利"

// Packet 红包表
// 金额一律以分存储；Version 用于领取时的乐观锁
type Packet struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID          string    `gorm:"column:uuid;size:36;uniqueIndex" json:"uuid"`
	SenderTG      int64     `gorm:"column:sender_tg;index" json:"sender_tg"`
	SenderName    string    `gorm:"column:sender_name;size:255" json:"sender_name"`
	ChatID        int64     `gorm:"column:chat_id;index" json:"chat_id"` // 红包只能在此群领取
	MessageID     int       `gorm:"column:message_id" json:"message_id"`
	TotalAmount   int64     `gorm:"column:total_amount" json:"total_amount"`
	TotalCount    int       `gorm:"column:total_count" json:"total_count"`
	BestAmount    int64     `gorm:"column:best_amount" json:"best_amount"` // 份额最大值，领取时判定手气最佳用
	Title         string    `gorm:"column:title;size:500" json:"title"`
	Mode          string    `gorm:"column:mode;size:20;default:'random'" json:"mode"`
	ClaimedCount  int       `gorm:"column:claimed_count" json:"claimed_count"`
	ClaimedAmount int64     `gorm:"column:claimed_amount" json:"claimed_amount"`
	TargetTG      *int64    `gorm:"column:target_tg" json:"target_tg,omitempty"` // 专属红包目标用户
	Status        string    `gorm:"column:status;size:20;default:'active';index" json:"status"`
	Version       int64     `gorm:"column:version" json:"version"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"created_at"`
	ExpiresAt     time.Time `gorm:"column:expires_at;index" json:"expires_at"`
}

// TableName 表名
func (Packet) TableName() string {
	return "packets"
}

// IsExpired 是否已过期
func (p *Packet) IsExpired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// RemainCount 剩余份数
func (p *Packet) RemainCount() int {
	return p.TotalCount - p.ClaimedCount
}

// RemainAmount 剩余金额（分）
func (p *Packet) RemainAmount() int64 {
	return p.TotalAmount - p.ClaimedAmount
}

// PacketShare 红包份额表
// 份额在创建时一次性生成并打乱，领取按 idx 顺序原子占位
type PacketShare struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	PacketID  uint   `gorm:"column:packet_id;uniqueIndex:uk_packet_idx" json:"packet_id"`
	Idx       int    `gorm:"column:idx;uniqueIndex:uk_packet_idx" json:"idx"` // 0 起始的领取顺序
	Amount    int64  `gorm:"column:amount" json:"amount"`
	ClaimedBy *int64 `gorm:"column:claimed_by" json:"claimed_by,omitempty"`
}

// TableName 表名
func (PacketShare) TableName() string {
	return "packet_shares"
}

// ClaimRecord 红包领取记录，写入后不可变
// (packet_id, claimant_tg) 唯一索引保证同一用户只能领取一次
type ClaimRecord struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PacketID     uint      `gorm:"column:packet_id;uniqueIndex:uk_packet_claimant" json:"packet_id"`
	PacketUUID   string    `gorm:"column:packet_uuid;size:36;index" json:"packet_uuid"`
	ClaimantTG   int64     `gorm:"column:claimant_tg;uniqueIndex:uk_packet_claimant;index" json:"claimant_tg"`
	ClaimantName string    `gorm:"column:claimant_name;size:255" json:"claimant_name"`
	Amount       int64     `gorm:"column:amount" json:"amount"`
	ClaimOrder   int       `gorm:"column:claim_order" json:"claim_order"` // 1 起始，连续无空洞
	IsBestLuck   bool      `gorm:"column:is_best_luck;default:false" json:"is_best_luck"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName 表名
func (ClaimRecord) TableName() string {
	return "claim_records"
}
