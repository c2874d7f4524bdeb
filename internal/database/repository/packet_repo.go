// Package repository 红包数据仓库
package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/zhangdayeb/tg-hongbao-go/internal/database/models"
)

// PacketRepository 红包仓库
type PacketRepository struct {
	db *gorm.DB
}

// NewPacketRepository 创建红包仓库
func NewPacketRepository(db *gorm.DB) *PacketRepository {
	return &PacketRepository{db: db}
}

// WithTx 返回绑定到事务的仓库
func (r *PacketRepository) WithTx(tx *gorm.DB) *PacketRepository {
	return &PacketRepository{db: tx}
}

// Create 创建红包及其份额
func (r *PacketRepository) Create(packet *models.Packet, shares []int64) error {
	if err := r.db.Create(packet).Error; err != nil {
		return err
	}

	rows := make([]models.PacketShare, 0, len(shares))
	for i, amount := range shares {
		rows = append(rows, models.PacketShare{
			PacketID: packet.ID,
			Idx:      i,
			Amount:   amount,
		})
	}
	return r.db.Create(&rows).Error
}

// GetByUUID 根据 UUID 获取红包
func (r *PacketRepository) GetByUUID(uuid string) (*models.Packet, error) {
	var packet models.Packet
	err := r.db.Where("uuid = ?", uuid).First(&packet).Error
	if err != nil {
		return nil, err
	}
	return &packet, nil
}

// GetShare 获取指定序号的份额
func (r *PacketRepository) GetShare(packetID uint, idx int) (*models.PacketShare, error) {
	var share models.PacketShare
	err := r.db.Where("packet_id = ? AND idx = ?", packetID, idx).First(&share).Error
	if err != nil {
		return nil, err
	}
	return &share, nil
}

// ClaimShare 原子占用一个份额
// 仅当该份额仍未被占用时生效，返回是否占用成功
func (r *PacketRepository) ClaimShare(packetID uint, idx int, tg int64) (bool, error) {
	result := r.db.Model(&models.PacketShare{}).
		Where("packet_id = ? AND idx = ? AND claimed_by IS NULL", packetID, idx).
		Update("claimed_by", tg)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// AdvanceCounters 基于版本号 CAS 推进领取计数
// completed 为真时在同一条语句内将状态置为已领完
func (r *PacketRepository) AdvanceCounters(packet *models.Packet, amount int64, completed bool) (bool, error) {
	updates := map[string]interface{}{
		"claimed_count":  gorm.Expr("claimed_count + 1"),
		"claimed_amount": gorm.Expr("claimed_amount + ?", amount),
		"version":        gorm.Expr("version + 1"),
	}
	if completed {
		updates["status"] = models.PacketStatusCompleted
	}

	result := r.db.Model(&models.Packet{}).
		Where("id = ? AND version = ? AND status = ? AND claimed_count < total_count",
			packet.ID, packet.Version, models.PacketStatusActive).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// CreateRecord 写入领取记录
func (r *PacketRepository) CreateRecord(record *models.ClaimRecord) error {
	return r.db.Create(record).Error
}

// GetRecord 获取某用户在某红包上的领取记录
func (r *PacketRepository) GetRecord(packetID uint, tg int64) (*models.ClaimRecord, error) {
	var record models.ClaimRecord
	err := r.db.Where("packet_id = ? AND claimant_tg = ?", packetID, tg).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// CountByAmount 统计红包内领取到指定金额的记录数
// 用于手气最佳的平局判定：最早领到最大份额者胜出
func (r *PacketRepository) CountByAmount(packetID uint, amount int64) (int64, error) {
	var count int64
	err := r.db.Model(&models.ClaimRecord{}).
		Where("packet_id = ? AND amount = ?", packetID, amount).
		Count(&count).Error
	return count, err
}

// ListRecords 按领取顺序列出红包的所有领取记录
func (r *PacketRepository) ListRecords(uuid string) ([]models.ClaimRecord, error) {
	var records []models.ClaimRecord
	err := r.db.Where("packet_uuid = ?", uuid).Order("claim_order ASC").Find(&records).Error
	return records, err
}

// SetStatusFromActive 将进行中的红包置为指定终态
// 返回是否成功流转，终态之间不允许再变更
func (r *PacketRepository) SetStatusFromActive(uuid string, status string) (bool, error) {
	result := r.db.Model(&models.Packet{}).
		Where("uuid = ? AND status = ?", uuid, models.PacketStatusActive).
		Updates(map[string]interface{}{
			"status":  status,
			"version": gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ListExpired 列出已过有效期但仍为进行中的红包
func (r *PacketRepository) ListExpired(now time.Time, limit int) ([]models.Packet, error) {
	var packets []models.Packet
	err := r.db.Where("status = ? AND expires_at < ?", models.PacketStatusActive, now).
		Limit(limit).Find(&packets).Error
	return packets, err
}

// ListClaimsByUser 某用户的领取历史（新到旧）
func (r *PacketRepository) ListClaimsByUser(tg int64, limit int) ([]models.ClaimRecord, error) {
	var records []models.ClaimRecord
	err := r.db.Where("claimant_tg = ?", tg).
		Order("created_at DESC").Limit(limit).Find(&records).Error
	return records, err
}

// ListPacketsBySender 某用户发出的红包（新到旧）
func (r *PacketRepository) ListPacketsBySender(tg int64, limit int) ([]models.Packet, error) {
	var packets []models.Packet
	err := r.db.Where("sender_tg = ?", tg).
		Order("created_at DESC").Limit(limit).Find(&packets).Error
	return packets, err
}

// CountCreatedSince 统计某用户自指定时间以来创建的红包数
func (r *PacketRepository) CountCreatedSince(tg int64, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.Packet{}).
		Where("sender_tg = ? AND created_at >= ?", tg, since).
		Count(&count).Error
	return count, err
}

// SumAmountSince 统计某用户自指定时间以来发出的总金额（分）
func (r *PacketRepository) SumAmountSince(tg int64, since time.Time) (int64, error) {
	var total *int64
	err := r.db.Model(&models.Packet{}).
		Select("SUM(total_amount)").
		Where("sender_tg = ? AND created_at >= ?", tg, since).
		Scan(&total).Error
	if err != nil || total == nil {
		return 0, err
	}
	return *total, nil
}

// SenderStat 发包统计
type SenderStat struct {
	SenderTG    int64  `json:"sender_tg"`
	SenderName  string `json:"sender_name"`
	PacketCount int64  `json:"packet_count"`
	TotalAmount int64  `json:"total_amount"`
}

// TopSenders 发包排行
func (r *PacketRepository) TopSenders(limit int) ([]SenderStat, error) {
	var stats []SenderStat
	err := r.db.Model(&models.Packet{}).
		Select("sender_tg, MAX(sender_name) AS sender_name, COUNT(*) AS packet_count, SUM(total_amount) AS total_amount").
		Group("sender_tg").
		Order("total_amount DESC").
		Limit(limit).
		Scan(&stats).Error
	return stats, err
}
