// Package service 红包服务
package service

import (
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zhangdayeb/tg-hongbao-go/internal/allocator"
	"github.com/zhangdayeb/tg-hongbao-go/internal/config"
	"github.com/zhangdayeb/tg-hongbao-go/internal/database/models"
	"github.com/zhangdayeb/tg-hongbao-go/internal/database/repository"
	"github.com/zhangdayeb/tg-hongbao-go/pkg/logger"
)

// maxClaimRetries 领取 CAS 冲突的内部重试上限
const maxClaimRetries = 3

// PacketService 红包服务
// 所有依赖注入进来，测试可替换为内存 sqlite 与固定随机源
type PacketService struct {
	db      *gorm.DB
	packets *repository.PacketRepository
	users   *repository.UserRepository
	outbox  *repository.OutboxRepository
	gate    *Gate
	alloc   *allocator.Allocator
	cfg     *config.Config
	now     func() time.Time
}

// NewPacketService 创建红包服务
func NewPacketService(db *gorm.DB, cfg *config.Config) *PacketService {
	users := repository.NewUserRepository(db)
	packets := repository.NewPacketRepository(db)
	return &PacketService{
		db:      db,
		packets: packets,
		users:   users,
		outbox:  repository.NewOutboxRepository(db),
		gate:    NewGate(users, packets, cfg),
		alloc:   allocator.New(rand.NewSource(time.Now().UnixNano())),
		cfg:     cfg,
		now:     time.Now,
	}
}

// CreateResult 发包结果
type CreateResult struct {
	UUID        string
	TotalAmount int64
	TotalCount  int
	Title       string
	ExpiresAt   time.Time
}

// Create 创建红包
// 校验 → 分配份额 → 在单个事务内扣款并落包
func (s *PacketService) Create(req *CreateRequest) (*CreateResult, error) {
	if !s.cfg.RedPacket.Enabled {
		return nil, ErrRedPacketDisabled
	}
	if req.TargetTG != nil && !s.cfg.RedPacket.AllowExclusive {
		return nil, &ValidationError{Rejection: Rejection{
			Rule:   RuleChatScope,
			Reason: "专属红包功能未开启",
		}}
	}

	if rejection := s.gate.Validate(req); rejection != nil {
		return nil, &ValidationError{Rejection: *rejection}
	}

	minShare := parseLimits(&s.cfg.RedPacket).minShare
	shares, err := s.alloc.Allocate(req.Amount, req.Count, allocator.Mode(req.Mode), minShare, req.Custom)
	if err != nil {
		return nil, err
	}

	best := shares[0]
	for _, amount := range shares[1:] {
		if amount > best {
			best = amount
		}
	}

	title := req.Title
	if title == "" {
		title = models.DefaultTitle
	}

	now := s.now()
	packet := &models.Packet{
		UUID:        uuid.New().String(),
		SenderTG:    req.SenderTG,
		SenderName:  req.SenderName,
		ChatID:      req.ChatID,
		TotalAmount: req.Amount,
		TotalCount:  req.Count,
		BestAmount:  best,
		Title:       title,
		Mode:        req.Mode,
		TargetTG:    req.TargetTG,
		Status:      models.PacketStatusActive,
		CreatedAt:   now,
		ExpiresAt:   now.Add(time.Duration(s.cfg.RedPacket.PacketTTLHours) * time.Hour),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		debited, err := s.users.WithTx(tx).Debit(req.SenderTG, req.Amount)
		if err != nil {
			return err
		}
		if !debited {
			// 校验与扣款之间余额可能已被并发消耗
			return &ValidationError{Rejection: Rejection{
				Rule:   RuleBalance,
				Reason: "余额不足",
			}}
		}
		return s.packets.WithTx(tx).Create(packet, shares)
	})
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("uuid", packet.UUID).
		Int64("sender", req.SenderTG).
		Int64("amount", req.Amount).
		Int("count", req.Count).
		Str("mode", req.Mode).
		Msg("红包创建成功")

	return &CreateResult{
		UUID:        packet.UUID,
		TotalAmount: packet.TotalAmount,
		TotalCount:  packet.TotalCount,
		Title:       packet.Title,
		ExpiresAt:   packet.ExpiresAt,
	}, nil
}

// SetMessageID 红包消息发出后回填消息 ID，供后续编辑
func (s *PacketService) SetMessageID(uuid string, messageID int) error {
	return s.db.Model(&models.Packet{}).
		Where("uuid = ?", uuid).
		Update("message_id", messageID).Error
}

// ClaimResult 领取结果
type ClaimResult struct {
	Amount      int64
	ClaimOrder  int
	IsBestLuck  bool
	IsFinished  bool
	TotalAmount int64
	TotalCount  int
	RemainCount int
	SenderName  string
	Title       string
}

// Claim 领取红包
// CAS 冲突在内部做有限次重试，其余错误一律直接返回；
// 重复领取靠领取记录的唯一索引兜底，对调用方表现为 ErrAlreadyClaimed
func (s *PacketService) Claim(packetUUID string, claimantTG int64, claimantName string) (*ClaimResult, error) {
	var lastErr error
	for attempt := 0; attempt < maxClaimRetries; attempt++ {
		result, err := s.tryClaim(packetUUID, claimantTG, claimantName)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, ErrConcurrencyConflict) {
			return nil, err
		}
		lastErr = err
	}
	logger.Warn().
		Str("uuid", packetUUID).
		Int64("claimant", claimantTG).
		Msg("领取重试次数耗尽")
	return nil, lastErr
}

// tryClaim 单次领取尝试，整体运行在一个数据库事务内
func (s *PacketService) tryClaim(packetUUID string, claimantTG int64, claimantName string) (*ClaimResult, error) {
	var (
		result  *ClaimResult
		expired bool
	)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		packets := s.packets.WithTx(tx)
		users := s.users.WithTx(tx)

		packet, err := packets.GetByUUID(packetUUID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPacketNotFound
			}
			return err
		}

		switch packet.Status {
		case models.PacketStatusCompleted:
			return ErrPacketCompleted
		case models.PacketStatusExpired:
			return ErrPacketExpired
		case models.PacketStatusRevoked:
			return ErrPacketRevoked
		}

		// 惰性过期：下一次领取触发状态流转与退款
		// 流转与退款必须随事务提交，错误在事务外再报给调用方
		if packet.IsExpired(s.now()) {
			expired = true
			return s.expireLocked(tx, packet)
		}

		if packet.SenderTG == claimantTG && !s.cfg.RedPacket.AllowSelfClaim {
			return ErrSelfClaim
		}
		if packet.TargetTG != nil && *packet.TargetTG != claimantTG {
			return ErrNotTargetUser
		}

		existing, err := packets.GetRecord(packet.ID, claimantTG)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrAlreadyClaimed
		}

		// 份额按打乱后的 idx 顺序弹出，领取顺序与金额无关
		idx := packet.ClaimedCount
		share, err := packets.GetShare(packet.ID, idx)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPacketCompleted
			}
			return err
		}

		popped, err := packets.ClaimShare(packet.ID, idx, claimantTG)
		if err != nil {
			return err
		}
		if !popped {
			return ErrConcurrencyConflict
		}

		completed := packet.ClaimedCount+1 == packet.TotalCount
		advanced, err := packets.AdvanceCounters(packet, share.Amount, completed)
		if err != nil {
			return err
		}
		if !advanced {
			return ErrConcurrencyConflict
		}

		// 手气最佳在领取时即可判定：份额等于最大值且此前无人领到该值
		isBest := false
		if share.Amount == packet.BestAmount {
			earlier, err := packets.CountByAmount(packet.ID, packet.BestAmount)
			if err != nil {
				return err
			}
			isBest = earlier == 0
		}

		claimOrder := packet.ClaimedCount + 1
		record := &models.ClaimRecord{
			PacketID:     packet.ID,
			PacketUUID:   packet.UUID,
			ClaimantTG:   claimantTG,
			ClaimantName: claimantName,
			Amount:       share.Amount,
			ClaimOrder:   claimOrder,
			IsBestLuck:   isBest,
			CreatedAt:    s.now(),
		}
		if err := packets.CreateRecord(record); err != nil {
			// 唯一索引兜底：并发的同人重复领取走到这里
			if dup, checkErr := packets.GetRecord(packet.ID, claimantTG); checkErr == nil && dup != nil {
				return ErrAlreadyClaimed
			}
			return err
		}

		// 入账与包侧扣减同事务：本地余额直接加，平台桥接走 outbox
		if s.cfg.Platform.Enabled {
			entry := &models.CreditOutbox{
				PacketUUID: packet.UUID,
				ClaimantTG: claimantTG,
				Amount:     share.Amount,
				Status:     models.OutboxStatusPending,
				CreatedAt:  s.now(),
			}
			if err := s.outbox.WithTx(tx).Create(entry); err != nil {
				return err
			}
		} else {
			if err := users.Credit(claimantTG, share.Amount); err != nil {
				return err
			}
		}

		result = &ClaimResult{
			Amount:      share.Amount,
			ClaimOrder:  claimOrder,
			IsBestLuck:  isBest,
			IsFinished:  completed,
			TotalAmount: packet.TotalAmount,
			TotalCount:  packet.TotalCount,
			RemainCount: packet.TotalCount - claimOrder,
			SenderName:  packet.SenderName,
			Title:       packet.Title,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, ErrPacketExpired
	}

	logger.Info().
		Str("uuid", packetUUID).
		Int64("claimant", claimantTG).
		Int64("amount", result.Amount).
		Int("order", result.ClaimOrder).
		Bool("best_luck", result.IsBestLuck).
		Msg("红包领取成功")

	return result, nil
}

// expireLocked 在事务内将红包置为过期并退还未领金额
func (s *PacketService) expireLocked(tx *gorm.DB, packet *models.Packet) error {
	flipped, err := s.packets.WithTx(tx).SetStatusFromActive(packet.UUID, models.PacketStatusExpired)
	if err != nil {
		return err
	}
	if !flipped {
		// 已被并发流转，退款由流转方负责
		return nil
	}

	if remain := packet.RemainAmount(); remain > 0 {
		if err := s.users.WithTx(tx).Credit(packet.SenderTG, remain); err != nil {
			return err
		}
		logger.Info().
			Str("uuid", packet.UUID).
			Int64("refund", remain).
			Msg("红包过期退款")
	}
	return nil
}

// ExpireOverdue 过期扫描：将过了有效期的红包置为过期并退款
// 与领取路径上的惰性过期互为补充，由定时任务驱动
func (s *PacketService) ExpireOverdue(limit int) (int, error) {
	overdue, err := s.packets.ListExpired(s.now(), limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range overdue {
		packet := overdue[i]
		err := s.db.Transaction(func(tx *gorm.DB) error {
			return s.expireLocked(tx, &packet)
		})
		if err != nil {
			logger.Error().Err(err).Str("uuid", packet.UUID).Msg("过期处理失败")
			continue
		}
		expired++
	}
	return expired, nil
}

// Revoke 撤回红包
// 仅发包人（或管理员）可撤回，且必须还没有任何人领取
func (s *PacketService) Revoke(packetUUID string, actorTG int64, isAdmin bool) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		packets := s.packets.WithTx(tx)

		packet, err := packets.GetByUUID(packetUUID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPacketNotFound
			}
			return err
		}
		if packet.SenderTG != actorTG && !isAdmin {
			return ErrNotPacketSender
		}
		if packet.Status != models.PacketStatusActive {
			switch packet.Status {
			case models.PacketStatusExpired:
				return ErrPacketExpired
			case models.PacketStatusRevoked:
				return ErrPacketRevoked
			default:
				return ErrPacketCompleted
			}
		}
		if packet.ClaimedCount > 0 {
			return ErrPacketHasClaims
		}

		flipped, err := packets.SetStatusFromActive(packetUUID, models.PacketStatusRevoked)
		if err != nil {
			return err
		}
		if !flipped {
			return ErrConcurrencyConflict
		}

		if err := s.users.WithTx(tx).Credit(packet.SenderTG, packet.TotalAmount); err != nil {
			return err
		}

		logger.Info().
			Str("uuid", packetUUID).
			Int64("actor", actorTG).
			Int64("refund", packet.TotalAmount).
			Msg("红包已撤回")
		return nil
	})
}

// Detail 红包详情与领取记录（按领取顺序）
func (s *PacketService) Detail(packetUUID string) (*models.Packet, []models.ClaimRecord, error) {
	packet, err := s.packets.GetByUUID(packetUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrPacketNotFound
		}
		return nil, nil, err
	}

	records, err := s.packets.ListRecords(packetUUID)
	if err != nil {
		return nil, nil, err
	}
	return packet, records, nil
}

// UserClaims 用户领取历史
func (s *PacketService) UserClaims(tg int64, limit int) ([]models.ClaimRecord, error) {
	return s.packets.ListClaimsByUser(tg, limit)
}

// UserPackets 用户发包历史
func (s *PacketService) UserPackets(tg int64, limit int) ([]models.Packet, error) {
	return s.packets.ListPacketsBySender(tg, limit)
}

// TopSenders 发包排行
func (s *PacketService) TopSenders(limit int) ([]repository.SenderStat, error) {
	return s.packets.TopSenders(limit)
}
