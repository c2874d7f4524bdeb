// Package scheduler 定时任务调度
package scheduler

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/zhangdayeb/tg-hongbao-go/internal/config"
	"github.com/zhangdayeb/tg-hongbao-go/internal/database/repository"
	"github.com/zhangdayeb/tg-hongbao-go/internal/platform"
	"github.com/zhangdayeb/tg-hongbao-go/internal/service"
	"github.com/zhangdayeb/tg-hongbao-go/pkg/logger"
)

// 单轮处理上限与推送重试上限
const (
	expireBatchSize = 200
	outboxBatchSize = 100
	outboxMaxTries  = 5
)

// Scheduler 定时任务调度器
type Scheduler struct {
	cron     *gocron.Scheduler
	cfg      *config.Config
	packets  *service.PacketService
	outbox   *repository.OutboxRepository
	platform *platform.Client
}

// New 创建调度器
func New(cfg *config.Config, packets *service.PacketService, outbox *repository.OutboxRepository) *Scheduler {
	loc, _ := time.LoadLocation("Asia/Shanghai")
	cron := gocron.NewScheduler(loc)
	cron.SetMaxConcurrentJobs(2, gocron.RescheduleMode)

	s := &Scheduler{
		cron:    cron,
		cfg:     cfg,
		packets: packets,
		outbox:  outbox,
	}
	if cfg.Platform.Enabled {
		s.platform = platform.NewClient(&cfg.Platform)
	}
	return s
}

// Start 启动调度器
func (s *Scheduler) Start() {
	logger.Info().Msg("启动定时任务调度器")

	// 过期扫描 - 每分钟，与领取路径上的惰性过期互为补充
	s.cron.Every(1).Minute().Do(s.sweepExpired)

	// 平台入账推送 - 每 30 秒
	if s.cfg.Platform.Enabled {
		s.cron.Every(30).Seconds().Do(s.flushOutbox)
		logger.Info().Msg("已注册: 平台入账推送任务")
	}

	s.cron.StartAsync()
}

// Stop 停止调度器
func (s *Scheduler) Stop() {
	logger.Info().Msg("停止定时任务调度器")
	s.cron.Stop()
}

// sweepExpired 过期扫描任务
func (s *Scheduler) sweepExpired() {
	expired, err := s.packets.ExpireOverdue(expireBatchSize)
	if err != nil {
		logger.Error().Err(err).Msg("过期扫描失败")
		return
	}
	if expired > 0 {
		logger.Info().Int("expired", expired).Msg("过期红包处理完成")
	}
}

// flushOutbox 推送待入账条目到平台账务
func (s *Scheduler) flushOutbox() {
	entries, err := s.outbox.ListPending(outboxBatchSize)
	if err != nil {
		logger.Error().Err(err).Msg("读取待推送入账失败")
		return
	}

	for _, entry := range entries {
		ref := fmt.Sprintf("%s:%d", entry.PacketUUID, entry.ClaimantTG)
		if err := s.platform.Credit(ref, entry.ClaimantTG, entry.Amount); err != nil {
			logger.Warn().Err(err).
				Uint("id", entry.ID).
				Int("attempts", entry.Attempts+1).
				Msg("入账推送失败")
			if markErr := s.outbox.MarkFailure(entry.ID, outboxMaxTries, err.Error()); markErr != nil {
				logger.Error().Err(markErr).Uint("id", entry.ID).Msg("记录推送失败状态出错")
			}
			continue
		}
		if err := s.outbox.MarkSent(entry.ID); err != nil {
			logger.Error().Err(err).Uint("id", entry.ID).Msg("标记推送成功出错")
		}
	}
}
