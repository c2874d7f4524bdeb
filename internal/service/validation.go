// Package service 发包校验门
package service

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/zhangdayeb/tg-hongbao-go/internal/config"
	"github.com/zhangdayeb/tg-hongbao-go/internal/database/repository"
	"github.com/zhangdayeb/tg-hongbao-go/pkg/money"
)

// ChatKind 发起聊天的类型，由传输层给出
type ChatKind string

const (
	ChatKindPrivate    ChatKind = "private"
	ChatKindGroup      ChatKind = "group"
	ChatKindSuperGroup ChatKind = "supergroup"
)

// CreateRequest 发包请求
type CreateRequest struct {
	SenderTG   int64
	SenderName string
	ChatID     int64
	ChatKind   ChatKind
	BotIsAdmin bool // bot 在该群是否为管理员，由传输层查询
	Amount     int64
	Count      int
	Title      string
	Mode       string
	Custom     []int64 // custom 模式的份额表
	TargetTG   *int64  // 专属红包目标
}

// limits 解析后的金额类配置（分）
type limits struct {
	minAmount       int64
	maxAmount       int64
	minShare        int64
	maxAmountPerDay int64
}

// parseLimits 解析配置中的金额字符串，解析失败回落到安全默认值
func parseLimits(cfg *config.RedPacketConfig) limits {
	parse := func(s string, fallback int64) int64 {
		cents, err := money.Parse(s)
		if err != nil {
			return fallback
		}
		return cents
	}
	return limits{
		minAmount:       parse(cfg.MinAmount, 1),
		maxAmount:       parse(cfg.MaxAmount, 1000000),
		minShare:        parse(cfg.MinShare, 1),
		maxAmountPerDay: parse(cfg.MaxAmountPerDay, 5000000),
	}
}

// Gate 发包校验门
// 按固定顺序执行规则表，第一条未通过的规则短路返回结构化原因
type Gate struct {
	users   *repository.UserRepository
	packets *repository.PacketRepository
	cfg     *config.Config
	lim     limits
	now     func() time.Time
}

// NewGate 创建校验门
func NewGate(users *repository.UserRepository, packets *repository.PacketRepository, cfg *config.Config) *Gate {
	return &Gate{
		users:   users,
		packets: packets,
		cfg:     cfg,
		lim:     parseLimits(&cfg.RedPacket),
		now:     time.Now,
	}
}

// ruleFunc 单条校验规则
type ruleFunc func(g *Gate, req *CreateRequest) *Rejection

// ruleTable 规则注册表，顺序即执行顺序
// 规则种类是编译期封闭的，新增规则在此登记
var ruleTable = []struct {
	kind RuleKind
	fn   ruleFunc
}{
	{RuleBalance, (*Gate).checkBalance},
	{RuleAmountRange, (*Gate).checkAmountRange},
	{RuleCountRange, (*Gate).checkCountRange},
	{RuleChatScope, (*Gate).checkChatScope},
	{RuleQuota, (*Gate).checkQuota},
}

// Validate 依次执行所有规则，全部通过返回 nil
func (g *Gate) Validate(req *CreateRequest) *Rejection {
	for _, rule := range ruleTable {
		if rejection := rule.fn(g, req); rejection != nil {
			rejection.Rule = rule.kind
			return rejection
		}
	}
	return nil
}

// checkBalance 发送者余额必须覆盖总金额
func (g *Gate) checkBalance(req *CreateRequest) *Rejection {
	user, err := g.users.GetByTG(req.SenderTG)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &Rejection{Reason: "请先 /start 初始化账户"}
		}
		return &Rejection{Reason: "查询余额失败，请稍后重试"}
	}
	if user.Balance < req.Amount {
		return &Rejection{
			Reason: fmt.Sprintf("余额不足，当前余额 %s %s",
				money.Format(user.Balance), g.cfg.Money),
			Remaining: user.Balance,
		}
	}
	return nil
}

// checkAmountRange 总金额区间
// 每份实际金额的下限由分配算法保证，这里不要求 amount/count >= minShare
func (g *Gate) checkAmountRange(req *CreateRequest) *Rejection {
	if req.Amount < g.lim.minAmount || req.Amount > g.lim.maxAmount {
		return &Rejection{
			Reason: fmt.Sprintf("金额应在 %s - %s 之间",
				money.Format(g.lim.minAmount), money.Format(g.lim.maxAmount)),
		}
	}
	return nil
}

// checkCountRange 份数区间
func (g *Gate) checkCountRange(req *CreateRequest) *Rejection {
	rp := g.cfg.RedPacket
	if req.Count < rp.MinCount || req.Count > rp.MaxCount {
		return &Rejection{
			Reason: fmt.Sprintf("份数应在 %d - %d 之间", rp.MinCount, rp.MaxCount),
		}
	}
	return nil
}

// checkChatScope 发包场景：仅群组，按需要求 bot 为群管理员
func (g *Gate) checkChatScope(req *CreateRequest) *Rejection {
	rp := g.cfg.RedPacket
	if rp.GroupOnly && req.ChatKind != ChatKindGroup && req.ChatKind != ChatKindSuperGroup {
		return &Rejection{Reason: "红包只能在群组中发送"}
	}
	if rp.RequireBotAdmin && !req.BotIsAdmin {
		return &Rejection{Reason: "bot 需要群管理员权限才能收发红包"}
	}
	return nil
}

// checkQuota 单用户配额：小时次数、当日次数、当日累计金额
func (g *Gate) checkQuota(req *CreateRequest) *Rejection {
	rp := g.cfg.RedPacket
	now := g.now()
	hourAgo := now.Add(-time.Hour)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	nextHour := hourAgo.Add(2 * time.Hour)
	nextDay := dayStart.Add(24 * time.Hour)

	hourCount, err := g.packets.CountCreatedSince(req.SenderTG, hourAgo)
	if err != nil {
		return &Rejection{Reason: "查询配额失败，请稍后重试"}
	}
	if hourCount >= int64(rp.MaxPerHour) {
		return &Rejection{
			Reason:  fmt.Sprintf("每小时最多发 %d 个红包", rp.MaxPerHour),
			ResetAt: &nextHour,
		}
	}

	dayCount, err := g.packets.CountCreatedSince(req.SenderTG, dayStart)
	if err != nil {
		return &Rejection{Reason: "查询配额失败，请稍后重试"}
	}
	if dayCount >= int64(rp.MaxPerDay) {
		return &Rejection{
			Reason:  fmt.Sprintf("每天最多发 %d 个红包", rp.MaxPerDay),
			ResetAt: &nextDay,
		}
	}

	daySum, err := g.packets.SumAmountSince(req.SenderTG, dayStart)
	if err != nil {
		return &Rejection{Reason: "查询配额失败，请稍后重试"}
	}
	if daySum+req.Amount > g.lim.maxAmountPerDay {
		remaining := g.lim.maxAmountPerDay - daySum
		if remaining < 0 {
			remaining = 0
		}
		return &Rejection{
			Reason: fmt.Sprintf("今日发包额度不足，剩余 %s %s",
				money.Format(remaining), g.cfg.Money),
			Remaining: remaining,
			ResetAt:   &nextDay,
		}
	}

	return nil
}
