// Package conversation 发包会话状态机
package conversation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/zhangdayeb/tg-hongbao-go/internal/allocator"
	"github.com/zhangdayeb/tg-hongbao-go/internal/config"
	"github.com/zhangdayeb/tg-hongbao-go/internal/database/models"
	"github.com/zhangdayeb/tg-hongbao-go/internal/service"
	"github.com/zhangdayeb/tg-hongbao-go/pkg/money"
)

// 会话里识别的控制指令
const (
	TokenSkip    = "跳过"
	TokenConfirm = "确认"
	TokenCancel  = "取消"
)

// maxTitleRunes 祝福语长度上限
const maxTitleRunes = 64

// Creator 落包能力，由红包服务实现
type Creator interface {
	Create(req *service.CreateRequest) (*service.CreateResult, error)
}

// Reply 状态机对一次输入的答复
// Invalid 为真表示输入有问题、阶段未推进，Prompt 是针对该字段的纠错提示
type Reply struct {
	Stage   Stage
	Prompt  string
	Invalid bool
	Created *service.CreateResult
}

// Machine 发包会话状态机
// 状态持久在注入的 Store 中，落包能力通过 Creator 注入
type Machine struct {
	store   *Store
	creator Creator
	cfg     *config.Config
}

// NewMachine 创建状态机
func NewMachine(store *Store, creator Creator, cfg *config.Config) *Machine {
	return &Machine{store: store, creator: creator, cfg: cfg}
}

// Start 进入发包会话
// 同一聊天同时只允许一个会话；他人会话进行中时拒绝进入
func (m *Machine) Start(chatID, actorTG int64, actorName, chatKind string, botIsAdmin bool) Reply {
	if existing := m.store.Get(chatID); existing != nil && existing.ActorTG != actorTG {
		return Reply{
			Stage:   existing.Stage,
			Invalid: true,
			Prompt:  "已有其他用户正在发红包，请稍后再试",
		}
	}

	m.store.Put(chatID, &Session{
		Stage:      StageAwaitingAmount,
		ActorTG:    actorTG,
		ActorName:  actorName,
		ChatKind:   chatKind,
		BotIsAdmin: botIsAdmin,
	})

	return Reply{
		Stage: StageAwaitingAmount,
		Prompt: fmt.Sprintf("💰 请输入红包总金额（%s，例如 50 或 8.88）\n发送 取消 退出",
			m.cfg.Money),
	}
}

// Active 当前聊天是否有归属指定用户的会话
func (m *Machine) Active(chatID, actorTG int64) bool {
	session := m.store.Get(chatID)
	return session != nil && session.ActorTG == actorTG
}

// Cancel 取消会话
func (m *Machine) Cancel(chatID int64) {
	m.store.Clear(chatID)
}

// Advance 推进一轮对话
// 会话不存在或输入者不是会话归属人时静默忽略
func (m *Machine) Advance(chatID, actorTG int64, input string) Reply {
	session := m.store.Get(chatID)
	if session == nil || session.ActorTG != actorTG {
		return Reply{Stage: StageIdle}
	}

	input = strings.TrimSpace(input)
	if input == TokenCancel {
		m.store.Clear(chatID)
		return Reply{Stage: StageIdle, Prompt: "已取消发红包"}
	}

	switch session.Stage {
	case StageAwaitingAmount:
		return m.onAmount(chatID, session, input)
	case StageAwaitingCount:
		return m.onCount(chatID, session, input)
	case StageAwaitingTitle:
		return m.onTitle(chatID, session, input)
	case StageAwaitingConfirm:
		return m.onConfirm(chatID, session, input)
	default:
		return Reply{Stage: StageIdle}
	}
}

// onAmount 金额轮：只校验金额本身
func (m *Machine) onAmount(chatID int64, session *Session, input string) Reply {
	// 纠错回退后草稿可能已完整，允许直接确认
	if input == TokenConfirm && session.Draft.Amount > 0 && session.Draft.Count > 0 {
		return m.finalize(chatID, session)
	}

	amount, err := money.Parse(input)
	if err != nil {
		return Reply{
			Stage:   session.Stage,
			Invalid: true,
			Prompt:  "❌ 金额格式不对，请输入正数，最多两位小数",
		}
	}

	lo, hi := m.amountRange()
	if amount < lo || amount > hi {
		return Reply{
			Stage:   session.Stage,
			Invalid: true,
			Prompt: fmt.Sprintf("❌ 金额应在 %s - %s 之间",
				money.Format(lo), money.Format(hi)),
		}
	}

	session.Draft.Amount = amount
	session.Stage = StageAwaitingCount
	m.store.Put(chatID, session)

	return Reply{
		Stage: StageAwaitingCount,
		Prompt: fmt.Sprintf("🎁 金额 %s %s\n请输入红包份数（%d-%d）",
			money.Format(amount), m.cfg.Money,
			m.cfg.RedPacket.MinCount, m.cfg.RedPacket.MaxCount),
	}
}

// onCount 份数轮：只校验份数本身
func (m *Machine) onCount(chatID int64, session *Session, input string) Reply {
	if input == TokenConfirm && session.Draft.Count > 0 {
		return m.finalize(chatID, session)
	}

	count, err := strconv.Atoi(input)
	if err != nil || count < m.cfg.RedPacket.MinCount || count > m.cfg.RedPacket.MaxCount {
		return Reply{
			Stage:   session.Stage,
			Invalid: true,
			Prompt: fmt.Sprintf("❌ 份数应为 %d-%d 的整数",
				m.cfg.RedPacket.MinCount, m.cfg.RedPacket.MaxCount),
		}
	}

	session.Draft.Count = count
	session.Stage = StageAwaitingTitle
	m.store.Put(chatID, session)

	return Reply{
		Stage:  StageAwaitingTitle,
		Prompt: "💬 请输入祝福语，或发送 跳过 使用默认祝福语",
	}
}

// onTitle 祝福语轮
// 发送确认指令可以跳过确认轮直接落包
func (m *Machine) onTitle(chatID int64, session *Session, input string) Reply {
	if input == TokenConfirm || strings.EqualFold(input, "ok") {
		return m.finalize(chatID, session)
	}

	if input != TokenSkip {
		if len([]rune(input)) > maxTitleRunes {
			return Reply{
				Stage:   session.Stage,
				Invalid: true,
				Prompt:  fmt.Sprintf("❌ 祝福语最长 %d 个字符", maxTitleRunes),
			}
		}
		session.Draft.Title = input
	}

	session.Stage = StageAwaitingConfirm
	m.store.Put(chatID, session)

	title := session.Draft.Title
	if title == "" {
		title = models.DefaultTitle
	}
	return Reply{
		Stage: StageAwaitingConfirm,
		Prompt: fmt.Sprintf(
			"🧧 即将发出红包\n金额: %s %s\n份数: %d\n祝福语: %s\n\n发送 确认 发出，发送 取消 放弃",
			money.Format(session.Draft.Amount), m.cfg.Money,
			session.Draft.Count, title),
	}
}

// onConfirm 确认轮
func (m *Machine) onConfirm(chatID int64, session *Session, input string) Reply {
	if input == TokenConfirm || strings.EqualFold(input, "ok") {
		return m.finalize(chatID, session)
	}
	return Reply{
		Stage:   session.Stage,
		Invalid: true,
		Prompt:  "请发送 确认 发出红包，或发送 取消 放弃",
	}
}

// finalize 落包
// 完整校验在红包服务内再跑一遍（余额可能在对话期间变化）；
// 失败时保留草稿，用户纠正指定字段即可，无需从头再来
func (m *Machine) finalize(chatID int64, session *Session) Reply {
	req := &service.CreateRequest{
		SenderTG:   session.ActorTG,
		SenderName: session.ActorName,
		ChatID:     chatID,
		ChatKind:   service.ChatKind(session.ChatKind),
		BotIsAdmin: session.BotIsAdmin,
		Amount:     session.Draft.Amount,
		Count:      session.Draft.Count,
		Title:      session.Draft.Title,
		Mode:       models.PacketModeRandom,
	}

	result, err := m.creator.Create(req)
	if err != nil {
		if ve, ok := service.AsValidation(err); ok {
			return m.rejectToReply(chatID, session, ve)
		}
		if errors.Is(err, allocator.ErrInvalidAllocation) {
			// 金额均摊到份数后低于每份下限，回到金额轮让用户改金额
			session.Stage = StageAwaitingAmount
			m.store.Put(chatID, session)
			return Reply{
				Stage:   StageAwaitingAmount,
				Invalid: true,
				Prompt:  "❌ " + err.Error() + "，请重新输入金额",
			}
		}
		return Reply{
			Stage:   session.Stage,
			Invalid: true,
			Prompt:  "❌ " + err.Error(),
		}
	}

	m.store.Clear(chatID)
	return Reply{
		Stage:   StageIdle,
		Created: result,
	}
}

// rejectToReply 把校验失败映射回需要纠正的字段
func (m *Machine) rejectToReply(chatID int64, session *Session, ve *service.ValidationError) Reply {
	switch ve.Rejection.Rule {
	case service.RuleAmountRange, service.RuleBalance:
		session.Stage = StageAwaitingAmount
	case service.RuleCountRange:
		session.Stage = StageAwaitingCount
	default:
		// 群组权限或配额问题改不了草稿，直接结束会话
		m.store.Clear(chatID)
		return Reply{
			Stage:   StageIdle,
			Invalid: true,
			Prompt:  "❌ " + ve.Rejection.Reason,
		}
	}

	m.store.Put(chatID, session)
	return Reply{
		Stage:   session.Stage,
		Invalid: true,
		Prompt:  "❌ " + ve.Rejection.Reason + "，请重新输入",
	}
}

// amountRange 金额区间（分）
func (m *Machine) amountRange() (int64, int64) {
	lo, err := money.Parse(m.cfg.RedPacket.MinAmount)
	if err != nil {
		lo = money.MustParse("0.01")
	}
	hi, err := money.Parse(m.cfg.RedPacket.MaxAmount)
	if err != nil {
		hi = money.MustParse("10000.00")
	}
	return lo, hi
}
