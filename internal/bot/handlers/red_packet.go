// Package handlers 红包处理器
package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"github.com/zhangdayeb/tg-hongbao-go/internal/allocator"
	"github.com/zhangdayeb/tg-hongbao-go/internal/bot/keyboards"
	"github.com/zhangdayeb/tg-hongbao-go/internal/database/models"
	"github.com/zhangdayeb/tg-hongbao-go/internal/service"
	"github.com/zhangdayeb/tg-hongbao-go/pkg/logger"
	"github.com/zhangdayeb/tg-hongbao-go/pkg/money"
)

// Red /red 发红包命令
// 用法:
// - /red <金额> <份数> [祝福语] - 一行发包
// - 回复消息 /red <金额> [祝福语] - 专属红包
// - /red - 进入对话模式逐步填写
func (h *Handlers) Red(c tele.Context) error {
	if !h.cfg.RedPacket.Enabled {
		return c.Send("❌ 红包功能已关闭")
	}

	args := c.Args()

	// 回复某人 + /red 金额 → 专属红包
	if c.Message().ReplyTo != nil && c.Message().ReplyTo.Sender != nil && len(args) >= 1 {
		return h.redExclusive(c, args)
	}

	// 无参数 → 对话模式
	if len(args) == 0 {
		return h.redDialogue(c)
	}

	if len(args) < 2 {
		return c.Send(
			"🧧 **发红包**\n\n"+
				"**一行发包**: `/red <金额> <份数> [祝福语]`\n"+
				"**专属红包**: 回复某人消息并发送 `/red <金额> [祝福语]`\n"+
				"**对话模式**: 直接发送 `/red`\n\n"+
				"示例:\n"+
				"- `/red 50 5` - 发 50 "+h.cfg.Money+"，5 份\n"+
				"- `/red 100 10 恭喜发财` - 带祝福语",
			tele.ModeMarkdown,
		)
	}

	amount, err := money.Parse(args[0])
	if err != nil {
		return c.Send("❌ 金额格式不对，请输入正数，最多两位小数")
	}
	count, err := strconv.Atoi(args[1])
	if err != nil || count < 1 {
		return c.Send("❌ 无效的份数")
	}

	title := ""
	if len(args) > 2 {
		title = strings.Join(args[2:], " ")
	}

	return h.createAndSend(c, &service.CreateRequest{
		SenderTG:   c.Sender().ID,
		SenderName: displayName(c.Sender()),
		ChatID:     c.Chat().ID,
		ChatKind:   chatKind(c.Chat()),
		BotIsAdmin: botIsAdmin(c),
		Amount:     amount,
		Count:      count,
		Title:      title,
		Mode:       models.PacketModeRandom,
	})
}

// redExclusive 专属红包：回复消息指定目标用户，单份
func (h *Handlers) redExclusive(c tele.Context, args []string) error {
	target := c.Message().ReplyTo.Sender
	if target.ID == c.Sender().ID {
		return c.Send("❌ 不能给自己发专属红包")
	}
	if target.IsBot {
		return c.Send("❌ 不能给机器人发红包")
	}

	amount, err := money.Parse(args[0])
	if err != nil {
		return c.Send("❌ 金额格式不对，请输入正数，最多两位小数")
	}

	title := ""
	if len(args) > 1 {
		title = strings.Join(args[1:], " ")
	}

	targetTG := target.ID
	return h.createAndSend(c, &service.CreateRequest{
		SenderTG:   c.Sender().ID,
		SenderName: displayName(c.Sender()),
		ChatID:     c.Chat().ID,
		ChatKind:   chatKind(c.Chat()),
		BotIsAdmin: botIsAdmin(c),
		Amount:     amount,
		Count:      1,
		Title:      title,
		Mode:       models.PacketModeRandom,
		TargetTG:   &targetTG,
	})
}

// redDialogue 进入对话模式
func (h *Handlers) redDialogue(c tele.Context) error {
	reply := h.machine.Start(
		c.Chat().ID,
		c.Sender().ID,
		displayName(c.Sender()),
		string(chatKind(c.Chat())),
		botIsAdmin(c),
	)
	return c.Send(reply.Prompt, tele.ModeMarkdown)
}

// createAndSend 创建红包并发出红包消息
func (h *Handlers) createAndSend(c tele.Context, req *service.CreateRequest) error {
	// 发包防重窗口，拦截连点双发
	if !h.lock.AcquireSend(req.SenderTG, req.Amount, req.Count, req.Title) {
		return c.Send("⏳ 相同的红包刚刚提交过，请稍候")
	}

	result, err := h.packets.Create(req)
	if err != nil {
		// 失败不释放锁，留到自然过期，避免快速重试绕过防重窗口
		return h.sendCreateError(c, err, req.Amount)
	}
	h.lock.ReleaseSend(req.SenderTG, req.Amount, req.Count, req.Title)

	return h.SendPacketMessage(c, result, req.TargetTG)
}

// sendCreateError 发包失败提示
// 用户输入导致的失败直接提示原因，只有意外错误才记日志
func (h *Handlers) sendCreateError(c tele.Context, err error, amount int64) error {
	if msg, expected := createErrorMessage(err); expected {
		return c.Send(msg)
	}
	logger.Error().Err(err).Int64("amount", amount).Msg("发包失败")
	return c.Send("❌ 发红包失败，请稍后重试")
}

// createErrorMessage 把预期内的发包失败映射为用户提示
// 这些失败由用户自行纠正，不算异常
func createErrorMessage(err error) (string, bool) {
	if errors.Is(err, service.ErrRedPacketDisabled) {
		return "❌ 红包功能已关闭", true
	}
	// 金额摊到份数后低于每份下限，错误信息里已带下限
	if errors.Is(err, allocator.ErrInvalidAllocation) {
		return "❌ " + err.Error(), true
	}
	if ve, ok := service.AsValidation(err); ok {
		return "❌ " + ve.Rejection.Reason, true
	}
	return "", false
}

// SendPacketMessage 发出红包消息并回填消息 ID
func (h *Handlers) SendPacketMessage(c tele.Context, result *service.CreateResult, targetTG *int64) error {
	var text string
	if targetTG != nil {
		text = fmt.Sprintf(
			"🧧 **%s 发了一个专属红包**\n\n"+
				"🎯 收件人: [点击查看](tg://user?id=%d)\n"+
				"💰 金额: %s %s\n"+
				"💬 %s",
			displayName(c.Sender()),
			*targetTG,
			money.Format(result.TotalAmount), h.cfg.Money,
			result.Title,
		)
	} else {
		text = fmt.Sprintf(
			"🧧 **%s 发了一个红包**\n\n"+
				"💰 总金额: %s %s\n"+
				"🎁 份数: %d 份\n"+
				"💬 %s",
			displayName(c.Sender()),
			money.Format(result.TotalAmount), h.cfg.Money,
			result.TotalCount,
			result.Title,
		)
	}

	// 删除原命令消息，保持群内整洁
	c.Delete()

	msg, err := c.Bot().Send(c.Chat(), text,
		keyboards.GrabKeyboard(result.UUID, true), tele.ModeMarkdown)
	if err != nil {
		return err
	}
	if err := h.packets.SetMessageID(result.UUID, msg.ID); err != nil {
		logger.Warn().Err(err).Str("uuid", result.UUID).Msg("回填消息 ID 失败")
	}
	return nil
}

// Grab 抢红包回调
func (h *Handlers) Grab(c tele.Context, uuid string) error {
	sender := c.Sender()

	// 抢包防重窗口，拦截近乎同时的重复点击
	if !h.lock.AcquireClaim(uuid, sender.ID) {
		return c.Respond(&tele.CallbackResponse{Text: "⏳ 手速太快啦，稍等一下"})
	}

	result, err := h.packets.Claim(uuid, sender.ID, displayName(sender))
	if err != nil {
		return c.Respond(&tele.CallbackResponse{
			Text:      claimErrorMessage(err),
			ShowAlert: true,
		})
	}
	h.lock.ReleaseClaim(uuid, sender.ID)

	alertText := fmt.Sprintf("🎉 恭喜！抢到 %s %s（第 %d 个）",
		money.Format(result.Amount), h.cfg.Money, result.ClaimOrder)
	if result.IsBestLuck {
		alertText += "\n👑 手气最佳！"
	}
	c.Respond(&tele.CallbackResponse{Text: alertText, ShowAlert: true})

	if result.IsFinished {
		return h.editFinished(c, uuid)
	}
	return h.editPartial(c, uuid, result)
}

// claimErrorMessage 领取失败提示
func claimErrorMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrPacketNotFound):
		return "❌ 红包不存在"
	case errors.Is(err, service.ErrPacketCompleted):
		return "😭 来晚了，红包已被抢完"
	case errors.Is(err, service.ErrPacketExpired):
		return "❌ 红包已过期"
	case errors.Is(err, service.ErrPacketRevoked):
		return "❌ 红包已被撤回"
	case errors.Is(err, service.ErrAlreadyClaimed):
		return "❌ 您已领取过此红包"
	case errors.Is(err, service.ErrSelfClaim):
		return "❌ 不能领取自己的红包"
	case errors.Is(err, service.ErrNotTargetUser):
		return "❌ 这是专属红包，您不是目标用户"
	case errors.Is(err, service.ErrConcurrencyConflict):
		return "⏳ 太火爆了，请再点一次"
	default:
		return "❌ 领取失败，请稍后重试"
	}
}

// editPartial 更新红包消息（还有剩余）
func (h *Handlers) editPartial(c tele.Context, uuid string, result *service.ClaimResult) error {
	text := fmt.Sprintf(
		"🧧 **%s 发了一个红包**\n\n"+
			"💰 总金额: %s %s\n"+
			"🎁 份数: %d 份\n"+
			"📦 剩余: %d 份\n"+
			"💬 %s",
		result.SenderName,
		money.Format(result.TotalAmount), h.cfg.Money,
		result.TotalCount,
		result.RemainCount,
		result.Title,
	)

	// 已有人领取，撤回按钮不再保留
	return c.Edit(text, keyboards.GrabKeyboard(uuid, false), tele.ModeMarkdown)
}

// inlineClaimLimit 群消息里内联展示的领取记录上限
// 超出时截断，其余记录通过详情按钮查看
const inlineClaimLimit = 10

// editFinished 更新红包消息（已抢完），附领取详情
func (h *Handlers) editFinished(c tele.Context, uuid string) error {
	packet, records, err := h.packets.Detail(uuid)
	if err != nil {
		return nil
	}
	if len(records) > inlineClaimLimit {
		return c.Edit(h.renderDetail(packet, records, inlineClaimLimit),
			keyboards.DetailKeyboard(uuid), tele.ModeMarkdown)
	}
	return c.Edit(h.renderDetail(packet, records, 0), keyboards.CloseKeyboard(), tele.ModeMarkdown)
}

// renderDetail 渲染红包详情文本
// limit 大于零时只展示前 limit 条领取记录
func (h *Handlers) renderDetail(packet *models.Packet, records []models.ClaimRecord, limit int) string {
	var sb strings.Builder

	if packet.TargetTG != nil && len(records) > 0 {
		r := records[0]
		sb.WriteString(fmt.Sprintf(
			"🧧 **专属红包已被领取**\n\n"+
				"💰 金额: %s %s\n"+
				"💬 %s\n\n"+
				"🕶️ **%s** 的专属红包已被 [%s](tg://user?id=%d) 领取",
			money.Format(packet.TotalAmount), h.cfg.Money,
			packet.Title,
			packet.SenderName,
			r.ClaimantName, r.ClaimantTG,
		))
		return sb.String()
	}

	header := "已被抢完"
	switch packet.Status {
	case models.PacketStatusExpired:
		header = "已过期"
	case models.PacketStatusRevoked:
		header = "已撤回"
	case models.PacketStatusActive:
		header = "进行中"
	}

	sb.WriteString(fmt.Sprintf(
		"🧧 **%s 的红包%s**\n\n"+
			"💰 总金额: %s %s | 🎁 %d 份\n"+
			"💬 %s\n",
		packet.SenderName, header,
		money.Format(packet.TotalAmount), h.cfg.Money,
		packet.TotalCount,
		packet.Title,
	))

	if len(records) > 0 {
		shown := records
		if limit > 0 && len(records) > limit {
			shown = records[:limit]
		}
		sb.WriteString("\n**领取详情:**\n")
		for _, r := range shown {
			luckyMark := ""
			if r.IsBestLuck {
				luckyMark = " 👑"
			}
			sb.WriteString(fmt.Sprintf("%d. %s: %s %s%s\n",
				r.ClaimOrder, r.ClaimantName,
				money.Format(r.Amount), h.cfg.Money, luckyMark))
		}
		if len(shown) < len(records) {
			sb.WriteString(fmt.Sprintf("… 其余 %d 条点击下方按钮查看\n", len(records)-len(shown)))
		}
	}
	return sb.String()
}

// Detail 红包详情回调
func (h *Handlers) Detail(c tele.Context, uuid string) error {
	packet, records, err := h.packets.Detail(uuid)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "❌ 红包不存在", ShowAlert: true})
	}
	c.Respond(&tele.CallbackResponse{})
	return c.Send(h.renderDetail(packet, records, 0), keyboards.CloseKeyboard(), tele.ModeMarkdown)
}

// RevokePacket 撤回红包回调
func (h *Handlers) RevokePacket(c tele.Context, uuid string) error {
	sender := c.Sender()
	err := h.packets.Revoke(uuid, sender.ID, h.cfg.IsAdmin(sender.ID))
	if err != nil {
		var text string
		switch {
		case errors.Is(err, service.ErrNotPacketSender):
			text = "❌ 只有发包人可以撤回"
		case errors.Is(err, service.ErrPacketHasClaims):
			text = "❌ 已有人领取，无法撤回"
		case errors.Is(err, service.ErrPacketExpired):
			text = "❌ 红包已过期"
		case errors.Is(err, service.ErrPacketRevoked):
			text = "❌ 红包已撤回"
		case errors.Is(err, service.ErrPacketCompleted):
			text = "❌ 红包已领完，无法撤回"
		default:
			text = "❌ 撤回失败，请稍后重试"
		}
		return c.Respond(&tele.CallbackResponse{Text: text, ShowAlert: true})
	}

	c.Respond(&tele.CallbackResponse{Text: "↩️ 红包已撤回，金额已退还"})
	return c.Edit("🧧 红包已被发包人撤回", tele.ModeMarkdown)
}
