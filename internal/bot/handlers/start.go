// Package handlers 用户命令处理器
package handlers

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"github.com/zhangdayeb/tg-hongbao-go/internal/bot/keyboards"
	"github.com/zhangdayeb/tg-hongbao-go/pkg/money"
)

// Start /start 初始化账户
func (h *Handlers) Start(c tele.Context) error {
	sender := c.Sender()
	user, err := h.users.GetOrCreate(sender.ID, displayName(sender))
	if err != nil {
		return c.Send("❌ 初始化账户失败，请稍后重试")
	}

	text := fmt.Sprintf(
		"👋 你好，%s！\n\n"+
			"我是 %s 的红包助手。\n"+
			"💰 当前余额: %s %s\n\n"+
			"在群里发送 /red 即可发红包：\n"+
			"`/red 金额 份数 [祝福语]` 一行发包\n"+
			"`/red` 进入对话模式逐步填写",
		displayName(sender),
		h.cfg.BotName,
		money.Format(user.Balance), h.cfg.Money,
	)
	return c.Send(text, keyboards.StartKeyboard(), tele.ModeMarkdown)
}

// My /my 查询余额
func (h *Handlers) My(c tele.Context) error {
	sender := c.Sender()
	user, err := h.users.GetOrCreate(sender.ID, displayName(sender))
	if err != nil {
		return c.Send("❌ 查询失败，请稍后重试")
	}

	return c.Send(fmt.Sprintf("💰 当前余额: %s %s",
		money.Format(user.Balance), h.cfg.Money))
}

// History /history 红包收发记录
func (h *Handlers) History(c tele.Context) error {
	sender := c.Sender()

	claims, err := h.packets.UserClaims(sender.ID, 10)
	if err != nil {
		return c.Send("❌ 查询失败，请稍后重试")
	}
	sent, err := h.packets.UserPackets(sender.ID, 10)
	if err != nil {
		return c.Send("❌ 查询失败，请稍后重试")
	}

	var sb strings.Builder
	sb.WriteString("📜 **红包记录**\n\n")

	sb.WriteString("**最近领取:**\n")
	if len(claims) == 0 {
		sb.WriteString("（暂无）\n")
	}
	for _, record := range claims {
		mark := ""
		if record.IsBestLuck {
			mark = " 👑"
		}
		sb.WriteString(fmt.Sprintf("· %s %s%s  %s\n",
			money.Format(record.Amount), h.cfg.Money, mark,
			record.CreatedAt.Format("01-02 15:04")))
	}

	sb.WriteString("\n**最近发出:**\n")
	if len(sent) == 0 {
		sb.WriteString("（暂无）\n")
	}
	for _, packet := range sent {
		sb.WriteString(fmt.Sprintf("· %s %s × %d 份  [%s]  %s\n",
			money.Format(packet.TotalAmount), h.cfg.Money,
			packet.TotalCount, statusLabel(packet.Status),
			packet.CreatedAt.Format("01-02 15:04")))
	}

	return c.Send(sb.String(), keyboards.CloseKeyboard(), tele.ModeMarkdown)
}

// statusLabel 红包状态中文标签
func statusLabel(status string) string {
	switch status {
	case "active":
		return "进行中"
	case "completed":
		return "已领完"
	case "expired":
		return "已过期"
	case "revoked":
		return "已撤回"
	default:
		return status
	}
}
