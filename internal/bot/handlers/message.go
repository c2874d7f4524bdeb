// Package handlers 消息处理器
package handlers

import (
	"strings"

	tele "gopkg.in/telebot.v3"
)

// OnText 文本消息入口
// 只有当前聊天存在归属该用户的发包会话时才接管，否则放行
func (h *Handlers) OnText(c tele.Context) error {
	sender := c.Sender()
	chat := c.Chat()
	if sender == nil || chat == nil {
		return nil
	}

	if !h.machine.Active(chat.ID, sender.ID) {
		return nil
	}

	text := strings.TrimSpace(c.Text())
	if text == "" {
		return nil
	}

	reply := h.machine.Advance(chat.ID, sender.ID, text)
	if reply.Created != nil {
		// 会话落包成功，发出红包消息
		return h.SendPacketMessage(c, reply.Created, nil)
	}
	if reply.Prompt == "" {
		return nil
	}
	return c.Send(reply.Prompt, tele.ModeMarkdown)
}

// Cancel /cancel 取消当前发包会话
func (h *Handlers) Cancel(c tele.Context) error {
	sender := c.Sender()
	chat := c.Chat()
	if sender == nil || chat == nil {
		return nil
	}

	if !h.machine.Active(chat.ID, sender.ID) {
		return c.Send("当前没有进行中的发包会话")
	}
	h.machine.Cancel(chat.ID)
	return c.Send("已取消发红包")
}
