// Package keyboards 键盘按钮
package keyboards

import (
	"fmt"

	tele "gopkg.in/telebot.v3"
)

// GrabKeyboard 抢红包键盘
// canRevoke 时附带撤回按钮（无人领取前发包人可撤回）
func GrabKeyboard(uuid string, canRevoke bool) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	rows := []tele.Row{
		markup.Row(
			markup.Data("🧧 抢红包", fmt.Sprintf("grab_red:%s", uuid)),
		),
	}
	if canRevoke {
		rows = append(rows, markup.Row(
			markup.Data("↩️ 撤回", fmt.Sprintf("revoke_red:%s", uuid)),
		))
	}

	markup.Inline(rows...)
	return markup
}

// DetailKeyboard 红包详情键盘
func DetailKeyboard(uuid string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.Inline(
		markup.Row(
			markup.Data("📋 领取详情", fmt.Sprintf("detail_red:%s", uuid)),
		),
	)
	return markup
}

// StartKeyboard 私聊开始面板
func StartKeyboard() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.Inline(
		markup.Row(
			markup.Data("💰 我的余额", "my"),
			markup.Data("📜 红包记录", "history"),
		),
	)
	return markup
}

// CloseKeyboard 关闭键盘
func CloseKeyboard() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.Inline(
		markup.Row(
			markup.Data("❌ 关闭", "close"),
		),
	)
	return markup
}
