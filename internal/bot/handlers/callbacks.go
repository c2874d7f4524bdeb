// Package handlers 回调处理器
package handlers

import (
	"strings"

	tele "gopkg.in/telebot.v3"

	"github.com/zhangdayeb/tg-hongbao-go/pkg/logger"
)

// OnCallback 回调查询入口
// telebot v3 的 Data() 生成的回调格式是 "\f{unique}|{data}"，需要去掉 \f 前缀
func (h *Handlers) OnCallback(c tele.Context) error {
	data := c.Callback().Data
	if len(data) > 0 && data[0] == '\f' {
		data = data[1:]
	}

	action := data
	param := ""
	if idx := strings.IndexByte(data, ':'); idx >= 0 {
		action = data[:idx]
		param = data[idx+1:]
	}

	logger.Debug().Str("action", action).Str("param", param).Msg("收到回调")

	switch action {
	case "grab_red":
		return h.Grab(c, param)
	case "revoke_red":
		return h.RevokePacket(c, param)
	case "detail_red":
		return h.Detail(c, param)
	case "my":
		c.Respond(&tele.CallbackResponse{})
		return h.My(c)
	case "history":
		c.Respond(&tele.CallbackResponse{})
		return h.History(c)
	case "close":
		c.Respond(&tele.CallbackResponse{})
		return c.Delete()
	default:
		return c.Respond(&tele.CallbackResponse{Text: "未知操作"})
	}
}
