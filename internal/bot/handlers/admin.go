package handlers

import (
	"fmt"

	tele "gopkg.in/telebot.v3"

	"github.com/zhangdayeb/tg-hongbao-go/internal/config"
	"github.com/zhangdayeb/tg-hongbao-go/pkg/logger"
	"github.com/zhangdayeb/tg-hongbao-go/pkg/money"
)

// RedSwitch /red_switch 开关红包功能
// 切换结果热更新并写回配置文件，重启后依然生效
func (h *Handlers) RedSwitch(c tele.Context) error {
	var enabled bool
	if err := config.Update(func(cfg *config.Config) {
		cfg.RedPacket.Enabled = !cfg.RedPacket.Enabled
		enabled = cfg.RedPacket.Enabled
	}); err != nil {
		logger.Error().Err(err).Msg("保存配置失败")
		return c.Send("❌ 配置保存失败，请检查日志")
	}

	logger.Info().
		Int64("operator", c.Sender().ID).
		Bool("enabled", enabled).
		Msg("红包开关已切换")

	if enabled {
		return c.Send("✅ 红包功能已开启")
	}
	return c.Send("🚫 红包功能已关闭")
}

// RedLimit /red_limit <最小金额> <最大金额> 调整发包金额区间
// 改动影响所有群，仅 Owner 可用
func (h *Handlers) RedLimit(c tele.Context) error {
	if !h.cfg.IsOwner(c.Sender().ID) {
		return c.Send("❌ 只有 Owner 可以调整金额区间")
	}

	args := c.Args()
	if len(args) != 2 {
		return c.Send("用法: /red_limit <最小金额> <最大金额>")
	}
	lo, err := money.Parse(args[0])
	if err != nil {
		return c.Send("❌ 最小金额格式不对，请输入正数，最多两位小数")
	}
	hi, err := money.Parse(args[1])
	if err != nil {
		return c.Send("❌ 最大金额格式不对，请输入正数，最多两位小数")
	}
	if hi < lo {
		return c.Send("❌ 最大金额不能小于最小金额")
	}

	if err := config.Update(func(cfg *config.Config) {
		cfg.RedPacket.MinAmount = args[0]
		cfg.RedPacket.MaxAmount = args[1]
	}); err != nil {
		logger.Error().Err(err).Msg("保存配置失败")
		return c.Send("❌ 配置保存失败，请检查日志")
	}

	return c.Send(fmt.Sprintf("✅ 金额区间已调整为 %s - %s %s",
		money.Format(lo), money.Format(hi), h.cfg.Money))
}
