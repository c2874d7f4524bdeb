// Package handlers 排行榜处理器
package handlers

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/zhangdayeb/tg-hongbao-go/pkg/imggen"
	"github.com/zhangdayeb/tg-hongbao-go/pkg/logger"
	"github.com/zhangdayeb/tg-hongbao-go/pkg/money"
)

// Rank /rank 发包排行榜
// 开启图片榜单时生成图片卡片，否则回落到文字榜
func (h *Handlers) Rank(c tele.Context) error {
	stats, err := h.packets.TopSenders(10)
	if err != nil {
		return c.Send("❌ 查询排行榜失败")
	}
	if len(stats) == 0 {
		return c.Send("📊 还没有人发过红包，快来抢沙发")
	}

	if h.cfg.Ranks.Enabled {
		items := make([]imggen.RankData, 0, len(stats))
		for i, stat := range stats {
			items = append(items, imggen.RankData{
				Rank:        i + 1,
				Username:    stat.SenderName,
				PacketCount: stat.PacketCount,
				TotalAmount: money.Format(stat.TotalAmount),
			})
		}

		image, err := imggen.GenerateLeaderboard(imggen.LeaderboardConfig{
			Title:       "红包英雄榜",
			Subtitle:    "累计发包金额排行",
			Money:       h.cfg.Money,
			FontPath:    h.cfg.Ranks.FontPath,
			Items:       items,
			GeneratedAt: time.Now(),
		})
		if err == nil {
			photo := &tele.Photo{File: tele.FromReader(bytes.NewReader(image))}
			return c.Send(photo)
		}
		logger.Warn().Err(err).Msg("生成榜单图片失败，回落到文字榜")
	}

	var sb strings.Builder
	sb.WriteString("🏆 **红包英雄榜**\n\n")
	for i, stat := range stats {
		medal := fmt.Sprintf("%d.", i+1)
		switch i {
		case 0:
			medal = "🥇"
		case 1:
			medal = "🥈"
		case 2:
			medal = "🥉"
		}
		sb.WriteString(fmt.Sprintf("%s %s - %d 个 / %s %s\n",
			medal, stat.SenderName, stat.PacketCount,
			money.Format(stat.TotalAmount), h.cfg.Money))
	}
	return c.Send(sb.String(), tele.ModeMarkdown)
}
