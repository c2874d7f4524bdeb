// Package bot Telegram Bot 核心
package bot

import (
	"time"

	"github.com/patrickmn/go-cache"
	tele "gopkg.in/telebot.v3"
	"gorm.io/gorm"

	"github.com/zhangdayeb/tg-hongbao-go/internal/bot/handlers"
	"github.com/zhangdayeb/tg-hongbao-go/internal/bot/middleware"
	"github.com/zhangdayeb/tg-hongbao-go/internal/config"
	"github.com/zhangdayeb/tg-hongbao-go/internal/conversation"
	"github.com/zhangdayeb/tg-hongbao-go/internal/database/repository"
	"github.com/zhangdayeb/tg-hongbao-go/internal/locker"
	"github.com/zhangdayeb/tg-hongbao-go/internal/service"
	"github.com/zhangdayeb/tg-hongbao-go/pkg/logger"
)

// Bot Telegram Bot 实例
type Bot struct {
	*tele.Bot
	cfg      *config.Config
	sessions *conversation.Store
}

// New 创建 Bot 实例并完成依赖装配
func New(cfg *config.Config, db *gorm.DB, packets *service.PacketService) (*Bot, error) {
	pref := tele.Settings{
		Token:  cfg.BotToken,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			logger.Error().Err(err).Msg("Bot 错误")
		},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, err
	}

	rp := cfg.RedPacket
	store := cache.New(5*time.Minute, 10*time.Minute)
	lock := locker.New(store,
		time.Duration(rp.SendLockSeconds)*time.Second,
		time.Duration(rp.ClaimLockSeconds)*time.Second)

	sessions := conversation.NewStore(time.Duration(rp.DialogTTLMinutes) * time.Minute)
	machine := conversation.NewMachine(sessions, packets, cfg)

	h := handlers.New(cfg, packets, repository.NewUserRepository(db), machine, lock)

	bot := &Bot{
		Bot:      b,
		cfg:      cfg,
		sessions: sessions,
	}
	bot.registerMiddleware()
	bot.registerHandlers(h)
	bot.setCommands()

	return bot, nil
}

// registerMiddleware 注册中间件
func (b *Bot) registerMiddleware() {
	b.Use(middleware.Logger())
	b.Use(middleware.Recover())
	b.Use(middleware.RateLimit(b.cfg, 30))
}

// registerHandlers 注册处理器
func (b *Bot) registerHandlers(h *handlers.Handlers) {
	b.Handle("/start", h.Start)
	b.Handle("/my", h.My)
	b.Handle("/history", h.History)
	b.Handle("/rank", h.Rank)
	b.Handle("/cancel", h.Cancel)

	// /red 仅群组可用
	redGroup := b.Group()
	redGroup.Use(middleware.GroupOnly())
	redGroup.Handle("/red", h.Red)

	// 管理命令仅限管理员私聊使用
	adminGroup := b.Group()
	adminGroup.Use(middleware.PrivateOnly(), middleware.AdminOnly(b.cfg))
	adminGroup.Handle("/red_switch", h.RedSwitch)
	adminGroup.Handle("/red_limit", h.RedLimit)

	b.Handle(tele.OnText, h.OnText)
	b.Handle(tele.OnCallback, h.OnCallback)
}

// setCommands 设置命令列表
func (b *Bot) setCommands() {
	commands := []tele.Command{
		{Text: "start", Description: "初始化账户"},
		{Text: "red", Description: "发红包"},
		{Text: "my", Description: "查询余额"},
		{Text: "history", Description: "红包记录"},
		{Text: "rank", Description: "发包排行榜"},
		{Text: "cancel", Description: "取消当前操作"},
	}
	if err := b.SetCommands(commands); err != nil {
		logger.Warn().Err(err).Msg("设置命令列表失败")
	}
}

// Run 启动 Bot（阻塞）
func (b *Bot) Run() {
	logger.Info().Str("bot", b.Me.Username).Msg("Bot 启动")
	b.Start()
}

// Shutdown 停止 Bot
func (b *Bot) Shutdown() {
	b.sessions.Close()
	b.Stop()
}
