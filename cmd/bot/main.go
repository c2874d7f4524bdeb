// TG 红包 Bot
// Telegram 群组红包收发与账务
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/zhangdayeb/tg-hongbao-go/internal/bot"
	"github.com/zhangdayeb/tg-hongbao-go/internal/config"
	"github.com/zhangdayeb/tg-hongbao-go/internal/database"
	"github.com/zhangdayeb/tg-hongbao-go/internal/database/repository"
	"github.com/zhangdayeb/tg-hongbao-go/internal/scheduler"
	"github.com/zhangdayeb/tg-hongbao-go/internal/service"
	"github.com/zhangdayeb/tg-hongbao-go/internal/web"
	"github.com/zhangdayeb/tg-hongbao-go/pkg/logger"
)

var (
	configPath = flag.String("config", "config.json", "配置文件路径")
	debug      = flag.Bool("debug", false, "调试模式")
)

func main() {
	flag.Parse()

	logger.Init(*debug)
	logger.Info().Msg("🧧 红包 Bot 启动中...")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("加载配置失败")
	}
	// 保存配置文件路径，用于热重载
	config.SetConfigPath(*configPath)
	logger.Info().Msg("✅ 配置加载完成")

	if err := database.Init(&cfg.Database); err != nil {
		logger.Fatal().Err(err).Msg("初始化数据库失败")
	}
	defer database.Close()
	logger.Info().Msg("✅ 数据库连接成功")

	db := database.GetDB()
	packets := service.NewPacketService(db, cfg)

	sched := scheduler.New(cfg, packets, repository.NewOutboxRepository(db))
	sched.Start()
	defer sched.Stop()
	logger.Info().Msg("✅ 定时任务调度器启动")

	webServer := web.New(&cfg.API, packets)
	go func() {
		if err := webServer.Start(); err != nil {
			logger.Error().Err(err).Msg("Web API 服务启动失败")
		}
	}()
	defer webServer.Stop()

	tgBot, err := bot.New(cfg, db, packets)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化 Telegram Bot 失败")
	}
	logger.Info().Str("bot", cfg.BotName).Msg("✅ Telegram Bot 初始化完成")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go tgBot.Run()

	logger.Info().Msg("🚀 红包 Bot 启动成功!")
	logger.Info().Msg("按 Ctrl+C 停止...")

	<-quit

	logger.Info().Msg("正在关闭服务...")
	tgBot.Shutdown()
	logger.Info().Msg("👋 再见!")
}
