// Package web Web API 服务
package web

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/zhangdayeb/tg-hongbao-go/internal/config"
	"github.com/zhangdayeb/tg-hongbao-go/internal/service"
	pkglogger "github.com/zhangdayeb/tg-hongbao-go/pkg/logger"
	"github.com/zhangdayeb/tg-hongbao-go/pkg/money"
)

// Server Web 服务器
// 只读查询接口，所有变更仍走 bot 路径
type Server struct {
	app       *fiber.App
	cfg       *config.APIConfig
	packets   *service.PacketService
	startTime time.Time
}

// New 创建 Web 服务器
func New(cfg *config.APIConfig, packets *service.PacketService) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	app.Use(logger.New())

	origins := "*"
	if len(cfg.AllowOrigins) > 0 {
		origins = strings.Join(cfg.AllowOrigins, ",")
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	server := &Server{
		app:       app,
		cfg:       cfg,
		packets:   packets,
		startTime: time.Now(),
	}
	server.registerRoutes()
	return server
}

// registerRoutes 注册路由
func (s *Server) registerRoutes() {
	s.app.Get("/health", s.healthCheck)
	s.app.Get("/", s.healthCheck)

	v1 := s.app.Group("/api/v1")
	v1.Get("/packet/:uuid", s.getPacket)
	v1.Get("/user/:tg/claims", s.getUserClaims)
	v1.Get("/user/:tg/packets", s.getUserPackets)
	v1.Get("/stats/top", s.getTopSenders)
}

// Start 启动服务器
func (s *Server) Start() error {
	if !s.cfg.Enabled {
		pkglogger.Info().Msg("【API服务】未启用，跳过...")
		return nil
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	pkglogger.Info().Str("addr", addr).Msg("【API服务】启动中...")
	return s.app.Listen(addr)
}

// Stop 停止服务器
func (s *Server) Stop() error {
	return s.app.Shutdown()
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Uptime    string `json:"uptime"`
}

// healthCheck 健康检查
func (s *Server) healthCheck(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().Format(time.RFC3339),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
	})
}

// packetResponse 红包详情响应
// 金额以两位小数字符串给出，cent 字段保留整数分值
type packetResponse struct {
	UUID          string          `json:"uuid"`
	SenderTG      int64           `json:"sender_tg"`
	SenderName    string          `json:"sender_name"`
	Title         string          `json:"title"`
	Mode          string          `json:"mode"`
	Status        string          `json:"status"`
	TotalAmount   string          `json:"total_amount"`
	TotalCount    int             `json:"total_count"`
	ClaimedAmount string          `json:"claimed_amount"`
	ClaimedCount  int             `json:"claimed_count"`
	CreatedAt     time.Time       `json:"created_at"`
	ExpiresAt     time.Time       `json:"expires_at"`
	Claims        []claimResponse `json:"claims"`
}

// claimResponse 单条领取记录
type claimResponse struct {
	ClaimantTG   int64     `json:"claimant_tg"`
	ClaimantName string    `json:"claimant_name"`
	Amount       string    `json:"amount"`
	ClaimOrder   int       `json:"claim_order"`
	IsBestLuck   bool      `json:"is_best_luck"`
	ClaimedAt    time.Time `json:"claimed_at"`
}

// getPacket 红包详情与领取记录
func (s *Server) getPacket(c *fiber.Ctx) error {
	packet, records, err := s.packets.Detail(c.Params("uuid"))
	if err != nil {
		if errors.Is(err, service.ErrPacketNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "红包不存在")
		}
		return err
	}

	claims := make([]claimResponse, 0, len(records))
	for _, record := range records {
		claims = append(claims, claimResponse{
			ClaimantTG:   record.ClaimantTG,
			ClaimantName: record.ClaimantName,
			Amount:       money.Format(record.Amount),
			ClaimOrder:   record.ClaimOrder,
			IsBestLuck:   record.IsBestLuck,
			ClaimedAt:    record.CreatedAt,
		})
	}

	return c.JSON(packetResponse{
		UUID:          packet.UUID,
		SenderTG:      packet.SenderTG,
		SenderName:    packet.SenderName,
		Title:         packet.Title,
		Mode:          packet.Mode,
		Status:        packet.Status,
		TotalAmount:   money.Format(packet.TotalAmount),
		TotalCount:    packet.TotalCount,
		ClaimedAmount: money.Format(packet.ClaimedAmount),
		ClaimedCount:  packet.ClaimedCount,
		CreatedAt:     packet.CreatedAt,
		ExpiresAt:     packet.ExpiresAt,
		Claims:        claims,
	})
}

// parseTG 解析路径里的 TG ID
func parseTG(c *fiber.Ctx) (int64, error) {
	tg, err := strconv.ParseInt(c.Params("tg"), 10, 64)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "非法的用户 ID")
	}
	return tg, nil
}

// parseLimit 解析 limit 查询参数
func parseLimit(c *fiber.Ctx, fallback, max int) int {
	limit := c.QueryInt("limit", fallback)
	if limit < 1 || limit > max {
		return fallback
	}
	return limit
}

// getUserClaims 用户领取历史
func (s *Server) getUserClaims(c *fiber.Ctx) error {
	tg, err := parseTG(c)
	if err != nil {
		return err
	}

	records, err := s.packets.UserClaims(tg, parseLimit(c, 20, 100))
	if err != nil {
		return err
	}

	claims := make([]claimResponse, 0, len(records))
	for _, record := range records {
		claims = append(claims, claimResponse{
			ClaimantTG:   record.ClaimantTG,
			ClaimantName: record.ClaimantName,
			Amount:       money.Format(record.Amount),
			ClaimOrder:   record.ClaimOrder,
			IsBestLuck:   record.IsBestLuck,
			ClaimedAt:    record.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"tg": tg, "claims": claims})
}

// getUserPackets 用户发包历史
func (s *Server) getUserPackets(c *fiber.Ctx) error {
	tg, err := parseTG(c)
	if err != nil {
		return err
	}

	packets, err := s.packets.UserPackets(tg, parseLimit(c, 20, 100))
	if err != nil {
		return err
	}

	items := make([]fiber.Map, 0, len(packets))
	for _, packet := range packets {
		items = append(items, fiber.Map{
			"uuid":          packet.UUID,
			"title":         packet.Title,
			"status":        packet.Status,
			"total_amount":  money.Format(packet.TotalAmount),
			"total_count":   packet.TotalCount,
			"claimed_count": packet.ClaimedCount,
			"created_at":    packet.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"tg": tg, "packets": items})
}

// getTopSenders 发包排行
func (s *Server) getTopSenders(c *fiber.Ctx) error {
	stats, err := s.packets.TopSenders(parseLimit(c, 10, 50))
	if err != nil {
		return err
	}

	items := make([]fiber.Map, 0, len(stats))
	for _, stat := range stats {
		items = append(items, fiber.Map{
			"sender_tg":    stat.SenderTG,
			"sender_name":  stat.SenderName,
			"packet_count": stat.PacketCount,
			"total_amount": money.Format(stat.TotalAmount),
		})
	}
	return c.JSON(fiber.Map{"top": items})
}
