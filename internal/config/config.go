// Package config 配置管理模块
package config

import (
	"encoding/json"
	"os"
	"sync"
)

// Config 全局配置结构
type Config struct {
	BotName  string  `json:"bot_name"`
	BotToken string  `json:"bot_token"`
	Owner    int64   `json:"owner"`
	Admins   []int64 `json:"admins"`
	Groups   []int64 `json:"group"`
	Money    string  `json:"money"` // 货币名称，用于消息展示

	Database  DatabaseConfig  `json:"database"`
	RedPacket RedPacketConfig `json:"red_packet"`
	Platform  PlatformConfig  `json:"platform"`
	API       APIConfig       `json:"api"`
	Ranks     RanksConfig     `json:"ranks"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver   string `json:"driver"` // mysql / sqlite
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Path     string `json:"path"` // sqlite 数据库文件路径
}

// RedPacketConfig 红包配置
// 金额类配置使用两位小数字符串，使用处由 money.Parse 解析为分
type RedPacketConfig struct {
	Enabled          bool   `json:"enabled"`
	MinAmount        string `json:"min_amount"`         // 单个红包最小总金额
	MaxAmount        string `json:"max_amount"`         // 单个红包最大总金额
	MinCount         int    `json:"min_count"`          // 最少份数
	MaxCount         int    `json:"max_count"`          // 最多份数
	MinShare         string `json:"min_share"`          // 每份金额下限
	PacketTTLHours   int    `json:"packet_ttl_hours"`   // 红包有效期
	DialogTTLMinutes int    `json:"dialog_ttl_minutes"` // 创建会话超时
	GroupOnly        bool   `json:"group_only"`         // 仅允许群组内发红包
	RequireBotAdmin  bool   `json:"require_bot_admin"`  // 要求 bot 为群管理员
	AllowSelfClaim   bool   `json:"allow_self_claim"`   // 允许领取自己的红包
	AllowExclusive   bool   `json:"allow_exclusive"`    // 允许专属红包
	SendLockSeconds  int    `json:"send_lock_seconds"`  // 发包防重窗口
	ClaimLockSeconds int    `json:"claim_lock_seconds"` // 抢包防重窗口

	// 单用户配额
	MaxPerHour      int    `json:"max_per_hour"`       // 每小时可发红包数
	MaxPerDay       int    `json:"max_per_day"`        // 每天可发红包数
	MaxAmountPerDay string `json:"max_amount_per_day"` // 每天累计发包金额上限
}

// PlatformConfig 平台账务桥接配置
// 启用后领取入账通过 outbox 异步推送到平台账务接口
type PlatformConfig struct {
	Enabled bool   `json:"enabled"`
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key"`
}

// APIConfig Web API 配置
type APIConfig struct {
	Enabled      bool     `json:"enabled"`
	Host         string   `json:"host"`
	Port         int      `json:"port"`
	AllowOrigins []string `json:"allow_origins"`
}

// RanksConfig 榜单图片配置
type RanksConfig struct {
	Enabled  bool   `json:"enabled"`
	FontPath string `json:"font_path"` // 中文字体文件路径
}

var (
	cfg     *Config
	cfgLock sync.RWMutex
)

// Load 加载配置文件
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// 群组限制默认开启；bool 解析后区分不出缺省和显式 false，需在解析前置位
	config := Config{RedPacket: RedPacketConfig{GroupOnly: true}}
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	config.setDefaults()

	cfgLock.Lock()
	cfg = &config
	cfgLock.Unlock()

	return &config, nil
}

// Get 获取全局配置（线程安全）
func Get() *Config {
	cfgLock.RLock()
	defer cfgLock.RUnlock()
	return cfg
}

// Set 设置全局配置（测试与热重载用）
func Set(c *Config) {
	cfgLock.Lock()
	cfg = c
	cfgLock.Unlock()
}

// Save 保存配置到文件
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// setDefaults 设置默认值
func (c *Config) setDefaults() {
	if c.Money == "" {
		c.Money = "金币"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/hongbao.db"
	}
	if c.API.Port == 0 {
		c.API.Port = 8860
	}
	if len(c.API.AllowOrigins) == 0 {
		c.API.AllowOrigins = []string{"*"}
	}

	rp := &c.RedPacket
	if rp.MinAmount == "" {
		rp.MinAmount = "0.01"
	}
	if rp.MaxAmount == "" {
		rp.MaxAmount = "10000.00"
	}
	if rp.MinCount == 0 {
		rp.MinCount = 1
	}
	if rp.MaxCount == 0 {
		rp.MaxCount = 100
	}
	if rp.MinShare == "" {
		rp.MinShare = "0.01"
	}
	if rp.PacketTTLHours == 0 {
		rp.PacketTTLHours = 24
	}
	if rp.DialogTTLMinutes == 0 {
		rp.DialogTTLMinutes = 5
	}
	if rp.SendLockSeconds == 0 {
		rp.SendLockSeconds = 5
	}
	if rp.ClaimLockSeconds == 0 {
		rp.ClaimLockSeconds = 3
	}
	if rp.MaxPerHour == 0 {
		rp.MaxPerHour = 10
	}
	if rp.MaxPerDay == 0 {
		rp.MaxPerDay = 50
	}
	if rp.MaxAmountPerDay == "" {
		rp.MaxAmountPerDay = "50000.00"
	}
}

// IsAdmin 判断是否是管理员
func (c *Config) IsAdmin(userID int64) bool {
	if userID == c.Owner {
		return true
	}
	for _, admin := range c.Admins {
		if admin == userID {
			return true
		}
	}
	return false
}

// IsOwner 判断是否是 Owner
func (c *Config) IsOwner(userID int64) bool {
	return userID == c.Owner
}

// IsInGroup 判断群组是否在配置中
func (c *Config) IsInGroup(groupID int64) bool {
	for _, g := range c.Groups {
		if g == groupID {
			return true
		}
	}
	return false
}

// configPath 存储配置文件路径
var configPath string

// SetConfigPath 设置配置文件路径
func SetConfigPath(path string) {
	configPath = path
}

// Update 更新配置并保存（热重载）
func Update(updateFn func(*Config)) error {
	cfgLock.Lock()
	defer cfgLock.Unlock()

	if cfg == nil {
		return nil
	}

	updateFn(cfg)

	if configPath != "" {
		return cfg.Save(configPath)
	}
	return nil
}
