// Package config 配置模块测试
package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig_IsAdmin(t *testing.T) {
	cfg := &Config{
		Owner:  12345,
		Admins: []int64{11111, 22222},
	}

	tests := []struct {
		name     string
		userID   int64
		expected bool
	}{
		{"Owner 是管理员", 12345, true},
		{"Admin 是管理员", 11111, true},
		{"Admin2 是管理员", 22222, true},
		{"普通用户不是管理员", 99999, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.IsAdmin(tt.userID); got != tt.expected {
				t.Errorf("IsAdmin(%d) = %v, want %v", tt.userID, got, tt.expected)
			}
		})
	}
}

func TestConfig_IsInGroup(t *testing.T) {
	cfg := &Config{
		Groups: []int64{-100001, -100002},
	}

	if !cfg.IsInGroup(-100001) {
		t.Error("IsInGroup(-100001) 应该返回 true")
	}

	if cfg.IsInGroup(-100099) {
		t.Error("IsInGroup(-100099) 应该返回 false")
	}
}

func TestConfig_SetDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.setDefaults()

	if cfg.Money != "金币" {
		t.Errorf("默认 Money 应该是 '金币'，实际是 '%s'", cfg.Money)
	}

	if cfg.Database.Driver != "mysql" {
		t.Errorf("默认数据库驱动应该是 mysql，实际是 %s", cfg.Database.Driver)
	}

	if cfg.Database.Port != 3306 {
		t.Errorf("默认数据库端口应该是 3306，实际是 %d", cfg.Database.Port)
	}

	rp := cfg.RedPacket
	if rp.MinShare != "0.01" {
		t.Errorf("默认每份下限应该是 0.01，实际是 %s", rp.MinShare)
	}

	if rp.MaxCount != 100 {
		t.Errorf("默认最大份数应该是 100，实际是 %d", rp.MaxCount)
	}

	if rp.PacketTTLHours != 24 {
		t.Errorf("默认红包有效期应该是 24 小时，实际是 %d", rp.PacketTTLHours)
	}

	if rp.DialogTTLMinutes != 5 {
		t.Errorf("默认会话超时应该是 5 分钟，实际是 %d", rp.DialogTTLMinutes)
	}

	if rp.MaxPerHour != 10 || rp.MaxPerDay != 50 {
		t.Errorf("默认配额不正确: %d/%d", rp.MaxPerHour, rp.MaxPerDay)
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_GroupOnlyDefaultsTrue(t *testing.T) {
	path := writeConfigFile(t, `{"bot_token":"t","red_packet":{"enabled":true}}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.RedPacket.GroupOnly {
		t.Error("未配置 group_only 时应默认仅限群组")
	}
}

func TestLoad_GroupOnlyExplicitFalse(t *testing.T) {
	path := writeConfigFile(t, `{"red_packet":{"enabled":true,"group_only":false}}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RedPacket.GroupOnly {
		t.Error("显式配置 group_only=false 不应被默认值覆盖")
	}
}

func TestUpdate_TogglePersists(t *testing.T) {
	path := writeConfigFile(t, `{"red_packet":{"enabled":true}}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	SetConfigPath(path)
	defer SetConfigPath("")

	if err := Update(func(c *Config) {
		c.RedPacket.Enabled = !c.RedPacket.Enabled
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if cfg.RedPacket.Enabled {
		t.Error("切换后内存中的配置应为关闭")
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("重新加载: %v", err)
	}
	if reloaded.RedPacket.Enabled {
		t.Error("切换结果应写回配置文件")
	}
}

func TestConfig_SetDefaults_KeepExisting(t *testing.T) {
	cfg := &Config{
		RedPacket: RedPacketConfig{
			MaxCount: 500,
			MinShare: "0.10",
		},
	}
	cfg.setDefaults()

	if cfg.RedPacket.MaxCount != 500 {
		t.Errorf("已配置的最大份数不应被覆盖，实际是 %d", cfg.RedPacket.MaxCount)
	}

	if cfg.RedPacket.MinShare != "0.10" {
		t.Errorf("已配置的每份下限不应被覆盖，实际是 %s", cfg.RedPacket.MinShare)
	}
}
