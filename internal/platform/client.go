// Package platform 平台账务桥接客户端
package platform

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/zhangdayeb/tg-hongbao-go/internal/config"
	"github.com/zhangdayeb/tg-hongbao-go/pkg/logger"
)

// Client 平台账务 API 客户端
type Client struct {
	baseURL    string
	httpClient *resty.Client
}

// NewClient 创建平台客户端
func NewClient(cfg *config.PlatformConfig) *Client {
	client := resty.New()
	client.SetTimeout(10 * time.Second)
	client.SetRetryCount(2)
	client.SetRetryWaitTime(1 * time.Second)
	client.SetHeaders(map[string]string{
		"Accept":        "application/json",
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + cfg.APIKey,
		"User-Agent":    "HongbaoBot/1.0 Go",
	})

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: client,
	}
}

// creditRequest 入账请求体
type creditRequest struct {
	RefID  string `json:"ref_id"`  // 包 UUID + 领取人，作为平台侧幂等键
	UserTG int64  `json:"user_tg"`
	Amount int64  `json:"amount"` // 分
	Reason string `json:"reason"`
}

// creditResponse 平台账务接口响应
type creditResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Credit 向平台账务推送一笔红包入账
// ref 在平台侧作为幂等键，重复推送同一笔由平台去重
func (c *Client) Credit(ref string, userTG int64, amount int64) error {
	var result creditResponse
	resp, err := c.httpClient.R().
		SetBody(&creditRequest{
			RefID:  ref,
			UserTG: userTG,
			Amount: amount,
			Reason: "red_packet_claim",
		}).
		SetResult(&result).
		Post(c.baseURL + "/api/v1/wallet/credit")
	if err != nil {
		return fmt.Errorf("推送入账失败: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("平台账务接口返回 %d", resp.StatusCode())
	}
	if result.Code != 0 {
		return fmt.Errorf("平台账务拒绝: %s", result.Message)
	}

	logger.Debug().
		Str("ref", ref).
		Int64("user", userTG).
		Int64("amount", amount).
		Msg("入账推送成功")
	return nil
}
