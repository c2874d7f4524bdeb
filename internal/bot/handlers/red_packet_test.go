package handlers

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/zhangdayeb/tg-hongbao-go/internal/allocator"
	"github.com/zhangdayeb/tg-hongbao-go/internal/config"
	"github.com/zhangdayeb/tg-hongbao-go/internal/database/models"
	"github.com/zhangdayeb/tg-hongbao-go/internal/service"
)

func TestCreateErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		want     string
		expected bool
	}{
		{
			"功能关闭",
			service.ErrRedPacketDisabled,
			"红包功能已关闭",
			true,
		},
		{
			"分配失败带下限提示",
			fmt.Errorf("%w: 金额不足以保证每份至少 1 分", allocator.ErrInvalidAllocation),
			"每份至少 1 分",
			true,
		},
		{
			"校验失败透出原因",
			&service.ValidationError{Rejection: service.Rejection{
				Rule:   service.RuleBalance,
				Reason: "余额不足",
			}},
			"余额不足",
			true,
		},
		{
			"意外错误不定制提示",
			errors.New("db down"),
			"",
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, expected := createErrorMessage(tt.err)
			if expected != tt.expected {
				t.Fatalf("expected = %v, want %v", expected, tt.expected)
			}
			if tt.expected && !strings.Contains(msg, tt.want) {
				t.Errorf("提示 %q 应包含 %q", msg, tt.want)
			}
		})
	}
}

func TestRenderDetailLimit(t *testing.T) {
	h := &Handlers{cfg: &config.Config{Money: "USDT"}}

	packet := &models.Packet{
		SenderName:  "张三",
		TotalAmount: 5000,
		TotalCount:  20,
		Title:       "恭喜发财",
		Status:      models.PacketStatusCompleted,
	}
	var records []models.ClaimRecord
	for i := 1; i <= 20; i++ {
		records = append(records, models.ClaimRecord{
			ClaimOrder:   i,
			ClaimantName: fmt.Sprintf("用户%d", i),
			Amount:       250,
		})
	}

	full := h.renderDetail(packet, records, 0)
	if !strings.Contains(full, "用户20") {
		t.Error("不限条数时应包含全部领取记录")
	}

	trimmed := h.renderDetail(packet, records, inlineClaimLimit)
	if strings.Contains(trimmed, "用户11") {
		t.Errorf("截断后不应出现第 %d 条之后的记录", inlineClaimLimit)
	}
	if !strings.Contains(trimmed, "其余 10 条") {
		t.Errorf("截断后应提示剩余条数: %s", trimmed)
	}
}
