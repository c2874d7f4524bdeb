// Package service 红包业务错误定义
package service

import (
	"errors"
	"time"
)

// 领取与创建的业务错误
// 这些都是高频的预期结果，用显式错误值而不是异常式控制流表达，
// 处理器用 errors.Is 区分后渲染对应提示
var (
	ErrRedPacketDisabled   = errors.New("红包功能已关闭")
	ErrPacketNotFound      = errors.New("红包不存在")
	ErrPacketCompleted     = errors.New("红包已被抢完")
	ErrPacketExpired       = errors.New("红包已过期")
	ErrPacketRevoked       = errors.New("红包已被撤回")
	ErrAlreadyClaimed      = errors.New("您已领取过此红包")
	ErrSelfClaim           = errors.New("不能领取自己的红包")
	ErrNotTargetUser       = errors.New("这是专属红包，您不是目标用户")
	ErrConcurrencyConflict = errors.New("操作冲突，请重试")
	ErrPacketHasClaims     = errors.New("红包已有人领取，无法撤回")
	ErrNotPacketSender     = errors.New("只有发包人可以撤回红包")
)

// RuleKind 校验规则类别（封闭枚举）
type RuleKind string

const (
	RuleBalance     RuleKind = "balance"      // 余额充足
	RuleAmountRange RuleKind = "amount_range" // 金额区间
	RuleCountRange  RuleKind = "count_range"  // 份数区间
	RuleChatScope   RuleKind = "chat_scope"   // 群组与权限
	RuleQuota       RuleKind = "quota"        // 用户配额
)

// Rejection 校验失败的结构化原因
// Remaining / ResetAt 仅在配额类失败时有值
type Rejection struct {
	Rule      RuleKind
	Reason    string
	Remaining int64
	ResetAt   *time.Time
}

// ValidationError 校验失败错误，包裹首个未通过的规则
type ValidationError struct {
	Rejection Rejection
}

// Error 实现 error 接口
func (e *ValidationError) Error() string {
	return e.Rejection.Reason
}

// AsValidation 提取校验失败原因
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
