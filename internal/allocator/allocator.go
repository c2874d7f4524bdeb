// Package allocator 红包份额分配算法
package allocator

import (
	"errors"
	"fmt"
	"math/rand"
)

// Mode 分配模式
type Mode string

const (
	ModeRandom  Mode = "random"  // 拼手气（二倍均值法）
	ModeAverage Mode = "average" // 均分
	ModeCustom  Mode = "custom"  // 调用方给定份额
)

// MaxCount 单个红包份数硬上限
const MaxCount = 1000

var (
	ErrInvalidAllocation = errors.New("无效的分配请求")
)

// Allocator 份额分配器
// 随机源注入，测试可用固定种子重放序列
type Allocator struct {
	rng *rand.Rand
}

// New 创建分配器
func New(src rand.Source) *Allocator {
	return &Allocator{rng: rand.New(src)}
}

// Allocate 将总金额拆分为 count 份
// 所有金额以分为单位；任何模式下份额之和都与总金额精确相等，
// 且每份不低于 minShare
func (a *Allocator) Allocate(total int64, count int, mode Mode, minShare int64, custom []int64) ([]int64, error) {
	if total <= 0 || minShare <= 0 {
		return nil, fmt.Errorf("%w: 金额必须为正", ErrInvalidAllocation)
	}
	if count < 1 || count > MaxCount {
		return nil, fmt.Errorf("%w: 份数应在 1-%d 之间", ErrInvalidAllocation, MaxCount)
	}
	if total < minShare*int64(count) {
		return nil, fmt.Errorf("%w: 金额不足以保证每份至少 %d 分", ErrInvalidAllocation, minShare)
	}

	switch mode {
	case ModeRandom:
		shares := a.drawSequence(total, count, minShare)
		a.shuffle(shares)
		normalize(shares, total, minShare)
		return shares, nil
	case ModeAverage:
		return splitAverage(total, count), nil
	case ModeCustom:
		if err := validateCustom(total, count, minShare, custom); err != nil {
			return nil, err
		}
		shares := make([]int64, count)
		copy(shares, custom)
		return shares, nil
	default:
		return nil, fmt.Errorf("%w: 未知模式 %q", ErrInvalidAllocation, mode)
	}
}

// drawSequence 二倍均值法抽取份额（未打乱的生成顺序）
// 每次抽取上限为剩余均值的两倍，且给尚未抽取的每份保留 minShare；
// 最后一份取走全部剩余。单次抽取不会超过当时剩余均值的两倍，
// 方差有界且过程无记忆
func (a *Allocator) drawSequence(total int64, count int, minShare int64) []int64 {
	shares := make([]int64, 0, count)
	remaining := total

	for i := count; i > 1; i-- {
		lo := minShare
		hi := 2 * remaining / int64(i)
		if ceiling := remaining - int64(i-1)*minShare; hi > ceiling {
			hi = ceiling
		}
		if hi < lo {
			hi = lo
		}

		amount := lo + a.rng.Int63n(hi-lo+1)
		shares = append(shares, amount)
		remaining -= amount
	}

	shares = append(shares, remaining)
	return shares
}

// shuffle 打乱份额顺序，领取顺序与生成顺序脱钩
func (a *Allocator) shuffle(shares []int64) {
	a.rng.Shuffle(len(shares), func(i, j int) {
		shares[i], shares[j] = shares[j], shares[i]
	})
}

// normalize 抬升低于下限的份额并校正总和
// 整数分运算下抽取已保证不破下限，此处仍兜底校验：
// 任何残差都并入最后一个可承受的份额，保证总和精确
func normalize(shares []int64, total int64, minShare int64) {
	var sum int64
	for i := range shares {
		if shares[i] < minShare {
			shares[i] = minShare
		}
		sum += shares[i]
	}

	drift := sum - total
	if drift == 0 {
		return
	}
	for i := len(shares) - 1; i >= 0 && drift != 0; i-- {
		adjusted := shares[i] - drift
		if adjusted >= minShare {
			shares[i] = adjusted
			drift = 0
		}
	}
}

// splitAverage 均分模式：前 count-1 份向下取整，尾份吸收余数
func splitAverage(total int64, count int) []int64 {
	shares := make([]int64, count)
	base := total / int64(count)
	for i := 0; i < count-1; i++ {
		shares[i] = base
	}
	shares[count-1] = total - base*int64(count-1)
	return shares
}

// validateCustom 校验调用方给定的份额表
func validateCustom(total int64, count int, minShare int64, custom []int64) error {
	if len(custom) != count {
		return fmt.Errorf("%w: 份额数量 %d 与份数 %d 不符", ErrInvalidAllocation, len(custom), count)
	}
	var sum int64
	for _, amount := range custom {
		if amount < minShare {
			return fmt.Errorf("%w: 存在低于下限的份额", ErrInvalidAllocation)
		}
		sum += amount
	}
	if sum != total {
		return fmt.Errorf("%w: 份额之和 %d 与总金额 %d 不符", ErrInvalidAllocation, sum, total)
	}
	return nil
}
