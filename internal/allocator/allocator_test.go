// Package allocator 分配算法测试
package allocator

import (
	"math/rand"
	"testing"
)

func sum(shares []int64) int64 {
	var total int64
	for _, s := range shares {
		total += s
	}
	return total
}

func TestAllocate_Random_Conservation(t *testing.T) {
	// 上千个种子下随机模式必须精确守恒且不破下限
	for seed := int64(0); seed < 2000; seed++ {
		a := New(rand.NewSource(seed))
		shares, err := a.Allocate(10000, 10, ModeRandom, 1, nil)
		if err != nil {
			t.Fatalf("seed=%d Allocate 失败: %v", seed, err)
		}
		if len(shares) != 10 {
			t.Fatalf("seed=%d 份数 = %d, want 10", seed, len(shares))
		}
		if got := sum(shares); got != 10000 {
			t.Fatalf("seed=%d 总和 = %d, want 10000", seed, got)
		}
		for i, s := range shares {
			if s < 1 {
				t.Fatalf("seed=%d 第 %d 份 = %d 低于下限", seed, i, s)
			}
		}
	}
}

func TestAllocate_Random_TightBudget(t *testing.T) {
	// 总额恰好等于 下限×份数 的极端情况：每份都只能是下限
	a := New(rand.NewSource(7))
	shares, err := a.Allocate(10, 10, ModeRandom, 1, nil)
	if err != nil {
		t.Fatalf("Allocate 失败: %v", err)
	}
	for i, s := range shares {
		if s != 1 {
			t.Errorf("第 %d 份 = %d, want 1", i, s)
		}
	}
}

func TestDrawSequence_FairnessBound(t *testing.T) {
	// 复算抽取序列：每次抽取不得超过当时剩余均值的两倍
	for seed := int64(0); seed < 500; seed++ {
		a := New(rand.NewSource(seed))
		total := int64(88888)
		count := 20
		minShare := int64(1)

		shares := a.drawSequence(total, count, minShare)

		remaining := total
		for i, amount := range shares[:count-1] {
			bound := 2 * remaining / int64(count-i)
			if bound < minShare {
				bound = minShare
			}
			if amount > bound {
				t.Fatalf("seed=%d 第 %d 次抽取 %d 超过二倍均值上限 %d", seed, i, amount, bound)
			}
			if amount < minShare {
				t.Fatalf("seed=%d 第 %d 次抽取 %d 低于下限", seed, i, amount)
			}
			remaining -= amount
		}
		if shares[count-1] != remaining {
			t.Fatalf("seed=%d 尾份未取走全部剩余", seed)
		}
	}
}

func TestAllocate_Random_Deterministic(t *testing.T) {
	// 相同种子产生相同序列
	first, err := New(rand.NewSource(42)).Allocate(5000, 5, ModeRandom, 1, nil)
	if err != nil {
		t.Fatalf("Allocate 失败: %v", err)
	}
	second, _ := New(rand.NewSource(42)).Allocate(5000, 5, ModeRandom, 1, nil)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("相同种子结果不一致: %v vs %v", first, second)
		}
	}
}

func TestAllocate_Average(t *testing.T) {
	tests := []struct {
		name  string
		total int64
		count int
		want  []int64
	}{
		{"整除", 10000, 4, []int64{2500, 2500, 2500, 2500}},
		{"余数并入尾份", 10000, 3, []int64{3333, 3333, 3334}},
		{"单份", 5000, 1, []int64{5000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(rand.NewSource(1))
			shares, err := a.Allocate(tt.total, tt.count, ModeAverage, 1, nil)
			if err != nil {
				t.Fatalf("Allocate 失败: %v", err)
			}
			if len(shares) != len(tt.want) {
				t.Fatalf("份数 = %d, want %d", len(shares), len(tt.want))
			}
			for i := range shares {
				if shares[i] != tt.want[i] {
					t.Errorf("第 %d 份 = %d, want %d", i, shares[i], tt.want[i])
				}
			}
		})
	}
}

func TestAllocate_Custom(t *testing.T) {
	a := New(rand.NewSource(1))

	shares, err := a.Allocate(600, 3, ModeCustom, 1, []int64{100, 200, 300})
	if err != nil {
		t.Fatalf("合法自定义份额被拒绝: %v", err)
	}
	if sum(shares) != 600 {
		t.Errorf("总和 = %d, want 600", sum(shares))
	}

	if _, err := a.Allocate(600, 3, ModeCustom, 1, []int64{100, 200}); err == nil {
		t.Error("份额数量不符应该报错")
	}

	if _, err := a.Allocate(600, 3, ModeCustom, 1, []int64{100, 200, 301}); err == nil {
		t.Error("份额之和不符应该报错")
	}

	if _, err := a.Allocate(600, 3, ModeCustom, 50, []int64{10, 290, 300}); err == nil {
		t.Error("低于下限的份额应该报错")
	}
}

func TestAllocate_InvalidRequest(t *testing.T) {
	a := New(rand.NewSource(1))

	tests := []struct {
		name     string
		total    int64
		count    int
		minShare int64
	}{
		{"金额为零", 0, 5, 1},
		{"金额为负", -100, 5, 1},
		{"份数为零", 100, 0, 1},
		{"份数超上限", 100000000, 1001, 1},
		{"金额不足以分配", 5, 10, 1},
		{"下限为零", 100, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := a.Allocate(tt.total, tt.count, ModeRandom, tt.minShare, nil); err == nil {
				t.Error("非法请求应该报错")
			}
		})
	}
}

func TestAllocate_Scenario_100x10(t *testing.T) {
	// 100.00 元分 10 份，每份不低于 0.01 元
	a := New(rand.NewSource(2026))
	shares, err := a.Allocate(10000, 10, ModeRandom, 1, nil)
	if err != nil {
		t.Fatalf("Allocate 失败: %v", err)
	}
	if len(shares) != 10 {
		t.Fatalf("份数 = %d, want 10", len(shares))
	}
	if sum(shares) != 10000 {
		t.Fatalf("总和 = %d, want 10000", sum(shares))
	}
	for _, s := range shares {
		if s < 1 {
			t.Fatalf("存在低于 0.01 元的份额: %d", s)
		}
	}
}
