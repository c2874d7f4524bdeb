// Package money 金额定点运算（以分为单位）
package money

import (
	"errors"
	"fmt"
	"strings"
)

// 金额统一以 int64 分存储，展示时保留两位小数。
// 避免 float 精度问题导致红包总额对不上账。

var (
	ErrInvalidAmount = errors.New("无效的金额格式")
)

// Parse 解析金额字符串（最多两位小数）为分
// "50" -> 5000, "0.01" -> 1, "12.30" -> 1230
func Parse(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, ErrInvalidAmount
	}

	intPart := s
	fracPart := ""
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		intPart = s[:idx]
		fracPart = s[idx+1:]
	}

	if intPart == "" && fracPart == "" {
		return 0, ErrInvalidAmount
	}
	if len(fracPart) > 2 {
		return 0, ErrInvalidAmount
	}
	if intPart == "" {
		intPart = "0"
	}
	// 补齐到两位小数
	for len(fracPart) < 2 {
		fracPart += "0"
	}

	var cents int64
	for _, r := range intPart {
		if r < '0' || r > '9' {
			return 0, ErrInvalidAmount
		}
		cents = cents*10 + int64(r-'0')
		if cents > 1<<52 {
			return 0, ErrInvalidAmount
		}
	}
	cents *= 100
	for _, r := range fracPart {
		if r < '0' || r > '9' {
			return 0, ErrInvalidAmount
		}
	}
	cents += int64(fracPart[0]-'0')*10 + int64(fracPart[1]-'0')

	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// MustParse 解析金额，失败时 panic（仅用于常量配置）
func MustParse(s string) int64 {
	cents, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("money: 非法金额 %q", s))
	}
	return cents
}

// Format 将分格式化为两位小数字符串
// 5000 -> "50.00", 1 -> "0.01"
func Format(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
