// Package money 金额模块测试
package money

import (
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{"整数金额", "50", 5000, false},
		{"一位小数", "12.3", 1230, false},
		{"两位小数", "0.01", 1, false},
		{"带空格", " 100 ", 10000, false},
		{"大金额", "10000.00", 1000000, false},
		{"三位小数", "1.001", 0, true},
		{"零", "0", 0, true},
		{"零点零零", "0.00", 0, true},
		{"负数", "-1", 0, true},
		{"带加号", "+5", 0, true},
		{"非数字", "abc", 0, true},
		{"混入字母", "12a.3", 0, true},
		{"空字符串", "", 0, true},
		{"只有小数点", ".", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) err = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name  string
		cents int64
		want  string
	}{
		{"整数", 5000, "50.00"},
		{"一分", 1, "0.01"},
		{"带小数", 1230, "12.30"},
		{"零", 0, "0.00"},
		{"负数", -250, "-2.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.cents); got != tt.want {
				t.Errorf("Format(%d) = %q, want %q", tt.cents, got, tt.want)
			}
		})
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	for _, s := range []string{"0.01", "1.00", "88.88", "10000.00"} {
		cents, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q) 失败: %v", s, err)
		}
		if got := Format(cents); got != s {
			t.Errorf("Format(Parse(%q)) = %q", s, got)
		}
	}
}
