// Package models 用户数据模型
package models

import (
	"time"
)

// User 平台用户表
// Balance 以分存储，红包扣款/入账与红包表在同一事务内变更
type User struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	TG        int64     `gorm:"column:tg;uniqueIndex" json:"tg"`
	Name      string    `gorm:"column:name;size:255" json:"name"`
	Balance   int64     `gorm:"column:balance" json:"balance"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName 表名
func (User) TableName() string {
	return "users"
}
