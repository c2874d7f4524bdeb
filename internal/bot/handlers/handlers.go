// Package handlers Bot 处理器
package handlers

import (
	tele "gopkg.in/telebot.v3"

	"github.com/zhangdayeb/tg-hongbao-go/internal/config"
	"github.com/zhangdayeb/tg-hongbao-go/internal/conversation"
	"github.com/zhangdayeb/tg-hongbao-go/internal/database/repository"
	"github.com/zhangdayeb/tg-hongbao-go/internal/locker"
	"github.com/zhangdayeb/tg-hongbao-go/internal/service"
)

// Handlers Bot 处理器集合
// 所有依赖注入进来，不持有全局状态
type Handlers struct {
	cfg     *config.Config
	packets *service.PacketService
	users   *repository.UserRepository
	machine *conversation.Machine
	lock    *locker.Locker
}

// New 创建处理器集合
func New(
	cfg *config.Config,
	packets *service.PacketService,
	users *repository.UserRepository,
	machine *conversation.Machine,
	lock *locker.Locker,
) *Handlers {
	return &Handlers{
		cfg:     cfg,
		packets: packets,
		users:   users,
		machine: machine,
		lock:    lock,
	}
}

// displayName 用户展示名
func displayName(user *tele.User) string {
	if user == nil {
		return ""
	}
	name := user.FirstName
	if user.LastName != "" {
		name += " " + user.LastName
	}
	if name == "" {
		name = user.Username
	}
	return name
}

// chatKind 映射 telebot 聊天类型
func chatKind(chat *tele.Chat) service.ChatKind {
	if chat == nil {
		return service.ChatKindPrivate
	}
	switch chat.Type {
	case tele.ChatGroup:
		return service.ChatKindGroup
	case tele.ChatSuperGroup:
		return service.ChatKindSuperGroup
	default:
		return service.ChatKindPrivate
	}
}

// botIsAdmin bot 在当前群是否为管理员
func botIsAdmin(c tele.Context) bool {
	chat := c.Chat()
	if chat == nil || chat.Type == tele.ChatPrivate {
		return false
	}
	member, err := c.Bot().ChatMemberOf(chat, c.Bot().Me)
	if err != nil {
		return false
	}
	return member.Role == tele.Administrator || member.Role == tele.Creator
}
