// Package conversation 发包会话状态管理
package conversation

import (
	"sync"
	"time"
)

// Stage 会话阶段
type Stage string

const (
	StageIdle            Stage = ""                 // 无会话
	StageAwaitingAmount  Stage = "awaiting_amount"  // 等待输入金额
	StageAwaitingCount   Stage = "awaiting_count"   // 等待输入份数
	StageAwaitingTitle   Stage = "awaiting_title"   // 等待输入祝福语
	StageAwaitingConfirm Stage = "awaiting_confirm" // 等待确认
)

// Draft 会话中逐步填好的红包草稿
type Draft struct {
	Amount int64 // 分
	Count  int
	Title  string
}

// Session 单个聊天的发包会话
// 同一聊天同时最多一个会话，归属发起人
type Session struct {
	Stage      Stage
	ActorTG    int64
	ActorName  string
	ChatKind   string
	BotIsAdmin bool
	Draft      Draft
	UpdatedAt  time.Time
}

// Store 会话存储，按聊天 ID 索引
type Store struct {
	sessions map[int64]*Session
	mu       sync.RWMutex
	ttl      time.Duration
	done     chan struct{}
}

// NewStore 创建会话存储并启动过期清理
func NewStore(ttl time.Duration) *Store {
	s := &Store{
		sessions: make(map[int64]*Session),
		ttl:      ttl,
		done:     make(chan struct{}),
	}
	go s.cleanup()
	return s
}

// Get 获取会话，过期视同不存在
func (s *Store) Get(chatID int64) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[chatID]
	if !ok {
		return nil
	}
	if time.Since(session.UpdatedAt) > s.ttl {
		return nil
	}
	return session
}

// Put 写入会话并刷新时间戳
func (s *Store) Put(chatID int64, session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session.UpdatedAt = time.Now()
	s.sessions[chatID] = session
}

// Clear 清除会话
func (s *Store) Clear(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, chatID)
}

// Close 停止清理协程
func (s *Store) Close() {
	close(s.done)
}

// cleanup 定期清理过期会话
func (s *Store) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			now := time.Now()
			for chatID, session := range s.sessions {
				if now.Sub(session.UpdatedAt) > s.ttl {
					delete(s.sessions, chatID)
				}
			}
			s.mu.Unlock()
		}
	}
}
