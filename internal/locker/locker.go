// Package locker 防重幂等锁
package locker

import (
	"fmt"
	"hash/fnv"
	"time"

	"github.com/patrickmn/go-cache"
)

// Locker 短时幂等锁
// 发包锁按 (用户, 金额, 份数, 标题) 指纹去重，拦截连点双发；
// 抢包锁按 (红包, 用户) 去重，拦截近乎同时的重复点击。
// 抢包锁只是降载手段，真正的一人一份约束在领取记录的唯一索引上。
type Locker struct {
	store    *cache.Cache
	sendTTL  time.Duration
	claimTTL time.Duration
}

// New 创建幂等锁，缓存实例由调用方注入
func New(store *cache.Cache, sendTTL, claimTTL time.Duration) *Locker {
	return &Locker{
		store:    store,
		sendTTL:  sendTTL,
		claimTTL: claimTTL,
	}
}

// sendKey 发包指纹
func sendKey(actorTG int64, amount int64, count int, title string) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d|%d|%d|%s", actorTG, amount, count, title)
	return fmt.Sprintf("send:%x", h.Sum64())
}

// claimKey 抢包指纹
func claimKey(packetUUID string, claimantTG int64) string {
	return fmt.Sprintf("claim:%s:%d", packetUUID, claimantTG)
}

// AcquireSend 抢占发包锁
// 窗口内出现过相同指纹则判定为重复提交，返回 false
func (l *Locker) AcquireSend(actorTG int64, amount int64, count int, title string) bool {
	return l.store.Add(sendKey(actorTG, amount, count, title), struct{}{}, l.sendTTL) == nil
}

// ReleaseSend 发包成功后释放锁
// 失败时不主动释放，留到自然过期，避免快速重试绕过防重窗口
func (l *Locker) ReleaseSend(actorTG int64, amount int64, count int, title string) {
	l.store.Delete(sendKey(actorTG, amount, count, title))
}

// AcquireClaim 抢占抢包锁
func (l *Locker) AcquireClaim(packetUUID string, claimantTG int64) bool {
	return l.store.Add(claimKey(packetUUID, claimantTG), struct{}{}, l.claimTTL) == nil
}

// ReleaseClaim 领取结束后释放锁
func (l *Locker) ReleaseClaim(packetUUID string, claimantTG int64) {
	l.store.Delete(claimKey(packetUUID, claimantTG))
}
