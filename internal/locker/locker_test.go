// Package locker 幂等锁测试
package locker

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
)

func newTestLocker(sendTTL, claimTTL time.Duration) *Locker {
	return New(cache.New(time.Minute, time.Minute), sendTTL, claimTTL)
}

func TestAcquireSend_Duplicate(t *testing.T) {
	l := newTestLocker(5*time.Second, 3*time.Second)

	if !l.AcquireSend(100, 5000, 5, "恭喜发财") {
		t.Fatal("首次抢占发包锁应该成功")
	}
	if l.AcquireSend(100, 5000, 5, "恭喜发财") {
		t.Error("窗口内相同指纹应该被拦截")
	}

	// 不同指纹互不影响
	if !l.AcquireSend(100, 5000, 6, "恭喜发财") {
		t.Error("不同份数应该是不同指纹")
	}
	if !l.AcquireSend(200, 5000, 5, "恭喜发财") {
		t.Error("不同用户应该是不同指纹")
	}
}

func TestReleaseSend_AllowsRetry(t *testing.T) {
	l := newTestLocker(time.Hour, time.Hour)

	l.AcquireSend(100, 5000, 5, "")
	l.ReleaseSend(100, 5000, 5, "")

	if !l.AcquireSend(100, 5000, 5, "") {
		t.Error("释放后应该可以重新抢占")
	}
}

func TestAcquireSend_ExpiresNaturally(t *testing.T) {
	l := newTestLocker(30*time.Millisecond, time.Hour)

	l.AcquireSend(100, 5000, 5, "")
	time.Sleep(60 * time.Millisecond)

	if !l.AcquireSend(100, 5000, 5, "") {
		t.Error("窗口过期后应该可以重新抢占")
	}
}

func TestAcquireClaim_Concurrent(t *testing.T) {
	l := newTestLocker(time.Hour, time.Hour)

	// 同一用户并发点击同一红包，只有一个请求能拿到锁
	var acquired int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.AcquireClaim("uuid-1", 999) {
				atomic.AddInt32(&acquired, 1)
			}
		}()
	}
	wg.Wait()

	if acquired != 1 {
		t.Errorf("并发抢占同一把锁成功 %d 次, want 1", acquired)
	}

	// 不同用户不受影响
	if !l.AcquireClaim("uuid-1", 1000) {
		t.Error("不同用户应该可以抢占")
	}
}
