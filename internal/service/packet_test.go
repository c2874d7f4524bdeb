package service

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/zhangdayeb/tg-hongbao-go/internal/allocator"
	"github.com/zhangdayeb/tg-hongbao-go/internal/config"
	"github.com/zhangdayeb/tg-hongbao-go/internal/database/models"
)

func serviceConfig() *config.Config {
	cfg := gateConfig()
	cfg.RedPacket.MaxPerHour = 1000
	cfg.RedPacket.MaxPerDay = 1000
	cfg.RedPacket.MaxAmountPerDay = "1000000"
	cfg.RedPacket.AllowExclusive = true
	return cfg
}

// newTestService 内存数据库上的红包服务，随机源固定
func newTestService(t *testing.T, cfg *config.Config) (*PacketService, *gorm.DB) {
	t.Helper()
	db := openTestDB(t)
	svc := NewPacketService(db, cfg)
	svc.alloc = allocator.New(rand.NewSource(1))
	return svc, db
}

func balanceOf(t *testing.T, db *gorm.DB, tg int64) int64 {
	t.Helper()
	var user models.User
	if err := db.Where("tg = ?", tg).First(&user).Error; err != nil {
		t.Fatalf("查询用户 %d 失败: %v", tg, err)
	}
	return user.Balance
}

func TestCreateDebitsSenderAndStoresShares(t *testing.T) {
	svc, db := newTestService(t, serviceConfig())
	seedUser(t, db, 1, 10000)

	result, err := svc.Create(groupRequest(1, 5000, 5))
	if err != nil {
		t.Fatalf("发包失败: %v", err)
	}

	if got := balanceOf(t, db, 1); got != 5000 {
		t.Errorf("发包后余额 = %d, 期望 5000", got)
	}

	var shares []models.PacketShare
	if err := db.Find(&shares).Error; err != nil {
		t.Fatal(err)
	}
	if len(shares) != 5 {
		t.Fatalf("份额条数 = %d, 期望 5", len(shares))
	}
	var total int64
	for _, share := range shares {
		if share.Amount < 1 {
			t.Errorf("份额 #%d = %d, 低于下限", share.Idx, share.Amount)
		}
		total += share.Amount
	}
	if total != 5000 {
		t.Errorf("份额合计 = %d, 期望 5000", total)
	}

	packet, err := svc.packets.GetByUUID(result.UUID)
	if err != nil {
		t.Fatal(err)
	}
	if packet.Status != models.PacketStatusActive {
		t.Errorf("状态 = %s, 期望 active", packet.Status)
	}
	if packet.Title != models.DefaultTitle {
		t.Errorf("未填祝福语应取默认值, 得到 %q", packet.Title)
	}
}

func TestCreateInsufficientBalance(t *testing.T) {
	svc, db := newTestService(t, serviceConfig())
	seedUser(t, db, 1, 100)

	_, err := svc.Create(groupRequest(1, 5000, 5))
	ve, ok := AsValidation(err)
	if !ok || ve.Rejection.Rule != RuleBalance {
		t.Fatalf("期望余额校验失败, 得到 %v", err)
	}

	// 校验失败不得扣款
	if got := balanceOf(t, db, 1); got != 100 {
		t.Errorf("余额 = %d, 期望 100", got)
	}
}

func TestCreateDisabled(t *testing.T) {
	cfg := serviceConfig()
	cfg.RedPacket.Enabled = false
	svc, db := newTestService(t, cfg)
	seedUser(t, db, 1, 10000)

	if _, err := svc.Create(groupRequest(1, 5000, 5)); !errors.Is(err, ErrRedPacketDisabled) {
		t.Fatalf("期望 ErrRedPacketDisabled, 得到 %v", err)
	}
}

func TestClaimFullCycle(t *testing.T) {
	svc, db := newTestService(t, serviceConfig())
	seedUser(t, db, 1, 10000)

	result, err := svc.Create(groupRequest(1, 5000, 5))
	if err != nil {
		t.Fatal(err)
	}

	var (
		total     int64
		bestCount int
	)
	for i := 0; i < 5; i++ {
		claimant := int64(100 + i)
		claim, err := svc.Claim(result.UUID, claimant, fmt.Sprintf("u%d", claimant))
		if err != nil {
			t.Fatalf("第 %d 次领取失败: %v", i+1, err)
		}
		if claim.ClaimOrder != i+1 {
			t.Errorf("领取顺序 = %d, 期望 %d", claim.ClaimOrder, i+1)
		}
		if claim.IsFinished != (i == 4) {
			t.Errorf("第 %d 次 IsFinished = %v", i+1, claim.IsFinished)
		}
		if got := balanceOf(t, db, claimant); got != claim.Amount {
			t.Errorf("领取人 %d 入账 = %d, 期望 %d", claimant, got, claim.Amount)
		}
		total += claim.Amount
		if claim.IsBestLuck {
			bestCount++
		}
	}

	if total != 5000 {
		t.Errorf("领取总额 = %d, 期望 5000", total)
	}
	if bestCount != 1 {
		t.Errorf("手气最佳人数 = %d, 期望恰好 1", bestCount)
	}

	packet, err := svc.packets.GetByUUID(result.UUID)
	if err != nil {
		t.Fatal(err)
	}
	if packet.Status != models.PacketStatusCompleted {
		t.Errorf("领完后状态 = %s, 期望 completed", packet.Status)
	}
	if packet.ClaimedAmount != 5000 || packet.ClaimedCount != 5 {
		t.Errorf("计数 = %d/%d, 期望 5000/5", packet.ClaimedAmount, packet.ClaimedCount)
	}

	// 领完后再领
	if _, err := svc.Claim(result.UUID, 999, "late"); !errors.Is(err, ErrPacketCompleted) {
		t.Errorf("领完后领取应返回 ErrPacketCompleted, 得到 %v", err)
	}
}

func TestClaimTwiceRejected(t *testing.T) {
	svc, db := newTestService(t, serviceConfig())
	seedUser(t, db, 1, 10000)

	result, err := svc.Create(groupRequest(1, 5000, 5))
	if err != nil {
		t.Fatal(err)
	}

	first, err := svc.Claim(result.UUID, 100, "u100")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Claim(result.UUID, 100, "u100"); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("重复领取应返回 ErrAlreadyClaimed, 得到 %v", err)
	}

	// 重复领取不得重复入账
	if got := balanceOf(t, db, 100); got != first.Amount {
		t.Errorf("余额 = %d, 期望 %d", got, first.Amount)
	}
}

func TestClaimSameClaimantConcurrent(t *testing.T) {
	svc, db := newTestService(t, serviceConfig())
	seedUser(t, db, 1, 10000)

	result, err := svc.Create(groupRequest(1, 5000, 5))
	if err != nil {
		t.Fatal(err)
	}

	const attempts = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		amount    int64
		failures  []error
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claim, err := svc.Claim(result.UUID, 100, "u100")
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
				return
			}
			successes++
			amount = claim.Amount
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("同一用户并发领取成功数 = %d, 期望恰好 1", successes)
	}
	for _, err := range failures {
		if !errors.Is(err, ErrAlreadyClaimed) {
			t.Errorf("落败尝试应返回 ErrAlreadyClaimed, 得到 %v", err)
		}
	}

	// 入账恰好一次
	if got := balanceOf(t, db, 100); got != amount {
		t.Errorf("余额 = %d, 期望 %d", got, amount)
	}

	var count int64
	db.Model(&models.ClaimRecord{}).Where("claimant_tg = ?", int64(100)).Count(&count)
	if count != 1 {
		t.Errorf("领取记录数 = %d, 期望 1", count)
	}
}

func TestClaimSelf(t *testing.T) {
	svc, db := newTestService(t, serviceConfig())
	seedUser(t, db, 1, 10000)

	result, err := svc.Create(groupRequest(1, 5000, 5))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Claim(result.UUID, 1, "sender"); !errors.Is(err, ErrSelfClaim) {
		t.Fatalf("默认不允许领自己的红包, 得到 %v", err)
	}

	cfg := serviceConfig()
	cfg.RedPacket.AllowSelfClaim = true
	svc2, db2 := newTestService(t, cfg)
	seedUser(t, db2, 1, 10000)
	result2, err := svc2.Create(groupRequest(1, 5000, 5))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc2.Claim(result2.UUID, 1, "sender"); err != nil {
		t.Fatalf("开启 allow_self_claim 后应可领取: %v", err)
	}
}

func TestClaimExclusivePacket(t *testing.T) {
	svc, db := newTestService(t, serviceConfig())
	seedUser(t, db, 1, 10000)

	target := int64(200)
	req := groupRequest(1, 1000, 1)
	req.TargetTG = &target
	result, err := svc.Create(req)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Claim(result.UUID, 300, "other"); !errors.Is(err, ErrNotTargetUser) {
		t.Fatalf("非目标用户应被拒, 得到 %v", err)
	}
	claim, err := svc.Claim(result.UUID, target, "target")
	if err != nil {
		t.Fatalf("目标用户领取失败: %v", err)
	}
	if claim.Amount != 1000 {
		t.Errorf("单份专属红包金额 = %d, 期望 1000", claim.Amount)
	}
}

func TestClaimConcurrentNoOverClaim(t *testing.T) {
	svc, db := newTestService(t, serviceConfig())
	seedUser(t, db, 1, 100000)

	const shares = 10
	const claimants = 30

	result, err := svc.Create(groupRequest(1, 10000, shares))
	if err != nil {
		t.Fatal(err)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		won      []*ClaimResult
		failures []error
	)
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func(tg int64) {
			defer wg.Done()
			claim, err := svc.Claim(result.UUID, tg, fmt.Sprintf("u%d", tg))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
				return
			}
			won = append(won, claim)
		}(int64(1000 + i))
	}
	wg.Wait()

	if len(won) != shares {
		t.Fatalf("成功领取数 = %d, 期望恰好 %d", len(won), shares)
	}

	var total int64
	orders := make(map[int]bool)
	for _, claim := range won {
		total += claim.Amount
		if orders[claim.ClaimOrder] {
			t.Errorf("领取顺序 %d 重复", claim.ClaimOrder)
		}
		orders[claim.ClaimOrder] = true
	}
	if total != 10000 {
		t.Errorf("领取总额 = %d, 期望 10000", total)
	}
	for order := 1; order <= shares; order++ {
		if !orders[order] {
			t.Errorf("领取顺序 %d 缺失", order)
		}
	}

	for _, err := range failures {
		if !errors.Is(err, ErrPacketCompleted) {
			t.Errorf("落空者应得到 ErrPacketCompleted, 得到 %v", err)
		}
	}

	packet, err := svc.packets.GetByUUID(result.UUID)
	if err != nil {
		t.Fatal(err)
	}
	if packet.Status != models.PacketStatusCompleted {
		t.Errorf("状态 = %s, 期望 completed", packet.Status)
	}

	// 账面守恒：发送人扣 100.00，领取人合计入 100.00
	var sum int64
	db.Model(&models.User{}).Where("tg >= 1000").Select("SUM(balance)").Scan(&sum)
	if sum != 10000 {
		t.Errorf("领取人余额合计 = %d, 期望 10000", sum)
	}
}

func TestClaimExpiredRefundsSender(t *testing.T) {
	svc, db := newTestService(t, serviceConfig())
	seedUser(t, db, 1, 10000)

	current := time.Date(2026, 1, 15, 12, 0, 0, 0, time.Local)
	svc.now = func() time.Time { return current }

	result, err := svc.Create(groupRequest(1, 5000, 5))
	if err != nil {
		t.Fatal(err)
	}

	// 领走一份后过期
	claim, err := svc.Claim(result.UUID, 100, "u100")
	if err != nil {
		t.Fatal(err)
	}

	current = current.Add(25 * time.Hour)
	if _, err := svc.Claim(result.UUID, 101, "u101"); !errors.Is(err, ErrPacketExpired) {
		t.Fatalf("过期红包领取应返回 ErrPacketExpired, 得到 %v", err)
	}

	// 未领部分退回发送人
	wantBalance := 10000 - claim.Amount
	if got := balanceOf(t, db, 1); got != wantBalance {
		t.Errorf("退款后余额 = %d, 期望 %d", got, wantBalance)
	}

	packet, err := svc.packets.GetByUUID(result.UUID)
	if err != nil {
		t.Fatal(err)
	}
	if packet.Status != models.PacketStatusExpired {
		t.Errorf("状态 = %s, 期望 expired", packet.Status)
	}
}

func TestExpireOverdueSweep(t *testing.T) {
	svc, db := newTestService(t, serviceConfig())
	seedUser(t, db, 1, 20000)

	current := time.Date(2026, 1, 15, 12, 0, 0, 0, time.Local)
	svc.now = func() time.Time { return current }

	first, err := svc.Create(groupRequest(1, 5000, 5))
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Create(groupRequest(1, 5000, 5))
	if err != nil {
		t.Fatal(err)
	}

	current = current.Add(25 * time.Hour)
	expired, err := svc.ExpireOverdue(100)
	if err != nil {
		t.Fatal(err)
	}
	if expired != 2 {
		t.Errorf("过期处理数 = %d, 期望 2", expired)
	}

	if got := balanceOf(t, db, 1); got != 20000 {
		t.Errorf("全额退款后余额 = %d, 期望 20000", got)
	}
	for _, uuid := range []string{first.UUID, second.UUID} {
		packet, err := svc.packets.GetByUUID(uuid)
		if err != nil {
			t.Fatal(err)
		}
		if packet.Status != models.PacketStatusExpired {
			t.Errorf("%s 状态 = %s, 期望 expired", uuid, packet.Status)
		}
	}

	// 再跑一轮不应重复退款
	if expired, err := svc.ExpireOverdue(100); err != nil || expired != 0 {
		t.Errorf("第二轮 = %d/%v, 期望 0/nil", expired, err)
	}
}

func TestRevoke(t *testing.T) {
	svc, db := newTestService(t, serviceConfig())
	seedUser(t, db, 1, 10000)

	result, err := svc.Create(groupRequest(1, 5000, 5))
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Revoke(result.UUID, 2, false); !errors.Is(err, ErrNotPacketSender) {
		t.Errorf("非发包人撤回应被拒, 得到 %v", err)
	}

	if err := svc.Revoke(result.UUID, 1, false); err != nil {
		t.Fatalf("发包人撤回失败: %v", err)
	}
	if got := balanceOf(t, db, 1); got != 10000 {
		t.Errorf("撤回后余额 = %d, 期望 10000", got)
	}

	if err := svc.Revoke(result.UUID, 1, false); !errors.Is(err, ErrPacketRevoked) {
		t.Errorf("重复撤回应返回 ErrPacketRevoked, 得到 %v", err)
	}
	if _, err := svc.Claim(result.UUID, 100, "u100"); !errors.Is(err, ErrPacketRevoked) {
		t.Errorf("撤回后领取应返回 ErrPacketRevoked, 得到 %v", err)
	}
}

func TestRevokeWithClaimsRejected(t *testing.T) {
	svc, db := newTestService(t, serviceConfig())
	seedUser(t, db, 1, 10000)

	result, err := svc.Create(groupRequest(1, 5000, 5))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Claim(result.UUID, 100, "u100"); err != nil {
		t.Fatal(err)
	}

	if err := svc.Revoke(result.UUID, 1, false); !errors.Is(err, ErrPacketHasClaims) {
		t.Fatalf("有人领过的红包不可撤回, 得到 %v", err)
	}

	// 管理员也不能撤回已被领取的红包
	if err := svc.Revoke(result.UUID, 999, true); !errors.Is(err, ErrPacketHasClaims) {
		t.Fatalf("期望 ErrPacketHasClaims, 得到 %v", err)
	}
}

func TestClaimWritesOutboxWhenPlatformEnabled(t *testing.T) {
	cfg := serviceConfig()
	cfg.Platform.Enabled = true
	svc, db := newTestService(t, cfg)
	seedUser(t, db, 1, 10000)

	result, err := svc.Create(groupRequest(1, 5000, 5))
	if err != nil {
		t.Fatal(err)
	}
	claim, err := svc.Claim(result.UUID, 100, "u100")
	if err != nil {
		t.Fatal(err)
	}

	// 入账走 outbox，本地余额不动
	var user models.User
	err = db.Where("tg = ?", int64(100)).First(&user).Error
	if err == nil && user.Balance != 0 {
		t.Errorf("平台模式下本地余额应保持 0, 得到 %d", user.Balance)
	}

	var entries []models.CreditOutbox
	if err := db.Find(&entries).Error; err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("outbox 条数 = %d, 期望 1", len(entries))
	}
	entry := entries[0]
	if entry.PacketUUID != result.UUID || entry.ClaimantTG != 100 || entry.Amount != claim.Amount {
		t.Errorf("outbox 内容不符: %+v", entry)
	}
	if entry.Status != models.OutboxStatusPending {
		t.Errorf("outbox 状态 = %s, 期望 pending", entry.Status)
	}
}

func TestDetailAndHistory(t *testing.T) {
	svc, db := newTestService(t, serviceConfig())
	seedUser(t, db, 1, 10000)

	result, err := svc.Create(groupRequest(1, 5000, 3))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err := svc.Claim(result.UUID, int64(100+i), fmt.Sprintf("u%d", 100+i)); err != nil {
			t.Fatal(err)
		}
	}

	packet, records, err := svc.Detail(result.UUID)
	if err != nil {
		t.Fatal(err)
	}
	if packet.UUID != result.UUID {
		t.Errorf("详情 UUID 不符")
	}
	if len(records) != 3 {
		t.Fatalf("领取记录数 = %d, 期望 3", len(records))
	}
	for i, record := range records {
		if record.ClaimOrder != i+1 {
			t.Errorf("记录 #%d 顺序 = %d", i, record.ClaimOrder)
		}
	}

	if _, _, err := svc.Detail("no-such-uuid"); !errors.Is(err, ErrPacketNotFound) {
		t.Errorf("期望 ErrPacketNotFound, 得到 %v", err)
	}

	claims, err := svc.UserClaims(100, 10)
	if err != nil || len(claims) != 1 {
		t.Errorf("用户领取历史 = %d/%v, 期望 1", len(claims), err)
	}
	packets, err := svc.UserPackets(1, 10)
	if err != nil || len(packets) != 1 {
		t.Errorf("用户发包历史 = %d/%v, 期望 1", len(packets), err)
	}
}
