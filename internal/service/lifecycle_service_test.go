package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/promodeal-next/internal/constants"
	"github.com/promodeal-next/internal/models"
	"github.com/promodeal-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupLifecycleServiceTest(t *testing.T) (*LifecycleService, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:lifecycle_svc_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test database failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Deal{}, &models.DealAnalytics{}); err != nil {
		t.Fatalf("migrate test database failed: %v", err)
	}
	models.DB = db

	return NewLifecycleService(repository.NewDealRepository(db), repository.NewDealAnalyticsRepository(db), nil), db
}

func seedLifecycleDeal(t *testing.T, db *gorm.DB, name, status string, startsAt, endsAt time.Time) *models.Deal {
	t.Helper()
	deal := &models.Deal{
		Name:               name,
		Type:               constants.DealTypePercentage,
		Status:             status,
		StartsAt:           startsAt,
		EndsAt:             endsAt,
		DiscountPercentage: 10,
		TotalStock:         10,
		RemainingStock:     10,
	}
	if err := db.Create(deal).Error; err != nil {
		t.Fatalf("create deal failed: %v", err)
	}
	return deal
}

func dealStatus(t *testing.T, db *gorm.DB, id uint) string {
	t.Helper()
	var deal models.Deal
	if err := db.First(&deal, id).Error; err != nil {
		t.Fatalf("reload deal failed: %v", err)
	}
	return deal.Status
}

func TestActivateScheduledDeals(t *testing.T) {
	svc, db := setupLifecycleServiceTest(t)
	now := time.Now()

	due := seedLifecycleDeal(t, db, "due", constants.DealStatusScheduled, now.Add(-time.Minute), now.Add(time.Hour))
	future := seedLifecycleDeal(t, db, "future", constants.DealStatusScheduled, now.Add(time.Hour), now.Add(2*time.Hour))

	count, err := svc.ActivateScheduledDeals(now)
	if err != nil {
		t.Fatalf("activate failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 deal activated, got %d", count)
	}
	if got := dealStatus(t, db, due.ID); got != constants.DealStatusActive {
		t.Fatalf("expected due deal active, got %s", got)
	}
	if got := dealStatus(t, db, future.ID); got != constants.DealStatusScheduled {
		t.Fatalf("expected future deal untouched, got %s", got)
	}

	// 重复执行为空操作
	count, err = svc.ActivateScheduledDeals(now)
	if err != nil {
		t.Fatalf("second activate failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected idempotent second run, got %d", count)
	}
}

func TestEndExpiredDeals(t *testing.T) {
	svc, db := setupLifecycleServiceTest(t)
	now := time.Now()

	expired := seedLifecycleDeal(t, db, "expired", constants.DealStatusActive, now.Add(-2*time.Hour), now.Add(-time.Minute))
	running := seedLifecycleDeal(t, db, "running", constants.DealStatusActive, now.Add(-time.Hour), now.Add(time.Hour))
	// 窗口整体已过、从未被激活的待开始活动直接结束
	missed := seedLifecycleDeal(t, db, "missed", constants.DealStatusScheduled, now.Add(-3*time.Hour), now.Add(-2*time.Hour))

	count, err := svc.EndExpiredDeals(now)
	if err != nil {
		t.Fatalf("end expired failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 deals ended, got %d", count)
	}
	if got := dealStatus(t, db, expired.ID); got != constants.DealStatusEnded {
		t.Fatalf("expected expired deal ended, got %s", got)
	}
	if got := dealStatus(t, db, missed.ID); got != constants.DealStatusEnded {
		t.Fatalf("expected missed deal ended, got %s", got)
	}
	if got := dealStatus(t, db, running.ID); got != constants.DealStatusActive {
		t.Fatalf("expected running deal untouched, got %s", got)
	}

	count, err = svc.EndExpiredDeals(now)
	if err != nil {
		t.Fatalf("second end failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected idempotent second run, got %d", count)
	}
}

func TestEndExpiredDealsReconcilesAnalyticsStock(t *testing.T) {
	svc, db := setupLifecycleServiceTest(t)
	now := time.Now()

	expired := seedLifecycleDeal(t, db, "expired", constants.DealStatusActive, now.Add(-2*time.Hour), now.Add(-time.Minute))
	// 统计侧的库存快照已经漂移，结束巡检应校准回活动行的值
	expired.RemainingStock = 3
	if err := db.Save(expired).Error; err != nil {
		t.Fatalf("update deal stock failed: %v", err)
	}
	analytics := &models.DealAnalytics{DealID: expired.ID, InitialStock: 10, StockRemaining: 7}
	if err := db.Create(analytics).Error; err != nil {
		t.Fatalf("create analytics failed: %v", err)
	}

	count, err := svc.EndExpiredDeals(now)
	if err != nil {
		t.Fatalf("end expired failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 deal ended, got %d", count)
	}

	var row models.DealAnalytics
	if err := db.Where("deal_id = ?", expired.ID).First(&row).Error; err != nil {
		t.Fatalf("reload analytics failed: %v", err)
	}
	if row.StockRemaining != 3 {
		t.Fatalf("expected analytics stock synced to 3, got %d", row.StockRemaining)
	}
}

func TestListExpiringSoon(t *testing.T) {
	svc, db := setupLifecycleServiceTest(t)
	now := time.Now()

	soon := seedLifecycleDeal(t, db, "soon", constants.DealStatusActive, now.Add(-time.Hour), now.Add(30*time.Minute))
	seedLifecycleDeal(t, db, "later", constants.DealStatusActive, now.Add(-time.Hour), now.Add(48*time.Hour))
	seedLifecycleDeal(t, db, "scheduled", constants.DealStatusScheduled, now.Add(time.Hour), now.Add(90*time.Minute))

	deals, err := svc.ListExpiringSoon(now, 24*time.Hour, 50)
	if err != nil {
		t.Fatalf("list expiring failed: %v", err)
	}
	if len(deals) != 1 {
		t.Fatalf("expected 1 expiring deal, got %d", len(deals))
	}
	if deals[0].ID != soon.ID {
		t.Fatalf("expected deal %d, got %d", soon.ID, deals[0].ID)
	}

	if _, err := svc.ListExpiringSoon(now, 0, 50); !errors.Is(err, ErrDealInvalid) {
		t.Fatalf("expected invalid window error, got %v", err)
	}
}

func TestSweepEndsBeforeActivating(t *testing.T) {
	svc, db := setupLifecycleServiceTest(t)
	now := time.Now()

	// 同一轮巡检内：一个到点激活，一个过期结束
	due := seedLifecycleDeal(t, db, "due", constants.DealStatusScheduled, now.Add(-time.Minute), now.Add(time.Hour))
	expired := seedLifecycleDeal(t, db, "expired", constants.DealStatusActive, now.Add(-2*time.Hour), now.Add(-time.Minute))

	activated, ended, err := svc.Sweep(now)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if activated != 1 || ended != 1 {
		t.Fatalf("expected 1 activated and 1 ended, got %d and %d", activated, ended)
	}
	if got := dealStatus(t, db, due.ID); got != constants.DealStatusActive {
		t.Fatalf("expected due deal active, got %s", got)
	}
	if got := dealStatus(t, db, expired.ID); got != constants.DealStatusEnded {
		t.Fatalf("expected expired deal ended, got %s", got)
	}

	// 已结束活动不可逆转
	activated, ended, err = svc.Sweep(now.Add(time.Minute))
	if err != nil {
		t.Fatalf("second sweep failed: %v", err)
	}
	if activated != 0 || ended != 0 {
		t.Fatalf("expected no further transitions, got %d activated and %d ended", activated, ended)
	}
}
