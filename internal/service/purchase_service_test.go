package service

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/promodeal-next/internal/constants"
	"github.com/promodeal-next/internal/models"
	"github.com/promodeal-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupPurchaseServiceTest(t *testing.T) (*PurchaseService, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:purchase_svc_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test database failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Deal{}, &models.DealPurchase{}, &models.DealAnalytics{}); err != nil {
		t.Fatalf("migrate test database failed: %v", err)
	}
	models.DB = db

	svc := NewPurchaseService(
		repository.NewDealRepository(db),
		repository.NewDealPurchaseRepository(db),
		repository.NewUserRepository(db),
		repository.NewDealAnalyticsRepository(db),
		NewEligibilityService(),
		nil,
	)
	return svc, db
}

func seedPurchaseFixtures(t *testing.T, db *gorm.DB, remainingStock, limitPerCustomer int) (*models.Deal, *models.User) {
	t.Helper()

	now := time.Now()
	deal := &models.Deal{
		Name:               "flash sale",
		Type:               constants.DealTypePercentage,
		Status:             constants.DealStatusActive,
		StartsAt:           now.Add(-time.Hour),
		EndsAt:             now.Add(time.Hour),
		DiscountPercentage: 20,
		TotalStock:         remainingStock,
		RemainingStock:     remainingStock,
		LimitPerCustomer:   limitPerCustomer,
	}
	if err := db.Create(deal).Error; err != nil {
		t.Fatalf("create deal failed: %v", err)
	}
	analytics := &models.DealAnalytics{
		DealID:         deal.ID,
		InitialStock:   deal.TotalStock,
		StockRemaining: deal.RemainingStock,
	}
	if err := db.Create(analytics).Error; err != nil {
		t.Fatalf("create analytics failed: %v", err)
	}
	user := &models.User{
		Email:       fmt.Sprintf("buyer_%d@example.com", time.Now().UnixNano()),
		DisplayName: "Buyer",
		LoyaltyTier: constants.LoyaltyTierBronze,
		Status:      constants.UserStatusActive,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return deal, user
}

func TestRecordPurchaseSuccess(t *testing.T) {
	svc, db := setupPurchaseServiceTest(t)
	deal, user := seedPurchaseFixtures(t, db, 10, 0)

	purchase, err := svc.RecordPurchase(RecordPurchaseInput{
		DealID:          deal.ID,
		OrderNo:         "ORD-1001",
		UserID:          user.ID,
		Quantity:        2,
		PurchasePrice:   models.NewMoneyFromFloat(160),
		DiscountApplied: models.NewMoneyFromFloat(40),
	})
	if err != nil {
		t.Fatalf("record purchase failed: %v", err)
	}
	if purchase.ID == 0 {
		t.Fatal("expected purchase to be persisted")
	}

	var reloaded models.Deal
	if err := db.First(&reloaded, deal.ID).Error; err != nil {
		t.Fatalf("reload deal failed: %v", err)
	}
	if reloaded.RemainingStock != 8 {
		t.Fatalf("expected remaining stock 8, got %d", reloaded.RemainingStock)
	}
	if reloaded.Conversions != 1 {
		t.Fatalf("expected 1 conversion, got %d", reloaded.Conversions)
	}

	var row models.DealAnalytics
	if err := db.Where("deal_id = ?", deal.ID).First(&row).Error; err != nil {
		t.Fatalf("reload analytics failed: %v", err)
	}
	if row.TotalPurchases != 1 {
		t.Fatalf("expected 1 purchase in analytics, got %d", row.TotalPurchases)
	}
	if row.StockRemaining != 8 {
		t.Fatalf("expected analytics stock 8, got %d", row.StockRemaining)
	}
}

func TestRecordPurchaseOrderNoIdempotent(t *testing.T) {
	svc, db := setupPurchaseServiceTest(t)
	deal, user := seedPurchaseFixtures(t, db, 10, 0)

	input := RecordPurchaseInput{
		DealID:        deal.ID,
		OrderNo:       "ORD-2001",
		UserID:        user.ID,
		Quantity:      1,
		PurchasePrice: models.NewMoneyFromFloat(80),
	}
	first, err := svc.RecordPurchase(input)
	if err != nil {
		t.Fatalf("first purchase failed: %v", err)
	}
	replay, err := svc.RecordPurchase(input)
	if err != nil {
		t.Fatalf("replay should be idempotent, got: %v", err)
	}
	if replay.ID != first.ID {
		t.Fatalf("expected replay to return existing purchase %d, got %d", first.ID, replay.ID)
	}

	// 重放不得再次扣库存
	var reloaded models.Deal
	if err := db.First(&reloaded, deal.ID).Error; err != nil {
		t.Fatalf("reload deal failed: %v", err)
	}
	if reloaded.RemainingStock != 9 {
		t.Fatalf("expected remaining stock 9 after replay, got %d", reloaded.RemainingStock)
	}

	// 同单号不同用户视为冲突
	other := &models.User{Email: "other@example.com", LoyaltyTier: constants.LoyaltyTierBronze, Status: constants.UserStatusActive}
	if err := db.Create(other).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	input.UserID = other.ID
	if _, err := svc.RecordPurchase(input); !errors.Is(err, ErrDuplicateOrder) {
		t.Fatalf("expected duplicate order error, got %v", err)
	}
}

func TestRecordPurchaseIneligibleRollsBack(t *testing.T) {
	svc, db := setupPurchaseServiceTest(t)
	deal, user := seedPurchaseFixtures(t, db, 10, 0)

	// 活动尚未开始
	deal.StartsAt = time.Now().Add(time.Hour)
	deal.EndsAt = time.Now().Add(2 * time.Hour)
	if err := db.Save(deal).Error; err != nil {
		t.Fatalf("update deal failed: %v", err)
	}

	_, err := svc.RecordPurchase(RecordPurchaseInput{
		DealID:        deal.ID,
		OrderNo:       "ORD-3001",
		UserID:        user.ID,
		Quantity:      1,
		PurchasePrice: models.NewMoneyFromFloat(80),
	})
	if !errors.Is(err, ErrPurchaseForbidden) {
		t.Fatalf("expected forbidden error, got %v", err)
	}

	var count int64
	if err := db.Model(&models.DealPurchase{}).Where("deal_id = ?", deal.ID).Count(&count).Error; err != nil {
		t.Fatalf("count purchases failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no purchase rows, got %d", count)
	}
	var reloaded models.Deal
	if err := db.First(&reloaded, deal.ID).Error; err != nil {
		t.Fatalf("reload deal failed: %v", err)
	}
	if reloaded.RemainingStock != 10 {
		t.Fatalf("expected stock unchanged, got %d", reloaded.RemainingStock)
	}
}

func TestRecordPurchaseStockConflict(t *testing.T) {
	svc, db := setupPurchaseServiceTest(t)
	// 剩余 1 件仍算在售，但一次买 2 件会在条件扣减处失败
	deal, user := seedPurchaseFixtures(t, db, 1, 0)

	_, err := svc.RecordPurchase(RecordPurchaseInput{
		DealID:        deal.ID,
		OrderNo:       "ORD-4001",
		UserID:        user.ID,
		Quantity:      2,
		PurchasePrice: models.NewMoneyFromFloat(160),
	})
	if !errors.Is(err, ErrStockConflict) {
		t.Fatalf("expected stock conflict, got %v", err)
	}

	var reloaded models.Deal
	if err := db.First(&reloaded, deal.ID).Error; err != nil {
		t.Fatalf("reload deal failed: %v", err)
	}
	if reloaded.RemainingStock != 1 {
		t.Fatalf("expected stock unchanged on conflict, got %d", reloaded.RemainingStock)
	}
}

func TestRecordPurchaseEnforcesPerCustomerLimit(t *testing.T) {
	svc, db := setupPurchaseServiceTest(t)
	deal, user := seedPurchaseFixtures(t, db, 10, 2)

	if _, err := svc.RecordPurchase(RecordPurchaseInput{
		DealID:        deal.ID,
		OrderNo:       "ORD-5001",
		UserID:        user.ID,
		Quantity:      2,
		PurchasePrice: models.NewMoneyFromFloat(160),
	}); err != nil {
		t.Fatalf("first purchase failed: %v", err)
	}

	_, err := svc.RecordPurchase(RecordPurchaseInput{
		DealID:        deal.ID,
		OrderNo:       "ORD-5002",
		UserID:        user.ID,
		Quantity:      1,
		PurchasePrice: models.NewMoneyFromFloat(80),
	})
	if !errors.Is(err, ErrPurchaseForbidden) {
		t.Fatalf("expected forbidden error over limit, got %v", err)
	}
}

func TestRecordPurchaseConcurrentNeverOversells(t *testing.T) {
	svc, db := setupPurchaseServiceTest(t)
	deal, _ := seedPurchaseFixtures(t, db, 5, 0)

	// 单连接串行化 sqlite 事务，购买调用仍然并发发起
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	const workers = 8
	users := make([]*models.User, workers)
	for i := range users {
		users[i] = &models.User{
			Email:       fmt.Sprintf("racer_%d@example.com", i),
			LoyaltyTier: constants.LoyaltyTierBronze,
			Status:      constants.UserStatusActive,
		}
		if err := db.Create(users[i]).Error; err != nil {
			t.Fatalf("create user failed: %v", err)
		}
	}

	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.RecordPurchase(RecordPurchaseInput{
				DealID:        deal.ID,
				OrderNo:       fmt.Sprintf("ORD-RACE-%d", i),
				UserID:        users[i].ID,
				Quantity:      1,
				PurchasePrice: models.NewMoneyFromFloat(80),
			})
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	accepted := 0
	for err := range results {
		if err == nil {
			accepted++
			continue
		}
		if !errors.Is(err, ErrStockConflict) && !errors.Is(err, ErrPurchaseForbidden) {
			t.Fatalf("unexpected rejection error: %v", err)
		}
	}
	if accepted != 5 {
		t.Fatalf("expected exactly 5 accepted purchases, got %d", accepted)
	}

	var reloaded models.Deal
	if err := db.First(&reloaded, deal.ID).Error; err != nil {
		t.Fatalf("reload deal failed: %v", err)
	}
	if reloaded.RemainingStock != 0 {
		t.Fatalf("expected stock drained to 0, got %d", reloaded.RemainingStock)
	}

	var count int64
	if err := db.Model(&models.DealPurchase{}).Where("deal_id = ?", deal.ID).Count(&count).Error; err != nil {
		t.Fatalf("count purchases failed: %v", err)
	}
	if count != 5 {
		t.Fatalf("expected 5 purchase rows, got %d", count)
	}

	// 统计行的库存快照必须与活动行一致
	var row models.DealAnalytics
	if err := db.Where("deal_id = ?", deal.ID).First(&row).Error; err != nil {
		t.Fatalf("reload analytics failed: %v", err)
	}
	if row.StockRemaining != reloaded.RemainingStock {
		t.Fatalf("analytics stock %d diverged from deal stock %d", row.StockRemaining, reloaded.RemainingStock)
	}
	if row.TotalPurchases != 5 {
		t.Fatalf("expected 5 purchases in analytics, got %d", row.TotalPurchases)
	}
}

func TestRecordPurchaseConcurrentSameUserHonorsLimit(t *testing.T) {
	svc, db := setupPurchaseServiceTest(t)
	deal, user := seedPurchaseFixtures(t, db, 10, 3)

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	const workers = 6
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.RecordPurchase(RecordPurchaseInput{
				DealID:        deal.ID,
				OrderNo:       fmt.Sprintf("ORD-LIMIT-%d", i),
				UserID:        user.ID,
				Quantity:      1,
				PurchasePrice: models.NewMoneyFromFloat(80),
			})
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	accepted := 0
	for err := range results {
		if err == nil {
			accepted++
			continue
		}
		if !errors.Is(err, ErrPurchaseForbidden) {
			t.Fatalf("unexpected rejection error: %v", err)
		}
	}
	if accepted != 3 {
		t.Fatalf("expected per-customer limit to cap at 3 purchases, got %d", accepted)
	}

	purchased, err := repository.NewDealPurchaseRepository(db).SumQuantityByUser(deal.ID, user.ID)
	if err != nil {
		t.Fatalf("sum quantity failed: %v", err)
	}
	if purchased != 3 {
		t.Fatalf("expected 3 units recorded for the user, got %d", purchased)
	}
}

func TestRecordPurchaseValidatesInput(t *testing.T) {
	svc, _ := setupPurchaseServiceTest(t)

	cases := []RecordPurchaseInput{
		{OrderNo: "ORD-1", UserID: 1, Quantity: 1},                       // missing deal
		{DealID: 1, UserID: 1, Quantity: 1},                              // missing order no
		{DealID: 1, OrderNo: "ORD-1", UserID: 1, Quantity: 0},            // zero quantity
		{DealID: 1, OrderNo: "ORD-1", UserID: 1, Quantity: 1, PurchasePrice: models.NewMoneyFromFloat(-1)}, // negative amount
	}
	for i, input := range cases {
		if _, err := svc.RecordPurchase(input); !errors.Is(err, ErrDealInvalid) {
			t.Fatalf("case %d: expected invalid error, got %v", i, err)
		}
	}
}

func TestCheckEligibilityAdvisory(t *testing.T) {
	svc, db := setupPurchaseServiceTest(t)
	deal, user := seedPurchaseFixtures(t, db, 0, 0)

	verdict, err := svc.CheckEligibility(deal.ID, user.ID, 1, time.Now())
	if err != nil {
		t.Fatalf("check eligibility failed: %v", err)
	}
	if verdict.IsEligible {
		t.Fatal("expected ineligible for sold out deal")
	}
	if !containsReason(verdict.Reasons, ReasonDealSoldOut) {
		t.Fatalf("expected sold out reason, got %v", verdict.Reasons)
	}

	if _, err := svc.CheckEligibility(9999, user.ID, 1, time.Now()); !errors.Is(err, ErrDealNotFound) {
		t.Fatalf("expected deal not found, got %v", err)
	}
}
